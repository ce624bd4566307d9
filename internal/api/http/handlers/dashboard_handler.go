package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spindit/locker-service/internal/api/dto"
	"github.com/spindit/locker-service/internal/service"
)

// DashboardHandler serves the staff overview.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Show handles GET /staff/dashboard.
func (h *DashboardHandler) Show(c *fiber.Ctx) error {
	metrics, err := h.dashboard.Metrics(c.UserContext())
	if err != nil {
		return err
	}
	recent, err := h.dashboard.RecentRequests(c.UserContext(), c.QueryInt("recent", 5))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"metrics":         metrics,
		"recent_requests": dto.MapSlice(recent, dto.NewRequestResponse),
	}})
}
