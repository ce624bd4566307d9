package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spindit/locker-service/internal/api/dto"
	"github.com/spindit/locker-service/internal/service"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

// DevToolsHandler drives the developer console.
type DevToolsHandler struct {
	dev *service.DevToolsService
}

// NewDevToolsHandler constructs handler.
func NewDevToolsHandler(dev *service.DevToolsService) *DevToolsHandler {
	return &DevToolsHandler{dev: dev}
}

// Templates handles GET /dev/templates.
func (h *DevToolsHandler) Templates(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.dev.Templates()})
}

// RunScenario handles POST /dev/scenarios/:index.
func (h *DevToolsHandler) RunScenario(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return apperrors.NewValidationError("index must be a number", nil)
	}
	var req service.ScenarioInput
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	result, err := h.dev.RunScenario(c.UserContext(), index, req)
	if err != nil {
		return err
	}
	data := fiber.Map{
		"template":   result.Template,
		"steps":      result.Steps,
		"user_id":    result.UserID,
		"request_id": result.RequestID,
	}
	if result.Token != nil {
		data["auth"] = dto.NewAuthResponse(*result.Token)
	}
	return c.JSON(fiber.Map{"data": data})
}
