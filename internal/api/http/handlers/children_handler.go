package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spindit/locker-service/internal/api/dto"
	"github.com/spindit/locker-service/internal/service"
)

// ChildrenHandler serves the students a guardian registered.
type ChildrenHandler struct {
	children *service.ChildService
}

// NewChildrenHandler constructs handler.
func NewChildrenHandler(children *service.ChildService) *ChildrenHandler {
	return &ChildrenHandler{children: children}
}

// List handles GET /children.
func (h *ChildrenHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	items, err := h.children.List(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MapSlice(items, dto.NewChildResponse)})
}

// Create handles POST /children.
func (h *ChildrenHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req service.ChildInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	child, err := h.children.Create(c.UserContext(), user.ID, req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewChildResponse(child)})
}
