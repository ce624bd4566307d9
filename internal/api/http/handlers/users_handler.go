package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spindit/locker-service/internal/api/dto"
	"github.com/spindit/locker-service/internal/service"
)

// UsersHandler exposes account management for staff.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// List handles GET /staff/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	createdFrom, err := timeQuery(c, "created_from")
	if err != nil {
		return err
	}
	page, err := h.users.List(c.UserContext(), service.UserListInput{
		PageRequest: pageRequest(c),
		Search:      c.Query("search"),
		StaffOnly:   c.QueryBool("staff", false),
		CreatedFrom: createdFrom,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPageResponse(page, dto.NewUserResponse)})
}

// Get handles GET /staff/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Create handles POST /staff/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req service.UserCreateInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Update handles PATCH /staff/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req service.UserUpdateInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Delete handles DELETE /staff/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
