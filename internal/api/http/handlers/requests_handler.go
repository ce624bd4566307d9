package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spindit/locker-service/internal/api/dto"
	"github.com/spindit/locker-service/internal/repository"
	"github.com/spindit/locker-service/internal/service"
)

// RequestsHandler manages guardian request endpoints.
type RequestsHandler struct {
	requests    *service.RequestService
	assignments *service.AssignmentService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requests *service.RequestService, assignments *service.AssignmentService) *RequestsHandler {
	return &RequestsHandler{requests: requests, assignments: assignments}
}

// Create handles POST /requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req service.RequestInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	request, err := h.requests.Create(c.UserContext(), user.ID, req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// List handles GET /requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	status, err := requestStatusQuery(c)
	if err != nil {
		return err
	}
	page, err := h.requests.ListOwn(c.UserContext(), user.ID, repository.RequestFilter{
		PageRequest: pageRequest(c),
		Search:      c.Query("search"),
		Status:      status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPageResponse(page, dto.NewRequestResponse)})
}

// Cancel handles POST /requests/:id/cancel.
func (h *RequestsHandler) Cancel(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	request, err := h.requests.Cancel(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// Assignments handles GET /assignments.
func (h *RequestsHandler) Assignments(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	items, err := h.assignments.ListOwn(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MapSlice(items, dto.NewAssignmentResponse)})
}

// StaffRequestsHandler manages every request on behalf of staff, including
// the locker assignment.
type StaffRequestsHandler struct {
	requests    *service.RequestService
	assignments *service.AssignmentService
}

// NewStaffRequestsHandler constructs handler.
func NewStaffRequestsHandler(requests *service.RequestService, assignments *service.AssignmentService) *StaffRequestsHandler {
	return &StaffRequestsHandler{requests: requests, assignments: assignments}
}

// List handles GET /staff/requests.
func (h *StaffRequestsHandler) List(c *fiber.Ctx) error {
	status, err := requestStatusQuery(c)
	if err != nil {
		return err
	}
	page, err := h.requests.List(c.UserContext(), repository.RequestFilter{
		PageRequest:     pageRequest(c),
		Search:          c.Query("search"),
		Status:          status,
		UserID:          optionalQuery(c, "user_id"),
		PreferredZoneID: optionalQuery(c, "zone_id"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPageResponse(page, dto.NewRequestResponse)})
}

// Get handles GET /staff/requests/:id.
func (h *StaffRequestsHandler) Get(c *fiber.Ctx) error {
	request, err := h.requests.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// Create handles POST /staff/requests.
func (h *StaffRequestsHandler) Create(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req service.StaffRequestInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	request, err := h.requests.CreateForUser(c.UserContext(), actor.ID, req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// Update handles PUT /staff/requests/:id.
func (h *StaffRequestsHandler) Update(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req service.StaffRequestInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	request, err := h.requests.Update(c.UserContext(), actor.ID, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// UpdateStatus handles PATCH /staff/requests/:id/status.
func (h *StaffRequestsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req service.StatusInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	request, err := h.requests.UpdateStatus(c.UserContext(), actor.ID, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// BulkStatus handles POST /staff/requests/bulk/status.
func (h *StaffRequestsHandler) BulkStatus(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req service.BulkStatusInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.requests.BulkUpdateStatus(c.UserContext(), actor.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// BulkDelete handles POST /staff/requests/bulk/delete.
func (h *StaffRequestsHandler) BulkDelete(c *fiber.Ctx) error {
	var req service.BulkDeleteInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.requests.BulkDelete(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Delete handles DELETE /staff/requests/:id.
func (h *StaffRequestsHandler) Delete(c *fiber.Ctx) error {
	if err := h.requests.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Assignment handles GET /staff/requests/:id/assignment.
func (h *StaffRequestsHandler) Assignment(c *fiber.Ctx) error {
	assignment, err := h.assignments.GetForRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentResponse(assignment)})
}

// Assign handles PUT /staff/requests/:id/assignment. The response data is
// null when the request ends up without a locker.
func (h *StaffRequestsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignLockerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	assignment, err := h.assignments.Reconcile(c.UserContext(), c.Params("id"), req.LockerID)
	if err != nil {
		return err
	}
	if assignment == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentResponse(assignment)})
}

// Audit handles GET /staff/assignments/audit.
func (h *StaffRequestsHandler) Audit(c *fiber.Ctx) error {
	violations, err := h.assignments.Audit(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"consistent": len(violations) == 0,
		"violations": dto.MapSlice(violations, dto.NewViolationResponse),
	}})
}
