package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spindit/locker-service/internal/api/dto"
	"github.com/spindit/locker-service/internal/repository"
	"github.com/spindit/locker-service/internal/service"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

// ZonesHandler serves zone listings and staff zone management.
type ZonesHandler struct {
	zones *service.ZoneService
}

// NewZonesHandler constructs handler.
func NewZonesHandler(zones *service.ZoneService) *ZonesHandler {
	return &ZonesHandler{zones: zones}
}

// List handles GET /zones and GET /staff/zones.
func (h *ZonesHandler) List(c *fiber.Ctx) error {
	page, err := h.zones.List(c.UserContext(), repository.ZoneFilter{
		PageRequest: pageRequest(c),
		Search:      c.Query("search"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPageResponse(page, dto.NewZoneResponse)})
}

// Get handles GET /staff/zones/:id.
func (h *ZonesHandler) Get(c *fiber.Ctx) error {
	zone, err := h.zones.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewZoneResponse(zone)})
}

// Create handles POST /staff/zones.
func (h *ZonesHandler) Create(c *fiber.Ctx) error {
	var req service.ZoneInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	zone, err := h.zones.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewZoneResponse(zone)})
}

// Update handles PUT /staff/zones/:id.
func (h *ZonesHandler) Update(c *fiber.Ctx) error {
	var req service.ZoneInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	zone, err := h.zones.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewZoneResponse(zone)})
}

// Delete handles DELETE /staff/zones/:id.
func (h *ZonesHandler) Delete(c *fiber.Ctx) error {
	if err := h.zones.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UploadMap handles PUT /staff/zones/:id/map. It accepts a multipart "file"
// field or the raw image as the request body.
func (h *ZonesHandler) UploadMap(c *fiber.Ctx) error {
	var (
		body        io.Reader
		contentType = c.Get(fiber.HeaderContentType)
	)
	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		header, err := c.FormFile("file")
		if err != nil {
			return apperrors.NewValidationError("file field required", nil)
		}
		f, err := header.Open()
		if err != nil {
			return apperrors.NewValidationError("unreadable upload", nil)
		}
		defer f.Close()
		body = f
		contentType = header.Header.Get(fiber.HeaderContentType)
	} else {
		body = bytes.NewReader(c.Body())
	}

	zone, err := h.zones.UploadMap(c.UserContext(), c.Params("id"), body, contentType)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewZoneResponse(zone)})
}

// Map handles GET /staff/zones/:id/map. Drivers that can presign redirect
// to the object; others stream it through the service.
func (h *ZonesHandler) Map(c *fiber.Ctx) error {
	url, err := h.zones.MapURL(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if url != "" {
		return c.Redirect(url, http.StatusTemporaryRedirect)
	}
	info, rc, err := h.zones.OpenMap(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if info.ContentType != "" {
		c.Set(fiber.HeaderContentType, info.ContentType)
	}
	return c.SendStream(rc, int(info.Size))
}

// LockersHandler serves staff locker management.
type LockersHandler struct {
	lockers *service.LockerService
}

// NewLockersHandler constructs handler.
func NewLockersHandler(lockers *service.LockerService) *LockersHandler {
	return &LockersHandler{lockers: lockers}
}

// List handles GET /staff/lockers.
func (h *LockersHandler) List(c *fiber.Ctx) error {
	status, err := lockerStatusQuery(c)
	if err != nil {
		return err
	}
	page, err := h.lockers.List(c.UserContext(), repository.LockerFilter{
		PageRequest: pageRequest(c),
		Search:      c.Query("search"),
		Status:      status,
		ZoneID:      optionalQuery(c, "zone_id"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPageResponse(page, dto.NewLockerResponse)})
}

// Get handles GET /staff/lockers/:id.
func (h *LockersHandler) Get(c *fiber.Ctx) error {
	locker, err := h.lockers.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLockerResponse(locker)})
}

// Create handles POST /staff/lockers.
func (h *LockersHandler) Create(c *fiber.Ctx) error {
	var req service.LockerInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	locker, err := h.lockers.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewLockerResponse(locker)})
}

// Update handles PUT /staff/lockers/:id.
func (h *LockersHandler) Update(c *fiber.Ctx) error {
	var req service.LockerInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	locker, err := h.lockers.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLockerResponse(locker)})
}

// Delete handles DELETE /staff/lockers/:id.
func (h *LockersHandler) Delete(c *fiber.Ctx) error {
	if err := h.lockers.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
