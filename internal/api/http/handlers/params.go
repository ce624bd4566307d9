package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spindit/locker-service/internal/auth"
	"github.com/spindit/locker-service/internal/domain"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal.User, nil
}

func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func pageRequest(c *fiber.Ctx) domain.PageRequest {
	return domain.PageRequest{
		Page:    parseInt(c.Query("page"), 1),
		PerPage: parseInt(c.Query("per_page"), domain.DefaultPerPage),
	}.Normalize()
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func lockerStatusQuery(c *fiber.Ctx) (*domain.LockerStatus, error) {
	raw := optionalQuery(c, "status")
	if raw == nil {
		return nil, nil
	}
	status := domain.LockerStatus(*raw)
	if !status.Valid() {
		return nil, invalidQuery("status", "unknown locker status")
	}
	return &status, nil
}

func requestStatusQuery(c *fiber.Ctx) (*domain.RequestStatus, error) {
	raw := optionalQuery(c, "status")
	if raw == nil {
		return nil, nil
	}
	status := domain.RequestStatus(*raw)
	if !status.Valid() {
		return nil, invalidQuery("status", "unknown request status")
	}
	return &status, nil
}

func timeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := optionalQuery(c, key)
	if raw == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, invalidQuery(key, "must be an RFC3339 timestamp")
	}
	return &t, nil
}

func invalidQuery(key, message string) error {
	return apperrors.NewValidationError("invalid query", map[string]any{
		"fields": map[string]string{key: message},
	})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
