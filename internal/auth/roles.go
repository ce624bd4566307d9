package auth

import (
	"net/http"
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/spindit/locker-service/internal/domain"
)

// RequireRole admits callers whose role is one of roles. An empty list admits
// any signed-in caller.
func RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(roles) > 0 && !slices.Contains(roles, principal.Role) {
			return fiber.NewError(http.StatusForbidden, string(roles[0])+" role required")
		}
		return c.Next()
	}
}

// RequireStaff guards the back-office routes.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.RoleStaff)
}

// RequireAnyRole admits guardians and staff alike.
func RequireAnyRole() fiber.Handler {
	return RequireRole(domain.RoleGuardian, domain.RoleStaff)
}
