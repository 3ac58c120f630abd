package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/123123123123Sitar/dpotdquicktest/internal/utils"
)

// RequireRole ensures that the authenticated user holds at least one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		for _, role := range RolesFromContext(c) {
			if _, ok := allowed[role]; ok {
				return c.Next()
			}
		}
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}
}

// RolesFromContext returns every role attached to the request, normalised to lower case.
func RolesFromContext(c *fiber.Ctx) []string {
	if roles, ok := c.Locals(LocalUserRoles).([]string); ok && len(roles) > 0 {
		return roles
	}
	if role, ok := c.Locals(LocalUserRole).(string); ok {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			return []string{normalized}
		}
	}
	return nil
}

// HasRole reports whether the request carries role.
func HasRole(c *fiber.Ctx, role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, candidate := range RolesFromContext(c) {
		if candidate == role {
			return true
		}
	}
	return false
}
