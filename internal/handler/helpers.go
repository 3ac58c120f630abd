package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/123123123123Sitar/dpotdquicktest/internal/middleware"
	"github.com/123123123123Sitar/dpotdquicktest/internal/service"
)

var errInvalidIdentifier = errors.New("invalid identifier")

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errInvalidIdentifier
	}
	return uint(parsed), nil
}

func localString(c *fiber.Ctx, key string) string {
	if value, ok := c.Locals(key).(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// gradingActorFromContext builds the workflow actor from the JWT locals. Admin
// wins over grader when the token carries both.
func gradingActorFromContext(c *fiber.Ctx) service.GradingActor {
	role := localString(c, middleware.LocalUserRole)
	switch {
	case middleware.HasRole(c, service.RoleAdmin):
		role = service.RoleAdmin
	case middleware.HasRole(c, service.RoleGrader):
		role = service.RoleGrader
	}

	return service.GradingActor{
		ID:   localString(c, middleware.LocalUserID),
		Name: localString(c, middleware.LocalUserName),
		Role: role,
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// withMiddlewares returns a new chain ending in final. The caller's slice is never written.
func withMiddlewares(middlewares []fiber.Handler, final fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(middlewares)+1)
	handlers = append(handlers, middlewares...)
	return append(handlers, final)
}
