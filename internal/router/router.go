package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/123123123123Sitar/dpotdquicktest/internal/config"
	"github.com/123123123123Sitar/dpotdquicktest/internal/handler"
	"github.com/123123123123Sitar/dpotdquicktest/internal/middleware"
	"github.com/123123123123Sitar/dpotdquicktest/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradeHandler             *handler.GradeHandler
	SubmissionGradingHandler *handler.SubmissionGradingHandler
	LeaderboardHandler       *handler.LeaderboardHandler
	QuestionHandler          *handler.QuestionHandler
	HealthProbes             map[string]handler.HealthProbe
	MetricsHandler           fiber.Handler
	JWTMiddleware            fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	v1 := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	v1.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	if deps.MetricsHandler != nil {
		app.Get("/metrics", deps.MetricsHandler)
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	api := app.Group("/api")

	// Stateless grading used by the quiz client; limited per caller IP.
	if deps.GradeHandler != nil {
		deps.GradeHandler.Register(api, middleware.RateLimit("grade", cfg.GradingRatePerMin, time.Minute))
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(service.RoleAdmin))
	if deps.SubmissionGradingHandler != nil {
		deps.SubmissionGradingHandler.RegisterAdmin(admin)

		grader := api.Group("/grader", jwtMiddleware, middleware.RequireRole(service.RoleGrader, service.RoleAdmin))
		deps.SubmissionGradingHandler.RegisterGrader(grader)
	}
	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(admin)
	}

	if deps.LeaderboardHandler != nil {
		deps.LeaderboardHandler.Register(admin)
		deps.LeaderboardHandler.Register(api, jwtMiddleware)
	}
}
