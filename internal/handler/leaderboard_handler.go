package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/123123123123Sitar/dpotdquicktest/internal/service"
	"github.com/123123123123Sitar/dpotdquicktest/internal/utils"
)

// LeaderboardHandler serves the aggregated student ranking.
type LeaderboardHandler struct {
	service service.LeaderboardService
	logger  zerolog.Logger
}

// NewLeaderboardHandler constructs the handler.
func NewLeaderboardHandler(service service.LeaderboardService, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		logger:  logger.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Register attaches the leaderboard endpoint behind the given middlewares.
func (h *LeaderboardHandler) Register(router fiber.Router, middlewares ...fiber.Handler) {
	router.Get("/leaderboard", withMiddlewares(middlewares, h.list)...)
}

func (h *LeaderboardHandler) list(c *fiber.Ctx) error {
	entries, err := h.service.Leaderboard(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build leaderboard")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load leaderboard")
	}

	return utils.SendSuccess(c, "leaderboard retrieved", entries)
}
