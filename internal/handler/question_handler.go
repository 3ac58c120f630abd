package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/123123123123Sitar/dpotdquicktest/internal/dto"
	"github.com/123123123123Sitar/dpotdquicktest/internal/service"
	"github.com/123123123123Sitar/dpotdquicktest/internal/utils"
)

// QuestionHandler manages the per-day Q3 prompt and rubric.
type QuestionHandler struct {
	service service.QuestionService
	logger  zerolog.Logger
}

// NewQuestionHandler constructs the handler.
func NewQuestionHandler(service service.QuestionService, logger zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		service: service,
		logger:  logger.With().Str("component", "question_handler").Logger(),
	}
}

// Register attaches the question endpoints.
func (h *QuestionHandler) Register(router fiber.Router) {
	router.Get("/questions/:day", h.get)
	router.Put("/questions/:day", h.upsert)
}

func (h *QuestionHandler) get(c *fiber.Ctx) error {
	question, err := h.service.Get(c.UserContext(), c.Params("day"))
	if err != nil {
		return h.fail(c, err)
	}

	return utils.SendSuccess(c, "question retrieved", question)
}

func (h *QuestionHandler) upsert(c *fiber.Ctx) error {
	var payload dto.QuestionUpsertRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	question, err := h.service.Upsert(c.UserContext(), c.Params("day"), payload)
	if err != nil {
		return h.fail(c, err)
	}

	return utils.SendSuccess(c, "question saved", question)
}

func (h *QuestionHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidDay), isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("day", c.Params("day")).Msg("question request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to process question")
	}
}
