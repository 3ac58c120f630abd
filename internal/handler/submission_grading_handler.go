package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/123123123123Sitar/dpotdquicktest/internal/dto"
	"github.com/123123123123Sitar/dpotdquicktest/internal/service"
	"github.com/123123123123Sitar/dpotdquicktest/internal/utils"
	"github.com/123123123123Sitar/dpotdquicktest/pkg/ai"
)

// SubmissionGradingHandler exposes the grading workflow to admins and graders.
type SubmissionGradingHandler struct {
	service service.SubmissionGradingService
	logger  zerolog.Logger
}

// NewSubmissionGradingHandler constructs the handler.
func NewSubmissionGradingHandler(service service.SubmissionGradingService, logger zerolog.Logger) *SubmissionGradingHandler {
	return &SubmissionGradingHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_grading_handler").Logger(),
	}
}

// RegisterAdmin attaches the admin workflow endpoints.
func (h *SubmissionGradingHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/submissions/ai-grade", h.bulkAIGrade)
	router.Post("/submissions/assign", h.autoAssign)
	router.Post("/submissions/:id/ai-grade", h.aiGrade)
	router.Patch("/submissions/:id/grade", h.humanGrade)
	router.Get("/grading/stats", h.stats)
}

// RegisterGrader attaches the endpoints available to graders.
func (h *SubmissionGradingHandler) RegisterGrader(router fiber.Router) {
	router.Get("/queue", h.queue)
	router.Patch("/submissions/:id/grade", h.humanGrade)
}

func (h *SubmissionGradingHandler) aiGrade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.AIGrade(c.UserContext(), id, gradingActorFromContext(c))
	if err != nil {
		return h.fail(c, err, id, "failed to AI grade submission")
	}

	return utils.SendSuccess(c, "submission graded by AI", submission)
}

func (h *SubmissionGradingHandler) bulkAIGrade(c *fiber.Ctx) error {
	result, err := h.service.BulkAIGrade(c.UserContext(), gradingActorFromContext(c))
	if err != nil {
		return h.fail(c, err, 0, "failed to AI grade submissions")
	}

	return utils.SendSuccess(c, "bulk AI grading finished", result)
}

func (h *SubmissionGradingHandler) autoAssign(c *fiber.Ctx) error {
	var payload dto.AutoAssignRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.AutoAssign(c.UserContext(), payload)
	if err != nil {
		return h.fail(c, err, 0, "failed to assign submissions")
	}

	return utils.SendSuccess(c, "submissions assigned", result)
}

func (h *SubmissionGradingHandler) humanGrade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.HumanGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.service.HumanGrade(c.UserContext(), id, payload, gradingActorFromContext(c))
	if err != nil {
		return h.fail(c, err, id, "failed to grade submission")
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *SubmissionGradingHandler) queue(c *fiber.Ctx) error {
	actor := gradingActorFromContext(c)
	if actor.ID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "grader identity missing")
	}

	items, err := h.service.GraderQueue(c.UserContext(), actor.ID)
	if err != nil {
		return h.fail(c, err, 0, "failed to load grading queue")
	}

	return utils.SendSuccess(c, "grading queue retrieved", items)
}

func (h *SubmissionGradingHandler) stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return h.fail(c, err, 0, "failed to load grading stats")
	}

	return utils.SendSuccess(c, "grading stats retrieved", stats)
}

func (h *SubmissionGradingHandler) fail(c *fiber.Ctx, err error, submissionID uint, fallback string) error {
	var exhausted *ai.AllEndpointsFailedError
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrGradingInProgress),
		errors.Is(err, service.ErrGradingConflict):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotAssignedGrader):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNoGraders),
		errors.Is(err, service.ErrFeedbackRequired),
		isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidSubmission):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &exhausted):
		return utils.SendError(c, fiber.StatusBadGateway, exhausted.Error())
	case errors.Is(err, service.ErrMissingCredential):
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Uint("submission_id", submissionID).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
