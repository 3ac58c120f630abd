package handler

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/123123123123Sitar/dpotdquicktest/internal/dto"
	"github.com/123123123123Sitar/dpotdquicktest/internal/grading"
	"github.com/123123123123Sitar/dpotdquicktest/internal/service"
	"github.com/123123123123Sitar/dpotdquicktest/pkg/ai"
)

// GradeHandler serves the stateless AI grading endpoint used by the quiz client.
// Its bodies are flat ({success, ...}) rather than wrapped in the API envelope.
type GradeHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradeHandler constructs the handler.
func NewGradeHandler(service service.GradingService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_handler").Logger(),
	}
}

// Register attaches the endpoint. Every method is routed here so unsupported
// ones receive a JSON 405.
func (h *GradeHandler) Register(router fiber.Router, middlewares ...fiber.Handler) {
	router.All("/grade-submission", withMiddlewares(middlewares, h.handle)...)
}

func (h *GradeHandler) handle(c *fiber.Ctx) error {
	switch c.Method() {
	case fiber.MethodOptions:
		c.Status(fiber.StatusOK)
		return nil
	case fiber.MethodPost:
		return h.grade(c)
	default:
		return gradeError(c, fiber.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *GradeHandler) grade(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	var payload dto.GradeSubmissionRequest
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return gradeError(c, fiber.StatusBadRequest, service.ErrInvalidSubmission.Error())
	}

	answer := ""
	if payload.Q3Answer != nil {
		answer = *payload.Q3Answer
	}

	outcome, err := h.service.GradeSubmission(c.UserContext(), grading.Request{
		QuestionText:  decodeQuestionText(payload.QuestionText),
		StudentAnswer: answer,
		RubricTables:  decodeRubricTables(payload.Rubric),
	})
	if err != nil {
		var exhausted *ai.AllEndpointsFailedError
		switch {
		case errors.Is(err, service.ErrInvalidSubmission):
			return gradeError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrMissingCredential):
			return gradeError(c, fiber.StatusInternalServerError, err.Error())
		case errors.As(err, &exhausted):
			return gradeError(c, fiber.StatusInternalServerError, exhausted.Error())
		default:
			logger.Error().Err(err).Msg("grading failed")
			return gradeError(c, fiber.StatusInternalServerError, "Grading failed")
		}
	}

	breakdown := outcome.RubricBreakdown
	if breakdown == nil {
		breakdown = map[string]float64{}
	}

	return c.Status(fiber.StatusOK).JSON(dto.GradeSubmissionResponse{
		Success:         true,
		Score:           outcome.Score,
		Feedback:        outcome.Feedback,
		Confidence:      string(outcome.Confidence),
		RubricBreakdown: breakdown,
		Model:           outcome.Model,
	})
}

// decodeRubricTables accepts either a list of tables or a single table. Anything
// else yields no tables and the default rubric is used.
func decodeRubricTables(raw json.RawMessage) []grading.RubricTable {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var tables []grading.RubricTable
	if err := json.Unmarshal(trimmed, &tables); err == nil {
		return tables
	}

	var single grading.RubricTable
	if err := json.Unmarshal(trimmed, &single); err == nil && (len(single.Columns) > 0 || len(single.Rows) > 0) {
		return []grading.RubricTable{single}
	}

	return nil
}

// decodeQuestionText returns the question when it is a JSON string. Any other
// value yields "" so the default question is used.
func decodeQuestionText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return ""
	}
	return text
}

func gradeError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.GradeErrorResponse{Success: false, Error: message})
}
