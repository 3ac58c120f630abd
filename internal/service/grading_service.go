package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/123123123123Sitar/dpotdquicktest/internal/grading"
	"github.com/123123123123Sitar/dpotdquicktest/internal/observability"
	"github.com/123123123123Sitar/dpotdquicktest/pkg/ai"
)

// MinAnswerLength is the shortest trimmed answer, in characters, that is sent for grading.
const MinAnswerLength = 10

var (
	// ErrInvalidSubmission indicates the answer is missing or too short to grade.
	ErrInvalidSubmission = errors.New("Invalid submission: Answer too short or missing")
	// ErrMissingCredential indicates the deployment has no model API key configured.
	ErrMissingCredential = errors.New("Server configuration error: Missing API key")
)

// CredentialSource resolves the model API key for a grading call.
type CredentialSource interface {
	APIKey(ctx context.Context) string
}

// StaticCredential is a CredentialSource backed by a fixed key.
type StaticCredential string

// APIKey returns the configured key.
func (s StaticCredential) APIKey(context.Context) string {
	return strings.TrimSpace(string(s))
}

// CompletionClient calls a generative model with fallback across endpoints.
type CompletionClient interface {
	Call(ctx context.Context, prompt, credential string) (ai.Completion, error)
}

// GradingOutcome is a normalised grade plus the model that produced it.
type GradingOutcome struct {
	grading.Result
	Model string
}

// GradingService grades one free-response answer with the AI pipeline.
type GradingService interface {
	GradeSubmission(ctx context.Context, req grading.Request) (GradingOutcome, error)
}

type gradingService struct {
	prompts     *grading.PromptBuilder
	client      CompletionClient
	credentials CredentialSource
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewGradingService wires the prompt builder, model client and credential source.
func NewGradingService(prompts *grading.PromptBuilder, client CompletionClient, credentials CredentialSource, logger zerolog.Logger) GradingService {
	return &gradingService{
		prompts:     prompts,
		client:      client,
		credentials: credentials,
		logger:      logger.With().Str("component", componentGrading).Logger(),
		tracer:      otel.Tracer("github.com/123123123123Sitar/dpotdquicktest/internal/service/grading"),
	}
}

func (s *gradingService) GradeSubmission(ctx context.Context, req grading.Request) (GradingOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "grading.grade_submission")
	defer span.End()

	if utf8.RuneCountInString(strings.TrimSpace(req.StudentAnswer)) < MinAnswerLength {
		observability.GradingOutcomes().WithLabelValues("invalid").Inc()
		span.SetStatus(codes.Error, "validation_failed")
		return GradingOutcome{}, ErrInvalidSubmission
	}

	credential := ""
	if s.credentials != nil {
		credential = s.credentials.APIKey(ctx)
	}
	if credential == "" {
		observability.GradingOutcomes().WithLabelValues("misconfigured").Inc()
		s.log(ctx).Error().Str("kind", "configuration").Msg("model API key is not configured")
		span.RecordError(ErrMissingCredential)
		span.SetStatus(codes.Error, "missing_credential")
		return GradingOutcome{}, ErrMissingCredential
	}

	prompt := s.prompts.Build(req)

	completion, err := s.client.Call(ctx, prompt, credential)
	if err != nil {
		observability.GradingOutcomes().WithLabelValues("upstream_failed").Inc()
		s.log(ctx).Error().Err(err).Msg("grading backend unavailable")
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream_failed")
		return GradingOutcome{}, err
	}

	result := grading.ParseResponse(completion.Text)
	result.Feedback = grading.WrapDocument(result.Feedback)

	outcome := "graded"
	if result.Heuristic {
		outcome = "heuristic"
		s.log(ctx).Warn().Str("model", completion.Model).Msg("model output was not valid JSON, used heuristic extraction")
	}
	observability.GradingOutcomes().WithLabelValues(outcome).Inc()

	span.SetAttributes(
		attribute.String("grading.model", completion.Model),
		attribute.Int("grading.score", result.Score),
		attribute.String("grading.confidence", string(result.Confidence)),
		attribute.Int("grading.failed_attempts", len(completion.Failures)),
	)

	return GradingOutcome{Result: result, Model: completion.Model}, nil
}
