package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/123123123123Sitar/dpotdquicktest/internal/grading"
	"github.com/123123123123Sitar/dpotdquicktest/pkg/ai"
)

type stubCompletionClient struct {
	completion ai.Completion
	err        error
	calls      int
	prompt     string
	credential string
}

func (s *stubCompletionClient) Call(_ context.Context, prompt, credential string) (ai.Completion, error) {
	s.calls++
	s.prompt = prompt
	s.credential = credential
	return s.completion, s.err
}

type failingGenerator struct {
	calls int
}

func (g *failingGenerator) Generate(_ context.Context, req ai.GenerateRequest) (string, error) {
	g.calls++
	return "", fmt.Errorf("%s unavailable", req.Candidate.Model)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestGradingService(t *testing.T, client CompletionClient, credential string) GradingService {
	t.Helper()
	builder, err := grading.NewPromptBuilder(grading.PersonaFormal)
	require.NoError(t, err)
	return NewGradingService(builder, client, StaticCredential(credential), testLogger())
}

func TestGradeSubmissionRejectsShortAnswers(t *testing.T) {
	client := &stubCompletionClient{}
	svc := newTestGradingService(t, client, "key")

	for _, answer := range []string{"", "   ", "too short", "  123456789  ", "ñññññññññ"} {
		_, err := svc.GradeSubmission(context.Background(), grading.Request{StudentAnswer: answer})
		require.ErrorIs(t, err, ErrInvalidSubmission, answer)
	}
	require.Zero(t, client.calls)
}

func TestGradeSubmissionRequiresCredential(t *testing.T) {
	client := &stubCompletionClient{}
	svc := newTestGradingService(t, client, "  ")

	_, err := svc.GradeSubmission(context.Background(), grading.Request{StudentAnswer: "a sufficiently long proof"})
	require.ErrorIs(t, err, ErrMissingCredential)
	require.Equal(t, "Server configuration error: Missing API key", err.Error())
	require.Zero(t, client.calls)
}

func TestGradeSubmissionNormalisesAndWrapsFeedback(t *testing.T) {
	client := &stubCompletionClient{completion: ai.Completion{
		Text:  "```json\n{\"score\": 11, \"feedback\": \"Good use of $n^2$\", \"confidence\": \"high\", \"rubricBreakdown\": {\"Logic\": 4}}\n```",
		Model: "gemini-2.5-flash",
	}}
	svc := newTestGradingService(t, client, "key")

	outcome, err := svc.GradeSubmission(context.Background(), grading.Request{
		QuestionText:  "Prove that n^2 is even when n is even.",
		StudentAnswer: "Let n = 2k, then n^2 = 4k^2 = 2(2k^2).",
	})
	require.NoError(t, err)
	require.Equal(t, 1, client.calls)
	require.Equal(t, "key", client.credential)
	require.Contains(t, client.prompt, "Let n = 2k, then n^2 = 4k^2 = 2(2k^2).")
	require.Contains(t, client.prompt, grading.DefaultRubricText)

	require.Equal(t, 10, outcome.Score)
	require.Equal(t, grading.ConfidenceHigh, outcome.Confidence)
	require.Equal(t, "gemini-2.5-flash", outcome.Model)
	require.Equal(t, map[string]float64{"Logic": 4}, outcome.RubricBreakdown)
	require.True(t, strings.HasPrefix(outcome.Feedback, "\\documentclass{article}"))
	require.Contains(t, outcome.Feedback, "Good use of $n^2$")
}

func TestGradeSubmissionKeepsExistingDocument(t *testing.T) {
	document := "\\documentclass{article}\\begin{document}Fine\\end{document}"
	client := &stubCompletionClient{completion: ai.Completion{
		Text:  fmt.Sprintf(`{"score": 6, "feedback": %q}`, document),
		Model: "gemini-pro",
	}}
	svc := newTestGradingService(t, client, "key")

	outcome, err := svc.GradeSubmission(context.Background(), grading.Request{StudentAnswer: "a sufficiently long proof"})
	require.NoError(t, err)
	require.Equal(t, document, outcome.Feedback)
	require.Equal(t, grading.ConfidenceMedium, outcome.Confidence)
}

func TestGradeSubmissionPropagatesExhaustion(t *testing.T) {
	generator := &failingGenerator{}
	chain := ai.MirrorChain([]string{"m1", "m2", "m3"}, ai.APIVersionV1Beta)
	client, err := ai.NewFallbackClient(generator, ai.FallbackConfig{Chain: chain, Logger: testLogger()})
	require.NoError(t, err)

	svc := newTestGradingService(t, client, "key")
	_, err = svc.GradeSubmission(context.Background(), grading.Request{StudentAnswer: "a sufficiently long proof"})
	require.Error(t, err)

	var exhausted *ai.AllEndpointsFailedError
	require.True(t, errors.As(err, &exhausted))
	require.Equal(t, []string{"m1 unavailable", "m2 unavailable", "m3 unavailable"}, exhausted.Messages())
	for _, message := range exhausted.Messages() {
		require.Contains(t, err.Error(), message)
	}
	require.Equal(t, 3, generator.calls)
}

func TestGradeSubmissionLogsThroughRequestLogger(t *testing.T) {
	prompts, err := grading.NewPromptBuilder("")
	require.NoError(t, err)

	var base, request bytes.Buffer
	svc := NewGradingService(prompts, &stubCompletionClient{}, StaticCredential(""), zerolog.New(&base))

	requestLogger := zerolog.New(&request).With().Str("correlation_id", "corr-123").Logger()
	ctx := requestLogger.WithContext(context.Background())

	_, err = svc.GradeSubmission(ctx, grading.Request{StudentAnswer: "A sufficiently long answer."})
	require.ErrorIs(t, err, ErrMissingCredential)

	require.Empty(t, base.String())
	require.Contains(t, request.String(), `"correlation_id":"corr-123"`)
	require.Contains(t, request.String(), `"component":"grading_service"`)
	require.Contains(t, request.String(), "model API key is not configured")
}

func TestGradeSubmissionFallsBackToServiceLogger(t *testing.T) {
	prompts, err := grading.NewPromptBuilder("")
	require.NoError(t, err)

	var base bytes.Buffer
	svc := NewGradingService(prompts, &stubCompletionClient{}, StaticCredential(""), zerolog.New(&base))

	_, err = svc.GradeSubmission(context.Background(), grading.Request{StudentAnswer: "A sufficiently long answer."})
	require.ErrorIs(t, err, ErrMissingCredential)
	require.Contains(t, base.String(), `"component":"grading_service"`)
}
