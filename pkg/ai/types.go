package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// APIVersion names the API namespace a model is addressed under.
type APIVersion string

const (
	APIVersionV1     APIVersion = "v1"
	APIVersionV1Beta APIVersion = "v1beta"
)

// Candidate is one entry of a fallback chain.
type Candidate struct {
	APIVersion APIVersion `json:"api_version"`
	Model      string     `json:"model"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s (%s)", c.Model, c.APIVersion)
}

// GenerationConfig holds the sampling parameters sent with every request.
type GenerationConfig struct {
	Temperature     float32
	TopP            float32
	MaxOutputTokens int32
}

// DefaultGenerationConfig is tuned for short, stable grading output.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.3,
		TopP:            0.8,
		MaxOutputTokens: 1024,
	}
}

// GenerateRequest is a single-turn text generation call against one candidate.
type GenerateRequest struct {
	Candidate  Candidate
	Prompt     string
	Credential string
	Config     GenerationConfig
}

// Generator performs one text generation call. Implementations must not retry.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// ErrEmptyCompletion indicates the provider answered without any generated text.
var ErrEmptyCompletion = errors.New("empty response from model")

// AttemptFailure records why a single candidate failed.
type AttemptFailure struct {
	Candidate Candidate `json:"candidate"`
	Message   string    `json:"message"`
}

// AllEndpointsFailedError is returned when every candidate of the chain failed.
type AllEndpointsFailedError struct {
	Attempts []AttemptFailure
}

func (e *AllEndpointsFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all model endpoints failed: no candidates configured"
	}

	parts := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", attempt.Candidate, attempt.Message))
	}
	return "all model endpoints failed: " + strings.Join(parts, "; ")
}

// Messages returns the individual failure messages in attempt order.
func (e *AllEndpointsFailedError) Messages() []string {
	messages := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		messages = append(messages, attempt.Message)
	}
	return messages
}

// Completion is the successful outcome of a fallback call.
type Completion struct {
	Text      string
	Model     string
	Candidate Candidate
	Failures  []AttemptFailure
}
