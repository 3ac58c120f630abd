package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	attemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dpotd",
		Subsystem: "ai",
		Name:      "attempt_duration_seconds",
		Help:      "Duration of single model generation attempts",
	}, []string{"model", "version"})

	attemptFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dpotd",
		Subsystem: "ai",
		Name:      "attempt_failures_total",
		Help:      "Number of failed model generation attempts",
	}, []string{"model", "version"})
)

const defaultAttemptTimeout = 20 * time.Second

// FallbackConfig configures a FallbackClient.
type FallbackConfig struct {
	Chain          []Candidate
	Generation     GenerationConfig
	AttemptTimeout time.Duration
	Cache          EndpointCache
	Logger         zerolog.Logger
}

// FallbackClient walks an ordered chain of candidates until one produces text.
type FallbackClient struct {
	generator Generator
	cfg       FallbackConfig
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewFallbackClient builds a client over generator. An empty chain defaults to the Gemini chain.
func NewFallbackClient(generator Generator, cfg FallbackConfig) (*FallbackClient, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if len(cfg.Chain) == 0 {
		cfg.Chain = DefaultGeminiChain()
	}
	if cfg.Generation == (GenerationConfig{}) {
		cfg.Generation = DefaultGenerationConfig()
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}

	chain := make([]Candidate, len(cfg.Chain))
	copy(chain, cfg.Chain)
	cfg.Chain = chain

	return &FallbackClient{
		generator: generator,
		cfg:       cfg,
		tracer:    otel.Tracer("github.com/123123123123Sitar/dpotdquicktest/pkg/ai/fallback"),
		logger:    cfg.Logger.With().Str("component", "ai_fallback_client").Logger(),
	}, nil
}

// Chain returns a copy of the configured candidate order.
func (c *FallbackClient) Chain() []Candidate {
	chain := make([]Candidate, len(c.cfg.Chain))
	copy(chain, c.cfg.Chain)
	return chain
}

// Call sends prompt to each candidate in turn and returns the first non-empty completion.
// Each candidate is attempted once. When all fail the error is *AllEndpointsFailedError.
func (c *FallbackClient) Call(ctx context.Context, prompt, credential string) (Completion, error) {
	failures := make([]AttemptFailure, 0)

	for _, candidate := range c.order(ctx) {
		if err := ctx.Err(); err != nil {
			return Completion{}, err
		}

		text, err := c.attempt(ctx, candidate, prompt, credential)
		if err != nil {
			failures = append(failures, AttemptFailure{Candidate: candidate, Message: err.Error()})
			c.logger.Warn().
				Str("model", candidate.Model).
				Str("api_version", string(candidate.APIVersion)).
				Err(err).
				Msg("model candidate failed")
			continue
		}

		c.remember(ctx, candidate)
		return Completion{
			Text:      text,
			Model:     candidate.Model,
			Candidate: candidate,
			Failures:  failures,
		}, nil
	}

	return Completion{}, &AllEndpointsFailedError{Attempts: failures}
}

func (c *FallbackClient) attempt(parent context.Context, candidate Candidate, prompt, credential string) (string, error) {
	ctx, cancel := context.WithTimeout(parent, c.cfg.AttemptTimeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "ai.generate", trace.WithAttributes(
		attribute.String("ai.model", candidate.Model),
		attribute.String("ai.api_version", string(candidate.APIVersion)),
	))
	defer span.End()

	start := time.Now()
	text, err := c.generator.Generate(ctx, GenerateRequest{
		Candidate:  candidate,
		Prompt:     prompt,
		Credential: credential,
		Config:     c.cfg.Generation,
	})
	attemptDuration.WithLabelValues(candidate.Model, string(candidate.APIVersion)).Observe(time.Since(start).Seconds())

	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyCompletion
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
			err = fmt.Errorf("attempt timed out after %s: %w", c.cfg.AttemptTimeout, err)
		}
		attemptFailures.WithLabelValues(candidate.Model, string(candidate.APIVersion)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return strings.TrimSpace(text), nil
}

// order puts the cached candidate first when it belongs to the chain.
func (c *FallbackClient) order(ctx context.Context) []Candidate {
	if c.cfg.Cache == nil {
		return c.cfg.Chain
	}

	cached, ok, err := c.cfg.Cache.Get(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read endpoint cache")
		return c.cfg.Chain
	}
	if !ok || !c.inChain(cached) {
		return c.cfg.Chain
	}

	ordered := make([]Candidate, 0, len(c.cfg.Chain))
	ordered = append(ordered, cached)
	for _, candidate := range c.cfg.Chain {
		if candidate != cached {
			ordered = append(ordered, candidate)
		}
	}
	return ordered
}

func (c *FallbackClient) inChain(candidate Candidate) bool {
	for _, existing := range c.cfg.Chain {
		if existing == candidate {
			return true
		}
	}
	return false
}

func (c *FallbackClient) remember(ctx context.Context, candidate Candidate) {
	if c.cfg.Cache == nil {
		return
	}
	if err := c.cfg.Cache.Set(ctx, candidate); err != nil {
		c.logger.Warn().Err(err).Str("model", candidate.Model).Msg("failed to store endpoint cache")
	}
}
