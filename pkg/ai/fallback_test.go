package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	mu        sync.Mutex
	responses map[Candidate]scriptedResponse
	calls     []GenerateRequest
}

type scriptedResponse struct {
	text  string
	err   error
	delay time.Duration
}

func (g *scriptedGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	response, ok := g.responses[req.Candidate]
	g.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("%s is not available", req.Candidate.Model)
	}
	if response.delay > 0 {
		select {
		case <-time.After(response.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return response.text, response.err
}

func (g *scriptedGenerator) attempted() []Candidate {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Candidate, 0, len(g.calls))
	for _, call := range g.calls {
		out = append(out, call.Candidate)
	}
	return out
}

func testChain(n int) []Candidate {
	chain := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		chain = append(chain, Candidate{APIVersion: APIVersionV1Beta, Model: fmt.Sprintf("model-%d", i+1)})
	}
	return chain
}

func TestFallbackClientStopsAtFirstSuccess(t *testing.T) {
	chain := testChain(5)
	generator := &scriptedGenerator{responses: map[Candidate]scriptedResponse{
		chain[0]: {err: errors.New("quota exceeded")},
		chain[1]: {text: "   "},
		chain[2]: {text: `{"score":7}`},
		chain[3]: {text: "never reached"},
	}}

	client, err := NewFallbackClient(generator, FallbackConfig{Chain: chain, Logger: zerolog.Nop()})
	require.NoError(t, err)

	completion, err := client.Call(context.Background(), "prompt", "key")
	require.NoError(t, err)
	require.Equal(t, `{"score":7}`, completion.Text)
	require.Equal(t, "model-3", completion.Model)
	require.Equal(t, chain[2], completion.Candidate)
	require.Len(t, completion.Failures, 2)
	require.Equal(t, "quota exceeded", completion.Failures[0].Message)
	require.Equal(t, ErrEmptyCompletion.Error(), completion.Failures[1].Message)
	require.Equal(t, chain[:3], generator.attempted())
}

func TestFallbackClientSendsPromptAndGenerationConfig(t *testing.T) {
	chain := testChain(1)
	generator := &scriptedGenerator{responses: map[Candidate]scriptedResponse{chain[0]: {text: "ok"}}}

	client, err := NewFallbackClient(generator, FallbackConfig{Chain: chain, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = client.Call(context.Background(), "grade this", "secret")
	require.NoError(t, err)
	require.Len(t, generator.calls, 1)

	call := generator.calls[0]
	require.Equal(t, "grade this", call.Prompt)
	require.Equal(t, "secret", call.Credential)
	require.Equal(t, DefaultGenerationConfig(), call.Config)
}

func TestFallbackClientAggregatesEveryFailure(t *testing.T) {
	chain := testChain(3)
	generator := &scriptedGenerator{responses: map[Candidate]scriptedResponse{
		chain[0]: {err: errors.New("boom one")},
		chain[1]: {err: errors.New("boom two")},
		chain[2]: {err: errors.New("boom three")},
	}}

	client, err := NewFallbackClient(generator, FallbackConfig{Chain: chain, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = client.Call(context.Background(), "prompt", "key")
	require.Error(t, err)

	var exhausted *AllEndpointsFailedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, []string{"boom one", "boom two", "boom three"}, exhausted.Messages())
	require.Contains(t, err.Error(), "model-1 (v1beta): boom one")
	require.Contains(t, err.Error(), "model-3 (v1beta): boom three")
	require.Len(t, generator.attempted(), 3)
}

func TestFallbackClientTimesOutSlowCandidate(t *testing.T) {
	chain := testChain(2)
	generator := &scriptedGenerator{responses: map[Candidate]scriptedResponse{
		chain[0]: {text: "too late", delay: time.Second},
		chain[1]: {text: "fast"},
	}}

	client, err := NewFallbackClient(generator, FallbackConfig{
		Chain:          chain,
		AttemptTimeout: 20 * time.Millisecond,
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)

	completion, err := client.Call(context.Background(), "prompt", "key")
	require.NoError(t, err)
	require.Equal(t, "fast", completion.Text)
	require.Len(t, completion.Failures, 1)
	require.Contains(t, completion.Failures[0].Message, "timed out")
}

func TestFallbackClientTriesCachedCandidateFirst(t *testing.T) {
	chain := testChain(4)
	generator := &scriptedGenerator{responses: map[Candidate]scriptedResponse{
		chain[2]: {err: errors.New("gone")},
		chain[3]: {text: "fourth"},
	}}
	cache := NewMemoryEndpointCache()
	require.NoError(t, cache.Set(context.Background(), chain[2]))

	client, err := NewFallbackClient(generator, FallbackConfig{Chain: chain, Cache: cache, Logger: zerolog.Nop()})
	require.NoError(t, err)

	completion, err := client.Call(context.Background(), "prompt", "key")
	require.NoError(t, err)
	require.Equal(t, "fourth", completion.Text)
	require.Equal(t, []Candidate{chain[2], chain[0], chain[1], chain[3]}, generator.attempted())

	cached, ok, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, chain[3], cached)
}

func TestFallbackClientIgnoresCachedCandidateOutsideChain(t *testing.T) {
	chain := testChain(2)
	generator := &scriptedGenerator{responses: map[Candidate]scriptedResponse{chain[0]: {text: "first"}}}
	cache := NewMemoryEndpointCache()
	require.NoError(t, cache.Set(context.Background(), Candidate{APIVersion: APIVersionV1, Model: "retired"}))

	client, err := NewFallbackClient(generator, FallbackConfig{Chain: chain, Cache: cache, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = client.Call(context.Background(), "prompt", "key")
	require.NoError(t, err)
	require.Equal(t, []Candidate{chain[0]}, generator.attempted())
}

func TestFallbackClientStopsWhenCallerCancels(t *testing.T) {
	chain := testChain(3)
	generator := &scriptedGenerator{responses: map[Candidate]scriptedResponse{}}

	client, err := NewFallbackClient(generator, FallbackConfig{Chain: chain, Logger: zerolog.Nop()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Call(ctx, "prompt", "key")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, generator.attempted())
}

func TestDefaultGeminiChainMirrorsVersions(t *testing.T) {
	chain := DefaultGeminiChain()
	require.Len(t, chain, 16)
	require.Equal(t, Candidate{APIVersion: APIVersionV1Beta, Model: "gemini-2.5-flash"}, chain[0])
	require.Equal(t, Candidate{APIVersion: APIVersionV1Beta, Model: "gemini-pro"}, chain[7])
	require.Equal(t, Candidate{APIVersion: APIVersionV1, Model: "gemini-2.5-flash"}, chain[8])
	require.Equal(t, Candidate{APIVersion: APIVersionV1, Model: "gemini-pro"}, chain[15])
}

func TestNewFallbackClientRequiresGenerator(t *testing.T) {
	_, err := NewFallbackClient(nil, FallbackConfig{})
	require.Error(t, err)
}
