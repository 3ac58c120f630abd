package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	// BaseURL overrides the Gemini API endpoint; empty uses the SDK default.
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiGenerator calls the Gemini generateContent API through the Gen AI SDK.
// One SDK client is kept per credential and API version.
type GeminiGenerator struct {
	cfg GeminiConfig

	mu      sync.Mutex
	clients map[geminiClientKey]*genai.Client
}

type geminiClientKey struct {
	credential string
	version    APIVersion
}

// NewGeminiGenerator constructs a generator.
func NewGeminiGenerator(cfg GeminiConfig) *GeminiGenerator {
	return &GeminiGenerator{
		cfg:     cfg,
		clients: make(map[geminiClientKey]*genai.Client),
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return "", fmt.Errorf("gemini api key is required")
	}

	client, err := g.client(ctx, req.Credential, req.Candidate.APIVersion)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: req.Prompt}},
	}}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Config.Temperature),
		TopP:            genai.Ptr(req.Config.TopP),
		MaxOutputTokens: req.Config.MaxOutputTokens,
	}

	resp, err := client.Models.GenerateContent(ctx, req.Candidate.Model, contents, config)
	if err != nil {
		return "", err
	}

	return geminiText(resp), nil
}

func (g *GeminiGenerator) client(ctx context.Context, credential string, version APIVersion) (*genai.Client, error) {
	key := geminiClientKey{credential: credential, version: version}

	g.mu.Lock()
	defer g.mu.Unlock()

	if client, ok := g.clients[key]; ok {
		return client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     credential,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    g.cfg.BaseURL,
			APIVersion: string(version),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	g.clients[key] = client
	return client, nil
}

// geminiText joins the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	builder := strings.Builder{}
	for _, part := range candidate.Content.Parts {
		if part != nil {
			builder.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(builder.String())
}
