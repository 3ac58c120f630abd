package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig defines configuration options for OpenAI-compatible providers.
type OpenAIConfig struct {
	// BaseURL points at any OpenAI-compatible endpoint; empty uses api.openai.com.
	BaseURL string
}

// OpenAIGenerator implements Generator against the chat completion API.
// Candidate API versions are ignored; the base URL decides the namespace.
type OpenAIGenerator struct {
	cfg OpenAIConfig

	mu      sync.Mutex
	clients map[string]*openai.Client
}

// NewOpenAIGenerator builds a new generator using the provided configuration.
func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	return &OpenAIGenerator{
		cfg:     cfg,
		clients: make(map[string]*openai.Client),
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return "", fmt.Errorf("openai api key is required")
	}

	request := openai.ChatCompletionRequest{
		Model:       req.Candidate.Model,
		MaxTokens:   int(req.Config.MaxOutputTokens),
		Temperature: req.Config.Temperature,
		TopP:        req.Config.TopP,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
	}

	resp, err := g.client(req.Credential).CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from openai")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *OpenAIGenerator) client(credential string) *openai.Client {
	g.mu.Lock()
	defer g.mu.Unlock()

	if client, ok := g.clients[credential]; ok {
		return client
	}

	config := openai.DefaultConfig(credential)
	if g.cfg.BaseURL != "" {
		config.BaseURL = g.cfg.BaseURL
	}
	client := openai.NewClientWithConfig(config)
	g.clients[credential] = client
	return client
}
