package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"github.com/menuscan/menu-layout-service/internal/models"
)

// Provider sends one prompt to a language model and returns its text answer
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewProvider creates the provider selected by cfg.DefaultProvider.
// "none" (or empty) returns a nil provider and no error.
func NewProvider(ctx context.Context, cfg models.AIConfig) (Provider, error) {
	switch strings.ToLower(cfg.DefaultProvider) {
	case "", "none":
		return nil, nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai provider selected but no API key configured")
		}
		return NewOpenAIProvider(cfg.OpenAI), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini provider selected but no API key configured")
		}
		return NewGeminiProvider(ctx, cfg.Gemini)
	case "ollama":
		return NewOllamaProvider(cfg.Ollama), nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", cfg.DefaultProvider)
	}
}

// OpenAIProvider talks to the OpenAI chat completions API
type OpenAIProvider struct {
	client *openai.Client
	model  string
	name   string
}

// NewOpenAIProvider creates an OpenAI provider
func NewOpenAIProvider(cfg models.OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		name:   "openai",
	}
}

// NewOllamaProvider creates a provider for a local Ollama server through its
// OpenAI-compatible endpoint
func NewOllamaProvider(cfg models.OllamaConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig("ollama")
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/v1"
	model := cfg.Model
	if model == "" {
		model = "llama3"
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		name:   "ollama",
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

// Complete sends the prompt as a single user message
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", ErrProviderUnavailable, p.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// GeminiProvider talks to Google Gemini
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini provider
func NewGeminiProvider(ctx context.Context, cfg models.GeminiConfig) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Complete asks for a JSON answer and concatenates the text parts of all candidates
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	m := p.client.GenerativeModel(p.model)
	m.SetTemperature(0.1)
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %w", ErrProviderUnavailable, err)
	}

	var sb strings.Builder
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: gemini returned no text", ErrProviderUnavailable)
	}
	return sb.String(), nil
}

// Close releases the underlying client
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}
