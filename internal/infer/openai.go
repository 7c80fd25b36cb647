package infer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/verinews/relayer/internal/model"
)

// OpenAIProvider implements the Provider interface for OpenAI-compatible
// endpoints. Used in deployments that bypass the platform broker and pay
// the inference bill directly.
type OpenAIProvider struct {
	client    *openai.Client
	modelName string
	timeout   time.Duration
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, baseURL, modelName string, timeout time.Duration) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientConfig),
		modelName: modelName,
		timeout:   timeout,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Generate sends a prompt through the Chat Completions API
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: p.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.2, // Scoring prompts want deterministic, parseable output
	})
	if err != nil {
		return "", &model.BrokerError{Err: fmt.Errorf("openai api: %w", err)}
	}

	if len(resp.Choices) == 0 {
		return "", &model.BrokerError{Err: fmt.Errorf("no choices in response")}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
