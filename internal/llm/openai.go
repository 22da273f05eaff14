package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/dkarpov/annotext/internal/model"
)

// OpenAIProvider summarizes reports through the OpenAI Chat Completions
// API.
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates the provider. The API key is required.
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// IsAvailable checks that the API accepts the configured credentials.
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Summarize generates the run summary.
func (p *OpenAIProvider) Summarize(ctx context.Context, report *model.Report) (string, error) {
	llmodel := p.config.Model
	if llmodel == "" {
		llmodel = openai.GPT4oMini
	}
	maxTokens := p.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 600
	}
	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     llmodel,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You summarize annotation pipeline reports faithfully, without adding facts.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(report),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
