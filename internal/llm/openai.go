package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAI-compatible provider.
type OpenAIConfig struct {
	Name         string
	APIKey       string
	BaseURL      string
	DefaultModel string
	Models       []string
	HTTPClient   *http.Client
}

// OpenAIClient talks to any OpenAI-compatible chat completions API. OpenAI,
// DeepSeek and Qwen (DashScope compatible mode) all use it.
type OpenAIClient struct {
	client *openai.Client
	name   string
	model  string
	models []string
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.Name == "" {
		return nil, errors.New("provider name is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New(cfg.Name + " API key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	models := cfg.Models
	if len(models) == 0 && cfg.DefaultModel != "" {
		models = []string{cfg.DefaultModel}
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		name:   cfg.Name,
		model:  cfg.DefaultModel,
		models: models,
	}, nil
}

// NewOpenAI returns the api.openai.com provider.
func NewOpenAI(apiKey, baseURL string) (*OpenAIClient, error) {
	return NewOpenAIClient(OpenAIConfig{
		Name:         ProviderOpenAI,
		APIKey:       apiKey,
		BaseURL:      baseURL,
		DefaultModel: "gpt-4",
		Models:       []string{"gpt-4", "gpt-4o", "gpt-4o-mini", "gpt-3.5-turbo"},
	})
}

// NewDeepSeek returns the DeepSeek provider.
func NewDeepSeek(apiKey, baseURL string) (*OpenAIClient, error) {
	return NewOpenAIClient(OpenAIConfig{
		Name:         ProviderDeepSeek,
		APIKey:       apiKey,
		BaseURL:      baseURL,
		DefaultModel: "deepseek-chat",
		Models:       []string{"deepseek-chat", "deepseek-reasoner"},
	})
}

// NewQwen returns the Qwen provider served by DashScope.
func NewQwen(apiKey, baseURL string) (*OpenAIClient, error) {
	return NewOpenAIClient(OpenAIConfig{
		Name:         ProviderQwen,
		APIKey:       apiKey,
		BaseURL:      baseURL,
		DefaultModel: "qwen-max",
		Models:       []string{"qwen-max", "qwen-plus", "qwen-turbo"},
	})
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Models returns available models.
func (c *OpenAIClient) Models() []string {
	return c.models
}

// Complete sends a completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens(req),
	})
	if err != nil {
		return nil, c.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, newProviderError(c.name, 0, "%s returned no choices", c.name)
	}

	return &CompletionResponse{
		Content:    resp.Choices[0].Message.Content,
		Model:      resp.Model,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: string(resp.Choices[0].FinishReason),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func (c *OpenAIClient) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: c.name, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{Provider: c.name, StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return err
}
