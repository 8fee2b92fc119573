// Package llm provides AI provider adapters and the multi-provider dispatcher.
package llm

import (
	"context"
	"fmt"
)

// Message roles understood by every adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider ids.
const (
	ProviderOpenAI    = "openai"
	ProviderDeepSeek  = "deepseek"
	ProviderQwen      = "qwen"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

const defaultMaxTokens = 4096

// ChatMessage is a normalized, role-tagged chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model     string
	Messages  []ChatMessage
	MaxTokens int
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for AI providers.
type Client interface {
	// Complete sends a completion request and returns the assistant reply.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider id.
	Name() string

	// Models returns the models the provider is known to serve.
	Models() []string
}

// ProviderError is a failure reported by a vendor API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

// Error returns the vendor message as-is so it can be shown to users.
func (e *ProviderError) Error() string {
	return e.Message
}

func newProviderError(provider string, status int, format string, args ...any) *ProviderError {
	return &ProviderError{Provider: provider, StatusCode: status, Message: fmt.Sprintf(format, args...)}
}

// splitSystem pulls system messages out of the list, joining their text.
func splitSystem(messages []ChatMessage) (string, []ChatMessage) {
	var system string
	rest := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

func maxTokens(req *CompletionRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
