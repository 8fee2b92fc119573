package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/classroom/internal/config"
)

func TestOpenAICompatibleComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "deepseek-chat",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6}
		}`))
	}))
	defer srv.Close()

	c, err := NewDeepSeek("sk-test", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, ProviderDeepSeek, c.Name())

	resp, err := c.Complete(context.Background(), &CompletionRequest{Messages: history})
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, "deepseek-chat", resp.Model)
	assert.Equal(t, 5, resp.TokensIn)
	assert.Equal(t, 1, resp.TokensOut)
	assert.Equal(t, "deepseek-chat", body["model"])
}

func TestOpenAICompatibleAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit_error"}}`))
	}))
	defer srv.Close()

	c, err := NewQwen("sk-test", srv.URL)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), &CompletionRequest{Messages: history})

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ProviderQwen, perr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	assert.Equal(t, "rate limited", perr.Error())
}

func TestFoldSystem(t *testing.T) {
	got := foldSystem("rules", []ChatMessage{{Role: RoleUser, Content: "q"}, {Role: RoleAssistant, Content: "a"}})
	assert.Equal(t, []ChatMessage{{Role: RoleUser, Content: "rules\n\nq"}, {Role: RoleAssistant, Content: "a"}}, got)

	got = foldSystem("rules", []ChatMessage{{Role: RoleAssistant, Content: "a"}})
	assert.Equal(t, []ChatMessage{{Role: RoleUser, Content: "rules"}, {Role: RoleAssistant, Content: "a"}}, got)
}

func TestRegistryFromConfig(t *testing.T) {
	r, err := NewRegistryFromConfig(&config.Config{
		OpenAIAPIKey:    "a",
		GeminiAPIKey:    "b",
		DeepSeekAPIKey:  "c",
		DeepSeekBaseURL: "http://localhost",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"deepseek", "gemini", "openai"}, r.Available())
	_, ok := r.Get("qwen")
	assert.False(t, ok)
}
