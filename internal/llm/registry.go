package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/capitalize-ai/classroom/internal/config"
)

// Registry maps provider ids to clients.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// NewRegistryFromConfig registers every provider whose API key is set.
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	r := NewRegistry()

	if cfg.OpenAIAPIKey != "" {
		c, err := NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		r.Register(c)
	}
	if cfg.DeepSeekAPIKey != "" {
		c, err := NewDeepSeek(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create deepseek client: %w", err)
		}
		r.Register(c)
	}
	if cfg.DashScopeAPIKey != "" {
		c, err := NewQwen(cfg.DashScopeAPIKey, cfg.DashScopeBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create qwen client: %w", err)
		}
		r.Register(c)
	}
	if cfg.GeminiAPIKey != "" {
		c, err := NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		r.Register(c)
	}
	if cfg.AnthropicAPIKey != "" {
		c, err := NewAnthropicClient(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic client: %w", err)
		}
		r.Register(c)
	}

	return r, nil
}

// Register adds or replaces a client under its Name.
func (r *Registry) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.Name()] = c
}

// Get returns the client for id.
func (r *Registry) Get(id string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Available lists registered provider ids, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
