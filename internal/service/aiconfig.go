package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/classroom/internal/llm"
	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/store"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

// KnownProviders are the provider ids an AI config may reference.
var KnownProviders = []string{
	llm.ProviderAnthropic,
	llm.ProviderDeepSeek,
	llm.ProviderGemini,
	llm.ProviderOpenAI,
	llm.ProviderQwen,
}

// DefaultAIConfigs are created by Seed when missing.
var DefaultAIConfigs = []model.CreateAIConfigRequest{
	{Name: "Gemini", Provider: llm.ProviderGemini, Model: "gemini-2.0-flash", Avatar: "🔷", Description: "Google Gemini"},
	{Name: "GPT-4", Provider: llm.ProviderOpenAI, Model: "gpt-4", Avatar: "🟢", Description: "OpenAI GPT-4"},
	{Name: "Qwen", Provider: llm.ProviderQwen, Model: "qwen-max", Avatar: "🟣", Description: "Alibaba Qwen"},
	{Name: "DeepSeek", Provider: llm.ProviderDeepSeek, Model: "deepseek-chat", Avatar: "🔵", Description: "DeepSeek Chat"},
	{Name: "Claude", Provider: llm.ProviderAnthropic, Model: "claude-3-5-sonnet-20241022", Avatar: "🟠", Description: "Anthropic Claude"},
}

// ProviderLister reports the providers that have credentials configured.
type ProviderLister interface {
	Available() []string
}

// AIConfigService manages the selectable AIs.
type AIConfigService struct {
	store     *store.Store
	providers ProviderLister
	logger    *logger.Logger
	now       func() time.Time
}

// NewAIConfigService creates a new AI config service.
func NewAIConfigService(s *store.Store, providers ProviderLister, log *logger.Logger) *AIConfigService {
	return &AIConfigService{store: s, providers: providers, logger: log, now: time.Now}
}

// ListActive returns the configs users can pick.
func (s *AIConfigService) ListActive(ctx context.Context) ([]model.AIConfig, error) {
	return s.store.ListAIConfigs(ctx, true)
}

// Providers returns the configured provider ids.
func (s *AIConfigService) Providers() []string {
	return s.providers.Available()
}

// Create adds an AI config.
func (s *AIConfigService) Create(ctx context.Context, req *model.CreateAIConfigRequest) (*model.AIConfig, error) {
	if strings.TrimSpace(req.Name) == "" || req.Provider == "" || req.Model == "" {
		return nil, invalid("name, provider and model are required")
	}
	if !isKnownProvider(req.Provider) {
		return nil, invalid("unknown provider %q", req.Provider)
	}

	cfg := &model.AIConfig{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Name:         strings.TrimSpace(req.Name),
		Provider:     req.Provider,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		Avatar:       req.Avatar,
		Description:  req.Description,
		IsActive:     true,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateAIConfig(ctx, cfg); err != nil {
		return nil, err
	}
	s.logger.Info("ai config created", zap.String("ai_config_id", cfg.ID), zap.String("provider", cfg.Provider))
	return cfg, nil
}

// Update applies the non-nil fields of req.
func (s *AIConfigService) Update(ctx context.Context, id string, req *model.UpdateAIConfigRequest) (*model.AIConfig, error) {
	cfg, err := s.store.GetAIConfig(ctx, id)
	if err != nil {
		return nil, lookup(err, "ai config")
	}

	if req.Name != nil {
		cfg.Name = *req.Name
	}
	if req.Provider != nil {
		if !isKnownProvider(*req.Provider) {
			return nil, invalid("unknown provider %q", *req.Provider)
		}
		cfg.Provider = *req.Provider
	}
	if req.Model != nil {
		cfg.Model = *req.Model
	}
	if req.SystemPrompt != nil {
		cfg.SystemPrompt = *req.SystemPrompt
	}
	if req.Avatar != nil {
		cfg.Avatar = *req.Avatar
	}
	if req.Description != nil {
		cfg.Description = *req.Description
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}

	if err := s.store.UpdateAIConfig(ctx, cfg); err != nil {
		return nil, lookup(err, "ai config")
	}
	return cfg, nil
}

// Delete removes an AI config.
func (s *AIConfigService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteAIConfig(ctx, id); err != nil {
		return lookup(err, "ai config")
	}
	return nil
}

// Seed creates the default configs missing by provider and model. It returns
// the number created.
func (s *AIConfigService) Seed(ctx context.Context) (int, error) {
	created := 0
	for _, def := range DefaultAIConfigs {
		_, err := s.store.FindAIConfig(ctx, def.Provider, def.Model)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return created, err
		}
		req := def
		if _, err := s.Create(ctx, &req); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func isKnownProvider(id string) bool {
	for _, p := range KnownProviders {
		if p == id {
			return true
		}
	}
	return false
}
