package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/classroom/internal/llm"
	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/store"
	"github.com/capitalize-ai/classroom/pkg/logger"
	"github.com/capitalize-ai/classroom/pkg/metrics"
)

// HistoryWindow is the number of most recent messages sent as context.
const HistoryWindow = 20

// Dispatcher fans calls out to AI providers. *llm.Dispatcher implements it.
type Dispatcher interface {
	DispatchCalls(ctx context.Context, calls []llm.Call) []llm.Result
}

// ConversationService handles conversations and multi-AI turns.
type ConversationService struct {
	store      *store.Store
	dispatcher Dispatcher
	activity   *ActivityRecorder
	logger     *logger.Logger
	now        func() time.Time
}

// NewConversationService creates a new conversation service.
func NewConversationService(s *store.Store, dispatcher Dispatcher, activity *ActivityRecorder, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store:      s,
		dispatcher: dispatcher,
		activity:   activity,
		logger:     log,
		now:        time.Now,
	}
}

// Create creates a new conversation.
func (s *ConversationService) Create(ctx context.Context, userID string, req *model.CreateConversationRequest) (*model.Conversation, error) {
	now := s.now()

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New conversation " + now.Format("2006-01-02 15:04")
	}

	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", userID),
	)
	return conv, nil
}

// List returns the user's conversations, most recently updated first.
func (s *ConversationService) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	return s.store.ListConversations(ctx, userID)
}

// Get returns a conversation with its messages and their AI configs.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.AttachAIConfigs(ctx, msgs); err != nil {
		return nil, err
	}
	conv.Messages = msgs
	return conv, nil
}

// Delete removes a conversation and its messages.
func (s *ConversationService) Delete(ctx context.Context, userID, conversationID string) error {
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := s.store.DeleteConversation(ctx, conversationID); err != nil {
		return lookup(err, "conversation")
	}
	return nil
}

// SendMessage runs one turn: the user message is stored before any provider
// is called, every selected AI answers concurrently, and one assistant
// message is stored per AI, failures included.
func (s *ConversationService) SendMessage(ctx context.Context, userID, conversationID string, req *model.SendMessageRequest) (*model.SendMessageResponse, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, invalid("message content is required")
	}
	if len(req.AIConfigIDs) == 0 {
		return nil, invalid("select at least one AI")
	}

	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	configs, err := s.resolveConfigs(ctx, req.AIConfigIDs)
	if err != nil {
		return nil, err
	}

	// A client disconnect must not abandon a turn half way.
	ctx = context.WithoutCancel(ctx)

	userMsg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        req.Content,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateMessage(ctx, userMsg); err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser), "success").Inc()

	history, err := s.store.RecentMessages(ctx, conv.ID, HistoryWindow)
	if err != nil {
		return nil, err
	}

	results := s.dispatcher.DispatchCalls(ctx, buildCalls(configs, history))

	assistant := make([]model.Message, 0, len(results))
	for i, res := range results {
		cfg := configs[i]
		msg := assistantMessage(conv.ID, &cfg, res, s.now())
		if err := s.store.CreateMessage(ctx, &msg); err != nil {
			return nil, err
		}
		msg.AIConfig = &cfg
		assistant = append(assistant, msg)

		outcome := "success"
		if msg.IsError {
			outcome = "error"
		}
		metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant), outcome).Inc()
	}

	if err := s.store.TouchConversation(ctx, conv.ID, s.now()); err != nil {
		return nil, lookup(err, "conversation")
	}

	s.activity.Record(ctx, userID, model.ActionSendMessage, map[string]any{
		"conversationId": conv.ID,
		"aiConfigIds":    req.AIConfigIDs,
	})

	return &model.SendMessageResponse{UserMessage: userMsg, AssistantMessages: assistant}, nil
}

// resolveConfigs keeps the active configs among ids, in input order. A
// repeated id yields a repeated config.
func (s *ConversationService) resolveConfigs(ctx context.Context, ids []string) ([]model.AIConfig, error) {
	found, err := s.store.GetAIConfigsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	configs := make([]model.AIConfig, 0, len(ids))
	for _, id := range ids {
		cfg, ok := found[id]
		if !ok || !cfg.IsActive {
			s.logger.Debug("skipping unavailable ai config", zap.String("ai_config_id", id))
			continue
		}
		configs = append(configs, cfg)
	}
	if len(configs) == 0 {
		return nil, invalid("none of the selected AIs are available")
	}
	return configs, nil
}

func (s *ConversationService) owned(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, lookup(err, "conversation")
	}
	// Foreign conversations are reported as missing.
	if conv.UserID != userID {
		return nil, notFound("conversation")
	}
	return conv, nil
}

// buildCalls pairs each config with the shared history, prefixed by the
// config's system prompt.
func buildCalls(configs []model.AIConfig, history []model.Message) []llm.Call {
	base := make([]llm.ChatMessage, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == model.RoleAssistant {
			role = llm.RoleAssistant
		}
		base = append(base, llm.ChatMessage{Role: role, Content: m.Content})
	}

	calls := make([]llm.Call, len(configs))
	for i, cfg := range configs {
		msgs := base
		if cfg.SystemPrompt != "" {
			msgs = make([]llm.ChatMessage, 0, len(base)+1)
			msgs = append(msgs, llm.ChatMessage{Role: llm.RoleSystem, Content: cfg.SystemPrompt})
			msgs = append(msgs, base...)
		}
		calls[i] = llm.Call{ProviderID: cfg.Provider, Model: cfg.Model, Messages: msgs}
	}
	return calls
}

func assistantMessage(conversationID string, cfg *model.AIConfig, res llm.Result, at time.Time) model.Message {
	latency := res.LatencyMs
	msg := model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Role:           model.RoleAssistant,
		AIConfigID:     &cfg.ID,
		LatencyMs:      &latency,
		CreatedAt:      at,
	}

	if res.Failed() {
		msg.Content = model.ErrorMarker + res.Error
		msg.IsError = true
		return msg
	}

	msg.Content = res.Response
	modelName := res.Model
	if modelName == "" {
		modelName = cfg.Model
	}
	msg.Model = &modelName
	return msg
}
