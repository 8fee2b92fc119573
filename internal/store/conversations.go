package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/capitalize-ai/classroom/internal/model"
)

type conversationRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Title     string `db:"title"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r conversationRow) toModel() *model.Conversation {
	return &model.Conversation{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		CreatedAt: fromMillis(r.CreatedAt),
		UpdatedAt: fromMillis(r.UpdatedAt),
	}
}

type messageRow struct {
	ID             string         `db:"id"`
	ConversationID string         `db:"conversation_id"`
	Role           string         `db:"role"`
	Content        string         `db:"content"`
	AIConfigID     sql.NullString `db:"ai_config_id"`
	Model          sql.NullString `db:"model"`
	LatencyMs      sql.NullInt64  `db:"latency_ms"`
	IsError        bool           `db:"is_error"`
	CreatedAt      int64          `db:"created_at"`
}

func (r messageRow) toModel() model.Message {
	m := model.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Role:           model.Role(r.Role),
		Content:        r.Content,
		AIConfigID:     stringPtr(r.AIConfigID),
		Model:          stringPtr(r.Model),
		IsError:        r.IsError,
		CreatedAt:      fromMillis(r.CreatedAt),
	}
	if r.LatencyMs.Valid {
		ms := r.LatencyMs.Int64
		m.LatencyMs = &ms
	}
	return m
}

const messageColumns = `id, conversation_id, role, content, ai_config_id, model, latency_ms, is_error, created_at`

// CreateConversation inserts a conversation.
func (s *Store) CreateConversation(ctx context.Context, c *model.Conversation) error {
	_, err := s.exec(ctx,
		`INSERT INTO conversations (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Title, toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetConversation returns a conversation without its messages.
func (s *Store) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var row conversationRow
	err := s.get(ctx, &row, `SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// ListConversations returns a user's conversations, most recently updated
// first, each with its last message.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	var rows []conversationRow
	err := s.sel(ctx, &rows,
		`SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE user_id = ? ORDER BY updated_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	convs := make([]model.Conversation, len(rows))
	for i, r := range rows {
		convs[i] = *r.toModel()
		last, err := s.lastMessage(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		convs[i].LastMessage = last
	}
	return convs, nil
}

func (s *Store) lastMessage(ctx context.Context, conversationID string) (*model.Message, error) {
	var row messageRow
	err := s.get(ctx, &row,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		conversationID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last message: %w", err)
	}
	m := row.toModel()
	return &m, nil
}

// TouchConversation bumps updated_at.
func (s *Store) TouchConversation(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, toMillis(at), id)
}

// DeleteConversation removes a conversation and, by cascade, its messages.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM conversations WHERE id = ?`, id)
}

// CreateMessage inserts a message.
func (s *Store) CreateMessage(ctx context.Context, m *model.Message) error {
	var latency sql.NullInt64
	if m.LatencyMs != nil {
		latency = sql.NullInt64{Int64: *m.LatencyMs, Valid: true}
	}
	_, err := s.exec(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, string(m.Role), m.Content,
		nullString(m.AIConfigID), nullString(m.Model), latency, m.IsError, toMillis(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListMessages returns every message of a conversation in chronological order.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	var rows []messageRow
	err := s.sel(ctx, &rows,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ? ORDER BY created_at, id`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return toMessages(rows), nil
}

// RecentMessages returns the last limit messages of a conversation in
// chronological order.
func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	var rows []messageRow
	err := s.sel(ctx, &rows,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return toMessages(rows), nil
}

// AttachAIConfigs fills Message.AIConfig for messages that reference one.
func (s *Store) AttachAIConfigs(ctx context.Context, msgs []model.Message) error {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range msgs {
		if m.AIConfigID != nil && !seen[*m.AIConfigID] {
			seen[*m.AIConfigID] = true
			ids = append(ids, *m.AIConfigID)
		}
	}
	configs, err := s.GetAIConfigsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range msgs {
		if msgs[i].AIConfigID == nil {
			continue
		}
		if c, ok := configs[*msgs[i].AIConfigID]; ok {
			msgs[i].AIConfig = &c
		}
	}
	return nil
}

// ConversationOfMessage returns the conversation a message belongs to.
func (s *Store) ConversationOfMessage(ctx context.Context, messageID string) (*model.Conversation, error) {
	var row conversationRow
	err := s.get(ctx, &row,
		`SELECT c.id, c.user_id, c.title, c.created_at, c.updated_at
		   FROM conversations c JOIN messages m ON m.conversation_id = c.id
		  WHERE m.id = ?`, messageID)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func toMessages(rows []messageRow) []model.Message {
	msgs := make([]model.Message, len(rows))
	for i, r := range rows {
		msgs[i] = r.toModel()
	}
	return msgs
}
