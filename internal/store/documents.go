package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/classroom/internal/model"
)

// Notes and drafts share one shape: a single document per (user, conversation).

type documentRow struct {
	ID             string `db:"id"`
	UserID         string `db:"user_id"`
	ConversationID string `db:"conversation_id"`
	Content        string `db:"content"`
	CreatedAt      int64  `db:"created_at"`
	UpdatedAt      int64  `db:"updated_at"`
}

const documentColumns = `id, user_id, conversation_id, content, created_at, updated_at`

// getOrCreateDocument returns the document of table, inserting an empty one
// when missing.
func (s *Store) getOrCreateDocument(ctx context.Context, table, userID, conversationID string) (*documentRow, error) {
	var row documentRow
	query := `SELECT ` + documentColumns + ` FROM ` + table + ` WHERE user_id = ? AND conversation_id = ?`
	err := s.get(ctx, &row, query, userID, conversationID)
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to load %s: %w", table, err)
	}

	now := toMillis(time.Now())
	_, err = s.exec(ctx,
		`INSERT INTO `+table+` (`+documentColumns+`) VALUES (?, ?, ?, '', ?, ?)`,
		uuid.Must(uuid.NewV7()).String(), userID, conversationID, now, now,
	)
	if err != nil && !errors.Is(err, ErrConflict) {
		return nil, fmt.Errorf("failed to create %s: %w", table, err)
	}
	if err := s.get(ctx, &row, query, userID, conversationID); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", table, err)
	}
	return &row, nil
}

// putDocument upserts the content of a document.
func (s *Store) putDocument(ctx context.Context, table, userID, conversationID, content string, at time.Time) (*documentRow, error) {
	ms := toMillis(at)
	_, err := s.exec(ctx,
		`INSERT INTO `+table+` (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, conversation_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		uuid.Must(uuid.NewV7()).String(), userID, conversationID, content, ms, ms,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", table, err)
	}
	var row documentRow
	err = s.get(ctx, &row,
		`SELECT `+documentColumns+` FROM `+table+` WHERE user_id = ? AND conversation_id = ?`,
		userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", table, err)
	}
	return &row, nil
}

func (r documentRow) toNote() *model.Note {
	return &model.Note{
		ID:             r.ID,
		UserID:         r.UserID,
		ConversationID: r.ConversationID,
		Content:        r.Content,
		CreatedAt:      fromMillis(r.CreatedAt),
		UpdatedAt:      fromMillis(r.UpdatedAt),
	}
}

func (r documentRow) toDraft() *model.Draft {
	return &model.Draft{
		ID:             r.ID,
		UserID:         r.UserID,
		ConversationID: r.ConversationID,
		Content:        r.Content,
		CreatedAt:      fromMillis(r.CreatedAt),
		UpdatedAt:      fromMillis(r.UpdatedAt),
	}
}

// GetOrCreateNote returns the user's note for a conversation.
func (s *Store) GetOrCreateNote(ctx context.Context, userID, conversationID string) (*model.Note, error) {
	row, err := s.getOrCreateDocument(ctx, "notes", userID, conversationID)
	if err != nil {
		return nil, err
	}
	return row.toNote(), nil
}

// PutNote replaces the note content.
func (s *Store) PutNote(ctx context.Context, userID, conversationID, content string, at time.Time) (*model.Note, error) {
	row, err := s.putDocument(ctx, "notes", userID, conversationID, content, at)
	if err != nil {
		return nil, err
	}
	return row.toNote(), nil
}

// GetOrCreateDraft returns the user's draft for a conversation.
func (s *Store) GetOrCreateDraft(ctx context.Context, userID, conversationID string) (*model.Draft, error) {
	row, err := s.getOrCreateDocument(ctx, "drafts", userID, conversationID)
	if err != nil {
		return nil, err
	}
	return row.toDraft(), nil
}

// PutDraft replaces the draft content.
func (s *Store) PutDraft(ctx context.Context, userID, conversationID, content string, at time.Time) (*model.Draft, error) {
	row, err := s.putDocument(ctx, "drafts", userID, conversationID, content, at)
	if err != nil {
		return nil, err
	}
	return row.toDraft(), nil
}

type snapshotRow struct {
	ID             string `db:"id"`
	UserID         string `db:"user_id"`
	ConversationID string `db:"conversation_id"`
	RoundNumber    int    `db:"round_number"`
	Content        string `db:"content"`
	CreatedAt      int64  `db:"created_at"`
}

func (r snapshotRow) toModel() model.DraftSnapshot {
	return model.DraftSnapshot{
		ID:             r.ID,
		UserID:         r.UserID,
		ConversationID: r.ConversationID,
		RoundNumber:    r.RoundNumber,
		Content:        r.Content,
		CreatedAt:      fromMillis(r.CreatedAt),
	}
}

// CreateSnapshot stores content as the next round of the draft history.
func (s *Store) CreateSnapshot(ctx context.Context, userID, conversationID, content string, at time.Time) (*model.DraftSnapshot, error) {
	var last sql.NullInt64
	err := s.get(ctx, &last,
		`SELECT MAX(round_number) FROM draft_snapshots WHERE user_id = ? AND conversation_id = ?`,
		userID, conversationID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to load last round: %w", err)
	}

	snap := snapshotRow{
		ID:             uuid.Must(uuid.NewV7()).String(),
		UserID:         userID,
		ConversationID: conversationID,
		RoundNumber:    int(last.Int64) + 1,
		Content:        content,
		CreatedAt:      toMillis(at),
	}
	_, err = s.exec(ctx,
		`INSERT INTO draft_snapshots (id, user_id, conversation_id, round_number, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.UserID, snap.ConversationID, snap.RoundNumber, snap.Content, snap.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	m := snap.toModel()
	return &m, nil
}

// ListSnapshots returns a draft's history, oldest round first.
func (s *Store) ListSnapshots(ctx context.Context, userID, conversationID string) ([]model.DraftSnapshot, error) {
	var rows []snapshotRow
	err := s.sel(ctx, &rows,
		`SELECT id, user_id, conversation_id, round_number, content, created_at FROM draft_snapshots
		 WHERE user_id = ? AND conversation_id = ? ORDER BY round_number`,
		userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	out := make([]model.DraftSnapshot, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
