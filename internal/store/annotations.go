package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/capitalize-ai/classroom/internal/model"
)

type annotationRow struct {
	ID           string         `db:"id"`
	MessageID    string         `db:"message_id"`
	UserID       string         `db:"user_id"`
	SelectedText string         `db:"selected_text"`
	Type         string         `db:"type"`
	Label        sql.NullString `db:"label"`
	Note         sql.NullString `db:"note"`
	StartOffset  sql.NullInt64  `db:"start_offset"`
	EndOffset    sql.NullInt64  `db:"end_offset"`
	IsDeleted    bool           `db:"is_deleted"`
	CreatedAt    int64          `db:"created_at"`
	UpdatedAt    int64          `db:"updated_at"`
}

func (r annotationRow) toModel() model.Annotation {
	return model.Annotation{
		ID:           r.ID,
		MessageID:    r.MessageID,
		UserID:       r.UserID,
		SelectedText: r.SelectedText,
		Type:         model.AnnotationType(r.Type),
		Label:        stringPtr(r.Label),
		Note:         stringPtr(r.Note),
		StartOffset:  intPtr(r.StartOffset),
		EndOffset:    intPtr(r.EndOffset),
		IsDeleted:    r.IsDeleted,
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
}

const annotationColumns = `id, message_id, user_id, selected_text, type, label, note, start_offset, end_offset, is_deleted, created_at, updated_at`

// CreateAnnotation inserts an annotation.
func (s *Store) CreateAnnotation(ctx context.Context, a *model.Annotation) error {
	_, err := s.exec(ctx,
		`INSERT INTO annotations (`+annotationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.MessageID, a.UserID, a.SelectedText, string(a.Type),
		nullString(a.Label), nullString(a.Note), nullInt(a.StartOffset), nullInt(a.EndOffset),
		a.IsDeleted, toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create annotation: %w", err)
	}
	return nil
}

// GetAnnotation returns an annotation by id.
func (s *Store) GetAnnotation(ctx context.Context, id string) (*model.Annotation, error) {
	var row annotationRow
	if err := s.get(ctx, &row, `SELECT `+annotationColumns+` FROM annotations WHERE id = ?`, id); err != nil {
		return nil, err
	}
	a := row.toModel()
	return &a, nil
}

// ListAnnotations returns a message's annotations ordered by start offset.
func (s *Store) ListAnnotations(ctx context.Context, messageID string) ([]model.Annotation, error) {
	var rows []annotationRow
	err := s.sel(ctx, &rows,
		`SELECT `+annotationColumns+` FROM annotations WHERE message_id = ?
		 ORDER BY CASE WHEN start_offset IS NULL THEN 1 ELSE 0 END, start_offset, created_at`,
		messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	out := make([]model.Annotation, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// UpdateAnnotation overwrites label, note, is_deleted and updated_at.
func (s *Store) UpdateAnnotation(ctx context.Context, a *model.Annotation) error {
	return s.execOne(ctx,
		`UPDATE annotations SET label = ?, note = ?, is_deleted = ?, updated_at = ? WHERE id = ?`,
		nullString(a.Label), nullString(a.Note), a.IsDeleted, toMillis(a.UpdatedAt), a.ID,
	)
}

// DeleteAnnotation removes an annotation.
func (s *Store) DeleteAnnotation(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM annotations WHERE id = ?`, id)
}
