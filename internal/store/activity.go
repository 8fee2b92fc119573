package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/capitalize-ai/classroom/internal/model"
)

type activityRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Action    string `db:"action"`
	Details   string `db:"details"`
	CreatedAt int64  `db:"created_at"`
}

// CreateActivityLog inserts an activity log entry.
func (s *Store) CreateActivityLog(ctx context.Context, l *model.ActivityLog) error {
	details := string(l.Details)
	if details == "" {
		details = "{}"
	}
	_, err := s.exec(ctx,
		`INSERT INTO activity_logs (id, user_id, action, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.Action, details, toMillis(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create activity log: %w", err)
	}
	return nil
}

// ListActivityLogs returns a user's most recent entries, newest first.
func (s *Store) ListActivityLogs(ctx context.Context, userID string, limit int) ([]model.ActivityLog, error) {
	var rows []activityRow
	err := s.sel(ctx, &rows,
		`SELECT id, user_id, action, details, created_at FROM activity_logs WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}
	out := make([]model.ActivityLog, len(rows))
	for i, r := range rows {
		out[i] = model.ActivityLog{
			ID:        r.ID,
			UserID:    r.UserID,
			Action:    r.Action,
			Details:   json.RawMessage(r.Details),
			CreatedAt: fromMillis(r.CreatedAt),
		}
	}
	return out, nil
}

// CountActivityByAction groups every log entry by action, most frequent first.
func (s *Store) CountActivityByAction(ctx context.Context) ([]model.ActionCount, error) {
	var rows []struct {
		Action string `db:"action"`
		Count  int    `db:"count"`
	}
	err := s.sel(ctx, &rows,
		`SELECT action, COUNT(*) AS count FROM activity_logs GROUP BY action ORDER BY count DESC, action`)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity: %w", err)
	}
	out := make([]model.ActionCount, len(rows))
	for i, r := range rows {
		out[i] = model.ActionCount{Action: r.Action, Count: r.Count}
	}
	return out, nil
}
