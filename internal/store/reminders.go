package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/capitalize-ai/classroom/internal/model"
)

type reminderRow struct {
	ID        string         `db:"id"`
	TeacherID string         `db:"teacher_id"`
	StudentID string         `db:"student_id"`
	ProjectID sql.NullString `db:"project_id"`
	Message   string         `db:"message"`
	Type      string         `db:"type"`
	SentAt    int64          `db:"sent_at"`
	ReadAt    sql.NullInt64  `db:"read_at"`
}

func (r reminderRow) toModel() model.Reminder {
	return model.Reminder{
		ID:        r.ID,
		TeacherID: r.TeacherID,
		StudentID: r.StudentID,
		ProjectID: stringPtr(r.ProjectID),
		Message:   r.Message,
		Type:      r.Type,
		SentAt:    fromMillis(r.SentAt),
		ReadAt:    timePtr(r.ReadAt),
	}
}

const reminderColumns = `id, teacher_id, student_id, project_id, message, type, sent_at, read_at`

// CreateReminder inserts a reminder.
func (s *Store) CreateReminder(ctx context.Context, r *model.Reminder) error {
	_, err := s.exec(ctx,
		`INSERT INTO reminders (`+reminderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TeacherID, r.StudentID, nullString(r.ProjectID), r.Message, r.Type,
		toMillis(r.SentAt), nullMillis(r.ReadAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

// GetReminder returns a reminder by id.
func (s *Store) GetReminder(ctx context.Context, id string) (*model.Reminder, error) {
	var row reminderRow
	if err := s.get(ctx, &row, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id); err != nil {
		return nil, err
	}
	r := row.toModel()
	return &r, nil
}

// ListUnreadReminders returns a student's unread reminders, newest first.
func (s *Store) ListUnreadReminders(ctx context.Context, studentID string) ([]model.Reminder, error) {
	var rows []reminderRow
	err := s.sel(ctx, &rows,
		`SELECT `+reminderColumns+` FROM reminders WHERE student_id = ? AND read_at IS NULL ORDER BY sent_at DESC, id DESC`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	out := make([]model.Reminder, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// MarkReminderRead sets read_at.
func (s *Store) MarkReminderRead(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, `UPDATE reminders SET read_at = ? WHERE id = ?`, toMillis(at), id)
}
