package store

import (
	"context"
	"fmt"

	"github.com/capitalize-ai/classroom/internal/model"
)

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	Name         string `db:"name"`
	Role         string `db:"role"`
	CreatedAt    int64  `db:"created_at"`
}

func (r userRow) toModel() *model.User {
	return &model.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: []byte(r.PasswordHash),
		Name:         r.Name,
		Role:         model.UserRole(r.Role),
		CreatedAt:    fromMillis(r.CreatedAt),
	}
}

const userColumns = `id, username, password_hash, name, role, created_at`

// CreateUser inserts a user. A taken username yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, string(u.PasswordHash), u.Name, string(u.Role), toMillis(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	if err := s.get(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// GetUserByUsername returns a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var row userRow
	if err := s.get(ctx, &row, `SELECT `+userColumns+` FROM users WHERE username = ?`, username); err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// ListUsersByRole returns users of a role ordered by name.
func (s *Store) ListUsersByRole(ctx context.Context, role model.UserRole) ([]model.User, error) {
	var rows []userRow
	if err := s.sel(ctx, &rows, `SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY name`, string(role)); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]model.User, len(rows))
	for i, r := range rows {
		users[i] = *r.toModel()
	}
	return users, nil
}

type sessionRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	ExpiresAt int64  `db:"expires_at"`
	CreatedAt int64  `db:"created_at"`
}

// CreateSession inserts a session.
func (s *Store) CreateSession(ctx context.Context, sess *model.Session) error {
	_, err := s.exec(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.UserID, toMillis(sess.ExpiresAt), toMillis(sess.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns a session by id, expired or not.
func (s *Store) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var row sessionRow
	if err := s.get(ctx, &row, `SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &model.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		ExpiresAt: fromMillis(row.ExpiresAt),
		CreatedAt: fromMillis(row.CreatedAt),
	}, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
