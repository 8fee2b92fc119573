package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/capitalize-ai/classroom/internal/model"
)

type aiConfigRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Provider     string `db:"provider"`
	Model        string `db:"model"`
	SystemPrompt string `db:"system_prompt"`
	Avatar       string `db:"avatar"`
	Description  string `db:"description"`
	IsActive     bool   `db:"is_active"`
	CreatedAt    int64  `db:"created_at"`
}

func (r aiConfigRow) toModel() model.AIConfig {
	return model.AIConfig{
		ID:           r.ID,
		Name:         r.Name,
		Provider:     r.Provider,
		Model:        r.Model,
		SystemPrompt: r.SystemPrompt,
		Avatar:       r.Avatar,
		Description:  r.Description,
		IsActive:     r.IsActive,
		CreatedAt:    fromMillis(r.CreatedAt),
	}
}

const aiConfigColumns = `id, name, provider, model, system_prompt, avatar, description, is_active, created_at`

// CreateAIConfig inserts an AI config.
func (s *Store) CreateAIConfig(ctx context.Context, c *model.AIConfig) error {
	_, err := s.exec(ctx,
		`INSERT INTO ai_configs (`+aiConfigColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Provider, c.Model, c.SystemPrompt, c.Avatar, c.Description, c.IsActive, toMillis(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create ai config: %w", err)
	}
	return nil
}

// UpdateAIConfig overwrites every mutable column of c.
func (s *Store) UpdateAIConfig(ctx context.Context, c *model.AIConfig) error {
	return s.execOne(ctx,
		`UPDATE ai_configs SET name = ?, provider = ?, model = ?, system_prompt = ?, avatar = ?, description = ?, is_active = ? WHERE id = ?`,
		c.Name, c.Provider, c.Model, c.SystemPrompt, c.Avatar, c.Description, c.IsActive, c.ID,
	)
}

// DeleteAIConfig removes an AI config. Messages keep their content and lose
// the link.
func (s *Store) DeleteAIConfig(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM ai_configs WHERE id = ?`, id)
}

// GetAIConfig returns an AI config by id.
func (s *Store) GetAIConfig(ctx context.Context, id string) (*model.AIConfig, error) {
	var row aiConfigRow
	if err := s.get(ctx, &row, `SELECT `+aiConfigColumns+` FROM ai_configs WHERE id = ?`, id); err != nil {
		return nil, err
	}
	c := row.toModel()
	return &c, nil
}

// GetAIConfigsByIDs returns the configs found among ids, keyed by id.
func (s *Store) GetAIConfigsByIDs(ctx context.Context, ids []string) (map[string]model.AIConfig, error) {
	out := make(map[string]model.AIConfig, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT `+aiConfigColumns+` FROM ai_configs WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []aiConfigRow
	if err := s.sel(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load ai configs: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r.toModel()
	}
	return out, nil
}

// ListAIConfigs returns configs ordered by creation; activeOnly filters out
// disabled ones.
func (s *Store) ListAIConfigs(ctx context.Context, activeOnly bool) ([]model.AIConfig, error) {
	query := `SELECT ` + aiConfigColumns + ` FROM ai_configs`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at, id`

	var rows []aiConfigRow
	if err := s.sel(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list ai configs: %w", err)
	}
	configs := make([]model.AIConfig, len(rows))
	for i, r := range rows {
		configs[i] = r.toModel()
	}
	return configs, nil
}

// FindAIConfig returns the config with the given provider and model.
func (s *Store) FindAIConfig(ctx context.Context, provider, modelName string) (*model.AIConfig, error) {
	var row aiConfigRow
	err := s.get(ctx, &row,
		`SELECT `+aiConfigColumns+` FROM ai_configs WHERE provider = ? AND model = ? ORDER BY created_at LIMIT 1`,
		provider, modelName)
	if err != nil {
		return nil, err
	}
	c := row.toModel()
	return &c, nil
}
