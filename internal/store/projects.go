package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/capitalize-ai/classroom/internal/model"
)

type templateRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Tasks       string `db:"tasks"`
	CreatedBy   string `db:"created_by"`
	IsActive    bool   `db:"is_active"`
	CreatedAt   int64  `db:"created_at"`
}

func (r templateRow) toModel() (model.TaskTemplate, error) {
	t := model.TaskTemplate{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedBy:   r.CreatedBy,
		IsActive:    r.IsActive,
		CreatedAt:   fromMillis(r.CreatedAt),
	}
	if err := json.Unmarshal([]byte(r.Tasks), &t.Tasks); err != nil {
		return t, fmt.Errorf("failed to decode tasks of template %s: %w", r.ID, err)
	}
	return t, nil
}

const templateColumns = `id, name, description, tasks, created_by, is_active, created_at`

// CreateTemplate inserts a task template.
func (s *Store) CreateTemplate(ctx context.Context, t *model.TaskTemplate) error {
	tasks, err := json.Marshal(t.Tasks)
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO task_templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, string(tasks), t.CreatedBy, t.IsActive, toMillis(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetTemplate returns a template by id.
func (s *Store) GetTemplate(ctx context.Context, id string) (*model.TaskTemplate, error) {
	var row templateRow
	if err := s.get(ctx, &row, `SELECT `+templateColumns+` FROM task_templates WHERE id = ?`, id); err != nil {
		return nil, err
	}
	t, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTemplates returns templates, newest first; activeOnly filters out
// retired ones.
func (s *Store) ListTemplates(ctx context.Context, activeOnly bool) ([]model.TaskTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM task_templates`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var rows []templateRow
	if err := s.sel(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	out := make([]model.TaskTemplate, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// FindTemplate returns the template named name created by createdBy.
func (s *Store) FindTemplate(ctx context.Context, name, createdBy string) (*model.TaskTemplate, error) {
	var row templateRow
	err := s.get(ctx, &row,
		`SELECT `+templateColumns+` FROM task_templates WHERE name = ? AND created_by = ? ORDER BY created_at, id LIMIT 1`,
		name, createdBy)
	if err != nil {
		return nil, err
	}
	t, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type projectRow struct {
	ID             string         `db:"id"`
	UserID         string         `db:"user_id"`
	TemplateID     string         `db:"template_id"`
	Title          string         `db:"title"`
	ConversationID sql.NullString `db:"conversation_id"`
	CurrentPhase   int            `db:"current_phase"`
	CurrentTask    int            `db:"current_task"`
	Status         string         `db:"status"`
	CreatedAt      int64          `db:"created_at"`
	UpdatedAt      int64          `db:"updated_at"`
}

func (r projectRow) toModel() model.Project {
	return model.Project{
		ID:             r.ID,
		UserID:         r.UserID,
		TemplateID:     r.TemplateID,
		Title:          r.Title,
		ConversationID: stringPtr(r.ConversationID),
		CurrentPhase:   r.CurrentPhase,
		CurrentTask:    r.CurrentTask,
		Status:         model.ProjectStatus(r.Status),
		CreatedAt:      fromMillis(r.CreatedAt),
		UpdatedAt:      fromMillis(r.UpdatedAt),
	}
}

const projectColumns = `id, user_id, template_id, title, conversation_id, current_phase, current_task, status, created_at, updated_at`

// CreateProject inserts a project together with its progress rows in one
// transaction.
func (s *Store) CreateProject(ctx context.Context, p *model.Project, progress []model.TaskProgress) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.UserID, p.TemplateID, p.Title, nullString(p.ConversationID),
		p.CurrentPhase, p.CurrentTask, string(p.Status), toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	for _, tp := range progress {
		if err := insertProgress(ctx, tx, &tp); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project: %w", err)
	}
	return nil
}

// GetProject returns a project without relations.
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var row projectRow
	if err := s.get(ctx, &row, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id); err != nil {
		return nil, err
	}
	p := row.toModel()
	return &p, nil
}

// ListProjectsByUser returns a user's projects, newest first.
func (s *Store) ListProjectsByUser(ctx context.Context, userID string) ([]model.Project, error) {
	return s.listProjects(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = ? ORDER BY updated_at DESC, id DESC`, userID)
}

// ListProjects returns every project, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	return s.listProjects(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY updated_at DESC, id DESC`)
}

func (s *Store) listProjects(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	var rows []projectRow
	if err := s.sel(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	out := make([]model.Project, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// UpdateProjectPosition stores the current task, phase and status.
func (s *Store) UpdateProjectPosition(ctx context.Context, p *model.Project) error {
	return s.execOne(ctx,
		`UPDATE projects SET current_phase = ?, current_task = ?, status = ?, updated_at = ? WHERE id = ?`,
		p.CurrentPhase, p.CurrentTask, string(p.Status), toMillis(p.UpdatedAt), p.ID,
	)
}

// TouchProject bumps updated_at.
func (s *Store) TouchProject(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, toMillis(at), id)
}

// LoadProjectRelations fills Template, Progress and User of each project.
func (s *Store) LoadProjectRelations(ctx context.Context, projects []model.Project) error {
	if len(projects) == 0 {
		return nil
	}

	templates := make(map[string]*model.TaskTemplate)
	users := make(map[string]*model.UserSummary)
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}

	progress, err := s.progressFor(ctx, ids)
	if err != nil {
		return err
	}

	for i := range projects {
		p := &projects[i]

		t, ok := templates[p.TemplateID]
		if !ok {
			t, err = s.GetTemplate(ctx, p.TemplateID)
			if err != nil {
				return fmt.Errorf("failed to load template of project %s: %w", p.ID, err)
			}
			templates[p.TemplateID] = t
		}
		p.Template = t

		u, ok := users[p.UserID]
		if !ok {
			user, err := s.GetUser(ctx, p.UserID)
			if err != nil {
				return fmt.Errorf("failed to load owner of project %s: %w", p.ID, err)
			}
			u = &model.UserSummary{ID: user.ID, Name: user.Name, Username: user.Username}
			users[p.UserID] = u
		}
		p.User = u

		p.Progress = progress[p.ID]
		if p.Progress == nil {
			p.Progress = []model.TaskProgress{}
		}
	}
	return nil
}

type progressRow struct {
	ID             string        `db:"id"`
	ProjectID      string        `db:"project_id"`
	TaskIndex      int           `db:"task_index"`
	Status         string        `db:"status"`
	StudentContent string        `db:"student_content"`
	AIContent      string        `db:"ai_content"`
	AIRatio        float64       `db:"ai_ratio"`
	StartedAt      sql.NullInt64 `db:"started_at"`
	CompletedAt    sql.NullInt64 `db:"completed_at"`
	LastActiveAt   int64         `db:"last_active_at"`
}

func (r progressRow) toModel() model.TaskProgress {
	return model.TaskProgress{
		ID:             r.ID,
		ProjectID:      r.ProjectID,
		TaskIndex:      r.TaskIndex,
		Status:         model.TaskStatus(r.Status),
		StudentContent: r.StudentContent,
		AIContent:      r.AIContent,
		AIRatio:        r.AIRatio,
		StartedAt:      timePtr(r.StartedAt),
		CompletedAt:    timePtr(r.CompletedAt),
		LastActiveAt:   fromMillis(r.LastActiveAt),
	}
}

const progressColumns = `id, project_id, task_index, status, student_content, ai_content, ai_ratio, started_at, completed_at, last_active_at`

func insertProgress(ctx context.Context, tx *sqlx.Tx, p *model.TaskProgress) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO task_progress (`+progressColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.ProjectID, p.TaskIndex, string(p.Status), p.StudentContent, p.AIContent, p.AIRatio,
		nullMillis(p.StartedAt), nullMillis(p.CompletedAt), toMillis(p.LastActiveAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create progress %d: %w", p.TaskIndex, err)
	}
	return nil
}

func (s *Store) progressFor(ctx context.Context, projectIDs []string) (map[string][]model.TaskProgress, error) {
	query, args, err := sqlx.In(
		`SELECT `+progressColumns+` FROM task_progress WHERE project_id IN (?) ORDER BY project_id, task_index`,
		projectIDs)
	if err != nil {
		return nil, err
	}
	var rows []progressRow
	if err := s.sel(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	out := make(map[string][]model.TaskProgress, len(projectIDs))
	for _, r := range rows {
		out[r.ProjectID] = append(out[r.ProjectID], r.toModel())
	}
	return out, nil
}

// GetProgress returns the progress row of (projectID, taskIndex).
func (s *Store) GetProgress(ctx context.Context, projectID string, taskIndex int) (*model.TaskProgress, error) {
	var row progressRow
	err := s.get(ctx, &row,
		`SELECT `+progressColumns+` FROM task_progress WHERE project_id = ? AND task_index = ?`,
		projectID, taskIndex)
	if err != nil {
		return nil, err
	}
	p := row.toModel()
	return &p, nil
}

// UpsertProgress inserts or replaces the row keyed by (project, taskIndex).
// The existing id and started_at are kept on conflict.
func (s *Store) UpsertProgress(ctx context.Context, p *model.TaskProgress) error {
	_, err := s.exec(ctx,
		`INSERT INTO task_progress (`+progressColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project_id, task_index) DO UPDATE SET
		   status = excluded.status,
		   student_content = excluded.student_content,
		   ai_content = excluded.ai_content,
		   ai_ratio = excluded.ai_ratio,
		   started_at = COALESCE(task_progress.started_at, excluded.started_at),
		   completed_at = excluded.completed_at,
		   last_active_at = excluded.last_active_at`,
		p.ID, p.ProjectID, p.TaskIndex, string(p.Status), p.StudentContent, p.AIContent, p.AIRatio,
		nullMillis(p.StartedAt), nullMillis(p.CompletedAt), toMillis(p.LastActiveAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// StartTask moves a PENDING task to IN_PROGRESS. It reports whether a row
// changed.
func (s *Store) StartTask(ctx context.Context, projectID string, taskIndex int, at time.Time) (bool, error) {
	ms := toMillis(at)
	res, err := s.exec(ctx,
		`UPDATE task_progress SET status = ?, started_at = ?, last_active_at = ?
		 WHERE project_id = ? AND task_index = ? AND status = ?`,
		string(model.TaskInProgress), ms, ms, projectID, taskIndex, string(model.TaskPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to start task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountProjects returns the number of projects, optionally filtered by status.
func (s *Store) CountProjects(ctx context.Context, status *model.ProjectStatus) (int, error) {
	var n int
	var err error
	if status == nil {
		err = s.get(ctx, &n, `SELECT COUNT(*) FROM projects`)
	} else {
		err = s.get(ctx, &n, `SELECT COUNT(*) FROM projects WHERE status = ?`, string(*status))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}
