package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/classroom/internal/activity"
	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/store"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

// DefaultTemplateName names the template seeded when none exists.
const DefaultTemplateName = "Interactive narrative design"

const defaultTemplateDescription = "A complete interactive narrative design workflow covering concept, worldbuilding, characters, plot, interaction and dialogue."

// DefaultTemplateTasks are the stages of the default template.
var DefaultTemplateTasks = []model.TaskDefinition{
	{Phase: 1, Name: "Core concept", Description: "Story theme, core conflict, emotional tone", SoftPrompts: []string{"Think the core concept through on your own first, then use AI to expand on it"}, SuggestedAICount: 2},
	{Phase: 1, Name: "Worldbuilding", Description: "World rules, history, visual style", SoftPrompts: []string{"Let several AIs generate world elements separately, then integrate them yourself"}, SuggestedAICount: 2},
	{Phase: 2, Name: "Character system", Description: "Protagonist, supporting cast, relationship map", SoftPrompts: []string{"Character personality and motivation need your own deep thinking"}, SuggestedAICount: 2},
	{Phase: 2, Name: "Plot lines", Description: "Main line, side lines, branching nodes", SoftPrompts: []string{"Use AI to compare different plot directions"}, SuggestedAICount: 3},
	{Phase: 2, Name: "Interaction nodes", Description: "Player choices and consequence branches", SoftPrompts: []string{"Focus on meaningful choices and distinct consequences"}, SuggestedAICount: 2},
	{Phase: 2, Name: "Dialogue design", Description: "Key dialogue, branching dialogue, emotional expression", SoftPrompts: []string{"Own the dialogue style yourself; AI can draft alternatives"}, SuggestedAICount: 2},
	{Phase: 3, Name: "Integration & iteration", Description: "Flowchart, consistency check, polish", SoftPrompts: []string{"Check every part for consistency and completeness"}, SuggestedAICount: 1},
}

// ProjectService runs students through task templates.
type ProjectService struct {
	store    *store.Store
	activity *ActivityRecorder
	logger   *logger.Logger
	now      func() time.Time
}

// NewProjectService creates a new project service.
func NewProjectService(s *store.Store, activity *ActivityRecorder, log *logger.Logger) *ProjectService {
	return &ProjectService{store: s, activity: activity, logger: log, now: time.Now}
}

// List returns the user's projects with template and progress.
func (s *ProjectService) List(ctx context.Context, userID string) ([]model.Project, error) {
	projects, err := s.store.ListProjectsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.LoadProjectRelations(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Create starts a project: the first task is in progress, the rest pending.
func (s *ProjectService) Create(ctx context.Context, userID string, req *model.CreateProjectRequest) (*model.Project, error) {
	if req.TemplateID == "" || strings.TrimSpace(req.Title) == "" {
		return nil, invalid("templateId and title are required")
	}

	tmpl, err := s.store.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, lookup(err, "template")
	}
	if len(tmpl.Tasks) == 0 {
		return nil, invalid("template has no tasks")
	}

	if req.ConversationID != nil && *req.ConversationID != "" {
		conv, err := s.store.GetConversation(ctx, *req.ConversationID)
		if err != nil {
			return nil, lookup(err, "conversation")
		}
		if conv.UserID != userID {
			return nil, notFound("conversation")
		}
	} else {
		req.ConversationID = nil
	}

	now := s.now()
	p := &model.Project{
		ID:             uuid.Must(uuid.NewV7()).String(),
		UserID:         userID,
		TemplateID:     tmpl.ID,
		Title:          strings.TrimSpace(req.Title),
		ConversationID: req.ConversationID,
		CurrentPhase:   tmpl.Tasks[0].Phase,
		CurrentTask:    0,
		Status:         model.ProjectInProgress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	progress := make([]model.TaskProgress, len(tmpl.Tasks))
	for i := range tmpl.Tasks {
		tp := model.TaskProgress{
			ID:           uuid.Must(uuid.NewV7()).String(),
			ProjectID:    p.ID,
			TaskIndex:    i,
			Status:       model.TaskPending,
			LastActiveAt: now,
		}
		if i == 0 {
			started := now
			tp.Status = model.TaskInProgress
			tp.StartedAt = &started
		}
		progress[i] = tp
	}

	if err := s.store.CreateProject(ctx, p, progress); err != nil {
		return nil, err
	}
	p.Template = tmpl
	p.Progress = progress

	s.activity.Record(ctx, userID, model.ActionTaskStart, map[string]any{
		"projectId": p.ID,
		"taskIndex": 0,
	})
	s.logger.Info("project created",
		zap.String("project_id", p.ID),
		zap.String("user_id", userID),
		zap.String("template_id", tmpl.ID),
	)
	return p, nil
}

// Get returns a project with relations. Only its owner and teachers may read it.
func (s *ProjectService) Get(ctx context.Context, user *model.User, projectID string) (*model.Project, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, lookup(err, "project")
	}
	if p.UserID != user.ID && user.Role != model.UserRoleTeacher {
		return nil, forbidden("project belongs to another user")
	}

	projects := []model.Project{*p}
	if err := s.store.LoadProjectRelations(ctx, projects); err != nil {
		return nil, err
	}
	return &projects[0], nil
}

// UpdateProgress stores the student's work on a task and recomputes its AI
// ratio. Completing a task starts the next pending one and moves the project
// forward; completing the last task completes the project.
func (s *ProjectService) UpdateProgress(ctx context.Context, userID, projectID string, taskIndex int, req *model.UpdateProgressRequest) (*model.TaskProgress, error) {
	switch req.Status {
	case "", model.TaskPending, model.TaskInProgress, model.TaskCompleted:
	default:
		return nil, invalid("invalid status %q", req.Status)
	}

	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, lookup(err, "project")
	}
	if p.UserID != userID {
		return nil, forbidden("project belongs to another user")
	}

	tmpl, err := s.store.GetTemplate(ctx, p.TemplateID)
	if err != nil {
		return nil, lookup(err, "template")
	}
	if taskIndex < 0 || taskIndex >= len(tmpl.Tasks) {
		return nil, invalid("task index %d out of range", taskIndex)
	}

	now := s.now()
	tp := &model.TaskProgress{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ProjectID:      projectID,
		TaskIndex:      taskIndex,
		Status:         model.TaskInProgress,
		StudentContent: req.StudentContent,
		AIContent:      req.AIContent,
		AIRatio:        activity.TaskAIRatio(req.StudentContent, req.AIContent),
		LastActiveAt:   now,
	}

	existing, err := s.store.GetProgress(ctx, projectID, taskIndex)
	switch {
	case err == nil:
		tp.ID = existing.ID
		tp.Status = existing.Status
		tp.StartedAt = existing.StartedAt
		tp.CompletedAt = existing.CompletedAt
	case errors.Is(err, store.ErrNotFound):
		tp.StartedAt = &now
	default:
		return nil, lookup(err, "progress")
	}

	if req.Status != "" {
		tp.Status = req.Status
	}
	switch tp.Status {
	case model.TaskInProgress:
		if tp.StartedAt == nil {
			tp.StartedAt = &now
		}
		tp.CompletedAt = nil
	case model.TaskCompleted:
		if req.Status == model.TaskCompleted {
			tp.CompletedAt = &now
		}
		if tp.StartedAt == nil {
			tp.StartedAt = &now
		}
	case model.TaskPending:
		tp.CompletedAt = nil
	}

	if err := s.store.UpsertProgress(ctx, tp); err != nil {
		return nil, err
	}

	if req.Status != model.TaskCompleted {
		if err := s.store.TouchProject(ctx, projectID, now); err != nil {
			return nil, lookup(err, "project")
		}
		return tp, nil
	}

	s.activity.Record(ctx, userID, model.ActionTaskComplete, map[string]any{
		"projectId": projectID,
		"taskIndex": taskIndex,
		"aiRatio":   tp.AIRatio,
	})

	if err := s.advance(ctx, userID, p, tmpl, taskIndex, now); err != nil {
		return nil, err
	}
	return tp, nil
}

// advance moves the project past a completed task. The position only moves
// forward; re-completing an earlier task or any task of a finished project
// just bumps updated_at.
func (s *ProjectService) advance(ctx context.Context, userID string, p *model.Project, tmpl *model.TaskTemplate, completed int, now time.Time) error {
	next := completed + 1
	p.UpdatedAt = now

	if p.Status == model.ProjectCompleted || completed < p.CurrentTask {
		if err := s.store.TouchProject(ctx, p.ID, now); err != nil {
			return lookup(err, "project")
		}
		return nil
	}

	if next >= len(tmpl.Tasks) {
		p.Status = model.ProjectCompleted
		p.CurrentTask = len(tmpl.Tasks) - 1
		p.CurrentPhase = tmpl.Tasks[p.CurrentTask].Phase
		if err := s.store.UpdateProjectPosition(ctx, p); err != nil {
			return lookup(err, "project")
		}
		s.logger.Info("project completed", zap.String("project_id", p.ID))
		return nil
	}

	started, err := s.store.StartTask(ctx, p.ID, next, now)
	if err != nil {
		return err
	}
	p.CurrentTask = next
	p.CurrentPhase = tmpl.Tasks[next].Phase
	if err := s.store.UpdateProjectPosition(ctx, p); err != nil {
		return lookup(err, "project")
	}
	if started {
		s.activity.Record(ctx, userID, model.ActionTaskStart, map[string]any{
			"projectId": p.ID,
			"taskIndex": next,
		})
	}
	return nil
}

// Compare logs that the student compared AI outputs, or picked one.
func (s *ProjectService) Compare(ctx context.Context, userID, projectID string, req *model.CompareRequest) error {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return lookup(err, "project")
	}
	if p.UserID != userID {
		return forbidden("project belongs to another user")
	}

	action := model.ActionCompareOutputs
	if req.SelectedAIID != "" {
		action = model.ActionSelectOutput
	}
	s.activity.Record(ctx, userID, action, map[string]any{
		"projectId":    projectID,
		"taskIndex":    req.TaskIndex,
		"aiConfigs":    req.AIConfigs,
		"selectedAiId": req.SelectedAIID,
	})
	return nil
}

// UnreadReminders returns the student's unread reminders, newest first.
func (s *ProjectService) UnreadReminders(ctx context.Context, userID string) ([]model.Reminder, error) {
	return s.store.ListUnreadReminders(ctx, userID)
}

// MarkReminderRead marks a reminder read. Only its recipient may do so.
func (s *ProjectService) MarkReminderRead(ctx context.Context, userID, reminderID string) (*model.Reminder, error) {
	r, err := s.store.GetReminder(ctx, reminderID)
	if err != nil {
		return nil, lookup(err, "reminder")
	}
	if r.StudentID != userID {
		return nil, forbidden("reminder belongs to another user")
	}
	if r.ReadAt != nil {
		return r, nil
	}

	now := s.now()
	if err := s.store.MarkReminderRead(ctx, r.ID, now); err != nil {
		return nil, lookup(err, "reminder")
	}
	r.ReadAt = &now
	return r, nil
}

// AvailableTemplates lists active templates, newest first, seeding the
// default template on an empty catalog.
func (s *ProjectService) AvailableTemplates(ctx context.Context, userID string) ([]model.TaskTemplate, error) {
	templates, err := s.store.ListTemplates(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(templates) > 0 {
		return templates, nil
	}

	tmpl, err := s.EnsureDefaultTemplate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return []model.TaskTemplate{*tmpl}, nil
}

// EnsureDefaultTemplate returns the default template created by createdBy,
// creating it when missing.
func (s *ProjectService) EnsureDefaultTemplate(ctx context.Context, createdBy string) (*model.TaskTemplate, error) {
	tmpl, err := s.store.FindTemplate(ctx, DefaultTemplateName, createdBy)
	if err == nil {
		return tmpl, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, lookup(err, "template")
	}

	tmpl = &model.TaskTemplate{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Name:        DefaultTemplateName,
		Description: defaultTemplateDescription,
		Tasks:       DefaultTemplateTasks,
		CreatedBy:   createdBy,
		IsActive:    true,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateTemplate(ctx, tmpl); err != nil {
		return nil, err
	}
	s.logger.Info("default template created", zap.String("template_id", tmpl.ID))
	return tmpl, nil
}
