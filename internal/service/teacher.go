package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/classroom/internal/activity"
	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/store"
	"github.com/capitalize-ai/classroom/pkg/logger"
	"github.com/capitalize-ai/classroom/pkg/metrics"
)

const (
	// StudentActivityLimit caps the activity logs returned for one student.
	StudentActivityLimit = 50
	// DefaultReminderType is used when a reminder names no type.
	DefaultReminderType = "GENERAL"
)

// TeacherService backs the teacher dashboard and reports.
type TeacherService struct {
	store    *store.Store
	projects *ProjectService
	activity *ActivityRecorder
	logger   *logger.Logger
	now      func() time.Time
}

// NewTeacherService creates a new teacher service.
func NewTeacherService(s *store.Store, projects *ProjectService, activity *ActivityRecorder, log *logger.Logger) *TeacherService {
	return &TeacherService{store: s, projects: projects, activity: activity, logger: log, now: time.Now}
}

// Dashboard classifies every project by how long its student has been idle.
func (s *TeacherService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.LoadProjectRelations(ctx, projects); err != nil {
		return nil, err
	}

	d := activity.BuildDashboard(s.now(), projects)
	metrics.RecordDashboard(d.ActiveCount, d.IdleCount, d.StuckCount)
	return d, nil
}

// StudentDetail returns a student's projects, each with its conversation's
// recent messages, and the student's latest activity.
func (s *TeacherService) StudentDetail(ctx context.Context, studentID string) (*model.StudentDetail, error) {
	if _, err := s.store.GetUser(ctx, studentID); err != nil {
		return nil, lookup(err, "student")
	}

	projects, err := s.store.ListProjectsByUser(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := s.store.LoadProjectRelations(ctx, projects); err != nil {
		return nil, err
	}

	for i := range projects {
		p := &projects[i]
		if p.ConversationID == nil {
			continue
		}
		conv, err := s.store.GetConversation(ctx, *p.ConversationID)
		if err != nil {
			s.logger.Warn("project conversation unavailable",
				zap.String("project_id", p.ID),
				zap.Error(err),
			)
			continue
		}
		msgs, err := s.store.RecentMessages(ctx, conv.ID, HistoryWindow)
		if err != nil {
			return nil, err
		}
		conv.Messages = msgs
		p.Conversation = conv
	}

	logs, err := s.store.ListActivityLogs(ctx, studentID, StudentActivityLimit)
	if err != nil {
		return nil, err
	}
	return &model.StudentDetail{Projects: projects, ActivityLogs: logs}, nil
}

// SendReminder stores a reminder for a student and logs it on the student's
// activity trail.
func (s *TeacherService) SendReminder(ctx context.Context, teacherID string, req *model.SendReminderRequest) (*model.Reminder, error) {
	if req.StudentID == "" || strings.TrimSpace(req.Message) == "" {
		return nil, invalid("studentId and message are required")
	}

	student, err := s.store.GetUser(ctx, req.StudentID)
	if err != nil {
		return nil, lookup(err, "student")
	}
	if student.Role != model.UserRoleStudent {
		return nil, invalid("user %s is not a student", student.Username)
	}

	if req.ProjectID != nil && *req.ProjectID != "" {
		if _, err := s.store.GetProject(ctx, *req.ProjectID); err != nil {
			return nil, lookup(err, "project")
		}
	} else {
		req.ProjectID = nil
	}

	reminderType := req.Type
	if reminderType == "" {
		reminderType = DefaultReminderType
	}

	r := &model.Reminder{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TeacherID: teacherID,
		StudentID: student.ID,
		ProjectID: req.ProjectID,
		Message:   req.Message,
		Type:      reminderType,
		SentAt:    s.now(),
	}
	if err := s.store.CreateReminder(ctx, r); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, student.ID, model.ActionTeacherReminder, map[string]any{
		"reminderId": r.ID,
		"type":       r.Type,
		"message":    r.Message,
	})
	s.activity.PublishReminder(ctx, r)
	return r, nil
}

// Analytics reports completion counts, per-task averages and activity counts.
func (s *TeacherService) Analytics(ctx context.Context) (*model.Analytics, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.LoadProjectRelations(ctx, projects); err != nil {
		return nil, err
	}

	total, err := s.store.CountProjects(ctx, nil)
	if err != nil {
		return nil, err
	}
	status := model.ProjectCompleted
	completed, err := s.store.CountProjects(ctx, &status)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.CountActivityByAction(ctx)
	if err != nil {
		return nil, err
	}

	return &model.Analytics{
		TotalProjects:     total,
		CompletedProjects: completed,
		TaskAnalytics:     activity.BuildTaskAnalytics(projects),
		ActivityStats:     counts,
	}, nil
}

// Templates lists active templates, seeding the teacher's default template
// on an empty catalog.
func (s *TeacherService) Templates(ctx context.Context, teacherID string) ([]model.TaskTemplate, error) {
	return s.projects.AvailableTemplates(ctx, teacherID)
}

// InitTemplate returns the teacher's default template, creating it if needed.
func (s *TeacherService) InitTemplate(ctx context.Context, teacherID string) (*model.TaskTemplate, error) {
	return s.projects.EnsureDefaultTemplate(ctx, teacherID)
}

// Students lists student accounts.
func (s *TeacherService) Students(ctx context.Context) ([]model.User, error) {
	return s.store.ListUsersByRole(ctx, model.UserRoleStudent)
}
