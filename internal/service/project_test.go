package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/classroom/internal/model"
)

func newProjectFixture(t *testing.T) (*testEnv, *ProjectService, *model.User, *model.TaskTemplate) {
	t.Helper()
	env := newTestEnv(t)
	svc := NewProjectService(env.store, env.recorder, env.log)
	teacher := env.user(t, "teach", model.UserRoleTeacher)
	student := env.user(t, "stud", model.UserRoleStudent)

	tmpl, err := svc.EnsureDefaultTemplate(context.Background(), teacher.ID)
	require.NoError(t, err)
	return env, svc, student, tmpl
}

func TestCreateProjectStartsFirstTask(t *testing.T) {
	ctx := context.Background()
	env, svc, student, tmpl := newProjectFixture(t)

	p, err := svc.Create(ctx, student.ID, &model.CreateProjectRequest{TemplateID: tmpl.ID, Title: "My story"})
	require.NoError(t, err)
	assert.Equal(t, model.ProjectInProgress, p.Status)
	assert.Equal(t, 1, p.CurrentPhase)

	got, err := svc.Get(ctx, student, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Progress, len(DefaultTemplateTasks))
	assert.Equal(t, model.TaskInProgress, got.Progress[0].Status)
	assert.NotNil(t, got.Progress[0].StartedAt)
	for _, tp := range got.Progress[1:] {
		assert.Equal(t, model.TaskPending, tp.Status)
		assert.Nil(t, tp.StartedAt)
	}

	assert.Equal(t, []string{model.ActionTaskStart}, env.actions(t, student.ID))
}

func TestCreateProjectUnknownTemplate(t *testing.T) {
	_, svc, student, _ := newProjectFixture(t)
	_, err := svc.Create(context.Background(), student.ID, &model.CreateProjectRequest{TemplateID: "nope", Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompletingTaskAdvancesProject(t *testing.T) {
	ctx := context.Background()
	env, svc, student, tmpl := newProjectFixture(t)
	p, err := svc.Create(ctx, student.ID, &model.CreateProjectRequest{TemplateID: tmpl.ID, Title: "Story"})
	require.NoError(t, err)

	tp, err := svc.UpdateProgress(ctx, student.ID, p.ID, 0, &model.UpdateProgressRequest{
		StudentContent: "123456",
		AIContent:      "1234",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TaskInProgress, tp.Status)
	assert.InDelta(t, 0.4, tp.AIRatio, 1e-9)

	tp, err = svc.UpdateProgress(ctx, student.ID, p.ID, 0, &model.UpdateProgressRequest{
		StudentContent: "123456",
		AIContent:      "1234",
		Status:         model.TaskCompleted,
	})
	require.NoError(t, err)
	assert.NotNil(t, tp.CompletedAt)

	got, err := svc.Get(ctx, student, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentTask)
	assert.Equal(t, tmpl.Tasks[1].Phase, got.CurrentPhase)
	assert.Equal(t, model.TaskCompleted, got.Progress[0].Status)
	assert.Equal(t, model.TaskInProgress, got.Progress[1].Status)
	assert.NotNil(t, got.Progress[1].StartedAt)

	actions := env.actions(t, student.ID)
	assert.Contains(t, actions, model.ActionTaskComplete)
}

func TestCompletingLastTaskCompletesProject(t *testing.T) {
	ctx := context.Background()
	_, svc, student, tmpl := newProjectFixture(t)
	p, err := svc.Create(ctx, student.ID, &model.CreateProjectRequest{TemplateID: tmpl.ID, Title: "Story"})
	require.NoError(t, err)

	for i := range tmpl.Tasks {
		_, err := svc.UpdateProgress(ctx, student.ID, p.ID, i, &model.UpdateProgressRequest{
			StudentContent: "mine",
			Status:         model.TaskCompleted,
		})
		require.NoError(t, err)
	}

	got, err := svc.Get(ctx, student, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectCompleted, got.Status)
	assert.Equal(t, len(tmpl.Tasks)-1, got.CurrentTask)
	for _, tp := range got.Progress {
		assert.Equal(t, model.TaskCompleted, tp.Status)
	}
}

func TestRecompletingEarlierTaskKeepsPosition(t *testing.T) {
	ctx := context.Background()
	_, svc, student, tmpl := newProjectFixture(t)
	require.GreaterOrEqual(t, len(tmpl.Tasks), 3)
	p, err := svc.Create(ctx, student.ID, &model.CreateProjectRequest{TemplateID: tmpl.ID, Title: "Story"})
	require.NoError(t, err)

	complete := func(i int) {
		t.Helper()
		_, err := svc.UpdateProgress(ctx, student.ID, p.ID, i, &model.UpdateProgressRequest{
			StudentContent: "mine",
			Status:         model.TaskCompleted,
		})
		require.NoError(t, err)
	}

	complete(0)
	complete(1)
	complete(0)

	got, err := svc.Get(ctx, student, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentTask)
	assert.Equal(t, tmpl.Tasks[2].Phase, got.CurrentPhase)
	assert.Equal(t, model.ProjectInProgress, got.Status)
	assert.Equal(t, model.TaskInProgress, got.Progress[2].Status)

	for i := 2; i < len(tmpl.Tasks); i++ {
		complete(i)
	}
	complete(0)

	got, err = svc.Get(ctx, student, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectCompleted, got.Status)
	assert.Equal(t, len(tmpl.Tasks)-1, got.CurrentTask)
}

func TestProjectAccessRules(t *testing.T) {
	ctx := context.Background()
	env, svc, student, tmpl := newProjectFixture(t)
	p, err := svc.Create(ctx, student.ID, &model.CreateProjectRequest{TemplateID: tmpl.ID, Title: "Story"})
	require.NoError(t, err)

	stranger := env.user(t, "stranger", model.UserRoleStudent)
	teacher := env.user(t, "prof", model.UserRoleTeacher)

	_, err = svc.Get(ctx, stranger, p.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, teacher, p.ID)
	assert.NoError(t, err)

	_, err = svc.UpdateProgress(ctx, teacher.ID, p.ID, 0, &model.UpdateProgressRequest{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateProgress(ctx, student.ID, p.ID, 99, &model.UpdateProgressRequest{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCompareLogsSelection(t *testing.T) {
	ctx := context.Background()
	env, svc, student, tmpl := newProjectFixture(t)
	p, err := svc.Create(ctx, student.ID, &model.CreateProjectRequest{TemplateID: tmpl.ID, Title: "Story"})
	require.NoError(t, err)

	require.NoError(t, svc.Compare(ctx, student.ID, p.ID, &model.CompareRequest{AIConfigs: []string{"a", "b"}, TaskIndex: intPtr(0)}))
	require.NoError(t, svc.Compare(ctx, student.ID, p.ID, &model.CompareRequest{AIConfigs: []string{"a", "b"}, SelectedAIID: "a"}))

	actions := env.actions(t, student.ID)
	assert.Contains(t, actions, model.ActionCompareOutputs)
	assert.Contains(t, actions, model.ActionSelectOutput)
}

func TestAvailableTemplatesSeedsDefault(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewProjectService(env.store, env.recorder, env.log)
	u := env.user(t, "first", model.UserRoleStudent)

	templates, err := svc.AvailableTemplates(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, DefaultTemplateName, templates[0].Name)
	assert.Len(t, templates[0].Tasks, 7)

	again, err := svc.AvailableTemplates(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, templates[0].ID, again[0].ID)
}

func TestReminderReadByRecipientOnly(t *testing.T) {
	ctx := context.Background()
	env, svc, student, _ := newProjectFixture(t)
	teacher := env.user(t, "coach", model.UserRoleTeacher)
	teachers := NewTeacherService(env.store, svc, env.recorder, env.log)

	r, err := teachers.SendReminder(ctx, teacher.ID, &model.SendReminderRequest{StudentID: student.ID, Message: "keep going"})
	require.NoError(t, err)
	assert.Equal(t, DefaultReminderType, r.Type)

	unread, err := svc.UnreadReminders(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	_, err = svc.MarkReminderRead(ctx, teacher.ID, r.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	read, err := svc.MarkReminderRead(ctx, student.ID, r.ID)
	require.NoError(t, err)
	assert.NotNil(t, read.ReadAt)

	unread, err = svc.UnreadReminders(ctx, student.ID)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
