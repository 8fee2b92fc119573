package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/store"
	"github.com/capitalize-ai/classroom/internal/store/storetest"
)

func newID() string { return uuid.Must(uuid.NewV7()).String() }

func seedUser(t *testing.T, s *store.Store, username string) *model.User {
	t.Helper()
	u := &model.User{
		ID:           newID(),
		Username:     username,
		Name:         username,
		Role:         model.UserRoleStudent,
		PasswordHash: []byte("hash"),
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedConversation(t *testing.T, s *store.Store, userID string) *model.Conversation {
	t.Helper()
	now := time.Now()
	c := &model.Conversation{ID: newID(), UserID: userID, Title: "chat", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateConversation(context.Background(), c))
	return c
}

func TestUsernameIsUnique(t *testing.T) {
	s := storetest.New(t)
	seedUser(t, s, "alice")

	err := s.CreateUser(context.Background(), &model.User{
		ID: newID(), Username: "alice", Name: "x", Role: model.UserRoleStudent, CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err := s.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), got.PasswordHash)

	_, err = s.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := seedUser(t, s, "bob")

	exp := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	require.NoError(t, s.CreateSession(ctx, &model.Session{ID: "sess", UserID: u.ID, ExpiresAt: exp, CreatedAt: time.Now()}))

	got, err := s.GetSession(ctx, "sess")
	require.NoError(t, err)
	assert.True(t, exp.Equal(got.ExpiresAt))

	require.NoError(t, s.DeleteSession(ctx, "sess"))
	_, err = s.GetSession(ctx, "sess")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMessagesOrderAndWindow(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := seedUser(t, s, "carol")
	c := seedConversation(t, s, u.ID)

	cfg := &model.AIConfig{ID: newID(), Name: "GPT", Provider: "openai", Model: "gpt-4", IsActive: true, CreatedAt: time.Now()}
	require.NoError(t, s.CreateAIConfig(ctx, cfg))

	base := time.Now()
	for i := 0; i < 25; i++ {
		m := &model.Message{
			ID:             newID(),
			ConversationID: c.ID,
			Role:           model.RoleUser,
			Content:        string(rune('a' + i)),
			CreatedAt:      base.Add(time.Duration(i) * time.Millisecond),
		}
		if i%2 == 1 {
			m.Role = model.RoleAssistant
			m.AIConfigID = &cfg.ID
		}
		require.NoError(t, s.CreateMessage(ctx, m))
	}

	all, err := s.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, all, 25)
	assert.Equal(t, "a", all[0].Content)

	recent, err := s.RecentMessages(ctx, c.ID, 20)
	require.NoError(t, err)
	require.Len(t, recent, 20)
	assert.Equal(t, string(rune('a'+5)), recent[0].Content)
	assert.Equal(t, string(rune('a'+24)), recent[19].Content)

	require.NoError(t, s.AttachAIConfigs(ctx, all))
	require.NotNil(t, all[1].AIConfig)
	assert.Equal(t, "GPT", all[1].AIConfig.Name)
	assert.Nil(t, all[0].AIConfig)

	list, err := s.ListConversations(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, string(rune('a'+24)), list[0].LastMessage.Content)

	require.NoError(t, s.DeleteConversation(ctx, c.ID))
	all, err = s.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestProgressUpsertKeepsOneRowPerTask(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := seedUser(t, s, "dave")

	tmpl := &model.TaskTemplate{
		ID: newID(), Name: "t", CreatedBy: u.ID, IsActive: true, CreatedAt: time.Now(),
		Tasks: []model.TaskDefinition{{Phase: 1, Name: "one"}, {Phase: 1, Name: "two"}},
	}
	require.NoError(t, s.CreateTemplate(ctx, tmpl))

	now := time.Now()
	p := &model.Project{
		ID: newID(), UserID: u.ID, TemplateID: tmpl.ID, Title: "p",
		CurrentPhase: 1, Status: model.ProjectInProgress, CreatedAt: now, UpdatedAt: now,
	}
	started := now
	progress := []model.TaskProgress{
		{ID: newID(), ProjectID: p.ID, TaskIndex: 0, Status: model.TaskInProgress, StartedAt: &started, LastActiveAt: now},
		{ID: newID(), ProjectID: p.ID, TaskIndex: 1, Status: model.TaskPending, LastActiveAt: now},
	}
	require.NoError(t, s.CreateProject(ctx, p, progress))

	later := now.Add(time.Minute)
	update := &model.TaskProgress{
		ID: newID(), ProjectID: p.ID, TaskIndex: 0, Status: model.TaskCompleted,
		StudentContent: "mine", AIContent: "theirs", AIRatio: 0.6,
		StartedAt: &later, CompletedAt: &later, LastActiveAt: later,
	}
	require.NoError(t, s.UpsertProgress(ctx, update))
	require.NoError(t, s.UpsertProgress(ctx, update))

	got, err := s.GetProgress(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, progress[0].ID, got.ID)
	assert.Equal(t, model.TaskCompleted, got.Status)
	assert.InDelta(t, 0.6, got.AIRatio, 1e-9)
	require.NotNil(t, got.StartedAt)
	assert.Equal(t, started.UnixMilli(), got.StartedAt.UnixMilli())

	changed, err := s.StartTask(ctx, p.ID, 1, later)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.StartTask(ctx, p.ID, 1, later)
	require.NoError(t, err)
	assert.False(t, changed)

	projects, err := s.ListProjectsByUser(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, s.LoadProjectRelations(ctx, projects))
	require.Len(t, projects, 1)
	assert.Len(t, projects[0].Progress, 2)
	assert.Len(t, projects[0].Template.Tasks, 2)
	assert.Equal(t, "dave", projects[0].User.Username)

	p.Status = model.ProjectCompleted
	require.NoError(t, s.UpdateProjectPosition(ctx, p))
	total, err := s.CountProjects(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	status := model.ProjectCompleted
	done, err := s.CountProjects(ctx, &status)
	require.NoError(t, err)
	assert.Equal(t, 1, done)
	status = model.ProjectInProgress
	open, err := s.CountProjects(ctx, &status)
	require.NoError(t, err)
	assert.Zero(t, open)
}

func TestSnapshotsNumberRounds(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := seedUser(t, s, "erin")
	c := seedConversation(t, s, u.ID)

	first, err := s.CreateSnapshot(ctx, u.ID, c.ID, "v1", time.Now())
	require.NoError(t, err)
	second, err := s.CreateSnapshot(ctx, u.ID, c.ID, "v2", time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, first.RoundNumber)
	assert.Equal(t, 2, second.RoundNumber)

	history, err := s.ListSnapshots(ctx, u.ID, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "v1", history[0].Content)
}

func TestDocumentsGetOrCreateAndPut(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := seedUser(t, s, "fay")
	c := seedConversation(t, s, u.ID)

	note, err := s.GetOrCreateNote(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Empty(t, note.Content)

	again, err := s.GetOrCreateNote(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, note.ID, again.ID)

	updated, err := s.PutNote(ctx, u.ID, c.ID, "hello", time.Now())
	require.NoError(t, err)
	assert.Equal(t, note.ID, updated.ID)
	assert.Equal(t, "hello", updated.Content)

	draft, err := s.PutDraft(ctx, u.ID, c.ID, "draft", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "draft", draft.Content)
}

func TestActivityCounts(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := seedUser(t, s, "gus")

	for _, action := range []string{"A", "B", "A"} {
		require.NoError(t, s.CreateActivityLog(ctx, &model.ActivityLog{
			ID: newID(), UserID: u.ID, Action: action, CreatedAt: time.Now(),
		}))
	}

	counts, err := s.CountActivityByAction(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.ActionCount{{Action: "A", Count: 2}, {Action: "B", Count: 1}}, counts)

	logs, err := s.ListActivityLogs(ctx, u.ID, 2)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
	assert.JSONEq(t, `{}`, string(logs[0].Details))
}
