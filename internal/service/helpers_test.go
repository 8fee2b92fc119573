package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/classroom/internal/llm"
	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/store"
	"github.com/capitalize-ai/classroom/internal/store/storetest"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

type testEnv struct {
	store     *store.Store
	recorder  *ActivityRecorder
	publisher *fakePublisher
	log       *logger.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := storetest.New(t)
	log := logger.NewNop()
	pub := &fakePublisher{}
	return &testEnv{
		store:     s,
		recorder:  NewActivityRecorder(s, pub, log),
		publisher: pub,
		log:       log,
	}
}

func (e *testEnv) user(t *testing.T, username string, role model.UserRole) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Username:     username,
		Name:         username,
		Role:         role,
		PasswordHash: []byte("x"),
		CreatedAt:    time.Now(),
	}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) conversation(t *testing.T, userID string) *model.Conversation {
	t.Helper()
	now := time.Now()
	c := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Title:     "chat",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, e.store.CreateConversation(context.Background(), c))
	return c
}

func (e *testEnv) aiConfig(t *testing.T, provider, modelName string, active bool) *model.AIConfig {
	t.Helper()
	c := &model.AIConfig{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Name:      provider + " " + modelName,
		Provider:  provider,
		Model:     modelName,
		IsActive:  active,
		CreatedAt: time.Now(),
	}
	require.NoError(t, e.store.CreateAIConfig(context.Background(), c))
	return c
}

func (e *testEnv) actions(t *testing.T, userID string) []string {
	t.Helper()
	logs, err := e.store.ListActivityLogs(context.Background(), userID, 100)
	require.NoError(t, err)
	out := make([]string, len(logs))
	for i, l := range logs {
		out[i] = l.Action
	}
	return out
}

// fakeDispatcher answers each call with respond and records what it saw.
type fakeDispatcher struct {
	mu      sync.Mutex
	calls   [][]llm.Call
	respond func(i int, c llm.Call) llm.Result
}

func (d *fakeDispatcher) DispatchCalls(_ context.Context, calls []llm.Call) []llm.Result {
	d.mu.Lock()
	d.calls = append(d.calls, calls)
	d.mu.Unlock()

	out := make([]llm.Result, len(calls))
	for i, c := range calls {
		if d.respond != nil {
			out[i] = d.respond(i, c)
			continue
		}
		out[i] = llm.Result{ProviderID: c.ProviderID, Response: "reply from " + c.ProviderID, Model: c.Model}
	}
	return out
}

type fakePublisher struct {
	mu        sync.Mutex
	activity  []string
	reminders []string
}

func (p *fakePublisher) PublishActivity(_ context.Context, entry *model.ActivityLog) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activity = append(p.activity, entry.Action)
	return nil
}

func (p *fakePublisher) PublishReminder(_ context.Context, r *model.Reminder) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reminders = append(p.reminders, r.ID)
	return nil
}

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }
