package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	name  string
	delay time.Duration
	reply string
	err   error
	panic bool
	calls atomic.Int32
	seen  atomic.Pointer[CompletionRequest]
}

func (f *fakeClient) Name() string     { return f.name }
func (f *fakeClient) Models() []string { return []string{"fake"} }

func (f *fakeClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	f.calls.Add(1)
	f.seen.Store(req)
	if f.panic {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &CompletionResponse{Content: f.reply, Model: req.Model}, nil
}

func newTestDispatcher(timeout time.Duration, clients ...Client) *Dispatcher {
	r := NewRegistry()
	for _, c := range clients {
		r.Register(c)
	}
	return NewDispatcher(r, timeout, nil)
}

var history = []ChatMessage{{Role: RoleUser, Content: "hello"}}

func TestDispatchScenarioPartialFailure(t *testing.T) {
	gemini := &fakeClient{name: "gemini", err: &ProviderError{Provider: "gemini", StatusCode: 429, Message: "rate limited"}}
	deepseek := &fakeClient{name: "deepseek", reply: "ok"}
	d := newTestDispatcher(0, gemini, deepseek)

	results := d.Dispatch(context.Background(), []string{"gemini", "deepseek"}, history)

	require.Len(t, results, 2)
	assert.Equal(t, "gemini", results[0].ProviderID)
	assert.Equal(t, "", results[0].Response)
	assert.Equal(t, "rate limited", results[0].Error)
	assert.True(t, results[0].Failed())

	assert.Equal(t, "deepseek", results[1].ProviderID)
	assert.Equal(t, "ok", results[1].Response)
	assert.Empty(t, results[1].Error)
}

func TestDispatchPreservesInputOrder(t *testing.T) {
	slow := &fakeClient{name: "openai", reply: "slow", delay: 80 * time.Millisecond}
	mid := &fakeClient{name: "qwen", reply: "mid", delay: 40 * time.Millisecond}
	fast := &fakeClient{name: "deepseek", reply: "fast"}
	d := newTestDispatcher(0, slow, mid, fast)

	results := d.Dispatch(context.Background(), []string{"openai", "qwen", "deepseek"}, history)

	require.Len(t, results, 3)
	assert.Equal(t, []string{"openai", "qwen", "deepseek"},
		[]string{results[0].ProviderID, results[1].ProviderID, results[2].ProviderID})
	assert.Equal(t, []string{"slow", "mid", "fast"},
		[]string{results[0].Response, results[1].Response, results[2].Response})
}

func TestDispatchRunsCallsConcurrently(t *testing.T) {
	a := &fakeClient{name: "openai", reply: "a", delay: 100 * time.Millisecond}
	b := &fakeClient{name: "qwen", reply: "b", delay: 100 * time.Millisecond}
	c := &fakeClient{name: "gemini", reply: "c", delay: 100 * time.Millisecond}
	d := newTestDispatcher(0, a, b, c)

	start := time.Now()
	results := d.Dispatch(context.Background(), []string{"openai", "qwen", "gemini"}, history)

	assert.Len(t, results, 3)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestDispatchIsolatesFailures(t *testing.T) {
	bad := &fakeClient{name: "openai", err: errors.New("connection refused")}
	panicky := &fakeClient{name: "anthropic", panic: true}
	good := &fakeClient{name: "qwen", reply: "fine"}
	other := &fakeClient{name: "deepseek", reply: "also fine"}
	d := newTestDispatcher(0, bad, panicky, good, other)

	results := d.Dispatch(context.Background(), []string{"openai", "qwen", "anthropic", "deepseek"}, history)

	require.Len(t, results, 4)
	assert.Equal(t, "connection refused", results[0].Error)
	assert.Equal(t, "fine", results[1].Response)
	assert.Empty(t, results[1].Error)
	assert.Contains(t, results[2].Error, "boom")
	assert.Equal(t, "also fine", results[3].Response)
}

func TestDispatchDuplicatesAreCalledTwice(t *testing.T) {
	c := &fakeClient{name: "deepseek", reply: "ok"}
	d := newTestDispatcher(0, c)

	results := d.Dispatch(context.Background(), []string{"deepseek", "deepseek"}, history)

	require.Len(t, results, 2)
	assert.Equal(t, int32(2), c.calls.Load())
	assert.Equal(t, "deepseek", results[0].ProviderID)
	assert.Equal(t, "deepseek", results[1].ProviderID)
}

func TestDispatchUnknownProvider(t *testing.T) {
	d := newTestDispatcher(0, &fakeClient{name: "gemini", reply: "hi"})

	results := d.Dispatch(context.Background(), []string{"nope", "gemini"}, history)

	require.Len(t, results, 2)
	assert.Equal(t, "provider nope not found", results[0].Error)
	assert.Equal(t, "hi", results[1].Response)
}

func TestDispatchEmpty(t *testing.T) {
	d := newTestDispatcher(0)
	assert.Empty(t, d.Dispatch(context.Background(), nil, history))
}

func TestDispatchTimeoutIsAnErroredResult(t *testing.T) {
	slow := &fakeClient{name: "openai", reply: "late", delay: time.Second}
	fast := &fakeClient{name: "qwen", reply: "ok"}
	d := newTestDispatcher(50*time.Millisecond, slow, fast)

	results := d.Dispatch(context.Background(), []string{"openai", "qwen"}, history)

	require.Len(t, results, 2)
	assert.Equal(t, "request timed out", results[0].Error)
	assert.Equal(t, "ok", results[1].Response)
}

func TestDispatchCallsPassesModelAndMessages(t *testing.T) {
	c := &fakeClient{name: "openai", reply: "ok"}
	d := newTestDispatcher(0, c)
	msgs := []ChatMessage{{Role: RoleSystem, Content: "be brief"}, {Role: RoleUser, Content: "hi"}}

	results := d.DispatchCalls(context.Background(), []Call{{ProviderID: "openai", Model: "gpt-4o", Messages: msgs}})

	require.Len(t, results, 1)
	assert.Equal(t, "gpt-4o", results[0].Model)
	seen := c.seen.Load()
	require.NotNil(t, seen)
	assert.Equal(t, msgs, seen.Messages)
}

func TestErrorMessageFallsBackForEmptyErrors(t *testing.T) {
	assert.Equal(t, "unknown error", errorMessage(&ProviderError{}))
}
