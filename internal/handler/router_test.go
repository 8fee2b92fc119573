package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/capitalize-ai/classroom/internal/llm"
	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/service"
	"github.com/capitalize-ai/classroom/internal/store"
	"github.com/capitalize-ai/classroom/internal/store/storetest"
	"github.com/capitalize-ai/classroom/pkg/logger"
)

// echoDispatcher answers every call with the provider id, failing for
// providers listed in fail.
type echoDispatcher struct {
	fail map[string]bool
}

func (d echoDispatcher) DispatchCalls(_ context.Context, calls []llm.Call) []llm.Result {
	out := make([]llm.Result, len(calls))
	for i, c := range calls {
		if d.fail[c.ProviderID] {
			out[i] = llm.Result{ProviderID: c.ProviderID, Error: "upstream unavailable"}
			continue
		}
		out[i] = llm.Result{ProviderID: c.ProviderID, Response: "hello from " + c.ProviderID, Model: c.Model}
	}
	return out
}

type testServer struct {
	*httptest.Server
	store *store.Store
	auth  *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.NewNop()
	s := storetest.New(t)
	activity := service.NewActivityRecorder(s, nil, log)

	registry := llm.NewRegistry()
	authSvc := service.NewAuthService(s, service.AuthConfig{
		Secret:     []byte("test-secret"),
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, log)
	projects := service.NewProjectService(s, activity, log)
	uploads, err := service.NewUploadService(t.TempDir(), 1024, activity, log)
	require.NoError(t, err)

	router := NewRouter(Deps{
		Logger:         log,
		Authenticator:  authSvc,
		AllowedOrigins: []string{"http://localhost:*"},

		Health:        NewHealthHandler(s, nil),
		Auth:          NewAuthHandler(authSvc, log),
		Conversations: NewConversationHandler(service.NewConversationService(s, echoDispatcher{fail: map[string]bool{llm.ProviderGemini: true}}, activity, log), log),
		AIConfigs:     NewAIConfigHandler(service.NewAIConfigService(s, registry, log), log),
		Annotations:   NewAnnotationHandler(service.NewAnnotationService(s, activity), log),
		Documents:     NewDocumentHandler(service.NewDocumentService(s, activity), log),
		Projects:      NewProjectHandler(projects, log),
		Teacher:       NewTeacherHandler(service.NewTeacherService(s, projects, activity, log), log),
		Uploads:       NewUploadHandler(uploads, log),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: s, auth: authSvc}
}

// call sends a JSON request and decodes a JSON response into out when non-nil.
func (ts *testServer) call(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.send(t, req, out)
}

func (ts *testServer) send(t *testing.T, req *http.Request, out any) int {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (ts *testServer) register(t *testing.T, username string, role model.UserRole) *model.AuthResponse {
	t.Helper()
	var res model.AuthResponse
	status := ts.call(t, http.MethodPost, "/api/auth/register", "", model.RegisterRequest{
		Username: username, Password: "secret1", Name: username, Role: role,
	}, &res)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, res.Token)
	return &res
}

type errorBody struct {
	Error string `json:"error"`
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	var body map[string]string
	assert.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/api/health", "", nil, &body))
	assert.Equal(t, "ok", body["status"])

	assert.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/ready", "", nil, &body))
	assert.Equal(t, "ready", body["status"])
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	student := ts.register(t, "ava", "")
	assert.Equal(t, model.UserRoleStudent, student.User.Role)

	var me struct {
		User model.User `json:"user"`
	}
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/api/auth/me", student.Token, nil, &me))
	assert.Equal(t, "ava", me.User.Username)

	var e errorBody
	assert.Equal(t, http.StatusUnauthorized, ts.call(t, http.MethodGet, "/api/auth/me", "", nil, &e))
	assert.Equal(t, http.StatusUnauthorized, ts.call(t, http.MethodGet, "/api/auth/me", "garbage", nil, nil))

	assert.Equal(t, http.StatusUnauthorized, ts.call(t, http.MethodPost, "/api/auth/login", "",
		model.LoginRequest{Username: "ava", Password: "wrong"}, &e))
	assert.Equal(t, "invalid username or password", e.Error)

	var login model.AuthResponse
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPost, "/api/auth/login", "",
		model.LoginRequest{Username: "ava", Password: "secret1"}, &login))

	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPost, "/api/auth/logout", login.Token, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, ts.call(t, http.MethodGet, "/api/auth/me", login.Token, nil, nil))
	assert.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/api/auth/me", student.Token, nil, nil))
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	var e errorBody
	status := ts.call(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "x"}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, e.Error, "password: required")

	ts.register(t, "dup", "")
	status = ts.call(t, http.MethodPost, "/api/auth/register", "", model.RegisterRequest{
		Username: "dup", Password: "secret1", Name: "Dup",
	}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTeacherRoutesRequireTeacher(t *testing.T) {
	ts := newTestServer(t)
	student := ts.register(t, "stu", model.UserRoleStudent)
	teacher := ts.register(t, "tea", model.UserRoleTeacher)

	var e errorBody
	assert.Equal(t, http.StatusForbidden, ts.call(t, http.MethodGet, "/api/teacher/dashboard", student.Token, nil, &e))
	assert.Equal(t, "insufficient permissions", e.Error)
	assert.Equal(t, http.StatusForbidden, ts.call(t, http.MethodPost, "/api/ai/configs", student.Token,
		model.CreateAIConfigRequest{Name: "x", Provider: llm.ProviderOpenAI, Model: "gpt-4"}, nil))

	var dash model.Dashboard
	assert.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/api/teacher/dashboard", teacher.Token, nil, &dash))

	var batch struct {
		Created int                       `json:"created"`
		Failed  int                       `json:"failed"`
		Results []model.BatchCreateResult `json:"results"`
	}
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPost, "/api/auth/batch-create-students", teacher.Token,
		model.BatchCreateStudentsRequest{Students: []model.NewStudent{
			{Username: "new1", Name: "New One", Password: "secret1"},
			{Username: "stu", Name: "Taken", Password: "secret1"},
		}}, &batch))
	assert.Equal(t, 1, batch.Created)
	assert.Equal(t, 1, batch.Failed)
}

func TestConversationTurn(t *testing.T) {
	ts := newTestServer(t)
	teacher := ts.register(t, "teach", model.UserRoleTeacher)
	student := ts.register(t, "kid", model.UserRoleStudent)

	var gpt, gemini model.AIConfig
	require.Equal(t, http.StatusCreated, ts.call(t, http.MethodPost, "/api/ai/configs", teacher.Token,
		model.CreateAIConfigRequest{Name: "GPT-4", Provider: llm.ProviderOpenAI, Model: "gpt-4"}, &gpt))
	require.Equal(t, http.StatusCreated, ts.call(t, http.MethodPost, "/api/ai/configs", teacher.Token,
		model.CreateAIConfigRequest{Name: "Gemini", Provider: llm.ProviderGemini, Model: "gemini-2.0-flash"}, &gemini))

	var conv model.Conversation
	require.Equal(t, http.StatusCreated, ts.call(t, http.MethodPost, "/api/conversations", student.Token,
		model.CreateConversationRequest{Title: "Dragons"}, &conv))

	var turn model.SendMessageResponse
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", student.Token,
		model.SendMessageRequest{Content: "Tell me a story", AIConfigIDs: []string{gpt.ID, gemini.ID}}, &turn))
	assert.Equal(t, "Tell me a story", turn.UserMessage.Content)
	require.Len(t, turn.AssistantMessages, 2)
	assert.Equal(t, "hello from "+llm.ProviderOpenAI, turn.AssistantMessages[0].Content)
	assert.False(t, turn.AssistantMessages[0].IsError)
	assert.True(t, turn.AssistantMessages[1].IsError)
	require.NotNil(t, turn.AssistantMessages[1].AIConfigID)
	assert.Equal(t, gemini.ID, *turn.AssistantMessages[1].AIConfigID)

	var got model.Conversation
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/api/conversations/"+conv.ID, student.Token, nil, &got))
	assert.Len(t, got.Messages, 3)

	other := ts.register(t, "nosy", model.UserRoleStudent)
	var e errorBody
	assert.Equal(t, http.StatusNotFound, ts.call(t, http.MethodGet, "/api/conversations/"+conv.ID, other.Token, nil, &e))
	assert.Equal(t, "conversation not found", e.Error)

	assert.Equal(t, http.StatusBadRequest, ts.call(t, http.MethodGet, "/api/conversations/not-a-uuid", student.Token, nil, &e))
	assert.Equal(t, "invalid id format", e.Error)

	assert.Equal(t, http.StatusBadRequest, ts.call(t, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", student.Token,
		model.SendMessageRequest{Content: "", AIConfigIDs: []string{gpt.ID}}, nil))
}

func TestProjectRoutes(t *testing.T) {
	ts := newTestServer(t)
	teacher := ts.register(t, "prof", model.UserRoleTeacher)
	student := ts.register(t, "pupil", model.UserRoleStudent)

	var tmpl model.TaskTemplate
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPost, "/api/teacher/templates/init", teacher.Token, nil, &tmpl))

	var available []model.TaskTemplate
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/api/projects/templates/available", student.Token, nil, &available))
	require.Len(t, available, 1)

	var p model.Project
	require.Equal(t, http.StatusCreated, ts.call(t, http.MethodPost, "/api/projects", student.Token,
		model.CreateProjectRequest{TemplateID: tmpl.ID, Title: "My story"}, &p))
	assert.Equal(t, 0, p.CurrentTask)

	var tp model.TaskProgress
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPut, "/api/projects/"+p.ID+"/progress/0", student.Token,
		model.UpdateProgressRequest{StudentContent: "mine", Status: model.TaskCompleted}, &tp))
	assert.Equal(t, model.TaskCompleted, tp.Status)

	assert.Equal(t, http.StatusBadRequest, ts.call(t, http.MethodPut, "/api/projects/"+p.ID+"/progress/x", student.Token,
		model.UpdateProgressRequest{}, nil))
	assert.Equal(t, http.StatusBadRequest, ts.call(t, http.MethodPut, "/api/projects/"+p.ID+"/progress/99", student.Token,
		model.UpdateProgressRequest{}, nil))

	var got model.Project
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/api/projects/"+p.ID, teacher.Token, nil, &got))
	assert.Equal(t, 1, got.CurrentTask)

	outsider := ts.register(t, "outsider", model.UserRoleStudent)
	assert.Equal(t, http.StatusForbidden, ts.call(t, http.MethodGet, "/api/projects/"+p.ID, outsider.Token, nil, nil))

	var reminder model.Reminder
	require.Equal(t, http.StatusCreated, ts.call(t, http.MethodPost, "/api/teacher/reminder", teacher.Token,
		model.SendReminderRequest{StudentID: student.User.ID, Message: "keep going"}, &reminder))

	var unread []model.Reminder
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/api/projects/reminders/unread", student.Token, nil, &unread))
	require.Len(t, unread, 1)

	assert.Equal(t, http.StatusForbidden, ts.call(t, http.MethodPut, "/api/projects/reminders/"+reminder.ID+"/read", outsider.Token, nil, nil))
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPut, "/api/projects/reminders/"+reminder.ID+"/read", student.Token, nil, nil))
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodGet, "/api/projects/reminders/unread", student.Token, nil, &unread))
	assert.Empty(t, unread)
}

func TestDocumentRoutes(t *testing.T) {
	ts := newTestServer(t)
	student := ts.register(t, "writer", model.UserRoleStudent)

	var conv model.Conversation
	require.Equal(t, http.StatusCreated, ts.call(t, http.MethodPost, "/api/conversations", student.Token, nil, &conv))

	var note model.Note
	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPost, "/api/notes/"+conv.ID+"/add-knowledge", student.Token,
		model.AddKnowledgeRequest{Text: "owls hunt at night", Source: "GPT-4"}, &note))
	assert.Equal(t, "📌 owls hunt at night\n— Source: GPT-4", note.Content)

	var e errorBody
	assert.Equal(t, http.StatusBadRequest, ts.call(t, http.MethodPost, "/api/drafts/"+conv.ID+"/snapshot", student.Token, nil, &e))
	assert.Equal(t, "draft is empty", e.Error)

	require.Equal(t, http.StatusOK, ts.call(t, http.MethodPut, "/api/drafts/"+conv.ID, student.Token,
		model.UpdateContentRequest{Content: "Once upon a time"}, nil))
	var snap model.DraftSnapshot
	require.Equal(t, http.StatusCreated, ts.call(t, http.MethodPost, "/api/drafts/"+conv.ID+"/snapshot", student.Token, nil, &snap))
	assert.Equal(t, 1, snap.RoundNumber)
}

func TestUploadRoutes(t *testing.T) {
	ts := newTestServer(t)
	student := ts.register(t, "uploader", model.UserRoleStudent)

	upload := func(field, name, contentType, body, token string) *http.Request {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + name + `"`}
		h["Content-Type"] = []string{contentType}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(body))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/uploads", &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req
	}

	assert.Equal(t, http.StatusUnauthorized, ts.send(t, upload("file", "a.txt", "text/plain", "hi", ""), nil))

	var info model.FileInfo
	require.Equal(t, http.StatusCreated, ts.send(t, upload("file", "a.txt", "text/plain", "hi there", student.Token), &info))
	assert.True(t, strings.HasPrefix(info.URL, "/api/uploads/"))

	resp, err := http.Get(ts.URL + info.URL)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hi there", string(data))

	var e errorBody
	assert.Equal(t, http.StatusBadRequest, ts.send(t, upload("file", "a.exe", "application/x-msdownload", "MZ", student.Token), &e))
	assert.Equal(t, http.StatusBadRequest, ts.send(t, upload("other", "a.txt", "text/plain", "x", student.Token), &e))
	assert.Equal(t, "no file selected", e.Error)

	require.Equal(t, http.StatusOK, ts.call(t, http.MethodDelete, info.URL, student.Token, nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.call(t, http.MethodGet, info.URL, "", nil, nil))
}

func TestWriteServiceError(t *testing.T) {
	log := logger.NewNop()
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{&service.ValidationError{Message: "bad"}, http.StatusBadRequest, "bad"},
		{service.ErrNotFound, http.StatusNotFound, "not found"},
		{service.ErrForbidden, http.StatusForbidden, "access denied"},
		{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{fmt.Errorf("%w: session expired", service.ErrUnauthorized), http.StatusUnauthorized, "session expired"},
		{errors.New("db exploded"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), log, tt.err)
			assert.Equal(t, tt.status, rec.Code)

			var e errorBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
			assert.Equal(t, tt.msg, e.Error)
		})
	}
}
