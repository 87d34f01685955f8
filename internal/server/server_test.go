package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskchat/taskchat/internal/agent/ai"
	"github.com/taskchat/taskchat/internal/agent/orchestrator"
	"github.com/taskchat/taskchat/internal/agent/tools"
	"github.com/taskchat/taskchat/internal/config"
	"github.com/taskchat/taskchat/internal/db"
	"github.com/taskchat/taskchat/internal/store"
	"github.com/taskchat/taskchat/internal/svc"
	"github.com/taskchat/taskchat/internal/types"
)

const testSecret = "test-secret"

type scriptedProvider struct {
	script []*ai.Completion
	calls  int
}

func (p *scriptedProvider) ID() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, _ *ai.ChatRequest) (*ai.Completion, error) {
	p.calls++
	idx := p.calls - 1
	if idx >= len(p.script) {
		idx = len(p.script) - 1
	}
	return p.script[idx], nil
}

func testRouter(t *testing.T, provider ai.Provider) http.Handler {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	c := config.Default()
	c.Auth.AccessSecret = testSecret
	c.Auth.Issuer = "taskchat"

	taskStore := store.NewTasks(database)
	registry := tools.NewRegistry()
	tools.RegisterTaskTools(registry, taskStore)

	return NewRouter(&svc.ServiceContext{
		Config:        c,
		DB:            database,
		Tasks:         taskStore,
		Conversations: store.NewConversations(database),
		Registry:      registry,
		Provider:      provider,
		Orchestrator:  orchestrator.New(provider, registry, 5, 0),
	})
}

func bearerFor(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"iss": "taskchat",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doJSON(t *testing.T, h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h := testRouter(t, &scriptedProvider{script: []*ai.Completion{{Text: "hi"}}})

	rec := doJSON(t, h, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	h := testRouter(t, &scriptedProvider{script: []*ai.Completion{{Text: "hi"}}})

	rec := doJSON(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatRequiresAuth(t *testing.T) {
	h := testRouter(t, &scriptedProvider{script: []*ai.Completion{{Text: "hi"}}})

	rec := doJSON(t, h, http.MethodPost, "/api/alice/chat", "", `{"message":"hello"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatPathTokenMismatchIsNotFound(t *testing.T) {
	h := testRouter(t, &scriptedProvider{script: []*ai.Completion{{Text: "hi"}}})

	rec := doJSON(t, h, http.MethodPost, "/api/alice/chat", bearerFor(t, "bob"), `{"message":"hello"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatEndToEnd(t *testing.T) {
	provider := &scriptedProvider{script: []*ai.Completion{
		{ToolCalls: []ai.ToolCall{{
			ID:    "call_1",
			Name:  "add_task",
			Input: json.RawMessage(`{"title":"buy groceries"}`),
		}}},
		{Text: "Added it!"},
	}}
	h := testRouter(t, provider)
	auth := bearerFor(t, "alice")

	rec := doJSON(t, h, http.MethodPost, "/api/alice/chat", auth, `{"message":"Add a task to buy groceries"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp types.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotZero(t, resp.ConversationID)
	assert.Equal(t, "Added it!", resp.Response)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "add_task", resp.ToolCalls[0].Name)
	assert.Equal(t, "success", resp.ToolCalls[0].Status)

	// The task is visible over the REST surface too.
	rec = doJSON(t, h, http.MethodGet, "/api/alice/tasks?status=pending", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "buy groceries")
}

func TestChatEmptyMessageIsBadRequest(t *testing.T) {
	h := testRouter(t, &scriptedProvider{script: []*ai.Completion{{Text: "hi"}}})

	rec := doJSON(t, h, http.MethodPost, "/api/alice/chat", bearerFor(t, "alice"), `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskRESTLifecycle(t *testing.T) {
	h := testRouter(t, &scriptedProvider{script: []*ai.Completion{{Text: "hi"}}})
	auth := bearerFor(t, "alice")

	rec := doJSON(t, h, http.MethodPost, "/api/alice/tasks", auth,
		`{"title":"write report","priority":"high","tags":["work"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created store.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "write report", created.Title)

	path := "/api/alice/tasks/" + jsonInt(created.ID)

	rec = doJSON(t, h, http.MethodPatch, path+"/complete", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/alice/tasks?status=completed", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "write report")

	rec = doJSON(t, h, http.MethodPut, path, auth, `{"title":"write final report"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "write final report")

	rec = doJSON(t, h, http.MethodDelete, path, auth, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, path, auth, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskRESTIsOwnerScoped(t *testing.T) {
	h := testRouter(t, &scriptedProvider{script: []*ai.Completion{{Text: "hi"}}})

	rec := doJSON(t, h, http.MethodPost, "/api/alice/tasks", bearerFor(t, "alice"), `{"title":"mine"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created store.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Bob cannot address Alice's routes or tasks.
	rec = doJSON(t, h, http.MethodGet, "/api/alice/tasks", bearerFor(t, "bob"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/bob/tasks/"+jsonInt(created.ID), bearerFor(t, "bob"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func jsonInt(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}
