package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirebot-dev/hirebot/pkg/chat/config"
	"github.com/hirebot-dev/hirebot/pkg/chat/coordinator"
	"github.com/hirebot-dev/hirebot/pkg/chat/models"
	"github.com/hirebot-dev/hirebot/pkg/chat/providers"
	"github.com/hirebot-dev/hirebot/pkg/chat/store"
	"github.com/hirebot-dev/hirebot/pkg/chat/tools"
)

type scriptedProvider struct {
	reply string
}

func (p *scriptedProvider) Chat(context.Context, providers.Request) (*providers.Response, error) {
	return &providers.Response{Content: p.reply, FinishReason: "stop"}, nil
}

func (p *scriptedProvider) ChatStream(context.Context, providers.Request) (<-chan providers.StreamChunk, <-chan error) {
	chunks := make(chan providers.StreamChunk)
	errs := make(chan error)
	close(chunks)
	return chunks, errs
}

func (p *scriptedProvider) Name() string              { return config.ProviderOpenAI }
func (p *scriptedProvider) SupportedModels() []string { return []string{"gpt-test"} }
func (p *scriptedProvider) SupportsTools() bool       { return false }

func newTestServer(t *testing.T, provider providers.Provider) (*Server, store.Store) {
	t.Helper()

	st := store.NewMemoryStore()
	registry := providers.NewRegistry()
	require.NoError(t, registry.Register(provider))

	creds := config.NewCredentials(&config.Config{
		Providers: []config.ProviderConfig{
			{Name: config.ProviderOpenAI, Model: "gpt-test", APIKey: "sk-live"},
		},
	})

	promReg := prometheus.NewRegistry()
	coord := coordinator.New(st, registry, creds, tools.NewDispatcher(), logr.Discard(), coordinator.NewMetrics(promReg))

	return NewServer(config.ServerConfig{}, st, coord, registry, creds, promReg, logr.Discard()), st
}

func do(t *testing.T, srv *Server, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedProvider{reply: "hi"})
	rec := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestServer_RequiresUser(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedProvider{reply: "hi"})
	rec := do(t, srv, http.MethodGet, "/api/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_AUTHENTICATED", resp.Error.Code)
}

func TestServer_SessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedProvider{reply: "hi"})

	rec := do(t, srv, http.MethodPost, "/api/sessions", "user-1", createSessionRequest{
		EmployeeID: "emp-researcher",
		Provider:   config.ProviderOpenAI,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var sess models.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.NotEmpty(t, sess.ID)

	rec = do(t, srv, http.MethodGet, "/api/sessions", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []models.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+sess.ID, "user-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/sessions/"+sess.ID, "user-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+sess.ID, "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ForeignSessionReadsAsNotFound(t *testing.T) {
	srv, st := newTestServer(t, &scriptedProvider{reply: "hi"})
	sess, err := st.CreateSession(context.Background(), "user-1", "emp-1", config.ProviderOpenAI)
	require.NoError(t, err)

	rec := do(t, srv, http.MethodGet, "/api/sessions/"+sess.ID, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, http.MethodDelete, "/api/sessions/"+sess.ID, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SendMessage(t *testing.T) {
	srv, st := newTestServer(t, &scriptedProvider{reply: "Hi there"})
	sess, err := st.CreateSession(context.Background(), "user-1", "emp-1", config.ProviderOpenAI)
	require.NoError(t, err)

	rec := do(t, srv, http.MethodPost, "/api/sessions/"+sess.ID+"/messages", "user-1",
		sendMessageRequest{Text: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.AssistantMessage)
	assert.Equal(t, "Hi there", resp.AssistantMessage.Content)
	assert.Nil(t, resp.Error)

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+sess.ID+"/messages", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
}

func TestServer_SendMessageEmptyText(t *testing.T) {
	srv, st := newTestServer(t, &scriptedProvider{reply: "hi"})
	sess, err := st.CreateSession(context.Background(), "user-1", "emp-1", config.ProviderOpenAI)
	require.NoError(t, err)

	rec := do(t, srv, http.MethodPost, "/api/sessions/"+sess.ID+"/messages", "user-1",
		sendMessageRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SendMessageUnconfiguredProvider(t *testing.T) {
	srv, st := newTestServer(t, &scriptedProvider{reply: "hi"})
	sess, err := st.CreateSession(context.Background(), "user-1", "emp-1", config.ProviderAnthropic)
	require.NoError(t, err)

	rec := do(t, srv, http.MethodPost, "/api/sessions/"+sess.ID+"/messages", "user-1",
		sendMessageRequest{Text: "hello"})
	require.Equal(t, http.StatusConflict, rec.Code)

	// The user message made it into history and comes back in the response.
	var resp sendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.UserMessage)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PROVIDER_NOT_CONFIGURED", resp.Error.Code)
}

func TestServer_ListProviders(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedProvider{reply: "hi"})

	rec := do(t, srv, http.MethodGet, "/api/providers", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var statuses []providerStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, config.ProviderOpenAI, statuses[0].Name)
	assert.True(t, statuses[0].Configured)
	assert.Equal(t, []string{"gpt-test"}, statuses[0].Models)
}

func TestServer_RateLimitPerUser(t *testing.T) {
	st := store.NewMemoryStore()
	registry := providers.NewRegistry()
	require.NoError(t, registry.Register(&scriptedProvider{reply: "hi"}))
	creds := config.NewCredentials(&config.Config{})
	promReg := prometheus.NewRegistry()
	coord := coordinator.New(st, registry, creds, tools.NewDispatcher(), logr.Discard(), coordinator.NewMetrics(promReg))

	// Tiny refill rate so the burst is effectively the whole allowance.
	srv := NewServer(config.ServerConfig{
		RateLimit: config.RateLimitConfig{PerSecond: 0.01, Burst: 2},
	}, st, coord, registry, creds, promReg, logr.Discard())

	for i := 0; i < 2; i++ {
		rec := do(t, srv, http.MethodGet, "/api/sessions", "user-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, srv, http.MethodGet, "/api/sessions", "user-1", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RATE_LIMITED", resp.Error.Code)

	// Another user has their own bucket.
	rec = do(t, srv, http.MethodGet, "/api/sessions", "user-2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedProvider{reply: "hi"})
	rec := do(t, srv, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
