package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MetaboScope/internal/application/explorer"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MetaboScope/internal/interfaces/http/handlers"
	"github.com/turtacn/MetaboScope/internal/interfaces/http/middleware"
	"github.com/turtacn/MetaboScope/internal/testutil"
)

func newTestRouter(t *testing.T) (http.Handler, *testutil.MockLogger) {
	t.Helper()
	log := testutil.NewMockLogger()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "routertest"}, log)
	require.NoError(t, err)
	manager := explorer.NewManager(explorer.NewService(log, nil), explorer.NewMemoryStore(), log)

	r := NewRouter(RouterConfig{
		Mode:           "test",
		MaxBodySize:    1 << 20,
		SessionHandler: handlers.NewSessionHandler(manager, log),
		HealthHandler:  handlers.NewHealthHandler("test"),
		Logging:        middleware.DefaultLoggingConfig(),
		Logger:         log,
		Collector:      collector,
		Metrics:        prometheus.NewAppMetrics(collector),
	})
	return r, log
}

func request(r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewRouter_HealthEndpoints(t *testing.T) {
	r, log := newTestRouter(t)
	log.Clear()

	w := request(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = request(r, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, log.GetMessages(), "health checks are not logged")
}

func TestNewRouter_SessionFlow(t *testing.T) {
	r, log := newTestRouter(t)

	w := request(r, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created handlers.SummaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	model, err := json.Marshal(testutil.SmallModel())
	require.NoError(t, err)
	w = request(r, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/model", model)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = request(r, http.MethodPut, "/api/v1/sessions/"+created.SessionID+"/filter", []byte(`{"enabled":false}`))
	require.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodGet, "/api/v1/sessions/"+created.SessionID+"/network", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "reaction:HEX1")
	assert.True(t, log.HasMessage("info", "HTTP request completed"))
}

func TestNewRouter_NotFound(t *testing.T) {
	r, log := newTestRouter(t)

	w := request(r, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var env handlers.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "COMMON_005", env.Error.Code)
	assert.True(t, log.HasMessage("warn", "HTTP request completed with client error"))
}

func TestNewRouter_BodyLimit(t *testing.T) {
	r, _ := newTestRouter(t)
	w := request(r, http.MethodPost, "/api/v1/sessions", nil)
	var created handlers.SummaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	big := append([]byte(`{"metabolites":[{"id":"`), bytes.Repeat([]byte("a"), 2<<20)...)
	w = request(r, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/model", big)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestNewRouter_Metrics(t *testing.T) {
	r, _ := newTestRouter(t)
	request(r, http.MethodPost, "/api/v1/sessions", nil)

	w := request(r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `routertest_http_requests_total{method="POST",path="/api/v1/sessions",status_code="201"} 1`)
}

func TestNewRouter_OptionalHandlersAbsent(t *testing.T) {
	r, _ := newTestRouter(t)
	w := request(r, http.MethodPost, "/api/v1/sessions/x/graph", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
