package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/turtacn/MetaboScope/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newLoggedRouter(log *testutil.MockLogger, cfg LoggingConfig) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogging(log, cfg))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/slow", func(c *gin.Context) {
		time.Sleep(5 * time.Millisecond)
		c.Status(http.StatusOK)
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRequestLogging_LevelByStatus(t *testing.T) {
	tests := []struct {
		path  string
		level string
		msg   string
	}{
		{"/ok", "info", "HTTP request completed"},
		{"/bad", "warn", "HTTP request completed with client error"},
		{"/boom", "error", "HTTP request completed with server error"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			log := testutil.NewMockLogger()
			serve(newLoggedRouter(log, DefaultLoggingConfig()), http.MethodGet, tt.path, nil)
			assert.True(t, log.HasMessage(tt.level, tt.msg))
		})
	}
}

func TestRequestLogging_Slow(t *testing.T) {
	log := testutil.NewMockLogger()
	serve(newLoggedRouter(log, LoggingConfig{SlowThreshold: time.Millisecond}), http.MethodGet, "/slow", nil)
	assert.True(t, log.HasMessage("warn", "HTTP request completed (slow)"))
}

func TestRequestLogging_SkipPaths(t *testing.T) {
	log := testutil.NewMockLogger()
	serve(newLoggedRouter(log, DefaultLoggingConfig()), http.MethodGet, "/healthz", nil)
	assert.Empty(t, log.GetMessages())
}

func TestRecovery(t *testing.T) {
	log := testutil.NewMockLogger()
	r := gin.New()
	r.Use(Recovery(log))
	r.GET("/panic", func(*gin.Context) { panic("kaboom") })

	w := serve(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.True(t, log.HasMessage("error", "panic recovered"))
}
