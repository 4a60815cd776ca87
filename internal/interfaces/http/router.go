package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MetaboScope/internal/interfaces/http/handlers"
	"github.com/turtacn/MetaboScope/internal/interfaces/http/middleware"
)

// RouterConfig wires handlers and middleware into the route tree. Optional
// handlers left nil simply leave their routes unregistered.
type RouterConfig struct {
	Mode        string
	MaxBodySize int64

	SessionHandler *handlers.SessionHandler
	GraphHandler   *handlers.GraphHandler
	SearchHandler  *handlers.SearchHandler
	HealthHandler  *handlers.HealthHandler

	Logging middleware.LoggingConfig
	CORS    *middleware.CORSConfig

	Logger      logging.Logger
	Collector   prometheus.MetricsCollector
	Metrics     *prometheus.AppMetrics
	MetricsPath string
}

// NewRouter builds the gin engine: health and metrics at the root, the
// session API under /api/v1.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger, cfg.Logging))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.MaxBodySize > 0 {
		r.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxBodySize)
			c.Next()
		})
	}

	r.NoRoute(func(c *gin.Context) {
		handlers.RespondError(c, http.StatusNotFound, "COMMON_005", errRouteNotFound)
	})

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Collector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.Collector.Handler()))
	}

	v1 := r.Group("/api/v1")
	if h := cfg.SessionHandler; h != nil {
		v1.POST("/sessions", h.Create)
		s := v1.Group("/sessions/:id")
		s.DELETE("", h.Delete)
		s.POST("/model", h.LoadModel)
		s.GET("/summary", h.Summary)
		s.POST("/selections/toggle", h.ToggleSelection)
		s.PUT("/filter", h.SetFilter)
		s.PUT("/compartmentalization", h.SetCompartmentalization)
		s.POST("/simplifications/toggle", h.ToggleSimplification)
		s.PUT("/search", h.SetSearch)
		s.PUT("/sort", h.SetSort)
		s.GET("/network", h.Network)
		s.GET("/context", h.Context)
		s.GET("/diagnostics", h.Diagnostics)
		s.POST("/snapshots", h.SaveSnapshot)
		s.GET("/snapshots", h.ListSnapshots)
		s.POST("/snapshots/:snapshot/restore", h.RestoreSnapshot)
	}
	if h := cfg.GraphHandler; h != nil {
		v1.POST("/sessions/:id/graph", h.Export)
		v1.GET("/sessions/:id/graph/ego", h.Ego)
	}
	if h := cfg.SearchHandler; h != nil {
		v1.POST("/sessions/:id/index", h.Index)
		v1.GET("/sessions/:id/entities", h.Search)
	}
	return r
}
