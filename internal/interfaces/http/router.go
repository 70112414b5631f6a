// Package http wires the gin engine, its middleware chain and the HTTP
// server lifecycle.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ProbAL-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/ProbAL-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the route tree.
type RouterConfig struct {
	// Handlers
	QueryHandler  *handlers.QueryHandler
	HealthHandler *handlers.HealthHandler

	// Middleware
	Logging     middleware.LoggingConfig
	MaxBodySize int64

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter constructs the gin engine: global middleware, public probe and
// metrics endpoints, and the /api/v1 group.  Nil handlers leave their routes
// unregistered.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	logger := cfg.Logger.Named("http")

	r := gin.New()
	r.NoRoute(handlers.NotFound())

	// --- Global middleware ---
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger, cfg.Metrics, cfg.Logging))
	r.Use(middleware.BodyLimit(cfg.MaxBodySize))

	// --- Public endpoints ---
	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	// --- API v1 ---
	api := r.Group("/api/v1")
	if cfg.QueryHandler != nil {
		cfg.QueryHandler.RegisterRoutes(api)
	}

	return r
}
