// Package http serves the run status, health probes and Prometheus metrics
// of a ReactEA process.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ReactEA/internal/interfaces/http/handlers"
	"github.com/turtacn/ReactEA/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the dependencies of the route tree. Nil fields
// leave their routes unregistered.
type RouterConfig struct {
	HealthHandler *handlers.HealthHandler
	StatusHandler *handlers.StatusHandler

	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter builds the route tree:
//
//	GET /healthz   liveness
//	GET /readyz    readiness of the configured backends
//	GET /status    progress of the current run
//	GET /metrics   Prometheus exposition
func NewRouter(cfg RouterConfig) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.StatusHandler != nil {
		r.GET("/status", cfg.StatusHandler.Get)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}
	return r
}
