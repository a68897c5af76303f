package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/dashgw/internal/backend"
	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/dashboard"
	"github.com/vyrodovalexey/dashgw/internal/gateway/server/http/middleware"
	"github.com/vyrodovalexey/dashgw/internal/health"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

// Aggregator builds the dashboard composite for a key.
type Aggregator interface {
	Aggregate(ctx context.Context, key dashboard.Key) (dashboard.Composite, error)
}

// RouterConfig holds everything the public routes are served from.
type RouterConfig struct {
	Aggregator   Aggregator
	Identity     dashboard.Fetcher
	Attendance   dashboard.Fetcher
	LeaveHistory dashboard.Fetcher

	// Health is optional; when nil the probe routes are not registered.
	Health *health.Checker

	Logger observability.Logger
}

// MiddlewareConfig selects the middleware chain of the public listener.
type MiddlewareConfig struct {
	Logger      observability.Logger
	Metrics     *observability.Metrics
	CORS        config.CORSConfig
	ServiceName string
	Tracing     bool
}

// DefaultMiddleware returns the middleware chain in application order.
func DefaultMiddleware(cfg MiddlewareConfig) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{
		middleware.Logging(cfg.Logger),
		middleware.Recovery(cfg.Logger),
	}
	if cfg.Tracing {
		chain = append(chain, middleware.Tracing(cfg.ServiceName))
	}
	if cfg.Metrics != nil {
		chain = append(chain, cfg.Metrics.GinMiddleware())
	}
	if cfg.CORS.Enabled {
		chain = append(chain, middleware.CORS(cfg.CORS))
	}
	return chain
}

// RegisterRoutes registers the dashboard, proxy and probe routes.
func RegisterRoutes(engine *gin.Engine, cfg RouterConfig) {
	h := newHandlers(cfg)

	engine.GET("/user/:subject_id/dashboard/:period", h.getDashboard)
	engine.GET("/user/:subject_id", h.proxy(cfg.Identity))
	engine.GET("/attendance/:subject_id/:period", h.proxy(cfg.Attendance))
	engine.GET("/leaves/:subject_id/history", h.proxy(cfg.LeaveHistory))

	if cfg.Health != nil {
		engine.GET("/health", gin.WrapF(cfg.Health.HealthHandler()))
		engine.GET("/ready", gin.WrapF(cfg.Health.ReadinessHandler()))
		engine.GET("/live", gin.WrapF(cfg.Health.LivenessHandler()))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// params extracts backend call parameters from the matched route.
func params(c *gin.Context) backend.Params {
	return backend.Params{
		SubjectID: c.Param("subject_id"),
		Period:    c.Param("period"),
	}
}
