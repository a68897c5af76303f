package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/dashgw/internal/backend"
	"github.com/vyrodovalexey/dashgw/internal/cache"
	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/dashboard"
	httpserver "github.com/vyrodovalexey/dashgw/internal/gateway/server/http"
	"github.com/vyrodovalexey/dashgw/internal/health"
	"github.com/vyrodovalexey/dashgw/internal/observability"
	"github.com/vyrodovalexey/dashgw/internal/retry"
)

const cachePingTimeout = 2 * time.Second

// application holds all application components.
type application struct {
	config        *config.GatewayConfig
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	store         cache.Cache
	backends      *backend.Registry
	aggregator    *dashboard.Aggregator
	healthChecker *health.Checker
	server        *httpserver.Server
	metricsServer *http.Server
}

// initApplication wires every component from the configuration.
func initApplication(cfg *config.GatewayConfig, logger observability.Logger) (*application, error) {
	metrics := observability.NewMetrics("dashgw")
	metrics.SetBuildInfo(version, gitCommit, buildTime)
	registerComponentMetrics(metrics.Registry())

	tracer, err := initTracer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	store, err := cache.New(&cfg.Spec.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	pingCache(store, logger)

	backends, err := backend.NewRegistry(cfg.Spec.Backends, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create backends: %w", err)
	}

	identity := backends.MustGet(config.ServiceIdentity)
	attendance := backends.MustGet(config.ServiceAttendance)
	leaves := backends.MustGet(config.ServiceLeaveHistory)

	responses := dashboard.NewResponseCache(store, cfg.Spec.Cache.TTL.Duration(), logger)
	aggregator := dashboard.NewAggregator(identity, attendance, leaves, responses,
		dashboard.WithServeProbability(cfg.Spec.Aggregator.ServeProbability),
		dashboard.WithCoalescing(cfg.Spec.Aggregator.Coalesce),
		dashboard.WithLogger(logger),
	)

	healthChecker := health.NewChecker(version, logger)
	if cfg.Spec.Cache.Enabled {
		healthChecker.RegisterDependency(health.PingCheck("cache", health.DependencyTypeCache, store,
			health.WithCritical(false)))
	}
	for _, name := range backends.Names() {
		client := backends.MustGet(name)
		healthChecker.RegisterDependency(health.BreakerCheck(name, client.BreakerState,
			health.WithCritical(false)))
	}

	server := httpserver.NewServer(httpserver.ServerConfigFromListener(cfg.Spec.Listener), logger)
	server.Use(httpserver.DefaultMiddleware(httpserver.MiddlewareConfig{
		Logger:      logger,
		Metrics:     metrics,
		CORS:        cfg.Spec.CORS,
		ServiceName: tracerServiceName(cfg),
		Tracing:     tracer.Enabled(),
	})...)
	httpserver.RegisterRoutes(server.Engine(), httpserver.RouterConfig{
		Aggregator:   aggregator,
		Identity:     identity,
		Attendance:   attendance,
		LeaveHistory: leaves,
		Health:       healthChecker,
		Logger:       logger,
	})

	return &application{
		config:        cfg,
		metrics:       metrics,
		tracer:        tracer,
		store:         store,
		backends:      backends,
		aggregator:    aggregator,
		healthChecker: healthChecker,
		server:        server,
	}, nil
}

// registerComponentMetrics bridges the package-level collectors into the
// registry served on /metrics.
func registerComponentMetrics(registry *prometheus.Registry) {
	retry.GetRetryMetrics().MustRegister(registry)

	cacheMetrics := cache.GetCacheMetrics()
	cacheMetrics.MustRegister(registry)
	cacheMetrics.Init()

	backend.GetBackendMetrics().MustRegister(registry)
	dashboard.GetDashboardMetrics().MustRegister(registry)

	healthMetrics := health.GetHealthMetrics()
	healthMetrics.MustRegister(registry)
	healthMetrics.Init()
}

// pingCache checks the cache store once. The gateway serves without a
// cache, so an unreachable store is only reported.
func pingCache(store cache.Cache, logger observability.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cachePingTimeout)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		logger.Warn("cache store unreachable, continuing without cache until it recovers",
			observability.Error(err),
		)
	}
}

func tracerServiceName(cfg *config.GatewayConfig) string {
	if name := cfg.Spec.Observability.Tracing.ServiceName; name != "" {
		return name
	}
	return "dashgw"
}

// initTracer initializes the tracer.
func initTracer(cfg *config.GatewayConfig) (*observability.Tracer, error) {
	t := cfg.Spec.Observability.Tracing
	return observability.NewTracer(observability.TracerConfig{
		ServiceName:  tracerServiceName(cfg),
		OTLPEndpoint: t.OTLPEndpoint,
		SamplingRate: t.SamplingRate,
		Enabled:      t.Enabled,
	})
}
