package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/dashgw/internal/config"
	httpserver "github.com/vyrodovalexey/dashgw/internal/gateway/server/http"
	"github.com/vyrodovalexey/dashgw/internal/health"
	"github.com/vyrodovalexey/dashgw/internal/observability"
	"github.com/vyrodovalexey/dashgw/internal/records"
)

var allServices = []string{records.ServiceUser, records.ServiceAttendance, records.ServiceLeaves}

// recordsStore is what the services need from the database layer.
type recordsStore interface {
	records.Reader
	health.Pinger
	Close() error
}

// serviceServer is one listening records service.
type serviceServer struct {
	name   string
	port   int
	server *httpserver.Server
}

// application holds the running records services.
type application struct {
	store         recordsStore
	metrics       *observability.Metrics
	healthChecker *health.Checker
	servers       []serviceServer
}

// selectServices expands the -service value.
func selectServices(service string) ([]string, error) {
	if service == "" || service == "all" {
		return allServices, nil
	}
	if _, ok := records.DefaultPorts[service]; !ok {
		return nil, fmt.Errorf("unknown service %q", service)
	}
	return []string{service}, nil
}

// newApplication builds one HTTP server per service. A non-zero port
// overrides the default port and is only accepted for a single service.
func newApplication(store recordsStore, services []string, port int, logger observability.Logger) (*application, error) {
	if port != 0 && len(services) != 1 {
		return nil, errors.New("port override requires a single service")
	}

	metrics := observability.NewMetrics("dashgw_records")
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	healthMetrics := health.GetHealthMetrics()
	healthMetrics.MustRegister(metrics.Registry())
	healthMetrics.Init()

	checker := health.NewChecker(version, logger)
	checker.RegisterDependency(health.PingCheck("database", health.DependencyTypeDatabase, store))

	handlers := records.NewHandlers(store, logger)

	app := &application{
		store:         store,
		metrics:       metrics,
		healthChecker: checker,
	}

	for _, name := range services {
		p := port
		if p == 0 {
			p = records.DefaultPorts[name]
		}

		cfg := httpserver.DefaultServerConfig()
		cfg.Port = p
		srv := httpserver.NewServer(cfg, logger.With(observability.String("service", name)))
		srv.Use(httpserver.DefaultMiddleware(httpserver.MiddlewareConfig{
			Logger:  logger,
			Metrics: metrics,
			CORS:    config.CORSConfig{Enabled: true},
		})...)

		engine := srv.Engine()
		if err := handlers.Register(engine, name); err != nil {
			return nil, err
		}
		registerProbes(engine, checker, metrics)

		app.servers = append(app.servers, serviceServer{name: name, port: p, server: srv})
	}

	return app, nil
}

func registerProbes(engine *gin.Engine, checker *health.Checker, metrics *observability.Metrics) {
	engine.GET("/health", gin.WrapF(checker.HealthHandler()))
	engine.GET("/ready", gin.WrapF(checker.ReadinessHandler()))
	engine.GET("/live", gin.WrapF(checker.LivenessHandler()))
	engine.GET(config.DefaultMetricsPath, gin.WrapH(metrics.Handler()))
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// shutdown stops every server and closes the store.
func (a *application) shutdown(ctx context.Context, logger observability.Logger) {
	for _, s := range a.servers {
		if err := s.server.Stop(ctx); err != nil {
			logger.Error("failed to stop HTTP server gracefully",
				observability.String("service", s.name),
				observability.Int("port", s.port),
				observability.Error(err),
			)
		}
	}

	if err := a.store.Close(); err != nil {
		logger.Error("failed to close records store", observability.Error(err))
	}

	logger.Info("records services stopped")
}
