package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/health"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

// createMetricsServer creates the metrics and probe HTTP server.
func createMetricsServer(
	port int,
	path string,
	metrics *observability.Metrics,
	healthChecker *health.Checker,
	logger observability.Logger,
) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	mux.HandleFunc("/health", healthChecker.HealthHandler())
	mux.HandleFunc("/ready", healthChecker.ReadinessHandler())
	mux.HandleFunc("/live", healthChecker.LivenessHandler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("starting metrics server",
		observability.String("address", addr),
		observability.String("metrics_path", path),
	)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// runMetricsServer runs the metrics HTTP server.
func runMetricsServer(server *http.Server, logger observability.Logger) {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server error", observability.Error(err))
	}
}

// startMetricsServerIfEnabled starts the metrics server if enabled.
func startMetricsServerIfEnabled(app *application, logger observability.Logger) {
	m := app.config.Spec.Observability.Metrics
	if !m.Enabled {
		return
	}

	path := m.Path
	if path == "" {
		path = config.DefaultMetricsPath
	}
	port := m.Port
	if port == 0 {
		port = config.DefaultMetricsPort
	}

	app.metricsServer = createMetricsServer(port, path, app.metrics, app.healthChecker, logger)
	go runMetricsServer(app.metricsServer, logger)
}
