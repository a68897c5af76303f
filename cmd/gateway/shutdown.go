package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

// runGateway starts the listeners and blocks until a shutdown signal.
func runGateway(app *application, configPath string, logger observability.Logger) {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.server.Start(context.Background())
	}()

	startMetricsServerIfEnabled(app, logger)
	watcher := startConfigWatcher(app, configPath, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", observability.Error(err))
		}
	}

	shutdown(app, watcher, logger)
}

// shutdown stops every component, draining in-flight requests first.
func shutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	timeout := app.config.Spec.Listener.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if err := app.server.Stop(ctx); err != nil {
		logger.Error("failed to stop HTTP server gracefully", observability.Error(err))
	}

	if app.metricsServer != nil {
		logger.Info("stopping metrics server")
		if err := app.metricsServer.Shutdown(ctx); err != nil {
			logger.Error("failed to stop metrics server gracefully", observability.Error(err))
		}
	}

	// pending cache writes must land before the store closes
	app.aggregator.Wait()

	if err := app.store.Close(); err != nil {
		logger.Error("failed to close cache", observability.Error(err))
	}

	if err := app.tracer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("gateway stopped")
}
