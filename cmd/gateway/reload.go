package main

import (
	"context"

	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

// startConfigWatcher watches the configuration file and applies the
// settings that can change without a restart. Watch failures are logged
// and the gateway keeps running with its startup configuration.
func startConfigWatcher(app *application, configPath string, logger observability.Logger) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, reloadCallback(app, logger),
		config.WithLogger(logger),
	)
	if err != nil {
		logger.Warn("config watcher unavailable", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		_ = watcher.Stop()
		return nil
	}

	return watcher
}

// reloadCallback applies hot-reloadable settings: the serve probability
// and the log level. Everything else needs a restart.
func reloadCallback(app *application, logger observability.Logger) config.ConfigCallback {
	return func(cfg *config.GatewayConfig) {
		p := cfg.Spec.Aggregator.ServeProbability
		if old := app.aggregator.ServeProbability(); old != p {
			app.aggregator.SetServeProbability(p)
			logger.Info("serve probability updated",
				observability.Float64("old", old),
				observability.Float64("new", p),
			)
		}

		applyLogLevel(logger, cfg.Spec.Observability.Logging.Level)
	}
}
