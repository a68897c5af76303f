// Package main is the entry point for the dashboard gateway.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// exitFunc is replaced in tests.
var exitFunc = os.Exit

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool

	// logLevelSet reports whether the level came from the command line or
	// environment, in which case it wins over the configuration file.
	logLevelSet bool
}

func main() {
	flags := parseFlags(flag.CommandLine, os.Args[1:])

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg, err := loadAndValidateConfig(flags.configPath, logger)
	if err != nil {
		fatalWithSync(logger, "invalid configuration", observability.Error(err))
		return
	}
	if !flags.logLevelSet {
		applyLogLevel(logger, cfg.Spec.Observability.Logging.Level)
	}

	app, err := initApplication(cfg, logger)
	if err != nil {
		fatalWithSync(logger, "failed to initialize gateway", observability.Error(err))
		return
	}

	runGateway(app, flags.configPath, logger)
}

// parseFlags parses command line flags with environment fallbacks.
func parseFlags(fs *flag.FlagSet, args []string) cliFlags {
	configPath := fs.String("config", getEnvOrDefault("GATEWAY_CONFIG_PATH", "configs/gateway.yaml"),
		"Path to configuration file")
	logLevel := fs.String("log-level", getEnvOrDefault("GATEWAY_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", getEnvOrDefault("GATEWAY_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := fs.Bool("version", false, "Show version information")
	_ = fs.Parse(args)

	levelSet := os.Getenv("GATEWAY_LOG_LEVEL") != ""
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "log-level" {
			levelSet = true
		}
	})

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
		logLevelSet: levelSet,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("dashgw version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		exitFunc(1)
		return observability.NopLogger()
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) (*config.GatewayConfig, error) {
	logger.Info("starting dashgw",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	logger.Info("configuration loaded",
		observability.String("name", cfg.Metadata.Name),
		observability.Int("port", cfg.Spec.Listener.Port),
		observability.String("cache", cacheDescription(&cfg.Spec.Cache)),
		observability.Float64("serve_probability", cfg.Spec.Aggregator.ServeProbability),
		observability.Bool("coalesce", cfg.Spec.Aggregator.Coalesce),
	)

	return cfg, nil
}

func cacheDescription(c *config.CacheConfig) string {
	if !c.Enabled {
		return "disabled"
	}
	if c.Type == "" {
		return config.CacheTypeMemory
	}
	return c.Type
}

// applyLogLevel changes the level of loggers that support it.
func applyLogLevel(logger observability.Logger, level string) {
	if level == "" {
		return
	}
	setter, ok := logger.(observability.LevelSetter)
	if !ok {
		return
	}
	if err := setter.SetLevel(level); err != nil {
		logger.Warn("failed to apply log level",
			observability.String("level", level),
			observability.Error(err),
		)
	}
}

// fatalWithSync logs, flushes the logger and exits.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	logger.Error(msg, fields...)
	_ = logger.Sync()
	exitFunc(1)
}
