// Package main is the entry point for the records services that back the
// dashboard gateway: user identity, attendance and leave history.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vyrodovalexey/dashgw/internal/observability"
	"github.com/vyrodovalexey/dashgw/internal/records"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// exitFunc is replaced in tests.
var exitFunc = os.Exit

const shutdownTimeout = 15 * time.Second

// cliFlags holds command line flags.
type cliFlags struct {
	service     string
	port        int
	primaryDSN  string
	replicaDSNs []string
	migrate     bool
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags(flag.CommandLine, os.Args[1:])

	if flags.showVersion {
		printVersion()
		return
	}

	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		exitFunc(1)
		return
	}
	observability.SetGlobalLogger(logger)
	defer func() { _ = logger.Sync() }()

	services, err := selectServices(flags.service)
	if err != nil {
		fatalWithSync(logger, "invalid service selection", observability.Error(err))
		return
	}

	store, err := records.Open(records.StoreConfig{
		PrimaryDSN:    flags.primaryDSN,
		ReplicaDSNs:   flags.replicaDSNs,
		SlowThreshold: 200 * time.Millisecond,
	}, logger)
	if err != nil {
		fatalWithSync(logger, "failed to open records store", observability.Error(err))
		return
	}

	if flags.migrate {
		if err := store.Migrate(context.Background()); err != nil {
			fatalWithSync(logger, "failed to migrate records schema", observability.Error(err))
			return
		}
		logger.Info("records schema migrated")
	}

	app, err := newApplication(store, services, flags.port, logger)
	if err != nil {
		_ = store.Close()
		fatalWithSync(logger, "failed to initialize records services", observability.Error(err))
		return
	}

	run(app, logger)
}

// parseFlags parses command line flags with environment fallbacks.
func parseFlags(fs *flag.FlagSet, args []string) cliFlags {
	service := fs.String("service", getEnvOrDefault("RECORDS_SERVICE", "all"),
		"Service to run (user, attendance, leaves, all)")
	port := fs.Int("port", getEnvIntOrDefault("RECORDS_PORT", 0),
		"Listen port; only valid with a single service")
	primaryDSN := fs.String("primary-dsn", os.Getenv("RECORDS_PRIMARY_DSN"),
		"PostgreSQL DSN of the primary database")
	replicaDSNs := fs.String("replica-dsns", os.Getenv("RECORDS_REPLICA_DSNS"),
		"Comma-separated PostgreSQL DSNs of read replicas")
	migrate := fs.Bool("migrate", getEnvOrDefault("RECORDS_MIGRATE", "false") == "true",
		"Create or update the records schema on startup")
	logLevel := fs.String("log-level", getEnvOrDefault("RECORDS_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", getEnvOrDefault("RECORDS_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := fs.Bool("version", false, "Show version information")
	_ = fs.Parse(args)

	return cliFlags{
		service:     *service,
		port:        *port,
		primaryDSN:  *primaryDSN,
		replicaDSNs: splitList(*replicaDSNs),
		migrate:     *migrate,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("dashgw-records version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// run starts every service and blocks until a shutdown signal or the
// first server failure.
func run(app *application, logger observability.Logger) {
	serverErr := make(chan error, len(app.servers))
	for _, s := range app.servers {
		go func() {
			serverErr <- s.server.Start(context.Background())
		}()
	}

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

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	app.shutdown(ctx, logger)
}

// fatalWithSync logs, flushes the logger and exits.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	logger.Error(msg, fields...)
	_ = logger.Sync()
	exitFunc(1)
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the environment variable parsed as int or a default.
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
