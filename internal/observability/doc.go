// Package observability provides logging, metrics, and tracing
// functionality for the dashboard gateway.
//
// Structured logging is provided through the Logger interface backed by
// zap. HTTP metrics are collected into a dedicated Prometheus registry
// exposed by Metrics.Handler; other packages register their collectors
// on the same registry. Tracing uses OpenTelemetry with an optional OTLP
// gRPC exporter.
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("request processed",
//	    observability.String("method", "GET"),
//	    observability.Int("status", 200),
//	)
package observability
