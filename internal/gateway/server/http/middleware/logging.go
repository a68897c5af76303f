// Package middleware provides gin middleware for the public listener.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vyrodovalexey/dashgw/internal/observability"
)

const (
	// RequestIDHeader is the header name for request ID.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key for request ID.
	RequestIDKey = "requestID"
)

// LoggingConfig holds configuration for the logging middleware.
type LoggingConfig struct {
	Logger          observability.Logger
	SkipPaths       []string
	SkipHealthCheck bool
}

// Logging returns a middleware that assigns request IDs and logs requests.
func Logging(logger observability.Logger) gin.HandlerFunc {
	return LoggingWithConfig(LoggingConfig{Logger: logger, SkipHealthCheck: true})
}

func isHealthCheckPath(path string) bool {
	return path == "/health" || path == "/ready" || path == "/live"
}

func buildLogFields(c *gin.Context, requestID, path string, latency time.Duration, status int) []observability.Field {
	fields := []observability.Field{
		observability.String("requestID", requestID),
		observability.String("method", c.Request.Method),
		observability.String("path", path),
		observability.String("route", c.FullPath()),
		observability.Int("status", status),
		observability.Duration("latency", latency),
		observability.String("clientIP", c.ClientIP()),
		observability.String("userAgent", c.Request.UserAgent()),
		observability.Int("bodySize", c.Writer.Size()),
	}

	if len(c.Errors) > 0 {
		fields = append(fields, observability.String("errors", c.Errors.String()))
	}

	return fields
}

func logRequestByStatus(logger observability.Logger, status int, fields []observability.Field) {
	switch {
	case status >= 500:
		logger.Error("request completed", fields...)
	case status >= 400:
		logger.Warn("request completed", fields...)
	default:
		logger.Info("request completed", fields...)
	}
}

// LoggingWithConfig returns a logging middleware with custom configuration.
// The request ID is also stored in the request context so backend calls
// forward it.
func LoggingWithConfig(config LoggingConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = observability.NopLogger()
	}

	skipPaths := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(
			observability.ContextWithRequestID(c.Request.Context(), requestID),
		)

		c.Next()

		if skipPaths[path] || (config.SkipHealthCheck && isHealthCheckPath(path)) {
			return
		}

		status := c.Writer.Status()
		logRequestByStatus(config.Logger, status, buildLogFields(c, requestID, path, time.Since(start), status))
	}
}

// GetRequestID returns the request ID from the context.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		if requestID, ok := id.(string); ok {
			return requestID
		}
	}
	return ""
}
