package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/dashgw/internal/observability"
)

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	Logger           observability.Logger
	EnableStackTrace bool
}

// Recovery returns a middleware that recovers from panics.
func Recovery(logger observability.Logger) gin.HandlerFunc {
	return RecoveryWithConfig(RecoveryConfig{
		Logger:           logger,
		EnableStackTrace: true,
	})
}

// RecoveryWithConfig returns a recovery middleware with custom configuration.
// Panics are answered with the same error body as any other failure.
func RecoveryWithConfig(config RecoveryConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = observability.NopLogger()
	}

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			fields := []observability.Field{
				observability.Any("error", rec),
				observability.String("method", c.Request.Method),
				observability.String("path", c.Request.URL.Path),
				observability.String("clientIP", c.ClientIP()),
			}
			if requestID := GetRequestID(c); requestID != "" {
				fields = append(fields, observability.String("requestID", requestID))
			}
			if config.EnableStackTrace {
				fields = append(fields, observability.String("stack", string(debug.Stack())))
			}
			config.Logger.Error("panic recovered", fields...)

			if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
				span.RecordError(fmt.Errorf("panic: %v", rec))
				span.SetStatus(codes.Error, "panic")
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "internal server error",
			})
		}()

		c.Next()
	}
}
