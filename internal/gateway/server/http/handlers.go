package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/dashgw/internal/dashboard"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

const contentTypeJSON = "application/json; charset=utf-8"

type handlers struct {
	aggregator Aggregator
	logger     observability.Logger
}

func newHandlers(cfg RouterConfig) *handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &handlers{aggregator: cfg.Aggregator, logger: logger}
}

// getDashboard serves the aggregated composite for a subject and period.
func (h *handlers) getDashboard(c *gin.Context) {
	key := dashboard.NewKey(c.Param("subject_id"), c.Param("period"))

	composite, err := h.aggregator.Aggregate(c.Request.Context(), key)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, composite)
}

// proxy forwards the request to a single backend and relays its payload.
func (h *handlers) proxy(f dashboard.Fetcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := f.Fetch(c.Request.Context(), params(c))
		if out.Err != nil {
			h.fail(c, out.Err)
			return
		}
		c.Data(http.StatusOK, contentTypeJSON, out.Payload)
	}
}

// fail answers every failure cause with 500 and the error message.
func (h *handlers) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	h.logger.WithContext(c.Request.Context()).Error("request failed",
		observability.String("route", c.FullPath()),
		observability.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
