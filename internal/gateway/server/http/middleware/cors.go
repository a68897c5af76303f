package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/dashgw/internal/config"
)

// CORS returns a middleware applying the configured cross-origin policy.
// An empty origin list or "*" allows every origin.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	return cors.New(corsConfig(cfg))
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  cfg.AllowMethods,
		AllowHeaders:  cfg.AllowHeaders,
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	if len(c.AllowMethods) == 0 {
		c.AllowMethods = []string{"GET", "OPTIONS"}
	}
	if len(c.AllowHeaders) == 0 {
		c.AllowHeaders = []string{"Content-Type", RequestIDHeader}
	}

	if len(cfg.AllowOrigins) == 0 || slices.Contains(cfg.AllowOrigins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowOrigins
	}

	return c
}
