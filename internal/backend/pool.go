package backend

import (
	"net"
	"net/http"
	"time"
)

// PoolConfig contains connection pool configuration shared by the
// backend clients.
type PoolConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
}

// DefaultPoolConfig returns default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32,
		MaxConnsPerHost:     0,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         2 * time.Second,
	}
}

// NewHTTPClient creates an HTTP client with pooled keep-alive connections.
// The client has no overall timeout; each call is bounded by its context.
func NewHTTPClient(cfg PoolConfig) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}

	return &http.Client{Transport: transport}
}
