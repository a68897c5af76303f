package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

func TestDefaultServerConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultServerConfig()

	assert.Equal(t, 3000, cfg.Port)
	assert.Empty(t, cfg.Address)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 1<<20, cfg.MaxHeaderBytes)
	assert.NotSame(t, cfg, DefaultServerConfig())
}

func TestServerConfigFromListener(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		listener config.ListenerConfig
		expected ServerConfig
	}{
		{
			name:     "zero values keep defaults",
			listener: config.ListenerConfig{},
			expected: *DefaultServerConfig(),
		},
		{
			name: "overrides",
			listener: config.ListenerConfig{
				Address:      "127.0.0.1",
				Port:         8088,
				ReadTimeout:  config.Duration(5 * time.Second),
				WriteTimeout: config.Duration(6 * time.Second),
				IdleTimeout:  config.Duration(7 * time.Second),
			},
			expected: ServerConfig{
				Address:        "127.0.0.1",
				Port:           8088,
				ReadTimeout:    5 * time.Second,
				WriteTimeout:   6 * time.Second,
				IdleTimeout:    7 * time.Second,
				MaxHeaderBytes: 1 << 20,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, *ServerConfigFromListener(tt.listener))
		})
	}
}

func TestNewServer_Defaults(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, nil)

	require.NotNil(t, s.Engine())
	assert.Equal(t, DefaultServerConfig(), s.config)
	assert.False(t, s.IsRunning())
	assert.Empty(t, s.Addr())
	assert.NoError(t, s.Stop(context.Background()))
}

func TestServer_StartStop(t *testing.T) {
	t.Parallel()

	s := NewServer(&ServerConfig{Address: "127.0.0.1", Port: 0}, observability.NopLogger())
	s.Use(func(c *gin.Context) {
		c.Header("X-Test", "1")
		c.Next()
	})
	s.Engine().GET("/live", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start(context.Background())
	}()

	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(context.Background()), "second start must fail")

	resp, err := http.Get("http://" + s.Addr() + "/live")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "1", resp.Header.Get("X-Test"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	s := NewServer(&ServerConfig{Address: "127.0.0.1", Port: port}, observability.NopLogger())

	err = s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
	assert.False(t, s.IsRunning())
}
