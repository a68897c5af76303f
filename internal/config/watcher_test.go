package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path string, probability string) {
	t.Helper()
	content := "spec:\n  aggregator:\n    serveProbability: " + probability + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestNewWatcher(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, path, "0.8")

	w, err := NewWatcher(path, func(*GatewayConfig) {}, WithDebounceDelay(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	assert.Equal(t, path, w.path)
	assert.Equal(t, 10*time.Millisecond, w.debounceDelay)
	assert.Nil(t, w.LastConfig())
}

func TestWatcher_StartInvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, path, "3")

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	require.Error(t, w.Start(context.Background()))
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, path, "0.8")

	var latest atomic.Value
	w, err := NewWatcher(path, func(cfg *GatewayConfig) {
		latest.Store(cfg.Spec.Aggregator.ServeProbability)
	}, WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	assert.InDelta(t, 0.8, w.LastConfig().Spec.Aggregator.ServeProbability, 1e-9)

	writeConfig(t, path, "0.25")

	require.Eventually(t, func() bool {
		v, ok := latest.Load().(float64)
		return ok && v == 0.25
	}, 3*time.Second, 20*time.Millisecond)
	assert.InDelta(t, 0.25, w.LastConfig().Spec.Aggregator.ServeProbability, 1e-9)
}

func TestWatcher_KeepsLastGoodConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, path, "0.8")

	var calls atomic.Int32
	w, err := NewWatcher(path, func(*GatewayConfig) { calls.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	writeConfig(t, path, "7")
	w.reload()

	assert.Zero(t, calls.Load())
	assert.InDelta(t, 0.8, w.LastConfig().Spec.Aggregator.ServeProbability, 1e-9)
}
