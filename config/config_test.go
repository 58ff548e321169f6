package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
supervisor:
  max_concurrent_agents: 8
  stage_timeout: 10s
quality:
  threshold: 0.7
  strict_mode: true
pool:
  max_size: 6
  acquire_timeout: 25ms
store:
  backend: sqlite
  path: /tmp/agentgate.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Supervisor.MaxConcurrentAgents)
	assert.Equal(t, 10*time.Second, cfg.Supervisor.StageTimeout.Std())
	assert.Equal(t, 0.7, cfg.Quality.Threshold)
	assert.True(t, cfg.Quality.StrictMode)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 6, cfg.Pool.MaxSize)
	assert.Equal(t, 25*time.Millisecond, cfg.Pool.AcquireTimeout.Std())

	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.Supervisor.MaxRetries)
	assert.Equal(t, 1000, cfg.Quality.HistoryLimit)
	assert.Equal(t, 1, cfg.Pool.MinSize)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"zero concurrency", "supervisor:\n  max_concurrent_agents: 0\n"},
		{"threshold above one", "quality:\n  threshold: 1.5\n"},
		{"zero pool size", "pool:\n  max_size: 0\n"},
		{"min above max", "pool:\n  min_size: 9\n  max_size: 2\n"},
		{"sqlite without path", "store:\n  backend: sqlite\n"},
		{"unknown backend", "store:\n  backend: redis\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
