package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, 5, cfg.Pipeline.Workers)
	assert.Equal(t, 0.0, cfg.Pipeline.FailureThreshold)
	assert.Equal(t, 0.9, cfg.Pipeline.MinCoverage)
}

func TestParse_OverridesDefaults(t *testing.T) {
	doc := `
ai:
  provider: anthropic
  api_key: sk-test
  structure_model: claude-big
  extraction_model: claude-small
  rate_window: 30s
pipeline:
  workers: 8
  failure_threshold: 0.25
  retry_delay: 1s
  overwrite: true
storage:
  backend: surreal
  surreal:
    url: ws://db:8000
    namespace: shows
    database: graph
    username: root
    password: secret
    auth_level: root
logging:
  level: debug
`
	cfg, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, 30*time.Second, cfg.AI.RateWindow)
	assert.Equal(t, 60, cfg.AI.RateLimitCalls, "unset keys keep defaults")
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 0.25, cfg.Pipeline.FailureThreshold)
	assert.Equal(t, time.Second, cfg.Pipeline.RetryDelay)
	assert.True(t, cfg.Pipeline.Overwrite)
	assert.Equal(t, 2.0, cfg.Pipeline.Lookback)
	assert.Equal(t, "ws://db:8000", cfg.Storage.Surreal.URL)
	assert.Equal(t, "shows", cfg.Storage.Surreal.Namespace)

	level, err := ParseLevel(cfg.Logging.Level)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	opts, err := cfg.PipelineOptions()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "pipeline:\n  wokers: 3\n", "wokers"},
		{"bad threshold", "pipeline:\n  failure_threshold: 2\n", "failure threshold"},
		{"bad backend", "storage:\n  backend: mysql\n", "unknown storage backend"},
		{"bad level", "logging:\n  level: loud\n", "unknown level"},
		{"bad provider", "ai:\n  provider: hal9000\n", "unknown ai provider"},
		{"zero concurrency", "pipeline:\n  concurrency: 0\n", "concurrency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unitgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  path: /tmp/graph\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/graph", cfg.Storage.Path)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
