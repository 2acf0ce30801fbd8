package logging_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/reclaim/pkg/reclaim/config"
	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    logging.Level
		wantErr bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"", logging.LevelInfo, false},
		{"warning", logging.LevelWarn, false},
		{"error", logging.LevelError, false},
		{"loud", logging.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := logging.ParseLevel(tt.input)
			if tt.wantErr {
				assert.True(t, errors.Is(err, logging.ErrInvalidLevel))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	cfg, err := logging.FromConfig(config.LoggingConfig{
		Level: "debug",
		Rotation: config.RotationConfig{
			MaxSize:    "2MB",
			MaxBackups: 3,
		},
		Components: map[string]string{"engine": "warn"},
	})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, int64(2*1024*1024), cfg.Rotation.MaxSize)
	assert.Equal(t, 3, cfg.Rotation.MaxBackups)
	assert.Equal(t, "warn", cfg.Components["engine"])

	_, err = logging.FromConfig(config.LoggingConfig{
		Rotation: config.RotationConfig{MaxSize: "lots"},
	})
	assert.Error(t, err)
}

// The remaining tests share global logging state and do not run in parallel.

func TestInit_WritesComponentLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reclaim.log")

	// A logger obtained before Init must pick up the new sink.
	early := logging.Get("quarantine")

	require.NoError(t, logging.Init(logging.Config{
		Level:      "info",
		Path:       path,
		Components: map[string]string{"engine": "debug"},
	}))
	t.Cleanup(func() { _ = logging.Close() })

	logging.Get("engine").Debug("engine debug visible", "root", "/tmp/x")
	logging.Get("triage").Debug("triage debug hidden")
	early.Info("moved", "path", "/tmp/x/a.tmp")
	logging.Get("manifest").With("id", "abc").Warn("index rebuilt")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "engine debug visible")
	assert.NotContains(t, out, "triage debug hidden")
	assert.Contains(t, out, "moved")
	assert.Contains(t, out, "id=abc")
	assert.Equal(t, "quarantine", early.Component())
}

func TestInit_InvalidLevels(t *testing.T) {
	dir := t.TempDir()

	err := logging.Init(logging.Config{Level: "nope", Path: filepath.Join(dir, "a.log")})
	assert.ErrorIs(t, err, logging.ErrInvalidLevel)

	err = logging.Init(logging.Config{
		Level:      "info",
		Path:       filepath.Join(dir, "b.log"),
		Components: map[string]string{"engine": "nope"},
	})
	assert.ErrorIs(t, err, logging.ErrInvalidLevel)
}

func TestClose_FallsBackToDiscard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reclaim.log")
	require.NoError(t, logging.Init(logging.Config{Level: "info", Path: path}))

	logger := logging.Get("daemon")
	logger.Info("before close")
	require.NoError(t, logging.Close())
	logger.Info("after close")

	// Closing twice is a no-op.
	require.NoError(t, logging.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "before close"))
	assert.False(t, strings.Contains(string(data), "after close"))
}
