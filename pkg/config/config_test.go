package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candorlabs/liveinterview/runtime/session"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ws://localhost:8000/ws/interview", cfg.Server.URL)
	assert.Equal(t, 16000, cfg.Audio.FallbackSendRate)
	assert.Equal(t, 4096, cfg.Audio.BlockSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Audio.LatencyMargin)
	assert.Equal(t, time.Second, cfg.Camera.Interval)
	assert.Equal(t, 70, cfg.Camera.Quality)
	assert.Equal(t, 640, cfg.Camera.MaxWidth)
	assert.Equal(t, session.DefaultPolicy(), cfg.Reconnect.Policy())
	assert.Equal(t, StoreFile, cfg.Resumption.Store)
}

func TestLoadConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "liveinterview.yaml")
	content := `server:
  url: wss://interviews.example.com/ws/interview
  pingInterval: 20s
camera:
  enabled: true
  interval: 2s
reconnect:
  maxAttempts: 3
resumption:
  store: file
  path: ~/handles.json
logging:
  level: debug
  modules:
    runtime.session: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://interviews.example.com/ws/interview", cfg.Server.URL)
	assert.Equal(t, 20*time.Second, cfg.Server.PingInterval)
	assert.True(t, cfg.Camera.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Camera.Interval)
	assert.Equal(t, 70, cfg.Camera.Quality, "unset keys keep defaults")
	assert.Equal(t, 3, cfg.Reconnect.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Reconnect.BaseDelay)
	assert.Equal(t, filepath.Join(home, "handles.json"), cfg.Resumption.Path)

	spec := cfg.Logging.Spec()
	assert.Equal(t, "debug", spec.DefaultLevel)
	assert.Equal(t, "warn", spec.Modules["runtime.session"])
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  uri: ws://x\n"), 0o600))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultServerURL, cfg.Server.URL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"http server url", func(c *Config) { c.Server.URL = "http://x" }, "server.url"},
		{"empty server url", func(c *Config) { c.Server.URL = "" }, "server.url"},
		{"zero block size", func(c *Config) { c.Audio.BlockSize = 0 }, "audio.blockSize"},
		{"zero send rate", func(c *Config) { c.Audio.FallbackSendRate = 0 }, "audio.fallbackSendRate"},
		{"camera quality", func(c *Config) { c.Camera.Enabled = true; c.Camera.Quality = 101 }, "camera.quality"},
		{"cap below base", func(c *Config) { c.Reconnect.MaxDelay = time.Millisecond }, "reconnect.maxDelay"},
		{"unknown store", func(c *Config) { c.Resumption.Store = "s3" }, "resumption.store"},
		{"redis without addr", func(c *Config) { c.Resumption.Store = StoreRedis }, "resumption.redisAddr"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.edit(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	disabled := Defaults()
	disabled.Camera.Quality = 0
	assert.NoError(t, disabled.Validate(), "camera settings ignored while disabled")
}
