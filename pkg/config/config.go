// Package config loads the live interview client configuration.
//
// Configuration is a single YAML document. LoadConfig overlays the file on
// Defaults, expands the resumption store path and validates the result.
// The CLI layers flags and LIVEINTERVIEW_* environment variables on top.
package config

import (
	"time"

	"github.com/candorlabs/liveinterview/runtime/logger"
)

// Config is the complete client configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Audio      AudioConfig      `yaml:"audio"`
	Camera     CameraConfig     `yaml:"camera"`
	Reconnect  ReconnectConfig  `yaml:"reconnect"`
	Resumption ResumptionConfig `yaml:"resumption"`
	Records    RecordsConfig    `yaml:"records"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
	Transcript TranscriptConfig `yaml:"transcript"`
}

// ServerConfig locates the interview backend.
type ServerConfig struct {
	// URL is the channel endpoint, without the resume parameter.
	URL          string        `yaml:"url"`
	DialTimeout  time.Duration `yaml:"dialTimeout,omitempty"`
	PingInterval time.Duration `yaml:"pingInterval,omitempty"`
}

// AudioConfig tunes capture and playback.
type AudioConfig struct {
	Enabled bool `yaml:"enabled"`
	// FallbackSendRate is used until the backend announces a send rate.
	FallbackSendRate int           `yaml:"fallbackSendRate"`
	BlockSize        int           `yaml:"blockSize"`
	LatencyMargin    time.Duration `yaml:"latencyMargin"`
	SendQueueSize    int           `yaml:"sendQueueSize"`
}

// CameraConfig enables the periodic camera stills.
type CameraConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Interval     time.Duration `yaml:"interval"`
	Quality      int           `yaml:"quality"`
	MaxWidth     int           `yaml:"maxWidth"`
	MaxSizeBytes int           `yaml:"maxSizeBytes,omitempty"`
	FFmpegPath   string        `yaml:"ffmpegPath,omitempty"`
	InputFormat  string        `yaml:"inputFormat,omitempty"`
	Device       string        `yaml:"device,omitempty"`
}

// ReconnectConfig bounds automatic reconnection.
type ReconnectConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"baseDelay"`
	MaxDelay    time.Duration `yaml:"maxDelay"`
}

// Resumption store kinds.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// ResumptionConfig selects where the resumption handle is persisted.
type ResumptionConfig struct {
	Store string `yaml:"store"`
	// Path is the file store location. A leading ~ expands to the home directory.
	Path        string        `yaml:"path,omitempty"`
	RedisAddr   string        `yaml:"redisAddr,omitempty"`
	RedisPrefix string        `yaml:"redisPrefix,omitempty"`
	TTL         time.Duration `yaml:"ttl,omitempty"`
}

// RecordsConfig points at the REST service holding jobs, resumes and interviews.
type RecordsConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// MetricsConfig enables the Prometheus exporter when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// TelemetryConfig enables OTLP trace export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint,omitempty"`
	ServiceName string `yaml:"serviceName,omitempty"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level        string            `yaml:"level"`
	Format       string            `yaml:"format"`
	CommonFields map[string]string `yaml:"commonFields,omitempty"`
	// Modules maps dotted module names to levels.
	Modules map[string]string `yaml:"modules,omitempty"`
}

// TranscriptConfig controls transcript export on shutdown.
type TranscriptConfig struct {
	// OutputDir receives the formatted and JSONL transcripts. Empty disables export.
	OutputDir string `yaml:"outputDir,omitempty"`
}

// Spec converts the logging section for logger.Configure.
func (c LoggingConfig) Spec() *logger.LoggingConfigSpec {
	return &logger.LoggingConfigSpec{
		DefaultLevel: c.Level,
		Format:       c.Format,
		CommonFields: c.CommonFields,
		Modules:      c.Modules,
	}
}
