package config

import (
	"github.com/candorlabs/liveinterview/pkg/httputil"
	"github.com/candorlabs/liveinterview/runtime/audio"
	"github.com/candorlabs/liveinterview/runtime/capture"
	"github.com/candorlabs/liveinterview/runtime/logger"
	"github.com/candorlabs/liveinterview/runtime/media"
	"github.com/candorlabs/liveinterview/runtime/playback"
	"github.com/candorlabs/liveinterview/runtime/session"
)

// Default locations.
const (
	DefaultServerURL   = "ws://localhost:8000/ws/interview"
	DefaultRecordsURL  = "http://localhost:8000"
	DefaultHandlePath  = "~/.liveinterview/resume_handle.json"
	DefaultServiceName = "liveinterview"
)

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{URL: DefaultServerURL},
		Audio: AudioConfig{
			Enabled:          true,
			FallbackSendRate: audio.SampleRate16kHz,
			BlockSize:        capture.DefaultBlockSize,
			LatencyMargin:    playback.DefaultLatencyMargin,
			SendQueueSize:    session.DefaultSendQueueSize,
		},
		Camera: CameraConfig{
			Interval: capture.DefaultCameraInterval,
			Quality:  media.DefaultQuality,
			MaxWidth: media.DefaultMaxWidth,
		},
		Reconnect: ReconnectConfig{
			MaxAttempts: session.DefaultMaxAttempts,
			BaseDelay:   session.DefaultBackoffBase,
			MaxDelay:    session.DefaultBackoffCap,
		},
		Resumption: ResumptionConfig{
			Store: StoreFile,
			Path:  DefaultHandlePath,
		},
		Records: RecordsConfig{
			BaseURL: DefaultRecordsURL,
			Timeout: httputil.DefaultRecordsTimeout,
		},
		Telemetry: TelemetryConfig{ServiceName: DefaultServiceName},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logger.FormatText,
		},
	}
}

// Policy returns the reconnect section as a session policy.
func (c ReconnectConfig) Policy() session.Policy {
	return session.Policy{MaxAttempts: c.MaxAttempts, Base: c.BaseDelay, Cap: c.MaxDelay}
}

// FrameConfig returns the camera encoding settings.
func (c CameraConfig) FrameConfig() media.FrameConfig {
	return media.FrameConfig{MaxWidth: c.MaxWidth, Quality: c.Quality, MaxSizeBytes: c.MaxSizeBytes}
}

// StillConfig returns the ffmpeg capture settings.
func (c CameraConfig) StillConfig() media.StillConfig {
	return media.StillConfig{FFmpegPath: c.FFmpegPath, InputFormat: c.InputFormat, Device: c.Device}
}
