package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("config validation error: %s %s (got: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("config validation error: %s %s", e.Field, e.Message)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateServer,
		c.validateAudio,
		c.validateCamera,
		c.validateReconnect,
		c.validateResumption,
		c.validateLogging,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || c.Server.URL == "" {
		return &ValidationError{Field: "server.url", Message: "must be a valid URL", Value: c.Server.URL}
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return &ValidationError{Field: "server.url", Message: "must use ws or wss", Value: u.Scheme}
	}
	return nil
}

func (c *Config) validateAudio() error {
	a := c.Audio
	switch {
	case a.FallbackSendRate <= 0:
		return &ValidationError{Field: "audio.fallbackSendRate", Message: "must be positive", Value: a.FallbackSendRate}
	case a.BlockSize <= 0:
		return &ValidationError{Field: "audio.blockSize", Message: "must be positive", Value: a.BlockSize}
	case a.LatencyMargin < 0:
		return &ValidationError{Field: "audio.latencyMargin", Message: "must not be negative", Value: a.LatencyMargin}
	case a.SendQueueSize <= 0:
		return &ValidationError{Field: "audio.sendQueueSize", Message: "must be positive", Value: a.SendQueueSize}
	}
	return nil
}

func (c *Config) validateCamera() error {
	cam := c.Camera
	if !cam.Enabled {
		return nil
	}
	switch {
	case cam.Interval <= 0:
		return &ValidationError{Field: "camera.interval", Message: "must be positive", Value: cam.Interval}
	case cam.Quality < 1 || cam.Quality > 100:
		return &ValidationError{Field: "camera.quality", Message: "must be between 1 and 100", Value: cam.Quality}
	case cam.MaxWidth <= 0:
		return &ValidationError{Field: "camera.maxWidth", Message: "must be positive", Value: cam.MaxWidth}
	}
	return nil
}

func (c *Config) validateReconnect() error {
	r := c.Reconnect
	switch {
	case r.MaxAttempts < 0:
		return &ValidationError{Field: "reconnect.maxAttempts", Message: "must not be negative", Value: r.MaxAttempts}
	case r.BaseDelay <= 0:
		return &ValidationError{Field: "reconnect.baseDelay", Message: "must be positive", Value: r.BaseDelay}
	case r.MaxDelay < r.BaseDelay:
		return &ValidationError{Field: "reconnect.maxDelay", Message: "must be at least baseDelay", Value: r.MaxDelay}
	}
	return nil
}

func (c *Config) validateResumption() error {
	r := c.Resumption
	switch r.Store {
	case StoreMemory:
	case StoreFile:
		if r.Path == "" {
			return &ValidationError{Field: "resumption.path", Message: "is required for the file store"}
		}
	case StoreRedis:
		if r.RedisAddr == "" {
			return &ValidationError{Field: "resumption.redisAddr", Message: "is required for the redis store"}
		}
	default:
		return &ValidationError{
			Field:   "resumption.store",
			Message: "must be one of: " + strings.Join([]string{StoreFile, StoreRedis, StoreMemory}, ", "),
			Value:   r.Store,
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{
			Field:   "logging.level",
			Message: "must be one of: trace, debug, info, warn, error",
			Value:   c.Logging.Level,
		}
	}
	if f := c.Logging.Format; f != "" && f != "json" && f != "text" {
		return &ValidationError{Field: "logging.format", Message: "must be one of: json, text", Value: f}
	}
	return nil
}
