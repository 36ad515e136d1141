package logger

import (
	"log/slog"
	"strings"
	"sync"
)

// ModuleConfig manages per-module logging levels. Module names are dotted
// ("runtime.session"); a more specific entry overrides its parents.
type ModuleConfig struct {
	defaultLevel slog.Level
	modules      map[string]slog.Level
	mu           sync.RWMutex
}

// NewModuleConfig creates a new ModuleConfig with the given default level.
func NewModuleConfig(defaultLevel slog.Level) *ModuleConfig {
	return &ModuleConfig{
		defaultLevel: defaultLevel,
		modules:      make(map[string]slog.Level),
	}
}

// SetModuleLevel sets the log level for a specific module.
func (m *ModuleConfig) SetModuleLevel(module string, level slog.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[module] = level
}

// LevelFor returns the level for module, walking up the dotted hierarchy
// until a configured entry is found.
func (m *ModuleConfig) LevelFor(module string) slog.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for module != "" {
		if level, ok := m.modules[module]; ok {
			return level
		}
		lastDot := strings.LastIndex(module, ".")
		if lastDot == -1 {
			break
		}
		module = module[:lastDot]
	}
	return m.defaultLevel
}

// MinLevel returns the lowest level any module is configured for.
func (m *ModuleConfig) MinLevel() slog.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lowest := m.defaultLevel
	for _, l := range m.modules {
		if l < lowest {
			lowest = l
		}
	}
	return lowest
}

// LoggingConfigSpec is the logging section of the client configuration.
// It mirrors config.LoggingConfig to avoid an import cycle.
type LoggingConfigSpec struct {
	DefaultLevel string
	Format       string // "json" or "text"
	CommonFields map[string]string
	Modules      map[string]string
}

// Log format constants
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Configure applies cfg to the global logger. A handler installed with
// SetLogger is left untouched.
func Configure(cfg *LoggingConfigSpec) error {
	if cfg == nil {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()
	if customHandler != nil {
		return nil
	}

	defaultLevel := slog.LevelInfo
	if cfg.DefaultLevel != "" {
		defaultLevel = ParseLevel(cfg.DefaultLevel)
	}

	commonFields := make([]slog.Attr, 0, len(cfg.CommonFields))
	for k, v := range cfg.CommonFields {
		commonFields = append(commonFields, slog.String(k, v))
	}

	moduleConfig := NewModuleConfig(defaultLevel)
	for name, level := range cfg.Modules {
		moduleConfig.SetModuleLevel(name, ParseLevel(level))
	}

	opts := &slog.HandlerOptions{Level: moduleConfig.MinLevel()}
	var base slog.Handler
	if cfg.Format == FormatJSON {
		base = slog.NewJSONHandler(logOutput, opts)
	} else {
		base = slog.NewTextHandler(logOutput, opts)
	}

	var handler slog.Handler
	if len(cfg.Modules) > 0 {
		handler = NewModuleHandler(base, moduleConfig, commonFields...)
	} else {
		handler = NewContextHandler(base, commonFields...)
	}
	DefaultLogger = slog.New(handler)
	return nil
}
