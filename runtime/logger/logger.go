// Package logger provides structured logging for the live interview client.
//
// It wraps log/slog with:
//   - A global DefaultLogger configured from LOG_LEVEL
//   - Context-carried session fields (session id, reconnect attempt, component)
//   - Redaction of resumption handles and tokens before they reach a sink
//   - Per-module levels via Configure
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
)

var (
	// DefaultLogger is the global structured logger instance.
	// It is safe for concurrent use and initialized with slog.LevelInfo by default.
	DefaultLogger *slog.Logger

	// logOutput is where handlers built by this package write.
	logOutput io.Writer = os.Stderr

	// customHandler is set by SetLogger and takes precedence over Configure.
	customHandler slog.Handler

	mu sync.Mutex
)

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}
	DefaultLogger = slog.New(NewContextHandler(slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	})))
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the logging level for all subsequent log operations.
// This is safe for concurrent use as it replaces the entire logger instance.
func SetLevel(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	if customHandler != nil {
		return
	}
	DefaultLogger = slog.New(NewContextHandler(slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	})))
}

// SetVerbose enables debug-level logging when verbose is true, otherwise sets info-level.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// SetLogger installs a caller-provided handler. Passing nil restores the default text handler.
func SetLogger(h slog.Handler) {
	mu.Lock()
	customHandler = h
	mu.Unlock()
	if h == nil {
		SetLevel(slog.LevelInfo)
		return
	}
	DefaultLogger = slog.New(NewContextHandler(h))
}

// Info logs an informational message with structured key-value attributes.
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs a warning message with context and structured attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs an error message with structured attributes.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// Component returns a logger that tags every record with the given component name.
func Component(name string) *slog.Logger {
	return DefaultLogger.With("component", name)
}

var (
	// sensitivePatterns matches secrets that may appear in URLs or payloads.
	sensitivePatterns = []*regexp.Regexp{
		regexp.MustCompile(`([?&]resume=)[^&\s"]+`),
		regexp.MustCompile(`("resumeHandle"\s*:\s*")[^"]+`),
		regexp.MustCompile(`("handle"\s*:\s*")[^"]+`),
		regexp.MustCompile(`(Bearer\s+)[a-zA-Z0-9._-]+`),
		regexp.MustCompile(`([?&](?:token|api_key|key)=)[^&\s"]+`),
	}
)

// RedactSensitiveData masks resumption handles and credentials in s.
// The matched prefix (query key, JSON key, "Bearer ") is kept so the log stays readable.
func RedactSensitiveData(s string) string {
	for _, p := range sensitivePatterns {
		s = p.ReplaceAllString(s, "${1}[REDACTED]")
	}
	return s
}

// RedactHandle shortens a resumption handle to a loggable prefix.
func RedactHandle(handle string) string {
	const keep = 4
	if handle == "" {
		return ""
	}
	if len(handle) <= keep*2 {
		return "[REDACTED]"
	}
	return handle[:keep] + "...[REDACTED]"
}
