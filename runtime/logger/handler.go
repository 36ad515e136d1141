package logger

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
)

// ContextHandler is a slog.Handler that adds context fields and common fields
// to each record and redacts sensitive string attributes before delegating.
type ContextHandler struct {
	inner        slog.Handler
	commonFields []slog.Attr
}

// ModuleHandler extends ContextHandler with per-module level filtering.
// The module is derived from the caller's package path.
type ModuleHandler struct {
	ContextHandler
	moduleConfig *ModuleConfig
}

// NewContextHandler creates a new ContextHandler wrapping the given handler.
func NewContextHandler(inner slog.Handler, commonFields ...slog.Attr) *ContextHandler {
	return &ContextHandler{
		inner:        inner,
		commonFields: commonFields,
	}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enriches r and passes it on.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, h.enrich(ctx, r, ""))
}

//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ContextHandler) enrich(ctx context.Context, r slog.Record, module string) slog.Record {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	out.AddAttrs(h.commonFields...)
	if module != "" {
		out.AddAttrs(slog.String("logger", module))
	}
	for _, key := range allContextKeys {
		if s, ok := ctx.Value(key).(string); ok && s != "" {
			out.AddAttrs(slog.String(string(key), s))
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	return out
}

func redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, RedactSensitiveData(a.Value.String()))
	}
	return a
}

// WithAttrs returns a new handler with the given attributes added.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &ContextHandler{
		inner:        h.inner.WithAttrs(redacted),
		commonFields: h.commonFields,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{
		inner:        h.inner.WithGroup(name),
		commonFields: h.commonFields,
	}
}

// Unwrap returns the inner handler.
func (h *ContextHandler) Unwrap() slog.Handler {
	return h.inner
}

var _ slog.Handler = (*ContextHandler)(nil)

// NewModuleHandler creates a new ModuleHandler with per-module log level filtering.
func NewModuleHandler(inner slog.Handler, moduleConfig *ModuleConfig, commonFields ...slog.Attr) *ModuleHandler {
	return &ModuleHandler{
		ContextHandler: ContextHandler{
			inner:        inner,
			commonFields: commonFields,
		},
		moduleConfig: moduleConfig,
	}
}

// Enabled reports whether any module could log at level. The exact module
// check happens in Handle where the record PC is known.
func (h *ModuleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.moduleConfig.MinLevel()
}

// Handle drops records below the caller module's level and tags the rest with the module name.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ModuleHandler) Handle(ctx context.Context, r slog.Record) error {
	module := callerModule(r.PC)
	if r.Level < h.moduleConfig.LevelFor(module) {
		return nil
	}
	return h.inner.Handle(ctx, h.enrich(ctx, r, module))
}

// WithAttrs returns a new handler with the given attributes added.
func (h *ModuleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	ch, _ := h.ContextHandler.WithAttrs(attrs).(*ContextHandler)
	return &ModuleHandler{ContextHandler: *ch, moduleConfig: h.moduleConfig}
}

// WithGroup returns a new handler with the given group name.
func (h *ModuleHandler) WithGroup(name string) slog.Handler {
	ch, _ := h.ContextHandler.WithGroup(name).(*ContextHandler)
	return &ModuleHandler{ContextHandler: *ch, moduleConfig: h.moduleConfig}
}

var _ slog.Handler = (*ModuleHandler)(nil)

func callerModule(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return moduleFromFunction(frame.Function)
}

// moduleFromFunction turns
// "github.com/candorlabs/liveinterview/runtime/session.(*Controller).Run"
// into "runtime.session".
func moduleFromFunction(fn string) string {
	const moduleRoot = "github.com/candorlabs/liveinterview/"
	idx := strings.Index(fn, moduleRoot)
	if idx == -1 {
		return ""
	}
	path := fn[idx+len(moduleRoot):]
	if slash := strings.LastIndex(path, "/"); slash != -1 {
		if dot := strings.Index(path[slash:], "."); dot != -1 {
			path = path[:slash+dot]
		}
	} else if dot := strings.Index(path, "."); dot != -1 {
		path = path[:dot]
	}
	return strings.ReplaceAll(path, "/", ".")
}
