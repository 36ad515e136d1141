package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/candorlabs/liveinterview/runtime/events"
)

// Span names.
const (
	SpanSession = "liveinterview.session"
	SpanConnect = "liveinterview.connect"
)

// Status strings mirrored from the session package. Duplicated here to keep
// telemetry free of a dependency on the controller.
const (
	statusConnecting   = "connecting"
	statusConnected    = "connected"
	statusDisconnected = "disconnected"
	statusError        = "error"
)

type spanEntry struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx // needed to parent child spans
}

// OTelEventListener converts session events into OTel spans.
//
// Each session gets a root span. Every transition into "connecting" opens a
// connect span under it, ended Ok on "connected" and with an error status on
// "error". Reconnect timers, handle changes and proctoring updates are
// recorded as span events on the root.
type OTelEventListener struct {
	tracer trace.Tracer

	mu       sync.Mutex
	sessions map[string]*spanEntry
	connects map[string]*spanEntry
	attempts map[string]int
}

// NewOTelEventListener creates a listener that creates OTel spans from session events.
func NewOTelEventListener(tracer trace.Tracer) *OTelEventListener {
	return &OTelEventListener{
		tracer:   tracer,
		sessions: make(map[string]*spanEntry),
		connects: make(map[string]*spanEntry),
		attempts: make(map[string]int),
	}
}

// StartSession creates a root span for the given session, optionally parented
// under the span context in parentCtx.
func (l *OTelEventListener) StartSession(parentCtx context.Context, sessionID, interviewID string) {
	ctx, span := l.tracer.Start(parentCtx, SpanSession,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("interview.id", interviewID),
		),
	)
	l.mu.Lock()
	l.sessions[sessionID] = &spanEntry{span: span, ctx: ctx}
	l.mu.Unlock()
}

// EndSession ends the root span and any connect span still open.
func (l *OTelEventListener) EndSession(sessionID string) {
	l.mu.Lock()
	root, ok := l.sessions[sessionID]
	delete(l.sessions, sessionID)
	conn, open := l.connects[sessionID]
	delete(l.connects, sessionID)
	delete(l.attempts, sessionID)
	l.mu.Unlock()

	if open {
		conn.span.SetStatus(codes.Error, "session ended before connect completed")
		conn.span.End()
	}
	if ok {
		root.span.End()
	}
}

// OnEvent handles a single event. It can be passed to EventBus.SubscribeAll.
func (l *OTelEventListener) OnEvent(evt *events.Event) {
	//exhaustive:ignore
	switch data := evt.Data.(type) {
	case events.StatusChangedData:
		l.handleStatus(evt.SessionID, data)
	case events.ReconnectScheduledData:
		l.mu.Lock()
		l.attempts[evt.SessionID] = data.Attempt
		l.mu.Unlock()
		l.rootEvent(evt.SessionID, "reconnect.scheduled",
			attribute.Int("reconnect.attempt", data.Attempt),
			attribute.Int64("reconnect.delay_ms", data.Delay.Milliseconds()),
		)
	case events.HandleChangedData:
		l.rootEvent(evt.SessionID, "handle.changed",
			attribute.Bool("handle.present", data.Present),
			attribute.String("handle.reason", data.Reason),
		)
	case events.ProctoringUpdatedData:
		l.rootEvent(evt.SessionID, "proctoring.updated",
			attribute.Int("proctoring.warnings", data.Warnings),
			attribute.Int("proctoring.remaining", data.Remaining),
			attribute.Bool("proctoring.terminated", data.Terminated),
		)
	}
}

func (l *OTelEventListener) handleStatus(sessionID string, data events.StatusChangedData) {
	switch data.To {
	case statusConnecting:
		l.startConnect(sessionID)
	case statusConnected:
		l.endConnect(sessionID, codes.Ok, "")
	case statusError:
		l.endConnect(sessionID, codes.Error, "session entered error state")
	case statusDisconnected:
		l.endConnect(sessionID, codes.Unset, "")
	}
}

func (l *OTelEventListener) startConnect(sessionID string) {
	l.mu.Lock()
	parent := context.Background()
	if root, ok := l.sessions[sessionID]; ok {
		parent = root.ctx
	}
	prev, hadPrev := l.connects[sessionID]
	attempt := l.attempts[sessionID]
	l.mu.Unlock()

	// A reconnect can start while a previous attempt never reached "connected".
	if hadPrev {
		prev.span.SetStatus(codes.Error, "superseded by reconnect")
		prev.span.End()
	}

	ctx, span := l.tracer.Start(parent, SpanConnect,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("reconnect.attempt", attempt),
			attribute.Bool("reconnect", attempt > 0),
		),
	)
	l.mu.Lock()
	l.connects[sessionID] = &spanEntry{span: span, ctx: ctx}
	l.mu.Unlock()
}

func (l *OTelEventListener) endConnect(sessionID string, code codes.Code, msg string) {
	l.mu.Lock()
	entry, ok := l.connects[sessionID]
	delete(l.connects, sessionID)
	if code == codes.Ok {
		delete(l.attempts, sessionID)
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	if code != codes.Unset {
		entry.span.SetStatus(code, msg)
	}
	entry.span.End()
}

func (l *OTelEventListener) rootEvent(sessionID, name string, attrs ...attribute.KeyValue) {
	l.mu.Lock()
	root, ok := l.sessions[sessionID]
	l.mu.Unlock()
	if !ok {
		return
	}
	root.span.AddEvent(name, trace.WithAttributes(attrs...))
}
