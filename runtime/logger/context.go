package logger

import (
	"context"
	"strconv"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys extracted by ContextHandler and added to every record.
const (
	// ContextKeySessionID identifies the client session (stable across reconnects).
	ContextKeySessionID contextKey = "session_id"

	// ContextKeyInterviewID identifies the interview record being conducted.
	ContextKeyInterviewID contextKey = "interview_id"

	// ContextKeyAttempt is the reconnect attempt number of the current connection.
	ContextKeyAttempt contextKey = "attempt"

	// ContextKeyComponent names the subsystem emitting the record.
	ContextKeyComponent contextKey = "component"
)

var allContextKeys = []contextKey{
	ContextKeySessionID,
	ContextKeyInterviewID,
	ContextKeyAttempt,
	ContextKeyComponent,
}

// WithSessionID returns a new context with the session ID set.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// WithInterviewID returns a new context with the interview ID set.
func WithInterviewID(ctx context.Context, interviewID string) context.Context {
	return context.WithValue(ctx, ContextKeyInterviewID, interviewID)
}

// WithAttempt returns a new context with the reconnect attempt set.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, ContextKeyAttempt, strconv.Itoa(attempt))
}

// WithComponent returns a new context with the component name set.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, ContextKeyComponent, component)
}

// LoggingFields holds the standard logging context fields.
type LoggingFields struct {
	SessionID   string
	InterviewID string
	Attempt     string
	Component   string
}

// ExtractLoggingFields extracts all logging fields from a context.
func ExtractLoggingFields(ctx context.Context) LoggingFields {
	get := func(k contextKey) string {
		s, _ := ctx.Value(k).(string)
		return s
	}
	return LoggingFields{
		SessionID:   get(ContextKeySessionID),
		InterviewID: get(ContextKeyInterviewID),
		Attempt:     get(ContextKeyAttempt),
		Component:   get(ContextKeyComponent),
	}
}
