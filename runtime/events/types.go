package events

import "time"

// EventType identifies the type of event emitted by the client.
type EventType string

const (
	// EventStatusChanged marks a connection status transition.
	EventStatusChanged EventType = "session.status_changed"
	// EventNotice carries a human-readable status notice for the user.
	EventNotice EventType = "session.notice"
	// EventReconnectScheduled marks a reconnect timer being armed.
	EventReconnectScheduled EventType = "session.reconnect_scheduled"
	// EventHandleChanged marks the resumption handle being adopted or cleared.
	EventHandleChanged EventType = "session.handle_changed"

	// EventEnvelopeReceived marks an inbound envelope being dispatched.
	EventEnvelopeReceived EventType = "envelope.received"
	// EventFrameSent marks an outbound media frame written to the channel.
	EventFrameSent EventType = "frame.sent"
	// EventFrameDropped marks a frame discarded at a component boundary.
	EventFrameDropped EventType = "frame.dropped"

	// EventPlaybackScheduled marks a decoded frame committed to the output timeline.
	EventPlaybackScheduled EventType = "playback.scheduled"

	// EventTranscriptUpdated marks an utterance being created or extended.
	EventTranscriptUpdated EventType = "transcript.updated"
	// EventMessageAppended marks a chat message added to the conversational log.
	EventMessageAppended EventType = "message.appended"

	// EventProctoringUpdated marks a change in look-away warning counters.
	EventProctoringUpdated EventType = "proctoring.updated"
	// EventRecordingsAvailable reports the artifact paths saved by the backend.
	EventRecordingsAvailable EventType = "recordings.available"
	// EventContextAcknowledged reports which context fields the backend accepted.
	EventContextAcknowledged EventType = "context.acknowledged"
)

// EventData is a marker interface for event payloads.
type EventData interface {
	eventData()
}

// Event represents a client event delivered to listeners.
type Event struct {
	Type      EventType
	Timestamp time.Time
	SessionID string
	Data      EventData
}

type baseEventData struct{}

func (baseEventData) eventData() {}

// NoticeKind classifies user-facing notices.
type NoticeKind string

// Notice kinds.
const (
	NoticeConnecting   NoticeKind = "connecting"
	NoticeConnected    NoticeKind = "connected"
	NoticeReconnecting NoticeKind = "reconnecting"
	NoticeDisconnected NoticeKind = "disconnected"
	NoticeEnded        NoticeKind = "ended"
	NoticeError        NoticeKind = "error"
	NoticeInfo         NoticeKind = "info"
	NoticeWarning      NoticeKind = "warning"
)

// NoticeData is a human-readable status line.
type NoticeData struct {
	baseEventData
	Kind    NoticeKind
	Message string
	// Attempt and Max are set for reconnect notices.
	Attempt int
	Max     int
	RetryIn time.Duration
}

// StatusChangedData describes a connection status transition.
type StatusChangedData struct {
	baseEventData
	From string
	To   string
}

// ReconnectScheduledData describes an armed reconnect timer.
type ReconnectScheduledData struct {
	baseEventData
	Attempt int
	Delay   time.Duration
}

// HandleChangedData reports whether a resumption handle is now held.
type HandleChangedData struct {
	baseEventData
	Present bool
	Reason  string
}

// EnvelopeReceivedData names the inbound envelope type.
type EnvelopeReceivedData struct {
	baseEventData
	Type string
}

// FrameSentData describes one outbound media frame.
type FrameSentData struct {
	baseEventData
	Kind    string // "audio" or "image"
	Samples int
	Bytes   int
	Level   float64
}

// FrameDroppedData names why a frame was discarded.
type FrameDroppedData struct {
	baseEventData
	Kind   string
	Reason string
}

// PlaybackScheduledData describes one frame placed on the output timeline.
type PlaybackScheduledData struct {
	baseEventData
	StartAt  time.Duration
	Duration time.Duration
	// Ahead is how far the play cursor runs ahead of the output clock.
	Ahead time.Duration
}

// TranscriptUpdatedData describes the utterance that changed.
type TranscriptUpdatedData struct {
	baseEventData
	Index   int
	Role    string
	Text    string
	Created bool
}

// MessageAppendedData is one conversational log entry.
type MessageAppendedData struct {
	baseEventData
	Role string
	Text string
}

// ProctoringUpdatedData mirrors the proctoring counters.
type ProctoringUpdatedData struct {
	baseEventData
	Warnings   int
	Remaining  int
	Terminated bool
}

// RecordingsAvailableData lists saved artifacts.
type RecordingsAvailableData struct {
	baseEventData
	SessionID       string
	AssistantPath   string
	CandidatePath   string
	MixPath         string
	TranscriptsPath string
}

// ContextAcknowledgedData lists the accepted context fields.
type ContextAcknowledgedData struct {
	baseEventData
	Updated []string
}
