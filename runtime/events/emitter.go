package events

import "time"

// Emitter publishes events stamped with the client session id.
// A nil Emitter, or one without a bus, discards everything.
type Emitter struct {
	bus       *EventBus
	sessionID string
	now       func() time.Time
}

// NewEmitter creates a new event emitter.
func NewEmitter(bus *EventBus, sessionID string) *Emitter {
	return &Emitter{bus: bus, sessionID: sessionID, now: time.Now}
}

// SessionID returns the id stamped on emitted events.
func (e *Emitter) SessionID() string {
	if e == nil {
		return ""
	}
	return e.sessionID
}

func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.bus == nil {
		return
	}
	e.bus.Publish(&Event{
		Type:      eventType,
		Timestamp: e.now(),
		SessionID: e.sessionID,
		Data:      data,
	})
}

// Notice emits a user-facing notice.
func (e *Emitter) Notice(kind NoticeKind, message string) {
	e.emit(EventNotice, NoticeData{Kind: kind, Message: message})
}

// ReconnectNotice emits the "reconnecting N of max" notice.
func (e *Emitter) ReconnectNotice(message string, attempt, maxAttempts int, retryIn time.Duration) {
	e.emit(EventNotice, NoticeData{
		Kind:    NoticeReconnecting,
		Message: message,
		Attempt: attempt,
		Max:     maxAttempts,
		RetryIn: retryIn,
	})
}

// StatusChanged emits a status transition.
func (e *Emitter) StatusChanged(from, to string) {
	e.emit(EventStatusChanged, StatusChangedData{From: from, To: to})
}

// ReconnectScheduled emits a reconnect timer event.
func (e *Emitter) ReconnectScheduled(attempt int, delay time.Duration) {
	e.emit(EventReconnectScheduled, ReconnectScheduledData{Attempt: attempt, Delay: delay})
}

// HandleChanged emits a resumption handle change.
func (e *Emitter) HandleChanged(present bool, reason string) {
	e.emit(EventHandleChanged, HandleChangedData{Present: present, Reason: reason})
}

// EnvelopeReceived emits the type of a dispatched envelope.
func (e *Emitter) EnvelopeReceived(envelopeType string) {
	e.emit(EventEnvelopeReceived, EnvelopeReceivedData{Type: envelopeType})
}

// FrameSent emits an outbound frame event.
func (e *Emitter) FrameSent(data FrameSentData) {
	e.emit(EventFrameSent, data)
}

// FrameDropped emits a dropped frame event.
func (e *Emitter) FrameDropped(kind, reason string) {
	e.emit(EventFrameDropped, FrameDroppedData{Kind: kind, Reason: reason})
}

// PlaybackScheduled emits a scheduled playback frame.
func (e *Emitter) PlaybackScheduled(data PlaybackScheduledData) {
	e.emit(EventPlaybackScheduled, data)
}

// TranscriptUpdated emits an utterance change.
func (e *Emitter) TranscriptUpdated(data TranscriptUpdatedData) {
	e.emit(EventTranscriptUpdated, data)
}

// MessageAppended emits a conversational log entry.
func (e *Emitter) MessageAppended(role, text string) {
	e.emit(EventMessageAppended, MessageAppendedData{Role: role, Text: text})
}

// ProctoringUpdated emits proctoring counters.
func (e *Emitter) ProctoringUpdated(warnings, remaining int, terminated bool) {
	e.emit(EventProctoringUpdated, ProctoringUpdatedData{
		Warnings:   warnings,
		Remaining:  remaining,
		Terminated: terminated,
	})
}

// RecordingsAvailable emits saved artifact paths.
func (e *Emitter) RecordingsAvailable(data RecordingsAvailableData) {
	e.emit(EventRecordingsAvailable, data)
}

// ContextAcknowledged emits the accepted context fields.
func (e *Emitter) ContextAcknowledged(updated []string) {
	e.emit(EventContextAcknowledged, ContextAcknowledgedData{Updated: updated})
}
