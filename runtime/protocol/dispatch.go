package protocol

import (
	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/logger"
)

// Handler receives each inbound envelope variant. Every variant has its own
// method so a new envelope type cannot be added without handling it.
type Handler interface {
	OnStatus(Status)
	OnAudio(Audio)
	OnText(Text)
	OnTranscript(Transcript)
	OnMonitor(Monitor)
	OnRecordings(Recordings)
	OnSessionComplete(SessionComplete)
	OnSessionResumption(SessionResumption)
	OnContextAck(ContextAck)
	OnError(Error)
	OnSessionExpired(SessionExpired)
	OnUnrecognized(Unrecognized)
}

// Route applies exactly one handler method for msg.
func Route(msg Inbound, h Handler) {
	switch m := msg.(type) {
	case Status:
		h.OnStatus(m)
	case Audio:
		h.OnAudio(m)
	case Text:
		h.OnText(m)
	case Transcript:
		h.OnTranscript(m)
	case Monitor:
		h.OnMonitor(m)
	case Recordings:
		h.OnRecordings(m)
	case SessionComplete:
		h.OnSessionComplete(m)
	case SessionResumption:
		h.OnSessionResumption(m)
	case ContextAck:
		h.OnContextAck(m)
	case Error:
		h.OnError(m)
	case SessionExpired:
		h.OnSessionExpired(m)
	case Unrecognized:
		h.OnUnrecognized(m)
	}
}

// Dispatcher parses raw frames and routes them to a Handler in arrival order.
// Malformed frames are logged at debug level and dropped.
type Dispatcher struct {
	handler Handler
	emitter *events.Emitter
}

// NewDispatcher creates a dispatcher. emitter may be nil.
func NewDispatcher(handler Handler, emitter *events.Emitter) *Dispatcher {
	return &Dispatcher{handler: handler, emitter: emitter}
}

// Dispatch handles one raw inbound frame. It reports whether the frame was routed.
func (d *Dispatcher) Dispatch(raw []byte) bool {
	msg, err := Parse(raw)
	if err != nil {
		logger.Debug("dropping malformed envelope", "component", "dispatcher", "error", err, "bytes", len(raw))
		d.emitter.FrameDropped("envelope", "malformed")
		return false
	}
	if u, ok := msg.(Unrecognized); ok {
		logger.Debug("ignoring unrecognized envelope", "component", "dispatcher", "type", string(u.Type))
	}
	d.emitter.EnvelopeReceived(string(msg.Kind()))
	Route(msg, d.handler)
	return true
}
