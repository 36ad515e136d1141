package session

import (
	"fmt"
	"time"

	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/streaming"
)

// Status is the connection status of the session.
type Status string

// Connection statuses.
const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// Reconnect policy defaults.
const (
	DefaultMaxAttempts = 5
	DefaultBackoffBase = time.Second
	DefaultBackoffCap  = 10 * time.Second
)

// Policy bounds automatic reconnection.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
}

// DefaultPolicy returns 5 attempts with 1s base doubling up to 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Base:        DefaultBackoffBase,
		Cap:         DefaultBackoffCap,
	}
}

// BackoffDelay returns min(cap, base*2^(attempt-1)) for attempt >= 1.
func BackoffDelay(p Policy, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.Cap {
			return p.Cap
		}
	}
	return min(d, p.Cap)
}

// State is the controller's view of the session. The controller owns the
// only copy; Transition returns the next one.
type State struct {
	Status           Status
	Handle           string
	Attempts         int
	ManualDisconnect bool
	SendRate         int
	ReceiveRate      int

	// Dialing is true while a dial is in flight.
	Dialing bool
	// ChannelOpen is true from a successful dial until the channel closes.
	ChannelOpen bool
	// ReconnectPending is true while a reconnect timer is armed.
	ReconnectPending bool

	// Err explains the most recent transition to StatusError.
	Err error
}

// Event is an input to Transition.
type Event interface {
	event()
}

// ConnectRequested asks for a connection. Reconnect is set only by the
// reconnect timer.
type ConnectRequested struct{ Reconnect bool }

// Opened reports a successful dial.
type Opened struct{}

// DialFailed reports a failed dial.
type DialFailed struct{ Err error }

// Closed reports that the open channel ended without being closed locally.
type Closed struct{ Err error }

// DisconnectRequested is the user-initiated stop.
type DisconnectRequested struct{}

// StatusReceived carries a status envelope.
type StatusReceived struct {
	SendRate    int
	ReceiveRate int
	Handle      string
}

// HandleReceived carries a session_resumption envelope.
type HandleReceived struct{ Handle string }

// SessionCompleted carries a session_complete envelope.
type SessionCompleted struct{ Reason string }

// SessionExpired carries a session_expired envelope.
type SessionExpired struct{ Message string }

// ServerError carries an error envelope.
type ServerError struct{ Message string }

// MediaFailed reports that a capture device could not be acquired or failed.
type MediaFailed struct{ Err error }

// ClearHandleRequested is the user explicitly discarding the resumption handle.
type ClearHandleRequested struct{}

func (ConnectRequested) event()     {}
func (Opened) event()               {}
func (DialFailed) event()           {}
func (Closed) event()               {}
func (DisconnectRequested) event()  {}
func (StatusReceived) event()       {}
func (HandleReceived) event()       {}
func (SessionCompleted) event()     {}
func (SessionExpired) event()       {}
func (ServerError) event()          {}
func (MediaFailed) event()          {}
func (ClearHandleRequested) event() {}

// Effect is an action the controller performs after a transition.
type Effect interface {
	effect()
}

// Dial opens a channel, resuming with Handle when set.
type Dial struct{ Handle string }

// CancelDial abandons an in-flight dial.
type CancelDial struct{}

// SendContext sends the interview context envelope.
type SendContext struct{}

// StartMedia acquires capture devices.
type StartMedia struct{}

// StopMedia releases capture devices and flushes playback.
type StopMedia struct{}

// CloseChannel closes the open channel, optionally sending a stop control first.
type CloseChannel struct {
	Code     int
	Reason   string
	SendStop bool
}

// ScheduleReconnect arms the reconnect timer.
type ScheduleReconnect struct {
	Attempt int
	Delay   time.Duration
}

// CancelReconnect disarms the reconnect timer.
type CancelReconnect struct{}

// PersistHandle saves the resumption handle.
type PersistHandle struct{ Handle string }

// ClearPersistedHandle removes the saved resumption handle.
type ClearPersistedHandle struct{ Reason string }

// Notify surfaces a user-facing notice.
type Notify struct {
	Kind    events.NoticeKind
	Message string
	Attempt int
	Max     int
	RetryIn time.Duration
}

func (Dial) effect()                 {}
func (CancelDial) effect()           {}
func (SendContext) effect()          {}
func (StartMedia) effect()           {}
func (StopMedia) effect()            {}
func (CloseChannel) effect()         {}
func (ScheduleReconnect) effect()    {}
func (CancelReconnect) effect()      {}
func (PersistHandle) effect()        {}
func (ClearPersistedHandle) effect() {}
func (Notify) effect()               {}

// Transition applies ev to s and returns the next state and the effects to
// run, in order. It has no side effects.
func Transition(p Policy, s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case ConnectRequested:
		return onConnect(s, e)
	case Opened:
		if !s.Dialing {
			return s, nil
		}
		s.Dialing = false
		s.ChannelOpen = true
		return s, []Effect{SendContext{}, StartMedia{}}
	case DialFailed:
		if !s.Dialing {
			return s, nil
		}
		s.Dialing = false
		return onUnexpectedLoss(p, s, nil, e.Err)
	case Closed:
		if !s.ChannelOpen {
			return s, nil
		}
		s.ChannelOpen = false
		return onUnexpectedLoss(p, s, []Effect{StopMedia{}}, e.Err)
	case DisconnectRequested:
		return onDisconnect(s)
	case StatusReceived:
		return onStatus(s, e)
	case HandleReceived:
		if e.Handle == "" || e.Handle == s.Handle {
			return s, nil
		}
		s.Handle = e.Handle
		return s, []Effect{PersistHandle{Handle: e.Handle}}
	case SessionCompleted:
		msg := "Interview complete"
		if e.Reason != "" {
			msg += ": " + e.Reason
		}
		return onTerminal(s, "session_complete", msg)
	case SessionExpired:
		msg := "Session expired"
		if e.Message != "" {
			msg += ": " + e.Message
		}
		return onTerminal(s, "session_expired", msg)
	case ServerError:
		return onServerError(s, e)
	case MediaFailed:
		return onMediaFailed(s, e)
	case ClearHandleRequested:
		s.Handle = ""
		return s, []Effect{ClearPersistedHandle{Reason: "cleared"}}
	}
	return s, nil
}

func onConnect(s State, e ConnectRequested) (State, []Effect) {
	if s.Dialing || s.ChannelOpen {
		return s, nil
	}
	var fx []Effect
	if e.Reconnect {
		// A timer that fired after disconnect() or a fresh connect is stale.
		if !s.ReconnectPending || s.ManualDisconnect {
			return s, nil
		}
		s.ReconnectPending = false
		fx = append(fx, Notify{
			Kind:    events.NoticeReconnecting,
			Message: fmt.Sprintf("Reconnecting (attempt %d)...", s.Attempts),
			Attempt: s.Attempts,
		})
	} else {
		if s.ReconnectPending {
			fx = append(fx, CancelReconnect{})
			s.ReconnectPending = false
		}
		s.Attempts = 0
		s.ManualDisconnect = false
		s.Err = nil
		fx = append(fx, Notify{Kind: events.NoticeConnecting, Message: "Connecting..."})
	}
	s.Status = StatusConnecting
	s.Dialing = true
	return s, append(fx, Dial{Handle: s.Handle})
}

// onUnexpectedLoss applies the reconnect policy after a dial failure or an
// unexpected closure.
func onUnexpectedLoss(p Policy, s State, fx []Effect, cause error) (State, []Effect) {
	if s.ManualDisconnect {
		if s.Status != StatusError {
			s.Status = StatusDisconnected
		}
		return s, fx
	}
	if s.Handle == "" {
		if s.Status == StatusConnected {
			s.Status = StatusDisconnected
			return s, append(fx, Notify{Kind: events.NoticeDisconnected, Message: "Connection closed"})
		}
		s.Status = StatusError
		s.Err = fmt.Errorf("%w: %w", ErrConnectionFailed, orUnknown(cause))
		return s, append(fx, Notify{Kind: events.NoticeError, Message: describe("Connection failed", cause)})
	}

	s.Attempts++
	if s.Attempts > p.MaxAttempts {
		s.Status = StatusError
		s.Err = fmt.Errorf("%w after %d attempts: %w", ErrReconnectExhausted, p.MaxAttempts, orUnknown(cause))
		return s, append(fx, Notify{
			Kind:    events.NoticeError,
			Message: fmt.Sprintf("Reconnection failed after %d attempts", p.MaxAttempts),
			Attempt: s.Attempts - 1,
			Max:     p.MaxAttempts,
		})
	}
	delay := BackoffDelay(p, s.Attempts)
	s.Status = StatusConnecting
	s.ReconnectPending = true
	return s, append(fx,
		ScheduleReconnect{Attempt: s.Attempts, Delay: delay},
		Notify{
			Kind: events.NoticeReconnecting,
			Message: fmt.Sprintf("Connection lost. Reconnecting in %ds (attempt %d of %d)",
				int((delay+time.Second-1)/time.Second), s.Attempts, p.MaxAttempts),
			Attempt: s.Attempts,
			Max:     p.MaxAttempts,
			RetryIn: delay,
		},
	)
}

func onDisconnect(s State) (State, []Effect) {
	s.ManualDisconnect = true
	var fx []Effect
	if s.ReconnectPending {
		s.ReconnectPending = false
		fx = append(fx, CancelReconnect{})
	}
	if s.Dialing {
		s.Dialing = false
		fx = append(fx, CancelDial{})
	}
	if s.ChannelOpen {
		s.ChannelOpen = false
		fx = append(fx,
			CloseChannel{Code: streaming.CloseNormal, Reason: "client disconnect", SendStop: true},
			StopMedia{},
		)
	}
	if s.Status != StatusDisconnected {
		s.Status = StatusDisconnected
		fx = append(fx, Notify{Kind: events.NoticeDisconnected, Message: "Disconnected"})
	}
	return s, fx
}

func onStatus(s State, e StatusReceived) (State, []Effect) {
	var fx []Effect
	if e.SendRate > 0 {
		s.SendRate = e.SendRate
	}
	if e.ReceiveRate > 0 {
		s.ReceiveRate = e.ReceiveRate
	}
	if e.Handle != "" && e.Handle != s.Handle {
		s.Handle = e.Handle
		fx = append(fx, PersistHandle{Handle: e.Handle})
	}
	if s.Status == StatusConnecting && s.ChannelOpen {
		s.Status = StatusConnected
		s.Attempts = 0
		fx = append(fx, Notify{Kind: events.NoticeConnected, Message: "Connected"})
	}
	return s, fx
}

// onTerminal handles the server ending the logical session.
func onTerminal(s State, reason, message string) (State, []Effect) {
	s.ManualDisconnect = true
	var fx []Effect
	if s.ReconnectPending {
		s.ReconnectPending = false
		fx = append(fx, CancelReconnect{})
	}
	s.Handle = ""
	fx = append(fx, ClearPersistedHandle{Reason: reason})
	if s.Dialing {
		s.Dialing = false
		fx = append(fx, CancelDial{})
	}
	if s.ChannelOpen {
		s.ChannelOpen = false
		fx = append(fx, CloseChannel{Code: streaming.CloseNormal, Reason: reason}, StopMedia{})
	}
	s.Status = StatusDisconnected
	return s, append(fx, Notify{Kind: events.NoticeEnded, Message: message})
}

func onServerError(s State, e ServerError) (State, []Effect) {
	s.ManualDisconnect = true
	var fx []Effect
	if s.ReconnectPending {
		s.ReconnectPending = false
		fx = append(fx, CancelReconnect{})
	}
	if s.ChannelOpen {
		s.ChannelOpen = false
		fx = append(fx, CloseChannel{Code: streaming.CloseNormal, Reason: "server error"}, StopMedia{})
	}
	s.Status = StatusError
	msg := e.Message
	if msg == "" {
		msg = "Server error"
	}
	s.Err = fmt.Errorf("%w: %s", ErrServer, msg)
	return s, append(fx, Notify{Kind: events.NoticeError, Message: msg})
}

func onMediaFailed(s State, e MediaFailed) (State, []Effect) {
	if !s.ChannelOpen {
		return s, nil
	}
	s.ChannelOpen = false
	s.ManualDisconnect = true
	s.Status = StatusError
	s.Err = orUnknown(e.Err)
	return s, []Effect{
		StopMedia{},
		CloseChannel{Code: streaming.CloseNormal, Reason: "device unavailable"},
		Notify{Kind: events.NoticeError, Message: describe("Capture device unavailable", e.Err)},
	}
}

func orUnknown(err error) error {
	if err == nil {
		return errUnknownCause
	}
	return err
}

func describe(prefix string, err error) string {
	if err == nil {
		return prefix
	}
	return prefix + ": " + err.Error()
}
