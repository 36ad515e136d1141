// Package session owns the live interview connection: its state machine,
// resumption handle, reconnection policy, and the wiring between the message
// channel, capture devices, playback and the transcript.
//
// All state changes happen on a single event-loop goroutine started by
// Controller.Run. Device callbacks, channel reads and timer fires are posted
// to that loop as messages; public methods do the same and wait for the
// result.
package session

import (
	"errors"
	"time"

	"github.com/candorlabs/liveinterview/runtime/capture"
	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/playback"
	"github.com/candorlabs/liveinterview/runtime/protocol"
	"github.com/candorlabs/liveinterview/runtime/statestore"
	"github.com/candorlabs/liveinterview/runtime/streaming"
)

// DefaultSendQueueSize bounds outbound frames waiting for the writer.
const DefaultSendQueueSize = 64

// Session errors.
var (
	// ErrDeviceUnavailable is returned when a capture device cannot be acquired.
	ErrDeviceUnavailable = capture.ErrDeviceUnavailable
	// ErrReconnectExhausted is the terminal error after the reconnect budget is spent.
	ErrReconnectExhausted = errors.New("reconnection attempts exhausted")
	// ErrConnectionFailed is recorded when the channel is lost and no resumption handle exists.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrServer wraps a backend-declared error.
	ErrServer = errors.New("server error")
	// ErrNotConnected is returned by sends while the channel is not open.
	ErrNotConnected = errors.New("session is not connected")
	// ErrSendQueueFull is returned when the outbound queue cannot take a message.
	ErrSendQueueFull = errors.New("send queue full")
	// ErrClosed is returned once Run has exited.
	ErrClosed = errors.New("session controller stopped")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("session controller already running")
	// ErrNotRunning is returned by calls made before Run starts.
	ErrNotRunning = errors.New("session controller not running")

	errUnknownCause = errors.New("channel closed")
)

// Timer is a pending reconnect.
type Timer interface {
	Stop() bool
}

// Clock schedules reconnects. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Config configures a Controller.
type Config struct {
	// URL is the backend channel address, without the resume parameter.
	URL string
	// Dialer opens channels. Required.
	Dialer streaming.Dialer

	// SessionID identifies this client session in logs and events. Generated if empty.
	SessionID string
	// InterviewID scopes the persisted handle and is attached to logs.
	InterviewID string
	// HandleKey overrides the store key derived from InterviewID.
	HandleKey string
	// Store persists the resumption handle. Defaults to an in-memory store.
	Store statestore.HandleStore

	// Context is sent as the first envelope on every open channel.
	Context protocol.ContextMessage

	Policy        Policy
	SendQueueSize int

	// Microphone and Camera are optional; nil disables that input.
	Microphone *capture.Pipeline
	Camera     *capture.CameraSampler
	// Output receives scheduled playback. Defaults to a 24kHz Timeline.
	Output        playback.Output
	LatencyMargin time.Duration

	// Bus receives session events. Optional.
	Bus   *events.EventBus
	Clock Clock
}

func (c *Config) handleKey() string {
	switch {
	case c.HandleKey != "":
		return c.HandleKey
	case c.InterviewID != "":
		return "interview:" + c.InterviewID
	default:
		return statestore.DefaultKey
	}
}
