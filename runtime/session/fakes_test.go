package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/candorlabs/liveinterview/runtime/capture"
	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/playback"
	"github.com/candorlabs/liveinterview/runtime/protocol"
	"github.com/candorlabs/liveinterview/runtime/statestore"
	"github.com/candorlabs/liveinterview/runtime/streaming"
)

const waitFor = 2 * time.Second

// fakeChannel is an in-memory streaming.Channel. Inbound frames are pushed by
// the test; drop simulates the remote side going away.
type fakeChannel struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
	code   int
	reason string

	in        chan []byte
	remoteErr error
	done      chan struct{}
	once      sync.Once
	dropOnce  sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{in: make(chan []byte, 64), done: make(chan struct{})}
}

func (f *fakeChannel) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("channel closed")
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeChannel) ReceiveLoop(ctx context.Context, out chan<- []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case msg, ok := <-f.in:
			if !ok {
				return f.remoteErr
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return ctx.Err()
			case <-f.done:
				return nil
			}
		}
	}
}

func (f *fakeChannel) Close(code int, reason string) error {
	f.once.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.code = code
		f.reason = reason
		f.mu.Unlock()
		close(f.done)
	})
	return nil
}

// push delivers one inbound envelope.
func (f *fakeChannel) push(t *testing.T, envelope map[string]any) {
	t.Helper()
	data, err := json.Marshal(envelope)
	require.NoError(t, err)
	f.in <- data
}

// drop ends the channel from the remote side after already pushed frames.
func (f *fakeChannel) drop(err error) {
	f.dropOnce.Do(func() {
		f.remoteErr = err
		close(f.in)
	})
}

func (f *fakeChannel) sentTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.sent))
	for _, raw := range f.sent {
		var h struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(raw, &h) == nil {
			types = append(types, h.Type)
		}
	}
	return types
}

func (f *fakeChannel) closedWith() (code int, closed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code, f.closed
}

// fakeDialer hands out fakeChannels, or fails while failErr is set.
type fakeDialer struct {
	mu      sync.Mutex
	urls    []string
	failErr error
	opened  chan *fakeChannel
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{opened: make(chan *fakeChannel, 16)}
}

func (d *fakeDialer) Dial(_ context.Context, url string) (streaming.Channel, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	err := d.failErr
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	ch := newFakeChannel()
	d.opened <- ch
	return ch, nil
}

func (d *fakeDialer) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failErr = err
}

func (d *fakeDialer) dialURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

func (d *fakeDialer) next(t *testing.T) *fakeChannel {
	t.Helper()
	select {
	case ch := <-d.opened:
		return ch
	case <-time.After(waitFor):
		t.Fatal("no channel dialed")
		return nil
	}
}

// manualClock records reconnect timers; the test fires them explicitly.
type manualClock struct {
	mu        sync.Mutex
	timers    []*manualTimer
	scheduled chan time.Duration
}

type manualTimer struct {
	clock   *manualClock
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{scheduled: make(chan time.Duration, 16)}
}

func (c *manualClock) Now() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	t := &manualTimer{clock: c, f: f}
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	c.scheduled <- d
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fire runs every armed timer, stopped ones included, to exercise stale fires.
func (c *manualClock) fire() {
	c.mu.Lock()
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (c *manualClock) nextDelay(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-c.scheduled:
		return d
	case <-time.After(waitFor):
		t.Fatal("no reconnect scheduled")
		return 0
	}
}

// fakeSource is a microphone that emits silent blocks until closed.
type fakeSource struct {
	openErr error
	rate    int
}

func (s *fakeSource) Open(_ context.Context, blockSize int) (capture.Stream, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return &fakeStream{rate: s.rate, block: blockSize, closed: make(chan struct{})}, nil
}

type fakeStream struct {
	rate   int
	block  int
	closed chan struct{}
	once   sync.Once
}

func (s *fakeStream) SampleRate() int { return s.rate }
func (s *fakeStream) Channels() int   { return 1 }

func (s *fakeStream) Read(ctx context.Context) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, errors.New("stream closed")
	case <-time.After(5 * time.Millisecond):
		return make([]float32, s.block), nil
	}
}

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// exclusiveSource is a microphone only one stream can hold at a time, like a
// device opened in exclusive mode.
type exclusiveSource struct {
	mu    sync.Mutex
	opens int
	live  *fakeStream
}

func (s *exclusiveSource) Open(_ context.Context, blockSize int) (capture.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live != nil && !s.live.isClosed() {
		return nil, errors.New("device busy")
	}
	s.opens++
	s.live = &fakeStream{rate: 16000, block: blockSize, closed: make(chan struct{})}
	return s.live, nil
}

func (s *exclusiveSource) stats() (opens int, last *fakeStream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens, s.live
}

// brokenCamera fails to open.
type brokenCamera struct{ err error }

func (c brokenCamera) Open(context.Context) (capture.Camera, error) { return nil, c.err }

type harness struct {
	t      *testing.T
	ctx    context.Context
	ctrl   *Controller
	dialer *fakeDialer
	clock  *manualClock
	store  *statestore.MemoryStore
	bus    *events.EventBus
}

type harnessOption func(*harness, *Config)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		dialer: newFakeDialer(),
		clock:  newManualClock(),
		store:  statestore.NewMemoryStore(),
		bus:    events.NewEventBus(),
	}
	cfg := Config{
		URL:         "ws://backend.test/ws/interview",
		Dialer:      h.dialer,
		SessionID:   "s1",
		InterviewID: "42",
		Store:       h.store,
		Context:     protocol.ContextMessage{ResumeText: "resume", JobDescriptionText: "job"},
		Output:      playback.NewTimeline(24000),
		Bus:         h.bus,
		Clock:       h.clock,
	}
	for _, opt := range opts {
		opt(h, &cfg)
	}

	ctrl, err := NewController(cfg)
	require.NoError(t, err)
	h.ctrl = ctrl

	ctx, cancel := context.WithCancel(context.Background())
	h.ctx = context.Background()
	go func() { _ = ctrl.Run(ctx) }()
	<-ctrl.Started()
	t.Cleanup(func() {
		cancel()
		<-ctrl.Done()
		h.bus.Close()
	})
	return h
}

// withHandle preloads the store before Run starts.
func withHandle(value string) harnessOption {
	return func(h *harness, cfg *Config) {
		_ = h.store.Save(context.Background(), cfg.handleKey(), &statestore.HandleRecord{Handle: value})
	}
}

func withConfig(edit func(*Config)) harnessOption {
	return func(_ *harness, cfg *Config) { edit(cfg) }
}

func (h *harness) state() State {
	h.t.Helper()
	s, err := h.ctrl.State(h.ctx)
	require.NoError(h.t, err)
	return s
}

func (h *harness) waitStatus(want Status) State {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		s, err := h.ctrl.State(h.ctx)
		return err == nil && s.Status == want
	}, waitFor, 5*time.Millisecond, "status never became %s", want)
	return h.state()
}

// connectLive connects, opens a channel and delivers the ready status.
func (h *harness) connectLive() *fakeChannel {
	h.t.Helper()
	require.NoError(h.t, h.ctrl.Connect(h.ctx))
	ch := h.dialer.next(h.t)
	require.Eventually(h.t, func() bool { return len(ch.sentTypes()) > 0 }, waitFor, 5*time.Millisecond)
	ch.push(h.t, map[string]any{
		"type":              "status",
		"status":            "ready",
		"sendSampleRate":    16000,
		"receiveSampleRate": 24000,
	})
	h.waitStatus(StatusConnected)
	return ch
}

func (h *harness) storedHandle() string {
	h.t.Helper()
	handle, err := statestore.LoadHandle(context.Background(), h.store, "interview:42")
	require.NoError(h.t, err)
	return handle
}
