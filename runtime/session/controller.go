package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/candorlabs/liveinterview/runtime/capture"
	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/logger"
	"github.com/candorlabs/liveinterview/runtime/playback"
	"github.com/candorlabs/liveinterview/runtime/protocol"
	"github.com/candorlabs/liveinterview/runtime/statestore"
	"github.com/candorlabs/liveinterview/runtime/streaming"
	"github.com/candorlabs/liveinterview/runtime/transcript"
)

const storeTimeout = 5 * time.Second

// Controller runs one interview session.
type Controller struct {
	id       string
	url      string
	dialer   streaming.Dialer
	store    statestore.HandleStore
	key      string
	policy   Policy
	clock    Clock
	queueCap int

	mic    *capture.Pipeline
	camera *capture.CameraSampler
	player *playback.Scheduler

	transcript *transcript.Aggregator
	log        *transcript.Log
	emitter    *events.Emitter
	dispatcher *protocol.Dispatcher
	drops      *capture.DropLog

	inbox   chan func()
	started chan struct{}
	stopped chan struct{}
	running atomic.Bool

	// Fields below are owned by the loop goroutine.
	runCtx     context.Context //nolint:containedctx // parent for dial and connection contexts
	logCtx     context.Context //nolint:containedctx // carries logging fields
	state      State
	context    protocol.ContextMessage
	gen        uint64
	dialCancel context.CancelFunc
	conn       *connection
	media      []*capture.Handle
	timer      Timer
	timerGen   uint64
	proctoring Proctoring

	sendRate atomic.Int64
}

// NewController validates cfg and builds a controller. Call Run to start it.
func NewController(cfg Config) (*Controller, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("server url is required")
	}
	if cfg.Dialer == nil {
		return nil, fmt.Errorf("dialer is required")
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.New().String()
	}
	if cfg.Store == nil {
		cfg.Store = statestore.NewMemoryStore()
	}
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = DefaultSendQueueSize
	}
	if cfg.Output == nil {
		cfg.Output = playback.NewTimeline(0)
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}

	emitter := events.NewEmitter(cfg.Bus, cfg.SessionID)
	c := &Controller{
		id:       cfg.SessionID,
		url:      cfg.URL,
		dialer:   cfg.Dialer,
		store:    cfg.Store,
		key:      cfg.handleKey(),
		policy:   cfg.Policy,
		clock:    cfg.Clock,
		queueCap: cfg.SendQueueSize,
		mic:      cfg.Microphone,
		camera:   cfg.Camera,
		player: playback.NewScheduler(cfg.Output,
			playback.WithLatencyMargin(marginOrDefault(cfg.LatencyMargin)),
			playback.WithEmitter(emitter)),
		transcript: transcript.NewAggregator(transcript.WithEmitter(emitter)),
		log:        transcript.NewLog(emitter),
		emitter:    emitter,
		drops:      capture.NewDropLog("audio", 5*time.Second),
		inbox:      make(chan func()),
		started:    make(chan struct{}),
		stopped:    make(chan struct{}),
		context:    cfg.Context,
		state:      State{Status: StatusDisconnected},
		proctoring: Proctoring{Remaining: -1},
	}
	c.dispatcher = protocol.NewDispatcher(inboundHandler{c}, emitter)

	ctx := logger.WithSessionID(context.Background(), c.id)
	if cfg.InterviewID != "" {
		ctx = logger.WithInterviewID(ctx, cfg.InterviewID)
	}
	c.logCtx = logger.WithComponent(ctx, "session")
	return c, nil
}

func marginOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return playback.DefaultLatencyMargin
	}
	return d
}

// SessionID returns the client session id.
func (c *Controller) SessionID() string { return c.id }

// Transcript returns the utterance aggregator.
func (c *Controller) Transcript() *transcript.Aggregator { return c.transcript }

// Messages returns the conversational chat log.
func (c *Controller) Messages() *transcript.Log { return c.log }

// Started is closed once Run is accepting calls.
func (c *Controller) Started() <-chan struct{} { return c.started }

// Done is closed after Run returns.
func (c *Controller) Done() <-chan struct{} { return c.stopped }

// Run loads the persisted handle and processes events until ctx ends. On
// exit it tears down any open channel and releases all devices.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	c.runCtx = ctx
	defer close(c.stopped)
	close(c.started)

	c.restoreHandle(ctx)

	for {
		select {
		case fn := <-c.inbox:
			fn()
		case <-ctx.Done():
			c.shutdown()
			return nil
		}
	}
}

func (c *Controller) restoreHandle(ctx context.Context) {
	loadCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	handle, err := statestore.LoadHandle(loadCtx, c.store, c.key)
	if err != nil {
		logger.WarnContext(c.logCtx, "Failed to load resumption handle", "key", c.key, "error", err)
		return
	}
	if handle != "" {
		c.state.Handle = handle
		c.emitter.HandleChanged(true, "restored")
		logger.InfoContext(c.logCtx, "Restored resumption handle", "handle", logger.RedactHandle(handle))
	}
}

// shutdown runs on the loop after ctx ends.
func (c *Controller) shutdown() {
	c.apply(DisconnectRequested{})
}

// post hands fn to the loop. It reports false before Run starts or once ctx or the loop ends.
func (c *Controller) post(ctx context.Context, fn func()) bool {
	if !c.running.Load() {
		return false
	}
	select {
	case c.inbox <- fn:
		return true
	case <-ctx.Done():
		return false
	case <-c.stopped:
		return false
	}
}

// call runs fn on the loop and waits for it.
func (c *Controller) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !c.post(ctx, func() { defer close(done); fn() }) {
		if !c.running.Load() {
			return ErrNotRunning
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect opens the session. Run must be running. It is a no-op while a dial is in flight or the
// channel is open. The call returns once the dial has started; progress is
// reported through events and State.
func (c *Controller) Connect(ctx context.Context) error {
	return c.call(ctx, func() { c.apply(ConnectRequested{}) })
}

// Disconnect stops the session, cancels any pending reconnect and releases
// all devices. It is idempotent.
func (c *Controller) Disconnect(ctx context.Context) error {
	return c.call(ctx, func() { c.apply(DisconnectRequested{}) })
}

// ClearHandle discards the resumption handle, in memory and in the store.
func (c *Controller) ClearHandle(ctx context.Context) error {
	return c.call(ctx, func() { c.apply(ClearHandleRequested{}) })
}

// State returns a snapshot of the session state.
func (c *Controller) State(ctx context.Context) (State, error) {
	var s State
	err := c.call(ctx, func() { s = c.state })
	return s, err
}

// Proctoring returns the current look-away counters.
func (c *Controller) Proctoring(ctx context.Context) (Proctoring, error) {
	var p Proctoring
	err := c.call(ctx, func() { p = c.proctoring })
	return p, err
}

// SendText sends typed user input and records it in the chat log.
func (c *Controller) SendText(ctx context.Context, text string) error {
	var sendErr error
	err := c.call(ctx, func() {
		sendErr = c.enqueue(protocol.TextMessage{Text: text, TurnComplete: true}, "text")
		if sendErr == nil {
			c.log.Append(protocol.RoleUser, text)
		}
	})
	if err != nil {
		return err
	}
	return sendErr
}

// SendContext replaces the interview context. It is sent immediately when
// the channel is open and on every later open.
func (c *Controller) SendContext(ctx context.Context, msg protocol.ContextMessage) error {
	var sendErr error
	err := c.call(ctx, func() {
		c.context = msg
		if c.conn != nil {
			sendErr = c.enqueue(msg, "context")
		}
	})
	if err != nil {
		return err
	}
	return sendErr
}

// apply runs ev and every follow-up event produced by its effects.
func (c *Controller) apply(ev Event) {
	queue := []Event{ev}
	for len(queue) > 0 {
		ev, queue = queue[0], queue[1:]

		prev := c.state
		next, effects := Transition(c.policy, prev, ev)
		c.state = next
		c.syncRates()

		for _, fx := range effects {
			if follow := c.execute(fx); follow != nil {
				queue = append(queue, follow)
			}
		}

		if prev.Status != next.Status {
			logger.InfoContext(c.logCtx, "Session status changed",
				"from", prev.Status, "to", next.Status, "attempts", next.Attempts)
			c.emitter.StatusChanged(string(prev.Status), string(next.Status))
		}
	}
}

func (c *Controller) syncRates() {
	c.sendRate.Store(int64(c.state.SendRate))
	c.player.SetNegotiatedRate(c.state.ReceiveRate)
}

// execute performs one effect and returns a follow-up event, if any.
func (c *Controller) execute(fx Effect) Event {
	switch e := fx.(type) {
	case Dial:
		return c.dial(e.Handle)
	case CancelDial:
		c.gen++
		if c.dialCancel != nil {
			c.dialCancel()
			c.dialCancel = nil
		}
	case SendContext:
		if err := c.enqueue(c.context, "context"); err != nil {
			logger.WarnContext(c.logCtx, "Failed to queue context", "error", err)
		}
	case StartMedia:
		return c.startMedia()
	case StopMedia:
		c.stopMedia()
	case CloseChannel:
		c.closeConnection(e.Code, e.Reason, e.SendStop)
	case ScheduleReconnect:
		c.scheduleReconnect(e.Attempt, e.Delay)
	case CancelReconnect:
		c.cancelReconnect()
	case PersistHandle:
		c.persistHandle(e.Handle)
	case ClearPersistedHandle:
		c.clearHandle(e.Reason)
	case Notify:
		c.notify(e)
	}
	return nil
}

func (c *Controller) notify(n Notify) {
	if n.Kind == events.NoticeReconnecting && n.Max > 0 {
		c.emitter.ReconnectNotice(n.Message, n.Attempt, n.Max, n.RetryIn)
	} else {
		c.emitter.Notice(n.Kind, n.Message)
	}
	if n.Kind == events.NoticeError {
		logger.WarnContext(c.logCtx, n.Message)
		return
	}
	logger.InfoContext(c.logCtx, n.Message)
}

func (c *Controller) scheduleReconnect(attempt int, delay time.Duration) {
	c.cancelReconnect()
	gen := c.timerGen
	c.timer = c.clock.AfterFunc(delay, func() {
		c.post(c.runCtx, func() {
			if gen != c.timerGen {
				return
			}
			c.timer = nil
			c.apply(ConnectRequested{Reconnect: true})
		})
	})
	c.emitter.ReconnectScheduled(attempt, delay)
	logger.InfoContext(logger.WithAttempt(c.logCtx, attempt), "Reconnect scheduled", "delay", delay)
}

func (c *Controller) cancelReconnect() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) persistHandle(handle string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	rec := &statestore.HandleRecord{Handle: handle, UpdatedAt: c.clock.Now()}
	if err := c.store.Save(ctx, c.key, rec); err != nil {
		logger.WarnContext(c.logCtx, "Failed to persist resumption handle", "error", err)
	}
	c.emitter.HandleChanged(true, "issued")
	logger.DebugContext(c.logCtx, "Resumption handle updated", "handle", logger.RedactHandle(handle))
}

func (c *Controller) clearHandle(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := c.store.Clear(ctx, c.key); err != nil {
		logger.WarnContext(c.logCtx, "Failed to clear resumption handle", "error", err)
	}
	c.emitter.HandleChanged(false, reason)
	logger.InfoContext(c.logCtx, "Resumption handle cleared", "reason", reason)
}
