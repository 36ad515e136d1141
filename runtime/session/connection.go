package session

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/candorlabs/liveinterview/runtime/audio"
	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/logger"
	"github.com/candorlabs/liveinterview/runtime/protocol"
	"github.com/candorlabs/liveinterview/runtime/streaming"
)

// outFrame is one encoded envelope waiting for the writer.
type outFrame struct {
	data  []byte
	kind  string
	sent  events.FrameSentData
	media bool
}

// connection is one open channel with its reader and writer goroutines.
type connection struct {
	gen    uint64
	ch     streaming.Channel
	ctx    context.Context //nolint:containedctx // scoped to the channel lifetime
	cancel context.CancelFunc
	sendQ  chan outFrame
	group  *errgroup.Group
}

// dial starts an asynchronous dial. The result is posted back to the loop.
func (c *Controller) dial(handle string) Event {
	target, err := streaming.ResumeURL(c.url, handle)
	if err != nil {
		return DialFailed{Err: err}
	}

	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(c.runCtx)
	c.dialCancel = cancel

	logger.DebugContext(c.logCtx, "Dialing", "resume", handle != "")
	go func() {
		ch, err := c.dialer.Dial(ctx, target)
		posted := c.post(c.runCtx, func() { c.onDialResult(gen, ctx, cancel, ch, err) })
		if !posted {
			cancel()
			if ch != nil {
				_ = ch.Close(streaming.CloseGoingAway, "client stopped")
			}
		}
	}()
	return nil
}

// onDialResult runs on the loop. Results from superseded dials are discarded.
func (c *Controller) onDialResult(gen uint64, ctx context.Context, cancel context.CancelFunc,
	ch streaming.Channel, err error) {
	if gen != c.gen || !c.state.Dialing {
		cancel()
		if ch != nil {
			_ = ch.Close(streaming.CloseNormal, "superseded")
		}
		return
	}
	c.dialCancel = nil
	if err != nil {
		cancel()
		logger.WarnContext(c.logCtx, "Dial failed", "error", err)
		c.apply(DialFailed{Err: err})
		return
	}
	c.startConnection(gen, ctx, cancel, ch)
	c.apply(Opened{})
}

func (c *Controller) startConnection(gen uint64, ctx context.Context, cancel context.CancelFunc, ch streaming.Channel) {
	conn := &connection{
		gen:    gen,
		ch:     ch,
		ctx:    ctx,
		cancel: cancel,
		sendQ:  make(chan outFrame, c.queueCap),
	}
	group, gctx := errgroup.WithContext(ctx)
	conn.group = group
	c.conn = conn

	raw := make(chan []byte, 16)
	var readErr error
	group.Go(func() error {
		defer close(raw)
		readErr = ch.ReceiveLoop(gctx, raw)
		return nil
	})
	group.Go(func() error {
		for msg := range raw {
			if !c.post(c.runCtx, func() { c.onInbound(gen, msg) }) {
				return nil
			}
		}
		// raw is closed only after readErr is written.
		err := readErr
		c.post(c.runCtx, func() { c.onClosed(gen, err) })
		return nil
	})
	group.Go(func() error {
		return c.writeLoop(gctx, conn)
	})
}

func (c *Controller) writeLoop(ctx context.Context, conn *connection) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-conn.sendQ:
			if err := conn.ch.Send(f.data); err != nil {
				logger.DebugContext(c.logCtx, "Send failed", "kind", f.kind, "error", err)
				// Closing the channel ends the reader, which reports the loss.
				_ = conn.ch.Close(streaming.CloseGoingAway, "send failed")
				return fmt.Errorf("send %s: %w", f.kind, err)
			}
			if f.media {
				c.emitter.FrameSent(f.sent)
			}
		}
	}
}

func (c *Controller) onInbound(gen uint64, msg []byte) {
	if c.conn == nil || c.conn.gen != gen {
		return
	}
	c.dispatcher.Dispatch(msg)
}

func (c *Controller) onClosed(gen uint64, err error) {
	if c.conn == nil || c.conn.gen != gen {
		return
	}
	c.releaseConnection()
	logger.InfoContext(c.logCtx, "Channel closed", "error", err)
	c.apply(Closed{Err: err})
}

// closeConnection is the local close. The reader's closure report is ignored
// because c.conn no longer matches its generation.
func (c *Controller) closeConnection(code int, reason string, sendStop bool) {
	conn := c.conn
	if conn == nil {
		return
	}
	if sendStop {
		if data, err := protocol.Marshal(protocol.Stop()); err == nil {
			if err := conn.ch.Send(data); err != nil {
				logger.DebugContext(c.logCtx, "Stop control not sent", "error", err)
			}
		}
	}
	if err := conn.ch.Close(code, reason); err != nil {
		logger.DebugContext(c.logCtx, "Channel close", "error", err)
	}
	c.releaseConnection()
}

// releaseConnection cancels the connection goroutines without waiting on the
// forwarder, which may be blocked posting to this loop.
func (c *Controller) releaseConnection() {
	conn := c.conn
	c.conn = nil
	conn.cancel()
	go func() {
		if err := conn.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			logger.DebugContext(c.logCtx, "Connection goroutines exited", "error", err)
		}
	}()
}

// enqueue marshals msg onto the open connection's send queue without blocking.
func (c *Controller) enqueue(msg protocol.Outbound, kind string) error {
	conn := c.conn
	if conn == nil {
		return ErrNotConnected
	}
	data, err := protocol.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	select {
	case conn.sendQ <- outFrame{data: data, kind: kind}:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// offerMedia is called from capture goroutines. It drops the frame when the
// queue is full or the connection is gone.
func (c *Controller) offerMedia(conn *connection, msg protocol.Outbound, sent events.FrameSentData) {
	if conn.ctx.Err() != nil {
		c.emitter.FrameDropped(sent.Kind, "closed")
		c.drops.Drop("closed", "frame_kind", sent.Kind)
		return
	}
	data, err := protocol.Marshal(msg)
	if err != nil {
		c.drops.Drop("marshal", "error", err)
		return
	}
	sent.Bytes = len(data)
	select {
	case conn.sendQ <- outFrame{data: data, kind: sent.Kind, sent: sent, media: true}:
	default:
		c.emitter.FrameDropped(sent.Kind, "queue_full")
		c.drops.Drop("queue_full", "frame_kind", sent.Kind)
	}
}

// startMedia acquires the microphone and camera for the current connection.
func (c *Controller) startMedia() Event {
	conn := c.conn
	if conn == nil {
		return nil
	}
	rate := func() int { return int(c.sendRate.Load()) }
	// Posted from its own goroutine: the loop may be waiting in stopMedia
	// for the capture goroutine that reports the failure.
	onErr := func(err error) {
		go c.post(c.runCtx, func() {
			if c.conn == conn {
				c.apply(MediaFailed{Err: err})
			}
		})
	}

	if c.mic != nil {
		h, err := c.mic.Start(conn.ctx, rate, func(f audio.Frame, level float64) {
			c.offerMedia(conn, protocol.AudioMessage{Data: audio.EncodeFrame(f)},
				events.FrameSentData{Kind: "audio", Samples: len(f.Samples), Level: level})
		}, onErr)
		if err != nil {
			logger.WarnContext(c.logCtx, "Microphone unavailable", "error", err)
			return MediaFailed{Err: err}
		}
		c.media = append(c.media, h)
	}

	if c.camera != nil {
		h, err := c.camera.Start(conn.ctx, func(m protocol.ImageMessage, size int) {
			c.offerMedia(conn, m, events.FrameSentData{Kind: "image", Bytes: size})
		})
		if err != nil {
			logger.WarnContext(c.logCtx, "Camera unavailable", "error", err)
			c.stopMedia()
			return MediaFailed{Err: err}
		}
		c.media = append(c.media, h)
	}
	return nil
}

// stopMedia releases every acquired device and flushes scheduled playback.
func (c *Controller) stopMedia() {
	for _, h := range c.media {
		if err := h.Stop(); err != nil {
			logger.DebugContext(c.logCtx, "Device release", "error", err)
		}
	}
	c.media = nil
	c.player.Reset()
}
