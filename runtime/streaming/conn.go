// Package streaming provides the WebSocket message channel the session
// controller talks to the interview backend over.
//
// It handles transport concerns only (dial, ordered send, receive loop,
// heartbeat, graceful close). Envelope encoding lives in runtime/protocol.
package streaming

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Default connection constants.
const (
	DefaultDialTimeout      = 10 * time.Second
	DefaultWriteWait        = 10 * time.Second
	DefaultMaxMessageSize   = 16 * 1024 * 1024 // 16MB
	DefaultCloseGracePeriod = 5 * time.Second
	DefaultPingInterval     = 20 * time.Second
)

// ErrNotConnected is returned by Send when the channel is not open.
var ErrNotConnected = errors.New("websocket is not connected")

// ConnConfig configures the WebSocket connection behavior.
type ConnConfig struct {
	// URL is the WebSocket endpoint URL, including any resume query parameter.
	URL string

	// Headers are sent during the WebSocket handshake.
	Headers http.Header

	// DialTimeout is the handshake timeout. Defaults to DefaultDialTimeout.
	DialTimeout time.Duration

	// WriteWait is the write deadline for each message. Defaults to DefaultWriteWait.
	WriteWait time.Duration

	// MaxMessageSize is the read limit. Defaults to DefaultMaxMessageSize.
	MaxMessageSize int64

	// CloseGracePeriod is the deadline for writing the close frame.
	CloseGracePeriod time.Duration

	// PingInterval enables ping frames when positive. Zero disables the heartbeat.
	PingInterval time.Duration

	// Logger receives debug/warn/error log messages. Optional.
	Logger Logger
}

// Logger is an optional interface for structured logging.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(_ string, _ ...interface{}) {}
func (noopLogger) Info(_ string, _ ...interface{})  {}
func (noopLogger) Warn(_ string, _ ...interface{})  {}
func (noopLogger) Error(_ string, _ ...interface{}) {}

func (c *ConnConfig) defaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.WriteWait == 0 {
		c.WriteWait = DefaultWriteWait
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.CloseGracePeriod == 0 {
		c.CloseGracePeriod = DefaultCloseGracePeriod
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
}

// Conn is one WebSocket connection. It is not reusable: a reconnect dials a new Conn.
type Conn struct {
	cfg ConnConfig

	conn    *websocket.Conn
	mu      sync.Mutex
	writeMu sync.Mutex // serializes writes (gorilla/websocket requirement)
	closed  bool
	closeCh chan struct{}
}

// NewConn creates a new Conn. Call Connect to establish the connection.
func NewConn(cfg *ConnConfig) *Conn {
	cfg.defaults()
	return &Conn{
		cfg:     *cfg,
		closeCh: make(chan struct{}),
	}
}

// Connect performs the WebSocket handshake.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New("connection is closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.DialTimeout,
		TLSClientConfig:  &tls.Config{MinVersion: tls.VersionTLS12},
		Proxy:            http.ProxyFromEnvironment,
	}

	c.cfg.Logger.Debug("connecting to WebSocket", "url", c.cfg.URL)

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, c.cfg.Headers)
	if err != nil {
		if resp != nil {
			if resp.Body != nil {
				_ = resp.Body.Close()
			}
			c.cfg.Logger.Error("WebSocket dial failed", "error", err, "status", resp.StatusCode)
			return &DialError{StatusCode: resp.StatusCode, Err: err}
		}
		return &DialError{Err: err}
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn = conn
	c.cfg.Logger.Info("WebSocket connected")

	if c.cfg.PingInterval > 0 {
		go c.heartbeatLoop(c.cfg.PingInterval)
	}
	return nil
}

// DialError reports a failed handshake. StatusCode is zero when no HTTP response arrived.
type DialError struct {
	StatusCode int
	Err        error
}

func (e *DialError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to connect (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to connect: %v", e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// Send writes one text frame.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	if c.closed || c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// ReceiveLoop reads frames and delivers them to out in arrival order. It
// returns nil when the channel was closed locally and a *CloseError otherwise.
func (c *Conn) ReceiveLoop(ctx context.Context, out chan<- []byte) error {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	// Unblock ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if c.IsClosed() {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return &CloseError{Code: websocket.CloseNormalClosure, Err: err}
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return &CloseError{Code: ce.Code, Err: err}
			}
			return &CloseError{Code: websocket.CloseAbnormalClosure, Err: err}
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		select {
		case out <- data:
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closeCh:
			return nil
		}
	}
}

// CloseError reports how the remote side ended the channel.
type CloseError struct {
	Code int
	Err  error
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("websocket closed (code %d): %v", e.Code, e.Err)
}

func (e *CloseError) Unwrap() error { return e.Err }

func (c *Conn) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeCh:
			return
		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

func (c *Conn) sendPing() bool {
	c.mu.Lock()
	if c.closed || c.conn == nil {
		c.mu.Unlock()
		return false
	}
	conn := c.conn
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.cfg.Logger.Warn("failed to set write deadline for ping", "error", err)
		return true
	}
	if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.cfg.Logger.Warn("ping failed", "error", err)
		return false
	}
	return true
}

// Close sends a close frame with code and closes the socket. Only the first call has an effect.
func (c *Conn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closeCh)

	if c.conn == nil {
		return nil
	}

	c.writeMu.Lock()
	closeMsg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.CloseGracePeriod))
	_ = c.conn.WriteMessage(websocket.CloseMessage, closeMsg)
	c.writeMu.Unlock()

	return c.conn.Close()
}

// IsClosed returns whether Close has been called.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// IsConnected returns true if the handshake completed and Close has not been called.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}
