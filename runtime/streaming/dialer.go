package streaming

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
)

// Close codes used by the session controller.
const (
	CloseNormal    = websocket.CloseNormalClosure
	CloseGoingAway = websocket.CloseGoingAway
)

// ResumeParam is the query parameter carrying the resumption handle.
const ResumeParam = "resume"

// Channel is an open, ordered, reliable message channel.
type Channel interface {
	// Send writes one message. It is safe for concurrent use.
	Send(data []byte) error
	// ReceiveLoop delivers inbound messages to out until the channel ends.
	ReceiveLoop(ctx context.Context, out chan<- []byte) error
	// Close ends the channel with the given close code.
	Close(code int, reason string) error
}

// Dialer opens channels.
type Dialer interface {
	Dial(ctx context.Context, url string) (Channel, error)
}

// WebSocketDialer opens gorilla/websocket channels with a shared config.
type WebSocketDialer struct {
	Config ConnConfig
}

// NewWebSocketDialer creates a dialer that applies cfg to every connection.
func NewWebSocketDialer(cfg ConnConfig) *WebSocketDialer {
	return &WebSocketDialer{Config: cfg}
}

// Dial connects to target.
func (d *WebSocketDialer) Dial(ctx context.Context, target string) (Channel, error) {
	cfg := d.Config
	cfg.URL = target
	conn := NewConn(&cfg)
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// ResumeURL returns base with the resume query parameter set to handle.
// An empty handle leaves base unchanged.
func ResumeURL(base, handle string) (string, error) {
	if handle == "" {
		return base, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	q := u.Query()
	q.Set(ResumeParam, handle)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var _ Channel = (*Conn)(nil)
