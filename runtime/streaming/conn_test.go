package streaming

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// echoServer returns a test server that echoes WebSocket messages back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

// closingServer sends one message then closes with code.
func closingServer(t *testing.T, code int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"status"}`))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, "bye"))
		_, _, _ = conn.ReadMessage()
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestConn_SendAndReceiveLoop(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c := NewConn(&ConnConfig{URL: wsURL(srv)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.IsConnected())

	out := make(chan []byte, 4)
	done := make(chan error, 1)
	go func() { done <- c.ReceiveLoop(ctx, out) }()

	for _, m := range []string{"one", "two", "three"} {
		require.NoError(t, c.Send([]byte(m)))
	}
	for _, want := range []string{"one", "two", "three"} {
		select {
		case got := <-out:
			assert.Equal(t, want, string(got))
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for echo")
		}
	}

	require.NoError(t, c.Close(CloseNormal, ""))
	select {
	case err := <-done:
		assert.NoError(t, err, "local close is not an error")
	case <-time.After(2 * time.Second):
		t.Fatal("receive loop did not stop")
	}
	assert.False(t, c.IsConnected())
}

func TestConn_ReceiveLoopStopsOnContext(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c := NewConn(&ConnConfig{URL: wsURL(srv)})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close(CloseNormal, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.ReceiveLoop(ctx, make(chan []byte)) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("receive loop ignored cancellation")
	}
}

func TestConn_RemoteCloseReportsCode(t *testing.T) {
	for _, code := range []int{websocket.CloseNormalClosure, websocket.CloseInternalServerErr} {
		srv := closingServer(t, code)

		c := NewConn(&ConnConfig{URL: wsURL(srv)})
		require.NoError(t, c.Connect(context.Background()))

		out := make(chan []byte, 1)
		err := c.ReceiveLoop(context.Background(), out)
		var ce *CloseError
		require.True(t, errors.As(err, &ce), "got %v", err)
		assert.Equal(t, code, ce.Code)
		assert.Len(t, out, 1)

		_ = c.Close(CloseNormal, "")
		srv.Close()
	}
}

func TestConn_SendWhenNotConnected(t *testing.T) {
	c := NewConn(&ConnConfig{URL: "ws://127.0.0.1:1"})
	assert.ErrorIs(t, c.Send([]byte("x")), ErrNotConnected)

	require.NoError(t, c.Close(CloseNormal, ""))
	require.NoError(t, c.Close(CloseNormal, ""), "close is idempotent")
	assert.True(t, c.IsClosed())
	assert.Error(t, c.Connect(context.Background()))
}

func TestConn_DialFailureCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewConn(&ConnConfig{URL: wsURL(srv)})
	err := c.Connect(context.Background())
	var de *DialError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusForbidden, de.StatusCode)
	assert.Contains(t, err.Error(), "403")
}

func TestWebSocketDialer(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	d := NewWebSocketDialer(ConnConfig{WriteWait: time.Second, PingInterval: 10 * time.Millisecond})
	ch, err := d.Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)
	require.NoError(t, ch.Send([]byte("ping")))
	time.Sleep(30 * time.Millisecond) // let a few heartbeats go out
	require.NoError(t, ch.Close(CloseNormal, ""))

	_, err = d.Dial(context.Background(), "ws://127.0.0.1:1/ws")
	assert.Error(t, err)
}

func TestResumeURL(t *testing.T) {
	got, err := ResumeURL("ws://localhost:8000/ws/interview", "")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/ws/interview", got)

	got, err = ResumeURL("ws://localhost:8000/ws/interview", "abc/=+")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/ws/interview?resume=abc%2F%3D%2B", got)

	got, err = ResumeURL("wss://host/ws?lang=en", "h1")
	require.NoError(t, err)
	assert.Equal(t, "wss://host/ws?lang=en&resume=h1", got)

	_, err = ResumeURL("://bad", "h")
	assert.Error(t, err)
}
