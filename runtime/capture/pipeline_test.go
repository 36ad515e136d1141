package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candorlabs/liveinterview/runtime/audio"
	"github.com/candorlabs/liveinterview/runtime/media"
	"github.com/candorlabs/liveinterview/runtime/protocol"
)

type fakeStream struct {
	rate     int
	channels int
	blocks   chan []float32
	closed   chan struct{}
	once     sync.Once
	readErr  error
}

func newFakeStream(rate, channels int) *fakeStream {
	return &fakeStream{
		rate:     rate,
		channels: channels,
		blocks:   make(chan []float32, 8),
		closed:   make(chan struct{}),
	}
}

func (s *fakeStream) SampleRate() int { return s.rate }
func (s *fakeStream) Channels() int   { return s.channels }

func (s *fakeStream) Read(ctx context.Context) ([]float32, error) {
	select {
	case b, ok := <-s.blocks:
		if !ok {
			return nil, s.readErr
		}
		return b, nil
	case <-s.closed:
		return nil, errors.New("stream closed")
	case <-ctx.Done():
		return nil, ctx.Err()
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

type fakeSource struct {
	stream  *fakeStream
	err     error
	opens   atomic.Int32
	lastBlk int
}

func (f *fakeSource) Open(_ context.Context, blockSize int) (Stream, error) {
	f.opens.Add(1)
	f.lastBlk = blockSize
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

type frameRecorder struct {
	mu     sync.Mutex
	frames []audio.Frame
	got    chan struct{}
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{got: make(chan struct{}, 16)}
}

func (r *frameRecorder) sink(f audio.Frame, _ float64) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *frameRecorder) wait(t *testing.T, n int) []audio.Frame {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i+1)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audio.Frame(nil), r.frames...)
}

func TestProcessBlock(t *testing.T) {
	block := []float32{0.5, -1, 0.5, -1, 0.5, -1, 0.5, -1}

	frame, level, ok := ProcessBlock(block, 2, 48000, 24000)
	require.True(t, ok)
	assert.Equal(t, 24000, frame.SampleRate)
	// Channel 0 only: four samples of 0.5 averaged in pairs.
	assert.Equal(t, []int16{16383, 16383}, frame.Samples)
	assert.InDelta(t, 0.5, level, 1e-6)
}

func TestProcessBlock_EmptySkipped(t *testing.T) {
	_, _, ok := ProcessBlock(nil, 1, 48000, 16000)
	assert.False(t, ok)

	// One sample at 48k rounds to zero output samples at 16k.
	_, _, ok = ProcessBlock([]float32{0.1}, 1, 48000, 16000)
	assert.False(t, ok)
}

func TestPipeline_UsesNegotiatedRateThenFallback(t *testing.T) {
	stream := newFakeStream(48000, 1)
	src := &fakeSource{stream: stream}
	rec := newFrameRecorder()

	var sendRate atomic.Int64
	p := NewPipeline(src, WithBlockSize(480), WithFallbackRate(16000))
	h, err := p.Start(context.Background(), func() int { return int(sendRate.Load()) }, rec.sink, nil)
	require.NoError(t, err)
	defer h.Stop()

	assert.Equal(t, 480, src.lastBlk)

	stream.blocks <- make([]float32, 480)
	frames := rec.wait(t, 1)
	assert.Equal(t, 16000, frames[0].SampleRate)
	assert.Len(t, frames[0].Samples, 160)

	sendRate.Store(24000)
	stream.blocks <- make([]float32, 480)
	frames = rec.wait(t, 1)
	assert.Equal(t, 24000, frames[1].SampleRate)
	assert.Len(t, frames[1].Samples, 240)
}

func TestPipeline_OpenFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("permission denied")}
	p := NewPipeline(src)

	h, err := p.Start(context.Background(), nil, func(audio.Frame, float64) {}, nil)
	assert.Nil(t, h)
	require.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.ErrorContains(t, err, "permission denied")
}

func TestPipeline_StopReleasesDeviceOnce(t *testing.T) {
	stream := newFakeStream(16000, 1)
	p := NewPipeline(&fakeSource{stream: stream})

	h, err := p.Start(context.Background(), nil, func(audio.Frame, float64) {}, nil)
	require.NoError(t, err)

	require.NoError(t, h.Stop())
	assert.True(t, stream.isClosed())
	require.NoError(t, h.Stop())

	select {
	case <-h.Done():
	default:
		t.Fatal("drain goroutine still running after Stop")
	}
}

func TestPipeline_ReadErrorReported(t *testing.T) {
	stream := newFakeStream(16000, 1)
	stream.readErr = errors.New("device unplugged")
	close(stream.blocks)

	errCh := make(chan error, 1)
	p := NewPipeline(&fakeSource{stream: stream})
	h, err := p.Start(context.Background(), nil, func(audio.Frame, float64) {}, func(err error) { errCh <- err })
	require.NoError(t, err)
	defer h.Stop()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrDeviceUnavailable)
		assert.ErrorContains(t, err, "device unplugged")
	case <-time.After(2 * time.Second):
		t.Fatal("read error not reported")
	}
}

func TestHandle_NilStop(t *testing.T) {
	var h *Handle
	assert.NoError(t, h.Stop())
}

type fakeCamera struct {
	still  []byte
	closed atomic.Bool
}

func (c *fakeCamera) Capture(context.Context) ([]byte, error) { return c.still, nil }
func (c *fakeCamera) Close() error                          { c.closed.Store(true); return nil }

type fakeFrameSource struct {
	cam *fakeCamera
	err error
}

func (f *fakeFrameSource) Open(context.Context) (Camera, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cam, nil
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestCameraSampler_EmitsImageMessages(t *testing.T) {
	cam := &fakeCamera{still: testJPEG(t, 64, 48)}
	s := NewCameraSampler(&fakeFrameSource{cam: cam}, 10*time.Millisecond, media.DefaultFrameConfig())

	got := make(chan protocol.ImageMessage, 4)
	h, err := s.Start(context.Background(), func(msg protocol.ImageMessage, _ int) {
		select {
		case got <- msg:
		default:
		}
	})
	require.NoError(t, err)

	select {
	case msg := <-got:
		assert.Equal(t, "image/jpeg", msg.MimeType)
		assert.NotEmpty(t, msg.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("no camera frame emitted")
	}

	require.NoError(t, h.Stop())
	assert.True(t, cam.closed.Load())
}

func TestCameraSampler_OpenFailure(t *testing.T) {
	s := NewCameraSampler(&fakeFrameSource{err: errors.New("busy")}, 0, media.DefaultFrameConfig())
	assert.Equal(t, DefaultCameraInterval, s.interval)

	_, err := s.Start(context.Background(), func(protocol.ImageMessage, int) {})
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestDropLog_Throttles(t *testing.T) {
	d := NewDropLog("audio", time.Hour)

	assert.True(t, d.Drop("channel_closed"))
	assert.False(t, d.Drop("channel_closed"))
	assert.False(t, d.Drop("channel_closed"))
	assert.Equal(t, int64(3), d.Total())
}
