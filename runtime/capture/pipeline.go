package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/candorlabs/liveinterview/runtime/audio"
	"github.com/candorlabs/liveinterview/runtime/logger"
)

// RateFunc reports the current send rate; 0 means not yet negotiated.
type RateFunc func() int

// FrameSink receives each quantized frame. It runs on the capture goroutine
// and must not block.
type FrameSink func(audio.Frame, float64)

// ErrorFunc is called once if the device fails after acquisition.
type ErrorFunc func(error)

// Pipeline drains an audio Source in fixed-size blocks.
type Pipeline struct {
	source       Source
	blockSize    int
	fallbackRate int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithBlockSize overrides DefaultBlockSize.
func WithBlockSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.blockSize = n
		}
	}
}

// WithFallbackRate sets the send rate used before the backend announces one.
func WithFallbackRate(rate int) PipelineOption {
	return func(p *Pipeline) {
		if rate > 0 {
			p.fallbackRate = rate
		}
	}
}

// NewPipeline creates a pipeline reading from source.
func NewPipeline(source Source, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		source:       source,
		blockSize:    DefaultBlockSize,
		fallbackRate: audio.SampleRate16kHz,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start acquires the device and begins emitting frames to sink. A failure to
// open the device is returned wrapped in ErrDeviceUnavailable and leaves
// nothing running.
func (p *Pipeline) Start(ctx context.Context, rate RateFunc, sink FrameSink, onErr ErrorFunc) (*Handle, error) {
	stream, err := p.source.Open(ctx, p.blockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: microphone: %w", ErrDeviceUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := newHandle(cancel, stream.Close)

	logger.Debug("Capture started",
		"device_rate", stream.SampleRate(),
		"channels", stream.Channels(),
		"block_size", p.blockSize)

	go func() {
		defer close(h.done)
		p.run(runCtx, stream, rate, sink, onErr)
	}()
	return h, nil
}

func (p *Pipeline) run(ctx context.Context, stream Stream, rate RateFunc, sink FrameSink, onErr ErrorFunc) {
	inputRate := stream.SampleRate()
	channels := stream.Channels()
	for {
		block, err := stream.Read(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if onErr != nil && !errors.Is(err, context.Canceled) {
				onErr(fmt.Errorf("%w: microphone read: %w", ErrDeviceUnavailable, err))
			}
			return
		}

		sendRate := p.fallbackRate
		if rate != nil {
			if r := rate(); r > 0 {
				sendRate = r
			}
		}
		frame, level, ok := ProcessBlock(block, channels, inputRate, sendRate)
		if !ok {
			continue
		}
		sink(frame, level)
	}
}

// ProcessBlock extracts channel 0 from an interleaved block, downsamples it to
// sendRate and quantizes it. ok is false when the downsampled block is empty.
func ProcessBlock(block []float32, channels, inputRate, sendRate int) (frame audio.Frame, level float64, ok bool) {
	mono := channelZero(block, channels)
	resampled := audio.Downsample(mono, inputRate, sendRate)
	if len(resampled) == 0 {
		return audio.Frame{}, 0, false
	}
	return audio.Frame{
		Samples:    audio.Quantize(resampled),
		SampleRate: sendRate,
	}, audio.Level(resampled), true
}

func channelZero(block []float32, channels int) []float32 {
	if channels <= 1 {
		return block
	}
	out := make([]float32, len(block)/channels)
	for i := range out {
		out[i] = block[i*channels]
	}
	return out
}

// Handle owns an acquired device and the goroutine draining it.
type Handle struct {
	cancel   context.CancelFunc
	release  func() error
	once     sync.Once
	done     chan struct{}
	closeErr error
}

func newHandle(cancel context.CancelFunc, release func() error) *Handle {
	return &Handle{cancel: cancel, release: release, done: make(chan struct{})}
}

// Stop releases the device and waits for the drain goroutine to exit.
// It is idempotent and safe on a nil Handle.
func (h *Handle) Stop() error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		h.cancel()
		h.closeErr = h.release()
		<-h.done
	})
	return h.closeErr
}

// Done is closed when the drain goroutine exits.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
