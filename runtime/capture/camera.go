package capture

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/candorlabs/liveinterview/runtime/logger"
	"github.com/candorlabs/liveinterview/runtime/media"
	"github.com/candorlabs/liveinterview/runtime/protocol"
)

// DefaultCameraInterval is the spacing between camera frames.
const DefaultCameraInterval = time.Second

// ImageSink receives each encoded camera frame. It must not block.
type ImageSink func(protocol.ImageMessage, int)

// CameraSampler grabs a still from a FrameSource on a fixed interval.
type CameraSampler struct {
	source   FrameSource
	interval time.Duration
	frame    media.FrameConfig
}

// NewCameraSampler creates a sampler. Non-positive intervals use DefaultCameraInterval.
func NewCameraSampler(source FrameSource, interval time.Duration, frame media.FrameConfig) *CameraSampler {
	if interval <= 0 {
		interval = DefaultCameraInterval
	}
	return &CameraSampler{source: source, interval: interval, frame: frame}
}

// Start acquires the camera and begins sampling. Errors grabbing individual
// frames are logged and skipped; only acquisition is fatal.
func (s *CameraSampler) Start(ctx context.Context, sink ImageSink) (*Handle, error) {
	cam, err := s.source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: camera: %w", ErrDeviceUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := newHandle(cancel, cam.Close)
	limiter := rate.NewLimiter(rate.Every(s.interval), 1)
	failures := NewDropLog("image", time.Minute)

	go func() {
		defer close(h.done)
		for {
			if err := limiter.Wait(runCtx); err != nil {
				return
			}
			still, err := cam.Capture(runCtx)
			if runCtx.Err() != nil {
				return
			}
			if err != nil {
				failures.Drop("capture_failed", "error", err)
				continue
			}
			frame, err := media.NormalizeFrame(still, s.frame)
			if err != nil {
				failures.Drop("encode_failed", "error", err)
				continue
			}
			sink(frame.Message(), len(frame.Data))
		}
	}()

	logger.Debug("Camera sampler started", "interval", s.interval)
	return h, nil
}
