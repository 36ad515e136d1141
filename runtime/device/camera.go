package device

import (
	"context"
	"fmt"

	"github.com/candorlabs/liveinterview/runtime/capture"
	"github.com/candorlabs/liveinterview/runtime/media"
)

// FFmpegCamera grabs stills from a webcam by running ffmpeg once per frame.
type FFmpegCamera struct {
	Config media.StillConfig
}

// NewFFmpegCamera creates a camera source. Zero fields of cfg use per-OS defaults.
func NewFFmpegCamera(cfg media.StillConfig) *FFmpegCamera {
	return &FFmpegCamera{Config: cfg}
}

// Open verifies that ffmpeg is runnable and grabs one test frame so a missing
// device fails at acquisition rather than on the first sample.
func (c *FFmpegCamera) Open(ctx context.Context) (capture.Camera, error) {
	if err := media.CheckFFmpegAvailable(c.Config.FFmpegPath); err != nil {
		return nil, err
	}
	if _, err := media.CaptureStill(ctx, c.Config); err != nil {
		return nil, fmt.Errorf("open camera %s: %w", c.Config.Device, err)
	}
	return ffmpegCamera{cfg: c.Config}, nil
}

type ffmpegCamera struct {
	cfg media.StillConfig
}

func (c ffmpegCamera) Capture(ctx context.Context) ([]byte, error) {
	return media.CaptureStill(ctx, c.cfg)
}

// Close is a no-op: every capture runs its own ffmpeg process.
func (ffmpegCamera) Close() error { return nil }

var _ capture.FrameSource = (*FFmpegCamera)(nil)
