package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/candorlabs/liveinterview/runtime/logger"
)

// FFmpeg defaults.
const (
	DefaultFFmpegPath         = "ffmpeg"
	DefaultFFmpegTimeout      = 5 * time.Second
	DefaultFFmpegCheckTimeout = 5 * time.Second
)

// FFmpeg error types.
var (
	ErrFFmpegNotFound = errors.New("ffmpeg not found in PATH")
	ErrFFmpegTimeout  = errors.New("ffmpeg execution timed out")
)

// StillConfig describes how to grab a single frame from a camera device.
type StillConfig struct {
	FFmpegPath string
	// InputFormat is the ffmpeg demuxer (v4l2, avfoundation, dshow). Empty picks one per OS.
	InputFormat string
	// Device is the camera path or name, e.g. /dev/video0 or "0".
	Device  string
	Timeout time.Duration
}

func (c *StillConfig) defaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = DefaultFFmpegPath
	}
	if c.InputFormat == "" {
		c.InputFormat = defaultInputFormat()
	}
	if c.Device == "" {
		c.Device = defaultDevice()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultFFmpegTimeout
	}
}

func defaultInputFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "v4l2"
	}
}

func defaultDevice() string {
	switch runtime.GOOS {
	case "darwin":
		return "0"
	case "windows":
		return "video=Integrated Camera"
	default:
		return "/dev/video0"
	}
}

// StillArgs builds the ffmpeg arguments that write one JPEG frame to stdout.
func StillArgs(cfg StillConfig) []string {
	cfg.defaults()
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", cfg.InputFormat,
		"-i", cfg.Device,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	}
}

// CaptureStill runs ffmpeg once and returns the encoded frame it wrote.
func CaptureStill(ctx context.Context, cfg StillConfig) ([]byte, error) {
	cfg.defaults()
	ffmpegCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	//nolint:gosec // G204: FFmpegPath is configurable but expected to be ffmpeg binary
	cmd := exec.CommandContext(ffmpegCtx, cfg.FFmpegPath, StillArgs(cfg)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Running ffmpeg", "device", cfg.Device, "format", cfg.InputFormat)

	if err := cmd.Run(); err != nil {
		if errors.Is(ffmpegCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrFFmpegTimeout
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return nil, ErrFFmpegNotFound
		}
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, ErrEmptyFrame
	}
	return stdout.Bytes(), nil
}

// CheckFFmpegAvailable checks if ffmpeg is available in PATH.
func CheckFFmpegAvailable(ffmpegPath string) error {
	if ffmpegPath == "" {
		ffmpegPath = DefaultFFmpegPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultFFmpegCheckTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffmpegPath, "-version")
	if err := cmd.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return ErrFFmpegNotFound
		}
		return fmt.Errorf("ffmpeg check failed: %w", err)
	}
	return nil
}
