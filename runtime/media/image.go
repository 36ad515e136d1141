// Package media prepares camera frames for the secondary image channel.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	_ "image/gif" // Register GIF decoder

	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/candorlabs/liveinterview/runtime/protocol"
)

// MIMETypeJPEG is the only MIME type sent on the image channel.
const MIMETypeJPEG = "image/jpeg"

// Default configuration values.
const (
	DefaultMaxWidth = 640
	DefaultQuality  = 70
	MinQuality      = 10
	QualityDecay    = 0.9
)

// ErrEmptyFrame is returned when a frame has no pixel data.
var ErrEmptyFrame = errors.New("empty frame")

// FrameConfig controls how camera frames are scaled and encoded.
type FrameConfig struct {
	// MaxWidth caps the output width; height follows the aspect ratio (0 = no limit).
	MaxWidth int

	// Quality is the JPEG quality (1-100).
	Quality int

	// MaxSizeBytes lowers quality until the frame fits (0 = no limit).
	MaxSizeBytes int
}

// DefaultFrameConfig returns the default camera frame settings.
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		MaxWidth: DefaultMaxWidth,
		Quality:  DefaultQuality,
	}
}

// EncodedFrame is one JPEG-encoded camera frame.
type EncodedFrame struct {
	Data   []byte
	Width  int
	Height int
}

// Message wraps the frame in the outbound image envelope.
func (f *EncodedFrame) Message() protocol.ImageMessage {
	return protocol.ImageMessage{
		MimeType: MIMETypeJPEG,
		Data:     base64.StdEncoding.EncodeToString(f.Data),
	}
}

// EncodeFrame scales img to the configured width and encodes it as JPEG.
func EncodeFrame(img image.Image, cfg FrameConfig) (*EncodedFrame, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}

	b := img.Bounds()
	w, h := targetDimensions(b.Dx(), b.Dy(), cfg.MaxWidth)
	if w != b.Dx() || h != b.Dy() {
		img = scale(img, w, h)
	}

	quality := cfg.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}

	data, err := encodeJPEG(img, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	if cfg.MaxSizeBytes > 0 && len(data) > cfg.MaxSizeBytes {
		data, err = reduceToFitSize(img, quality, cfg.MaxSizeBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to reduce frame size: %w", err)
		}
	}
	return &EncodedFrame{Data: data, Width: w, Height: h}, nil
}

// NormalizeFrame decodes an already encoded still (JPEG, PNG, GIF, WebP)
// and re-encodes it with cfg.
func NormalizeFrame(data []byte, cfg FrameConfig) (*EncodedFrame, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return EncodeFrame(img, cfg)
}

// targetDimensions keeps the aspect ratio and never upscales.
func targetDimensions(width, height, maxWidth int) (w, h int) {
	w, h = width, height
	if maxWidth > 0 && w > maxWidth {
		ratio := float64(maxWidth) / float64(w)
		w = maxWidth
		h = int(float64(h) * ratio)
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

func scale(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// reduceToFitSize lowers quality until the frame fits, bottoming out at MinQuality.
func reduceToFitSize(img image.Image, startQuality, maxSize int) ([]byte, error) {
	quality := startQuality
	for quality >= MinQuality {
		encoded, err := encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		if len(encoded) <= maxSize {
			return encoded, nil
		}
		quality = int(float64(quality) * QualityDecay)
	}
	return encodeJPEG(img, MinQuality)
}
