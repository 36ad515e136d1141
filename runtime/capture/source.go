// Package capture turns live microphone and camera input into outbound frames.
//
// Devices are acquired once per connection attempt through Pipeline.Start and
// CameraSampler.Start. The returned Handle owns the device: Stop releases it
// and is safe to call on every exit path, any number of times.
package capture

import (
	"context"
	"errors"
)

// DefaultBlockSize is the number of device-native frames read per block.
const DefaultBlockSize = 4096

// ErrDeviceUnavailable is returned when a microphone or camera cannot be opened.
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// Source opens an audio input device.
type Source interface {
	Open(ctx context.Context, blockSize int) (Stream, error)
}

// Stream is an open audio input.
type Stream interface {
	// SampleRate is the device-native rate.
	SampleRate() int
	// Channels is the interleave stride of blocks returned by Read.
	Channels() int
	// Read blocks until one block of interleaved samples is available.
	// Close must unblock a pending Read.
	Read(ctx context.Context) ([]float32, error)
	Close() error
}

// FrameSource opens a camera.
type FrameSource interface {
	Open(ctx context.Context) (Camera, error)
}

// Camera returns one encoded still per Capture call.
type Camera interface {
	Capture(ctx context.Context) ([]byte, error)
	Close() error
}
