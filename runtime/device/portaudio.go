//go:build portaudio

package device

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/candorlabs/liveinterview/runtime/capture"
	"github.com/candorlabs/liveinterview/runtime/logger"
	"github.com/candorlabs/liveinterview/runtime/playback"
)

// PortAudioEnabled reports whether PortAudio devices are compiled in.
const PortAudioEnabled = true

// SpeakerFramesPerBuffer is 20ms at 48kHz.
const SpeakerFramesPerBuffer = 960

// Microphone opens the default input device through PortAudio.
type Microphone struct{}

// NewMicrophone returns the default-device microphone.
func NewMicrophone() (capture.Source, error) {
	return Microphone{}, nil
}

// Open initializes PortAudio and starts a mono input stream at the device's
// default rate. Each Open is paired with one Terminate on Close.
func (Microphone) Open(_ context.Context, blockSize int) (capture.Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("default input device: %w", err)
	}

	buf := make([]float32, blockSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, info.DefaultSampleRate, blockSize, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	logger.Debug("Microphone opened", "device", info.Name, "rate", info.DefaultSampleRate)
	return &paInput{stream: stream, buf: buf, rate: int(info.DefaultSampleRate)}, nil
}

type paInput struct {
	stream *portaudio.Stream
	buf    []float32
	rate   int
	once   sync.Once
	err    error
}

func (s *paInput) SampleRate() int { return s.rate }
func (s *paInput) Channels() int   { return 1 }

func (s *paInput) Read(ctx context.Context) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			logger.Debug("Microphone input overflowed")
		} else {
			return nil, fmt.Errorf("read input stream: %w", err)
		}
	}
	out := make([]float32, len(s.buf))
	copy(out, s.buf)
	return out, nil
}

// Close aborts the stream, which unblocks a pending Read.
func (s *paInput) Close() error {
	s.once.Do(func() {
		if err := s.stream.Abort(); err != nil {
			s.err = err
		}
		if err := s.stream.Close(); err != nil && s.err == nil {
			s.err = err
		}
		_ = portaudio.Terminate()
	})
	return s.err
}

// DefaultOutputRate returns the default output device's native rate.
func DefaultOutputRate() (int, error) {
	if err := portaudio.Initialize(); err != nil {
		return 0, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()
	info, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return 0, fmt.Errorf("default output device: %w", err)
	}
	return int(info.DefaultSampleRate), nil
}

// Speaker plays a playback.Timeline on the default output device.
type Speaker struct {
	timeline *playback.Timeline
}

// NewSpeaker creates a speaker for tl. tl should run at DefaultOutputRate.
func NewSpeaker(tl *playback.Timeline) (*Speaker, error) {
	return &Speaker{timeline: tl}, nil
}

// Run opens the output stream and feeds it from the timeline until ctx ends.
func (s *Speaker) Run(ctx context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	frames := SpeakerFramesPerBuffer * s.timeline.SampleRate() / 48000
	out := make([]float32, frames)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(s.timeline.SampleRate()), frames, out)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer func() { _ = stream.Close() }()
	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	defer func() { _ = stream.Stop() }()

	for ctx.Err() == nil {
		s.timeline.Read(out)
		if err := stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("write output stream: %w", err)
		}
	}
	return nil
}
