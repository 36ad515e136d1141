//go:build !portaudio

package device

import (
	"context"

	"github.com/candorlabs/liveinterview/runtime/audio"
	"github.com/candorlabs/liveinterview/runtime/capture"
	"github.com/candorlabs/liveinterview/runtime/playback"
)

// PortAudioEnabled reports whether PortAudio devices are compiled in.
const PortAudioEnabled = false

// NewMicrophone reports ErrPortAudioDisabled.
func NewMicrophone() (capture.Source, error) {
	return nil, ErrPortAudioDisabled
}

// DefaultOutputRate returns the backend speech rate.
func DefaultOutputRate() (int, error) {
	return audio.SampleRate24kHz, nil
}

// Speaker is unavailable in this build.
type Speaker struct{}

// NewSpeaker reports ErrPortAudioDisabled.
func NewSpeaker(*playback.Timeline) (*Speaker, error) {
	return nil, ErrPortAudioDisabled
}

// Run reports ErrPortAudioDisabled.
func (*Speaker) Run(context.Context) error {
	return ErrPortAudioDisabled
}
