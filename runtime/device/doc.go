// Package device binds capture and playback to host hardware.
//
// PortAudio microphone and speaker support is compiled in with the
// "portaudio" build tag. Without it the constructors report
// ErrPortAudioDisabled and callers fall back to the null devices, which
// produce silence and drain playback in real time.
package device

import "errors"

// ErrPortAudioDisabled is returned when the binary was built without the
// portaudio tag.
var ErrPortAudioDisabled = errors.New("built without portaudio support")
