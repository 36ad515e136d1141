package playback

import (
	"sync"
	"time"

	"github.com/candorlabs/liveinterview/runtime/audio"
)

// Timeline is an in-memory Output. Frames are written at their scheduled
// sample offset and a sound device pulls fixed blocks with Read; the clock
// advances only as samples are read, so gaps come out as silence.
type Timeline struct {
	mu     sync.Mutex
	rate   int
	played int64
	buf    []float32
}

// NewTimeline creates a timeline running at the device rate.
func NewTimeline(rate int) *Timeline {
	if rate <= 0 {
		rate = audio.SampleRate24kHz
	}
	return &Timeline{rate: rate}
}

// SampleRate implements Output.
func (t *Timeline) SampleRate() int {
	return t.rate
}

// Played implements Output.
func (t *Timeline) Played() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.played
}

// Now is the output clock as a duration.
func (t *Timeline) Now() time.Duration {
	return samplesToDuration(t.Played(), t.rate)
}

// Schedule implements Output. Frames at a different rate are resampled to
// the device rate; any part scheduled in the past is trimmed.
func (t *Timeline) Schedule(frame audio.PlaybackFrame, at int64) (int64, error) {
	samples := frame.Samples
	if frame.SampleRate > 0 && frame.SampleRate != t.rate {
		samples = audio.Resample(samples, frame.SampleRate, t.rate)
	}
	length := int64(len(samples))

	t.mu.Lock()
	defer t.mu.Unlock()

	offset := at - t.played
	if offset < 0 {
		if -offset >= length {
			return length, nil
		}
		samples = samples[-offset:]
		offset = 0
	}

	end := int(offset) + len(samples)
	if end > len(t.buf) {
		t.buf = append(t.buf, make([]float32, end-len(t.buf))...)
	}
	for i, s := range samples {
		t.buf[int(offset)+i] += s
	}
	return length, nil
}

// Read fills dst with the next samples, padding with silence, and advances
// the clock by len(dst).
func (t *Timeline) Read(dst []float32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := copy(dst, t.buf)
	clear(dst[n:])
	t.buf = t.buf[n:]
	t.played += int64(len(dst))
}

// Flush implements Output.
func (t *Timeline) Flush() {
	t.mu.Lock()
	t.buf = nil
	t.mu.Unlock()
}

// Buffered reports how much audio is queued ahead of the clock.
func (t *Timeline) Buffered() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return samplesToDuration(int64(len(t.buf)), t.rate)
}
