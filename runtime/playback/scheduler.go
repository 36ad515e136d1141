// Package playback schedules inbound synthesized audio for gapless output.
//
// The Scheduler keeps a single play cursor on the output clock, counted in
// device samples. Every frame starts at max(now+margin, cursor) and advances
// the cursor by the number of samples it occupies, so frames play
// back-to-back in arrival order and arrival jitter is absorbed by queuing
// ahead of real time. Durations are derived from sample counts only for
// reporting.
package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/candorlabs/liveinterview/runtime/audio"
	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/logger"
	"github.com/candorlabs/liveinterview/runtime/protocol"
)

// DefaultLatencyMargin is the minimum lead between now and a frame's start.
const DefaultLatencyMargin = 50 * time.Millisecond

// Output is the sound output primitive frames are committed to. Positions
// are device samples since the output started.
type Output interface {
	// SampleRate is the device-native rate.
	SampleRate() int
	// Played is the current output clock.
	Played() int64
	// Schedule commits frame to start at device sample at and returns how
	// many device samples it occupies.
	Schedule(frame audio.PlaybackFrame, at int64) (int64, error)
	// Flush discards everything not yet played.
	Flush()
}

// Scheduled describes where a frame landed on the output timeline.
type Scheduled struct {
	// Start and Length are device samples.
	Start  int64
	Length int64

	StartAt  time.Duration
	Duration time.Duration
	Rate     int
}

// Scheduler owns the play cursor. It is not safe for concurrent use; the
// session controller calls it from its event loop.
type Scheduler struct {
	out        Output
	margin     time.Duration
	cursor     int64
	negotiated int
	emitter    *events.Emitter
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLatencyMargin overrides DefaultLatencyMargin.
func WithLatencyMargin(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.margin = d
		}
	}
}

// WithEmitter publishes a PlaybackScheduled event per committed frame.
func WithEmitter(e *events.Emitter) Option {
	return func(s *Scheduler) { s.emitter = e }
}

// NewScheduler creates a scheduler writing to out.
func NewScheduler(out Output, opts ...Option) *Scheduler {
	s := &Scheduler{out: out, margin: DefaultLatencyMargin}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNegotiatedRate records the receive rate announced by the backend.
// Zero clears it.
func (s *Scheduler) SetNegotiatedRate(rate int) {
	s.negotiated = rate
}

// Cursor returns the output clock time up to which audio is committed.
func (s *Scheduler) Cursor() time.Duration {
	return samplesToDuration(s.cursor, s.out.SampleRate())
}

// Enqueue decodes an inbound audio envelope and schedules it. Malformed
// payloads (bad encoding, odd byte length, empty) are dropped and leave the
// cursor unchanged.
func (s *Scheduler) Enqueue(msg protocol.Audio) (Scheduled, error) {
	frame, err := audio.DecodePlayback(msg.Data, msg.SampleRate)
	if err != nil {
		reason := "malformed"
		switch {
		case errors.Is(err, audio.ErrOddLength):
			reason = "odd_length"
		case errors.Is(err, audio.ErrEmptyPayload):
			reason = "empty"
		}
		logger.Debug("Dropping playback frame", "reason", reason, "error", err)
		s.emitter.FrameDropped("playback", reason)
		return Scheduled{}, err
	}
	return s.Schedule(frame)
}

// Schedule places a decoded frame on the timeline.
func (s *Scheduler) Schedule(frame audio.PlaybackFrame) (Scheduled, error) {
	rate := s.rateFor(frame)
	frame.SampleRate = rate
	device := s.out.SampleRate()

	now := s.out.Played()
	start := max(now+durationToSamples(s.margin, device), s.cursor)

	n, err := s.out.Schedule(frame, start)
	if err != nil {
		return Scheduled{}, fmt.Errorf("schedule playback: %w", err)
	}
	s.cursor = start + n

	got := Scheduled{
		Start:    start,
		Length:   n,
		StartAt:  samplesToDuration(start, device),
		Duration: frame.Duration(rate),
		Rate:     rate,
	}
	s.emitter.PlaybackScheduled(events.PlaybackScheduledData{
		StartAt:  got.StartAt,
		Duration: got.Duration,
		Ahead:    samplesToDuration(s.cursor-now, device),
	})
	return got, nil
}

// rateFor picks the frame's own rate, then the negotiated one, then the device's.
func (s *Scheduler) rateFor(frame audio.PlaybackFrame) int {
	switch {
	case frame.SampleRate > 0:
		return frame.SampleRate
	case s.negotiated > 0:
		return s.negotiated
	default:
		return s.out.SampleRate()
	}
}

// Reset flushes queued audio and rewinds the cursor. Called when a
// connection is torn down.
func (s *Scheduler) Reset() {
	s.out.Flush()
	s.cursor = 0
}

func samplesToDuration(n int64, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// durationToSamples rounds to the nearest sample.
func durationToSamples(d time.Duration, rate int) int64 {
	return (int64(d)*int64(rate) + int64(time.Second)/2) / int64(time.Second)
}
