package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/candorlabs/liveinterview/runtime/audio"
	"github.com/candorlabs/liveinterview/runtime/capture"
	"github.com/candorlabs/liveinterview/runtime/playback"
)

// DefaultDrainPeriod is how often NullSpeaker advances the playback clock.
const DefaultDrainPeriod = 20 * time.Millisecond

var errStreamClosed = errors.New("stream closed")

// NullMicrophone is a Source that yields silent blocks at real-time pace.
type NullMicrophone struct {
	Rate int
}

// Open implements capture.Source.
func (m NullMicrophone) Open(_ context.Context, blockSize int) (capture.Stream, error) {
	rate := m.Rate
	if rate <= 0 {
		rate = audio.SampleRate16kHz
	}
	if blockSize <= 0 {
		blockSize = capture.DefaultBlockSize
	}
	return &silentStream{
		rate:   rate,
		block:  blockSize,
		period: time.Duration(blockSize) * time.Second / time.Duration(rate),
		closed: make(chan struct{}),
	}, nil
}

type silentStream struct {
	rate   int
	block  int
	period time.Duration
	closed chan struct{}
	once   sync.Once
}

func (s *silentStream) SampleRate() int { return s.rate }
func (s *silentStream) Channels() int   { return 1 }

func (s *silentStream) Read(ctx context.Context) ([]float32, error) {
	timer := time.NewTimer(s.period)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, errStreamClosed
	case <-timer.C:
		return make([]float32, s.block), nil
	}
}

func (s *silentStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// NullSpeaker discards playback while keeping the timeline clock moving, so
// scheduling behaves as it would against a real device.
type NullSpeaker struct {
	timeline *playback.Timeline
	period   time.Duration
}

// NewNullSpeaker drains tl every period. Non-positive periods use DefaultDrainPeriod.
func NewNullSpeaker(tl *playback.Timeline, period time.Duration) *NullSpeaker {
	if period <= 0 {
		period = DefaultDrainPeriod
	}
	return &NullSpeaker{timeline: tl, period: period}
}

// Run drains the timeline until ctx ends.
func (s *NullSpeaker) Run(ctx context.Context) {
	buf := make([]float32, int(int64(s.timeline.SampleRate())*int64(s.period)/int64(time.Second)))
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.timeline.Read(buf)
		}
	}
}

var _ capture.Source = NullMicrophone{}
