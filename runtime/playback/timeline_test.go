package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candorlabs/liveinterview/runtime/audio"
)

func filled(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ones(n int) []float32 { return filled(n, 1) }

func schedule(t *testing.T, tl *Timeline, frame audio.PlaybackFrame, at int64) int64 {
	t.Helper()
	n, err := tl.Schedule(frame, at)
	require.NoError(t, err)
	return n
}

func TestTimeline_PadsGapsWithSilence(t *testing.T) {
	tl := NewTimeline(1000)

	assert.Equal(t, int64(3), schedule(t, tl, audio.PlaybackFrame{Samples: ones(3), SampleRate: 1000}, 2))
	assert.Equal(t, 5*time.Millisecond, tl.Buffered())

	dst := make([]float32, 6)
	tl.Read(dst)
	assert.Equal(t, []float32{0, 0, 1, 1, 1, 0}, dst)
	assert.Equal(t, 6*time.Millisecond, tl.Now())
	assert.Equal(t, int64(6), tl.Played())
	assert.Zero(t, tl.Buffered())
}

func TestTimeline_TrimsPastAudio(t *testing.T) {
	tl := NewTimeline(1000)
	tl.Read(make([]float32, 10))

	// Starts 2 samples in the past: the first two are dropped.
	assert.Equal(t, int64(4), schedule(t, tl, audio.PlaybackFrame{Samples: []float32{0.1, 0.2, 0.3, 0.4}}, 8))
	dst := make([]float32, 2)
	tl.Read(dst)
	assert.Equal(t, []float32{0.3, 0.4}, dst)

	// Entirely in the past: ignored.
	assert.Equal(t, int64(2), schedule(t, tl, audio.PlaybackFrame{Samples: ones(2)}, 0))
	assert.Zero(t, tl.Buffered())
}

func TestTimeline_ResamplesToDeviceRate(t *testing.T) {
	tl := NewTimeline(48000)

	assert.Equal(t, int64(480), schedule(t, tl, audio.PlaybackFrame{Samples: ones(240), SampleRate: 24000}, 0))
	assert.Equal(t, 10*time.Millisecond, tl.Buffered())
}

func TestTimeline_Flush(t *testing.T) {
	tl := NewTimeline(1000)
	schedule(t, tl, audio.PlaybackFrame{Samples: ones(5)}, 0)

	tl.Flush()
	dst := make([]float32, 5)
	tl.Read(dst)
	assert.Equal(t, make([]float32, 5), dst)
}

func TestTimeline_WithScheduler(t *testing.T) {
	tl := NewTimeline(1000)
	s := NewScheduler(tl, WithLatencyMargin(0))

	_, err := s.Schedule(audio.PlaybackFrame{Samples: ones(2)})
	require.NoError(t, err)
	_, err = s.Schedule(audio.PlaybackFrame{Samples: []float32{0.5, 0.5}})
	require.NoError(t, err)

	dst := make([]float32, 5)
	tl.Read(dst)
	assert.Equal(t, []float32{1, 1, 0.5, 0.5, 0}, dst)
}

func TestTimeline_OddLengthFramesNeitherOverlapNorGap(t *testing.T) {
	tl := NewTimeline(24000)
	s := NewScheduler(tl, WithLatencyMargin(0))

	total := 0
	for _, n := range []int{1001, 1008, 1015, 1022, 1029} {
		_, err := s.Schedule(audio.PlaybackFrame{Samples: filled(n, 0.25), SampleRate: 24000})
		require.NoError(t, err)
		total += n
	}
	require.Equal(t, 5075, total)

	dst := make([]float32, total)
	tl.Read(dst)
	for i, v := range dst {
		require.InDelta(t, 0.25, v, 1e-6, "sample %d", i)
	}
	assert.Zero(t, tl.Buffered())
}

func TestTimeline_OddLengthFramesAcrossRates(t *testing.T) {
	tl := NewTimeline(48000)
	s := NewScheduler(tl, WithLatencyMargin(0))

	total := 0
	for _, n := range []int{1001, 1015, 1029} {
		got, err := s.Schedule(audio.PlaybackFrame{Samples: filled(n, 0.25), SampleRate: 24000})
		require.NoError(t, err)
		total += int(got.Length)
	}

	dst := make([]float32, total)
	tl.Read(dst)
	for i, v := range dst {
		require.InDelta(t, 0.25, v, 1e-6, "sample %d", i)
	}
}

func TestNewTimeline_DefaultRate(t *testing.T) {
	assert.Equal(t, audio.SampleRate24kHz, NewTimeline(0).SampleRate())
}
