package playback

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candorlabs/liveinterview/runtime/audio"
	"github.com/candorlabs/liveinterview/runtime/events"
	"github.com/candorlabs/liveinterview/runtime/protocol"
)

type fakeOutput struct {
	played    int64
	rate      int
	scheduled []Scheduled
	flushed   int
	err       error
}

func (o *fakeOutput) Played() int64   { return o.played }
func (o *fakeOutput) SampleRate() int { return o.rate }
func (o *fakeOutput) Flush()          { o.flushed++ }

func (o *fakeOutput) Schedule(frame audio.PlaybackFrame, at int64) (int64, error) {
	if o.err != nil {
		return 0, o.err
	}
	n := int64(len(frame.Samples)) * int64(o.rate) / int64(frame.SampleRate)
	o.scheduled = append(o.scheduled, Scheduled{Start: at, Length: n, Rate: frame.SampleRate})
	return n, nil
}

// advance moves the fake output clock forward by d.
func (o *fakeOutput) advance(d time.Duration) {
	o.played += durationToSamples(d, o.rate)
}

func pcmPayload(samples int) string {
	return audio.EncodeFrame(audio.Frame{Samples: make([]int16, samples)})
}

func TestScheduler_BackToBack(t *testing.T) {
	out := &fakeOutput{rate: 24000}
	s := NewScheduler(out)

	first, err := s.Enqueue(protocol.Audio{Data: pcmPayload(2400), SampleRate: 24000})
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, first.StartAt)
	assert.Equal(t, 100*time.Millisecond, first.Duration)

	// Second frame arrives before the first finishes: queued behind it.
	out.advance(20 * time.Millisecond)
	second, err := s.Enqueue(protocol.Audio{Data: pcmPayload(2400), SampleRate: 24000})
	require.NoError(t, err)
	assert.Equal(t, first.StartAt+first.Duration, second.StartAt)
	assert.Equal(t, first.Start+first.Length, second.Start)

	// Long gap: the cursor is behind real time, so the frame starts at now+margin.
	out.played = 48000
	third, err := s.Enqueue(protocol.Audio{Data: pcmPayload(240), SampleRate: 24000})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second+DefaultLatencyMargin, third.StartAt)
	assert.Equal(t, third.StartAt+third.Duration, s.Cursor())
}

func TestScheduler_NeverOverlaps(t *testing.T) {
	out := &fakeOutput{rate: 24000}
	s := NewScheduler(out, WithLatencyMargin(10*time.Millisecond))
	rng := rand.New(rand.NewSource(7))

	var prev Scheduled
	for i := 0; i < 200; i++ {
		out.advance(time.Duration(rng.Intn(150)) * time.Millisecond)
		got, err := s.Schedule(audio.PlaybackFrame{Samples: make([]float32, 1+rng.Intn(4800))})
		require.NoError(t, err)
		if i > 0 {
			require.GreaterOrEqual(t, got.Start, prev.Start+prev.Length)
		}
		prev = got
	}
}

func TestScheduler_RateFallback(t *testing.T) {
	out := &fakeOutput{rate: 48000}
	s := NewScheduler(out)
	frame := audio.PlaybackFrame{Samples: make([]float32, 480)}

	got, err := s.Schedule(frame)
	require.NoError(t, err)
	assert.Equal(t, 48000, got.Rate, "device rate when nothing negotiated")

	s.SetNegotiatedRate(24000)
	got, err = s.Schedule(frame)
	require.NoError(t, err)
	assert.Equal(t, 24000, got.Rate, "negotiated rate beats device rate")

	frame.SampleRate = 16000
	got, err = s.Schedule(frame)
	require.NoError(t, err)
	assert.Equal(t, 16000, got.Rate, "frame rate beats negotiated rate")
	assert.Equal(t, 30*time.Millisecond, got.Duration)
	assert.Equal(t, int64(1440), got.Length, "length is counted in device samples")
}

func TestScheduler_OddLengthFramesStayContiguous(t *testing.T) {
	out := &fakeOutput{rate: 24000}
	s := NewScheduler(out, WithLatencyMargin(0))

	var next int64
	for _, n := range []int{1001, 1008, 1015, 1022, 1029} {
		got, err := s.Schedule(audio.PlaybackFrame{Samples: make([]float32, n), SampleRate: 24000})
		require.NoError(t, err)
		assert.Equal(t, next, got.Start)
		next = got.Start + got.Length
	}
	assert.Equal(t, int64(5075), next)
}

func TestScheduler_MalformedPayloadLeavesStateUnchanged(t *testing.T) {
	bus := events.NewEventBus()
	drops := make(chan events.FrameDroppedData, 4)
	bus.Subscribe(events.EventFrameDropped, func(e *events.Event) {
		drops <- e.Data.(events.FrameDroppedData)
	})

	out := &fakeOutput{rate: 24000}
	s := NewScheduler(out, WithEmitter(events.NewEmitter(bus, "s1")))
	_, err := s.Enqueue(protocol.Audio{Data: pcmPayload(240)})
	require.NoError(t, err)
	cursor := s.Cursor()

	odd := audio.Encode([]byte{1, 2, 3})
	_, err = s.Enqueue(protocol.Audio{Data: odd})
	assert.ErrorIs(t, err, audio.ErrOddLength)

	_, err = s.Enqueue(protocol.Audio{Data: "!!not base64!!"})
	assert.Error(t, err)

	_, err = s.Enqueue(protocol.Audio{Data: ""})
	assert.Error(t, err)

	assert.Equal(t, cursor, s.Cursor())
	assert.Len(t, out.scheduled, 1)

	bus.Close()
	close(drops)
	var reasons []string
	for d := range drops {
		reasons = append(reasons, d.Reason)
	}
	assert.Contains(t, reasons, "odd_length")
}

func TestScheduler_OutputErrorKeepsCursor(t *testing.T) {
	out := &fakeOutput{rate: 24000, err: errors.New("device gone")}
	s := NewScheduler(out)

	_, err := s.Schedule(audio.PlaybackFrame{Samples: make([]float32, 240)})
	assert.ErrorContains(t, err, "device gone")
	assert.Zero(t, s.Cursor())
}

func TestScheduler_Reset(t *testing.T) {
	out := &fakeOutput{rate: 24000}
	s := NewScheduler(out)
	_, err := s.Schedule(audio.PlaybackFrame{Samples: make([]float32, 24000)})
	require.NoError(t, err)
	require.NotZero(t, s.Cursor())

	s.Reset()
	assert.Zero(t, s.Cursor())
	assert.Equal(t, 1, out.flushed)
}
