package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// Standard audio sample rates negotiated with the interview backend.
const (
	SampleRate24kHz = 24000 // backend speech output
	SampleRate16kHz = 16000 // backend speech input
	SampleRate48kHz = 48000 // common device native rate
)

// BytesPerSample is the width of one PCM16 sample on the wire.
const BytesPerSample = 2

const (
	negativeScale = 32768
	positiveScale = 32767
)

var (
	// ErrMalformedPayload is returned when transport text is not valid base64.
	ErrMalformedPayload = errors.New("malformed audio payload")

	// ErrOddLength is returned when a PCM16 byte buffer is not a whole number of samples.
	ErrOddLength = errors.New("pcm16 payload length is not a multiple of the sample width")

	// ErrEmptyPayload is returned when a payload decodes to zero samples.
	ErrEmptyPayload = errors.New("audio payload is empty")
)

// Frame is a quantized, resampled capture block ready for transport.
type Frame struct {
	Samples    []int16
	SampleRate int
}

// PlaybackFrame is decoded remote audio ready for output scheduling.
// SampleRate is zero when the envelope did not announce one.
type PlaybackFrame struct {
	Samples    []float32
	SampleRate int
}

// Duration returns how long the frame plays at rate.
func (f PlaybackFrame) Duration(rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(rate)
}

// Downsample reduces buffer from inputRate to targetRate by averaging the
// input samples in each output window. Equal rates return buffer itself.
func Downsample(buffer []float32, inputRate, targetRate int) []float32 {
	if targetRate == inputRate {
		return buffer
	}
	if inputRate <= 0 || targetRate <= 0 {
		return []float32{}
	}

	ratio := float64(inputRate) / float64(targetRate)
	outLen := math.Round(float64(len(buffer)) / ratio)
	if outLen <= 0 || math.IsNaN(outLen) || math.IsInf(outLen, 0) {
		return []float32{}
	}

	out := make([]float32, int(outLen))
	for i := range out {
		start := int(math.Round(float64(i) * ratio))
		end := int(math.Round(float64(i+1) * ratio))
		if end > len(buffer) {
			end = len(buffer)
		}
		if start >= end {
			continue
		}
		var sum float64
		for _, s := range buffer[start:end] {
			sum += float64(s)
		}
		out[i] = float32(sum / float64(end-start))
	}
	return out
}

// Quantize converts float samples to 16-bit PCM. Samples are clamped to
// [-1, 1]; negatives scale by 32768 and non-negatives by 32767, truncating
// toward zero.
func Quantize(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := float64(s)
		switch {
		case math.IsNaN(v):
			v = 0
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}
		if v < 0 {
			out[i] = int16(v * negativeScale)
		} else {
			out[i] = int16(v * positiveScale)
		}
	}
	return out
}

// Dequantize converts 16-bit PCM to float samples in [-1, 1).
func Dequantize(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / negativeScale
	}
	return out
}

// EncodePCM16 packs samples as little-endian bytes.
func EncodePCM16(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(s)) //nolint:gosec // PCM16 bit pattern
	}
	return out
}

// DecodePCM16 unpacks little-endian PCM16 bytes.
func DecodePCM16(data []byte) ([]int16, error) {
	if len(data)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrOddLength, len(data))
	}
	out := make([]int16, len(data)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:])) //nolint:gosec // PCM16 bit pattern
	}
	return out, nil
}

// Encode converts bytes to the transport text encoding (standard base64).
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode. Malformed input is an error, never an empty result.
func Decode(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return data, nil
}

// EncodeFrame renders a capture frame as envelope payload text.
func EncodeFrame(f Frame) string {
	return Encode(EncodePCM16(f.Samples))
}

// DecodePlayback turns an inbound audio payload into a PlaybackFrame.
// Odd-length and empty payloads are rejected.
func DecodePlayback(text string, sampleRate int) (PlaybackFrame, error) {
	data, err := Decode(text)
	if err != nil {
		return PlaybackFrame{}, err
	}
	pcm, err := DecodePCM16(data)
	if err != nil {
		return PlaybackFrame{}, err
	}
	if len(pcm) == 0 {
		return PlaybackFrame{}, ErrEmptyPayload
	}
	return PlaybackFrame{Samples: Dequantize(pcm), SampleRate: sampleRate}, nil
}

// Level returns the RMS level of samples, 0 for silence and 1 for full scale.
func Level(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range samples {
		sumSquares += float64(s) * float64(s)
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}
