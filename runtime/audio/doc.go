// Package audio holds the sample codec shared by the capture and playback paths.
//
// Everything here is a pure function over sample buffers:
//
//   - Downsample: block-average decimation from a device rate to a wire rate
//   - Quantize / Dequantize: float32 samples to and from 16-bit PCM
//   - EncodePCM16 / DecodePCM16: int16 samples to and from little-endian bytes
//   - Encode / Decode: bytes to and from the base64 text carried in envelopes
//
// Downsample is not an anti-aliasing resampler. It averages the input samples
// that fall inside each output sample's window, which keeps latency at zero
// and is good enough for speech.
package audio
