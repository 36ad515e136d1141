package audio

// Resample converts samples between arbitrary rates with linear interpolation.
// It is used on the output side, where a sink runs at a fixed device rate
// that may not match the rate the backend announced.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate <= 0 || toRate <= 0 || fromRate == toRate || len(samples) == 0 {
		return samples
	}

	n := int(float64(len(samples)) * float64(toRate) / float64(fromRate))
	if n == 0 {
		return []float32{}
	}

	out := make([]float32, n)
	ratio := float64(fromRate) / float64(toRate)
	last := len(samples) - 1
	for i := range out {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		if srcIdx >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(srcPos - float64(srcIdx))
		out[i] = samples[srcIdx] + frac*(samples[srcIdx+1]-samples[srcIdx])
	}
	return out
}
