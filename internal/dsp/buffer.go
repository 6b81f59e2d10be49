package dsp

import "math"

// TargetPeakDB is the peak level output buffers are normalized to
const TargetPeakDB = -6.0

// Envelope ramps the first attack seconds from 0 to 1 and the last release seconds
// from 1 to 0. Ramp lengths are clamped to the buffer length.
func Envelope(in []float64, attack, release float64, sampleRate int) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	n := len(out)

	attackN := clampLen(int(attack*float64(sampleRate)), n)
	releaseN := clampLen(int(release*float64(sampleRate)), n)

	for i := 0; i < attackN; i++ {
		out[i] *= ramp(i, attackN)
	}
	for i := 0; i < releaseN; i++ {
		out[n-releaseN+i] *= 1 - ramp(i, releaseN)
	}
	return out
}

// ramp returns the i-th of n evenly spaced points from 0 to 1 inclusive
func ramp(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}

func clampLen(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}

// Gain scales a buffer by g
func Gain(in []float64, g float64) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = x * g
	}
	return out
}

// Peak returns the largest absolute sample value
func Peak(in []float64) float64 {
	var peak float64
	for _, x := range in {
		if a := math.Abs(x); a > peak {
			peak = a
		}
	}
	return peak
}

// DBToLinear converts a dBFS level to a linear amplitude
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// Normalize scales so the absolute peak maps to targetDB, then hard clips to [-1, 1].
// A silent buffer is returned unchanged.
func Normalize(in []float64, targetDB float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)

	peak := Peak(out)
	if peak == 0 {
		return out
	}

	gain := DBToLinear(targetDB) / peak
	for i, x := range out {
		out[i] = Clip(x * gain)
	}
	return out
}

// Clip limits a sample to [-1, 1]
func Clip(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// PadTo returns a copy of in extended with trailing silence to length n
func PadTo(in []float64, n int) []float64 {
	if n < len(in) {
		n = len(in)
	}
	out := make([]float64, n)
	copy(out, in)
	return out
}

// RMS returns the root mean square of a buffer
func RMS(in []float64) float64 {
	if len(in) == 0 {
		return 0
	}
	var sum float64
	for _, x := range in {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(in)))
}
