// Package dsp holds the numeric building blocks shared by stem resynthesis,
// vibe effects and mixing. Buffers are mono float64 at SampleRate.
package dsp

import "math"

// SampleRate is shared by every buffer within a job
const SampleRate = 32000

// Biquad is a second-order IIR section in transposed direct form II
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

func newBiquad(b0, b1, b2, a0, a1, a2 float64) Biquad {
	return Biquad{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: a1 / a0,
		a2: a2 / a0,
	}
}

// LowPassSection designs a low-pass biquad at cutoff with quality factor q
func LowPassSection(cutoff, q float64, sampleRate int) Biquad {
	w0 := 2 * math.Pi * clampCutoff(cutoff, sampleRate) / float64(sampleRate)
	cos, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	return newBiquad((1-cos)/2, 1-cos, (1-cos)/2, 1+alpha, -2*cos, 1-alpha)
}

// HighPassSection designs a high-pass biquad at cutoff with quality factor q
func HighPassSection(cutoff, q float64, sampleRate int) Biquad {
	w0 := 2 * math.Pi * clampCutoff(cutoff, sampleRate) / float64(sampleRate)
	cos, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	return newBiquad((1+cos)/2, -(1 + cos), (1+cos)/2, 1+alpha, -2*cos, 1-alpha)
}

// clampCutoff keeps a cutoff strictly inside (0, Nyquist)
func clampCutoff(cutoff float64, sampleRate int) float64 {
	if limit := 0.45 * float64(sampleRate); cutoff > limit {
		return limit
	}
	if cutoff < 1 {
		return 1
	}
	return cutoff
}

// Filter is a cascade of biquad sections applied in order
type Filter []Biquad

// butterworthQ returns the section Q factors of an even-order Butterworth filter
func butterworthQ(order int) []float64 {
	qs := make([]float64, 0, order/2)
	for k := 1; k <= order/2; k++ {
		qs = append(qs, 1/(2*math.Cos(math.Pi*float64(2*k-1)/float64(2*order))))
	}
	return qs
}

// ButterworthLowPass builds an even-order Butterworth low-pass cascade
func ButterworthLowPass(order int, cutoff float64, sampleRate int) Filter {
	f := make(Filter, 0, order/2)
	for _, q := range butterworthQ(order) {
		f = append(f, LowPassSection(cutoff, q, sampleRate))
	}
	return f
}

// ButterworthHighPass builds an even-order Butterworth high-pass cascade
func ButterworthHighPass(order int, cutoff float64, sampleRate int) Filter {
	f := make(Filter, 0, order/2)
	for _, q := range butterworthQ(order) {
		f = append(f, HighPassSection(cutoff, q, sampleRate))
	}
	return f
}

// BandPass cascades a high-pass at low and a low-pass at high, each of the given order
func BandPass(order int, low, high float64, sampleRate int) Filter {
	f := ButterworthHighPass(order, low, sampleRate)
	return append(f, ButterworthLowPass(order, high, sampleRate)...)
}

// Apply runs the cascade over in and returns a new buffer. Filter state starts at zero.
func (f Filter) Apply(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	for _, s := range f {
		var z1, z2 float64
		for i, x := range out {
			y := s.b0*x + z1
			z1 = s.b1*x - s.a1*y + z2
			z2 = s.b2*x - s.a2*y
			out[i] = y
		}
	}
	return out
}
