package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq, amp float64, seconds float64) []float64 {
	n := int(seconds * SampleRate)
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/SampleRate)
	}
	return out
}

// steady skips the filter's start-up transient
func steady(buf []float64) []float64 {
	return buf[len(buf)/4:]
}

func TestButterworthLowPass_Response(t *testing.T) {
	lp := ButterworthLowPass(4, 1000, SampleRate)

	pass := RMS(steady(lp.Apply(sine(100, 1, 1))))
	atCutoff := RMS(steady(lp.Apply(sine(1000, 1, 1))))
	stop := RMS(steady(lp.Apply(sine(8000, 1, 1))))

	ref := RMS(steady(sine(100, 1, 1)))
	assert.InDelta(t, ref, pass, 0.01)
	// -3 dB at the cutoff
	assert.InDelta(t, ref/math.Sqrt2, atCutoff, 0.02)
	assert.Less(t, stop, ref*0.001)
}

func TestButterworthHighPass_Response(t *testing.T) {
	hp := ButterworthHighPass(2, 200, SampleRate)

	low := RMS(steady(hp.Apply(sine(20, 1, 1))))
	high := RMS(steady(hp.Apply(sine(4000, 1, 1))))

	assert.Less(t, low, 0.02)
	assert.InDelta(t, 1/math.Sqrt2, high, 0.01)
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	in := sine(440, 0.5, 0.1)
	orig := append([]float64(nil), in...)

	_ = BandPass(4, 50, 250, SampleRate).Apply(in)
	assert.Equal(t, orig, in)
}

func TestEnvelope_Ramps(t *testing.T) {
	in := make([]float64, 100)
	for i := range in {
		in[i] = 1
	}
	// 10 samples attack, 20 samples release at 1 kHz
	out := Envelope(in, 0.01, 0.02, 1000)

	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 1.0, out[9])
	assert.Equal(t, 1.0, out[50])
	assert.Equal(t, 1.0, out[80])
	assert.Equal(t, 0.0, out[99])
	for i := 1; i < 10; i++ {
		assert.Greater(t, out[i], out[i-1])
	}
}

func TestEnvelope_ShortBufferClamps(t *testing.T) {
	in := []float64{1, 1, 1}
	var out []float64
	require.NotPanics(t, func() {
		out = Envelope(in, 0.5, 0.5, SampleRate)
	})
	assert.Len(t, out, 3)
	for _, x := range out {
		assert.False(t, math.IsNaN(x))
	}

	assert.Empty(t, Envelope(nil, 0.1, 0.1, SampleRate))
}

func TestNormalize_PeakAndRange(t *testing.T) {
	in := []float64{0.1, -0.4, 0.2}
	out := Normalize(in, TargetPeakDB)

	assert.InDelta(t, DBToLinear(TargetPeakDB), Peak(out), 1e-12)
	assert.InDelta(t, 0.501187, Peak(out), 1e-6)
	assert.InDelta(t, -DBToLinear(TargetPeakDB), out[1], 1e-12)
	assert.Equal(t, []float64{0.1, -0.4, 0.2}, in)
}

func TestNormalize_ClipsOvershoot(t *testing.T) {
	out := Normalize([]float64{1e-3, 5e-4}, 12)
	for _, x := range out {
		assert.LessOrEqual(t, x, 1.0)
		assert.GreaterOrEqual(t, x, -1.0)
	}
	assert.Equal(t, 1.0, out[0])
}

func TestNormalize_SilencePassesThrough(t *testing.T) {
	out := Normalize(make([]float64, 64), TargetPeakDB)
	for _, x := range out {
		assert.Equal(t, 0.0, x)
		assert.False(t, math.IsNaN(x) || math.IsInf(x, 0))
	}
}

func TestPadTo(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 0, 0}, PadTo([]float64{1, 2}, 4))
	assert.Equal(t, []float64{1, 2}, PadTo([]float64{1, 2}, 1))
}
