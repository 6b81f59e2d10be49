package effects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeasinger/musicengine/internal/dsp"
	"github.com/makeasinger/musicengine/internal/model"
)

func testSignal(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / dsp.SampleRate
		out[i] = 0.5*math.Sin(2*math.Pi*110*t) + 0.3*math.Sin(2*math.Pi*6000*t)
	}
	return out
}

func TestApply_IdentityWhenNoGatePasses(t *testing.T) {
	in := testSignal(dsp.SampleRate / 2)
	vibe := model.Vibe{"energy": 0.5, "dark": 0.0, "dreamy": 0.0, "aggressive": 0.0}

	out, err := DefaultChain.Apply(in, vibe, dsp.SampleRate)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Empty(t, DefaultChain.Active(vibe))

	// a fresh buffer, not an alias
	out[0] = 42
	assert.NotEqual(t, 42.0, in[0])
}

func TestApply_ThresholdsAreExclusive(t *testing.T) {
	vibe := model.Vibe{"energy": 0.5, "dark": 0.3, "dreamy": 0.3, "aggressive": 0.3}
	assert.Empty(t, DefaultChain.Active(vibe))

	vibe = model.Vibe{"energy": 0.51, "dark": 0.31, "dreamy": 0.31, "aggressive": 0.31}
	assert.Equal(t, []Kind{KindSaturation, KindLowPass, KindReverb, KindTransient}, DefaultChain.Active(vibe))
}

func TestApply_MissingAxesUseDefaults(t *testing.T) {
	// defaults: energy 0.5, dark 0.3, dreamy 0.4, aggressive 0.2 -> only reverb
	assert.Equal(t, []Kind{KindReverb}, DefaultChain.Active(model.Vibe{}))
}

func TestSaturation(t *testing.T) {
	in := []float64{0.9, -0.9, 0.1}
	chain := Chain{DefaultChain[0]}

	out, err := chain.Apply(in, model.Vibe{"energy": 1.0}, dsp.SampleRate)
	require.NoError(t, err)

	assert.InDelta(t, math.Tanh(1.8)/2, out[0], 1e-12)
	assert.InDelta(t, -math.Tanh(1.8)/2, out[1], 1e-12)
	assert.InDelta(t, math.Tanh(0.2)/2, out[2], 1e-12)
}

func TestLowPass_DarkerCutsMore(t *testing.T) {
	in := testSignal(dsp.SampleRate)
	chain := Chain{DefaultChain[1]}

	mild, err := chain.Apply(in, model.Vibe{"dark": 0.35}, dsp.SampleRate)
	require.NoError(t, err)
	heavy, err := chain.Apply(in, model.Vibe{"dark": 1.0}, dsp.SampleRate)
	require.NoError(t, err)

	// cutoff 2400 Hz removes most of the 6 kHz partial; 110 Hz stays
	assert.Less(t, dsp.RMS(heavy), dsp.RMS(mild))
	assert.InDelta(t, 0.5/math.Sqrt2, dsp.RMS(heavy[len(heavy)/4:]), 0.02)
}

func TestReverb_DelayedCopy(t *testing.T) {
	in := make([]float64, 4000)
	in[0] = 1
	chain := Chain{DefaultChain[2]}

	out, err := chain.Apply(in, model.Vibe{"dreamy": 1.0}, dsp.SampleRate)
	require.NoError(t, err)

	assert.Equal(t, 1.0, out[0])
	// 50 ms at 32 kHz
	assert.InDelta(t, 0.3, out[1600], 1e-12)
	assert.Equal(t, 0.0, out[1599])
	assert.Equal(t, 0.0, out[1601])
}

func TestReverb_ShorterThanDelay(t *testing.T) {
	in := []float64{0.1, 0.2}
	out, err := Chain{DefaultChain[2]}.Apply(in, model.Vibe{"dreamy": 0.9}, dsp.SampleRate)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestTransient_AddsHighs(t *testing.T) {
	low := make([]float64, dsp.SampleRate)
	high := make([]float64, dsp.SampleRate)
	for i := range low {
		tm := float64(i) / dsp.SampleRate
		low[i] = math.Sin(2 * math.Pi * 30 * tm)
		high[i] = math.Sin(2 * math.Pi * 3000 * tm)
	}
	chain := Chain{DefaultChain[3]}
	vibe := model.Vibe{"aggressive": 1.0}

	lowOut, err := chain.Apply(low, vibe, dsp.SampleRate)
	require.NoError(t, err)
	highOut, err := chain.Apply(high, vibe, dsp.SampleRate)
	require.NoError(t, err)

	// 3 kHz is boosted by ~30%, 30 Hz barely moves
	assert.InDelta(t, 1.3/math.Sqrt2, dsp.RMS(highOut[len(highOut)/2:]), 0.02)
	assert.InDelta(t, 1/math.Sqrt2, dsp.RMS(lowOut[len(lowOut)/2:]), 0.02)
}

func TestApply_Deterministic(t *testing.T) {
	in := testSignal(dsp.SampleRate / 4)
	vibe := model.Vibe{"energy": 0.8, "dark": 0.6, "dreamy": 0.4, "aggressive": 0.7}

	a, err := DefaultChain.Apply(in, vibe, dsp.SampleRate)
	require.NoError(t, err)
	b, err := DefaultChain.Apply(in, vibe, dsp.SampleRate)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestApply_UnknownKind(t *testing.T) {
	chain := Chain{{Kind: "chorus", Axis: model.VibeDreamy, Threshold: 0}}
	_, err := chain.Apply([]float64{0}, model.Vibe{"dreamy": 1}, dsp.SampleRate)
	assert.ErrorContains(t, err, "chorus")
}
