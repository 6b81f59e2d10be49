// Package effects maps vibe values to an ordered chain of signal operations.
//
// Each Effect names the vibe axis that drives it and the threshold the axis must
// exceed; Apply resolves every descriptor through one dispatch function, so a new
// effect is a new Kind and a new case, with no change to the mixer.
package effects

import (
	"fmt"
	"math"

	"github.com/makeasinger/musicengine/internal/dsp"
	"github.com/makeasinger/musicengine/internal/model"
)

// Kind identifies an effect implementation
type Kind string

const (
	KindSaturation Kind = "saturation"
	KindLowPass    Kind = "lowpass"
	KindReverb     Kind = "reverb"
	KindTransient  Kind = "transient"
)

// Effect is one gated step of the chain
type Effect struct {
	Kind      Kind
	Axis      string
	Threshold float64
	Params    map[string]float64
}

// Chain is an ordered list of effects
type Chain []Effect

// DefaultChain is energy -> saturation, dark -> low-pass, dreamy -> short reverb,
// aggressive -> transient emphasis, in that order.
var DefaultChain = Chain{
	{Kind: KindSaturation, Axis: model.VibeEnergy, Threshold: 0.5},
	{Kind: KindLowPass, Axis: model.VibeDark, Threshold: 0.3, Params: map[string]float64{
		"max_cutoff": 8000,
		"depth":      0.7,
		"order":      4,
	}},
	{Kind: KindReverb, Axis: model.VibeDreamy, Threshold: 0.3, Params: map[string]float64{
		"delay": 0.05,
		"wet":   0.3,
	}},
	{Kind: KindTransient, Axis: model.VibeAggressive, Threshold: 0.3, Params: map[string]float64{
		"cutoff": 200,
		"amount": 0.3,
		"order":  2,
	}},
}

// Apply runs every effect whose axis exceeds its threshold and returns a new buffer.
// The input is never modified.
func (c Chain) Apply(in []float64, vibe model.Vibe, sampleRate int) ([]float64, error) {
	out := make([]float64, len(in))
	copy(out, in)

	for _, e := range c {
		value := vibe.Get(e.Axis)
		if value <= e.Threshold {
			continue
		}
		var err error
		out, err = apply(e, value, out, sampleRate)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Active lists the kinds a vibe would trigger, in chain order
func (c Chain) Active(vibe model.Vibe) []Kind {
	var kinds []Kind
	for _, e := range c {
		if vibe.Get(e.Axis) > e.Threshold {
			kinds = append(kinds, e.Kind)
		}
	}
	return kinds
}

func apply(e Effect, value float64, in []float64, sampleRate int) ([]float64, error) {
	switch e.Kind {
	case KindSaturation:
		return saturate(in, value), nil
	case KindLowPass:
		cutoff := e.param("max_cutoff", 8000) * (1 - e.param("depth", 0.7)*value)
		return dsp.ButterworthLowPass(int(e.param("order", 4)), cutoff, sampleRate).Apply(in), nil
	case KindReverb:
		return reverb(in, e.param("delay", 0.05), value*e.param("wet", 0.3), sampleRate), nil
	case KindTransient:
		hp := dsp.ButterworthHighPass(int(e.param("order", 2)), e.param("cutoff", 200), sampleRate)
		transients := hp.Apply(in)
		amount := value * e.param("amount", 0.3)
		out := make([]float64, len(in))
		for i := range in {
			out[i] = in[i] + transients[i]*amount
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown effect kind %q", e.Kind)
	}
}

func (e Effect) param(name string, def float64) float64 {
	if v, ok := e.Params[name]; ok {
		return v
	}
	return def
}

// saturate soft clips with drive 1 at energy 0.5 rising to 2 at energy 1, then
// divides the drive back out
func saturate(in []float64, energy float64) []float64 {
	drive := 1 + (energy-0.5)*2
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = math.Tanh(x*drive) / drive
	}
	return out
}

// reverb adds one delayed, attenuated copy of the signal onto itself
func reverb(in []float64, delay, wet float64, sampleRate int) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	d := int(delay * float64(sampleRate))
	if d <= 0 {
		return out
	}
	for i := d; i < len(in); i++ {
		out[i] += in[i-d] * wet
	}
	return out
}
