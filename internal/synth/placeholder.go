package synth

import (
	"context"
	"math"

	"github.com/makeasinger/musicengine/internal/dsp"
)

// partials of the placeholder signal: A2, A3, A4
var placeholderPartials = []struct {
	freq float64
	amp  float64
}{
	{110, 0.3},
	{220, 0.2},
	{440, 0.1},
}

// Placeholder renders a deterministic additive signal in place of generated audio.
// It ignores the prompt and seed; output depends only on the duration.
type Placeholder struct{}

func (Placeholder) Generate(_ context.Context, req Request) (*Audio, error) {
	n := req.Duration * dsp.SampleRate
	if n < 0 {
		n = 0
	}
	duration := float64(req.Duration)

	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / dsp.SampleRate
		var v float64
		for _, p := range placeholderPartials {
			v += p.amp * math.Sin(2*math.Pi*p.freq*t)
		}
		samples[i] = v * (0.3 + 0.7*math.Exp(-t/duration))
	}

	return &Audio{
		Samples:     samples,
		SampleRate:  dsp.SampleRate,
		Placeholder: true,
	}, nil
}
