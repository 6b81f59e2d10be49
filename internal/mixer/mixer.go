// Package mixer combines processed stems into the final mix and exports every output.
package mixer

import (
	"context"
	"fmt"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/dsp"
	"github.com/makeasinger/musicengine/internal/effects"
	"github.com/makeasinger/musicengine/internal/model"
	"github.com/makeasinger/musicengine/internal/stems"
	"github.com/makeasinger/musicengine/internal/storage"
)

// Mixer applies vibe effects, sums stems and writes the results through a Store
type Mixer struct {
	Effects    effects.Chain
	Store      storage.Store
	SampleRate int
	TargetDB   float64
}

// New creates a mixer with the default effect chain and normalization target
func New(store storage.Store) *Mixer {
	return &Mixer{
		Effects:    effects.DefaultChain,
		Store:      store,
		SampleRate: dsp.SampleRate,
		TargetDB:   dsp.TargetPeakDB,
	}
}

// Result holds the rendered buffers alongside their output references
type Result struct {
	Mix     []float64
	Stems   []stems.Stem
	Outputs map[string]string
}

// Mix runs effects on every stem, averages them at equal weight, runs effects on the
// sum and normalizes it. Stems in the result are effected and normalized.
func (m *Mixer) Mix(in []stems.Stem, vibe model.Vibe) ([]float64, []stems.Stem, error) {
	if len(in) == 0 {
		return nil, nil, apperr.ErrEmptyStemSet
	}

	processed := make([]stems.Stem, len(in))
	longest := 0
	for i, s := range in {
		samples, err := m.Effects.Apply(s.Samples, vibe, m.SampleRate)
		if err != nil {
			return nil, nil, fmt.Errorf("effects on stem %s: %w", s.Name, err)
		}
		processed[i] = stems.Stem{Name: s.Name, Samples: samples}
		if len(samples) > longest {
			longest = len(samples)
		}
	}

	sum := make([]float64, longest)
	for _, s := range processed {
		for i, x := range dsp.PadTo(s.Samples, longest) {
			sum[i] += x
		}
	}
	weight := 1 / float64(len(processed))
	for i := range sum {
		sum[i] *= weight
	}

	mix, err := m.Effects.Apply(sum, vibe, m.SampleRate)
	if err != nil {
		return nil, nil, fmt.Errorf("effects on mix: %w", err)
	}

	for i := range processed {
		processed[i].Samples = dsp.Normalize(processed[i].Samples, m.TargetDB)
	}
	return dsp.Normalize(mix, m.TargetDB), processed, nil
}

// MixAndExport mixes the stems and writes mix.wav, plus one file per stem when
// wantStems is set. It returns output name -> location.
func (m *Mixer) MixAndExport(ctx context.Context, jobID string, in []stems.Stem, vibe model.Vibe, wantStems bool) (*Result, error) {
	mix, processed, err := m.Mix(in, vibe)
	if err != nil {
		return nil, err
	}

	outputs := make(map[string]string, len(processed)+1)
	ref, err := m.Store.Save(ctx, jobID, model.MixOutput, mix, m.SampleRate)
	if err != nil {
		return nil, err
	}
	outputs[model.MixOutput] = ref

	if wantStems {
		for _, s := range processed {
			ref, err := m.Store.Save(ctx, jobID, s.Name, s.Samples, m.SampleRate)
			if err != nil {
				return nil, err
			}
			outputs[s.Name] = ref
		}
	}

	return &Result{Mix: mix, Stems: processed, Outputs: outputs}, nil
}
