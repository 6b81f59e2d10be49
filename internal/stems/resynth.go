// Package stems splits base audio into named instrument stems by band extraction
// and envelope shaping.
package stems

import (
	"github.com/makeasinger/musicengine/internal/dsp"
)

// filterOrder is the Butterworth order of each band edge
const filterOrder = 4

// Stem is one named instrument buffer
type Stem struct {
	Name    string
	Samples []float64
}

// Band describes how one stem is carved out of the base audio
type Band struct {
	Name      string
	Low       float64 // Hz
	High      float64 // Hz
	Attack    float64 // seconds
	Release   float64 // seconds
	Gain      float64
	Transient bool // percussive: no envelope, gain applied as transient boost
}

// Registry is the ordered table of known stems
type Registry []Band

// DefaultRegistry is the stem table used by the worker
var DefaultRegistry = Registry{
	{Name: "bass", Low: 50, High: 250, Attack: 0.01, Release: 0.20, Gain: 0.8},
	{Name: "lead", Low: 400, High: 4000, Attack: 0.001, Release: 0.05, Gain: 0.7},
	{Name: "pad", Low: 200, High: 1000, Attack: 0.10, Release: 0.50, Gain: 0.5},
	{Name: "drums", Low: 80, High: 8000, Gain: 1.2, Transient: true},
}

// Lookup returns the band registered under name
func (r Registry) Lookup(name string) (Band, bool) {
	for _, b := range r {
		if b.Name == name {
			return b, true
		}
	}
	return Band{}, false
}

// Unknown returns the instrument names that have no registered band
func (r Registry) Unknown(instruments map[string]string) []string {
	var unknown []string
	for name := range instruments {
		if _, ok := r.Lookup(name); !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// Resynthesize produces one stem per registered instrument present in instruments,
// in registry order. Unknown instrument keys produce nothing.
func (r Registry) Resynthesize(base []float64, instruments map[string]string, sampleRate int) []Stem {
	out := make([]Stem, 0, len(instruments))
	for _, band := range r {
		if _, ok := instruments[band.Name]; !ok {
			continue
		}
		out = append(out, Stem{Name: band.Name, Samples: band.Extract(base, sampleRate)})
	}
	return out
}

// Extract applies the band-pass, envelope and gain of one stem
func (b Band) Extract(base []float64, sampleRate int) []float64 {
	samples := dsp.BandPass(filterOrder, b.Low, b.High, sampleRate).Apply(base)
	if !b.Transient {
		samples = dsp.Envelope(samples, b.Attack, b.Release, sampleRate)
	}
	return dsp.Gain(samples, b.Gain)
}
