// Package prompt translates a MusicSpec into the descriptive text handed to the
// generative audio capability.
package prompt

import (
	"fmt"
	"math"
	"strings"

	"github.com/makeasinger/musicengine/internal/model"
)

// VibeThreshold is the level at or above which a vibe axis is named in the prompt
const VibeThreshold = 0.6

var vibeWords = []struct {
	axis string
	word string
}{
	{model.VibeEnergy, "energetic"},
	{model.VibeDark, "dark"},
	{model.VibeDreamy, "dreamy"},
	{model.VibeAggressive, "aggressive"},
}

// Build renders the prompt for spec. It reads nothing but its argument.
func Build(spec model.MusicSpec) string {
	return fmt.Sprintf("%s %s music at %d BPM, %s vibe",
		spec.Key,
		Genres(spec.GenreMix),
		spec.BPM,
		Vibes(spec.Vibe),
	)
}

// Genres renders "genre (N%)" fragments for every positive weight, in spec order
func Genres(mix model.GenreMix) string {
	fragments := make([]string, 0, len(mix))
	for _, g := range mix {
		if g.Weight <= 0 {
			continue
		}
		fragments = append(fragments, fmt.Sprintf("%s (%d%%)", g.Name, percent(g.Weight)))
	}
	return strings.Join(fragments, ", ")
}

// Vibes names every axis at or above VibeThreshold, or "balanced" when none is
func Vibes(vibe model.Vibe) string {
	words := make([]string, 0, len(vibeWords))
	for _, vw := range vibeWords {
		if vibe[vw.axis] >= VibeThreshold {
			words = append(words, vw.word)
		}
	}
	if len(words) == 0 {
		return "balanced"
	}
	return strings.Join(words, ", ")
}

// percent truncates weight*100, rounding away float noise first so 0.29 is 29
func percent(weight float64) int {
	return int(math.Round(weight*100*1e9) / 1e9)
}
