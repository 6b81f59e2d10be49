package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/makeasinger/musicengine/internal/apperr"
)

// Vibe axes
const (
	VibeEnergy     = "energy"
	VibeDark       = "dark"
	VibeDreamy     = "dreamy"
	VibeAggressive = "aggressive"
)

// Spec defaults
const (
	DefaultBPM      = 120
	DefaultDuration = 30
	DefaultKey      = "C minor"
)

// VibeAxes lists the vibe axes in their canonical order
var VibeAxes = []string{VibeEnergy, VibeDark, VibeDreamy, VibeAggressive}

// DefaultVibe holds the value used for every axis missing from a spec
var DefaultVibe = Vibe{
	VibeEnergy:     0.5,
	VibeDark:       0.3,
	VibeDreamy:     0.4,
	VibeAggressive: 0.2,
}

// MusicSpec is the reproducible description of a requested track
type MusicSpec struct {
	BPM         int               `json:"bpm" validate:"min=60,max=180"`
	Key         string            `json:"key" validate:"required,max=64"`
	Duration    int               `json:"duration" validate:"min=5,max=300"`
	Vibe        Vibe              `json:"vibe" validate:"dive,keys,oneof=energy dark dreamy aggressive,endkeys,min=0,max=1"`
	GenreMix    GenreMix          `json:"genre_mix" validate:"dive"`
	Instruments map[string]string `json:"instruments" validate:"dive,keys,min=1,endkeys,min=1"`
	Stems       *bool             `json:"stems,omitempty"`
	Seed        *int64            `json:"seed,omitempty"`
}

// Vibe maps a vibe axis to a value in [0,1]
type Vibe map[string]float64

// Get returns the axis value, falling back to the default for that axis
func (v Vibe) Get(axis string) float64 {
	if val, ok := v[axis]; ok {
		return val
	}
	return DefaultVibe[axis]
}

// GenreWeight is one entry of a genre mix
type GenreWeight struct {
	Name   string  `json:"name" validate:"required"`
	Weight float64 `json:"weight"`
}

// GenreMix is an insertion-ordered genre -> relative weight mapping.
// It encodes as a JSON object and keeps the object's key order on decode.
type GenreMix []GenreWeight

func (g *GenreMix) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*g = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("genre_mix: expected object")
	}

	mix := GenreMix{}
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("genre_mix: expected string key")
		}
		var weight float64
		if err := dec.Decode(&weight); err != nil {
			return fmt.Errorf("genre_mix[%s]: %w", name, err)
		}
		if i, seen := index[name]; seen {
			mix[i].Weight = weight
			continue
		}
		index[name] = len(mix)
		mix = append(mix, GenreWeight{Name: name, Weight: weight})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*g = mix
	return nil
}

func (g GenreMix) MarshalJSON() ([]byte, error) {
	if g == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, gw := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(gw.Name)
		if err != nil {
			return nil, err
		}
		weight, err := json.Marshal(gw.Weight)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(weight)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// WantStems reports whether individual stems are exported alongside the mix
func (s *MusicSpec) WantStems() bool {
	return s.Stems == nil || *s.Stems
}

// Normalize returns a copy of the spec with defaults filled in.
// A nil genre mix or instrument map takes the default set; an empty one stays empty.
func (s MusicSpec) Normalize() MusicSpec {
	out := s
	if out.BPM == 0 {
		out.BPM = DefaultBPM
	}
	if out.Duration == 0 {
		out.Duration = DefaultDuration
	}
	if strings.TrimSpace(out.Key) == "" {
		out.Key = DefaultKey
	}

	vibe := make(Vibe, len(VibeAxes))
	for axis, val := range s.Vibe {
		vibe[axis] = val
	}
	for _, axis := range VibeAxes {
		if _, ok := vibe[axis]; !ok {
			vibe[axis] = DefaultVibe[axis]
		}
	}
	out.Vibe = vibe

	if s.GenreMix == nil {
		out.GenreMix = GenreMix{
			{Name: "synthwave", Weight: 0.6},
			{Name: "lofi", Weight: 0.3},
			{Name: "techno", Weight: 0.1},
		}
	} else {
		out.GenreMix = append(GenreMix{}, s.GenreMix...)
	}

	if s.Instruments == nil {
		out.Instruments = map[string]string{
			"bass":  "analog_mono",
			"lead":  "supersaw",
			"pad":   "granular_pad",
			"drums": "808",
		}
	} else {
		out.Instruments = make(map[string]string, len(s.Instruments))
		for k, v := range s.Instruments {
			out.Instruments[k] = v
		}
	}

	if s.Stems == nil {
		stems := true
		out.Stems = &stems
	}
	return out
}

// InstrumentNames returns the instrument keys in sorted order
func (s *MusicSpec) InstrumentNames() []string {
	names := make([]string, 0, len(s.Instruments))
	for name := range s.Instruments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every field against its documented domain
func (s *MusicSpec) Validate(v *validator.Validate) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	fields := make([]apperr.FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, apperr.FieldError{
			Field:   e.Namespace(),
			Tag:     e.Tag(),
			Message: describeTag(e),
		})
	}
	return &apperr.ValidationError{Fields: fields}
}

func describeTag(e validator.FieldError) string {
	switch e.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	case "required":
		return "is required"
	default:
		return fmt.Sprintf("failed %q check", e.Tag())
	}
}

// DeriveJobID builds a stable job identifier from the spec contents
func DeriveJobID(s MusicSpec) string {
	data, err := json.Marshal(canonicalSpec(s))
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// canonicalSpec orders every field so the JSON encoding is independent of map iteration
func canonicalSpec(s MusicSpec) map[string]interface{} {
	return map[string]interface{}{
		"bpm":         s.BPM,
		"key":         s.Key,
		"duration":    s.Duration,
		"vibe":        map[string]float64(s.Vibe),
		"genre_mix":   s.GenreMix,
		"instruments": s.Instruments,
		"stems":       s.Stems,
		"seed":        s.Seed,
	}
}
