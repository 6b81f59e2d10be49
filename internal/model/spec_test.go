package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeasinger/musicengine/internal/apperr"
)

const scenarioSpec = `{
	"bpm": 120,
	"key": "C minor",
	"duration": 30,
	"vibe": {"energy": 0.8, "dark": 0.6, "dreamy": 0.4, "aggressive": 0.2},
	"genre_mix": {"synthwave": 0.6, "lofi": 0.3, "techno": 0.1},
	"instruments": {"bass": "analog_mono", "lead": "supersaw"},
	"stems": true
}`

func TestGenreMix_KeepsInsertionOrder(t *testing.T) {
	var mix GenreMix
	require.NoError(t, json.Unmarshal([]byte(`{"techno": 0.1, "synthwave": 0.6, "lofi": 0.3}`), &mix))

	require.Len(t, mix, 3)
	assert.Equal(t, "techno", mix[0].Name)
	assert.Equal(t, "synthwave", mix[1].Name)
	assert.Equal(t, "lofi", mix[2].Name)

	out, err := json.Marshal(mix)
	require.NoError(t, err)
	assert.JSONEq(t, `{"techno": 0.1, "synthwave": 0.6, "lofi": 0.3}`, string(out))
	assert.Equal(t, `{"techno":0.1,"synthwave":0.6,"lofi":0.3}`, string(out))
}

func TestGenreMix_RejectsNonObject(t *testing.T) {
	var mix GenreMix
	assert.Error(t, json.Unmarshal([]byte(`["synthwave"]`), &mix))
}

func TestNormalize_FillsDefaults(t *testing.T) {
	var spec MusicSpec
	require.NoError(t, json.Unmarshal([]byte(`{"vibe": {"energy": 0.9}}`), &spec))

	n := spec.Normalize()
	assert.Equal(t, DefaultBPM, n.BPM)
	assert.Equal(t, DefaultDuration, n.Duration)
	assert.Equal(t, DefaultKey, n.Key)
	assert.Equal(t, 0.9, n.Vibe[VibeEnergy])
	assert.Equal(t, 0.3, n.Vibe[VibeDark])
	assert.Equal(t, 0.4, n.Vibe[VibeDreamy])
	assert.Equal(t, 0.2, n.Vibe[VibeAggressive])
	assert.Len(t, n.Instruments, 4)
	assert.Len(t, n.GenreMix, 3)
	assert.True(t, n.WantStems())

	// the source spec is untouched
	assert.Len(t, spec.Vibe, 1)
}

func TestNormalize_EmptyInstrumentsStayEmpty(t *testing.T) {
	var spec MusicSpec
	require.NoError(t, json.Unmarshal([]byte(`{"instruments": {}, "stems": false}`), &spec))

	n := spec.Normalize()
	assert.NotNil(t, n.Instruments)
	assert.Empty(t, n.Instruments)
	assert.False(t, n.WantStems())
}

func TestValidate(t *testing.T) {
	v := validator.New()

	var ok MusicSpec
	require.NoError(t, json.Unmarshal([]byte(scenarioSpec), &ok))
	n := ok.Normalize()
	assert.NoError(t, n.Validate(v))

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bpm too high", `{"bpm": 181}`, "MusicSpec.BPM"},
		{"bpm too low", `{"bpm": 59}`, "MusicSpec.BPM"},
		{"duration too long", `{"duration": 301}`, "MusicSpec.Duration"},
		{"duration too short", `{"duration": 4}`, "MusicSpec.Duration"},
		{"vibe above range", `{"vibe": {"dark": 1.5}}`, "MusicSpec.Vibe[dark]"},
		{"vibe below range", `{"vibe": {"energy": -0.1}}`, "MusicSpec.Vibe[energy]"},
		{"unknown vibe axis", `{"vibe": {"happy": 0.5}}`, "MusicSpec.Vibe[happy]"},
		{"empty genre name", `{"genre_mix": {"": 0.5}}`, "MusicSpec.GenreMix[0].Name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var spec MusicSpec
			require.NoError(t, json.Unmarshal([]byte(tt.body), &spec))
			n := spec.Normalize()

			err := n.Validate(v)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation))

			var ve *apperr.ValidationError
			require.True(t, errors.As(err, &ve))
			require.NotEmpty(t, ve.Fields)
			assert.Equal(t, tt.field, ve.Fields[0].Field)
		})
	}
}

func TestDeriveJobID_Stable(t *testing.T) {
	var a, b MusicSpec
	require.NoError(t, json.Unmarshal([]byte(scenarioSpec), &a))
	require.NoError(t, json.Unmarshal([]byte(scenarioSpec), &b))

	idA := DeriveJobID(a.Normalize())
	assert.Len(t, idA, 16)
	assert.Equal(t, idA, DeriveJobID(b.Normalize()))

	b.BPM = 121
	assert.NotEqual(t, idA, DeriveJobID(b.Normalize()))
}
