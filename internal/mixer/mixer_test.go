package mixer

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/dsp"
	"github.com/makeasinger/musicengine/internal/model"
	"github.com/makeasinger/musicengine/internal/stems"
	"github.com/makeasinger/musicengine/internal/storage"
)

func tone(freq, amp float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/dsp.SampleRate)
	}
	return out
}

func testStems() []stems.Stem {
	return []stems.Stem{
		{Name: "bass", Samples: tone(110, 0.8, dsp.SampleRate/2)},
		{Name: "lead", Samples: tone(880, 0.6, dsp.SampleRate/4)},
	}
}

var energetic = model.Vibe{"energy": 0.9, "dark": 0.5, "dreamy": 0.6, "aggressive": 0.7}

func TestMix_EmptyStemSet(t *testing.T) {
	m := New(storage.NewLocalStore(t.TempDir(), ""))

	_, err := m.MixAndExport(context.Background(), "job", nil, energetic, true)
	assert.ErrorIs(t, err, apperr.ErrEmptyStemSet)
}

func TestMix_PadsAndNormalizes(t *testing.T) {
	m := New(nil)

	mix, processed, err := m.Mix(testStems(), energetic)
	require.NoError(t, err)

	assert.Len(t, mix, dsp.SampleRate/2)
	assert.InDelta(t, dsp.DBToLinear(-6), dsp.Peak(mix), 1e-9)
	for _, x := range mix {
		assert.False(t, math.IsNaN(x))
		assert.LessOrEqual(t, math.Abs(x), 1.0)
	}
	require.Len(t, processed, 2)
	assert.Len(t, processed[1].Samples, dsp.SampleRate/4)
	assert.InDelta(t, dsp.DBToLinear(-6), dsp.Peak(processed[1].Samples), 1e-9)
}

func TestMix_SilentStemsStaySilent(t *testing.T) {
	m := New(nil)
	silent := []stems.Stem{{Name: "pad", Samples: make([]float64, 1000)}}

	mix, _, err := m.Mix(silent, energetic)
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 1000), mix)
}

func TestMix_DoesNotMutateInput(t *testing.T) {
	in := testStems()
	orig := append([]float64(nil), in[0].Samples...)

	_, _, err := New(nil).Mix(in, energetic)
	require.NoError(t, err)
	assert.Equal(t, orig, in[0].Samples)
}

func TestMixAndExport_WritesOutputs(t *testing.T) {
	dir := t.TempDir()
	m := New(storage.NewLocalStore(dir, ""))

	res, err := m.MixAndExport(context.Background(), "job1", testStems(), energetic, true)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"mix":  filepath.Join(dir, "job1", "mix.wav"),
		"bass": filepath.Join(dir, "job1", "bass.wav"),
		"lead": filepath.Join(dir, "job1", "lead.wav"),
	}, res.Outputs)
	for _, p := range res.Outputs {
		assert.FileExists(t, p)
	}
}

func TestMixAndExport_MixOnly(t *testing.T) {
	dir := t.TempDir()
	m := New(storage.NewLocalStore(dir, ""))

	res, err := m.MixAndExport(context.Background(), "job2", testStems(), energetic, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"mix"}, keys(res.Outputs))
	assert.NoFileExists(t, filepath.Join(dir, "job2", "bass.wav"))
}

func TestMixAndExport_ByteDeterministic(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()

	a, err := New(storage.NewLocalStore(dirA, "")).MixAndExport(context.Background(), "j", testStems(), energetic, true)
	require.NoError(t, err)
	b, err := New(storage.NewLocalStore(dirB, "")).MixAndExport(context.Background(), "j", testStems(), energetic, true)
	require.NoError(t, err)

	for name := range a.Outputs {
		da, err := os.ReadFile(a.Outputs[name])
		require.NoError(t, err)
		db, err := os.ReadFile(b.Outputs[name])
		require.NoError(t, err)
		assert.Equal(t, da, db, name)
	}
}

type failingStore struct{}

func (failingStore) Save(_ context.Context, jobID, name string, _ []float64, _ int) (string, error) {
	return "", &apperr.ExportError{Name: name, Path: jobID, Err: errors.New("disk full")}
}

func TestMixAndExport_StoreFailure(t *testing.T) {
	_, err := New(failingStore{}).MixAndExport(context.Background(), "j", testStems(), energetic, true)
	assert.ErrorIs(t, err, apperr.ErrExport)
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
