// Package audio writes sample buffers as 16-bit PCM WAV files.
package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	BitDepth    = 16
	NumChannels = 1
	// wavFormatPCM is the WAVE_FORMAT_PCM format tag
	wavFormatPCM = 1
)

// Encode writes mono float samples in [-1, 1] as 16-bit PCM. Values outside the
// range are clipped.
func Encode(w io.WriteSeeker, samples []float64, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, BitDepth, NumChannels, wavFormatPCM)

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: NumChannels,
			SampleRate:  sampleRate,
		},
		Data:           Quantize(samples),
		SourceBitDepth: BitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}

// WriteFile creates path and encodes samples into it
func WriteFile(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Quantize converts float samples to signed 16-bit integers
func Quantize(samples []float64) []int {
	out := make([]int, len(samples))
	for i, x := range samples {
		if math.IsNaN(x) {
			continue
		}
		x = math.Max(-1, math.Min(1, x))
		out[i] = int(math.Round(x * math.MaxInt16))
	}
	return out
}
