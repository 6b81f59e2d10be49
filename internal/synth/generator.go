// Package synth is the boundary to the external generative audio capability.
package synth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/dsp"
)

// Request is what the capability is asked to render
type Request struct {
	Prompt   string `json:"prompt"`
	Duration int    `json:"duration"`
	Seed     *int64 `json:"seed,omitempty"`
}

// Audio is mono base audio returned by a Generator
type Audio struct {
	Samples     []float64
	SampleRate  int
	Placeholder bool
}

// Generator turns a prompt and duration into base audio
type Generator interface {
	Generate(ctx context.Context, req Request) (*Audio, error)
}

// Policy decides what happens when the capability is unavailable
type Policy string

const (
	PolicyPlaceholder Policy = "placeholder"
	PolicyFail        Policy = "fail"
)

// ParsePolicy validates a configured policy value
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyPlaceholder, PolicyFail:
		return p, nil
	default:
		return "", fmt.Errorf("unknown generation policy %q (want %q or %q)", s, PolicyPlaceholder, PolicyFail)
	}
}

// Fallback bounds the primary capability by Timeout and applies Policy when it is unavailable
type Fallback struct {
	Primary     Generator
	Placeholder Generator
	Policy      Policy
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewFallback wires a primary generator with the deterministic placeholder
func NewFallback(primary Generator, policy Policy, timeout time.Duration, logger *zap.Logger) *Fallback {
	return &Fallback{
		Primary:     primary,
		Placeholder: Placeholder{},
		Policy:      policy,
		Timeout:     timeout,
		Logger:      logger,
	}
}

func (f *Fallback) Generate(ctx context.Context, req Request) (*Audio, error) {
	audio, err := f.generatePrimary(ctx, req)
	if err == nil {
		return audio, nil
	}

	if f.Policy != PolicyPlaceholder || !errors.Is(err, apperr.ErrGenerationUnavailable) {
		return nil, err
	}

	f.Logger.Warn("generative capability unavailable, using placeholder synthesis",
		zap.Error(err),
		zap.Int("duration", req.Duration),
	)
	return f.Placeholder.Generate(ctx, req)
}

func (f *Fallback) generatePrimary(ctx context.Context, req Request) (*Audio, error) {
	if f.Primary == nil {
		return nil, apperr.ErrGenerationUnavailable
	}

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	audio, err := f.Primary.Generate(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Unavailable(fmt.Errorf("generation timed out after %s: %w", f.Timeout, ctx.Err()))
		}
		return nil, err
	}
	if audio.SampleRate != dsp.SampleRate {
		return nil, fmt.Errorf("generator returned %d Hz audio, want %d Hz", audio.SampleRate, dsp.SampleRate)
	}
	return audio, nil
}
