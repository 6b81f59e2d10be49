package apperr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("job abc: %w", &ValidationError{Fields: []FieldError{
		{Field: "bpm", Tag: "max", Message: "must be at most 180"},
	}})

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "bpm: must be at most 180")

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Fields, 1)
}

func TestExportError_UnwrapsCause(t *testing.T) {
	err := &ExportError{Name: "mix", Path: "/out/j1/mix.wav", Err: os.ErrPermission}

	assert.True(t, errors.Is(err, ErrExport))
	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.Equal(t, "export mix to /out/j1/mix.wav: permission denied", err.Error())
}

func TestUnavailable(t *testing.T) {
	err := Unavailable(context.DeadlineExceeded)
	assert.True(t, errors.Is(err, ErrGenerationUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	assert.Equal(t, ErrGenerationUnavailable, Unavailable(nil))
}
