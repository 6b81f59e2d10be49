package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the pipeline stages
var (
	ErrValidation            = errors.New("validation failed")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrEmptyStemSet          = errors.New("no stems to mix: instruments matched no known stem")
	ErrExport                = errors.New("export failed")
	ErrInvalidTransition     = errors.New("invalid job state transition")
	ErrJobNotFound           = errors.New("job not found")
	ErrClaimed               = errors.New("job claimed by another worker")
)

// FieldError describes a single spec field outside its documented domain
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationError is returned when a MusicSpec is rejected before any generation work
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ExportError wraps a destination write failure for one output
type ExportError struct {
	Name string
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s to %s: %v", e.Name, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

func (e *ExportError) Is(target error) bool {
	return target == ErrExport
}

// Unavailable wraps a generative capability failure so callers can match ErrGenerationUnavailable
func Unavailable(cause error) error {
	if cause == nil {
		return ErrGenerationUnavailable
	}
	return fmt.Errorf("%w: %w", ErrGenerationUnavailable, cause)
}
