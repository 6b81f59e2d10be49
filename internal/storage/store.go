// Package storage persists rendered outputs and returns their references.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/audio"
)

// Store writes one named output of a job and returns where it can be found
type Store interface {
	Save(ctx context.Context, jobID, name string, samples []float64, sampleRate int) (string, error)
}

// LocalStore writes WAV files under <dir>/<job_id>/<name>.wav
type LocalStore struct {
	dir           string
	publicBaseURL string
}

// NewLocalStore creates a store rooted at dir. When publicBaseURL is set the returned
// reference is <publicBaseURL>/<job_id>/<name>.wav instead of the file path.
func NewLocalStore(dir, publicBaseURL string) *LocalStore {
	return &LocalStore{
		dir:           dir,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// Save encodes samples to the job directory
func (s *LocalStore) Save(ctx context.Context, jobID, name string, samples []float64, sampleRate int) (string, error) {
	path, err := s.Path(jobID, name)
	if err != nil {
		return "", &apperr.ExportError{Name: name, Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", &apperr.ExportError{Name: name, Path: path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &apperr.ExportError{Name: name, Path: path, Err: err}
	}
	if err := audio.WriteFile(path, samples, sampleRate); err != nil {
		return "", &apperr.ExportError{Name: name, Path: path, Err: err}
	}

	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.publicBaseURL, ObjectKey(jobID, name)), nil
	}
	return path, nil
}

// Path returns the file path of an output. Names containing path elements are rejected.
func (s *LocalStore) Path(jobID, name string) (string, error) {
	if err := checkSegment(jobID); err != nil {
		return "", fmt.Errorf("job id: %w", err)
	}
	if err := checkSegment(name); err != nil {
		return "", fmt.Errorf("output name: %w", err)
	}
	return filepath.Join(s.dir, jobID, name+".wav"), nil
}

// ObjectKey is the storage key shared by every backend
func ObjectKey(jobID, name string) string {
	return fmt.Sprintf("%s/%s.wav", jobID, name)
}

func checkSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid path segment %q", s)
	}
	return nil
}
