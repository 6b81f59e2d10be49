package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/config"
)

// HTTPGenerator calls a model-serving endpoint over HTTP
type HTTPGenerator struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

type generateRequest struct {
	Prompt   string `json:"prompt"`
	Duration int    `json:"duration"`
	Seed     *int64 `json:"seed,omitempty"`
	Model    string `json:"model,omitempty"`
}

type generateResponse struct {
	Samples    []float64 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
}

// NewHTTPGenerator creates a generator client. Deadlines come from the caller's context.
func NewHTTPGenerator(cfg *config.GenerationConfig) *HTTPGenerator {
	return &HTTPGenerator{
		httpClient: &http.Client{},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
	}
}

// IsConfigured returns true if the client has a service to talk to
func (c *HTTPGenerator) IsConfigured() bool {
	return c.baseURL != ""
}

// Generate posts the request to /generate and decodes the returned samples
func (c *HTTPGenerator) Generate(ctx context.Context, req Request) (*Audio, error) {
	if !c.IsConfigured() {
		return nil, apperr.Unavailable(fmt.Errorf("generation service URL not configured"))
	}

	bodyBytes, err := json.Marshal(generateRequest{
		Prompt:   req.Prompt,
		Duration: req.Duration,
		Seed:     req.Seed,
		Model:    c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperr.Unavailable(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Unavailable(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.Unavailable(fmt.Errorf("generation service error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(result.Samples) == 0 {
		return nil, fmt.Errorf("generation service returned no samples")
	}

	return &Audio{
		Samples:    result.Samples,
		SampleRate: result.SampleRate,
	}, nil
}
