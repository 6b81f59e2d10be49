package model

import "time"

// GenerateResponse is returned when a spec is accepted for generation
type GenerateResponse struct {
	JobID          string    `json:"job_id"`
	Status         JobStatus `json:"status"`
	CreditsCharged int       `json:"credits_charged"`
	EstimatedTime  string    `json:"estimated_time"`
}

// StatusResponse is the externally visible view of a ledger entry
type StatusResponse struct {
	JobID       string            `json:"job_id"`
	Status      JobStatus         `json:"status"`
	Progress    float64           `json:"progress"`
	Outputs     map[string]string `json:"outputs,omitempty"`
	Error       *string           `json:"error"`
	Placeholder bool              `json:"placeholder"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at"`
}

// NewStatusResponse builds the status view of a job
func NewStatusResponse(job *Job) *StatusResponse {
	resp := &StatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		Placeholder: job.Placeholder,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Status == JobStatusCompleted {
		resp.Outputs = job.Outputs
	}
	if job.Error != "" {
		msg := job.Error
		resp.Error = &msg
	}
	return resp
}

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage represents a progress update
type WSProgressMessage struct {
	Type     string    `json:"type"`
	JobID    string    `json:"jobId"`
	Progress float64   `json:"progress"`
	Status   JobStatus `json:"status"`
}

// WSCompleteMessage represents job completion
type WSCompleteMessage struct {
	Type        string            `json:"type"`
	JobID       string            `json:"jobId"`
	Outputs     map[string]string `json:"outputs"`
	Placeholder bool              `json:"placeholder"`
}

// WSErrorMessage represents a failed job
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
