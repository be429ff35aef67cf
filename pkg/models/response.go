package models

import "time"

// PipelineRunResponse is the HTTP response for a completed (or terminally
// ended) pipeline run.
type PipelineRunResponse struct {
	UserID         string           `json:"user_id"`
	State          RunState         `json:"state"`
	Summary        *PipelineSummary `json:"summary,omitempty"`
	Error          string           `json:"error,omitempty"`
	ProcessingTime time.Duration    `json:"processing_time"`
	RequestID      string           `json:"request_id"`
}

// StatusResponse reports the current run state for a user.
type StatusResponse struct {
	UserID string   `json:"user_id"`
	State  RunState `json:"state"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
