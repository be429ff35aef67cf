package models

import (
	"fmt"
	"time"
)

// SearchCriteria holds the hard constraints for one scrape request.
// PostedAfter is optional; when nil the orchestrator computes a lookback
// window from the job store's freshness.
type SearchCriteria struct {
	MinSalary      int        `json:"min_salary" validate:"gte=0"`
	EmploymentType string     `json:"employment_type" validate:"required"`
	PostedAfter    *time.Time `json:"posted_after,omitempty"`
	TimeoutSeconds int        `json:"timeout_seconds" validate:"gte=0"`
}

// Timeout returns the criteria timeout as a duration.
func (c SearchCriteria) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ScrapeRequest is the broker-carried request message. The correlation id
// and reply destination travel inside the envelope because the transport
// carries opaque payloads without message properties. Immutable once
// published.
type ScrapeRequest struct {
	CorrelationID string    `json:"correlation_id"`
	ReplyTo       string    `json:"reply_to"`
	Salary        int       `json:"salary"`
	Employment    string    `json:"employment"`
	PostedAfter   string    `json:"posted_after,omitempty"`
	Timeout       int       `json:"timeout"`
	CreatedAt     time.Time `json:"created_at"`
}

// ScrapeReply is the broker-carried reply message for one scrape request.
type ScrapeReply struct {
	CorrelationID string       `json:"correlation_id"`
	Jobs          []JobListing `json:"jobs"`
	Success       bool         `json:"success"`
	Error         *string      `json:"error"`
	JobsCount     int          `json:"jobs_count"`
}

// Validate enforces the reply invariants: a successful reply carries no
// error and a matching job count; a failed reply carries an error and no
// jobs.
func (r *ScrapeReply) Validate() error {
	if r.CorrelationID == "" {
		return fmt.Errorf("reply is missing a correlation id")
	}
	if r.Success {
		if r.Error != nil && *r.Error != "" {
			return fmt.Errorf("successful reply carries error %q", *r.Error)
		}
		if r.JobsCount != len(r.Jobs) {
			return fmt.Errorf("jobs_count %d does not match %d jobs", r.JobsCount, len(r.Jobs))
		}
		return nil
	}
	if len(r.Jobs) != 0 {
		return fmt.Errorf("failed reply carries %d jobs", len(r.Jobs))
	}
	if r.Error == nil || *r.Error == "" {
		return fmt.Errorf("failed reply is missing an error")
	}
	return nil
}

// ErrorString returns the reply error, or an empty string for a success.
func (r *ScrapeReply) ErrorString() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}
