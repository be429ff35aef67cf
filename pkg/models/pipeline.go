package models

// RunState represents the state of a pipeline run. Runs advance strictly
// forward; Failed, TimedOut and Cancelled are terminal and reachable from
// any non-terminal state.
type RunState string

const (
	RunStateIdle            RunState = "IDLE"
	RunStateCVLoaded        RunState = "CV_LOADED"
	RunStateScrapeRequested RunState = "SCRAPE_REQUESTED"
	RunStateScrapeCompleted RunState = "SCRAPE_COMPLETED"
	RunStateFiltered        RunState = "FILTERED"
	RunStateEvaluated       RunState = "EVALUATED"
	RunStatePersisted       RunState = "PERSISTED"
	RunStateFailed          RunState = "FAILED"
	RunStateTimedOut        RunState = "TIMED_OUT"
	RunStateCancelled       RunState = "CANCELLED"
)

// IsTerminal reports whether the state ends a run.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStatePersisted, RunStateFailed, RunStateTimedOut, RunStateCancelled:
		return true
	}
	return false
}

// JobProcessingResult records the per-job outcome of the evaluate and
// persist stages.
type JobProcessingResult struct {
	JobID     string `json:"job_id"`
	Relevant  bool   `json:"relevant"`
	Reason    string `json:"reason"`
	Persisted bool   `json:"persisted"`
}

// PipelineSummary is the caller-visible outcome of one run. Errors holds
// the isolated per-job failures in the order they occurred; it never
// contains errors that aborted the run (those surface as the run error).
type PipelineSummary struct {
	TotalFound     int                   `json:"total_found"`
	TotalFiltered  int                   `json:"total_filtered"`
	TotalRelevant  int                   `json:"total_relevant"`
	TotalPersisted int                   `json:"total_persisted"`
	Jobs           []JobProcessingResult `json:"jobs,omitempty"`
	Errors         []string              `json:"errors"`
}
