package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"job-agent-core/pkg/models"
)

// stateRank orders the forward progression. Terminal failure states are not
// ranked; they are reachable from any non-terminal state.
var stateRank = map[models.RunState]int{
	models.RunStateIdle:            0,
	models.RunStateCVLoaded:        1,
	models.RunStateScrapeRequested: 2,
	models.RunStateScrapeCompleted: 3,
	models.RunStateFiltered:        4,
	models.RunStateEvaluated:       5,
	models.RunStatePersisted:       6,
}

// Run tracks one end-to-end execution of the search-to-persist workflow for
// a single user. States only move forward; once terminal, a run never
// changes again.
type Run struct {
	UserID    string
	StartedAt time.Time

	mu         sync.Mutex
	state      models.RunState
	summary    models.PipelineSummary
	cancel     context.CancelFunc
	finishedAt *time.Time
}

func newRun(userID string, cancel context.CancelFunc) *Run {
	return &Run{
		UserID:    userID,
		StartedAt: time.Now(),
		state:     models.RunStateIdle,
		cancel:    cancel,
	}
}

// State returns the current run state.
func (r *Run) State() models.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Summary returns a copy of the current summary.
func (r *Run) Summary() models.PipelineSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// transition advances the run. Forward transitions must follow the state
// order; Failed, TimedOut and Cancelled are accepted from any non-terminal
// state. Returns an error when the run is already terminal or the move
// would go backwards.
func (r *Run) transition(to models.RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.IsTerminal() {
		return fmt.Errorf("run for user %s already terminal in state %s", r.UserID, r.state)
	}

	if !to.IsTerminal() {
		fromRank, ok := stateRank[r.state]
		toRank, ok2 := stateRank[to]
		if !ok || !ok2 || toRank <= fromRank {
			return fmt.Errorf("invalid transition %s -> %s", r.state, to)
		}
	}

	r.state = to
	if to.IsTerminal() {
		now := time.Now()
		r.finishedAt = &now
	}
	return nil
}

// updateSummary applies fn to the run's summary under the lock.
func (r *Run) updateSummary(fn func(*models.PipelineSummary)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.summary)
}

// abort cancels the run context, unblocking a pending correlator await or
// any in-flight stage promptly.
func (r *Run) abort() {
	if r.cancel != nil {
		r.cancel()
	}
}
