package pipeline

import (
	"fmt"
	"sync"

	"job-agent-core/pkg/utils"
)

// runTable is the atomically checked-and-set map from user id to the active
// run handle.
type runTable struct {
	mu   sync.Mutex
	runs map[string]*Run
}

func newRunTable() *runTable {
	return &runTable{runs: make(map[string]*Run)}
}

// claim installs the run for the user. Rejected when the user already has a
// non-terminal run or the active-run limit is reached; the existing run is
// unaffected either way.
func (t *runTable) claim(userID string, run *Run, maxActive int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.runs[userID]; ok && !existing.State().IsTerminal() {
		return utils.NewAlreadyRunningError(userID)
	}

	if maxActive > 0 {
		active := 0
		for _, r := range t.runs {
			if !r.State().IsTerminal() {
				active++
			}
		}
		if active >= maxActive {
			return utils.NewValidationError(fmt.Sprintf("active run limit (%d) reached", maxActive))
		}
	}

	t.runs[userID] = run
	return nil
}

func (t *runTable) get(userID string) (*Run, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	run, ok := t.runs[userID]
	return run, ok
}

// remove drops the entry only if it still points at the given run, so an
// expiry never evicts a newer run for the same user.
func (t *runTable) remove(userID string, run *Run) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current, ok := t.runs[userID]; ok && current == run {
		delete(t.runs, userID)
	}
}

func (t *runTable) active() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	active := 0
	for _, r := range t.runs {
		if !r.State().IsTerminal() {
			active++
		}
	}
	return active
}
