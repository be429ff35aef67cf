// Package correlator owns the table of pending scrape requests. It is the
// only component that touches correlation state: the publisher registers
// entries, the reply consumer resolves them, and pipeline runs await them.
package correlator

import (
	"context"
	"sync"
	"time"

	"job-agent-core/internal/logging"
	"job-agent-core/pkg/models"
	"job-agent-core/pkg/utils"
)

// Outcome classifies how a pending request ended.
type Outcome int

const (
	OutcomeResolved Outcome = iota
	OutcomeTimedOut
	OutcomeCancelled
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is delivered to the single waiter of a pending request. Reply is
// non-nil only for OutcomeResolved.
type Result struct {
	Outcome Outcome
	Reply   *models.ScrapeReply
}

type entryState int

const (
	statePending entryState = iota
	stateResolved
	stateTimedOut
	stateCancelled
)

// entry is a single-resolution slot for one correlation id. Exactly one
// terminal transition happens per entry, and only the goroutine performing
// that transition sends on done (cap 1), so sends never block.
type entry struct {
	id       string
	deadline time.Time
	state    entryState
	done     chan Result
}

// Handle is the waiter's reference to a registered pending request.
type Handle struct {
	CorrelationID string
	Deadline      time.Time

	entry *entry
}

// Correlator maps correlation ids to pending reply slots with deadlines.
// All state transitions happen under one mutex.
type Correlator struct {
	mu            sync.Mutex
	entries       map[string]*entry
	sweepInterval time.Duration
	logger        logging.Logger
}

// New creates a correlator. sweepInterval bounds timeout detection delay
// for entries whose waiter never arrives; sub-second to ~1s is expected.
func New(sweepInterval time.Duration) *Correlator {
	if sweepInterval <= 0 {
		sweepInterval = time.Second
	}
	return &Correlator{
		entries:       make(map[string]*entry),
		sweepInterval: sweepInterval,
		logger:        logging.GetGlobalLogger(),
	}
}

// Start runs the periodic deadline sweep until ctx is cancelled. Await
// already enforces deadlines for its own entry; the sweep guarantees
// liveness for entries that were registered but never awaited.
func (c *Correlator) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.sweep(time.Now())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Register creates a Pending entry with deadline now+timeout. The id must
// not already be tracked.
func (c *Correlator) Register(correlationID string, timeout time.Duration) (*Handle, error) {
	if timeout <= 0 {
		return nil, utils.NewValidationError("correlation timeout must be positive")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[correlationID]; exists {
		return nil, utils.NewDuplicateCorrelationError(correlationID)
	}

	e := &entry{
		id:       correlationID,
		deadline: time.Now().Add(timeout),
		state:    statePending,
		done:     make(chan Result, 1),
	}
	c.entries[correlationID] = e

	return &Handle{
		CorrelationID: correlationID,
		Deadline:      e.deadline,
		entry:         e,
	}, nil
}

// Resolve transitions a Pending entry to Resolved and wakes its waiter.
// An unknown or already-terminal id is the expected outcome of a late or
// duplicate reply: it is logged and dropped, never reopening the entry.
func (c *Correlator) Resolve(correlationID string, reply *models.ScrapeReply) {
	c.mu.Lock()
	e, ok := c.entries[correlationID]
	if !ok || e.state != statePending {
		c.mu.Unlock()
		c.logger.Info("Discarding reply for unknown or settled correlation id", map[string]interface{}{
			"correlation_id": correlationID,
		})
		return
	}

	e.state = stateResolved
	delete(c.entries, correlationID)
	c.mu.Unlock()

	e.done <- Result{Outcome: OutcomeResolved, Reply: reply}
}

// Await suspends the caller until the entry is resolved, its deadline
// elapses, or ctx is cancelled. It works even if no reply is ever sent.
func (c *Correlator) Await(ctx context.Context, h *Handle) Result {
	timer := time.NewTimer(time.Until(h.Deadline))
	defer timer.Stop()

	select {
	case res := <-h.entry.done:
		return res
	case <-timer.C:
		return c.finalize(h.entry, stateTimedOut, OutcomeTimedOut)
	case <-ctx.Done():
		return c.finalize(h.entry, stateCancelled, OutcomeCancelled)
	}
}

// Cancel aborts a pending request and unblocks its waiter with a
// cancellation outcome. No-op if the entry already settled.
func (c *Correlator) Cancel(h *Handle) {
	c.mu.Lock()
	if h.entry.state != statePending {
		c.mu.Unlock()
		return
	}
	h.entry.state = stateCancelled
	delete(c.entries, h.entry.id)
	c.mu.Unlock()

	h.entry.done <- Result{Outcome: OutcomeCancelled}
}

// Pending returns the number of tracked pending requests.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// finalize performs a terminal transition for the waiter's own entry. If a
// concurrent Resolve/Cancel won the race the result is already buffered on
// done and is returned instead.
func (c *Correlator) finalize(e *entry, terminal entryState, outcome Outcome) Result {
	c.mu.Lock()
	if e.state != statePending {
		c.mu.Unlock()
		return <-e.done
	}
	e.state = terminal
	delete(c.entries, e.id)
	c.mu.Unlock()

	return Result{Outcome: outcome}
}

// sweep times out pending entries whose deadline has passed.
func (c *Correlator) sweep(now time.Time) {
	c.mu.Lock()
	var expired []*entry
	for id, e := range c.entries {
		if e.state == statePending && now.After(e.deadline) {
			e.state = stateTimedOut
			delete(c.entries, id)
			expired = append(expired, e)
		}
	}
	c.mu.Unlock()

	for _, e := range expired {
		e.done <- Result{Outcome: OutcomeTimedOut}
		c.logger.Warn("Pending request timed out", map[string]interface{}{
			"correlation_id": e.id,
		})
	}
}
