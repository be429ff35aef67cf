// Package pipeline drives the search-to-persist workflow: load the sanitized
// CV, dispatch a scrape request, await the correlated reply, hard-filter the
// listings, evaluate relevance per job and persist the matches.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"job-agent-core/internal/config"
	"job-agent-core/internal/correlator"
	"job-agent-core/internal/filter"
	"job-agent-core/internal/logging"
	"job-agent-core/internal/logging/types"
	"job-agent-core/internal/store"
	"job-agent-core/pkg/models"
	"job-agent-core/pkg/utils"
)

// ScrapePublisher dispatches a scrape request and registers its correlation
// entry, returning the handle to await.
type ScrapePublisher interface {
	Publish(ctx context.Context, criteria models.SearchCriteria) (*correlator.Handle, error)
}

// Evaluator is the AI collaborator. Both calls may be slow or remote and
// each is individually catchable.
type Evaluator interface {
	Sanitize(ctx context.Context, rawCV string) (string, error)
	EvaluateRelevance(ctx context.Context, job models.JobListing, sanitizedCV string) (*models.RelevanceResult, error)
}

// Enricher accepts fire-and-forget skill extraction tasks for saved jobs.
type Enricher interface {
	SubmitEnrichSkillsTask(ctx context.Context, processID string, job models.StoredJob) error
}

// Orchestrator owns the per-user run table and executes pipeline runs. At
// most one active run per user; a second search command while one is active
// is rejected outright, not queued.
type Orchestrator struct {
	cfg        *config.Config
	publisher  ScrapePublisher
	correlator *correlator.Correlator
	filter     *filter.Service
	evaluator  Evaluator
	jobs       store.JobStore
	cvs        store.CVStore
	enricher   Enricher
	logger     types.Logger

	runs *runTable
	now  func() time.Time
}

// NewOrchestrator wires the pipeline collaborators. enricher may be nil when
// enrichment is disabled.
func NewOrchestrator(
	cfg *config.Config,
	publisher ScrapePublisher,
	corr *correlator.Correlator,
	filterSvc *filter.Service,
	eval Evaluator,
	jobs store.JobStore,
	cvs store.CVStore,
	enricher Enricher,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		publisher:  publisher,
		correlator: corr,
		filter:     filterSvc,
		evaluator:  eval,
		jobs:       jobs,
		cvs:        cvs,
		enricher:   enricher,
		logger:     logging.GetGlobalLogger(),
		runs:       newRunTable(),
		now:        time.Now,
	}
}

// UploadCV sanitizes raw CV content and stores the resulting profile for
// the user, replacing any previous one.
func (o *Orchestrator) UploadCV(ctx context.Context, userID, content string) error {
	if userID == "" {
		return utils.NewValidationError("user id is required")
	}
	if content == "" {
		return utils.NewValidationError("cv content is empty")
	}

	sanitized, err := o.evaluator.Sanitize(ctx, content)
	if err != nil {
		return utils.NewEvaluationError(fmt.Sprintf("cv sanitization failed: %v", err))
	}

	if err := o.cvs.Save(ctx, userID, sanitized); err != nil {
		return utils.NewPersistenceError(fmt.Sprintf("failed to store cv: %v", err))
	}

	o.logger.Info("CV uploaded and sanitized", map[string]interface{}{
		"user_id":        userID,
		"profile_length": len(sanitized),
	})
	return nil
}

// RunCompletePipeline executes one full run for the user. It blocks until
// the run reaches a terminal state and always returns a summary carrying
// counts plus the isolated per-job errors; infrastructure-level failures
// additionally surface as the returned error.
func (o *Orchestrator) RunCompletePipeline(ctx context.Context, userID string, criteria models.SearchCriteria) (*models.PipelineSummary, error) {
	if userID == "" {
		return nil, utils.NewValidationError("user id is required")
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := newRun(userID, cancel)

	if err := o.runs.claim(userID, run, o.cfg.Pipeline.MaxActiveRuns); err != nil {
		cancel()
		return nil, err
	}
	defer cancel()
	defer o.scheduleExpiry(userID, run)

	o.logger.Info("Pipeline run started", map[string]interface{}{
		"user_id":         userID,
		"min_salary":      criteria.MinSalary,
		"employment_type": criteria.EmploymentType,
	})

	summary, err := o.execute(runCtx, run, userID, criteria)
	if err != nil {
		o.logger.Warn("Pipeline run ended with error", map[string]interface{}{
			"user_id": userID,
			"state":   string(run.State()),
			"error":   err.Error(),
		})
		return summary, err
	}

	o.logger.Info("Pipeline run completed", map[string]interface{}{
		"user_id":         userID,
		"total_found":     summary.TotalFound,
		"total_filtered":  summary.TotalFiltered,
		"total_relevant":  summary.TotalRelevant,
		"total_persisted": summary.TotalPersisted,
		"error_count":     len(summary.Errors),
		"duration":        utils.FormatDuration(time.Since(run.StartedAt)),
	})
	return summary, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, userID string, criteria models.SearchCriteria) (*models.PipelineSummary, error) {
	// Idle -> CVLoaded: a sanitized CV must already exist.
	sanitizedCV, err := o.cvs.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return o.fail(run, models.RunStateFailed, utils.NewNoCVError(userID))
		}
		return o.fail(run, models.RunStateFailed, utils.NewPersistenceError(fmt.Sprintf("cv store unreachable: %v", err)))
	}
	if err := run.transition(models.RunStateCVLoaded); err != nil {
		return o.aborted(run)
	}

	if criteria.TimeoutSeconds == 0 {
		criteria.TimeoutSeconds = int(o.cfg.Pipeline.DefaultTimeout / time.Second)
	}

	// Lookback default bounds re-scraping freshness without re-fetching
	// postings the store already has.
	if criteria.PostedAfter == nil {
		latest, err := o.jobs.GetLatestUpdatedAt(ctx)
		if err != nil {
			return o.fail(run, models.RunStateFailed, utils.NewPersistenceError(fmt.Sprintf("job store unreachable: %v", err)))
		}
		cutoff := o.now().Add(-time.Duration(o.cfg.Pipeline.LookbackCapDays) * 24 * time.Hour)
		if latest != nil {
			cutoff = utils.MaxTime(*latest, cutoff)
		}
		criteria.PostedAfter = &cutoff
	}

	// CVLoaded -> ScrapeRequested
	handle, err := o.publisher.Publish(ctx, criteria)
	if err != nil {
		return o.fail(run, models.RunStateFailed, err)
	}
	if err := run.transition(models.RunStateScrapeRequested); err != nil {
		return o.aborted(run)
	}

	result := o.correlator.Await(ctx, handle)
	switch result.Outcome {
	case correlator.OutcomeTimedOut:
		run.updateSummary(func(s *models.PipelineSummary) {
			s.Errors = append(s.Errors, "timeout: no response from scraper")
		})
		return o.fail(run, models.RunStateTimedOut, utils.NewTimeoutError(fmt.Sprintf("no reply within %ds", criteria.TimeoutSeconds)))
	case correlator.OutcomeCancelled:
		return o.fail(run, models.RunStateCancelled, utils.NewCancelledError("run cancelled while awaiting reply"))
	}

	reply := result.Reply
	if !reply.Success {
		run.updateSummary(func(s *models.PipelineSummary) {
			s.Errors = append(s.Errors, "scraper failure: "+reply.ErrorString())
		})
		return o.fail(run, models.RunStateFailed, utils.NewInternalServerError("scraper reported failure: "+reply.ErrorString()))
	}
	if err := run.transition(models.RunStateScrapeCompleted); err != nil {
		return o.aborted(run)
	}
	run.updateSummary(func(s *models.PipelineSummary) {
		s.TotalFound = len(reply.Jobs)
	})

	// ScrapeCompleted -> Filtered
	filtered := o.filter.Apply(criteria, reply.Jobs)
	if err := run.transition(models.RunStateFiltered); err != nil {
		return o.aborted(run)
	}
	run.updateSummary(func(s *models.PipelineSummary) {
		s.TotalFiltered = len(filtered)
	})

	// Filtered -> Evaluated: per-job failure isolation is mandatory; one bad
	// job never aborts the run.
	results := make([]models.JobProcessingResult, len(filtered))
	for i, job := range filtered {
		results[i].JobID = job.SourceID

		if ctx.Err() != nil {
			return o.fail(run, models.RunStateCancelled, utils.NewCancelledError("run cancelled during evaluation"))
		}

		res, err := o.evaluator.EvaluateRelevance(ctx, job, sanitizedCV)
		if err != nil {
			o.logger.Warn("Relevance evaluation failed for job", map[string]interface{}{
				"user_id":   userID,
				"job_title": job.Title,
				"error":     err.Error(),
			})
			results[i].Relevant = false
			results[i].Reason = "evaluation error"
			run.updateSummary(func(s *models.PipelineSummary) {
				s.Errors = append(s.Errors, fmt.Sprintf("evaluation failed for %q (%s): %v", job.Title, job.URL, err))
			})
			continue
		}
		results[i].Relevant = res.Relevant
		results[i].Reason = res.Reason
	}
	if err := run.transition(models.RunStateEvaluated); err != nil {
		return o.aborted(run)
	}

	// Evaluated -> Persisted: duplicates count as already captured.
	for i, job := range filtered {
		if !results[i].Relevant {
			continue
		}
		run.updateSummary(func(s *models.PipelineSummary) {
			s.TotalRelevant++
		})

		if ctx.Err() != nil {
			return o.fail(run, models.RunStateCancelled, utils.NewCancelledError("run cancelled during persistence"))
		}

		saved, err := o.jobs.Save(ctx, job, results[i].Reason)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateJob) {
				results[i].Persisted = true
				run.updateSummary(func(s *models.PipelineSummary) {
					s.TotalPersisted++
				})
				continue
			}
			run.updateSummary(func(s *models.PipelineSummary) {
				s.Errors = append(s.Errors, fmt.Sprintf("persistence failed for %q (%s): %v", job.Title, job.URL, err))
			})
			continue
		}

		results[i].Persisted = true
		run.updateSummary(func(s *models.PipelineSummary) {
			s.TotalPersisted++
		})
		o.submitEnrichment(*saved)
	}
	run.updateSummary(func(s *models.PipelineSummary) {
		s.Jobs = results
	})
	if err := run.transition(models.RunStatePersisted); err != nil {
		return o.aborted(run)
	}

	summary := run.Summary()
	return &summary, nil
}

// submitEnrichment hands a saved job to the background skill extractor.
// Enrichment failure is contained entirely in the task; it never surfaces
// as a pipeline error.
func (o *Orchestrator) submitEnrichment(job models.StoredJob) {
	if o.enricher == nil || !o.cfg.Enrichment.Enabled {
		return
	}

	processID := utils.GenerateRequestID()
	if err := o.enricher.SubmitEnrichSkillsTask(context.Background(), processID, job); err != nil {
		o.logger.Warn("Failed to submit enrichment task", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
		return
	}

	o.logger.Debug("Enrichment task submitted", map[string]interface{}{
		"job_id":     job.ID,
		"process_id": processID,
	})
}

// fail moves the run to a terminal failure state and returns the summary
// alongside the run error.
func (o *Orchestrator) fail(run *Run, state models.RunState, runErr error) (*models.PipelineSummary, error) {
	if err := run.transition(state); err != nil {
		return o.aborted(run)
	}
	summary := run.Summary()
	return &summary, runErr
}

// aborted reports a run whose terminal transition lost a race against
// cancellation.
func (o *Orchestrator) aborted(run *Run) (*models.PipelineSummary, error) {
	summary := run.Summary()
	return &summary, utils.NewCancelledError("run cancelled")
}

// Cancel aborts the user's active run. The run goroutine observes the
// cancelled context at its next suspension point and finalizes the run.
func (o *Orchestrator) Cancel(userID string) error {
	run, ok := o.runs.get(userID)
	if !ok || run.State().IsTerminal() {
		return utils.NewValidationError(fmt.Sprintf("no active run for user %s", userID))
	}

	run.abort()
	o.logger.Info("Pipeline run cancellation requested", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

// GetStatus returns the state of the user's most recent run, or Idle when
// none is known.
func (o *Orchestrator) GetStatus(userID string) models.RunState {
	run, ok := o.runs.get(userID)
	if !ok {
		return models.RunStateIdle
	}
	return run.State()
}

// ActiveRuns returns the number of currently non-terminal runs.
func (o *Orchestrator) ActiveRuns() int {
	return o.runs.active()
}

// scheduleExpiry drops the finished run from the table after the configured
// retention so status queries keep working for a while after completion.
func (o *Orchestrator) scheduleExpiry(userID string, run *Run) {
	retain := o.cfg.Pipeline.RunStatusRetainT
	if retain <= 0 {
		return
	}
	time.AfterFunc(retain, func() {
		o.runs.remove(userID, run)
	})
}
