// Package scrape implements the request/reply edge of the scrape exchange:
// building and publishing requests, and consuming replies for the lifetime
// of the process.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"job-agent-core/internal/broker"
	"job-agent-core/internal/config"
	"job-agent-core/internal/correlator"
	"job-agent-core/internal/logging"
	"job-agent-core/pkg/models"
	"job-agent-core/pkg/utils"
)

// Publisher builds scrape requests, registers them with the correlator and
// sends them over the broker.
type Publisher struct {
	cfg        *config.Config
	channel    broker.Channel
	correlator *correlator.Correlator
	logger     logging.Logger
}

// NewPublisher creates a new publisher instance.
func NewPublisher(cfg *config.Config, channel broker.Channel, corr *correlator.Correlator) *Publisher {
	return &Publisher{
		cfg:        cfg,
		channel:    channel,
		correlator: corr,
		logger:     logging.GetGlobalLogger(),
	}
}

// ReplyDestination returns the reply address for a correlation id.
func (p *Publisher) ReplyDestination(correlationID string) string {
	return p.cfg.Broker.ReplyPrefix + "." + correlationID
}

// Publish validates the criteria, registers a pending entry and sends the
// request. On a transport failure the pending entry is released and a
// TransportError is returned; the run must not retry silently.
func (p *Publisher) Publish(ctx context.Context, criteria models.SearchCriteria) (*correlator.Handle, error) {
	if criteria.TimeoutSeconds <= 0 {
		return nil, utils.NewValidationError("timeout_seconds must be positive")
	}
	// The HTTP layer sizes its handler timeout from this ceiling; a run
	// allowed to await longer would be cut off by the server instead of
	// reaching its own deadline.
	if limit := p.cfg.Pipeline.MaxTimeout; criteria.Timeout() > limit {
		return nil, utils.NewValidationError(fmt.Sprintf("timeout_seconds must not exceed %d", int(limit/time.Second)))
	}
	if criteria.MinSalary < 0 {
		return nil, utils.NewValidationError("min_salary must not be negative")
	}

	correlationID := utils.GenerateCorrelationID()
	replyTo := p.ReplyDestination(correlationID)

	request := models.ScrapeRequest{
		CorrelationID: correlationID,
		ReplyTo:       replyTo,
		Salary:        criteria.MinSalary,
		Employment:    criteria.EmploymentType,
		Timeout:       criteria.TimeoutSeconds,
		CreatedAt:     time.Now().UTC(),
	}
	if criteria.PostedAfter != nil {
		request.PostedAfter = criteria.PostedAfter.UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, utils.NewInternalServerError("failed to serialize scrape request")
	}

	handle, err := p.correlator.Register(correlationID, criteria.Timeout())
	if err != nil {
		return nil, err
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.cfg.Broker.PublishTimeout)
	defer cancel()

	if err := p.channel.Publish(publishCtx, p.cfg.Broker.RequestDestination, body); err != nil {
		// Release the slot so the id does not linger until the sweep.
		p.correlator.Cancel(handle)
		p.logger.Error("Failed to publish scrape request", map[string]interface{}{
			"correlation_id": correlationID,
			"error":          err.Error(),
		})
		return nil, utils.NewTransportError(err.Error())
	}

	p.logger.Info("Scrape request published", map[string]interface{}{
		"correlation_id": correlationID,
		"reply_to":       replyTo,
		"min_salary":     criteria.MinSalary,
		"employment":     criteria.EmploymentType,
		"timeout_s":      criteria.TimeoutSeconds,
	})

	return handle, nil
}
