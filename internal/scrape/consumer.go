package scrape

import (
	"context"
	"encoding/json"
	"fmt"

	"job-agent-core/internal/broker"
	"job-agent-core/internal/config"
	"job-agent-core/internal/correlator"
	"job-agent-core/internal/logging"
	"job-agent-core/pkg/models"
	"job-agent-core/pkg/utils"
)

// Consumer runs for the lifetime of the process, independent of any run.
// Each inbound reply is handled in isolation: a malformed or misrouted
// message is logged and discarded without affecting other pending requests.
type Consumer struct {
	cfg        *config.Config
	channel    broker.Channel
	correlator *correlator.Correlator
	logger     logging.Logger
}

// NewConsumer creates a new reply consumer.
func NewConsumer(cfg *config.Config, channel broker.Channel, corr *correlator.Correlator) *Consumer {
	return &Consumer{
		cfg:        cfg,
		channel:    channel,
		correlator: corr,
		logger:     logging.GetGlobalLogger(),
	}
}

// Start subscribes to the reply pattern and consumes until ctx is
// cancelled. It returns once the subscription is established.
func (c *Consumer) Start(ctx context.Context) error {
	pattern := c.cfg.Broker.ReplyPrefix + ".*"

	messages, err := c.channel.Subscribe(ctx, pattern)
	if err != nil {
		return fmt.Errorf("failed to subscribe to reply destinations: %w", err)
	}

	c.logger.Info("Scrape reply consumer started", map[string]interface{}{
		"pattern": pattern,
	})

	go func() {
		for msg := range messages {
			c.handleMessage(msg)
		}
		c.logger.Info("Scrape reply consumer stopped", map[string]interface{}{})
	}()

	return nil
}

// handleMessage parses, validates and resolves one reply. It never panics
// out of the consume loop.
func (c *Consumer) handleMessage(msg broker.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic while handling scrape reply", map[string]interface{}{
				"destination": msg.Destination,
				"panic":       fmt.Sprintf("%v", r),
			})
		}
	}()

	var reply models.ScrapeReply
	if err := json.Unmarshal(msg.Body, &reply); err != nil {
		c.logger.Warn("Discarding malformed scrape reply", map[string]interface{}{
			"destination": msg.Destination,
			"error":       utils.NewMalformedReplyError(err.Error()).Error(),
		})
		return
	}

	if err := reply.Validate(); err != nil {
		c.logger.Warn("Discarding scrape reply that violates the wire contract", map[string]interface{}{
			"destination":    msg.Destination,
			"correlation_id": reply.CorrelationID,
			"error":          utils.NewMalformedReplyError(err.Error()).Error(),
		})
		return
	}

	c.logger.Debug("Scrape reply received", map[string]interface{}{
		"correlation_id": reply.CorrelationID,
		"success":        reply.Success,
		"jobs_count":     reply.JobsCount,
	})

	c.correlator.Resolve(reply.CorrelationID, &reply)
}
