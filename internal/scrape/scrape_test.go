package scrape

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-agent-core/internal/broker"
	"job-agent-core/internal/config"
	"job-agent-core/internal/correlator"
	"job-agent-core/pkg/models"
	"job-agent-core/pkg/utils"
)

// fakeChannel is an in-memory broker.Channel for tests.
type fakeChannel struct {
	mu          sync.Mutex
	published   []broker.Message
	inbound     chan broker.Message
	failPublish bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{inbound: make(chan broker.Message, 16)}
}

func (f *fakeChannel) Publish(ctx context.Context, destination string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPublish {
		return assert.AnError
	}
	f.published = append(f.published, broker.Message{Destination: destination, Body: body})
	return nil
}

func (f *fakeChannel) Subscribe(ctx context.Context, pattern string) (<-chan broker.Message, error) {
	return f.inbound, nil
}

func (f *fakeChannel) Close() error { return nil }

func (f *fakeChannel) publishedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func testConfig() *config.Config {
	cfg, _ := config.LoadConfig("")
	return cfg
}

func TestPublish_RejectsNonPositiveTimeoutBeforeSending(t *testing.T) {
	cfg := testConfig()
	ch := newFakeChannel()
	corr := correlator.New(time.Second)
	pub := NewPublisher(cfg, ch, corr)

	_, err := pub.Publish(context.Background(), models.SearchCriteria{
		MinSalary:      4000,
		EmploymentType: "remote",
		TimeoutSeconds: 0,
	})

	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
	assert.Equal(t, 0, ch.publishedCount(), "no message must be sent on validation failure")
	assert.Equal(t, 0, corr.Pending())
}

func TestPublish_RejectsTimeoutAboveMaximum(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.MaxTimeout = 300 * time.Second
	ch := newFakeChannel()
	corr := correlator.New(time.Second)
	pub := NewPublisher(cfg, ch, corr)

	_, err := pub.Publish(context.Background(), models.SearchCriteria{
		MinSalary:      4000,
		EmploymentType: "remote",
		TimeoutSeconds: 301,
	})

	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
	assert.Equal(t, 0, ch.publishedCount(), "no message must be sent on validation failure")
	assert.Equal(t, 0, corr.Pending())
}

func TestPublish_AcceptsTimeoutAtMaximum(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.MaxTimeout = 300 * time.Second
	ch := newFakeChannel()
	corr := correlator.New(time.Second)
	pub := NewPublisher(cfg, ch, corr)

	handle, err := pub.Publish(context.Background(), models.SearchCriteria{
		MinSalary:      4000,
		EmploymentType: "remote",
		TimeoutSeconds: 300,
	})

	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, 1, corr.Pending())
}

func TestPublish_SendsWirePayloadAndRegistersPendingEntry(t *testing.T) {
	cfg := testConfig()
	ch := newFakeChannel()
	corr := correlator.New(time.Second)
	pub := NewPublisher(cfg, ch, corr)

	postedAfter := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	handle, err := pub.Publish(context.Background(), models.SearchCriteria{
		MinSalary:      4000,
		EmploymentType: "remote",
		PostedAfter:    &postedAfter,
		TimeoutSeconds: 30,
	})
	require.NoError(t, err)
	require.NotNil(t, handle)

	require.Equal(t, 1, ch.publishedCount())
	msg := ch.published[0]
	assert.Equal(t, "job.scrape.request", msg.Destination)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Body, &wire))
	assert.Equal(t, float64(4000), wire["salary"])
	assert.Equal(t, "remote", wire["employment"])
	assert.Equal(t, "2026-08-20T12:00:00Z", wire["posted_after"])
	assert.Equal(t, float64(30), wire["timeout"])
	assert.Equal(t, handle.CorrelationID, wire["correlation_id"])
	assert.Equal(t, "job.scrape.reply."+handle.CorrelationID, wire["reply_to"])

	assert.Equal(t, 1, corr.Pending())
}

func TestPublish_TransportFailureReleasesPendingEntry(t *testing.T) {
	cfg := testConfig()
	ch := newFakeChannel()
	ch.failPublish = true
	corr := correlator.New(time.Second)
	pub := NewPublisher(cfg, ch, corr)

	_, err := pub.Publish(context.Background(), models.SearchCriteria{
		MinSalary:      1000,
		EmploymentType: "remote",
		TimeoutSeconds: 30,
	})

	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindTransport))
	assert.Equal(t, 0, corr.Pending())
}

func TestConsumer_ResolvesMatchingPendingRequest(t *testing.T) {
	cfg := testConfig()
	ch := newFakeChannel()
	corr := correlator.New(time.Second)
	pub := NewPublisher(cfg, ch, corr)
	consumer := NewConsumer(cfg, ch, corr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Start(ctx))

	handle, err := pub.Publish(ctx, models.SearchCriteria{
		MinSalary:      4000,
		EmploymentType: "remote",
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)

	reply := models.ScrapeReply{
		CorrelationID: handle.CorrelationID,
		Jobs:          []models.JobListing{{Title: "Go Engineer", Salary: 5000}},
		Success:       true,
		JobsCount:     1,
	}
	body, err := json.Marshal(reply)
	require.NoError(t, err)
	ch.inbound <- broker.Message{Destination: pub.ReplyDestination(handle.CorrelationID), Body: body}

	res := corr.Await(ctx, handle)
	require.Equal(t, correlator.OutcomeResolved, res.Outcome)
	require.NotNil(t, res.Reply)
	assert.Equal(t, "Go Engineer", res.Reply.Jobs[0].Title)
}

func TestConsumer_MalformedMessagesNeverAffectOtherPendingRequests(t *testing.T) {
	cfg := testConfig()
	ch := newFakeChannel()
	corr := correlator.New(time.Second)
	pub := NewPublisher(cfg, ch, corr)
	consumer := NewConsumer(cfg, ch, corr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Start(ctx))

	handle, err := pub.Publish(ctx, models.SearchCriteria{
		MinSalary:      4000,
		EmploymentType: "remote",
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)

	// Garbage, then a contract violation, then the real reply. The loop
	// must survive the first two and deliver the third.
	ch.inbound <- broker.Message{Destination: "job.scrape.reply.x", Body: []byte("not json")}

	errStr := ""
	mismatch := models.ScrapeReply{
		CorrelationID: handle.CorrelationID,
		Jobs:          []models.JobListing{{Title: "A"}, {Title: "B"}},
		Success:       true,
		Error:         &errStr,
		JobsCount:     5,
	}
	body, _ := json.Marshal(mismatch)
	ch.inbound <- broker.Message{Destination: pub.ReplyDestination(handle.CorrelationID), Body: body}

	valid := models.ScrapeReply{
		CorrelationID: handle.CorrelationID,
		Jobs:          []models.JobListing{{Title: "Real"}},
		Success:       true,
		JobsCount:     1,
	}
	body, _ = json.Marshal(valid)
	ch.inbound <- broker.Message{Destination: pub.ReplyDestination(handle.CorrelationID), Body: body}

	res := corr.Await(ctx, handle)
	require.Equal(t, correlator.OutcomeResolved, res.Outcome)
	assert.Equal(t, "Real", res.Reply.Jobs[0].Title)
}

func TestScrapeReply_ValidateInvariants(t *testing.T) {
	errMsg := "scraper exploded"

	cases := []struct {
		name    string
		reply   models.ScrapeReply
		wantErr bool
	}{
		{
			name:    "success with matching count",
			reply:   models.ScrapeReply{CorrelationID: "c", Jobs: []models.JobListing{{}}, Success: true, JobsCount: 1},
			wantErr: false,
		},
		{
			name:    "success with mismatched count",
			reply:   models.ScrapeReply{CorrelationID: "c", Jobs: []models.JobListing{{}}, Success: true, JobsCount: 2},
			wantErr: true,
		},
		{
			name:    "success carrying an error",
			reply:   models.ScrapeReply{CorrelationID: "c", Success: true, Error: &errMsg, JobsCount: 0},
			wantErr: true,
		},
		{
			name:    "failure with error and no jobs",
			reply:   models.ScrapeReply{CorrelationID: "c", Success: false, Error: &errMsg},
			wantErr: false,
		},
		{
			name:    "failure without error",
			reply:   models.ScrapeReply{CorrelationID: "c", Success: false},
			wantErr: true,
		},
		{
			name:    "failure carrying jobs",
			reply:   models.ScrapeReply{CorrelationID: "c", Success: false, Error: &errMsg, Jobs: []models.JobListing{{}}},
			wantErr: true,
		},
		{
			name:    "missing correlation id",
			reply:   models.ScrapeReply{Success: true, JobsCount: 0},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.reply.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
