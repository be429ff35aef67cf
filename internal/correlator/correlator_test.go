package correlator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-agent-core/pkg/models"
	"job-agent-core/pkg/utils"
)

func reply(id string, jobs int) *models.ScrapeReply {
	listings := make([]models.JobListing, jobs)
	return &models.ScrapeReply{
		CorrelationID: id,
		Jobs:          listings,
		Success:       true,
		JobsCount:     jobs,
	}
}

func TestRegisterAndResolve_DeliversReplyToWaiter(t *testing.T) {
	c := New(time.Second)

	h, err := c.Register("corr-1", 5*time.Second)
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Resolve("corr-1", reply("corr-1", 3))
	}()

	res := c.Await(context.Background(), h)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	require.NotNil(t, res.Reply)
	assert.Equal(t, 3, res.Reply.JobsCount)
	assert.Equal(t, 0, c.Pending())
}

func TestRegister_DuplicateCorrelationID(t *testing.T) {
	c := New(time.Second)

	_, err := c.Register("corr-1", time.Second)
	require.NoError(t, err)

	_, err = c.Register("corr-1", time.Second)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindDuplicateCorrelation))
}

func TestRegister_NonPositiveTimeout(t *testing.T) {
	c := New(time.Second)

	_, err := c.Register("corr-1", 0)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestAwait_TimesOutWhenNoReplyEverArrives(t *testing.T) {
	c := New(time.Second)

	h, err := c.Register("corr-1", 50*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	res := c.Await(context.Background(), h)

	assert.Equal(t, OutcomeTimedOut, res.Outcome)
	assert.Nil(t, res.Reply)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, c.Pending())
}

func TestResolve_AfterTimeoutIsNoOp(t *testing.T) {
	c := New(time.Second)

	h, err := c.Register("corr-1", 20*time.Millisecond)
	require.NoError(t, err)

	res := c.Await(context.Background(), h)
	require.Equal(t, OutcomeTimedOut, res.Outcome)

	// A late reply must be discarded, never reopening the entry.
	c.Resolve("corr-1", reply("corr-1", 1))
	assert.Equal(t, 0, c.Pending())
}

func TestResolve_SecondResolveIsNoOp(t *testing.T) {
	c := New(time.Second)

	h, err := c.Register("corr-1", 5*time.Second)
	require.NoError(t, err)

	c.Resolve("corr-1", reply("corr-1", 2))
	c.Resolve("corr-1", reply("corr-1", 9))

	res := c.Await(context.Background(), h)
	require.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, 2, res.Reply.JobsCount, "first resolution wins")
}

func TestDistinctCorrelationIDs_AreIndependent(t *testing.T) {
	c := New(time.Second)

	h1, err := c.Register("corr-1", 5*time.Second)
	require.NoError(t, err)
	h2, err := c.Register("corr-2", 5*time.Second)
	require.NoError(t, err)

	c.Resolve("corr-2", reply("corr-2", 7))

	done := make(chan Result, 1)
	go func() { done <- c.Await(context.Background(), h2) }()

	select {
	case res := <-done:
		assert.Equal(t, OutcomeResolved, res.Outcome)
		assert.Equal(t, 7, res.Reply.JobsCount)
	case <-time.After(time.Second):
		t.Fatal("await for corr-2 did not return")
	}

	// corr-1 is still pending and unaffected.
	assert.Equal(t, 1, c.Pending())
	c.Resolve("corr-1", reply("corr-1", 1))
	res := c.Await(context.Background(), h1)
	assert.Equal(t, OutcomeResolved, res.Outcome)
}

func TestCancel_UnblocksWaiter(t *testing.T) {
	c := New(time.Second)

	h, err := c.Register("corr-1", 5*time.Second)
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Cancel(h)
	}()

	res := c.Await(context.Background(), h)
	assert.Equal(t, OutcomeCancelled, res.Outcome)
	assert.Equal(t, 0, c.Pending())
}

func TestAwait_ContextCancellation(t *testing.T) {
	c := New(time.Second)

	h, err := c.Register("corr-1", 5*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	res := c.Await(ctx, h)
	assert.Equal(t, OutcomeCancelled, res.Outcome)
	assert.Equal(t, 0, c.Pending())
}

func TestSweep_TimesOutEntriesWithoutWaiters(t *testing.T) {
	c := New(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	_, err := c.Register("corr-1", 20*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.Pending() == 0
	}, time.Second, 10*time.Millisecond, "sweep should remove the expired entry")
}

func TestConcurrentResolveAndTimeout_SettleExactlyOnce(t *testing.T) {
	c := New(time.Second)

	const n = 50
	var wg sync.WaitGroup
	outcomes := make([]Result, n)

	for i := 0; i < n; i++ {
		id := "corr-" + string(rune('a'+i%26)) + "-" + time.Now().Format("150405.000000000") + "-" + string(rune('0'+i/26))
		h, err := c.Register(id, 15*time.Millisecond)
		require.NoError(t, err)

		wg.Add(2)
		go func(i int, h *Handle) {
			defer wg.Done()
			outcomes[i] = c.Await(context.Background(), h)
		}(i, h)
		go func(id string) {
			defer wg.Done()
			// Race the deadline on purpose.
			time.Sleep(15 * time.Millisecond)
			c.Resolve(id, reply(id, 1))
		}(id)
	}

	wg.Wait()

	for i, res := range outcomes {
		assert.Contains(t, []Outcome{OutcomeResolved, OutcomeTimedOut}, res.Outcome, "entry %d", i)
	}
	assert.Equal(t, 0, c.Pending())
}
