package broker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestChannel(t *testing.T) *RedisChannel {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	ch := NewRedisChannelFromClient(client)
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func TestRedisChannel_PublishSubscribeRoundTrip(t *testing.T) {
	ch := newTestChannel(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := ch.Subscribe(ctx, "job.scrape.reply.*")
	require.NoError(t, err)

	err = ch.Publish(ctx, "job.scrape.reply.abc-123", []byte(`{"success":true}`))
	require.NoError(t, err)

	select {
	case msg := <-messages:
		require.Equal(t, "job.scrape.reply.abc-123", msg.Destination)
		require.JSONEq(t, `{"success":true}`, string(msg.Body))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received within 2s")
	}
}

func TestRedisChannel_PatternDoesNotMatchOtherDestinations(t *testing.T) {
	ch := newTestChannel(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := ch.Subscribe(ctx, "job.scrape.reply.*")
	require.NoError(t, err)

	require.NoError(t, ch.Publish(ctx, "job.scrape.request", []byte(`{}`)))
	require.NoError(t, ch.Publish(ctx, "job.scrape.reply.xyz", []byte(`{"ok":1}`)))

	select {
	case msg := <-messages:
		require.Equal(t, "job.scrape.reply.xyz", msg.Destination)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received within 2s")
	}
}

func TestRedisChannel_SubscribeClosesOnContextCancel(t *testing.T) {
	ch := newTestChannel(t)

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := ch.Subscribe(ctx, "anything.*")
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-messages:
		require.False(t, open, "message channel should be closed after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("message channel not closed within 2s")
	}
}
