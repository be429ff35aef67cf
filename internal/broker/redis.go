package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"job-agent-core/internal/config"
	"job-agent-core/internal/logging"
)

// RedisChannel implements Channel on top of Redis pub/sub. A single client
// is safe for concurrent publishes alongside a dedicated subscribe loop.
type RedisChannel struct {
	client *redis.Client
	logger logging.Logger
}

// NewRedisChannel creates a Redis-backed channel and verifies connectivity.
func NewRedisChannel(ctx context.Context, cfg *config.Config) (*RedisChannel, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	opts.DB = cfg.Redis.DB
	opts.DialTimeout = cfg.Redis.Timeout
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisChannel{
		client: client,
		logger: logging.GetGlobalLogger(),
	}, nil
}

// NewRedisChannelFromClient wraps an existing client. Used by tests.
func NewRedisChannelFromClient(client *redis.Client) *RedisChannel {
	return &RedisChannel{
		client: client,
		logger: logging.GetGlobalLogger(),
	}
}

// Publish sends body to the destination channel.
func (c *RedisChannel) Publish(ctx context.Context, destination string, body []byte) error {
	if err := c.client.Publish(ctx, destination, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", destination, err)
	}
	return nil
}

// Subscribe pattern-subscribes and pumps inbound messages into a channel
// until ctx is cancelled.
func (c *RedisChannel) Subscribe(ctx context.Context, pattern string) (<-chan Message, error) {
	pubsub := c.client.PSubscribe(ctx, pattern)

	// Force the subscription to be established before returning so a
	// publish issued right after Subscribe is not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
	}

	out := make(chan Message, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()

		inbound := pubsub.Channel()
		for {
			select {
			case msg, ok := <-inbound:
				if !ok {
					return
				}
				select {
				case out <- Message{Destination: msg.Channel, Body: []byte(msg.Payload)}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				c.logger.Debug("Broker subscription closed", map[string]interface{}{
					"pattern": pattern,
				})
				return
			}
		}
	}()

	return out, nil
}

// Close closes the Redis connection.
func (c *RedisChannel) Close() error {
	return c.client.Close()
}

// Ping tests broker connectivity.
func (c *RedisChannel) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
