package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisCVStore keeps the sanitized CV per user under cv:user:<id>.
type RedisCVStore struct {
	client *redis.Client
}

// NewRedisCVStore creates and verifies a Redis-backed CV store.
func NewRedisCVStore(ctx context.Context, redisURL string) (*RedisCVStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisCVStore{client: client}, nil
}

// NewRedisCVStoreFromClient wraps an existing client, used in tests.
func NewRedisCVStoreFromClient(client *redis.Client) *RedisCVStore {
	return &RedisCVStore{client: client}
}

func cvKey(userID string) string {
	return "cv:user:" + userID
}

// Save stores the sanitized CV for a user with no expiry, replacing any
// previous one.
func (s *RedisCVStore) Save(ctx context.Context, userID, sanitizedCV string) error {
	if err := s.client.Set(ctx, cvKey(userID), sanitizedCV, 0).Err(); err != nil {
		return fmt.Errorf("save cv for user %s: %w", userID, err)
	}
	return nil
}

// Get returns the sanitized CV for a user, or ErrNotFound.
func (s *RedisCVStore) Get(ctx context.Context, userID string) (string, error) {
	val, err := s.client.Get(ctx, cvKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get cv for user %s: %w", userID, err)
	}
	return val, nil
}

// Close releases the underlying client.
func (s *RedisCVStore) Close() error {
	return s.client.Close()
}
