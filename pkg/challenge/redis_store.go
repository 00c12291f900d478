package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Each value is its own key with a TTL,
// so abandoned challenges expire without a sweeper.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis backed challenge store
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: "challenge:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(sessionID, key string) string {
	return s.prefix + sessionID + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key(sessionID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get challenge value: %w", err)
	}
	return value, true, nil
}

func (s *RedisStore) Put(ctx context.Context, sessionID, key, value string) error {
	if err := s.client.Set(ctx, s.key(sessionID, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to put challenge value: %w", err)
	}
	return nil
}

func (s *RedisStore) Has(ctx context.Context, sessionID, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(sessionID, key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check challenge value: %w", err)
	}
	return n > 0, nil
}

// Pull uses GETDEL so two concurrent pulls cannot both observe the value.
func (s *RedisStore) Pull(ctx context.Context, sessionID, key string) (string, bool, error) {
	value, err := s.client.GetDel(ctx, s.key(sessionID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to pull challenge value: %w", err)
	}
	return value, true, nil
}

func (s *RedisStore) Forget(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	fullKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		fullKeys = append(fullKeys, s.key(sessionID, key))
	}
	if err := s.client.Del(ctx, fullKeys...).Err(); err != nil {
		return fmt.Errorf("failed to forget challenge values: %w", err)
	}
	return nil
}
