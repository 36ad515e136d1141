package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "liveinterview"
	defaultHandleTTL   = 2 * time.Hour
)

// RedisStore keeps handles in Redis so several client processes (or a
// supervisor restarting the client) share one resumable session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets how long a saved handle lives. Zero disables expiry.
// Backend handles stop being resumable after a while, so a stale one is not worth keeping.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix. Default is "liveinterview".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed handle store.
//
// Example:
//
//	store := NewRedisStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithTTL(time.Hour),
//	)
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		ttl:    defaultHandleTTL,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Load implements HandleStore.
func (s *RedisStore) Load(ctx context.Context, key string) (*HandleRecord, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	data, err := s.client.Get(ctx, s.handleKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load handle from Redis: %w", err)
	}

	var rec HandleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal handle: %w", err)
	}
	return &rec, nil
}

// Save implements HandleStore.
func (s *RedisStore) Save(ctx context.Context, key string, rec *HandleRecord) error {
	if key == "" {
		return ErrInvalidKey
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal handle: %w", err)
	}
	if err := s.client.Set(ctx, s.handleKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save handle to Redis: %w", err)
	}
	return nil
}

// Clear implements HandleStore.
func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if err := s.client.Del(ctx, s.handleKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to clear handle in Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) handleKey(key string) string {
	return fmt.Sprintf("%s:handle:%s", s.prefix, key)
}
