package sharedmemory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config configures a RedisBackend connection, shaped after
// dmitrymomot-foundation/integration/database/redis's Config
// (ConnectionURL + retry attempts/interval + connect timeout) — the
// fields that package's doc.go describes but whose implementation
// was not part of the retrieved pack.
type Config struct {
	ConnectionURL  string
	RetryAttempts  int
	RetryInterval  time.Duration
	ConnectTimeout time.Duration
}

var (
	ErrEmptyConnectionURL = errors.New("sharedmemory: empty redis connection URL")
	ErrRedisNotReady      = errors.New("sharedmemory: redis did not become ready within the given time period")
)

// RedisBackend is a Backend implementation over a single Redis key
// space, using plain GET/SET with no expiry (the shared-memory
// contract promises persistence, not a TTL cache).
type RedisBackend struct {
	client *redis.Client
}

// Connect dials Redis, retrying up to cfg.RetryAttempts times
// (cfg.RetryInterval apart) until a PING succeeds or the attempts are
// exhausted.
func Connect(ctx context.Context, cfg Config) (*RedisBackend, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("sharedmemory: parse redis connection string: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client := redis.NewClient(opts)

	var lastErr error
	for attempt := 0; attempt < cfg.RetryAttempts; attempt++ {
		if err := client.Ping(connectCtx).Err(); err == nil {
			return &RedisBackend{client: client}, nil
		} else {
			lastErr = err
		}

		select {
		case <-connectCtx.Done():
			client.Close()
			return nil, fmt.Errorf("%w: %v", ErrRedisNotReady, lastErr)
		case <-time.After(cfg.RetryInterval):
		}
	}

	client.Close()
	return nil, fmt.Errorf("%w: %v", ErrRedisNotReady, lastErr)
}

// Get implements Backend.
func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := b.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sharedmemory: get %q: %w", key, err)
	}
	return val, true, nil
}

// Set implements Backend.
func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := b.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("sharedmemory: set %q: %w", key, err)
	}
	return nil
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
