package sharedmemory

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestConnectRejectsEmptyURL(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	if !errors.Is(err, ErrEmptyConnectionURL) {
		t.Fatalf("expected ErrEmptyConnectionURL, got %v", err)
	}
}

func TestConnectFailsFastOnUnreachableServer(t *testing.T) {
	_, err := Connect(context.Background(), Config{
		ConnectionURL:  "redis://127.0.0.1:1/0",
		RetryAttempts:  1,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: 200 * time.Millisecond,
	})
	if !errors.Is(err, ErrRedisNotReady) {
		t.Fatalf("expected ErrRedisNotReady, got %v", err)
	}
}

// TestRedisBackendGetSet exercises a live Redis instance; set
// SHAREDMEMORY_REDIS_URL to run it (e.g. redis://localhost:6379/0).
func TestRedisBackendGetSet(t *testing.T) {
	url := os.Getenv("SHAREDMEMORY_REDIS_URL")
	if url == "" {
		t.Skip("SHAREDMEMORY_REDIS_URL not set")
	}

	backend, err := Connect(context.Background(), Config{ConnectionURL: url})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	if _, ok, err := backend.Get(ctx, "kairei:test:missing"); err != nil || ok {
		t.Fatalf("expected missing key to report ok=false, got ok=%v err=%v", ok, err)
	}

	if err := backend.Set(ctx, "kairei:test:key", "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok, err := backend.Get(ctx, "kairei:test:key")
	if err != nil || !ok || val != "value" {
		t.Fatalf("Get after Set = (%q, %v, %v), want (\"value\", true, nil)", val, ok, err)
	}
}
