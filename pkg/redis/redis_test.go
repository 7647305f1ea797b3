package redis

import (
	"context"
	"testing"

	"github.com/dgozlan/clickguard/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()

	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), AdPlatformRateLimit)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != AdPlatformRateLimit.Limit {
		t.Errorf("Expected remaining = %d, got %d", AdPlatformRateLimit.Limit, remaining)
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}

	if err := cache.Set(context.Background(), "key", "value", TTLShort); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
}

func TestRunLock_Disabled(t *testing.T) {
	lock := NewRunLock(disabledClient(t), "test")

	// When Redis is disabled, the lock is always granted
	token, ok, err := lock.Acquire(context.Background(), "signal_run", 0)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !ok {
		t.Error("Expected lock to be granted when Redis disabled")
	}
	if token != "" {
		t.Errorf("Expected empty token when Redis disabled, got %q", token)
	}

	if err := lock.Release(context.Background(), "signal_run", token); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
}

func TestCacheKeys(t *testing.T) {
	if got := SignalSummaryKey("2026-08-29"); got != "signals:summary:2026-08-29" {
		t.Errorf("SignalSummaryKey = %q", got)
	}
	if got := RunStatusKey(); got != "pipeline:last_run" {
		t.Errorf("RunStatusKey = %q", got)
	}
}
