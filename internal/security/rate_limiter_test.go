package security

import (
	"testing"
	"time"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/config"
)

func limitsConfig(enabled bool, rps float64, burst int, ttl time.Duration) config.LimitsConfig {
	var cfg config.LimitsConfig
	cfg.RateLimit.Enabled = enabled
	cfg.RateLimit.RequestsPerSecond = rps
	cfg.RateLimit.Burst = burst
	cfg.RateLimit.ClientTTL = ttl
	return cfg
}

func TestRateLimiterAllow(t *testing.T) {
	t.Run("AllowsWithinBurst", func(t *testing.T) {
		rl := NewRateLimiter(limitsConfig(true, 1, 3, 0))

		for i := 0; i < 3; i++ {
			if !rl.Allow("10.0.0.1") {
				t.Fatalf("request %d should be within burst", i+1)
			}
		}
		if rl.Allow("10.0.0.1") {
			t.Error("request beyond burst should be denied")
		}
	})

	t.Run("PerClientIsolation", func(t *testing.T) {
		rl := NewRateLimiter(limitsConfig(true, 1, 2, 0))

		rl.Allow("10.0.0.1")
		rl.Allow("10.0.0.1")
		if rl.Allow("10.0.0.1") {
			t.Error("first client should be exhausted")
		}
		if !rl.Allow("10.0.0.2") {
			t.Error("second client should have its own bucket")
		}
	})

	t.Run("DisabledAlwaysAllows", func(t *testing.T) {
		rl := NewRateLimiter(limitsConfig(false, 0, 0, 0))

		for i := 0; i < 100; i++ {
			if !rl.Allow("10.0.0.1") {
				t.Fatal("disabled limiter should never deny")
			}
		}
	})

	t.Run("ZeroBurstDeniesEverything", func(t *testing.T) {
		rl := NewRateLimiter(limitsConfig(true, 1, 0, 0))

		if rl.Allow("10.0.0.1") {
			t.Error("zero burst should deny immediately")
		}
	})
}

func TestRateLimiterCleanup(t *testing.T) {
	t.Run("EvictsIdleClients", func(t *testing.T) {
		rl := NewRateLimiter(limitsConfig(true, 100, 10, time.Nanosecond))

		rl.Allow("10.0.0.1")
		rl.Allow("10.0.0.2")
		if got := rl.ActiveClients(); got != 2 {
			t.Fatalf("expected 2 tracked clients, got %d", got)
		}

		time.Sleep(time.Millisecond)
		rl.Cleanup()
		if got := rl.ActiveClients(); got != 0 {
			t.Errorf("expected idle clients evicted, got %d", got)
		}
	})

	t.Run("KeepsRecentClients", func(t *testing.T) {
		rl := NewRateLimiter(limitsConfig(true, 100, 10, time.Hour))

		rl.Allow("10.0.0.1")
		rl.Cleanup()
		if got := rl.ActiveClients(); got != 1 {
			t.Errorf("expected recent client kept, got %d", got)
		}
	})
}
