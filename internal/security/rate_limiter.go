package security

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/config"
)

// RateLimiter implements per-client token bucket rate limiting for DoS
// protection. Each client IP gets its own rate.Limiter; idle clients
// are evicted so the map cannot grow without bound.
type RateLimiter struct {
	cfg     config.LimitsConfig
	clients map[string]*client
	mu      sync.RWMutex
}

type client struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg config.LimitsConfig) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		clients: make(map[string]*client),
	}
}

// Allow checks if a request from the given client IP is allowed
func (r *RateLimiter) Allow(clientIP string) bool {
	if !r.cfg.RateLimit.Enabled {
		return true
	}

	c := r.getClient(clientIP)
	c.lastSeen.Store(time.Now().UnixNano())
	return c.limiter.Allow()
}

// ActiveClients returns the number of tracked client buckets
func (r *RateLimiter) ActiveClients() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// getClient gets or creates the bucket for a client IP
func (r *RateLimiter) getClient(clientIP string) *client {
	r.mu.RLock()
	c, exists := r.clients[clientIP]
	r.mu.RUnlock()

	if exists {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if c, exists := r.clients[clientIP]; exists {
		return c
	}

	c = &client{
		limiter: rate.NewLimiter(rate.Limit(r.cfg.RateLimit.RequestsPerSecond), r.cfg.RateLimit.Burst),
	}
	c.lastSeen.Store(time.Now().UnixNano())

	r.clients[clientIP] = c
	return c
}

// clientTTL resolves the idle eviction window; unset means one hour.
func (r *RateLimiter) clientTTL() time.Duration {
	if ttl := r.cfg.RateLimit.ClientTTL; ttl > 0 {
		return ttl
	}
	return time.Hour
}

// Cleanup removes buckets idle longer than the client TTL
func (r *RateLimiter) Cleanup() {
	cutoff := time.Now().Add(-r.clientTTL()).UnixNano()

	r.mu.Lock()
	defer r.mu.Unlock()

	for ip, c := range r.clients {
		if c.lastSeen.Load() < cutoff {
			delete(r.clients, ip)
		}
	}
}

// StartCleanupRoutine starts a background routine that evicts idle
// client buckets until stop is closed
func (r *RateLimiter) StartCleanupRoutine(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(r.clientTTL())
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}
