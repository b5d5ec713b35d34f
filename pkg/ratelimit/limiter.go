// Package ratelimit is the admission layer's per-tenant request throttle: a
// token bucket per tenant, sized from config.RateLimitConfig, shared across
// every request that tenant sends regardless of which agent or endpoint
// it's hitting.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/rcrtd/rcrt/pkg/config"
)

// Limiter holds one token bucket per tenant, created lazily on first use.
type Limiter struct {
	cfg config.RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// New builds a Limiter from cfg. A disabled cfg still builds cleanly;
// Allow always reports true in that case.
func New(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		cfg:     cfg,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether tenantID may make one more request right now,
// consuming a token from its bucket if so. Always true when rate limiting
// is disabled.
func (l *Limiter) Allow(tenantID string) bool {
	if !l.cfg.Enabled {
		return true
	}
	return l.bucket(tenantID).Allow()
}

func (l *Limiter) bucket(tenantID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[tenantID]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)
		l.buckets[tenantID] = b
	}
	return b
}
