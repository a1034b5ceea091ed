// Package ratelimit implements the per-host request budget of the safety policy.
package ratelimit

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a fixed-window request budget per host. It is shared by
// reference with all workers and is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// Config expresses the budget as requests per interval.
type Config struct {
	RequestsPerInterval int
	Interval            time.Duration
}

// New creates a Limiter. A non-positive budget disables limiting.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerInterval > 0 && cfg.Interval > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerInterval) / cfg.Interval.Seconds())
		burst = cfg.RequestsPerInterval
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Allow reports whether the host's budget admits one more request right now.
// It never blocks; a denied request is a policy violation, not a wait.
func (l *Limiter) Allow(rawURL string) bool {
	host := hostOf(rawURL)

	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
