package api

import (
	"sync"

	"golang.org/x/time/rate"

	"breezbook/internal/config"
)

// RateLimiter keeps one token bucket per client key, shared by the HTTP and
// gRPC servers.
type RateLimiter struct {
	limiters sync.Map
	cfg      *config.APIConfig
}

func NewRateLimiter(cfg *config.APIConfig) *RateLimiter {
	return &RateLimiter{
		cfg: cfg,
	}
}

// allow reports whether key may make another request. A non-positive RPS disables limiting.
func (l *RateLimiter) allow(key string) bool {
	if l == nil || l.cfg.RateLimit.RPS <= 0 {
		return true
	}
	return l.getLimiter(key).Allow()
}

func (l *RateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := l.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RateLimit.RPS), burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}
