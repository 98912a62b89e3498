// Package ratelimit provides a per-user limiter registry with an explicit
// lifecycle: created per session, cleared on sign-out. It replaces the
// process-wide rate-limit map the app used to key by user id.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Registry tracks one token-bucket limiter per user id.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a registry allowing perMinute events per user, with a burst
// of the same size.
func New(perMinute int) *Registry {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Registry{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
	}
}

// Allow reports whether userID may perform another event now.
func (r *Registry) Allow(userID string) bool {
	r.mu.Lock()
	lim, ok := r.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(r.limit, r.burst)
		r.limiters[userID] = lim
	}
	r.mu.Unlock()
	return lim.Allow()
}

// Forget drops the limiter for one user.
func (r *Registry) Forget(userID string) {
	r.mu.Lock()
	delete(r.limiters, userID)
	r.mu.Unlock()
}

// Reset clears every limiter. Called on sign-out.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.limiters = make(map[string]*rate.Limiter)
	r.mu.Unlock()
}
