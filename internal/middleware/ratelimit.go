package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is a sliding-window limiter keyed by user ID.
// Keys are user IDs only, not user:session, so rotating tab sessions does not
// reset the budget.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
// Expired keys are evicted until ctx is done.
func NewRateLimiter(ctx context.Context, limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
	go rl.evictLoop(ctx)
	return rl
}

// Allow records a request for key and reports whether it is within the limit.
// A non-positive limit disables throttling.
func (r *RateLimiter) Allow(key string) bool {
	if r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	recent := r.fresh(r.requests[key], now)
	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}
	r.requests[key] = append(recent, now)
	return true
}

func (r *RateLimiter) fresh(times []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-r.window)
	var out []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

func (r *RateLimiter) evictLoop(ctx context.Context) {
	interval := r.window
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.evict()
		case <-ctx.Done():
			return
		}
	}
}

func (r *RateLimiter) evict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for key, times := range r.requests {
		if f := r.fresh(times, now); len(f) == 0 {
			delete(r.requests, key)
		} else {
			r.requests[key] = f
		}
	}
}

// RateLimit rejects requests over the limit with 429. keyFn extracts the
// throttling key; requests with an empty key pass through.
func RateLimit(rl *RateLimiter, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key != "" && !rl.Allow(key) {
				slog.Warn("Rate limit exceeded", "key", key, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Too many requests. Please wait a moment and try again."}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
