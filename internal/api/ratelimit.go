package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// maxLimiters bounds the per-user map. Idle limiters are dropped past it.
const maxLimiters = 10000

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter throttles mutations per user id (falling back to the remote address).
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	e, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxLimiters {
			rl.pruneLocked(now)
		}

		e = &limiterEntry{lim: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}

	e.seen = now

	return e.lim
}

func (rl *RateLimiter) pruneLocked(now time.Time) {
	for k, e := range rl.limiters {
		if now.Sub(e.seen) > rl.idle {
			delete(rl.limiters, k)
		}
	}
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "userId")
		if key == "" {
			key = r.RemoteAddr
		}

		if !rl.getLimiter(key).Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")

			return
		}

		next.ServeHTTP(w, r)
	})
}
