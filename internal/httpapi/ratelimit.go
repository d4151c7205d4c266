package httpapi

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
)

const (
	rateLimiterCleanupInterval = 5 * time.Minute
	rateLimiterStaleThreshold  = 10 * time.Minute
)

// rateLimiter implements per-user rate limiting using golang.org/x/time/rate.
// Cleanup of stale entries happens inline during allow() calls.
type rateLimiter struct {
	mu          sync.Mutex
	callers     map[string]*caller
	limit       rate.Limit
	burst       int
	lastCleanup time.Time
}

// caller holds a rate limiter and last-seen time for a single user.
type caller struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newRateLimiter creates a rate limiter.
// perSecond: tokens refilled per second. burst: maximum tokens (and initial allowance).
func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	return &rateLimiter{
		callers:     make(map[string]*caller),
		limit:       rate.Limit(perSecond),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

// allow checks if a request from the given user is allowed.
func (rl *rateLimiter) allow(userID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	// Periodic cleanup of stale entries
	if now.Sub(rl.lastCleanup) > rateLimiterCleanupInterval {
		for k, c := range rl.callers {
			if now.Sub(c.lastSeen) > rateLimiterStaleThreshold {
				delete(rl.callers, k)
			}
		}
		rl.lastCleanup = now
	}

	c, exists := rl.callers[userID]
	if !exists {
		limiter := rate.NewLimiter(rl.limit, rl.burst)
		rl.callers[userID] = &caller{
			limiter:  limiter,
			lastSeen: now,
		}
		limiter.Allow()
		return true
	}

	c.lastSeen = now
	return c.limiter.Allow()
}

// rateLimit caps requests per user. It runs after requireUser, so the
// identity header is already validated.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userID(r)
		if !s.limiter.allow(user) {
			s.log.V(1).Info("rate limit exceeded", "user", user, "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			writeError(w, apperrors.New(apperrors.ErrCodeRateLimited, "too many requests", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}
