package gate

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit hook.
type RateLimitConfig struct {
	Rate            float64                 // requests per second
	Burst           int                     // max burst
	KeyFunc         func(c *Context) string // default: remote IP
	CleanupInterval time.Duration           // how often to prune idle limiters (default: 1m)
	MaxIdle         time.Duration           // remove limiters idle longer than this (default: 5m)
}

// RateLimit returns a beforeHandle hook that applies per-key rate limiting.
// Attach it to a route or guard with WithBeforeHandle. Limited requests fail
// with 429 and a Retry-After header; the handler does not run.
func RateLimit(cfg RateLimitConfig) BeforeHook {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *Context) string {
			host, _, err := net.SplitHostPort(c.RemoteAddr)
			if err != nil {
				return c.RemoteAddr
			}
			return host
		}
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 5 * time.Minute
	}

	retryAfter := "1"
	if cfg.Rate > 0 && cfg.Rate < 1 {
		retryAfter = strconv.FormatFloat(1/cfg.Rate, 'f', 0, 64)
	}

	var (
		mu          sync.Mutex
		limiters    = make(map[string]*limiterEntry)
		lastCleanup time.Time
	)

	return func(c *Context) (HookResult, error) {
		key := cfg.KeyFunc(c)

		mu.Lock()
		now := time.Now()

		// Lazy cleanup of expired limiters.
		if now.Sub(lastCleanup) >= cleanupInterval {
			for k, e := range limiters {
				if now.Sub(e.lastSeen) > maxIdle {
					delete(limiters, k)
				}
			}
			lastCleanup = now
		}

		entry, ok := limiters[key]
		if !ok {
			entry = &limiterEntry{
				limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
			}
			limiters[key] = entry
		}
		entry.lastSeen = now
		mu.Unlock()

		if !entry.limiter.Allow() {
			c.Set.Header.Set("Retry-After", retryAfter)
			return Continue(), Error(http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
		}
		return Continue(), nil
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}
