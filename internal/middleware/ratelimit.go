package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/passdesk/internal/model"
)

// RateLimiterConfig holds the rate limit settings.
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // per user, req/sec
	GeneralBurst    int
	LoginRate       rate.Limit    // per client IP on the sign-in endpoints, req/sec
	LoginBurst      int
	CleanupInterval time.Duration // how often idle entries are dropped
}

// DefaultRateLimiterConfig returns 120 req/min/user for the API and
// 10 req/min/IP for sign-in.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfigPerMinute(120, 10)
}

// RateLimiterConfigPerMinute builds a config from per-minute quotas, with
// a burst equal to the quota.
func RateLimiterConfigPerMinute(general, login int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(general) / 60.0),
		GeneralBurst:    general,
		LoginRate:       rate.Limit(float64(login) / 60.0),
		LoginBurst:      login,
		CleanupInterval: 5 * time.Minute,
	}
}

type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet is a set of token buckets keyed by user id or client IP.
type limiterSet struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*keyedLimiter
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*keyedLimiter),
	}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	kl, ok := s.limiters[key]
	if !ok {
		kl = &keyedLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = kl
	}
	kl.lastAccess = time.Now()
	return kl.limiter
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

func (s *limiterSet) prune(olderThan time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, kl := range s.limiters {
		if kl.lastAccess.Before(olderThan) {
			delete(s.limiters, key)
		}
	}
}

// RateLimiter applies the general per-user limit and the per-IP sign-in limit.
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterSet
	login   *limiterSet
	stopCh  chan struct{}
	once    sync.Once
}

// NewRateLimiter returns a RateLimiter and starts its cleanup goroutine.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		general: newLimiterSet(config.GeneralRate, config.GeneralBurst),
		login:   newLimiterSet(config.LoginRate, config.LoginBurst),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// GeneralMiddleware limits requests per signed-in user. It runs behind the
// session middleware; a request without an owner is a 401.
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general, rl.config.GeneralRate, "general", func(r *http.Request) (slog.Attr, bool) {
		userID, err := UserIDFromContext(r.Context())
		return slog.String("user_id", userID), err == nil
	})
}

// LoginMiddleware limits sign-in attempts per client IP, since those routes
// have no session yet.
func (rl *RateLimiter) LoginMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.login, rl.config.LoginRate, "login", func(r *http.Request) (slog.Attr, bool) {
		return slog.String("client_ip", clientIP(r)), true
	})
}

// middleware charges one token from set under the key picked by keyOf.
func (rl *RateLimiter) middleware(set *limiterSet, limit rate.Limit, kind string, keyOf func(*http.Request) (slog.Attr, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := keyOf(r)
			if !ok {
				WriteUnauthorized(w)
				return
			}
			if !set.get(key.Value.String()).Allow() {
				slog.Warn("rate limit exceeded", key, slog.String("limit_type", kind))
				writeRateLimitResponse(w, limit)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount returns the number of tracked users.
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.len()
}

// LoginLimiterCount returns the number of tracked client IPs.
func (rl *RateLimiter) LoginLimiterCount() int {
	return rl.login.len()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops entries idle for more than twice the cleanup interval.
func (rl *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-2 * rl.config.CleanupInterval)
	rl.general.prune(cutoff)
	rl.login.prune(cutoff)
}

// clientIP returns the host part of RemoteAddr. chi's RealIP middleware
// rewrites RemoteAddr from X-Forwarded-For upstream of this.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

var errRateLimited = &model.APIError{
	Code:     "RATE_LIMIT_EXCEEDED",
	Message:  "Too many requests. Please try again later.",
	Category: "system",
	Action:   "Wait and retry after the time given in Retry-After.",
}

// writeRateLimitResponse sends 429 with Retry-After set to the seconds
// needed to refill one token, at least 1.
func writeRateLimitResponse(w http.ResponseWriter, limit rate.Limit) {
	wait := 1
	if limit > 0 {
		wait = max(1, int(math.Ceil(1/float64(limit))))
	}
	w.Header().Set("Retry-After", strconv.Itoa(wait))
	WriteErrorResponse(w, http.StatusTooManyRequests, errRateLimited)
}
