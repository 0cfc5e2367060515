package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sirosfoundation/go-xsf/pkg/config"
)

// AuthRateLimiter throttles authentication attempts per identifier and
// locks an identifier out once its budget is exhausted.
type AuthRateLimiter struct {
	config config.RateLimitConfig
	logger *zap.Logger

	mu       sync.Mutex
	limiters map[string]*authLimiter

	cleanupInterval time.Duration
	lastCleanup     time.Time
}

// authLimiter tracks rate limiting state for a single identifier (username, IP, etc.)
type authLimiter struct {
	limiter    *rate.Limiter
	lastSeen   time.Time
	lockoutEnd time.Time
}

// NewAuthRateLimiter creates a new rate limiter for auth endpoints
func NewAuthRateLimiter(cfg config.RateLimitConfig, logger *zap.Logger) *AuthRateLimiter {
	cfg.SetDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthRateLimiter{
		config:          cfg,
		logger:          logger.Named("auth-ratelimit"),
		limiters:        make(map[string]*authLimiter),
		cleanupInterval: 10 * time.Minute,
		lastCleanup:     time.Now(),
	}
}

// getLimiter returns the limiter for an identifier, creating it if needed.
// Callers hold r.mu.
func (r *AuthRateLimiter) getLimiter(identifier string, now time.Time) *authLimiter {
	if now.Sub(r.lastCleanup) > r.cleanupInterval {
		r.cleanup(now)
	}

	limiter, exists := r.limiters[identifier]
	if exists {
		limiter.lastSeen = now
		return limiter
	}

	// Rate: MaxAttempts per WindowSeconds
	rateLimit := rate.Limit(float64(r.config.MaxAttempts) / float64(r.config.WindowSeconds))
	burst := int(math.Ceil(float64(r.config.MaxAttempts) / 2.0))
	if burst < 1 {
		burst = 1
	}

	limiter = &authLimiter{
		limiter:  rate.NewLimiter(rateLimit, burst),
		lastSeen: now,
	}
	r.limiters[identifier] = limiter

	return limiter
}

// cleanup removes limiters that have been idle for longer than the lockout.
func (r *AuthRateLimiter) cleanup(now time.Time) {
	idle := 30 * time.Minute
	if lockout := time.Duration(r.config.LockoutSeconds) * time.Second; lockout > idle {
		idle = lockout
	}
	cutoff := now.Add(-idle)
	for key, limiter := range r.limiters {
		if limiter.lastSeen.Before(cutoff) {
			delete(r.limiters, key)
		}
	}
	r.lastCleanup = now
}

// Allow checks if a request is allowed for the given identifier
// Returns true if allowed, false if rate limited
func (r *AuthRateLimiter) Allow(identifier string) bool {
	if !r.config.Enabled {
		return true
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	limiter := r.getLimiter(identifier, now)
	if now.Before(limiter.lockoutEnd) {
		return false
	}

	if !limiter.limiter.AllowN(now, 1) {
		lockout := time.Duration(r.config.LockoutSeconds) * time.Second
		limiter.lockoutEnd = now.Add(lockout)

		r.logger.Warn("Auth rate limit exceeded, applying lockout",
			zap.String("identifier", identifier),
			zap.Duration("lockout_duration", lockout),
		)
		return false
	}

	return true
}

// RecordFailure records a failed authentication attempt. Failures consume
// two extra tokens so repeated bad credentials reach the lockout sooner.
func (r *AuthRateLimiter) RecordFailure(identifier string) {
	if !r.config.Enabled {
		return
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	limiter := r.getLimiter(identifier, now)
	limiter.limiter.AllowN(now, 2)
}

// RetryAfter reports how long the identifier stays locked out.
func (r *AuthRateLimiter) RetryAfter(identifier string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.limiters[identifier]
	if !ok {
		return 0
	}
	if d := time.Until(limiter.lockoutEnd); d > 0 {
		return d
	}
	return 0
}

// AuthRateLimitMiddlewareWithIdentifier returns a middleware that uses a custom identifier extractor
// This allows callers to define how to identify rate limit subjects
func AuthRateLimitMiddlewareWithIdentifier(rl *AuthRateLimiter, extractID func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.config.Enabled {
			c.Next()
			return
		}

		identifier := extractID(c)
		if identifier == "" {
			identifier = "_anonymous"
		}

		if !rl.Allow(identifier) {
			if d := rl.RetryAfter(identifier); d > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many authentication attempts. Please try again later.",
			})
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusUnauthorized {
			rl.RecordFailure(identifier)
		}
	}
}
