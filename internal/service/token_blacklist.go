package service

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TokenBlacklist tracks revoked bearer tokens by JWT ID. Entries are kept
// until the token itself would have expired.
type TokenBlacklist struct {
	interval time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	tokens map[string]time.Time // jti -> expiry time

	sweeper *cron.Cron
}

// NewTokenBlacklist creates a blacklist that sweeps expired entries every
// interval once started. Intervals under a second run every second.
func NewTokenBlacklist(interval time.Duration, logger *zap.Logger) *TokenBlacklist {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenBlacklist{
		interval: interval,
		logger:   logger.Named("token-blacklist"),
		tokens:   make(map[string]time.Time),
	}
}

// Start schedules the sweep of expired entries.
func (b *TokenBlacklist) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sweeper != nil {
		return
	}

	b.sweeper = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	b.sweeper.Schedule(cron.Every(b.interval), cron.FuncJob(func() { b.cleanup(time.Now()) }))
	b.sweeper.Start()

	b.logger.Info("Token blacklist started", zap.Duration("cleanup_interval", b.interval))
}

// Stop cancels the sweep and waits for a running pass to finish.
func (b *TokenBlacklist) Stop() {
	b.mu.Lock()
	sweeper := b.sweeper
	b.sweeper = nil
	b.mu.Unlock()

	if sweeper == nil {
		return
	}
	<-sweeper.Stop().Done()
	b.logger.Info("Token blacklist stopped")
}

// cleanup removes expired entries from the blacklist
func (b *TokenBlacklist) cleanup(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for jti, expiry := range b.tokens {
		if now.After(expiry) {
			delete(b.tokens, jti)
			removed++
		}
	}

	if removed > 0 {
		b.logger.Debug("Cleaned up expired blacklist entries",
			zap.Int("removed", removed),
			zap.Int("remaining", len(b.tokens)),
		)
	}
	return removed
}

// Add adds a token JTI to the blacklist. Tokens without a JTI cannot be revoked.
func (b *TokenBlacklist) Add(ctx context.Context, jti string, expiry time.Time) error {
	if jti == "" {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens[jti] = expiry

	b.logger.Debug("Token added to blacklist",
		zap.String("jti", jti),
		zap.Time("expiry", expiry),
	)

	return nil
}

// IsBlacklisted checks if a token JTI is on the blacklist
func (b *TokenBlacklist) IsBlacklisted(ctx context.Context, jti string) bool {
	if jti == "" {
		return false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	expiry, exists := b.tokens[jti]
	if !exists {
		return false
	}

	// An expired entry means the token is dead anyway
	return !time.Now().After(expiry)
}

// Remove removes a token from the blacklist
func (b *TokenBlacklist) Remove(ctx context.Context, jti string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.tokens, jti)
	return nil
}

// Count returns the number of tokens currently on the blacklist
func (b *TokenBlacklist) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tokens)
}
