package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/devfolio/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	IPLimitPerMin    int           // Per-IP limit across the API
	WriteLimitPerMin int           // Per-IP limit on chat posts and admin login
	BurstMultiplier  int           // Burst capacity multiplier for the in-memory limiter
	CleanupInterval  time.Duration // How often idle in-memory limiters are dropped
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		IPLimitPerMin:    60,
		WriteLimitPerMin: 5,
		BurstMultiplier:  1,
		CleanupInterval:  time.Hour,
	}
}

// Rate is a limit of Limit requests per Period
type Rate struct {
	Limit  int
	Period time.Duration
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type fallbackEntry struct {
	limiter  *rate.Limiter
	limit    int
	lastSeen time.Time
}

// RateLimiter provides distributed rate limiting with Redis and in-memory fallback
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	store        *RedisStore
	config       Config
	metrics      *monitoring.Metrics

	fallbackLimiters map[string]*fallbackEntry
	fallbackMutex    sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewRateLimiter creates a new rate limiter. A nil or disabled store
// selects the in-memory limiter.
func NewRateLimiter(store *RedisStore, config Config, metrics *monitoring.Metrics) *RateLimiter {
	if config.BurstMultiplier < 1 {
		config.BurstMultiplier = 1
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Hour
	}

	rl := &RateLimiter{
		store:            store,
		config:           config,
		metrics:          metrics,
		fallbackLimiters: make(map[string]*fallbackEntry),
		done:             make(chan struct{}),
	}

	if store.Enabled() {
		rl.redisLimiter = store.Limiter()
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Info("Using in-memory rate limiting")
	}

	go rl.cleanupLoop()

	return rl
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() {
		close(rl.done)
	})
}

func ipKey(ip string) string {
	return fmt.Sprintf("ratelimit:ip:%s", ip)
}

func endpointKey(endpoint, ip string) string {
	return fmt.Sprintf("ratelimit:ip:%s:%s", ip, endpoint)
}

// AllowIP checks the API-wide per-minute limit for ip
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.Allow(ctx, ipKey(ip), Rate{Limit: rl.config.IPLimitPerMin, Period: time.Minute})
}

// AllowEndpoint checks a per-minute limit for ip on a single endpoint
func (rl *RateLimiter) AllowEndpoint(ctx context.Context, endpoint, ip string, limit int) (*Result, error) {
	return rl.Allow(ctx, endpointKey(endpoint, ip), Rate{Limit: limit, Period: time.Minute})
}

// Allow checks key against r using Redis when available and the in-memory limiter otherwise
func (rl *RateLimiter) Allow(ctx context.Context, key string, r Rate) (*Result, error) {
	if r.Limit <= 0 || r.Period <= 0 {
		return nil, fmt.Errorf("invalid rate %d/%s", r.Limit, r.Period)
	}

	if rl.redisLimiter != nil {
		result, err := rl.allowRedis(ctx, key, r)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitRedisError()
		}
	}

	if rl.metrics != nil {
		rl.metrics.IncrementRateLimitFallback()
	}
	return rl.allowFallback(key, r), nil
}

// allowRedis uses the GCRA limiter shared by every instance
func (rl *RateLimiter) allowRedis(ctx context.Context, key string, r Rate) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   r.Limit,
		Burst:  r.Limit,
		Period: r.Period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: res.RetryAfter,
	}, nil
}

// allowFallback uses a token bucket per key
func (rl *RateLimiter) allowFallback(key string, r Rate) *Result {
	now := time.Now()

	rl.fallbackMutex.Lock()
	entry, exists := rl.fallbackLimiters[key]
	if !exists || entry.limit != r.Limit {
		every := rate.Limit(float64(r.Limit) / r.Period.Seconds())
		entry = &fallbackEntry{
			limiter: rate.NewLimiter(every, r.Limit*rl.config.BurstMultiplier),
			limit:   r.Limit,
		}
		rl.fallbackLimiters[key] = entry
	}
	entry.lastSeen = now
	rl.fallbackMutex.Unlock()

	result := &Result{
		Allowed: entry.limiter.AllowN(now, 1),
		Limit:   r.Limit,
		ResetAt: now.Add(r.Period),
	}

	if remaining := int(entry.limiter.TokensAt(now)); remaining > 0 {
		result.Remaining = remaining
	}

	if !result.Allowed {
		reservation := entry.limiter.ReserveN(now, 1)
		result.RetryAfter = reservation.DelayFrom(now)
		reservation.CancelAt(now)
		if result.RetryAfter <= 0 {
			result.RetryAfter = time.Second
		}
		result.ResetAt = now.Add(result.RetryAfter)
	}

	return result
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup drops in-memory limiters idle for longer than the cleanup interval
func (rl *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.config.CleanupInterval)

	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()

	removed := 0
	for key, entry := range rl.fallbackLimiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.fallbackLimiters, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Cleaned up fallback rate limiters", "removed", removed, "remaining", len(rl.fallbackLimiters))
	}
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.fallbackMutex.RLock()
	fallbackCount := len(rl.fallbackLimiters)
	rl.fallbackMutex.RUnlock()

	stats := map[string]interface{}{
		"redis_enabled":     rl.store.Enabled(),
		"fallback_limiters": fallbackCount,
		"config": map[string]interface{}{
			"ip_limit_per_min":    rl.config.IPLimitPerMin,
			"write_limit_per_min": rl.config.WriteLimitPerMin,
		},
	}

	if rl.store.Enabled() {
		stats["redis_pool"] = rl.store.Stats()
	}

	return stats
}
