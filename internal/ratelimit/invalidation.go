package ratelimit

import (
	"context"
	"log/slog"
	"strings"
)

// InvalidateIP removes the API-wide and per-endpoint limits for ip
func (rl *RateLimiter) InvalidateIP(ctx context.Context, ip string) error {
	base := ipKey(ip)

	if rl.redisLimiter == nil {
		rl.fallbackMutex.Lock()
		defer rl.fallbackMutex.Unlock()

		for key := range rl.fallbackLimiters {
			if key == base || strings.HasPrefix(key, base+":") {
				delete(rl.fallbackLimiters, key)
			}
		}

		slog.Info("Invalidated IP rate limits (in-memory)", "ip", ip)
		return nil
	}

	if err := rl.deleteByPattern(ctx, base); err != nil {
		return err
	}
	return rl.deleteByPattern(ctx, base+":*")
}

// InvalidateAll removes every rate limit key
func (rl *RateLimiter) InvalidateAll(ctx context.Context) error {
	if rl.redisLimiter == nil {
		rl.fallbackMutex.Lock()
		defer rl.fallbackMutex.Unlock()

		count := len(rl.fallbackLimiters)
		rl.fallbackLimiters = make(map[string]*fallbackEntry)

		slog.Warn("Invalidated all rate limits (in-memory)", "count", count)
		return nil
	}

	slog.Warn("Invalidating all rate limits", "pattern", "ratelimit:*")
	return rl.deleteByPattern(ctx, "ratelimit:*")
}

// GetKeyCount returns the number of live rate limit keys
func (rl *RateLimiter) GetKeyCount(ctx context.Context) (int, error) {
	if rl.redisLimiter == nil {
		rl.fallbackMutex.RLock()
		defer rl.fallbackMutex.RUnlock()
		return len(rl.fallbackLimiters), nil
	}

	count := 0
	err := rl.store.ScanKeys(ctx, "ratelimit:*", func(keys []string) error {
		count += len(keys)
		return nil
	})
	return count, err
}

// deleteByPattern deletes all Redis keys matching a pattern
func (rl *RateLimiter) deleteByPattern(ctx context.Context, pattern string) error {
	deleted, err := rl.store.DeleteKeys(ctx, pattern)
	if err != nil {
		return err
	}

	slog.Info("Deleted rate limit keys by pattern", "pattern", pattern, "count", deleted)
	return nil
}
