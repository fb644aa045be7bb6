package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/ZanzyTHEbar/devfolio/internal/config"
)

// scanBatch is the COUNT hint for SCAN
const scanBatch = 100

var errRedisDisabled = errors.New("redis store is disabled")

// RedisStore is the shared Redis connection behind distributed limits.
// A zero RedisStore is valid and disabled.
type RedisStore struct {
	rdb  *redis.Client
	addr string
}

// RedisStats is the /metrics view of the store
type RedisStats struct {
	Enabled bool             `json:"enabled"`
	Addr    string           `json:"addr,omitempty"`
	Pool    *redis.PoolStats `json:"pool,omitempty"`
}

func redisOptions(cfg config.RedisConfig) *redis.Options {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	return &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  dialTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     poolSize,
		MinIdleConns: poolSize / 5,
		PoolTimeout:  dialTimeout,
	}
}

// OpenRedisStore connects when cfg.Addr is set. Without an address, or when the
// first ping fails, the store is disabled and limits stay in memory.
func OpenRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return &RedisStore{}, nil
	}

	opts := redisOptions(cfg)
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return &RedisStore{addr: cfg.Addr}, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}

	slog.Info("Connected to Redis", "addr", cfg.Addr, "db", cfg.DB, "pool_size", opts.PoolSize)
	return &RedisStore{rdb: rdb, addr: cfg.Addr}, nil
}

// Enabled reports whether the store holds a live connection
func (s *RedisStore) Enabled() bool {
	return s != nil && s.rdb != nil
}

// Limiter returns a GCRA limiter over the store's connection
func (s *RedisStore) Limiter() *redis_rate.Limiter {
	if !s.Enabled() {
		return nil
	}
	return redis_rate.NewLimiter(s.rdb)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return errRedisDisabled
	}
	return s.rdb.Ping(ctx).Err()
}

// ScanKeys calls fn with each batch of keys matching pattern
func (s *RedisStore) ScanKeys(ctx context.Context, pattern string, fn func(keys []string) error) error {
	if !s.Enabled() {
		return errRedisDisabled
	}

	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan %q: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// DeleteKeys removes every key matching pattern and returns how many went
func (s *RedisStore) DeleteKeys(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	err := s.ScanKeys(ctx, pattern, func(keys []string) error {
		n, err := s.rdb.Del(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("delete %d keys: %w", len(keys), err)
		}
		deleted += n
		return nil
	})
	return deleted, err
}

// Stats reports pool usage, or only enabled=false without a connection
func (s *RedisStore) Stats() RedisStats {
	if !s.Enabled() {
		return RedisStats{}
	}
	return RedisStats{Enabled: true, Addr: s.addr, Pool: s.rdb.PoolStats()}
}

func (s *RedisStore) Close() error {
	if !s.Enabled() {
		return nil
	}
	slog.Info("Closing Redis connection", "addr", s.addr)
	return s.rdb.Close()
}
