// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/openmarket/taskfeed/internal/logging"
	"github.com/openmarket/taskfeed/internal/metrics"
)

// Redis is the production cache backend. All backend errors are absorbed:
// reads become misses, writes are dropped, and the failure is logged and
// counted.
type Redis struct {
	rdb *goredis.Client
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(addr string) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("redis address required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{rdb: rdb}, nil
}

// Get retrieves a value; any backend error reads as a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			metrics.CacheErrors.WithLabelValues("get").Inc()
			log := logging.Ctx(ctx)
			log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return nil, false
	}
	return val, true
}

// Set stores a value best-effort.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		log := logging.Ctx(ctx)
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Delete removes the given keys.
func (r *Redis) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		log := logging.Ctx(ctx)
		log.Warn().Err(err).Msg("cache delete failed")
	}
}

// DeletePattern removes all keys matching the glob via incremental SCAN,
// never KEYS, so large keyspaces stay responsive.
func (r *Redis) DeletePattern(ctx context.Context, pattern string) {
	iter := r.rdb.Scan(ctx, 0, pattern, 256).Iterator()
	batch := make([]string, 0, 256)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			r.Delete(ctx, batch...)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		metrics.CacheErrors.WithLabelValues("scan").Inc()
		log := logging.Ctx(ctx)
		log.Warn().Err(err).Str("pattern", pattern).Msg("cache scan failed")
	}
	if len(batch) > 0 {
		r.Delete(ctx, batch...)
	}
}

// TrackAccess counts key accesses in a per-namespace hash, read by the
// optimizer's hot-key pass. Fire-and-forget.
func (r *Redis) TrackAccess(namespace, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.rdb.HIncrBy(ctx, keyPrefix+keySep+"access"+keySep+namespace, key, 1).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues("track").Inc()
	}
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
