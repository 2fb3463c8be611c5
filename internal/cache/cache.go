// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

// Package cache implements the key-value cache port used by the
// recommendation pipeline.
//
// Three backends exist: Redis (production), Badger (embedded), and an
// in-memory map (standalone mode and tests). All share the same failure
// semantics: Get never returns an error to callers (a backend failure reads
// as a miss) and writes are best-effort.
package cache

import (
	"context"
	"time"

	"github.com/openmarket/taskfeed/internal/config"
)

// Cache is the typed cache port. Values are opaque byte blobs; callers own
// the encoding.
type Cache interface {
	// Get retrieves a value. Absent covers both a true miss and a backend
	// failure; Get never raises.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with an absolute TTL. Idempotent overwrite;
	// a failed write must not fail the surrounding request.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete removes the given keys.
	Delete(ctx context.Context, keys ...string)

	// DeletePattern removes all keys matching the glob pattern.
	DeletePattern(ctx context.Context, pattern string)

	// TrackAccess feeds the LRU observer consumed by the optimizer's
	// hot-key promotion. Optional; backends may no-op.
	TrackAccess(namespace, key string)

	// Close releases backend resources.
	Close() error
}

// New selects a backend from configuration. "auto" picks Redis when an
// address is set, Badger when a directory is set, memory otherwise.
func New(cfg config.CacheConfig) (Cache, error) {
	backend := cfg.Backend
	if backend == "auto" {
		switch {
		case cfg.RedisAddr != "":
			backend = "redis"
		case cfg.BadgerDir != "":
			backend = "badger"
		default:
			backend = "memory"
		}
	}

	switch backend {
	case "redis":
		return NewRedis(cfg.RedisAddr)
	case "badger":
		return NewBadger(cfg.BadgerDir)
	default:
		return NewMemory(), nil
	}
}
