// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package cache

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/openmarket/taskfeed/internal/logging"
	"github.com/openmarket/taskfeed/internal/metrics"
)

// Badger is the embedded cache backend for single-node deployments without
// Redis. Entries carry Badger-native TTLs.
type Badger struct {
	db *badger.DB

	accessMu sync.Mutex
	access   map[string]int64
}

// NewBadger opens (or creates) a Badger store at dir.
func NewBadger(dir string) (*Badger, error) {
	if dir == "" {
		return nil, errors.New("badger directory required")
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &Badger{db: db, access: make(map[string]int64)}, nil
}

// Get retrieves a value; any backend error reads as a miss.
func (b *Badger) Get(ctx context.Context, key string) ([]byte, bool) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			metrics.CacheErrors.WithLabelValues("get").Inc()
			log := logging.Ctx(ctx)
			log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return nil, false
	}
	return out, true
}

// Set stores a value best-effort with a native TTL.
func (b *Badger) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	err := b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		log := logging.Ctx(ctx)
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Delete removes the given keys.
func (b *Badger) Delete(ctx context.Context, keys ...string) {
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		log := logging.Ctx(ctx)
		log.Warn().Err(err).Msg("cache delete failed")
	}
}

// DeletePattern removes all keys matching the glob. Iteration is bounded to
// the literal prefix before the first metacharacter.
func (b *Badger) DeletePattern(ctx context.Context, pattern string) {
	prefix := literalPrefix(pattern)
	var doomed [][]byte

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := string(it.Item().Key())
			if ok, err := path.Match(pattern, k); err == nil && ok {
				doomed = append(doomed, append([]byte(nil), it.Item().Key()...))
			}
		}
		return nil
	})
	if err != nil {
		metrics.CacheErrors.WithLabelValues("scan").Inc()
		log := logging.Ctx(ctx)
		log.Warn().Err(err).Str("pattern", pattern).Msg("cache scan failed")
		return
	}

	if len(doomed) == 0 {
		return
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		for _, k := range doomed {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		log := logging.Ctx(ctx)
		log.Warn().Err(err).Str("pattern", pattern).Msg("cache pattern delete failed")
	}
}

// TrackAccess counts key accesses in memory for the hot-key observer.
func (b *Badger) TrackAccess(namespace, key string) {
	b.accessMu.Lock()
	b.access[namespace+keySep+key]++
	b.accessMu.Unlock()
}

// Close closes the store.
func (b *Badger) Close() error {
	return b.db.Close()
}

// literalPrefix returns the part of a glob pattern before the first
// metacharacter.
func literalPrefix(pattern string) string {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '*', '?', '[', '\\':
			return pattern[:i]
		}
	}
	return pattern
}
