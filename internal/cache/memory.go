// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

// cleanupInterval is how often expired in-memory entries are swept.
const cleanupInterval = 5 * time.Minute

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is a thread-safe in-memory cache with TTL support and glob
// pattern deletion. Used in standalone mode and tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	accessMu sync.Mutex
	access   map[string]int64

	done chan struct{}
	once sync.Once
}

// NewMemory creates an in-memory cache with a background cleanup sweep.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		access:  make(map[string]int64),
		done:    make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Get retrieves a value; expired entries read as misses.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// Set stores a value with the given TTL.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entries[key] = memoryEntry{data: value, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
}

// Delete removes the given keys.
func (m *Memory) Delete(_ context.Context, keys ...string) {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
}

// DeletePattern removes all keys matching the glob pattern. Keys contain no
// path separators, so path.Match gives plain glob semantics.
func (m *Memory) DeletePattern(_ context.Context, pattern string) {
	m.mu.Lock()
	for k := range m.entries {
		if ok, err := path.Match(pattern, k); err == nil && ok {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
}

// TrackAccess counts key accesses per namespace for the hot-key observer.
func (m *Memory) TrackAccess(namespace, key string) {
	m.accessMu.Lock()
	m.access[namespace+keySep+key]++
	m.accessMu.Unlock()
}

// AccessCounts returns a snapshot of tracked access counts.
func (m *Memory) AccessCounts() map[string]int64 {
	m.accessMu.Lock()
	defer m.accessMu.Unlock()
	out := make(map[string]int64, len(m.access))
	for k, v := range m.access {
		out[k] = v
	}
	return out
}

// Len returns the number of live entries. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the cleanup goroutine.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for k, e := range m.entries {
				if now.After(e.expiresAt) {
					delete(m.entries, k)
				}
			}
			m.mu.Unlock()
		}
	}
}
