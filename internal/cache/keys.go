// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Cache namespaces. Each entity class gets its own TTL (config.TTLConfig).
const (
	NSRecommendation = "rec"
	NSExclusion      = "excl"
	NSVector         = "vec"
	NSPopularity     = "pop"
	NSTask           = "task"
)

const (
	keyPrefix = "taskfeed"
	keySep    = ":"

	// maxPartLen bounds a single key part; longer parts are replaced by a
	// fixed-width digest so keys stay cheap to store and compare.
	maxPartLen = 96
)

// Key builds a cache key from a namespace and stable tuple parts.
//
//	cache.Key(cache.NSRecommendation, userID, "hybrid", "10", filterHash)
func Key(namespace string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteString(keySep)
	b.WriteString(namespace)
	for _, p := range parts {
		b.WriteString(keySep)
		b.WriteString(normalizePart(p))
	}
	return b.String()
}

// UserPattern returns the glob matching every key in a namespace for one
// user, for pattern invalidation.
func UserPattern(namespace, userID string) string {
	return Key(namespace, userID) + keySep + "*"
}

// Digest returns the fixed-width digest used for long key parts.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

func normalizePart(p string) string {
	if len(p) > maxPartLen {
		return Digest(p)
	}
	// The separator inside a part would corrupt pattern invalidation.
	return strings.ReplaceAll(p, keySep, "_")
}
