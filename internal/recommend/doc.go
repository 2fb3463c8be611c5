// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

// Package recommend implements the recommendation pipeline: per-user
// exclusion sets, the hybrid ranking engine, the diversity pass, the
// degraded fallback ranker, and the public facade tying them together.
//
// # Request Flow
//
// The Facade is the only entry point. A request checks the result cache,
// then on a miss builds the exclusion set and preference vector, ranks
// candidates through weighted scorer fusion, reorders for diversity,
// caches the response, and returns it. Any engine failure or empty
// result switches to the stateless fallback ranker.
//
// # Weights
//
// Scorer weights and the diversity threshold live in a versioned
// snapshot swapped atomically by the offline optimizer. Each request
// captures the snapshot once at entry, so a mid-request update cannot
// mix weight generations.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Scoring is
// CPU-only; every store and cache access happens before the scorer
// fan-out.
package recommend
