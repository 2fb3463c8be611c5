// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

// Package scorers implements the candidate scorers for the hybrid ranker.
//
// Each scorer consumes a prepared Input (task, user, preference vector,
// engagement snapshot) and returns a bounded score in [0, 1]. Scorers are
// pure: all data access happens up front in the Loader, so Score never
// blocks and is safe to fan out across goroutines.
//
// # Scorer Catalog
//
//   - content: similarity between the user's preference vector and the
//     task's derived features
//   - collaborative: item-based Jaccard over co-engaging users
//   - location: residence-city proximity
//   - popularity: saturating map over distinct 24h engagers
//   - freshness: task age with a new-poster boost
package scorers

import (
	"time"

	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/prefs"
)

// Canonical scorer names. These are the keys of the weight table the
// ranker fuses with and the optimizer re-tunes.
const (
	NameContent       = "content"
	NameCollaborative = "collaborative"
	NameLocation      = "location"
	NamePopularity    = "popularity"
	NameFreshness     = "freshness"
)

// Names lists every scorer in fusion order.
var Names = []string{NameContent, NameCollaborative, NameLocation, NamePopularity, NameFreshness}

// Input carries everything a scorer may read. Loaded once per request.
type Input struct {
	Task   models.Task
	User   *models.User
	Vector *prefs.Vector
	Stats  *EngagementStats
	Now    time.Time
}

// Result is a single scorer's verdict on one candidate.
type Result struct {
	Value float64
	// Cold reports that the collaborative scorer had too few co-engaging
	// users and returned zero rather than a real similarity.
	Cold bool
	// NewPoster reports that the freshness scorer applied the new-poster
	// boost. The ranker surfaces this in the reason string.
	NewPoster bool
}

// Scorer scores one candidate task for one user.
type Scorer interface {
	Name() string
	Score(in Input) (Result, error)
}

// Ensure all scorers implement the interface.
var (
	_ Scorer = (*Content)(nil)
	_ Scorer = (*Collaborative)(nil)
	_ Scorer = (*Location)(nil)
	_ Scorer = (*Popularity)(nil)
	_ Scorer = (*Freshness)(nil)
)

// jaccard computes Jaccard similarity between two user-id sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	intersection := 0
	for u := range small {
		if _, ok := large[u]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// clamp bounds x to [0, 1].
func clamp(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
