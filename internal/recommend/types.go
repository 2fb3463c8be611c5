// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package recommend

import (
	"strings"
	"time"

	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store"
)

// Supported ranking algorithms. Hybrid fuses all five scorers with the
// configured weights; content and collaborative run a single scorer at
// full weight.
const (
	AlgorithmContent       = "content"
	AlgorithmCollaborative = "collaborative"
	AlgorithmHybrid        = "hybrid"
)

// Request is a recommendation request at the facade boundary.
type Request struct {
	UserID    string            `json:"user_id"`
	Limit     int               `json:"limit"`
	Algorithm string            `json:"algorithm"`
	Filters   store.TaskFilters `json:"filters"`
}

// Normalize fills defaults and canonicalizes the filter strings.
// Validation happens separately in the facade.
func (r *Request) Normalize() {
	if r.Algorithm == "" {
		r.Algorithm = AlgorithmHybrid
	}
	r.Algorithm = strings.ToLower(strings.TrimSpace(r.Algorithm))
	r.Filters.TaskType = strings.ToLower(strings.TrimSpace(r.Filters.TaskType))
	r.Filters.Location = strings.TrimSpace(r.Filters.Location)
	r.Filters.Keyword = strings.ToLower(strings.TrimSpace(r.Filters.Keyword))
}

// KnownAlgorithm reports whether the requested algorithm is supported.
func (r *Request) KnownAlgorithm() bool {
	switch r.Algorithm {
	case AlgorithmContent, AlgorithmCollaborative, AlgorithmHybrid:
		return true
	}
	return false
}

// Item is one recommended task with its fused score and reason.
type Item struct {
	Task   models.Task `json:"task"`
	Score  float64     `json:"score"`
	Reason string      `json:"reason"`
	// TopScorer names the scorer that contributed most to the fused
	// score. Recorded in feedback rows for the offline optimizer.
	TopScorer string `json:"top_scorer,omitempty"`
}

// Response is an ordered recommendation result.
type Response struct {
	RecommendationID string    `json:"recommendation_id"`
	UserID           string    `json:"user_id"`
	Algorithm        string    `json:"algorithm"`
	Items            []Item    `json:"items"`
	Fallback         bool      `json:"fallback"`
	GeneratedAt      time.Time `json:"generated_at"`
}
