// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package scorers

import (
	"strings"

	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/prefs"
)

// Content scores a task against the user's preference vector.
//
// Each task attribute group (type, keywords, location, level) is looked
// up in the corresponding vector field and the matched weights are
// combined:
//
//	score = w_type * match(types) + w_keyword * match(keywords) +
//	        w_location * match(locations) + w_level * match(levels)
//
// Vector fields sum to at most 1 and the component weights are
// normalized, so the score is bounded to [0, 1]. Equal-scoring tasks are
// ordered downstream by the ranker's deterministic sort.
type Content struct {
	typeWeight     float64
	keywordWeight  float64
	locationWeight float64
	levelWeight    float64
}

// ContentConfig contains configuration for the content scorer.
type ContentConfig struct {
	TypeWeight     float64
	KeywordWeight  float64
	LocationWeight float64
	LevelWeight    float64
}

// NewContent creates a content scorer.
func NewContent(cfg ContentConfig) *Content {
	if cfg.TypeWeight == 0 {
		cfg.TypeWeight = 0.4
	}
	if cfg.KeywordWeight == 0 {
		cfg.KeywordWeight = 0.3
	}
	if cfg.LocationWeight == 0 {
		cfg.LocationWeight = 0.2
	}
	if cfg.LevelWeight == 0 {
		cfg.LevelWeight = 0.1
	}

	total := cfg.TypeWeight + cfg.KeywordWeight + cfg.LocationWeight + cfg.LevelWeight
	if total > 0 {
		cfg.TypeWeight /= total
		cfg.KeywordWeight /= total
		cfg.LocationWeight /= total
		cfg.LevelWeight /= total
	}

	return &Content{
		typeWeight:     cfg.TypeWeight,
		keywordWeight:  cfg.KeywordWeight,
		locationWeight: cfg.LocationWeight,
		levelWeight:    cfg.LevelWeight,
	}
}

// Name returns the scorer identifier.
func (c *Content) Name() string { return NameContent }

// Score computes the preference similarity for one task.
func (c *Content) Score(in Input) (Result, error) {
	vec := in.Vector
	if vec == nil || vec.Empty() {
		return Result{}, nil
	}

	var score float64
	score += c.typeWeight * vec.TaskTypes[string(in.Task.Type)]

	if in.Task.Location != "" {
		score += c.locationWeight * vec.Locations[strings.ToLower(in.Task.Location)]
	}
	if in.Task.Level != "" {
		score += c.levelWeight * vec.TaskLevels[in.Task.Level]
	}

	var kwMatch float64
	for _, kw := range taskKeywords(in.Task) {
		kwMatch += vec.Keywords[kw]
	}
	score += c.keywordWeight * clamp(kwMatch)

	return Result{Value: clamp(score)}, nil
}

// taskKeywords derives the keyword feature set for a task.
func taskKeywords(t models.Task) []string {
	return prefs.TopKeywords(t.Title+" "+t.Description, topTaskKeywords)
}

const topTaskKeywords = 5
