// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

// Package prefs builds weighted per-user preference vectors from declared
// preferences and recent task history.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/openmarket/taskfeed/internal/cache"
	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store"
)

// topKeywordsPerTask bounds the keyword overlay contributed by one task.
const topKeywordsPerTask = 5

// Vector is the four-field weighted preference representation of a user.
// Each field is independently normalized to sum at most 1.
type Vector struct {
	TaskTypes  map[string]float64 `json:"task_types"`
	Locations  map[string]float64 `json:"locations"`
	TaskLevels map[string]float64 `json:"task_levels"`
	Keywords   map[string]float64 `json:"keywords"`
}

// NewVector returns an empty vector with all fields allocated.
func NewVector() *Vector {
	return &Vector{
		TaskTypes:  make(map[string]float64),
		Locations:  make(map[string]float64),
		TaskLevels: make(map[string]float64),
		Keywords:   make(map[string]float64),
	}
}

// Empty reports whether no field carries any weight.
func (v *Vector) Empty() bool {
	return len(v.TaskTypes) == 0 && len(v.Locations) == 0 &&
		len(v.TaskLevels) == 0 && len(v.Keywords) == 0
}

// Vectorizer derives user vectors and maintains the learned overlay.
// Concurrent derivations for the same user collapse through singleflight;
// the overlay write is an idempotent overwrite, so the preference store
// stays single-writer per user.
type Vectorizer struct {
	prefs    store.PreferenceStore
	history  store.HistoryReader
	tasks    store.TaskReader
	cache    cache.Cache
	ttl      time.Duration
	horizon  time.Duration
	halfLife time.Duration
	group    singleflight.Group
	logger   zerolog.Logger
}

// Options configures a Vectorizer.
type Options struct {
	CacheTTL time.Duration // per-user vector cache TTL
	Horizon  time.Duration // history lookback
	HalfLife time.Duration // age-decay half-life
}

// NewVectorizer creates a Vectorizer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewVectorizer(prefs store.PreferenceStore, history store.HistoryReader, tasks store.TaskReader, c cache.Cache, opts Options, logger zerolog.Logger) *Vectorizer {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 600 * time.Second
	}
	if opts.Horizon <= 0 {
		opts.Horizon = 90 * 24 * time.Hour
	}
	if opts.HalfLife <= 0 {
		opts.HalfLife = 30 * 24 * time.Hour
	}
	return &Vectorizer{
		prefs:    prefs,
		history:  history,
		tasks:    tasks,
		cache:    c,
		ttl:      opts.CacheTTL,
		horizon:  opts.Horizon,
		halfLife: opts.HalfLife,
		logger:   logger.With().Str("component", "prefs").Logger(),
	}
}

// Vector returns the user's preference vector, from cache when possible.
func (v *Vectorizer) Vector(ctx context.Context, userID string) (*Vector, error) {
	key := cache.Key(cache.NSVector, userID)
	if raw, ok := v.cache.Get(ctx, key); ok {
		var vec Vector
		if err := json.Unmarshal(raw, &vec); err == nil {
			v.cache.TrackAccess(cache.NSVector, userID)
			return &vec, nil
		}
	}

	res, err, _ := v.group.Do(userID, func() (any, error) {
		vec, err := v.Build(ctx, userID, time.Now())
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(vec); err == nil {
			v.cache.Set(ctx, key, raw, v.ttl)
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*Vector), nil
}

// Build derives the vector from scratch: declared preferences seed each
// field at weight 1.0, then accepted/completed tasks within the horizon
// overlay their attributes with age-decayed weight, and each field is
// normalized independently.
func (v *Vectorizer) Build(ctx context.Context, userID string, now time.Time) (*Vector, error) {
	vec := NewVector()

	declared, err := v.prefs.GetPreferences(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	if declared != nil {
		seed(vec.TaskTypes, declared.TaskTypes)
		seed(vec.Locations, declared.Locations)
		seed(vec.TaskLevels, declared.TaskLevels)
		seed(vec.Keywords, declared.Keywords)
	}

	if err := v.overlayHistory(ctx, userID, now, vec); err != nil {
		// History failures degrade to the declared-only vector.
		v.logger.Warn().Err(err).Str("user_id", userID).Msg("history overlay failed")
	}

	normalize(vec.TaskTypes)
	normalize(vec.Locations)
	normalize(vec.TaskLevels)
	normalize(vec.Keywords)
	return vec, nil
}

func (v *Vectorizer) overlayHistory(ctx context.Context, userID string, now time.Time, vec *Vector) error {
	rows, err := v.history.HistoryByUser(ctx, userID, now.Add(-v.horizon))
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	for _, h := range rows {
		if h.Action != models.HistoryAccepted && h.Action != models.HistoryCompleted {
			continue
		}
		task, err := v.tasks.GetTask(ctx, h.TaskID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return fmt.Errorf("load task %d: %w", h.TaskID, err)
		}

		w := v.decay(now.Sub(h.Timestamp))
		vec.TaskTypes[string(task.Type)] += w
		if task.Location != "" {
			vec.Locations[strings.ToLower(task.Location)] += w
		}
		if task.Level != "" {
			vec.TaskLevels[task.Level] += w
		}
		for _, kw := range TopKeywords(task.Title+" "+task.Description, topKeywordsPerTask) {
			vec.Keywords[kw] += w
		}
	}
	return nil
}

// decay halves a contribution every halfLife of age.
func (v *Vectorizer) decay(age time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(v.halfLife))
}

// Refresh recomputes the user's vector, persists the learned overlay, and
// refreshes the cache. Called by the behavior worker on accept/complete.
func (v *Vectorizer) Refresh(ctx context.Context, userID string) error {
	vec, err := v.Build(ctx, userID, time.Now())
	if err != nil {
		return fmt.Errorf("build vector: %w", err)
	}

	overlay := models.WeightedFields{
		"task_types":  vec.TaskTypes,
		"locations":   vec.Locations,
		"task_levels": vec.TaskLevels,
		"keywords":    vec.Keywords,
	}
	if err := v.prefs.UpsertLearned(ctx, userID, overlay); err != nil {
		return fmt.Errorf("persist overlay: %w", err)
	}

	key := cache.Key(cache.NSVector, userID)
	if raw, err := json.Marshal(vec); err == nil {
		v.cache.Set(ctx, key, raw, v.ttl)
	}
	return nil
}

// Invalidate drops the user's cached vector.
func (v *Vectorizer) Invalidate(ctx context.Context, userID string) {
	v.cache.Delete(ctx, cache.Key(cache.NSVector, userID))
}

func seed(field map[string]float64, declared models.StringList) {
	for _, item := range declared {
		if item == "" {
			continue
		}
		field[strings.ToLower(item)] = 1.0
	}
}

// normalize scales a field so its weights sum to at most 1.
func normalize(field map[string]float64) {
	var sum float64
	for _, w := range field {
		sum += w
	}
	if sum <= 1 {
		return
	}
	for k, w := range field {
		field[k] = w / sum
	}
}
