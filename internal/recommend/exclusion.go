// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package recommend

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/openmarket/taskfeed/internal/cache"
	"github.com/openmarket/taskfeed/internal/metrics"
	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store"
)

// exclusionStatuses are the participant states that block a task from
// being recommended back to the participant.
var exclusionStatuses = []models.ParticipantStatus{
	models.ParticipantAccepted,
	models.ParticipantInProgress,
	models.ParticipantCompleted,
}

// exclusionActions are the history actions that block a task.
var exclusionActions = []models.HistoryAction{
	models.HistoryAccepted,
	models.HistoryCompleted,
}

// ExclusionSet is the per-user set of task ids that must never appear
// in a recommendation response.
//
// When Predicate is true the set exceeded the soft bound: callers must
// push the exclusion into the store as an anti-join on the user id
// instead of serializing IDs into the query.
type ExclusionSet struct {
	IDs       []int64 `json:"ids"`
	Predicate bool    `json:"predicate"`
}

// Contains reports whether the task id is excluded client-side.
func (s ExclusionSet) Contains(taskID int64) bool {
	for _, id := range s.IDs {
		if id == taskID {
			return true
		}
	}
	return false
}

// ExclusionBuilder computes exclusion sets from five sources: tasks the
// user posted, took, applied to, completed per history, or participates
// in. Results are cached per user; concurrent builds for the same user
// collapse through singleflight.
type ExclusionBuilder struct {
	tasks     store.TaskReader
	history   store.HistoryReader
	cache     cache.Cache
	ttl       time.Duration
	softBound int
	group     singleflight.Group
	logger    zerolog.Logger
}

// ExclusionOptions configures an ExclusionBuilder.
type ExclusionOptions struct {
	CacheTTL  time.Duration
	SoftBound int
}

// NewExclusionBuilder creates an ExclusionBuilder.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewExclusionBuilder(tasks store.TaskReader, history store.HistoryReader, c cache.Cache, opts ExclusionOptions, logger zerolog.Logger) *ExclusionBuilder {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 300 * time.Second
	}
	if opts.SoftBound <= 0 {
		opts.SoftBound = 1000
	}
	return &ExclusionBuilder{
		tasks:     tasks,
		history:   history,
		cache:     c,
		ttl:       opts.CacheTTL,
		softBound: opts.SoftBound,
		logger:    logger.With().Str("component", "exclusion").Logger(),
	}
}

// Build returns the user's exclusion set. Store failures degrade to an
// empty permissive set with a warning; Build never fails the request.
func (b *ExclusionBuilder) Build(ctx context.Context, userID string) ExclusionSet {
	key := cache.Key(cache.NSExclusion, userID)
	if raw, ok := b.cache.Get(ctx, key); ok {
		var set ExclusionSet
		if err := json.Unmarshal(raw, &set); err == nil {
			metrics.CacheHits.WithLabelValues(cache.NSExclusion).Inc()
			return set
		}
	}
	metrics.CacheMisses.WithLabelValues(cache.NSExclusion).Inc()

	res, _, _ := b.group.Do(userID, func() (any, error) {
		set := b.build(ctx, userID)
		if raw, err := json.Marshal(set); err == nil {
			b.cache.Set(ctx, key, raw, b.ttl)
		}
		return set, nil
	})
	return res.(ExclusionSet)
}

func (b *ExclusionBuilder) build(ctx context.Context, userID string) ExclusionSet {
	union := make(map[int64]struct{})

	sources := []struct {
		name string
		load func() ([]int64, error)
	}{
		{"posted", func() ([]int64, error) { return b.tasks.TasksPostedBy(ctx, userID) }},
		{"taken", func() ([]int64, error) { return b.tasks.TasksTakenBy(ctx, userID) }},
		{"applied", func() ([]int64, error) { return b.tasks.ApplicationsBy(ctx, userID) }},
		{"history", func() ([]int64, error) { return b.history.HistoryTaskIDs(ctx, userID, exclusionActions) }},
		{"participant", func() ([]int64, error) { return b.tasks.ParticipantTasks(ctx, userID, exclusionStatuses) }},
	}

	for _, src := range sources {
		ids, err := src.load()
		if err != nil {
			// Permissive on store failure: an empty set blocks nothing.
			b.logger.Warn().Err(err).Str("user_id", userID).Str("source", src.name).
				Msg("exclusion source unavailable, returning permissive set")
			return ExclusionSet{}
		}
		for _, id := range ids {
			if id <= 0 {
				b.logger.Warn().Int64("task_id", id).Str("source", src.name).
					Msg("invalid task id in exclusion source, ignored")
				continue
			}
			union[id] = struct{}{}
		}
	}

	metrics.ExclusionSetSize.Observe(float64(len(union)))

	if len(union) > b.softBound {
		// Too large to serialize into queries; switch to the anti-join
		// predicate path keyed on the user id.
		return ExclusionSet{Predicate: true}
	}

	set := ExclusionSet{IDs: make([]int64, 0, len(union))}
	for id := range union {
		set.IDs = append(set.IDs, id)
	}
	return set
}

// Invalidate drops the user's cached exclusion set.
func (b *ExclusionBuilder) Invalidate(ctx context.Context, userID string) {
	b.cache.Delete(ctx, cache.Key(cache.NSExclusion, userID))
}
