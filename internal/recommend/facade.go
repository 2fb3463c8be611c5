// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package recommend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/cache"
	"github.com/openmarket/taskfeed/internal/metrics"
	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/prefs"
	"github.com/openmarket/taskfeed/internal/recommend/scorers"
	"github.com/openmarket/taskfeed/internal/store"
)

// FacadeOptions configures the Facade.
type FacadeOptions struct {
	// HardMaxLimit caps the per-request limit.
	HardMaxLimit int
	// ResultTTL is the recommendation result cache TTL.
	ResultTTL time.Duration
}

// Facade is the public entry point of the recommendation pipeline.
type Facade struct {
	users      store.UserReader
	tasks      store.TaskReader
	cache      cache.Cache
	exclusions *ExclusionBuilder
	vectorizer *prefs.Vectorizer
	engine     *Engine
	fallback   *Fallback
	config     *ConfigHolder
	content    *scorers.Content
	opts       FacadeOptions
	logger     zerolog.Logger
}

// NewFacade creates a Facade. tasks should be the breaker-wrapped
// reader so the whole read path shares one breaker.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewFacade(
	users store.UserReader,
	tasks store.TaskReader,
	c cache.Cache,
	exclusions *ExclusionBuilder,
	vectorizer *prefs.Vectorizer,
	engine *Engine,
	fallback *Fallback,
	config *ConfigHolder,
	content *scorers.Content,
	opts FacadeOptions,
	logger zerolog.Logger,
) *Facade {
	if opts.HardMaxLimit <= 0 {
		opts.HardMaxLimit = 50
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = 300 * time.Second
	}
	return &Facade{
		users:      users,
		tasks:      tasks,
		cache:      c,
		exclusions: exclusions,
		vectorizer: vectorizer,
		engine:     engine,
		fallback:   fallback,
		config:     config,
		content:    content,
		opts:       opts,
		logger:     logger.With().Str("component", "facade").Logger(),
	}
}

// Recommend serves one recommendation request.
func (f *Facade) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	req.Normalize()

	user, err := f.validate(ctx, &req)
	if err != nil {
		metrics.ObserveRecommend(req.Algorithm, "error", start)
		return nil, err
	}

	key := f.resultKey(req)
	if resp := f.cachedResponse(ctx, key, req.UserID); resp != nil {
		metrics.ObserveRecommend(req.Algorithm, "cached", start)
		return resp, nil
	}

	snap := f.config.Current()
	excl := f.exclusions.Build(ctx, req.UserID)
	vec := f.userVector(ctx, req.UserID)

	items, rankErr := f.engine.Rank(ctx, req, user, vec, excl, snap)
	usedFallback := false
	if rankErr != nil || len(items) == 0 {
		var err error
		items, err = f.runFallback(ctx, req, excl, rankErr)
		if err != nil {
			metrics.ObserveRecommend(req.Algorithm, "error", start)
			return nil, err
		}
		usedFallback = true
	}

	items = Diversify(items, req.Limit, snap.DiversityThreshold)

	resp := &Response{
		RecommendationID: uuid.NewString(),
		UserID:           req.UserID,
		Algorithm:        req.Algorithm,
		Items:            items,
		Fallback:         usedFallback,
		GeneratedAt:      time.Now().UTC(),
	}

	// A cancelled request must not publish a partial result.
	if ctx.Err() == nil {
		if raw, err := json.Marshal(resp); err == nil {
			f.cache.Set(ctx, key, raw, f.opts.ResultTTL)
		}
	}

	outcome := "ok"
	if usedFallback {
		outcome = "fallback"
	}
	metrics.ObserveRecommend(req.Algorithm, outcome, start)
	return resp, nil
}

// MatchScore computes the content-scorer similarity between one user
// and one task, for per-task match badges.
func (f *Facade) MatchScore(ctx context.Context, userID string, taskID int64) (float64, error) {
	if _, err := f.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUnknownUser
		}
		return 0, ErrTemporaryUnavailable
	}

	task, err := f.tasks.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUnknownTask
		}
		return 0, ErrTemporaryUnavailable
	}

	vec := f.userVector(ctx, userID)
	res, err := f.content.Score(scorers.Input{Task: *task, Vector: vec, Now: time.Now().UTC()})
	if err != nil {
		return 0, fmt.Errorf("content score: %w", err)
	}
	return res.Value, nil
}

// InvalidateUser drops every cache entry that a qualifying event makes
// stale: the user's recommendation results, exclusion set, and
// preference vector. Called synchronously by the behavior tracker.
func (f *Facade) InvalidateUser(ctx context.Context, userID string) {
	f.cache.DeletePattern(ctx, cache.UserPattern(cache.NSRecommendation, userID))
	f.exclusions.Invalidate(ctx, userID)
	f.vectorizer.Invalidate(ctx, userID)
}

// InvalidateExclusions drops only the user's cached exclusion set. Used
// on apply events, which change what must be hidden but not what the
// user prefers.
func (f *Facade) InvalidateExclusions(ctx context.Context, userID string) {
	f.exclusions.Invalidate(ctx, userID)
}

func (f *Facade) validate(ctx context.Context, req *Request) (*models.User, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrBadRequest)
	}
	if req.Limit < 1 || req.Limit > f.opts.HardMaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrBadRequest, f.opts.HardMaxLimit)
	}
	if !req.KnownAlgorithm() {
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrBadRequest, req.Algorithm)
	}

	user, err := f.users.GetUser(ctx, req.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, ErrTemporaryUnavailable
	}
	if !user.Eligible() {
		return nil, ErrUserNotEligible
	}
	return user, nil
}

// resultKey builds the cache key for a normalized request.
func (f *Facade) resultKey(req Request) string {
	filters := req.Filters.TaskType + "|" + req.Filters.Location + "|" + req.Filters.Keyword
	return cache.Key(cache.NSRecommendation, req.UserID, req.Algorithm,
		strconv.Itoa(req.Limit), filters)
}

func (f *Facade) cachedResponse(ctx context.Context, key, userID string) *Response {
	raw, ok := f.cache.Get(ctx, key)
	if !ok {
		metrics.CacheMisses.WithLabelValues(cache.NSRecommendation).Inc()
		return nil
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		metrics.CacheMisses.WithLabelValues(cache.NSRecommendation).Inc()
		return nil
	}
	metrics.CacheHits.WithLabelValues(cache.NSRecommendation).Inc()
	f.cache.TrackAccess(cache.NSRecommendation, userID)
	return &resp
}

// userVector loads the preference vector, degrading to an empty vector
// when derivation fails.
func (f *Facade) userVector(ctx context.Context, userID string) *prefs.Vector {
	vec, err := f.vectorizer.Vector(ctx, userID)
	if err != nil {
		f.logger.Warn().Err(err).Str("user_id", userID).Msg("vector derivation failed, using empty vector")
		return prefs.NewVector()
	}
	return vec
}

// runFallback invokes the degraded ranker, classifying the cause for
// metrics. A fallback failure with the task store down surfaces as
// temporary unavailability.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (f *Facade) runFallback(ctx context.Context, req Request, excl ExclusionSet, rankErr error) ([]Item, error) {
	cause := "empty"
	switch {
	case BreakerOpen(rankErr):
		cause = "breaker_open"
	case rankErr != nil:
		cause = "engine_error"
	}
	metrics.FallbackInvocations.WithLabelValues(cause).Inc()
	if rankErr != nil {
		f.logger.Warn().Err(rankErr).Str("user_id", req.UserID).Msg("engine failed, using fallback ranker")
	}

	items, err := f.fallback.Rank(ctx, req, excl)
	if err != nil {
		return nil, ErrTemporaryUnavailable
	}
	return items, nil
}
