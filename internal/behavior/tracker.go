// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

// Package behavior ingests user-task interaction events and drives the
// downstream consequences of qualifying ones: synchronous cache
// invalidation and an asynchronous preference refresh. The ingest path
// is fire-and-forget at the public edge; no write failure ever reaches
// the caller.
package behavior

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/metrics"
	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store"
)

// Invalidator removes cache entries made stale by a qualifying event.
// Implemented by the recommendation facade.
type Invalidator interface {
	// InvalidateUser drops the user's recommendation results, exclusion
	// set, and preference vector.
	InvalidateUser(ctx context.Context, userID string)

	// InvalidateExclusions drops only the user's exclusion set.
	InvalidateExclusions(ctx context.Context, userID string)
}

// Enqueuer schedules an asynchronous preference refresh for a user.
type Enqueuer interface {
	Enqueue(userID string)
}

// Event is one interaction posted by an upstream surface.
type Event struct {
	UserID          string
	TaskID          int64
	Kind            models.EventKind
	DurationSeconds int
	DeviceType      string
	Metadata        models.Metadata
	IsRecommended   bool

	// RecommendationID ties the event back to a served recommendation.
	// Set only when the surface shows a recommended item.
	RecommendationID string
	// TopScorer echoes the dominant scorer of the served item, used by
	// the offline optimizer to attribute clicks and accepts.
	TopScorer string
}

// Tracker records interaction events. Writes are absorbed: a missing
// task, an ineligible user, or a store failure drops the event with a
// log line and a metric, never an error.
type Tracker struct {
	behavior store.BehaviorStore
	tasks    store.TaskReader
	users    store.UserReader
	feedback store.FeedbackStore
	inval    Invalidator
	refresh  Enqueuer
	logger   zerolog.Logger
}

// NewTracker wires a tracker. feedback, inval, and refresh may be nil
// when the corresponding consequence is not needed (tests, offline
// tooling).
func NewTracker(
	behavior store.BehaviorStore,
	tasks store.TaskReader,
	users store.UserReader,
	feedback store.FeedbackStore,
	inval Invalidator,
	refresh Enqueuer,
	logger zerolog.Logger,
) *Tracker {
	return &Tracker{
		behavior: behavior,
		tasks:    tasks,
		users:    users,
		feedback: feedback,
		inval:    inval,
		refresh:  refresh,
		logger:   logger.With().Str("component", "behavior").Logger(),
	}
}

// Record ingests one event. Once validation passes the event is either
// persisted or discarded with a log line; the caller is never told
// which.
func (t *Tracker) Record(ctx context.Context, ev Event) {
	if !ev.Kind.Valid() {
		t.drop(ev, "unknown kind")
		return
	}
	if ev.UserID == "" || ev.TaskID <= 0 {
		t.drop(ev, "missing user or task id")
		return
	}

	user, err := t.users.GetUser(ctx, ev.UserID)
	if err != nil {
		t.drop(ev, "user lookup failed")
		return
	}
	if !user.Eligible() {
		t.drop(ev, "user not eligible")
		return
	}
	if _, err := t.tasks.GetTask(ctx, ev.TaskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			t.drop(ev, "task does not exist")
		} else {
			t.drop(ev, "task lookup failed")
		}
		return
	}

	now := time.Now().UTC()
	row := models.InteractionEvent{
		UserID:          ev.UserID,
		TaskID:          ev.TaskID,
		Kind:            ev.Kind,
		Timestamp:       now,
		DurationSeconds: ev.DurationSeconds,
		DeviceType:      ev.DeviceType,
		Metadata:        ev.Metadata,
		IsRecommended:   ev.IsRecommended,
	}

	disposition := "appended"
	if ev.Kind.Coalesced() {
		row.EventDate = models.DateKey(now)
		coalesced, err := t.behavior.UpsertDaily(ctx, &row)
		if err != nil {
			t.drop(ev, "upsert failed")
			return
		}
		if coalesced {
			disposition = "coalesced"
		}
	} else {
		if err := t.behavior.Append(ctx, &row); err != nil {
			t.drop(ev, "append failed")
			return
		}
	}
	metrics.EventsRecorded.WithLabelValues(string(ev.Kind), disposition).Inc()

	t.recordFeedback(ctx, ev, now)
	t.afterRecord(ctx, ev)
}

// afterRecord applies the cache and refresh consequences of the event.
// Invalidation is synchronous: by the time Record returns, stale
// entries are gone.
func (t *Tracker) afterRecord(ctx context.Context, ev Event) {
	switch {
	case ev.Kind.Qualifying():
		if t.inval != nil {
			t.inval.InvalidateUser(ctx, ev.UserID)
		}
		if t.refresh != nil {
			t.refresh.Enqueue(ev.UserID)
		}
	case ev.Kind == models.EventApply:
		if t.inval != nil {
			t.inval.InvalidateExclusions(ctx, ev.UserID)
		}
	}
}

// recordFeedback attributes click/accept outcomes to the serving
// recommendation for the optimizer. Best-effort.
func (t *Tracker) recordFeedback(ctx context.Context, ev Event, now time.Time) {
	if t.feedback == nil || ev.RecommendationID == "" {
		return
	}
	if ev.Kind != models.EventClick && ev.Kind != models.EventAccept {
		return
	}
	fb := models.RecommendationFeedback{
		RecommendationID: ev.RecommendationID,
		UserID:           ev.UserID,
		TaskID:           ev.TaskID,
		TopScorer:        ev.TopScorer,
		Clicked:          ev.Kind == models.EventClick,
		Accepted:         ev.Kind == models.EventAccept,
		CreatedAt:        now,
	}
	if err := t.feedback.AppendFeedback(ctx, &fb); err != nil {
		t.logger.Warn().Err(err).
			Str("recommendation_id", ev.RecommendationID).
			Msg("feedback append failed")
	}
}

func (t *Tracker) drop(ev Event, why string) {
	metrics.EventsRecorded.WithLabelValues(string(ev.Kind), "dropped").Inc()
	t.logger.Debug().
		Str("user_id", ev.UserID).
		Int64("task_id", ev.TaskID).
		Str("kind", string(ev.Kind)).
		Str("reason", why).
		Msg("event dropped")
}

// UserInteractions returns the user's events, newest first. kind empty
// means any kind; limit <= 0 means no limit.
func (t *Tracker) UserInteractions(ctx context.Context, userID string, kind models.EventKind, limit int) ([]models.InteractionEvent, error) {
	return t.behavior.EventsByUser(ctx, userID, kind, time.Time{}, limit)
}

// TaskInteractions returns the task's events, newest first.
func (t *Tracker) TaskInteractions(ctx context.Context, taskID int64, kind models.EventKind) ([]models.InteractionEvent, error) {
	return t.behavior.EventsByTask(ctx, taskID, kind, time.Time{})
}
