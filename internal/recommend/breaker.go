// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store"
)

// BreakerOptions configures the task-store circuit breaker.
type BreakerOptions struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker.
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
}

// BreakerTaskReader wraps a TaskReader with a circuit breaker so a
// failing task store stops absorbing request latency. While the breaker
// is open every read fails fast with gobreaker.ErrOpenState.
type BreakerTaskReader struct {
	inner store.TaskReader
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerTaskReader wraps the given reader.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBreakerTaskReader(inner store.TaskReader, opts BreakerOptions, logger zerolog.Logger) *BreakerTaskReader {
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	log := logger.With().Str("component", "task_store_breaker").Logger()

	settings := gobreaker.Settings{
		Name:    "task-store",
		Timeout: opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).
				Msg("task store breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// Not-found and caller cancellation are healthy outcomes.
			return err == nil ||
				errors.Is(err, store.ErrNotFound) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
	}

	return &BreakerTaskReader{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[any](settings),
	}
}

// BreakerOpen reports whether err means the breaker rejected the call.
func BreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (r *BreakerTaskReader) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	v, err := r.cb.Execute(func() (any, error) { return r.inner.GetTask(ctx, id) })
	if err != nil {
		return nil, err
	}
	return v.(*models.Task), nil
}

func (r *BreakerTaskReader) QueryCandidates(ctx context.Context, q store.CandidateQuery) ([]models.Task, error) {
	v, err := r.cb.Execute(func() (any, error) { return r.inner.QueryCandidates(ctx, q) })
	if err != nil {
		return nil, err
	}
	return v.([]models.Task), nil
}

func (r *BreakerTaskReader) TasksPostedBy(ctx context.Context, userID string) ([]int64, error) {
	return r.ids(func() ([]int64, error) { return r.inner.TasksPostedBy(ctx, userID) })
}

func (r *BreakerTaskReader) TasksTakenBy(ctx context.Context, userID string) ([]int64, error) {
	return r.ids(func() ([]int64, error) { return r.inner.TasksTakenBy(ctx, userID) })
}

func (r *BreakerTaskReader) ApplicationsBy(ctx context.Context, userID string) ([]int64, error) {
	return r.ids(func() ([]int64, error) { return r.inner.ApplicationsBy(ctx, userID) })
}

func (r *BreakerTaskReader) ParticipantTasks(ctx context.Context, userID string, statuses []models.ParticipantStatus) ([]int64, error) {
	return r.ids(func() ([]int64, error) { return r.inner.ParticipantTasks(ctx, userID, statuses) })
}

func (r *BreakerTaskReader) ids(load func() ([]int64, error)) ([]int64, error) {
	v, err := r.cb.Execute(func() (any, error) { return load() })
	if err != nil {
		return nil, err
	}
	return v.([]int64), nil
}

var _ store.TaskReader = (*BreakerTaskReader)(nil)
