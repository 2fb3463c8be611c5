// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package behavior

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/metrics"
)

// refreshTopic carries preference-refresh jobs from the tracker to the
// worker. The payload is the bare user id.
const refreshTopic = "preference.refresh"

// Refresher rebuilds and persists a user's preference vector.
// Implemented by prefs.Vectorizer.
type Refresher interface {
	Refresh(ctx context.Context, userID string) error
}

// RefreshQueueOptions tunes the queue. Zero values take defaults.
type RefreshQueueOptions struct {
	// MaxDepth bounds pending jobs. Beyond it new jobs are dropped;
	// the next qualifying event for the user re-enqueues.
	MaxDepth int
}

// RefreshQueue is a bounded in-process job queue with latest-wins
// collapsing per user: while a user's refresh is pending, further
// enqueues for the same user are dropped as duplicates. A job in
// flight does not suppress re-enqueueing, so an event arriving during
// a rebuild still triggers a fresh one.
type RefreshQueue struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	depth   int
	closed  bool

	maxDepth int
}

// NewRefreshQueue creates the queue.
func NewRefreshQueue(opts RefreshQueueOptions, logger zerolog.Logger) *RefreshQueue {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 1024
	}
	l := logger.With().Str("component", "refresh_queue").Logger()
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(opts.MaxDepth),
	}, newWatermillLogger(l))
	return &RefreshQueue{
		pubsub:   pubsub,
		logger:   l,
		pending:  make(map[string]struct{}),
		maxDepth: opts.MaxDepth,
	}
}

// Enqueue schedules a refresh for the user. Never blocks the caller
// beyond the in-memory publish.
func (q *RefreshQueue) Enqueue(userID string) {
	if userID == "" {
		return
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if _, dup := q.pending[userID]; dup {
		q.mu.Unlock()
		metrics.RefreshDropped.Inc()
		return
	}
	if q.depth >= q.maxDepth {
		q.mu.Unlock()
		metrics.RefreshDropped.Inc()
		q.logger.Warn().Str("user_id", userID).Msg("refresh queue full, job dropped")
		return
	}
	q.pending[userID] = struct{}{}
	q.depth++
	metrics.RefreshQueueDepth.Set(float64(q.depth))
	q.mu.Unlock()

	msg := message.NewMessage(watermill.NewUUID(), []byte(userID))
	if err := q.pubsub.Publish(refreshTopic, msg); err != nil {
		q.dequeue(userID)
		q.logger.Warn().Err(err).Str("user_id", userID).Msg("refresh publish failed")
	}
}

// dequeue marks the user's job as taken, re-opening the collapse
// window for subsequent events.
func (q *RefreshQueue) dequeue(userID string) {
	q.mu.Lock()
	if _, ok := q.pending[userID]; ok {
		delete(q.pending, userID)
		q.depth--
		metrics.RefreshQueueDepth.Set(float64(q.depth))
	}
	q.mu.Unlock()
}

// Depth returns the number of pending jobs.
func (q *RefreshQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depth
}

// Close shuts the queue down. Pending jobs are discarded.
func (q *RefreshQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return q.pubsub.Close()
}

// RefreshWorker consumes the queue and rebuilds vectors. It is run
// under the supervisor tree.
type RefreshWorker struct {
	queue   *RefreshQueue
	prefs   Refresher
	timeout time.Duration
	logger  zerolog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// NewRefreshWorker creates the worker. timeout bounds a single rebuild;
// zero means 30 seconds.
func NewRefreshWorker(queue *RefreshQueue, prefs Refresher, timeout time.Duration, logger zerolog.Logger) *RefreshWorker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RefreshWorker{
		queue:   queue,
		prefs:   prefs,
		timeout: timeout,
		logger:  logger.With().Str("service", "refresh_worker").Logger(),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the worker is subscribed. Jobs enqueued before
// that point are lost, so callers wanting delivery guarantees wait for
// it during startup.
func (w *RefreshWorker) Ready() <-chan struct{} { return w.ready }

// Serve implements suture.Service. A failed rebuild is logged and not
// retried here; the next qualifying event re-enqueues the user.
func (w *RefreshWorker) Serve(ctx context.Context) error {
	msgs, err := w.queue.pubsub.Subscribe(ctx, refreshTopic)
	if err != nil {
		return err
	}
	w.readyOnce.Do(func() { close(w.ready) })
	w.logger.Info().Msg("refresh worker running")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("refresh worker shutting down")
			return ctx.Err()

		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			userID := string(msg.Payload)
			w.queue.dequeue(userID)
			w.refreshOne(ctx, userID)
			msg.Ack()
		}
	}
}

func (w *RefreshWorker) refreshOne(ctx context.Context, userID string) {
	rctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	if err := w.prefs.Refresh(rctx, userID); err != nil {
		w.logger.Warn().Err(err).Str("user_id", userID).Msg("preference refresh failed")
		return
	}
	w.logger.Debug().
		Str("user_id", userID).
		Dur("duration", time.Since(start)).
		Msg("preference vector refreshed")
}

// String returns the service name for supervisor logging.
func (w *RefreshWorker) String() string { return "refresh-worker" }
