// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package behavior

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingRefresher struct {
	mu    sync.Mutex
	users []string
	seen  chan string
}

func newRecordingRefresher() *recordingRefresher {
	return &recordingRefresher{seen: make(chan string, 64)}
}

func (r *recordingRefresher) Refresh(_ context.Context, userID string) error {
	r.mu.Lock()
	r.users = append(r.users, userID)
	r.mu.Unlock()
	r.seen <- userID
	return nil
}

func (r *recordingRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func TestQueueCollapsesDuplicates(t *testing.T) {
	q := NewRefreshQueue(RefreshQueueOptions{MaxDepth: 8}, zerolog.Nop())
	defer q.Close()

	q.Enqueue("u1")
	q.Enqueue("u1")
	q.Enqueue("u1")
	q.Enqueue("u2")

	if got := q.Depth(); got != 2 {
		t.Errorf("Depth() = %d, want 2 (duplicates collapsed)", got)
	}
}

func TestQueueBoundedDepth(t *testing.T) {
	q := NewRefreshQueue(RefreshQueueOptions{MaxDepth: 2}, zerolog.Nop())
	defer q.Close()

	q.Enqueue("u1")
	q.Enqueue("u2")
	q.Enqueue("u3")

	if got := q.Depth(); got != 2 {
		t.Errorf("Depth() = %d, want 2 (overflow dropped)", got)
	}
}

func TestWorkerProcessesJobs(t *testing.T) {
	q := NewRefreshQueue(RefreshQueueOptions{MaxDepth: 8}, zerolog.Nop())
	defer q.Close()

	refresher := newRecordingRefresher()
	w := NewRefreshWorker(q, refresher, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = w.Serve(ctx)
		close(done)
	}()

	select {
	case <-w.Ready():
	case <-time.After(time.Second):
		t.Fatal("worker never subscribed")
	}

	q.Enqueue("u1")
	q.Enqueue("u2")

	for i := 0; i < 2; i++ {
		select {
		case <-refresher.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for refresh %d", i+1)
		}
	}

	if got := refresher.count(); got != 2 {
		t.Errorf("refreshed %d users, want 2", got)
	}
	if got := q.Depth(); got != 0 {
		t.Errorf("Depth() = %d after drain, want 0", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not shut down")
	}
}

func TestWorkerReopensCollapseWindow(t *testing.T) {
	q := NewRefreshQueue(RefreshQueueOptions{MaxDepth: 8}, zerolog.Nop())
	defer q.Close()

	refresher := newRecordingRefresher()
	w := NewRefreshWorker(q, refresher, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Serve(ctx) }()

	select {
	case <-w.Ready():
	case <-time.After(time.Second):
		t.Fatal("worker never subscribed")
	}

	q.Enqueue("u1")
	select {
	case <-refresher.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("first refresh never ran")
	}

	// The first job is done; the same user may be enqueued again.
	q.Enqueue("u1")
	select {
	case <-refresher.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("second refresh never ran")
	}

	if got := refresher.count(); got != 2 {
		t.Errorf("refreshed %d times, want 2", got)
	}
}
