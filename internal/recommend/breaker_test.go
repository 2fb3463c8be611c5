// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store"
	"github.com/openmarket/taskfeed/internal/store/memory"
)

// flakyTaskReader fails every call while broken is set.
type flakyTaskReader struct {
	store.TaskReader
	broken bool
}

var errStoreDown = errors.New("connection refused")

func (f *flakyTaskReader) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	if f.broken {
		return nil, errStoreDown
	}
	return f.TaskReader.GetTask(ctx, id)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	mem := memory.New()
	mem.PutTask(models.Task{ID: 1, OwnerID: "o", Status: models.TaskStatusOpen, Deadline: time.Now().Add(time.Hour)})
	inner := &flakyTaskReader{TaskReader: mem, broken: true}
	r := NewBreakerTaskReader(inner, BreakerOptions{FailureThreshold: 3, Timeout: time.Minute}, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.GetTask(ctx, 1); !errors.Is(err, errStoreDown) {
			t.Fatalf("call %d: err = %v, want store error", i, err)
		}
	}

	// Threshold reached: the breaker now rejects without touching the store.
	inner.broken = false
	_, err := r.GetTask(ctx, 1)
	if !BreakerOpen(err) {
		t.Fatalf("err = %v, want open-breaker rejection", err)
	}
}

func TestBreakerIgnoresHealthyErrors(t *testing.T) {
	mem := memory.New()
	r := NewBreakerTaskReader(mem, BreakerOptions{FailureThreshold: 2, Timeout: time.Minute}, zerolog.Nop())
	ctx := context.Background()

	// Not-found is a correct answer, not a store failure; it must never
	// trip the breaker.
	for i := 0; i < 10; i++ {
		if _, err := r.GetTask(ctx, 404); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	}

	mem.PutTask(models.Task{ID: 1, OwnerID: "o", Status: models.TaskStatusOpen, Deadline: time.Now().Add(time.Hour)})
	if _, err := r.GetTask(ctx, 1); err != nil {
		t.Fatalf("breaker tripped on healthy errors: %v", err)
	}
}

func TestBreakerPassesThroughReads(t *testing.T) {
	mem := memory.New()
	mem.PutTask(models.Task{ID: 1, OwnerID: "u1", Status: models.TaskStatusOpen, Deadline: time.Now().Add(time.Hour)})
	mem.PutTask(models.Task{ID: 2, OwnerID: "o", Status: models.TaskStatusOpen, Deadline: time.Now().Add(time.Hour)})
	r := NewBreakerTaskReader(mem, BreakerOptions{}, zerolog.Nop())
	ctx := context.Background()

	tasks, err := r.QueryCandidates(ctx, store.CandidateQuery{Limit: 10})
	if err != nil || len(tasks) != 2 {
		t.Fatalf("QueryCandidates = %v, %v", tasks, err)
	}
	ids, err := r.TasksPostedBy(ctx, "u1")
	if err != nil || len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("TasksPostedBy = %v, %v", ids, err)
	}
}
