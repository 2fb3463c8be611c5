// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package behavior

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store/memory"
)

type fakeInvalidator struct {
	full       []string
	exclusions []string
}

func (f *fakeInvalidator) InvalidateUser(_ context.Context, userID string) {
	f.full = append(f.full, userID)
}

func (f *fakeInvalidator) InvalidateExclusions(_ context.Context, userID string) {
	f.exclusions = append(f.exclusions, userID)
}

type fakeEnqueuer struct {
	users []string
}

func (f *fakeEnqueuer) Enqueue(userID string) {
	f.users = append(f.users, userID)
}

func newTestTracker(t *testing.T, mem *memory.Store) (*Tracker, *fakeInvalidator, *fakeEnqueuer) {
	t.Helper()
	s := mem.Stores()
	inval := &fakeInvalidator{}
	enq := &fakeEnqueuer{}
	tr := NewTracker(s.Behavior, s.Tasks, s.Users, s.Feedback, inval, enq, zerolog.Nop())
	return tr, inval, enq
}

func seedTrackerWorld(mem *memory.Store) {
	mem.PutUser(models.User{ID: "u1", ResidenceCity: "Boston"})
	mem.PutUser(models.User{ID: "banned", Banned: true})
	mem.PutTask(models.Task{
		ID:        1,
		OwnerID:   "owner",
		Type:      models.TaskTypeErrand,
		Location:  "Boston",
		Status:    models.TaskStatusOpen,
		Deadline:  time.Now().Add(24 * time.Hour),
		CreatedAt: time.Now().Add(-time.Hour),
	})
}

func TestRecordCoalescesSameDayViews(t *testing.T) {
	mem := memory.New()
	seedTrackerWorld(mem)
	tr, _, _ := newTestTracker(t, mem)
	ctx := context.Background()

	tr.Record(ctx, Event{UserID: "u1", TaskID: 1, Kind: models.EventView, DurationSeconds: 5})
	tr.Record(ctx, Event{UserID: "u1", TaskID: 1, Kind: models.EventView, DurationSeconds: 30})

	events, err := tr.UserInteractions(ctx, "u1", models.EventView, 0)
	if err != nil {
		t.Fatalf("UserInteractions() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d view rows, want 1", len(events))
	}
	if events[0].DurationSeconds != 30 {
		t.Errorf("DurationSeconds = %d, want 30 (later write wins)", events[0].DurationSeconds)
	}
	if events[0].EventDate != models.DateKey(time.Now()) {
		t.Errorf("EventDate = %q, want today's key", events[0].EventDate)
	}
}

func TestRecordAppendsNonCoalescedKinds(t *testing.T) {
	mem := memory.New()
	seedTrackerWorld(mem)
	tr, _, _ := newTestTracker(t, mem)
	ctx := context.Background()

	tr.Record(ctx, Event{UserID: "u1", TaskID: 1, Kind: models.EventSkip})
	tr.Record(ctx, Event{UserID: "u1", TaskID: 1, Kind: models.EventSkip})

	events, err := tr.UserInteractions(ctx, "u1", models.EventSkip, 0)
	if err != nil {
		t.Fatalf("UserInteractions() error = %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d skip rows, want 2", len(events))
	}
}

func TestRecordDropsInvalidEvents(t *testing.T) {
	mem := memory.New()
	seedTrackerWorld(mem)
	tr, inval, enq := newTestTracker(t, mem)
	ctx := context.Background()

	tests := []struct {
		name string
		ev   Event
	}{
		{"missing task", Event{UserID: "u1", TaskID: 999, Kind: models.EventAccept}},
		{"banned user", Event{UserID: "banned", TaskID: 1, Kind: models.EventView}},
		{"unknown user", Event{UserID: "ghost", TaskID: 1, Kind: models.EventView}},
		{"unknown kind", Event{UserID: "u1", TaskID: 1, Kind: "hover"}},
		{"missing user id", Event{TaskID: 1, Kind: models.EventView}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr.Record(ctx, tt.ev)
		})
	}

	for _, id := range []string{"u1", "banned", "ghost"} {
		events, err := tr.UserInteractions(ctx, id, "", 0)
		if err != nil {
			t.Fatalf("UserInteractions(%q) error = %v", id, err)
		}
		if len(events) != 0 {
			t.Errorf("user %q has %d rows, want 0", id, len(events))
		}
	}
	if len(inval.full) != 0 || len(enq.users) != 0 {
		t.Error("dropped events must not trigger invalidation or refresh")
	}
}

func TestRecordQualifyingInvalidatesAndEnqueues(t *testing.T) {
	mem := memory.New()
	seedTrackerWorld(mem)
	tr, inval, enq := newTestTracker(t, mem)
	ctx := context.Background()

	tr.Record(ctx, Event{UserID: "u1", TaskID: 1, Kind: models.EventAccept})

	if len(inval.full) != 1 || inval.full[0] != "u1" {
		t.Errorf("InvalidateUser calls = %v, want [u1]", inval.full)
	}
	if len(enq.users) != 1 || enq.users[0] != "u1" {
		t.Errorf("Enqueue calls = %v, want [u1]", enq.users)
	}
}

func TestRecordApplyInvalidatesExclusionsOnly(t *testing.T) {
	mem := memory.New()
	seedTrackerWorld(mem)
	tr, inval, enq := newTestTracker(t, mem)
	ctx := context.Background()

	tr.Record(ctx, Event{UserID: "u1", TaskID: 1, Kind: models.EventApply})

	if len(inval.exclusions) != 1 || inval.exclusions[0] != "u1" {
		t.Errorf("InvalidateExclusions calls = %v, want [u1]", inval.exclusions)
	}
	if len(inval.full) != 0 {
		t.Errorf("InvalidateUser calls = %v, want none", inval.full)
	}
	if len(enq.users) != 0 {
		t.Errorf("Enqueue calls = %v, want none", enq.users)
	}
}

func TestRecordFeedbackAttribution(t *testing.T) {
	mem := memory.New()
	seedTrackerWorld(mem)
	tr, _, _ := newTestTracker(t, mem)
	ctx := context.Background()

	tr.Record(ctx, Event{
		UserID:           "u1",
		TaskID:           1,
		Kind:             models.EventClick,
		IsRecommended:    true,
		RecommendationID: "rec-123",
		TopScorer:        "content",
	})
	// No recommendation id: no feedback row.
	tr.Record(ctx, Event{UserID: "u1", TaskID: 1, Kind: models.EventAccept})

	rows, err := mem.FeedbackSince(ctx, time.Time{})
	if err != nil {
		t.Fatalf("FeedbackSince() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d feedback rows, want 1", len(rows))
	}
	fb := rows[0]
	if fb.RecommendationID != "rec-123" || fb.TopScorer != "content" {
		t.Errorf("feedback = %+v, want rec-123/content", fb)
	}
	if !fb.Clicked || fb.Accepted {
		t.Errorf("Clicked = %v, Accepted = %v, want true/false", fb.Clicked, fb.Accepted)
	}
}

func TestTaskInteractions(t *testing.T) {
	mem := memory.New()
	seedTrackerWorld(mem)
	mem.PutUser(models.User{ID: "u2"})
	tr, _, _ := newTestTracker(t, mem)
	ctx := context.Background()

	tr.Record(ctx, Event{UserID: "u1", TaskID: 1, Kind: models.EventClick})
	tr.Record(ctx, Event{UserID: "u2", TaskID: 1, Kind: models.EventClick})

	events, err := tr.TaskInteractions(ctx, 1, models.EventClick)
	if err != nil {
		t.Fatalf("TaskInteractions() error = %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d rows, want 2", len(events))
	}
}
