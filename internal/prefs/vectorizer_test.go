// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package prefs

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/cache"
	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store/memory"
)

func newTestVectorizer(t *testing.T, mem *memory.Store, opts Options) *Vectorizer {
	t.Helper()
	c := cache.NewMemory()
	t.Cleanup(func() { _ = c.Close() })
	s := mem.Stores()
	return NewVectorizer(s.Prefs, s.History, s.Tasks, c, opts, zerolog.Nop())
}

func TestBuildDeclaredOnly(t *testing.T) {
	mem := memory.New()
	mem.PutPreferences(models.UserPreferences{
		UserID:     "u1",
		TaskTypes:  models.StringList{"delivery", "errand"},
		Locations:  models.StringList{"Boston"},
		TaskLevels: models.StringList{"easy"},
	})

	v := newTestVectorizer(t, mem, Options{})
	vec, err := v.Build(context.Background(), "u1", time.Now())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Two declared types normalize to 0.5 each.
	if got := vec.TaskTypes["delivery"]; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("TaskTypes[delivery] = %v, want 0.5", got)
	}
	if got := vec.TaskTypes["errand"]; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("TaskTypes[errand] = %v, want 0.5", got)
	}
	// Locations are lowercased on seed.
	if got := vec.Locations["boston"]; got != 1.0 {
		t.Errorf("Locations[boston] = %v, want 1.0", got)
	}
	if len(vec.Keywords) != 0 {
		t.Errorf("Keywords = %v, want empty", vec.Keywords)
	}
}

func TestBuildUnknownUserIsEmpty(t *testing.T) {
	mem := memory.New()
	v := newTestVectorizer(t, mem, Options{})

	vec, err := v.Build(context.Background(), "nobody", time.Now())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !vec.Empty() {
		t.Errorf("vector for unknown user = %+v, want empty", vec)
	}
}

func TestBuildHistoryOverlayDecays(t *testing.T) {
	now := time.Now()
	mem := memory.New()
	mem.PutTask(models.Task{
		ID: 1, OwnerID: "o1", Title: "Deliver groceries downtown",
		Type: models.TaskTypeDelivery, Level: "easy", Location: "Boston",
		Status: models.TaskStatusCompleted, CreatedAt: now.Add(-40 * 24 * time.Hour),
	})
	mem.PutTask(models.Task{
		ID: 2, OwnerID: "o1", Title: "Design a logo",
		Type: models.TaskTypeDesign, Level: "hard", Location: "online",
		Status: models.TaskStatusCompleted, CreatedAt: now.Add(-2 * 24 * time.Hour),
	})
	// Old completion decays to half weight at one half-life of age.
	mem.AddHistory(models.TaskHistory{
		TaskID: 1, UserID: "u1", Action: models.HistoryCompleted,
		Timestamp: now.Add(-30 * 24 * time.Hour),
	})
	mem.AddHistory(models.TaskHistory{
		TaskID: 2, UserID: "u1", Action: models.HistoryAccepted,
		Timestamp: now,
	})
	// Cancelled history contributes nothing.
	mem.AddHistory(models.TaskHistory{
		TaskID: 1, UserID: "u1", Action: models.HistoryCancelled,
		Timestamp: now,
	})

	v := newTestVectorizer(t, mem, Options{HalfLife: 30 * 24 * time.Hour})
	vec, err := v.Build(context.Background(), "u1", now)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Raw weights: delivery 0.5, design 1.0; sum 1.5 > 1 so both scale by 1/1.5.
	wantDelivery := 0.5 / 1.5
	wantDesign := 1.0 / 1.5
	if got := vec.TaskTypes[string(models.TaskTypeDelivery)]; math.Abs(got-wantDelivery) > 1e-6 {
		t.Errorf("TaskTypes[delivery] = %v, want %v", got, wantDelivery)
	}
	if got := vec.TaskTypes[string(models.TaskTypeDesign)]; math.Abs(got-wantDesign) > 1e-6 {
		t.Errorf("TaskTypes[design] = %v, want %v", got, wantDesign)
	}
	if got, want := vec.Locations["online"], 1.0/1.5; math.Abs(got-want) > 1e-6 {
		t.Errorf("Locations[online] = %v, want %v", got, want)
	}
	if _, ok := vec.Keywords["logo"]; !ok {
		t.Errorf("Keywords missing %q: %v", "logo", vec.Keywords)
	}
}

func TestBuildHistoryOutsideHorizonIgnored(t *testing.T) {
	now := time.Now()
	mem := memory.New()
	mem.PutTask(models.Task{
		ID: 1, OwnerID: "o1", Title: "Old job", Type: models.TaskTypeMoving,
		Status: models.TaskStatusCompleted, CreatedAt: now.Add(-200 * 24 * time.Hour),
	})
	mem.AddHistory(models.TaskHistory{
		TaskID: 1, UserID: "u1", Action: models.HistoryCompleted,
		Timestamp: now.Add(-120 * 24 * time.Hour),
	})

	v := newTestVectorizer(t, mem, Options{Horizon: 90 * 24 * time.Hour})
	vec, err := v.Build(context.Background(), "u1", now)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !vec.Empty() {
		t.Errorf("vector = %+v, want empty outside horizon", vec)
	}
}

func TestVectorCaches(t *testing.T) {
	mem := memory.New()
	mem.PutPreferences(models.UserPreferences{
		UserID:    "u1",
		TaskTypes: models.StringList{"tutoring"},
	})

	v := newTestVectorizer(t, mem, Options{})
	ctx := context.Background()

	first, err := v.Vector(ctx, "u1")
	if err != nil {
		t.Fatalf("Vector() error = %v", err)
	}
	if first.TaskTypes["tutoring"] != 1.0 {
		t.Fatalf("TaskTypes[tutoring] = %v, want 1.0", first.TaskTypes["tutoring"])
	}

	// A preference change is invisible until the cache entry is dropped.
	mem.PutPreferences(models.UserPreferences{
		UserID:    "u1",
		TaskTypes: models.StringList{"design"},
	})
	second, err := v.Vector(ctx, "u1")
	if err != nil {
		t.Fatalf("Vector() error = %v", err)
	}
	if second.TaskTypes["tutoring"] != 1.0 {
		t.Errorf("cached TaskTypes[tutoring] = %v, want 1.0", second.TaskTypes["tutoring"])
	}

	v.Invalidate(ctx, "u1")
	third, err := v.Vector(ctx, "u1")
	if err != nil {
		t.Fatalf("Vector() error = %v", err)
	}
	if third.TaskTypes["design"] != 1.0 {
		t.Errorf("rebuilt TaskTypes[design] = %v, want 1.0", third.TaskTypes["design"])
	}
}

func TestRefreshPersistsOverlay(t *testing.T) {
	mem := memory.New()
	mem.PutPreferences(models.UserPreferences{
		UserID:    "u1",
		TaskTypes: models.StringList{"cleaning"},
	})

	v := newTestVectorizer(t, mem, Options{})
	if err := v.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	p, err := mem.GetPreferences(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetPreferences() error = %v", err)
	}
	if p.Learned == nil {
		t.Fatal("Learned overlay not persisted")
	}
	if got := p.Learned["task_types"]["cleaning"]; got != 1.0 {
		t.Errorf("Learned[task_types][cleaning] = %v, want 1.0", got)
	}
}
