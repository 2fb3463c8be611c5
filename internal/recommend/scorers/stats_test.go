// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package scorers

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/cache"
	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store/memory"
)

func seedEvent(t *testing.T, mem *memory.Store, userID string, taskID int64, kind models.EventKind, ts time.Time) {
	t.Helper()
	err := mem.Append(context.Background(), &models.InteractionEvent{
		UserID: userID, TaskID: taskID, Kind: kind, Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
}

func TestLoaderLoad(t *testing.T) {
	now := time.Now()
	mem := memory.New()
	c := cache.NewMemory()
	defer c.Close()

	mem.PutUser(models.User{ID: "rookie", CreatedAt: now.Add(-2 * 24 * time.Hour)})
	mem.PutUser(models.User{ID: "veteran", CreatedAt: now.Add(-300 * 24 * time.Hour)})

	// Task 10: three engagers, two of them within the last 24h.
	seedEvent(t, mem, "a", 10, models.EventClick, now.Add(-time.Hour))
	seedEvent(t, mem, "b", 10, models.EventApply, now.Add(-2*time.Hour))
	seedEvent(t, mem, "c", 10, models.EventAccept, now.Add(-3*24*time.Hour))
	// Task 20: engaged by the requesting user; views never count.
	seedEvent(t, mem, "u1", 20, models.EventClick, now.Add(-time.Hour))
	seedEvent(t, mem, "u1", 30, models.EventView, now.Add(-time.Hour))

	loader := NewLoader(mem, mem, c, LoaderOptions{}, zerolog.Nop())
	candidates := []models.Task{
		{ID: 10, OwnerID: "rookie"},
		{ID: 30, OwnerID: "veteran"},
	}
	stats := loader.Load(context.Background(), "u1", candidates, now)

	if got := len(stats.Engagers(10)); got != 3 {
		t.Errorf("Engagers(10) size = %d, want 3", got)
	}
	if got := stats.RecentCount(10); got != 2 {
		t.Errorf("RecentCount(10) = %d, want 2", got)
	}
	if got := stats.RecentCount(30); got != 0 {
		t.Errorf("RecentCount(30) = %d, want 0", got)
	}
	if len(stats.UserEngaged) != 1 || stats.UserEngaged[0] != 20 {
		t.Errorf("UserEngaged = %v, want [20]", stats.UserEngaged)
	}
	if age := stats.PosterAge("rookie", now); age < 0 || age > 3*24*time.Hour {
		t.Errorf("PosterAge(rookie) = %v, want about two days", age)
	}
	if age := stats.PosterAge("ghost", now); age >= 0 {
		t.Errorf("PosterAge(ghost) = %v, want negative", age)
	}
}

func TestLoaderCachesRecentCounts(t *testing.T) {
	now := time.Now()
	mem := memory.New()
	c := cache.NewMemory()
	defer c.Close()

	seedEvent(t, mem, "a", 10, models.EventClick, now.Add(-time.Hour))

	loader := NewLoader(mem, mem, c, LoaderOptions{}, zerolog.Nop())
	candidates := []models.Task{{ID: 10}}

	stats := loader.Load(context.Background(), "u1", candidates, now)
	if got := stats.RecentCount(10); got != 1 {
		t.Fatalf("RecentCount(10) = %d, want 1", got)
	}

	// A second engager appears, but the cached count is still served.
	seedEvent(t, mem, "b", 10, models.EventClick, now)
	stats = loader.Load(context.Background(), "u1", candidates, now)
	if got := stats.RecentCount(10); got != 1 {
		t.Errorf("RecentCount(10) after cache = %d, want cached 1", got)
	}
}
