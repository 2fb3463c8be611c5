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

func TestSweepScrubsOldEvents(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()

	old := models.InteractionEvent{
		UserID:          "u1",
		TaskID:          1,
		Kind:            models.EventClick,
		Timestamp:       time.Now().Add(-100 * 24 * time.Hour),
		DurationSeconds: 12,
		DeviceType:      "iPhone 15 Pro",
		Metadata:        models.Metadata{"ip": "203.0.113.9"},
	}
	recent := models.InteractionEvent{
		UserID:     "u1",
		TaskID:     2,
		Kind:       models.EventClick,
		Timestamp:  time.Now().Add(-time.Hour),
		DeviceType: "Windows 11",
		Metadata:   models.Metadata{"ref": "feed"},
	}
	if err := mem.Append(ctx, &old); err != nil {
		t.Fatal(err)
	}
	if err := mem.Append(ctx, &recent); err != nil {
		t.Fatal(err)
	}

	a := NewAnonymizer(mem, AnonymizerOptions{Horizon: 90 * 24 * time.Hour}, zerolog.Nop())
	if err := a.Sweep(ctx); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	events, err := mem.EventsByUser(ctx, "u1", "", time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	byTask := map[int64]models.InteractionEvent{}
	for _, ev := range events {
		byTask[ev.TaskID] = ev
	}

	scrubbed := byTask[1]
	if !scrubbed.Anonymized {
		t.Error("old event not marked anonymized")
	}
	if scrubbed.DeviceType != "mobile" {
		t.Errorf("DeviceType = %q, want %q", scrubbed.DeviceType, "mobile")
	}
	if scrubbed.Metadata != nil {
		t.Errorf("Metadata = %v, want nil", scrubbed.Metadata)
	}
	if scrubbed.DurationSeconds != 12 {
		t.Error("duration must survive the scrub")
	}
	if scrubbed.Timestamp.IsZero() {
		t.Error("timestamp must survive the scrub")
	}

	kept := byTask[2]
	if kept.Anonymized || kept.DeviceType != "Windows 11" {
		t.Errorf("recent event was modified: %+v", kept)
	}
}

func TestSweepIdempotent(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()

	ev := models.InteractionEvent{
		UserID:     "u1",
		TaskID:     1,
		Kind:       models.EventView,
		Timestamp:  time.Now().Add(-enoughAge),
		DeviceType: "android",
	}
	if err := mem.Append(ctx, &ev); err != nil {
		t.Fatal(err)
	}

	a := NewAnonymizer(mem, AnonymizerOptions{Horizon: 90 * 24 * time.Hour}, zerolog.Nop())
	if err := a.Sweep(ctx); err != nil {
		t.Fatal(err)
	}
	if err := a.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	rows, err := mem.EventsByUser(ctx, "u1", "", time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1 (rows are rewritten, never deleted)", len(rows))
	}
}

const enoughAge = 120 * 24 * time.Hour

func TestBucketDevice(t *testing.T) {
	tests := []struct {
		device string
		want   string
	}{
		{"iPhone 15 Pro", "mobile"},
		{"android", "mobile"},
		{"Samsung Galaxy Tablet", "mobile"},
		{"Windows 11", "desktop"},
		{"macOS Sonoma", "desktop"},
		{"Ubuntu Linux", "desktop"},
		{"SmartTV", "other"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := bucketDevice(tt.device); got != tt.want {
			t.Errorf("bucketDevice(%q) = %q, want %q", tt.device, got, tt.want)
		}
	}
}
