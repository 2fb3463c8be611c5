// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package models

import (
	"testing"
	"time"
)

func TestEventKindClassification(t *testing.T) {
	cases := []struct {
		kind       EventKind
		valid      bool
		coalesced  bool
		qualifying bool
	}{
		{EventView, true, true, false},
		{EventClick, true, true, false},
		{EventApply, true, false, false},
		{EventAccept, true, false, true},
		{EventComplete, true, false, true},
		{EventSkip, true, false, false},
		{EventKind("hover"), false, false, false},
		{EventKind(""), false, false, false},
	}
	for _, tc := range cases {
		if got := tc.kind.Valid(); got != tc.valid {
			t.Errorf("%q.Valid() = %v, want %v", tc.kind, got, tc.valid)
		}
		if got := tc.kind.Coalesced(); got != tc.coalesced {
			t.Errorf("%q.Coalesced() = %v, want %v", tc.kind, got, tc.coalesced)
		}
		if got := tc.kind.Qualifying(); got != tc.qualifying {
			t.Errorf("%q.Qualifying() = %v, want %v", tc.kind, got, tc.qualifying)
		}
	}
}

func TestDateKeyIsUTCCalendarDay(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 23:30 EST is already the next day in UTC.
	ts := time.Date(2026, 3, 14, 23, 30, 0, 0, est)
	if got := DateKey(ts); got != "2026-03-15" {
		t.Fatalf("DateKey = %q, want 2026-03-15", got)
	}
}

func TestTaskEligible(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		task Task
		want bool
	}{
		{"open future deadline", Task{Status: TaskStatusOpen, Deadline: now.Add(time.Hour)}, true},
		{"open past deadline", Task{Status: TaskStatusOpen, Deadline: now.Add(-time.Hour)}, false},
		{"in progress", Task{Status: TaskStatusInProgress, Deadline: now.Add(time.Hour)}, false},
		{"cancelled", Task{Status: TaskStatusCancelled, Deadline: now.Add(time.Hour)}, false},
	}
	for _, tc := range cases {
		if got := tc.task.Eligible(now); got != tc.want {
			t.Errorf("%s: Eligible = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestUserEligible(t *testing.T) {
	if (&User{Banned: true}).Eligible() {
		t.Error("banned user reported eligible")
	}
	if (&User{Suspended: true}).Eligible() {
		t.Error("suspended user reported eligible")
	}
	if !(&User{}).Eligible() {
		t.Error("normal user reported ineligible")
	}
}
