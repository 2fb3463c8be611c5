// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

// Package models defines the domain entities shared by the recommendation
// pipeline: users, tasks, interaction events, preferences, and feedback.
//
// Users and tasks are owned by external subsystems; this package only
// models the attributes the recommendation core reads. InteractionEvent
// rows are owned by the behavior tracker.
package models
