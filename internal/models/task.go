// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package models

import "time"

// LocationOnline is the sentinel location for tasks with no physical site.
const LocationOnline = "online"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusExpired    TaskStatus = "expired"
)

// Valid reports whether the status is a known lifecycle state.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusCompleted,
		TaskStatusCancelled, TaskStatusExpired:
		return true
	}
	return false
}

// TaskType is the closed enumeration of marketplace task categories.
type TaskType string

const (
	TaskTypeDelivery  TaskType = "delivery"
	TaskTypeErrand    TaskType = "errand"
	TaskTypeTutoring  TaskType = "tutoring"
	TaskTypeDesign    TaskType = "design"
	TaskTypeWriting   TaskType = "writing"
	TaskTypeTech      TaskType = "tech"
	TaskTypeMoving    TaskType = "moving"
	TaskTypeCleaning  TaskType = "cleaning"
	TaskTypeHandyman  TaskType = "handyman"
	TaskTypeOther     TaskType = "other"
)

// TaskTypes lists all known task types in a stable order.
var TaskTypes = []TaskType{
	TaskTypeDelivery, TaskTypeErrand, TaskTypeTutoring, TaskTypeDesign,
	TaskTypeWriting, TaskTypeTech, TaskTypeMoving, TaskTypeCleaning,
	TaskTypeHandyman, TaskTypeOther,
}

// Valid reports whether the type is part of the closed enumeration.
func (t TaskType) Valid() bool {
	for _, known := range TaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Task is a marketplace task as seen by the recommendation core.
// The core reads tasks; it never writes them.
type Task struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	OwnerID     string     `json:"owner_id" gorm:"index;not null"`
	TakerID     string     `json:"taker_id,omitempty" gorm:"index"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        TaskType   `json:"type" gorm:"type:text;index"`
	Level       string     `json:"level,omitempty"`
	Location    string     `json:"location" gorm:"index"`
	Reward      float64    `json:"reward"`
	Deadline    time.Time  `json:"deadline" gorm:"index"`
	Status      TaskStatus `json:"status" gorm:"type:text;index"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
}

// Eligible reports whether the task may appear in recommendations:
// open status and a deadline still in the future.
func (t *Task) Eligible(now time.Time) bool {
	return t.Status == TaskStatusOpen && t.Deadline.After(now)
}

// Online reports whether the task has no physical location.
func (t *Task) Online() bool {
	return t.Location == LocationOnline
}

// ParticipantStatus is the state of a user on a multi-participant task.
type ParticipantStatus string

const (
	ParticipantPending    ParticipantStatus = "pending"
	ParticipantAccepted   ParticipantStatus = "accepted"
	ParticipantInProgress ParticipantStatus = "in_progress"
	ParticipantCompleted  ParticipantStatus = "completed"
	ParticipantWithdrawn  ParticipantStatus = "withdrawn"
)

// TaskParticipant links a user to a multi-participant task.
// (TaskID, UserID) is unique.
type TaskParticipant struct {
	TaskID int64             `json:"task_id" gorm:"uniqueIndex:idx_participant_task_user;not null"`
	UserID string            `json:"user_id" gorm:"uniqueIndex:idx_participant_task_user;index;not null"`
	Status ParticipantStatus `json:"status" gorm:"type:text"`
}

// TaskApplication records a user applying to a task.
// (TaskID, ApplicantID) is unique.
type TaskApplication struct {
	TaskID      int64     `json:"task_id" gorm:"uniqueIndex:idx_application_task_user;not null"`
	ApplicantID string    `json:"applicant_id" gorm:"uniqueIndex:idx_application_task_user;index;not null"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryAction is an audited task action.
type HistoryAction string

const (
	HistoryAccepted  HistoryAction = "accepted"
	HistoryCompleted HistoryAction = "completed"
	HistoryCancelled HistoryAction = "cancelled"
	HistoryAbandoned HistoryAction = "abandoned"
)

// TaskHistory is an append-only audit row for task actions.
type TaskHistory struct {
	ID        int64         `json:"id" gorm:"primaryKey;autoIncrement"`
	TaskID    int64         `json:"task_id" gorm:"index;not null"`
	UserID    string        `json:"user_id" gorm:"index;not null"`
	Action    HistoryAction `json:"action" gorm:"type:text"`
	Timestamp time.Time     `json:"timestamp" gorm:"index"`
}
