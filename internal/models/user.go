// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package models

import "time"

// UserTier is the subscription tier of a user.
type UserTier string

const (
	TierNormal UserTier = "normal"
	TierVIP    UserTier = "vip"
	TierSuper  UserTier = "super"
)

// User holds the profile attributes the recommendation core reads.
type User struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	ResidenceCity string    `json:"residence_city,omitempty"`
	Tier          UserTier  `json:"tier" gorm:"type:text;default:'normal'"`
	Banned        bool      `json:"banned"`
	Suspended     bool      `json:"suspended"`
	CreatedAt     time.Time `json:"created_at"`
}

// Eligible reports whether the user may receive recommendations or have
// events ingested. Banned and suspended users are never served.
func (u *User) Eligible() bool {
	return !u.Banned && !u.Suspended
}

// UserPreferences holds a user's declared preference lists. Each list is a
// bag with multiplicity 1. The learned overlay produced by the vectorizer
// never erases declared entries.
type UserPreferences struct {
	UserID     string         `json:"user_id" gorm:"primaryKey"`
	TaskTypes  StringList     `json:"task_types" gorm:"type:text"`
	Locations  StringList     `json:"locations" gorm:"type:text"`
	TaskLevels StringList     `json:"task_levels" gorm:"type:text"`
	Keywords   StringList     `json:"keywords" gorm:"type:text"`
	Learned    WeightedFields `json:"learned,omitempty" gorm:"type:text"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
