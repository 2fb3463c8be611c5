// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

// Package memory implements the store contracts on in-process maps.
// Used in standalone mode and as the test double for every store consumer.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store"
)

// Store implements every contract in package store.
type Store struct {
	mu sync.RWMutex

	users         map[string]models.User
	tasks         map[int64]models.Task
	applications  []models.TaskApplication
	participants  []models.TaskParticipant
	history       []models.TaskHistory
	prefs         map[string]models.UserPreferences
	events        []models.InteractionEvent
	feedback      []models.RecommendationFeedback
	rankingConfig *models.RankingConfig

	nextEventID int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users: make(map[string]models.User),
		tasks: make(map[int64]models.Task),
		prefs: make(map[string]models.UserPreferences),
	}
}

var _ interface {
	store.TaskReader
	store.UserReader
	store.PreferenceStore
	store.BehaviorStore
	store.HistoryReader
	store.FeedbackStore
	store.ConfigStore
} = (*Store)(nil)

// Stores returns a store.Stores bundle backed by this instance.
func (s *Store) Stores() store.Stores {
	return store.Stores{
		Tasks:    s,
		Users:    s,
		Prefs:    s,
		Behavior: s,
		History:  s,
		Feedback: s,
		Config:   s,
	}
}

// -- seeding helpers (tests and standalone mode) --

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutTask inserts or replaces a task.
func (s *Store) PutTask(t models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
}

// AddApplication records a task application.
func (s *Store) AddApplication(a models.TaskApplication) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications = append(s.applications, a)
}

// AddParticipant records a task participant.
func (s *Store) AddParticipant(p models.TaskParticipant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = append(s.participants, p)
}

// AddHistory appends an audit row.
func (s *Store) AddHistory(h models.TaskHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, h)
}

// PutPreferences inserts or replaces a preferences record.
func (s *Store) PutPreferences(p models.UserPreferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[p.UserID] = p
}

// -- UserReader --

// GetUser returns a user by id.
func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := u
	return &out, nil
}

// -- TaskReader --

// GetTask returns a task by id.
func (s *Store) GetTask(_ context.Context, id int64) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := t
	return &out, nil
}

// QueryCandidates returns recommendation-eligible tasks.
func (s *Store) QueryCandidates(_ context.Context, q store.CandidateQuery) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}

	exclude := make(map[int64]struct{}, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		exclude[id] = struct{}{}
	}
	if q.ExcludeUserID != "" {
		for _, id := range s.excludedTaskIDsLocked(q.ExcludeUserID) {
			exclude[id] = struct{}{}
		}
	}

	var out []models.Task
	for _, t := range s.tasks {
		if !t.Eligible(now) {
			continue
		}
		if _, skip := exclude[t.ID]; skip {
			continue
		}
		if q.DeadlineWithin > 0 && t.Deadline.After(now.Add(q.DeadlineWithin)) {
			continue
		}
		if !matchFilters(&t, q.Filters) {
			continue
		}
		out = append(out, t)
	}

	sortCandidates(out, q.Order)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matchFilters(t *models.Task, f store.TaskFilters) bool {
	if f.TaskType != "" && string(t.Type) != f.TaskType {
		return false
	}
	if f.Location != "" && !strings.EqualFold(t.Location, f.Location) {
		return false
	}
	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		if !strings.Contains(strings.ToLower(t.Title), kw) &&
			!strings.Contains(strings.ToLower(t.Description), kw) {
			return false
		}
	}
	return true
}

func sortCandidates(tasks []models.Task, order store.CandidateOrder) {
	switch order {
	case store.OrderReward:
		sort.Slice(tasks, func(i, j int) bool {
			if tasks[i].Reward != tasks[j].Reward {
				return tasks[i].Reward > tasks[j].Reward
			}
			return tasks[i].ID < tasks[j].ID
		})
	case store.OrderDeadline:
		sort.Slice(tasks, func(i, j int) bool {
			if !tasks[i].Deadline.Equal(tasks[j].Deadline) {
				return tasks[i].Deadline.Before(tasks[j].Deadline)
			}
			return tasks[i].ID < tasks[j].ID
		})
	default:
		sort.Slice(tasks, func(i, j int) bool {
			if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
				return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
			}
			return tasks[i].ID < tasks[j].ID
		})
	}
}

// excludedTaskIDsLocked applies the five exclusion derivations for the
// predicate path. Caller holds at least a read lock.
func (s *Store) excludedTaskIDsLocked(userID string) []int64 {
	var ids []int64
	for _, t := range s.tasks {
		if t.OwnerID == userID || t.TakerID == userID {
			ids = append(ids, t.ID)
		}
	}
	for _, a := range s.applications {
		if a.ApplicantID == userID {
			ids = append(ids, a.TaskID)
		}
	}
	for _, h := range s.history {
		if h.UserID == userID && (h.Action == models.HistoryAccepted || h.Action == models.HistoryCompleted) {
			ids = append(ids, h.TaskID)
		}
	}
	for _, p := range s.participants {
		if p.UserID != userID {
			continue
		}
		switch p.Status {
		case models.ParticipantAccepted, models.ParticipantInProgress, models.ParticipantCompleted:
			ids = append(ids, p.TaskID)
		}
	}
	return ids
}

// TasksPostedBy returns ids of tasks owned by the user.
func (s *Store) TasksPostedBy(_ context.Context, userID string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for _, t := range s.tasks {
		if t.OwnerID == userID {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

// TasksTakenBy returns ids of tasks where the user is the single taker.
func (s *Store) TasksTakenBy(_ context.Context, userID string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for _, t := range s.tasks {
		if t.TakerID == userID {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

// ApplicationsBy returns ids of tasks the user applied to.
func (s *Store) ApplicationsBy(_ context.Context, userID string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for _, a := range s.applications {
		if a.ApplicantID == userID {
			ids = append(ids, a.TaskID)
		}
	}
	return ids, nil
}

// ParticipantTasks returns ids of tasks where the user participates with one
// of the given statuses.
func (s *Store) ParticipantTasks(_ context.Context, userID string, statuses []models.ParticipantStatus) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[models.ParticipantStatus]struct{}, len(statuses))
	for _, st := range statuses {
		want[st] = struct{}{}
	}
	var ids []int64
	for _, p := range s.participants {
		if p.UserID != userID {
			continue
		}
		if _, ok := want[p.Status]; ok {
			ids = append(ids, p.TaskID)
		}
	}
	return ids, nil
}

// -- PreferenceStore --

// GetPreferences returns the user's record.
func (s *Store) GetPreferences(_ context.Context, userID string) (*models.UserPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := p
	return &out, nil
}

// UpsertLearned replaces only the learned overlay.
func (s *Store) UpsertLearned(_ context.Context, userID string, overlay models.WeightedFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.prefs[userID]
	p.UserID = userID
	p.Learned = overlay
	p.UpdatedAt = time.Now()
	s.prefs[userID] = p
	return nil
}

// -- BehaviorStore --

// UpsertDaily coalesces a same-day view/click or inserts a new row.
func (s *Store) UpsertDaily(_ context.Context, ev *models.InteractionEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		e := &s.events[i]
		if e.UserID == ev.UserID && e.TaskID == ev.TaskID && e.Kind == ev.Kind && e.EventDate == ev.EventDate && e.EventDate != "" {
			e.DurationSeconds = ev.DurationSeconds
			e.Metadata = ev.Metadata
			e.Timestamp = ev.Timestamp
			e.IsRecommended = e.IsRecommended || ev.IsRecommended
			ev.ID = e.ID
			return true, nil
		}
	}

	s.nextEventID++
	ev.ID = s.nextEventID
	s.events = append(s.events, *ev)
	return false, nil
}

// Append inserts a free-appending event row.
func (s *Store) Append(_ context.Context, ev *models.InteractionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEventID++
	ev.ID = s.nextEventID
	s.events = append(s.events, *ev)
	return nil
}

// EventsByUser returns the user's events, newest first.
func (s *Store) EventsByUser(_ context.Context, userID string, kind models.EventKind, since time.Time, limit int) ([]models.InteractionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.InteractionEvent
	for _, e := range s.events {
		if e.UserID != userID {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// EventsByTask returns the task's events, newest first.
func (s *Store) EventsByTask(_ context.Context, taskID int64, kind models.EventKind, since time.Time) ([]models.InteractionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.InteractionEvent
	for _, e := range s.events {
		if e.TaskID != taskID {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// EngagementsSince returns distinct (task, user) pairs for the given kinds.
func (s *Store) EngagementsSince(_ context.Context, since time.Time, kinds []models.EventKind) ([]store.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[models.EventKind]struct{}, len(kinds))
	for _, k := range kinds {
		want[k] = struct{}{}
	}

	seen := make(map[store.Engagement]struct{})
	var out []store.Engagement
	for _, e := range s.events {
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		if len(want) > 0 {
			if _, ok := want[e.Kind]; !ok {
				continue
			}
		}
		pair := store.Engagement{TaskID: e.TaskID, UserID: e.UserID}
		if _, dup := seen[pair]; dup {
			continue
		}
		seen[pair] = struct{}{}
		out = append(out, pair)
	}
	return out, nil
}

// EventsOlderThan returns non-anonymized events older than the cutoff.
func (s *Store) EventsOlderThan(_ context.Context, cutoff time.Time, limit int) ([]models.InteractionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.InteractionEvent
	for _, e := range s.events {
		if e.Anonymized || !e.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Anonymize rewrites an event's device and metadata in place.
func (s *Store) Anonymize(_ context.Context, id int64, device string, md models.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].DeviceType = device
			s.events[i].Metadata = md
			s.events[i].Anonymized = true
			return nil
		}
	}
	return store.ErrNotFound
}

// -- HistoryReader --

// HistoryByUser returns the user's audit rows since the cutoff.
func (s *Store) HistoryByUser(_ context.Context, userID string, since time.Time) ([]models.TaskHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TaskHistory
	for _, h := range s.history {
		if h.UserID != userID {
			continue
		}
		if !since.IsZero() && h.Timestamp.Before(since) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// HistoryTaskIDs returns ids of tasks where the user appears with one of
// the given actions.
func (s *Store) HistoryTaskIDs(_ context.Context, userID string, actions []models.HistoryAction) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[models.HistoryAction]struct{}, len(actions))
	for _, a := range actions {
		want[a] = struct{}{}
	}
	var ids []int64
	for _, h := range s.history {
		if h.UserID != userID {
			continue
		}
		if _, ok := want[h.Action]; ok {
			ids = append(ids, h.TaskID)
		}
	}
	return ids, nil
}

// -- FeedbackStore --

// AppendFeedback persists a recommendation outcome.
func (s *Store) AppendFeedback(_ context.Context, fb *models.RecommendationFeedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fb.ID = int64(len(s.feedback) + 1)
	s.feedback = append(s.feedback, *fb)
	return nil
}

// FeedbackSince returns feedback rows newer than the cutoff.
func (s *Store) FeedbackSince(_ context.Context, since time.Time) ([]models.RecommendationFeedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RecommendationFeedback
	for _, fb := range s.feedback {
		if !since.IsZero() && fb.CreatedAt.Before(since) {
			continue
		}
		out = append(out, fb)
	}
	return out, nil
}

// -- ConfigStore --

// LoadRankingConfig returns the persisted record.
func (s *Store) LoadRankingConfig(_ context.Context) (*models.RankingConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rankingConfig == nil {
		return nil, store.ErrNotFound
	}
	out := *s.rankingConfig
	return &out, nil
}

// SaveRankingConfig replaces the record.
func (s *Store) SaveRankingConfig(_ context.Context, rc *models.RankingConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rc
	s.rankingConfig = &cp
	return nil
}
