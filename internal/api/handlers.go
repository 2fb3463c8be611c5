// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/openmarket/taskfeed/internal/behavior"
	"github.com/openmarket/taskfeed/internal/logging"
	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/recommend"
	"github.com/openmarket/taskfeed/internal/store"
)

// Handlers implements the HTTP endpoints.
type Handlers struct {
	facade   *recommend.Facade
	tracker  *behavior.Tracker
	validate *validator.Validate
}

// NewHandlers creates the endpoint set.
func NewHandlers(facade *recommend.Facade, tracker *behavior.Tracker) *Handlers {
	return &Handlers{
		facade:   facade,
		tracker:  tracker,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Recommend serves POST /api/v1/recommendations.
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "malformed JSON body")
		return
	}
	if req.Limit == 0 {
		req.Limit = 10
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	resp, err := h.facade.Recommend(r.Context(), recommend.Request{
		UserID:    req.UserID,
		Limit:     req.Limit,
		Algorithm: req.Algorithm,
		Filters: store.TaskFilters{
			TaskType: req.Filters.TaskType,
			Location: req.Filters.Location,
			Keyword:  req.Filters.Keyword,
		},
	})
	if err != nil {
		h.writeRecommendError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// MatchScore serves GET /api/v1/users/{userID}/tasks/{taskID}/match.
func (h *Handlers) MatchScore(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	taskID, err := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
	if err != nil || taskID <= 0 {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "task id must be a positive integer")
		return
	}

	score, err := h.facade.MatchScore(r.Context(), userID, taskID)
	if err != nil {
		h.writeRecommendError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"task_id": taskID,
		"score":   score,
	})
}

// RecordEvent serves POST /api/v1/events. The ingest path is
// fire-and-forget: a well-formed request is always accepted, whatever
// happens to the event afterwards.
func (h *Handlers) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "malformed JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	h.tracker.Record(r.Context(), behavior.Event{
		UserID:           req.UserID,
		TaskID:           req.TaskID,
		Kind:             models.EventKind(req.Kind),
		DurationSeconds:  req.DurationSeconds,
		DeviceType:       req.DeviceType,
		Metadata:         req.Metadata,
		IsRecommended:    req.IsRecommended,
		RecommendationID: req.RecommendationID,
		TopScorer:        req.TopScorer,
	})
	writeJSON(w, r, http.StatusAccepted, nil)
}

// UserInteractions serves GET /api/v1/users/{userID}/interactions.
func (h *Handlers) UserInteractions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	kind, ok := parseKind(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "unknown event kind")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	events, err := h.tracker.UserInteractions(r.Context(), userID, kind, limit)
	if err != nil {
		log := logging.Ctx(r.Context())
		log.Warn().Err(err).Msg("user interactions read failed")
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "interaction store unavailable")
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

// TaskInteractions serves GET /api/v1/tasks/{taskID}/interactions.
func (h *Handlers) TaskInteractions(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
	if err != nil || taskID <= 0 {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "task id must be a positive integer")
		return
	}
	kind, ok := parseKind(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "unknown event kind")
		return
	}

	events, err := h.tracker.TaskInteractions(r.Context(), taskID, kind)
	if err != nil {
		log := logging.Ctx(r.Context())
		log.Warn().Err(err).Msg("task interactions read failed")
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "interaction store unavailable")
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

// Health serves GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) writeRecommendError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, recommend.ErrBadRequest):
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, recommend.ErrUnknownUser):
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "unknown user")
	case errors.Is(err, recommend.ErrUnknownTask):
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "unknown task")
	case errors.Is(err, recommend.ErrUserNotEligible):
		writeError(w, r, http.StatusForbidden, ErrCodeForbidden, "user is not eligible for recommendations")
	case errors.Is(err, recommend.ErrTemporaryUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "recommendation backend unavailable")
	default:
		log := logging.Ctx(r.Context())
		log.Error().Err(err).Msg("unhandled recommend error")
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}

func parseKind(r *http.Request) (models.EventKind, bool) {
	raw := r.URL.Query().Get("kind")
	if raw == "" {
		return "", true
	}
	kind := models.EventKind(raw)
	return kind, kind.Valid()
}
