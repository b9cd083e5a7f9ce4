// Package httpapi provides the REST HTTP adapter mounted under `/api/v1`.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hylla/loggbok/internal/adapters/server/common"
	"github.com/hylla/loggbok/internal/app"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed
// request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the versioned API subrouter.
type Handler struct {
	svc common.Service
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter.
func NewHandler(svc common.Service) *Handler {
	return &Handler{svc: svc}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")
	segments := strings.Split(path, "/")
	switch path {
	case "events":
		switch r.Method {
		case http.MethodGet:
			h.handleListEvents(w, r)
		case http.MethodPost:
			h.handleRecordEvent(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case "tasks":
		switch r.Method {
		case http.MethodGet:
			h.handleOpenTasks(w, r)
		case http.MethodPost:
			h.handleCreateTask(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case "goals":
		switch r.Method {
		case http.MethodGet:
			h.handleActiveGoals(w, r)
		case http.MethodPost:
			h.handleSetGoal(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case "goals/progress":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleGoalProgress(w, r)
	case "week":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleWeeklySummary(w, r)
	case "sync/merge":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleMergeExternal(w, r)
	case "sync/watermark":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleSyncWatermark(w, r)
	default:
		// tasks/{id}/complete, tasks/{id}/abandon, goals/{id}/complete.
		if len(segments) == 3 {
			if h.handleEntityAction(w, r, segments) {
				return
			}
		}
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	}
}

// handleEntityAction dispatches the per-entity terminal actions. Returns
// false when the path names no known action.
func (h *Handler) handleEntityAction(w http.ResponseWriter, r *http.Request, segments []string) bool {
	collection, id, action := segments[0], segments[1], segments[2]
	switch {
	case collection == "tasks" && action == "complete":
		h.respondEvent(w, r, func() (any, error) {
			event, err := h.svc.CompleteTask(r.Context(), id)
			return event, err
		})
	case collection == "tasks" && action == "abandon":
		h.respondEvent(w, r, func() (any, error) {
			event, err := h.svc.AbandonTask(r.Context(), id)
			return event, err
		})
	case collection == "goals" && action == "complete":
		h.respondEvent(w, r, func() (any, error) {
			var req struct {
				Outcome string `json:"outcome"`
			}
			if err := decodeJSONBody(w, r, &req); err != nil {
				return nil, err
			}
			event, err := h.svc.CompleteGoal(r.Context(), id, req.Outcome)
			return event, err
		})
	default:
		return false
	}
	return true
}

// respondEvent runs one POST action and writes the resulting record.
func (h *Handler) respondEvent(w http.ResponseWriter, r *http.Request, run func() (any, error)) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	result, err := run()
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListEvents serves GET `/events`.
func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.svc.ListEvents(r.Context(), common.ListEventsRequest{
		KindPrefix: q.Get("kind_prefix"),
		Source:     q.Get("source"),
		EntityID:   q.Get("entity_id"),
		Since:      q.Get("since"),
		Until:      q.Get("until"),
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleRecordEvent serves POST `/events`.
func (h *Handler) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	var req common.RecordEventRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	event, err := h.svc.RecordEvent(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// handleCreateTask serves POST `/tasks`.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req common.CreateTaskRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	event, err := h.svc.CreateTask(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// handleSetGoal serves POST `/goals`.
func (h *Handler) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var req common.SetGoalRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	event, err := h.svc.SetGoal(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// handleGoalProgress serves POST `/goals/progress`.
func (h *Handler) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	var req common.GoalProgressRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	event, err := h.svc.LogGoalProgress(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// handleMergeExternal serves POST `/sync/merge`.
func (h *Handler) handleMergeExternal(w http.ResponseWriter, r *http.Request) {
	var req common.MergeExternalRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	result, err := h.svc.MergeExternal(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleOpenTasks serves GET `/tasks`.
func (h *Handler) handleOpenTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.OpenTasks(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// handleActiveGoals serves GET `/goals`.
func (h *Handler) handleActiveGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.svc.ActiveGoals(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

// handleWeeklySummary serves GET `/week`.
func (h *Handler) handleWeeklySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.WeeklySummary(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleSyncWatermark serves GET `/sync/watermark?service=...`.
func (h *Handler) handleSyncWatermark(w http.ResponseWriter, r *http.Request) {
	service := strings.TrimSpace(r.URL.Query().Get("service"))
	if service == "" {
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: "service is required",
		})
		return
	}
	resp, err := h.svc.SyncWatermark(r.Context(), service)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeJSONBody decodes one bounded JSON request body.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, out any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(out); err != nil {
		return errors.Join(common.ErrInvalidRequest, err)
	}
	return nil
}

// writeErrorFrom maps service errors onto structured API responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidRequest), errors.Is(err, app.ErrInvalidInput):
		writeJSONError(w, http.StatusBadRequest, APIError{Code: "invalid_request", Message: err.Error()})
	case errors.Is(err, app.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{Code: "not_found", Message: err.Error()})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{Code: "internal_error", Message: err.Error()})
	}
}

// writeMethodNotAllowed answers with the allowed method set.
func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, status int, apiErr APIError) {
	writeJSON(w, status, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
