// Package common holds the transport-facing request types and the adapter
// that maps them onto the application service. REST and MCP both consume
// this surface.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/hylla/loggbok/internal/domain"
)

// ErrInvalidRequest reports transport input the adapter could not map onto
// a core operation.
var ErrInvalidRequest = errors.New("invalid request")

// RecordEventRequest stores transport input for appending one event.
// Timestamp is RFC3339 or empty for "now".
type RecordEventRequest struct {
	Kind      string         `json:"kind"`
	Source    string         `json:"source,omitempty"`
	EntityID  string         `json:"entity_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// ListEventsRequest stores transport input for filtered reads. Since is
// inclusive, Until exclusive; both RFC3339 or empty.
type ListEventsRequest struct {
	KindPrefix string `json:"kind_prefix,omitempty"`
	Source     string `json:"source,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
	Since      string `json:"since,omitempty"`
	Until      string `json:"until,omitempty"`
}

// CreateTaskRequest stores transport input for task creation.
type CreateTaskRequest struct {
	Title    string `json:"title"`
	Area     string `json:"area,omitempty"`
	Due      string `json:"due,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// SetGoalRequest stores transport input for goal creation.
type SetGoalRequest struct {
	Title           string `json:"title"`
	Horizon         string `json:"horizon,omitempty"`
	Area            string `json:"area,omitempty"`
	TargetDate      string `json:"target_date,omitempty"`
	SuccessCriteria string `json:"success_criteria,omitempty"`
}

// GoalProgressRequest stores transport input for one progress record.
type GoalProgressRequest struct {
	GoalID string `json:"goal_id"`
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// MergeExternalRequest stores transport input for one external merge.
type MergeExternalRequest struct {
	Service    string         `json:"service"`
	IDField    string         `json:"id_field"`
	ExternalID string         `json:"external_id"`
	Kind       string         `json:"kind"`
	Timestamp  string         `json:"timestamp,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// MergeResult reports whether a merge wrote a new record or skipped a
// duplicate.
type MergeResult struct {
	Merged bool `json:"merged"`
}

// WatermarkResponse reports the latest merged timestamp for a service.
type WatermarkResponse struct {
	Service    string `json:"service"`
	Watermark  string `json:"watermark,omitempty"`
	HasRecords bool   `json:"has_records"`
}

// Service is the operation surface transports are given. It mirrors the
// core's four operation families plus the derived-state queries.
type Service interface {
	RecordEvent(ctx context.Context, req RecordEventRequest) (domain.Event, error)
	ListEvents(ctx context.Context, req ListEventsRequest) ([]domain.Event, error)
	OpenTasks(ctx context.Context) ([]domain.TaskView, error)
	ActiveGoals(ctx context.Context) ([]domain.GoalView, error)
	WeeklySummary(ctx context.Context) (domain.WeeklySummary, error)
	CreateTask(ctx context.Context, req CreateTaskRequest) (domain.Event, error)
	CompleteTask(ctx context.Context, id string) (domain.Event, error)
	AbandonTask(ctx context.Context, id string) (domain.Event, error)
	SetGoal(ctx context.Context, req SetGoalRequest) (domain.Event, error)
	LogGoalProgress(ctx context.Context, req GoalProgressRequest) (domain.Event, error)
	CompleteGoal(ctx context.Context, id, outcome string) (domain.Event, error)
	MergeExternal(ctx context.Context, req MergeExternalRequest) (MergeResult, error)
	SyncWatermark(ctx context.Context, service string) (WatermarkResponse, error)
}

// parseTimestamp parses an optional RFC3339 transport timestamp.
func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.Join(ErrInvalidRequest, err)
	}
	return ts, nil
}
