package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/hylla/loggbok/internal/app"
	"github.com/hylla/loggbok/internal/domain"
	"github.com/hylla/loggbok/internal/logstore"
	"github.com/hylla/loggbok/internal/merge"
)

// Adapter maps transport requests onto the application service.
type Adapter struct {
	svc *app.Service
}

// NewAdapter wraps one application service for transport use.
func NewAdapter(svc *app.Service) *Adapter {
	return &Adapter{svc: svc}
}

// RecordEvent appends one event from transport input.
func (a *Adapter) RecordEvent(ctx context.Context, req RecordEventRequest) (domain.Event, error) {
	if strings.TrimSpace(req.Kind) == "" {
		return domain.Event{}, fmt.Errorf("%w: kind is required", ErrInvalidRequest)
	}
	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		return domain.Event{}, err
	}
	return a.svc.RecordEvent(ctx, domain.EventInput{
		Kind:      req.Kind,
		Source:    req.Source,
		EntityID:  req.EntityID,
		Timestamp: ts,
		Payload:   req.Payload,
	})
}

// ListEvents returns the filtered time-ascending sequence.
func (a *Adapter) ListEvents(ctx context.Context, req ListEventsRequest) ([]domain.Event, error) {
	start, err := parseTimestamp(req.Since)
	if err != nil {
		return nil, err
	}
	end, err := parseTimestamp(req.Until)
	if err != nil {
		return nil, err
	}
	return a.svc.ListEvents(ctx, logstore.Filter{
		KindPrefix: strings.TrimSpace(req.KindPrefix),
		Source:     strings.TrimSpace(req.Source),
		EntityID:   strings.TrimSpace(req.EntityID),
		Start:      start,
		End:        end,
	})
}

// OpenTasks returns the derived open task views.
func (a *Adapter) OpenTasks(ctx context.Context) ([]domain.TaskView, error) {
	return a.svc.OpenTasks(ctx)
}

// ActiveGoals returns the derived active goal views.
func (a *Adapter) ActiveGoals(ctx context.Context) ([]domain.GoalView, error) {
	return a.svc.ActiveGoals(ctx)
}

// WeeklySummary returns the trailing-week rollup.
func (a *Adapter) WeeklySummary(ctx context.Context) (domain.WeeklySummary, error) {
	return a.svc.WeeklySummary(ctx)
}

// CreateTask generates an id and appends the creation record.
func (a *Adapter) CreateTask(ctx context.Context, req CreateTaskRequest) (domain.Event, error) {
	return a.svc.CreateTask(ctx, app.CreateTaskInput{
		Title:    req.Title,
		Area:     req.Area,
		Due:      req.Due,
		Priority: req.Priority,
	})
}

// CompleteTask closes one task.
func (a *Adapter) CompleteTask(ctx context.Context, id string) (domain.Event, error) {
	return a.svc.CompleteTask(ctx, id)
}

// AbandonTask closes one task without completing it.
func (a *Adapter) AbandonTask(ctx context.Context, id string) (domain.Event, error) {
	return a.svc.AbandonTask(ctx, id)
}

// SetGoal generates an id and appends the goal seed record.
func (a *Adapter) SetGoal(ctx context.Context, req SetGoalRequest) (domain.Event, error) {
	return a.svc.SetGoal(ctx, app.SetGoalInput{
		Title:           req.Title,
		Horizon:         req.Horizon,
		Area:            req.Area,
		TargetDate:      req.TargetDate,
		SuccessCriteria: req.SuccessCriteria,
	})
}

// LogGoalProgress appends one goal progress record.
func (a *Adapter) LogGoalProgress(ctx context.Context, req GoalProgressRequest) (domain.Event, error) {
	return a.svc.LogGoalProgress(ctx, req.GoalID, req.Status, req.Note)
}

// CompleteGoal latches one goal inactive.
func (a *Adapter) CompleteGoal(ctx context.Context, id, outcome string) (domain.Event, error) {
	return a.svc.CompleteGoal(ctx, id, outcome)
}

// MergeExternal folds one external record into the log.
func (a *Adapter) MergeExternal(ctx context.Context, req MergeExternalRequest) (MergeResult, error) {
	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		return MergeResult{}, err
	}
	merged, err := a.svc.MergeExternal(ctx, merge.ExternalRecord{
		Service:    req.Service,
		IDField:    req.IDField,
		ExternalID: req.ExternalID,
		Kind:       req.Kind,
		Timestamp:  ts,
		Payload:    req.Payload,
	})
	if err != nil {
		return MergeResult{}, err
	}
	return MergeResult{Merged: merged}, nil
}

// SyncWatermark reports the incremental-fetch watermark for a service.
func (a *Adapter) SyncWatermark(ctx context.Context, service string) (WatermarkResponse, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return WatermarkResponse{}, fmt.Errorf("%w: service is required", ErrInvalidRequest)
	}
	ts, ok, err := a.svc.SyncWatermark(ctx, service)
	if err != nil {
		return WatermarkResponse{}, err
	}
	resp := WatermarkResponse{Service: service, HasRecords: ok}
	if ok {
		resp.Watermark = ts.Format(domain.TimestampLayout)
	}
	return resp, nil
}
