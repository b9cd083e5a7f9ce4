// Package app composes the log store, derivation engine, and merge engine
// behind one service. Adapters (CLI, REST, MCP, TUI) only ever talk to
// this surface; no other access path to the log exists.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"

	"github.com/hylla/loggbok/internal/derive"
	"github.com/hylla/loggbok/internal/domain"
	"github.com/hylla/loggbok/internal/logstore"
	"github.com/hylla/loggbok/internal/merge"
)

// Clock returns the current time.
type Clock func() time.Time

// Service wires store, merger, and derivation together.
type Service struct {
	store  *logstore.Store
	merger *merge.Merger
	clock  Clock
	logger *charmLog.Logger
}

// NewService constructs the application service. A nil clock means wall
// time.
func NewService(store *logstore.Store, merger *merge.Merger, clock Clock, logger *charmLog.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = charmLog.New(os.Stderr)
	}
	return &Service{
		store:  store,
		merger: merger,
		clock:  clock,
		logger: logger,
	}
}

// RecordEvent appends one event with defaults applied and returns the
// stored record.
func (s *Service) RecordEvent(ctx context.Context, in domain.EventInput) (domain.Event, error) {
	event, err := s.store.Append(ctx, in)
	if err != nil {
		return domain.Event{}, fmt.Errorf("record event: %w", err)
	}
	s.logger.Info("event recorded", "kind", event.Kind, "entity_id", event.EntityID, "source", event.Source)
	return event, nil
}

// ListEvents returns the filtered, time-ascending event sequence.
func (s *Service) ListEvents(ctx context.Context, f logstore.Filter) ([]domain.Event, error) {
	return s.store.Read(ctx, f)
}

// OpenTasks replays task events into the currently open task views.
func (s *Service) OpenTasks(ctx context.Context) ([]domain.TaskView, error) {
	events, err := s.store.Read(ctx, logstore.Filter{KindPrefix: domain.KindPrefixTask})
	if err != nil {
		return nil, err
	}
	return derive.OpenTasks(events), nil
}

// AllTasks replays task events into every known task view, open or closed.
func (s *Service) AllTasks(ctx context.Context) ([]domain.TaskView, error) {
	events, err := s.store.Read(ctx, logstore.Filter{KindPrefix: domain.KindPrefixTask})
	if err != nil {
		return nil, err
	}
	return derive.Tasks(events), nil
}

// ActiveGoals replays goal events into the goals not yet latched inactive.
func (s *Service) ActiveGoals(ctx context.Context) ([]domain.GoalView, error) {
	events, err := s.store.Read(ctx, logstore.Filter{KindPrefix: domain.KindPrefixGoal})
	if err != nil {
		return nil, err
	}
	return derive.ActiveGoals(events), nil
}

// AllGoals replays goal events into every known goal view.
func (s *Service) AllGoals(ctx context.Context) ([]domain.GoalView, error) {
	events, err := s.store.Read(ctx, logstore.Filter{KindPrefix: domain.KindPrefixGoal})
	if err != nil {
		return nil, err
	}
	return derive.Goals(events), nil
}

// WeeklySummary aggregates the trailing seven days of the whole log.
func (s *Service) WeeklySummary(ctx context.Context) (domain.WeeklySummary, error) {
	now := s.clock()
	events, err := s.store.Read(ctx, logstore.Filter{Start: now.Add(-8 * 24 * time.Hour)})
	if err != nil {
		return domain.WeeklySummary{}, err
	}
	return derive.Weekly(events, now), nil
}

// CreateTaskInput carries the creation fields required at task creation;
// later records never change them.
type CreateTaskInput struct {
	Title    string
	Area     string
	Due      string
	Priority string
}

// CreateTask generates the next day-scoped task id and appends the
// creation record.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Event, error) {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Event{}, fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}
	id, err := s.store.NextDayID(ctx, domain.IDPrefixTask, s.clock())
	if err != nil {
		return domain.Event{}, fmt.Errorf("generate task id: %w", err)
	}
	return s.RecordEvent(ctx, domain.EventInput{
		Kind:     domain.KindTaskCreated,
		EntityID: id,
		Payload: map[string]any{
			"title":    strings.TrimSpace(in.Title),
			"area":     strings.TrimSpace(in.Area),
			"due":      strings.TrimSpace(in.Due),
			"priority": strings.TrimSpace(in.Priority),
		},
	})
}

// CompleteTask appends the terminal completion record for a known task.
func (s *Service) CompleteTask(ctx context.Context, id string) (domain.Event, error) {
	return s.closeTask(ctx, id, domain.KindTaskCompleted)
}

// AbandonTask appends the terminal abandonment record for a known task.
func (s *Service) AbandonTask(ctx context.Context, id string) (domain.Event, error) {
	return s.closeTask(ctx, id, domain.KindTaskAbandoned)
}

// closeTask validates the id against the derived views before appending;
// appending an unknown id would be harmless but is almost always a typo.
func (s *Service) closeTask(ctx context.Context, id, kind string) (domain.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Event{}, fmt.Errorf("%w: task id is required", ErrInvalidInput)
	}
	views, err := s.AllTasks(ctx)
	if err != nil {
		return domain.Event{}, err
	}
	known := false
	for _, view := range views {
		if view.ID == id {
			known = true
			break
		}
	}
	if !known {
		return domain.Event{}, fmt.Errorf("%w: task %s", ErrNotFound, id)
	}
	return s.RecordEvent(ctx, domain.EventInput{Kind: kind, EntityID: id})
}

// SetGoalInput carries the fields seeded by goal.set.
type SetGoalInput struct {
	Title           string
	Horizon         string
	Area            string
	TargetDate      string
	SuccessCriteria string
}

// SetGoal generates the next year-scoped goal id and appends the seeding
// record.
func (s *Service) SetGoal(ctx context.Context, in SetGoalInput) (domain.Event, error) {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Event{}, fmt.Errorf("%w: goal title is required", ErrInvalidInput)
	}
	id, err := s.store.NextYearID(ctx, domain.IDPrefixGoal, s.clock())
	if err != nil {
		return domain.Event{}, fmt.Errorf("generate goal id: %w", err)
	}
	return s.RecordEvent(ctx, domain.EventInput{
		Kind:     domain.KindGoalSet,
		EntityID: id,
		Payload: map[string]any{
			"title":            strings.TrimSpace(in.Title),
			"horizon":          strings.TrimSpace(in.Horizon),
			"area":             strings.TrimSpace(in.Area),
			"target_date":      strings.TrimSpace(in.TargetDate),
			"success_criteria": strings.TrimSpace(in.SuccessCriteria),
		},
	})
}

// LogGoalProgress appends one progress record for a known goal.
func (s *Service) LogGoalProgress(ctx context.Context, id, status, note string) (domain.Event, error) {
	if strings.TrimSpace(status) == "" {
		return domain.Event{}, fmt.Errorf("%w: progress status is required", ErrInvalidInput)
	}
	if err := s.requireGoal(ctx, id); err != nil {
		return domain.Event{}, err
	}
	return s.RecordEvent(ctx, domain.EventInput{
		Kind:     domain.KindGoalProgress,
		EntityID: strings.TrimSpace(id),
		Payload: map[string]any{
			"status": strings.TrimSpace(status),
			"note":   strings.TrimSpace(note),
		},
	})
}

// CompleteGoal latches a known goal inactive. Outcome picks between the
// achieved and abandoned terminal kinds; both share the same latch.
func (s *Service) CompleteGoal(ctx context.Context, id, outcome string) (domain.Event, error) {
	kind := domain.KindGoalAchieved
	switch strings.TrimSpace(outcome) {
	case "", "achieved":
	case "abandoned":
		kind = domain.KindGoalAbandoned
	default:
		return domain.Event{}, fmt.Errorf("%w: outcome must be achieved or abandoned", ErrInvalidInput)
	}
	if err := s.requireGoal(ctx, id); err != nil {
		return domain.Event{}, err
	}
	return s.RecordEvent(ctx, domain.EventInput{Kind: kind, EntityID: strings.TrimSpace(id)})
}

// requireGoal checks the id against the derived goal views.
func (s *Service) requireGoal(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: goal id is required", ErrInvalidInput)
	}
	views, err := s.AllGoals(ctx)
	if err != nil {
		return err
	}
	for _, view := range views {
		if view.ID == id {
			return nil
		}
	}
	return fmt.Errorf("%w: goal %s", ErrNotFound, id)
}

// NextMeetingID exposes day-scoped meeting id generation for callers
// recording meeting events directly.
func (s *Service) NextMeetingID(ctx context.Context) (string, error) {
	return s.store.NextDayID(ctx, domain.IDPrefixMeeting, s.clock())
}

// MergeExternal folds one external record into the service's log root.
func (s *Service) MergeExternal(ctx context.Context, rec merge.ExternalRecord) (bool, error) {
	return s.merger.Merge(ctx, rec)
}

// MergeExternalBatch folds a batch of external records; see merge.Merger.
func (s *Service) MergeExternalBatch(ctx context.Context, recs []merge.ExternalRecord) (merge.Stats, error) {
	return s.merger.MergeBatch(ctx, recs)
}

// SyncWatermark returns the latest timestamp among already-merged records
// for a service, or ok=false when none exist.
func (s *Service) SyncWatermark(ctx context.Context, service string) (time.Time, bool, error) {
	return s.merger.Watermark(ctx, service)
}
