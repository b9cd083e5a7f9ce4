// Package derive replays filtered, time-ordered event sequences into
// current entity state and aggregates. Every function here is a pure fold
// over its input slice; nothing reaches into file-system state, so the
// same sequence always derives the same result.
package derive

import (
	"slices"

	"github.com/hylla/loggbok/internal/domain"
)

// Tasks folds task.* events keyed by entity id into task views, returned
// in creation order. task.created seeds the view and later records never
// change the creation fields; task.completed and task.abandoned close the
// task one way; no kind reopens it. Events without an entity id and
// transitions for ids never created are inert.
func Tasks(events []domain.Event) []domain.TaskView {
	byID := map[string]*domain.TaskView{}
	var order []string
	for _, event := range events {
		if event.EntityID == "" || !domain.KindHasPrefix(event.Kind, domain.KindPrefixTask) {
			continue
		}
		switch {
		case event.Kind == domain.KindTaskCreated:
			if _, exists := byID[event.EntityID]; exists {
				// At most one creation per id; replays of a duplicate
				// creation record leave the first one authoritative.
				continue
			}
			byID[event.EntityID] = &domain.TaskView{
				ID:       event.EntityID,
				Title:    event.PayloadString("title"),
				Area:     event.PayloadString("area"),
				Due:      event.PayloadString("due"),
				Priority: event.PayloadString("priority"),
				Status:   domain.TaskStatusOpen,
				Created:  event.Timestamp,
			}
			order = append(order, event.EntityID)
		case domain.TerminalTaskKind(event.Kind):
			if view, exists := byID[event.EntityID]; exists {
				view.Status = domain.TaskStatusClosed
			}
		}
	}
	views := make([]domain.TaskView, 0, len(order))
	for _, id := range order {
		views = append(views, *byID[id])
	}
	return views
}

// OpenTasks returns the derived tasks still open.
func OpenTasks(events []domain.Event) []domain.TaskView {
	return slices.DeleteFunc(Tasks(events), func(v domain.TaskView) bool {
		return v.Status != domain.TaskStatusOpen
	})
}
