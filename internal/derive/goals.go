package derive

import (
	"slices"

	"github.com/hylla/loggbok/internal/domain"
)

// Goals folds goal.* events keyed by entity id into goal views, returned
// in the order goals were set. goal.set seeds the descriptive fields;
// goal.progress overwrites latest_status and appends history; goal.revised
// overwrites only the payload fields actually present and appends history;
// goal.achieved and goal.abandoned latch the goal inactive one way.
func Goals(events []domain.Event) []domain.GoalView {
	byID := map[string]*domain.GoalView{}
	var order []string
	for _, event := range events {
		if event.EntityID == "" || !domain.KindHasPrefix(event.Kind, domain.KindPrefixGoal) {
			continue
		}
		switch {
		case event.Kind == domain.KindGoalSet:
			if _, exists := byID[event.EntityID]; exists {
				continue
			}
			byID[event.EntityID] = &domain.GoalView{
				ID:              event.EntityID,
				Title:           event.PayloadString("title"),
				Horizon:         event.PayloadString("horizon"),
				Area:            event.PayloadString("area"),
				TargetDate:      event.PayloadString("target_date"),
				SuccessCriteria: event.PayloadString("success_criteria"),
				History:         []domain.GoalHistoryEntry{},
			}
			order = append(order, event.EntityID)
		case event.Kind == domain.KindGoalProgress:
			if view, exists := byID[event.EntityID]; exists {
				if status := event.PayloadString("status"); status != "" {
					view.LatestStatus = status
				}
				view.History = append(view.History, historyEntry(event))
			}
		case event.Kind == domain.KindGoalRevised:
			if view, exists := byID[event.EntityID]; exists {
				reviseGoal(view, event)
				view.History = append(view.History, historyEntry(event))
			}
		case domain.TerminalGoalKind(event.Kind):
			if view, exists := byID[event.EntityID]; exists && !view.Achieved {
				view.Achieved = true
				view.AchievedAt = event.Timestamp
			}
		}
	}
	views := make([]domain.GoalView, 0, len(order))
	for _, id := range order {
		views = append(views, *byID[id])
	}
	return views
}

// ActiveGoals returns the derived goals whose inactive latch is unset.
func ActiveGoals(events []domain.Event) []domain.GoalView {
	return slices.DeleteFunc(Goals(events), func(v domain.GoalView) bool {
		return v.Achieved
	})
}

// reviseGoal applies a partial update: fields absent from the payload stay
// untouched, so a revision never clears what it does not mention.
func reviseGoal(view *domain.GoalView, event domain.Event) {
	if _, ok := event.Payload["title"]; ok {
		view.Title = event.PayloadString("title")
	}
	if _, ok := event.Payload["horizon"]; ok {
		view.Horizon = event.PayloadString("horizon")
	}
	if _, ok := event.Payload["area"]; ok {
		view.Area = event.PayloadString("area")
	}
	if _, ok := event.Payload["target_date"]; ok {
		view.TargetDate = event.PayloadString("target_date")
	}
	if _, ok := event.Payload["success_criteria"]; ok {
		view.SuccessCriteria = event.PayloadString("success_criteria")
	}
}

// historyEntry captures one progress or revision record for the goal's
// replay history.
func historyEntry(event domain.Event) domain.GoalHistoryEntry {
	return domain.GoalHistoryEntry{
		Timestamp: event.Timestamp,
		Kind:      event.Kind,
		Status:    event.PayloadString("status"),
		Note:      event.PayloadString("note"),
	}
}
