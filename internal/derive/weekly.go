package derive

import (
	"time"

	"github.com/hylla/loggbok/internal/domain"
)

// weeklyWindow is the trailing aggregation window.
const weeklyWindow = 7 * 24 * time.Hour

// Weekly buckets the events of the trailing seven days before now by exact
// kind. Work hours sum duration_min/60 over work.logged and work.stopped
// records only; work.started carries no completed duration.
func Weekly(events []domain.Event, now time.Time) domain.WeeklySummary {
	summary := domain.WeeklySummary{
		Start: now.Add(-weeklyWindow),
		End:   now,
	}
	for _, event := range events {
		if event.Timestamp.Before(summary.Start) || event.Timestamp.After(summary.End) {
			continue
		}
		switch event.Kind {
		case domain.KindTaskCreated:
			summary.TasksCreated++
		case domain.KindTaskCompleted:
			summary.TasksCompleted++
		case domain.KindMeetingCompleted:
			summary.MeetingsCompleted++
		case domain.KindExerciseCompleted:
			summary.ExerciseSessions++
		case domain.KindCheckinRecorded:
			summary.Checkins++
		case domain.KindWorkLogged, domain.KindWorkStopped:
			if minutes, ok := event.PayloadFloat("duration_min"); ok {
				summary.WorkHours += minutes / 60
			}
		}
	}
	return summary
}
