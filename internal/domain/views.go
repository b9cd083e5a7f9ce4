package domain

import "time"

// TaskStatus is the derived lifecycle state of a task view.
type TaskStatus string

// Task views are either open or closed; closed is a one-way latch.
const (
	TaskStatusOpen   TaskStatus = "open"
	TaskStatusClosed TaskStatus = "closed"
)

// TaskView is the replayed current state of one task entity. It is never
// persisted; every query recomputes it from the log.
type TaskView struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Area     string     `json:"area,omitempty"`
	Due      string     `json:"due,omitempty"`
	Priority string     `json:"priority,omitempty"`
	Status   TaskStatus `json:"status"`
	Created  time.Time  `json:"created"`
}

// GoalHistoryEntry is one progress or revision record replayed onto a goal,
// in the order encountered.
type GoalHistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status,omitempty"`
	Note      string    `json:"note,omitempty"`
}

// GoalView is the replayed current state of one goal entity. Achieved is a
// one-way latch shared by goal.achieved and goal.abandoned.
type GoalView struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Horizon         string             `json:"horizon,omitempty"`
	Area            string             `json:"area,omitempty"`
	TargetDate      string             `json:"target_date,omitempty"`
	SuccessCriteria string             `json:"success_criteria,omitempty"`
	LatestStatus    string             `json:"latest_status,omitempty"`
	Achieved        bool               `json:"achieved"`
	AchievedAt      time.Time          `json:"achieved_at,omitzero"`
	History         []GoalHistoryEntry `json:"history"`
}

// WeeklySummary aggregates the trailing seven days of the log by exact
// kind. WorkHours sums duration_min/60 over work.logged and work.stopped;
// work.started carries no completed duration and is excluded.
type WeeklySummary struct {
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	TasksCreated      int       `json:"tasks_created"`
	TasksCompleted    int       `json:"tasks_completed"`
	MeetingsCompleted int       `json:"meetings_completed"`
	ExerciseSessions  int       `json:"exercise_sessions"`
	Checkins          int       `json:"checkins"`
	WorkHours         float64   `json:"work_hours"`
}
