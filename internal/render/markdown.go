// Package render builds markdown views over the derived state. Builders
// are pure string functions; ANSI styling happens only in the terminal
// renderer at the very edge.
package render

import (
	"fmt"
	"strings"

	"github.com/hylla/loggbok/internal/domain"
)

// OpenTasksMarkdown renders the open-task list.
func OpenTasksMarkdown(tasks []domain.TaskView) string {
	var b strings.Builder
	b.WriteString("# Open tasks\n\n")
	if len(tasks) == 0 {
		b.WriteString("Nothing open. Enjoy it.\n")
		return b.String()
	}
	for _, task := range tasks {
		b.WriteString(fmt.Sprintf("- **%s** `%s`", task.Title, task.ID))
		var tags []string
		if task.Priority != "" {
			tags = append(tags, task.Priority)
		}
		if task.Area != "" {
			tags = append(tags, task.Area)
		}
		if task.Due != "" {
			tags = append(tags, "due "+task.Due)
		}
		if len(tags) > 0 {
			b.WriteString(" (" + strings.Join(tags, ", ") + ")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// AllTasksMarkdown renders every known task as a checklist, closed tasks
// checked off.
func AllTasksMarkdown(tasks []domain.TaskView) string {
	var b strings.Builder
	b.WriteString("# Tasks\n\n")
	if len(tasks) == 0 {
		b.WriteString("No tasks recorded yet.\n")
		return b.String()
	}
	for _, task := range tasks {
		box := "[ ]"
		if task.Status == domain.TaskStatusClosed {
			box = "[x]"
		}
		b.WriteString(fmt.Sprintf("- %s **%s** `%s`", box, task.Title, task.ID))
		if task.Due != "" {
			b.WriteString(" (due " + task.Due + ")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ActiveGoalsMarkdown renders the active-goal list with latest status and
// history counts.
func ActiveGoalsMarkdown(goals []domain.GoalView) string {
	return goalsMarkdown("# Active goals\n\n", "No active goals.\n", goals)
}

// AllGoalsMarkdown renders every known goal, closed ones included.
func AllGoalsMarkdown(goals []domain.GoalView) string {
	return goalsMarkdown("# Goals\n\n", "No goals recorded yet.\n", goals)
}

func goalsMarkdown(heading, empty string, goals []domain.GoalView) string {
	var b strings.Builder
	b.WriteString(heading)
	if len(goals) == 0 {
		b.WriteString(empty)
		return b.String()
	}
	for _, goal := range goals {
		b.WriteString(fmt.Sprintf("## %s `%s`\n\n", goal.Title, goal.ID))
		if goal.Horizon != "" {
			b.WriteString(fmt.Sprintf("- horizon: %s\n", goal.Horizon))
		}
		if goal.TargetDate != "" {
			b.WriteString(fmt.Sprintf("- target: %s\n", goal.TargetDate))
		}
		if goal.LatestStatus != "" {
			b.WriteString(fmt.Sprintf("- status: %s\n", goal.LatestStatus))
		}
		if goal.SuccessCriteria != "" {
			b.WriteString(fmt.Sprintf("- success: %s\n", goal.SuccessCriteria))
		}
		if goal.Achieved {
			b.WriteString(fmt.Sprintf("- closed: %s\n", goal.AchievedAt.Format("2006-01-02")))
		}
		b.WriteString(fmt.Sprintf("- updates: %d\n\n", len(goal.History)))
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// WeeklySummaryMarkdown renders the trailing-week rollup.
func WeeklySummaryMarkdown(summary domain.WeeklySummary) string {
	var b strings.Builder
	b.WriteString("# Week in review\n\n")
	b.WriteString(fmt.Sprintf("%s to %s\n\n",
		summary.Start.Format("Mon Jan 2"), summary.End.Format("Mon Jan 2")))
	b.WriteString("| metric | count |\n|---|---|\n")
	b.WriteString(fmt.Sprintf("| tasks created | %d |\n", summary.TasksCreated))
	b.WriteString(fmt.Sprintf("| tasks completed | %d |\n", summary.TasksCompleted))
	b.WriteString(fmt.Sprintf("| meetings | %d |\n", summary.MeetingsCompleted))
	b.WriteString(fmt.Sprintf("| exercise sessions | %d |\n", summary.ExerciseSessions))
	b.WriteString(fmt.Sprintf("| check-ins | %d |\n", summary.Checkins))
	b.WriteString(fmt.Sprintf("| work hours | %.1f |\n", summary.WorkHours))
	return b.String()
}
