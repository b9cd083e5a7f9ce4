package domain

// Event kinds with derivation behavior. New kinds can appear in the log at
// any time without migration; anything outside this set is an inert fact
// that replays as pass-through history.
const (
	KindTaskCreated   = "task.created"
	KindTaskStarted   = "task.started"
	KindTaskCompleted = "task.completed"
	KindTaskAbandoned = "task.abandoned"

	KindGoalSet       = "goal.set"
	KindGoalProgress  = "goal.progress"
	KindGoalRevised   = "goal.revised"
	KindGoalAchieved  = "goal.achieved"
	KindGoalAbandoned = "goal.abandoned"

	KindMeetingCompleted  = "meeting.completed"
	KindExerciseCompleted = "exercise.completed"
	KindCheckinRecorded   = "checkin.recorded"

	KindWorkStarted = "work.started"
	KindWorkStopped = "work.stopped"
	KindWorkLogged  = "work.logged"
)

// Kind prefixes used by derivation queries.
const (
	KindPrefixTask = "task"
	KindPrefixGoal = "goal"
)

// Entity id prefixes. Tasks and meetings use day-scoped sequences,
// goals a year-scoped one.
const (
	IDPrefixTask    = "t"
	IDPrefixMeeting = "m"
	IDPrefixGoal    = "g"
)

// TerminalTaskKind reports whether kind closes a task. Closing is one-way;
// no kind reopens a closed task.
func TerminalTaskKind(kind string) bool {
	return kind == KindTaskCompleted || kind == KindTaskAbandoned
}

// TerminalGoalKind reports whether kind latches a goal inactive. Achieved
// and abandoned goals share the latch.
func TerminalGoalKind(kind string) bool {
	return kind == KindGoalAchieved || kind == KindGoalAbandoned
}
