package logstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	charmLog "github.com/charmbracelet/log"

	"github.com/hylla/loggbok/internal/domain"
)

func newTestStore(t *testing.T, clock Clock) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), "", charmLog.New(io.Discard), WithClock(clock))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return store
}

func fixedClock(ts time.Time) Clock {
	return func() time.Time { return ts }
}

func TestOpenDefaultsSyncDir(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, "", charmLog.New(io.Discard))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if store.SyncDir() != filepath.Join(dir, "sync") {
		t.Fatalf("unexpected sync dir %q", store.SyncDir())
	}
	if _, err := Open("   ", "", charmLog.New(io.Discard)); err == nil {
		t.Fatal("expected error for empty log dir")
	}
}

func TestAppendPartitionsByMonth(t *testing.T) {
	store := newTestStore(t, fixedClock(time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	jan := time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 1, 0, 1, 0, 0, time.UTC)
	for _, ts := range []time.Time{jan, feb} {
		if _, err := store.Append(ctx, domain.EventInput{Kind: "checkin.recorded", Timestamp: ts}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	for _, name := range []string{"2026-01.jsonl", "2026-02.jsonl"} {
		content, err := os.ReadFile(filepath.Join(store.PrimaryDir(), name))
		if err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
		if lines := strings.Count(string(content), "\n"); lines != 1 {
			t.Fatalf("%s: expected 1 line, got %d", name, lines)
		}
	}
}

func TestAppendDefaultsFromClock(t *testing.T) {
	now := time.Date(2026, 3, 5, 14, 30, 45, 0, time.UTC)
	store := newTestStore(t, fixedClock(now))

	event, err := store.Append(context.Background(), domain.EventInput{Kind: "exercise.completed"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if !event.Timestamp.Equal(now) {
		t.Fatalf("expected clock timestamp, got %v", event.Timestamp)
	}
	if event.Source != domain.SourceManual {
		t.Fatalf("expected manual source, got %q", event.Source)
	}
	if _, err := os.Stat(filepath.Join(store.PrimaryDir(), "2026-03.jsonl")); err != nil {
		t.Fatalf("expected month file for clock month: %v", err)
	}
}

func TestAppendNeverRewritesExistingLines(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	store := newTestStore(t, fixedClock(now))
	ctx := context.Background()

	if _, err := store.Append(ctx, domain.EventInput{Kind: "work.logged", Payload: map[string]any{"duration_min": 90}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	path := filepath.Join(store.PrimaryDir(), "2026-04.jsonl")
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if _, err := store.Append(ctx, domain.EventInput{Kind: "work.stopped"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(after), string(before)) {
		t.Fatal("existing bytes changed; the file must only ever grow")
	}
}

func TestAppendRejectsInvalidKind(t *testing.T) {
	store := newTestStore(t, nil)
	if _, err := store.Append(context.Background(), domain.EventInput{Kind: "nodot"}); !errors.Is(err, domain.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestReadFiltersAndSorts(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()

	// Out of chronological order on purpose, spanning two months.
	inputs := []domain.EventInput{
		{Kind: "task.completed", EntityID: "t-20260212-001", Timestamp: time.Date(2026, 2, 12, 17, 0, 0, 0, time.UTC)},
		{Kind: "task.created", EntityID: "t-20260112-001", Timestamp: time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)},
		{Kind: "taskx.created", EntityID: "other", Timestamp: time.Date(2026, 1, 13, 9, 0, 0, 0, time.UTC)},
		{Kind: "task.started", EntityID: "t-20260112-001", Source: "script", Timestamp: time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC)},
	}
	for _, in := range inputs {
		if _, err := store.Append(ctx, in); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	all, err := store.Read(ctx, Filter{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 events, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.Before(all[i-1].Timestamp) {
			t.Fatalf("events out of order at %d", i)
		}
	}

	tasks, err := store.Read(ctx, Filter{KindPrefix: "task"})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("dot-boundary prefix should exclude taskx, got %d events", len(tasks))
	}

	bySource, err := store.Read(ctx, Filter{Source: "script"})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(bySource) != 1 || bySource[0].Kind != "task.started" {
		t.Fatalf("unexpected source filter result %#v", bySource)
	}

	byEntity, err := store.Read(ctx, Filter{EntityID: "t-20260112-001"})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(byEntity) != 2 {
		t.Fatalf("expected 2 entity events, got %d", len(byEntity))
	}

	// Start inclusive, End exclusive.
	window, err := store.Read(ctx, Filter{
		Start: time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 12, 17, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("expected 2 events in window, got %d", len(window))
	}
	if window[0].Kind != "task.started" {
		t.Fatalf("start bound must be inclusive, got %s", window[0].Kind)
	}
}

func TestReadSkipsMalformedLines(t *testing.T) {
	store := newTestStore(t, nil)
	path := filepath.Join(store.PrimaryDir(), "2026-01.jsonl")
	content := strings.Join([]string{
		`{"timestamp":"2026-01-10T09:00:00Z","kind":"task.created","source":"manual","entity_id":"t-20260110-001","payload":{"title":"a"}}`,
		`{"timestamp":"2026-01-10T10:00:00Z","kind":`,
		"",
		`{"timestamp":"2026-01-10T11:00:00Z","kind":"task.completed","source":"manual","entity_id":"t-20260110-001","payload":{}}`,
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	events, err := store.Read(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected malformed line to be skipped, got %d events", len(events))
	}
}

func TestReadIgnoresForeignFiles(t *testing.T) {
	store := newTestStore(t, nil)
	for _, name := range []string{"notes.txt", "2026-13.jsonl", "backup.jsonl"} {
		if err := os.WriteFile(filepath.Join(store.PrimaryDir(), name), []byte("junk\n"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	events, err := store.Read(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected non-period files to be ignored, got %d events", len(events))
	}
}

func TestReadSpansServiceRoots(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()

	if _, err := store.Append(ctx, domain.EventInput{Kind: "task.created", EntityID: "t-20260110-001", Timestamp: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	merged, err := domain.NewEvent(domain.EventInput{
		Kind:      "exercise.completed",
		Source:    "strava",
		Timestamp: time.Date(2026, 1, 11, 7, 0, 0, 0, time.UTC),
		Payload:   map[string]any{"strava_id": "a1"},
	}, time.Now())
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	if _, err := store.AppendService(ctx, "strava", merged); err != nil {
		t.Fatalf("AppendService() error = %v", err)
	}

	all, err := store.Read(ctx, Filter{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected primary and service events, got %d", len(all))
	}

	onlyService, err := store.ReadService(ctx, "strava", Filter{})
	if err != nil {
		t.Fatalf("ReadService() error = %v", err)
	}
	if len(onlyService) != 1 || onlyService[0].Source != "strava" {
		t.Fatalf("unexpected service read %#v", onlyService)
	}
}

func TestNextDayID(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()
	day := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)

	id, err := store.NextDayID(ctx, domain.IDPrefixTask, day)
	if err != nil {
		t.Fatalf("NextDayID() error = %v", err)
	}
	if id != "t-20260112-001" {
		t.Fatalf("unexpected first id %q", id)
	}

	// Two records for the same entity still count as one entity.
	for _, kind := range []string{"task.created", "task.started"} {
		if _, err := store.Append(ctx, domain.EventInput{Kind: kind, EntityID: id, Timestamp: day}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	next, err := store.NextDayID(ctx, domain.IDPrefixTask, day)
	if err != nil {
		t.Fatalf("NextDayID() error = %v", err)
	}
	if next != "t-20260112-002" {
		t.Fatalf("unexpected second id %q", next)
	}

	// A different day and a different prefix each run their own sequence.
	otherDay, err := store.NextDayID(ctx, domain.IDPrefixTask, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("NextDayID() error = %v", err)
	}
	if otherDay != "t-20260113-001" {
		t.Fatalf("unexpected id for next day %q", otherDay)
	}
	meeting, err := store.NextDayID(ctx, domain.IDPrefixMeeting, day)
	if err != nil {
		t.Fatalf("NextDayID() error = %v", err)
	}
	if meeting != "m-20260112-001" {
		t.Fatalf("unexpected meeting id %q", meeting)
	}
}

func TestNextYearID(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()
	year := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	if _, err := store.Append(ctx, domain.EventInput{Kind: "goal.set", EntityID: "g-2026-001", Timestamp: year}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	id, err := store.NextYearID(ctx, domain.IDPrefixGoal, year)
	if err != nil {
		t.Fatalf("NextYearID() error = %v", err)
	}
	if id != "g-2026-002" {
		t.Fatalf("unexpected goal id %q", id)
	}
}

func TestNextIDOverflow(t *testing.T) {
	store := newTestStore(t, nil)
	day := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)

	var b strings.Builder
	for n := 1; n <= 999; n++ {
		fmt.Fprintf(&b, `{"timestamp":"2026-01-12T09:00:00Z","kind":"task.created","source":"manual","entity_id":"t-20260112-%03d","payload":{}}`+"\n", n)
	}
	if err := os.WriteFile(filepath.Join(store.PrimaryDir(), "2026-01.jsonl"), []byte(b.String()), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := store.NextDayID(context.Background(), domain.IDPrefixTask, day); !errors.Is(err, domain.ErrSequenceOverflow) {
		t.Fatalf("expected ErrSequenceOverflow, got %v", err)
	}
}
