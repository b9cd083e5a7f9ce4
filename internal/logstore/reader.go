package logstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hylla/loggbok/internal/domain"
)

// maxLineBytes bounds a single scanned log line.
const maxLineBytes = 1 << 20

// Filter selects events during a read. Zero values match everything;
// KindPrefix matches at dot boundaries, Start is inclusive and End
// exclusive.
type Filter struct {
	KindPrefix string
	Source     string
	EntityID   string
	Start      time.Time
	End        time.Time
}

// matches reports whether one event passes the filter.
func (f Filter) matches(e domain.Event) bool {
	if f.KindPrefix != "" && !domain.KindHasPrefix(e.Kind, f.KindPrefix) {
		return false
	}
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	if !f.Start.IsZero() && e.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && !e.Timestamp.Before(f.End) {
		return false
	}
	return true
}

// Read returns every matching event across the primary root and all
// service roots, sorted ascending by timestamp. No file is assumed to be
// internally sorted. Purely a query; the log is never touched.
func (s *Store) Read(ctx context.Context, f Filter) ([]domain.Event, error) {
	roots, err := s.roots()
	if err != nil {
		return nil, err
	}
	return s.readRoots(ctx, roots, f)
}

// ReadService returns matching events from one service root only.
func (s *Store) ReadService(ctx context.Context, service string, f Filter) ([]domain.Event, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return nil, fmt.Errorf("service name is required")
	}
	return s.readRoots(ctx, []string{s.ServiceDir(service)}, f)
}

// readRoots scans the given roots and merges their matches into one
// time-ascending sequence.
func (s *Store) readRoots(ctx context.Context, roots []string, f Filter) ([]domain.Event, error) {
	var events []domain.Event
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read log dir %s: %w", root, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !isMonthFile(entry.Name()) {
				continue
			}
			events, err = s.scanFile(filepath.Join(root, entry.Name()), f, events)
			if err != nil {
				return nil, err
			}
		}
	}
	slices.SortStableFunc(events, func(a, b domain.Event) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return events, nil
}

// scanFile parses one period file line by line. A malformed line is skipped
// with a diagnostic and never aborts the scan; only the file-level open or
// read failing is an error.
func (s *Store) scanFile(path string, f Filter, events []domain.Event) ([]domain.Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event domain.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			s.logger.Warn("skipping malformed log line", "file", path, "line", lineNo, "err", err)
			continue
		}
		if f.matches(event) {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log file %s: %w", path, err)
	}
	return events, nil
}
