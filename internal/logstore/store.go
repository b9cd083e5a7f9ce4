// Package logstore implements the append-only event log: month-partitioned
// JSONL files under one primary root plus one subdirectory per external
// service, a filtering reader, and the count-based identifier generator.
package logstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
)

// logFileExt is the line-record extension shared by every log file.
const logFileExt = ".jsonl"

// Clock returns the current time.
type Clock func() time.Time

// Store represents one log directory tree: a primary root of monthly files
// and a sync root holding one subdirectory per external service. All reads
// span both; writes target either the primary root or one service root.
type Store struct {
	primary string
	syncDir string
	logger  *charmLog.Logger
	clock   Clock
}

// Option adjusts store construction.
type Option func(*Store)

// WithClock overrides the store clock; tests pin it for deterministic
// timestamps and file names.
func WithClock(clock Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Open prepares a store over the given roots, creating the primary
// directory when absent. The sync root is created lazily on first merge.
func Open(primaryDir, syncDir string, logger *charmLog.Logger, opts ...Option) (*Store, error) {
	primaryDir = strings.TrimSpace(primaryDir)
	if primaryDir == "" {
		return nil, errors.New("log directory is required")
	}
	syncDir = strings.TrimSpace(syncDir)
	if syncDir == "" {
		syncDir = filepath.Join(primaryDir, "sync")
	}
	if err := os.MkdirAll(primaryDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if logger == nil {
		logger = charmLog.New(os.Stderr)
	}
	store := &Store{
		primary: primaryDir,
		syncDir: syncDir,
		logger:  logger,
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// PrimaryDir returns the primary log root.
func (s *Store) PrimaryDir() string { return s.primary }

// SyncDir returns the root containing per-service subdirectories.
func (s *Store) SyncDir() string { return s.syncDir }

// ServiceDir returns the log root for one external service.
func (s *Store) ServiceDir(service string) string {
	return filepath.Join(s.syncDir, service)
}

// roots lists every directory that currently contributes log files. A
// missing sync root simply contributes nothing.
func (s *Store) roots() ([]string, error) {
	roots := []string{s.primary}
	entries, err := os.ReadDir(s.syncDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return roots, nil
		}
		return nil, fmt.Errorf("read sync dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			roots = append(roots, filepath.Join(s.syncDir, entry.Name()))
		}
	}
	return roots, nil
}

// monthFileName returns the period file name for a record timestamp.
func monthFileName(ts time.Time) string {
	return ts.Format("2006-01") + logFileExt
}

// isMonthFile reports whether a directory entry looks like a period log
// file; anything else under a root is ignored by scans.
func isMonthFile(name string) bool {
	if !strings.HasSuffix(name, logFileExt) {
		return false
	}
	stem := strings.TrimSuffix(name, logFileExt)
	_, err := time.Parse("2006-01", stem)
	return err == nil
}
