package logstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hylla/loggbok/internal/domain"
)

// Append validates input, applies defaults (timestamp now, source manual)
// and appends the record to the primary root's period file, creating the
// directory and file as needed. The stored record is returned so callers
// can report what was written. Storage failures propagate unretried.
func (s *Store) Append(ctx context.Context, in domain.EventInput) (domain.Event, error) {
	event, err := domain.NewEvent(in, s.clock())
	if err != nil {
		return domain.Event{}, err
	}
	if err := s.appendTo(ctx, s.primary, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

// AppendService appends an already-built record to one service root. Used
// by the merge engine, which sets source to the service name itself.
func (s *Store) AppendService(ctx context.Context, service string, event domain.Event) (domain.Event, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return domain.Event{}, fmt.Errorf("service name is required")
	}
	if err := s.appendTo(ctx, s.ServiceDir(service), event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

// appendTo writes one record as one line to the period file under dir.
// Append is the only mutation ever performed on a log file.
func (s *Store) appendTo(ctx context.Context, dir string, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, monthFileName(event.Timestamp))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	defer file.Close()
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append log line %s: %w", path, err)
	}
	s.logger.Debug("event appended", "file", path, "kind", event.Kind, "entity_id", event.EntityID)
	return nil
}
