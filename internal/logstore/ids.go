package logstore

import (
	"context"
	"strings"
	"time"

	"github.com/hylla/loggbok/internal/domain"
)

// NextDayID returns the next identifier in a day-scoped sequence, e.g.
// "t-20260112-003". The sequence number is derived by counting entities
// already present in the log, which is not safe against a concurrent
// writer generating at the same moment; single-user sequential access is
// assumed and the race is documented rather than locked away.
func (s *Store) NextDayID(ctx context.Context, prefix string, day time.Time) (string, error) {
	return s.nextID(ctx, domain.DayIDPrefix(prefix, day))
}

// NextYearID returns the next identifier in a year-scoped sequence, e.g.
// "g-2026-001". Same counting scheme and caveat as NextDayID.
func (s *Store) NextYearID(ctx context.Context, prefix string, year time.Time) (string, error) {
	return s.nextID(ctx, domain.YearIDPrefix(prefix, year))
}

// nextID counts distinct entity ids under the period prefix across the
// whole log and takes count+1. More than 999 entities of one kind in a
// single period fails loudly instead of wrapping.
func (s *Store) nextID(ctx context.Context, periodPrefix string) (string, error) {
	events, err := s.Read(ctx, Filter{})
	if err != nil {
		return "", err
	}
	seen := map[string]struct{}{}
	for _, event := range events {
		if event.EntityID != "" && strings.HasPrefix(event.EntityID, periodPrefix) {
			seen[event.EntityID] = struct{}{}
		}
	}
	return domain.SequenceID(periodPrefix, len(seen)+1)
}
