package domain

import (
	"fmt"
	"time"
)

// sequenceLimit caps the zero-padded three digit sequence. Overflow fails
// loudly instead of widening or wrapping.
const sequenceLimit = 999

// DayIDPrefix returns the day-scoped identifier prefix, e.g. "t-20260112-".
func DayIDPrefix(prefix string, day time.Time) string {
	return fmt.Sprintf("%s-%s-", prefix, day.Format("20060102"))
}

// YearIDPrefix returns the year-scoped identifier prefix, e.g. "g-2026-".
func YearIDPrefix(prefix string, year time.Time) string {
	return fmt.Sprintf("%s-%d-", prefix, year.Year())
}

// SequenceID appends a zero-padded sequence number to a period prefix.
// Sequence numbers beyond 999 would collide with the documented identifier
// format and are rejected.
func SequenceID(periodPrefix string, n int) (string, error) {
	if n < 1 || n > sequenceLimit {
		return "", fmt.Errorf("%w: %s%d", ErrSequenceOverflow, periodPrefix, n)
	}
	return fmt.Sprintf("%s%03d", periodPrefix, n), nil
}
