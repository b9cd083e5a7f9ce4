// Package domain holds the event record model and the derived view types.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SourceManual tags records entered directly by the user.
const SourceManual = "manual"

// TimestampLayout is the on-disk timestamp format. Timestamps carry the
// writer's local offset; within one log a lexicographic sort of these
// strings matches chronological order, and the reader always re-sorts by
// parsed time anyway.
const TimestampLayout = time.RFC3339

// Event is one immutable timestamped fact in the log. Once appended it is
// never rewritten; corrections are represented as new events whose payload
// references the corrected record.
type Event struct {
	Timestamp time.Time
	Kind      string
	Source    string
	EntityID  string
	Payload   map[string]any
}

// EventInput carries the caller-supplied fields for a new event. Timestamp
// and Source are optional; NewEvent fills the defaults.
type EventInput struct {
	Kind      string
	Source    string
	EntityID  string
	Timestamp time.Time
	Payload   map[string]any
}

// NewEvent validates input and constructs an event with defaults applied:
// timestamp "now" in the local zone, source "manual".
func NewEvent(in EventInput, now time.Time) (Event, error) {
	kind := strings.TrimSpace(in.Kind)
	if !ValidKind(kind) {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidKind, in.Kind)
	}
	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = SourceManual
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = now
	}
	payload := in.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{
		Timestamp: ts.Truncate(time.Second),
		Kind:      kind,
		Source:    source,
		EntityID:  strings.TrimSpace(in.EntityID),
		Payload:   payload,
	}, nil
}

// ValidKind reports whether kind is a dotted domain.action string.
func ValidKind(kind string) bool {
	domainPart, action, ok := strings.Cut(kind, ".")
	if !ok {
		return false
	}
	return strings.TrimSpace(domainPart) != "" && strings.TrimSpace(action) != ""
}

// KindHasPrefix reports whether kind matches prefix at a dot boundary, so
// "task" matches "task.created" but not "taskx.created".
func KindHasPrefix(kind, prefix string) bool {
	if prefix == "" {
		return true
	}
	return kind == prefix || strings.HasPrefix(kind, prefix+".")
}

// eventWire is the stored line shape. Field order inside a line is
// irrelevant for interop; entity_id is present only when applicable.
type eventWire struct {
	Timestamp string         `json:"timestamp"`
	Kind      string         `json:"kind"`
	Source    string         `json:"source"`
	EntityID  string         `json:"entity_id,omitempty"`
	Payload   map[string]any `json:"payload"`
}

// MarshalJSON encodes the event as one self-contained log line object.
func (e Event) MarshalJSON() ([]byte, error) {
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return json.Marshal(eventWire{
		Timestamp: e.Timestamp.Format(TimestampLayout),
		Kind:      e.Kind,
		Source:    e.Source,
		EntityID:  e.EntityID,
		Payload:   payload,
	})
}

// UnmarshalJSON decodes one log line object into the event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire eventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if !ValidKind(wire.Kind) {
		return fmt.Errorf("%w: %q", ErrInvalidKind, wire.Kind)
	}
	ts, err := time.Parse(TimestampLayout, wire.Timestamp)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", wire.Timestamp, err)
	}
	payload := wire.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	*e = Event{
		Timestamp: ts,
		Kind:      wire.Kind,
		Source:    wire.Source,
		EntityID:  wire.EntityID,
		Payload:   payload,
	}
	return nil
}

// PayloadString returns the payload field as a trimmed string, or "" when
// absent or not a string. Unknown payload fields are ignored by derivation.
func (e Event) PayloadString(key string) string {
	v, ok := e.Payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// PayloadFloat returns the payload field as a float64 where the stored
// value is numeric; JSON numbers always decode as float64.
func (e Event) PayloadFloat(key string) (float64, bool) {
	v, ok := e.Payload[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
