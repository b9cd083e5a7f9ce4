package domain

import "errors"

// Validation and identifier sentinel errors surfaced by constructors.
var (
	ErrInvalidKind      = errors.New("invalid event kind")
	ErrInvalidTitle     = errors.New("invalid title")
	ErrInvalidEntityID  = errors.New("invalid entity id")
	ErrSequenceOverflow = errors.New("identifier sequence exhausted for period")
)
