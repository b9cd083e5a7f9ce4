package app

import "errors"

// ErrNotFound reports that a convenience operation referenced an entity id
// with no creation record in the log. Plain derivation queries never
// return it; an unknown id there is just an empty result.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput reports a convenience operation called with unusable
// arguments.
var ErrInvalidInput = errors.New("invalid input")
