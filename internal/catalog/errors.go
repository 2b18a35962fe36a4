package catalog

import "errors"

var (
	// ErrNotFound marks an absent service, entity or endpoint.
	ErrNotFound = errors.New("not found")

	// ErrConfigCorrupt marks a configuration record that exists but cannot be parsed.
	ErrConfigCorrupt = errors.New("configuration record is corrupt")

	// ErrNameConflict marks a create or rename targeting a name already in use.
	ErrNameConflict = errors.New("name already in use")

	// ErrInvalidName marks a name that cannot be used as a record key.
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidRecord marks a record that violates its own invariants.
	ErrInvalidRecord = errors.New("invalid configuration record")
)
