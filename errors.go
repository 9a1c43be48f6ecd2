package docpager

import "errors"

var (
	// ErrInvalidCursor is returned when a cursor token cannot be decoded or
	// does not fit the active orderings.
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrNoValidFields is returned when projection resolution narrows the
	// requested fields down to nothing.
	ErrNoValidFields = errors.New("no valid fields requested")
	// ErrUnsupportedExclusion is returned when a projection excludes any field
	// other than the identity field.
	ErrUnsupportedExclusion = errors.New("only the identity field may be excluded")
	// ErrNotFound is returned by Store.Lookup when no document has the given id.
	ErrNotFound = errors.New("document not found")
)
