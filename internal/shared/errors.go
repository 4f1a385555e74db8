package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrCorruptDocument indicates a persisted document could not be decoded.
	ErrCorruptDocument = errors.New("corrupt document")
)
