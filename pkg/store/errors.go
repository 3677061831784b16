package store

import (
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss is returned when no record exists for a key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheStale is returned with the loaded record when it is older than
	// the freshness window and the caller did not allow stale records.
	ErrCacheStale = errors.New("cache record is stale")

	// ErrCacheWrite matches every WriteError via errors.Is.
	ErrCacheWrite = errors.New("cache write failed")
)

// WriteError describes a failed save. The in-memory data is untouched, so the
// caller may retry.
type WriteError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("cache write failed: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCacheWrite.
func (e *WriteError) Is(target error) bool {
	return target == ErrCacheWrite
}
