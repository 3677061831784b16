package fetch

import (
	"errors"
	"fmt"

	"github.com/KasraH/fpl-combos/pkg/roster"
)

var (
	// ErrFetchExhausted marks a member whose every attempt failed.
	ErrFetchExhausted = errors.New("fetch attempts exhausted")

	// ErrFetchRunFailed is returned when a run requested at least one member
	// and none succeeded.
	ErrFetchRunFailed = errors.New("fetch run failed: no member succeeded")
)

// Failure records a member that was excluded from a run's result.
type Failure struct {
	MemberID roster.MemberID
	Attempts int
	Err      error
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("member %d failed after %d attempts: %v", f.MemberID, f.Attempts, f.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (f Failure) Unwrap() error {
	return f.Err
}
