package identity

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvariantViolation = errors.New("invariant violation")
)

// Invariant check names, also used as metric labels.
const (
	InvariantRowCount      = "row_count"
	InvariantOriginCountry = "origin_country"
)

// InvariantError reports a fatal table invariant. It unwraps to
// ErrInvariantViolation.
type InvariantError struct {
	Check    string
	Step     string
	Key      string
	Expected int
	Got      int
}

func (e *InvariantError) Error() string {
	if e.Check == InvariantOriginCountry {
		return fmt.Sprintf("primary key %q has %d origin countries", e.Key, e.Got)
	}
	return fmt.Sprintf("row count changed from %s: expected %d got %d", e.Step, e.Expected, e.Got)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }
