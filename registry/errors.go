package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Reason when the architecture has no
	// recorded unsupported reason.
	ErrNotFound = errors.New("architecture not found")

	// ErrInvalidTable is returned by New when the tables violate an
	// invariant after overrides are applied.
	ErrInvalidTable = errors.New("invalid capability table")
)

// ReasonNotFoundError reports a Reason lookup for an architecture that is
// not in the unsupported table.
type ReasonNotFoundError struct {
	Arch string
}

func (e *ReasonNotFoundError) Error() string {
	return fmt.Sprintf("no unsupported reason recorded for architecture %q", e.Arch)
}

// Is implements error matching for errors.Is() checks.
func (e *ReasonNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TableError describes an invariant violation found while building a
// Registry.
type TableError struct {
	Arch   string
	Reason string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("invalid capability table for %q: %s", e.Arch, e.Reason)
}

func (e *TableError) Is(target error) bool {
	return target == ErrInvalidTable
}
