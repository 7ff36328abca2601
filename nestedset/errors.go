package nestedset

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNotFound is returned when a referenced node does not exist
	ErrNotFound = errors.New("node not found")
	// ErrCycle is returned when a move would place a node inside its own subtree
	ErrCycle = errors.New("node cannot be moved into its own subtree")
	// ErrConflict is returned when a mutation could not commit because of a
	// concurrent structural change
	ErrConflict = errors.New("concurrent tree modification")
	// ErrIntegrity is returned when the boundary encoding is inconsistent
	ErrIntegrity = errors.New("tree integrity violated")
	// ErrInvalidPosition is returned for a sibling position that cannot be used
	ErrInvalidPosition = errors.New("invalid tree position")
)

// NotFoundError names the id that could not be found.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("node %d not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CycleError is returned by moves whose target lies in the moved subtree.
// Nothing has been written when it is returned.
type CycleError struct {
	ID       int64
	TargetID int64
}

func (e *CycleError) Error() string {
	if e.ID == e.TargetID {
		return fmt.Sprintf("node %d cannot be moved relative to itself", e.ID)
	}
	return fmt.Sprintf("node %d cannot be moved under its descendant %d", e.ID, e.TargetID)
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// ConflictError is returned once a mutation has exhausted its retries.
type ConflictError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// IntegrityViolation carries the report of a failed integrity check.
type IntegrityViolation struct {
	Report *IntegrityReport
}

func (e *IntegrityViolation) Error() string {
	return fmt.Sprintf("tree has %d integrity violations (%s)", e.Report.Total(), e.Report)
}

func (e *IntegrityViolation) Unwrap() error { return ErrIntegrity }
