/*
errors.go - Error taxonomy for the eligibility core

PURPOSE:
  All error types in one place. The pure core (Normalize, ComputeUpdates)
  never fails; every error here originates at an I/O boundary and is
  raised by the stores or the workflow layer.

CATEGORIES:
  1. NotFound      - referenced rider does not exist (no write attempted)
  2. Persistence   - the external store rejected a write
  3. CountMismatch - bulk fetch disagrees with the authoritative count
                     (non-fatal warning, processing continues)
  4. Abort         - bulk count/fetch phase failed before any write

USAGE:
  if errors.Is(err, rider.ErrRiderNotFound) { ... }

SEE ALSO:
  - store.go: the interface whose implementations raise these
  - workflow/orchestrator.go: aggregation of per-record failures
*/
package rider

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRiderNotFound is returned when a rider id has no record.
	ErrRiderNotFound = errors.New("rider not found")

	// ErrPersistence is returned when the external store fails a write.
	// The candidate document is discarded; no partial apply is visible.
	ErrPersistence = errors.New("persistence failed")

	// ErrRecomputeRunning is returned when a bulk recompute is requested
	// while one is already in flight.
	ErrRecomputeRunning = errors.New("bulk recompute already running")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PersistenceError wraps a store write failure with the rider it hit.
type PersistenceError struct {
	RiderID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting rider %s: %v", e.RiderID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return ErrPersistence }

// CountMismatchError reports a paged fetch that returned a different
// number of records than the store's authoritative count. Non-fatal:
// the bulk run proceeds on the fetched set.
type CountMismatchError struct {
	Expected int
	Fetched  int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("count mismatch: store reports %d records, fetched %d", e.Expected, e.Fetched)
}

// AbortError is a failure during the count/fetch phase of a bulk run,
// before any batch started. Zero writes were attempted.
type AbortError struct {
	Phase string // "count" or "fetch"
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("bulk recompute aborted during %s: %v", e.Phase, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing rider.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRiderNotFound)
}
