/*
store.go - Persistence interface for rider documents

PURPOSE:
  Defines the interface between the eligibility core and the external
  document store. The source system kept a module-level client to a
  hosted backend; here the store is an injected dependency so the
  workflow layer is testable against an in-memory implementation.

CONTRACT:
  - Records are keyed by the business rider id, unique and immutable.
  - The core never creates records through eligibility flows; Insert
    exists for the surrounding application (intake forms, seeding).
  - UpdateByKey applies an attribute patch atomically per record and
    stamps updated_at.
  - FetchPage traverses updated_at descending, so sequential paging is
    read-consistent enough for a bulk recompute.

IMPLEMENTATIONS:
  - rider/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go: SQLite with a JSON attributes column
  - store/rest/rest.go:     hosted table-API backend over HTTP

SEE ALSO:
  - errors.go: ErrRiderNotFound, ErrPersistence
  - workflow/: the only consumers
*/
package rider

import (
	"context"
	"time"
)

// Store handles persistence of rider records.
type Store interface {
	// Count returns the authoritative total number of records.
	Count(ctx context.Context) (int, error)

	// FetchPage returns up to limit records starting at offset, ordered
	// by updated_at descending. A short or empty page ends traversal.
	FetchPage(ctx context.Context, offset, limit int) ([]Record, error)

	// GetByKey returns the record for a rider id.
	// Returns ErrRiderNotFound if absent.
	GetByKey(ctx context.Context, riderID string) (*Record, error)

	// UpdateByKey merges attrs into the record's attribute document and
	// sets updated_at. The write is atomic per record. Keys mapped to
	// nil clear the attribute. Returns ErrRiderNotFound if absent.
	UpdateByKey(ctx context.Context, riderID string, attrs AttributeMap, at time.Time) error

	// Insert creates a new record. Creation is owned by the surrounding
	// application, not the eligibility flows.
	Insert(ctx context.Context, rec Record) error
}
