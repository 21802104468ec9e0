/*
Package sqlite provides a SQLite-backed implementation of rider.Store.

PURPOSE:
  Persists rider documents in a single table with the open attribute map
  held as a JSON column. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

SCHEMA:
  riders:
    id         TEXT PRIMARY KEY   storage-assigned opaque id
    rider_id   TEXT UNIQUE        business key, immutable
    attributes TEXT               JSON attribute document
    updated_at TIMESTAMP          stamped on every write

INDEXES:
  - idx_riders_updated_at: paged traversal order for bulk recomputes

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves. Concurrent
  batch writers are additionally serialized by a mutex; database-level
  concurrency control would handle this with PostgreSQL.

USAGE:
  st, err := sqlite.New("./data/riders.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - rider/store.go: interface definition
  - rider/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/rider-engine/rider"
)

// Store implements rider.Store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes writes; SQLite allows one writer at a time
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS riders (
		id         TEXT PRIMARY KEY,
		rider_id   TEXT NOT NULL UNIQUE,
		attributes TEXT NOT NULL DEFAULT '{}',
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_riders_updated_at ON riders(updated_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// rider.Store IMPLEMENTATION
// =============================================================================

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM riders`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count riders: %w", err)
	}
	return n, nil
}

func (s *Store) FetchPage(ctx context.Context, offset, limit int) ([]rider.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rider_id, attributes, updated_at
		FROM riders
		ORDER BY updated_at DESC, rider_id ASC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer rows.Close()

	var page []rider.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		page = append(page, rec)
	}
	return page, rows.Err()
}

func (s *Store) GetByKey(ctx context.Context, riderID string) (*rider.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, rider_id, attributes, updated_at
		FROM riders WHERE rider_id = ?`, riderID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rider.ErrRiderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateByKey merges attrs into the stored JSON document. The read and
// write happen inside one transaction so the merge is atomic per record.
func (s *Store) UpdateByKey(ctx context.Context, riderID string, attrs rider.AttributeMap, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT attributes FROM riders WHERE rider_id = ?`, riderID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return rider.ErrRiderNotFound
	}
	if err != nil {
		return fmt.Errorf("load attributes: %w", err)
	}

	current := make(rider.AttributeMap)
	if err := json.Unmarshal([]byte(raw), &current); err != nil {
		return fmt.Errorf("decode attributes for %s: %w", riderID, err)
	}
	for k, v := range attrs {
		if v == nil {
			delete(current, k)
			continue
		}
		current[k] = v
	}

	encoded, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode attributes for %s: %w", riderID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE riders SET attributes = ?, updated_at = ? WHERE rider_id = ?`,
		string(encoded), at.UTC(), riderID); err != nil {
		return fmt.Errorf("update rider %s: %w", riderID, err)
	}
	return tx.Commit()
}

func (s *Store) Insert(ctx context.Context, rec rider.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	if rec.Attributes == nil {
		rec.Attributes = make(rider.AttributeMap)
	}

	encoded, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes for %s: %w", rec.RiderID, err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO riders (id, rider_id, attributes, updated_at)
		VALUES (?, ?, ?, ?)`,
		rec.ID, rec.RiderID, string(encoded), rec.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("insert rider %s: %w", rec.RiderID, err)
	}
	return nil
}

// =============================================================================
// SCANNING
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (rider.Record, error) {
	var rec rider.Record
	var raw string
	if err := sc.Scan(&rec.ID, &rec.RiderID, &raw, &rec.UpdatedAt); err != nil {
		return rider.Record{}, err
	}
	rec.Attributes = make(rider.AttributeMap)
	if err := json.Unmarshal([]byte(raw), &rec.Attributes); err != nil {
		return rider.Record{}, fmt.Errorf("decode attributes for %s: %w", rec.RiderID, err)
	}
	return rec, nil
}
