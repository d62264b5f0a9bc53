/*
Package sqlite provides a SQLite-backed generic.BlobStore.

PURPOSE:
  Single-file deployment of the record store. Each blob is one row; the
  version is an integer bumped on every write.

COMPARE-AND-SWAP:
  Create:  INSERT ... ON CONFLICT(path) DO NOTHING   0 rows -> ErrConflict
  Update:  UPDATE ... WHERE path = ? AND version = ?  0 rows -> ErrConflict

  Both are single statements, so the check and the write cannot be split by
  another writer, in this process or another one sharing the file.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definition
  - recordstore/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/leave-register/generic"
)

// Store implements generic.BlobStore on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates it.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := NewFromDB(db)
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// NewFromDB wraps an already migrated database handle.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS blobs (
		path TEXT PRIMARY KEY,
		content BLOB NOT NULL,
		version INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BLOB STORE
// =============================================================================

// Get returns the blob at path.
func (s *Store) Get(ctx context.Context, path string) (generic.Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var content []byte
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT content, version FROM blobs WHERE path = ?`, path,
	).Scan(&content, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Blob{}, generic.NotFoundError(path)
	}
	if err != nil {
		return generic.Blob{}, generic.UnavailableError("get", path, err)
	}

	return generic.Blob{Path: path, Content: content, Version: formatVersion(version)}, nil
}

// Put writes content under the expected-version precondition.
func (s *Store) Put(ctx context.Context, path string, content []byte, expected generic.Version) (generic.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)

	if expected == "" {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO blobs (path, content, version, updated_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT(path) DO NOTHING`,
			path, content, now,
		)
		if err != nil {
			return "", generic.UnavailableError("put", path, err)
		}
		return s.checkApplied(res, path, expected, 1)
	}

	current, err := strconv.ParseInt(string(expected), 10, 64)
	if err != nil {
		// Not a version this store ever issued.
		return "", generic.StaleVersionError(path, expected)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE blobs SET content = ?, version = version + 1, updated_at = ?
		WHERE path = ? AND version = ?`,
		content, now, path, current,
	)
	if err != nil {
		return "", generic.UnavailableError("put", path, err)
	}
	return s.checkApplied(res, path, expected, current+1)
}

func (s *Store) checkApplied(res sql.Result, path string, expected generic.Version, next int64) (generic.Version, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return "", generic.UnavailableError("put", path, err)
	}
	if n == 0 {
		return "", generic.StaleVersionError(path, expected)
	}
	return formatVersion(next), nil
}

func formatVersion(v int64) generic.Version {
	return generic.Version(strconv.FormatInt(v, 10))
}

// Reset deletes every blob. For dev and tests.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM blobs`)
	return err
}
