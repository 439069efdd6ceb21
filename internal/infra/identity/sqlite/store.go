// Package sqlite persists the identity store to a single SQLite table as JSON
// snapshots, taken after every successful mutation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sweepcore/internal/infra/identity/memory"
	"sweepcore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Store is a snapshotting SQLite-backed identity store.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

var _ domain.IdentityStore = (*Store)(nil)

// NewStore opens (or creates) the database at path and hydrates the in-memory
// state from any existing snapshot.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "sweepcore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS identity_state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create identity_state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

const snapshotBucket = "identities"

func (s *Store) load() error {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM identity_state WHERE bucket = ?`, snapshotBucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select snapshot: %w", err)
	}
	var snap memory.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	s.ImportState(snap)
	return nil
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(s.ExportState())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO identity_state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
		snapshotBucket, payload,
	); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// EnsureFolder initializes a folder, then snapshots.
func (s *Store) EnsureFolder(ctx context.Context, loc domain.Location, folder string) error {
	if err := s.Store.EnsureFolder(ctx, loc, folder); err != nil {
		return err
	}
	return s.persist()
}

// AddColumn extends a folder's schema, then snapshots.
func (s *Store) AddColumn(ctx context.Context, loc domain.Location, folder string, path string, def domain.Value) error {
	if err := s.Store.AddColumn(ctx, loc, folder, path, def); err != nil {
		return err
	}
	return s.persist()
}

// LookupOrCreate resolves an identity, then snapshots.
func (s *Store) LookupOrCreate(ctx context.Context, loc domain.Location, folder string, row map[string]domain.Value) (domain.VariationID, bool, error) {
	id, created, err := s.Store.LookupOrCreate(ctx, loc, folder, row)
	if err != nil {
		return 0, false, err
	}
	if err := s.persist(); err != nil {
		return 0, false, err
	}
	return id, created, nil
}

// Close releases the underlying database handle. The in-memory state stays
// readable after Close, but mutations will fail to snapshot.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
