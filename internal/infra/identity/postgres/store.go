// Package postgres provides a Postgres-backed identity store that mirrors the
// in-memory semantics, snapshotting state after every successful mutation.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"sweepcore/internal/infra/identity/memory"
	"sweepcore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.IdentityStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/sweepcore?sslmode=disable"
	envDSN        = "SWEEPCORE_IDENTITY_POSTGRES_DSN"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists identity state to Postgres while reusing the in-memory
// implementation for lookups and atomicity.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to SWEEPCORE_IDENTITY_POSTGRES_DSN, then a localhost default), ensures the
// snapshot table exists, and hydrates the in-memory store.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = os.Getenv(envDSN)
	}
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS identity_state (
		bucket TEXT PRIMARY KEY,
		payload BYTEA NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create identity_state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

const snapshotBucket = "identities"

func (s *Store) load(ctx context.Context) error {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM identity_state WHERE bucket = $1`, snapshotBucket).Scan(&payload)
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

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(s.ExportState())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO identity_state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
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
	return s.persist(ctx)
}

// AddColumn extends a folder's schema, then snapshots.
func (s *Store) AddColumn(ctx context.Context, loc domain.Location, folder string, path string, def domain.Value) error {
	if err := s.Store.AddColumn(ctx, loc, folder, path, def); err != nil {
		return err
	}
	return s.persist(ctx)
}

// LookupOrCreate resolves an identity, then snapshots.
func (s *Store) LookupOrCreate(ctx context.Context, loc domain.Location, folder string, row map[string]domain.Value) (domain.VariationID, bool, error) {
	id, created, err := s.Store.LookupOrCreate(ctx, loc, folder, row)
	if err != nil {
		return 0, false, err
	}
	if err := s.persist(ctx); err != nil {
		return 0, false, err
	}
	return id, created, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
