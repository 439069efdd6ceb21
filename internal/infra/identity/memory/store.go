// Package memory provides the in-memory ParameterIdentity store that the
// durable backends build upon. A single mutex serializes mutations, so
// insert-or-get stays atomic across concurrent materialization requests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sweepcore/pkg/domain"
)

type folderKey struct {
	loc    domain.Location
	folder string
}

type table struct {
	columns []string // sorted target paths
	byKey   map[string]domain.VariationID
	byID    map[domain.VariationID]map[string]domain.Value
	nextID  domain.VariationID
}

// Store is the in-memory identity store.
type Store struct {
	mu     sync.Mutex
	tables map[folderKey]*table
}

var _ domain.IdentityStore = (*Store)(nil)

// NewStore constructs an empty in-memory identity store.
func NewStore() *Store {
	return &Store{tables: make(map[folderKey]*table)}
}

func (s *Store) table(loc domain.Location, folder string) *table {
	k := folderKey{loc: loc, folder: folder}
	t, ok := s.tables[k]
	if !ok {
		t = &table{
			byKey:  make(map[string]domain.VariationID),
			byID:   make(map[domain.VariationID]map[string]domain.Value),
			nextID: domain.BaseVariationID + 1,
		}
		// The reserved base identity always exists.
		base := map[string]domain.Value{}
		t.byID[domain.BaseVariationID] = base
		t.byKey[string(domain.EncodeRowKey(base))] = domain.BaseVariationID
		s.tables[k] = t
	}
	return t
}

// EnsureFolder initializes a (location, folder) pair with its base identity.
func (s *Store) EnsureFolder(_ context.Context, loc domain.Location, folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table(loc, folder)
	return nil
}

// Columns returns the folder's current schema, sorted.
func (s *Store) Columns(_ context.Context, loc domain.Location, folder string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(loc, folder)
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out, nil
}

// AddColumn extends the schema, backfilling every stored row with the default
// so previously minted identities keep resolving to the same vectors. Adding
// an already present column is a no-op.
func (s *Store) AddColumn(_ context.Context, loc domain.Location, folder string, path string, def domain.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(loc, folder)
	for _, c := range t.columns {
		if c == path {
			return nil
		}
	}
	t.columns = append(t.columns, path)
	sort.Strings(t.columns)
	for _, row := range t.byID {
		row[path] = def
	}
	t.reindex()
	return nil
}

func (t *table) reindex() {
	t.byKey = make(map[string]domain.VariationID, len(t.byID))
	for id, row := range t.byID {
		t.byKey[string(domain.EncodeRowKey(row))] = id
	}
}

// Row returns a copy of the stored parameter vector for an identity.
func (s *Store) Row(_ context.Context, loc domain.Location, folder string, id domain.VariationID) (map[string]domain.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(loc, folder)
	row, ok := t.byID[id]
	if !ok {
		return nil, fmt.Errorf("variation %d not found in %s/%s", id, loc, folder)
	}
	out := make(map[string]domain.Value, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out, nil
}

// LookupOrCreate resolves a full parameter vector to its identity, minting a
// new one only when no byte-identical vector exists. The bool reports a mint.
func (s *Store) LookupOrCreate(_ context.Context, loc domain.Location, folder string, row map[string]domain.Value) (domain.VariationID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(loc, folder)
	if len(row) != len(t.columns) {
		return 0, false, fmt.Errorf("row has %d columns, schema of %s/%s has %d", len(row), loc, folder, len(t.columns))
	}
	for _, c := range t.columns {
		if _, ok := row[c]; !ok {
			return 0, false, fmt.Errorf("row missing column %s of %s/%s", c, loc, folder)
		}
	}
	key := string(domain.EncodeRowKey(row))
	if id, ok := t.byKey[key]; ok {
		return id, false, nil
	}
	id := t.nextID
	t.nextID++
	stored := make(map[string]domain.Value, len(row))
	for k, v := range row {
		stored[k] = v
	}
	t.byID[id] = stored
	t.byKey[key] = id
	return id, true, nil
}

// RowSnapshot is the serializable form of one stored identity.
type RowSnapshot struct {
	ID     domain.VariationID      `json:"id"`
	Values map[string]domain.Value `json:"values"`
}

// FolderSnapshot is the serializable form of one (location, folder) table.
type FolderSnapshot struct {
	Location domain.Location    `json:"location"`
	Folder   string             `json:"folder"`
	Columns  []string           `json:"columns"`
	Rows     []RowSnapshot      `json:"rows"`
	NextID   domain.VariationID `json:"next_id"`
}

// Snapshot is the serializable representation of the full store state.
type Snapshot struct {
	Folders []FolderSnapshot `json:"folders"`
}

// ExportState snapshots the full store state for durable persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var snap Snapshot
	keys := make([]folderKey, 0, len(s.tables))
	for k := range s.tables {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].loc != keys[j].loc {
			return keys[i].loc < keys[j].loc
		}
		return keys[i].folder < keys[j].folder
	})
	for _, k := range keys {
		t := s.tables[k]
		fs := FolderSnapshot{Location: k.loc, Folder: k.folder, NextID: t.nextID}
		fs.Columns = append(fs.Columns, t.columns...)
		ids := make([]domain.VariationID, 0, len(t.byID))
		for id := range t.byID {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			fs.Rows = append(fs.Rows, RowSnapshot{ID: id, Values: t.byID[id]})
		}
		snap.Folders = append(snap.Folders, fs)
	}
	return snap
}

// ImportState replaces the store state from a snapshot.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[folderKey]*table, len(snap.Folders))
	for _, fs := range snap.Folders {
		t := &table{
			byKey:  make(map[string]domain.VariationID, len(fs.Rows)),
			byID:   make(map[domain.VariationID]map[string]domain.Value, len(fs.Rows)),
			nextID: fs.NextID,
		}
		t.columns = append(t.columns, fs.Columns...)
		for _, r := range fs.Rows {
			row := make(map[string]domain.Value, len(r.Values))
			for k, v := range r.Values {
				row[k] = v
			}
			t.byID[r.ID] = row
		}
		t.reindex()
		s.tables[folderKey{loc: fs.Location, folder: fs.Folder}] = t
	}
}
