package domain

import "context"

// VariationID is the integer identity of one persisted parameter vector,
// scoped per (location, folder).
type VariationID int64

const (
	// BaseVariationID is the reserved identity for the folder's base/default
	// values; it always exists once a folder is initialized.
	BaseVariationID VariationID = 0
	// UnusedVariationID marks a location not in use for the current inputs.
	UnusedVariationID VariationID = -1
)

// IdentityStore persists parameter vectors per (location, folder) and hands
// out integer identities. Two vectors with identical byte keys always map to
// the same identity; LookupOrCreate must be atomic per (location, folder) so
// concurrent materialization never mints two identities for one vector.
type IdentityStore interface {
	// EnsureFolder initializes a (location, folder) pair, creating the
	// reserved base identity if it does not exist yet.
	EnsureFolder(ctx context.Context, loc Location, folder string) error
	// Columns returns the target paths currently present in the folder's
	// schema, sorted.
	Columns(ctx context.Context, loc Location, folder string) ([]string, error)
	// AddColumn extends the schema with a new target path, backfilling every
	// previously stored row (the base row included) with the default value so
	// existing identities stay valid.
	AddColumn(ctx context.Context, loc Location, folder string, path string, def Value) error
	// Row returns the full stored parameter vector for an identity.
	Row(ctx context.Context, loc Location, folder string, id VariationID) (map[string]Value, error)
	// LookupOrCreate resolves a full parameter vector to its identity,
	// creating one only if no byte-identical vector was stored before. The
	// bool reports whether a new identity was minted.
	LookupOrCreate(ctx context.Context, loc Location, folder string, row map[string]Value) (VariationID, bool, error)
}

// DefaultSource reads a target's current default/base value from the folder's
// base configuration; used to backfill schema evolution.
type DefaultSource interface {
	DefaultValue(ctx context.Context, loc Location, folder string, path string) (Value, error)
}

// IDSet maps each varied location to the variation identity materialized for
// one sample point. Locations the variation set does not touch are omitted
// from the map; an explicit UnusedVariationID entry is read the same way as
// absence.
type IDSet map[Location]VariationID
