// Package materialize turns CDF coordinates into persisted variation
// identities, batched per location.
package materialize

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sweepcore/internal/sampling"
	"sweepcore/pkg/domain"
)

// Materializer resolves sample points against the identity store. The store
// and default source are injected; there is no process-global handle.
type Materializer struct {
	store    domain.IdentityStore
	defaults domain.DefaultSource
	log      *zap.Logger
	onInsert func()
}

// New constructs a materializer. A nil logger is replaced with a no-op one.
func New(store domain.IdentityStore, defaults domain.DefaultSource, log *zap.Logger) *Materializer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Materializer{store: store, defaults: defaults, log: log}
}

// OnInsert registers a callback invoked once per newly minted identity, for
// instrumentation.
func (m *Materializer) OnInsert(fn func()) { m.onInsert = fn }

// AddVariations materializes one identity tuple per CDF sample point. The
// reference identities supply values for every target not touched by the
// variation set; locations absent from the reference fall back to the base
// identity. All target values are computed and all schema evolution performed
// before the first insert, so an invalid request aborts with no partial
// state.
func (m *Materializer) AddVariations(ctx context.Context, folder string, pv *domain.ParsedVariations, ref domain.IDSet, cdfs [][]float64) ([]domain.IDSet, error) {
	rows := make([][]domain.TargetValue, len(cdfs))
	for i, point := range cdfs {
		vals, err := pv.ValuesAtCDF(point)
		if err != nil {
			return nil, err
		}
		rows[i] = vals
	}
	return m.resolve(ctx, folder, pv, ref, rows)
}

// AddGridVariations materializes the full Cartesian product of a discrete
// variation set. Continuous variations are rejected.
func (m *Materializer) AddGridVariations(ctx context.Context, folder string, pv *domain.ParsedVariations, ref domain.IDSet) ([]domain.IDSet, error) {
	cards, err := pv.Cardinalities()
	if err != nil {
		return nil, err
	}
	combos := sampling.GridIndices(cards)
	rows := make([][]domain.TargetValue, len(combos))
	for i, combo := range combos {
		vals, err := pv.ValuesAtIndices(combo)
		if err != nil {
			return nil, err
		}
		rows[i] = vals
	}
	return m.resolve(ctx, folder, pv, ref, rows)
}

func (m *Materializer) resolve(ctx context.Context, folder string, pv *domain.ParsedVariations, ref domain.IDSet, rows [][]domain.TargetValue) ([]domain.IDSet, error) {
	locations := pv.LocationsInUse()
	if err := m.evolveSchema(ctx, folder, pv, locations); err != nil {
		return nil, err
	}

	// Reference rows are read after schema evolution so they carry any
	// backfilled columns.
	refRows := make(map[domain.Location]map[string]domain.Value, len(locations))
	for _, loc := range locations {
		refID := domain.BaseVariationID
		if id, ok := ref[loc]; ok && id != domain.UnusedVariationID {
			refID = id
		}
		row, err := m.store.Row(ctx, loc, folder, refID)
		if err != nil {
			return nil, fmt.Errorf("reference identity %d for %s/%s: %w", refID, loc, folder, err)
		}
		refRows[loc] = row
	}

	out := make([]domain.IDSet, len(rows))
	for i, vals := range rows {
		ids := make(domain.IDSet, len(locations))
		byLoc := make(map[domain.Location]map[string]domain.Value, len(locations))
		for _, loc := range locations {
			base := refRows[loc]
			row := make(map[string]domain.Value, len(base))
			for k, v := range base {
				row[k] = v
			}
			byLoc[loc] = row
		}
		for _, tv := range vals {
			byLoc[tv.Target.Location][tv.Target.Path] = tv.Value
		}
		for _, loc := range locations {
			id, created, err := m.store.LookupOrCreate(ctx, loc, folder, byLoc[loc])
			if err != nil {
				return nil, fmt.Errorf("materialize point %d at %s/%s: %w", i, loc, folder, err)
			}
			if created && m.onInsert != nil {
				m.onInsert()
			}
			ids[loc] = id
		}
		out[i] = ids
	}
	m.log.Debug("materialized variations",
		zap.String("folder", folder),
		zap.Int("points", len(rows)),
		zap.Int("locations", len(locations)))
	return out, nil
}

// evolveSchema ensures every varied target has a column in its location's
// schema, backfilling pre-existing rows with the target's current default so
// schema evolution never invalidates previously stored identities.
func (m *Materializer) evolveSchema(ctx context.Context, folder string, pv *domain.ParsedVariations, locations []domain.Location) error {
	existing := make(map[domain.Location]map[string]struct{}, len(locations))
	for _, loc := range locations {
		if err := m.store.EnsureFolder(ctx, loc, folder); err != nil {
			return err
		}
		cols, err := m.store.Columns(ctx, loc, folder)
		if err != nil {
			return err
		}
		set := make(map[string]struct{}, len(cols))
		for _, c := range cols {
			set[c] = struct{}{}
		}
		existing[loc] = set
	}
	for _, lv := range pv.Variations() {
		for _, t := range lv.Targets() {
			if _, ok := existing[t.Location][t.Path]; ok {
				continue
			}
			def, err := m.defaults.DefaultValue(ctx, t.Location, folder, t.Path)
			if err != nil {
				return fmt.Errorf("default for %s: %w", t, err)
			}
			if err := m.store.AddColumn(ctx, t.Location, folder, t.Path, def); err != nil {
				return fmt.Errorf("add column %s: %w", t, err)
			}
			existing[t.Location][t.Path] = struct{}{}
			m.log.Debug("added variation column",
				zap.String("folder", folder),
				zap.String("target", t.String()))
		}
	}
	return nil
}
