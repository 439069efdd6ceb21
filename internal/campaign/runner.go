package campaign

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sweepcore/internal/artifact"
	"sweepcore/internal/materialize"
	"sweepcore/internal/sampling"
	"sweepcore/internal/sensitivity"
	"sweepcore/pkg/domain"
)

// SensitivityMethod names a sensitivity analysis algorithm.
type SensitivityMethod string

const (
	MethodMOAT         SensitivityMethod = "moat"
	MethodSobolIndices SensitivityMethod = "sobol"
	MethodRBD          SensitivityMethod = "rbd"
)

// Runner wires the identity store, default source, and optional artifact
// store into campaign operations. Construct one per campaign scope; it is
// safe for concurrent use.
type Runner struct {
	store       domain.IdentityStore
	defaults    domain.DefaultSource
	mat         *materialize.Materializer
	artifacts   artifact.Store
	log         *zap.Logger
	metrics     *Metrics
	rng         *rand.Rand
	parallelism int
}

// Option configures a Runner.
type Option func(*Runner)

// WithArtifacts persists sampling scheme tables to the given store after
// each sensitivity run.
func WithArtifacts(s artifact.Store) Option { return func(r *Runner) { r.artifacts = s } }

// WithLogger sets the structured logger. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option { return func(r *Runner) { r.log = log } }

// WithMetrics enables the campaign counters: estimator evaluations, memo
// cache hits, and identity-store inserts.
func WithMetrics(m *Metrics) Option { return func(r *Runner) { r.metrics = m } }

// WithRand fixes the random source used by the sampling engines, for
// reproducible campaigns.
func WithRand(rng *rand.Rand) Option { return func(r *Runner) { r.rng = rng } }

// WithParallelism bounds concurrent scoring-function evaluations.
func WithParallelism(n int) Option { return func(r *Runner) { r.parallelism = n } }

// NewRunner constructs a campaign runner over the given identity store and
// default source.
func NewRunner(store domain.IdentityStore, defaults domain.DefaultSource, opts ...Option) *Runner {
	r := &Runner{store: store, defaults: defaults, log: zap.NewNop(), parallelism: 1}
	for _, o := range opts {
		o(r)
	}
	r.mat = materialize.New(store, defaults, r.log)
	if r.metrics != nil {
		r.mat.OnInsert(r.metrics.insert)
	}
	return r
}

// AddRequest describes a standalone sampling operation: draw n points with
// the chosen engine over the variation set and materialize them.
type AddRequest struct {
	Method     sampling.Method
	Folder     string
	Reference  domain.IDSet
	Variations *domain.ParsedVariations
	Samples    int

	LHS      sampling.LHSOptions
	Sobol    sampling.SobolOptions
	SobolRBD bool // derive the RBD sweep from a Sobol sequence
}

// AddResult reports the materialized identity tuples, one per sample point,
// plus the CDF coordinates that produced them (nil for grid sampling).
type AddResult struct {
	IDs  []domain.IDSet
	CDFs sampling.Matrix
}

// AddVariations draws sample points with the requested engine and
// materializes each into an identity tuple. Grid sampling enumerates the full
// Cartesian product and ignores Samples.
func (r *Runner) AddVariations(ctx context.Context, req AddRequest) (*AddResult, error) {
	d := req.Variations.TotalDimension()
	switch req.Method {
	case sampling.MethodGrid:
		ids, err := r.mat.AddGridVariations(ctx, req.Folder, req.Variations, req.Reference)
		if err != nil {
			return nil, err
		}
		return &AddResult{IDs: ids}, nil
	case sampling.MethodLHS:
		opts := req.LHS
		if opts.Rand == nil {
			opts.Rand = r.rng
		}
		cdfs := sampling.LHS(req.Samples, d, opts)
		ids, err := r.mat.AddVariations(ctx, req.Folder, req.Variations, req.Reference, cdfs)
		if err != nil {
			return nil, err
		}
		return &AddResult{IDs: ids, CDFs: cdfs}, nil
	case sampling.MethodSobol:
		opts := req.Sobol
		opts.NMatrices = 1
		if opts.Rand == nil {
			opts.Rand = r.rng
		}
		blocks, err := sampling.SobolCDFs(req.Samples, d, opts)
		if err != nil {
			return nil, err
		}
		ids, err := r.mat.AddVariations(ctx, req.Folder, req.Variations, req.Reference, blocks[0])
		if err != nil {
			return nil, err
		}
		return &AddResult{IDs: ids, CDFs: blocks[0]}, nil
	case sampling.MethodRBD:
		design, err := sampling.RBDCDFs(req.Samples, d, req.SobolRBD, r.rng)
		if err != nil {
			return nil, err
		}
		ids, err := r.mat.AddVariations(ctx, req.Folder, req.Variations, req.Reference, design.CDFs)
		if err != nil {
			return nil, err
		}
		return &AddResult{IDs: ids, CDFs: design.CDFs}, nil
	default:
		return nil, fmt.Errorf("unknown sampling method %q", req.Method)
	}
}

// Scorer is a named scoring function over identity tuples. The campaign layer
// translates it into the analyses' unit-level evaluation boundary, so
// identical tuples are scored once regardless of how many design cells share
// them.
type Scorer struct {
	Name     string
	Evaluate func(ctx context.Context, ids domain.IDSet) (float64, error)
}

// SensitivityRequest describes one sensitivity run.
type SensitivityRequest struct {
	Method     SensitivityMethod
	Folder     string
	Reference  domain.IDSet
	Variations *domain.ParsedVariations
	Samples    int
	Scorers    []Scorer

	// IgnoreIndices lists latent dimensions to exclude from index
	// computation. Only the Sobol' method supports it.
	IgnoreIndices []int

	LHS       sampling.LHSOptions       // MOAT base points
	Sobol     sampling.SobolOptions     // Sobol' A/B matrices
	SobolRBD  bool                      // derive the RBD sweep from a Sobol sequence
	Estimator sensitivity.SobolIndexOptions
	Harmonics int // RBD harmonic count; <= 0 selects the default
}

// SensitivityRun is the outcome of one sensitivity operation: the run
// identifier, the scheme table, the populated results object for the chosen
// method, and the unit-to-tuple mapping needed to reproduce any evaluation.
type SensitivityRun struct {
	ID             string
	Method         SensitivityMethod
	DimensionNames []string
	Scheme         *sensitivity.Scheme
	Units          map[sensitivity.UnitID]domain.IDSet

	MOAT  *sensitivity.MOATAnalysis
	Sobol *sensitivity.SobolAnalysis
	RBD   *sensitivity.RBDAnalysis

	// ArtifactKey is the stored scheme table's key, empty when no artifact
	// store is configured.
	ArtifactKey string
}

// RunSensitivity builds the design for the requested method, materializes
// every design cell, computes indices for each scorer, and (when an artifact
// store is configured) persists the scheme table as CSV.
func (r *Runner) RunSensitivity(ctx context.Context, req SensitivityRequest) (*SensitivityRun, error) {
	run := &SensitivityRun{
		ID:             uuid.NewString(),
		Method:         req.Method,
		DimensionNames: req.Variations.DimensionNames(),
	}
	in := newInterner()
	opts := sensitivity.Options{Parallelism: r.parallelism, Metrics: r.metrics.sensitivityMetrics(), Log: r.log}

	var err error
	switch req.Method {
	case MethodMOAT:
		err = r.runMOAT(ctx, req, run, in, opts)
	case MethodSobolIndices:
		err = r.runSobol(ctx, req, run, in, opts)
	case MethodRBD:
		err = r.runRBD(ctx, req, run, in, opts)
	default:
		return nil, fmt.Errorf("unknown sensitivity method %q", req.Method)
	}
	if err != nil {
		return nil, err
	}
	run.Units = in.tuples

	for _, sc := range req.Scorers {
		fn := sensitivity.ScoringFunction{
			Name: sc.Name,
			Evaluate: func(ctx context.Context, id sensitivity.UnitID) (float64, error) {
				ids, ok := in.tuples[id]
				if !ok {
					return 0, fmt.Errorf("unknown unit %d", id)
				}
				return sc.Evaluate(ctx, ids)
			},
		}
		switch req.Method {
		case MethodMOAT:
			_, err = run.MOAT.Compute(ctx, fn)
		case MethodSobolIndices:
			_, err = run.Sobol.Compute(ctx, fn)
		case MethodRBD:
			_, err = run.RBD.Compute(ctx, fn)
		}
		if err != nil {
			return nil, fmt.Errorf("compute %s indices for %q: %w", req.Method, sc.Name, err)
		}
	}

	if r.artifacts != nil {
		key := fmt.Sprintf("schemes/%s/%s.csv", req.Folder, run.ID)
		var buf bytes.Buffer
		if err := run.Scheme.WriteCSV(&buf); err != nil {
			return nil, fmt.Errorf("encode scheme table: %w", err)
		}
		if _, err := r.artifacts.Put(ctx, key, &buf, artifact.PutOptions{
			ContentType: "text/csv",
			Metadata: map[string]string{
				"method": string(req.Method),
				"folder": req.Folder,
			},
		}); err != nil {
			return nil, fmt.Errorf("persist scheme table: %w", err)
		}
		run.ArtifactKey = key
	}

	r.log.Info("sensitivity run complete",
		zap.String("run_id", run.ID),
		zap.String("method", string(req.Method)),
		zap.String("folder", req.Folder),
		zap.Int("units", len(run.Units)))
	return run, nil
}

func (r *Runner) runMOAT(ctx context.Context, req SensitivityRequest, run *SensitivityRun, in *interner, opts sensitivity.Options) error {
	d := req.Variations.TotalDimension()
	lhs := req.LHS
	if lhs.Rand == nil {
		lhs.Rand = r.rng
	}
	design, err := sensitivity.NewMOATDesign(req.Samples, d, lhs, req.IgnoreIndices)
	if err != nil {
		return err
	}
	baseUnits, err := r.materializeUnits(ctx, req, in, design.Base)
	if err != nil {
		return err
	}
	columns := append([]string{sensitivity.SchemeColumnBase}, run.DimensionNames...)
	scheme := sensitivity.NewScheme(columns, req.Samples)
	for i, u := range baseUnits {
		if err := scheme.Set(i, sensitivity.SchemeColumnBase, u); err != nil {
			return err
		}
	}
	for j, dim := range run.DimensionNames {
		units, err := r.materializeUnits(ctx, req, in, design.Perturbed[j])
		if err != nil {
			return err
		}
		for i, u := range units {
			if err := scheme.Set(i, dim, u); err != nil {
				return err
			}
		}
	}
	run.Scheme = scheme
	run.MOAT = sensitivity.NewMOATAnalysis(scheme, run.DimensionNames, opts)
	return nil
}

func (r *Runner) runSobol(ctx context.Context, req SensitivityRequest, run *SensitivityRun, in *interner, opts sensitivity.Options) error {
	d := req.Variations.TotalDimension()
	so := req.Sobol
	if so.Rand == nil {
		so.Rand = r.rng
	}
	design, err := sensitivity.NewSobolDesign(req.Samples, d, so, req.IgnoreIndices)
	if err != nil {
		return err
	}
	n := len(design.A)
	columns := []string{sensitivity.SchemeColumnA, sensitivity.SchemeColumnB}
	for j, dim := range run.DimensionNames {
		if !design.Skipped[j] {
			columns = append(columns, dim)
		}
	}
	scheme := sensitivity.NewScheme(columns, n)
	fill := func(col string, m sampling.Matrix) error {
		units, err := r.materializeUnits(ctx, req, in, m)
		if err != nil {
			return err
		}
		for i, u := range units {
			if err := scheme.Set(i, col, u); err != nil {
				return err
			}
		}
		return nil
	}
	if err := fill(sensitivity.SchemeColumnA, design.A); err != nil {
		return err
	}
	if err := fill(sensitivity.SchemeColumnB, design.B); err != nil {
		return err
	}
	for j, dim := range run.DimensionNames {
		if design.Skipped[j] {
			continue
		}
		if err := fill(dim, design.Hybrids[j]); err != nil {
			return err
		}
	}
	run.Scheme = scheme
	run.Sobol = sensitivity.NewSobolAnalysis(scheme, run.DimensionNames, design.Skipped, req.Estimator, opts)
	return nil
}

func (r *Runner) runRBD(ctx context.Context, req SensitivityRequest, run *SensitivityRun, in *interner, opts sensitivity.Options) error {
	if len(req.IgnoreIndices) > 0 {
		return domain.ErrUnsupported{Feature: "ignore indices", Method: "random balance design"}
	}
	d := req.Variations.TotalDimension()
	design, err := sampling.RBDCDFs(req.Samples, d, req.SobolRBD, r.rng)
	if err != nil {
		return err
	}
	units, err := r.materializeUnits(ctx, req, in, design.CDFs)
	if err != nil {
		return err
	}
	// Each dimension's column lists the shared sample units in that
	// dimension's periodic order, so the Fourier estimator can read columns
	// directly.
	n := len(units)
	scheme := sensitivity.NewScheme(run.DimensionNames, n)
	for j, dim := range run.DimensionNames {
		for k := 0; k < n; k++ {
			if err := scheme.Set(k, dim, units[design.SortInds[j][k]]); err != nil {
				return err
			}
		}
	}
	run.Scheme = scheme
	run.RBD = sensitivity.NewRBDAnalysis(scheme, run.DimensionNames, design.NumCycles, req.Harmonics, opts)
	return nil
}

// materializeUnits resolves one design matrix into identity tuples and
// interns each tuple to a unit identifier.
func (r *Runner) materializeUnits(ctx context.Context, req SensitivityRequest, in *interner, cdfs sampling.Matrix) ([]sensitivity.UnitID, error) {
	ids, err := r.mat.AddVariations(ctx, req.Folder, req.Variations, req.Reference, cdfs)
	if err != nil {
		return nil, err
	}
	units := make([]sensitivity.UnitID, len(ids))
	for i, tuple := range ids {
		units[i] = in.intern(tuple)
	}
	return units, nil
}

// interner assigns one UnitID per distinct identity tuple, so design cells
// that resolve to the same tuple share an evaluation unit.
type interner struct {
	byKey  map[string]sensitivity.UnitID
	tuples map[sensitivity.UnitID]domain.IDSet
	next   sensitivity.UnitID
}

func newInterner() *interner {
	return &interner{
		byKey:  make(map[string]sensitivity.UnitID),
		tuples: make(map[sensitivity.UnitID]domain.IDSet),
	}
}

func (in *interner) intern(ids domain.IDSet) sensitivity.UnitID {
	locs := make([]string, 0, len(ids))
	for loc := range ids {
		locs = append(locs, string(loc))
	}
	sort.Strings(locs)
	var sb strings.Builder
	for _, loc := range locs {
		fmt.Fprintf(&sb, "%s=%d;", loc, ids[domain.Location(loc)])
	}
	key := sb.String()
	if id, ok := in.byKey[key]; ok {
		return id
	}
	id := in.next
	in.next++
	in.byKey[key] = id
	in.tuples[id] = ids
	return id
}
