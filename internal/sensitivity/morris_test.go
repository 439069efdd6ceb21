package sensitivity

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"sweepcore/internal/sampling"
	"sweepcore/pkg/domain"
)

func buildMOAT(t *testing.T, n, d int, seed uint64) (*MOATAnalysis, *pointTable, []string) {
	t.Helper()
	design, err := NewMOATDesign(n, d, sampling.LHSOptions{Rand: testRand(seed)}, nil)
	if err != nil {
		t.Fatalf("new moat design: %v", err)
	}
	dims := make([]string, d)
	for j := range dims {
		dims[j] = string(rune('a' + j))
	}
	scheme := NewScheme(append([]string{SchemeColumnBase}, dims...), n)
	pt := newPointTable()
	if err := pt.fillColumn(scheme, SchemeColumnBase, design.Base); err != nil {
		t.Fatalf("fill base column: %v", err)
	}
	for j, dim := range dims {
		if err := pt.fillColumn(scheme, dim, design.Perturbed[j]); err != nil {
			t.Fatalf("fill column %s: %v", dim, err)
		}
	}
	return NewMOATAnalysis(scheme, dims, Options{}), pt, dims
}

func TestMOATLinearModel(t *testing.T) {
	const n, d = 8, 3
	analysis, pt, _ := buildMOAT(t, n, d, 21)
	// f = 3a - 2b + 0c: elementary effects are exactly +-coefficient because
	// the half step cancels the doubling.
	coeffs := []float64{3, -2, 0}
	fn := pt.scorer("linear", func(p []float64) float64 {
		var sum float64
		for j, c := range coeffs {
			sum += c * p[j]
		}
		return sum
	}, nil)
	got, err := analysis.Compute(context.Background(), fn)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for j, c := range coeffs {
		if math.Abs(got.MeanAbs[j]-math.Abs(c)) > 1e-9 {
			t.Fatalf("dim %d mean abs effect = %g, want %g", j, got.MeanAbs[j], math.Abs(c))
		}
		if math.Abs(got.Mean[j]) > math.Abs(c)+1e-9 {
			t.Fatalf("dim %d mean effect %g exceeds coefficient magnitude %g", j, got.Mean[j], c)
		}
	}
	// The inert dimension has no effect at all.
	if got.MeanAbs[2] != 0 || got.Variance[2] != 0 {
		t.Fatalf("inert dimension has effects: meanabs=%g var=%g", got.MeanAbs[2], got.Variance[2])
	}
}

func TestMOATComputeIdempotent(t *testing.T) {
	analysis, pt, _ := buildMOAT(t, 4, 2, 22)
	var calls atomic.Int64
	fn := pt.scorer("sum", func(p []float64) float64 { return p[0] + p[1] }, &calls)
	first, err := analysis.Compute(context.Background(), fn)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	after := calls.Load()
	second, err := analysis.Compute(context.Background(), fn)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if calls.Load() != after {
		t.Fatalf("second compute ran %d extra evaluations", calls.Load()-after)
	}
	for j := range first.Mean {
		if first.Mean[j] != second.Mean[j] {
			t.Fatalf("recomputed indices differ at dim %d", j)
		}
	}
}

func TestMOATMemoizesSharedUnits(t *testing.T) {
	const n, d = 8, 2
	analysis, pt, _ := buildMOAT(t, n, d, 23)
	var calls atomic.Int64
	fn := pt.scorer("count", func(p []float64) float64 { return p[0] }, &calls)
	if _, err := analysis.Compute(context.Background(), fn); err != nil {
		t.Fatalf("compute: %v", err)
	}
	distinct := int64(len(analysis.Scheme().Units()))
	if calls.Load() != distinct {
		t.Fatalf("ran %d evaluations for %d distinct units", calls.Load(), distinct)
	}
}

func TestMOATZeroPointsWarnsAndReturnsEmpty(t *testing.T) {
	scheme := NewScheme([]string{SchemeColumnBase, "a"}, 0)
	analysis := NewMOATAnalysis(scheme, []string{"a"}, Options{})
	got, err := analysis.Compute(context.Background(), ScoringFunction{
		Name:     "noop",
		Evaluate: func(context.Context, UnitID) (float64, error) { return 0, nil },
	})
	if err != nil {
		t.Fatalf("compute over empty design: %v", err)
	}
	if len(got.Mean) != 1 || got.Mean[0] != 0 {
		t.Fatalf("empty design indices = %v", got)
	}
}

func TestMOATDesignRejectsIgnoreIndices(t *testing.T) {
	_, err := NewMOATDesign(4, 2, sampling.LHSOptions{Rand: testRand(24)}, []int{1})
	var unsupported domain.ErrUnsupported
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestMOATDesignStepStaysInUnitCube(t *testing.T) {
	design, err := NewMOATDesign(16, 3, sampling.LHSOptions{Rand: testRand(25)}, nil)
	if err != nil {
		t.Fatalf("new moat design: %v", err)
	}
	for j, pm := range design.Perturbed {
		for i := range pm {
			diff := math.Abs(pm[i][j] - design.Base[i][j])
			if math.Abs(diff-0.5) > 1e-12 {
				t.Fatalf("dim %d point %d moved by %g, want 0.5", j, i, diff)
			}
			if pm[i][j] < 0 || pm[i][j] > 1 {
				t.Fatalf("dim %d point %d left the unit cube: %g", j, i, pm[i][j])
			}
			for k := range pm[i] {
				if k != j && pm[i][k] != design.Base[i][k] {
					t.Fatalf("perturbation for dim %d also moved dim %d", j, k)
				}
			}
		}
	}
}
