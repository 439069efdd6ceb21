package sensitivity

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"sweepcore/internal/sampling"
)

func buildSobol(t *testing.T, n, d int, ignore []int, estimator SobolIndexOptions) (*SobolAnalysis, *pointTable, []string) {
	t.Helper()
	design, err := NewSobolDesign(n, d, sampling.SobolOptions{}, ignore)
	if err != nil {
		t.Fatalf("new sobol design: %v", err)
	}
	dims := make([]string, d)
	for j := range dims {
		dims[j] = string(rune('a' + j))
	}
	columns := []string{SchemeColumnA, SchemeColumnB}
	for j, dim := range dims {
		if !design.Skipped[j] {
			columns = append(columns, dim)
		}
	}
	scheme := NewScheme(columns, n)
	pt := newPointTable()
	if err := pt.fillColumn(scheme, SchemeColumnA, design.A); err != nil {
		t.Fatalf("fill A: %v", err)
	}
	if err := pt.fillColumn(scheme, SchemeColumnB, design.B); err != nil {
		t.Fatalf("fill B: %v", err)
	}
	for j, dim := range dims {
		if design.Skipped[j] {
			continue
		}
		if err := pt.fillColumn(scheme, dim, design.Hybrids[j]); err != nil {
			t.Fatalf("fill hybrid %s: %v", dim, err)
		}
	}
	return NewSobolAnalysis(scheme, dims, design.Skipped, estimator, Options{}), pt, dims
}

func TestSobolIndicesSingleActiveDimension(t *testing.T) {
	estimators := []SobolIndexOptions{
		{First: FirstOrderSobol1993, Total: TotalOrderHomma1996},
		{First: FirstOrderJansen1999, Total: TotalOrderJansen1999},
		{First: FirstOrderSaltelli2010, Total: TotalOrderSobol2007},
	}
	for _, est := range estimators {
		t.Run(string(est.First)+"/"+string(est.Total), func(t *testing.T) {
			analysis, pt, _ := buildSobol(t, 256, 2, nil, est)
			fn := pt.scorer("f", func(p []float64) float64 { return p[0] }, nil)
			got, err := analysis.Compute(context.Background(), fn)
			if err != nil {
				t.Fatalf("compute: %v", err)
			}
			if math.Abs(got.FirstOrder[0]-1) > 0.1 {
				t.Fatalf("active dim first order = %g, want ~1", got.FirstOrder[0])
			}
			if math.Abs(got.TotalOrder[0]-1) > 0.1 {
				t.Fatalf("active dim total order = %g, want ~1", got.TotalOrder[0])
			}
			if math.Abs(got.FirstOrder[1]) > 0.1 {
				t.Fatalf("inert dim first order = %g, want ~0", got.FirstOrder[1])
			}
			if math.Abs(got.TotalOrder[1]) > 0.1 {
				t.Fatalf("inert dim total order = %g, want ~0", got.TotalOrder[1])
			}
		})
	}
}

func TestSobolIndicesAdditiveSplit(t *testing.T) {
	// f = x0 + 2*x1 over independent uniforms: analytic first-order indices
	// are 1/5 and 4/5, and for an additive model total equals first.
	analysis, pt, _ := buildSobol(t, 512, 2, nil, SobolIndexOptions{})
	fn := pt.scorer("additive", func(p []float64) float64 { return p[0] + 2*p[1] }, nil)
	got, err := analysis.Compute(context.Background(), fn)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if math.Abs(got.FirstOrder[0]-0.2) > 0.08 {
		t.Fatalf("first order dim 0 = %g, want ~0.2", got.FirstOrder[0])
	}
	if math.Abs(got.FirstOrder[1]-0.8) > 0.08 {
		t.Fatalf("first order dim 1 = %g, want ~0.8", got.FirstOrder[1])
	}
	if math.Abs(got.TotalOrder[0]-got.FirstOrder[0]) > 0.08 {
		t.Fatalf("additive model: total %g diverges from first %g", got.TotalOrder[0], got.FirstOrder[0])
	}
}

func TestSobolIndicesSkippedDimensionIsNaN(t *testing.T) {
	analysis, pt, _ := buildSobol(t, 64, 3, []int{1}, SobolIndexOptions{})
	fn := pt.scorer("f", func(p []float64) float64 { return p[0] }, nil)
	got, err := analysis.Compute(context.Background(), fn)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !math.IsNaN(got.FirstOrder[1]) || !math.IsNaN(got.TotalOrder[1]) {
		t.Fatalf("skipped dim indices = %g/%g, want NaN", got.FirstOrder[1], got.TotalOrder[1])
	}
	if math.IsNaN(got.FirstOrder[0]) || math.IsNaN(got.FirstOrder[2]) {
		t.Fatal("analyzed dims must not be NaN")
	}
}

func TestSobolIndicesUnknownEstimator(t *testing.T) {
	analysis, pt, _ := buildSobol(t, 16, 1, nil, SobolIndexOptions{First: "bogus"})
	fn := pt.scorer("f", func(p []float64) float64 { return p[0] }, nil)
	if _, err := analysis.Compute(context.Background(), fn); err == nil {
		t.Fatal("expected unknown estimator to fail")
	}
}

func TestSobolIndicesResultsKeyedByFunctionName(t *testing.T) {
	analysis, pt, _ := buildSobol(t, 32, 2, nil, SobolIndexOptions{})
	ctx := context.Background()
	if _, err := analysis.Compute(ctx, pt.scorer("first", func(p []float64) float64 { return p[0] }, nil)); err != nil {
		t.Fatalf("compute first: %v", err)
	}
	if _, err := analysis.Compute(ctx, pt.scorer("second", func(p []float64) float64 { return p[1] }, nil)); err != nil {
		t.Fatalf("compute second: %v", err)
	}
	a, ok := analysis.Indices("first")
	if !ok {
		t.Fatal("indices for first missing")
	}
	b, ok := analysis.Indices("second")
	if !ok {
		t.Fatal("indices for second missing")
	}
	if a.FirstOrder[0] < a.FirstOrder[1] || b.FirstOrder[1] < b.FirstOrder[0] {
		t.Fatal("per-function indices do not reflect their own scoring functions")
	}
	if _, ok := analysis.Indices("absent"); ok {
		t.Fatal("unexpected indices for uncomputed function")
	}
}

func TestSobolComputeIdempotent(t *testing.T) {
	analysis, pt, _ := buildSobol(t, 128, 2, nil, SobolIndexOptions{})
	var calls atomic.Int64
	fn := pt.scorer("f", func(p []float64) float64 { return p[0] + p[1] }, &calls)
	ctx := context.Background()
	first, err := analysis.Compute(ctx, fn)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	after := calls.Load()
	second, err := analysis.Compute(ctx, fn)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if calls.Load() != after {
		t.Fatal("recompute dispatched new evaluations")
	}
	for j := range first.FirstOrder {
		if second.FirstOrder[j] != first.FirstOrder[j] || second.TotalOrder[j] != first.TotalOrder[j] {
			t.Fatalf("recompute changed indices for dim %d", j)
		}
	}
}
