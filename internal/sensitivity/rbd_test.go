package sensitivity

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"sweepcore/internal/sampling"
)

func buildRBD(t *testing.T, n, d int, useSobol bool, seed uint64, harmonics int) (*RBDAnalysis, *pointTable, []string) {
	t.Helper()
	design, err := sampling.RBDCDFs(n, d, useSobol, testRand(seed))
	if err != nil {
		t.Fatalf("rbd cdfs: %v", err)
	}
	dims := make([]string, d)
	for j := range dims {
		dims[j] = string(rune('a' + j))
	}
	pt := newPointTable()
	units := make([]UnitID, n)
	for i, row := range design.CDFs {
		units[i] = pt.unit(row)
	}
	scheme := NewScheme(dims, n)
	for j, dim := range dims {
		for k := 0; k < n; k++ {
			if err := scheme.Set(k, dim, units[design.SortInds[j][k]]); err != nil {
				t.Fatalf("set scheme cell: %v", err)
			}
		}
	}
	return NewRBDAnalysis(scheme, dims, design.NumCycles, harmonics, Options{}), pt, dims
}

func TestRBDSingleActiveDimension(t *testing.T) {
	for _, useSobol := range []bool{false, true} {
		name := "random"
		if useSobol {
			name = "sobol"
		}
		t.Run(name, func(t *testing.T) {
			analysis, pt, _ := buildRBD(t, 256, 2, useSobol, 31, 0)
			fn := pt.scorer("f", func(p []float64) float64 { return p[0] * p[0] }, nil)
			got, err := analysis.Compute(context.Background(), fn)
			if err != nil {
				t.Fatalf("compute: %v", err)
			}
			if got.Indices[0] < 0.9 {
				t.Fatalf("active dim index = %g, want > 0.9", got.Indices[0])
			}
			if got.Indices[1] > 0.3 {
				t.Fatalf("inert dim index = %g, want < 0.3", got.Indices[1])
			}
		})
	}
}

func TestRBDComputeIdempotent(t *testing.T) {
	analysis, pt, _ := buildRBD(t, 64, 2, false, 32, 0)
	var calls atomic.Int64
	fn := pt.scorer("f", func(p []float64) float64 { return p[0] }, &calls)
	ctx := context.Background()
	if _, err := analysis.Compute(ctx, fn); err != nil {
		t.Fatalf("first compute: %v", err)
	}
	after := calls.Load()
	if _, err := analysis.Compute(ctx, fn); err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if calls.Load() != after {
		t.Fatal("recompute dispatched new evaluations")
	}
}

func TestRBDConstantFunctionHasZeroIndices(t *testing.T) {
	analysis, pt, _ := buildRBD(t, 32, 2, false, 33, 0)
	fn := pt.scorer("const", func([]float64) float64 { return 4.2 }, nil)
	got, err := analysis.Compute(context.Background(), fn)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for j, idx := range got.Indices {
		if idx != 0 {
			t.Fatalf("constant function dim %d index = %g, want 0", j, idx)
		}
	}
}

func TestMirrorExtend(t *testing.T) {
	got := mirrorExtend([]float64{1, 2, 3, 4})
	want := []float64{1, 2, 3, 4, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("mirror length %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mirror[%d] = %g, want %g", i, got[i], want[i])
		}
	}
	short := mirrorExtend([]float64{1, 2})
	if len(short) != 2 {
		t.Fatalf("short series must pass through, got length %d", len(short))
	}
}

func TestSpectrumRatioPureHarmonic(t *testing.T) {
	const n = 64
	series := make([]float64, n)
	for k := range series {
		series[k] = math.Cos(2 * math.Pi * float64(k) / n)
	}
	ratio := spectrumRatio(series, 1)
	if math.Abs(ratio-1) > 1e-9 {
		t.Fatalf("pure first harmonic ratio = %g, want 1", ratio)
	}

	// Energy entirely above the counted harmonics scores zero.
	for k := range series {
		series[k] = math.Cos(2 * math.Pi * 10 * float64(k) / n)
	}
	ratio = spectrumRatio(series, 6)
	if ratio > 1e-9 {
		t.Fatalf("high-frequency series ratio = %g, want 0", ratio)
	}
}

func TestRBDDefaultHarmonics(t *testing.T) {
	scheme := NewScheme([]string{"a"}, 4)
	analysis := NewRBDAnalysis(scheme, []string{"a"}, 1, 0, Options{})
	if analysis.numHarmonics != DefaultNumHarmonics {
		t.Fatalf("default harmonics = %d, want %d", analysis.numHarmonics, DefaultNumHarmonics)
	}
}

func TestRBDTwoComparableDimensions(t *testing.T) {
	// f = x^2 + y^2 treats both dimensions identically, so their indices
	// must come out active and close to each other.
	analysis, pt, _ := buildRBD(t, 64, 2, false, 35, 0)
	fn := pt.scorer("quadratic", func(p []float64) float64 { return p[0]*p[0] + p[1]*p[1] }, nil)
	got, err := analysis.Compute(context.Background(), fn)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for j, idx := range got.Indices {
		if idx < 0.3 {
			t.Fatalf("dim %d index = %g, want > 0.3", j, idx)
		}
	}
	if diff := math.Abs(got.Indices[0] - got.Indices[1]); diff > 0.3 {
		t.Fatalf("symmetric dimensions diverge: %g vs %g", got.Indices[0], got.Indices[1])
	}
}
