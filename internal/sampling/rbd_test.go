package sampling

import (
	"math"
	"testing"
)

func TestRBDRandomSweepShape(t *testing.T) {
	const n, d = 17, 3
	design, err := RBDCDFs(n, d, false, testRand(11))
	if err != nil {
		t.Fatalf("rbd cdfs: %v", err)
	}
	if design.NumCycles != 1 {
		t.Fatalf("random sweep NumCycles = %g, want 1", design.NumCycles)
	}
	if len(design.CDFs) != n || len(design.SortInds) != d {
		t.Fatalf("design shape %dx%d, want %dx%d", len(design.CDFs), len(design.SortInds), n, d)
	}
	for i, row := range design.CDFs {
		for j, v := range row {
			if v < 0 || v > 1 {
				t.Fatalf("point %d dim %d = %g outside [0,1]", i, j, v)
			}
		}
	}
}

func TestRBDSortIndsRestorePeriodicOrder(t *testing.T) {
	const n, d = 32, 2
	design, err := RBDCDFs(n, d, false, testRand(12))
	if err != nil {
		t.Fatalf("rbd cdfs: %v", err)
	}
	for j := 0; j < d; j++ {
		for k := 0; k < n; k++ {
			s := -math.Pi + 2*math.Pi*float64(k)/float64(n)
			want := 0.5 + math.Asin(math.Sin(s))/math.Pi
			got := design.CDFs[design.SortInds[j][k]][j]
			if math.Abs(got-want) > 1e-12 {
				t.Fatalf("dim %d periodic position %d = %g, want %g", j, k, got, want)
			}
		}
	}
}

func TestRBDSortIndsArePermutations(t *testing.T) {
	design, err := RBDCDFs(16, 4, false, testRand(13))
	if err != nil {
		t.Fatalf("rbd cdfs: %v", err)
	}
	for j, inds := range design.SortInds {
		seen := make(map[int]bool, len(inds))
		for _, i := range inds {
			if i < 0 || i >= 16 || seen[i] {
				t.Fatalf("dim %d sort indices are not a permutation: %v", j, inds)
			}
			seen[i] = true
		}
	}
}

func TestRBDSobolSweep(t *testing.T) {
	const n, d = 16, 3
	design, err := RBDCDFs(n, d, true, nil)
	if err != nil {
		t.Fatalf("sobol rbd cdfs: %v", err)
	}
	if design.NumCycles != 0.5 {
		t.Fatalf("sobol sweep NumCycles = %g, want 0.5", design.NumCycles)
	}
	for j := 0; j < d; j++ {
		prev := math.Inf(-1)
		for k := 0; k < n; k++ {
			v := design.CDFs[design.SortInds[j][k]][j]
			if v < prev {
				t.Fatalf("dim %d not nondecreasing in periodic order at position %d", j, k)
			}
			prev = v
		}
	}
}

func TestRBDSobolSweepRejectsBadCount(t *testing.T) {
	if _, err := RBDCDFs(20, 2, true, nil); err == nil {
		t.Fatal("expected n far from a power of two to fail for sobol-derived rbd")
	}
}

func TestRBDRejectsNonPositiveShape(t *testing.T) {
	if _, err := RBDCDFs(0, 1, false, nil); err == nil {
		t.Fatal("expected n=0 to fail")
	}
}
