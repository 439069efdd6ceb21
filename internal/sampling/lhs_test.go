package sampling

import (
	"math"
	"math/rand/v2"
	"testing"
)

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

// binOf returns which of n equal bins the coordinate falls in.
func binOf(v float64, n int) int {
	b := int(math.Floor(v * float64(n)))
	if b == n {
		b = n - 1
	}
	return b
}

func TestLHSOneSamplePerBin(t *testing.T) {
	const n, d = 16, 3
	m := LHS(n, d, LHSOptions{Rand: testRand(1)})
	if len(m) != n || len(m[0]) != d {
		t.Fatalf("matrix shape %dx%d, want %dx%d", len(m), len(m[0]), n, d)
	}
	for j := 0; j < d; j++ {
		seen := make(map[int]bool, n)
		for i := 0; i < n; i++ {
			v := m[i][j]
			if v <= 0 || v >= 1 {
				t.Fatalf("sample %d dim %d = %g outside (0,1)", i, j, v)
			}
			b := binOf(v, n)
			if seen[b] {
				t.Fatalf("dim %d has two samples in bin %d", j, b)
			}
			seen[b] = true
		}
	}
}

func TestLHSNoiseStaysInsideBin(t *testing.T) {
	const n, d = 8, 2
	m := LHS(n, d, LHSOptions{AddNoise: true, Rand: testRand(2)})
	for j := 0; j < d; j++ {
		seen := make(map[int]bool, n)
		for i := 0; i < n; i++ {
			b := binOf(m[i][j], n)
			if seen[b] {
				t.Fatalf("noisy sample left its bin: dim %d bin %d duplicated", j, b)
			}
			seen[b] = true
		}
	}
}

func TestOrthogonalLHSBalancedProjections(t *testing.T) {
	// n = 3^2 so the orthogonal construction applies: each dimension's coarse
	// thirds must hold exactly n/3 samples, and the 3x3 coarse grid must hold
	// exactly one sample per cell.
	const n, d, k = 9, 2, 3
	m := LHS(n, d, LHSOptions{Orthogonalize: true, Rand: testRand(3)})
	cells := make(map[[d]int]int)
	for i := 0; i < n; i++ {
		var cell [d]int
		for j := 0; j < d; j++ {
			cell[j] = binOf(m[i][j], k)
		}
		cells[cell]++
	}
	if len(cells) != n {
		t.Fatalf("orthogonal LHS fills %d coarse cells, want %d", len(cells), n)
	}
	for cell, count := range cells {
		if count != 1 {
			t.Fatalf("coarse cell %v holds %d samples, want 1", cell, count)
		}
	}
	// Still a Latin hypercube at the fine resolution.
	for j := 0; j < d; j++ {
		seen := make(map[int]bool, n)
		for i := 0; i < n; i++ {
			b := binOf(m[i][j], n)
			if seen[b] {
				t.Fatalf("orthogonal LHS duplicated fine bin %d in dim %d", b, j)
			}
			seen[b] = true
		}
	}
}

func TestOrthogonalLHSFallsBackForNonPower(t *testing.T) {
	// n = 10 is not a perfect square; the request degrades to plain LHS.
	const n, d = 10, 2
	m := LHS(n, d, LHSOptions{Orthogonalize: true, Rand: testRand(4)})
	for j := 0; j < d; j++ {
		seen := make(map[int]bool, n)
		for i := 0; i < n; i++ {
			b := binOf(m[i][j], n)
			if seen[b] {
				t.Fatalf("fallback LHS duplicated bin %d in dim %d", b, j)
			}
			seen[b] = true
		}
	}
}

func TestPerfectRoot(t *testing.T) {
	cases := []struct {
		n, d, k int
		ok      bool
	}{
		{9, 2, 3, true},
		{27, 3, 3, true},
		{16, 4, 2, true},
		{10, 2, 0, false},
		{0, 2, 0, false},
	}
	for _, tc := range cases {
		k, ok := perfectRoot(tc.n, tc.d)
		if ok != tc.ok || (ok && k != tc.k) {
			t.Fatalf("perfectRoot(%d,%d) = %d,%v want %d,%v", tc.n, tc.d, k, ok, tc.k, tc.ok)
		}
	}
}
