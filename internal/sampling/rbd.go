package sampling

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// RBDDesign is a random balance design: CDF points plus, per dimension, the
// permutation restoring periodic order along that dimension's sweep. The
// Fourier estimator needs NumCycles to know whether to mirror-extend the
// evaluated series before transforming.
type RBDDesign struct {
	CDFs Matrix
	// SortInds[j][k] is the sample index occupying periodic position k of
	// dimension j's sweep.
	SortInds [][]int
	// NumCycles is 1/2 for the Sobol-derived half-period sweep and 1 for the
	// full-period random-permutation sweep.
	NumCycles float64
}

// RBDCDFs generates a random balance design over d dimensions.
//
// With useSobol, the Sobol generator provides one half-period sweep per
// dimension (n must be within one of a power of two); sorting each dimension's
// CDF column recovers the periodic structure. Otherwise each dimension
// independently takes n equally spaced angles over [-pi, pi), randomly
// permutes their assignment to sample indices, and maps angle s to CDF via
// 0.5 + asin(sin(s))/pi, which keeps the CDF distribution uniform while
// remaining periodic in s.
func RBDCDFs(n, d int, useSobol bool, rng *rand.Rand) (*RBDDesign, error) {
	if n <= 0 || d <= 0 {
		return nil, fmt.Errorf("rbd sampling needs positive n and d, got n=%d d=%d", n, d)
	}
	if useSobol {
		if !isPowerOfTwo(n) && !isPowerOfTwo(n+1) && !isPowerOfTwo(n-1) {
			return nil, fmt.Errorf("sobol-derived rbd needs n within 1 of a power of two, got %d", n)
		}
		blocks, err := SobolCDFs(n, d, SobolOptions{NMatrices: 1})
		if err != nil {
			return nil, err
		}
		cdfs := blocks[0]
		sortInds := make([][]int, d)
		for j := 0; j < d; j++ {
			col := cdfs.Column(j)
			inds := make([]int, n)
			for i := range inds {
				inds[i] = i
			}
			sort.SliceStable(inds, func(a, b int) bool { return col[inds[a]] < col[inds[b]] })
			sortInds[j] = inds
		}
		return &RBDDesign{CDFs: cdfs, SortInds: sortInds, NumCycles: 0.5}, nil
	}

	rng = defaultRand(rng)
	cdfs := NewMatrix(n, d)
	sortInds := make([][]int, d)
	for j := 0; j < d; j++ {
		perm := rng.Perm(n) // perm[i] = angle index assigned to sample i
		inverse := make([]int, n)
		for i, p := range perm {
			inverse[p] = i
		}
		for i := 0; i < n; i++ {
			s := -math.Pi + 2*math.Pi*float64(perm[i])/float64(n)
			cdfs[i][j] = 0.5 + math.Asin(math.Sin(s))/math.Pi
		}
		sortInds[j] = inverse
	}
	return &RBDDesign{CDFs: cdfs, SortInds: sortInds, NumCycles: 1}, nil
}
