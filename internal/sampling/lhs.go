package sampling

import (
	"math"
	"math/rand/v2"
)

// LHSOptions configures Latin Hypercube sampling.
type LHSOptions struct {
	// AddNoise perturbs each sample uniformly within its bin instead of
	// placing it at the bin center.
	AddNoise bool
	// Orthogonalize requests the recursive orthogonal construction; it only
	// applies when n is a perfect d-th power and falls back to independent
	// permutations otherwise.
	Orthogonalize bool
	// Rand supplies the randomness source; nil uses a fresh generator.
	Rand *rand.Rand
}

// LHS partitions [0,1] into n equal bins per dimension and assigns each
// dimension an independent permutation of the bins, one sample per bin.
func LHS(n, d int, opts LHSOptions) Matrix {
	rng := defaultRand(opts.Rand)
	if opts.Orthogonalize {
		if k, ok := perfectRoot(n, d); ok {
			return orthogonalLHS(n, d, k, opts.AddNoise, rng)
		}
	}
	m := NewMatrix(n, d)
	for j := 0; j < d; j++ {
		perm := rng.Perm(n)
		for i := 0; i < n; i++ {
			m[i][j] = binValue(perm[i], n, opts.AddNoise, rng)
		}
	}
	return m
}

// orthogonalLHS identifies the n samples with the tuples of {0..k-1}^d, so
// every projection onto the first i dimensions is balanced across k^i
// sub-cells, then refines each dimension's bin assignment with a random
// bijection per digit group to recover a full Latin hypercube.
func orthogonalLHS(n, d, k int, addNoise bool, rng *rand.Rand) Matrix {
	sub := n / k // samples per digit group
	digits := make([][]int, n)
	for i := 0; i < n; i++ {
		digits[i] = make([]int, d)
		rem := i
		for j := 0; j < d; j++ {
			digits[i][j] = rem % k
			rem /= k
		}
	}
	m := NewMatrix(n, d)
	for j := 0; j < d; j++ {
		// Random bijection from each digit group onto its sub-bin range.
		ranks := make([][]int, k)
		next := make([]int, k)
		for g := 0; g < k; g++ {
			ranks[g] = rng.Perm(sub)
		}
		for i := 0; i < n; i++ {
			g := digits[i][j]
			bin := g*sub + ranks[g][next[g]]
			next[g]++
			m[i][j] = binValue(bin, n, addNoise, rng)
		}
	}
	return m
}

func binValue(bin, n int, addNoise bool, rng *rand.Rand) float64 {
	offset := 0.5
	if addNoise {
		offset = rng.Float64()
	}
	return (float64(bin) + offset) / float64(n)
}

// perfectRoot reports k such that k^d == n, if one exists.
func perfectRoot(n, d int) (int, bool) {
	if n <= 0 || d <= 0 {
		return 0, false
	}
	k := int(math.Round(math.Pow(float64(n), 1/float64(d))))
	for _, cand := range []int{k - 1, k, k + 1} {
		if cand < 1 {
			continue
		}
		p := 1
		for i := 0; i < d; i++ {
			p *= cand
		}
		if p == n {
			return cand, true
		}
	}
	return 0, false
}
