// Package sampling generates CDF points in the unit hypercube of latent
// dimensions. The engines are agnostic to what the dimensions represent; they
// only ever produce values in [0,1]^d.
package sampling

import "math/rand/v2"

// Method names a sampling algorithm.
type Method string

const (
	MethodGrid  Method = "grid"
	MethodLHS   Method = "lhs"
	MethodSobol Method = "sobol"
	MethodRBD   Method = "rbd"
)

// Matrix holds sample points in rows: Matrix[i][j] is point i's CDF value for
// latent dimension j.
type Matrix [][]float64

// NewMatrix allocates an n-by-d matrix backed by one contiguous slice.
func NewMatrix(n, d int) Matrix {
	backing := make([]float64, n*d)
	m := make(Matrix, n)
	for i := range m {
		m[i] = backing[i*d : (i+1)*d : (i+1)*d]
	}
	return m
}

// Column copies dimension j out of the matrix.
func (m Matrix) Column(j int) []float64 {
	col := make([]float64, len(m))
	for i, row := range m {
		col[i] = row[j]
	}
	return col
}

// defaultRand returns rng unless it is nil, in which case a fresh
// non-deterministic generator is used.
func defaultRand(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
