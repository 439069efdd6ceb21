package sampling

import (
	"fmt"
	"math/bits"
	"math/rand/v2"
)

// Randomization names a post-generation transform applied to Sobol points.
type Randomization string

const (
	// RandomizationNone leaves the canonical sequence untouched.
	RandomizationNone Randomization = "none"
	// RandomizationShift applies an independent random digital (binary XOR)
	// shift per dimension.
	RandomizationShift Randomization = "shift"
)

// SobolOptions configures Sobol sequence generation.
type SobolOptions struct {
	// NMatrices replicates the sequence into independent index blocks (the A
	// and B design matrices for index estimation use 2). Defaults to 1.
	NMatrices int
	// SkipStart discards this many initial points of the canonical sequence
	// before taking n consecutive points. Only consulted when n is not within
	// one of a power of two; those cases have fixed policies.
	SkipStart int
	// OmitEndpoint disables appending the all-ones endpoint when n = 2^k + 1.
	OmitEndpoint bool
	// Randomization selects the post-generation transform.
	Randomization Randomization
	// Rand supplies randomness for the randomization transform.
	Rand *rand.Rand
}

// SobolCDFs generates n low-discrepancy points in [0,1]^d, one Matrix per
// index block. A single d*NMatrices-dimensional sequence is sliced into
// blocks so the blocks are mutually independent.
//
// Raw Sobol sequences are only low-discrepancy for sample counts that are
// powers of two or specific sub-sequences thereof, so n near powers of two is
// special-cased: n = 2^k-1 skips the degenerate all-zero first point and
// n = 2^k+1 appends the all-ones endpoint after 2^k interior points.
func SobolCDFs(n, d int, opts SobolOptions) ([]Matrix, error) {
	if n <= 0 || d <= 0 {
		return nil, fmt.Errorf("sobol sampling needs positive n and d, got n=%d d=%d", n, d)
	}
	nMatrices := opts.NMatrices
	if nMatrices == 0 {
		nMatrices = 1
	}
	total := d * nMatrices
	if total > maxSobolDims {
		return nil, fmt.Errorf("sobol generator supports up to %d dimensions, need %d", maxSobolDims, total)
	}

	skip, generate, appendOnes := sobolPlan(n, opts)
	points := sobolSequence(skip+generate, total)[skip:]
	// Shift only the raw sequence; the all-ones endpoint is constructed, not
	// generated, and must survive randomization exactly.
	if opts.Randomization == RandomizationShift {
		digitalShift(points, total, defaultRand(opts.Rand))
	}
	if appendOnes {
		ones := make([]float64, total)
		for j := range ones {
			ones[j] = 1.0
		}
		points = append(points, ones)
	}

	out := make([]Matrix, nMatrices)
	for b := 0; b < nMatrices; b++ {
		m := NewMatrix(n, d)
		for i := 0; i < n; i++ {
			copy(m[i], points[i][b*d:(b+1)*d])
		}
		out[b] = m
	}
	return out, nil
}

// sobolPlan resolves the edge-case policy into a skip count, a number of raw
// points to generate, and whether to append the all-ones endpoint.
func sobolPlan(n int, opts SobolOptions) (skip, generate int, appendOnes bool) {
	switch {
	case isPowerOfTwo(n):
		return 0, n, false
	case isPowerOfTwo(n + 1):
		// 2^k-1 points: drop the all-zero head of the 2^k block.
		return 1, n, false
	case isPowerOfTwo(n-1) && !opts.OmitEndpoint:
		// 2^k interior points plus the explicit all-ones endpoint.
		return 0, n - 1, true
	default:
		return opts.SkipStart, n, false
	}
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

const sobolBits = 32

// sobolSequence produces the first n points of the canonical d-dimensional
// sequence in Gray-code order via the binary direction-number construction.
func sobolSequence(n, d int) [][]float64 {
	dirs := directionNumbers(d, sobolBits)
	state := make([]uint32, d)
	out := make([][]float64, n)
	const scale = 1.0 / (1 << sobolBits)
	for i := 0; i < n; i++ {
		row := make([]float64, d)
		for j := 0; j < d; j++ {
			row[j] = float64(state[j]) * scale
		}
		out[i] = row
		c := bits.TrailingZeros32(^uint32(i)) // rightmost zero bit of i
		for j := 0; j < d; j++ {
			state[j] ^= dirs[j][c]
		}
	}
	return out
}

func digitalShift(points [][]float64, d int, rng *rand.Rand) {
	shifts := make([]uint32, d)
	for j := range shifts {
		shifts[j] = rng.Uint32()
	}
	const scale = 1.0 / (1 << sobolBits)
	for _, row := range points {
		for j := 0; j < d; j++ {
			scaled := row[j] * (1 << sobolBits)
			bitsVal := uint32(0xFFFFFFFF)
			if scaled < (1 << sobolBits) {
				bitsVal = uint32(scaled)
			}
			row[j] = float64(bitsVal^shifts[j]) * scale
		}
	}
}

// directionNumbers expands the primitive-polynomial table into per-dimension
// direction numbers v_1..v_bits (stored left-aligned in 32-bit words).
func directionNumbers(d, numBits int) [][]uint32 {
	dirs := make([][]uint32, d)
	// First dimension: van der Corput, m_i = 1 for all i.
	v := make([]uint32, numBits)
	for i := 0; i < numBits; i++ {
		v[i] = 1 << (sobolBits - 1 - i)
	}
	dirs[0] = v
	for j := 1; j < d; j++ {
		p := sobolPolynomials[j-1]
		s := len(p.m)
		m := make([]uint32, numBits)
		copy(m, p.m)
		for i := s; i < numBits; i++ {
			mi := m[i-s] ^ (m[i-s] << uint(s))
			for k := 1; k < s; k++ {
				if (p.a>>(uint(s-1-k)))&1 == 1 {
					mi ^= m[i-k] << uint(k)
				}
			}
			m[i] = mi
		}
		v := make([]uint32, numBits)
		for i := 0; i < numBits; i++ {
			v[i] = m[i] << (sobolBits - 1 - uint(i))
		}
		dirs[j] = v
	}
	return dirs
}

type sobolPoly struct {
	a uint32   // coefficients of the primitive polynomial, interior bits
	m []uint32 // initial direction integers m_1..m_s
}

// Joe-Kuo primitive polynomials and initial direction integers for dimensions
// 2 and up.
var sobolPolynomials = []sobolPoly{
	{a: 0, m: []uint32{1}},
	{a: 1, m: []uint32{1, 3}},
	{a: 1, m: []uint32{1, 3, 1}},
	{a: 2, m: []uint32{1, 1, 1}},
	{a: 1, m: []uint32{1, 1, 3, 3}},
	{a: 4, m: []uint32{1, 3, 5, 13}},
	{a: 2, m: []uint32{1, 1, 5, 5, 17}},
	{a: 4, m: []uint32{1, 1, 5, 5, 5}},
	{a: 7, m: []uint32{1, 1, 7, 11, 19}},
	{a: 11, m: []uint32{1, 1, 5, 1, 1}},
	{a: 13, m: []uint32{1, 1, 1, 3, 11}},
	{a: 14, m: []uint32{1, 3, 5, 5, 31}},
	{a: 1, m: []uint32{1, 3, 3, 9, 7, 49}},
	{a: 13, m: []uint32{1, 1, 1, 15, 21, 21}},
	{a: 16, m: []uint32{1, 3, 1, 13, 27, 49}},
	{a: 19, m: []uint32{1, 1, 1, 15, 7, 5}},
	{a: 22, m: []uint32{1, 3, 1, 15, 13, 25}},
	{a: 25, m: []uint32{1, 1, 5, 5, 19, 61}},
	{a: 1, m: []uint32{1, 3, 7, 11, 23, 15, 103}},
	{a: 4, m: []uint32{1, 3, 7, 13, 13, 15, 69}},
	{a: 7, m: []uint32{1, 1, 3, 13, 7, 35, 63}},
	{a: 8, m: []uint32{1, 3, 5, 9, 1, 25, 53}},
	{a: 14, m: []uint32{1, 3, 1, 13, 9, 35, 107}},
	{a: 19, m: []uint32{1, 3, 1, 5, 27, 61, 131}},
	{a: 21, m: []uint32{1, 1, 5, 11, 19, 41, 143}},
	{a: 28, m: []uint32{1, 3, 5, 3, 3, 59, 131}},
	{a: 31, m: []uint32{1, 3, 1, 7, 17, 11, 97}},
	{a: 32, m: []uint32{1, 1, 5, 3, 15, 11, 47}},
	{a: 37, m: []uint32{1, 1, 7, 13, 29, 17, 83}},
	{a: 41, m: []uint32{1, 3, 7, 7, 21, 11, 103}},
	{a: 42, m: []uint32{1, 1, 1, 9, 23, 15, 67}},
}

// maxSobolDims is the first dimension plus the polynomial table length.
var maxSobolDims = 1 + len(sobolPolynomials)
