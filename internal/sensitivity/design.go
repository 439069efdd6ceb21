package sensitivity

import (
	"gonum.org/v1/gonum/mat"

	"sweepcore/internal/sampling"
	"sweepcore/pkg/domain"
)

// MOATDesign holds the CDF-space sample plan for Morris one-at-a-time
// screening: LHS base points plus, per latent dimension, one point with that
// dimension's coordinate moved by exactly 0.5.
type MOATDesign struct {
	Base      sampling.Matrix
	Perturbed []sampling.Matrix // indexed by dimension
}

// NewMOATDesign builds the Morris design. The step goes down when the base
// coordinate is at or above 0.5 and up otherwise, so the perturbed coordinate
// stays inside [0,1]. Ignore indices are not implemented for this method.
func NewMOATDesign(n, d int, lhs sampling.LHSOptions, ignore []int) (*MOATDesign, error) {
	if len(ignore) > 0 {
		return nil, domain.ErrUnsupported{Feature: "ignore indices", Method: "morris one-at-a-time"}
	}
	base := sampling.LHS(n, d, lhs)
	perturbed := make([]sampling.Matrix, d)
	for j := 0; j < d; j++ {
		m := sampling.NewMatrix(n, d)
		for i := range base {
			copy(m[i], base[i])
			if m[i][j] >= 0.5 {
				m[i][j] -= 0.5
			} else {
				m[i][j] += 0.5
			}
		}
		perturbed[j] = m
	}
	return &MOATDesign{Base: base, Perturbed: perturbed}, nil
}

// SobolDesign holds the A and B design matrices plus one hybrid matrix per
// analyzed dimension, where hybrid i equals A with dimension i's column taken
// from B.
type SobolDesign struct {
	A, B    sampling.Matrix
	Hybrids []sampling.Matrix // nil for skipped dimensions
	Skipped map[int]bool
}

// NewSobolDesign builds the Sobol' index design from two independent Sobol
// matrices. Dimensions listed in ignore get no hybrid matrix and no indices.
func NewSobolDesign(n, d int, opts sampling.SobolOptions, ignore []int) (*SobolDesign, error) {
	opts.NMatrices = 2
	blocks, err := sampling.SobolCDFs(n, d, opts)
	if err != nil {
		return nil, err
	}
	skipped := make(map[int]bool, len(ignore))
	for _, i := range ignore {
		skipped[i] = true
	}
	a := denseOf(blocks[0])
	b := denseOf(blocks[1])
	hybrids := make([]sampling.Matrix, d)
	for j := 0; j < d; j++ {
		if skipped[j] {
			continue
		}
		h := mat.DenseCopyOf(a)
		for i := 0; i < n; i++ {
			h.Set(i, j, b.At(i, j))
		}
		hybrids[j] = matrixOf(h)
	}
	return &SobolDesign{A: blocks[0], B: blocks[1], Hybrids: hybrids, Skipped: skipped}, nil
}

func denseOf(m sampling.Matrix) *mat.Dense {
	n, d := len(m), len(m[0])
	out := mat.NewDense(n, d, nil)
	for i, row := range m {
		out.SetRow(i, row)
	}
	return out
}

func matrixOf(d *mat.Dense) sampling.Matrix {
	n, c := d.Dims()
	out := sampling.NewMatrix(n, c)
	for i := 0; i < n; i++ {
		copy(out[i], d.RawRowView(i))
	}
	return out
}
