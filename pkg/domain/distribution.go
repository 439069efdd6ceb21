package domain

import "gonum.org/v1/gonum/stat/distuv"

// Distribution is a continuous univariate distribution with a well-defined
// inverse CDF. The distuv types (Uniform, Normal, LogNormal, ...) satisfy it
// directly.
type Distribution interface {
	Quantile(p float64) float64
}

// Uniform01 returns the standard uniform distribution on [0,1], the latent
// distribution every continuous conversion rule normalizes to.
func Uniform01() Distribution {
	return distuv.Uniform{Min: 0, Max: 1}
}

// flipped maps a coordinate u through 1-u before quantile lookup.
type flipped struct {
	d Distribution
}

func (f flipped) Quantile(p float64) float64 { return f.d.Quantile(1 - p) }

// Flipped wraps a distribution so that coordinates map through their
// complement before quantile lookup.
func Flipped(d Distribution) Distribution { return flipped{d: d} }
