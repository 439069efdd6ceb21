package sensitivity

import (
	"context"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DefaultNumHarmonics is the number of low-frequency harmonics attributed to
// each dimension's sensitivity in the RBD spectrum.
const DefaultNumHarmonics = 6

// RBDIndices holds the Fourier variance-ratio sensitivity index per latent
// dimension.
type RBDIndices struct {
	Indices []float64
}

// RBDAnalysis is the random-balance-design results object. The scheme holds
// one column per dimension with units already reordered by that dimension's
// sort permutation, so each column reads in periodic order along its sweep.
// Computing the same scoring function twice is a no-op.
type RBDAnalysis struct {
	scheme       *Scheme
	dims         []string
	numCycles    float64
	numHarmonics int
	opts         Options

	mu      sync.Mutex
	results map[string]RBDIndices
	evals   map[string]*evaluator
}

// NewRBDAnalysis wraps a populated scheme whose columns are the dimension
// names. numCycles comes from the RBD design (1/2 for Sobol-derived sweeps, 1
// for random-permutation sweeps); numHarmonics <= 0 selects the default.
func NewRBDAnalysis(scheme *Scheme, dims []string, numCycles float64, numHarmonics int, opts Options) *RBDAnalysis {
	if numHarmonics <= 0 {
		numHarmonics = DefaultNumHarmonics
	}
	return &RBDAnalysis{
		scheme:       scheme,
		dims:         dims,
		numCycles:    numCycles,
		numHarmonics: numHarmonics,
		opts:         opts,
		results:      make(map[string]RBDIndices),
		evals:        make(map[string]*evaluator),
	}
}

// Scheme returns the sampling scheme table for auditing.
func (a *RBDAnalysis) Scheme() *Scheme { return a.scheme }

// Indices returns the computed indices for a scoring function, if present.
func (a *RBDAnalysis) Indices(name string) (RBDIndices, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.results[name]
	return r, ok
}

// Compute evaluates the scoring function at every sample point, mirror-extends
// each dimension's periodic series for half-period sweeps, and reads the
// sensitivity index off the Fourier spectrum: the first numHarmonics
// harmonics' power over the total power at nonzero frequencies.
func (a *RBDAnalysis) Compute(ctx context.Context, fn ScoringFunction) (RBDIndices, error) {
	a.mu.Lock()
	if r, ok := a.results[fn.Name]; ok {
		a.mu.Unlock()
		return r, nil
	}
	ev, ok := a.evals[fn.Name]
	if !ok {
		ev = newEvaluator(fn.Evaluate, a.opts.Parallelism, a.opts.Metrics)
		a.evals[fn.Name] = ev
	}
	a.mu.Unlock()

	values, err := ev.evalAll(ctx, a.scheme.Units())
	if err != nil {
		return RBDIndices{}, err
	}

	out := RBDIndices{Indices: make([]float64, len(a.dims))}
	for j, dim := range a.dims {
		ids, err := a.scheme.Column(dim)
		if err != nil {
			return RBDIndices{}, err
		}
		series := column(values, ids)
		if a.numCycles == 0.5 {
			series = mirrorExtend(series)
		}
		out.Indices[j] = spectrumRatio(series, a.numHarmonics)
	}

	a.mu.Lock()
	a.results[fn.Name] = out
	a.mu.Unlock()
	return out, nil
}

// mirrorExtend appends the reverse of the interior points (both endpoints
// excluded), turning a half-period sweep into one full period.
func mirrorExtend(series []float64) []float64 {
	n := len(series)
	if n < 3 {
		return series
	}
	out := make([]float64, 0, 2*n-2)
	out = append(out, series...)
	for i := n - 2; i >= 1; i-- {
		out = append(out, series[i])
	}
	return out
}

// spectrumRatio returns the fraction of nonzero-frequency spectral power held
// by the first numHarmonics harmonics. Conjugate-mirror frequencies count
// twice, matching a full-spectrum accounting; the Nyquist term (present for
// even lengths) counts once.
func spectrumRatio(series []float64, numHarmonics int) float64 {
	n := len(series)
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, series)

	norm := float64(n)
	var total float64
	for k := 1; k < len(coeffs); k++ {
		p := cmplx.Abs(coeffs[k])
		p *= p
		if n%2 == 0 && k == len(coeffs)-1 {
			total += p / norm
		} else {
			total += 2 * p / norm
		}
	}
	var harmonic float64
	for k := 1; k <= numHarmonics && k < len(coeffs); k++ {
		p := cmplx.Abs(coeffs[k])
		p *= p
		if n%2 == 0 && k == len(coeffs)-1 {
			harmonic += p / norm
		} else {
			harmonic += 2 * p / norm
		}
	}
	if total == 0 {
		return 0
	}
	return harmonic / total
}
