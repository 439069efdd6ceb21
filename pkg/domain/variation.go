package domain

import (
	"fmt"
	"math"
)

// LatentParameter is one dimension of a latent variation: either a finite
// ordered value set or a continuous distribution. The two variants are closed;
// sampling engines never see anything beyond this pair.
type LatentParameter struct {
	values []Value
	dist   Distribution
}

// DiscreteSet builds a discrete latent parameter over the given ordered values.
func DiscreteSet(values ...Value) LatentParameter {
	return LatentParameter{values: values}
}

// IndexSet builds a discrete latent parameter over the integer indices
// 0..n-1, used by correlated discrete groups enumerated in lockstep.
func IndexSet(n int) LatentParameter {
	values := make([]Value, n)
	for i := range values {
		values[i] = Int(int64(i))
	}
	return LatentParameter{values: values}
}

// ContinuousDist builds a continuous latent parameter over the distribution.
func ContinuousDist(d Distribution) LatentParameter {
	return LatentParameter{dist: d}
}

// Discrete reports whether the parameter is the finite-set variant.
func (p LatentParameter) Discrete() bool { return p.dist == nil }

// Cardinality returns the value-set size, or 0 for continuous parameters.
func (p LatentParameter) Cardinality() int { return len(p.values) }

// ValueAt returns the i-th value of a discrete parameter.
func (p LatentParameter) ValueAt(i int) (Value, error) {
	if !p.Discrete() {
		return Value{}, ErrContinuousEnumeration{}
	}
	if i < 0 || i >= len(p.values) {
		return Value{}, fmt.Errorf("index %d out of range for value set of size %d", i, len(p.values))
	}
	return p.values[i], nil
}

// Realize converts a CDF coordinate in [0,1] into this parameter's
// realization: the floor(cdf*n) value for discrete sets (clamped to the last
// index at cdf == 1), or the quantile for continuous distributions.
func (p LatentParameter) Realize(cdf float64) (Value, error) {
	if cdf < 0 || cdf > 1 {
		return Value{}, fmt.Errorf("CDF coordinate %g outside [0,1]", cdf)
	}
	if p.Discrete() {
		n := len(p.values)
		idx := int(math.Floor(cdf * float64(n)))
		if idx >= n {
			idx = n - 1
		}
		return p.values[idx], nil
	}
	return Float(p.dist.Quantile(cdf)), nil
}

// MapFunc consumes a full latent realization vector and produces one target's
// concrete value.
type MapFunc func(latent []Value) Value

// LatentVariation is the canonical normal form of a user variation: latent
// parameters, their names, and one target plus mapping function per output.
// Every simpler variation kind converts losslessly into exactly one of these.
type LatentVariation struct {
	params  []LatentParameter
	names   []string
	targets []TargetParameter
	maps    []MapFunc
}

// NewLatentVariation accepts the general form directly. Names may be nil, in
// which case they are generated from the target names plus parameter index.
func NewLatentVariation(params []LatentParameter, names []string, targets []TargetParameter, maps []MapFunc) (LatentVariation, error) {
	if len(params) == 0 {
		return LatentVariation{}, fmt.Errorf("latent variation needs at least one latent parameter")
	}
	if len(targets) == 0 || len(targets) != len(maps) {
		return LatentVariation{}, fmt.Errorf("latent variation needs %d mapping functions for %d targets", len(targets), len(targets))
	}
	discrete := params[0].Discrete()
	for _, p := range params[1:] {
		if p.Discrete() != discrete {
			return LatentVariation{}, ErrMixedLatentKinds{}
		}
	}
	if names == nil {
		names = make([]string, len(params))
		for i := range names {
			names[i] = fmt.Sprintf("%s[%d]", targets[0].Path, i)
		}
	}
	if len(names) != len(params) {
		return LatentVariation{}, fmt.Errorf("got %d latent parameter names for %d parameters", len(names), len(params))
	}
	return LatentVariation{params: params, names: names, targets: targets, maps: maps}, nil
}

// NewDiscreteVariation converts a single-target discrete variation: one latent
// parameter holding the value set itself, identity mapping.
func NewDiscreteVariation(target TargetParameter, values []Value) (LatentVariation, error) {
	if len(values) == 0 {
		return LatentVariation{}, fmt.Errorf("discrete variation for %s has no values", target)
	}
	return NewLatentVariation(
		[]LatentParameter{DiscreteSet(values...)},
		[]string{target.Path},
		[]TargetParameter{target},
		[]MapFunc{func(latent []Value) Value { return latent[0] }},
	)
}

// NewDistributedVariation converts a single-target continuous variation: one
// Uniform(0,1) latent parameter mapped through the distribution's quantile,
// optionally through the complemented coordinate first.
func NewDistributedVariation(target TargetParameter, dist Distribution, flip bool) (LatentVariation, error) {
	if dist == nil {
		return LatentVariation{}, fmt.Errorf("distributed variation for %s has no distribution", target)
	}
	if flip {
		dist = Flipped(dist)
	}
	d := dist
	return NewLatentVariation(
		[]LatentParameter{ContinuousDist(Uniform01())},
		[]string{target.Path},
		[]TargetParameter{target},
		[]MapFunc{func(latent []Value) Value { return Float(d.Quantile(latent[0].Float64())) }},
	)
}

// NewCorrelatedDiscreteVariation converts a lockstep discrete group: selecting
// index i picks the i-th value from every member simultaneously, so the single
// latent parameter is the shared index set.
func NewCorrelatedDiscreteVariation(targets []TargetParameter, valueSets [][]Value) (LatentVariation, error) {
	if len(targets) == 0 || len(targets) != len(valueSets) {
		return LatentVariation{}, fmt.Errorf("correlated discrete group needs one value set per target")
	}
	n := len(valueSets[0])
	for i, vs := range valueSets {
		if len(vs) != n {
			return LatentVariation{}, fmt.Errorf("correlated discrete group member %s has %d values, want %d", targets[i], len(vs), n)
		}
	}
	if n == 0 {
		return LatentVariation{}, fmt.Errorf("correlated discrete group has empty value sets")
	}
	maps := make([]MapFunc, len(targets))
	for i := range targets {
		vs := valueSets[i]
		maps[i] = func(latent []Value) Value { return vs[latent[0].Int64()] }
	}
	names := []string{fmt.Sprintf("%s-group", targets[0].Path)}
	return NewLatentVariation([]LatentParameter{IndexSet(n)}, names, targets, maps)
}

// DistributedMember is one target of a correlated continuous group.
type DistributedMember struct {
	Target TargetParameter
	Dist   Distribution
	Flip   bool
}

// NewCorrelatedDistributedVariation converts a correlated continuous group:
// one shared Uniform(0,1) coordinate resolved through each member's own
// (possibly flipped) quantile function.
func NewCorrelatedDistributedVariation(members []DistributedMember) (LatentVariation, error) {
	if len(members) == 0 {
		return LatentVariation{}, fmt.Errorf("correlated distributed group has no members")
	}
	targets := make([]TargetParameter, len(members))
	maps := make([]MapFunc, len(members))
	for i, m := range members {
		if m.Dist == nil {
			return LatentVariation{}, fmt.Errorf("correlated distributed member %s has no distribution", m.Target)
		}
		dist := m.Dist
		if m.Flip {
			dist = Flipped(dist)
		}
		d := dist
		targets[i] = m.Target
		maps[i] = func(latent []Value) Value { return Float(d.Quantile(latent[0].Float64())) }
	}
	names := []string{fmt.Sprintf("%s-group", members[0].Target.Path)}
	return NewLatentVariation([]LatentParameter{ContinuousDist(Uniform01())}, names, targets, maps)
}

// Discrete reports whether all latent parameters are finite sets.
func (lv LatentVariation) Discrete() bool { return lv.params[0].Discrete() }

// Dimension returns the number of latent parameters.
func (lv LatentVariation) Dimension() int { return len(lv.params) }

// Targets returns the target parameters in declaration order.
func (lv LatentVariation) Targets() []TargetParameter { return lv.targets }

// Names returns the latent parameter names.
func (lv LatentVariation) Names() []string { return lv.names }

// Cardinalities returns each latent parameter's value-set size. Continuous
// variations are rejected: a grid over a continuum is ill-defined.
func (lv LatentVariation) Cardinalities() ([]int, error) {
	if !lv.Discrete() {
		return nil, ErrGridContinuous{Target: lv.targets[0]}
	}
	cards := make([]int, len(lv.params))
	for i, p := range lv.params {
		cards[i] = p.Cardinality()
	}
	return cards, nil
}

func (lv LatentVariation) apply(latent []Value) []Value {
	out := make([]Value, len(lv.maps))
	for i, m := range lv.maps {
		out[i] = m(latent)
	}
	return out
}

// ValuesAtIndices evaluates a discrete variation at explicit value-set
// indices, one per latent parameter, returning one value per target.
func (lv LatentVariation) ValuesAtIndices(indices []int) ([]Value, error) {
	if !lv.Discrete() {
		return nil, ErrContinuousEnumeration{}
	}
	if len(indices) != len(lv.params) {
		return nil, ErrDimensionMismatch{Got: len(indices), Want: len(lv.params)}
	}
	latent := make([]Value, len(lv.params))
	for i, p := range lv.params {
		v, err := p.ValueAt(indices[i])
		if err != nil {
			return nil, err
		}
		latent[i] = v
	}
	return lv.apply(latent), nil
}

// ValuesAtCDF evaluates the variation at CDF coordinates, one per latent
// parameter, returning one value per target in declaration order.
func (lv LatentVariation) ValuesAtCDF(cdf []float64) ([]Value, error) {
	if len(cdf) != len(lv.params) {
		return nil, ErrDimensionMismatch{Got: len(cdf), Want: len(lv.params)}
	}
	latent := make([]Value, len(lv.params))
	for i, p := range lv.params {
		v, err := p.Realize(cdf[i])
		if err != nil {
			return nil, err
		}
		latent[i] = v
	}
	return lv.apply(latent), nil
}

// EnumerateAll expands a discrete variation into the full Cartesian product of
// its latent index ranges. The result is target-major: one row per target, one
// column per combination, columns ordered so the first latent parameter varies
// fastest and the last varies slowest.
func (lv LatentVariation) EnumerateAll() ([][]Value, error) {
	if !lv.Discrete() {
		return nil, ErrContinuousEnumeration{}
	}
	cards, err := lv.Cardinalities()
	if err != nil {
		return nil, err
	}
	total := 1
	for _, c := range cards {
		total *= c
	}
	out := make([][]Value, len(lv.targets))
	for i := range out {
		out[i] = make([]Value, total)
	}
	indices := make([]int, len(cards))
	for col := 0; col < total; col++ {
		vals, err := lv.ValuesAtIndices(indices)
		if err != nil {
			return nil, err
		}
		for row := range vals {
			out[row][col] = vals[row]
		}
		for i := 0; i < len(indices); i++ {
			indices[i]++
			if indices[i] < cards[i] {
				break
			}
			indices[i] = 0
		}
	}
	return out, nil
}

// TargetValue pairs a target parameter with the concrete value it takes for
// one sample point.
type TargetValue struct {
	Target TargetParameter
	Value  Value
}

// ParsedVariations is the ordered collection of latent variations for one
// sampling campaign. No target may appear twice across the collection.
type ParsedVariations struct {
	variations []LatentVariation
}

// NewParsedVariations validates and collects the variations, rejecting any
// target addressed by more than one of them.
func NewParsedVariations(variations ...LatentVariation) (*ParsedVariations, error) {
	if len(variations) == 0 {
		return nil, fmt.Errorf("campaign has no variations")
	}
	seen := make(map[TargetParameter]struct{})
	for _, lv := range variations {
		for _, t := range lv.Targets() {
			if _, ok := seen[t]; ok {
				return nil, ErrDuplicateTarget{Target: t}
			}
			seen[t] = struct{}{}
		}
	}
	return &ParsedVariations{variations: variations}, nil
}

// Variations returns the latent variations in declaration order.
func (pv *ParsedVariations) Variations() []LatentVariation { return pv.variations }

// TotalDimension returns the latent dimensionality across all variations.
func (pv *ParsedVariations) TotalDimension() int {
	total := 0
	for _, lv := range pv.variations {
		total += lv.Dimension()
	}
	return total
}

// DimensionNames returns one name per latent dimension, concatenated in
// declaration order.
func (pv *ParsedVariations) DimensionNames() []string {
	names := make([]string, 0, pv.TotalDimension())
	for _, lv := range pv.variations {
		names = append(names, lv.Names()...)
	}
	return names
}

// LocationsInUse returns the locations touched by any target, in canonical
// order.
func (pv *ParsedVariations) LocationsInUse() []Location {
	present := make(map[Location]struct{})
	for _, lv := range pv.variations {
		for _, t := range lv.Targets() {
			present[t.Location] = struct{}{}
		}
	}
	out := make([]Location, 0, len(present))
	for _, loc := range Locations() {
		if _, ok := present[loc]; ok {
			out = append(out, loc)
		}
	}
	return out
}

// Cardinalities returns the discrete cardinality of every latent dimension in
// declaration order, failing on any continuous variation.
func (pv *ParsedVariations) Cardinalities() ([]int, error) {
	var cards []int
	for _, lv := range pv.variations {
		c, err := lv.Cardinalities()
		if err != nil {
			return nil, err
		}
		cards = append(cards, c...)
	}
	return cards, nil
}

// ValuesAtCDF evaluates every variation at one full CDF coordinate vector
// (length == TotalDimension) and concatenates the resulting target values in
// declaration order.
func (pv *ParsedVariations) ValuesAtCDF(cdf []float64) ([]TargetValue, error) {
	if len(cdf) != pv.TotalDimension() {
		return nil, ErrDimensionMismatch{Got: len(cdf), Want: pv.TotalDimension()}
	}
	var out []TargetValue
	offset := 0
	for _, lv := range pv.variations {
		vals, err := lv.ValuesAtCDF(cdf[offset : offset+lv.Dimension()])
		if err != nil {
			return nil, err
		}
		for i, t := range lv.Targets() {
			out = append(out, TargetValue{Target: t, Value: vals[i]})
		}
		offset += lv.Dimension()
	}
	return out, nil
}

// ValuesAtIndices evaluates every discrete variation at one full vector of
// value-set indices and concatenates the resulting target values.
func (pv *ParsedVariations) ValuesAtIndices(indices []int) ([]TargetValue, error) {
	if len(indices) != pv.TotalDimension() {
		return nil, ErrDimensionMismatch{Got: len(indices), Want: pv.TotalDimension()}
	}
	var out []TargetValue
	offset := 0
	for _, lv := range pv.variations {
		vals, err := lv.ValuesAtIndices(indices[offset : offset+lv.Dimension()])
		if err != nil {
			return nil, err
		}
		for i, t := range lv.Targets() {
			out = append(out, TargetValue{Target: t, Value: vals[i]})
		}
		offset += lv.Dimension()
	}
	return out, nil
}
