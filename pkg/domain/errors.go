package domain

import "fmt"

// ErrDuplicateTarget reports a target parameter appearing in more than one
// variation of the same campaign. Raised at construction, before sampling.
type ErrDuplicateTarget struct {
	Target TargetParameter
}

func (e ErrDuplicateTarget) Error() string {
	return fmt.Sprintf("target %s appears in more than one variation", e.Target)
}

// ErrMixedLatentKinds reports a latent variation mixing discrete and
// continuous latent parameters, which have no common sampling space.
type ErrMixedLatentKinds struct{}

func (ErrMixedLatentKinds) Error() string {
	return "latent parameters must be all discrete or all continuous within one variation"
}

// ErrContinuousEnumeration reports a request to enumerate a continuous latent
// variation without CDF coordinates; continuous spaces have no canonical
// enumeration.
type ErrContinuousEnumeration struct{}

func (ErrContinuousEnumeration) Error() string {
	return "continuous latent variation has no enumeration; supply CDF coordinates"
}

// ErrGridContinuous reports grid sampling requested over a continuous latent
// variation.
type ErrGridContinuous struct {
	Target TargetParameter
}

func (e ErrGridContinuous) Error() string {
	return fmt.Sprintf("grid sampling is undefined over continuous variation targeting %s", e.Target)
}

// ErrDimensionMismatch reports a CDF coordinate vector whose length does not
// match the latent dimensionality.
type ErrDimensionMismatch struct {
	Got, Want int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("got %d CDF coordinates, want %d", e.Got, e.Want)
}

// ErrUnsupported reports a feature request the chosen method does not
// implement, surfaced explicitly instead of being silently ignored.
type ErrUnsupported struct {
	Feature string
	Method  string
}

func (e ErrUnsupported) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Method, e.Feature)
}
