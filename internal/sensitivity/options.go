package sensitivity

import "go.uber.org/zap"

// Options configures an analysis: evaluation parallelism, instrumentation,
// and logging. The zero value is usable (sequential, no metrics, no logs).
type Options struct {
	Parallelism int
	Metrics     *Metrics
	Log         *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log
}

// SchemeColumnBase is the scheme role holding unperturbed sample units.
const SchemeColumnBase = "base"

// SchemeColumnA and SchemeColumnB are the Sobol' design matrix roles.
const (
	SchemeColumnA = "A"
	SchemeColumnB = "B"
)
