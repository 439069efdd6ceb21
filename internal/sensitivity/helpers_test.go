package sensitivity

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"sweepcore/internal/sampling"
)

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

// pointTable assigns one unit per distinct CDF point, standing in for the
// identity store in estimator tests.
type pointTable struct {
	byKey  map[string]UnitID
	points map[UnitID][]float64
	next   UnitID
}

func newPointTable() *pointTable {
	return &pointTable{byKey: make(map[string]UnitID), points: make(map[UnitID][]float64)}
}

func (pt *pointTable) unit(point []float64) UnitID {
	key := fmt.Sprintf("%v", point)
	if id, ok := pt.byKey[key]; ok {
		return id
	}
	id := pt.next
	pt.next++
	pt.byKey[key] = id
	stored := make([]float64, len(point))
	copy(stored, point)
	pt.points[id] = stored
	return id
}

func (pt *pointTable) fillColumn(s *Scheme, column string, m sampling.Matrix) error {
	for i, row := range m {
		if err := s.Set(i, column, pt.unit(row)); err != nil {
			return err
		}
	}
	return nil
}

// scorer wraps a deterministic function of the CDF point and counts how many
// evaluations actually run.
func (pt *pointTable) scorer(name string, f func(point []float64) float64, calls *atomic.Int64) ScoringFunction {
	return ScoringFunction{
		Name: name,
		Evaluate: func(_ context.Context, id UnitID) (float64, error) {
			point, ok := pt.points[id]
			if !ok {
				return 0, fmt.Errorf("unknown unit %d", id)
			}
			if calls != nil {
				calls.Add(1)
			}
			return f(point), nil
		},
	}
}
