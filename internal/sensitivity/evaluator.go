package sensitivity

import (
	"context"
	"fmt"
	"sync"
)

// Evaluate is the black-box scoring boundary: given a sample unit, produce a
// scalar output. In the full system this triggers a simulator run and may
// take seconds to hours.
type Evaluate func(ctx context.Context, id UnitID) (float64, error)

// ScoringFunction pairs a stable name with an evaluation function. The name
// keys the per-function index maps on results objects.
type ScoringFunction struct {
	Name     string
	Evaluate Evaluate
}

// evaluator memoizes one scoring function by unit identifier; identical units
// are evaluated at most once. Missing units are dispatched concurrently up to
// the configured parallelism, since nothing in the index math requires
// sequential evaluation order.
type evaluator struct {
	fn          Evaluate
	parallelism int
	metrics     *Metrics

	mu    sync.Mutex
	cache map[UnitID]float64
}

func newEvaluator(fn Evaluate, parallelism int, metrics *Metrics) *evaluator {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &evaluator{fn: fn, parallelism: parallelism, metrics: metrics, cache: make(map[UnitID]float64)}
}

// evalAll ensures every listed unit is cached, then returns the cache.
func (e *evaluator) evalAll(ctx context.Context, ids []UnitID) (map[UnitID]float64, error) {
	e.mu.Lock()
	var missing []UnitID
	seen := make(map[UnitID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := e.cache[id]; ok {
			e.metrics.cacheHit()
			continue
		}
		missing = append(missing, id)
	}
	e.mu.Unlock()

	if len(missing) > 0 {
		var wg sync.WaitGroup
		sem := make(chan struct{}, e.parallelism)
		errs := make([]error, len(missing))
		for i, id := range missing {
			wg.Add(1)
			go func(i int, id UnitID) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				v, err := e.fn(ctx, id)
				if err != nil {
					errs[i] = fmt.Errorf("evaluate unit %d: %w", id, err)
					return
				}
				e.metrics.evaluation()
				e.mu.Lock()
				e.cache[id] = v
				e.mu.Unlock()
			}(i, id)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[UnitID]float64, len(e.cache))
	for k, v := range e.cache {
		out[k] = v
	}
	return out, nil
}

// column maps a scheme column through the cache.
func column(values map[UnitID]float64, ids []UnitID) []float64 {
	out := make([]float64, len(ids))
	for i, id := range ids {
		out[i] = values[id]
	}
	return out
}
