package work

import (
	"errors"
	"sync"

	"github.com/automl-framework/orchestrator/types"
)

// ErrNoEstimate is returned when the cost of an algorithm is requested before
// an estimate was planned for it
var ErrNoEstimate = errors.New("no work estimate for algorithm")

type estimation struct {
	singleModelCost      int
	hyperParamSearchCost int
}

type allocation struct {
	algo     types.Algo
	count    int
	workType types.JobType
}

// Allocations is the static cost model plus the dynamic allocation list for
// one run. The total work it reports is the denominator used to normalize
// progress percentages.
type Allocations struct {
	mtx         sync.Mutex
	estimations map[types.Algo]estimation
	allocations []allocation
}

// NewAllocations returns an empty work plan
func NewAllocations() *Allocations {
	return &Allocations{
		estimations: make(map[types.Algo]estimation),
	}
}

// Estimate registers the per unit cost of an algorithm. Last write wins.
func (w *Allocations) Estimate(algo types.Algo, singleModelCost, hyperParamSearchCost int) *Allocations {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.estimations[algo] = estimation{
		singleModelCost:      singleModelCost,
		hyperParamSearchCost: hyperParamSearchCost,
	}
	return w
}

// Allocate appends an allocation entry. Duplicate (algo, workType) pairs
// accumulate as separate entries.
func (w *Allocations) Allocate(algo types.Algo, count int, workType types.JobType) *Allocations {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.allocations = append(w.allocations, allocation{
		algo:     algo,
		count:    count,
		workType: workType,
	})
	return w
}

// Remove deletes every allocation entry for the algo regardless of work type.
// Removing an algo that was never allocated is a no-op.
func (w *Allocations) Remove(algo types.Algo) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	remaining := w.allocations[:0]
	for _, alloc := range w.allocations {
		if alloc.algo != algo {
			remaining = append(remaining, alloc)
		}
	}
	w.allocations = remaining
}

// Cost returns the per unit cost of the algo for the given work type. The
// caller must have planned an estimate for every algorithm it allocates.
func (w *Allocations) Cost(algo types.Algo, workType types.JobType) (int, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.cost(algo, workType)
}

func (w *Allocations) cost(algo types.Algo, workType types.JobType) (int, error) {
	estimate, ok := w.estimations[algo]
	if !ok {
		return 0, ErrNoEstimate
	}
	switch workType {
	case types.ModelBuild:
		return estimate.singleModelCost, nil
	case types.HyperparamSearch:
		return estimate.hyperParamSearchCost, nil
	default:
		return 0, nil
	}
}

// Planned returns true if at least one allocation for the algo and work type remains
func (w *Allocations) Planned(algo types.Algo, workType types.JobType) bool {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	for _, alloc := range w.allocations {
		if alloc.algo == algo && alloc.workType == workType {
			return true
		}
	}
	return false
}

// TotalWork sums count times cost over all remaining allocations
func (w *Allocations) TotalWork() (int, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	total := 0
	for _, alloc := range w.allocations {
		cost, err := w.cost(alloc.algo, alloc.workType)
		if err != nil {
			return 0, err
		}
		total += alloc.count * cost
	}
	return total, nil
}

// DefaultPlan is the standard work plan for a run, before exclusions are applied
func DefaultPlan() *Allocations {
	plan := NewAllocations()
	plan.Estimate(types.DeepLearning, 10, 100).
		Estimate(types.DRF, 10, 100).
		Estimate(types.GBM, 10, 100).
		Estimate(types.GLM, 10, 100).
		Estimate(types.LightGBM, 10, 100).
		Estimate(types.XGBoost, 10, 100).
		Estimate(types.StackedEnsemble, 10, 100)
	plan.Allocate(types.DeepLearning, 1, types.ModelBuild).
		Allocate(types.DeepLearning, 3, types.HyperparamSearch).
		Allocate(types.DRF, 2, types.ModelBuild).
		Allocate(types.GBM, 5, types.ModelBuild).
		Allocate(types.GBM, 1, types.HyperparamSearch).
		Allocate(types.GLM, 1, types.HyperparamSearch).
		Allocate(types.XGBoost, 3, types.ModelBuild).
		Allocate(types.XGBoost, 1, types.HyperparamSearch).
		Allocate(types.StackedEnsemble, 2, types.ModelBuild)
	return plan
}
