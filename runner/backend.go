package runner

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/automl-framework/orchestrator/types"
)

// Backend simulates a training cluster. Every build and search runs on its
// own goroutine, advances progress in fixed steps and produces randomly
// scored artifacts, which is enough to exercise the whole supervision and
// aggregation path without a real cluster.
type Backend struct {
	// BuildSteps progress increments per sub job
	BuildSteps int
	// StepInterval sleep between progress increments
	StepInterval time.Duration
	// SearchModelCount artifacts produced per search before clamping
	SearchModelCount int

	mtx         sync.Mutex
	unsupported map[types.Algo]bool
	rng         *rand.Rand
}

// NewBackend returns a backend with demo friendly defaults
func NewBackend() *Backend {
	return &Backend{
		BuildSteps:       10,
		StepInterval:     200 * time.Millisecond,
		SearchModelCount: 5,
		unsupported:      make(map[types.Algo]bool),
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Disable marks an algo as unavailable on this backend
func (b *Backend) Disable(algo types.Algo) {
	b.mtx.Lock()
	b.unsupported[algo] = true
	b.mtx.Unlock()
}

// Supports reports whether the backend can run the algo
func (b *Backend) Supports(algo types.Algo) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return !b.unsupported[algo]
}

func (b *Backend) score(algo types.Algo) map[string]float64 {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	auc := 0.5 + 0.5*b.rng.Float64()
	return map[string]float64{
		string(types.MetricAUC):     auc,
		string(types.MetricLogloss): 0.1 + b.rng.Float64(),
		string(types.MetricRMSE):    b.rng.Float64(),
	}
}

// BuildModel launches a simulated single model build
func (b *Backend) BuildModel(key string, algo types.Algo, params *types.ModelParams) (types.Task, error) {
	if !b.Supports(algo) {
		return nil, fmt.Errorf("algo %s is not available", algo)
	}
	t := newSimTask(b, func(t *simTask, step int) {
		if step == b.BuildSteps {
			t.addModel(types.ScoredModel{
				Key:     key,
				Algo:    algo,
				Metrics: b.score(algo),
			})
		}
	})
	go t.run(b.BuildSteps, b.StepInterval)
	return t, nil
}

// SearchModels launches a simulated hyperparameter search producing one
// artifact per step up to the search criteria's model ceiling
func (b *Backend) SearchModels(gridKey string, algo types.Algo, params *types.ModelParams, hyperParams map[string][]interface{}, criteria types.SearchCriteria) (types.SearchTask, error) {
	if !b.Supports(algo) {
		return nil, fmt.Errorf("algo %s is not available", algo)
	}
	count := b.SearchModelCount
	if criteria.MaxModels > 0 && criteria.MaxModels < count {
		count = criteria.MaxModels
	}
	t := newSimTask(b, func(t *simTask, step int) {
		if step <= count {
			t.addModel(types.ScoredModel{
				Key:     fmt.Sprintf("%s_model_%d", gridKey, step),
				Algo:    algo,
				Metrics: b.score(algo),
			})
		}
	})
	steps := count
	if steps < 1 {
		steps = 1
	}
	go t.run(steps, b.StepInterval)
	return t, nil
}

// simTask is a cancellable fake sub job. onStep fires after every progress
// increment with the 1-based step number.
type simTask struct {
	backend *Backend
	onStep  func(t *simTask, step int)

	mtx      sync.Mutex
	progress float64
	running  bool
	stopped  bool
	models   []types.ScoredModel
	result   types.TaskResult

	doneCh chan struct{}
}

func newSimTask(b *Backend, onStep func(t *simTask, step int)) *simTask {
	return &simTask{
		backend: b,
		onStep:  onStep,
		running: true,
		doneCh:  make(chan struct{}),
	}
}

func (t *simTask) run(steps int, interval time.Duration) {
	for step := 1; step <= steps; step++ {
		time.Sleep(interval)

		t.mtx.Lock()
		if t.stopped {
			t.running = false
			t.result = types.TaskResult{
				Status: types.TaskCancelled,
				Models: append([]types.ScoredModel(nil), t.models...),
			}
			t.mtx.Unlock()
			close(t.doneCh)
			return
		}
		t.progress = float64(step) / float64(steps)
		t.mtx.Unlock()

		t.onStep(t, step)
	}

	t.mtx.Lock()
	t.running = false
	t.result = types.TaskResult{
		Status: types.TaskCompleted,
		Models: append([]types.ScoredModel(nil), t.models...),
	}
	t.mtx.Unlock()
	close(t.doneCh)
}

func (t *simTask) addModel(m types.ScoredModel) {
	t.mtx.Lock()
	t.models = append(t.models, m)
	t.mtx.Unlock()
}

// IsRunning reports whether the sub job is still making progress
func (t *simTask) IsRunning() bool {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.running
}

// Progress returns the fraction of work done, in [0, 1]
func (t *simTask) Progress() float64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.progress
}

// Stop requests cancellation; the job winds down at its next step
func (t *simTask) Stop() {
	t.mtx.Lock()
	t.stopped = true
	t.mtx.Unlock()
}

// Wait blocks until the sub job terminated and returns its result
func (t *simTask) Wait() types.TaskResult {
	<-t.doneCh
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.result
}

// ModelCount returns the number of artifacts completed so far
func (t *simTask) ModelCount() int {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return len(t.models)
}

// Models returns a snapshot of the artifacts completed so far
func (t *simTask) Models() []types.ScoredModel {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return append([]types.ScoredModel(nil), t.models...)
}
