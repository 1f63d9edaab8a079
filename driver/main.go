package driver

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/automl-framework/orchestrator/budget"
	"github.com/automl-framework/orchestrator/dispatch"
	"github.com/automl-framework/orchestrator/feedback"
	"github.com/automl-framework/orchestrator/leaderboard"
	"github.com/automl-framework/orchestrator/log"
	"github.com/automl-framework/orchestrator/metrics"
	"github.com/automl-framework/orchestrator/naming"
	"github.com/automl-framework/orchestrator/types"
	"github.com/automl-framework/orchestrator/work"
)

const (
	// DefaultPollInterval is the sleep between progress observations of a
	// running sub job. It trades timeliness of progress reporting against
	// polling overhead and is not required to be precise.
	DefaultPollInterval = time.Second

	defaultStoppingRounds = 3
)

// AutoML drives one run: it walks a fixed pipeline of phases, supervises at
// most one sub job at a time, aggregates results onto the leaderboard and
// accounts for every unit of planned work whether the sub job completed,
// failed, was cancelled or never started.
type AutoML struct {
	spec      *types.RunSpec
	startTime time.Time
	project   string

	plan      *work.Allocations
	totalWork int
	worked    int64

	budget      *budget.Controller
	namer       *naming.Namer
	feedback    *feedback.Log
	leaderboard *leaderboard.Leaderboard
	dispatcher  *dispatch.Dispatcher
	logger      *log.Logger

	// PollInterval between progress observations, DefaultPollInterval unless overridden before Start
	PollInterval time.Duration

	stopping types.StoppingCriteria

	trainChecksum uint64

	mtx     sync.Mutex
	jobs    []types.Task
	running bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New validates the spec and prepares a run. Configuration errors fail here,
// before any phase starts, since no partial work has been committed yet.
func New(spec *types.RunSpec, backend types.Backend, logger *log.Logger) (*AutoML, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	startTime := naming.RunStartTime(time.Now())
	project := spec.ProjectName
	if project == "" {
		project = "AutoML_" + startTime.Format(naming.KeyTimestampFormat)
	}

	logger = logger.With(log.LogParams{"project": project})
	fb := feedback.NewLog(logger)

	a := &AutoML{
		spec:         spec,
		startTime:    startTime,
		project:      project,
		feedback:     fb,
		logger:       logger,
		PollInterval: DefaultPollInterval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	fb.Info(feedback.Workflow, "AutoML job created: "+startTime.Format(naming.FullTimestampFormat))

	if spec.FoldColumn != "" {
		fb.Warn(feedback.Workflow, fmt.Sprintf("Custom fold column, %s, will be used. nfolds value will be ignored.", spec.FoldColumn))
	}

	a.stopping = spec.Stopping
	seedNote := ""
	if a.stopping.Seed == types.DefaultSeed {
		seedNote = " (random)"
	}
	fb.Info(feedback.Workflow, fmt.Sprintf("Build control seed: %d%s", a.stopping.Seed, seedNote))

	a.resolveStoppingTolerance()
	if a.stopping.StoppingRounds == 0 {
		a.stopping.StoppingRounds = defaultStoppingRounds
	}

	fb.Info(feedback.Workflow, "Project: "+project)

	a.leaderboard = leaderboard.New(spec.SortMetric, fb)
	a.budget = budget.New(time.Duration(a.stopping.MaxRuntimeSecs*float64(time.Second)), a.stopping.MaxModels)
	a.namer = naming.NewNamer(startTime)

	skip, err := a.planWork(backend)
	if err != nil {
		return nil, err
	}

	a.dispatcher = dispatch.New(spec, backend, a.budget, a.namer, fb, a.stopping, a.leaderboard.SortMetric(), skip, logger)

	a.trainChecksum = spec.Train.Checksum()
	fb.Info(feedback.DataImport, fmt.Sprintf("training data: %s, %d rows, checksum: %d", spec.Train.Key(), spec.Train.NumRows(), a.trainChecksum))

	return a, nil
}

// resolveStoppingTolerance adapts the tolerance to the training data size
// when the spec left it at the sentinel
func (a *AutoML) resolveStoppingTolerance() {
	recommended := math.Min(0.1, 1.0/math.Sqrt(float64(a.spec.Train.NumRows())))
	if a.stopping.StoppingTolerance == types.DefaultStoppingTolerance {
		a.stopping.StoppingTolerance = recommended
		a.feedback.Info(feedback.Workflow, fmt.Sprintf("Setting stopping tolerance adaptively based on the training data: %f", a.stopping.StoppingTolerance))
		return
	}
	a.feedback.Info(feedback.Workflow, fmt.Sprintf("Stopping tolerance set by the user: %f", a.stopping.StoppingTolerance))
	if a.stopping.StoppingTolerance < 0.7*recommended {
		a.feedback.Warn(feedback.Workflow, fmt.Sprintf("Stopping tolerance set by the user is < 70%% of the recommended default of %f, so models may take a long time to converge or may not converge at all.", recommended))
	}
}

// planWork builds the run's work plan, removing excluded and unavailable
// algos. Removal shrinks the total work denominator, so skipped-at-plan-time
// algos contribute nothing to progress.
func (a *AutoML) planWork(backend types.Backend) (map[types.Algo]bool, error) {
	a.plan = work.DefaultPlan()
	skip := make(map[types.Algo]bool)

	for _, algo := range a.spec.ExcludeAlgos {
		skip[algo] = true
		a.feedback.Info(feedback.ModelTraining, fmt.Sprintf("Disabling Algo: %s as requested by the user.", algo))
		a.plan.Remove(algo)
	}
	for _, algo := range types.Algos() {
		if skip[algo] || backend.Supports(algo) {
			continue
		}
		skip[algo] = true
		a.feedback.Warn(feedback.ModelTraining, fmt.Sprintf("AutoML: %s is not available; skipping it.", algo))
		a.plan.Remove(algo)
	}

	total, err := a.plan.TotalWork()
	if err != nil {
		return nil, err
	}
	a.totalWork = total
	return skip, nil
}

// Start launches the run asynchronously. Progress can be tracked through
// Progress and the feedback log.
func (a *AutoML) Start() {
	a.mtx.Lock()
	a.running = true
	a.mtx.Unlock()
	go a.run()
}

func (a *AutoML) run() {
	defer func() {
		a.mtx.Lock()
		a.running = false
		a.mtx.Unlock()
		close(a.doneCh)
	}()

	a.feedback.Info(feedback.Workflow, "AutoML build started: "+time.Now().Format(naming.FullTimestampFormat))

	a.defaultRandomForest()
	a.defaultExtremelyRandomTrees()
	a.defaultSearchGLM()
	a.defaultGBMs()
	a.defaultDeepLearning()
	a.defaultXGBoosts()
	a.defaultSearchGBM()
	a.defaultSearchXGBoost()
	a.defaultSearchDL()
	a.ensembleSelection()

	a.feedback.Info(feedback.Workflow, fmt.Sprintf("AutoML: build done; built %d models", a.budget.ModelCount()))
	a.verifyImmutability()
}

// Stop requests the run to stop and blocks until it has fully quiesced. The
// currently supervised sub job is stopped; later phases observe the expired
// budget and skip themselves.
func (a *AutoML) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
		a.budget.ForceExpire()
	})
	<-a.doneCh

	// failsafe: no sub job may be left live after teardown
	a.mtx.Lock()
	jobs := make([]types.Task, len(a.jobs))
	copy(jobs, a.jobs)
	a.jobs = nil
	a.mtx.Unlock()
	for _, j := range jobs {
		j.Stop()
	}
	for _, j := range jobs {
		j.Wait()
	}
}

// Done is closed when the run reaches its natural end or finishes stopping
func (a *AutoML) Done() <-chan struct{} {
	return a.doneCh
}

// Running reports whether the run is still in progress
func (a *AutoML) Running() bool {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.running
}

// Wait blocks until the run is done
func (a *AutoML) Wait() {
	<-a.doneCh
}

// Project returns the run's project name
func (a *AutoML) Project() string {
	return a.project
}

// StartTime returns the run scoped start time embedded in every key
func (a *AutoML) StartTime() time.Time {
	return a.startTime
}

// Worked returns the work units credited so far
func (a *AutoML) Worked() int {
	return int(atomic.LoadInt64(&a.worked))
}

// TotalWork returns the progress denominator fixed at planning time
func (a *AutoML) TotalWork() int {
	return a.totalWork
}

// Progress returns work completed over total work, in [0, 1]
func (a *AutoML) Progress() float64 {
	if a.totalWork == 0 {
		return 1
	}
	return float64(a.Worked()) / float64(a.totalWork)
}

// Leaderboard returns the run's leaderboard
func (a *AutoML) Leaderboard() *leaderboard.Leaderboard {
	return a.leaderboard
}

// Feedback returns the run's feedback log
func (a *AutoML) Feedback() *feedback.Log {
	return a.feedback
}

func (a *AutoML) stopRequested() bool {
	select {
	case <-a.stopCh:
		return true
	default:
		return false
	}
}

func (a *AutoML) update(delta int, msg string) {
	if delta > 0 {
		atomic.AddInt64(&a.worked, int64(delta))
		metrics.WorkUnitsCredited.Add(float64(delta))
	}
	a.logger.With(log.LogParams{
		"work": delta,
		"msg":  msg,
	}).Debug("Progress update")
}

// addModels admits artifacts to the leaderboard and charges the budget for
// the genuinely new ones. The leaderboard is the deduplication authority, so
// the delta is read back from it rather than assumed equal to the batch size.
func (a *AutoML) addModels(models []types.ScoredModel) {
	before := a.leaderboard.Count()
	a.leaderboard.AddMany(models)
	after := a.leaderboard.Count()
	if delta := after - before; delta > 0 {
		a.budget.AddModels(delta)
		metrics.ModelsAdmitted.Add(float64(delta))
	}
}

func (a *AutoML) registerJob(t types.Task) {
	a.mtx.Lock()
	a.jobs = append(a.jobs, t)
	a.mtx.Unlock()
}

func (a *AutoML) unregisterJob(t types.Task) {
	a.mtx.Lock()
	for i, j := range a.jobs {
		if j == t {
			a.jobs = append(a.jobs[:i], a.jobs[i+1:]...)
			break
		}
	}
	a.mtx.Unlock()
}

// supervise polls one sub job until it terminates, translating its fractional
// progress into absolute work credits and harvesting completed search
// artifacts as they appear. Whatever way the sub job ends, exactly
// workContribution units end up credited for the phase; a nil sub job (the
// dispatch was skipped) is credited in full immediately.
func (a *AutoML) supervise(stage feedback.Stage, name string, workContribution int, sub types.Task, kind types.JobType, ignoreTimeout bool) {
	if sub == nil {
		a.update(workContribution, "SKIPPED: "+name)
		a.logger.Info("AutoML skipping " + name)
		return
	}

	a.feedback.Info(stage, name+" started")
	a.registerJob(sub)
	defer a.unregisterJob(sub)

	lastWorked := 0
	harvested := 0
	stopSeen := false
	timeoutSeen := false

	for sub.IsRunning() {
		if a.stopRequested() {
			if !stopSeen {
				a.feedback.Info(feedback.ModelTraining, "AutoML job cancelled; stopping "+name)
			}
			stopSeen = true
			sub.Stop()
		} else if !ignoreTimeout && a.budget.IsExpired() {
			if !timeoutSeen {
				a.feedback.Info(feedback.ModelTraining, "AutoML: out of time; stopping "+name)
			}
			timeoutSeen = true
			sub.Stop()
		}

		workedSoFar := int(math.Round(sub.Progress() * float64(workContribution)))
		if workedSoFar > lastWorked {
			a.update(workedSoFar-lastWorked, name)
			lastWorked = workedSoFar
		}

		if kind == types.HyperparamSearch {
			if search, ok := sub.(types.SearchTask); ok {
				harvested = a.harvest(name, search.Models(), harvested)
			}
		}

		if stopSeen {
			time.Sleep(a.PollInterval)
		} else {
			select {
			case <-a.stopCh:
			case <-time.After(a.PollInterval):
			}
		}
	}

	result := sub.Wait()

	// pick up any stragglers
	switch kind {
	case types.HyperparamSearch:
		switch result.Status {
		case types.TaskFailed:
			a.feedback.Info(stage, fmt.Sprintf("%s failed: %v", name, result.Err))
		case types.TaskCancelled:
			a.feedback.Info(stage, name+" cancelled")
		default:
			a.harvest(name, result.Models, harvested)
			a.feedback.Info(stage, name+" complete")
		}
	case types.ModelBuild:
		switch result.Status {
		case types.TaskFailed:
			a.feedback.Info(stage, fmt.Sprintf("%s failed: %v", name, result.Err))
		case types.TaskCancelled:
			a.feedback.Info(stage, name+" cancelled")
		default:
			a.addModels(result.Models)
			a.feedback.Info(stage, name+" complete")
		}
	}

	// add remaining work
	a.update(workContribution-lastWorked, name)
}

// harvest admits search artifacts completed since the previous observation
// and returns the new high-water mark
func (a *AutoML) harvest(name string, models []types.ScoredModel, prev int) int {
	if len(models) <= prev {
		return prev
	}
	a.feedback.Info(feedback.ModelTraining, fmt.Sprintf("Built: %d models for search: %s", len(models), name))
	a.addModels(models[prev:])
	return len(models)
}

// verifyImmutability re-checks the training data checksum recorded at run
// creation. A mismatch is only a warning: training already happened and
// cannot be undone.
func (a *AutoML) verifyImmutability() {
	a.feedback.Debug(feedback.Workflow, "Verifying training data immutability. . .")
	now := a.spec.Train.Checksum()
	if now != a.trainChecksum {
		a.logger.With(log.LogParams{
			"was": a.trainChecksum,
			"now": now,
		}).Warn("Training data checksum has changed")
		a.feedback.Warn(feedback.Workflow, "Training data was mutated! This indicates a bug in the AutoML software.")
		return
	}
	a.feedback.Debug(feedback.Workflow, "Training data was not mutated (as expected).")
}

func (a *AutoML) cost(algo types.Algo, kind types.JobType) int {
	cost, err := a.plan.Cost(algo, kind)
	if err != nil {
		// every algo in the default plan carries an estimate
		a.logger.With(log.LogParams{"algo": algo.String()}).Error("No work estimate")
		return 0
	}
	return cost
}
