package dispatch

import (
	"fmt"
	"math"

	"github.com/automl-framework/orchestrator/budget"
	"github.com/automl-framework/orchestrator/feedback"
	"github.com/automl-framework/orchestrator/log"
	"github.com/automl-framework/orchestrator/naming"
	"github.com/automl-framework/orchestrator/types"
	"github.com/automl-framework/orchestrator/util"
)

// Dispatcher gates and launches sub jobs. It checks the exclusion set and the
// budget, stamps the parameters every sub job shares, time-boxes the work to
// the remaining budget and hands the launch to the backend. A nil return
// signals "skipped", not an error; supervision of a returned handle is the
// caller's job.
type Dispatcher struct {
	backend  types.Backend
	budget   *budget.Controller
	namer    *naming.Namer
	feedback *feedback.Log
	spec     *types.RunSpec
	logger   *log.Logger

	// skip holds excluded algos plus algos the backend can't run
	skip map[types.Algo]bool

	// stopping is the run's global stopping criteria with the tolerance
	// already resolved
	stopping   types.StoppingCriteria
	sortMetric types.Metric

	tasksLaunched *util.Counter
}

// New instantiates a dispatcher for one run
func New(spec *types.RunSpec, backend types.Backend, bdgt *budget.Controller, namer *naming.Namer, fb *feedback.Log, stopping types.StoppingCriteria, sortMetric types.Metric, skip map[types.Algo]bool, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		backend:       backend,
		budget:        bdgt,
		namer:         namer,
		feedback:      fb,
		spec:          spec,
		logger:        logger.With(log.LogParams{"service": "dispatcher"}),
		skip:          skip,
		stopping:      stopping,
		sortMetric:    sortMetric,
		tasksLaunched: util.NewCounter(),
	}
}

// Skipped returns true if the algo will never be dispatched in this run
func (d *Dispatcher) Skipped(algo types.Algo) bool {
	return d.skip[algo]
}

// TrainModel launches a single model build. Returns nil when the build was
// skipped because the algo is excluded or the budget is exhausted; the reason
// is recorded on the feedback log.
func (d *Dispatcher) TrainModel(key string, algo types.Algo, params *types.ModelParams, ignoreLimits bool) types.Task {
	if d.exceededLimits(algo, key, types.ModelBuild, ignoreLimits) {
		return nil
	}

	if key == "" {
		key = d.namer.ModelKey(algo.String())
	}

	d.stampCommonParams(algo, params)
	d.timebox(params, ignoreLimits)
	d.inheritStopping(params)
	d.deriveSeed(params)

	task, err := d.backend.BuildModel(key, algo, params)
	if err != nil {
		d.feedback.Warn(feedback.ModelTraining, fmt.Sprintf("%s failed to start: %v", key, err))
		return nil
	}

	d.logger.With(log.LogParams{
		"algo":              algo.String(),
		"key":               key,
		"time_remaining_ms": d.budget.RemainingTimeMs(),
	}).Debug("Training model")
	return task
}

// HyperparameterSearch launches a hyperparameter search over the given space.
// Returns nil when the search was skipped.
func (d *Dispatcher) HyperparameterSearch(gridKey string, algo types.Algo, params *types.ModelParams, hyperParams map[string][]interface{}) types.SearchTask {
	if d.exceededLimits(algo, "", types.HyperparamSearch, false) {
		return nil
	}

	if gridKey == "" {
		gridKey = d.namer.GridKey(algo.String())
	}

	d.stampCommonParams(algo, params)
	d.inheritStopping(params)
	d.deriveSeed(params)

	criteria := types.SearchCriteria{
		Seed:              d.stopping.Seed,
		MaxRuntimeSecs:    d.stopping.MaxRuntimeSecs,
		MaxModels:         d.stopping.MaxModels,
		StoppingMetric:    params.StoppingMetric,
		StoppingRounds:    params.StoppingRounds,
		StoppingTolerance: params.StoppingTolerance,
	}
	if remaining := d.remainingSecs(); remaining >= 0 {
		if criteria.MaxRuntimeSecs == 0 {
			criteria.MaxRuntimeSecs = remaining
		} else {
			criteria.MaxRuntimeSecs = math.Min(criteria.MaxRuntimeSecs, remaining)
		}
	}
	if remaining := d.budget.RemainingModels(); remaining != budget.Unbounded {
		if criteria.MaxModels == 0 || criteria.MaxModels > remaining {
			criteria.MaxModels = remaining
		}
	}

	d.feedback.Info(feedback.ModelTraining, fmt.Sprintf("AutoML: starting %s hyperparameter search", algo))

	task, err := d.backend.SearchModels(gridKey, algo, params, hyperParams, criteria)
	if err != nil {
		d.feedback.Warn(feedback.ModelTraining, fmt.Sprintf("%s failed to start: %v", gridKey, err))
		return nil
	}

	d.logger.With(log.LogParams{
		"algo":              algo.String(),
		"grid_key":          gridKey,
		"time_remaining_ms": d.budget.RemainingTimeMs(),
	}).Debug("Hyperparameter search")
	return task
}

func (d *Dispatcher) exceededLimits(algo types.Algo, desc string, jobType types.JobType, ignoreLimits bool) bool {
	fullName := algo.String()
	if desc != "" {
		fullName = fmt.Sprintf("%s (%s)", algo, desc)
	}

	if d.skip[algo] {
		d.feedback.Info(feedback.ModelTraining, fmt.Sprintf("AutoML: skipping algo %s in %s", fullName, jobType))
		return true
	}
	if !ignoreLimits && d.budget.IsExpired() {
		d.feedback.Info(feedback.ModelTraining, fmt.Sprintf("AutoML: out of time; skipping %s in %s", fullName, jobType))
		return true
	}
	if !ignoreLimits && d.budget.RemainingModels() <= 0 {
		d.feedback.Info(feedback.ModelTraining, fmt.Sprintf("AutoML: hit the max_models limit; skipping %s in %s", fullName, jobType))
		return true
	}
	return false
}

// stampCommonParams fills the parameters shared by every sub job of the run.
// Cross validation wiring and class balancing are only stamped on non
// ensemble algos: the ensemble metalearner carries its own fold settings.
func (d *Dispatcher) stampCommonParams(algo types.Algo, params *types.ModelParams) {
	params.Train = d.spec.Train
	params.Valid = d.spec.Valid
	params.ResponseColumn = d.spec.ResponseColumn
	params.IgnoredColumns = d.spec.IgnoredColumns

	if algo != types.StackedEnsemble {
		params.KeepCrossValidationPredictions = true

		params.FoldColumn = d.spec.FoldColumn
		params.WeightsColumn = d.spec.WeightsColumn

		if d.spec.FoldColumn == "" {
			params.NFolds = d.spec.NFolds
			if d.spec.NFolds > 1 {
				params.FoldAssignment = types.FoldAssignmentModulo
			}
		}
		if d.spec.BalanceClasses {
			params.BalanceClasses = true
			params.ClassSamplingFactors = d.spec.ClassSamplingFactors
			params.MaxAfterBalanceSize = d.spec.MaxAfterBalanceSize
		}
	}
}

// remainingSecs returns the budget time left in seconds, or -1 when the
// budget is unbounded
func (d *Dispatcher) remainingSecs() float64 {
	ms := d.budget.RemainingTimeMs()
	if ms == budget.Unbounded {
		return -1
	}
	return math.Round(float64(ms) / 1000.0)
}

// timebox limits the sub job's runtime to the remaining budget. After this,
// a MaxRuntimeSecs of 0 means unlimited.
func (d *Dispatcher) timebox(params *types.ModelParams, ignoreLimits bool) {
	if ignoreLimits {
		params.MaxRuntimeSecs = 0
		return
	}
	remaining := d.remainingSecs()
	if remaining < 0 {
		return
	}
	if params.MaxRuntimeSecs == 0 {
		params.MaxRuntimeSecs = remaining
	} else {
		params.MaxRuntimeSecs = math.Min(params.MaxRuntimeSecs, remaining)
	}
}

// inheritStopping overwrites stopping settings that were left at their
// defaults with the run's global criteria. An AUTO metric resolves from the
// leaderboard's ranking metric; ranking by AUC stops on logloss, since AUC
// itself can't be optimized stepwise.
func (d *Dispatcher) inheritStopping(params *types.ModelParams) {
	if params.StoppingMetric == types.MetricAuto || params.StoppingMetric == "" {
		params.StoppingMetric = d.stopping.StoppingMetric
	}
	if params.StoppingMetric == types.MetricAuto {
		switch d.sortMetric {
		case "", types.MetricAuto:
			// nothing to resolve from
		case types.MetricAUC:
			params.StoppingMetric = types.MetricLogloss
		default:
			params.StoppingMetric = d.sortMetric
		}
	}
	if params.StoppingRounds == 0 {
		params.StoppingRounds = d.stopping.StoppingRounds
	}
	if params.StoppingTolerance == 0 {
		params.StoppingTolerance = d.stopping.StoppingTolerance
	}
}

// deriveSeed gives each task launched with a fixed run seed its own seed, so
// that related tasks don't do the same row and column sampling
func (d *Dispatcher) deriveSeed(params *types.ModelParams) {
	if params.Seed == types.DefaultSeed && d.stopping.Seed != types.DefaultSeed {
		params.Seed = d.stopping.Seed + int64(d.tasksLaunched.Next())
	}
}
