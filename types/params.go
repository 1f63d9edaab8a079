package types

// Metric names a model ranking or stopping metric. Whether lower or higher
// values are better is a property of the metric itself.
type Metric string

const (
	MetricAuto     Metric = "AUTO"
	MetricAUC      Metric = "auc"
	MetricLogloss  Metric = "logloss"
	MetricRMSE     Metric = "rmse"
	MetricMAE      Metric = "mae"
	MetricDeviance Metric = "mean_residual_deviance"
)

// LowerIsBetter returns true if smaller values of the metric rank higher
func (m Metric) LowerIsBetter() bool {
	return m != MetricAUC
}

const (
	// DefaultSeed is the sentinel for "seed not set", meaning random
	DefaultSeed int64 = -1
	// DefaultStoppingTolerance is the sentinel for "resolve the tolerance
	// adaptively from the training dataset"
	DefaultStoppingTolerance float64 = -1
)

// StoppingCriteria are the run wide limits and early stopping settings that
// individual sub jobs inherit when they don't set their own.
type StoppingCriteria struct {
	// Seed base random seed, DefaultSeed for random
	Seed int64 `json:"seed"`
	// MaxRuntimeSecs wall clock limit for the whole run, <= 0 for unbounded
	MaxRuntimeSecs float64 `json:"max_runtime_secs"`
	// MaxModels ceiling on the number of models built, 0 for unbounded
	MaxModels int `json:"max_models"`
	// StoppingMetric metric used for early stopping of sub jobs
	StoppingMetric Metric `json:"stopping_metric"`
	// StoppingRounds early stopping patience passed down to sub jobs
	StoppingRounds int `json:"stopping_rounds"`
	// StoppingTolerance early stopping tolerance, DefaultStoppingTolerance to adapt to the dataset
	StoppingTolerance float64 `json:"stopping_tolerance"`
}

// SearchCriteria bound one hyperparameter search. They are derived from the
// run's StoppingCriteria, clamped to the remaining budget at dispatch time.
type SearchCriteria struct {
	MaxRuntimeSecs    float64
	MaxModels         int
	Seed              int64
	StoppingMetric    Metric
	StoppingRounds    int
	StoppingTolerance float64
}

// FoldAssignmentModulo is the fold assignment scheme stamped on cross
// validated sub jobs when no fold column is given.
const FoldAssignmentModulo = "Modulo"

// ModelParams carries everything a sub job needs to train. Zero values of the
// stopping fields mean "left at the algorithm's default" and are overwritten
// with the run's global criteria at dispatch time; Seed starts at DefaultSeed
// for the same reason.
type ModelParams struct {
	Train          Dataset
	Valid          Dataset
	ResponseColumn string
	FoldColumn     string
	WeightsColumn  string
	IgnoredColumns []string

	Seed           int64
	NFolds         int
	FoldAssignment string

	BalanceClasses       bool
	ClassSamplingFactors []float64
	MaxAfterBalanceSize  float64

	KeepCrossValidationPredictions bool

	// MaxRuntimeSecs 0 means unset before dispatch and unlimited after
	MaxRuntimeSecs    float64
	StoppingMetric    Metric
	StoppingRounds    int
	StoppingTolerance float64

	// Settings specific to the algorithm, opaque to the orchestrator
	Settings map[string]interface{}

	// BaseModels keys of the base artifacts, only for StackedEnsemble
	BaseModels []string
	// MetalearnerFoldColumn fold column for the ensemble metalearner
	MetalearnerFoldColumn string
	// MetalearnerNFolds nfolds for the ensemble metalearner
	MetalearnerNFolds int
}

// NewModelParams returns params with the default sentinels set
func NewModelParams() *ModelParams {
	return &ModelParams{
		Seed:           DefaultSeed,
		StoppingMetric: MetricAuto,
		Settings:       make(map[string]interface{}),
	}
}

// Set records an algorithm specific setting and returns the params for chaining
func (p *ModelParams) Set(name string, value interface{}) *ModelParams {
	if p.Settings == nil {
		p.Settings = make(map[string]interface{})
	}
	p.Settings[name] = value
	return p
}
