package types

import "errors"

var (
	// ErrNoTrainingData is returned when a run spec has no training dataset
	ErrNoTrainingData = errors.New("no training data has been specified")
	// ErrNoResponseColumn is returned when a run spec has no response column
	ErrNoResponseColumn = errors.New("no response column has been specified")
	// ErrFoldConflict is returned when both a fold column and a non default
	// nfolds value are specified
	ErrFoldConflict = errors.New("cannot specify fold_column and a non-default nfolds value at the same time")
)

// DefaultNFolds is the cross validation fold count used when the spec doesn't set one
const DefaultNFolds = 5

// RunSpec is everything needed to start a run
type RunSpec struct {
	// ProjectName groups runs that share a leaderboard
	ProjectName string `json:"project_name"`

	Train          Dataset  `json:"-"`
	Valid          Dataset  `json:"-"`
	ResponseColumn string   `json:"response_column"`
	FoldColumn     string   `json:"fold_column"`
	WeightsColumn  string   `json:"weights_column"`
	IgnoredColumns []string `json:"ignored_columns"`

	// NFolds cross validation fold count, 0 disables cross validation
	NFolds int `json:"nfolds"`

	BalanceClasses       bool      `json:"balance_classes"`
	ClassSamplingFactors []float64 `json:"class_sampling_factors"`
	MaxAfterBalanceSize  float64   `json:"max_after_balance_size"`

	KeepCrossValidationPredictions bool `json:"keep_cross_validation_predictions"`

	// ExcludeAlgos algorithms the run must not dispatch
	ExcludeAlgos []Algo `json:"exclude_algos"`
	// SortMetric metric the leaderboard ranks by, MetricAuto to pick a default
	SortMetric Metric `json:"sort_metric"`

	Stopping StoppingCriteria `json:"stopping_criteria"`
}

// Validate checks the spec for configuration errors. These fail the run
// before any phase starts.
func (s *RunSpec) Validate() error {
	if s.Train == nil {
		return ErrNoTrainingData
	}
	if s.ResponseColumn == "" {
		return ErrNoResponseColumn
	}
	if s.FoldColumn != "" && s.NFolds != DefaultNFolds {
		return ErrFoldConflict
	}
	return nil
}

// Excluded returns true if the algo is in the exclusion list
func (s *RunSpec) Excluded(algo Algo) bool {
	for _, a := range s.ExcludeAlgos {
		if a == algo {
			return true
		}
	}
	return false
}
