package types

import "strings"

// Algo identifies one of the algorithms the orchestrator knows how to schedule.
// The set is closed; variants that alias another implementation are expressed
// through the implNames table rather than per-variant overrides.
type Algo string

const (
	GLM             Algo = "GLM"
	DRF             Algo = "DRF"
	GBM             Algo = "GBM"
	DeepLearning    Algo = "DeepLearning"
	StackedEnsemble Algo = "StackedEnsemble"
	XGBoost         Algo = "XGBoost"
	LightGBM        Algo = "LightGBM"
)

// implNames maps a variant to the name of the underlying implementation.
// LightGBM is emulated on top of the xgboost implementation.
var implNames = map[Algo]string{
	LightGBM: "xgboost",
}

func (a Algo) String() string {
	return string(a)
}

// ImplName returns the name of the backend implementation for the algo
func (a Algo) ImplName() string {
	if name, ok := implNames[a]; ok {
		return name
	}
	return strings.ToLower(string(a))
}

// Algos lists every known algo
func Algos() []Algo {
	return []Algo{GLM, DRF, GBM, DeepLearning, StackedEnsemble, XGBoost, LightGBM}
}

// ParseAlgo returns the Algo matching the given name, case insensitively
func ParseAlgo(name string) (Algo, bool) {
	for _, a := range Algos() {
		if strings.EqualFold(string(a), name) {
			return a, true
		}
	}
	return "", false
}

// JobType classifies a sub job as a single model build or a hyperparameter search
type JobType string

const (
	JobUnknown       JobType = "Unknown"
	ModelBuild       JobType = "ModelBuild"
	HyperparamSearch JobType = "HyperparamSearch"
)

func (t JobType) String() string {
	return string(t)
}
