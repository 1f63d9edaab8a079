package driver

import (
	"fmt"

	"github.com/automl-framework/orchestrator/feedback"
	"github.com/automl-framework/orchestrator/types"
)

// Each phase below checks its own allocation before doing anything: an algo
// removed from the plan at planning time contributes nothing to the progress
// denominator, so its phases must not credit work either. Algos that are still
// planned but get skipped at dispatch time (budget exhausted) come back as a
// nil handle and are credited in full by supervise.

func (a *AutoML) defaultRandomForest() {
	if !a.plan.Planned(types.DRF, types.ModelBuild) {
		return
	}
	params := types.NewModelParams()
	params.StoppingTolerance = a.stopping.StoppingTolerance

	task := a.dispatcher.TrainModel("", types.DRF, params, false)
	a.supervise(feedback.ModelTraining, "Default Random Forest build", a.cost(types.DRF, types.ModelBuild), task, types.ModelBuild, false)
}

func (a *AutoML) defaultExtremelyRandomTrees() {
	if !a.plan.Planned(types.DRF, types.ModelBuild) {
		return
	}
	params := types.NewModelParams()
	params.StoppingTolerance = a.stopping.StoppingTolerance
	params.Set("histogram_type", "Random")

	key := a.namer.ModelKey("XRT")
	task := a.dispatcher.TrainModel(key, types.DRF, params, false)
	a.supervise(feedback.ModelTraining, "Extremely Randomized Trees (XRT) Random Forest build", a.cost(types.DRF, types.ModelBuild), task, types.ModelBuild, false)
}

func (a *AutoML) defaultSearchGLM() {
	if !a.plan.Planned(types.GLM, types.HyperparamSearch) {
		return
	}
	params := types.NewModelParams()
	params.Set("lambda_search", true)

	hyperParams := map[string][]interface{}{
		"alpha": {0.0, 0.2, 0.4, 0.6, 0.8, 1.0},
	}

	task := a.dispatcher.HyperparameterSearch("", types.GLM, params, hyperParams)
	a.supervise(feedback.ModelTraining, "GLM hyperparameter search", a.cost(types.GLM, types.HyperparamSearch), task, types.HyperparamSearch, false)
}

func (a *AutoML) defaultGBMs() {
	if !a.plan.Planned(types.GBM, types.ModelBuild) {
		return
	}
	variants := []struct {
		maxDepth int
		minRows  float64
	}{
		{6, 1},
		{7, 10},
		{8, 10},
		{10, 10},
		{15, 100},
	}
	for i, v := range variants {
		params := types.NewModelParams()
		params.Set("score_tree_interval", 5).
			Set("ntrees", 10000).
			Set("sample_rate", 0.8).
			Set("col_sample_rate", 0.8).
			Set("col_sample_rate_per_tree", 0.8).
			Set("max_depth", v.maxDepth).
			Set("min_rows", v.minRows)

		task := a.dispatcher.TrainModel("", types.GBM, params, false)
		a.supervise(feedback.ModelTraining, fmt.Sprintf("GBM %d build", i+1), a.cost(types.GBM, types.ModelBuild), task, types.ModelBuild, false)
	}
}

func (a *AutoML) defaultDeepLearning() {
	if !a.plan.Planned(types.DeepLearning, types.ModelBuild) {
		return
	}
	params := types.NewModelParams()
	params.StoppingTolerance = a.stopping.StoppingTolerance
	params.Set("hidden", []int{10, 10, 10}).
		Set("epochs", 10000).
		Set("overwrite_with_best_model", false)

	task := a.dispatcher.TrainModel("", types.DeepLearning, params, false)
	a.supervise(feedback.ModelTraining, "Default Deep Learning build", a.cost(types.DeepLearning, types.ModelBuild), task, types.ModelBuild, false)
}

func (a *AutoML) defaultXGBoosts() {
	if !a.plan.Planned(types.XGBoost, types.ModelBuild) {
		return
	}
	variants := []struct {
		maxDepth   int
		minRows    float64
		sampleRate float64
	}{
		{5, 3, 0.8},
		{10, 5, 0.6},
		{20, 10, 0.6},
	}
	for i, v := range variants {
		params := types.NewModelParams()
		params.StoppingRounds = 5
		params.Set("score_tree_interval", 5).
			Set("ntrees", 10000).
			Set("learn_rate", 0.05).
			Set("max_depth", v.maxDepth).
			Set("min_rows", v.minRows).
			Set("sample_rate", v.sampleRate).
			Set("col_sample_rate", 0.8).
			Set("col_sample_rate_per_tree", 0.8)

		task := a.dispatcher.TrainModel("", types.XGBoost, params, false)
		a.supervise(feedback.ModelTraining, fmt.Sprintf("XGBoost %d build", i+1), a.cost(types.XGBoost, types.ModelBuild), task, types.ModelBuild, false)
	}
}

func (a *AutoML) defaultSearchGBM() {
	if !a.plan.Planned(types.GBM, types.HyperparamSearch) {
		return
	}
	params := types.NewModelParams()
	params.Set("score_tree_interval", 5).
		Set("ntrees", 10000)

	hyperParams := map[string][]interface{}{
		"max_depth":                {3, 4, 5, 6, 7, 8, 9, 10, 12, 15},
		"min_rows":                 {1, 5, 10, 15, 30, 100},
		"learn_rate":               {0.01, 0.05, 0.08, 0.1, 0.15, 0.2},
		"sample_rate":              {0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		"col_sample_rate":          {0.4, 0.7, 1.0},
		"col_sample_rate_per_tree": {0.4, 0.7, 1.0},
		"min_split_improvement":    {1e-4, 1e-5},
	}

	task := a.dispatcher.HyperparameterSearch("", types.GBM, params, hyperParams)
	a.supervise(feedback.ModelTraining, "GBM hyperparameter search", a.cost(types.GBM, types.HyperparamSearch), task, types.HyperparamSearch, false)
}

func (a *AutoML) defaultSearchXGBoost() {
	if !a.plan.Planned(types.XGBoost, types.HyperparamSearch) {
		return
	}
	params := types.NewModelParams()
	params.StoppingRounds = 5
	params.Set("score_tree_interval", 5).
		Set("ntrees", 10000)

	hyperParams := map[string][]interface{}{
		"max_depth":                {5, 10, 15, 20},
		"min_rows":                 {0.01, 0.1, 1.0, 3.0, 5.0, 10.0, 15.0, 20.0},
		"sample_rate":              {0.6, 0.8, 1.0},
		"col_sample_rate":          {0.6, 0.8, 1.0},
		"col_sample_rate_per_tree": {0.7, 0.8, 0.9, 1.0},
		"booster":                  {"gbtree", "dart"},
		"reg_lambda":               {0.001, 0.01, 0.1, 1.0, 10.0, 100.0},
		"reg_alpha":                {0.001, 0.01, 0.1, 0.5, 1.0},
	}

	task := a.dispatcher.HyperparameterSearch("", types.XGBoost, params, hyperParams)
	a.supervise(feedback.ModelTraining, "XGBoost hyperparameter search", a.cost(types.XGBoost, types.HyperparamSearch), task, types.HyperparamSearch, false)
}

// defaultSearchDL runs three progressively deeper searches that share one
// grid, so artifacts of all three accumulate under the same grid key
func (a *AutoML) defaultSearchDL() {
	if !a.plan.Planned(types.DeepLearning, types.HyperparamSearch) {
		return
	}
	gridKey := a.namer.GridKey(types.DeepLearning.String())

	variants := []map[string][]interface{}{
		{
			"hidden":  {[]int{50}, []int{200}, []int{500}},
			"epochs":  {10000},
			"rho":     {0.9, 0.95, 0.99},
			"epsilon": {1e-6, 1e-7, 1e-8, 1e-9},
		},
		{
			"hidden":  {[]int{50, 50}, []int{200, 200}, []int{500, 500}},
			"epochs":  {10000},
			"rho":     {0.9, 0.95, 0.99},
			"epsilon": {1e-6, 1e-7, 1e-8, 1e-9},
		},
		{
			"hidden":  {[]int{50, 50, 50}, []int{200, 200, 200}, []int{500, 500, 500}},
			"epochs":  {10000},
			"rho":     {0.9, 0.95, 0.99},
			"epsilon": {1e-6, 1e-7, 1e-8, 1e-9},
		},
	}
	for i, hyperParams := range variants {
		params := types.NewModelParams()
		params.StoppingTolerance = a.stopping.StoppingTolerance
		params.Set("overwrite_with_best_model", false)

		task := a.dispatcher.HyperparameterSearch(gridKey, types.DeepLearning, params, hyperParams)
		a.supervise(feedback.ModelTraining, fmt.Sprintf("DeepLearning hyperparameter search %d", i+1), a.cost(types.DeepLearning, types.HyperparamSearch), task, types.HyperparamSearch, false)
	}
}

// ensembleSelection builds the two closing ensembles: one over every base
// artifact and one over the best of each algorithm family. Ensembles ignore
// the model ceiling and the time budget since they are cheap relative to the
// base models and only useful if actually built; a requested stop still
// cancels them.
func (a *AutoML) ensembleSelection() {
	if !a.plan.Planned(types.StackedEnsemble, types.ModelBuild) {
		return
	}
	seCost := a.cost(types.StackedEnsemble, types.ModelBuild)

	var base []string
	seenFamily := make(map[string]bool)
	var bestOfFamily []string
	for _, e := range a.leaderboard.Entries() {
		if e.Algo == types.StackedEnsemble {
			continue
		}
		base = append(base, e.Key)
		if !seenFamily[e.Family] {
			seenFamily[e.Family] = true
			bestOfFamily = append(bestOfFamily, e.Key)
		}
	}

	switch {
	case len(base) == 0:
		a.feedback.Info(feedback.ModelTraining, "No models were built; StackedEnsemble builds skipped.")
		a.update(2*seCost, "SKIPPED: StackedEnsemble builds")
		return
	case len(base) == 1:
		a.feedback.Info(feedback.ModelTraining, "StackedEnsemble builds skipped since there is only one model built.")
		a.update(2*seCost, "SKIPPED: StackedEnsemble builds")
		return
	case a.spec.FoldColumn == "" && a.spec.NFolds == 0:
		a.feedback.Info(feedback.ModelTraining, "Cross-validation disabled by the user; StackedEnsemble builds skipped.")
		a.update(2*seCost, "SKIPPED: StackedEnsemble builds")
		return
	}

	task := a.stack("StackedEnsemble_AllModels", base)
	a.supervise(feedback.ModelTraining, "StackedEnsemble build using all AutoML models", seCost, task, types.ModelBuild, true)

	task = a.stack("StackedEnsemble_BestOfFamily", bestOfFamily)
	a.supervise(feedback.ModelTraining, "StackedEnsemble build using top model from each algorithm family", seCost, task, types.ModelBuild, true)
}

func (a *AutoML) stack(name string, baseModels []string) types.Task {
	params := types.NewModelParams()
	params.BaseModels = baseModels
	if a.spec.FoldColumn != "" {
		params.MetalearnerFoldColumn = a.spec.FoldColumn
	} else {
		params.MetalearnerNFolds = a.spec.NFolds
	}

	key := a.namer.ModelKey(name)
	return a.dispatcher.TrainModel(key, types.StackedEnsemble, params, true)
}
