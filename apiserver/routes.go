package apiserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/automl-framework/orchestrator/driver"
	"github.com/automl-framework/orchestrator/log"
	"github.com/automl-framework/orchestrator/metrics"
	"github.com/automl-framework/orchestrator/types"
)

type runRequest struct {
	ProjectName     string   `json:"project_name"`
	TrainingFrame   string   `json:"training_frame"`
	ValidationFrame string   `json:"validation_frame"`
	ResponseColumn  string   `json:"response_column"`
	FoldColumn      string   `json:"fold_column"`
	WeightsColumn   string   `json:"weights_column"`
	IgnoredColumns  []string `json:"ignored_columns"`

	// NFolds defaults to 5 when absent; an explicit 0 disables cross validation
	NFolds *int `json:"nfolds"`

	BalanceClasses       bool      `json:"balance_classes"`
	ClassSamplingFactors []float64 `json:"class_sampling_factors"`
	MaxAfterBalanceSize  float64   `json:"max_after_balance_size"`

	KeepCrossValidationPredictions bool `json:"keep_cross_validation_predictions"`

	ExcludeAlgos []string `json:"exclude_algos"`
	SortMetric   string   `json:"sort_metric"`

	// Seed defaults to random when absent
	Seed              *int64   `json:"seed"`
	MaxRuntimeSecs    float64  `json:"max_runtime_secs"`
	MaxModels         int      `json:"max_models"`
	StoppingMetric    string   `json:"stopping_metric"`
	StoppingRounds    int      `json:"stopping_rounds"`
	StoppingTolerance *float64 `json:"stopping_tolerance"`
}

func (srv *APIServer) HandleRunPost(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}

	spec, err := srv.buildSpec(&req)
	if err != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	run, buildErr := driver.New(spec, srv.ctx.Backend, srv.ctx.Logger)
	if buildErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": buildErr.Error()})
		return
	}
	run.PollInterval = time.Duration(srv.ctx.Config.PollIntervalMs) * time.Millisecond

	run.Start()
	metrics.RunsStarted.Inc()
	id := srv.ctx.Runs.Add(run)

	srv.Logger.With(log.LogParams{
		"run_id":  id,
		"project": run.Project(),
	}).Info("Run started")

	c.JSON(http.StatusOK, gin.H{
		"run_id":  id,
		"project": run.Project(),
	})
}

func (srv *APIServer) buildSpec(req *runRequest) (*types.RunSpec, string) {
	spec := &types.RunSpec{
		ProjectName:    req.ProjectName,
		ResponseColumn: req.ResponseColumn,
		FoldColumn:     req.FoldColumn,
		WeightsColumn:  req.WeightsColumn,
		IgnoredColumns: req.IgnoredColumns,

		NFolds: types.DefaultNFolds,

		BalanceClasses:       req.BalanceClasses,
		ClassSamplingFactors: req.ClassSamplingFactors,
		MaxAfterBalanceSize:  req.MaxAfterBalanceSize,

		KeepCrossValidationPredictions: req.KeepCrossValidationPredictions,

		SortMetric: types.Metric(req.SortMetric),
		Stopping: types.StoppingCriteria{
			Seed:              types.DefaultSeed,
			MaxRuntimeSecs:    req.MaxRuntimeSecs,
			MaxModels:         req.MaxModels,
			StoppingMetric:    types.Metric(req.StoppingMetric),
			StoppingRounds:    req.StoppingRounds,
			StoppingTolerance: types.DefaultStoppingTolerance,
		},
	}
	if req.NFolds != nil {
		spec.NFolds = *req.NFolds
	}
	if req.Seed != nil {
		spec.Stopping.Seed = *req.Seed
	}
	if req.StoppingTolerance != nil {
		spec.Stopping.StoppingTolerance = *req.StoppingTolerance
	}
	if spec.Stopping.StoppingMetric == "" {
		spec.Stopping.StoppingMetric = types.MetricAuto
	}

	train, ok := srv.ctx.Datasets.Get(req.TrainingFrame)
	if !ok {
		return nil, "training frame does not exist"
	}
	spec.Train = train
	if req.ValidationFrame != "" {
		valid, ok := srv.ctx.Datasets.Get(req.ValidationFrame)
		if !ok {
			return nil, "validation frame does not exist"
		}
		spec.Valid = valid
	}

	for _, name := range req.ExcludeAlgos {
		algo, ok := types.ParseAlgo(name)
		if !ok {
			return nil, "unknown algo in exclude_algos: " + name
		}
		spec.ExcludeAlgos = append(spec.ExcludeAlgos, algo)
	}
	return spec, ""
}

func (srv *APIServer) handleRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"runs": srv.ctx.Runs.IDs(),
	})
}

func (srv *APIServer) lookupRun(c *gin.Context) (*driver.AutoML, bool) {
	id, ok := c.Params.Get("run")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing run param"})
		return nil, false
	}
	run, ok := srv.ctx.Runs.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run id does not exist"})
		return nil, false
	}
	return run, true
}

func (srv *APIServer) handleRunGet(c *gin.Context) {
	run, ok := srv.lookupRun(c)
	if !ok {
		return
	}
	resp := gin.H{
		"project":    run.Project(),
		"running":    run.Running(),
		"progress":   run.Progress(),
		"worked":     run.Worked(),
		"total_work": run.TotalWork(),
	}
	if leader, ok := run.Leaderboard().Leader(); ok {
		resp["leader"] = leader
	}
	c.JSON(http.StatusOK, resp)
}

func (srv *APIServer) HandleRunStop(c *gin.Context) {
	run, ok := srv.lookupRun(c)
	if !ok {
		return
	}
	run.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (srv *APIServer) handleLeaderboard(c *gin.Context) {
	run, ok := srv.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sort_metric": run.Leaderboard().SortMetric(),
		"entries":     run.Leaderboard().Entries(),
	})
}

func (srv *APIServer) handleFeedback(c *gin.Context) {
	run, ok := srv.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": run.Feedback().Events(),
	})
}
