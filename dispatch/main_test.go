package dispatch

import (
	"strings"
	"testing"
	"time"

	"github.com/automl-framework/orchestrator/budget"
	"github.com/automl-framework/orchestrator/feedback"
	"github.com/automl-framework/orchestrator/log"
	"github.com/automl-framework/orchestrator/naming"
	"github.com/automl-framework/orchestrator/types"
)

type stubTask struct{}

func (t *stubTask) IsRunning() bool          { return false }
func (t *stubTask) Progress() float64        { return 1 }
func (t *stubTask) Stop()                    {}
func (t *stubTask) Wait() types.TaskResult   { return types.TaskResult{Status: types.TaskCompleted} }
func (t *stubTask) ModelCount() int          { return 0 }
func (t *stubTask) Models() []types.ScoredModel { return nil }

type stubBackend struct {
	lastKey      string
	lastParams   *types.ModelParams
	lastCriteria types.SearchCriteria
	launches     int
}

func (b *stubBackend) Supports(algo types.Algo) bool { return true }

func (b *stubBackend) BuildModel(key string, algo types.Algo, params *types.ModelParams) (types.Task, error) {
	b.lastKey = key
	b.lastParams = params
	b.launches++
	return &stubTask{}, nil
}

func (b *stubBackend) SearchModels(gridKey string, algo types.Algo, params *types.ModelParams, hyperParams map[string][]interface{}, criteria types.SearchCriteria) (types.SearchTask, error) {
	b.lastKey = gridKey
	b.lastParams = params
	b.lastCriteria = criteria
	b.launches++
	return &stubTask{}, nil
}

type fixture struct {
	backend  *stubBackend
	budget   *budget.Controller
	feedback *feedback.Log
	d        *Dispatcher
}

func newFixture(spec *types.RunSpec, stopping types.StoppingCriteria, bdgt *budget.Controller, skip map[types.Algo]bool) *fixture {
	backend := &stubBackend{}
	fb := feedback.NewLog(log.DummyLogger())
	if skip == nil {
		skip = make(map[types.Algo]bool)
	}
	namer := naming.NewNamer(time.Date(2021, 6, 1, 12, 30, 45, 0, time.UTC))
	return &fixture{
		backend:  backend,
		budget:   bdgt,
		feedback: fb,
		d:        New(spec, backend, bdgt, namer, fb, stopping, types.MetricAUC, skip, log.DummyLogger()),
	}
}

func baseSpec() *types.RunSpec {
	return &types.RunSpec{
		Train:          &stubDataset{},
		ResponseColumn: "target",
		NFolds:         types.DefaultNFolds,
	}
}

type stubDataset struct{}

func (d *stubDataset) Key() string      { return "train" }
func (d *stubDataset) NumRows() int64   { return 1000 }
func (d *stubDataset) Checksum() uint64 { return 42 }

func hasEvent(fb *feedback.Log, substr string) bool {
	for _, e := range fb.Events() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestSkipExcludedAlgo(t *testing.T) {
	f := newFixture(baseSpec(), types.StoppingCriteria{Seed: types.DefaultSeed}, budget.New(0, 0), map[types.Algo]bool{types.GBM: true})
	task := f.d.TrainModel("", types.GBM, types.NewModelParams(), false)
	if task != nil {
		t.Errorf("excluded algo should not be dispatched")
	}
	if !hasEvent(f.feedback, "skipping algo GBM") {
		t.Errorf("expected a skip event, got %v", f.feedback.Events())
	}
}

func TestSkipWhenOutOfTime(t *testing.T) {
	bdgt := budget.New(time.Hour, 0)
	bdgt.ForceExpire()
	f := newFixture(baseSpec(), types.StoppingCriteria{Seed: types.DefaultSeed}, bdgt, nil)
	if task := f.d.TrainModel("", types.GBM, types.NewModelParams(), false); task != nil {
		t.Errorf("expired budget should skip the dispatch")
	}
	if !hasEvent(f.feedback, "out of time") {
		t.Errorf("expected an out-of-time event")
	}
}

func TestSkipWhenModelQuotaReached(t *testing.T) {
	bdgt := budget.New(0, 1)
	bdgt.AddModels(1)
	f := newFixture(baseSpec(), types.StoppingCriteria{Seed: types.DefaultSeed}, bdgt, nil)
	if task := f.d.TrainModel("", types.GBM, types.NewModelParams(), false); task != nil {
		t.Errorf("exhausted model quota should skip the dispatch")
	}
	if !hasEvent(f.feedback, "max_models") {
		t.Errorf("expected a max_models event")
	}
}

func TestIgnoreLimitsBypassesBudget(t *testing.T) {
	bdgt := budget.New(time.Hour, 1)
	bdgt.ForceExpire()
	bdgt.AddModels(1)
	f := newFixture(baseSpec(), types.StoppingCriteria{Seed: types.DefaultSeed}, bdgt, nil)
	task := f.d.TrainModel("", types.StackedEnsemble, types.NewModelParams(), true)
	if task == nil {
		t.Fatalf("ignoreLimits dispatch should proceed despite an exhausted budget")
	}
	if f.backend.lastParams.MaxRuntimeSecs != 0 {
		t.Errorf("ignoreLimits dispatch should not be time boxed, got %f", f.backend.lastParams.MaxRuntimeSecs)
	}
}

func TestAutoGeneratedKey(t *testing.T) {
	f := newFixture(baseSpec(), types.StoppingCriteria{Seed: types.DefaultSeed}, budget.New(0, 0), nil)
	f.d.TrainModel("", types.GBM, types.NewModelParams(), false)
	if f.backend.lastKey != "GBM_0_AutoML_20210601_123045" {
		t.Errorf("unexpected generated key: %s", f.backend.lastKey)
	}
}

func TestCommonParamsStamped(t *testing.T) {
	spec := baseSpec()
	spec.WeightsColumn = "w"
	f := newFixture(spec, types.StoppingCriteria{Seed: types.DefaultSeed}, budget.New(0, 0), nil)
	f.d.TrainModel("", types.GBM, types.NewModelParams(), false)

	p := f.backend.lastParams
	if !p.KeepCrossValidationPredictions {
		t.Errorf("non-ensemble builds should keep CV predictions")
	}
	if p.NFolds != types.DefaultNFolds {
		t.Errorf("expected nfolds %d, got %d", types.DefaultNFolds, p.NFolds)
	}
	if p.FoldAssignment != types.FoldAssignmentModulo {
		t.Errorf("expected Modulo fold assignment, got %s", p.FoldAssignment)
	}
	if p.WeightsColumn != "w" {
		t.Errorf("weights column not stamped")
	}
	if p.ResponseColumn != "target" {
		t.Errorf("response column not stamped")
	}
}

func TestEnsembleParamsNotCrossValidated(t *testing.T) {
	f := newFixture(baseSpec(), types.StoppingCriteria{Seed: types.DefaultSeed}, budget.New(0, 0), nil)
	f.d.TrainModel("se", types.StackedEnsemble, types.NewModelParams(), true)

	p := f.backend.lastParams
	if p.KeepCrossValidationPredictions {
		t.Errorf("ensembles should not keep CV predictions")
	}
	if p.NFolds != 0 || p.FoldAssignment != "" {
		t.Errorf("ensembles should not get fold settings stamped")
	}
}

func TestFoldColumnSuppressesNFolds(t *testing.T) {
	spec := baseSpec()
	spec.FoldColumn = "fold"
	f := newFixture(spec, types.StoppingCriteria{Seed: types.DefaultSeed}, budget.New(0, 0), nil)
	f.d.TrainModel("", types.GBM, types.NewModelParams(), false)

	p := f.backend.lastParams
	if p.FoldColumn != "fold" {
		t.Errorf("fold column not stamped")
	}
	if p.NFolds != 0 || p.FoldAssignment != "" {
		t.Errorf("explicit fold column should suppress nfolds stamping, got nfolds=%d assignment=%s", p.NFolds, p.FoldAssignment)
	}
}

func TestStoppingInheritance(t *testing.T) {
	stopping := types.StoppingCriteria{
		Seed:              types.DefaultSeed,
		StoppingMetric:    types.MetricAuto,
		StoppingRounds:    3,
		StoppingTolerance: 0.01,
	}
	f := newFixture(baseSpec(), stopping, budget.New(0, 0), nil)
	f.d.TrainModel("", types.GBM, types.NewModelParams(), false)

	p := f.backend.lastParams
	// ranking by AUC stops on logloss
	if p.StoppingMetric != types.MetricLogloss {
		t.Errorf("expected logloss stopping metric, got %s", p.StoppingMetric)
	}
	if p.StoppingRounds != 3 {
		t.Errorf("expected inherited stopping rounds 3, got %d", p.StoppingRounds)
	}
	if p.StoppingTolerance != 0.01 {
		t.Errorf("expected inherited tolerance 0.01, got %f", p.StoppingTolerance)
	}
}

func TestExplicitStoppingNotOverwritten(t *testing.T) {
	stopping := types.StoppingCriteria{
		Seed:              types.DefaultSeed,
		StoppingMetric:    types.MetricRMSE,
		StoppingRounds:    3,
		StoppingTolerance: 0.01,
	}
	f := newFixture(baseSpec(), stopping, budget.New(0, 0), nil)
	params := types.NewModelParams()
	params.StoppingMetric = types.MetricLogloss
	params.StoppingRounds = 5
	params.StoppingTolerance = 0.2
	f.d.TrainModel("", types.GBM, params, false)

	p := f.backend.lastParams
	if p.StoppingMetric != types.MetricLogloss || p.StoppingRounds != 5 || p.StoppingTolerance != 0.2 {
		t.Errorf("explicit stopping settings were overwritten: %+v", p)
	}
}

func TestSeedDerivation(t *testing.T) {
	f := newFixture(baseSpec(), types.StoppingCriteria{Seed: 42}, budget.New(0, 0), nil)
	f.d.TrainModel("", types.GBM, types.NewModelParams(), false)
	first := f.backend.lastParams.Seed
	f.d.TrainModel("", types.DRF, types.NewModelParams(), false)
	second := f.backend.lastParams.Seed

	if first != 42 {
		t.Errorf("first derived seed should be the run seed, got %d", first)
	}
	if second != 43 {
		t.Errorf("second derived seed should increment, got %d", second)
	}
}

func TestRandomSeedStaysRandom(t *testing.T) {
	f := newFixture(baseSpec(), types.StoppingCriteria{Seed: types.DefaultSeed}, budget.New(0, 0), nil)
	f.d.TrainModel("", types.GBM, types.NewModelParams(), false)
	if f.backend.lastParams.Seed != types.DefaultSeed {
		t.Errorf("seed should stay random when no run seed is set, got %d", f.backend.lastParams.Seed)
	}
}

func TestTimeboxClampsToRemainingBudget(t *testing.T) {
	f := newFixture(baseSpec(), types.StoppingCriteria{Seed: types.DefaultSeed}, budget.New(10*time.Second, 0), nil)
	f.d.TrainModel("", types.GBM, types.NewModelParams(), false)

	got := f.backend.lastParams.MaxRuntimeSecs
	if got < 8 || got > 10 {
		t.Errorf("expected runtime boxed to roughly 10s, got %f", got)
	}
}

func TestSearchCriteriaClampModels(t *testing.T) {
	bdgt := budget.New(0, 5)
	bdgt.AddModels(2)
	f := newFixture(baseSpec(), types.StoppingCriteria{Seed: types.DefaultSeed, MaxModels: 5}, bdgt, nil)
	task := f.d.HyperparameterSearch("", types.GBM, types.NewModelParams(), nil)
	if task == nil {
		t.Fatalf("search should have been dispatched")
	}
	if f.backend.lastCriteria.MaxModels != 3 {
		t.Errorf("search ceiling should clamp to the 3 remaining models, got %d", f.backend.lastCriteria.MaxModels)
	}
}

func TestSearchGridKeyGenerated(t *testing.T) {
	f := newFixture(baseSpec(), types.StoppingCriteria{Seed: types.DefaultSeed}, budget.New(0, 0), nil)
	f.d.HyperparameterSearch("", types.GLM, types.NewModelParams(), nil)
	if f.backend.lastKey != "GLM_grid_0_AutoML_20210601_123045" {
		t.Errorf("unexpected grid key: %s", f.backend.lastKey)
	}
}
