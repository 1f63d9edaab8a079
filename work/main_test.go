package work

import (
	"testing"

	"github.com/automl-framework/orchestrator/types"
)

func TestDefaultPlanTotalWork(t *testing.T) {
	plan := DefaultPlan()
	total, err := plan.TotalWork()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// DL 1x10+3x100, DRF 2x10, GBM 5x10+1x100, GLM 1x100, XGB 3x10+1x100, SE 2x10
	if total != 730 {
		t.Errorf("expected total work 730, got %d", total)
	}
}

func TestRemoveShrinksTotal(t *testing.T) {
	plan := DefaultPlan()
	plan.Remove(types.XGBoost)
	total, err := plan.TotalWork()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 600 {
		t.Errorf("expected total work 600 after removing XGBoost, got %d", total)
	}
	if plan.Planned(types.XGBoost, types.ModelBuild) {
		t.Errorf("XGBoost should not be planned after removal")
	}
	if !plan.Planned(types.GBM, types.ModelBuild) {
		t.Errorf("GBM should still be planned")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	plan := DefaultPlan()
	plan.Remove(types.GLM)
	first, _ := plan.TotalWork()
	plan.Remove(types.GLM)
	second, _ := plan.TotalWork()
	if first != second {
		t.Errorf("second removal changed total work: %d != %d", first, second)
	}
}

func TestRemoveNeverAllocated(t *testing.T) {
	plan := DefaultPlan()
	before, _ := plan.TotalWork()
	plan.Remove(types.LightGBM)
	after, _ := plan.TotalWork()
	if before != after {
		t.Errorf("removing an unallocated algo changed total work: %d != %d", before, after)
	}
}

func TestCostWithoutEstimate(t *testing.T) {
	plan := NewAllocations()
	plan.Allocate(types.GBM, 1, types.ModelBuild)
	if _, err := plan.Cost(types.GBM, types.ModelBuild); err != ErrNoEstimate {
		t.Errorf("expected ErrNoEstimate, got %v", err)
	}
	if _, err := plan.TotalWork(); err != ErrNoEstimate {
		t.Errorf("expected ErrNoEstimate from TotalWork, got %v", err)
	}
}

func TestEstimateLastWriteWins(t *testing.T) {
	plan := NewAllocations()
	plan.Estimate(types.GBM, 10, 100).Estimate(types.GBM, 20, 200)
	cost, err := plan.Cost(types.GBM, types.HyperparamSearch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cost != 200 {
		t.Errorf("expected cost 200, got %d", cost)
	}
}
