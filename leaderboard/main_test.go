package leaderboard

import (
	"strings"
	"testing"

	"github.com/automl-framework/orchestrator/feedback"
	"github.com/automl-framework/orchestrator/log"
	"github.com/automl-framework/orchestrator/types"
)

func scored(key string, algo types.Algo, auc float64) types.ScoredModel {
	return types.ScoredModel{
		Key:  key,
		Algo: algo,
		Metrics: map[string]float64{
			string(types.MetricAUC):     auc,
			string(types.MetricLogloss): 1 - auc,
		},
	}
}

func TestRankingHigherIsBetter(t *testing.T) {
	l := New(types.MetricAUC, feedback.NewLog(log.DummyLogger()))
	l.AddOne(scored("a", types.GBM, 0.7))
	l.AddOne(scored("b", types.DRF, 0.9))
	l.AddOne(scored("c", types.GLM, 0.8))

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Key != "b" || entries[1].Key != "c" || entries[2].Key != "a" {
		t.Errorf("unexpected ranking: %v", entries)
	}
}

func TestRankingLowerIsBetter(t *testing.T) {
	l := New(types.MetricLogloss, feedback.NewLog(log.DummyLogger()))
	l.AddOne(scored("a", types.GBM, 0.7))
	l.AddOne(scored("b", types.DRF, 0.9))

	leader, ok := l.Leader()
	if !ok {
		t.Fatalf("expected a leader")
	}
	if leader.Key != "b" {
		t.Errorf("logloss 0.1 should lead, got %s", leader.Key)
	}
}

func TestDuplicateKeysNotRecounted(t *testing.T) {
	l := New(types.MetricAUC, feedback.NewLog(log.DummyLogger()))
	l.AddOne(scored("a", types.GBM, 0.7))

	before := l.Count()
	l.AddMany([]types.ScoredModel{
		scored("a", types.GBM, 0.7),
		scored("b", types.DRF, 0.6),
	})
	delta := l.Count() - before
	if delta != 1 {
		t.Errorf("expected delta of 1 genuinely new model, got %d", delta)
	}
}

func TestMissingMetricRanksLast(t *testing.T) {
	l := New(types.MetricAUC, feedback.NewLog(log.DummyLogger()))
	l.AddOne(types.ScoredModel{Key: "unscored", Algo: types.GBM, Metrics: map[string]float64{}})
	l.AddOne(scored("scored", types.DRF, 0.51))

	entries := l.Entries()
	if entries[len(entries)-1].Key != "unscored" {
		t.Errorf("artifact without the sort metric should rank last: %v", entries)
	}
}

func TestAutoSortMetricDefaultsToAUC(t *testing.T) {
	l := New(types.MetricAuto, feedback.NewLog(log.DummyLogger()))
	if l.SortMetric() != types.MetricAUC {
		t.Errorf("expected auc, got %s", l.SortMetric())
	}
}

func TestXRTFamily(t *testing.T) {
	l := New(types.MetricAUC, feedback.NewLog(log.DummyLogger()))
	l.AddOne(scored("XRT_0_AutoML_20210601_123045", types.DRF, 0.8))
	l.AddOne(scored("DRF_0_AutoML_20210601_123045", types.DRF, 0.7))

	entries := l.Entries()
	if entries[0].Family != "XRT" {
		t.Errorf("expected XRT family, got %s", entries[0].Family)
	}
	if entries[1].Family != "DRF" {
		t.Errorf("expected DRF family, got %s", entries[1].Family)
	}
}

func TestNewLeaderFeedback(t *testing.T) {
	fb := feedback.NewLog(log.DummyLogger())
	l := New(types.MetricAUC, fb)
	l.AddOne(scored("a", types.GBM, 0.7))
	l.AddOne(scored("b", types.DRF, 0.9))
	l.AddOne(scored("c", types.GLM, 0.8))

	leaderEvents := 0
	for _, e := range fb.Events() {
		if strings.HasPrefix(e.Message, "New leader:") {
			leaderEvents++
		}
	}
	// a takes the lead, then b; c never leads
	if leaderEvents != 2 {
		t.Errorf("expected 2 leader changes, got %d", leaderEvents)
	}
}
