package leaderboard

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/automl-framework/orchestrator/feedback"
	"github.com/automl-framework/orchestrator/types"
)

// Entry is one ranked artifact on the leaderboard
type Entry struct {
	Key    string     `json:"key"`
	Algo   types.Algo `json:"algo"`
	Family string     `json:"family"`
	Metric float64    `json:"metric"`
}

// Leaderboard is the deduplicating ranked collection of every artifact a run
// produced. It is the single authority on how many distinct results exist:
// keys already present are silently not re-counted on re-insertion. Callers
// that need to know how many genuinely new results were admitted read Count
// before and after an add and use the difference, since identical artifacts
// may be reported both by incremental harvesting and by final reconciliation.
type Leaderboard struct {
	mtx        sync.Mutex
	sortMetric types.Metric
	keys       map[string]bool
	entries    []Entry

	feedback *feedback.Log
}

// New returns an empty leaderboard ranked by the given metric
func New(sortMetric types.Metric, fb *feedback.Log) *Leaderboard {
	if sortMetric == types.MetricAuto || sortMetric == "" {
		sortMetric = types.MetricAUC
	}
	return &Leaderboard{
		sortMetric: sortMetric,
		keys:       make(map[string]bool),
		feedback:   fb,
	}
}

// SortMetric returns the metric the board ranks by
func (l *Leaderboard) SortMetric() types.Metric {
	return l.sortMetric
}

// AddOne merges a single artifact into the board
func (l *Leaderboard) AddOne(m types.ScoredModel) {
	l.AddMany([]types.ScoredModel{m})
}

// AddMany merges a batch of artifacts into the board, ignoring keys that are
// already present
func (l *Leaderboard) AddMany(models []types.ScoredModel) {
	l.mtx.Lock()

	var prevLeader string
	if len(l.entries) > 0 {
		prevLeader = l.entries[0].Key
	}

	added := false
	for _, m := range models {
		if l.keys[m.Key] {
			continue
		}
		l.keys[m.Key] = true
		l.entries = append(l.entries, Entry{
			Key:    m.Key,
			Algo:   m.Algo,
			Family: familyOf(m),
			Metric: l.metricValue(m),
		})
		added = true
	}
	if added {
		l.sortLocked()
	}

	var newLeader Entry
	leaderChanged := false
	if added && len(l.entries) > 0 && l.entries[0].Key != prevLeader {
		newLeader = l.entries[0]
		leaderChanged = true
	}
	l.mtx.Unlock()

	if leaderChanged && l.feedback != nil {
		l.feedback.Info(feedback.ModelTraining,
			fmt.Sprintf("New leader: %s, %s: %f", newLeader.Key, l.sortMetric, newLeader.Metric))
	}
}

func (l *Leaderboard) metricValue(m types.ScoredModel) float64 {
	if v, ok := m.Metrics[string(l.sortMetric)]; ok {
		return v
	}
	// rank artifacts without the metric last
	if l.sortMetric.LowerIsBetter() {
		return math.Inf(1)
	}
	return math.Inf(-1)
}

func (l *Leaderboard) sortLocked() {
	lower := l.sortMetric.LowerIsBetter()
	sort.SliceStable(l.entries, func(i, j int) bool {
		if lower {
			return l.entries[i].Metric < l.entries[j].Metric
		}
		return l.entries[i].Metric > l.entries[j].Metric
	})
}

// Count returns the number of distinct artifacts on the board
func (l *Leaderboard) Count() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.entries)
}

// Entries returns a copy of the board in rank order
func (l *Leaderboard) Entries() []Entry {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// Leader returns the top ranked entry
func (l *Leaderboard) Leader() (Entry, bool) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[0], true
}

// familyOf tags an artifact with its algorithm family. Extremely randomized
// trees are keyed with an XRT_ prefix and count as their own family even
// though they are built by the DRF implementation.
func familyOf(m types.ScoredModel) string {
	if strings.HasPrefix(m.Key, "XRT_") {
		return "XRT"
	}
	return m.Algo.String()
}
