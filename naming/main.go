package naming

import (
	"fmt"
	"sync"
	"time"
)

const (
	// KeyTimestampFormat is the second resolution timestamp embedded in every key
	KeyTimestampFormat = "20060102_150405"
	// FullTimestampFormat is the timestamp format used in feedback messages
	FullTimestampFormat = "2006.01.02 15:04:05.0"

	runScopeTag = "AutoML"
)

var (
	lastStartMtx sync.Mutex
	lastStart    time.Time
)

// RunStartTime returns the start time to use for a run. Keys embed the start
// second, so runs started within the same second would collide; a run's start
// time is perturbed forward past the latest issued start second, never just
// past the incoming time. Process wide.
func RunStartTime(now time.Time) time.Time {
	lastStartMtx.Lock()
	defer lastStartMtx.Unlock()
	if !lastStart.IsZero() && !now.Truncate(time.Second).After(lastStart.Truncate(time.Second)) {
		now = lastStart.Truncate(time.Second).Add(time.Second)
	}
	lastStart = now
	return now
}

// Namer generates collision free model and grid keys within one run. Model
// and grid instances are counted in independent namespaces; counters are
// never reset during a run.
type Namer struct {
	start time.Time

	mtx           sync.Mutex
	modelCounters map[string]int
	gridCounters  map[string]int
}

// NewNamer returns a namer scoped to the given run start time
func NewNamer(start time.Time) *Namer {
	return &Namer{
		start:         start,
		modelCounters: make(map[string]int),
		gridCounters:  make(map[string]int),
	}
}

func (n *Namer) nextInstance(name string, counters map[string]int) int {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	instance := 0
	if prev, ok := counters[name]; ok {
		instance = prev + 1
	}
	counters[name] = instance
	return instance
}

// ModelKey returns the next key for a model of the named algorithm
func (n *Namer) ModelKey(algoName string) string {
	instance := n.nextInstance(algoName, n.modelCounters)
	return fmt.Sprintf("%s_%d_%s_%s", algoName, instance, runScopeTag, n.start.Format(KeyTimestampFormat))
}

// GridKey returns the next key for a search grid of the named algorithm
func (n *Namer) GridKey(algoName string) string {
	instance := n.nextInstance(algoName, n.gridCounters)
	return fmt.Sprintf("%s_grid_%d_%s_%s", algoName, instance, runScopeTag, n.start.Format(KeyTimestampFormat))
}
