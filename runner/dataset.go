package runner

import (
	"encoding/binary"
	"hash/fnv"
	"sync"

	"github.com/automl-framework/orchestrator/types"
)

// Dataset is an in-memory stand-in for a training frame. It carries just the
// properties the orchestrator reads: a key, a row count and a checksum.
type Dataset struct {
	key  string
	rows int64

	mtx      sync.Mutex
	checksum uint64
}

// NewDataset returns a dataset with a checksum derived from its identity
func NewDataset(key string, rows int64) *Dataset {
	h := fnv.New64a()
	h.Write([]byte(key))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(rows))
	h.Write(buf[:])
	return &Dataset{
		key:      key,
		rows:     rows,
		checksum: h.Sum64(),
	}
}

// Key returns the dataset's key
func (d *Dataset) Key() string {
	return d.key
}

// NumRows returns the dataset's row count
func (d *Dataset) NumRows() int64 {
	return d.rows
}

// Checksum returns the dataset's current checksum
func (d *Dataset) Checksum() uint64 {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.checksum
}

// Touch perturbs the checksum, simulating a mutation of the data
func (d *Dataset) Touch() {
	d.mtx.Lock()
	d.checksum++
	d.mtx.Unlock()
}

// DatasetRegistry is a keyed collection of datasets
type DatasetRegistry struct {
	mtx      sync.Mutex
	datasets map[string]*Dataset
}

// NewDatasetRegistry returns an empty registry
func NewDatasetRegistry() *DatasetRegistry {
	return &DatasetRegistry{
		datasets: make(map[string]*Dataset),
	}
}

// Put registers a dataset under its key, replacing any previous one
func (r *DatasetRegistry) Put(d *Dataset) {
	r.mtx.Lock()
	r.datasets[d.Key()] = d
	r.mtx.Unlock()
}

// Get looks a dataset up by key
func (r *DatasetRegistry) Get(key string) (types.Dataset, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	d, ok := r.datasets[key]
	return d, ok
}
