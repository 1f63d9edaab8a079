package context

import (
	"sync"

	"github.com/google/uuid"

	"github.com/automl-framework/orchestrator/config"
	"github.com/automl-framework/orchestrator/driver"
	"github.com/automl-framework/orchestrator/log"
	"github.com/automl-framework/orchestrator/types"
)

// RootContext stores the context of the orchestrator: config, the backend
// runs are dispatched to, the dataset catalog and the live runs
type RootContext struct {
	// Config of the orchestrator
	Config *config.Config
	// Backend that trains models
	Backend types.Backend
	// Datasets available for training
	Datasets types.DatasetStore
	// Runs live and completed runs
	Runs *RunStore
	// Logger for logging purposes
	Logger *log.Logger
}

// NewRootContext creates an instance of the RootContext from the configuration
func NewRootContext(cfg *config.Config, backend types.Backend, datasets types.DatasetStore, logger *log.Logger) *RootContext {
	return &RootContext{
		Config:   cfg,
		Backend:  backend,
		Datasets: datasets,
		Runs:     NewRunStore(),
		Logger:   logger,
	}
}

// Stop stops every live run and blocks until they have quiesced
func (c *RootContext) Stop() {
	c.Runs.StopAll()
}

// RunStore holds every run of this process keyed by an opaque id
type RunStore struct {
	mtx  sync.Mutex
	runs map[string]*driver.AutoML
}

// NewRunStore returns an empty store
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*driver.AutoML),
	}
}

// Add registers a run and returns its id
func (s *RunStore) Add(run *driver.AutoML) string {
	id := uuid.NewString()
	s.mtx.Lock()
	s.runs[id] = run
	s.mtx.Unlock()
	return id
}

// Get looks a run up by id
func (s *RunStore) Get(id string) (*driver.AutoML, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	run, ok := s.runs[id]
	return run, ok
}

// IDs returns the ids of every stored run
func (s *RunStore) IDs() []string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	return ids
}

// StopAll stops every run that is still in progress
func (s *RunStore) StopAll() {
	s.mtx.Lock()
	runs := make([]*driver.AutoML, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	s.mtx.Unlock()
	for _, run := range runs {
		if run.Running() {
			run.Stop()
		}
	}
}
