package types

// TaskStatus is the terminal outcome of a sub job
type TaskStatus string

const (
	TaskCompleted TaskStatus = "Completed"
	TaskCancelled TaskStatus = "Cancelled"
	TaskFailed    TaskStatus = "Failed"
)

// ScoredModel is a reference to a trained artifact along with its metric values.
// The leaderboard uses Key as the identity of the artifact.
type ScoredModel struct {
	Key     string             `json:"key"`
	Algo    Algo               `json:"algo"`
	Metrics map[string]float64 `json:"metrics"`
}

// TaskResult is the terminal outcome of a sub job. Models holds the single
// artifact of a model build, or every artifact a search managed to complete.
type TaskResult struct {
	Status TaskStatus
	Err    error
	Models []ScoredModel
}

// Task is the handle to one in-flight sub job. Progress is expected to be
// monotonically non-decreasing while the task is running. Wait blocks until
// the task reaches a terminal state.
type Task interface {
	IsRunning() bool
	Progress() float64
	Stop()
	Wait() TaskResult
}

// SearchTask is the handle to an in-flight hyperparameter search. ModelCount
// and Models grow monotonically while the search is running so completed
// artifacts can be harvested before the search itself terminates.
type SearchTask interface {
	Task
	ModelCount() int
	Models() []ScoredModel
}

// Backend launches the actual training work. Implementations are expected to
// return quickly: supervision of the returned handle is the orchestrator's job.
type Backend interface {
	// Supports reports whether the backend can run the given algo
	Supports(algo Algo) bool
	// BuildModel starts training a single model
	BuildModel(key string, algo Algo, params *ModelParams) (Task, error)
	// SearchModels starts a hyperparameter search over the given space
	SearchModels(gridKey string, algo Algo, params *ModelParams, hyperParams map[string][]interface{}, criteria SearchCriteria) (SearchTask, error)
}

// Dataset is an opaque reference to training data owned by an external
// collaborator. Checksum is used to detect mutation of supposedly immutable
// data during a run.
type Dataset interface {
	Key() string
	NumRows() int64
	Checksum() uint64
}

// DatasetStore resolves dataset keys for the run control surface
type DatasetStore interface {
	Get(key string) (Dataset, bool)
}
