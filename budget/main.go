package budget

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Unbounded is the sentinel returned by the remaining time and model queries
// when the corresponding limit was not set
const Unbounded = math.MaxInt64

// Controller tracks the deadline and the model count ceiling of one run.
// Remaining time and quota are recomputed on every call since time advances
// and models accumulate concurrently with polling.
type Controller struct {
	mtx      sync.Mutex
	deadline time.Time // zero value means unbounded

	maxModels int // 0 means unbounded
	models    int64
}

// New returns a controller with a deadline of now + maxRuntime. A maxRuntime
// of 0 or less means no deadline; a maxModels of 0 means no model ceiling.
func New(maxRuntime time.Duration, maxModels int) *Controller {
	c := &Controller{
		maxModels: maxModels,
	}
	if maxRuntime > 0 {
		c.deadline = time.Now().Add(maxRuntime)
	}
	return c
}

// RemainingTimeMs returns the milliseconds left until the deadline, clamped
// to 0, or Unbounded when no deadline was set
func (c *Controller) RemainingTimeMs() int64 {
	c.mtx.Lock()
	deadline := c.deadline
	c.mtx.Unlock()
	if deadline.IsZero() {
		return Unbounded
	}
	remaining := time.Until(deadline).Milliseconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingTime is RemainingTimeMs as a duration
func (c *Controller) RemainingTime() time.Duration {
	ms := c.RemainingTimeMs()
	if ms == Unbounded {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ms) * time.Millisecond
}

// RemainingModels returns how many more models may be admitted, clamped to 0,
// or Unbounded when no ceiling was set
func (c *Controller) RemainingModels() int {
	if c.maxModels == 0 {
		return Unbounded
	}
	remaining := c.maxModels - c.ModelCount()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpired returns true once the deadline has passed
func (c *Controller) IsExpired() bool {
	return c.RemainingTimeMs() == 0
}

// HasCapacity is the single predicate polled before launching new work
func (c *Controller) HasCapacity() bool {
	return c.RemainingTimeMs() > 0 && c.RemainingModels() > 0
}

// AddModels records n newly admitted models against the quota
func (c *Controller) AddModels(n int) {
	atomic.AddInt64(&c.models, int64(n))
}

// ModelCount returns the number of models admitted so far
func (c *Controller) ModelCount() int {
	return int(atomic.LoadInt64(&c.models))
}

// ForceExpire moves the deadline to now so that subsequent capacity checks
// fail. Used when the run is stopped externally.
func (c *Controller) ForceExpire() {
	c.mtx.Lock()
	c.deadline = time.Now()
	c.mtx.Unlock()
}
