package types

import (
	"sync"

	"github.com/automl-framework/orchestrator/log"
)

// Service is any long running component of the orchestrator
type Service interface {
	Name() string
	Start()
	Running() bool
	Stop()
	QuitCh() <-chan struct{}
}

// BaseService provides the default implementation of the Service lifecycle
type BaseService struct {
	running bool
	o       *sync.Once
	lock    *sync.Mutex
	name    string
	quit    chan struct{}
	Logger  *log.Logger
}

// NewBaseService instantiates BaseService
func NewBaseService(name string, parentLogger *log.Logger) *BaseService {
	return &BaseService{
		running: false,
		lock:    new(sync.Mutex),
		name:    name,
		o:       new(sync.Once),
		quit:    make(chan struct{}),
		Logger:  parentLogger.With(log.LogParams{"service": name}),
	}
}

// StartRunning marks the service as running
func (b *BaseService) StartRunning() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.running = true
}

// StopRunning marks the service as stopped and closes the quit channel
func (b *BaseService) StopRunning() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.running = false
	b.o.Do(func() {
		close(b.quit)
	})
}

// Name of the service
func (b *BaseService) Name() string {
	return b.name
}

// Running status of the service
func (b *BaseService) Running() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.running
}

// QuitCh is closed when the service stops
func (b *BaseService) QuitCh() <-chan struct{} {
	return b.quit
}
