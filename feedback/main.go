package feedback

import (
	"sync"
	"time"

	"github.com/automl-framework/orchestrator/log"
)

// Stage tags a feedback event with the part of the workflow that produced it
type Stage string

const (
	Workflow        Stage = "Workflow"
	DataImport      Stage = "DataImport"
	FeatureAnalysis Stage = "FeatureAnalysis"
	ModelTraining   Stage = "ModelTraining"
)

// Level is the severity of a feedback event
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
)

// Event is one entry of the run's feedback log
type Event struct {
	Stage     Stage     `json:"stage"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Log is the append only, ordered feedback log of one run. The orchestrator
// only ever appends to it; it exists so an operator can reconstruct exactly
// what happened even though phase level errors are never raised upward.
type Log struct {
	mtx    sync.Mutex
	events []Event

	logger *log.Logger
}

// NewLog returns an empty feedback log that mirrors events to the given logger
func NewLog(logger *log.Logger) *Log {
	return &Log{
		logger: logger,
	}
}

func (l *Log) append(stage Stage, level Level, message string) {
	l.mtx.Lock()
	l.events = append(l.events, Event{
		Stage:     stage,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	})
	l.mtx.Unlock()

	entry := l.logger.With(log.LogParams{"stage": string(stage)})
	switch level {
	case LevelDebug:
		entry.Debug(message)
	case LevelWarn:
		entry.Warn(message)
	default:
		entry.Info(message)
	}
}

// Debug appends a debug event
func (l *Log) Debug(stage Stage, message string) {
	l.append(stage, LevelDebug, message)
}

// Info appends an info event
func (l *Log) Info(stage Stage, message string) {
	l.append(stage, LevelInfo, message)
}

// Warn appends a warning event
func (l *Log) Warn(stage Stage, message string) {
	l.append(stage, LevelWarn, message)
}

// Events returns a copy of the log in append order
func (l *Log) Events() []Event {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	events := make([]Event, len(l.events))
	copy(events, l.events)
	return events
}
