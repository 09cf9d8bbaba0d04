// Package telemetry records one event per pipeline stage and fans it
// out to the configured sinks. Emission is best-effort by contract: a
// failing sink logs and is skipped or disabled, it never fails a scan.
package telemetry

import (
	"sync"
	"time"
)

// Event is one pipeline stage outcome.
type Event struct {
	ExecutionID string    `json:"execution_id"`
	Stage       string    `json:"stage"`
	Summary     string    `json:"result_summary"`
	Timestamp   time.Time `json:"timestamp"`
}

// Sink receives events. Implementations must be safe for concurrent
// use and must not block the pipeline beyond their own bounded budget.
type Sink interface {
	Name() string
	Emit(ev Event)
}

// Emitter fans events out to its sinks.
type Emitter struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewEmitter creates an Emitter with the given sinks.
func NewEmitter(sinks ...Sink) *Emitter {
	return &Emitter{sinks: sinks}
}

// AddSink registers an additional sink.
func (e *Emitter) AddSink(s Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, s)
}

// Emit records ev at every sink. Timestamps are filled in when absent.
func (e *Emitter) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	e.mu.RLock()
	sinks := e.sinks
	e.mu.RUnlock()
	for _, s := range sinks {
		s.Emit(ev)
	}
}

// SinkNames lists the registered sinks, for startup logging.
func (e *Emitter) SinkNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, len(e.sinks))
	for i, s := range e.sinks {
		names[i] = s.Name()
	}
	return names
}
