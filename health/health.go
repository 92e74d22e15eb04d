// Package health tracks the health of platform components and aggregates a
// system-wide status for the readiness endpoint.
package health

import (
	"strings"
	"sync"
	"time"
)

// Status is the health state of one component or of the whole system.
type Status struct {
	Component string    `json:"component"`
	Healthy   bool      `json:"healthy"`
	Status    string    `json:"status"` // "healthy", "degraded", "unhealthy"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// IsHealthy reports whether the status is fully healthy.
func (s Status) IsHealthy() bool { return s.Status == "healthy" }

// IsDegraded reports reduced but working functionality.
func (s Status) IsDegraded() bool { return s.Status == "degraded" }

// IsUnhealthy reports a non-functioning component.
func (s Status) IsUnhealthy() bool { return s.Status == "unhealthy" }

// NewHealthy builds a healthy status.
func NewHealthy(component, message string) Status {
	return Status{Component: component, Healthy: true, Status: "healthy", Message: message, Timestamp: time.Now()}
}

// NewDegraded builds a degraded status.
func NewDegraded(component, message string) Status {
	return Status{Component: component, Status: "degraded", Message: message, Timestamp: time.Now()}
}

// NewUnhealthy builds an unhealthy status.
func NewUnhealthy(component, message string) Status {
	return Status{Component: component, Status: "unhealthy", Message: message, Timestamp: time.Now()}
}

// Recorder receives health transitions, typically backed by a metrics gauge.
type Recorder interface {
	RecordHealthStatus(service string, healthy bool)
}

// Monitor tracks component statuses. Safe for concurrent use.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	recorder Recorder
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithRecorder mirrors every status update into a recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Monitor) { m.recorder = r }
}

// NewMonitor creates an empty monitor.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{statuses: make(map[string]Status)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Update records a component's status, stamping the time if unset.
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.statuses[name] = status
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.RecordHealthStatus(name, status.IsHealthy())
	}
}

// UpdateHealthy marks a component healthy.
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateDegraded marks a component degraded.
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// UpdateUnhealthy marks a component unhealthy.
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// Get returns a component's status.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.statuses[name]
	return status, ok
}

// GetAll returns a copy of every tracked status.
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Status, len(m.statuses))
	for name, status := range m.statuses {
		out[name] = status
	}
	return out
}

// Aggregate folds all tracked components into one system status: any
// unhealthy component makes the system unhealthy, otherwise any degraded
// component makes it degraded.
func (m *Monitor) Aggregate(systemName string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.statuses) == 0 {
		return NewHealthy(systemName, "no components tracked")
	}

	var degraded, unhealthy []string
	for name, status := range m.statuses {
		switch {
		case status.IsUnhealthy():
			unhealthy = append(unhealthy, name)
		case status.IsDegraded():
			degraded = append(degraded, name)
		}
	}

	switch {
	case len(unhealthy) > 0:
		return NewUnhealthy(systemName, "unhealthy components: "+strings.Join(unhealthy, ", "))
	case len(degraded) > 0:
		return NewDegraded(systemName, "degraded components: "+strings.Join(degraded, ", "))
	default:
		return NewHealthy(systemName, "all components healthy")
	}
}
