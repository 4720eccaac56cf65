package metrics

import (
	"sync"
	"time"
)

// OutcomeMetric summarises successes and failures recorded for one
// operation, such as work-order confirmation or notification delivery
type OutcomeMetric struct {
	Total     int64   `json:"total"`
	Errors    int64   `json:"errors"`
	ErrorRate float64 `json:"error_rate"`
}

type outcome struct {
	total  int64
	errors int64
}

// Metrics collects the in-process readings served at /metrics and /health:
// domain counters (work orders created/confirmed/cancelled, notifications
// queued), gauges (low-stock rows, goroutines), operation outcomes and
// component health.
type Metrics struct {
	mu        sync.RWMutex
	counters  map[string]int64
	gauges    map[string]int64
	outcomes  map[string]*outcome
	health    map[string]bool
	startTime time.Time
}

// NewMetrics creates an empty collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:  make(map[string]int64),
		gauges:    make(map[string]int64),
		outcomes:  make(map[string]*outcome),
		health:    make(map[string]bool),
		startTime: time.Now(),
	}
}

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.mu.Lock()
	m.counters[name]++
	m.mu.Unlock()
}

// SetGauge sets a gauge to a point-in-time value
func (m *Metrics) SetGauge(name string, value int64) {
	m.mu.Lock()
	m.gauges[name] = value
	m.mu.Unlock()
}

// RecordSuccess records a successful run of an operation
func (m *Metrics) RecordSuccess(name string) {
	m.recordOutcome(name, false)
}

// RecordError records a failed run of an operation
func (m *Metrics) RecordError(name string) {
	m.recordOutcome(name, true)
}

func (m *Metrics) recordOutcome(name string, failed bool) {
	m.mu.Lock()
	o := m.outcomes[name]
	if o == nil {
		o = &outcome{}
		m.outcomes[name] = o
	}
	o.total++
	if failed {
		o.errors++
	}
	m.mu.Unlock()
}

// SetHealth records whether a component (database, cache, search, queue)
// is currently usable
func (m *Metrics) SetHealth(component string, healthy bool) {
	m.mu.Lock()
	m.health[component] = healthy
	m.mu.Unlock()
}

// Counters returns a copy of all counters
func (m *Metrics) Counters() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64, len(m.counters))
	for name, v := range m.counters {
		out[name] = v
	}
	return out
}

// Gauges returns a copy of all gauges
func (m *Metrics) Gauges() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64, len(m.gauges))
	for name, v := range m.gauges {
		out[name] = v
	}
	return out
}

// Outcomes returns success/failure summaries per operation
func (m *Metrics) Outcomes() map[string]OutcomeMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]OutcomeMetric, len(m.outcomes))
	for name, o := range m.outcomes {
		metric := OutcomeMetric{Total: o.total, Errors: o.errors}
		if o.total > 0 {
			metric.ErrorRate = float64(o.errors) / float64(o.total) * 100.0
		}
		out[name] = metric
	}
	return out
}

// HealthChecks returns the recorded component health states
func (m *Metrics) HealthChecks() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]bool, len(m.health))
	for name, healthy := range m.health {
		out[name] = healthy
	}
	return out
}

// UptimeSeconds returns seconds since the collector was created
func (m *Metrics) UptimeSeconds() int64 {
	return int64(time.Since(m.startTime).Seconds())
}
