// Copyright 2024 The bcxo Authors
// This file is part of the bcxo library.
//
// The bcxo library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The bcxo library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the bcxo library. If not, see <http://www.gnu.org/licenses/>.

// Package metrics provides named counters, meters, timers and labels kept in
// a registry. Metric values are backed by go-metrics.
package metrics

import (
	"sort"
	"sync"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

type (
	Counter = gometrics.Counter
	Meter   = gometrics.Meter
	Timer   = gometrics.Timer
)

// Registry holds metrics by name.
type Registry interface {
	// GetOrRegister returns the metric registered under name, or registers
	// the value built by ctor.
	GetOrRegister(name string, ctor func() interface{}) interface{}

	// Get returns the metric registered under name, or nil.
	Get(name string) interface{}

	// Each calls fn for every metric in name order.
	Each(fn func(name string, metric interface{}))

	// Unregister removes the metric registered under name.
	Unregister(name string)
}

// StandardRegistry is a mutex-protected map of metrics.
type StandardRegistry struct {
	metrics map[string]interface{}
	mutex   sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() Registry {
	return &StandardRegistry{metrics: make(map[string]interface{})}
}

// DefaultRegistry is used when a nil registry is passed.
var DefaultRegistry = NewRegistry()

func (r *StandardRegistry) GetOrRegister(name string, ctor func() interface{}) interface{} {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if m, ok := r.metrics[name]; ok {
		return m
	}
	m := ctor()
	r.metrics[name] = m
	return m
}

func (r *StandardRegistry) Get(name string) interface{} {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.metrics[name]
}

func (r *StandardRegistry) Each(fn func(string, interface{})) {
	r.mutex.Lock()
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	snapshot := make(map[string]interface{}, len(r.metrics))
	for k, v := range r.metrics {
		snapshot[k] = v
	}
	r.mutex.Unlock()

	sort.Strings(names)
	for _, name := range names {
		fn(name, snapshot[name])
	}
}

func (r *StandardRegistry) Unregister(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.metrics, name)
}

func getOrRegister[T any](name string, ctor func() T, r Registry) T {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, func() interface{} { return ctor() }).(T)
}

// NewRegisteredCounter constructs and registers a new Counter.
func NewRegisteredCounter(name string, r Registry) Counter {
	return getOrRegister(name, gometrics.NewCounter, r)
}

// NewRegisteredMeter constructs and registers a new Meter.
func NewRegisteredMeter(name string, r Registry) Meter {
	return getOrRegister(name, gometrics.NewMeter, r)
}

// NewRegisteredTimer constructs and registers a new Timer.
func NewRegisteredTimer(name string, r Registry) Timer {
	return getOrRegister(name, gometrics.NewTimer, r)
}

// Measure runs fn and records its duration in t.
func Measure(t Timer, fn func()) {
	start := time.Now()
	fn()
	t.UpdateSince(start)
}
