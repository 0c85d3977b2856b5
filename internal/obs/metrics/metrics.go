/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Build information
	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cloudbridge_build_info",
			Help: "Build information for cloudbridge components",
		},
		[]string{"version", "git_sha", "go_version", "component"},
	)

	// Vendor API call metrics
	apiCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbridge_api_calls_total",
			Help: "Total number of vendor API calls by provider, service, operation and outcome",
		},
		[]string{"provider", "service", "operation", "outcome"},
	)

	apiCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloudbridge_api_call_duration_seconds",
			Help:    "Duration of vendor API calls by provider, service and operation",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
		},
		[]string{"provider", "service", "operation"},
	)

	// Wait metrics
	waitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloudbridge_wait_duration_seconds",
			Help:    "Time spent waiting for resources to reach a state",
			Buckets: prometheus.ExponentialBuckets(1, 2, 11), // 1s to ~17m
		},
		[]string{"resource", "outcome"},
	)

	// Inventory metrics
	inventoryResources = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cloudbridge_inventory_resources",
			Help: "Number of resources found by the last inventory walk",
		},
		[]string{"provider", "kind"},
	)

	inventoryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbridge_inventory_errors_total",
			Help: "Total number of failed inventory listings",
		},
		[]string{"provider", "kind"},
	)

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cloudbridge_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider", "service"},
	)

	circuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbridge_circuit_breaker_failures_total",
			Help: "Total number of failures recorded by circuit breakers",
		},
		[]string{"provider", "service"},
	)
)

// Outcomes for vendor calls and waits
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
	OutcomeTimeout  = "timeout"
)

// Components
const (
	ComponentCLI       = "cbctl"
	ComponentInventory = "inventory"
)

// Circuit breaker states
const (
	CircuitBreakerClosed   = 0
	CircuitBreakerHalfOpen = 1
	CircuitBreakerOpen     = 2
)

// SetupMetrics initializes metrics with build information
func SetupMetrics(version, gitSHA, component string) {
	buildInfo.WithLabelValues(version, gitSHA, runtime.Version(), component).Set(1)
}

// APICallMetrics records vendor API calls for one provider
type APICallMetrics struct {
	provider string
}

// NewAPICallMetrics creates metrics for a provider
func NewAPICallMetrics(provider string) *APICallMetrics {
	return &APICallMetrics{provider: provider}
}

// RecordCall records a vendor call with its outcome and duration
func (m *APICallMetrics) RecordCall(service, operation, outcome string, duration time.Duration) {
	apiCallsTotal.WithLabelValues(m.provider, service, operation, outcome).Inc()
	apiCallDuration.WithLabelValues(m.provider, service, operation).Observe(duration.Seconds())
}

// RecordWait records the time spent in a state wait
func RecordWait(resource, outcome string, duration time.Duration) {
	waitDuration.WithLabelValues(resource, outcome).Observe(duration.Seconds())
}

// SetInventoryCount sets the resource count of a kind
func SetInventoryCount(provider, kind string, count int) {
	inventoryResources.WithLabelValues(provider, kind).Set(float64(count))
}

// RecordInventoryError counts a failed inventory listing
func RecordInventoryError(provider, kind string) {
	inventoryErrors.WithLabelValues(provider, kind).Inc()
}

// CircuitBreakerMetrics provides metrics for circuit breakers
type CircuitBreakerMetrics struct {
	provider string
	service  string
}

// NewCircuitBreakerMetrics creates metrics for circuit breakers
func NewCircuitBreakerMetrics(provider, service string) *CircuitBreakerMetrics {
	return &CircuitBreakerMetrics{
		provider: provider,
		service:  service,
	}
}

// SetState sets the circuit breaker state
func (m *CircuitBreakerMetrics) SetState(state int) {
	circuitBreakerState.WithLabelValues(m.provider, m.service).Set(float64(state))
}

// RecordFailure records a circuit breaker failure
func (m *CircuitBreakerMetrics) RecordFailure() {
	circuitBreakerFailures.WithLabelValues(m.provider, m.service).Inc()
}

// Timer is a helper for measuring operation duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// CallTimer measures a single vendor call
type CallTimer struct {
	metrics   *APICallMetrics
	service   string
	operation string
	timer     *Timer
}

// NewCallTimer starts timing a vendor call
func NewCallTimer(provider, service, operation string) *CallTimer {
	return &CallTimer{
		metrics:   NewAPICallMetrics(provider),
		service:   service,
		operation: operation,
		timer:     NewTimer(),
	}
}

// Finish records the call with the given outcome
func (ct *CallTimer) Finish(outcome string) {
	ct.metrics.RecordCall(ct.service, ct.operation, outcome, ct.timer.Duration())
}

// GetRegistry returns the Prometheus gatherer the metrics are registered with
func GetRegistry() prometheus.Gatherer {
	return prometheus.DefaultGatherer
}
