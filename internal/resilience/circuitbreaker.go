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

package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/CloudVE/cloudbridge-sub001/internal/obs/metrics"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// State represents the circuit breaker state
type State int

const (
	// StateClosed means the circuit breaker is closed (normal operation)
	StateClosed State = iota
	// StateHalfOpen means the circuit breaker is half-open (testing)
	StateHalfOpen
	// StateOpen means the circuit breaker is open (failing fast)
	StateOpen
)

// String returns string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker configuration
type Config struct {
	FailureThreshold int           `yaml:"failureThreshold"` // Consecutive failures that open the circuit
	ResetTimeout     time.Duration `yaml:"resetTimeout"`     // Time to wait before transitioning to half-open
	HalfOpenMaxCalls int           `yaml:"halfOpenMaxCalls"` // Successful probes needed to close again
}

// DefaultConfig returns default circuit breaker configuration
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 10,
		ResetTimeout:     60 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker fails fast once a vendor endpoint keeps failing
type CircuitBreaker struct {
	mu              sync.Mutex
	config          *Config
	state           State
	failures        int
	lastFailureTime time.Time
	halfOpenCalls   int
	metrics         *metrics.CircuitBreakerMetrics
	name            string
	now             func() time.Time
}

// NewCircuitBreaker creates a circuit breaker for one provider service
func NewCircuitBreaker(provider, service string, config *Config) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}

	cb := &CircuitBreaker{
		config:  config,
		state:   StateClosed,
		metrics: metrics.NewCircuitBreakerMetrics(provider, service),
		name:    provider + "/" + service,
		now:     time.Now,
	}
	cb.metrics.SetState(metrics.CircuitBreakerClosed)

	return cb
}

// Call executes fn with circuit breaker protection
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.allowCall() {
		return contracts.NewUnavailableError(fmt.Sprintf("circuit breaker %s is open", cb.name), nil)
	}

	err := fn(ctx)
	cb.recordResult(err)
	return err
}

func (cb *CircuitBreaker) allowCall() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) > cb.config.ResetTimeout {
			cb.transitionToHalfOpen()
			cb.halfOpenCalls++
			return true
		}
		return false
	case StateHalfOpen:
		if cb.halfOpenCalls < cb.config.HalfOpenMaxCalls {
			cb.halfOpenCalls++
			return true
		}
		return false
	default:
		return false
	}
}

// countsAsFailure reports whether err says something about vendor health.
// Caller mistakes (NotFound, InvalidValue, Duplicate) do not trip the circuit.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	switch contracts.TypeOf(err) {
	case contracts.ErrorTypeProviderConnection, contracts.ErrorTypeProviderInternal, contracts.ErrorTypeRetryable:
		return true
	case "":
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	default:
		return false
	}
}

func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if countsAsFailure(err) {
		cb.recordFailure()
	} else {
		cb.recordSuccess()
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.failures++
	cb.lastFailureTime = cb.now()
	cb.metrics.RecordFailure()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionToOpen()
		}
	case StateHalfOpen:
		cb.transitionToOpen()
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	switch cb.state {
	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.config.HalfOpenMaxCalls {
			cb.transitionToClosed()
		}
	case StateClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) transitionToClosed() {
	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenCalls = 0
	cb.metrics.SetState(metrics.CircuitBreakerClosed)
}

func (cb *CircuitBreaker) transitionToOpen() {
	cb.state = StateOpen
	cb.halfOpenCalls = 0
	cb.metrics.SetState(metrics.CircuitBreakerOpen)
}

func (cb *CircuitBreaker) transitionToHalfOpen() {
	cb.state = StateHalfOpen
	cb.halfOpenCalls = 0
	cb.metrics.SetState(metrics.CircuitBreakerHalfOpen)
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetFailures returns the current failure count
func (cb *CircuitBreaker) GetFailures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionToClosed()
}

// Registry hands out one circuit breaker per provider service
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	config   *Config
}

// NewRegistry creates a new circuit breaker registry
func NewRegistry(config *Config) *Registry {
	if config == nil {
		config = DefaultConfig()
	}
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		config:   config,
	}
}

// GetOrCreate gets an existing circuit breaker or creates a new one
func (r *Registry) GetOrCreate(provider, service string) *CircuitBreaker {
	key := provider + "/" + service

	r.mu.Lock()
	defer r.mu.Unlock()

	if breaker, exists := r.breakers[key]; exists {
		return breaker
	}
	breaker := NewCircuitBreaker(provider, service, r.config)
	r.breakers[key] = breaker
	return breaker
}

// List returns all circuit breakers keyed by provider/service
func (r *Registry) List() map[string]*CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make(map[string]*CircuitBreaker, len(r.breakers))
	for k, v := range r.breakers {
		result[k] = v
	}
	return result
}
