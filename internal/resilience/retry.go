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
	"math"
	"math/rand"
	"time"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"` // Maximum number of attempts, including the first
	BaseDelay   time.Duration `yaml:"baseDelay"`   // Delay before the first retry
	MaxDelay    time.Duration `yaml:"maxDelay"`    // Upper bound for a single delay
	Multiplier  float64       `yaml:"multiplier"`  // Backoff multiplier
	Jitter      bool          `yaml:"jitter"`      // Whether to add up to 10% jitter
}

// DefaultRetryConfig returns default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    20 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// NoRetryConfig returns a configuration with a single attempt
func NoRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 1,
		Multiplier:  1.0,
	}
}

// IsRetryable determines if an error is retryable. Only CloudErrors flagged
// retryable (throttling, 5xx, connection failures) are retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return contracts.IsRetryable(err)
}

// RetryFunc represents a function that can be retried
type RetryFunc func(ctx context.Context, attempt int) error

// Retry executes a function with exponential backoff retry logic
func Retry(ctx context.Context, config *RetryConfig, fn RetryFunc) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(calculateDelay(config, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// calculateDelay calculates the delay before retry number attempt+1
func calculateDelay(config *RetryConfig, attempt int) time.Duration {
	multiplier := config.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(config.BaseDelay) * math.Pow(multiplier, float64(attempt))

	if config.MaxDelay > 0 && time.Duration(delay) > config.MaxDelay {
		delay = float64(config.MaxDelay)
	}

	if config.Jitter {
		delay += delay * 0.1 * rand.Float64()
	}

	return time.Duration(delay)
}

// Policy combines retry and circuit breaker protection for vendor calls
type Policy struct {
	retryConfig    *RetryConfig
	circuitBreaker *CircuitBreaker
}

// NewPolicy creates a new resilience policy; circuitBreaker may be nil
func NewPolicy(retryConfig *RetryConfig, circuitBreaker *CircuitBreaker) *Policy {
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	return &Policy{
		retryConfig:    retryConfig,
		circuitBreaker: circuitBreaker,
	}
}

// Execute runs fn under the policy. Each attempt passes through the
// circuit breaker so an open circuit fails fast.
func (p *Policy) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return Retry(ctx, p.retryConfig, func(ctx context.Context, attempt int) error {
		if p.circuitBreaker != nil {
			return p.circuitBreaker.Call(ctx, fn)
		}
		return fn(ctx)
	})
}

// GetCircuitBreaker returns the circuit breaker
func (p *Policy) GetCircuitBreaker() *CircuitBreaker {
	return p.circuitBreaker
}
