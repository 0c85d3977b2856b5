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

// Package common holds the plumbing shared by every provider: the vendor
// call wrapper, client-side Find and transfer progress reporting.
package common

import (
	"context"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/metrics"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/tracing"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
	"github.com/CloudVE/cloudbridge-sub001/internal/resilience"
)

// ErrorTranslator converts vendor SDK errors into CloudErrors
type ErrorTranslator func(err error) error

// Caller wraps every vendor call of a provider with logging, tracing,
// metrics, retries and a per-service circuit breaker
type Caller struct {
	provider  contracts.ProviderType
	retry     *resilience.RetryConfig
	breakers  *resilience.Registry
	metrics   *metrics.APICallMetrics
	translate ErrorTranslator
}

// NewCaller creates a Caller for a provider. cfg may be nil.
func NewCaller(provider contracts.ProviderType, cfg *config.Config, translate ErrorTranslator) *Caller {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	retry := cfg.Retry
	breaker := cfg.CircuitBreaker
	if translate == nil {
		translate = func(err error) error { return err }
	}
	return &Caller{
		provider:  provider,
		retry:     &retry,
		breakers:  resilience.NewRegistry(&breaker),
		metrics:   metrics.NewAPICallMetrics(string(provider)),
		translate: translate,
	}
}

// Provider returns the provider type the caller reports under
func (c *Caller) Provider() contracts.ProviderType {
	return c.provider
}

// Breakers returns the circuit breakers created so far
func (c *Caller) Breakers() *resilience.Registry {
	return c.breakers
}

// Do runs fn as the vendor call service.operation on resourceID.
// Errors returned by fn are translated before the retry policy sees them.
func (c *Caller) Do(ctx context.Context, service contracts.ServiceType, operation, resourceID string, fn func(ctx context.Context) error) error {
	ctx = logging.WithOperation(ctx, string(service), operation)
	if resourceID != "" {
		ctx = logging.WithResourceID(ctx, resourceID)
	}
	ctx, span := tracing.StartCallSpan(ctx, string(c.provider), string(service), operation, resourceID)
	defer span.End()

	log := logging.FromContext(ctx)
	timer := metrics.NewTimer()
	policy := resilience.NewPolicy(c.retry, c.breakers.GetOrCreate(string(c.provider), string(service)))

	err := policy.Execute(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return c.translate(err)
		}
		return nil
	})

	outcome := outcomeOf(err)
	c.metrics.RecordCall(string(service), operation, outcome, timer.Duration())
	span.SetAttributes(tracing.AttrOutcome.String(outcome))

	if err != nil {
		tracing.RecordError(ctx, err)
		if outcome == metrics.OutcomeNotFound {
			log.V(2).Info("Resource not found")
		} else {
			log.V(1).Info("Vendor call failed", "error", err.Error())
		}
		return err
	}
	log.V(2).Info("Vendor call succeeded", "duration", timer.Duration())
	return nil
}

// Call is Do for vendor calls that return a value
func Call[T any](ctx context.Context, c *Caller, service contracts.ServiceType, operation, resourceID string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := c.Do(ctx, service, operation, resourceID, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case contracts.IsNotFound(err):
		return metrics.OutcomeNotFound
	case contracts.TypeOf(err) == contracts.ErrorTypeWaitState:
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeError
	}
}
