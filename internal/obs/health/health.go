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

package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// Status represents the health status of a component
type Status string

const (
	// StatusHealthy indicates the component is healthy
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is unhealthy
	StatusUnhealthy Status = "unhealthy"
	// StatusUnknown indicates the component status is unknown
	StatusUnknown Status = "unknown"
)

// Check represents a health check function
type Check func(ctx context.Context) error

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// HealthChecker runs named checks and caches their results for a TTL
type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]Check
	cache  map[string]*CheckResult
	ttl    time.Duration
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(ttl time.Duration) *HealthChecker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &HealthChecker{
		checks: make(map[string]Check),
		cache:  make(map[string]*CheckResult),
		ttl:    ttl,
	}
}

// RegisterCheck registers a health check
func (hc *HealthChecker) RegisterCheck(name string, check Check) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
	delete(hc.cache, name)
}

// RunCheck executes a specific health check
func (hc *HealthChecker) RunCheck(ctx context.Context, name string) *CheckResult {
	hc.mu.RLock()
	check, exists := hc.checks[name]
	if !exists {
		hc.mu.RUnlock()
		return &CheckResult{
			Name:      name,
			Status:    StatusUnknown,
			Message:   "check not found",
			Timestamp: time.Now(),
		}
	}
	if cached, ok := hc.cache[name]; ok && time.Since(cached.Timestamp) < hc.ttl {
		hc.mu.RUnlock()
		return cached
	}
	hc.mu.RUnlock()

	start := time.Now()
	err := check(ctx)
	result := &CheckResult{
		Name:      name,
		Status:    StatusHealthy,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}

	hc.mu.Lock()
	hc.cache[name] = result
	hc.mu.Unlock()

	return result
}

// RunAllChecks executes all registered health checks
func (hc *HealthChecker) RunAllChecks(ctx context.Context) map[string]*CheckResult {
	hc.mu.RLock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	hc.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]*CheckResult, len(names))
	for _, name := range names {
		results[name] = hc.RunCheck(ctx, name)
	}
	return results
}

// OverallStatus represents the overall health status
type OverallStatus struct {
	Status  Status                  `json:"status"`
	Checks  map[string]*CheckResult `json:"checks"`
	Summary map[Status]int          `json:"summary"`
}

// GetOverallStatus returns the overall health status
func (hc *HealthChecker) GetOverallStatus(ctx context.Context) *OverallStatus {
	results := hc.RunAllChecks(ctx)

	summary := map[Status]int{
		StatusHealthy:   0,
		StatusUnhealthy: 0,
		StatusUnknown:   0,
	}
	for _, result := range results {
		summary[result.Status]++
	}

	overall := StatusHealthy
	if summary[StatusUnhealthy] > 0 {
		overall = StatusUnhealthy
	} else if summary[StatusUnknown] > 0 {
		overall = StatusUnknown
	}

	return &OverallStatus{
		Status:  overall,
		Checks:  results,
		Summary: summary,
	}
}

// HTTPHandler returns an HTTP handler reporting every check as JSON
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		status := hc.GetOverallStatus(ctx)

		w.Header().Set("Content-Type", "application/json")
		if status.Status == StatusHealthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	}
}

// LivenessHandler returns a simple liveness probe handler
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Register mounts the health endpoints on a router
func (hc *HealthChecker) Register(router *mux.Router) {
	router.Handle("/livez", hc.LivenessHandler()).Methods(http.MethodGet)
	router.Handle("/healthz", hc.HTTPHandler()).Methods(http.MethodGet)
}

// ProviderCheck verifies that a provider still accepts its credentials
func ProviderCheck(provider contracts.Provider) Check {
	return func(ctx context.Context) error {
		if err := provider.Authenticate(ctx); err != nil {
			return fmt.Errorf("%s provider: %w", provider.Type(), err)
		}
		return nil
	}
}

// FunctionCheck creates a health check from a simple function
func FunctionCheck(fn func() error) Check {
	return func(ctx context.Context) error {
		return fn()
	}
}
