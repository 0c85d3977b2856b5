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

package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// ProviderFactory creates a new provider instance from configuration
type ProviderFactory func(ctx context.Context, cfg *config.Config) (contracts.Provider, error)

// Registry manages provider factories and instances
type Registry struct {
	mu        sync.RWMutex
	factories map[contracts.ProviderType]ProviderFactory
	instances map[string]contracts.Provider
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[contracts.ProviderType]ProviderFactory),
		instances: make(map[string]contracts.Provider),
	}
}

// Register registers a provider factory for a given type
func (r *Registry) Register(providerType contracts.ProviderType, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[providerType] = factory
}

func cacheKey(providerType contracts.ProviderType, profile string) string {
	return fmt.Sprintf("%s:%s", providerType, profile)
}

// Get returns the provider for a type and configuration profile, creating
// it on first use. The same profile always yields the same instance.
func (r *Registry) Get(ctx context.Context, providerType contracts.ProviderType, profile string, cfg *config.Config) (contracts.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey(providerType, profile)
	if instance, ok := r.instances[key]; ok {
		return instance, nil
	}

	factory, ok := r.factories[providerType]
	if !ok {
		return nil, contracts.NewInvalidConfigurationError(
			fmt.Sprintf("no factory registered for provider type: %s", providerType), nil)
	}

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	instance, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}

	r.instances[key] = instance
	return instance, nil
}

// Invalidate removes a provider instance from the cache
func (r *Registry) Invalidate(providerType contracts.ProviderType, profile string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, cacheKey(providerType, profile))
}

// ListSupportedTypes returns the registered provider types in sorted order
func (r *Registry) ListSupportedTypes() []contracts.ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]contracts.ProviderType, 0, len(r.factories))
	for providerType := range r.factories {
		types = append(types, providerType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// IsSupported returns true if the provider type is supported
func (r *Registry) IsSupported(providerType contracts.ProviderType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[providerType]
	return ok
}
