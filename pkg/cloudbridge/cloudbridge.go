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

// Package cloudbridge is the public entry point of the library: it selects
// a provider by vendor type, builds it from configuration and hands back
// the uniform contracts.Provider interface.
//
//	cfg, _ := cloudbridge.LoadConfig("cloudbridge.yaml")
//	p, err := cloudbridge.NewProvider(ctx, cloudbridge.AWS, cfg)
//	if err != nil { ... }
//	page, err := p.Compute().Instances.List(ctx, paging.ListOptions{Limit: 20})
package cloudbridge

import (
	"context"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/aws"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/azure"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/gcp"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/mock"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/openstack"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/registry"
	"github.com/CloudVE/cloudbridge-sub001/internal/wait"
)

type (
	// Provider is the uniform interface over one cloud account and region
	Provider = contracts.Provider
	// ProviderType names a vendor
	ProviderType = contracts.ProviderType
	// Config holds library and provider settings
	Config = config.Config
	// CloudError is the error type returned by every provider
	CloudError = contracts.CloudError
)

const (
	AWS       = contracts.ProviderAWS
	Azure     = contracts.ProviderAzure
	GCP       = contracts.ProviderGCP
	OpenStack = contracts.ProviderOpenStack
	Mock      = contracts.ProviderMock
)

// DefaultProfile is the cache key used by NewProvider
const DefaultProfile = "default"

var builtin = NewRegistry()

// NewRegistry returns a registry with every built-in provider registered
func NewRegistry() *registry.Registry {
	r := registry.NewRegistry()
	r.Register(contracts.ProviderAWS, aws.New)
	r.Register(contracts.ProviderAzure, azure.New)
	r.Register(contracts.ProviderGCP, gcp.New)
	r.Register(contracts.ProviderOpenStack, openstack.New)
	r.Register(contracts.ProviderMock, mock.New)
	return r
}

// LoadConfig reads defaults, an optional YAML file and the environment
func LoadConfig(file string) (*Config, error) {
	return config.Load(file)
}

// NewProvider returns the provider for a vendor, creating it on first use.
// Later calls with the same type return the cached instance.
func NewProvider(ctx context.Context, providerType ProviderType, cfg *Config) (Provider, error) {
	return NewProfileProvider(ctx, providerType, DefaultProfile, cfg)
}

// NewProfileProvider is NewProvider with an explicit cache profile, for
// callers that talk to several accounts of one vendor
func NewProfileProvider(ctx context.Context, providerType ProviderType, profile string, cfg *Config) (Provider, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	Configure(cfg)
	return builtin.Get(ctx, providerType, profile, cfg)
}

// Configure applies the library-wide defaults of cfg
func Configure(cfg *Config) {
	wait.SetDefaults(cfg.Defaults.WaitTimeout, cfg.Defaults.WaitInterval)
}

// SupportedProviders lists the registered vendor types
func SupportedProviders() []ProviderType {
	return builtin.ListSupportedTypes()
}
