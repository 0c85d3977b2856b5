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

package gcp

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/gcpurl"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const defaultOperationInterval = 2 * time.Second

// Provider implements contracts.Provider for Google Cloud
type Provider struct {
	caller  *common.Caller
	clients *Clients
	project string
	region  string
	zone    string

	// compute operations are polled at opInterval until opTimeout
	opInterval time.Duration
	opTimeout  time.Duration

	compute    *contracts.ComputeServices
	storage    *contracts.StorageServices
	networking *contracts.NetworkingServices
	security   *contracts.SecurityServices
	dns        *contracts.DNSServices
}

// Option configures a Provider
type Option func(*Provider)

// WithOperationInterval changes how often pending operations are polled
func WithOperationInterval(d time.Duration) Option {
	return func(p *Provider) { p.opInterval = d }
}

// New creates a GCP provider from configuration. It is the registry factory.
func New(ctx context.Context, cfg *config.Config) (contracts.Provider, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	clients, err := NewClients(ctx, cfg.Providers.GCP)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("GCP provider configured",
		"project", cfg.Providers.GCP.Project, "zone", cfg.Providers.GCP.Zone)
	return NewWithClients(cfg, clients), nil
}

// NewWithClients creates a GCP provider around existing clients
func NewWithClients(cfg *config.Config, clients *Clients, opts ...Option) *Provider {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	gcp := cfg.Providers.GCP
	p := &Provider{
		caller:     common.NewCaller(contracts.ProviderGCP, cfg, translateError),
		clients:    clients,
		project:    gcp.Project,
		region:     gcp.Region,
		zone:       gcp.Zone,
		opInterval: defaultOperationInterval,
		opTimeout:  cfg.Defaults.WaitTimeout,
	}
	if p.region == "" && p.zone != "" {
		p.region = regionOfZone(p.zone)
	}
	for _, opt := range opts {
		opt(p)
	}

	p.compute = &contracts.ComputeServices{
		Instances: &instanceService{p},
		VMTypes:   &vmTypeService{p},
		Regions:   &regionService{p},
		Images:    &imageService{p},
	}
	p.storage = &contracts.StorageServices{
		Volumes:   &volumeService{p},
		Snapshots: &snapshotService{p},
		Buckets:   &bucketService{p, &objectService{p}},
	}
	p.networking = &contracts.NetworkingServices{
		Networks:    &networkService{p},
		Subnets:     &subnetService{p},
		Routers:     &routerService{p},
		Gateways:    &gatewayService{p},
		FloatingIPs: &floatingIPService{p},
	}
	p.security = &contracts.SecurityServices{
		KeyPairs:    &keyPairService{p},
		VMFirewalls: &vmFirewallService{p, &firewallRuleService{p}},
	}
	p.dns = &contracts.DNSServices{
		Zones:   &dnsZoneService{p},
		Records: &dnsRecordService{p},
	}
	return p
}

// Type implements contracts.Provider
func (p *Provider) Type() contracts.ProviderType { return contracts.ProviderGCP }

// Region implements contracts.Provider
func (p *Provider) Region() string { return p.region }

// Zone implements contracts.Provider
func (p *Provider) Zone() string { return p.zone }

// Authenticate reads the configured project
func (p *Provider) Authenticate(ctx context.Context) error {
	return p.caller.Do(ctx, contracts.ServiceCompute, "authenticate", p.project, func(ctx context.Context) error {
		_, err := p.clients.Compute.Projects.Get(p.project).Context(ctx).Do()
		return err
	})
}

// HasService implements contracts.Provider; every service is backed by a
// Google API
func (p *Provider) HasService(service contracts.ServiceType) bool {
	return slices.Contains(contracts.AllServices, service)
}

func (p *Provider) Compute() *contracts.ComputeServices       { return p.compute }
func (p *Provider) Storage() *contracts.StorageServices       { return p.storage }
func (p *Provider) Networking() *contracts.NetworkingServices { return p.networking }
func (p *Provider) Security() *contracts.SecurityServices     { return p.security }
func (p *Provider) DNS() *contracts.DNSServices               { return p.dns }

func (p *Provider) do(ctx context.Context, service contracts.ServiceType, operation, id string, fn func(ctx context.Context) error) error {
	return p.caller.Do(ctx, service, operation, id, fn)
}

func (p *Provider) defaults() gcpurl.Defaults {
	return gcpurl.Defaults{Project: p.project, Zone: p.zone, Region: p.region}
}

// ref resolves an ID, partial path or bare name of collection
func (p *Provider) ref(id, collection string) (*gcpurl.ResourceURL, error) {
	return gcpurl.ParseWithDefaults(id, collection, p.defaults())
}

// zoneOf picks the zone of a request, falling back to the default zone
func (p *Provider) zoneOf(zone string) string {
	if zone == "" {
		return p.zone
	}
	return lastSegment(zone)
}

// regionOfZone strips the zone letter: us-central1-a -> us-central1
func regionOfZone(zone string) string {
	zone = lastSegment(zone)
	if i := strings.LastIndex(zone, "-"); i > 0 {
		return zone[:i]
	}
	return zone
}

// lastSegment returns the final path segment of a URL or path
func lastSegment(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}
