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

package openstack

import (
	"context"
	"slices"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/identity/v3/tokens"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const defaultZone = "nova"

// Provider implements contracts.Provider for OpenStack
type Provider struct {
	caller  *common.Caller
	clients *Clients
	region  string
	zone    string

	compute    *contracts.ComputeServices
	storage    *contracts.StorageServices
	networking *contracts.NetworkingServices
	security   *contracts.SecurityServices
	dns        *contracts.DNSServices
}

// New creates an OpenStack provider from configuration. It is the registry factory.
func New(ctx context.Context, cfg *config.Config) (contracts.Provider, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	clients, err := NewClients(ctx, cfg.Providers.OpenStack)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("OpenStack provider configured",
		"authURL", cfg.Providers.OpenStack.AuthURL, "region", cfg.Providers.OpenStack.Region)
	return NewWithClients(cfg, clients), nil
}

// NewWithClients creates an OpenStack provider around existing clients
func NewWithClients(cfg *config.Config, clients *Clients) *Provider {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	p := &Provider{
		caller:  common.NewCaller(contracts.ProviderOpenStack, cfg, translateError),
		clients: clients,
		region:  cfg.Providers.OpenStack.Region,
		zone:    cfg.Providers.OpenStack.Zone,
	}
	if p.zone == "" {
		p.zone = defaultZone
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
func (p *Provider) Type() contracts.ProviderType { return contracts.ProviderOpenStack }

// Region implements contracts.Provider
func (p *Provider) Region() string { return p.region }

// Zone implements contracts.Provider
func (p *Provider) Zone() string { return p.zone }

// Authenticate validates the current Keystone token; an expired token is
// renewed by the provider client before the check fails
func (p *Provider) Authenticate(ctx context.Context) error {
	return p.caller.Do(ctx, contracts.ServiceRegions, "authenticate", "", func(ctx context.Context) error {
		_, err := tokens.Get(p.clients.Identity, p.clients.Provider.Token()).ExtractToken()
		return err
	})
}

// HasService implements contracts.Provider. Object storage and DNS depend
// on the endpoints published in the service catalog.
func (p *Provider) HasService(service contracts.ServiceType) bool {
	switch service {
	case contracts.ServiceBuckets:
		return p.clients.ObjectStorage != nil
	case contracts.ServiceDNS, contracts.ServiceDNSZones, contracts.ServiceDNSRecords:
		return p.clients.DNS != nil
	}
	return slices.Contains(contracts.AllServices, service)
}

func (p *Provider) Compute() *contracts.ComputeServices       { return p.compute }
func (p *Provider) Storage() *contracts.StorageServices       { return p.storage }
func (p *Provider) Networking() *contracts.NetworkingServices { return p.networking }
func (p *Provider) Security() *contracts.SecurityServices     { return p.security }
func (p *Provider) DNS() *contracts.DNSServices               { return p.dns }

// do runs a gophercloud call through the shared caller. gophercloud v1
// requests carry no context, so ctx only bounds the retry loop.
func (p *Provider) do(ctx context.Context, service contracts.ServiceType, operation, id string, fn func(ctx context.Context) error) error {
	return p.caller.Do(ctx, service, operation, id, fn)
}

// optional returns sc, or NotSupported when the catalog had no endpoint for service
func optional(sc *gophercloud.ServiceClient, service contracts.ServiceType) (*gophercloud.ServiceClient, error) {
	if sc == nil {
		return nil, contracts.NewNotSupportedError(string(service) + " is not available in this cloud")
	}
	return sc, nil
}
