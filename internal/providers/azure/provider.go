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

package azure

import (
	"context"
	"slices"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// Provider implements contracts.Provider for Microsoft Azure
type Provider struct {
	caller        *common.Caller
	clients       *Clients
	subscription  string
	resourceGroup string
	region        string
	zone          string
	vmUser        string

	compute    *contracts.ComputeServices
	storage    *contracts.StorageServices
	networking *contracts.NetworkingServices
	security   *contracts.SecurityServices
	dns        *contracts.DNSServices
}

// New creates an Azure provider from configuration. It is the registry factory.
func New(ctx context.Context, cfg *config.Config) (contracts.Provider, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	clients, err := NewClients(ctx, cfg.Providers.Azure)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("Azure provider configured",
		"resourceGroup", cfg.Providers.Azure.ResourceGroup, "region", cfg.Providers.Azure.Region)
	return NewWithClients(cfg, clients), nil
}

// NewWithClients creates an Azure provider around existing clients
func NewWithClients(cfg *config.Config, clients *Clients) *Provider {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	az := cfg.Providers.Azure
	p := &Provider{
		caller:        common.NewCaller(contracts.ProviderAzure, cfg, translateError),
		clients:       clients,
		subscription:  az.SubscriptionID,
		resourceGroup: az.ResourceGroup,
		region:        az.Region,
		zone:          az.Zone,
		vmUser:        az.VMDefaultUserName,
	}
	if p.vmUser == "" {
		p.vmUser = defaultVMUser
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
func (p *Provider) Type() contracts.ProviderType { return contracts.ProviderAzure }

// Region implements contracts.Provider
func (p *Provider) Region() string { return p.region }

// Zone implements contracts.Provider
func (p *Provider) Zone() string { return p.zone }

// Authenticate reads the configured resource group and creates it in the
// default region when it does not exist yet
func (p *Provider) Authenticate(ctx context.Context) error {
	return p.caller.Do(ctx, contracts.ServiceCompute, "authenticate", p.resourceGroup, func(ctx context.Context) error {
		_, err := p.clients.ResourceGroups.Get(ctx, p.resourceGroup)
		if err == nil || !contracts.IsNotFound(translateError(err)) {
			return err
		}
		logging.FromContext(ctx).Info("Creating resource group", "resourceGroup", p.resourceGroup, "region", p.region)
		_, err = p.clients.ResourceGroups.CreateOrUpdate(ctx, p.resourceGroup, armresources.ResourceGroup{
			Location: to.Ptr(p.region),
		})
		return err
	})
}

// HasService implements contracts.Provider. Azure has no internet gateway
// resource, and buckets need a storage account.
func (p *Provider) HasService(service contracts.ServiceType) bool {
	switch service {
	case contracts.ServiceGateways:
		return false
	case contracts.ServiceBuckets:
		return p.clients.Blobs != nil
	}
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

// zoneOf picks the zone of a request, falling back to the default zone.
// Azure zones are numbers within a region; a zone equal to the region
// means no zone.
func (p *Provider) zoneOf(zone string) []*string {
	if zone == "" {
		zone = p.zone
	}
	if zone == "" || zone == p.region {
		return nil
	}
	return []*string{to.Ptr(zone)}
}
