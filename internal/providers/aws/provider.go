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

package aws

import (
	"context"
	"slices"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// Provider implements contracts.Provider for Amazon Web Services
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

// New creates an AWS provider from configuration. It is the registry factory.
func New(ctx context.Context, cfg *config.Config) (contracts.Provider, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	clients, err := NewClients(cfg.Providers.AWS)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("AWS provider configured", "region", cfg.Providers.AWS.Region)
	return NewWithClients(cfg, clients), nil
}

// NewWithClients creates an AWS provider around existing clients
func NewWithClients(cfg *config.Config, clients *Clients) *Provider {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	p := &Provider{
		caller:  common.NewCaller(contracts.ProviderAWS, cfg, translateError),
		clients: clients,
		region:  cfg.Providers.AWS.Region,
		zone:    cfg.Providers.AWS.Zone,
	}
	if p.zone == "" {
		p.zone = p.region + "a"
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
func (p *Provider) Type() contracts.ProviderType { return contracts.ProviderAWS }

// Region implements contracts.Provider
func (p *Provider) Region() string { return p.region }

// Zone implements contracts.Provider
func (p *Provider) Zone() string { return p.zone }

// Authenticate verifies the credentials with a cheap EC2 call
func (p *Provider) Authenticate(ctx context.Context) error {
	return p.caller.Do(ctx, contracts.ServiceRegions, "authenticate", "", func(ctx context.Context) error {
		_, err := p.clients.EC2.DescribeRegionsWithContext(ctx, &ec2.DescribeRegionsInput{
			RegionNames: aws.StringSlice([]string{p.region}),
		})
		return err
	})
}

// HasService implements contracts.Provider; AWS offers every service
func (p *Provider) HasService(service contracts.ServiceType) bool {
	return slices.Contains(contracts.AllServices, service)
}

func (p *Provider) Compute() *contracts.ComputeServices       { return p.compute }
func (p *Provider) Storage() *contracts.StorageServices       { return p.storage }
func (p *Provider) Networking() *contracts.NetworkingServices { return p.networking }
func (p *Provider) Security() *contracts.SecurityServices     { return p.security }
func (p *Provider) DNS() *contracts.DNSServices               { return p.dns }

// do runs an EC2/S3/Route 53 call through the shared caller
func (p *Provider) do(ctx context.Context, service contracts.ServiceType, operation, id string, fn func(ctx context.Context) error) error {
	return p.caller.Do(ctx, service, operation, id, fn)
}
