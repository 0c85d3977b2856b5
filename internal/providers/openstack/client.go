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

// Package openstack implements the cloudbridge provider contracts for
// OpenStack clouds: Nova, Cinder, Glance, Neutron, Swift and Designate.
package openstack

import (
	"context"
	"errors"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
	"github.com/CloudVE/cloudbridge-sub001/internal/version"
)

// Clients bundles the per-service gophercloud clients of one region.
// ObjectStorage and DNS are nil when the catalog has no such endpoint.
type Clients struct {
	Provider      *gophercloud.ProviderClient
	Identity      *gophercloud.ServiceClient
	Compute       *gophercloud.ServiceClient
	Network       *gophercloud.ServiceClient
	BlockStorage  *gophercloud.ServiceClient
	Image         *gophercloud.ServiceClient
	ObjectStorage *gophercloud.ServiceClient
	DNS           *gophercloud.ServiceClient
}

func authOptions(cfg config.OpenStackConfig) gophercloud.AuthOptions {
	return gophercloud.AuthOptions{
		IdentityEndpoint: cfg.AuthURL,
		Username:         cfg.Username,
		Password:         cfg.Password,
		DomainName:       cfg.UserDomainName,
		AllowReauth:      true,
		Scope: &gophercloud.AuthScope{
			ProjectName: cfg.ProjectName,
			DomainName:  cfg.ProjectDomainName,
		},
	}
}

// NewClients authenticates against Keystone and resolves the service
// endpoints of the configured region from the token catalog
func NewClients(ctx context.Context, cfg config.OpenStackConfig) (*Clients, error) {
	if cfg.AuthURL == "" || cfg.Username == "" || cfg.Password == "" || cfg.ProjectName == "" {
		return nil, contracts.NewInvalidConfigurationError(
			"OS_AUTH_URL, OS_USERNAME, OS_PASSWORD and OS_PROJECT_NAME are required", nil)
	}
	log := logging.FromContext(ctx)

	pc, err := openstack.NewClient(cfg.AuthURL)
	if err != nil {
		return nil, contracts.NewInvalidConfigurationError("invalid OS_AUTH_URL", err)
	}
	pc.HTTPClient = *common.NewHTTPClient(log)
	pc.UserAgent.Prepend("cloudbridge/" + version.Version)
	if err := openstack.Authenticate(pc, authOptions(cfg)); err != nil {
		return nil, translateError(err)
	}

	clients, err := newServiceClients(pc, cfg.Region)
	if err != nil {
		return nil, err
	}
	if clients.ObjectStorage == nil {
		log.Info("object storage endpoint not in catalog", "region", cfg.Region)
	}
	if clients.DNS == nil {
		log.Info("dns endpoint not in catalog", "region", cfg.Region)
	}
	return clients, nil
}

// newServiceClients resolves every endpoint of a region from an
// authenticated provider client
func newServiceClients(pc *gophercloud.ProviderClient, region string) (*Clients, error) {
	eo := gophercloud.EndpointOpts{Region: region}
	c := &Clients{Provider: pc}

	var err error
	if c.Identity, err = openstack.NewIdentityV3(pc, gophercloud.EndpointOpts{}); err != nil {
		return nil, endpointError("identity", err)
	}
	if c.Compute, err = openstack.NewComputeV2(pc, eo); err != nil {
		return nil, endpointError("compute", err)
	}
	if c.Network, err = openstack.NewNetworkV2(pc, eo); err != nil {
		return nil, endpointError("network", err)
	}
	if c.BlockStorage, err = openstack.NewBlockStorageV3(pc, eo); err != nil {
		return nil, endpointError("volumev3", err)
	}
	if c.Image, err = openstack.NewImageServiceV2(pc, eo); err != nil {
		return nil, endpointError("image", err)
	}

	if c.ObjectStorage, err = openstack.NewObjectStorageV1(pc, eo); err != nil {
		if !isEndpointNotFound(err) {
			return nil, endpointError("object-store", err)
		}
		c.ObjectStorage = nil
	}
	if c.DNS, err = openstack.NewDNSV2(pc, eo); err != nil {
		if !isEndpointNotFound(err) {
			return nil, endpointError("dns", err)
		}
		c.DNS = nil
	}
	return c, nil
}

func isEndpointNotFound(err error) bool {
	var ptr *gophercloud.ErrEndpointNotFound
	var val gophercloud.ErrEndpointNotFound
	return errors.As(err, &ptr) || errors.As(err, &val)
}

func endpointError(serviceType string, err error) error {
	return contracts.NewInvalidConfigurationError("no usable "+serviceType+" endpoint in the service catalog", err)
}
