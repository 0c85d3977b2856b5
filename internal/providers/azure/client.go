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

// Package azure implements the cloudbridge provider contracts on the Azure
// Resource Manager SDK: compute, managed disks, virtual networks, DNS and
// Blob storage, all scoped to one resource group.
package azure

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dns/armdns"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// Collection is the surface shared by the ARM resource collections of one
// resource group. CreateOrUpdate and Delete wait for the long-running
// operation to finish.
type Collection[T any] interface {
	Get(ctx context.Context, name string) (*T, error)
	List(ctx context.Context) ([]*T, error)
	CreateOrUpdate(ctx context.Context, name string, resource T) (*T, error)
	Delete(ctx context.Context, name string) error
}

// ChildCollection is a Collection nested in a parent resource, such as the
// subnets of a virtual network
type ChildCollection[T any] interface {
	Get(ctx context.Context, parent, name string) (*T, error)
	List(ctx context.Context, parent string) ([]*T, error)
	CreateOrUpdate(ctx context.Context, parent, name string, resource T) (*T, error)
	Delete(ctx context.Context, parent, name string) error
}

// VirtualMachinesAPI adds power operations to the VM collection. Get and
// List include the instance view.
type VirtualMachinesAPI interface {
	Collection[armcompute.VirtualMachine]
	Start(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Deallocate(ctx context.Context, name string) error
	Generalize(ctx context.Context, name string) error
}

// RecordSetsAPI manages the record sets of a DNS zone
type RecordSetsAPI interface {
	Get(ctx context.Context, zone string, recordType armdns.RecordType, name string) (*armdns.RecordSet, error)
	List(ctx context.Context, zone string) ([]*armdns.RecordSet, error)
	CreateOrUpdate(ctx context.Context, zone string, recordType armdns.RecordType, name string, rs armdns.RecordSet) (*armdns.RecordSet, error)
	Delete(ctx context.Context, zone string, recordType armdns.RecordType, name string) error
}

// LocationsAPI lists the locations of the subscription
type LocationsAPI interface {
	List(ctx context.Context) ([]*armsubscriptions.Location, error)
}

// VMSizesAPI lists the VM sizes offered in a location
type VMSizesAPI interface {
	List(ctx context.Context, location string) ([]*armcompute.VirtualMachineSize, error)
}

// BlobAPI is the subset of the Blob service used for buckets and objects
type BlobAPI interface {
	ListContainers(ctx context.Context) ([]*service.ContainerItem, error)
	GetContainer(ctx context.Context, name string) (*service.ContainerItem, error)
	CreateContainer(ctx context.Context, name string) error
	DeleteContainer(ctx context.Context, name string) error
	ListBlobs(ctx context.Context, containerName, prefix string) ([]*container.BlobItem, error)
	GetBlob(ctx context.Context, containerName, key string) (*container.BlobItem, error)
	Upload(ctx context.Context, containerName, key string, body io.Reader) error
	Download(ctx context.Context, containerName, key string, w io.Writer) error
	DeleteBlob(ctx context.Context, containerName, key string) error
}

// Clients bundles the ARM and Blob clients of one subscription and resource
// group. Tests substitute in-memory fakes.
type Clients struct {
	ResourceGroups  Collection[armresources.ResourceGroup]
	Locations       LocationsAPI
	VMSizes         VMSizesAPI
	VirtualMachines VirtualMachinesAPI
	Images          Collection[armcompute.Image]
	Disks           Collection[armcompute.Disk]
	Snapshots       Collection[armcompute.Snapshot]
	SSHPublicKeys   Collection[armcompute.SSHPublicKeyResource]
	VirtualNetworks Collection[armnetwork.VirtualNetwork]
	Subnets         ChildCollection[armnetwork.Subnet]
	Interfaces      Collection[armnetwork.Interface]
	PublicIPs       Collection[armnetwork.PublicIPAddress]
	SecurityGroups  Collection[armnetwork.SecurityGroup]
	SecurityRules   ChildCollection[armnetwork.SecurityRule]
	RouteTables     Collection[armnetwork.RouteTable]
	Routes          ChildCollection[armnetwork.Route]
	Zones           Collection[armdns.Zone]
	RecordSets      RecordSetsAPI
	// Blobs is nil when no storage account is configured
	Blobs BlobAPI
}

// NewClients builds the SDK clients from the Azure section of the
// configuration. A service principal is used when one is configured and
// the default credential chain otherwise.
func NewClients(ctx context.Context, cfg config.AzureConfig) (*Clients, error) {
	if cfg.SubscriptionID == "" {
		return nil, contracts.NewInvalidConfigurationError("AZURE_SUBSCRIPTION_ID is required", nil)
	}
	if cfg.ResourceGroup == "" {
		return nil, contracts.NewInvalidConfigurationError("AZURE_RESOURCE_GROUP is required", nil)
	}
	cred, err := credential(cfg)
	if err != nil {
		return nil, err
	}

	// retries happen in the shared HTTP client and the caller
	opts := &arm.ClientOptions{ClientOptions: policy.ClientOptions{
		Transport: common.NewHTTPClient(logging.FromContext(ctx)),
		Retry:     policy.RetryOptions{MaxRetries: -1},
		Telemetry: policy.TelemetryOptions{ApplicationID: "cloudbridge"},
	}}
	sub, rg := cfg.SubscriptionID, cfg.ResourceGroup

	computeFactory, err := armcompute.NewClientFactory(sub, cred, opts)
	if err != nil {
		return nil, contracts.NewInvalidConfigurationError("failed to create compute clients", err)
	}
	networkFactory, err := armnetwork.NewClientFactory(sub, cred, opts)
	if err != nil {
		return nil, contracts.NewInvalidConfigurationError("failed to create network clients", err)
	}
	dnsFactory, err := armdns.NewClientFactory(sub, cred, opts)
	if err != nil {
		return nil, contracts.NewInvalidConfigurationError("failed to create dns clients", err)
	}
	groupsClient, err := armresources.NewResourceGroupsClient(sub, cred, opts)
	if err != nil {
		return nil, contracts.NewInvalidConfigurationError("failed to create resource group client", err)
	}
	subscriptionsClient, err := armsubscriptions.NewClient(cred, opts)
	if err != nil {
		return nil, contracts.NewInvalidConfigurationError("failed to create subscriptions client", err)
	}

	c := &Clients{
		ResourceGroups:  resourceGroups(groupsClient),
		Locations:       &locations{client: subscriptionsClient, subscription: sub},
		VMSizes:         &vmSizes{client: computeFactory.NewVirtualMachineSizesClient()},
		VirtualMachines: &virtualMachines{client: computeFactory.NewVirtualMachinesClient(), rg: rg},
		Images:          images(computeFactory.NewImagesClient(), rg),
		Disks:           disks(computeFactory.NewDisksClient(), rg),
		Snapshots:       snapshots(computeFactory.NewSnapshotsClient(), rg),
		SSHPublicKeys:   sshPublicKeys(computeFactory.NewSSHPublicKeysClient(), rg),
		VirtualNetworks: virtualNetworks(networkFactory.NewVirtualNetworksClient(), rg),
		Subnets:         subnets(networkFactory.NewSubnetsClient(), rg),
		Interfaces:      interfaces(networkFactory.NewInterfacesClient(), rg),
		PublicIPs:       publicIPs(networkFactory.NewPublicIPAddressesClient(), rg),
		SecurityGroups:  securityGroups(networkFactory.NewSecurityGroupsClient(), rg),
		SecurityRules:   securityRules(networkFactory.NewSecurityRulesClient(), rg),
		RouteTables:     routeTables(networkFactory.NewRouteTablesClient(), rg),
		Routes:          routes(networkFactory.NewRoutesClient(), rg),
		Zones:           dnsZones(dnsFactory.NewZonesClient(), rg),
		RecordSets:      &recordSets{client: dnsFactory.NewRecordSetsClient(), rg: rg},
	}
	if cfg.StorageAccount != "" {
		serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.StorageAccount)
		blobClient, err := azblob.NewClient(serviceURL, cred, &azblob.ClientOptions{ClientOptions: opts.ClientOptions})
		if err != nil {
			return nil, contracts.NewInvalidConfigurationError("failed to create blob client", err)
		}
		c.Blobs = &blobs{client: blobClient}
	}
	return c, nil
}

func credential(cfg config.AzureConfig) (azcore.TokenCredential, error) {
	if cfg.ClientID == "" && cfg.Secret == "" && cfg.Tenant == "" {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, contracts.NewInvalidConfigurationError("no Azure credentials found; set AZURE_CLIENT_ID, AZURE_SECRET and AZURE_TENANT", err)
		}
		return cred, nil
	}
	if cfg.ClientID == "" || cfg.Secret == "" || cfg.Tenant == "" {
		return nil, contracts.NewInvalidConfigurationError("AZURE_CLIENT_ID, AZURE_SECRET and AZURE_TENANT must be set together", nil)
	}
	cred, err := azidentity.NewClientSecretCredential(cfg.Tenant, cfg.ClientID, cfg.Secret, nil)
	if err != nil {
		return nil, contracts.NewInvalidConfigurationError("invalid Azure service principal", err)
	}
	return cred, nil
}
