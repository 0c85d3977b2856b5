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

package contracts

import (
	"context"
	"io"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
)

// ProviderType identifies a cloud vendor
type ProviderType string

const (
	ProviderAWS       ProviderType = "aws"
	ProviderAzure     ProviderType = "azure"
	ProviderGCP       ProviderType = "gcp"
	ProviderOpenStack ProviderType = "openstack"
	ProviderMock      ProviderType = "mock"
)

// ServiceType names a service or sub-service for HasService
type ServiceType string

const (
	ServiceCompute     ServiceType = "compute"
	ServiceInstances   ServiceType = "compute.instances"
	ServiceVMTypes     ServiceType = "compute.vm_types"
	ServiceRegions     ServiceType = "compute.regions"
	ServiceImages      ServiceType = "compute.images"
	ServiceStorage     ServiceType = "storage"
	ServiceVolumes     ServiceType = "storage.volumes"
	ServiceSnapshots   ServiceType = "storage.snapshots"
	ServiceBuckets     ServiceType = "storage.buckets"
	ServiceNetworking  ServiceType = "networking"
	ServiceNetworks    ServiceType = "networking.networks"
	ServiceSubnets     ServiceType = "networking.subnets"
	ServiceRouters     ServiceType = "networking.routers"
	ServiceFloatingIPs ServiceType = "networking.floating_ips"
	ServiceGateways    ServiceType = "networking.gateways"
	ServiceSecurity    ServiceType = "security"
	ServiceKeyPairs    ServiceType = "security.key_pairs"
	ServiceVMFirewalls ServiceType = "security.vm_firewalls"
	ServiceDNS         ServiceType = "dns"
	ServiceDNSZones    ServiceType = "dns.zones"
	ServiceDNSRecords  ServiceType = "dns.records"
)

// AllServices lists every service type in display order
var AllServices = []ServiceType{
	ServiceCompute, ServiceInstances, ServiceVMTypes, ServiceRegions, ServiceImages,
	ServiceStorage, ServiceVolumes, ServiceSnapshots, ServiceBuckets,
	ServiceNetworking, ServiceNetworks, ServiceSubnets, ServiceRouters, ServiceFloatingIPs, ServiceGateways,
	ServiceSecurity, ServiceKeyPairs, ServiceVMFirewalls,
	ServiceDNS, ServiceDNSZones, ServiceDNSRecords,
}

// Provider defines the interface that all cloud providers must implement
type Provider interface {
	// Type returns the vendor this provider talks to
	Type() ProviderType

	// Region returns the configured default region
	Region() string

	// Zone returns the configured default placement zone
	Zone() string

	// Authenticate verifies that the configured credentials are accepted
	Authenticate(ctx context.Context) error

	// HasService reports whether the provider implements a service
	HasService(service ServiceType) bool

	Compute() *ComputeServices
	Storage() *StorageServices
	Networking() *NetworkingServices
	Security() *SecurityServices
	DNS() *DNSServices
}

// ComputeServices groups the compute sub-services
type ComputeServices struct {
	Instances InstanceService
	VMTypes   VMTypeService
	Regions   RegionService
	Images    ImageService
}

// StorageServices groups the storage sub-services
type StorageServices struct {
	Volumes   VolumeService
	Snapshots SnapshotService
	Buckets   BucketService
}

// NetworkingServices groups the networking sub-services
type NetworkingServices struct {
	Networks    NetworkService
	Subnets     SubnetService
	Routers     RouterService
	Gateways    GatewayService
	FloatingIPs FloatingIPService
}

// SecurityServices groups the security sub-services
type SecurityServices struct {
	KeyPairs    KeyPairService
	VMFirewalls VMFirewallService
}

// DNSServices groups the DNS sub-services
type DNSServices struct {
	Zones   DNSZoneService
	Records DNSRecordService
}

// Reader is the read side shared by every top-level resource service.
// Get returns a NotFound CloudError when the resource does not exist.
type Reader[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*T], error)
	Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*T], error)
}

// InstanceService manages virtual machines
type InstanceService interface {
	Reader[Instance]

	Create(ctx context.Context, req CreateInstanceRequest) (*Instance, error)
	// Delete terminates an instance; deleting a missing instance is a no-op
	Delete(ctx context.Context, id string) error
	Reboot(ctx context.Context, id string) error
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
	SetLabel(ctx context.Context, id, label string) error
	AddVMFirewall(ctx context.Context, id, firewallID string) error
	RemoveVMFirewall(ctx context.Context, id, firewallID string) error
	AddFloatingIP(ctx context.Context, id, floatingIPID string) error
	RemoveFloatingIP(ctx context.Context, id, floatingIPID string) error
	// CreateImage captures the instance as a machine image
	CreateImage(ctx context.Context, id, label string) (*MachineImage, error)
}

// VMTypeService lists instance sizes
type VMTypeService interface {
	Reader[VMType]
}

// RegionService lists vendor regions
type RegionService interface {
	Get(ctx context.Context, id string) (*Region, error)
	List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*Region], error)
	// Current returns the configured default region
	Current(ctx context.Context) (*Region, error)
}

// ImageService manages machine images
type ImageService interface {
	Reader[MachineImage]

	Delete(ctx context.Context, id string) error
	SetLabel(ctx context.Context, id, label string) error
}

// VolumeService manages block storage volumes
type VolumeService interface {
	Reader[Volume]

	Create(ctx context.Context, req CreateVolumeRequest) (*Volume, error)
	Delete(ctx context.Context, id string) error
	Attach(ctx context.Context, id, instanceID, device string) error
	Detach(ctx context.Context, id string) error
	CreateSnapshot(ctx context.Context, id, label, description string) (*Snapshot, error)
	SetLabel(ctx context.Context, id, label string) error
}

// SnapshotService manages volume snapshots
type SnapshotService interface {
	Reader[Snapshot]

	Create(ctx context.Context, req CreateSnapshotRequest) (*Snapshot, error)
	Delete(ctx context.Context, id string) error
	// CreateVolume restores a snapshot into a new volume (sizeGB 0 = snapshot size)
	CreateVolume(ctx context.Context, id string, sizeGB int, zone string) (*Volume, error)
	SetLabel(ctx context.Context, id, label string) error
}

// BucketService manages object storage buckets
type BucketService interface {
	Reader[Bucket]

	// Create fails with a Duplicate error when the bucket exists
	Create(ctx context.Context, name, location string) (*Bucket, error)
	Delete(ctx context.Context, id string) error
	Objects() BucketObjectService
}

// BucketObjectService manages objects within a bucket
type BucketObjectService interface {
	Get(ctx context.Context, bucketID, key string) (*BucketObject, error)
	List(ctx context.Context, bucketID, prefix string, opts paging.ListOptions) (*paging.ResultList[*BucketObject], error)
	Upload(ctx context.Context, bucketID, key string, body io.Reader) (*BucketObject, error)
	Download(ctx context.Context, bucketID, key string, w io.Writer) error
	Delete(ctx context.Context, bucketID, key string) error
}

// NetworkService manages private networks
type NetworkService interface {
	Reader[Network]

	Create(ctx context.Context, req CreateNetworkRequest) (*Network, error)
	Delete(ctx context.Context, id string) error
	SetLabel(ctx context.Context, id, label string) error
	// Subnets returns every subnet of a network
	Subnets(ctx context.Context, id string) ([]*Subnet, error)
}

// SubnetService manages subnets
type SubnetService interface {
	Reader[Subnet]

	Create(ctx context.Context, req CreateSubnetRequest) (*Subnet, error)
	Delete(ctx context.Context, id string) error
	SetLabel(ctx context.Context, id, label string) error
	// GetOrCreateDefault returns the default subnet for a zone, creating the
	// default network and subnet when the account has none
	GetOrCreateDefault(ctx context.Context, zone string) (*Subnet, error)
}

// RouterService manages routers
type RouterService interface {
	Reader[Router]

	Create(ctx context.Context, req CreateRouterRequest) (*Router, error)
	Delete(ctx context.Context, id string) error
	SetLabel(ctx context.Context, id, label string) error
	AttachSubnet(ctx context.Context, id, subnetID string) error
	DetachSubnet(ctx context.Context, id, subnetID string) error
	AttachGateway(ctx context.Context, id, gatewayID string) error
	DetachGateway(ctx context.Context, id, gatewayID string) error
}

// GatewayService manages internet gateways; gateways are scoped to a network
type GatewayService interface {
	GetOrCreate(ctx context.Context, networkID string) (*InternetGateway, error)
	Delete(ctx context.Context, networkID, gatewayID string) error
	List(ctx context.Context, networkID string, opts paging.ListOptions) (*paging.ResultList[*InternetGateway], error)
}

// FloatingIPService manages public addresses
type FloatingIPService interface {
	Reader[FloatingIP]

	// Create allocates an address from the gateway (or external network)
	Create(ctx context.Context, gatewayID string) (*FloatingIP, error)
	Delete(ctx context.Context, id string) error
}

// KeyPairService manages SSH key pairs
type KeyPairService interface {
	Reader[KeyPair]

	// Create imports req.PublicKey, or generates a key pair and returns the
	// private key once when PublicKey is empty. Existing names yield Duplicate.
	Create(ctx context.Context, req CreateKeyPairRequest) (*KeyPair, error)
	Delete(ctx context.Context, id string) error
}

// VMFirewallService manages security groups
type VMFirewallService interface {
	Reader[VMFirewall]

	Create(ctx context.Context, req CreateVMFirewallRequest) (*VMFirewall, error)
	Delete(ctx context.Context, id string) error
	SetLabel(ctx context.Context, id, label string) error
	Rules() FirewallRuleService
}

// FirewallRuleService manages the rules of a VM firewall
type FirewallRuleService interface {
	List(ctx context.Context, firewallID string, opts paging.ListOptions) (*paging.ResultList[*FirewallRule], error)
	Create(ctx context.Context, firewallID string, req CreateFirewallRuleRequest) (*FirewallRule, error)
	Delete(ctx context.Context, firewallID, ruleID string) error
}

// DNSZoneService manages hosted zones
type DNSZoneService interface {
	Reader[DNSZone]

	Create(ctx context.Context, req CreateDNSZoneRequest) (*DNSZone, error)
	Delete(ctx context.Context, id string) error
}

// DNSRecordService manages record sets within a zone
type DNSRecordService interface {
	Get(ctx context.Context, zoneID, id string) (*DNSRecord, error)
	List(ctx context.Context, zoneID string, opts paging.ListOptions) (*paging.ResultList[*DNSRecord], error)
	Create(ctx context.Context, zoneID string, req CreateDNSRecordRequest) (*DNSRecord, error)
	Delete(ctx context.Context, zoneID, id string) error
}
