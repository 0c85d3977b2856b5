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
	"time"
)

// Resource holds the properties shared by every normalized resource
type Resource struct {
	// ID is the provider-specific identifier
	ID string `json:"id" yaml:"id"`
	// Name is the immutable resource name
	Name string `json:"name" yaml:"name"`
	// Label is the mutable display label (may be empty)
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	// CreateTime is when the vendor created the resource, if reported
	CreateTime time.Time `json:"createTime,omitempty" yaml:"createTime,omitempty"`
	// Tags are vendor tags/labels/metadata other than the label
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// GetID returns the resource identifier
func (r Resource) GetID() string { return r.ID }

// GetName returns the resource name
func (r Resource) GetName() string { return r.Name }

// GetLabel returns the resource label
func (r Resource) GetLabel() string { return r.Label }

// Instance is a virtual machine
type Instance struct {
	Resource `yaml:",inline"`
	// State is the normalized instance state
	State InstanceState `json:"state" yaml:"state"`
	// VMTypeID identifies the instance size
	VMTypeID string `json:"vmTypeId,omitempty" yaml:"vmTypeId,omitempty"`
	// ImageID identifies the boot image
	ImageID string `json:"imageId,omitempty" yaml:"imageId,omitempty"`
	// ZoneID is the placement zone
	ZoneID string `json:"zoneId,omitempty" yaml:"zoneId,omitempty"`
	// SubnetID is the primary subnet
	SubnetID string `json:"subnetId,omitempty" yaml:"subnetId,omitempty"`
	// KeyPairID is the key pair injected at launch
	KeyPairID string `json:"keyPairId,omitempty" yaml:"keyPairId,omitempty"`
	// VMFirewallIDs are the attached firewalls
	VMFirewallIDs []string `json:"vmFirewallIds,omitempty" yaml:"vmFirewallIds,omitempty"`
	// PublicIPs are the public addresses
	PublicIPs []string `json:"publicIps,omitempty" yaml:"publicIps,omitempty"`
	// PrivateIPs are the private addresses
	PrivateIPs []string `json:"privateIps,omitempty" yaml:"privateIps,omitempty"`
}

// VMType is an instance size
type VMType struct {
	Resource `yaml:",inline"`
	// Family is the vendor size family
	Family string `json:"family,omitempty" yaml:"family,omitempty"`
	// VCPUs is the number of virtual CPUs
	VCPUs int `json:"vcpus" yaml:"vcpus"`
	// RAMGB is the memory in GiB
	RAMGB float64 `json:"ramGb" yaml:"ramGb"`
	// SizeRootDiskGB is the root disk size in GiB
	SizeRootDiskGB int `json:"sizeRootDiskGb,omitempty" yaml:"sizeRootDiskGb,omitempty"`
	// SizeEphemeralDisksGB is the total ephemeral disk size in GiB
	SizeEphemeralDisksGB int `json:"sizeEphemeralDisksGb,omitempty" yaml:"sizeEphemeralDisksGb,omitempty"`
	// NumEphemeralDisks is the number of ephemeral disks
	NumEphemeralDisks int `json:"numEphemeralDisks,omitempty" yaml:"numEphemeralDisks,omitempty"`
	// Extra holds vendor-specific attributes
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// PlacementZone is an availability zone within a region
type PlacementZone struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	RegionName string `json:"regionName" yaml:"regionName"`
}

// Region is a vendor region
type Region struct {
	Resource `yaml:",inline"`
	// Zones are the region's placement zones
	Zones []PlacementZone `json:"zones,omitempty" yaml:"zones,omitempty"`
}

// MachineImage is a bootable image
type MachineImage struct {
	Resource `yaml:",inline"`
	// Description is the vendor description
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// State is the normalized image state
	State MachineImageState `json:"state" yaml:"state"`
	// MinDiskGB is the minimum root disk size in GiB
	MinDiskGB int `json:"minDiskGb,omitempty" yaml:"minDiskGb,omitempty"`
	// OwnerID identifies the image owner
	OwnerID string `json:"ownerId,omitempty" yaml:"ownerId,omitempty"`
}

// Attachment describes a volume attached to an instance
type Attachment struct {
	VolumeID   string `json:"volumeId" yaml:"volumeId"`
	InstanceID string `json:"instanceId" yaml:"instanceId"`
	Device     string `json:"device,omitempty" yaml:"device,omitempty"`
}

// Volume is a block storage volume
type Volume struct {
	Resource `yaml:",inline"`
	// Description is the vendor description
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// SizeGB is the volume size in GiB
	SizeGB int `json:"sizeGb" yaml:"sizeGb"`
	// ZoneID is the placement zone
	ZoneID string `json:"zoneId,omitempty" yaml:"zoneId,omitempty"`
	// SourceSnapshotID is the snapshot the volume was created from
	SourceSnapshotID string `json:"sourceSnapshotId,omitempty" yaml:"sourceSnapshotId,omitempty"`
	// State is the normalized volume state
	State VolumeState `json:"state" yaml:"state"`
	// Attachment is set when the volume is attached
	Attachment *Attachment `json:"attachment,omitempty" yaml:"attachment,omitempty"`
}

// Snapshot is a point-in-time volume snapshot
type Snapshot struct {
	Resource `yaml:",inline"`
	// Description is the vendor description
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// VolumeID is the source volume
	VolumeID string `json:"volumeId,omitempty" yaml:"volumeId,omitempty"`
	// SizeGB is the snapshot size in GiB
	SizeGB int `json:"sizeGb" yaml:"sizeGb"`
	// State is the normalized snapshot state
	State SnapshotState `json:"state" yaml:"state"`
}

// Bucket is an object storage container
type Bucket struct {
	Resource `yaml:",inline"`
	// Location is the bucket region or location constraint
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// BucketObject is an object within a bucket; its ID is the object key
type BucketObject struct {
	Resource `yaml:",inline"`
	// BucketID is the owning bucket
	BucketID string `json:"bucketId" yaml:"bucketId"`
	// Size is the object size in bytes
	Size int64 `json:"size" yaml:"size"`
	// LastModified is the last modification time
	LastModified time.Time `json:"lastModified,omitempty" yaml:"lastModified,omitempty"`
	// ContentType is the object MIME type
	ContentType string `json:"contentType,omitempty" yaml:"contentType,omitempty"`
}

// Network is a private network (VPC, VNet, Neutron network)
type Network struct {
	Resource `yaml:",inline"`
	// CIDR is the network address block
	CIDR string `json:"cidr,omitempty" yaml:"cidr,omitempty"`
	// State is the normalized network state
	State NetworkState `json:"state" yaml:"state"`
	// External reports whether the network provides external connectivity
	External bool `json:"external,omitempty" yaml:"external,omitempty"`
}

// Subnet is a subnet of a Network
type Subnet struct {
	Resource `yaml:",inline"`
	// NetworkID is the parent network
	NetworkID string `json:"networkId" yaml:"networkId"`
	// CIDR is the subnet address block
	CIDR string `json:"cidr" yaml:"cidr"`
	// ZoneID is the placement zone (if zonal)
	ZoneID string `json:"zoneId,omitempty" yaml:"zoneId,omitempty"`
	// State is the normalized subnet state
	State SubnetState `json:"state" yaml:"state"`
}

// Router routes traffic between subnets and gateways
type Router struct {
	Resource `yaml:",inline"`
	// NetworkID is the network the router belongs to
	NetworkID string `json:"networkId,omitempty" yaml:"networkId,omitempty"`
	// State is the normalized router state
	State RouterState `json:"state" yaml:"state"`
	// SubnetIDs are the attached subnets
	SubnetIDs []string `json:"subnetIds,omitempty" yaml:"subnetIds,omitempty"`
	// GatewayID is the attached internet gateway
	GatewayID string `json:"gatewayId,omitempty" yaml:"gatewayId,omitempty"`
}

// InternetGateway provides external connectivity to a network
type InternetGateway struct {
	Resource `yaml:",inline"`
	// NetworkID is the attached network
	NetworkID string `json:"networkId,omitempty" yaml:"networkId,omitempty"`
	// State is the normalized gateway state
	State GatewayState `json:"state" yaml:"state"`
}

// FloatingIP is a public address that can be moved between instances
type FloatingIP struct {
	Resource `yaml:",inline"`
	// PublicIP is the public address
	PublicIP string `json:"publicIp" yaml:"publicIp"`
	// PrivateIP is the private address it maps to, if associated
	PrivateIP string `json:"privateIp,omitempty" yaml:"privateIp,omitempty"`
	// InstanceID is the associated instance, if any
	InstanceID string `json:"instanceId,omitempty" yaml:"instanceId,omitempty"`
	// GatewayID is the gateway or external network the address belongs to
	GatewayID string `json:"gatewayId,omitempty" yaml:"gatewayId,omitempty"`
}

// InUse reports whether the address is associated with an instance
func (f *FloatingIP) InUse() bool {
	return f.InstanceID != "" || f.PrivateIP != ""
}

// KeyPair is an SSH key pair
type KeyPair struct {
	Resource `yaml:",inline"`
	// Fingerprint is the vendor key fingerprint
	Fingerprint string `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	// PublicKey is the public key material, when the vendor returns it
	PublicKey string `json:"publicKey,omitempty" yaml:"publicKey,omitempty"`
	// PrivateKey is only set on the result of a Create that generated the key
	PrivateKey string `json:"privateKey,omitempty" yaml:"privateKey,omitempty"`
}

// FirewallRule is a single VM firewall rule
type FirewallRule struct {
	// ID is the rule identifier
	ID string `json:"id" yaml:"id"`
	// FirewallID is the owning firewall
	FirewallID string `json:"firewallId" yaml:"firewallId"`
	// Direction is inbound or outbound
	Direction TrafficDirection `json:"direction" yaml:"direction"`
	// Protocol is the IP protocol
	Protocol Protocol `json:"protocol" yaml:"protocol"`
	// FromPort is the first port of the range (0 = any)
	FromPort int `json:"fromPort,omitempty" yaml:"fromPort,omitempty"`
	// ToPort is the last port of the range (0 = any)
	ToPort int `json:"toPort,omitempty" yaml:"toPort,omitempty"`
	// CIDR is the remote address block
	CIDR string `json:"cidr,omitempty" yaml:"cidr,omitempty"`
	// SourceFirewallID is the remote firewall, instead of a CIDR
	SourceFirewallID string `json:"sourceFirewallId,omitempty" yaml:"sourceFirewallId,omitempty"`
}

// GetID returns the rule identifier
func (r FirewallRule) GetID() string { return r.ID }

// VMFirewall is a security group / network security group
type VMFirewall struct {
	Resource `yaml:",inline"`
	// Description is the vendor description
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// NetworkID is the network the firewall belongs to
	NetworkID string `json:"networkId,omitempty" yaml:"networkId,omitempty"`
	// Rules are the firewall rules
	Rules []FirewallRule `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// DNSZone is a hosted DNS zone
type DNSZone struct {
	Resource `yaml:",inline"`
	// AdminEmail is the zone administrator address
	AdminEmail string `json:"adminEmail,omitempty" yaml:"adminEmail,omitempty"`
	// Description is the zone description
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// DNSRecord is a record set within a zone
type DNSRecord struct {
	Resource `yaml:",inline"`
	// ZoneID is the owning zone
	ZoneID string `json:"zoneId" yaml:"zoneId"`
	// Type is the record type
	Type DNSRecordType `json:"type" yaml:"type"`
	// Data holds the record values
	Data []string `json:"data" yaml:"data"`
	// TTL is the record time-to-live in seconds
	TTL int `json:"ttl" yaml:"ttl"`
}

// BlockDevice describes a disk in a LaunchConfig
type BlockDevice struct {
	// SourceVolumeID clones or attaches an existing volume
	SourceVolumeID string
	// SourceSnapshotID creates the disk from a snapshot
	SourceSnapshotID string
	// SourceImageID creates the disk from an image
	SourceImageID string
	// SizeGB is the disk size (0 = source size)
	SizeGB int
	// IsRoot makes the disk the boot disk
	IsRoot bool
	// DeleteOnTerminate removes the disk with the instance
	DeleteOnTerminate bool
	// Ephemeral requests an instance-store disk
	Ephemeral bool
}

// LaunchConfig holds advanced launch options
type LaunchConfig struct {
	// BlockDevices are extra or replacement disks
	BlockDevices []BlockDevice
}

// AddVolumeDevice appends a persistent disk
func (c *LaunchConfig) AddVolumeDevice(dev BlockDevice) *LaunchConfig {
	dev.Ephemeral = false
	c.BlockDevices = append(c.BlockDevices, dev)
	return c
}

// AddEphemeralDevice appends an instance-store disk
func (c *LaunchConfig) AddEphemeralDevice() *LaunchConfig {
	c.BlockDevices = append(c.BlockDevices, BlockDevice{Ephemeral: true})
	return c
}

// CreateInstanceRequest contains all information needed to create an instance
type CreateInstanceRequest struct {
	// Label is the instance label; the name is generated from it
	Label string
	// ImageID is the boot image
	ImageID string
	// VMTypeID is the instance size
	VMTypeID string
	// SubnetID places the instance (empty = provider default subnet)
	SubnetID string
	// Zone overrides the provider default zone
	Zone string
	// KeyPairName injects an SSH key pair
	KeyPairName string
	// VMFirewallIDs are attached at launch
	VMFirewallIDs []string
	// UserData is passed to cloud-init
	UserData string
	// LaunchConfig holds block device mappings
	LaunchConfig *LaunchConfig
}

// CreateVolumeRequest contains the parameters for a new volume
type CreateVolumeRequest struct {
	Label       string
	SizeGB      int
	Zone        string
	SnapshotID  string
	Description string
}

// CreateSnapshotRequest contains the parameters for a new snapshot
type CreateSnapshotRequest struct {
	VolumeID    string
	Label       string
	Description string
}

// CreateNetworkRequest contains the parameters for a new network
type CreateNetworkRequest struct {
	Label string
	CIDR  string
}

// CreateSubnetRequest contains the parameters for a new subnet
type CreateSubnetRequest struct {
	NetworkID string
	Label     string
	CIDR      string
	Zone      string
}

// CreateRouterRequest contains the parameters for a new router
type CreateRouterRequest struct {
	Label     string
	NetworkID string
}

// CreateKeyPairRequest contains the parameters for a new key pair
type CreateKeyPairRequest struct {
	// Name is the key pair name
	Name string
	// PublicKey imports existing key material; empty generates a new key
	PublicKey string
}

// CreateVMFirewallRequest contains the parameters for a new VM firewall
type CreateVMFirewallRequest struct {
	Label       string
	NetworkID   string
	Description string
}

// CreateFirewallRuleRequest contains the parameters for a new firewall rule
type CreateFirewallRuleRequest struct {
	Direction        TrafficDirection
	Protocol         Protocol
	FromPort         int
	ToPort           int
	CIDR             string
	SourceFirewallID string
}

// CreateDNSZoneRequest contains the parameters for a new DNS zone
type CreateDNSZoneRequest struct {
	Name        string
	AdminEmail  string
	Description string
}

// CreateDNSRecordRequest contains the parameters for a new DNS record
type CreateDNSRecordRequest struct {
	Name string
	Type DNSRecordType
	Data []string
	TTL  int
}
