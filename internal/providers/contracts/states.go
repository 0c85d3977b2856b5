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

// InstanceState represents normalized instance states
type InstanceState string

const (
	InstanceStateUnknown     InstanceState = "unknown"
	InstanceStatePending     InstanceState = "pending"
	InstanceStateConfiguring InstanceState = "configuring"
	InstanceStateRunning     InstanceState = "running"
	InstanceStateRebooting   InstanceState = "rebooting"
	InstanceStateDeleted     InstanceState = "deleted"
	InstanceStateStopped     InstanceState = "stopped"
	InstanceStateError       InstanceState = "error"
)

// VolumeState represents normalized volume states
type VolumeState string

const (
	VolumeStateUnknown     VolumeState = "unknown"
	VolumeStateCreating    VolumeState = "creating"
	VolumeStateConfiguring VolumeState = "configuring"
	VolumeStateAvailable   VolumeState = "available"
	VolumeStateInUse       VolumeState = "in-use"
	VolumeStateDeleted     VolumeState = "deleted"
	VolumeStateError       VolumeState = "error"
)

// SnapshotState represents normalized snapshot states
type SnapshotState string

const (
	SnapshotStateUnknown     SnapshotState = "unknown"
	SnapshotStatePending     SnapshotState = "pending"
	SnapshotStateConfiguring SnapshotState = "configuring"
	SnapshotStateAvailable   SnapshotState = "available"
	SnapshotStateError       SnapshotState = "error"
)

// MachineImageState represents normalized image states
type MachineImageState string

const (
	MachineImageStateUnknown   MachineImageState = "unknown"
	MachineImageStatePending   MachineImageState = "pending"
	MachineImageStateAvailable MachineImageState = "available"
	MachineImageStateError     MachineImageState = "error"
)

// NetworkState represents normalized network and subnet states
type NetworkState string

const (
	NetworkStateUnknown   NetworkState = "unknown"
	NetworkStatePending   NetworkState = "pending"
	NetworkStateAvailable NetworkState = "available"
	NetworkStateDown      NetworkState = "down"
	NetworkStateError     NetworkState = "error"
)

// SubnetState shares the network state set
type SubnetState = NetworkState

// RouterState represents normalized router states
type RouterState string

const (
	RouterStateUnknown  RouterState = "unknown"
	RouterStateAttached RouterState = "attached"
	RouterStateDetached RouterState = "detached"
)

// GatewayState represents normalized internet gateway states
type GatewayState string

const (
	GatewayStateUnknown     GatewayState = "unknown"
	GatewayStateConfiguring GatewayState = "configuring"
	GatewayStateAvailable   GatewayState = "available"
	GatewayStateError       GatewayState = "error"
)

// TrafficDirection is the direction a firewall rule applies to
type TrafficDirection string

const (
	TrafficInbound  TrafficDirection = "inbound"
	TrafficOutbound TrafficDirection = "outbound"
)

// Protocol is a firewall rule protocol
type Protocol string

const (
	ProtocolTCP  Protocol = "tcp"
	ProtocolUDP  Protocol = "udp"
	ProtocolICMP Protocol = "icmp"
	ProtocolAll  Protocol = "all"
)

// DNSRecordType is a DNS record type
type DNSRecordType string

const (
	DNSRecordA     DNSRecordType = "A"
	DNSRecordAAAA  DNSRecordType = "AAAA"
	DNSRecordCNAME DNSRecordType = "CNAME"
	DNSRecordCAA   DNSRecordType = "CAA"
	DNSRecordMX    DNSRecordType = "MX"
	DNSRecordNS    DNSRecordType = "NS"
	DNSRecordPTR   DNSRecordType = "PTR"
	DNSRecordSOA   DNSRecordType = "SOA"
	DNSRecordSPF   DNSRecordType = "SPF"
	DNSRecordSRV   DNSRecordType = "SRV"
	DNSRecordTXT   DNSRecordType = "TXT"
)

// StateMap is a fixed lookup table from vendor status strings to a normalized state
type StateMap[S ~string] struct {
	table    map[string]S
	fallback S
}

// NewStateMap builds a lookup table; unknown vendor states map to fallback
func NewStateMap[S ~string](fallback S, table map[string]S) StateMap[S] {
	return StateMap[S]{table: table, fallback: fallback}
}

// Lookup translates a vendor status string
func (m StateMap[S]) Lookup(vendorState string) S {
	if s, ok := m.table[vendorState]; ok {
		return s
	}
	return m.fallback
}

// Valid reports whether d is a known direction
func (d TrafficDirection) Valid() bool {
	return d == TrafficInbound || d == TrafficOutbound
}

// Valid reports whether p is a known protocol
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolTCP, ProtocolUDP, ProtocolICMP, ProtocolAll:
		return true
	}
	return false
}

// HasPorts reports whether rules of this protocol carry a port range
func (p Protocol) HasPorts() bool {
	return p == ProtocolTCP || p == ProtocolUDP
}

// Valid reports whether t is a supported record type
func (t DNSRecordType) Valid() bool {
	switch t {
	case DNSRecordA, DNSRecordAAAA, DNSRecordCNAME, DNSRecordCAA, DNSRecordMX, DNSRecordNS,
		DNSRecordPTR, DNSRecordSOA, DNSRecordSPF, DNSRecordSRV, DNSRecordTXT:
		return true
	}
	return false
}
