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

import "github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"

// Nova server statuses
var instanceStates = contracts.NewStateMap(contracts.InstanceStateUnknown, map[string]contracts.InstanceState{
	"BUILD":             contracts.InstanceStatePending,
	"ACTIVE":            contracts.InstanceStateRunning,
	"REBOOT":            contracts.InstanceStateRebooting,
	"HARD_REBOOT":       contracts.InstanceStateRebooting,
	"PASSWORD":          contracts.InstanceStateConfiguring,
	"REBUILD":           contracts.InstanceStateConfiguring,
	"RESCUE":            contracts.InstanceStateConfiguring,
	"RESIZE":            contracts.InstanceStateConfiguring,
	"VERIFY_RESIZE":     contracts.InstanceStateConfiguring,
	"REVERT_RESIZE":     contracts.InstanceStateConfiguring,
	"MIGRATING":         contracts.InstanceStateConfiguring,
	"PAUSED":            contracts.InstanceStateStopped,
	"SUSPENDED":         contracts.InstanceStateStopped,
	"SHUTOFF":           contracts.InstanceStateStopped,
	"SHELVED":           contracts.InstanceStateStopped,
	"SHELVED_OFFLOADED": contracts.InstanceStateStopped,
	"DELETED":           contracts.InstanceStateDeleted,
	"SOFT_DELETED":      contracts.InstanceStateDeleted,
	"ERROR":             contracts.InstanceStateError,
})

// Cinder volume statuses; in-use is reported as such
var volumeStates = contracts.NewStateMap(contracts.VolumeStateUnknown, map[string]contracts.VolumeState{
	"creating":          contracts.VolumeStateCreating,
	"downloading":       contracts.VolumeStateCreating,
	"restoring-backup":  contracts.VolumeStateCreating,
	"available":         contracts.VolumeStateAvailable,
	"reserved":          contracts.VolumeStateConfiguring,
	"attaching":         contracts.VolumeStateConfiguring,
	"detaching":         contracts.VolumeStateConfiguring,
	"maintenance":       contracts.VolumeStateConfiguring,
	"uploading":         contracts.VolumeStateConfiguring,
	"retyping":          contracts.VolumeStateConfiguring,
	"extending":         contracts.VolumeStateConfiguring,
	"backing-up":        contracts.VolumeStateConfiguring,
	"awaiting-transfer": contracts.VolumeStateConfiguring,
	"deleting":          contracts.VolumeStateConfiguring,
	"in-use":            contracts.VolumeStateInUse,
	"deleted":           contracts.VolumeStateDeleted,
	"error":             contracts.VolumeStateError,
	"error_deleting":    contracts.VolumeStateError,
	"error_backing-up":  contracts.VolumeStateError,
	"error_restoring":   contracts.VolumeStateError,
	"error_extending":   contracts.VolumeStateError,
})

var snapshotStates = contracts.NewStateMap(contracts.SnapshotStateUnknown, map[string]contracts.SnapshotState{
	"creating":       contracts.SnapshotStatePending,
	"available":      contracts.SnapshotStateAvailable,
	"backing-up":     contracts.SnapshotStateConfiguring,
	"restoring":      contracts.SnapshotStateConfiguring,
	"unmanaging":     contracts.SnapshotStateConfiguring,
	"deleting":       contracts.SnapshotStateConfiguring,
	"error":          contracts.SnapshotStateError,
	"error_deleting": contracts.SnapshotStateError,
})

// Glance image statuses
var imageStates = contracts.NewStateMap(contracts.MachineImageStateUnknown, map[string]contracts.MachineImageState{
	"queued":    contracts.MachineImageStatePending,
	"saving":    contracts.MachineImageStatePending,
	"uploading": contracts.MachineImageStatePending,
	"importing": contracts.MachineImageStatePending,
	"active":    contracts.MachineImageStateAvailable,
	"killed":    contracts.MachineImageStateError,
})

// Neutron network and subnet statuses
var networkStates = contracts.NewStateMap(contracts.NetworkStateUnknown, map[string]contracts.NetworkState{
	"BUILD":  contracts.NetworkStatePending,
	"ACTIVE": contracts.NetworkStateAvailable,
	"DOWN":   contracts.NetworkStateDown,
	"ERROR":  contracts.NetworkStateError,
})

// external network statuses, reported as gateway states
var gatewayStates = contracts.NewStateMap(contracts.GatewayStateUnknown, map[string]contracts.GatewayState{
	"BUILD":  contracts.GatewayStateConfiguring,
	"ACTIVE": contracts.GatewayStateAvailable,
	"DOWN":   contracts.GatewayStateError,
	"ERROR":  contracts.GatewayStateError,
})
