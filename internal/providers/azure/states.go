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

import "github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"

// Power states from the VM instance view, without the "PowerState/" prefix
var powerStates = contracts.NewStateMap(contracts.InstanceStateUnknown, map[string]contracts.InstanceState{
	"starting":     contracts.InstanceStatePending,
	"running":      contracts.InstanceStateRunning,
	"stopping":     contracts.InstanceStateConfiguring,
	"stopped":      contracts.InstanceStateStopped,
	"deallocating": contracts.InstanceStateConfiguring,
	"deallocated":  contracts.InstanceStateStopped,
})

// VM provisioning states, used while no power state is reported
var vmProvisioningStates = contracts.NewStateMap(contracts.InstanceStateUnknown, map[string]contracts.InstanceState{
	"Creating":  contracts.InstanceStatePending,
	"Updating":  contracts.InstanceStateConfiguring,
	"Migrating": contracts.InstanceStateConfiguring,
	"Deleting":  contracts.InstanceStateDeleted,
	"Succeeded": contracts.InstanceStateRunning,
	"Failed":    contracts.InstanceStateError,
	"Canceled":  contracts.InstanceStateError,
})

// Managed disk states
var diskStates = contracts.NewStateMap(contracts.VolumeStateUnknown, map[string]contracts.VolumeState{
	"Unattached":      contracts.VolumeStateAvailable,
	"Attached":        contracts.VolumeStateInUse,
	"Reserved":        contracts.VolumeStateInUse,
	"Frozen":          contracts.VolumeStateConfiguring,
	"ActiveSAS":       contracts.VolumeStateConfiguring,
	"ActiveSASFrozen": contracts.VolumeStateConfiguring,
	"ReadyToUpload":   contracts.VolumeStateCreating,
	"ActiveUpload":    contracts.VolumeStateCreating,
})

// Disk provisioning states that override the disk state
var diskProvisioningStates = contracts.NewStateMap(contracts.VolumeStateUnknown, map[string]contracts.VolumeState{
	"Creating": contracts.VolumeStateCreating,
	"Updating": contracts.VolumeStateConfiguring,
	"Deleting": contracts.VolumeStateDeleted,
	"Failed":   contracts.VolumeStateError,
})

var snapshotStates = contracts.NewStateMap(contracts.SnapshotStateUnknown, map[string]contracts.SnapshotState{
	"Creating":  contracts.SnapshotStatePending,
	"Updating":  contracts.SnapshotStateConfiguring,
	"Deleting":  contracts.SnapshotStateConfiguring,
	"Succeeded": contracts.SnapshotStateAvailable,
	"Failed":    contracts.SnapshotStateError,
})

var imageStates = contracts.NewStateMap(contracts.MachineImageStateUnknown, map[string]contracts.MachineImageState{
	"Creating":  contracts.MachineImageStatePending,
	"Updating":  contracts.MachineImageStatePending,
	"Succeeded": contracts.MachineImageStateAvailable,
	"Failed":    contracts.MachineImageStateError,
})

// Network provisioning states, shared by virtual networks and subnets
var networkStates = contracts.NewStateMap(contracts.NetworkStateUnknown, map[string]contracts.NetworkState{
	"Updating":  contracts.NetworkStatePending,
	"Deleting":  contracts.NetworkStateDown,
	"Succeeded": contracts.NetworkStateAvailable,
	"Failed":    contracts.NetworkStateError,
})
