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

import "github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"

var instanceStates = contracts.NewStateMap(contracts.InstanceStateUnknown, map[string]contracts.InstanceState{
	"pending":       contracts.InstanceStatePending,
	"running":       contracts.InstanceStateRunning,
	"shutting-down": contracts.InstanceStateConfiguring,
	"terminated":    contracts.InstanceStateDeleted,
	"stopping":      contracts.InstanceStateConfiguring,
	"stopped":       contracts.InstanceStateStopped,
})

var volumeStates = contracts.NewStateMap(contracts.VolumeStateUnknown, map[string]contracts.VolumeState{
	"creating":  contracts.VolumeStateCreating,
	"available": contracts.VolumeStateAvailable,
	"in-use":    contracts.VolumeStateInUse,
	"deleting":  contracts.VolumeStateConfiguring,
	"deleted":   contracts.VolumeStateDeleted,
	"error":     contracts.VolumeStateError,
})

var snapshotStates = contracts.NewStateMap(contracts.SnapshotStateUnknown, map[string]contracts.SnapshotState{
	"pending":     contracts.SnapshotStatePending,
	"completed":   contracts.SnapshotStateAvailable,
	"error":       contracts.SnapshotStateError,
	"recoverable": contracts.SnapshotStateError,
	"recovering":  contracts.SnapshotStateConfiguring,
})

var imageStates = contracts.NewStateMap(contracts.MachineImageStateUnknown, map[string]contracts.MachineImageState{
	"pending":      contracts.MachineImageStatePending,
	"transient":    contracts.MachineImageStatePending,
	"available":    contracts.MachineImageStateAvailable,
	"deregistered": contracts.MachineImageStateError,
	"failed":       contracts.MachineImageStateError,
	"error":        contracts.MachineImageStateError,
	"invalid":      contracts.MachineImageStateError,
})

// VPCs and subnets share the same two states
var networkStates = contracts.NewStateMap(contracts.NetworkStateUnknown, map[string]contracts.NetworkState{
	"pending":   contracts.NetworkStatePending,
	"available": contracts.NetworkStateAvailable,
})

var gatewayStates = contracts.NewStateMap(contracts.GatewayStateUnknown, map[string]contracts.GatewayState{
	"attaching": contracts.GatewayStateConfiguring,
	"attached":  contracts.GatewayStateAvailable,
	"available": contracts.GatewayStateAvailable,
	"detaching": contracts.GatewayStateConfiguring,
	"detached":  contracts.GatewayStateAvailable,
})
