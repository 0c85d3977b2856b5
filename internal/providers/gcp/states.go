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

package gcp

import "github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"

var instanceStates = contracts.NewStateMap(contracts.InstanceStateUnknown, map[string]contracts.InstanceState{
	"PROVISIONING": contracts.InstanceStatePending,
	"STAGING":      contracts.InstanceStatePending,
	"RUNNING":      contracts.InstanceStateRunning,
	"STOPPING":     contracts.InstanceStateConfiguring,
	"SUSPENDING":   contracts.InstanceStateConfiguring,
	"SUSPENDED":    contracts.InstanceStateStopped,
	"STOPPED":      contracts.InstanceStateStopped,
	"TERMINATED":   contracts.InstanceStateStopped,
	"REPAIRING":    contracts.InstanceStateError,
})

// disk states; attached disks are reported in-use by toVolume
var volumeStates = contracts.NewStateMap(contracts.VolumeStateUnknown, map[string]contracts.VolumeState{
	"CREATING":  contracts.VolumeStateCreating,
	"RESTORING": contracts.VolumeStateCreating,
	"READY":     contracts.VolumeStateAvailable,
	"DELETING":  contracts.VolumeStateConfiguring,
	"FAILED":    contracts.VolumeStateError,
})

var snapshotStates = contracts.NewStateMap(contracts.SnapshotStateUnknown, map[string]contracts.SnapshotState{
	"CREATING":  contracts.SnapshotStatePending,
	"UPLOADING": contracts.SnapshotStatePending,
	"READY":     contracts.SnapshotStateAvailable,
	"DELETING":  contracts.SnapshotStateConfiguring,
	"FAILED":    contracts.SnapshotStateError,
})

var imageStates = contracts.NewStateMap(contracts.MachineImageStateUnknown, map[string]contracts.MachineImageState{
	"PENDING": contracts.MachineImageStatePending,
	"READY":   contracts.MachineImageStateAvailable,
	"FAILED":  contracts.MachineImageStateError,
})

var subnetStates = contracts.NewStateMap(contracts.NetworkStateAvailable, map[string]contracts.NetworkState{
	"DRAINING": contracts.NetworkStateDown,
	"READY":    contracts.NetworkStateAvailable,
})
