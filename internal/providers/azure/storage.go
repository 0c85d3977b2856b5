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

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// maxLUN is the highest logical unit number a data disk can take
const maxLUN = 63

// volumeService manages managed disks
type volumeService struct{ p *Provider }

func volumeState(props *armcompute.DiskProperties) contracts.VolumeState {
	if state := diskProvisioningStates.Lookup(deref(props.ProvisioningState)); state != contracts.VolumeStateUnknown {
		return state
	}
	return diskStates.Lookup(string(deref(props.DiskState)))
}

func toVolume(d *armcompute.Disk) *contracts.Volume {
	v := &contracts.Volume{Resource: resource(d.ID, d.Name, d.Tags), ZoneID: deref(d.Location)}
	v.Description = popTag(&v.Resource, descriptionTag)
	if len(d.Zones) > 0 {
		v.ZoneID = deref(d.Zones[0])
	}
	if props := d.Properties; props != nil {
		v.CreateTime = timeOf(props.TimeCreated)
		v.SizeGB = int(deref(props.DiskSizeGB))
		v.State = volumeState(props)
		if cd := props.CreationData; cd != nil && deref(cd.CreateOption) == armcompute.DiskCreateOptionCopy {
			v.SourceSnapshotID = deref(cd.SourceResourceID)
		}
	}
	if vm := deref(d.ManagedBy); vm != "" {
		v.Attachment = &contracts.Attachment{VolumeID: v.ID, InstanceID: vm}
	}
	return v
}

func (s *volumeService) Get(ctx context.Context, id string) (*contracts.Volume, error) {
	name, err := s.p.ref(id, typeDisks)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceVolumes, "get", name, func(ctx context.Context) (*contracts.Volume, error) {
		d, err := s.p.clients.Disks.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		return toVolume(d), nil
	})
}

func (s *volumeService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Volume], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVolumes, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Volume], error) {
		all, err := s.p.clients.Disks.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.Volume, 0, len(all))
		for _, d := range all {
			out = append(out, toVolume(d))
		}
		return common.Page(out, opts), nil
	})
}

func (s *volumeService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Volume], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create makes an empty disk, or copies a snapshot when one is named
func (s *volumeService) Create(ctx context.Context, req contracts.CreateVolumeRequest) (*contracts.Volume, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	creation := &armcompute.CreationData{CreateOption: to.Ptr(armcompute.DiskCreateOptionEmpty)}
	if req.SnapshotID != "" {
		snap, err := s.p.ref(req.SnapshotID, typeSnapshots)
		if err != nil {
			return nil, err
		}
		creation = &armcompute.CreationData{
			CreateOption:     to.Ptr(armcompute.DiskCreateOptionCopy),
			SourceResourceID: to.Ptr(s.p.resourceID(typeSnapshots, snap)),
		}
	} else if req.SizeGB <= 0 {
		return nil, contracts.NewInvalidValueError("an empty volume needs a size", nil)
	}
	disk := armcompute.Disk{
		Location: to.Ptr(s.p.region),
		Zones:    s.p.zoneOf(req.Zone),
		Tags:     tagsOf(req.Label, map[string]string{descriptionTag: req.Description}),
		SKU:      &armcompute.DiskSKU{Name: to.Ptr(armcompute.DiskStorageAccountTypesStandardLRS)},
		Properties: &armcompute.DiskProperties{
			CreationData: creation,
		},
	}
	if req.SizeGB > 0 {
		disk.Properties.DiskSizeGB = to.Ptr(int32(req.SizeGB))
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceVolumes, "create", name, func(ctx context.Context) (*contracts.Volume, error) {
		d, err := s.p.clients.Disks.CreateOrUpdate(ctx, name, disk)
		if err != nil {
			return nil, err
		}
		return toVolume(d), nil
	})
}

func (s *volumeService) Delete(ctx context.Context, id string) error {
	name, err := s.p.ref(id, typeDisks)
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceVolumes, "delete", name, func(ctx context.Context) error {
		return s.p.clients.Disks.Delete(ctx, name)
	})
	return contracts.IgnoreNotFound(err)
}

// parseLUN accepts an explicit "lunN" or "N" device; anything else lets
// the provider choose
func parseLUN(device string) (int32, bool) {
	n, err := strconv.Atoi(device)
	if err != nil {
		if _, scanErr := fmt.Sscanf(device, "lun%d", &n); scanErr != nil {
			return 0, false
		}
	}
	if n < 0 || n > maxLUN {
		return 0, false
	}
	return int32(n), true
}

// freeLUN returns the lowest logical unit number not taken by a data disk
func freeLUN(disks []*armcompute.DataDisk) (int32, error) {
	used := make(map[int32]bool, len(disks))
	for _, d := range disks {
		used[deref(d.Lun)] = true
	}
	for lun := int32(0); lun <= maxLUN; lun++ {
		if !used[lun] {
			return lun, nil
		}
	}
	return 0, contracts.NewInvalidValueError("instance has no free data disk slot", nil)
}

// Attach adds the disk to the data disks of the VM. Devices are logical
// unit numbers on Azure.
func (s *volumeService) Attach(ctx context.Context, id, instanceID, device string) error {
	vol, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if vol.Attachment != nil {
		return contracts.NewInvalidValueError(fmt.Sprintf("volume %s is already attached to %s", vol.Name, vol.Attachment.InstanceID), nil)
	}
	vmName, err := s.p.ref(instanceID, typeVirtualMachines)
	if err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceVolumes, "attach", vol.Name, func(ctx context.Context) error {
		vm, err := s.p.clients.VirtualMachines.Get(ctx, vmName)
		if err != nil {
			return err
		}
		if vm.Properties == nil || vm.Properties.StorageProfile == nil {
			return contracts.NewProviderInternalError(fmt.Sprintf("instance %s has no storage profile", vmName), nil)
		}
		sp := vm.Properties.StorageProfile
		lun, ok := parseLUN(device)
		if !ok {
			if lun, err = freeLUN(sp.DataDisks); err != nil {
				return err
			}
		}
		sp.DataDisks = append(sp.DataDisks, &armcompute.DataDisk{
			Lun:          to.Ptr(lun),
			Name:         to.Ptr(vol.Name),
			CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesAttach),
			ManagedDisk:  &armcompute.ManagedDiskParameters{ID: to.Ptr(vol.ID)},
		})
		vm.Properties.InstanceView = nil
		_, err = s.p.clients.VirtualMachines.CreateOrUpdate(ctx, vmName, *vm)
		return err
	})
}

// Detach removes the disk from the VM that manages it
func (s *volumeService) Detach(ctx context.Context, id string) error {
	vol, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if vol.Attachment == nil {
		return nil
	}
	vmName := nameOf(vol.Attachment.InstanceID)
	return s.p.do(ctx, contracts.ServiceVolumes, "detach", vol.Name, func(ctx context.Context) error {
		vm, err := s.p.clients.VirtualMachines.Get(ctx, vmName)
		if err != nil {
			return err
		}
		if vm.Properties == nil || vm.Properties.StorageProfile == nil {
			return nil
		}
		sp := vm.Properties.StorageProfile
		kept := sp.DataDisks[:0]
		for _, d := range sp.DataDisks {
			if d.ManagedDisk != nil && sameID(deref(d.ManagedDisk.ID), vol.ID) {
				continue
			}
			kept = append(kept, d)
		}
		sp.DataDisks = kept
		vm.Properties.InstanceView = nil
		_, err = s.p.clients.VirtualMachines.CreateOrUpdate(ctx, vmName, *vm)
		return err
	})
}

func (s *volumeService) CreateSnapshot(ctx context.Context, id, label, description string) (*contracts.Snapshot, error) {
	return s.p.storage.Snapshots.Create(ctx, contracts.CreateSnapshotRequest{VolumeID: id, Label: label, Description: description})
}

func (s *volumeService) SetLabel(ctx context.Context, id, label string) error {
	return setLabel(ctx, s.p, contracts.ServiceVolumes, s.p.clients.Disks, id, typeDisks, label,
		func(d *armcompute.Disk) *map[string]*string { return &d.Tags })
}

// snapshotService manages managed disk snapshots
type snapshotService struct{ p *Provider }

func toSnapshot(snap *armcompute.Snapshot) *contracts.Snapshot {
	s := &contracts.Snapshot{Resource: resource(snap.ID, snap.Name, snap.Tags)}
	s.Description = popTag(&s.Resource, descriptionTag)
	if props := snap.Properties; props != nil {
		s.CreateTime = timeOf(props.TimeCreated)
		s.SizeGB = int(deref(props.DiskSizeGB))
		s.State = snapshotStates.Lookup(deref(props.ProvisioningState))
		if props.CreationData != nil {
			s.VolumeID = deref(props.CreationData.SourceResourceID)
		}
	}
	return s
}

func (s *snapshotService) Get(ctx context.Context, id string) (*contracts.Snapshot, error) {
	name, err := s.p.ref(id, typeSnapshots)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceSnapshots, "get", name, func(ctx context.Context) (*contracts.Snapshot, error) {
		snap, err := s.p.clients.Snapshots.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		return toSnapshot(snap), nil
	})
}

func (s *snapshotService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Snapshot], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSnapshots, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Snapshot], error) {
		all, err := s.p.clients.Snapshots.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.Snapshot, 0, len(all))
		for _, snap := range all {
			out = append(out, toSnapshot(snap))
		}
		return common.Page(out, opts), nil
	})
}

func (s *snapshotService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Snapshot], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *snapshotService) Create(ctx context.Context, req contracts.CreateSnapshotRequest) (*contracts.Snapshot, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	vol, err := s.p.storage.Volumes.Get(ctx, req.VolumeID)
	if err != nil {
		return nil, err
	}
	snap := armcompute.Snapshot{
		Location: to.Ptr(s.p.region),
		Tags:     tagsOf(req.Label, map[string]string{descriptionTag: req.Description}),
		Properties: &armcompute.SnapshotProperties{
			CreationData: &armcompute.CreationData{
				CreateOption:     to.Ptr(armcompute.DiskCreateOptionCopy),
				SourceResourceID: to.Ptr(vol.ID),
			},
		},
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceSnapshots, "create", name, func(ctx context.Context) (*contracts.Snapshot, error) {
		created, err := s.p.clients.Snapshots.CreateOrUpdate(ctx, name, snap)
		if err != nil {
			return nil, err
		}
		return toSnapshot(created), nil
	})
}

func (s *snapshotService) Delete(ctx context.Context, id string) error {
	name, err := s.p.ref(id, typeSnapshots)
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceSnapshots, "delete", name, func(ctx context.Context) error {
		return s.p.clients.Snapshots.Delete(ctx, name)
	})
	return contracts.IgnoreNotFound(err)
}

// CreateVolume copies the snapshot into a new disk labelled after it
func (s *snapshotService) CreateVolume(ctx context.Context, id string, sizeGB int, zone string) (*contracts.Volume, error) {
	snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	label := snap.Label
	if label == "" {
		label = snap.Name
	}
	return s.p.storage.Volumes.Create(ctx, contracts.CreateVolumeRequest{
		Label:      label,
		SizeGB:     sizeGB,
		Zone:       zone,
		SnapshotID: snap.ID,
	})
}

func (s *snapshotService) SetLabel(ctx context.Context, id, label string) error {
	return setLabel(ctx, s.p, contracts.ServiceSnapshots, s.p.clients.Snapshots, id, typeSnapshots, label,
		func(snap *armcompute.Snapshot) *map[string]*string { return &snap.Tags })
}
