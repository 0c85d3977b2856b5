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

import (
	"context"
	"fmt"
	"maps"

	"github.com/gophercloud/gophercloud/openstack/blockstorage/v3/snapshots"
	"github.com/gophercloud/gophercloud/openstack/blockstorage/v3/volumes"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/volumeattach"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

type volumeService struct{ p *Provider }

func toVolume(v *volumes.Volume) *contracts.Volume {
	label, tags := splitMetadata(v.Metadata)
	vol := &contracts.Volume{
		Resource: contracts.Resource{
			ID:         v.ID,
			Name:       v.Name,
			Label:      label,
			CreateTime: v.CreatedAt,
			Tags:       tags,
		},
		Description:      v.Description,
		SizeGB:           v.Size,
		ZoneID:           v.AvailabilityZone,
		SourceSnapshotID: v.SnapshotID,
		State:            volumeStates.Lookup(v.Status),
	}
	if len(v.Attachments) > 0 {
		a := v.Attachments[0]
		vol.Attachment = &contracts.Attachment{VolumeID: v.ID, InstanceID: a.ServerID, Device: a.Device}
	}
	return vol
}

func (s *volumeService) Get(ctx context.Context, id string) (*contracts.Volume, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVolumes, "get", id, func(ctx context.Context) (*contracts.Volume, error) {
		v, err := volumes.Get(s.p.clients.BlockStorage, id).Extract()
		if err != nil {
			return nil, err
		}
		return toVolume(v), nil
	})
}

func (s *volumeService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Volume], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVolumes, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Volume], error) {
		page, err := firstPage(volumes.List(s.p.clients.BlockStorage, volumes.ListOpts{
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), volumes.ExtractVolumes)
		if err != nil {
			return nil, err
		}
		return convertPage(page, opts, toVolume), nil
	})
}

func (s *volumeService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Volume], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *volumeService) Create(ctx context.Context, req contracts.CreateVolumeRequest) (*contracts.Volume, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	if req.SizeGB < 0 || (req.SizeGB == 0 && req.SnapshotID == "") {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid volume size %d", req.SizeGB), nil)
	}
	zone := req.Zone
	if zone == "" {
		zone = s.p.zone
	}
	size := req.SizeGB
	if size == 0 {
		snap, err := s.p.storage.Snapshots.Get(ctx, req.SnapshotID)
		if err != nil {
			return nil, err
		}
		size = snap.SizeGB
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceVolumes, "create", name, func(ctx context.Context) (*contracts.Volume, error) {
		v, err := volumes.Create(s.p.clients.BlockStorage, volumes.CreateOpts{
			Name:             name,
			Size:             size,
			Description:      req.Description,
			AvailabilityZone: zone,
			SnapshotID:       req.SnapshotID,
			Metadata:         labelMetadata(req.Label),
		}).Extract()
		if err != nil {
			return nil, err
		}
		return toVolume(v), nil
	})
}

func (s *volumeService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceVolumes, "delete", id, func(ctx context.Context) error {
		return volumes.Delete(s.p.clients.BlockStorage, id, volumes.DeleteOpts{}).ExtractErr()
	})
	return contracts.IgnoreNotFound(err)
}

// Attach goes through Nova, which reserves the volume in Cinder
func (s *volumeService) Attach(ctx context.Context, id, instanceID, device string) error {
	return s.p.do(ctx, contracts.ServiceVolumes, "attach", id, func(ctx context.Context) error {
		_, err := volumeattach.Create(s.p.clients.Compute, instanceID, volumeattach.CreateOpts{
			VolumeID: id,
			Device:   device,
		}).Extract()
		return err
	})
}

func (s *volumeService) Detach(ctx context.Context, id string) error {
	vol, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if vol.Attachment == nil {
		return nil
	}
	return s.p.do(ctx, contracts.ServiceVolumes, "detach", id, func(ctx context.Context) error {
		return volumeattach.Delete(s.p.clients.Compute, vol.Attachment.InstanceID, id).ExtractErr()
	})
}

func (s *volumeService) CreateSnapshot(ctx context.Context, id, label, description string) (*contracts.Snapshot, error) {
	return s.p.storage.Snapshots.Create(ctx, contracts.CreateSnapshotRequest{VolumeID: id, Label: label, Description: description})
}

// SetLabel rewrites the volume metadata. Cinder replaces the whole map on
// update, so the other keys are sent back unchanged.
func (s *volumeService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceVolumes, "set_label", id, func(ctx context.Context) error {
		v, err := volumes.Get(s.p.clients.BlockStorage, id).Extract()
		if err != nil {
			return err
		}
		md := maps.Clone(v.Metadata)
		if md == nil {
			md = make(map[string]string)
		}
		md[labelKey] = label
		_, err = volumes.Update(s.p.clients.BlockStorage, id, volumes.UpdateOpts{Metadata: md}).Extract()
		return err
	})
}

type snapshotService struct{ p *Provider }

func toSnapshot(snap *snapshots.Snapshot) *contracts.Snapshot {
	label, tags := splitMetadata(snap.Metadata)
	return &contracts.Snapshot{
		Resource: contracts.Resource{
			ID:         snap.ID,
			Name:       snap.Name,
			Label:      label,
			CreateTime: snap.CreatedAt,
			Tags:       tags,
		},
		Description: snap.Description,
		VolumeID:    snap.VolumeID,
		SizeGB:      snap.Size,
		State:       snapshotStates.Lookup(snap.Status),
	}
}

func (s *snapshotService) Get(ctx context.Context, id string) (*contracts.Snapshot, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSnapshots, "get", id, func(ctx context.Context) (*contracts.Snapshot, error) {
		snap, err := snapshots.Get(s.p.clients.BlockStorage, id).Extract()
		if err != nil {
			return nil, err
		}
		return toSnapshot(snap), nil
	})
}

func (s *snapshotService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Snapshot], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSnapshots, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Snapshot], error) {
		page, err := firstPage(snapshots.List(s.p.clients.BlockStorage, snapshots.ListOpts{
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), snapshots.ExtractSnapshots)
		if err != nil {
			return nil, err
		}
		return convertPage(page, opts, toSnapshot), nil
	})
}

func (s *snapshotService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Snapshot], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create snapshots the volume even while it is attached
func (s *snapshotService) Create(ctx context.Context, req contracts.CreateSnapshotRequest) (*contracts.Snapshot, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	if req.VolumeID == "" {
		return nil, contracts.NewInvalidValueError("a volume ID is required", nil)
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceSnapshots, "create", name, func(ctx context.Context) (*contracts.Snapshot, error) {
		snap, err := snapshots.Create(s.p.clients.BlockStorage, snapshots.CreateOpts{
			VolumeID:    req.VolumeID,
			Name:        name,
			Description: req.Description,
			Force:       true,
			Metadata:    labelMetadata(req.Label),
		}).Extract()
		if err != nil {
			return nil, err
		}
		return toSnapshot(snap), nil
	})
}

func (s *snapshotService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceSnapshots, "delete", id, func(ctx context.Context) error {
		return snapshots.Delete(s.p.clients.BlockStorage, id).ExtractErr()
	})
	return contracts.IgnoreNotFound(err)
}

func (s *snapshotService) CreateVolume(ctx context.Context, id string, sizeGB int, zone string) (*contracts.Volume, error) {
	snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sizeGB == 0 {
		sizeGB = snap.SizeGB
	}
	return s.p.storage.Volumes.Create(ctx, contracts.CreateVolumeRequest{
		Label:      snap.Label,
		SizeGB:     sizeGB,
		Zone:       zone,
		SnapshotID: id,
	})
}

// SetLabel replaces the snapshot metadata with the label merged in
func (s *snapshotService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceSnapshots, "set_label", id, func(ctx context.Context) error {
		snap, err := snapshots.Get(s.p.clients.BlockStorage, id).Extract()
		if err != nil {
			return err
		}
		md := make(map[string]interface{}, len(snap.Metadata)+1)
		for k, v := range snap.Metadata {
			md[k] = v
		}
		md[labelKey] = label
		_, err = snapshots.UpdateMetadata(s.p.clients.BlockStorage, id, snapshots.UpdateMetadataOpts{Metadata: md}).ExtractMetadata()
		return err
	})
}
