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

import (
	"context"
	"fmt"

	compute "google.golang.org/api/compute/v1"

	"github.com/CloudVE/cloudbridge-sub001/internal/gcpurl"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

type volumeService struct{ p *Provider }

func toVolume(d *compute.Disk) *contracts.Volume {
	label, tags := splitLabels(d.Labels)
	v := &contracts.Volume{
		Resource: contracts.Resource{
			ID:         d.SelfLink,
			Name:       d.Name,
			Label:      label,
			CreateTime: parseTime(d.CreationTimestamp),
			Tags:       tags,
		},
		Description:      d.Description,
		SizeGB:           int(d.SizeGb),
		ZoneID:           lastSegment(d.Zone),
		SourceSnapshotID: d.SourceSnapshot,
		State:            volumeStates.Lookup(d.Status),
	}
	if len(d.Users) > 0 {
		v.Attachment = &contracts.Attachment{VolumeID: d.SelfLink, InstanceID: d.Users[0], Device: d.Name}
		if v.State == contracts.VolumeStateAvailable {
			v.State = contracts.VolumeStateInUse
		}
	}
	return v
}

func (s *volumeService) fetch(ctx context.Context, id string) (*compute.Disk, error) {
	ref, err := s.p.ref(id, "disks")
	if err != nil {
		return nil, err
	}
	return s.p.clients.Compute.Disks.Get(ref.Project, ref.Zone, ref.Name).Context(ctx).Do()
}

func (s *volumeService) Get(ctx context.Context, id string) (*contracts.Volume, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVolumes, "get", id, func(ctx context.Context) (*contracts.Volume, error) {
		d, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		return toVolume(d), nil
	})
}

func (s *volumeService) page(ctx context.Context, filter string) pageFunc[*contracts.Volume] {
	return func(maxResults int64, token string) ([]*contracts.Volume, string, error) {
		call := s.p.clients.Compute.Disks.List(s.p.project, s.p.zone).MaxResults(maxResults).PageToken(token)
		if filter != "" {
			call = call.Filter(filter)
		}
		out, err := call.Context(ctx).Do()
		if err != nil {
			return nil, "", err
		}
		var items []*contracts.Volume
		for _, d := range out.Items {
			items = append(items, toVolume(d))
		}
		return items, out.NextPageToken, nil
	}
}

func (s *volumeService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Volume], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVolumes, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Volume], error) {
		return listPage(opts, s.page(ctx, ""))
	})
}

func (s *volumeService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Volume], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVolumes, "find", "", func(ctx context.Context) (*paging.ResultList[*contracts.Volume], error) {
		all, err := listAll(s.page(ctx, labelFilter(opts.Label)))
		if err != nil {
			return nil, err
		}
		return paging.Find(all, opts), nil
	})
}

func (s *volumeService) Create(ctx context.Context, req contracts.CreateVolumeRequest) (*contracts.Volume, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	zone := s.p.zoneOf(req.Zone)
	disk := &compute.Disk{
		Name:        name,
		SizeGb:      int64(req.SizeGB),
		Description: req.Description,
		Labels:      withLabel(nil, req.Label),
	}
	if req.SnapshotID != "" {
		snap, err := s.p.ref(req.SnapshotID, "snapshots")
		if err != nil {
			return nil, err
		}
		disk.SourceSnapshot = snap.String()
	} else if req.SizeGB <= 0 {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid volume size %d", req.SizeGB), nil)
	}

	err = s.p.mutate(ctx, contracts.ServiceVolumes, "create", name, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Disks.Insert(s.p.project, zone, disk).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	ref := gcpurl.ResourceURL{Project: s.p.project, Zone: zone, Collection: "disks", Name: name}
	return s.Get(ctx, ref.String())
}

func (s *volumeService) Delete(ctx context.Context, id string) error {
	ref, err := s.p.ref(id, "disks")
	if err != nil {
		return err
	}
	err = s.p.mutate(ctx, contracts.ServiceVolumes, "delete", id, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Disks.Delete(ref.Project, ref.Zone, ref.Name).Context(ctx).Do()
	})
	return contracts.IgnoreNotFound(err)
}

// Attach attaches the disk to an instance in the same zone; device becomes
// the disk's device name
func (s *volumeService) Attach(ctx context.Context, id, instanceID, device string) error {
	vol, err := s.p.ref(id, "disks")
	if err != nil {
		return err
	}
	inst, err := s.p.ref(instanceID, "instances")
	if err != nil {
		return err
	}
	if inst.Zone != vol.Zone {
		return contracts.NewInvalidValueError(fmt.Sprintf("disk %s is in %s but instance %s is in %s", vol.Name, vol.Zone, inst.Name, inst.Zone), nil)
	}
	attached := &compute.AttachedDisk{Source: vol.String(), DeviceName: gcpurl.Name(device)}
	return s.p.mutate(ctx, contracts.ServiceVolumes, "attach", id, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Instances.AttachDisk(inst.Project, inst.Zone, inst.Name, attached).Context(ctx).Do()
	})
}

// Detach detaches the disk from the instance using it; detaching an
// unattached disk is a no-op
func (s *volumeService) Detach(ctx context.Context, id string) error {
	return s.p.mutate(ctx, contracts.ServiceVolumes, "detach", id, func(ctx context.Context) (*compute.Operation, error) {
		d, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(d.Users) == 0 {
			return nil, nil
		}
		inst, err := gcpurl.Parse(d.Users[0])
		if err != nil {
			return nil, err
		}
		i, err := s.p.clients.Compute.Instances.Get(inst.Project, inst.Zone, inst.Name).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		for _, ad := range i.Disks {
			if ad.Source == d.SelfLink {
				return s.p.clients.Compute.Instances.DetachDisk(inst.Project, inst.Zone, inst.Name, ad.DeviceName).Context(ctx).Do()
			}
		}
		return nil, nil
	})
}

func (s *volumeService) CreateSnapshot(ctx context.Context, id, label, description string) (*contracts.Snapshot, error) {
	return s.p.storage.Snapshots.Create(ctx, contracts.CreateSnapshotRequest{VolumeID: id, Label: label, Description: description})
}

func (s *volumeService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	ref, err := s.p.ref(id, "disks")
	if err != nil {
		return err
	}
	return s.p.mutate(ctx, contracts.ServiceVolumes, "set_label", id, func(ctx context.Context) (*compute.Operation, error) {
		d, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.p.clients.Compute.Disks.SetLabels(ref.Project, ref.Zone, ref.Name, &compute.ZoneSetLabelsRequest{
			Labels:           withLabel(d.Labels, label),
			LabelFingerprint: d.LabelFingerprint,
		}).Context(ctx).Do()
	})
}

type snapshotService struct{ p *Provider }

func toSnapshot(snap *compute.Snapshot) *contracts.Snapshot {
	label, tags := splitLabels(snap.Labels)
	return &contracts.Snapshot{
		Resource: contracts.Resource{
			ID:         snap.SelfLink,
			Name:       snap.Name,
			Label:      label,
			CreateTime: parseTime(snap.CreationTimestamp),
			Tags:       tags,
		},
		Description: snap.Description,
		VolumeID:    snap.SourceDisk,
		SizeGB:      int(snap.DiskSizeGb),
		State:       snapshotStates.Lookup(snap.Status),
	}
}

func (s *snapshotService) fetch(ctx context.Context, id string) (*compute.Snapshot, error) {
	ref, err := s.p.ref(id, "snapshots")
	if err != nil {
		return nil, err
	}
	return s.p.clients.Compute.Snapshots.Get(ref.Project, ref.Name).Context(ctx).Do()
}

func (s *snapshotService) Get(ctx context.Context, id string) (*contracts.Snapshot, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSnapshots, "get", id, func(ctx context.Context) (*contracts.Snapshot, error) {
		snap, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		return toSnapshot(snap), nil
	})
}

func (s *snapshotService) page(ctx context.Context, filter string) pageFunc[*contracts.Snapshot] {
	return func(maxResults int64, token string) ([]*contracts.Snapshot, string, error) {
		call := s.p.clients.Compute.Snapshots.List(s.p.project).MaxResults(maxResults).PageToken(token)
		if filter != "" {
			call = call.Filter(filter)
		}
		out, err := call.Context(ctx).Do()
		if err != nil {
			return nil, "", err
		}
		var items []*contracts.Snapshot
		for _, snap := range out.Items {
			items = append(items, toSnapshot(snap))
		}
		return items, out.NextPageToken, nil
	}
}

func (s *snapshotService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Snapshot], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSnapshots, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Snapshot], error) {
		return listPage(opts, s.page(ctx, ""))
	})
}

func (s *snapshotService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Snapshot], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSnapshots, "find", "", func(ctx context.Context) (*paging.ResultList[*contracts.Snapshot], error) {
		all, err := listAll(s.page(ctx, labelFilter(opts.Label)))
		if err != nil {
			return nil, err
		}
		return paging.Find(all, opts), nil
	})
}

func (s *snapshotService) Create(ctx context.Context, req contracts.CreateSnapshotRequest) (*contracts.Snapshot, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	vol, err := s.p.ref(req.VolumeID, "disks")
	if err != nil {
		return nil, err
	}
	snap := &compute.Snapshot{Name: name, Description: req.Description, Labels: withLabel(nil, req.Label)}
	err = s.p.mutate(ctx, contracts.ServiceSnapshots, "create", name, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Disks.CreateSnapshot(vol.Project, vol.Zone, vol.Name, snap).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, name)
}

func (s *snapshotService) Delete(ctx context.Context, id string) error {
	ref, err := s.p.ref(id, "snapshots")
	if err != nil {
		return err
	}
	err = s.p.mutate(ctx, contracts.ServiceSnapshots, "delete", id, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Snapshots.Delete(ref.Project, ref.Name).Context(ctx).Do()
	})
	return contracts.IgnoreNotFound(err)
}

func (s *snapshotService) CreateVolume(ctx context.Context, id string, sizeGB int, zone string) (*contracts.Volume, error) {
	return s.p.storage.Volumes.Create(ctx, contracts.CreateVolumeRequest{SnapshotID: id, SizeGB: sizeGB, Zone: zone})
}

func (s *snapshotService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	ref, err := s.p.ref(id, "snapshots")
	if err != nil {
		return err
	}
	return s.p.mutate(ctx, contracts.ServiceSnapshots, "set_label", id, func(ctx context.Context) (*compute.Operation, error) {
		snap, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.p.clients.Compute.Snapshots.SetLabels(ref.Project, ref.Name, &compute.GlobalSetLabelsRequest{
			Labels:           withLabel(snap.Labels, label),
			LabelFingerprint: snap.LabelFingerprint,
		}).Context(ctx).Do()
	})
}
