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

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// defaultDevice is used when Attach is called without a device name
const defaultDevice = "/dev/sdf"

type volumeService struct{ p *Provider }

func toVolume(v *ec2.Volume) *contracts.Volume {
	res := resource(aws.StringValue(v.VolumeId), v.Tags)
	res.CreateTime = aws.TimeValue(v.CreateTime)
	description := res.Tags[descriptionTag]
	delete(res.Tags, descriptionTag)

	vol := &contracts.Volume{
		Resource:         res,
		Description:      description,
		SizeGB:           int(aws.Int64Value(v.Size)),
		ZoneID:           aws.StringValue(v.AvailabilityZone),
		SourceSnapshotID: aws.StringValue(v.SnapshotId),
		State:            volumeStates.Lookup(aws.StringValue(v.State)),
	}
	for _, a := range v.Attachments {
		switch aws.StringValue(a.State) {
		case ec2.VolumeAttachmentStateAttached, ec2.VolumeAttachmentStateAttaching:
			vol.Attachment = &contracts.Attachment{
				VolumeID:   vol.ID,
				InstanceID: aws.StringValue(a.InstanceId),
				Device:     aws.StringValue(a.Device),
			}
		}
	}
	return vol
}

func (s *volumeService) describe(ctx context.Context, input *ec2.DescribeVolumesInput) ([]*contracts.Volume, *string, error) {
	out, err := s.p.clients.EC2.DescribeVolumesWithContext(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	vols := make([]*contracts.Volume, 0, len(out.Volumes))
	for _, v := range out.Volumes {
		vols = append(vols, toVolume(v))
	}
	return vols, out.NextToken, nil
}

func (s *volumeService) Get(ctx context.Context, id string) (*contracts.Volume, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVolumes, "get", id, func(ctx context.Context) (*contracts.Volume, error) {
		vols, _, err := s.describe(ctx, &ec2.DescribeVolumesInput{VolumeIds: aws.StringSlice([]string{id})})
		if err != nil {
			return nil, err
		}
		return firstOrNotFound(vols, "volume", id)
	})
}

func (s *volumeService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Volume], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVolumes, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Volume], error) {
		return listEC2(opts, ec2Paging, func(maxResults *int64, token *string) ([]*contracts.Volume, *string, error) {
			return s.describe(ctx, &ec2.DescribeVolumesInput{MaxResults: maxResults, NextToken: token})
		})
	})
}

func (s *volumeService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Volume], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *volumeService) Create(ctx context.Context, req contracts.CreateVolumeRequest) (*contracts.Volume, error) {
	if err := contracts.ValidateLabel(req.Label); err != nil {
		return nil, err
	}
	if req.SizeGB < 0 || (req.SizeGB == 0 && req.SnapshotID == "") {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid volume size %d", req.SizeGB), nil)
	}
	zone := req.Zone
	if zone == "" {
		zone = s.p.zone
	}
	input := &ec2.CreateVolumeInput{
		AvailabilityZone:  aws.String(zone),
		TagSpecifications: tagSpec(ec2.ResourceTypeVolume, req.Label, map[string]string{descriptionTag: req.Description}),
	}
	if req.SizeGB > 0 {
		input.Size = aws.Int64(int64(req.SizeGB))
	}
	if req.SnapshotID != "" {
		input.SnapshotId = aws.String(req.SnapshotID)
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceVolumes, "create", "", func(ctx context.Context) (*contracts.Volume, error) {
		v, err := s.p.clients.EC2.CreateVolumeWithContext(ctx, input)
		if err != nil {
			return nil, err
		}
		return toVolume(v), nil
	})
}

func (s *volumeService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceVolumes, "delete", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.DeleteVolumeWithContext(ctx, &ec2.DeleteVolumeInput{VolumeId: aws.String(id)})
		return err
	})
	return contracts.IgnoreNotFound(err)
}

func (s *volumeService) Attach(ctx context.Context, id, instanceID, device string) error {
	if device == "" {
		device = defaultDevice
	}
	return s.p.do(ctx, contracts.ServiceVolumes, "attach", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.AttachVolumeWithContext(ctx, &ec2.AttachVolumeInput{
			VolumeId:   aws.String(id),
			InstanceId: aws.String(instanceID),
			Device:     aws.String(device),
		})
		return err
	})
}

func (s *volumeService) Detach(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceVolumes, "detach", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.DetachVolumeWithContext(ctx, &ec2.DetachVolumeInput{VolumeId: aws.String(id)})
		return err
	})
}

func (s *volumeService) CreateSnapshot(ctx context.Context, id, label, description string) (*contracts.Snapshot, error) {
	return s.p.storage.Snapshots.Create(ctx, contracts.CreateSnapshotRequest{VolumeID: id, Label: label, Description: description})
}

func (s *volumeService) SetLabel(ctx context.Context, id, label string) error {
	return s.p.setLabel(ctx, contracts.ServiceVolumes, id, label)
}

type snapshotService struct{ p *Provider }

func toSnapshot(snap *ec2.Snapshot) *contracts.Snapshot {
	res := resource(aws.StringValue(snap.SnapshotId), snap.Tags)
	res.CreateTime = aws.TimeValue(snap.StartTime)
	return &contracts.Snapshot{
		Resource:    res,
		Description: aws.StringValue(snap.Description),
		VolumeID:    aws.StringValue(snap.VolumeId),
		SizeGB:      int(aws.Int64Value(snap.VolumeSize)),
		State:       snapshotStates.Lookup(aws.StringValue(snap.State)),
	}
}

func (s *snapshotService) describe(ctx context.Context, input *ec2.DescribeSnapshotsInput) ([]*contracts.Snapshot, *string, error) {
	out, err := s.p.clients.EC2.DescribeSnapshotsWithContext(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	snaps := make([]*contracts.Snapshot, 0, len(out.Snapshots))
	for _, snap := range out.Snapshots {
		snaps = append(snaps, toSnapshot(snap))
	}
	return snaps, out.NextToken, nil
}

func (s *snapshotService) Get(ctx context.Context, id string) (*contracts.Snapshot, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSnapshots, "get", id, func(ctx context.Context) (*contracts.Snapshot, error) {
		snaps, _, err := s.describe(ctx, &ec2.DescribeSnapshotsInput{SnapshotIds: aws.StringSlice([]string{id})})
		if err != nil {
			return nil, err
		}
		return firstOrNotFound(snaps, "snapshot", id)
	})
}

// List returns the snapshots owned by the account
func (s *snapshotService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Snapshot], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSnapshots, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Snapshot], error) {
		return listEC2(opts, ec2Paging, func(maxResults *int64, token *string) ([]*contracts.Snapshot, *string, error) {
			return s.describe(ctx, &ec2.DescribeSnapshotsInput{
				OwnerIds:   aws.StringSlice([]string{"self"}),
				MaxResults: maxResults,
				NextToken:  token,
			})
		})
	})
}

func (s *snapshotService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Snapshot], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *snapshotService) Create(ctx context.Context, req contracts.CreateSnapshotRequest) (*contracts.Snapshot, error) {
	if err := contracts.ValidateLabel(req.Label); err != nil {
		return nil, err
	}
	input := &ec2.CreateSnapshotInput{
		VolumeId:          aws.String(req.VolumeID),
		TagSpecifications: tagSpec(ec2.ResourceTypeSnapshot, req.Label, nil),
	}
	if req.Description != "" {
		input.Description = aws.String(req.Description)
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceSnapshots, "create", req.VolumeID, func(ctx context.Context) (*contracts.Snapshot, error) {
		snap, err := s.p.clients.EC2.CreateSnapshotWithContext(ctx, input)
		if err != nil {
			return nil, err
		}
		return toSnapshot(snap), nil
	})
}

func (s *snapshotService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceSnapshots, "delete", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.DeleteSnapshotWithContext(ctx, &ec2.DeleteSnapshotInput{SnapshotId: aws.String(id)})
		return err
	})
	return contracts.IgnoreNotFound(err)
}

func (s *snapshotService) CreateVolume(ctx context.Context, id string, sizeGB int, zone string) (*contracts.Volume, error) {
	snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sizeGB != 0 && sizeGB < snap.SizeGB {
		return nil, contracts.NewInvalidValueError(
			fmt.Sprintf("volume size %dGB is smaller than snapshot size %dGB", sizeGB, snap.SizeGB), nil)
	}
	return s.p.storage.Volumes.Create(ctx, contracts.CreateVolumeRequest{
		Label:       snap.Label,
		SizeGB:      sizeGB,
		Zone:        zone,
		SnapshotID:  id,
		Description: "Restored from " + id,
	})
}

func (s *snapshotService) SetLabel(ctx context.Context, id, label string) error {
	return s.p.setLabel(ctx, contracts.ServiceSnapshots, id, label)
}
