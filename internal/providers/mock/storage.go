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

package mock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

type volumeService struct{ p *Provider }

func (s *volumeService) Get(ctx context.Context, id string) (*contracts.Volume, error) {
	var out *contracts.Volume
	err := s.p.do(ctx, contracts.ServiceVolumes, "get", id, func() error {
		vol, ok := s.p.volumes.get(id)
		if !ok {
			return contracts.NotFoundf("volume", id)
		}
		out = cloneVolume(vol)
		return nil
	})
	return out, err
}

func (s *volumeService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Volume], error) {
	var out *paging.ResultList[*contracts.Volume]
	err := s.p.do(ctx, contracts.ServiceVolumes, "list", "", func() error {
		out = common.Page(cloneVolumes(s.p.volumes.values()), opts)
		return nil
	})
	return out, err
}

func (s *volumeService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Volume], error) {
	var out *paging.ResultList[*contracts.Volume]
	err := s.p.do(ctx, contracts.ServiceVolumes, "find", "", func() error {
		out = paging.Find(cloneVolumes(s.p.volumes.values()), opts)
		return nil
	})
	return out, err
}

func (s *volumeService) Create(ctx context.Context, req contracts.CreateVolumeRequest) (*contracts.Volume, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	var out *contracts.Volume
	err = s.p.do(ctx, contracts.ServiceVolumes, "create", "", func() error {
		vol, err := s.p.createVolume(name, req)
		if err != nil {
			return err
		}
		out = cloneVolume(vol)
		return nil
	})
	return out, err
}

// createVolume adds a volume, optionally restored from a snapshot. Callers hold p.mu.
func (p *Provider) createVolume(name string, req contracts.CreateVolumeRequest) (*contracts.Volume, error) {
	size := req.SizeGB
	if req.SnapshotID != "" {
		snap, ok := p.snapshots.get(req.SnapshotID)
		if !ok {
			return nil, contracts.NotFoundf("snapshot", req.SnapshotID)
		}
		if size == 0 {
			size = snap.SizeGB
		}
		if size < snap.SizeGB {
			return nil, contracts.NewInvalidValueError(
				fmt.Sprintf("volume size %dGB is smaller than snapshot size %dGB", size, snap.SizeGB), nil)
		}
	}
	if size <= 0 {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid volume size %d", size), nil)
	}
	zone := req.Zone
	if zone == "" {
		zone = p.zone
	}

	id := p.generateID("vol")
	vol := &contracts.Volume{
		Resource:         contracts.Resource{ID: id, Name: name, Label: req.Label, CreateTime: p.now()},
		Description:      req.Description,
		SizeGB:           size,
		ZoneID:           zone,
		SourceSnapshotID: req.SnapshotID,
		State:            contracts.VolumeStateCreating,
	}
	p.volumes.put(id, vol)
	p.schedule(func() {
		if vol.State == contracts.VolumeStateCreating {
			vol.State = contracts.VolumeStateAvailable
		}
	})
	return vol, nil
}

func (s *volumeService) Delete(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceVolumes, "delete", id, func() error {
		vol, ok := s.p.volumes.get(id)
		if !ok {
			return nil
		}
		if vol.Attachment != nil {
			return contracts.NewInvalidValueError(fmt.Sprintf("volume %s is attached to %s", id, vol.Attachment.InstanceID), nil)
		}
		s.p.volumes.remove(id)
		return nil
	})
}

func (s *volumeService) Attach(ctx context.Context, id, instanceID, device string) error {
	return s.p.do(ctx, contracts.ServiceVolumes, "attach", id, func() error {
		vol, ok := s.p.volumes.get(id)
		if !ok {
			return contracts.NotFoundf("volume", id)
		}
		inst, ok := s.p.instances.get(instanceID)
		if !ok {
			return contracts.NotFoundf("instance", instanceID)
		}
		if vol.Attachment != nil {
			return contracts.NewInvalidValueError(fmt.Sprintf("volume %s is already attached to %s", id, vol.Attachment.InstanceID), nil)
		}
		if vol.ZoneID != inst.ZoneID {
			return contracts.NewInvalidValueError(fmt.Sprintf("volume %s is in zone %s but instance %s is in %s", id, vol.ZoneID, instanceID, inst.ZoneID), nil)
		}
		vol.Attachment = &contracts.Attachment{VolumeID: id, InstanceID: instanceID, Device: device}
		vol.State = contracts.VolumeStateInUse
		return nil
	})
}

func (s *volumeService) Detach(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceVolumes, "detach", id, func() error {
		vol, ok := s.p.volumes.get(id)
		if !ok {
			return contracts.NotFoundf("volume", id)
		}
		if vol.Attachment == nil {
			return contracts.NewInvalidValueError(fmt.Sprintf("volume %s is not attached", id), nil)
		}
		vol.Attachment = nil
		vol.State = contracts.VolumeStateAvailable
		return nil
	})
}

func (s *volumeService) CreateSnapshot(ctx context.Context, id, label, description string) (*contracts.Snapshot, error) {
	return s.p.storage.Snapshots.Create(ctx, contracts.CreateSnapshotRequest{VolumeID: id, Label: label, Description: description})
}

func (s *volumeService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceVolumes, "set_label", id, func() error {
		vol, ok := s.p.volumes.get(id)
		if !ok {
			return contracts.NotFoundf("volume", id)
		}
		vol.Label = label
		return nil
	})
}

func cloneVolume(vol *contracts.Volume) *contracts.Volume {
	c := cloneOf(vol)
	if vol.Attachment != nil {
		c.Attachment = cloneOf(vol.Attachment)
	}
	return c
}

func cloneVolumes(vols []*contracts.Volume) []*contracts.Volume {
	out := make([]*contracts.Volume, len(vols))
	for i, v := range vols {
		out[i] = cloneVolume(v)
	}
	return out
}

type snapshotService struct{ p *Provider }

func (s *snapshotService) Get(ctx context.Context, id string) (*contracts.Snapshot, error) {
	var out *contracts.Snapshot
	err := s.p.do(ctx, contracts.ServiceSnapshots, "get", id, func() error {
		snap, ok := s.p.snapshots.get(id)
		if !ok {
			return contracts.NotFoundf("snapshot", id)
		}
		out = cloneOf(snap)
		return nil
	})
	return out, err
}

func (s *snapshotService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Snapshot], error) {
	var out *paging.ResultList[*contracts.Snapshot]
	err := s.p.do(ctx, contracts.ServiceSnapshots, "list", "", func() error {
		out = common.Page(snapshotOf(s.p.snapshots.values()), opts)
		return nil
	})
	return out, err
}

func (s *snapshotService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Snapshot], error) {
	var out *paging.ResultList[*contracts.Snapshot]
	err := s.p.do(ctx, contracts.ServiceSnapshots, "find", "", func() error {
		out = paging.Find(snapshotOf(s.p.snapshots.values()), opts)
		return nil
	})
	return out, err
}

func (s *snapshotService) Create(ctx context.Context, req contracts.CreateSnapshotRequest) (*contracts.Snapshot, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	var out *contracts.Snapshot
	err = s.p.do(ctx, contracts.ServiceSnapshots, "create", req.VolumeID, func() error {
		p := s.p
		vol, ok := p.volumes.get(req.VolumeID)
		if !ok {
			return contracts.NotFoundf("volume", req.VolumeID)
		}
		id := p.generateID("snap")
		snap := &contracts.Snapshot{
			Resource:    contracts.Resource{ID: id, Name: name, Label: req.Label, CreateTime: p.now()},
			Description: req.Description,
			VolumeID:    vol.ID,
			SizeGB:      vol.SizeGB,
			State:       contracts.SnapshotStatePending,
		}
		p.snapshots.put(id, snap)
		p.schedule(func() { snap.State = contracts.SnapshotStateAvailable })
		out = cloneOf(snap)
		return nil
	})
	return out, err
}

func (s *snapshotService) Delete(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceSnapshots, "delete", id, func() error {
		s.p.snapshots.remove(id)
		return nil
	})
}

func (s *snapshotService) CreateVolume(ctx context.Context, id string, sizeGB int, zone string) (*contracts.Volume, error) {
	var out *contracts.Volume
	err := s.p.do(ctx, contracts.ServiceSnapshots, "create_volume", id, func() error {
		snap, ok := s.p.snapshots.get(id)
		if !ok {
			return contracts.NotFoundf("snapshot", id)
		}
		vol, err := s.p.createVolume(contracts.GenerateName(snap.Label), contracts.CreateVolumeRequest{
			Label:       snap.Label,
			SizeGB:      sizeGB,
			Zone:        zone,
			SnapshotID:  id,
			Description: "Restored from " + snap.Name,
		})
		if err != nil {
			return err
		}
		out = cloneVolume(vol)
		return nil
	})
	return out, err
}

func (s *snapshotService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceSnapshots, "set_label", id, func() error {
		snap, ok := s.p.snapshots.get(id)
		if !ok {
			return contracts.NotFoundf("snapshot", id)
		}
		snap.Label = label
		return nil
	})
}

type bucketService struct {
	p       *Provider
	objects *objectService
}

func (s *bucketService) Get(ctx context.Context, id string) (*contracts.Bucket, error) {
	var out *contracts.Bucket
	err := s.p.do(ctx, contracts.ServiceBuckets, "get", id, func() error {
		b, ok := s.p.buckets.get(id)
		if !ok {
			return contracts.NotFoundf("bucket", id)
		}
		out = cloneOf(b)
		return nil
	})
	return out, err
}

func (s *bucketService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Bucket], error) {
	var out *paging.ResultList[*contracts.Bucket]
	err := s.p.do(ctx, contracts.ServiceBuckets, "list", "", func() error {
		out = common.Page(snapshotOf(s.p.buckets.values()), opts)
		return nil
	})
	return out, err
}

func (s *bucketService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Bucket], error) {
	var out *paging.ResultList[*contracts.Bucket]
	err := s.p.do(ctx, contracts.ServiceBuckets, "find", "", func() error {
		out = paging.Find(snapshotOf(s.p.buckets.values()), opts)
		return nil
	})
	return out, err
}

func (s *bucketService) Create(ctx context.Context, name, location string) (*contracts.Bucket, error) {
	if err := contracts.ValidateBucketName(name); err != nil {
		return nil, err
	}
	var out *contracts.Bucket
	err := s.p.do(ctx, contracts.ServiceBuckets, "create", name, func() error {
		if _, ok := s.p.buckets.get(name); ok {
			return contracts.NewDuplicateError(fmt.Sprintf("bucket %q already exists", name), nil)
		}
		if location == "" {
			location = s.p.region
		}
		b := &contracts.Bucket{
			Resource: contracts.Resource{ID: name, Name: name, CreateTime: s.p.now()},
			Location: location,
		}
		s.p.buckets.put(name, b)
		s.p.objects[name] = newTable[object]()
		out = cloneOf(b)
		return nil
	})
	return out, err
}

func (s *bucketService) Delete(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceBuckets, "delete", id, func() error {
		if _, ok := s.p.buckets.get(id); !ok {
			return nil
		}
		if objs := s.p.objects[id]; objs != nil && objs.len() > 0 {
			return contracts.NewInvalidValueError(fmt.Sprintf("bucket %s is not empty", id), nil)
		}
		s.p.buckets.remove(id)
		delete(s.p.objects, id)
		return nil
	})
}

func (s *bucketService) Objects() contracts.BucketObjectService { return s.objects }

// object is a stored blob with its metadata
type object struct {
	meta contracts.BucketObject
	data []byte
}

type objectService struct{ p *Provider }

// bucketObjects returns the object table of a bucket. Callers hold p.mu.
func (s *objectService) bucketObjects(bucketID string) (*table[object], error) {
	if _, ok := s.p.buckets.get(bucketID); !ok {
		return nil, contracts.NotFoundf("bucket", bucketID)
	}
	return s.p.objects[bucketID], nil
}

func (s *objectService) Get(ctx context.Context, bucketID, key string) (*contracts.BucketObject, error) {
	var out *contracts.BucketObject
	err := s.p.do(ctx, contracts.ServiceBuckets, "get_object", bucketID+"/"+key, func() error {
		objs, err := s.bucketObjects(bucketID)
		if err != nil {
			return err
		}
		obj, ok := objs.get(key)
		if !ok {
			return contracts.NotFoundf("object", bucketID+"/"+key)
		}
		meta := obj.meta
		out = &meta
		return nil
	})
	return out, err
}

func (s *objectService) List(ctx context.Context, bucketID, prefix string, opts paging.ListOptions) (*paging.ResultList[*contracts.BucketObject], error) {
	var out *paging.ResultList[*contracts.BucketObject]
	err := s.p.do(ctx, contracts.ServiceBuckets, "list_objects", bucketID, func() error {
		objs, err := s.bucketObjects(bucketID)
		if err != nil {
			return err
		}
		var matched []*contracts.BucketObject
		for _, obj := range objs.values() {
			if strings.HasPrefix(obj.meta.Name, prefix) {
				meta := obj.meta
				matched = append(matched, &meta)
			}
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
		out = common.Page(matched, opts)
		return nil
	})
	return out, err
}

func (s *objectService) Upload(ctx context.Context, bucketID, key string, body io.Reader) (*contracts.BucketObject, error) {
	if key == "" {
		return nil, contracts.NewInvalidNameError(key, "object keys must not be empty")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, common.WrapTransferError("upload", bucketID, key, err)
	}
	var out *contracts.BucketObject
	err = s.p.do(ctx, contracts.ServiceBuckets, "upload_object", bucketID+"/"+key, func() error {
		objs, err := s.bucketObjects(bucketID)
		if err != nil {
			return err
		}
		now := s.p.now()
		obj := &object{
			meta: contracts.BucketObject{
				Resource:     contracts.Resource{ID: key, Name: key, CreateTime: now},
				BucketID:     bucketID,
				Size:         int64(len(data)),
				LastModified: now,
				ContentType:  http.DetectContentType(data),
			},
			data: data,
		}
		objs.put(key, obj)
		meta := obj.meta
		out = &meta
		return nil
	})
	return out, err
}

func (s *objectService) Download(ctx context.Context, bucketID, key string, w io.Writer) error {
	var data []byte
	err := s.p.do(ctx, contracts.ServiceBuckets, "download_object", bucketID+"/"+key, func() error {
		objs, err := s.bucketObjects(bucketID)
		if err != nil {
			return err
		}
		obj, ok := objs.get(key)
		if !ok {
			return contracts.NotFoundf("object", bucketID+"/"+key)
		}
		data = obj.data
		return nil
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(data))
	return common.WrapTransferError("download", bucketID, key, err)
}

func (s *objectService) Delete(ctx context.Context, bucketID, key string) error {
	return s.p.do(ctx, contracts.ServiceBuckets, "delete_object", bucketID+"/"+key, func() error {
		objs, err := s.bucketObjects(bucketID)
		if err != nil {
			return err
		}
		objs.remove(key)
		return nil
	})
}
