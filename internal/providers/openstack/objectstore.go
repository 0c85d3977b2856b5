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
	"io"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/objectstorage/v1/containers"
	"github.com/gophercloud/gophercloud/openstack/objectstorage/v1/objects"

	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// Swift containers are buckets; they live in the region of the endpoint
type bucketService struct {
	p       *Provider
	objects *objectService
}

func (s *bucketService) client() (*gophercloud.ServiceClient, error) {
	return optional(s.p.clients.ObjectStorage, contracts.ServiceBuckets)
}

func (s *bucketService) toBucket(name string) *contracts.Bucket {
	return &contracts.Bucket{
		Resource: contracts.Resource{ID: name, Name: name},
		Location: s.p.region,
	}
}

func (s *bucketService) Get(ctx context.Context, id string) (*contracts.Bucket, error) {
	sc, err := s.client()
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "get", id, func(ctx context.Context) (*contracts.Bucket, error) {
		if _, err := containers.Get(sc, id, nil).Extract(); err != nil {
			return nil, err
		}
		return s.toBucket(id), nil
	})
}

func (s *bucketService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Bucket], error) {
	sc, err := s.client()
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Bucket], error) {
		page, err := firstPage(containers.List(sc, containers.ListOpts{
			Full:   true,
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), containers.ExtractInfo)
		if err != nil {
			return nil, err
		}
		return convertPage(page, opts, func(c *containers.Container) *contracts.Bucket {
			return s.toBucket(c.Name)
		}), nil
	})
}

func (s *bucketService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Bucket], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create fails with Duplicate when the container exists; a Swift PUT on an
// existing container would succeed silently. location is ignored.
func (s *bucketService) Create(ctx context.Context, name, location string) (*contracts.Bucket, error) {
	if err := contracts.ValidateBucketName(name); err != nil {
		return nil, err
	}
	sc, err := s.client()
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "create", name, func(ctx context.Context) (*contracts.Bucket, error) {
		_, err := containers.Get(sc, name, nil).Extract()
		switch {
		case err == nil:
			return nil, contracts.NewDuplicateError("bucket "+name+" already exists", nil)
		case !contracts.IsNotFound(translateError(err)):
			return nil, err
		}
		if _, err := containers.Create(sc, name, nil).Extract(); err != nil {
			return nil, err
		}
		return s.toBucket(name), nil
	})
}

// Delete removes an empty container; Swift answers 409 for a non-empty one
func (s *bucketService) Delete(ctx context.Context, id string) error {
	sc, err := s.client()
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceBuckets, "delete", id, func(ctx context.Context) error {
		_, err := containers.Delete(sc, id).Extract()
		return err
	})
	return contracts.IgnoreNotFound(err)
}

func (s *bucketService) Objects() contracts.BucketObjectService { return s.objects }

type objectService struct{ p *Provider }

func objectID(bucketID, key string) string {
	return bucketID + "/" + key
}

func toObject(bucketID string, o *objects.Object) *contracts.BucketObject {
	return &contracts.BucketObject{
		Resource:     contracts.Resource{ID: o.Name, Name: o.Name},
		BucketID:     bucketID,
		Size:         o.Bytes,
		LastModified: o.LastModified,
		ContentType:  o.ContentType,
	}
}

func (s *objectService) Get(ctx context.Context, bucketID, key string) (*contracts.BucketObject, error) {
	sc, err := optional(s.p.clients.ObjectStorage, contracts.ServiceBuckets)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "get_object", objectID(bucketID, key), func(ctx context.Context) (*contracts.BucketObject, error) {
		h, err := objects.Get(sc, bucketID, key, nil).Extract()
		if err != nil {
			return nil, err
		}
		return &contracts.BucketObject{
			Resource:     contracts.Resource{ID: key, Name: key},
			BucketID:     bucketID,
			Size:         h.ContentLength,
			LastModified: h.LastModified,
			ContentType:  h.ContentType,
		}, nil
	})
}

func (s *objectService) List(ctx context.Context, bucketID, prefix string, opts paging.ListOptions) (*paging.ResultList[*contracts.BucketObject], error) {
	sc, err := optional(s.p.clients.ObjectStorage, contracts.ServiceBuckets)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "list_objects", bucketID, func(ctx context.Context) (*paging.ResultList[*contracts.BucketObject], error) {
		page, err := firstPage(objects.List(sc, bucketID, objects.ListOpts{
			Full:   true,
			Prefix: prefix,
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), objects.ExtractInfo)
		if err != nil {
			return nil, err
		}
		return convertPage(page, opts, func(o *objects.Object) *contracts.BucketObject {
			return toObject(bucketID, o)
		}), nil
	})
}

func (s *objectService) Upload(ctx context.Context, bucketID, key string, body io.Reader) (*contracts.BucketObject, error) {
	if key == "" {
		return nil, contracts.NewInvalidNameError(key, "object keys must not be empty")
	}
	sc, err := optional(s.p.clients.ObjectStorage, contracts.ServiceBuckets)
	if err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx)
	rewinder := common.NewRewinder(body)
	err = s.p.do(ctx, contracts.ServiceBuckets, "upload_object", objectID(bucketID, key), func(ctx context.Context) error {
		r, err := rewinder.Reader()
		if err != nil {
			return err
		}
		progress := common.NewProgressReader(r, -1, func(sent, _ int64) {
			log.V(3).Info("Upload progress", "bucket", bucketID, "key", key, "bytes", sent)
		})
		if _, err := objects.Create(sc, bucketID, key, objects.CreateOpts{Content: progress}).Extract(); err != nil {
			return common.WrapTransferError("upload", bucketID, key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, bucketID, key)
}

func (s *objectService) Download(ctx context.Context, bucketID, key string, w io.Writer) error {
	sc, err := optional(s.p.clients.ObjectStorage, contracts.ServiceBuckets)
	if err != nil {
		return err
	}
	var body io.ReadCloser
	err = s.p.do(ctx, contracts.ServiceBuckets, "download_object", objectID(bucketID, key), func(ctx context.Context) error {
		res := objects.Download(sc, bucketID, key, nil)
		if res.Err != nil {
			return res.Err
		}
		body = res.Body
		return nil
	})
	if err != nil {
		return err
	}
	defer body.Close()
	_, err = io.Copy(w, body)
	return common.WrapTransferError("download", bucketID, key, err)
}

func (s *objectService) Delete(ctx context.Context, bucketID, key string) error {
	sc, err := optional(s.p.clients.ObjectStorage, contracts.ServiceBuckets)
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceBuckets, "delete_object", objectID(bucketID, key), func(ctx context.Context) error {
		_, err := objects.Delete(sc, bucketID, key, nil).Extract()
		return err
	})
	return contracts.IgnoreNotFound(err)
}
