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
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"

	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// bucketService maps buckets onto the blob containers of the configured
// storage account
type bucketService struct {
	p       *Provider
	objects *objectService
}

func (p *Provider) blobs() (BlobAPI, error) {
	if p.clients.Blobs == nil {
		return nil, contracts.NewNotSupportedError("buckets need a configured storage account")
	}
	return p.clients.Blobs, nil
}

func (s *bucketService) toBucket(item *service.ContainerItem) *contracts.Bucket {
	name := deref(item.Name)
	b := &contracts.Bucket{
		Resource: contracts.Resource{ID: name, Name: name},
		Location: s.p.region,
	}
	if item.Properties != nil {
		b.CreateTime = timeOf(item.Properties.LastModified)
	}
	return b
}

func (s *bucketService) Get(ctx context.Context, id string) (*contracts.Bucket, error) {
	api, err := s.p.blobs()
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "get", id, func(ctx context.Context) (*contracts.Bucket, error) {
		item, err := api.GetContainer(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.toBucket(item), nil
	})
}

func (s *bucketService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Bucket], error) {
	api, err := s.p.blobs()
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Bucket], error) {
		items, err := api.ListContainers(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.Bucket, 0, len(items))
		for _, item := range items {
			out = append(out, s.toBucket(item))
		}
		return common.Page(out, opts), nil
	})
}

func (s *bucketService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Bucket], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create makes a container. Containers live in the storage account's
// region, so location is ignored. Container names cannot contain dots.
func (s *bucketService) Create(ctx context.Context, name, location string) (*contracts.Bucket, error) {
	if err := contracts.ValidateBucketName(name); err != nil {
		return nil, err
	}
	if strings.Contains(name, ".") {
		return nil, contracts.NewInvalidNameError(name, "container names must not contain dots")
	}
	api, err := s.p.blobs()
	if err != nil {
		return nil, err
	}
	if location != "" && location != s.p.region {
		logging.FromContext(ctx).V(1).Info("Ignoring bucket location; containers follow the storage account", "bucket", name, "location", location)
	}
	err = s.p.do(ctx, contracts.ServiceBuckets, "create", name, func(ctx context.Context) error {
		return api.CreateContainer(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, name)
}

func (s *bucketService) Delete(ctx context.Context, id string) error {
	api, err := s.p.blobs()
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceBuckets, "delete", id, func(ctx context.Context) error {
		return api.DeleteContainer(ctx, id)
	})
	return contracts.IgnoreNotFound(err)
}

func (s *bucketService) Objects() contracts.BucketObjectService { return s.objects }

type objectService struct{ p *Provider }

func toObject(bucketID string, item *container.BlobItem) *contracts.BucketObject {
	key := deref(item.Name)
	o := &contracts.BucketObject{
		Resource: contracts.Resource{ID: key, Name: key},
		BucketID: bucketID,
	}
	if props := item.Properties; props != nil {
		o.CreateTime = timeOf(props.CreationTime)
		o.LastModified = timeOf(props.LastModified)
		o.Size = deref(props.ContentLength)
		o.ContentType = deref(props.ContentType)
	}
	if len(item.Metadata) > 0 {
		o.Tags = make(map[string]string, len(item.Metadata))
		for k, v := range item.Metadata {
			o.Tags[k] = deref(v)
		}
	}
	return o
}

func objectID(bucketID, key string) string {
	return bucketID + "/" + key
}

func (s *objectService) Get(ctx context.Context, bucketID, key string) (*contracts.BucketObject, error) {
	api, err := s.p.blobs()
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "get_object", objectID(bucketID, key), func(ctx context.Context) (*contracts.BucketObject, error) {
		item, err := api.GetBlob(ctx, bucketID, key)
		if err != nil {
			return nil, err
		}
		return toObject(bucketID, item), nil
	})
}

func (s *objectService) List(ctx context.Context, bucketID, prefix string, opts paging.ListOptions) (*paging.ResultList[*contracts.BucketObject], error) {
	api, err := s.p.blobs()
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "list_objects", bucketID, func(ctx context.Context) (*paging.ResultList[*contracts.BucketObject], error) {
		items, err := api.ListBlobs(ctx, bucketID, prefix)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.BucketObject, 0, len(items))
		for _, item := range items {
			out = append(out, toObject(bucketID, item))
		}
		return common.Page(out, opts), nil
	})
}

func (s *objectService) Upload(ctx context.Context, bucketID, key string, body io.Reader) (*contracts.BucketObject, error) {
	if key == "" {
		return nil, contracts.NewInvalidNameError(key, "object keys must not be empty")
	}
	api, err := s.p.blobs()
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
		return api.Upload(ctx, bucketID, key, progress)
	})
	if err != nil {
		return nil, common.WrapTransferError("upload", bucketID, key, err)
	}
	return s.Get(ctx, bucketID, key)
}

// countingWriter records whether a download attempt already wrote output
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Download streams the blob into w. A failure after bytes were written is
// not retried, since w cannot be rewound.
func (s *objectService) Download(ctx context.Context, bucketID, key string, w io.Writer) error {
	api, err := s.p.blobs()
	if err != nil {
		return err
	}
	cw := &countingWriter{w: w}
	err = s.p.do(ctx, contracts.ServiceBuckets, "download_object", objectID(bucketID, key), func(ctx context.Context) error {
		err := api.Download(ctx, bucketID, key, cw)
		if err != nil && cw.n > 0 {
			return contracts.NewProviderInternalError(fmt.Sprintf("download interrupted after %d bytes", cw.n), err)
		}
		return err
	})
	return common.WrapTransferError("download", bucketID, key, err)
}

func (s *objectService) Delete(ctx context.Context, bucketID, key string) error {
	api, err := s.p.blobs()
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceBuckets, "delete_object", objectID(bucketID, key), func(ctx context.Context) error {
		return api.DeleteBlob(ctx, bucketID, key)
	})
	return contracts.IgnoreNotFound(err)
}
