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
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// maxObjectResults is the largest page the JSON API returns
const maxObjectResults = 1000

type bucketService struct {
	p       *Provider
	objects *objectService
}

func toBucket(attrs *storage.BucketAttrs) *contracts.Bucket {
	label, tags := splitLabels(attrs.Labels)
	return &contracts.Bucket{
		Resource: contracts.Resource{
			ID:         attrs.Name,
			Name:       attrs.Name,
			Label:      label,
			CreateTime: attrs.Created,
			Tags:       tags,
		},
		Location: attrs.Location,
	}
}

func (s *bucketService) Get(ctx context.Context, id string) (*contracts.Bucket, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "get", id, func(ctx context.Context) (*contracts.Bucket, error) {
		attrs, err := s.p.clients.Storage.Bucket(id).Attrs(ctx)
		if err != nil {
			return nil, err
		}
		return toBucket(attrs), nil
	})
}

func (s *bucketService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Bucket], error) {
	limit := min(paging.EffectiveLimit(opts.Limit), maxObjectResults)
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Bucket], error) {
		var attrs []*storage.BucketAttrs
		next, err := iterator.NewPager(s.p.clients.Storage.Buckets(ctx, s.p.project), limit, opts.Marker).NextPage(&attrs)
		if err != nil {
			return nil, err
		}
		buckets := make([]*contracts.Bucket, 0, len(attrs))
		for _, a := range attrs {
			buckets = append(buckets, toBucket(a))
		}
		return paging.NewServerPagedResultList(buckets, next, next != ""), nil
	})
}

func (s *bucketService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Bucket], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create makes a bucket in location, or in the provider region when
// location is empty
func (s *bucketService) Create(ctx context.Context, name, location string) (*contracts.Bucket, error) {
	if err := contracts.ValidateBucketName(name); err != nil {
		return nil, err
	}
	if location == "" {
		location = s.p.region
	}
	err := s.p.do(ctx, contracts.ServiceBuckets, "create", name, func(ctx context.Context) error {
		return s.p.clients.Storage.Bucket(name).Create(ctx, s.p.project, &storage.BucketAttrs{Location: location})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, name)
}

func (s *bucketService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceBuckets, "delete", id, func(ctx context.Context) error {
		return s.p.clients.Storage.Bucket(id).Delete(ctx)
	})
	return contracts.IgnoreNotFound(err)
}

func (s *bucketService) Objects() contracts.BucketObjectService { return s.objects }

type objectService struct{ p *Provider }

func toObject(bucketID string, attrs *storage.ObjectAttrs) *contracts.BucketObject {
	return &contracts.BucketObject{
		Resource:     contracts.Resource{ID: attrs.Name, Name: attrs.Name, CreateTime: attrs.Created, Tags: attrs.Metadata},
		BucketID:     bucketID,
		Size:         attrs.Size,
		LastModified: attrs.Updated,
		ContentType:  attrs.ContentType,
	}
}

func objectID(bucketID, key string) string {
	return bucketID + "/" + key
}

func (s *objectService) Get(ctx context.Context, bucketID, key string) (*contracts.BucketObject, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "get_object", objectID(bucketID, key), func(ctx context.Context) (*contracts.BucketObject, error) {
		attrs, err := s.p.clients.Storage.Bucket(bucketID).Object(key).Attrs(ctx)
		if err != nil {
			return nil, err
		}
		return toObject(bucketID, attrs), nil
	})
}

func (s *objectService) List(ctx context.Context, bucketID, prefix string, opts paging.ListOptions) (*paging.ResultList[*contracts.BucketObject], error) {
	limit := min(paging.EffectiveLimit(opts.Limit), maxObjectResults)
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "list_objects", bucketID, func(ctx context.Context) (*paging.ResultList[*contracts.BucketObject], error) {
		it := s.p.clients.Storage.Bucket(bucketID).Objects(ctx, &storage.Query{Prefix: prefix})
		var attrs []*storage.ObjectAttrs
		next, err := iterator.NewPager(it, limit, opts.Marker).NextPage(&attrs)
		if err != nil {
			return nil, err
		}
		objects := make([]*contracts.BucketObject, 0, len(attrs))
		for _, a := range attrs {
			objects = append(objects, toObject(bucketID, a))
		}
		return paging.NewServerPagedResultList(objects, next, next != ""), nil
	})
}

func (s *objectService) Upload(ctx context.Context, bucketID, key string, body io.Reader) (*contracts.BucketObject, error) {
	if key == "" {
		return nil, contracts.NewInvalidNameError(key, "object keys must not be empty")
	}
	log := logging.FromContext(ctx)
	rewinder := common.NewRewinder(body)
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "upload_object", objectID(bucketID, key), func(ctx context.Context) (*contracts.BucketObject, error) {
		r, err := rewinder.Reader()
		if err != nil {
			return nil, err
		}
		progress := common.NewProgressReader(r, -1, func(sent, _ int64) {
			log.V(3).Info("Upload progress", "bucket", bucketID, "key", key, "bytes", sent)
		})
		w := s.p.clients.Storage.Bucket(bucketID).Object(key).NewWriter(ctx)
		if _, err := io.Copy(w, progress); err != nil {
			_ = w.Close()
			return nil, common.WrapTransferError("upload", bucketID, key, err)
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return toObject(bucketID, w.Attrs()), nil
	})
}

func (s *objectService) Download(ctx context.Context, bucketID, key string, w io.Writer) error {
	var body *storage.Reader
	err := s.p.do(ctx, contracts.ServiceBuckets, "download_object", objectID(bucketID, key), func(ctx context.Context) error {
		r, err := s.p.clients.Storage.Bucket(bucketID).Object(key).NewReader(ctx)
		if err != nil {
			return err
		}
		body = r
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
	err := s.p.do(ctx, contracts.ServiceBuckets, "delete_object", objectID(bucketID, key), func(ctx context.Context) error {
		err := s.p.clients.Storage.Bucket(bucketID).Object(key).Delete(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return err
	})
	return contracts.IgnoreNotFound(err)
}
