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
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	// usEast1 is the only region whose buckets carry no location constraint
	usEast1     = "us-east-1"
	maxS3Keys   = 1000
	objectIDSep = "/"
)

type bucketService struct {
	p       *Provider
	objects *objectService
}

func (s *bucketService) Get(ctx context.Context, id string) (*contracts.Bucket, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "get", id, func(ctx context.Context) (*contracts.Bucket, error) {
		if _, err := s.p.clients.S3.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(id)}); err != nil {
			return nil, err
		}
		loc, err := s.p.clients.S3.GetBucketLocationWithContext(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(id)})
		if err != nil {
			return nil, err
		}
		location := aws.StringValue(loc.LocationConstraint)
		if location == "" {
			location = usEast1
		}
		return &contracts.Bucket{Resource: contracts.Resource{ID: id, Name: id}, Location: location}, nil
	})
}

// List returns every bucket of the account. ListBuckets has no paging and
// reports no location, so Location is only filled in by Get.
func (s *bucketService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Bucket], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Bucket], error) {
		out, err := s.p.clients.S3.ListBucketsWithContext(ctx, &s3.ListBucketsInput{})
		if err != nil {
			return nil, err
		}
		buckets := make([]*contracts.Bucket, 0, len(out.Buckets))
		for _, b := range out.Buckets {
			name := aws.StringValue(b.Name)
			buckets = append(buckets, &contracts.Bucket{
				Resource: contracts.Resource{ID: name, Name: name, CreateTime: aws.TimeValue(b.CreationDate)},
			})
		}
		return common.Page(buckets, opts), nil
	})
}

func (s *bucketService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Bucket], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *bucketService) Create(ctx context.Context, name, location string) (*contracts.Bucket, error) {
	if err := contracts.ValidateBucketName(name); err != nil {
		return nil, err
	}
	if location == "" {
		location = s.p.region
	}
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if location != usEast1 {
		input.CreateBucketConfiguration = &s3.CreateBucketConfiguration{LocationConstraint: aws.String(location)}
	} else if err := s.ensureAbsent(ctx, name); err != nil {
		// us-east-1 answers 200 to a CreateBucket for a bucket the caller owns
		return nil, err
	}
	err := s.p.do(ctx, contracts.ServiceBuckets, "create", name, func(ctx context.Context) error {
		_, err := s.p.clients.S3.CreateBucketWithContext(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &contracts.Bucket{Resource: contracts.Resource{ID: name, Name: name}, Location: location}, nil
}

// ensureAbsent fails with Duplicate when the caller can already reach a
// bucket with that name
func (s *bucketService) ensureAbsent(ctx context.Context, name string) error {
	err := s.p.do(ctx, contracts.ServiceBuckets, "head", name, func(ctx context.Context) error {
		_, err := s.p.clients.S3.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
		return err
	})
	switch {
	case err == nil:
		return contracts.NewDuplicateError(fmt.Sprintf("bucket %q already exists", name), nil)
	case contracts.IsNotFound(err):
		return nil
	}
	return err
}

func (s *bucketService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceBuckets, "delete", id, func(ctx context.Context) error {
		_, err := s.p.clients.S3.DeleteBucketWithContext(ctx, &s3.DeleteBucketInput{Bucket: aws.String(id)})
		return err
	})
	return contracts.IgnoreNotFound(err)
}

func (s *bucketService) Objects() contracts.BucketObjectService { return s.objects }

type objectService struct{ p *Provider }

func objectResource(key string) contracts.Resource {
	return contracts.Resource{ID: key, Name: key}
}

func (s *objectService) Get(ctx context.Context, bucketID, key string) (*contracts.BucketObject, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "get_object", bucketID+objectIDSep+key, func(ctx context.Context) (*contracts.BucketObject, error) {
		out, err := s.p.clients.S3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucketID), Key: aws.String(key)})
		if err != nil {
			return nil, err
		}
		return &contracts.BucketObject{
			Resource:     objectResource(key),
			BucketID:     bucketID,
			Size:         aws.Int64Value(out.ContentLength),
			LastModified: aws.TimeValue(out.LastModified),
			ContentType:  aws.StringValue(out.ContentType),
		}, nil
	})
}

// List pages with ListObjectsV2 continuation tokens
func (s *objectService) List(ctx context.Context, bucketID, prefix string, opts paging.ListOptions) (*paging.ResultList[*contracts.BucketObject], error) {
	limit := min(paging.EffectiveLimit(opts.Limit), maxS3Keys)
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucketID),
		MaxKeys: aws.Int64(int64(limit)),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if opts.Marker != "" {
		input.ContinuationToken = aws.String(opts.Marker)
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceBuckets, "list_objects", bucketID, func(ctx context.Context) (*paging.ResultList[*contracts.BucketObject], error) {
		out, err := s.p.clients.S3.ListObjectsV2WithContext(ctx, input)
		if err != nil {
			return nil, err
		}
		objects := make([]*contracts.BucketObject, 0, len(out.Contents))
		for _, o := range out.Contents {
			objects = append(objects, &contracts.BucketObject{
				Resource:     objectResource(aws.StringValue(o.Key)),
				BucketID:     bucketID,
				Size:         aws.Int64Value(o.Size),
				LastModified: aws.TimeValue(o.LastModified),
			})
		}
		return paging.NewServerPagedResultList(objects, aws.StringValue(out.NextContinuationToken), aws.BoolValue(out.IsTruncated)), nil
	})
}

// Upload streams body through the multipart uploader
func (s *objectService) Upload(ctx context.Context, bucketID, key string, body io.Reader) (*contracts.BucketObject, error) {
	if key == "" {
		return nil, contracts.NewInvalidNameError(key, "object keys must not be empty")
	}
	log := logging.FromContext(ctx)
	rewinder := common.NewRewinder(body)
	err := s.p.do(ctx, contracts.ServiceBuckets, "upload_object", bucketID+objectIDSep+key, func(ctx context.Context) error {
		r, err := rewinder.Reader()
		if err != nil {
			return err
		}
		progress := common.NewProgressReader(r, -1, func(sent, _ int64) {
			log.V(3).Info("Upload progress", "bucket", bucketID, "key", key, "bytes", sent)
		})
		_, err = s.p.clients.Uploader.UploadWithContext(ctx, &s3manager.UploadInput{
			Bucket: aws.String(bucketID),
			Key:    aws.String(key),
			Body:   progress,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, bucketID, key)
}

func (s *objectService) Download(ctx context.Context, bucketID, key string, w io.Writer) error {
	var body io.ReadCloser
	err := s.p.do(ctx, contracts.ServiceBuckets, "download_object", bucketID+objectIDSep+key, func(ctx context.Context) error {
		out, err := s.p.clients.S3.GetObjectWithContext(ctx, &s3.GetObjectInput{Bucket: aws.String(bucketID), Key: aws.String(key)})
		if err != nil {
			return err
		}
		body = out.Body
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
	err := s.p.do(ctx, contracts.ServiceBuckets, "delete_object", bucketID+objectIDSep+key, func(ctx context.Context) error {
		_, err := s.p.clients.S3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucketID), Key: aws.String(key)})
		return err
	})
	return contracts.IgnoreNotFound(err)
}
