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

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	// labelTag holds the cloudbridge label of EC2 resources
	labelTag = "Name"
	// descriptionTag holds descriptions of resources without a native field
	descriptionTag = "Description"
	// defaultNetworkTag marks the network created for instances launched without a subnet
	defaultNetworkTag = "cloudbridge-default"
)

// pageBounds is the MaxResults range an EC2 Describe call accepts
type pageBounds struct{ min, max int }

var (
	ec2Paging          = pageBounds{min: 5, max: 1000}
	instanceTypePaging = pageBounds{min: 5, max: 100}
)

// fetchFunc fetches one vendor page; a nil maxResults asks for the API default
type fetchFunc[T any] func(maxResults *int64, token *string) ([]T, *string, error)

// listEC2 uses the API's own paging when the requested page size is one
// EC2 accepts and otherwise fetches the whole collection and pages locally
func listEC2[T paging.Identifiable](opts paging.ListOptions, bounds pageBounds, fetch fetchFunc[T]) (*paging.ResultList[T], error) {
	limit := paging.EffectiveLimit(opts.Limit)
	if limit >= bounds.min && limit <= bounds.max {
		var token *string
		if opts.Marker != "" {
			token = aws.String(opts.Marker)
		}
		items, next, err := fetch(aws.Int64(int64(limit)), token)
		if err != nil {
			return nil, err
		}
		return paging.NewServerPagedResultList(items, aws.StringValue(next), aws.StringValue(next) != ""), nil
	}

	all, err := fetchAll(bounds, fetch)
	if err != nil {
		return nil, err
	}
	return paging.NewClientPagedResultList(all, limit, opts.Marker), nil
}

// fetchAll follows NextToken until the collection is exhausted
func fetchAll[T any](bounds pageBounds, fetch fetchFunc[T]) ([]T, error) {
	var all []T
	var token *string
	for {
		items, next, err := fetch(aws.Int64(int64(bounds.max)), token)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if aws.StringValue(next) == "" {
			return all, nil
		}
		token = next
	}
}

func filter(name string, values ...string) *ec2.Filter {
	return &ec2.Filter{Name: aws.String(name), Values: aws.StringSlice(values)}
}

// splitTags separates the label from the remaining tags
func splitTags(tags []*ec2.Tag) (string, map[string]string) {
	var label string
	rest := make(map[string]string)
	for _, t := range tags {
		key, value := aws.StringValue(t.Key), aws.StringValue(t.Value)
		if key == labelTag {
			label = value
			continue
		}
		rest[key] = value
	}
	if len(rest) == 0 {
		rest = nil
	}
	return label, rest
}

// resource builds the common fields of an EC2 resource named by its ID
func resource(id string, tags []*ec2.Tag) contracts.Resource {
	label, rest := splitTags(tags)
	return contracts.Resource{ID: id, Name: id, Label: label, Tags: rest}
}

// tagSpec tags a resource at creation; nil when there is nothing to tag
func tagSpec(resourceType, label string, extra map[string]string) []*ec2.TagSpecification {
	var tags []*ec2.Tag
	if label != "" {
		tags = append(tags, &ec2.Tag{Key: aws.String(labelTag), Value: aws.String(label)})
	}
	for k, v := range extra {
		if v != "" {
			tags = append(tags, &ec2.Tag{Key: aws.String(k), Value: aws.String(v)})
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return []*ec2.TagSpecification{{ResourceType: aws.String(resourceType), Tags: tags}}
}

// setLabel writes or clears the Name tag of any EC2 resource
func (p *Provider) setLabel(ctx context.Context, service contracts.ServiceType, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return p.do(ctx, service, "set_label", id, func(ctx context.Context) error {
		if label == "" {
			_, err := p.clients.EC2.DeleteTagsWithContext(ctx, &ec2.DeleteTagsInput{
				Resources: aws.StringSlice([]string{id}),
				Tags:      []*ec2.Tag{{Key: aws.String(labelTag)}},
			})
			return err
		}
		_, err := p.clients.EC2.CreateTagsWithContext(ctx, &ec2.CreateTagsInput{
			Resources: aws.StringSlice([]string{id}),
			Tags:      []*ec2.Tag{{Key: aws.String(labelTag), Value: aws.String(label)}},
		})
		return err
	})
}

// firstOrNotFound returns the only element of a Describe result
func firstOrNotFound[T any](items []*T, kind, id string) (*T, error) {
	if len(items) == 0 || items[0] == nil {
		return nil, contracts.NotFoundf(kind, id)
	}
	return items[0], nil
}
