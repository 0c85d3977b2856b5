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
	"sort"
	"strings"

	"github.com/gophercloud/gophercloud/pagination"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	// labelKey holds the cloudbridge label in Nova, Cinder and Glance metadata
	labelKey = "cblabel"
	// Neutron has no key/value tags; cloudbridge stores "key:value" strings
	tagSeparator = ":"
	cidrKey      = "cbcidr"
	networkKey   = "cbnetwork"
	// defaultNetworkTag marks the network created for instances launched without a subnet
	defaultNetworkTag = "cloudbridge-default"
)

// Neutron resource collections accepted by the tags extension
const (
	networksResource       = "networks"
	subnetsResource        = "subnets"
	routersResource        = "routers"
	securityGroupsResource = "security-groups"
)

// firstPage returns the items of the first page a pager yields
func firstPage[T any](pager pagination.Pager, extract func(pagination.Page) ([]T, error)) ([]T, error) {
	var items []T
	err := pager.EachPage(func(page pagination.Page) (bool, error) {
		var err error
		items, err = extract(page)
		return false, err
	})
	return items, err
}

// singlePage returns the items of a single-page pager whose body is a JSON
// object; EachPage rejects those bodies as pages
func singlePage[T any](pager pagination.Pager, extract func(pagination.Page) ([]T, error)) ([]T, error) {
	page, err := pager.AllPages()
	if err != nil {
		return nil, err
	}
	return extract(page)
}

// allPages returns the items of every page
func allPages[T any](pager pagination.Pager, extract func(pagination.Page) ([]T, error)) ([]T, error) {
	var items []T
	err := pager.EachPage(func(page pagination.Page) (bool, error) {
		more, err := extract(page)
		if err != nil {
			return false, err
		}
		items = append(items, more...)
		return true, nil
	})
	return items, err
}

// overfetch is the page size to request so that truncation is visible
func overfetch(opts paging.ListOptions) int {
	return paging.EffectiveLimit(opts.Limit) + 1
}

// convertPage converts vendor items and pages them with paging.FromOverfetch
func convertPage[T any, R paging.Identifiable](items []T, opts paging.ListOptions, convert func(*T) R) *paging.ResultList[R] {
	out := make([]R, 0, len(items))
	for i := range items {
		out = append(out, convert(&items[i]))
	}
	return paging.FromOverfetch(out, opts.Limit)
}

// splitMetadata separates the label from the remaining metadata
func splitMetadata(md map[string]string) (string, map[string]string) {
	var label string
	rest := make(map[string]string)
	for k, v := range md {
		if k == labelKey {
			label = v
			continue
		}
		rest[k] = v
	}
	if len(rest) == 0 {
		rest = nil
	}
	return label, rest
}

// labelMetadata is the metadata a new resource is created with
func labelMetadata(label string) map[string]string {
	if label == "" {
		return nil
	}
	return map[string]string{labelKey: label}
}

// splitTags decodes Neutron tags. "key:value" tags become map entries and
// plain tags map to an empty value.
func splitTags(tags []string) (string, map[string]string) {
	var label string
	rest := make(map[string]string)
	for _, tag := range tags {
		key, value, _ := strings.Cut(tag, tagSeparator)
		if key == labelKey {
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

// joinTags is the inverse of splitTags
func joinTags(label string, rest map[string]string) []string {
	tags := make([]string, 0, len(rest)+1)
	if label != "" {
		tags = append(tags, labelKey+tagSeparator+label)
	}
	for k, v := range rest {
		if v == "" {
			tags = append(tags, k)
			continue
		}
		tags = append(tags, k+tagSeparator+v)
	}
	sort.Strings(tags)
	return tags
}

// tagResource builds the common fields of a tagged Neutron resource
func tagResource(id, name string, tags []string) contracts.Resource {
	label, rest := splitTags(tags)
	return contracts.Resource{ID: id, Name: name, Label: label, Tags: rest}
}

// replaceTags overwrites the tag set of a Neutron resource
func (p *Provider) replaceTags(ctx context.Context, service contracts.ServiceType, resourceType, id string, tags []string) error {
	return p.do(ctx, service, "set_tags", id, func(ctx context.Context) error {
		return setTags(p.clients.Network, resourceType, id, tags)
	})
}

// setTagLabel rewrites the label tag of a Neutron resource, keeping its other tags
func (p *Provider) setTagLabel(ctx context.Context, service contracts.ServiceType, resourceType string, res contracts.Resource, label string) error {
	return p.replaceTags(ctx, service, resourceType, res.ID, joinTags(label, res.Tags))
}
