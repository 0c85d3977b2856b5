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
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// ARM resource types managed by the provider
const (
	typeVirtualMachines = "Microsoft.Compute/virtualMachines"
	typeImages          = "Microsoft.Compute/images"
	typeDisks           = "Microsoft.Compute/disks"
	typeSnapshots       = "Microsoft.Compute/snapshots"
	typeVirtualNetworks = "Microsoft.Network/virtualNetworks"
	typeSubnets         = "Microsoft.Network/virtualNetworks/subnets"
	typeInterfaces      = "Microsoft.Network/networkInterfaces"
	typePublicIPs       = "Microsoft.Network/publicIPAddresses"
	typeSecurityGroups  = "Microsoft.Network/networkSecurityGroups"
	typeSecurityRules   = "Microsoft.Network/networkSecurityGroups/securityRules"
	typeRouteTables     = "Microsoft.Network/routeTables"
	typeDNSZones        = "Microsoft.Network/dnsZones"
)

const (
	// labelTag holds the cloudbridge label of every taggable resource
	labelTag = "Label"
	// descriptionTag holds descriptions of resources without a native field
	descriptionTag = "Description"
	// networkTag records the network of route tables and security groups
	networkTag = "NetworkID"
	// adminEmailTag records the administrator address of DNS zones
	adminEmailTag = "AdminEmail"
	// defaultNetworkTag marks the network created for instances launched without a subnet
	defaultNetworkTag = "cloudbridge-default"
	// subnetLabelPrefix prefixes the network tags that hold subnet labels;
	// Azure subnets carry no tags of their own
	subnetLabelPrefix = "SubnetLabel-"
)

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

func timeOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

// tagsOf builds ARM tags from a label and extra tags; empty values are skipped
func tagsOf(label string, extra map[string]string) map[string]*string {
	tags := make(map[string]*string)
	if label != "" {
		tags[labelTag] = to.Ptr(label)
	}
	for k, v := range extra {
		if v != "" {
			tags[k] = to.Ptr(v)
		}
	}
	return tags
}

// splitTags separates the label from the remaining tags
func splitTags(tags map[string]*string) (string, map[string]string) {
	var label string
	rest := make(map[string]string)
	for k, v := range tags {
		if k == labelTag {
			label = deref(v)
			continue
		}
		rest[k] = deref(v)
	}
	if len(rest) == 0 {
		rest = nil
	}
	return label, rest
}

func resource(id, name *string, tags map[string]*string) contracts.Resource {
	label, rest := splitTags(tags)
	return contracts.Resource{ID: deref(id), Name: deref(name), Label: label, Tags: rest}
}

// setTag edits one tag of a map in place; an empty value removes it
func setTag(tags *map[string]*string, key, value string) {
	if *tags == nil {
		*tags = make(map[string]*string)
	}
	if value == "" {
		delete(*tags, key)
		return
	}
	(*tags)[key] = to.Ptr(value)
}

// resourceID is the ARM ID of a resource in the provider's resource group
func (p *Provider) resourceID(resourceType, name string) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/%s",
		p.subscription, p.resourceGroup, resourceType, name)
}

// childID is the ARM ID of a nested resource such as a subnet
func (p *Provider) childID(resourceType, parent, name string) string {
	i := strings.LastIndex(resourceType, "/")
	return p.resourceID(resourceType[:i], parent) + "/" + resourceType[i+1:] + "/" + name
}

// parse validates an ARM ID of resourceType in the provider's resource group
func (p *Provider) parse(id, resourceType string) (*arm.ResourceID, error) {
	rid, err := arm.ParseResourceID(id)
	if err != nil {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid resource id %q", id), err)
	}
	if !strings.EqualFold(rid.ResourceType.String(), resourceType) {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("%q is not a %s id", id, resourceType), nil)
	}
	if !strings.EqualFold(rid.ResourceGroupName, p.resourceGroup) {
		return nil, contracts.NotFoundf(resourceType, id)
	}
	return rid, nil
}

// ref resolves an ARM ID or bare name into a name within the resource group
func (p *Provider) ref(id, resourceType string) (string, error) {
	if !strings.HasPrefix(id, "/") {
		if id == "" || strings.Contains(id, "/") {
			return "", contracts.NewInvalidValueError(fmt.Sprintf("invalid %s name %q", resourceType, id), nil)
		}
		return id, nil
	}
	rid, err := p.parse(id, resourceType)
	if err != nil {
		return "", err
	}
	return rid.Name, nil
}

// childRef resolves an ARM ID or "parent/name" of a nested resource
func (p *Provider) childRef(id, resourceType string) (string, string, error) {
	if !strings.HasPrefix(id, "/") {
		parent, name, ok := strings.Cut(id, "/")
		if !ok || parent == "" || name == "" || strings.Contains(name, "/") {
			return "", "", contracts.NewInvalidValueError(fmt.Sprintf("invalid %s id %q", resourceType, id), nil)
		}
		return parent, name, nil
	}
	rid, err := p.parse(id, resourceType)
	if err != nil {
		return "", "", err
	}
	return rid.Parent.Name, rid.Name, nil
}

// nameOf is the last segment of an ARM ID
func nameOf(id string) string {
	return id[strings.LastIndex(id, "/")+1:]
}

// sameID compares ARM IDs, which are case-insensitive
func sameID(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}

// relabel rewrites one tag of a resource with a full PUT
func relabel[T any](ctx context.Context, p *Provider, service contracts.ServiceType, coll Collection[T], name string, tags func(*T) *map[string]*string, key, value string) error {
	return p.do(ctx, service, "set_tag", name, func(ctx context.Context) error {
		r, err := coll.Get(ctx, name)
		if err != nil {
			return err
		}
		setTag(tags(r), key, value)
		_, err = coll.CreateOrUpdate(ctx, name, *r)
		return err
	})
}

// setLabel validates a label and stores it in the label tag
func setLabel[T any](ctx context.Context, p *Provider, service contracts.ServiceType, coll Collection[T], id, resourceType, label string, tags func(*T) *map[string]*string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	name, err := p.ref(id, resourceType)
	if err != nil {
		return err
	}
	return relabel(ctx, p, service, coll, name, tags, labelTag, label)
}
