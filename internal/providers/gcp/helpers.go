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
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	compute "google.golang.org/api/compute/v1"
	kwait "k8s.io/apimachinery/pkg/util/wait"

	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	// labelKey holds the cloudbridge label on resources that support GCE labels
	labelKey = "cblabel"
	// maxComputeResults is the largest page a compute list call returns
	maxComputeResults = 500
	statusDone        = "DONE"
)

// splitLabels separates the cloudbridge label from the remaining labels
func splitLabels(labels map[string]string) (string, map[string]string) {
	label := labels[labelKey]
	rest := maps.Clone(labels)
	delete(rest, labelKey)
	if len(rest) == 0 {
		rest = nil
	}
	return label, rest
}

// withLabel returns a copy of labels with the cloudbridge label set or cleared
func withLabel(labels map[string]string, label string) map[string]string {
	out := maps.Clone(labels)
	if out == nil {
		out = map[string]string{}
	}
	if label == "" {
		delete(out, labelKey)
	} else {
		out[labelKey] = label
	}
	return out
}

// resourceMeta is kept as JSON in the description of resources that have
// no labels (networks, routers, firewalls, managed zones)
type resourceMeta struct {
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description,omitempty"`
	CIDR        string   `json:"cidr,omitempty"`
	AdminEmail  string   `json:"adminEmail,omitempty"`
	Subnets     []string `json:"subnets,omitempty"`
	Gateway     string   `json:"gateway,omitempty"`
}

func (m resourceMeta) encode() string {
	if m.Label == "" && m.CIDR == "" && m.AdminEmail == "" && len(m.Subnets) == 0 && m.Gateway == "" {
		return m.Description
	}
	data, err := json.Marshal(m)
	if err != nil {
		return m.Description
	}
	return string(data)
}

// decodeMeta reads a description written by encode; other descriptions
// are returned as they are
func decodeMeta(description string) resourceMeta {
	var m resourceMeta
	if strings.HasPrefix(description, "{") && json.Unmarshal([]byte(description), &m) == nil {
		return m
	}
	return resourceMeta{Description: description}
}

// projectMetadata returns the common instance metadata of the project
func (p *Provider) projectMetadata(ctx context.Context) (*compute.Metadata, error) {
	proj, err := p.clients.Compute.Projects.Get(p.project).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if proj.CommonInstanceMetadata == nil {
		return &compute.Metadata{}, nil
	}
	return proj.CommonInstanceMetadata, nil
}

// editProjectMetadata applies edit to the project metadata items and
// writes them back with the fingerprint they were read with
func (p *Provider) editProjectMetadata(ctx context.Context, service contracts.ServiceType, operation, id string, edit func(items []*compute.MetadataItems) ([]*compute.MetadataItems, bool, error)) error {
	return p.mutate(ctx, service, operation, id, func(ctx context.Context) (*compute.Operation, error) {
		md, err := p.projectMetadata(ctx)
		if err != nil {
			return nil, err
		}
		items, changed, err := edit(md.Items)
		if err != nil || !changed {
			return nil, err
		}
		return p.clients.Compute.Projects.SetCommonInstanceMetadata(p.project, &compute.Metadata{
			Items:       items,
			Fingerprint: md.Fingerprint,
		}).Context(ctx).Do()
	})
}

// setMetadataItem sets key to value, removing it when value is empty
func setMetadataItem(items []*compute.MetadataItems, key, value string) ([]*compute.MetadataItems, bool) {
	for i, item := range items {
		if item.Key != key {
			continue
		}
		if value == "" {
			return append(items[:i:i], items[i+1:]...), true
		}
		if item.Value != nil && *item.Value == value {
			return items, false
		}
		items[i] = &compute.MetadataItems{Key: key, Value: &value}
		return items, true
	}
	if value == "" {
		return items, false
	}
	return append(items, &compute.MetadataItems{Key: key, Value: &value}), true
}

func metadataItems(md *compute.Metadata) map[string]string {
	out := make(map[string]string)
	if md == nil {
		return out
	}
	for _, item := range md.Items {
		if item.Value != nil {
			out[item.Key] = *item.Value
		}
	}
	return out
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// pageFunc fetches one page of a compute list call
type pageFunc[T any] func(maxResults int64, token string) ([]T, string, error)

// listPage returns one server-paged page; compute list calls cap pages at 500
func listPage[T any](opts paging.ListOptions, fetch pageFunc[T]) (*paging.ResultList[T], error) {
	limit := min(paging.EffectiveLimit(opts.Limit), maxComputeResults)
	items, next, err := fetch(int64(limit), opts.Marker)
	if err != nil {
		return nil, err
	}
	return paging.NewServerPagedResultList(items, next, next != ""), nil
}

// listAll follows page tokens until the collection is exhausted
func listAll[T any](fetch pageFunc[T]) ([]T, error) {
	var all []T
	token := ""
	for {
		items, next, err := fetch(maxComputeResults, token)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		token = next
	}
}

// mutate runs a compute call that returns an operation and waits for it
func (p *Provider) mutate(ctx context.Context, service contracts.ServiceType, operation, id string, call func(ctx context.Context) (*compute.Operation, error)) error {
	op, err := common.Call(ctx, p.caller, service, operation, id, call)
	if err != nil {
		return err
	}
	return p.waitOperation(ctx, service, op)
}

// waitOperation polls a zonal, regional or global operation until it is done
func (p *Provider) waitOperation(ctx context.Context, service contracts.ServiceType, op *compute.Operation) error {
	if op == nil {
		return nil
	}
	log := logging.FromContext(ctx)
	return p.do(ctx, service, "wait_operation", op.Name, func(ctx context.Context) error {
		err := kwait.PollUntilContextTimeout(ctx, p.opInterval, p.opTimeout, true, func(ctx context.Context) (bool, error) {
			if op.Status != statusDone {
				current, err := p.getOperation(ctx, op)
				if err != nil {
					return false, err
				}
				op = current
			}
			if op.Status != statusDone {
				log.V(2).Info("Waiting for operation", "operation", op.Name, "type", op.OperationType,
					"status", op.Status, "progress", op.Progress)
				return false, nil
			}
			return true, errorOf(op)
		})
		if err != nil && kwait.Interrupted(err) {
			return contracts.NewWaitStateError(fmt.Sprintf("operation %s did not finish within %s", op.Name, p.opTimeout), err)
		}
		return err
	})
}

func (p *Provider) getOperation(ctx context.Context, op *compute.Operation) (*compute.Operation, error) {
	ops := p.clients.Compute
	switch {
	case op.Zone != "":
		return ops.ZoneOperations.Get(p.project, lastSegment(op.Zone), op.Name).Context(ctx).Do()
	case op.Region != "":
		return ops.RegionOperations.Get(p.project, lastSegment(op.Region), op.Name).Context(ctx).Do()
	default:
		return ops.GlobalOperations.Get(p.project, op.Name).Context(ctx).Do()
	}
}
