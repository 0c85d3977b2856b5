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

package common

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// FindAll walks every page of list, filters the items by opts and returns
// a client-paged page of the matches
func FindAll[T paging.Named](ctx context.Context, list paging.Lister[T], opts paging.FindOptions) (*paging.ResultList[T], error) {
	items, err := paging.All(ctx, list, 0)
	if err != nil {
		return nil, err
	}
	return paging.Find(items, opts), nil
}

// Filter keys accepted by FindOptionsFromFilters
const (
	FilterName  = "name"
	FilterLabel = "label"
)

// FindOptionsFromFilters converts free-form key/value filters into
// FindOptions. Keys other than name and label are rejected.
func FindOptionsFromFilters(filters map[string]string, opts paging.ListOptions) (paging.FindOptions, error) {
	find := paging.FindOptions{ListOptions: opts}
	var unknown []string
	for key, value := range filters {
		switch strings.ToLower(key) {
		case FilterName:
			find.Name = value
		case FilterLabel:
			find.Label = value
		default:
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return paging.FindOptions{}, contracts.NewInvalidValueError(
			fmt.Sprintf("unsupported filter keys %v; supported keys are %q and %q", unknown, FilterName, FilterLabel), nil)
	}
	return find, nil
}

// Page slices a complete vendor listing into a client-paged page
func Page[T paging.Identifiable](items []T, opts paging.ListOptions) *paging.ResultList[T] {
	return paging.NewClientPagedResultList(items, opts.Limit, opts.Marker)
}

// NameFromLabel validates label and generates a resource name from it
func NameFromLabel(label string) (string, error) {
	if err := contracts.ValidateLabel(label); err != nil {
		return "", err
	}
	return contracts.GenerateName(label), nil
}
