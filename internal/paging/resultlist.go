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

// Package paging normalizes listings that are paged by the vendor API
// (server paging) and listings that the vendor returns in full and that
// are sliced locally (client paging) into a single ResultList shape.
package paging

import "sync/atomic"

// DefaultResultLimit is used when a caller does not specify a page size
const DefaultResultLimit = 50

var defaultLimit atomic.Int32

func init() {
	defaultLimit.Store(DefaultResultLimit)
}

// SetDefaultResultLimit changes the page size used when a caller passes no limit
func SetDefaultResultLimit(limit int) {
	if limit <= 0 {
		limit = DefaultResultLimit
	}
	defaultLimit.Store(int32(limit))
}

// Identifiable is implemented by every resource that can be used as a
// client-side paging marker
type Identifiable interface {
	GetID() string
}

// ListOptions controls a single page request
type ListOptions struct {
	// Limit is the maximum number of items to return (0 = default)
	Limit int
	// Marker is the opaque position returned by a previous page
	Marker string
}

// FindOptions filters a listing client-side
type FindOptions struct {
	// Name matches the resource name exactly
	Name string
	// Label matches the resource label exactly
	Label string

	ListOptions
}

// ResultList is one page of a listing
type ResultList[T any] struct {
	// Items holds the page contents
	Items []T `json:"items" yaml:"items"`
	// Marker is the position to pass to fetch the next page (empty when not truncated)
	Marker string `json:"marker,omitempty" yaml:"marker,omitempty"`
	// IsTruncated reports whether more pages exist
	IsTruncated bool `json:"isTruncated" yaml:"isTruncated"`
	// SupportsServerPaging reports whether the vendor API did the paging
	SupportsServerPaging bool `json:"supportsServerPaging" yaml:"supportsServerPaging"`
	// SupportsTotal reports whether TotalResults is meaningful
	SupportsTotal bool `json:"supportsTotal" yaml:"supportsTotal"`
	// TotalResults is the size of the complete collection when SupportsTotal is set
	TotalResults int `json:"totalResults,omitempty" yaml:"totalResults,omitempty"`
}

// Len returns the number of items in the page
func (r *ResultList[T]) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}

// NewClientPagedResultList slices a complete collection into a page.
// Paging starts after the item whose ID equals marker; an unknown marker
// yields an empty page.
func NewClientPagedResultList[T Identifiable](items []T, limit int, marker string) *ResultList[T] {
	limit = EffectiveLimit(limit)
	total := len(items)

	remaining := items
	if marker != "" {
		remaining = nil
		for i, item := range items {
			if item.GetID() == marker {
				remaining = items[i+1:]
				break
			}
		}
	}

	truncated := len(remaining) > limit
	page := remaining
	if truncated {
		page = remaining[:limit]
	}

	result := &ResultList[T]{
		Items:         append(make([]T, 0, len(page)), page...),
		IsTruncated:   truncated,
		SupportsTotal: true,
		TotalResults:  total,
	}
	if truncated {
		result.Marker = page[len(page)-1].GetID()
	}
	return result
}

// NewServerPagedResultList wraps a page that the vendor API produced.
// nextMarker is the vendor continuation token.
func NewServerPagedResultList[T any](items []T, nextMarker string, truncated bool) *ResultList[T] {
	if items == nil {
		items = []T{}
	}
	result := &ResultList[T]{
		Items:                items,
		IsTruncated:          truncated,
		SupportsServerPaging: true,
	}
	if truncated {
		result.Marker = nextMarker
	}
	return result
}

// WithTotal records the size of the complete collection on a server-paged list
func (r *ResultList[T]) WithTotal(total int) *ResultList[T] {
	r.SupportsTotal = true
	r.TotalResults = total
	return r
}

// FromOverfetch builds a server-paged list from a vendor response that was
// requested with limit+1 items. The extra item only signals truncation and
// is dropped; the marker is the ID of the last returned item.
func FromOverfetch[T Identifiable](items []T, limit int) *ResultList[T] {
	limit = EffectiveLimit(limit)
	if len(items) <= limit {
		return NewServerPagedResultList(items, "", false)
	}
	page := items[:limit]
	return NewServerPagedResultList(page, page[len(page)-1].GetID(), true)
}

// EffectiveLimit resolves a requested limit against the default
func EffectiveLimit(limit int) int {
	if limit <= 0 {
		return int(defaultLimit.Load())
	}
	return limit
}

// Map converts the items of a page while keeping its paging metadata
func Map[T, U any](in *ResultList[T], fn func(T) U) *ResultList[U] {
	out := &ResultList[U]{
		Items:                make([]U, 0, len(in.Items)),
		Marker:               in.Marker,
		IsTruncated:          in.IsTruncated,
		SupportsServerPaging: in.SupportsServerPaging,
		SupportsTotal:        in.SupportsTotal,
		TotalResults:         in.TotalResults,
	}
	for _, item := range in.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}
