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

package paging

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoMoreItems is returned by Iterator.Next once the listing is exhausted
var ErrNoMoreItems = errors.New("no more items")

// maxPages bounds a walk so that a misbehaving marker cannot loop forever
const maxPages = 10000

// Lister fetches one page of a listing
type Lister[T any] func(ctx context.Context, opts ListOptions) (*ResultList[T], error)

// Iterator walks every item of a listing, fetching pages on demand
type Iterator[T any] struct {
	ctx      context.Context
	lister   Lister[T]
	pageSize int

	buffer  []T
	marker  string
	started bool
	done    bool
	pages   int
	err     error
}

// NewIterator creates an iterator that requests pages of pageSize items
func NewIterator[T any](ctx context.Context, lister Lister[T], pageSize int) *Iterator[T] {
	return &Iterator[T]{
		ctx:      ctx,
		lister:   lister,
		pageSize: pageSize,
	}
}

// HasNext reports whether another item is available. It may fetch a page;
// fetch errors surface on the following Next call.
func (it *Iterator[T]) HasNext() bool {
	if it.err != nil {
		return true
	}
	for len(it.buffer) == 0 && !it.done {
		if err := it.fetch(); err != nil {
			it.err = err
			return true
		}
	}
	return len(it.buffer) > 0
}

// Next returns the next item
func (it *Iterator[T]) Next() (T, error) {
	var zero T
	if it.err != nil {
		err := it.err
		it.err = nil
		return zero, err
	}
	for len(it.buffer) == 0 {
		if it.done {
			return zero, ErrNoMoreItems
		}
		if err := it.fetch(); err != nil {
			return zero, err
		}
	}
	item := it.buffer[0]
	it.buffer = it.buffer[1:]
	return item, nil
}

// All drains the iterator
func (it *Iterator[T]) All() ([]T, error) {
	var items []T
	for {
		item, err := it.Next()
		if errors.Is(err, ErrNoMoreItems) {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
}

// ForEach calls fn for every item until fn returns an error
func (it *Iterator[T]) ForEach(fn func(T) error) error {
	for {
		item, err := it.Next()
		if errors.Is(err, ErrNoMoreItems) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
}

func (it *Iterator[T]) fetch() error {
	if it.started && it.marker == "" {
		it.done = true
		return nil
	}
	if it.pages >= maxPages {
		it.done = true
		return fmt.Errorf("listing exceeded %d pages", maxPages)
	}
	if err := it.ctx.Err(); err != nil {
		return err
	}

	page, err := it.lister(it.ctx, ListOptions{Limit: it.pageSize, Marker: it.marker})
	if err != nil {
		return err
	}
	it.started = true
	it.pages++
	it.buffer = append(it.buffer, page.Items...)

	if !page.IsTruncated || page.Marker == "" || page.Marker == it.marker {
		it.done = true
		it.marker = ""
		return nil
	}
	it.marker = page.Marker
	return nil
}

// All returns every item of a listing
func All[T any](ctx context.Context, lister Lister[T], pageSize int) ([]T, error) {
	return NewIterator(ctx, lister, pageSize).All()
}
