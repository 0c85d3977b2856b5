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

// Named is implemented by resources that can be matched by Find
type Named interface {
	Identifiable
	GetName() string
	GetLabel() string
}

// Matches reports whether item satisfies every non-empty filter in opts
func Matches[T Named](item T, opts FindOptions) bool {
	if opts.Name != "" && item.GetName() != opts.Name {
		return false
	}
	if opts.Label != "" && item.GetLabel() != opts.Label {
		return false
	}
	return true
}

// Filter keeps the items that satisfy opts
func Filter[T Named](items []T, opts FindOptions) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if Matches(item, opts) {
			out = append(out, item)
		}
	}
	return out
}

// Find filters a complete collection and returns a client-paged page of the matches
func Find[T Named](items []T, opts FindOptions) *ResultList[T] {
	return NewClientPagedResultList(Filter(items, opts), opts.Limit, opts.Marker)
}
