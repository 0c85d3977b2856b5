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

// Package gcpurl parses Google Cloud resource self-links and partial
// resource paths into their scope components.
package gcpurl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	// DefaultBase is the API host used when building canonical self-links
	DefaultBase = "https://www.googleapis.com/"

	ServiceCompute = "compute"
	ServiceStorage = "storage"
	ServiceDNS     = "dns"

	DefaultVersion = "v1"

	CollectionBuckets = "buckets"
	CollectionObjects = "objects"
)

var knownServices = map[string]bool{
	ServiceCompute: true,
	ServiceStorage: true,
	ServiceDNS:     true,
}

// zonal and regional collections; everything else in compute is global
var (
	zonalCollections = map[string]bool{
		"instances":        true,
		"disks":            true,
		"machineTypes":     true,
		"diskTypes":        true,
		"acceleratorTypes": true,
		"instanceGroups":   true,
	}
	regionalCollections = map[string]bool{
		"subnetworks":     true,
		"addresses":       true,
		"routers":         true,
		"forwardingRules": true,
		"targetPools":     true,
	}
)

// ResourceURL is a parsed resource identifier
type ResourceURL struct {
	// Service is the API name, e.g. compute
	Service string
	// Version is the API version, e.g. v1
	Version string
	Project string
	Zone    string
	Region  string
	// Global is set for project-global resources (networks, firewalls, images)
	Global bool
	// Collection is the resource collection, e.g. instances
	Collection string
	// Name is the resource name
	Name string
	// Parent is the name of the enclosing resource for nested collections
	// (bucket of an object, managed zone of an rrset)
	Parent string
	// ParentCollection is the collection Parent belongs to
	ParentCollection string
}

// Defaults fill missing scope when resolving a partial identifier
type Defaults struct {
	Project string
	Zone    string
	Region  string
}

// Parse parses a full self-link, a partial path or a bare name
func Parse(raw string) (*ResourceURL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, contracts.NewInvalidValueError("resource URL is empty", nil)
	}

	path := raw
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid resource URL %q", raw), err)
		}
		if parsed.Scheme != "https" && parsed.Scheme != "http" {
			return nil, contracts.NewInvalidValueError(fmt.Sprintf("unsupported scheme in resource URL %q", raw), nil)
		}
		path = parsed.EscapedPath()
	}

	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid resource URL %q", raw), nil)
	}

	res := &ResourceURL{}
	if knownServices[segments[0]] && len(segments) > 1 && isVersion(segments[1]) {
		res.Service = segments[0]
		res.Version = segments[1]
		segments = segments[2:]
	}

	if res.Service == ServiceStorage {
		if err := res.parseStorage(segments); err != nil {
			return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid storage URL %q", raw), err)
		}
		return res, nil
	}

	// a bare name carries no scope
	if len(segments) == 1 && res.Service == "" && !strings.Contains(path, "/") {
		res.Name = segments[0]
		return res, nil
	}

	if err := res.parseScoped(segments); err != nil {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid resource URL %q", raw), err)
	}
	if res.Service == "" && res.Collection != "" {
		res.Service = ServiceCompute
	}
	return res, nil
}

// parseStorage handles b/{bucket} and b/{bucket}/o/{object}
func (r *ResourceURL) parseStorage(segments []string) error {
	if len(segments) < 2 || segments[0] != "b" {
		return fmt.Errorf("expected b/{bucket}")
	}
	bucket, err := url.PathUnescape(segments[1])
	if err != nil {
		return err
	}
	if len(segments) == 2 {
		r.Collection = CollectionBuckets
		r.Name = bucket
		return nil
	}
	if segments[2] != "o" || len(segments) < 4 {
		return fmt.Errorf("expected b/{bucket}/o/{object}")
	}
	object, err := url.PathUnescape(strings.Join(segments[3:], "/"))
	if err != nil {
		return err
	}
	r.Collection = CollectionObjects
	r.ParentCollection = CollectionBuckets
	r.Parent = bucket
	r.Name = object
	return nil
}

// parseScoped walks key/value segment pairs such as
// projects/{p}/zones/{z}/instances/{i}
func (r *ResourceURL) parseScoped(segments []string) error {
	lastKey := ""
	for i := 0; i < len(segments); {
		key := segments[i]
		if key == "global" {
			r.Global = true
			lastKey = key
			i++
			continue
		}
		if i+1 >= len(segments) {
			return fmt.Errorf("missing value for %q", key)
		}
		value, err := url.PathUnescape(segments[i+1])
		if err != nil {
			return err
		}
		switch key {
		case "projects":
			r.Project = value
		case "zones":
			r.Zone = value
		case "regions":
			r.Region = value
		default:
			if r.Collection != "" {
				r.ParentCollection = r.Collection
				r.Parent = r.Name
			}
			r.Collection = key
			r.Name = value
		}
		lastKey = key
		i += 2
	}

	if r.Collection != "" {
		return nil
	}
	// the identifier names a scope itself
	switch lastKey {
	case "projects":
		r.Collection, r.Name = "projects", r.Project
	case "zones":
		r.Collection, r.Name = "zones", r.Zone
	case "regions":
		r.Collection, r.Name = "regions", r.Region
	default:
		return fmt.Errorf("no resource collection")
	}
	return nil
}

// Resolve fills missing project, zone or region from defaults, based on
// whether the collection is zonal, regional or global
func (r *ResourceURL) Resolve(defaults Defaults) *ResourceURL {
	out := *r
	if out.Service == "" {
		out.Service = ServiceCompute
	}
	if out.Version == "" {
		out.Version = DefaultVersion
	}
	if out.Service == ServiceStorage {
		return &out
	}
	if out.Project == "" {
		out.Project = defaults.Project
	}
	if out.Service != ServiceCompute || out.Global || out.Zone != "" || out.Region != "" {
		return &out
	}
	switch {
	case zonalCollections[out.Collection]:
		out.Zone = defaults.Zone
	case regionalCollections[out.Collection]:
		out.Region = defaults.Region
	case out.Collection == "zones" || out.Collection == "regions" || out.Collection == "projects":
	default:
		out.Global = true
	}
	return &out
}

// ParseWithDefaults parses raw and resolves it against defaults
func ParseWithDefaults(raw, collection string, defaults Defaults) (*ResourceURL, error) {
	res, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if res.Collection == "" {
		res.Collection = collection
	}
	if collection != "" && res.Collection != collection {
		return nil, contracts.NewInvalidValueError(
			fmt.Sprintf("resource %q is a %s, expected %s", raw, res.Collection, collection), nil)
	}
	return res.Resolve(defaults), nil
}

// Path returns the path below the API version, e.g.
// projects/p/zones/z/instances/i
func (r *ResourceURL) Path() string {
	if r.Service == ServiceStorage {
		if r.Collection == CollectionObjects {
			return "b/" + url.PathEscape(r.Parent) + "/o/" + url.PathEscape(r.Name)
		}
		return "b/" + url.PathEscape(r.Name)
	}

	var parts []string
	if r.Project != "" {
		parts = append(parts, "projects", r.Project)
	}
	switch {
	case r.Collection == "projects":
		return strings.Join(parts, "/")
	case r.Collection == "zones" || r.Collection == "regions":
		return strings.Join(append(parts, r.Collection, r.Name), "/")
	case r.Global:
		parts = append(parts, "global")
	case r.Zone != "":
		parts = append(parts, "zones", r.Zone)
	case r.Region != "":
		parts = append(parts, "regions", r.Region)
	}
	if r.Parent != "" {
		parts = append(parts, r.ParentCollection, r.Parent)
	}
	parts = append(parts, r.Collection, r.Name)
	return strings.Join(parts, "/")
}

// String rebuilds the canonical self-link
func (r *ResourceURL) String() string {
	service := r.Service
	if service == "" {
		service = ServiceCompute
	}
	version := r.Version
	if version == "" {
		version = DefaultVersion
	}
	return DefaultBase + service + "/" + version + "/" + r.Path()
}

// Name returns the last path segment of a self-link, or s itself when it
// has no slashes. Vendor responses reference related resources by self-link.
func Name(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func splitPath(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isVersion(s string) bool {
	if s == "beta" || s == "alpha" {
		return true
	}
	return len(s) >= 2 && s[0] == 'v' && s[1] >= '0' && s[1] <= '9'
}
