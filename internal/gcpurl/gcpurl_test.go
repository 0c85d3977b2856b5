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

package gcpurl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ResourceURL
	}{
		{
			name: "zonal self-link",
			raw:  "https://www.googleapis.com/compute/v1/projects/my-proj/zones/us-central1-a/instances/vm-1",
			want: ResourceURL{Service: "compute", Version: "v1", Project: "my-proj", Zone: "us-central1-a", Collection: "instances", Name: "vm-1"},
		},
		{
			name: "regional self-link",
			raw:  "https://compute.googleapis.com/compute/v1/projects/my-proj/regions/us-central1/subnetworks/sn-1",
			want: ResourceURL{Service: "compute", Version: "v1", Project: "my-proj", Region: "us-central1", Collection: "subnetworks", Name: "sn-1"},
		},
		{
			name: "global self-link",
			raw:  "https://www.googleapis.com/compute/v1/projects/my-proj/global/networks/default",
			want: ResourceURL{Service: "compute", Version: "v1", Project: "my-proj", Global: true, Collection: "networks", Name: "default"},
		},
		{
			name: "beta api version",
			raw:  "https://www.googleapis.com/compute/beta/projects/p/global/images/img",
			want: ResourceURL{Service: "compute", Version: "beta", Project: "p", Global: true, Collection: "images", Name: "img"},
		},
		{
			name: "partial path with project",
			raw:  "projects/my-proj/zones/us-east1-b/disks/disk-1",
			want: ResourceURL{Service: "compute", Project: "my-proj", Zone: "us-east1-b", Collection: "disks", Name: "disk-1"},
		},
		{
			name: "partial path without project",
			raw:  "zones/us-east1-b/machineTypes/n1-standard-1",
			want: ResourceURL{Service: "compute", Zone: "us-east1-b", Collection: "machineTypes", Name: "n1-standard-1"},
		},
		{
			name: "zone self-link",
			raw:  "https://www.googleapis.com/compute/v1/projects/p/zones/europe-west1-b",
			want: ResourceURL{Service: "compute", Version: "v1", Project: "p", Zone: "europe-west1-b", Collection: "zones", Name: "europe-west1-b"},
		},
		{
			name: "bare name",
			raw:  "vm-1",
			want: ResourceURL{Name: "vm-1"},
		},
		{
			name: "bucket",
			raw:  "https://www.googleapis.com/storage/v1/b/my-bucket",
			want: ResourceURL{Service: "storage", Version: "v1", Collection: "buckets", Name: "my-bucket"},
		},
		{
			name: "object with escaped slashes",
			raw:  "https://www.googleapis.com/storage/v1/b/my-bucket/o/dir%2Ffile.txt",
			want: ResourceURL{Service: "storage", Version: "v1", Collection: "objects", ParentCollection: "buckets", Parent: "my-bucket", Name: "dir/file.txt"},
		},
		{
			name: "dns record set",
			raw:  "https://dns.googleapis.com/dns/v1/projects/p/managedZones/zone-1/rrsets/www",
			want: ResourceURL{Service: "dns", Version: "v1", Project: "p", Collection: "rrsets", Name: "www", ParentCollection: "managedZones", Parent: "zone-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, *got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"ftp://www.googleapis.com/compute/v1/projects/p",
		"projects/p/zones",
		"projects/p/global",
		"https://www.googleapis.com/storage/v1/x/y",
		"https://www.googleapis.com/storage/v1/b/bucket/o",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			require.Error(t, err)
			assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))
		})
	}
}

func TestResolve(t *testing.T) {
	defaults := Defaults{Project: "dp", Zone: "dz", Region: "dr"}

	zonal, err := ParseWithDefaults("vm-1", "instances", defaults)
	require.NoError(t, err)
	assert.Equal(t, "https://www.googleapis.com/compute/v1/projects/dp/zones/dz/instances/vm-1", zonal.String())

	regional, err := ParseWithDefaults("addr", "addresses", defaults)
	require.NoError(t, err)
	assert.Equal(t, "projects/dp/regions/dr/addresses/addr", regional.Path())

	global, err := ParseWithDefaults("fw", "firewalls", defaults)
	require.NoError(t, err)
	assert.True(t, global.Global)
	assert.Equal(t, "projects/dp/global/firewalls/fw", global.Path())

	explicit, err := ParseWithDefaults("projects/other/zones/z2/disks/d", "disks", defaults)
	require.NoError(t, err)
	assert.Equal(t, "other", explicit.Project)
	assert.Equal(t, "z2", explicit.Zone)

	_, err = ParseWithDefaults("zones/z/disks/d", "instances", defaults)
	require.Error(t, err)
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))
}

func TestStringRoundTrip(t *testing.T) {
	for _, raw := range []string{
		"https://www.googleapis.com/compute/v1/projects/p/zones/z/instances/i",
		"https://www.googleapis.com/compute/v1/projects/p/regions/r/subnetworks/s",
		"https://www.googleapis.com/compute/v1/projects/p/global/networks/n",
		"https://www.googleapis.com/compute/v1/projects/p/zones/z",
		"https://www.googleapis.com/storage/v1/b/bucket/o/dir%2Ffile",
		"https://www.googleapis.com/dns/v1/projects/p/managedZones/mz/rrsets/r",
	} {
		parsed, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, parsed.String())
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "n1-standard-1", Name("https://www.googleapis.com/compute/v1/projects/p/zones/z/machineTypes/n1-standard-1"))
	assert.Equal(t, "plain", Name("plain"))
	assert.Equal(t, "", Name(""))
}
