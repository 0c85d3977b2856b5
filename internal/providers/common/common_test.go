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
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

var errVendor404 = errors.New("vendor says 404")

func testCaller() *Caller {
	cfg := config.DefaultConfig()
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = time.Millisecond
	cfg.Retry.Jitter = false
	return NewCaller(contracts.ProviderMock, cfg, func(err error) error {
		if errors.Is(err, errVendor404) {
			return contracts.NewNotFoundError("gone", err)
		}
		return err
	})
}

func TestCallerTranslatesErrors(t *testing.T) {
	c := testCaller()
	calls := 0
	err := c.Do(context.Background(), contracts.ServiceInstances, "get", "i-1", func(ctx context.Context) error {
		calls++
		return errVendor404
	})
	assert.True(t, contracts.IsNotFound(err))
	assert.ErrorIs(t, err, errVendor404)
	assert.Equal(t, 1, calls)
}

func TestCallRetriesAndReturnsValue(t *testing.T) {
	c := testCaller()
	calls := 0
	got, err := Call(context.Background(), c, contracts.ServiceVolumes, "list", "", func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", contracts.NewRetryableError("throttled", nil)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
	assert.Contains(t, c.Breakers().List(), "mock/storage.volumes")
}

type named struct {
	contracts.Resource
}

func namedItems(n int) []*named {
	items := make([]*named, n)
	for i := range items {
		items[i] = &named{contracts.Resource{ID: fmt.Sprintf("id-%d", i), Name: fmt.Sprintf("n-%d", i), Label: "web"}}
	}
	items[3].Label = "db"
	return items
}

func TestFindAllWalksEveryPage(t *testing.T) {
	all := namedItems(120)
	pages := 0
	lister := func(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*named], error) {
		pages++
		return Page(all, opts), nil
	}

	result, err := FindAll(context.Background(), lister, paging.FindOptions{Label: "web"})
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Equal(t, 119, result.TotalResults)
	assert.Len(t, result.Items, paging.DefaultResultLimit)
	assert.True(t, result.IsTruncated)

	result, err = FindAll(context.Background(), lister, paging.FindOptions{Name: "n-3"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "db", result.Items[0].Label)
}

func TestFindOptionsFromFilters(t *testing.T) {
	opts, err := FindOptionsFromFilters(map[string]string{"Name": "a", "label": "b"}, paging.ListOptions{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, paging.FindOptions{Name: "a", Label: "b", ListOptions: paging.ListOptions{Limit: 5}}, opts)

	_, err = FindOptionsFromFilters(map[string]string{"zone": "x", "name": "a"}, paging.ListOptions{})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))
	assert.Contains(t, err.Error(), "zone")
}

func TestNameFromLabel(t *testing.T) {
	name, err := NameFromLabel("web")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "web-"))

	_, err = NameFromLabel("Bad_Label")
	assert.Equal(t, contracts.ErrorTypeInvalidLabel, contracts.TypeOf(err))
}

func TestProgressReader(t *testing.T) {
	var last, total int64
	r := NewProgressReader(strings.NewReader("hello world"), 11, func(done, size int64) {
		last, total = done, size
	})
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.Equal(t, int64(11), last)
	assert.Equal(t, int64(11), total)
	assert.Equal(t, int64(11), r.BytesRead())

	assert.NoError(t, WrapTransferError("upload", "b", "k", nil))
	assert.EqualError(t, WrapTransferError("upload", "b", "k", io.ErrUnexpectedEOF), "upload b/k failed: unexpected EOF")
}

func TestKeyPairMaterial(t *testing.T) {
	generated, err := KeyPairMaterial(contracts.CreateKeyPairRequest{Name: "deploy"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(generated.PublicKey, "ssh-rsa "))
	assert.Contains(t, generated.PrivateKey, "PRIVATE KEY")
	assert.True(t, strings.HasPrefix(generated.Fingerprint, "SHA256:"))

	imported, err := KeyPairMaterial(contracts.CreateKeyPairRequest{Name: "deploy", PublicKey: generated.PublicKey + " user@host\n"})
	require.NoError(t, err)
	assert.Empty(t, imported.PrivateKey)
	assert.Equal(t, generated.Fingerprint, imported.Fingerprint)

	_, err = KeyPairMaterial(contracts.CreateKeyPairRequest{Name: "deploy", PublicKey: "not a key"})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))
}

func TestNormalizeFirewallRule(t *testing.T) {
	tests := []struct {
		name    string
		req     contracts.CreateFirewallRuleRequest
		want    contracts.CreateFirewallRuleRequest
		wantErr bool
	}{
		{
			name: "defaults",
			req:  contracts.CreateFirewallRuleRequest{},
			want: contracts.CreateFirewallRuleRequest{
				Direction: contracts.TrafficInbound, Protocol: contracts.ProtocolTCP,
				FromPort: 1, ToPort: MaxPort, CIDR: AnyIPv4,
			},
		},
		{
			name: "single port and masked cidr",
			req:  contracts.CreateFirewallRuleRequest{Protocol: contracts.ProtocolUDP, FromPort: 53, CIDR: "10.1.2.3/8"},
			want: contracts.CreateFirewallRuleRequest{
				Direction: contracts.TrafficInbound, Protocol: contracts.ProtocolUDP,
				FromPort: 53, ToPort: 53, CIDR: "10.0.0.0/8",
			},
		},
		{
			name: "icmp drops ports",
			req:  contracts.CreateFirewallRuleRequest{Direction: contracts.TrafficOutbound, Protocol: contracts.ProtocolICMP, FromPort: 8, ToPort: 8, SourceFirewallID: "sg-1"},
			want: contracts.CreateFirewallRuleRequest{
				Direction: contracts.TrafficOutbound, Protocol: contracts.ProtocolICMP, SourceFirewallID: "sg-1",
			},
		},
		{name: "bad direction", req: contracts.CreateFirewallRuleRequest{Direction: "sideways"}, wantErr: true},
		{name: "bad protocol", req: contracts.CreateFirewallRuleRequest{Protocol: "sctp"}, wantErr: true},
		{name: "reversed ports", req: contracts.CreateFirewallRuleRequest{FromPort: 90, ToPort: 80}, wantErr: true},
		{name: "port too high", req: contracts.CreateFirewallRuleRequest{FromPort: 1, ToPort: 70000}, wantErr: true},
		{name: "cidr and source", req: contracts.CreateFirewallRuleRequest{CIDR: "10.0.0.0/8", SourceFirewallID: "sg-1"}, wantErr: true},
		{name: "bad cidr", req: contracts.CreateFirewallRuleRequest{CIDR: "10.0.0.0/33"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeFirewallRule(tt.req)
			if tt.wantErr {
				assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			rule := contracts.FirewallRule{
				Direction: got.Direction, Protocol: got.Protocol, FromPort: got.FromPort,
				ToPort: got.ToPort, CIDR: got.CIDR, SourceFirewallID: got.SourceFirewallID,
			}
			assert.True(t, SameRule(rule, got))
		})
	}
}

func TestCIDRWithin(t *testing.T) {
	assert.True(t, CIDRWithin("10.0.0.0/16", "10.0.1.0/24"))
	assert.True(t, CIDRWithin("10.0.0.0/16", "10.0.0.0/16"))
	assert.False(t, CIDRWithin("10.0.1.0/24", "10.0.0.0/16"))
	assert.False(t, CIDRWithin("10.0.0.0/16", "10.1.0.0/24"))
	assert.False(t, CIDRWithin("garbage", "10.0.0.0/24"))
}

func TestZoneAndRecordNames(t *testing.T) {
	zone, err := CanonicalZoneName(" Example.ORG ")
	require.NoError(t, err)
	assert.Equal(t, "example.org.", zone)

	for _, bad := range []string{"", "localhost", "bad..example.com", "-lead.example.com"} {
		_, err := CanonicalZoneName(bad)
		assert.Equal(t, contracts.ErrorTypeInvalidName, contracts.TypeOf(err), bad)
	}

	cases := map[string]string{
		"":                 "example.org.",
		"@":                "example.org.",
		"www":              "www.example.org.",
		"API.example.org.": "api.example.org.",
		"example.org.":     "example.org.",
	}
	for in, want := range cases {
		got, err := QualifyRecordName("example.org", in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err = QualifyRecordName("example.org", "notexample.org.")
	assert.Equal(t, contracts.ErrorTypeInvalidName, contracts.TypeOf(err))
}

func TestNormalizeRecord(t *testing.T) {
	req, err := NormalizeRecord("example.org.", contracts.CreateDNSRecordRequest{
		Name: "mail", Type: contracts.DNSRecordMX, Data: []string{"10 mx.example.org."},
	})
	require.NoError(t, err)
	assert.Equal(t, "mail.example.org.", req.Name)
	assert.Equal(t, DefaultRecordTTL, req.TTL)

	_, err = NormalizeRecord("example.org.", contracts.CreateDNSRecordRequest{Name: "x", Type: "BOGUS", Data: []string{"1"}})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))
	_, err = NormalizeRecord("example.org.", contracts.CreateDNSRecordRequest{Name: "x", Type: contracts.DNSRecordA})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))
	_, err = NormalizeRecord("example.org.", contracts.CreateDNSRecordRequest{Name: "x", Type: contracts.DNSRecordA, Data: []string{"1.2.3.4"}, TTL: -1})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))
}

func TestRecordID(t *testing.T) {
	id := RecordID("www.example.org.", contracts.DNSRecordAAAA)
	assert.Equal(t, "www.example.org.:AAAA", id)

	name, typ, err := ParseRecordID(id)
	require.NoError(t, err)
	assert.Equal(t, "www.example.org.", name)
	assert.Equal(t, contracts.DNSRecordAAAA, typ)

	for _, bad := range []string{"", ":A", "www.example.org.:"} {
		_, _, err := ParseRecordID(bad)
		assert.Error(t, err, bad)
	}
}
