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
	"fmt"
	"strconv"
	"strings"

	dns "google.golang.org/api/dns/v1"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	zoneNamePrefix   = "cb-"
	maxDNSResults    = 1000
	publicVisibility = "public"
)

type dnsZoneService struct{ p *Provider }

// managedZoneName derives the managed zone name from a DNS name:
// example.com. -> cb-example-com
func managedZoneName(dnsName string) string {
	name := zoneNamePrefix + strings.ReplaceAll(strings.TrimSuffix(dnsName, "."), ".", "-")
	if len(name) > contracts.MaxNameLength {
		name = strings.TrimRight(name[:contracts.MaxNameLength], "-")
	}
	return name
}

func toZone(mz *dns.ManagedZone) *contracts.DNSZone {
	meta := decodeMeta(mz.Description)
	label, tags := splitLabels(mz.Labels)
	return &contracts.DNSZone{
		Resource: contracts.Resource{
			ID:         mz.Name,
			Name:       mz.DnsName,
			Label:      label,
			CreateTime: parseTime(mz.CreationTime),
			Tags:       tags,
		},
		AdminEmail:  meta.AdminEmail,
		Description: meta.Description,
	}
}

func (s *dnsZoneService) Get(ctx context.Context, id string) (*contracts.DNSZone, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSZones, "get", id, func(ctx context.Context) (*contracts.DNSZone, error) {
		mz, err := s.p.clients.DNS.ManagedZones.Get(s.p.project, id).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return toZone(mz), nil
	})
}

func (s *dnsZoneService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.DNSZone], error) {
	limit := min(paging.EffectiveLimit(opts.Limit), maxDNSResults)
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSZones, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.DNSZone], error) {
		call := s.p.clients.DNS.ManagedZones.List(s.p.project).MaxResults(int64(limit))
		if opts.Marker != "" {
			call = call.PageToken(opts.Marker)
		}
		out, err := call.Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		zones := make([]*contracts.DNSZone, 0, len(out.ManagedZones))
		for _, mz := range out.ManagedZones {
			zones = append(zones, toZone(mz))
		}
		return paging.NewServerPagedResultList(zones, out.NextPageToken, out.NextPageToken != ""), nil
	})
}

func (s *dnsZoneService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.DNSZone], error) {
	if opts.Name != "" {
		if name, err := common.CanonicalZoneName(opts.Name); err == nil {
			opts.Name = name
		}
	}
	return common.FindAll(ctx, s.List, opts)
}

func (s *dnsZoneService) Create(ctx context.Context, req contracts.CreateDNSZoneRequest) (*contracts.DNSZone, error) {
	name, err := common.CanonicalZoneName(req.Name)
	if err != nil {
		return nil, err
	}
	if req.AdminEmail != "" && !strings.Contains(req.AdminEmail, "@") {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid admin email %q", req.AdminEmail), nil)
	}
	mz := &dns.ManagedZone{
		Name:        managedZoneName(name),
		DnsName:     name,
		Description: resourceMeta{AdminEmail: req.AdminEmail, Description: req.Description}.encode(),
		Visibility:  publicVisibility,
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSZones, "create", name, func(ctx context.Context) (*contracts.DNSZone, error) {
		created, err := s.p.clients.DNS.ManagedZones.Create(s.p.project, mz).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return toZone(created), nil
	})
}

// Delete removes every record Cloud DNS did not create itself before the
// zone, since only empty zones can be deleted
func (s *dnsZoneService) Delete(ctx context.Context, id string) error {
	zone, err := s.Get(ctx, id)
	if err != nil {
		return contracts.IgnoreNotFound(err)
	}
	records := s.p.dns.Records.(*dnsRecordService)
	sets, err := records.all(ctx, id)
	if err != nil {
		return contracts.IgnoreNotFound(err)
	}
	for _, rrs := range sets {
		if rrs.Name == zone.Name && (rrs.Type == string(contracts.DNSRecordNS) || rrs.Type == string(contracts.DNSRecordSOA)) {
			continue
		}
		if err := records.Delete(ctx, id, common.RecordID(rrs.Name, contracts.DNSRecordType(rrs.Type))); err != nil {
			return err
		}
	}
	err = s.p.do(ctx, contracts.ServiceDNSZones, "delete", id, func(ctx context.Context) error {
		return s.p.clients.DNS.ManagedZones.Delete(s.p.project, id).Context(ctx).Do()
	})
	return contracts.IgnoreNotFound(err)
}

type dnsRecordService struct{ p *Provider }

// TXT and SPF values are quoted character strings in Cloud DNS
func quoted(recordType contracts.DNSRecordType) bool {
	return recordType == contracts.DNSRecordTXT || recordType == contracts.DNSRecordSPF
}

func toRecord(zoneID string, rrs *dns.ResourceRecordSet) *contracts.DNSRecord {
	name := strings.ToLower(rrs.Name)
	recordType := contracts.DNSRecordType(rrs.Type)
	r := &contracts.DNSRecord{
		Resource: contracts.Resource{ID: common.RecordID(name, recordType), Name: name},
		ZoneID:   zoneID,
		Type:     recordType,
		TTL:      int(rrs.Ttl),
	}
	for _, value := range rrs.Rrdatas {
		if quoted(recordType) {
			if unquoted, err := strconv.Unquote(value); err == nil {
				value = unquoted
			}
		}
		r.Data = append(r.Data, value)
	}
	return r
}

func toRecordSet(req contracts.CreateDNSRecordRequest) *dns.ResourceRecordSet {
	rrs := &dns.ResourceRecordSet{Name: req.Name, Type: string(req.Type), Ttl: int64(req.TTL)}
	for _, value := range req.Data {
		if quoted(req.Type) && !strings.HasPrefix(value, `"`) {
			value = strconv.Quote(value)
		}
		rrs.Rrdatas = append(rrs.Rrdatas, value)
	}
	return rrs
}

// all returns every record set of a zone in vendor form
func (s *dnsRecordService) all(ctx context.Context, zoneID string) ([]*dns.ResourceRecordSet, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSRecords, "list_all", zoneID, func(ctx context.Context) ([]*dns.ResourceRecordSet, error) {
		return listAll(func(maxResults int64, token string) ([]*dns.ResourceRecordSet, string, error) {
			out, err := s.p.clients.DNS.ResourceRecordSets.List(s.p.project, zoneID).MaxResults(maxResults).PageToken(token).Context(ctx).Do()
			if err != nil {
				return nil, "", err
			}
			return out.Rrsets, out.NextPageToken, nil
		})
	})
}

func (s *dnsRecordService) Get(ctx context.Context, zoneID, id string) (*contracts.DNSRecord, error) {
	name, recordType, err := common.ParseRecordID(id)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSRecords, "get", id, func(ctx context.Context) (*contracts.DNSRecord, error) {
		rrs, err := s.p.clients.DNS.ResourceRecordSets.Get(s.p.project, zoneID, name, string(recordType)).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return toRecord(zoneID, rrs), nil
	})
}

func (s *dnsRecordService) List(ctx context.Context, zoneID string, opts paging.ListOptions) (*paging.ResultList[*contracts.DNSRecord], error) {
	limit := min(paging.EffectiveLimit(opts.Limit), maxDNSResults)
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSRecords, "list", zoneID, func(ctx context.Context) (*paging.ResultList[*contracts.DNSRecord], error) {
		call := s.p.clients.DNS.ResourceRecordSets.List(s.p.project, zoneID).MaxResults(int64(limit))
		if opts.Marker != "" {
			call = call.PageToken(opts.Marker)
		}
		out, err := call.Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		records := make([]*contracts.DNSRecord, 0, len(out.Rrsets))
		for _, rrs := range out.Rrsets {
			records = append(records, toRecord(zoneID, rrs))
		}
		return paging.NewServerPagedResultList(records, out.NextPageToken, out.NextPageToken != ""), nil
	})
}

// Create adds a record set; Cloud DNS rejects an existing name and type
// with a conflict, which surfaces as Duplicate
func (s *dnsRecordService) Create(ctx context.Context, zoneID string, req contracts.CreateDNSRecordRequest) (*contracts.DNSRecord, error) {
	zone, err := s.p.dns.Zones.Get(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	req, err = common.NormalizeRecord(zone.Name, req)
	if err != nil {
		return nil, err
	}
	rrs := toRecordSet(req)
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSRecords, "create", common.RecordID(req.Name, req.Type), func(ctx context.Context) (*contracts.DNSRecord, error) {
		created, err := s.p.clients.DNS.ResourceRecordSets.Create(s.p.project, zoneID, rrs).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return toRecord(zoneID, created), nil
	})
}

func (s *dnsRecordService) Delete(ctx context.Context, zoneID, id string) error {
	name, recordType, err := common.ParseRecordID(id)
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceDNSRecords, "delete", id, func(ctx context.Context) error {
		_, err := s.p.clients.DNS.ResourceRecordSets.Delete(s.p.project, zoneID, name, string(recordType)).Context(ctx).Do()
		return err
	})
	return contracts.IgnoreNotFound(err)
}
