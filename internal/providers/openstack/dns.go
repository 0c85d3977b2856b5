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

package openstack

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/dns/v2/recordsets"
	"github.com/gophercloud/gophercloud/openstack/dns/v2/zones"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// primaryZone is the Designate type of zones served by Designate itself
const primaryZone = "PRIMARY"

// dnsZoneService manages Designate zones
type dnsZoneService struct{ p *Provider }

func (s *dnsZoneService) client() (*gophercloud.ServiceClient, error) {
	return optional(s.p.clients.DNS, contracts.ServiceDNSZones)
}

func toZone(z *zones.Zone) *contracts.DNSZone {
	return &contracts.DNSZone{
		Resource:    contracts.Resource{ID: z.ID, Name: z.Name, CreateTime: z.CreatedAt},
		AdminEmail:  z.Email,
		Description: z.Description,
	}
}

func (s *dnsZoneService) Get(ctx context.Context, id string) (*contracts.DNSZone, error) {
	sc, err := s.client()
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSZones, "get", id, func(ctx context.Context) (*contracts.DNSZone, error) {
		z, err := zones.Get(sc, id).Extract()
		if err != nil {
			return nil, err
		}
		return toZone(z), nil
	})
}

func (s *dnsZoneService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.DNSZone], error) {
	sc, err := s.client()
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSZones, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.DNSZone], error) {
		page, err := firstPage(zones.List(sc, zones.ListOpts{
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), zones.ExtractZones)
		if err != nil {
			return nil, err
		}
		return convertPage(page, opts, toZone), nil
	})
}

// Find matches zone names in canonical form, so "example.com" finds
// "example.com."
func (s *dnsZoneService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.DNSZone], error) {
	if opts.Name != "" {
		if name, err := common.CanonicalZoneName(opts.Name); err == nil {
			opts.Name = name
		}
	}
	return common.FindAll(ctx, s.List, opts)
}

// Create adds a primary zone. Designate requires an email, so it defaults
// to hostmaster at the zone.
func (s *dnsZoneService) Create(ctx context.Context, req contracts.CreateDNSZoneRequest) (*contracts.DNSZone, error) {
	name, err := common.CanonicalZoneName(req.Name)
	if err != nil {
		return nil, err
	}
	email := req.AdminEmail
	switch {
	case email == "":
		email = "hostmaster@" + strings.TrimSuffix(name, ".")
	case !strings.Contains(email, "@"):
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid admin email %q", email), nil)
	}
	sc, err := s.client()
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSZones, "create", name, func(ctx context.Context) (*contracts.DNSZone, error) {
		z, err := zones.Create(sc, zones.CreateOpts{
			Name:        name,
			Email:       email,
			Description: req.Description,
			Type:        primaryZone,
		}).Extract()
		if err != nil {
			return nil, err
		}
		return toZone(z), nil
	})
}

// Delete removes the zone with all its record sets
func (s *dnsZoneService) Delete(ctx context.Context, id string) error {
	sc, err := s.client()
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceDNSZones, "delete", id, func(ctx context.Context) error {
		return zones.Delete(sc, id).Err
	})
	return contracts.IgnoreNotFound(err)
}

// dnsRecordService manages Designate record sets. Record IDs are the
// native record set IDs.
type dnsRecordService struct{ p *Provider }

func (s *dnsRecordService) client() (*gophercloud.ServiceClient, error) {
	return optional(s.p.clients.DNS, contracts.ServiceDNSRecords)
}

// TXT and SPF records are stored as quoted character strings
func quoted(recordType contracts.DNSRecordType) bool {
	return recordType == contracts.DNSRecordTXT || recordType == contracts.DNSRecordSPF
}

func toRecord(rs *recordsets.RecordSet) *contracts.DNSRecord {
	recordType := contracts.DNSRecordType(rs.Type)
	r := &contracts.DNSRecord{
		Resource: contracts.Resource{ID: rs.ID, Name: strings.ToLower(rs.Name), CreateTime: rs.CreatedAt},
		ZoneID:   rs.ZoneID,
		Type:     recordType,
		TTL:      rs.TTL,
	}
	for _, value := range rs.Records {
		if quoted(recordType) {
			if unquoted, err := strconv.Unquote(value); err == nil {
				value = unquoted
			}
		}
		r.Data = append(r.Data, value)
	}
	return r
}

func (s *dnsRecordService) Get(ctx context.Context, zoneID, id string) (*contracts.DNSRecord, error) {
	sc, err := s.client()
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSRecords, "get", id, func(ctx context.Context) (*contracts.DNSRecord, error) {
		rs, err := recordsets.Get(sc, zoneID, id).Extract()
		if err != nil {
			return nil, err
		}
		return toRecord(rs), nil
	})
}

func (s *dnsRecordService) List(ctx context.Context, zoneID string, opts paging.ListOptions) (*paging.ResultList[*contracts.DNSRecord], error) {
	sc, err := s.client()
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSRecords, "list", zoneID, func(ctx context.Context) (*paging.ResultList[*contracts.DNSRecord], error) {
		page, err := firstPage(recordsets.ListByZone(sc, zoneID, recordsets.ListOpts{
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), recordsets.ExtractRecordSets)
		if err != nil {
			return nil, err
		}
		return convertPage(page, opts, toRecord), nil
	})
}

// Create adds a record set; Designate answers 409 for an existing name and
// type, which surfaces as Duplicate
func (s *dnsRecordService) Create(ctx context.Context, zoneID string, req contracts.CreateDNSRecordRequest) (*contracts.DNSRecord, error) {
	zone, err := s.p.dns.Zones.Get(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	req, err = common.NormalizeRecord(zone.Name, req)
	if err != nil {
		return nil, err
	}
	records := make([]string, 0, len(req.Data))
	for _, value := range req.Data {
		if quoted(req.Type) && !strings.HasPrefix(value, `"`) {
			value = strconv.Quote(value)
		}
		records = append(records, value)
	}
	sc, err := s.client()
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSRecords, "create", common.RecordID(req.Name, req.Type), func(ctx context.Context) (*contracts.DNSRecord, error) {
		rs, err := recordsets.Create(sc, zoneID, recordsets.CreateOpts{
			Name:    req.Name,
			Type:    string(req.Type),
			TTL:     req.TTL,
			Records: records,
		}).Extract()
		if err != nil {
			return nil, err
		}
		return toRecord(rs), nil
	})
}

func (s *dnsRecordService) Delete(ctx context.Context, zoneID, id string) error {
	sc, err := s.client()
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceDNSRecords, "delete", id, func(ctx context.Context) error {
		return recordsets.Delete(sc, zoneID, id).ExtractErr()
	})
	return contracts.IgnoreNotFound(err)
}
