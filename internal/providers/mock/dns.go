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

package mock

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

type dnsZoneService struct{ p *Provider }

func (s *dnsZoneService) Get(ctx context.Context, id string) (*contracts.DNSZone, error) {
	var out *contracts.DNSZone
	err := s.p.do(ctx, contracts.ServiceDNSZones, "get", id, func() error {
		z, ok := s.p.dnsZones.get(id)
		if !ok {
			return contracts.NotFoundf("dns zone", id)
		}
		out = cloneOf(z)
		return nil
	})
	return out, err
}

func (s *dnsZoneService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.DNSZone], error) {
	var out *paging.ResultList[*contracts.DNSZone]
	err := s.p.do(ctx, contracts.ServiceDNSZones, "list", "", func() error {
		out = common.Page(snapshotOf(s.p.dnsZones.values()), opts)
		return nil
	})
	return out, err
}

func (s *dnsZoneService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.DNSZone], error) {
	if opts.Name != "" {
		if name, err := common.CanonicalZoneName(opts.Name); err == nil {
			opts.Name = name
		}
	}
	var out *paging.ResultList[*contracts.DNSZone]
	err := s.p.do(ctx, contracts.ServiceDNSZones, "find", "", func() error {
		out = paging.Find(snapshotOf(s.p.dnsZones.values()), opts)
		return nil
	})
	return out, err
}

func (s *dnsZoneService) Create(ctx context.Context, req contracts.CreateDNSZoneRequest) (*contracts.DNSZone, error) {
	name, err := common.CanonicalZoneName(req.Name)
	if err != nil {
		return nil, err
	}
	if req.AdminEmail != "" && !strings.Contains(req.AdminEmail, "@") {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid admin email %q", req.AdminEmail), nil)
	}
	var out *contracts.DNSZone
	err = s.p.do(ctx, contracts.ServiceDNSZones, "create", name, func() error {
		for _, z := range s.p.dnsZones.values() {
			if z.Name == name {
				return contracts.NewDuplicateError(fmt.Sprintf("dns zone %q already exists", name), nil)
			}
		}
		id := s.p.generateID("zone")
		z := &contracts.DNSZone{
			Resource:    contracts.Resource{ID: id, Name: name, CreateTime: s.p.now()},
			AdminEmail:  req.AdminEmail,
			Description: req.Description,
		}
		s.p.dnsZones.put(id, z)
		records := newTable[contracts.DNSRecord]()
		ns := &contracts.DNSRecord{
			Resource: contracts.Resource{ID: common.RecordID(name, contracts.DNSRecordNS), Name: name},
			ZoneID:   id,
			Type:     contracts.DNSRecordNS,
			Data:     []string{"ns1.mock.example.", "ns2.mock.example."},
			TTL:      172800,
		}
		records.put(ns.ID, ns)
		s.p.dnsRecords[id] = records
		out = cloneOf(z)
		return nil
	})
	return out, err
}

func (s *dnsZoneService) Delete(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceDNSZones, "delete", id, func() error {
		s.p.dnsZones.remove(id)
		delete(s.p.dnsRecords, id)
		return nil
	})
}

type dnsRecordService struct{ p *Provider }

// zoneRecords resolves a zone and its records. Callers hold p.mu.
func (s *dnsRecordService) zoneRecords(zoneID string) (*contracts.DNSZone, *table[contracts.DNSRecord], error) {
	z, ok := s.p.dnsZones.get(zoneID)
	if !ok {
		return nil, nil, contracts.NotFoundf("dns zone", zoneID)
	}
	return z, s.p.dnsRecords[zoneID], nil
}

func cloneRecord(r *contracts.DNSRecord) *contracts.DNSRecord {
	c := cloneOf(r)
	c.Data = slices.Clone(r.Data)
	return c
}

func (s *dnsRecordService) Get(ctx context.Context, zoneID, id string) (*contracts.DNSRecord, error) {
	var out *contracts.DNSRecord
	err := s.p.do(ctx, contracts.ServiceDNSRecords, "get", id, func() error {
		_, records, err := s.zoneRecords(zoneID)
		if err != nil {
			return err
		}
		r, ok := records.get(id)
		if !ok {
			return contracts.NotFoundf("dns record", id)
		}
		out = cloneRecord(r)
		return nil
	})
	return out, err
}

func (s *dnsRecordService) List(ctx context.Context, zoneID string, opts paging.ListOptions) (*paging.ResultList[*contracts.DNSRecord], error) {
	var out *paging.ResultList[*contracts.DNSRecord]
	err := s.p.do(ctx, contracts.ServiceDNSRecords, "list", zoneID, func() error {
		_, records, err := s.zoneRecords(zoneID)
		if err != nil {
			return err
		}
		all := records.values()
		cloned := make([]*contracts.DNSRecord, len(all))
		for i, r := range all {
			cloned[i] = cloneRecord(r)
		}
		out = common.Page(cloned, opts)
		return nil
	})
	return out, err
}

func (s *dnsRecordService) Create(ctx context.Context, zoneID string, req contracts.CreateDNSRecordRequest) (*contracts.DNSRecord, error) {
	var out *contracts.DNSRecord
	err := s.p.do(ctx, contracts.ServiceDNSRecords, "create", zoneID, func() error {
		z, records, err := s.zoneRecords(zoneID)
		if err != nil {
			return err
		}
		req, err := common.NormalizeRecord(z.Name, req)
		if err != nil {
			return err
		}
		id := common.RecordID(req.Name, req.Type)
		if _, ok := records.get(id); ok {
			return contracts.NewDuplicateError(fmt.Sprintf("record %s already exists", id), nil)
		}
		r := &contracts.DNSRecord{
			Resource: contracts.Resource{ID: id, Name: req.Name, CreateTime: s.p.now()},
			ZoneID:   zoneID,
			Type:     req.Type,
			Data:     slices.Clone(req.Data),
			TTL:      req.TTL,
		}
		records.put(id, r)
		out = cloneRecord(r)
		return nil
	})
	return out, err
}

func (s *dnsRecordService) Delete(ctx context.Context, zoneID, id string) error {
	return s.p.do(ctx, contracts.ServiceDNSRecords, "delete", id, func() error {
		_, records, err := s.zoneRecords(zoneID)
		if err != nil {
			return contracts.IgnoreNotFound(err)
		}
		records.remove(id)
		return nil
	})
}
