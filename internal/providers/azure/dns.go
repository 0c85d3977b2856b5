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

package azure

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dns/armdns"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	// dnsLocation is the location of every Azure DNS zone
	dnsLocation = "global"
	apexName    = "@"
)

// dnsZoneService manages public Azure DNS zones. Names are canonical with a
// trailing dot; ARM names carry none.
type dnsZoneService struct{ p *Provider }

func toZone(z *armdns.Zone) *contracts.DNSZone {
	zone := &contracts.DNSZone{Resource: resource(z.ID, z.Name, z.Tags)}
	zone.Name = strings.ToLower(zone.Name) + "."
	zone.AdminEmail = popTag(&zone.Resource, adminEmailTag)
	zone.Description = popTag(&zone.Resource, descriptionTag)
	return zone
}

func (s *dnsZoneService) Get(ctx context.Context, id string) (*contracts.DNSZone, error) {
	name, err := s.p.ref(strings.TrimSuffix(id, "."), typeDNSZones)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSZones, "get", name, func(ctx context.Context) (*contracts.DNSZone, error) {
		z, err := s.p.clients.Zones.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		return toZone(z), nil
	})
}

func (s *dnsZoneService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.DNSZone], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSZones, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.DNSZone], error) {
		all, err := s.p.clients.Zones.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.DNSZone, 0, len(all))
		for _, z := range all {
			out = append(out, toZone(z))
		}
		return common.Page(out, opts), nil
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

// Create adds a public zone. ARM PUTs overwrite, so an existing zone is
// checked for first.
func (s *dnsZoneService) Create(ctx context.Context, req contracts.CreateDNSZoneRequest) (*contracts.DNSZone, error) {
	canonical, err := common.CanonicalZoneName(req.Name)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(canonical, ".")
	email := req.AdminEmail
	switch {
	case email == "":
		email = "hostmaster@" + name
	case !strings.Contains(email, "@"):
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid admin email %q", email), nil)
	}
	_, err = s.Get(ctx, name)
	switch {
	case err == nil:
		return nil, contracts.NewDuplicateError(fmt.Sprintf("DNS zone %s already exists", canonical), nil)
	case !contracts.IsNotFound(err):
		return nil, err
	}
	zone := armdns.Zone{
		Location: to.Ptr(dnsLocation),
		Tags:     tagsOf("", map[string]string{adminEmailTag: email, descriptionTag: req.Description}),
		Properties: &armdns.ZoneProperties{
			ZoneType: to.Ptr(armdns.ZoneTypePublic),
		},
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSZones, "create", name, func(ctx context.Context) (*contracts.DNSZone, error) {
		z, err := s.p.clients.Zones.CreateOrUpdate(ctx, name, zone)
		if err != nil {
			return nil, err
		}
		return toZone(z), nil
	})
}

func (s *dnsZoneService) Delete(ctx context.Context, id string) error {
	name, err := s.p.ref(strings.TrimSuffix(id, "."), typeDNSZones)
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceDNSZones, "delete", name, func(ctx context.Context) error {
		return s.p.clients.Zones.Delete(ctx, name)
	})
	return contracts.IgnoreNotFound(err)
}

// dnsRecordService manages record sets. Record IDs are RecordID of the
// fully qualified name and type.
type dnsRecordService struct{ p *Provider }

// recordTypeOf strips the resource type prefix: Microsoft.Network/dnszones/A -> A
func recordTypeOf(rs *armdns.RecordSet) contracts.DNSRecordType {
	return contracts.DNSRecordType(nameOf(deref(rs.Type)))
}

// relativeName converts a fully qualified record name to the name of the
// record set within zone
func relativeName(zone, fqdn string) string {
	fqdn = strings.ToLower(fqdn)
	if fqdn == zone {
		return apexName
	}
	return strings.TrimSuffix(fqdn, "."+zone)
}

func recordData(t contracts.DNSRecordType, props *armdns.RecordSetProperties) []string {
	var data []string
	switch t {
	case contracts.DNSRecordA:
		for _, r := range props.ARecords {
			data = append(data, deref(r.IPv4Address))
		}
	case contracts.DNSRecordAAAA:
		for _, r := range props.AaaaRecords {
			data = append(data, deref(r.IPv6Address))
		}
	case contracts.DNSRecordCNAME:
		if props.CnameRecord != nil {
			data = append(data, deref(props.CnameRecord.Cname))
		}
	case contracts.DNSRecordMX:
		for _, r := range props.MxRecords {
			data = append(data, fmt.Sprintf("%d %s", deref(r.Preference), deref(r.Exchange)))
		}
	case contracts.DNSRecordNS:
		for _, r := range props.NsRecords {
			data = append(data, deref(r.Nsdname))
		}
	case contracts.DNSRecordPTR:
		for _, r := range props.PtrRecords {
			data = append(data, deref(r.Ptrdname))
		}
	case contracts.DNSRecordSRV:
		for _, r := range props.SrvRecords {
			data = append(data, fmt.Sprintf("%d %d %d %s", deref(r.Priority), deref(r.Weight), deref(r.Port), deref(r.Target)))
		}
	case contracts.DNSRecordTXT:
		for _, r := range props.TxtRecords {
			var parts []string
			for _, v := range r.Value {
				parts = append(parts, deref(v))
			}
			data = append(data, strings.Join(parts, ""))
		}
	case contracts.DNSRecordCAA:
		for _, r := range props.CaaRecords {
			data = append(data, fmt.Sprintf("%d %s %q", deref(r.Flags), deref(r.Tag), deref(r.Value)))
		}
	case contracts.DNSRecordSOA:
		if soa := props.SoaRecord; soa != nil {
			data = append(data, fmt.Sprintf("%s %s %d %d %d %d %d", deref(soa.Host), deref(soa.Email),
				deref(soa.SerialNumber), deref(soa.RefreshTime), deref(soa.RetryTime), deref(soa.ExpireTime), deref(soa.MinimumTTL)))
		}
	}
	return data
}

func toRecord(zoneID, zone string, rs *armdns.RecordSet) *contracts.DNSRecord {
	t := recordTypeOf(rs)
	name := deref(rs.Name)
	fqdn := zone
	if name != apexName {
		fqdn = strings.ToLower(name) + "." + zone
	}
	r := &contracts.DNSRecord{
		Resource: contracts.Resource{ID: common.RecordID(fqdn, t), Name: fqdn},
		ZoneID:   zoneID,
		Type:     t,
	}
	if props := rs.Properties; props != nil {
		r.TTL = int(deref(props.TTL))
		r.Data = recordData(t, props)
	}
	return r
}

func fields(value string, n int) ([]string, error) {
	f := strings.Fields(value)
	if len(f) != n {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid record value %q", value), nil)
	}
	return f, nil
}

func uint16Of(value string) (*int32, error) {
	n, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid number %q", value), err)
	}
	return to.Ptr(int32(n)), nil
}

// recordProperties fills the typed record list of a record set from the
// textual record values
func recordProperties(req contracts.CreateDNSRecordRequest) (*armdns.RecordSetProperties, error) {
	props := &armdns.RecordSetProperties{TTL: to.Ptr(int64(req.TTL))}
	for _, value := range req.Data {
		switch req.Type {
		case contracts.DNSRecordA:
			props.ARecords = append(props.ARecords, &armdns.ARecord{IPv4Address: to.Ptr(value)})
		case contracts.DNSRecordAAAA:
			props.AaaaRecords = append(props.AaaaRecords, &armdns.AaaaRecord{IPv6Address: to.Ptr(value)})
		case contracts.DNSRecordCNAME:
			if len(req.Data) != 1 {
				return nil, contracts.NewInvalidValueError("a CNAME record takes exactly one value", nil)
			}
			props.CnameRecord = &armdns.CnameRecord{Cname: to.Ptr(value)}
		case contracts.DNSRecordMX:
			f, err := fields(value, 2)
			if err != nil {
				return nil, err
			}
			pref, err := uint16Of(f[0])
			if err != nil {
				return nil, err
			}
			props.MxRecords = append(props.MxRecords, &armdns.MxRecord{Preference: pref, Exchange: to.Ptr(f[1])})
		case contracts.DNSRecordNS:
			props.NsRecords = append(props.NsRecords, &armdns.NsRecord{Nsdname: to.Ptr(value)})
		case contracts.DNSRecordPTR:
			props.PtrRecords = append(props.PtrRecords, &armdns.PtrRecord{Ptrdname: to.Ptr(value)})
		case contracts.DNSRecordSRV:
			f, err := fields(value, 4)
			if err != nil {
				return nil, err
			}
			nums := make([]*int32, 3)
			for i := range nums {
				if nums[i], err = uint16Of(f[i]); err != nil {
					return nil, err
				}
			}
			props.SrvRecords = append(props.SrvRecords, &armdns.SrvRecord{
				Priority: nums[0], Weight: nums[1], Port: nums[2], Target: to.Ptr(f[3]),
			})
		case contracts.DNSRecordTXT:
			props.TxtRecords = append(props.TxtRecords, &armdns.TxtRecord{Value: []*string{to.Ptr(value)}})
		case contracts.DNSRecordCAA:
			f, err := fields(value, 3)
			if err != nil {
				return nil, err
			}
			flags, err := strconv.ParseUint(f[0], 10, 8)
			if err != nil {
				return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid CAA flags %q", f[0]), err)
			}
			v := f[2]
			if unquoted, err := strconv.Unquote(v); err == nil {
				v = unquoted
			}
			props.CaaRecords = append(props.CaaRecords, &armdns.CaaRecord{
				Flags: to.Ptr(int32(flags)), Tag: to.Ptr(f[1]), Value: to.Ptr(v),
			})
		default:
			return nil, contracts.NewNotSupportedError(fmt.Sprintf("Azure DNS cannot create %s records", req.Type))
		}
	}
	return props, nil
}

// zone resolves a zone ID into its ARM name and canonical name
func (s *dnsRecordService) zone(ctx context.Context, zoneID string) (*contracts.DNSZone, error) {
	return s.p.dns.Zones.Get(ctx, zoneID)
}

func (s *dnsRecordService) Get(ctx context.Context, zoneID, id string) (*contracts.DNSRecord, error) {
	fqdn, t, err := common.ParseRecordID(id)
	if err != nil {
		return nil, err
	}
	zone, err := s.zone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	armZone := strings.TrimSuffix(zone.Name, ".")
	name := relativeName(zone.Name, fqdn)
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSRecords, "get", id, func(ctx context.Context) (*contracts.DNSRecord, error) {
		rs, err := s.p.clients.RecordSets.Get(ctx, armZone, armdns.RecordType(t), name)
		if err != nil {
			return nil, err
		}
		return toRecord(zone.ID, zone.Name, rs), nil
	})
}

func (s *dnsRecordService) List(ctx context.Context, zoneID string, opts paging.ListOptions) (*paging.ResultList[*contracts.DNSRecord], error) {
	zone, err := s.zone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	armZone := strings.TrimSuffix(zone.Name, ".")
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSRecords, "list", armZone, func(ctx context.Context) (*paging.ResultList[*contracts.DNSRecord], error) {
		all, err := s.p.clients.RecordSets.List(ctx, armZone)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.DNSRecord, 0, len(all))
		for _, rs := range all {
			out = append(out, toRecord(zone.ID, zone.Name, rs))
		}
		return common.Page(out, opts), nil
	})
}

// Create adds a record set. An existing name and type yields Duplicate
// rather than being overwritten.
func (s *dnsRecordService) Create(ctx context.Context, zoneID string, req contracts.CreateDNSRecordRequest) (*contracts.DNSRecord, error) {
	zone, err := s.zone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	req, err = common.NormalizeRecord(zone.Name, req)
	if err != nil {
		return nil, err
	}
	props, err := recordProperties(req)
	if err != nil {
		return nil, err
	}
	id := common.RecordID(req.Name, req.Type)
	_, err = s.Get(ctx, zoneID, id)
	switch {
	case err == nil:
		return nil, contracts.NewDuplicateError(fmt.Sprintf("record %s already exists", id), nil)
	case !contracts.IsNotFound(err):
		return nil, err
	}
	armZone := strings.TrimSuffix(zone.Name, ".")
	name := relativeName(zone.Name, req.Name)
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSRecords, "create", id, func(ctx context.Context) (*contracts.DNSRecord, error) {
		rs, err := s.p.clients.RecordSets.CreateOrUpdate(ctx, armZone, armdns.RecordType(req.Type), name, armdns.RecordSet{Properties: props})
		if err != nil {
			return nil, err
		}
		return toRecord(zone.ID, zone.Name, rs), nil
	})
}

func (s *dnsRecordService) Delete(ctx context.Context, zoneID, id string) error {
	fqdn, t, err := common.ParseRecordID(id)
	if err != nil {
		return err
	}
	zone, err := s.zone(ctx, zoneID)
	if err != nil {
		return contracts.IgnoreNotFound(err)
	}
	armZone := strings.TrimSuffix(zone.Name, ".")
	name := relativeName(zone.Name, fqdn)
	err = s.p.do(ctx, contracts.ServiceDNSRecords, "delete", id, func(ctx context.Context) error {
		return s.p.clients.RecordSets.Delete(ctx, armZone, armdns.RecordType(t), name)
	})
	return contracts.IgnoreNotFound(err)
}
