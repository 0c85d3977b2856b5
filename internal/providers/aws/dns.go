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

package aws

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/route53"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	hostedZonePrefix = "/hostedzone/"
	adminEmailPrefix = "admin_email="
	maxZoneItems     = 100
	maxRecordItems   = 300
)

type dnsZoneService struct{ p *Provider }

// Route 53 has no admin email; it is kept at the front of the zone comment
func zoneComment(adminEmail, description string) string {
	if adminEmail == "" {
		return description
	}
	return strings.TrimSpace(adminEmailPrefix + adminEmail + " " + description)
}

func parseZoneComment(comment string) (adminEmail, description string) {
	if !strings.HasPrefix(comment, adminEmailPrefix) {
		return "", comment
	}
	adminEmail, description, _ = strings.Cut(strings.TrimPrefix(comment, adminEmailPrefix), " ")
	return adminEmail, description
}

func toZone(hz *route53.HostedZone) *contracts.DNSZone {
	id := strings.TrimPrefix(aws.StringValue(hz.Id), hostedZonePrefix)
	z := &contracts.DNSZone{Resource: contracts.Resource{ID: id, Name: aws.StringValue(hz.Name)}}
	if hz.Config != nil {
		z.AdminEmail, z.Description = parseZoneComment(aws.StringValue(hz.Config.Comment))
	}
	return z
}

func (s *dnsZoneService) Get(ctx context.Context, id string) (*contracts.DNSZone, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSZones, "get", id, func(ctx context.Context) (*contracts.DNSZone, error) {
		out, err := s.p.clients.Route53.GetHostedZoneWithContext(ctx, &route53.GetHostedZoneInput{Id: aws.String(id)})
		if err != nil {
			return nil, err
		}
		return toZone(out.HostedZone), nil
	})
}

func (s *dnsZoneService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.DNSZone], error) {
	input := &route53.ListHostedZonesInput{
		MaxItems: aws.String(strconv.Itoa(min(paging.EffectiveLimit(opts.Limit), maxZoneItems))),
	}
	if opts.Marker != "" {
		input.Marker = aws.String(opts.Marker)
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSZones, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.DNSZone], error) {
		out, err := s.p.clients.Route53.ListHostedZonesWithContext(ctx, input)
		if err != nil {
			return nil, err
		}
		zones := make([]*contracts.DNSZone, 0, len(out.HostedZones))
		for _, hz := range out.HostedZones {
			zones = append(zones, toZone(hz))
		}
		return paging.NewServerPagedResultList(zones, aws.StringValue(out.NextMarker), aws.BoolValue(out.IsTruncated)), nil
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
	existing, err := s.Find(ctx, paging.FindOptions{Name: name})
	if err != nil {
		return nil, err
	}
	if len(existing.Items) > 0 {
		return nil, contracts.NewDuplicateError(fmt.Sprintf("dns zone %q already exists", name), nil)
	}

	input := &route53.CreateHostedZoneInput{
		Name: aws.String(name),
		// Retries reuse the reference so Route 53 does not create the zone twice
		CallerReference:  aws.String(fmt.Sprintf("%s%d", name, time.Now().UnixNano())),
		HostedZoneConfig: &route53.HostedZoneConfig{Comment: aws.String(zoneComment(req.AdminEmail, req.Description))},
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSZones, "create", name, func(ctx context.Context) (*contracts.DNSZone, error) {
		out, err := s.p.clients.Route53.CreateHostedZoneWithContext(ctx, input)
		if err != nil {
			return nil, err
		}
		return toZone(out.HostedZone), nil
	})
}

// Delete removes every record Route 53 did not create itself before the
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
	var changes []*route53.Change
	for _, rrs := range sets {
		t := aws.StringValue(rrs.Type)
		if aws.StringValue(rrs.Name) == zone.Name && (t == route53.RRTypeNs || t == route53.RRTypeSoa) {
			continue
		}
		changes = append(changes, &route53.Change{Action: aws.String(route53.ChangeActionDelete), ResourceRecordSet: rrs})
	}
	if len(changes) > 0 {
		if err := records.change(ctx, "delete_records", id, changes...); err != nil {
			return contracts.IgnoreNotFound(err)
		}
	}
	err = s.p.do(ctx, contracts.ServiceDNSZones, "delete", id, func(ctx context.Context) error {
		_, err := s.p.clients.Route53.DeleteHostedZoneWithContext(ctx, &route53.DeleteHostedZoneInput{Id: aws.String(id)})
		return err
	})
	return contracts.IgnoreNotFound(err)
}

type dnsRecordService struct{ p *Provider }

// TXT and SPF values are quoted character strings in Route 53
func quoted(recordType contracts.DNSRecordType) bool {
	return recordType == contracts.DNSRecordTXT || recordType == contracts.DNSRecordSPF
}

func toRecord(zoneID string, rrs *route53.ResourceRecordSet) *contracts.DNSRecord {
	name := strings.ToLower(aws.StringValue(rrs.Name))
	recordType := contracts.DNSRecordType(aws.StringValue(rrs.Type))
	r := &contracts.DNSRecord{
		Resource: contracts.Resource{ID: common.RecordID(name, recordType), Name: name},
		ZoneID:   zoneID,
		Type:     recordType,
		TTL:      int(aws.Int64Value(rrs.TTL)),
	}
	for _, rr := range rrs.ResourceRecords {
		value := aws.StringValue(rr.Value)
		if quoted(recordType) {
			if unquoted, err := strconv.Unquote(value); err == nil {
				value = unquoted
			}
		}
		r.Data = append(r.Data, value)
	}
	return r
}

func toRecordSet(req contracts.CreateDNSRecordRequest) *route53.ResourceRecordSet {
	rrs := &route53.ResourceRecordSet{
		Name: aws.String(req.Name),
		Type: aws.String(string(req.Type)),
		TTL:  aws.Int64(int64(req.TTL)),
	}
	for _, value := range req.Data {
		if quoted(req.Type) && !strings.HasPrefix(value, `"`) {
			value = strconv.Quote(value)
		}
		rrs.ResourceRecords = append(rrs.ResourceRecords, &route53.ResourceRecord{Value: aws.String(value)})
	}
	return rrs
}

func (s *dnsRecordService) page(ctx context.Context, input *route53.ListResourceRecordSetsInput) (*route53.ListResourceRecordSetsOutput, error) {
	return s.p.clients.Route53.ListResourceRecordSetsWithContext(ctx, input)
}

// all returns every record set of a zone in vendor form
func (s *dnsRecordService) all(ctx context.Context, zoneID string) ([]*route53.ResourceRecordSet, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSRecords, "list_all", zoneID, func(ctx context.Context) ([]*route53.ResourceRecordSet, error) {
		var sets []*route53.ResourceRecordSet
		input := &route53.ListResourceRecordSetsInput{HostedZoneId: aws.String(zoneID)}
		for {
			out, err := s.page(ctx, input)
			if err != nil {
				return nil, err
			}
			sets = append(sets, out.ResourceRecordSets...)
			if !aws.BoolValue(out.IsTruncated) {
				return sets, nil
			}
			input.StartRecordName, input.StartRecordType = out.NextRecordName, out.NextRecordType
		}
	})
}

func (s *dnsRecordService) change(ctx context.Context, operation, zoneID string, changes ...*route53.Change) error {
	return s.p.do(ctx, contracts.ServiceDNSRecords, operation, zoneID, func(ctx context.Context) error {
		_, err := s.p.clients.Route53.ChangeResourceRecordSetsWithContext(ctx, &route53.ChangeResourceRecordSetsInput{
			HostedZoneId: aws.String(zoneID),
			ChangeBatch:  &route53.ChangeBatch{Changes: changes},
		})
		return err
	})
}

// lookup fetches one record set by name and type
func (s *dnsRecordService) lookup(ctx context.Context, zoneID, id string) (*route53.ResourceRecordSet, error) {
	name, recordType, err := common.ParseRecordID(id)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSRecords, "get", id, func(ctx context.Context) (*route53.ResourceRecordSet, error) {
		out, err := s.page(ctx, &route53.ListResourceRecordSetsInput{
			HostedZoneId:    aws.String(zoneID),
			StartRecordName: aws.String(name),
			StartRecordType: aws.String(string(recordType)),
			MaxItems:        aws.String("1"),
		})
		if err != nil {
			return nil, err
		}
		for _, rrs := range out.ResourceRecordSets {
			if strings.EqualFold(aws.StringValue(rrs.Name), name) && aws.StringValue(rrs.Type) == string(recordType) {
				return rrs, nil
			}
		}
		return nil, contracts.NotFoundf("dns record", id)
	})
}

func (s *dnsRecordService) Get(ctx context.Context, zoneID, id string) (*contracts.DNSRecord, error) {
	rrs, err := s.lookup(ctx, zoneID, id)
	if err != nil {
		return nil, err
	}
	return toRecord(zoneID, rrs), nil
}

// List pages by record name and type; the marker is the RecordID of the
// first record of the next page
func (s *dnsRecordService) List(ctx context.Context, zoneID string, opts paging.ListOptions) (*paging.ResultList[*contracts.DNSRecord], error) {
	input := &route53.ListResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		MaxItems:     aws.String(strconv.Itoa(min(paging.EffectiveLimit(opts.Limit), maxRecordItems))),
	}
	if opts.Marker != "" {
		name, recordType, err := common.ParseRecordID(opts.Marker)
		if err != nil {
			return nil, err
		}
		input.StartRecordName, input.StartRecordType = aws.String(name), aws.String(string(recordType))
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceDNSRecords, "list", zoneID, func(ctx context.Context) (*paging.ResultList[*contracts.DNSRecord], error) {
		out, err := s.page(ctx, input)
		if err != nil {
			return nil, err
		}
		records := make([]*contracts.DNSRecord, 0, len(out.ResourceRecordSets))
		for _, rrs := range out.ResourceRecordSets {
			records = append(records, toRecord(zoneID, rrs))
		}
		var next string
		if aws.BoolValue(out.IsTruncated) {
			next = common.RecordID(aws.StringValue(out.NextRecordName), contracts.DNSRecordType(aws.StringValue(out.NextRecordType)))
		}
		return paging.NewServerPagedResultList(records, next, next != ""), nil
	})
}

func (s *dnsRecordService) Create(ctx context.Context, zoneID string, req contracts.CreateDNSRecordRequest) (*contracts.DNSRecord, error) {
	zone, err := s.p.dns.Zones.Get(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	req, err = common.NormalizeRecord(zone.Name, req)
	if err != nil {
		return nil, err
	}
	id := common.RecordID(req.Name, req.Type)
	if _, err := s.lookup(ctx, zoneID, id); err == nil {
		return nil, contracts.NewDuplicateError(fmt.Sprintf("record %s already exists in zone %s", id, zone.Name), nil)
	} else if !contracts.IsNotFound(err) {
		return nil, err
	}

	rrs := toRecordSet(req)
	err = s.change(ctx, "create", zoneID, &route53.Change{Action: aws.String(route53.ChangeActionCreate), ResourceRecordSet: rrs})
	if err != nil {
		return nil, err
	}
	return toRecord(zoneID, rrs), nil
}

func (s *dnsRecordService) Delete(ctx context.Context, zoneID, id string) error {
	rrs, err := s.lookup(ctx, zoneID, id)
	if err != nil {
		return contracts.IgnoreNotFound(err)
	}
	err = s.change(ctx, "delete", zoneID, &route53.Change{Action: aws.String(route53.ChangeActionDelete), ResourceRecordSet: rrs})
	return contracts.IgnoreNotFound(err)
}
