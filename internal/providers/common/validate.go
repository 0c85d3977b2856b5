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
	"fmt"
	"net/netip"
	"strings"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	// AnyIPv4 is the CIDR used for rules that name no remote
	AnyIPv4 = "0.0.0.0/0"
	// DefaultRecordTTL is applied to records created without a TTL
	DefaultRecordTTL = 300
	// MaxPort is the highest TCP/UDP port
	MaxPort = 65535

	// DefaultNetworkLabel labels the network created when an instance is
	// launched without a subnet and the account has no default network
	DefaultNetworkLabel = "cloudbridge-net"
	// DefaultNetworkCIDR is the range of that network
	DefaultNetworkCIDR = "10.0.0.0/16"
)

// DefaultSubnetCIDR is the range of the n-th subnet created in the default network
func DefaultSubnetCIDR(n int) string {
	return fmt.Sprintf("10.0.%d.0/24", n%256)
}

// ParseCIDR validates an IPv4 or IPv6 prefix
func ParseCIDR(cidr string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return netip.Prefix{}, contracts.NewInvalidValueError(fmt.Sprintf("invalid CIDR %q", cidr), err)
	}
	return prefix.Masked(), nil
}

// CIDRWithin reports whether inner is fully contained in outer
func CIDRWithin(outer, inner string) bool {
	o, err := netip.ParsePrefix(outer)
	if err != nil {
		return false
	}
	i, err := netip.ParsePrefix(inner)
	if err != nil {
		return false
	}
	return i.Bits() >= o.Bits() && o.Contains(i.Masked().Addr())
}

// NormalizeFirewallRule validates a rule request and fills defaults: an
// empty port range on tcp/udp means every port, and a rule without CIDR or
// source firewall applies to any address
func NormalizeFirewallRule(req contracts.CreateFirewallRuleRequest) (contracts.CreateFirewallRuleRequest, error) {
	if req.Direction == "" {
		req.Direction = contracts.TrafficInbound
	}
	if !req.Direction.Valid() {
		return req, contracts.NewInvalidValueError(fmt.Sprintf("invalid traffic direction %q", req.Direction), nil)
	}
	if req.Protocol == "" {
		req.Protocol = contracts.ProtocolTCP
	}
	if !req.Protocol.Valid() {
		return req, contracts.NewInvalidValueError(fmt.Sprintf("invalid protocol %q", req.Protocol), nil)
	}

	if req.Protocol.HasPorts() {
		if req.FromPort == 0 && req.ToPort == 0 {
			req.FromPort, req.ToPort = 1, MaxPort
		}
		if req.ToPort == 0 {
			req.ToPort = req.FromPort
		}
		if req.FromPort < 1 || req.ToPort > MaxPort || req.FromPort > req.ToPort {
			return req, contracts.NewInvalidValueError(fmt.Sprintf("invalid port range %d-%d", req.FromPort, req.ToPort), nil)
		}
	} else {
		req.FromPort, req.ToPort = 0, 0
	}

	switch {
	case req.CIDR != "" && req.SourceFirewallID != "":
		return req, contracts.NewInvalidValueError("a rule takes either a CIDR or a source firewall, not both", nil)
	case req.CIDR == "" && req.SourceFirewallID == "":
		req.CIDR = AnyIPv4
	case req.CIDR != "":
		prefix, err := ParseCIDR(req.CIDR)
		if err != nil {
			return req, err
		}
		req.CIDR = prefix.String()
	}
	return req, nil
}

// SameRule reports whether an existing rule matches a normalized request
func SameRule(rule contracts.FirewallRule, req contracts.CreateFirewallRuleRequest) bool {
	return rule.Direction == req.Direction &&
		rule.Protocol == req.Protocol &&
		rule.FromPort == req.FromPort &&
		rule.ToPort == req.ToPort &&
		rule.CIDR == req.CIDR &&
		rule.SourceFirewallID == req.SourceFirewallID
}

// CanonicalZoneName lowercases a DNS zone name and adds the trailing dot
func CanonicalZoneName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, ".")
	if name == "" || !strings.Contains(name, ".") {
		return "", contracts.NewInvalidNameError(name, "zone names must be fully qualified domain names")
	}
	for _, label := range strings.Split(name, ".") {
		if label == "" || len(label) > 63 || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "", contracts.NewInvalidNameError(name, "each domain label must be 1-63 characters and not start or end with a hyphen")
		}
	}
	return name + ".", nil
}

// QualifyRecordName turns a record name relative to zone into a fully
// qualified name. Names outside the zone are rejected.
func QualifyRecordName(zone, name string) (string, error) {
	zone, err := CanonicalZoneName(zone)
	if err != nil {
		return "", err
	}
	name = strings.ToLower(strings.TrimSpace(name))
	switch {
	case name == "" || name == "@":
		return zone, nil
	case strings.HasSuffix(name, "."):
		if name != zone && !strings.HasSuffix(name, "."+zone) {
			return "", contracts.NewInvalidNameError(name, fmt.Sprintf("record is not within zone %s", zone))
		}
		return name, nil
	default:
		return name + "." + zone, nil
	}
}

// NormalizeRecord validates a record request and applies the default TTL
func NormalizeRecord(zone string, req contracts.CreateDNSRecordRequest) (contracts.CreateDNSRecordRequest, error) {
	if !req.Type.Valid() {
		return req, contracts.NewInvalidValueError(fmt.Sprintf("unsupported record type %q", req.Type), nil)
	}
	if len(req.Data) == 0 {
		return req, contracts.NewInvalidValueError("a record needs at least one value", nil)
	}
	if req.TTL < 0 {
		return req, contracts.NewInvalidValueError(fmt.Sprintf("invalid TTL %d", req.TTL), nil)
	}
	if req.TTL == 0 {
		req.TTL = DefaultRecordTTL
	}
	name, err := QualifyRecordName(zone, req.Name)
	if err != nil {
		return req, err
	}
	req.Name = name
	return req, nil
}

// RecordID is the identifier of the record set name/type
func RecordID(name string, recordType contracts.DNSRecordType) string {
	return name + ":" + string(recordType)
}

// ParseRecordID splits a RecordID
func ParseRecordID(id string) (string, contracts.DNSRecordType, error) {
	i := strings.LastIndex(id, ":")
	if i <= 0 || i == len(id)-1 {
		return "", "", contracts.NewInvalidValueError(fmt.Sprintf("invalid record id %q", id), nil)
	}
	return id[:i], contracts.DNSRecordType(id[i+1:]), nil
}
