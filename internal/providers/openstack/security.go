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
	"net/netip"

	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/keypairs"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/security/groups"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/security/rules"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// anyIPv6 is the remote of IPv6 rules that name no prefix
const anyIPv6 = "::/0"

// keyPairService manages Nova key pairs; the key pair name is its ID
type keyPairService struct{ p *Provider }

func toKeyPair(kp *keypairs.KeyPair) *contracts.KeyPair {
	return &contracts.KeyPair{
		Resource:    contracts.Resource{ID: kp.Name, Name: kp.Name},
		Fingerprint: kp.Fingerprint,
		PublicKey:   kp.PublicKey,
	}
}

func (s *keyPairService) Get(ctx context.Context, id string) (*contracts.KeyPair, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceKeyPairs, "get", id, func(ctx context.Context) (*contracts.KeyPair, error) {
		kp, err := keypairs.Get(s.p.clients.Compute, id, nil).Extract()
		if err != nil {
			return nil, err
		}
		return toKeyPair(kp), nil
	})
}

// List pages client-side; key pair paging needs a recent microversion
func (s *keyPairService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.KeyPair], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceKeyPairs, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.KeyPair], error) {
		all, err := allPages(keypairs.List(s.p.clients.Compute, nil), keypairs.ExtractKeyPairs)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.KeyPair, 0, len(all))
		for i := range all {
			out = append(out, toKeyPair(&all[i]))
		}
		return common.Page(out, opts), nil
	})
}

func (s *keyPairService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.KeyPair], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create always imports a public key. Keys are generated locally because
// newer Nova microversions no longer generate them.
func (s *keyPairService) Create(ctx context.Context, req contracts.CreateKeyPairRequest) (*contracts.KeyPair, error) {
	if err := contracts.ValidateName(req.Name); err != nil {
		return nil, err
	}
	key, err := common.KeyPairMaterial(req)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceKeyPairs, "create", req.Name, func(ctx context.Context) (*contracts.KeyPair, error) {
		kp, err := keypairs.Create(s.p.clients.Compute, keypairs.CreateOpts{
			Name:      req.Name,
			PublicKey: key.PublicKey,
		}).Extract()
		if err != nil {
			return nil, err
		}
		out := toKeyPair(kp)
		out.PrivateKey = key.PrivateKey
		return out, nil
	})
}

func (s *keyPairService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceKeyPairs, "delete", id, func(ctx context.Context) error {
		return keypairs.Delete(s.p.clients.Compute, id, nil).ExtractErr()
	})
	return contracts.IgnoreNotFound(err)
}

// vmFirewallService manages Neutron security groups. Groups are not
// scoped to a network; the network is recorded as a tag.
type vmFirewallService struct {
	p     *Provider
	rules *firewallRuleService
}

func toProtocol(protocol string) contracts.Protocol {
	switch protocol {
	case "", "any":
		return contracts.ProtocolAll
	case "tcp", "6":
		return contracts.ProtocolTCP
	case "udp", "17":
		return contracts.ProtocolUDP
	case "icmp", "1", "ipv6-icmp", "58":
		return contracts.ProtocolICMP
	}
	return contracts.Protocol(protocol)
}

func toRule(r *rules.SecGroupRule) contracts.FirewallRule {
	rule := contracts.FirewallRule{
		ID:               r.ID,
		FirewallID:       r.SecGroupID,
		Direction:        contracts.TrafficInbound,
		Protocol:         toProtocol(r.Protocol),
		FromPort:         r.PortRangeMin,
		ToPort:           r.PortRangeMax,
		CIDR:             r.RemoteIPPrefix,
		SourceFirewallID: r.RemoteGroupID,
	}
	if r.Direction == string(rules.DirEgress) {
		rule.Direction = contracts.TrafficOutbound
	}
	if rule.Protocol.HasPorts() && rule.FromPort == 0 && rule.ToPort == 0 {
		rule.FromPort, rule.ToPort = 1, common.MaxPort
	}
	if rule.CIDR == "" && rule.SourceFirewallID == "" {
		rule.CIDR = common.AnyIPv4
		if r.EtherType == string(rules.EtherType6) {
			rule.CIDR = anyIPv6
		}
	}
	return rule
}

func toFirewall(g *groups.SecGroup) *contracts.VMFirewall {
	res := tagResource(g.ID, g.Name, g.Tags)
	res.CreateTime = g.CreatedAt
	fw := &contracts.VMFirewall{
		Resource:    res,
		Description: g.Description,
		NetworkID:   res.Tags[networkKey],
	}
	for i := range g.Rules {
		fw.Rules = append(fw.Rules, toRule(&g.Rules[i]))
	}
	return fw
}

func (s *vmFirewallService) Get(ctx context.Context, id string) (*contracts.VMFirewall, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "get", id, func(ctx context.Context) (*contracts.VMFirewall, error) {
		g, err := groups.Get(s.p.clients.Network, id).Extract()
		if err != nil {
			return nil, err
		}
		return toFirewall(g), nil
	})
}

func (s *vmFirewallService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.VMFirewall], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.VMFirewall], error) {
		page, err := firstPage(groups.List(s.p.clients.Network, groups.ListOpts{
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), groups.ExtractGroups)
		if err != nil {
			return nil, err
		}
		return convertPage(page, opts, toFirewall), nil
	})
}

func (s *vmFirewallService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.VMFirewall], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *vmFirewallService) Create(ctx context.Context, req contracts.CreateVMFirewallRequest) (*contracts.VMFirewall, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	var extra map[string]string
	if req.NetworkID != "" {
		extra = map[string]string{networkKey: req.NetworkID}
	}
	tags := joinTags(req.Label, extra)

	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "create", name, func(ctx context.Context) (*contracts.VMFirewall, error) {
		g, err := groups.Create(s.p.clients.Network, groups.CreateOpts{
			Name:        name,
			Description: req.Description,
		}).Extract()
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			if err := setTags(s.p.clients.Network, securityGroupsResource, g.ID, tags); err != nil {
				return nil, err
			}
			g.Tags = tags
		}
		return toFirewall(g), nil
	})
}

func (s *vmFirewallService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceVMFirewalls, "delete", id, func(ctx context.Context) error {
		return groups.Delete(s.p.clients.Network, id).ExtractErr()
	})
	return contracts.IgnoreNotFound(err)
}

func (s *vmFirewallService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	fw, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.p.setTagLabel(ctx, contracts.ServiceVMFirewalls, securityGroupsResource, fw.Resource, label)
}

func (s *vmFirewallService) Rules() contracts.FirewallRuleService { return s.rules }

type firewallRuleService struct{ p *Provider }

func (s *firewallRuleService) List(ctx context.Context, firewallID string, opts paging.ListOptions) (*paging.ResultList[*contracts.FirewallRule], error) {
	fw, err := s.p.security.VMFirewalls.Get(ctx, firewallID)
	if err != nil {
		return nil, err
	}
	out := make([]*contracts.FirewallRule, len(fw.Rules))
	for i := range fw.Rules {
		out[i] = &fw.Rules[i]
	}
	return common.Page(out, opts), nil
}

func toCreateOpts(firewallID string, req contracts.CreateFirewallRuleRequest) rules.CreateOpts {
	opts := rules.CreateOpts{
		Direction:      rules.DirIngress,
		EtherType:      rules.EtherType4,
		SecGroupID:     firewallID,
		RemoteIPPrefix: req.CIDR,
		RemoteGroupID:  req.SourceFirewallID,
	}
	if req.Direction == contracts.TrafficOutbound {
		opts.Direction = rules.DirEgress
	}
	if prefix, err := netip.ParsePrefix(req.CIDR); err == nil && prefix.Addr().Is6() {
		opts.EtherType = rules.EtherType6
	}
	if req.Protocol != contracts.ProtocolAll {
		opts.Protocol = rules.RuleProtocol(req.Protocol)
	}
	if req.Protocol.HasPorts() {
		opts.PortRangeMin, opts.PortRangeMax = req.FromPort, req.ToPort
	}
	return opts
}

// Create adds a rule; an equivalent existing rule yields Duplicate
func (s *firewallRuleService) Create(ctx context.Context, firewallID string, req contracts.CreateFirewallRuleRequest) (*contracts.FirewallRule, error) {
	req, err := common.NormalizeFirewallRule(req)
	if err != nil {
		return nil, err
	}
	fw, err := s.p.security.VMFirewalls.Get(ctx, firewallID)
	if err != nil {
		return nil, err
	}
	for _, rule := range fw.Rules {
		if common.SameRule(rule, req) {
			return nil, contracts.NewDuplicateError(fmt.Sprintf("firewall %s already has rule %s", fw.Name, rule.ID), nil)
		}
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "create_rule", firewallID, func(ctx context.Context) (*contracts.FirewallRule, error) {
		r, err := rules.Create(s.p.clients.Network, toCreateOpts(firewallID, req)).Extract()
		if err != nil {
			return nil, err
		}
		rule := toRule(r)
		return &rule, nil
	})
}

func (s *firewallRuleService) Delete(ctx context.Context, firewallID, ruleID string) error {
	err := s.p.do(ctx, contracts.ServiceVMFirewalls, "delete_rule", firewallID, func(ctx context.Context) error {
		return rules.Delete(s.p.clients.Network, ruleID).ExtractErr()
	})
	return contracts.IgnoreNotFound(err)
}
