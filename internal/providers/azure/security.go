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
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v5"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// NSG rule priorities; lower numbers are evaluated first
const (
	firstPriority = 100
	priorityStep  = 10
	lastPriority  = 4096
)

// keyPairService manages SSH public key resources; the name is the ID
type keyPairService struct{ p *Provider }

func toKeyPair(key *armcompute.SSHPublicKeyResource) *contracts.KeyPair {
	name := deref(key.Name)
	kp := &contracts.KeyPair{Resource: contracts.Resource{ID: name, Name: name}}
	if key.Properties != nil {
		kp.PublicKey = deref(key.Properties.PublicKey)
		if parsed, err := common.ParseSSHPublicKey(kp.PublicKey); err == nil {
			kp.Fingerprint = parsed.Fingerprint
		}
	}
	return kp
}

func (s *keyPairService) Get(ctx context.Context, id string) (*contracts.KeyPair, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceKeyPairs, "get", id, func(ctx context.Context) (*contracts.KeyPair, error) {
		key, err := s.p.clients.SSHPublicKeys.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return toKeyPair(key), nil
	})
}

func (s *keyPairService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.KeyPair], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceKeyPairs, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.KeyPair], error) {
		all, err := s.p.clients.SSHPublicKeys.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.KeyPair, 0, len(all))
		for _, key := range all {
			out = append(out, toKeyPair(key))
		}
		return common.Page(out, opts), nil
	})
}

func (s *keyPairService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.KeyPair], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create stores the public key. ARM PUTs overwrite, so an existing name is
// checked for first.
func (s *keyPairService) Create(ctx context.Context, req contracts.CreateKeyPairRequest) (*contracts.KeyPair, error) {
	if err := contracts.ValidateName(req.Name); err != nil {
		return nil, err
	}
	_, err := s.Get(ctx, req.Name)
	switch {
	case err == nil:
		return nil, contracts.NewDuplicateError(fmt.Sprintf("key pair %s already exists", req.Name), nil)
	case !contracts.IsNotFound(err):
		return nil, err
	}
	key, err := common.KeyPairMaterial(req)
	if err != nil {
		return nil, err
	}
	resource := armcompute.SSHPublicKeyResource{
		Location:   to.Ptr(s.p.region),
		Properties: &armcompute.SSHPublicKeyResourceProperties{PublicKey: to.Ptr(key.PublicKey)},
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceKeyPairs, "create", req.Name, func(ctx context.Context) (*contracts.KeyPair, error) {
		created, err := s.p.clients.SSHPublicKeys.CreateOrUpdate(ctx, req.Name, resource)
		if err != nil {
			return nil, err
		}
		out := toKeyPair(created)
		out.PrivateKey = key.PrivateKey
		return out, nil
	})
}

func (s *keyPairService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceKeyPairs, "delete", id, func(ctx context.Context) error {
		return s.p.clients.SSHPublicKeys.Delete(ctx, id)
	})
	return contracts.IgnoreNotFound(err)
}

// vmFirewallService manages network security groups. The network a group
// was created for is recorded as a tag.
type vmFirewallService struct {
	p     *Provider
	rules *firewallRuleService
}

func toProtocol(protocol armnetwork.SecurityRuleProtocol) contracts.Protocol {
	switch protocol {
	case armnetwork.SecurityRuleProtocolTCP:
		return contracts.ProtocolTCP
	case armnetwork.SecurityRuleProtocolUDP:
		return contracts.ProtocolUDP
	case armnetwork.SecurityRuleProtocolIcmp:
		return contracts.ProtocolICMP
	case armnetwork.SecurityRuleProtocolAsterisk:
		return contracts.ProtocolAll
	}
	return contracts.Protocol(strings.ToLower(string(protocol)))
}

func fromProtocol(protocol contracts.Protocol) armnetwork.SecurityRuleProtocol {
	switch protocol {
	case contracts.ProtocolTCP:
		return armnetwork.SecurityRuleProtocolTCP
	case contracts.ProtocolUDP:
		return armnetwork.SecurityRuleProtocolUDP
	case contracts.ProtocolICMP:
		return armnetwork.SecurityRuleProtocolIcmp
	}
	return armnetwork.SecurityRuleProtocolAsterisk
}

// portRange renders "*", "N" or "N-M"
func portRange(from, until int) string {
	switch {
	case from == 0 && until == 0, from == 1 && until == common.MaxPort:
		return "*"
	case from == until:
		return strconv.Itoa(from)
	}
	return fmt.Sprintf("%d-%d", from, until)
}

func parsePortRange(r string) (int, int) {
	if r == "" || r == "*" {
		return 0, 0
	}
	lo, hi, ok := strings.Cut(r, "-")
	from, _ := strconv.Atoi(lo)
	if !ok {
		return from, from
	}
	until, _ := strconv.Atoi(hi)
	return from, until
}

// remoteCIDR maps the service tags meaning anywhere to the any-address CIDR
func remoteCIDR(prefix string) string {
	switch prefix {
	case "", "*", "Internet", common.AnyIPv4:
		return common.AnyIPv4
	}
	return prefix
}

func toRule(firewallID string, r *armnetwork.SecurityRule) contracts.FirewallRule {
	rule := contracts.FirewallRule{ID: deref(r.ID), FirewallID: firewallID, Direction: contracts.TrafficInbound}
	props := r.Properties
	if props == nil {
		return rule
	}
	rule.Protocol = toProtocol(deref(props.Protocol))
	remote := props.SourceAddressPrefix
	if deref(props.Direction) == armnetwork.SecurityRuleDirectionOutbound {
		rule.Direction = contracts.TrafficOutbound
		remote = props.DestinationAddressPrefix
	}
	rule.CIDR = remoteCIDR(deref(remote))
	if rule.Protocol.HasPorts() {
		rule.FromPort, rule.ToPort = parsePortRange(deref(props.DestinationPortRange))
		if rule.FromPort == 0 && rule.ToPort == 0 {
			rule.FromPort, rule.ToPort = 1, common.MaxPort
		}
	}
	return rule
}

// allowRules returns the Allow rules of a group; deny rules have no
// counterpart in the firewall model
func allowRules(nsg *armnetwork.SecurityGroup) []*armnetwork.SecurityRule {
	if nsg.Properties == nil {
		return nil
	}
	var out []*armnetwork.SecurityRule
	for _, r := range nsg.Properties.SecurityRules {
		if r.Properties != nil && deref(r.Properties.Access) == armnetwork.SecurityRuleAccessAllow {
			out = append(out, r)
		}
	}
	return out
}

func toFirewall(nsg *armnetwork.SecurityGroup) *contracts.VMFirewall {
	fw := &contracts.VMFirewall{Resource: resource(nsg.ID, nsg.Name, nsg.Tags)}
	fw.Description = popTag(&fw.Resource, descriptionTag)
	fw.NetworkID = popTag(&fw.Resource, networkTag)
	for _, r := range allowRules(nsg) {
		fw.Rules = append(fw.Rules, toRule(fw.ID, r))
	}
	return fw
}

func (s *vmFirewallService) fetch(ctx context.Context, id string) (*armnetwork.SecurityGroup, error) {
	name, err := s.p.ref(id, typeSecurityGroups)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "get", name, func(ctx context.Context) (*armnetwork.SecurityGroup, error) {
		return s.p.clients.SecurityGroups.Get(ctx, name)
	})
}

func (s *vmFirewallService) Get(ctx context.Context, id string) (*contracts.VMFirewall, error) {
	nsg, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return toFirewall(nsg), nil
}

func (s *vmFirewallService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.VMFirewall], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.VMFirewall], error) {
		all, err := s.p.clients.SecurityGroups.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.VMFirewall, 0, len(all))
		for _, nsg := range all {
			out = append(out, toFirewall(nsg))
		}
		return common.Page(out, opts), nil
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
	nsg := armnetwork.SecurityGroup{
		Location: to.Ptr(s.p.region),
		Tags: tagsOf(req.Label, map[string]string{
			descriptionTag: req.Description,
			networkTag:     req.NetworkID,
		}),
		Properties: &armnetwork.SecurityGroupPropertiesFormat{},
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "create", name, func(ctx context.Context) (*contracts.VMFirewall, error) {
		created, err := s.p.clients.SecurityGroups.CreateOrUpdate(ctx, name, nsg)
		if err != nil {
			return nil, err
		}
		return toFirewall(created), nil
	})
}

func (s *vmFirewallService) Delete(ctx context.Context, id string) error {
	name, err := s.p.ref(id, typeSecurityGroups)
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceVMFirewalls, "delete", name, func(ctx context.Context) error {
		return s.p.clients.SecurityGroups.Delete(ctx, name)
	})
	return contracts.IgnoreNotFound(err)
}

func (s *vmFirewallService) SetLabel(ctx context.Context, id, label string) error {
	return setLabel(ctx, s.p, contracts.ServiceVMFirewalls, s.p.clients.SecurityGroups, id, typeSecurityGroups, label,
		func(nsg *armnetwork.SecurityGroup) *map[string]*string { return &nsg.Tags })
}

func (s *vmFirewallService) Rules() contracts.FirewallRuleService { return s.rules }

// firewallRuleService manages NSG security rules. Rules are allow rules
// named after their priority.
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

// nextPriority returns the first free priority of a group
func nextPriority(nsg *armnetwork.SecurityGroup, direction armnetwork.SecurityRuleDirection) (int32, error) {
	used := make(map[int32]bool)
	if nsg.Properties != nil {
		for _, r := range nsg.Properties.SecurityRules {
			if r.Properties != nil && deref(r.Properties.Direction) == direction {
				used[deref(r.Properties.Priority)] = true
			}
		}
	}
	for p := int32(firstPriority); p <= lastPriority; p += priorityStep {
		if !used[p] {
			return p, nil
		}
	}
	return 0, contracts.NewInvalidValueError("firewall has no free rule priority", nil)
}

func toSecurityRule(req contracts.CreateFirewallRuleRequest, priority int32) armnetwork.SecurityRule {
	props := &armnetwork.SecurityRulePropertiesFormat{
		Access:                   to.Ptr(armnetwork.SecurityRuleAccessAllow),
		Direction:                to.Ptr(armnetwork.SecurityRuleDirectionInbound),
		Priority:                 to.Ptr(priority),
		Protocol:                 to.Ptr(fromProtocol(req.Protocol)),
		SourcePortRange:          to.Ptr("*"),
		DestinationPortRange:     to.Ptr(portRange(req.FromPort, req.ToPort)),
		SourceAddressPrefix:      to.Ptr(req.CIDR),
		DestinationAddressPrefix: to.Ptr("*"),
	}
	if req.Direction == contracts.TrafficOutbound {
		props.Direction = to.Ptr(armnetwork.SecurityRuleDirectionOutbound)
		props.SourceAddressPrefix, props.DestinationAddressPrefix = to.Ptr("*"), to.Ptr(req.CIDR)
	}
	return armnetwork.SecurityRule{Properties: props}
}

// Create adds an allow rule; an equivalent existing rule yields Duplicate.
// NSGs cannot reference other NSGs, so source firewalls are rejected.
func (s *firewallRuleService) Create(ctx context.Context, firewallID string, req contracts.CreateFirewallRuleRequest) (*contracts.FirewallRule, error) {
	req, err := common.NormalizeFirewallRule(req)
	if err != nil {
		return nil, err
	}
	if req.SourceFirewallID != "" {
		return nil, contracts.NewInvalidValueError("Azure rules cannot name a source firewall; use a CIDR", nil)
	}
	nsg, err := s.p.security.VMFirewalls.(*vmFirewallService).fetch(ctx, firewallID)
	if err != nil {
		return nil, err
	}
	fw := toFirewall(nsg)
	for _, rule := range fw.Rules {
		if common.SameRule(rule, req) {
			return nil, contracts.NewDuplicateError(fmt.Sprintf("firewall %s already has rule %s", fw.Name, rule.ID), nil)
		}
	}
	rule := toSecurityRule(req, 0)
	priority, err := nextPriority(nsg, deref(rule.Properties.Direction))
	if err != nil {
		return nil, err
	}
	rule.Properties.Priority = to.Ptr(priority)
	name := fmt.Sprintf("cb-rule-%d", priority)
	if req.Direction == contracts.TrafficOutbound {
		name = fmt.Sprintf("cb-rule-out-%d", priority)
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "create_rule", fw.Name, func(ctx context.Context) (*contracts.FirewallRule, error) {
		created, err := s.p.clients.SecurityRules.CreateOrUpdate(ctx, fw.Name, name, rule)
		if err != nil {
			return nil, err
		}
		out := toRule(fw.ID, created)
		return &out, nil
	})
}

func (s *firewallRuleService) Delete(ctx context.Context, firewallID, ruleID string) error {
	nsg, name, err := s.p.childRef(ruleID, typeSecurityRules)
	if err != nil {
		return err
	}
	fw, err := s.p.ref(firewallID, typeSecurityGroups)
	if err != nil {
		return err
	}
	if !strings.EqualFold(nsg, fw) {
		return contracts.NotFoundf("firewall rule", ruleID)
	}
	err = s.p.do(ctx, contracts.ServiceVMFirewalls, "delete_rule", name, func(ctx context.Context) error {
		return s.p.clients.SecurityRules.Delete(ctx, nsg, name)
	})
	return contracts.IgnoreNotFound(err)
}
