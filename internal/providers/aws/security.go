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

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// allProtocols is the EC2 spelling of "any protocol"
const allProtocols = "-1"

type keyPairService struct{ p *Provider }

func toKeyPair(kp *ec2.KeyPairInfo) *contracts.KeyPair {
	res := resource(aws.StringValue(kp.KeyName), kp.Tags)
	res.CreateTime = aws.TimeValue(kp.CreateTime)
	return &contracts.KeyPair{
		Resource:    res,
		Fingerprint: aws.StringValue(kp.KeyFingerprint),
		PublicKey:   aws.StringValue(kp.PublicKey),
	}
}

func (s *keyPairService) describe(ctx context.Context, input *ec2.DescribeKeyPairsInput) ([]*contracts.KeyPair, error) {
	out, err := s.p.clients.EC2.DescribeKeyPairsWithContext(ctx, input)
	if err != nil {
		return nil, err
	}
	pairs := make([]*contracts.KeyPair, 0, len(out.KeyPairs))
	for _, kp := range out.KeyPairs {
		pairs = append(pairs, toKeyPair(kp))
	}
	return pairs, nil
}

// Get looks a key pair up by name, which EC2 uses as its identifier
func (s *keyPairService) Get(ctx context.Context, id string) (*contracts.KeyPair, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceKeyPairs, "get", id, func(ctx context.Context) (*contracts.KeyPair, error) {
		pairs, err := s.describe(ctx, &ec2.DescribeKeyPairsInput{KeyNames: aws.StringSlice([]string{id})})
		if err != nil {
			return nil, err
		}
		return firstOrNotFound(pairs, "key pair", id)
	})
}

func (s *keyPairService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.KeyPair], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceKeyPairs, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.KeyPair], error) {
		pairs, err := s.describe(ctx, &ec2.DescribeKeyPairsInput{})
		if err != nil {
			return nil, err
		}
		return common.Page(pairs, opts), nil
	})
}

func (s *keyPairService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.KeyPair], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create lets EC2 generate the key unless public key material is supplied
func (s *keyPairService) Create(ctx context.Context, req contracts.CreateKeyPairRequest) (*contracts.KeyPair, error) {
	if err := contracts.ValidateName(req.Name); err != nil {
		return nil, err
	}
	if req.PublicKey != "" {
		key, err := common.ParseSSHPublicKey(req.PublicKey)
		if err != nil {
			return nil, err
		}
		return common.Call(ctx, s.p.caller, contracts.ServiceKeyPairs, "import", req.Name, func(ctx context.Context) (*contracts.KeyPair, error) {
			out, err := s.p.clients.EC2.ImportKeyPairWithContext(ctx, &ec2.ImportKeyPairInput{
				KeyName:           aws.String(req.Name),
				PublicKeyMaterial: []byte(key.PublicKey),
			})
			if err != nil {
				return nil, err
			}
			return &contracts.KeyPair{
				Resource:    contracts.Resource{ID: aws.StringValue(out.KeyName), Name: aws.StringValue(out.KeyName)},
				Fingerprint: aws.StringValue(out.KeyFingerprint),
				PublicKey:   key.PublicKey,
			}, nil
		})
	}

	return common.Call(ctx, s.p.caller, contracts.ServiceKeyPairs, "create", req.Name, func(ctx context.Context) (*contracts.KeyPair, error) {
		out, err := s.p.clients.EC2.CreateKeyPairWithContext(ctx, &ec2.CreateKeyPairInput{KeyName: aws.String(req.Name)})
		if err != nil {
			return nil, err
		}
		return &contracts.KeyPair{
			Resource:    contracts.Resource{ID: aws.StringValue(out.KeyName), Name: aws.StringValue(out.KeyName)},
			Fingerprint: aws.StringValue(out.KeyFingerprint),
			PrivateKey:  aws.StringValue(out.KeyMaterial),
		}, nil
	})
}

func (s *keyPairService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceKeyPairs, "delete", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.DeleteKeyPairWithContext(ctx, &ec2.DeleteKeyPairInput{KeyName: aws.String(id)})
		return err
	})
	return contracts.IgnoreNotFound(err)
}

type vmFirewallService struct {
	p     *Provider
	rules *firewallRuleService
}

func toFirewall(sg *ec2.SecurityGroup, rules []contracts.FirewallRule) *contracts.VMFirewall {
	res := resource(aws.StringValue(sg.GroupId), sg.Tags)
	res.Name = aws.StringValue(sg.GroupName)
	return &contracts.VMFirewall{
		Resource:    res,
		Description: aws.StringValue(sg.Description),
		NetworkID:   aws.StringValue(sg.VpcId),
		Rules:       rules,
	}
}

func toProtocol(ipProtocol string) contracts.Protocol {
	if ipProtocol == allProtocols {
		return contracts.ProtocolAll
	}
	return contracts.Protocol(ipProtocol)
}

func toRule(r *ec2.SecurityGroupRule) contracts.FirewallRule {
	rule := contracts.FirewallRule{
		ID:         aws.StringValue(r.SecurityGroupRuleId),
		FirewallID: aws.StringValue(r.GroupId),
		Direction:  contracts.TrafficInbound,
		Protocol:   toProtocol(aws.StringValue(r.IpProtocol)),
		CIDR:       aws.StringValue(r.CidrIpv4),
	}
	if aws.BoolValue(r.IsEgress) {
		rule.Direction = contracts.TrafficOutbound
	}
	if rule.Protocol.HasPorts() {
		rule.FromPort = int(aws.Int64Value(r.FromPort))
		rule.ToPort = int(aws.Int64Value(r.ToPort))
	}
	if rule.CIDR == "" {
		rule.CIDR = aws.StringValue(r.CidrIpv6)
	}
	if r.ReferencedGroupInfo != nil {
		rule.SourceFirewallID = aws.StringValue(r.ReferencedGroupInfo.GroupId)
	}
	return rule
}

// rulesOf fetches the rules of several security groups at once
func (s *vmFirewallService) rulesOf(ctx context.Context, groupIDs ...string) (map[string][]contracts.FirewallRule, error) {
	byGroup := make(map[string][]contracts.FirewallRule, len(groupIDs))
	if len(groupIDs) == 0 {
		return byGroup, nil
	}
	rules, err := fetchAll(ec2Paging, func(maxResults *int64, token *string) ([]*ec2.SecurityGroupRule, *string, error) {
		out, err := s.p.clients.EC2.DescribeSecurityGroupRulesWithContext(ctx, &ec2.DescribeSecurityGroupRulesInput{
			Filters:    []*ec2.Filter{filter("group-id", groupIDs...)},
			MaxResults: maxResults,
			NextToken:  token,
		})
		if err != nil {
			return nil, nil, err
		}
		return out.SecurityGroupRules, out.NextToken, nil
	})
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		rule := toRule(r)
		byGroup[rule.FirewallID] = append(byGroup[rule.FirewallID], rule)
	}
	return byGroup, nil
}

func (s *vmFirewallService) describe(ctx context.Context, input *ec2.DescribeSecurityGroupsInput) ([]*contracts.VMFirewall, *string, error) {
	out, err := s.p.clients.EC2.DescribeSecurityGroupsWithContext(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(out.SecurityGroups))
	for _, sg := range out.SecurityGroups {
		ids = append(ids, aws.StringValue(sg.GroupId))
	}
	rules, err := s.rulesOf(ctx, ids...)
	if err != nil {
		return nil, nil, err
	}
	firewalls := make([]*contracts.VMFirewall, 0, len(out.SecurityGroups))
	for _, sg := range out.SecurityGroups {
		firewalls = append(firewalls, toFirewall(sg, rules[aws.StringValue(sg.GroupId)]))
	}
	return firewalls, out.NextToken, nil
}

func (s *vmFirewallService) Get(ctx context.Context, id string) (*contracts.VMFirewall, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "get", id, func(ctx context.Context) (*contracts.VMFirewall, error) {
		firewalls, _, err := s.describe(ctx, &ec2.DescribeSecurityGroupsInput{GroupIds: aws.StringSlice([]string{id})})
		if err != nil {
			return nil, err
		}
		return firstOrNotFound(firewalls, "vm firewall", id)
	})
}

func (s *vmFirewallService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.VMFirewall], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.VMFirewall], error) {
		return listEC2(opts, ec2Paging, func(maxResults *int64, token *string) ([]*contracts.VMFirewall, *string, error) {
			return s.describe(ctx, &ec2.DescribeSecurityGroupsInput{MaxResults: maxResults, NextToken: token})
		})
	})
}

func (s *vmFirewallService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.VMFirewall], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create makes a security group named after the label. Without a network
// EC2 places the group in the default VPC.
func (s *vmFirewallService) Create(ctx context.Context, req contracts.CreateVMFirewallRequest) (*contracts.VMFirewall, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	description := req.Description
	if description == "" {
		// EC2 requires a description
		description = name
	}
	input := &ec2.CreateSecurityGroupInput{
		GroupName:         aws.String(name),
		Description:       aws.String(description),
		TagSpecifications: tagSpec(ec2.ResourceTypeSecurityGroup, req.Label, nil),
	}
	if req.NetworkID != "" {
		input.VpcId = aws.String(req.NetworkID)
	}
	groupID, err := common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "create", "", func(ctx context.Context) (string, error) {
		out, err := s.p.clients.EC2.CreateSecurityGroupWithContext(ctx, input)
		if err != nil {
			return "", err
		}
		return aws.StringValue(out.GroupId), nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, groupID)
}

func (s *vmFirewallService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceVMFirewalls, "delete", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.DeleteSecurityGroupWithContext(ctx, &ec2.DeleteSecurityGroupInput{GroupId: aws.String(id)})
		return err
	})
	return contracts.IgnoreNotFound(err)
}

func (s *vmFirewallService) SetLabel(ctx context.Context, id, label string) error {
	return s.p.setLabel(ctx, contracts.ServiceVMFirewalls, id, label)
}

func (s *vmFirewallService) Rules() contracts.FirewallRuleService { return s.rules }

type firewallRuleService struct{ p *Provider }

// rules returns the current rules of a firewall
func (s *firewallRuleService) rules(ctx context.Context, firewallID string) ([]contracts.FirewallRule, error) {
	fw, err := s.p.security.VMFirewalls.Get(ctx, firewallID)
	if err != nil {
		return nil, err
	}
	return fw.Rules, nil
}

func (s *firewallRuleService) List(ctx context.Context, firewallID string, opts paging.ListOptions) (*paging.ResultList[*contracts.FirewallRule], error) {
	rules, err := s.rules(ctx, firewallID)
	if err != nil {
		return nil, err
	}
	out := make([]*contracts.FirewallRule, len(rules))
	for i := range rules {
		out[i] = &rules[i]
	}
	return common.Page(out, opts), nil
}

func toPermission(req contracts.CreateFirewallRuleRequest) *ec2.IpPermission {
	perm := &ec2.IpPermission{IpProtocol: aws.String(string(req.Protocol))}
	switch req.Protocol {
	case contracts.ProtocolAll:
		perm.IpProtocol = aws.String(allProtocols)
	case contracts.ProtocolICMP:
		perm.FromPort, perm.ToPort = aws.Int64(-1), aws.Int64(-1)
	default:
		perm.FromPort, perm.ToPort = aws.Int64(int64(req.FromPort)), aws.Int64(int64(req.ToPort))
	}
	if req.SourceFirewallID != "" {
		perm.UserIdGroupPairs = []*ec2.UserIdGroupPair{{GroupId: aws.String(req.SourceFirewallID)}}
	} else {
		perm.IpRanges = []*ec2.IpRange{{CidrIp: aws.String(req.CIDR)}}
	}
	return perm
}

func (s *firewallRuleService) Create(ctx context.Context, firewallID string, req contracts.CreateFirewallRuleRequest) (*contracts.FirewallRule, error) {
	req, err := common.NormalizeFirewallRule(req)
	if err != nil {
		return nil, err
	}
	existing, err := s.rules(ctx, firewallID)
	if err != nil {
		return nil, err
	}
	for _, rule := range existing {
		if common.SameRule(rule, req) {
			return nil, contracts.NewDuplicateError(fmt.Sprintf("firewall %s already has rule %s", firewallID, rule.ID), nil)
		}
	}

	perms := []*ec2.IpPermission{toPermission(req)}
	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "create_rule", firewallID, func(ctx context.Context) (*contracts.FirewallRule, error) {
		var created []*ec2.SecurityGroupRule
		if req.Direction == contracts.TrafficOutbound {
			out, err := s.p.clients.EC2.AuthorizeSecurityGroupEgressWithContext(ctx, &ec2.AuthorizeSecurityGroupEgressInput{
				GroupId:       aws.String(firewallID),
				IpPermissions: perms,
			})
			if err != nil {
				return nil, err
			}
			created = out.SecurityGroupRules
		} else {
			out, err := s.p.clients.EC2.AuthorizeSecurityGroupIngressWithContext(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
				GroupId:       aws.String(firewallID),
				IpPermissions: perms,
			})
			if err != nil {
				return nil, err
			}
			created = out.SecurityGroupRules
		}
		if len(created) == 0 {
			return nil, contracts.NewProviderInternalError("EC2 returned no security group rule", nil)
		}
		rule := toRule(created[0])
		return &rule, nil
	})
}

// Delete revokes a rule by its sgr- identifier; unknown rules are ignored
func (s *firewallRuleService) Delete(ctx context.Context, firewallID, ruleID string) error {
	rules, err := s.rules(ctx, firewallID)
	if err != nil {
		return contracts.IgnoreNotFound(err)
	}
	var rule *contracts.FirewallRule
	for i := range rules {
		if rules[i].ID == ruleID {
			rule = &rules[i]
		}
	}
	if rule == nil {
		return nil
	}
	return s.p.do(ctx, contracts.ServiceVMFirewalls, "delete_rule", firewallID, func(ctx context.Context) error {
		ids := aws.StringSlice([]string{ruleID})
		if rule.Direction == contracts.TrafficOutbound {
			_, err := s.p.clients.EC2.RevokeSecurityGroupEgressWithContext(ctx, &ec2.RevokeSecurityGroupEgressInput{
				GroupId:              aws.String(firewallID),
				SecurityGroupRuleIds: ids,
			})
			return err
		}
		_, err := s.p.clients.EC2.RevokeSecurityGroupIngressWithContext(ctx, &ec2.RevokeSecurityGroupIngressInput{
			GroupId:              aws.String(firewallID),
			SecurityGroupRuleIds: ids,
		})
		return err
	})
}
