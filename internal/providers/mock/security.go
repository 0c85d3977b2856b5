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

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

type keyPairService struct{ p *Provider }

func (s *keyPairService) Get(ctx context.Context, id string) (*contracts.KeyPair, error) {
	var out *contracts.KeyPair
	err := s.p.do(ctx, contracts.ServiceKeyPairs, "get", id, func() error {
		kp, ok := s.p.keyPairs.get(id)
		if !ok {
			return contracts.NotFoundf("key pair", id)
		}
		out = cloneOf(kp)
		return nil
	})
	return out, err
}

func (s *keyPairService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.KeyPair], error) {
	var out *paging.ResultList[*contracts.KeyPair]
	err := s.p.do(ctx, contracts.ServiceKeyPairs, "list", "", func() error {
		out = common.Page(snapshotOf(s.p.keyPairs.values()), opts)
		return nil
	})
	return out, err
}

func (s *keyPairService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.KeyPair], error) {
	var out *paging.ResultList[*contracts.KeyPair]
	err := s.p.do(ctx, contracts.ServiceKeyPairs, "find", "", func() error {
		out = paging.Find(snapshotOf(s.p.keyPairs.values()), opts)
		return nil
	})
	return out, err
}

func (s *keyPairService) Create(ctx context.Context, req contracts.CreateKeyPairRequest) (*contracts.KeyPair, error) {
	if err := contracts.ValidateName(req.Name); err != nil {
		return nil, err
	}
	key, err := common.KeyPairMaterial(req)
	if err != nil {
		return nil, err
	}
	var out *contracts.KeyPair
	err = s.p.do(ctx, contracts.ServiceKeyPairs, "create", req.Name, func() error {
		if _, ok := s.p.keyPairs.get(req.Name); ok {
			return contracts.NewDuplicateError(fmt.Sprintf("key pair %q already exists", req.Name), nil)
		}
		kp := &contracts.KeyPair{
			Resource:    contracts.Resource{ID: req.Name, Name: req.Name, CreateTime: s.p.now()},
			Fingerprint: key.Fingerprint,
			PublicKey:   key.PublicKey,
		}
		s.p.keyPairs.put(req.Name, kp)
		out = cloneOf(kp)
		out.PrivateKey = key.PrivateKey
		return nil
	})
	return out, err
}

func (s *keyPairService) Delete(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceKeyPairs, "delete", id, func() error {
		s.p.keyPairs.remove(id)
		return nil
	})
}

type vmFirewallService struct {
	p     *Provider
	rules *firewallRuleService
}

func cloneFirewall(fw *contracts.VMFirewall) *contracts.VMFirewall {
	c := cloneOf(fw)
	c.Rules = slices.Clone(fw.Rules)
	return c
}

func cloneFirewalls(fws []*contracts.VMFirewall) []*contracts.VMFirewall {
	out := make([]*contracts.VMFirewall, len(fws))
	for i, fw := range fws {
		out[i] = cloneFirewall(fw)
	}
	return out
}

func (s *vmFirewallService) Get(ctx context.Context, id string) (*contracts.VMFirewall, error) {
	var out *contracts.VMFirewall
	err := s.p.do(ctx, contracts.ServiceVMFirewalls, "get", id, func() error {
		fw, ok := s.p.firewalls.get(id)
		if !ok {
			return contracts.NotFoundf("vm firewall", id)
		}
		out = cloneFirewall(fw)
		return nil
	})
	return out, err
}

func (s *vmFirewallService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.VMFirewall], error) {
	var out *paging.ResultList[*contracts.VMFirewall]
	err := s.p.do(ctx, contracts.ServiceVMFirewalls, "list", "", func() error {
		out = common.Page(cloneFirewalls(s.p.firewalls.values()), opts)
		return nil
	})
	return out, err
}

func (s *vmFirewallService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.VMFirewall], error) {
	var out *paging.ResultList[*contracts.VMFirewall]
	err := s.p.do(ctx, contracts.ServiceVMFirewalls, "find", "", func() error {
		out = paging.Find(cloneFirewalls(s.p.firewalls.values()), opts)
		return nil
	})
	return out, err
}

func (s *vmFirewallService) Create(ctx context.Context, req contracts.CreateVMFirewallRequest) (*contracts.VMFirewall, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	var out *contracts.VMFirewall
	err = s.p.do(ctx, contracts.ServiceVMFirewalls, "create", "", func() error {
		if req.NetworkID != "" {
			if _, ok := s.p.networks.get(req.NetworkID); !ok {
				return contracts.NotFoundf("network", req.NetworkID)
			}
		}
		id := s.p.generateID("fw")
		fw := &contracts.VMFirewall{
			Resource:    contracts.Resource{ID: id, Name: name, Label: req.Label, CreateTime: s.p.now()},
			Description: req.Description,
			NetworkID:   req.NetworkID,
		}
		s.p.firewalls.put(id, fw)
		out = cloneFirewall(fw)
		return nil
	})
	return out, err
}

func (s *vmFirewallService) Delete(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceVMFirewalls, "delete", id, func() error {
		if _, ok := s.p.firewalls.get(id); !ok {
			return nil
		}
		for _, inst := range s.p.instances.values() {
			if slices.Contains(inst.VMFirewallIDs, id) {
				return contracts.NewInvalidValueError(fmt.Sprintf("vm firewall %s is used by instance %s", id, inst.ID), nil)
			}
		}
		s.p.firewalls.remove(id)
		return nil
	})
}

func (s *vmFirewallService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceVMFirewalls, "set_label", id, func() error {
		fw, ok := s.p.firewalls.get(id)
		if !ok {
			return contracts.NotFoundf("vm firewall", id)
		}
		fw.Label = label
		return nil
	})
}

func (s *vmFirewallService) Rules() contracts.FirewallRuleService { return s.rules }

type firewallRuleService struct{ p *Provider }

func (s *firewallRuleService) List(ctx context.Context, firewallID string, opts paging.ListOptions) (*paging.ResultList[*contracts.FirewallRule], error) {
	var out *paging.ResultList[*contracts.FirewallRule]
	err := s.p.do(ctx, contracts.ServiceVMFirewalls, "list_rules", firewallID, func() error {
		fw, ok := s.p.firewalls.get(firewallID)
		if !ok {
			return contracts.NotFoundf("vm firewall", firewallID)
		}
		rules := make([]*contracts.FirewallRule, len(fw.Rules))
		for i := range fw.Rules {
			rule := fw.Rules[i]
			rules[i] = &rule
		}
		out = common.Page(rules, opts)
		return nil
	})
	return out, err
}

func (s *firewallRuleService) Create(ctx context.Context, firewallID string, req contracts.CreateFirewallRuleRequest) (*contracts.FirewallRule, error) {
	req, err := common.NormalizeFirewallRule(req)
	if err != nil {
		return nil, err
	}
	var out *contracts.FirewallRule
	err = s.p.do(ctx, contracts.ServiceVMFirewalls, "create_rule", firewallID, func() error {
		fw, ok := s.p.firewalls.get(firewallID)
		if !ok {
			return contracts.NotFoundf("vm firewall", firewallID)
		}
		if req.SourceFirewallID != "" {
			if _, ok := s.p.firewalls.get(req.SourceFirewallID); !ok {
				return contracts.NotFoundf("vm firewall", req.SourceFirewallID)
			}
		}
		for _, rule := range fw.Rules {
			if common.SameRule(rule, req) {
				return contracts.NewDuplicateError(fmt.Sprintf("rule already exists as %s", rule.ID), nil)
			}
		}
		rule := contracts.FirewallRule{
			ID:               s.p.generateID("fwr"),
			FirewallID:       firewallID,
			Direction:        req.Direction,
			Protocol:         req.Protocol,
			FromPort:         req.FromPort,
			ToPort:           req.ToPort,
			CIDR:             req.CIDR,
			SourceFirewallID: req.SourceFirewallID,
		}
		fw.Rules = append(slices.Clone(fw.Rules), rule)
		out = &rule
		return nil
	})
	return out, err
}

func (s *firewallRuleService) Delete(ctx context.Context, firewallID, ruleID string) error {
	return s.p.do(ctx, contracts.ServiceVMFirewalls, "delete_rule", firewallID, func() error {
		fw, ok := s.p.firewalls.get(firewallID)
		if !ok {
			return nil
		}
		fw.Rules = slices.DeleteFunc(slices.Clone(fw.Rules), func(r contracts.FirewallRule) bool { return r.ID == ruleID })
		return nil
	})
}
