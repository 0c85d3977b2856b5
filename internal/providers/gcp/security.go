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
	"slices"
	"strconv"
	"strings"

	compute "google.golang.org/api/compute/v1"

	"github.com/CloudVE/cloudbridge-sub001/internal/gcpurl"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	// sshKeysKey is the project metadata item holding the key pairs
	sshKeysKey = "ssh-keys"
	// sshUser is the login the keys are installed for
	sshUser = "cbuser"

	// placeholderPriority marks the deny rule that represents a VM firewall
	placeholderPriority = 65535
	rulePriority        = 1000

	directionIngress = "INGRESS"
	directionEgress  = "EGRESS"
)

// Key pairs live in the project-wide ssh-keys metadata, one
// "user:key-type key-data name" line per key pair.
type keyPairService struct{ p *Provider }

type sshKeyLine struct {
	user      string
	publicKey string
	name      string
}

func parseSSHKeys(value string) []sshKeyLine {
	var lines []sshKeyLine
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSpace(line)
		user, key, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(key)
		if len(fields) < 3 {
			continue
		}
		lines = append(lines, sshKeyLine{
			user:      user,
			publicKey: fields[0] + " " + fields[1],
			name:      fields[len(fields)-1],
		})
	}
	return lines
}

func formatSSHKeys(lines []sshKeyLine) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, fmt.Sprintf("%s:%s %s", l.user, l.publicKey, l.name))
	}
	return strings.Join(out, "\n")
}

func toKeyPair(line sshKeyLine) *contracts.KeyPair {
	kp := &contracts.KeyPair{
		Resource:  contracts.Resource{ID: line.name, Name: line.name},
		PublicKey: line.publicKey,
	}
	if key, err := common.ParseSSHPublicKey(line.publicKey); err == nil {
		kp.Fingerprint = key.Fingerprint
	}
	return kp
}

func (s *keyPairService) all(ctx context.Context, operation string) ([]*contracts.KeyPair, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceKeyPairs, operation, "", func(ctx context.Context) ([]*contracts.KeyPair, error) {
		md, err := s.p.projectMetadata(ctx)
		if err != nil {
			return nil, err
		}
		var pairs []*contracts.KeyPair
		for _, line := range parseSSHKeys(metadataItems(md)[sshKeysKey]) {
			pairs = append(pairs, toKeyPair(line))
		}
		return pairs, nil
	})
}

func (s *keyPairService) Get(ctx context.Context, id string) (*contracts.KeyPair, error) {
	pairs, err := s.all(ctx, "get")
	if err != nil {
		return nil, err
	}
	for _, kp := range pairs {
		if kp.ID == id {
			return kp, nil
		}
	}
	return nil, contracts.NotFoundf("key pair", id)
}

func (s *keyPairService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.KeyPair], error) {
	pairs, err := s.all(ctx, "list")
	if err != nil {
		return nil, err
	}
	return common.Page(pairs, opts), nil
}

func (s *keyPairService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.KeyPair], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *keyPairService) Create(ctx context.Context, req contracts.CreateKeyPairRequest) (*contracts.KeyPair, error) {
	if err := contracts.ValidateName(req.Name); err != nil {
		return nil, err
	}
	key, err := common.KeyPairMaterial(req)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(key.PublicKey)
	line := sshKeyLine{user: sshUser, publicKey: fields[0] + " " + fields[1], name: req.Name}

	err = s.p.editProjectMetadata(ctx, contracts.ServiceKeyPairs, "create", req.Name, func(items []*compute.MetadataItems) ([]*compute.MetadataItems, bool, error) {
		lines := parseSSHKeys(metadataItems(&compute.Metadata{Items: items})[sshKeysKey])
		if slices.ContainsFunc(lines, func(l sshKeyLine) bool { return l.name == req.Name }) {
			return nil, false, contracts.NewDuplicateError(fmt.Sprintf("key pair %s already exists", req.Name), nil)
		}
		items, changed := setMetadataItem(items, sshKeysKey, formatSSHKeys(append(lines, line)))
		return items, changed, nil
	})
	if err != nil {
		return nil, err
	}
	kp := toKeyPair(line)
	kp.PrivateKey = key.PrivateKey
	return kp, nil
}

func (s *keyPairService) Delete(ctx context.Context, id string) error {
	return s.p.editProjectMetadata(ctx, contracts.ServiceKeyPairs, "delete", id, func(items []*compute.MetadataItems) ([]*compute.MetadataItems, bool, error) {
		lines := parseSSHKeys(metadataItems(&compute.Metadata{Items: items})[sshKeysKey])
		kept := slices.DeleteFunc(slices.Clone(lines), func(l sshKeyLine) bool { return l.name == id })
		if len(kept) == len(lines) {
			return items, false, nil
		}
		items, changed := setMetadataItem(items, sshKeysKey, formatSSHKeys(kept))
		return items, changed, nil
	})
}

// A VM firewall is a network tag. It is represented by a lowest priority
// deny rule named after the tag that carries its label and description;
// its rules are firewall rules targeting the tag.
type vmFirewallService struct {
	p     *Provider
	rules *firewallRuleService
}

// firewallID is the self-link of the placeholder rule of a tag
func (p *Provider) firewallID(tag string) string {
	ref := gcpurl.ResourceURL{Project: p.project, Global: true, Collection: "firewalls", Name: tag}
	return ref.String()
}

func isPlaceholder(fw *compute.Firewall) bool {
	return fw.Priority == placeholderPriority && len(fw.Denied) > 0 &&
		len(fw.TargetTags) == 1 && fw.TargetTags[0] == fw.Name
}

func toProtocol(ipProtocol string) contracts.Protocol {
	switch ipProtocol {
	case "tcp", "udp", "icmp":
		return contracts.Protocol(ipProtocol)
	}
	return contracts.ProtocolAll
}

func parsePorts(ports []string) (int, int) {
	if len(ports) == 0 {
		return 0, 0
	}
	from, to, found := strings.Cut(ports[0], "-")
	start, _ := strconv.Atoi(from)
	if !found {
		return start, start
	}
	end, _ := strconv.Atoi(to)
	return start, end
}

func (p *Provider) toRule(fw *compute.Firewall) contracts.FirewallRule {
	rule := contracts.FirewallRule{
		ID:         fw.SelfLink,
		FirewallID: p.firewallID(fw.TargetTags[0]),
		Direction:  contracts.TrafficInbound,
		Protocol:   contracts.ProtocolAll,
	}
	if len(fw.Allowed) > 0 {
		rule.Protocol = toProtocol(fw.Allowed[0].IPProtocol)
		if rule.Protocol.HasPorts() {
			rule.FromPort, rule.ToPort = parsePorts(fw.Allowed[0].Ports)
			if rule.FromPort == 0 {
				rule.FromPort, rule.ToPort = 1, common.MaxPort
			}
		}
	}
	ranges := fw.SourceRanges
	if fw.Direction == directionEgress {
		rule.Direction = contracts.TrafficOutbound
		ranges = fw.DestinationRanges
	}
	switch {
	case len(fw.SourceTags) > 0:
		rule.SourceFirewallID = p.firewallID(fw.SourceTags[0])
	case len(ranges) > 0:
		rule.CIDR = ranges[0]
	}
	return rule
}

func toFirewall(fw *compute.Firewall, rules []contracts.FirewallRule) *contracts.VMFirewall {
	meta := decodeMeta(fw.Description)
	return &contracts.VMFirewall{
		Resource: contracts.Resource{
			ID:         fw.SelfLink,
			Name:       fw.Name,
			Label:      meta.Label,
			CreateTime: parseTime(fw.CreationTimestamp),
		},
		Description: meta.Description,
		NetworkID:   fw.Network,
		Rules:       rules,
	}
}

// firewalls lists every GCE firewall of the project
func (s *vmFirewallService) firewalls(ctx context.Context) ([]*compute.Firewall, error) {
	return listAll(func(maxResults int64, token string) ([]*compute.Firewall, string, error) {
		out, err := s.p.clients.Compute.Firewalls.List(s.p.project).MaxResults(maxResults).PageToken(token).Context(ctx).Do()
		if err != nil {
			return nil, "", err
		}
		return out.Items, out.NextPageToken, nil
	})
}

// rulesByTag groups the non-placeholder firewalls by their target tag
func (s *vmFirewallService) rulesByTag(all []*compute.Firewall) map[string][]contracts.FirewallRule {
	out := make(map[string][]contracts.FirewallRule)
	for _, fw := range all {
		if isPlaceholder(fw) || len(fw.TargetTags) != 1 {
			continue
		}
		tag := fw.TargetTags[0]
		out[tag] = append(out[tag], s.p.toRule(fw))
	}
	return out
}

func (s *vmFirewallService) all(ctx context.Context, operation string) ([]*contracts.VMFirewall, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, operation, "", func(ctx context.Context) ([]*contracts.VMFirewall, error) {
		all, err := s.firewalls(ctx)
		if err != nil {
			return nil, err
		}
		rules := s.rulesByTag(all)
		var out []*contracts.VMFirewall
		for _, fw := range all {
			if isPlaceholder(fw) {
				out = append(out, toFirewall(fw, rules[fw.Name]))
			}
		}
		return out, nil
	})
}

func (s *vmFirewallService) Get(ctx context.Context, id string) (*contracts.VMFirewall, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "get", id, func(ctx context.Context) (*contracts.VMFirewall, error) {
		tag := gcpurl.Name(id)
		fw, err := s.p.clients.Compute.Firewalls.Get(s.p.project, tag).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		if !isPlaceholder(fw) {
			return nil, contracts.NotFoundf("vm firewall", id)
		}
		all, err := s.firewalls(ctx)
		if err != nil {
			return nil, err
		}
		return toFirewall(fw, s.rulesByTag(all)[tag]), nil
	})
}

func (s *vmFirewallService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.VMFirewall], error) {
	all, err := s.all(ctx, "list")
	if err != nil {
		return nil, err
	}
	return common.Page(all, opts), nil
}

func (s *vmFirewallService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.VMFirewall], error) {
	all, err := s.all(ctx, "find")
	if err != nil {
		return nil, err
	}
	return paging.Find(all, opts), nil
}

// Create makes the placeholder rule of a new tag; without a network the
// firewall belongs to the network of the default subnet
func (s *vmFirewallService) Create(ctx context.Context, req contracts.CreateVMFirewallRequest) (*contracts.VMFirewall, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	networkID := req.NetworkID
	if networkID == "" {
		sn, err := s.p.networking.Subnets.GetOrCreateDefault(ctx, "")
		if err != nil {
			return nil, err
		}
		networkID = sn.NetworkID
	}
	network, err := s.p.ref(networkID, "networks")
	if err != nil {
		return nil, err
	}
	placeholder := &compute.Firewall{
		Name:         name,
		Network:      network.String(),
		Description:  resourceMeta{Label: req.Label, Description: req.Description}.encode(),
		Direction:    directionIngress,
		Priority:     placeholderPriority,
		Denied:       []*compute.FirewallDenied{{IPProtocol: "all"}},
		SourceRanges: []string{common.AnyIPv4},
		TargetTags:   []string{name},
	}
	err = s.p.mutate(ctx, contracts.ServiceVMFirewalls, "create", name, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Firewalls.Insert(s.p.project, placeholder).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, name)
}

// Delete removes the rules of the tag and then its placeholder
func (s *vmFirewallService) Delete(ctx context.Context, id string) error {
	fw, err := s.Get(ctx, id)
	if err != nil {
		return contracts.IgnoreNotFound(err)
	}
	for _, rule := range fw.Rules {
		if err := s.rules.Delete(ctx, fw.ID, rule.ID); err != nil {
			return err
		}
	}
	err = s.p.mutate(ctx, contracts.ServiceVMFirewalls, "delete", id, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Firewalls.Delete(s.p.project, fw.Name).Context(ctx).Do()
	})
	return contracts.IgnoreNotFound(err)
}

func (s *vmFirewallService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	tag := gcpurl.Name(id)
	return s.p.mutate(ctx, contracts.ServiceVMFirewalls, "set_label", id, func(ctx context.Context) (*compute.Operation, error) {
		fw, err := s.p.clients.Compute.Firewalls.Get(s.p.project, tag).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		meta := decodeMeta(fw.Description)
		meta.Label = label
		return s.p.clients.Compute.Firewalls.Patch(s.p.project, tag, &compute.Firewall{
			Description:     meta.encode(),
			ForceSendFields: []string{"Description"},
		}).Context(ctx).Do()
	})
}

func (s *vmFirewallService) Rules() contracts.FirewallRuleService { return s.rules }

type firewallRuleService struct{ p *Provider }

func (s *firewallRuleService) rules(ctx context.Context, firewallID string) (*contracts.VMFirewall, error) {
	return s.p.security.VMFirewalls.Get(ctx, firewallID)
}

func (s *firewallRuleService) List(ctx context.Context, firewallID string, opts paging.ListOptions) (*paging.ResultList[*contracts.FirewallRule], error) {
	fw, err := s.rules(ctx, firewallID)
	if err != nil {
		return nil, err
	}
	out := make([]*contracts.FirewallRule, len(fw.Rules))
	for i := range fw.Rules {
		out[i] = &fw.Rules[i]
	}
	return common.Page(out, opts), nil
}

func toAllowed(req contracts.CreateFirewallRuleRequest) []*compute.FirewallAllowed {
	allowed := &compute.FirewallAllowed{IPProtocol: string(req.Protocol)}
	if req.Protocol == contracts.ProtocolAll {
		allowed.IPProtocol = "all"
	}
	if req.Protocol.HasPorts() {
		ports := strconv.Itoa(req.FromPort)
		if req.ToPort != req.FromPort {
			ports += "-" + strconv.Itoa(req.ToPort)
		}
		allowed.Ports = []string{ports}
	}
	return []*compute.FirewallAllowed{allowed}
}

func (s *firewallRuleService) Create(ctx context.Context, firewallID string, req contracts.CreateFirewallRuleRequest) (*contracts.FirewallRule, error) {
	req, err := common.NormalizeFirewallRule(req)
	if err != nil {
		return nil, err
	}
	if req.SourceFirewallID != "" {
		req.SourceFirewallID = s.p.firewallID(gcpurl.Name(req.SourceFirewallID))
		if req.Direction == contracts.TrafficOutbound {
			return nil, contracts.NewNotSupportedError("GCE egress rules cannot match a source firewall")
		}
	}
	fw, err := s.rules(ctx, firewallID)
	if err != nil {
		return nil, err
	}
	for _, rule := range fw.Rules {
		if common.SameRule(rule, req) {
			return nil, contracts.NewDuplicateError(fmt.Sprintf("firewall %s already has rule %s", fw.Name, gcpurl.Name(rule.ID)), nil)
		}
	}

	name := contracts.GenerateName(fw.Name)
	rule := &compute.Firewall{
		Name:       name,
		Network:    fw.NetworkID,
		Direction:  directionIngress,
		Priority:   rulePriority,
		Allowed:    toAllowed(req),
		TargetTags: []string{fw.Name},
	}
	switch {
	case req.Direction == contracts.TrafficOutbound:
		rule.Direction = directionEgress
		rule.DestinationRanges = []string{req.CIDR}
	case req.SourceFirewallID != "":
		rule.SourceTags = []string{gcpurl.Name(req.SourceFirewallID)}
	default:
		rule.SourceRanges = []string{req.CIDR}
	}
	err = s.p.mutate(ctx, contracts.ServiceVMFirewalls, "create_rule", firewallID, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Firewalls.Insert(s.p.project, rule).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceVMFirewalls, "get_rule", name, func(ctx context.Context) (*contracts.FirewallRule, error) {
		created, err := s.p.clients.Compute.Firewalls.Get(s.p.project, name).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		r := s.p.toRule(created)
		return &r, nil
	})
}

// Delete removes a rule of the firewall; unknown rules are ignored
func (s *firewallRuleService) Delete(ctx context.Context, firewallID, ruleID string) error {
	fw, err := s.rules(ctx, firewallID)
	if err != nil {
		return contracts.IgnoreNotFound(err)
	}
	name := gcpurl.Name(ruleID)
	if !slices.ContainsFunc(fw.Rules, func(r contracts.FirewallRule) bool { return gcpurl.Name(r.ID) == name }) {
		return nil
	}
	err = s.p.mutate(ctx, contracts.ServiceVMFirewalls, "delete_rule", firewallID, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Firewalls.Delete(s.p.project, name).Context(ctx).Do()
	})
	return contracts.IgnoreNotFound(err)
}
