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
	"net/netip"
	"slices"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	defaultTag     = "cb-default"
	floatingIPBase = "203.0.113.0"
)

type networkService struct{ p *Provider }

func (s *networkService) Get(ctx context.Context, id string) (*contracts.Network, error) {
	var out *contracts.Network
	err := s.p.do(ctx, contracts.ServiceNetworks, "get", id, func() error {
		n, ok := s.p.networks.get(id)
		if !ok {
			return contracts.NotFoundf("network", id)
		}
		out = cloneOf(n)
		return nil
	})
	return out, err
}

func (s *networkService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Network], error) {
	var out *paging.ResultList[*contracts.Network]
	err := s.p.do(ctx, contracts.ServiceNetworks, "list", "", func() error {
		out = common.Page(snapshotOf(s.p.networks.values()), opts)
		return nil
	})
	return out, err
}

func (s *networkService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Network], error) {
	var out *paging.ResultList[*contracts.Network]
	err := s.p.do(ctx, contracts.ServiceNetworks, "find", "", func() error {
		out = paging.Find(snapshotOf(s.p.networks.values()), opts)
		return nil
	})
	return out, err
}

func (s *networkService) Create(ctx context.Context, req contracts.CreateNetworkRequest) (*contracts.Network, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	prefix, err := common.ParseCIDR(req.CIDR)
	if err != nil {
		return nil, err
	}
	var out *contracts.Network
	err = s.p.do(ctx, contracts.ServiceNetworks, "create", "", func() error {
		out = cloneOf(s.p.createNetwork(name, req.Label, prefix.String()))
		return nil
	})
	return out, err
}

// createNetwork adds a network. Callers hold p.mu.
func (p *Provider) createNetwork(name, label, cidr string) *contracts.Network {
	id := p.generateID("net")
	n := &contracts.Network{
		Resource: contracts.Resource{ID: id, Name: name, Label: label, CreateTime: p.now()},
		CIDR:     cidr,
		State:    contracts.NetworkStatePending,
	}
	p.networks.put(id, n)
	p.schedule(func() { n.State = contracts.NetworkStateAvailable })
	return n
}

func (s *networkService) Delete(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceNetworks, "delete", id, func() error {
		if _, ok := s.p.networks.get(id); !ok {
			return nil
		}
		for _, sn := range s.p.subnets.values() {
			if sn.NetworkID == id {
				return contracts.NewInvalidValueError(fmt.Sprintf("network %s still has subnet %s", id, sn.ID), nil)
			}
		}
		for _, gw := range s.p.gateways.values() {
			if gw.NetworkID == id {
				s.p.gateways.remove(gw.ID)
			}
		}
		s.p.networks.remove(id)
		return nil
	})
}

func (s *networkService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceNetworks, "set_label", id, func() error {
		n, ok := s.p.networks.get(id)
		if !ok {
			return contracts.NotFoundf("network", id)
		}
		n.Label = label
		return nil
	})
}

func (s *networkService) Subnets(ctx context.Context, id string) ([]*contracts.Subnet, error) {
	var out []*contracts.Subnet
	err := s.p.do(ctx, contracts.ServiceNetworks, "subnets", id, func() error {
		if _, ok := s.p.networks.get(id); !ok {
			return contracts.NotFoundf("network", id)
		}
		for _, sn := range s.p.subnets.values() {
			if sn.NetworkID == id {
				out = append(out, cloneOf(sn))
			}
		}
		return nil
	})
	return out, err
}

type subnetService struct{ p *Provider }

func (s *subnetService) Get(ctx context.Context, id string) (*contracts.Subnet, error) {
	var out *contracts.Subnet
	err := s.p.do(ctx, contracts.ServiceSubnets, "get", id, func() error {
		sn, ok := s.p.subnets.get(id)
		if !ok {
			return contracts.NotFoundf("subnet", id)
		}
		out = cloneOf(sn)
		return nil
	})
	return out, err
}

func (s *subnetService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Subnet], error) {
	var out *paging.ResultList[*contracts.Subnet]
	err := s.p.do(ctx, contracts.ServiceSubnets, "list", "", func() error {
		out = common.Page(snapshotOf(s.p.subnets.values()), opts)
		return nil
	})
	return out, err
}

func (s *subnetService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Subnet], error) {
	var out *paging.ResultList[*contracts.Subnet]
	err := s.p.do(ctx, contracts.ServiceSubnets, "find", "", func() error {
		out = paging.Find(snapshotOf(s.p.subnets.values()), opts)
		return nil
	})
	return out, err
}

func (s *subnetService) Create(ctx context.Context, req contracts.CreateSubnetRequest) (*contracts.Subnet, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	prefix, err := common.ParseCIDR(req.CIDR)
	if err != nil {
		return nil, err
	}
	var out *contracts.Subnet
	err = s.p.do(ctx, contracts.ServiceSubnets, "create", "", func() error {
		sn, err := s.p.createSubnet(name, req.Label, req.NetworkID, prefix.String(), req.Zone)
		if err != nil {
			return err
		}
		out = cloneOf(sn)
		return nil
	})
	return out, err
}

// createSubnet adds a subnet inside its network's range. Callers hold p.mu.
func (p *Provider) createSubnet(name, label, networkID, cidr, zone string) (*contracts.Subnet, error) {
	n, ok := p.networks.get(networkID)
	if !ok {
		return nil, contracts.NotFoundf("network", networkID)
	}
	if !common.CIDRWithin(n.CIDR, cidr) {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("subnet %s is outside network range %s", cidr, n.CIDR), nil)
	}
	for _, other := range p.subnets.values() {
		if other.NetworkID == networkID && (common.CIDRWithin(other.CIDR, cidr) || common.CIDRWithin(cidr, other.CIDR)) {
			return nil, contracts.NewInvalidValueError(fmt.Sprintf("subnet %s overlaps %s", cidr, other.CIDR), nil)
		}
	}
	if zone == "" {
		zone = p.zone
	}
	id := p.generateID("subnet")
	sn := &contracts.Subnet{
		Resource:  contracts.Resource{ID: id, Name: name, Label: label, CreateTime: p.now()},
		NetworkID: networkID,
		CIDR:      cidr,
		ZoneID:    zone,
		State:     contracts.NetworkStatePending,
	}
	p.subnets.put(id, sn)
	p.schedule(func() { sn.State = contracts.NetworkStateAvailable })
	return sn, nil
}

func (s *subnetService) Delete(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceSubnets, "delete", id, func() error {
		if _, ok := s.p.subnets.get(id); !ok {
			return nil
		}
		for _, inst := range s.p.instances.values() {
			if inst.SubnetID == id {
				return contracts.NewInvalidValueError(fmt.Sprintf("subnet %s is used by instance %s", id, inst.ID), nil)
			}
		}
		for _, r := range s.p.routers.values() {
			r.SubnetIDs = slices.DeleteFunc(slices.Clone(r.SubnetIDs), func(sn string) bool { return sn == id })
		}
		s.p.subnets.remove(id)
		return nil
	})
}

func (s *subnetService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceSubnets, "set_label", id, func() error {
		sn, ok := s.p.subnets.get(id)
		if !ok {
			return contracts.NotFoundf("subnet", id)
		}
		sn.Label = label
		return nil
	})
}

func (s *subnetService) GetOrCreateDefault(ctx context.Context, zone string) (*contracts.Subnet, error) {
	if zone == "" {
		zone = s.p.zone
	}
	var out *contracts.Subnet
	err := s.p.do(ctx, contracts.ServiceSubnets, "get_or_create_default", zone, func() error {
		sn, err := s.p.defaultSubnet(zone)
		if err != nil {
			return err
		}
		out = cloneOf(sn)
		return nil
	})
	return out, err
}

// defaultSubnet returns the default subnet of zone, creating the default
// network and a /24 for the zone when missing. Callers hold p.mu.
func (p *Provider) defaultSubnet(zone string) (*contracts.Subnet, error) {
	var network *contracts.Network
	for _, n := range p.networks.values() {
		if n.Tags[defaultTag] == "true" {
			network = n
			break
		}
	}
	if network == nil {
		network = p.createNetwork(contracts.GenerateName(common.DefaultNetworkLabel), common.DefaultNetworkLabel, common.DefaultNetworkCIDR)
		network.Tags = map[string]string{defaultTag: "true"}
	}

	count := 0
	for _, sn := range p.subnets.values() {
		if sn.NetworkID != network.ID {
			continue
		}
		count++
		if sn.ZoneID == zone && sn.Tags[defaultTag] == "true" {
			return sn, nil
		}
	}

	cidr := common.DefaultSubnetCIDR(count)
	sn, err := p.createSubnet(contracts.GenerateName(common.DefaultNetworkLabel), common.DefaultNetworkLabel, network.ID, cidr, zone)
	if err != nil {
		return nil, err
	}
	sn.Tags = map[string]string{defaultTag: "true"}
	return sn, nil
}

// nextPrivateIP hands out addresses from the subnet range, skipping the
// first few reserved ones. Callers hold p.mu.
func (p *Provider) nextPrivateIP(sn *contracts.Subnet) string {
	used := 0
	for _, inst := range p.instances.values() {
		if inst.SubnetID == sn.ID {
			used++
		}
	}
	addr := netip.MustParsePrefix(sn.CIDR).Addr()
	for i := 0; i < used+4; i++ {
		addr = addr.Next()
	}
	return addr.String()
}

type routerService struct{ p *Provider }

func (s *routerService) Get(ctx context.Context, id string) (*contracts.Router, error) {
	var out *contracts.Router
	err := s.p.do(ctx, contracts.ServiceRouters, "get", id, func() error {
		r, ok := s.p.routers.get(id)
		if !ok {
			return contracts.NotFoundf("router", id)
		}
		out = cloneOf(r)
		return nil
	})
	return out, err
}

func (s *routerService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Router], error) {
	var out *paging.ResultList[*contracts.Router]
	err := s.p.do(ctx, contracts.ServiceRouters, "list", "", func() error {
		out = common.Page(snapshotOf(s.p.routers.values()), opts)
		return nil
	})
	return out, err
}

func (s *routerService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Router], error) {
	var out *paging.ResultList[*contracts.Router]
	err := s.p.do(ctx, contracts.ServiceRouters, "find", "", func() error {
		out = paging.Find(snapshotOf(s.p.routers.values()), opts)
		return nil
	})
	return out, err
}

func (s *routerService) Create(ctx context.Context, req contracts.CreateRouterRequest) (*contracts.Router, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	var out *contracts.Router
	err = s.p.do(ctx, contracts.ServiceRouters, "create", "", func() error {
		state := contracts.RouterStateDetached
		if req.NetworkID != "" {
			if _, ok := s.p.networks.get(req.NetworkID); !ok {
				return contracts.NotFoundf("network", req.NetworkID)
			}
			state = contracts.RouterStateAttached
		}
		id := s.p.generateID("rtr")
		r := &contracts.Router{
			Resource:  contracts.Resource{ID: id, Name: name, Label: req.Label, CreateTime: s.p.now()},
			NetworkID: req.NetworkID,
			State:     state,
		}
		s.p.routers.put(id, r)
		out = cloneOf(r)
		return nil
	})
	return out, err
}

func (s *routerService) Delete(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceRouters, "delete", id, func() error {
		s.p.routers.remove(id)
		return nil
	})
}

func (s *routerService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceRouters, "set_label", id, func() error {
		r, ok := s.p.routers.get(id)
		if !ok {
			return contracts.NotFoundf("router", id)
		}
		r.Label = label
		return nil
	})
}

func (s *routerService) AttachSubnet(ctx context.Context, id, subnetID string) error {
	return s.p.do(ctx, contracts.ServiceRouters, "attach_subnet", id, func() error {
		r, ok := s.p.routers.get(id)
		if !ok {
			return contracts.NotFoundf("router", id)
		}
		sn, ok := s.p.subnets.get(subnetID)
		if !ok {
			return contracts.NotFoundf("subnet", subnetID)
		}
		if r.NetworkID != "" && r.NetworkID != sn.NetworkID {
			return contracts.NewInvalidValueError(fmt.Sprintf("subnet %s is not in router network %s", subnetID, r.NetworkID), nil)
		}
		if !slices.Contains(r.SubnetIDs, subnetID) {
			r.SubnetIDs = append(slices.Clone(r.SubnetIDs), subnetID)
		}
		r.NetworkID = sn.NetworkID
		r.State = contracts.RouterStateAttached
		return nil
	})
}

func (s *routerService) DetachSubnet(ctx context.Context, id, subnetID string) error {
	return s.p.do(ctx, contracts.ServiceRouters, "detach_subnet", id, func() error {
		r, ok := s.p.routers.get(id)
		if !ok {
			return contracts.NotFoundf("router", id)
		}
		r.SubnetIDs = slices.DeleteFunc(slices.Clone(r.SubnetIDs), func(sn string) bool { return sn == subnetID })
		return nil
	})
}

func (s *routerService) AttachGateway(ctx context.Context, id, gatewayID string) error {
	return s.p.do(ctx, contracts.ServiceRouters, "attach_gateway", id, func() error {
		r, ok := s.p.routers.get(id)
		if !ok {
			return contracts.NotFoundf("router", id)
		}
		if _, ok := s.p.gateways.get(gatewayID); !ok {
			return contracts.NotFoundf("internet gateway", gatewayID)
		}
		r.GatewayID = gatewayID
		return nil
	})
}

func (s *routerService) DetachGateway(ctx context.Context, id, gatewayID string) error {
	return s.p.do(ctx, contracts.ServiceRouters, "detach_gateway", id, func() error {
		r, ok := s.p.routers.get(id)
		if !ok {
			return contracts.NotFoundf("router", id)
		}
		if r.GatewayID == gatewayID {
			r.GatewayID = ""
		}
		return nil
	})
}

type gatewayService struct{ p *Provider }

func (s *gatewayService) GetOrCreate(ctx context.Context, networkID string) (*contracts.InternetGateway, error) {
	var out *contracts.InternetGateway
	err := s.p.do(ctx, contracts.ServiceGateways, "get_or_create", networkID, func() error {
		if _, ok := s.p.networks.get(networkID); !ok {
			return contracts.NotFoundf("network", networkID)
		}
		for _, gw := range s.p.gateways.values() {
			if gw.NetworkID == networkID {
				out = cloneOf(gw)
				return nil
			}
		}
		id := s.p.generateID("igw")
		gw := &contracts.InternetGateway{
			Resource:  contracts.Resource{ID: id, Name: contracts.GenerateName("cb-gateway"), CreateTime: s.p.now()},
			NetworkID: networkID,
			State:     contracts.GatewayStateAvailable,
		}
		s.p.gateways.put(id, gw)
		out = cloneOf(gw)
		return nil
	})
	return out, err
}

func (s *gatewayService) Delete(ctx context.Context, networkID, gatewayID string) error {
	return s.p.do(ctx, contracts.ServiceGateways, "delete", gatewayID, func() error {
		gw, ok := s.p.gateways.get(gatewayID)
		if !ok || gw.NetworkID != networkID {
			return nil
		}
		for _, fip := range s.p.fips.values() {
			if fip.GatewayID == gatewayID && fip.InUse() {
				return contracts.NewInvalidValueError(fmt.Sprintf("gateway %s has associated floating ip %s", gatewayID, fip.PublicIP), nil)
			}
		}
		s.p.gateways.remove(gatewayID)
		return nil
	})
}

func (s *gatewayService) List(ctx context.Context, networkID string, opts paging.ListOptions) (*paging.ResultList[*contracts.InternetGateway], error) {
	var out *paging.ResultList[*contracts.InternetGateway]
	err := s.p.do(ctx, contracts.ServiceGateways, "list", networkID, func() error {
		var matched []*contracts.InternetGateway
		for _, gw := range s.p.gateways.values() {
			if networkID == "" || gw.NetworkID == networkID {
				matched = append(matched, cloneOf(gw))
			}
		}
		out = common.Page(matched, opts)
		return nil
	})
	return out, err
}

type floatingIPService struct{ p *Provider }

func (s *floatingIPService) Get(ctx context.Context, id string) (*contracts.FloatingIP, error) {
	var out *contracts.FloatingIP
	err := s.p.do(ctx, contracts.ServiceFloatingIPs, "get", id, func() error {
		fip, ok := s.p.fips.get(id)
		if !ok {
			return contracts.NotFoundf("floating ip", id)
		}
		out = cloneOf(fip)
		return nil
	})
	return out, err
}

func (s *floatingIPService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.FloatingIP], error) {
	var out *paging.ResultList[*contracts.FloatingIP]
	err := s.p.do(ctx, contracts.ServiceFloatingIPs, "list", "", func() error {
		out = common.Page(snapshotOf(s.p.fips.values()), opts)
		return nil
	})
	return out, err
}

func (s *floatingIPService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.FloatingIP], error) {
	var out *paging.ResultList[*contracts.FloatingIP]
	err := s.p.do(ctx, contracts.ServiceFloatingIPs, "find", "", func() error {
		out = paging.Find(snapshotOf(s.p.fips.values()), opts)
		return nil
	})
	return out, err
}

func (s *floatingIPService) Create(ctx context.Context, gatewayID string) (*contracts.FloatingIP, error) {
	var out *contracts.FloatingIP
	err := s.p.do(ctx, contracts.ServiceFloatingIPs, "create", gatewayID, func() error {
		if _, ok := s.p.gateways.get(gatewayID); !ok {
			return contracts.NotFoundf("internet gateway", gatewayID)
		}
		id := s.p.generateID("fip")
		addr := netip.MustParseAddr(floatingIPBase)
		for i := 0; i <= s.p.seq%250; i++ {
			addr = addr.Next()
		}
		fip := &contracts.FloatingIP{
			Resource:  contracts.Resource{ID: id, Name: addr.String(), CreateTime: s.p.now()},
			PublicIP:  addr.String(),
			GatewayID: gatewayID,
		}
		s.p.fips.put(id, fip)
		out = cloneOf(fip)
		return nil
	})
	return out, err
}

func (s *floatingIPService) Delete(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceFloatingIPs, "delete", id, func() error {
		fip, ok := s.p.fips.get(id)
		if !ok {
			return nil
		}
		if fip.InUse() {
			return contracts.NewInvalidValueError(fmt.Sprintf("floating ip %s is associated with %s", fip.PublicIP, fip.InstanceID), nil)
		}
		s.p.fips.remove(id)
		return nil
	})
}
