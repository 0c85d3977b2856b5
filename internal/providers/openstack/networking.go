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
	"slices"
	"strings"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/attributestags"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/external"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/layer3/floatingips"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/layer3/routers"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/networks"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/ports"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/subnets"
	"github.com/gophercloud/gophercloud/pagination"

	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// network is a Neutron network with its router:external flag
type network struct {
	networks.Network
	external.NetworkExternalExt
}

func extractNetworks(page pagination.Page) ([]network, error) {
	var out []network
	err := networks.ExtractNetworksInto(page, &out)
	return out, err
}

// externalNetworks lists the networks routers can use as a gateway
func (p *Provider) externalNetworks() ([]network, error) {
	isExternal := true
	opts := external.ListOptsExt{ListOptsBuilder: networks.ListOpts{}, External: &isExternal}
	return allPages(networks.List(p.clients.Network, opts), extractNetworks)
}

func setTags(nc *gophercloud.ServiceClient, resourceType, id string, tags []string) error {
	_, err := attributestags.ReplaceAll(nc, resourceType, id, attributestags.ReplaceAllOpts{Tags: tags}).Extract()
	return err
}

type networkService struct{ p *Provider }

func toNetwork(n *network) *contracts.Network {
	res := tagResource(n.ID, n.Name, n.Tags)
	res.CreateTime = n.CreatedAt
	return &contracts.Network{
		Resource: res,
		CIDR:     res.Tags[cidrKey],
		State:    networkStates.Lookup(n.Status),
		External: n.External,
	}
}

func (s *networkService) Get(ctx context.Context, id string) (*contracts.Network, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "get", id, func(ctx context.Context) (*contracts.Network, error) {
		var n network
		if err := networks.Get(s.p.clients.Network, id).ExtractInto(&n); err != nil {
			return nil, err
		}
		return toNetwork(&n), nil
	})
}

func (s *networkService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Network], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Network], error) {
		page, err := firstPage(networks.List(s.p.clients.Network, networks.ListOpts{
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), extractNetworks)
		if err != nil {
			return nil, err
		}
		return convertPage(page, opts, toNetwork), nil
	})
}

func (s *networkService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Network], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *networkService) Create(ctx context.Context, req contracts.CreateNetworkRequest) (*contracts.Network, error) {
	return s.create(ctx, req, nil)
}

// create makes a network and tags it with its label, its CIDR and extra
func (s *networkService) create(ctx context.Context, req contracts.CreateNetworkRequest, extra map[string]string) (*contracts.Network, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	cidr := req.CIDR
	if cidr == "" {
		cidr = common.DefaultNetworkCIDR
	}
	prefix, err := common.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	tagMap := map[string]string{cidrKey: prefix.String()}
	for k, v := range extra {
		tagMap[k] = v
	}
	tags := joinTags(req.Label, tagMap)

	return common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "create", name, func(ctx context.Context) (*contracts.Network, error) {
		n, err := networks.Create(s.p.clients.Network, networks.CreateOpts{
			Name:         name,
			AdminStateUp: gophercloud.Enabled,
		}).Extract()
		if err != nil {
			return nil, err
		}
		if err := setTags(s.p.clients.Network, networksResource, n.ID, tags); err != nil {
			return nil, err
		}
		n.Tags = tags
		return toNetwork(&network{Network: *n}), nil
	})
}

func (s *networkService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceNetworks, "delete", id, func(ctx context.Context) error {
		return networks.Delete(s.p.clients.Network, id).ExtractErr()
	})
	return contracts.IgnoreNotFound(err)
}

func (s *networkService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	n, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.p.setTagLabel(ctx, contracts.ServiceNetworks, networksResource, n.Resource, label)
}

func (s *networkService) Subnets(ctx context.Context, id string) ([]*contracts.Subnet, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "subnets", id, func(ctx context.Context) ([]*contracts.Subnet, error) {
		all, err := allPages(subnets.List(s.p.clients.Network, subnets.ListOpts{NetworkID: id}), subnets.ExtractSubnets)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.Subnet, 0, len(all))
		for i := range all {
			out = append(out, toSubnet(&all[i]))
		}
		return out, nil
	})
}

type subnetService struct{ p *Provider }

// Neutron subnets have no status or zone
func toSubnet(sn *subnets.Subnet) *contracts.Subnet {
	return &contracts.Subnet{
		Resource:  tagResource(sn.ID, sn.Name, sn.Tags),
		NetworkID: sn.NetworkID,
		CIDR:      sn.CIDR,
		State:     contracts.NetworkStateAvailable,
	}
}

func (s *subnetService) Get(ctx context.Context, id string) (*contracts.Subnet, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSubnets, "get", id, func(ctx context.Context) (*contracts.Subnet, error) {
		sn, err := subnets.Get(s.p.clients.Network, id).Extract()
		if err != nil {
			return nil, err
		}
		return toSubnet(sn), nil
	})
}

func (s *subnetService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Subnet], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSubnets, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Subnet], error) {
		page, err := firstPage(subnets.List(s.p.clients.Network, subnets.ListOpts{
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), subnets.ExtractSubnets)
		if err != nil {
			return nil, err
		}
		return convertPage(page, opts, toSubnet), nil
	})
}

func (s *subnetService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Subnet], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *subnetService) Create(ctx context.Context, req contracts.CreateSubnetRequest) (*contracts.Subnet, error) {
	if req.NetworkID == "" {
		return nil, contracts.NewInvalidValueError("a network ID is required", nil)
	}
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	prefix, err := common.ParseCIDR(req.CIDR)
	if err != nil {
		return nil, err
	}
	parent, err := s.p.networking.Networks.Get(ctx, req.NetworkID)
	if err != nil {
		return nil, err
	}
	if parent.CIDR != "" && !common.CIDRWithin(parent.CIDR, prefix.String()) {
		return nil, contracts.NewInvalidValueError(
			fmt.Sprintf("subnet %s is outside network range %s", prefix, parent.CIDR), nil)
	}
	version := gophercloud.IPv4
	if prefix.Addr().Is6() {
		version = gophercloud.IPv6
	}
	tags := joinTags(req.Label, nil)

	return common.Call(ctx, s.p.caller, contracts.ServiceSubnets, "create", name, func(ctx context.Context) (*contracts.Subnet, error) {
		sn, err := subnets.Create(s.p.clients.Network, subnets.CreateOpts{
			NetworkID: req.NetworkID,
			Name:      name,
			CIDR:      prefix.String(),
			IPVersion: version,
		}).Extract()
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			if err := setTags(s.p.clients.Network, subnetsResource, sn.ID, tags); err != nil {
				return nil, err
			}
			sn.Tags = tags
		}
		return toSubnet(sn), nil
	})
}

func (s *subnetService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceSubnets, "delete", id, func(ctx context.Context) error {
		return subnets.Delete(s.p.clients.Network, id).ExtractErr()
	})
	return contracts.IgnoreNotFound(err)
}

func (s *subnetService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	sn, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.p.setTagLabel(ctx, contracts.ServiceSubnets, subnetsResource, sn.Resource, label)
}

// GetOrCreateDefault returns the first subnet of the tagged cloudbridge
// network, creating the network, a subnet and a router to the first
// external network when the project has none. Neutron subnets are not
// zonal, so zone is ignored.
func (s *subnetService) GetOrCreateDefault(ctx context.Context, zone string) (*contracts.Subnet, error) {
	log := logging.FromContext(ctx)
	nets := s.p.networking.Networks.(*networkService)

	found, err := common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "get_or_create_default", "", func(ctx context.Context) ([]network, error) {
		return allPages(networks.List(s.p.clients.Network, networks.ListOpts{Tags: defaultNetworkTag}), extractNetworks)
	})
	if err != nil {
		return nil, err
	}

	var net *contracts.Network
	if len(found) > 0 {
		net = toNetwork(&found[0])
		existing, err := nets.Subnets(ctx, net.ID)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			return existing[0], nil
		}
	} else {
		log.Info("Creating default network", "cidr", common.DefaultNetworkCIDR)
		net, err = nets.create(ctx, contracts.CreateNetworkRequest{
			Label: common.DefaultNetworkLabel,
			CIDR:  common.DefaultNetworkCIDR,
		}, map[string]string{defaultNetworkTag: ""})
		if err != nil {
			return nil, err
		}
	}

	log.Info("Creating default subnet", "network", net.ID)
	subnet, err := s.Create(ctx, contracts.CreateSubnetRequest{
		NetworkID: net.ID,
		Label:     common.DefaultNetworkLabel,
		CIDR:      common.DefaultSubnetCIDR(0),
	})
	if err != nil {
		return nil, err
	}
	if err := s.routeDefault(ctx, net.ID, subnet.ID); err != nil {
		log.Error(err, "Default network has no external route", "network", net.ID)
	}
	return subnet, nil
}

// routeDefault connects the default subnet to the first external network
func (s *subnetService) routeDefault(ctx context.Context, networkID, subnetID string) error {
	gw, err := s.p.networking.Gateways.GetOrCreate(ctx, networkID)
	if err != nil {
		return err
	}
	routerSvc := s.p.networking.Routers
	router, err := routerSvc.Create(ctx, contracts.CreateRouterRequest{Label: common.DefaultNetworkLabel, NetworkID: networkID})
	if err != nil {
		return err
	}
	if err := routerSvc.AttachGateway(ctx, router.ID, gw.ID); err != nil {
		return err
	}
	return routerSvc.AttachSubnet(ctx, router.ID, subnetID)
}

type routerService struct{ p *Provider }

func isRouterInterface(owner string) bool {
	return strings.HasPrefix(owner, "network:router_interface") || owner == "network:ha_router_replicated_interface"
}

func toRouter(r *routers.Router, attached []ports.Port) *contracts.Router {
	res := tagResource(r.ID, r.Name, r.Tags)
	rt := &contracts.Router{
		Resource:  res,
		NetworkID: res.Tags[networkKey],
		GatewayID: r.GatewayInfo.NetworkID,
		State:     contracts.RouterStateDetached,
	}
	for _, port := range attached {
		if !isRouterInterface(port.DeviceOwner) {
			continue
		}
		if rt.NetworkID == "" {
			rt.NetworkID = port.NetworkID
		}
		for _, ip := range port.FixedIPs {
			if !slices.Contains(rt.SubnetIDs, ip.SubnetID) {
				rt.SubnetIDs = append(rt.SubnetIDs, ip.SubnetID)
			}
		}
	}
	if len(rt.SubnetIDs) > 0 {
		rt.State = contracts.RouterStateAttached
	}
	return rt
}

func (s *routerService) get(id string) (*contracts.Router, error) {
	r, err := routers.Get(s.p.clients.Network, id).Extract()
	if err != nil {
		return nil, err
	}
	attached, err := s.p.devicePorts(id)
	if err != nil {
		return nil, err
	}
	return toRouter(r, attached[id]), nil
}

func (s *routerService) Get(ctx context.Context, id string) (*contracts.Router, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRouters, "get", id, func(ctx context.Context) (*contracts.Router, error) {
		return s.get(id)
	})
}

func (s *routerService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Router], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRouters, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Router], error) {
		page, err := firstPage(routers.List(s.p.clients.Network, routers.ListOpts{
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), routers.ExtractRouters)
		if err != nil {
			return nil, err
		}
		attached, err := s.p.devicePorts("")
		if err != nil {
			return nil, err
		}
		return convertPage(page, opts, func(r *routers.Router) *contracts.Router {
			return toRouter(r, attached[r.ID])
		}), nil
	})
}

func (s *routerService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Router], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create makes a router; Neutron routers are not scoped to a network, so
// the network is recorded as a tag
func (s *routerService) Create(ctx context.Context, req contracts.CreateRouterRequest) (*contracts.Router, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	var extra map[string]string
	if req.NetworkID != "" {
		extra = map[string]string{networkKey: req.NetworkID}
	}
	tags := joinTags(req.Label, extra)

	return common.Call(ctx, s.p.caller, contracts.ServiceRouters, "create", name, func(ctx context.Context) (*contracts.Router, error) {
		r, err := routers.Create(s.p.clients.Network, routers.CreateOpts{Name: name}).Extract()
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			if err := setTags(s.p.clients.Network, routersResource, r.ID, tags); err != nil {
				return nil, err
			}
			r.Tags = tags
		}
		return toRouter(r, nil), nil
	})
}

// Delete detaches every subnet first; Neutron refuses to delete a router
// with interfaces
func (s *routerService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceRouters, "delete", id, func(ctx context.Context) error {
		attached, err := s.p.devicePorts(id)
		if err != nil {
			return err
		}
		for _, port := range attached[id] {
			if !isRouterInterface(port.DeviceOwner) {
				continue
			}
			_, err := routers.RemoveInterface(s.p.clients.Network, id, routers.RemoveInterfaceOpts{PortID: port.ID}).Extract()
			if err != nil && !contracts.IsNotFound(translateError(err)) {
				return err
			}
		}
		return routers.Delete(s.p.clients.Network, id).ExtractErr()
	})
	return contracts.IgnoreNotFound(err)
}

func (s *routerService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.p.setTagLabel(ctx, contracts.ServiceRouters, routersResource, r.Resource, label)
}

func (s *routerService) AttachSubnet(ctx context.Context, id, subnetID string) error {
	return s.p.do(ctx, contracts.ServiceRouters, "attach_subnet", id, func(ctx context.Context) error {
		_, err := routers.AddInterface(s.p.clients.Network, id, routers.AddInterfaceOpts{SubnetID: subnetID}).Extract()
		return err
	})
}

func (s *routerService) DetachSubnet(ctx context.Context, id, subnetID string) error {
	return s.p.do(ctx, contracts.ServiceRouters, "detach_subnet", id, func(ctx context.Context) error {
		_, err := routers.RemoveInterface(s.p.clients.Network, id, routers.RemoveInterfaceOpts{SubnetID: subnetID}).Extract()
		return err
	})
}

// AttachGateway sets the external network of the router
func (s *routerService) AttachGateway(ctx context.Context, id, gatewayID string) error {
	return s.p.do(ctx, contracts.ServiceRouters, "attach_gateway", id, func(ctx context.Context) error {
		_, err := routers.Update(s.p.clients.Network, id, routers.UpdateOpts{
			GatewayInfo: &routers.GatewayInfo{NetworkID: gatewayID},
		}).Extract()
		return err
	})
}

// DetachGateway clears the external gateway of the router
func (s *routerService) DetachGateway(ctx context.Context, id, gatewayID string) error {
	return s.p.do(ctx, contracts.ServiceRouters, "detach_gateway", id, func(ctx context.Context) error {
		_, err := routers.Update(s.p.clients.Network, id, routers.UpdateOpts{
			GatewayInfo: &routers.GatewayInfo{},
		}).Extract()
		return err
	})
}

// gatewayService exposes external networks as internet gateways. They are
// shared by every network of the project and cannot be created or deleted.
type gatewayService struct{ p *Provider }

func toGateway(n *network, networkID string) *contracts.InternetGateway {
	return &contracts.InternetGateway{
		Resource:  contracts.Resource{ID: n.ID, Name: n.Name},
		NetworkID: networkID,
		State:     gatewayStates.Lookup(n.Status),
	}
}

func (s *gatewayService) GetOrCreate(ctx context.Context, networkID string) (*contracts.InternetGateway, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceGateways, "get_or_create", networkID, func(ctx context.Context) (*contracts.InternetGateway, error) {
		ext, err := s.p.externalNetworks()
		if err != nil {
			return nil, err
		}
		if len(ext) == 0 {
			return nil, contracts.NewNotFoundError("the cloud has no external network", nil)
		}
		return toGateway(&ext[0], networkID), nil
	})
}

// Delete is a no-op; external networks belong to the cloud operator
func (s *gatewayService) Delete(ctx context.Context, networkID, gatewayID string) error {
	return nil
}

func (s *gatewayService) List(ctx context.Context, networkID string, opts paging.ListOptions) (*paging.ResultList[*contracts.InternetGateway], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceGateways, "list", networkID, func(ctx context.Context) (*paging.ResultList[*contracts.InternetGateway], error) {
		ext, err := s.p.externalNetworks()
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.InternetGateway, 0, len(ext))
		for i := range ext {
			out = append(out, toGateway(&ext[i], networkID))
		}
		return common.Page(out, opts), nil
	})
}

type floatingIPService struct{ p *Provider }

func toFloatingIP(f *floatingips.FloatingIP, instanceID string) *contracts.FloatingIP {
	_, tags := splitTags(f.Tags)
	return &contracts.FloatingIP{
		Resource:   contracts.Resource{ID: f.ID, Name: f.FloatingIP, Tags: tags},
		PublicIP:   f.FloatingIP,
		PrivateIP:  f.FixedIP,
		InstanceID: instanceID,
		GatewayID:  f.FloatingNetworkID,
	}
}

// portOwners maps port IDs to the device the port is bound to
func (p *Provider) portOwners() (map[string]string, error) {
	byDevice, err := p.devicePorts("")
	if err != nil {
		return nil, err
	}
	owners := make(map[string]string)
	for device, list := range byDevice {
		for _, port := range list {
			owners[port.ID] = device
		}
	}
	return owners, nil
}

func (s *floatingIPService) Get(ctx context.Context, id string) (*contracts.FloatingIP, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceFloatingIPs, "get", id, func(ctx context.Context) (*contracts.FloatingIP, error) {
		f, err := floatingips.Get(s.p.clients.Network, id).Extract()
		if err != nil {
			return nil, err
		}
		var instanceID string
		if f.PortID != "" {
			port, err := ports.Get(s.p.clients.Network, f.PortID).Extract()
			if err != nil {
				return nil, err
			}
			instanceID = port.DeviceID
		}
		return toFloatingIP(f, instanceID), nil
	})
}

func (s *floatingIPService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.FloatingIP], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceFloatingIPs, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.FloatingIP], error) {
		page, err := firstPage(floatingips.List(s.p.clients.Network, floatingips.ListOpts{
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), floatingips.ExtractFloatingIPs)
		if err != nil {
			return nil, err
		}
		var owners map[string]string
		if slices.ContainsFunc(page, func(f floatingips.FloatingIP) bool { return f.PortID != "" }) {
			if owners, err = s.p.portOwners(); err != nil {
				return nil, err
			}
		}
		return convertPage(page, opts, func(f *floatingips.FloatingIP) *contracts.FloatingIP {
			return toFloatingIP(f, owners[f.PortID])
		}), nil
	})
}

func (s *floatingIPService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.FloatingIP], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create allocates an address on the external network gatewayID, or on
// the first external network when gatewayID is empty
func (s *floatingIPService) Create(ctx context.Context, gatewayID string) (*contracts.FloatingIP, error) {
	if gatewayID == "" {
		gw, err := s.p.networking.Gateways.GetOrCreate(ctx, "")
		if err != nil {
			return nil, err
		}
		gatewayID = gw.ID
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceFloatingIPs, "create", gatewayID, func(ctx context.Context) (*contracts.FloatingIP, error) {
		f, err := floatingips.Create(s.p.clients.Network, floatingips.CreateOpts{FloatingNetworkID: gatewayID}).Extract()
		if err != nil {
			return nil, err
		}
		return toFloatingIP(f, ""), nil
	})
}

func (s *floatingIPService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceFloatingIPs, "delete", id, func(ctx context.Context) error {
		return floatingips.Delete(s.p.clients.Network, id).ExtractErr()
	})
	return contracts.IgnoreNotFound(err)
}
