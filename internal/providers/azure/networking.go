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
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v5"

	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	// defaultSubnetName names the subnet created in the default network
	defaultSubnetName = "default"
	// internetRoute is the route a router gets when a gateway is attached
	internetRoute = "internet"
	// gatewaySuffix turns a network ID into the ID of its implicit gateway
	gatewaySuffix = "/internetGateway"
	floatingIPLabel = "cloudbridge-fip"
)

func provisioning(state *armnetwork.ProvisioningState) string {
	return string(deref(state))
}

// networkService manages virtual networks
type networkService struct{ p *Provider }

func toNetwork(vnet *armnetwork.VirtualNetwork) *contracts.Network {
	n := &contracts.Network{Resource: resource(vnet.ID, vnet.Name, vnet.Tags)}
	for k := range n.Tags {
		if strings.HasPrefix(k, subnetLabelPrefix) {
			delete(n.Tags, k)
		}
	}
	if len(n.Tags) == 0 {
		n.Tags = nil
	}
	if props := vnet.Properties; props != nil {
		n.State = networkStates.Lookup(provisioning(props.ProvisioningState))
		if as := props.AddressSpace; as != nil && len(as.AddressPrefixes) > 0 {
			n.CIDR = deref(as.AddressPrefixes[0])
		}
	}
	return n
}

func (s *networkService) fetch(ctx context.Context, id string) (*armnetwork.VirtualNetwork, error) {
	name, err := s.p.ref(id, typeVirtualNetworks)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "get", name, func(ctx context.Context) (*armnetwork.VirtualNetwork, error) {
		return s.p.clients.VirtualNetworks.Get(ctx, name)
	})
}

func (s *networkService) all(ctx context.Context) ([]*armnetwork.VirtualNetwork, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "list", "", func(ctx context.Context) ([]*armnetwork.VirtualNetwork, error) {
		return s.p.clients.VirtualNetworks.List(ctx)
	})
}

func (s *networkService) Get(ctx context.Context, id string) (*contracts.Network, error) {
	vnet, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return toNetwork(vnet), nil
}

func (s *networkService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Network], error) {
	vnets, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*contracts.Network, 0, len(vnets))
	for _, vnet := range vnets {
		out = append(out, toNetwork(vnet))
	}
	return common.Page(out, opts), nil
}

func (s *networkService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Network], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create makes a virtual network; Azure requires an address space
func (s *networkService) Create(ctx context.Context, req contracts.CreateNetworkRequest) (*contracts.Network, error) {
	return s.create(ctx, req, nil)
}

func (s *networkService) create(ctx context.Context, req contracts.CreateNetworkRequest, extra map[string]string) (*contracts.Network, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	if req.CIDR == "" {
		return nil, contracts.NewInvalidValueError("Azure networks need a CIDR block", nil)
	}
	prefix, err := common.ParseCIDR(req.CIDR)
	if err != nil {
		return nil, err
	}
	vnet := armnetwork.VirtualNetwork{
		Location: to.Ptr(s.p.region),
		Tags:     tagsOf(req.Label, extra),
		Properties: &armnetwork.VirtualNetworkPropertiesFormat{
			AddressSpace: &armnetwork.AddressSpace{AddressPrefixes: []*string{to.Ptr(prefix.String())}},
		},
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "create", name, func(ctx context.Context) (*contracts.Network, error) {
		created, err := s.p.clients.VirtualNetworks.CreateOrUpdate(ctx, name, vnet)
		if err != nil {
			return nil, err
		}
		return toNetwork(created), nil
	})
}

func (s *networkService) Delete(ctx context.Context, id string) error {
	name, err := s.p.ref(id, typeVirtualNetworks)
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceNetworks, "delete", name, func(ctx context.Context) error {
		return s.p.clients.VirtualNetworks.Delete(ctx, name)
	})
	return contracts.IgnoreNotFound(err)
}

func (s *networkService) SetLabel(ctx context.Context, id, label string) error {
	return setLabel(ctx, s.p, contracts.ServiceNetworks, s.p.clients.VirtualNetworks, id, typeVirtualNetworks, label,
		func(vnet *armnetwork.VirtualNetwork) *map[string]*string { return &vnet.Tags })
}

func (s *networkService) Subnets(ctx context.Context, id string) ([]*contracts.Subnet, error) {
	vnet, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return subnetsOf(vnet), nil
}

// subnetService manages the subnets embedded in virtual networks. Subnet
// IDs are ARM IDs or "network/subnet" names.
type subnetService struct{ p *Provider }

func toSubnet(vnet *armnetwork.VirtualNetwork, sn *armnetwork.Subnet) *contracts.Subnet {
	name := deref(sn.Name)
	out := &contracts.Subnet{
		Resource:  contracts.Resource{ID: deref(sn.ID), Name: name, Label: deref(vnet.Tags[subnetLabelPrefix+name])},
		NetworkID: deref(vnet.ID),
	}
	if props := sn.Properties; props != nil {
		out.State = networkStates.Lookup(provisioning(props.ProvisioningState))
		out.CIDR = deref(props.AddressPrefix)
		if out.CIDR == "" && len(props.AddressPrefixes) > 0 {
			out.CIDR = deref(props.AddressPrefixes[0])
		}
	}
	return out
}

func subnetsOf(vnet *armnetwork.VirtualNetwork) []*contracts.Subnet {
	if vnet.Properties == nil {
		return nil
	}
	out := make([]*contracts.Subnet, 0, len(vnet.Properties.Subnets))
	for _, sn := range vnet.Properties.Subnets {
		out = append(out, toSubnet(vnet, sn))
	}
	return out
}

func (s *subnetService) Get(ctx context.Context, id string) (*contracts.Subnet, error) {
	vnetName, name, err := s.p.childRef(id, typeSubnets)
	if err != nil {
		return nil, err
	}
	vnet, err := s.p.networking.Networks.(*networkService).fetch(ctx, vnetName)
	if err != nil {
		return nil, err
	}
	for _, sn := range subnetsOf(vnet) {
		if strings.EqualFold(sn.Name, name) {
			return sn, nil
		}
	}
	return nil, contracts.NotFoundf("subnet", id)
}

func (s *subnetService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Subnet], error) {
	vnets, err := s.p.networking.Networks.(*networkService).all(ctx)
	if err != nil {
		return nil, err
	}
	var out []*contracts.Subnet
	for _, vnet := range vnets {
		out = append(out, subnetsOf(vnet)...)
	}
	return common.Page(out, opts), nil
}

func (s *subnetService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Subnet], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create adds a subnet and records its label on the parent network
func (s *subnetService) Create(ctx context.Context, req contracts.CreateSubnetRequest) (*contracts.Subnet, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, name, req)
}

func (s *subnetService) create(ctx context.Context, name string, req contracts.CreateSubnetRequest) (*contracts.Subnet, error) {
	network, err := s.p.networking.Networks.Get(ctx, req.NetworkID)
	if err != nil {
		return nil, err
	}
	prefix, err := common.ParseCIDR(req.CIDR)
	if err != nil {
		return nil, err
	}
	if !common.CIDRWithin(network.CIDR, req.CIDR) {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("subnet %s is outside network %s", req.CIDR, network.CIDR), nil)
	}
	sn := armnetwork.Subnet{
		Properties: &armnetwork.SubnetPropertiesFormat{AddressPrefix: to.Ptr(prefix.String())},
	}
	err = s.p.do(ctx, contracts.ServiceSubnets, "create", name, func(ctx context.Context) error {
		_, err := s.p.clients.Subnets.CreateOrUpdate(ctx, network.Name, name, sn)
		return err
	})
	if err != nil {
		return nil, err
	}
	if req.Label != "" {
		if err := relabel(ctx, s.p, contracts.ServiceSubnets, s.p.clients.VirtualNetworks, network.Name,
			vnetTags, subnetLabelPrefix+name, req.Label); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, s.p.childID(typeSubnets, network.Name, name))
}

func vnetTags(vnet *armnetwork.VirtualNetwork) *map[string]*string { return &vnet.Tags }

func (s *subnetService) Delete(ctx context.Context, id string) error {
	vnetName, name, err := s.p.childRef(id, typeSubnets)
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceSubnets, "delete", name, func(ctx context.Context) error {
		return s.p.clients.Subnets.Delete(ctx, vnetName, name)
	})
	if err := contracts.IgnoreNotFound(err); err != nil {
		return err
	}
	err = relabel(ctx, s.p, contracts.ServiceSubnets, s.p.clients.VirtualNetworks, vnetName, vnetTags, subnetLabelPrefix+name, "")
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
	return relabel(ctx, s.p, contracts.ServiceSubnets, s.p.clients.VirtualNetworks, nameOf(sn.NetworkID),
		vnetTags, subnetLabelPrefix+sn.Name, label)
}

// GetOrCreateDefault returns the default subnet of the network tagged as
// the cloudbridge default, creating the network and subnet when missing.
// Azure subnets span every zone of the region.
func (s *subnetService) GetOrCreateDefault(ctx context.Context, zone string) (*contracts.Subnet, error) {
	nets := s.p.networking.Networks.(*networkService)
	vnets, err := nets.all(ctx)
	if err != nil {
		return nil, err
	}
	var network *contracts.Network
	for _, vnet := range vnets {
		if _, ok := vnet.Tags[defaultNetworkTag]; !ok {
			continue
		}
		for _, sn := range subnetsOf(vnet) {
			if sn.Name == defaultSubnetName {
				return sn, nil
			}
		}
		network = toNetwork(vnet)
		break
	}

	log := logging.FromContext(ctx)
	if network == nil {
		log.Info("Creating default network", "cidr", common.DefaultNetworkCIDR)
		network, err = nets.create(ctx, contracts.CreateNetworkRequest{
			Label: common.DefaultNetworkLabel,
			CIDR:  common.DefaultNetworkCIDR,
		}, map[string]string{defaultNetworkTag: "true"})
		if err != nil {
			return nil, err
		}
	}
	log.Info("Creating default subnet", "network", network.Name)
	return s.create(ctx, defaultSubnetName, contracts.CreateSubnetRequest{
		NetworkID: network.ID,
		Label:     common.DefaultNetworkLabel,
		CIDR:      common.DefaultSubnetCIDR(0),
		Zone:      zone,
	})
}

// routerService maps routers onto route tables. A route table routes for
// the subnets associated with it; attaching a gateway adds a default
// route to the internet.
type routerService struct{ p *Provider }

func gatewayID(networkID string) string { return networkID + gatewaySuffix }

func toRouter(rt *armnetwork.RouteTable) *contracts.Router {
	r := &contracts.Router{Resource: resource(rt.ID, rt.Name, rt.Tags), State: contracts.RouterStateDetached}
	r.NetworkID = popTag(&r.Resource, networkTag)
	props := rt.Properties
	if props == nil {
		return r
	}
	for _, sn := range props.Subnets {
		if id := deref(sn.ID); id != "" {
			r.SubnetIDs = append(r.SubnetIDs, id)
		}
	}
	if len(r.SubnetIDs) > 0 {
		r.State = contracts.RouterStateAttached
	}
	for _, route := range props.Routes {
		if deref(route.Name) == internetRoute && r.NetworkID != "" {
			r.GatewayID = gatewayID(r.NetworkID)
		}
	}
	return r
}

func (s *routerService) Get(ctx context.Context, id string) (*contracts.Router, error) {
	name, err := s.p.ref(id, typeRouteTables)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceRouters, "get", name, func(ctx context.Context) (*contracts.Router, error) {
		rt, err := s.p.clients.RouteTables.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		return toRouter(rt), nil
	})
}

func (s *routerService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Router], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRouters, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Router], error) {
		all, err := s.p.clients.RouteTables.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.Router, 0, len(all))
		for _, rt := range all {
			out = append(out, toRouter(rt))
		}
		return common.Page(out, opts), nil
	})
}

func (s *routerService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Router], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create makes a route table for the network, or for the default network
// when none is named
func (s *routerService) Create(ctx context.Context, req contracts.CreateRouterRequest) (*contracts.Router, error) {
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
	network, err := s.p.networking.Networks.Get(ctx, networkID)
	if err != nil {
		return nil, err
	}
	rt := armnetwork.RouteTable{
		Location:   to.Ptr(s.p.region),
		Tags:       tagsOf(req.Label, map[string]string{networkTag: network.ID}),
		Properties: &armnetwork.RouteTablePropertiesFormat{},
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceRouters, "create", name, func(ctx context.Context) (*contracts.Router, error) {
		created, err := s.p.clients.RouteTables.CreateOrUpdate(ctx, name, rt)
		if err != nil {
			return nil, err
		}
		return toRouter(created), nil
	})
}

func (s *routerService) Delete(ctx context.Context, id string) error {
	name, err := s.p.ref(id, typeRouteTables)
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceRouters, "delete", name, func(ctx context.Context) error {
		return s.p.clients.RouteTables.Delete(ctx, name)
	})
	return contracts.IgnoreNotFound(err)
}

func (s *routerService) SetLabel(ctx context.Context, id, label string) error {
	return setLabel(ctx, s.p, contracts.ServiceRouters, s.p.clients.RouteTables, id, typeRouteTables, label,
		func(rt *armnetwork.RouteTable) *map[string]*string { return &rt.Tags })
}

// editSubnet rewrites the route table association of a subnet
func (s *routerService) editSubnet(ctx context.Context, operation, subnetID string, edit func(props *armnetwork.SubnetPropertiesFormat)) error {
	vnetName, name, err := s.p.childRef(subnetID, typeSubnets)
	if err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceRouters, operation, name, func(ctx context.Context) error {
		sn, err := s.p.clients.Subnets.Get(ctx, vnetName, name)
		if err != nil {
			return err
		}
		if sn.Properties == nil {
			sn.Properties = &armnetwork.SubnetPropertiesFormat{}
		}
		edit(sn.Properties)
		_, err = s.p.clients.Subnets.CreateOrUpdate(ctx, vnetName, name, *sn)
		return err
	})
}

func (s *routerService) AttachSubnet(ctx context.Context, id, subnetID string) error {
	router, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.editSubnet(ctx, "attach_subnet", subnetID, func(props *armnetwork.SubnetPropertiesFormat) {
		props.RouteTable = &armnetwork.RouteTable{ID: to.Ptr(router.ID)}
	})
}

func (s *routerService) DetachSubnet(ctx context.Context, id, subnetID string) error {
	name, err := s.p.ref(id, typeRouteTables)
	if err != nil {
		return err
	}
	routerID := s.p.resourceID(typeRouteTables, name)
	return s.editSubnet(ctx, "detach_subnet", subnetID, func(props *armnetwork.SubnetPropertiesFormat) {
		if props.RouteTable != nil && sameID(deref(props.RouteTable.ID), routerID) {
			props.RouteTable = nil
		}
	})
}

// AttachGateway adds the default route to the internet. The gateway must
// belong to the router's network.
func (s *routerService) AttachGateway(ctx context.Context, id, gwID string) error {
	router, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if router.NetworkID != "" && !sameID(gwID, gatewayID(router.NetworkID)) {
		return contracts.NewInvalidValueError(fmt.Sprintf("gateway %s does not belong to network %s", gwID, router.NetworkID), nil)
	}
	route := armnetwork.Route{
		Properties: &armnetwork.RoutePropertiesFormat{
			AddressPrefix: to.Ptr(common.AnyIPv4),
			NextHopType:   to.Ptr(armnetwork.RouteNextHopTypeInternet),
		},
	}
	return s.p.do(ctx, contracts.ServiceRouters, "attach_gateway", router.Name, func(ctx context.Context) error {
		_, err := s.p.clients.Routes.CreateOrUpdate(ctx, router.Name, internetRoute, route)
		return err
	})
}

func (s *routerService) DetachGateway(ctx context.Context, id, _ string) error {
	name, err := s.p.ref(id, typeRouteTables)
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceRouters, "detach_gateway", name, func(ctx context.Context) error {
		return s.p.clients.Routes.Delete(ctx, name, internetRoute)
	})
	return contracts.IgnoreNotFound(err)
}

// gatewayService reports the implicit internet access every virtual
// network has. There is one gateway per network and it cannot be removed.
type gatewayService struct{ p *Provider }

func (s *gatewayService) gateway(network *contracts.Network) *contracts.InternetGateway {
	return &contracts.InternetGateway{
		Resource:  contracts.Resource{ID: gatewayID(network.ID), Name: network.Name + "-" + internetRoute},
		NetworkID: network.ID,
		State:     contracts.GatewayStateAvailable,
	}
}

func (s *gatewayService) GetOrCreate(ctx context.Context, networkID string) (*contracts.InternetGateway, error) {
	network, err := s.p.networking.Networks.Get(ctx, networkID)
	if err != nil {
		return nil, err
	}
	return s.gateway(network), nil
}

// Delete is a no-op; the implicit gateway goes away with its network
func (s *gatewayService) Delete(ctx context.Context, networkID, gwID string) error {
	logging.FromContext(ctx).V(1).Info("Ignoring delete of implicit internet gateway", "network", networkID, "gateway", gwID)
	return nil
}

func (s *gatewayService) List(ctx context.Context, networkID string, opts paging.ListOptions) (*paging.ResultList[*contracts.InternetGateway], error) {
	network, err := s.p.networking.Networks.Get(ctx, networkID)
	if err != nil {
		return nil, err
	}
	return common.Page([]*contracts.InternetGateway{s.gateway(network)}, opts), nil
}

// floatingIPService manages static public IP addresses. Association is
// through the IP configuration of a network interface.
type floatingIPService struct{ p *Provider }

// interfaceOf returns the interface ID of an IP configuration ID
func interfaceOf(ipConfigID string) string {
	if i := strings.Index(strings.ToLower(ipConfigID), "/ipconfigurations/"); i >= 0 {
		return ipConfigID[:i]
	}
	return ""
}

func toFloatingIP(pip *armnetwork.PublicIPAddress, nics map[string]*armnetwork.Interface) *contracts.FloatingIP {
	f := &contracts.FloatingIP{Resource: resource(pip.ID, pip.Name, pip.Tags)}
	props := pip.Properties
	if props == nil {
		return f
	}
	f.PublicIP = deref(props.IPAddress)
	if props.IPConfiguration == nil {
		return f
	}
	cfgID := deref(props.IPConfiguration.ID)
	nic := nics[idKey(interfaceOf(cfgID))]
	if nic == nil {
		return f
	}
	if nic.Properties != nil && nic.Properties.VirtualMachine != nil {
		f.InstanceID = deref(nic.Properties.VirtualMachine.ID)
	}
	for _, cfg := range ipConfigs(nic) {
		if sameID(deref(cfg.ID), cfgID) {
			f.PrivateIP = deref(cfg.Properties.PrivateIPAddress)
		}
	}
	return f
}

func (s *floatingIPService) Get(ctx context.Context, id string) (*contracts.FloatingIP, error) {
	name, err := s.p.ref(id, typePublicIPs)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceFloatingIPs, "get", name, func(ctx context.Context) (*contracts.FloatingIP, error) {
		pip, err := s.p.clients.PublicIPs.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		nics := make(map[string]*armnetwork.Interface)
		if props := pip.Properties; props != nil && props.IPConfiguration != nil {
			nicID := interfaceOf(deref(props.IPConfiguration.ID))
			nic, err := s.p.clients.Interfaces.Get(ctx, nameOf(nicID))
			if err != nil && !contracts.IsNotFound(translateError(err)) {
				return nil, err
			}
			if nic != nil {
				nics[idKey(nicID)] = nic
			}
		}
		return toFloatingIP(pip, nics), nil
	})
}

func (s *floatingIPService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.FloatingIP], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceFloatingIPs, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.FloatingIP], error) {
		pips, err := s.p.clients.PublicIPs.List(ctx)
		if err != nil {
			return nil, err
		}
		all, err := s.p.clients.Interfaces.List(ctx)
		if err != nil {
			return nil, err
		}
		nics := make(map[string]*armnetwork.Interface, len(all))
		for _, nic := range all {
			nics[idKey(deref(nic.ID))] = nic
		}
		out := make([]*contracts.FloatingIP, 0, len(pips))
		for _, pip := range pips {
			out = append(out, toFloatingIP(pip, nics))
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return common.Page(out, opts), nil
	})
}

func (s *floatingIPService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.FloatingIP], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create allocates a static Standard SKU address. Every network reaches
// the internet, so the gateway only has to be a known one.
func (s *floatingIPService) Create(ctx context.Context, gwID string) (*contracts.FloatingIP, error) {
	if gwID != "" && !strings.HasSuffix(gwID, gatewaySuffix) {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("invalid gateway id %q", gwID), nil)
	}
	name, err := common.NameFromLabel(floatingIPLabel)
	if err != nil {
		return nil, err
	}
	pip := armnetwork.PublicIPAddress{
		Location: to.Ptr(s.p.region),
		SKU:      &armnetwork.PublicIPAddressSKU{Name: to.Ptr(armnetwork.PublicIPAddressSKUNameStandard)},
		Properties: &armnetwork.PublicIPAddressPropertiesFormat{
			PublicIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodStatic),
			PublicIPAddressVersion:   to.Ptr(armnetwork.IPVersionIPv4),
		},
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceFloatingIPs, "create", name, func(ctx context.Context) (*contracts.FloatingIP, error) {
		created, err := s.p.clients.PublicIPs.CreateOrUpdate(ctx, name, pip)
		if err != nil {
			return nil, err
		}
		return toFloatingIP(created, nil), nil
	})
}

func (s *floatingIPService) Delete(ctx context.Context, id string) error {
	name, err := s.p.ref(id, typePublicIPs)
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceFloatingIPs, "delete", name, func(ctx context.Context) error {
		return s.p.clients.PublicIPs.Delete(ctx, name)
	})
	return contracts.IgnoreNotFound(err)
}
