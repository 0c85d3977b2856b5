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

	compute "google.golang.org/api/compute/v1"

	"github.com/CloudVE/cloudbridge-sub001/internal/gcpurl"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	// defaultNetworkName is the network every project starts with
	defaultNetworkName = "default"
	// internetGateway is the next hop of routes to the internet
	internetGateway = "default-internet-gateway"
	defaultRoute    = "0.0.0.0/0"
	gatewayLabel    = "cloudbridge-gw"
)

// Networks and subnetworks take neither labels nor description updates,
// so their labels are kept in project metadata under these keys.
func networkLabelKey(name string) string { return "cblabel-network-" + name }

func subnetLabelKey(region, name string) string { return "cblabel-subnet-" + region + "-" + name }

// setMetadataLabel writes or clears a label kept in project metadata
func (p *Provider) setMetadataLabel(ctx context.Context, service contracts.ServiceType, id, key, label string) error {
	return p.editProjectMetadata(ctx, service, "set_label", id, func(items []*compute.MetadataItems) ([]*compute.MetadataItems, bool, error) {
		items, changed := setMetadataItem(items, key, label)
		return items, changed, nil
	})
}

// metadataLabels returns the project metadata for label lookups
func (p *Provider) metadataLabels(ctx context.Context) (map[string]string, error) {
	md, err := p.projectMetadata(ctx)
	if err != nil {
		return nil, err
	}
	return metadataItems(md), nil
}

type networkService struct{ p *Provider }

func toNetwork(n *compute.Network, labels map[string]string) *contracts.Network {
	meta := decodeMeta(n.Description)
	cidr := meta.CIDR
	if cidr == "" {
		cidr = n.IPv4Range
	}
	return &contracts.Network{
		Resource: contracts.Resource{
			ID:         n.SelfLink,
			Name:       n.Name,
			Label:      labels[networkLabelKey(n.Name)],
			CreateTime: parseTime(n.CreationTimestamp),
		},
		CIDR:  cidr,
		State: contracts.NetworkStateAvailable,
	}
}

func (s *networkService) fetch(ctx context.Context, id string) (*compute.Network, error) {
	ref, err := s.p.ref(id, "networks")
	if err != nil {
		return nil, err
	}
	return s.p.clients.Compute.Networks.Get(ref.Project, ref.Name).Context(ctx).Do()
}

func (s *networkService) Get(ctx context.Context, id string) (*contracts.Network, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "get", id, func(ctx context.Context) (*contracts.Network, error) {
		n, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		labels, err := s.p.metadataLabels(ctx)
		if err != nil {
			return nil, err
		}
		return toNetwork(n, labels), nil
	})
}

func (s *networkService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Network], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Network], error) {
		labels, err := s.p.metadataLabels(ctx)
		if err != nil {
			return nil, err
		}
		return listPage(opts, func(maxResults int64, token string) ([]*contracts.Network, string, error) {
			out, err := s.p.clients.Compute.Networks.List(s.p.project).MaxResults(maxResults).PageToken(token).Context(ctx).Do()
			if err != nil {
				return nil, "", err
			}
			var items []*contracts.Network
			for _, n := range out.Items {
				items = append(items, toNetwork(n, labels))
			}
			return items, out.NextPageToken, nil
		})
	})
}

func (s *networkService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Network], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *networkService) Create(ctx context.Context, req contracts.CreateNetworkRequest) (*contracts.Network, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, name, req)
}

// create makes a custom mode network; the CIDR is recorded for subnet
// validation since custom mode networks have no range of their own
func (s *networkService) create(ctx context.Context, name string, req contracts.CreateNetworkRequest) (*contracts.Network, error) {
	prefix, err := common.ParseCIDR(req.CIDR)
	if err != nil {
		return nil, err
	}
	network := &compute.Network{
		Name:                  name,
		Description:           resourceMeta{CIDR: prefix.String()}.encode(),
		AutoCreateSubnetworks: false,
		ForceSendFields:       []string{"AutoCreateSubnetworks"},
	}
	err = s.p.mutate(ctx, contracts.ServiceNetworks, "create", name, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Networks.Insert(s.p.project, network).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	if req.Label != "" {
		if err := s.p.setMetadataLabel(ctx, contracts.ServiceNetworks, name, networkLabelKey(name), req.Label); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, name)
}

// Delete removes the gateway routes cloudbridge added before the network
func (s *networkService) Delete(ctx context.Context, id string) error {
	ref, err := s.p.ref(id, "networks")
	if err != nil {
		return err
	}
	gateways := s.p.networking.Gateways.(*gatewayService)
	routes, err := gateways.routes(ctx, ref.String())
	if err != nil {
		return err
	}
	for _, r := range routes {
		if r.Description != gatewayLabel {
			continue
		}
		if err := gateways.Delete(ctx, ref.String(), r.SelfLink); err != nil {
			return err
		}
	}
	err = s.p.mutate(ctx, contracts.ServiceNetworks, "delete", id, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Networks.Delete(ref.Project, ref.Name).Context(ctx).Do()
	})
	if err := contracts.IgnoreNotFound(err); err != nil {
		return err
	}
	return s.p.setMetadataLabel(ctx, contracts.ServiceNetworks, id, networkLabelKey(ref.Name), "")
}

func (s *networkService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.p.setMetadataLabel(ctx, contracts.ServiceNetworks, id, networkLabelKey(gcpurl.Name(id)), label)
}

func (s *networkService) Subnets(ctx context.Context, id string) ([]*contracts.Subnet, error) {
	n, err := common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "subnets", id, func(ctx context.Context) (*compute.Network, error) {
		return s.fetch(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	subnets := make([]*contracts.Subnet, 0, len(n.Subnetworks))
	for _, link := range n.Subnetworks {
		sn, err := s.p.networking.Subnets.Get(ctx, link)
		if err != nil {
			return nil, err
		}
		subnets = append(subnets, sn)
	}
	return subnets, nil
}

type subnetService struct{ p *Provider }

func toSubnet(sn *compute.Subnetwork, labels map[string]string) *contracts.Subnet {
	region := lastSegment(sn.Region)
	return &contracts.Subnet{
		Resource: contracts.Resource{
			ID:         sn.SelfLink,
			Name:       sn.Name,
			Label:      labels[subnetLabelKey(region, sn.Name)],
			CreateTime: parseTime(sn.CreationTimestamp),
		},
		NetworkID: sn.Network,
		CIDR:      sn.IpCidrRange,
		State:     subnetStates.Lookup(sn.State),
	}
}

func (s *subnetService) Get(ctx context.Context, id string) (*contracts.Subnet, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSubnets, "get", id, func(ctx context.Context) (*contracts.Subnet, error) {
		ref, err := s.p.ref(id, "subnetworks")
		if err != nil {
			return nil, err
		}
		sn, err := s.p.clients.Compute.Subnetworks.Get(ref.Project, ref.Region, ref.Name).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		labels, err := s.p.metadataLabels(ctx)
		if err != nil {
			return nil, err
		}
		return toSubnet(sn, labels), nil
	})
}

func (s *subnetService) page(ctx context.Context, region string, labels map[string]string) pageFunc[*contracts.Subnet] {
	return func(maxResults int64, token string) ([]*contracts.Subnet, string, error) {
		out, err := s.p.clients.Compute.Subnetworks.List(s.p.project, region).MaxResults(maxResults).PageToken(token).Context(ctx).Do()
		if err != nil {
			return nil, "", err
		}
		var items []*contracts.Subnet
		for _, sn := range out.Items {
			items = append(items, toSubnet(sn, labels))
		}
		return items, out.NextPageToken, nil
	}
}

// List returns the subnets of the default region
func (s *subnetService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Subnet], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSubnets, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Subnet], error) {
		labels, err := s.p.metadataLabels(ctx)
		if err != nil {
			return nil, err
		}
		return listPage(opts, s.page(ctx, s.p.region, labels))
	})
}

func (s *subnetService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Subnet], error) {
	return common.FindAll(ctx, s.List, opts)
}

// inRegion returns every subnet of a region
func (s *subnetService) inRegion(ctx context.Context, region string) ([]*contracts.Subnet, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSubnets, "list", region, func(ctx context.Context) ([]*contracts.Subnet, error) {
		labels, err := s.p.metadataLabels(ctx)
		if err != nil {
			return nil, err
		}
		return listAll(s.page(ctx, region, labels))
	})
}

func (s *subnetService) Create(ctx context.Context, req contracts.CreateSubnetRequest) (*contracts.Subnet, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, name, req)
}

// create makes a subnetwork in the region of req.Zone
func (s *subnetService) create(ctx context.Context, name string, req contracts.CreateSubnetRequest) (*contracts.Subnet, error) {
	prefix, err := common.ParseCIDR(req.CIDR)
	if err != nil {
		return nil, err
	}
	network, err := s.p.networking.Networks.Get(ctx, req.NetworkID)
	if err != nil {
		return nil, err
	}
	if network.CIDR != "" && !common.CIDRWithin(network.CIDR, prefix.String()) {
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("subnet %s is outside network range %s", prefix, network.CIDR), nil)
	}
	region := regionOfZone(s.p.zoneOf(req.Zone))
	subnet := &compute.Subnetwork{
		Name:        name,
		Network:     network.ID,
		IpCidrRange: prefix.String(),
	}
	err = s.p.mutate(ctx, contracts.ServiceSubnets, "create", name, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Subnetworks.Insert(s.p.project, region, subnet).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	if req.Label != "" {
		if err := s.p.setMetadataLabel(ctx, contracts.ServiceSubnets, name, subnetLabelKey(region, name), req.Label); err != nil {
			return nil, err
		}
	}
	ref := gcpurl.ResourceURL{Project: s.p.project, Region: region, Collection: "subnetworks", Name: name}
	return s.Get(ctx, ref.String())
}

func (s *subnetService) Delete(ctx context.Context, id string) error {
	ref, err := s.p.ref(id, "subnetworks")
	if err != nil {
		return err
	}
	err = s.p.mutate(ctx, contracts.ServiceSubnets, "delete", id, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Subnetworks.Delete(ref.Project, ref.Region, ref.Name).Context(ctx).Do()
	})
	if err := contracts.IgnoreNotFound(err); err != nil {
		return err
	}
	return s.p.setMetadataLabel(ctx, contracts.ServiceSubnets, id, subnetLabelKey(ref.Region, ref.Name), "")
}

func (s *subnetService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	ref, err := s.p.ref(id, "subnetworks")
	if err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.p.setMetadataLabel(ctx, contracts.ServiceSubnets, id, subnetLabelKey(ref.Region, ref.Name), label)
}

// GetOrCreateDefault prefers a subnet of the project's default network in
// the zone's region. Projects without one get a cloudbridge network with
// one subnet per region.
func (s *subnetService) GetOrCreateDefault(ctx context.Context, zone string) (*contracts.Subnet, error) {
	region := regionOfZone(s.p.zoneOf(zone))
	subnets, err := s.inRegion(ctx, region)
	if err != nil {
		return nil, err
	}
	for _, sn := range subnets {
		if gcpurl.Name(sn.NetworkID) == defaultNetworkName {
			return sn, nil
		}
	}
	for _, sn := range subnets {
		if gcpurl.Name(sn.NetworkID) == common.DefaultNetworkLabel {
			return sn, nil
		}
	}

	log := logging.FromContext(ctx)
	nets := s.p.networking.Networks.(*networkService)
	network, err := nets.Get(ctx, common.DefaultNetworkLabel)
	if contracts.IsNotFound(err) {
		log.Info("Creating default network", "cidr", common.DefaultNetworkCIDR)
		network, err = nets.create(ctx, common.DefaultNetworkLabel, contracts.CreateNetworkRequest{
			Label: common.DefaultNetworkLabel,
			CIDR:  common.DefaultNetworkCIDR,
		})
	}
	if err != nil {
		return nil, err
	}
	n, err := common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "get", network.ID, func(ctx context.Context) (*compute.Network, error) {
		return nets.fetch(ctx, network.ID)
	})
	if err != nil {
		return nil, err
	}

	log.Info("Creating default subnet", "network", network.Name, "region", region)
	return s.create(ctx, fmt.Sprintf("%s-%s", common.DefaultNetworkLabel, region), contracts.CreateSubnetRequest{
		NetworkID: network.ID,
		Label:     common.DefaultNetworkLabel,
		CIDR:      common.DefaultSubnetCIDR(len(n.Subnetworks)),
		Zone:      zone,
	})
}

// Cloud Routers are regional. GCE routes every subnet of a network without
// explicit attachment, so attached subnets and the gateway are recorded in
// the router description.
type routerService struct{ p *Provider }

func toRouter(r *compute.Router) *contracts.Router {
	meta := decodeMeta(r.Description)
	router := &contracts.Router{
		Resource: contracts.Resource{
			ID:         r.SelfLink,
			Name:       r.Name,
			Label:      meta.Label,
			CreateTime: parseTime(r.CreationTimestamp),
		},
		NetworkID: r.Network,
		State:     contracts.RouterStateDetached,
		SubnetIDs: meta.Subnets,
		GatewayID: meta.Gateway,
	}
	if router.NetworkID != "" {
		router.State = contracts.RouterStateAttached
	}
	return router
}

func (s *routerService) fetch(ctx context.Context, id string) (*compute.Router, *gcpurl.ResourceURL, error) {
	ref, err := s.p.ref(id, "routers")
	if err != nil {
		return nil, nil, err
	}
	r, err := s.p.clients.Compute.Routers.Get(ref.Project, ref.Region, ref.Name).Context(ctx).Do()
	return r, ref, err
}

func (s *routerService) Get(ctx context.Context, id string) (*contracts.Router, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRouters, "get", id, func(ctx context.Context) (*contracts.Router, error) {
		r, _, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		return toRouter(r), nil
	})
}

func (s *routerService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Router], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRouters, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Router], error) {
		return listPage(opts, func(maxResults int64, token string) ([]*contracts.Router, string, error) {
			out, err := s.p.clients.Compute.Routers.List(s.p.project, s.p.region).MaxResults(maxResults).PageToken(token).Context(ctx).Do()
			if err != nil {
				return nil, "", err
			}
			var items []*contracts.Router
			for _, r := range out.Items {
				items = append(items, toRouter(r))
			}
			return items, out.NextPageToken, nil
		})
	})
}

func (s *routerService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Router], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create makes a Cloud Router in the default region; without a network it
// joins the network of the default subnet
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
	network, err := s.p.ref(networkID, "networks")
	if err != nil {
		return nil, err
	}
	router := &compute.Router{
		Name:        name,
		Network:     network.String(),
		Description: resourceMeta{Label: req.Label}.encode(),
	}
	err = s.p.mutate(ctx, contracts.ServiceRouters, "create", name, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Routers.Insert(s.p.project, s.p.region, router).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	ref := gcpurl.ResourceURL{Project: s.p.project, Region: s.p.region, Collection: "routers", Name: name}
	return s.Get(ctx, ref.String())
}

func (s *routerService) Delete(ctx context.Context, id string) error {
	ref, err := s.p.ref(id, "routers")
	if err != nil {
		return err
	}
	err = s.p.mutate(ctx, contracts.ServiceRouters, "delete", id, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Routers.Delete(ref.Project, ref.Region, ref.Name).Context(ctx).Do()
	})
	return contracts.IgnoreNotFound(err)
}

// patchMeta rewrites the description of a router with edit(current)
func (s *routerService) patchMeta(ctx context.Context, operation, id string, edit func(r *compute.Router, meta *resourceMeta) error) error {
	return s.p.mutate(ctx, contracts.ServiceRouters, operation, id, func(ctx context.Context) (*compute.Operation, error) {
		r, ref, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		meta := decodeMeta(r.Description)
		if err := edit(r, &meta); err != nil {
			return nil, err
		}
		description := meta.encode()
		if description == r.Description {
			return nil, nil
		}
		return s.p.clients.Compute.Routers.Patch(ref.Project, ref.Region, ref.Name, &compute.Router{
			Description:     description,
			ForceSendFields: []string{"Description"},
		}).Context(ctx).Do()
	})
}

func (s *routerService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.patchMeta(ctx, "set_label", id, func(_ *compute.Router, meta *resourceMeta) error {
		meta.Label = label
		return nil
	})
}

// AttachSubnet records a subnet of the router's network
func (s *routerService) AttachSubnet(ctx context.Context, id, subnetID string) error {
	sn, err := s.p.networking.Subnets.Get(ctx, subnetID)
	if err != nil {
		return err
	}
	return s.patchMeta(ctx, "attach_subnet", id, func(r *compute.Router, meta *resourceMeta) error {
		if gcpurl.Name(sn.NetworkID) != gcpurl.Name(r.Network) {
			return contracts.NewInvalidValueError(fmt.Sprintf("subnet %s is not in the network of router %s", sn.Name, r.Name), nil)
		}
		if !slices.Contains(meta.Subnets, sn.ID) {
			meta.Subnets = append(meta.Subnets, sn.ID)
		}
		return nil
	})
}

func (s *routerService) DetachSubnet(ctx context.Context, id, subnetID string) error {
	return s.patchMeta(ctx, "detach_subnet", id, func(_ *compute.Router, meta *resourceMeta) error {
		meta.Subnets = slices.DeleteFunc(meta.Subnets, func(sn string) bool {
			return gcpurl.Name(sn) == gcpurl.Name(subnetID)
		})
		return nil
	})
}

// AttachGateway records the gateway; the gateway route already serves
// every subnet of the network
func (s *routerService) AttachGateway(ctx context.Context, id, gatewayID string) error {
	return s.patchMeta(ctx, "attach_gateway", id, func(r *compute.Router, meta *resourceMeta) error {
		routes, err := s.p.networking.Gateways.(*gatewayService).routes(ctx, r.Network)
		if err != nil {
			return err
		}
		for _, route := range routes {
			if route.SelfLink == gatewayID || route.Name == gcpurl.Name(gatewayID) {
				meta.Gateway = route.SelfLink
				return nil
			}
		}
		return contracts.NewInvalidValueError(fmt.Sprintf("gateway %s does not serve the network of router %s", gcpurl.Name(gatewayID), r.Name), nil)
	})
}

func (s *routerService) DetachGateway(ctx context.Context, id, gatewayID string) error {
	return s.patchMeta(ctx, "detach_gateway", id, func(_ *compute.Router, meta *resourceMeta) error {
		if gcpurl.Name(meta.Gateway) == gcpurl.Name(gatewayID) {
			meta.Gateway = ""
		}
		return nil
	})
}

// An internet gateway is a default route to the default internet gateway
// of a network
type gatewayService struct{ p *Provider }

func toGateway(r *compute.Route) *contracts.InternetGateway {
	return &contracts.InternetGateway{
		Resource:  contracts.Resource{ID: r.SelfLink, Name: r.Name, CreateTime: parseTime(r.CreationTimestamp)},
		NetworkID: r.Network,
		State:     contracts.GatewayStateAvailable,
	}
}

// routes returns the internet routes of a network
func (s *gatewayService) routes(ctx context.Context, networkID string) ([]*compute.Route, error) {
	network, err := s.p.ref(networkID, "networks")
	if err != nil {
		return nil, err
	}
	filter := fmt.Sprintf("network = %q", network.String())
	return common.Call(ctx, s.p.caller, contracts.ServiceGateways, "list", networkID, func(ctx context.Context) ([]*compute.Route, error) {
		all, err := listAll(func(maxResults int64, token string) ([]*compute.Route, string, error) {
			out, err := s.p.clients.Compute.Routes.List(s.p.project).Filter(filter).MaxResults(maxResults).PageToken(token).Context(ctx).Do()
			if err != nil {
				return nil, "", err
			}
			return out.Items, out.NextPageToken, nil
		})
		if err != nil {
			return nil, err
		}
		return slices.DeleteFunc(all, func(r *compute.Route) bool {
			return gcpurl.Name(r.Network) != network.Name || r.DestRange != defaultRoute || gcpurl.Name(r.NextHopGateway) != internetGateway
		}), nil
	})
}

func (s *gatewayService) GetOrCreate(ctx context.Context, networkID string) (*contracts.InternetGateway, error) {
	network, err := s.p.ref(networkID, "networks")
	if err != nil {
		return nil, err
	}
	routes, err := s.routes(ctx, networkID)
	if err != nil {
		return nil, err
	}
	if len(routes) > 0 {
		return toGateway(routes[0]), nil
	}

	name := contracts.GenerateName(gatewayLabel)
	route := &compute.Route{
		Name:           name,
		Network:        network.String(),
		DestRange:      defaultRoute,
		NextHopGateway: fmt.Sprintf("projects/%s/global/gateways/%s", s.p.project, internetGateway),
		Priority:       1000,
		Description:    gatewayLabel,
	}
	err = s.p.mutate(ctx, contracts.ServiceGateways, "create", name, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Routes.Insert(s.p.project, route).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceGateways, "get", name, func(ctx context.Context) (*contracts.InternetGateway, error) {
		r, err := s.p.clients.Compute.Routes.Get(s.p.project, name).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return toGateway(r), nil
	})
}

func (s *gatewayService) Delete(ctx context.Context, networkID, gatewayID string) error {
	ref, err := s.p.ref(gatewayID, "routes")
	if err != nil {
		return err
	}
	err = s.p.mutate(ctx, contracts.ServiceGateways, "delete", gatewayID, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Routes.Delete(ref.Project, ref.Name).Context(ctx).Do()
	})
	return contracts.IgnoreNotFound(err)
}

func (s *gatewayService) List(ctx context.Context, networkID string, opts paging.ListOptions) (*paging.ResultList[*contracts.InternetGateway], error) {
	routes, err := s.routes(ctx, networkID)
	if err != nil {
		return nil, err
	}
	gateways := make([]*contracts.InternetGateway, 0, len(routes))
	for _, r := range routes {
		gateways = append(gateways, toGateway(r))
	}
	return common.Page(gateways, opts), nil
}

// Floating IPs are static external addresses of the default region
type floatingIPService struct{ p *Provider }

func toFloatingIP(a *compute.Address) *contracts.FloatingIP {
	label, tags := splitLabels(a.Labels)
	fip := &contracts.FloatingIP{
		Resource: contracts.Resource{
			ID:         a.SelfLink,
			Name:       a.Name,
			Label:      label,
			CreateTime: parseTime(a.CreationTimestamp),
			Tags:       tags,
		},
		PublicIP:  a.Address,
		GatewayID: a.Description,
	}
	if len(a.Users) > 0 {
		fip.InstanceID = a.Users[0]
	}
	return fip
}

func (s *floatingIPService) Get(ctx context.Context, id string) (*contracts.FloatingIP, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceFloatingIPs, "get", id, func(ctx context.Context) (*contracts.FloatingIP, error) {
		ref, err := s.p.ref(id, "addresses")
		if err != nil {
			return nil, err
		}
		a, err := s.p.clients.Compute.Addresses.Get(ref.Project, ref.Region, ref.Name).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return toFloatingIP(a), nil
	})
}

func (s *floatingIPService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.FloatingIP], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceFloatingIPs, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.FloatingIP], error) {
		return listPage(opts, func(maxResults int64, token string) ([]*contracts.FloatingIP, string, error) {
			out, err := s.p.clients.Compute.Addresses.List(s.p.project, s.p.region).MaxResults(maxResults).PageToken(token).Context(ctx).Do()
			if err != nil {
				return nil, "", err
			}
			var items []*contracts.FloatingIP
			for _, a := range out.Items {
				items = append(items, toFloatingIP(a))
			}
			return items, out.NextPageToken, nil
		})
	})
}

func (s *floatingIPService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.FloatingIP], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create reserves a static external address. Addresses belong to the
// region; gatewayID is kept in the address description.
func (s *floatingIPService) Create(ctx context.Context, gatewayID string) (*contracts.FloatingIP, error) {
	name := contracts.GenerateName("")
	address := &compute.Address{Name: name, Description: gatewayID}
	err := s.p.mutate(ctx, contracts.ServiceFloatingIPs, "create", name, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Addresses.Insert(s.p.project, s.p.region, address).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	ref := gcpurl.ResourceURL{Project: s.p.project, Region: s.p.region, Collection: "addresses", Name: name}
	return s.Get(ctx, ref.String())
}

func (s *floatingIPService) Delete(ctx context.Context, id string) error {
	ref, err := s.p.ref(id, "addresses")
	if err != nil {
		return err
	}
	err = s.p.mutate(ctx, contracts.ServiceFloatingIPs, "delete", id, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Addresses.Delete(ref.Project, ref.Region, ref.Name).Context(ctx).Do()
	})
	return contracts.IgnoreNotFound(err)
}
