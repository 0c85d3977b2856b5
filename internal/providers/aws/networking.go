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
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"

	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// defaultRoute is the destination of routes through an internet gateway
const defaultRoute = "0.0.0.0/0"

type networkService struct{ p *Provider }

func toNetwork(vpc *ec2.Vpc) *contracts.Network {
	return &contracts.Network{
		Resource: resource(aws.StringValue(vpc.VpcId), vpc.Tags),
		CIDR:     aws.StringValue(vpc.CidrBlock),
		State:    networkStates.Lookup(aws.StringValue(vpc.State)),
	}
}

func (s *networkService) describe(ctx context.Context, input *ec2.DescribeVpcsInput) ([]*contracts.Network, *string, error) {
	out, err := s.p.clients.EC2.DescribeVpcsWithContext(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	nets := make([]*contracts.Network, 0, len(out.Vpcs))
	for _, vpc := range out.Vpcs {
		nets = append(nets, toNetwork(vpc))
	}
	return nets, out.NextToken, nil
}

func (s *networkService) Get(ctx context.Context, id string) (*contracts.Network, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "get", id, func(ctx context.Context) (*contracts.Network, error) {
		nets, _, err := s.describe(ctx, &ec2.DescribeVpcsInput{VpcIds: aws.StringSlice([]string{id})})
		if err != nil {
			return nil, err
		}
		return firstOrNotFound(nets, "network", id)
	})
}

func (s *networkService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Network], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Network], error) {
		return listEC2(opts, ec2Paging, func(maxResults *int64, token *string) ([]*contracts.Network, *string, error) {
			return s.describe(ctx, &ec2.DescribeVpcsInput{MaxResults: maxResults, NextToken: token})
		})
	})
}

func (s *networkService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Network], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *networkService) Create(ctx context.Context, req contracts.CreateNetworkRequest) (*contracts.Network, error) {
	return s.create(ctx, req, nil)
}

func (s *networkService) create(ctx context.Context, req contracts.CreateNetworkRequest, tags map[string]string) (*contracts.Network, error) {
	if err := contracts.ValidateLabel(req.Label); err != nil {
		return nil, err
	}
	prefix, err := common.ParseCIDR(req.CIDR)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "create", "", func(ctx context.Context) (*contracts.Network, error) {
		out, err := s.p.clients.EC2.CreateVpcWithContext(ctx, &ec2.CreateVpcInput{
			CidrBlock:         aws.String(prefix.String()),
			TagSpecifications: tagSpec(ec2.ResourceTypeVpc, req.Label, tags),
		})
		if err != nil {
			return nil, err
		}
		return toNetwork(out.Vpc), nil
	})
}

// Delete removes the internet gateways attached to the VPC before the VPC
// itself, since EC2 refuses to delete a VPC with an attached gateway
func (s *networkService) Delete(ctx context.Context, id string) error {
	gateways, err := s.p.networking.Gateways.List(ctx, id, paging.ListOptions{Limit: ec2Paging.max})
	if err != nil && !contracts.IsNotFound(err) {
		return err
	}
	if gateways != nil {
		for _, gw := range gateways.Items {
			if err := s.p.networking.Gateways.Delete(ctx, id, gw.ID); err != nil {
				return err
			}
		}
	}
	err = s.p.do(ctx, contracts.ServiceNetworks, "delete", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.DeleteVpcWithContext(ctx, &ec2.DeleteVpcInput{VpcId: aws.String(id)})
		return err
	})
	return contracts.IgnoreNotFound(err)
}

func (s *networkService) SetLabel(ctx context.Context, id, label string) error {
	return s.p.setLabel(ctx, contracts.ServiceNetworks, id, label)
}

func (s *networkService) Subnets(ctx context.Context, id string) ([]*contracts.Subnet, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.p.networking.Subnets.(*subnetService).all(ctx, "network_subnets", filter("vpc-id", id))
}

type subnetService struct{ p *Provider }

func toSubnet(sn *ec2.Subnet) *contracts.Subnet {
	return &contracts.Subnet{
		Resource:  resource(aws.StringValue(sn.SubnetId), sn.Tags),
		NetworkID: aws.StringValue(sn.VpcId),
		CIDR:      aws.StringValue(sn.CidrBlock),
		ZoneID:    aws.StringValue(sn.AvailabilityZone),
		State:     networkStates.Lookup(aws.StringValue(sn.State)),
	}
}

func (s *subnetService) describe(ctx context.Context, input *ec2.DescribeSubnetsInput) ([]*contracts.Subnet, *string, error) {
	out, err := s.p.clients.EC2.DescribeSubnetsWithContext(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	subnets := make([]*contracts.Subnet, 0, len(out.Subnets))
	for _, sn := range out.Subnets {
		subnets = append(subnets, toSubnet(sn))
	}
	return subnets, out.NextToken, nil
}

// all returns every subnet matching filters
func (s *subnetService) all(ctx context.Context, operation string, filters ...*ec2.Filter) ([]*contracts.Subnet, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSubnets, operation, "", func(ctx context.Context) ([]*contracts.Subnet, error) {
		return fetchAll(ec2Paging, func(maxResults *int64, token *string) ([]*contracts.Subnet, *string, error) {
			return s.describe(ctx, &ec2.DescribeSubnetsInput{Filters: filters, MaxResults: maxResults, NextToken: token})
		})
	})
}

func (s *subnetService) Get(ctx context.Context, id string) (*contracts.Subnet, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSubnets, "get", id, func(ctx context.Context) (*contracts.Subnet, error) {
		subnets, _, err := s.describe(ctx, &ec2.DescribeSubnetsInput{SubnetIds: aws.StringSlice([]string{id})})
		if err != nil {
			return nil, err
		}
		return firstOrNotFound(subnets, "subnet", id)
	})
}

func (s *subnetService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Subnet], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceSubnets, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Subnet], error) {
		return listEC2(opts, ec2Paging, func(maxResults *int64, token *string) ([]*contracts.Subnet, *string, error) {
			return s.describe(ctx, &ec2.DescribeSubnetsInput{MaxResults: maxResults, NextToken: token})
		})
	})
}

func (s *subnetService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Subnet], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *subnetService) Create(ctx context.Context, req contracts.CreateSubnetRequest) (*contracts.Subnet, error) {
	return s.create(ctx, req, nil)
}

func (s *subnetService) create(ctx context.Context, req contracts.CreateSubnetRequest, tags map[string]string) (*contracts.Subnet, error) {
	if err := contracts.ValidateLabel(req.Label); err != nil {
		return nil, err
	}
	prefix, err := common.ParseCIDR(req.CIDR)
	if err != nil {
		return nil, err
	}
	zone := req.Zone
	if zone == "" {
		zone = s.p.zone
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceSubnets, "create", "", func(ctx context.Context) (*contracts.Subnet, error) {
		out, err := s.p.clients.EC2.CreateSubnetWithContext(ctx, &ec2.CreateSubnetInput{
			VpcId:             aws.String(req.NetworkID),
			CidrBlock:         aws.String(prefix.String()),
			AvailabilityZone:  aws.String(zone),
			TagSpecifications: tagSpec(ec2.ResourceTypeSubnet, req.Label, tags),
		})
		if err != nil {
			return nil, err
		}
		return toSubnet(out.Subnet), nil
	})
}

func (s *subnetService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceSubnets, "delete", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.DeleteSubnetWithContext(ctx, &ec2.DeleteSubnetInput{SubnetId: aws.String(id)})
		return err
	})
	return contracts.IgnoreNotFound(err)
}

func (s *subnetService) SetLabel(ctx context.Context, id, label string) error {
	return s.p.setLabel(ctx, contracts.ServiceSubnets, id, label)
}

// GetOrCreateDefault prefers the account's default VPC. Accounts without
// one get a tagged cloudbridge network with one subnet per zone.
func (s *subnetService) GetOrCreateDefault(ctx context.Context, zone string) (*contracts.Subnet, error) {
	if zone == "" {
		zone = s.p.zone
	}
	log := logging.FromContext(ctx)

	subnets, err := s.all(ctx, "get_or_create_default", filter("default-for-az", "true"), filter("availability-zone", zone))
	if err != nil {
		return nil, err
	}
	if len(subnets) > 0 {
		return subnets[0], nil
	}

	network, err := s.defaultNetwork(ctx)
	if err != nil {
		return nil, err
	}
	subnets, err = s.all(ctx, "get_or_create_default", filter("vpc-id", network.ID))
	if err != nil {
		return nil, err
	}
	for _, sn := range subnets {
		if sn.ZoneID == zone && sn.Tags[defaultNetworkTag] == "true" {
			return sn, nil
		}
	}

	log.Info("Creating default subnet", "network", network.ID, "zone", zone)
	return s.create(ctx, contracts.CreateSubnetRequest{
		NetworkID: network.ID,
		Label:     common.DefaultNetworkLabel,
		CIDR:      common.DefaultSubnetCIDR(len(subnets)),
		Zone:      zone,
	}, map[string]string{defaultNetworkTag: "true"})
}

func (s *subnetService) defaultNetwork(ctx context.Context) (*contracts.Network, error) {
	nets := s.p.networking.Networks.(*networkService)
	found, err := common.Call(ctx, s.p.caller, contracts.ServiceNetworks, "get_or_create_default", "", func(ctx context.Context) ([]*contracts.Network, error) {
		found, _, err := nets.describe(ctx, &ec2.DescribeVpcsInput{Filters: []*ec2.Filter{filter("tag:"+defaultNetworkTag, "true")}})
		return found, err
	})
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return found[0], nil
	}
	logging.FromContext(ctx).Info("Creating default network", "cidr", common.DefaultNetworkCIDR)
	return nets.create(ctx, contracts.CreateNetworkRequest{
		Label: common.DefaultNetworkLabel,
		CIDR:  common.DefaultNetworkCIDR,
	}, map[string]string{defaultNetworkTag: "true"})
}

type routerService struct{ p *Provider }

func toRouter(rt *ec2.RouteTable) *contracts.Router {
	r := &contracts.Router{
		Resource:  resource(aws.StringValue(rt.RouteTableId), rt.Tags),
		NetworkID: aws.StringValue(rt.VpcId),
		State:     contracts.RouterStateDetached,
	}
	if r.NetworkID != "" {
		r.State = contracts.RouterStateAttached
	}
	for _, a := range rt.Associations {
		if id := aws.StringValue(a.SubnetId); id != "" {
			r.SubnetIDs = append(r.SubnetIDs, id)
		}
	}
	for _, route := range rt.Routes {
		if gw := aws.StringValue(route.GatewayId); strings.HasPrefix(gw, "igw-") {
			r.GatewayID = gw
		}
	}
	return r
}

func (s *routerService) describe(ctx context.Context, input *ec2.DescribeRouteTablesInput) ([]*ec2.RouteTable, *string, error) {
	out, err := s.p.clients.EC2.DescribeRouteTablesWithContext(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return out.RouteTables, out.NextToken, nil
}

func (s *routerService) table(ctx context.Context, id string) (*ec2.RouteTable, error) {
	tables, _, err := s.describe(ctx, &ec2.DescribeRouteTablesInput{RouteTableIds: aws.StringSlice([]string{id})})
	if err != nil {
		return nil, err
	}
	return firstOrNotFound(tables, "router", id)
}

func (s *routerService) Get(ctx context.Context, id string) (*contracts.Router, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRouters, "get", id, func(ctx context.Context) (*contracts.Router, error) {
		rt, err := s.table(ctx, id)
		if err != nil {
			return nil, err
		}
		return toRouter(rt), nil
	})
}

func (s *routerService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Router], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRouters, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Router], error) {
		return listEC2(opts, ec2Paging, func(maxResults *int64, token *string) ([]*contracts.Router, *string, error) {
			tables, next, err := s.describe(ctx, &ec2.DescribeRouteTablesInput{MaxResults: maxResults, NextToken: token})
			if err != nil {
				return nil, nil, err
			}
			routers := make([]*contracts.Router, 0, len(tables))
			for _, rt := range tables {
				routers = append(routers, toRouter(rt))
			}
			return routers, next, nil
		})
	})
}

func (s *routerService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Router], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create makes a route table; EC2 route tables always belong to a VPC
func (s *routerService) Create(ctx context.Context, req contracts.CreateRouterRequest) (*contracts.Router, error) {
	if err := contracts.ValidateLabel(req.Label); err != nil {
		return nil, err
	}
	if req.NetworkID == "" {
		return nil, contracts.NewInvalidValueError("EC2 routers must be created in a network", nil)
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceRouters, "create", "", func(ctx context.Context) (*contracts.Router, error) {
		out, err := s.p.clients.EC2.CreateRouteTableWithContext(ctx, &ec2.CreateRouteTableInput{
			VpcId:             aws.String(req.NetworkID),
			TagSpecifications: tagSpec(ec2.ResourceTypeRouteTable, req.Label, nil),
		})
		if err != nil {
			return nil, err
		}
		return toRouter(out.RouteTable), nil
	})
}

func (s *routerService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceRouters, "delete", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.DeleteRouteTableWithContext(ctx, &ec2.DeleteRouteTableInput{RouteTableId: aws.String(id)})
		return err
	})
	return contracts.IgnoreNotFound(err)
}

func (s *routerService) SetLabel(ctx context.Context, id, label string) error {
	return s.p.setLabel(ctx, contracts.ServiceRouters, id, label)
}

func (s *routerService) AttachSubnet(ctx context.Context, id, subnetID string) error {
	return s.p.do(ctx, contracts.ServiceRouters, "attach_subnet", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.AssociateRouteTableWithContext(ctx, &ec2.AssociateRouteTableInput{
			RouteTableId: aws.String(id),
			SubnetId:     aws.String(subnetID),
		})
		return err
	})
}

func (s *routerService) DetachSubnet(ctx context.Context, id, subnetID string) error {
	return s.p.do(ctx, contracts.ServiceRouters, "detach_subnet", id, func(ctx context.Context) error {
		rt, err := s.table(ctx, id)
		if err != nil {
			return err
		}
		for _, a := range rt.Associations {
			if aws.StringValue(a.SubnetId) != subnetID {
				continue
			}
			_, err := s.p.clients.EC2.DisassociateRouteTableWithContext(ctx, &ec2.DisassociateRouteTableInput{
				AssociationId: a.RouteTableAssociationId,
			})
			return err
		}
		return nil
	})
}

func (s *routerService) AttachGateway(ctx context.Context, id, gatewayID string) error {
	return s.p.do(ctx, contracts.ServiceRouters, "attach_gateway", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.CreateRouteWithContext(ctx, &ec2.CreateRouteInput{
			RouteTableId:         aws.String(id),
			DestinationCidrBlock: aws.String(defaultRoute),
			GatewayId:            aws.String(gatewayID),
		})
		return err
	})
}

func (s *routerService) DetachGateway(ctx context.Context, id, gatewayID string) error {
	return s.p.do(ctx, contracts.ServiceRouters, "detach_gateway", id, func(ctx context.Context) error {
		rt, err := s.table(ctx, id)
		if err != nil {
			return err
		}
		for _, route := range rt.Routes {
			if aws.StringValue(route.GatewayId) != gatewayID {
				continue
			}
			_, err := s.p.clients.EC2.DeleteRouteWithContext(ctx, &ec2.DeleteRouteInput{
				RouteTableId:         aws.String(id),
				DestinationCidrBlock: route.DestinationCidrBlock,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type gatewayService struct{ p *Provider }

func toGateway(igw *ec2.InternetGateway) *contracts.InternetGateway {
	gw := &contracts.InternetGateway{
		Resource: resource(aws.StringValue(igw.InternetGatewayId), igw.Tags),
		State:    contracts.GatewayStateAvailable,
	}
	if len(igw.Attachments) > 0 {
		gw.NetworkID = aws.StringValue(igw.Attachments[0].VpcId)
		gw.State = gatewayStates.Lookup(aws.StringValue(igw.Attachments[0].State))
	}
	return gw
}

func (s *gatewayService) describe(ctx context.Context, input *ec2.DescribeInternetGatewaysInput) ([]*contracts.InternetGateway, *string, error) {
	out, err := s.p.clients.EC2.DescribeInternetGatewaysWithContext(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	gateways := make([]*contracts.InternetGateway, 0, len(out.InternetGateways))
	for _, igw := range out.InternetGateways {
		gateways = append(gateways, toGateway(igw))
	}
	return gateways, out.NextToken, nil
}

func (s *gatewayService) GetOrCreate(ctx context.Context, networkID string) (*contracts.InternetGateway, error) {
	if _, err := s.p.networking.Networks.Get(ctx, networkID); err != nil {
		return nil, err
	}
	existing, err := s.List(ctx, networkID, paging.ListOptions{})
	if err != nil {
		return nil, err
	}
	if len(existing.Items) > 0 {
		return existing.Items[0], nil
	}

	gw, err := common.Call(ctx, s.p.caller, contracts.ServiceGateways, "create", networkID, func(ctx context.Context) (*contracts.InternetGateway, error) {
		out, err := s.p.clients.EC2.CreateInternetGatewayWithContext(ctx, &ec2.CreateInternetGatewayInput{
			TagSpecifications: tagSpec(ec2.ResourceTypeInternetGateway, common.DefaultNetworkLabel, nil),
		})
		if err != nil {
			return nil, err
		}
		return toGateway(out.InternetGateway), nil
	})
	if err != nil {
		return nil, err
	}
	err = s.p.do(ctx, contracts.ServiceGateways, "attach", gw.ID, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.AttachInternetGatewayWithContext(ctx, &ec2.AttachInternetGatewayInput{
			InternetGatewayId: aws.String(gw.ID),
			VpcId:             aws.String(networkID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	gw.NetworkID = networkID
	gw.State = contracts.GatewayStateAvailable
	return gw, nil
}

func (s *gatewayService) Delete(ctx context.Context, networkID, gatewayID string) error {
	err := s.p.do(ctx, contracts.ServiceGateways, "delete", gatewayID, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.DetachInternetGatewayWithContext(ctx, &ec2.DetachInternetGatewayInput{
			InternetGatewayId: aws.String(gatewayID),
			VpcId:             aws.String(networkID),
		})
		if err != nil && !isCode(err, "Gateway.NotAttached") {
			return err
		}
		_, err = s.p.clients.EC2.DeleteInternetGatewayWithContext(ctx, &ec2.DeleteInternetGatewayInput{
			InternetGatewayId: aws.String(gatewayID),
		})
		return err
	})
	return contracts.IgnoreNotFound(err)
}

func (s *gatewayService) List(ctx context.Context, networkID string, opts paging.ListOptions) (*paging.ResultList[*contracts.InternetGateway], error) {
	var filters []*ec2.Filter
	if networkID != "" {
		filters = append(filters, filter("attachment.vpc-id", networkID))
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceGateways, "list", networkID, func(ctx context.Context) (*paging.ResultList[*contracts.InternetGateway], error) {
		return listEC2(opts, ec2Paging, func(maxResults *int64, token *string) ([]*contracts.InternetGateway, *string, error) {
			return s.describe(ctx, &ec2.DescribeInternetGatewaysInput{Filters: filters, MaxResults: maxResults, NextToken: token})
		})
	})
}

type floatingIPService struct{ p *Provider }

func toFloatingIP(addr *ec2.Address) *contracts.FloatingIP {
	res := resource(aws.StringValue(addr.AllocationId), addr.Tags)
	res.Name = aws.StringValue(addr.PublicIp)
	return &contracts.FloatingIP{
		Resource:   res,
		PublicIP:   aws.StringValue(addr.PublicIp),
		PrivateIP:  aws.StringValue(addr.PrivateIpAddress),
		InstanceID: aws.StringValue(addr.InstanceId),
	}
}

func (s *floatingIPService) describe(ctx context.Context, input *ec2.DescribeAddressesInput) ([]*contracts.FloatingIP, error) {
	out, err := s.p.clients.EC2.DescribeAddressesWithContext(ctx, input)
	if err != nil {
		return nil, err
	}
	fips := make([]*contracts.FloatingIP, 0, len(out.Addresses))
	for _, addr := range out.Addresses {
		fips = append(fips, toFloatingIP(addr))
	}
	return fips, nil
}

func (s *floatingIPService) Get(ctx context.Context, id string) (*contracts.FloatingIP, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceFloatingIPs, "get", id, func(ctx context.Context) (*contracts.FloatingIP, error) {
		fips, err := s.describe(ctx, &ec2.DescribeAddressesInput{AllocationIds: aws.StringSlice([]string{id})})
		if err != nil {
			return nil, err
		}
		return firstOrNotFound(fips, "floating ip", id)
	})
}

// List pages locally; DescribeAddresses returns every address at once
func (s *floatingIPService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.FloatingIP], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceFloatingIPs, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.FloatingIP], error) {
		fips, err := s.describe(ctx, &ec2.DescribeAddressesInput{Filters: []*ec2.Filter{filter("domain", ec2.DomainTypeVpc)}})
		if err != nil {
			return nil, err
		}
		return common.Page(fips, opts), nil
	})
}

func (s *floatingIPService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.FloatingIP], error) {
	return common.FindAll(ctx, s.List, opts)
}

// Create allocates an Elastic IP. EC2 addresses belong to the region, so
// gatewayID only records where the caller intends to use it.
func (s *floatingIPService) Create(ctx context.Context, gatewayID string) (*contracts.FloatingIP, error) {
	fip, err := common.Call(ctx, s.p.caller, contracts.ServiceFloatingIPs, "create", gatewayID, func(ctx context.Context) (*contracts.FloatingIP, error) {
		out, err := s.p.clients.EC2.AllocateAddressWithContext(ctx, &ec2.AllocateAddressInput{Domain: aws.String(ec2.DomainTypeVpc)})
		if err != nil {
			return nil, err
		}
		return &contracts.FloatingIP{
			Resource: contracts.Resource{ID: aws.StringValue(out.AllocationId), Name: aws.StringValue(out.PublicIp)},
			PublicIP: aws.StringValue(out.PublicIp),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	fip.GatewayID = gatewayID
	return fip, nil
}

func (s *floatingIPService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceFloatingIPs, "delete", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.ReleaseAddressWithContext(ctx, &ec2.ReleaseAddressInput{AllocationId: aws.String(id)})
		return err
	})
	return contracts.IgnoreNotFound(err)
}
