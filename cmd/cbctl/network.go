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


package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

var networkColumns = columns[contracts.Network]{
	noun:   "network",
	header: []string{"ID", "NAME", "LABEL", "CIDR", "STATE", "EXTERNAL"},
	row: func(n *contracts.Network) []string {
		return []string{n.ID, n.Name, n.Label, orNone(n.CIDR), string(n.State), fmt.Sprint(n.External)}
	},
}

var subnetColumns = columns[contracts.Subnet]{
	noun:   "subnet",
	header: []string{"ID", "NAME", "LABEL", "NETWORK", "CIDR", "ZONE", "STATE"},
	row: func(s *contracts.Subnet) []string {
		return []string{s.ID, s.Name, s.Label, s.NetworkID, s.CIDR, orNone(s.ZoneID), string(s.State)}
	},
}

var routerColumns = columns[contracts.Router]{
	noun:   "router",
	header: []string{"ID", "NAME", "LABEL", "NETWORK", "STATE", "SUBNETS", "GATEWAY"},
	row: func(r *contracts.Router) []string {
		return []string{r.ID, r.Name, r.Label, orNone(r.NetworkID), string(r.State),
			joinOrNone(r.SubnetIDs), orNone(r.GatewayID)}
	},
}

var floatingIPColumns = columns[contracts.FloatingIP]{
	noun:   "floating IP",
	header: []string{"ID", "PUBLIC IP", "PRIVATE IP", "INSTANCE", "GATEWAY"},
	row: func(f *contracts.FloatingIP) []string {
		return []string{f.ID, f.PublicIP, orNone(f.PrivateIP), orNone(f.InstanceID), orNone(f.GatewayID)}
	},
}

func newNetworkCommand(a *app) *cobra.Command {
	networkCmd := &cobra.Command{
		Use:     "network",
		Aliases: []string{"networks", "net"},
		Short:   "Manage private networks",
	}

	var req contracts.CreateNetworkRequest
	createCmd := &cobra.Command{
		Use:   "create LABEL",
		Short: "Create a network",
		Args:  cobra.ExactArgs(1),
	}
	createCmd.Flags().StringVar(&req.CIDR, "cidr", "10.0.0.0/16", "network address block")
	createCmd.RunE = a.run(contracts.ServiceNetworks, func(ctx context.Context, p contracts.Provider, args []string) error {
		req.Label = args[0]
		network, err := p.Networking().Networks.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create network: %w", err)
		}
		return renderOne(a, network, networkColumns)
	})

	networkCmd.AddCommand(
		listCommand(a, contracts.ServiceNetworks, networkColumns,
			func(p contracts.Provider) contracts.Reader[contracts.Network] { return p.Networking().Networks }),
		getCommand(a, contracts.ServiceNetworks, networkColumns,
			func(ctx context.Context, p contracts.Provider, id string) (*contracts.Network, error) {
				return p.Networking().Networks.Get(ctx, id)
			}),
		createCmd,
		deleteCommand(a, "network", contracts.ServiceNetworks,
			func(ctx context.Context, p contracts.Provider, id string) error {
				return p.Networking().Networks.Delete(ctx, id)
			}),
	)
	return networkCmd
}

func newSubnetCommand(a *app) *cobra.Command {
	subnetCmd := &cobra.Command{
		Use:     "subnet",
		Aliases: []string{"subnets"},
		Short:   "Manage subnets",
	}

	listCmd := listCommand(a, contracts.ServiceSubnets, subnetColumns,
		func(p contracts.Provider) contracts.Reader[contracts.Subnet] { return p.Networking().Subnets })
	var network string
	listCmd.Flags().StringVar(&network, "network", "", "only the subnets of this network")
	pagedList := listCmd.RunE
	listCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if network == "" {
			return pagedList(cmd, args)
		}
		return a.run(contracts.ServiceSubnets, func(ctx context.Context, p contracts.Provider, args []string) error {
			subnets, err := p.Networking().Networks.Subnets(ctx, network)
			if err != nil {
				return fmt.Errorf("failed to list subnets of %s: %w", network, err)
			}
			return renderList(a, subnets, subnetColumns, "")
		})(cmd, args)
	}

	var req contracts.CreateSubnetRequest
	createCmd := &cobra.Command{
		Use:   "create NETWORK LABEL",
		Short: "Create a subnet",
		Args:  cobra.ExactArgs(2),
	}
	createCmd.Flags().StringVar(&req.CIDR, "cidr", "", "subnet address block")
	createCmd.Flags().StringVar(&req.Zone, "zone", "", "placement zone")
	_ = createCmd.MarkFlagRequired("cidr")
	createCmd.RunE = a.run(contracts.ServiceSubnets, func(ctx context.Context, p contracts.Provider, args []string) error {
		req.NetworkID, req.Label = args[0], args[1]
		subnet, err := p.Networking().Subnets.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create subnet: %w", err)
		}
		return renderOne(a, subnet, subnetColumns)
	})

	var zone string
	defaultCmd := &cobra.Command{
		Use:   "default",
		Short: "Show the default subnet, creating it when missing",
		Args:  cobra.NoArgs,
	}
	defaultCmd.Flags().StringVar(&zone, "zone", "", "placement zone (default: provider zone)")
	defaultCmd.RunE = a.run(contracts.ServiceSubnets, func(ctx context.Context, p contracts.Provider, args []string) error {
		subnet, err := p.Networking().Subnets.GetOrCreateDefault(ctx, zone)
		if err != nil {
			return fmt.Errorf("failed to get the default subnet: %w", err)
		}
		return renderOne(a, subnet, subnetColumns)
	})

	subnetCmd.AddCommand(
		listCmd,
		getCommand(a, contracts.ServiceSubnets, subnetColumns,
			func(ctx context.Context, p contracts.Provider, id string) (*contracts.Subnet, error) {
				return p.Networking().Subnets.Get(ctx, id)
			}),
		createCmd,
		deleteCommand(a, "subnet", contracts.ServiceSubnets,
			func(ctx context.Context, p contracts.Provider, id string) error {
				return p.Networking().Subnets.Delete(ctx, id)
			}),
		defaultCmd,
	)
	return subnetCmd
}

func newRouterCommand(a *app) *cobra.Command {
	routerCmd := &cobra.Command{
		Use:     "router",
		Aliases: []string{"routers"},
		Short:   "Manage routers",
	}

	var req contracts.CreateRouterRequest
	createCmd := &cobra.Command{
		Use:   "create NETWORK LABEL",
		Short: "Create a router",
		Args:  cobra.ExactArgs(2),
	}
	createCmd.RunE = a.run(contracts.ServiceRouters, func(ctx context.Context, p contracts.Provider, args []string) error {
		req.NetworkID, req.Label = args[0], args[1]
		router, err := p.Networking().Routers.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create router: %w", err)
		}
		return renderOne(a, router, routerColumns)
	})

	attachCmd := &cobra.Command{
		Use:   "attach ROUTER SUBNET",
		Short: "Route a subnet through a router",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(contracts.ServiceRouters, func(ctx context.Context, p contracts.Provider, args []string) error {
			if err := p.Networking().Routers.AttachSubnet(ctx, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to attach subnet %s: %w", args[1], err)
			}
			fmt.Fprintf(a.out, "Attached subnet %s to router %s\n", args[1], args[0])
			return nil
		}),
	}

	detachCmd := &cobra.Command{
		Use:   "detach ROUTER SUBNET",
		Short: "Remove a subnet from a router",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(contracts.ServiceRouters, func(ctx context.Context, p contracts.Provider, args []string) error {
			if err := p.Networking().Routers.DetachSubnet(ctx, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to detach subnet %s: %w", args[1], err)
			}
			fmt.Fprintf(a.out, "Detached subnet %s from router %s\n", args[1], args[0])
			return nil
		}),
	}

	routerCmd.AddCommand(
		listCommand(a, contracts.ServiceRouters, routerColumns,
			func(p contracts.Provider) contracts.Reader[contracts.Router] { return p.Networking().Routers }),
		getCommand(a, contracts.ServiceRouters, routerColumns,
			func(ctx context.Context, p contracts.Provider, id string) (*contracts.Router, error) {
				return p.Networking().Routers.Get(ctx, id)
			}),
		createCmd,
		deleteCommand(a, "router", contracts.ServiceRouters,
			func(ctx context.Context, p contracts.Provider, id string) error {
				return p.Networking().Routers.Delete(ctx, id)
			}),
		attachCmd,
		detachCmd,
	)
	return routerCmd
}

func newFloatingIPCommand(a *app) *cobra.Command {
	fipCmd := &cobra.Command{
		Use:     "fip",
		Aliases: []string{"floating-ip", "fips"},
		Short:   "Manage floating IPs",
	}

	var gatewayID, networkID string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Allocate a floating IP",
		Args:  cobra.NoArgs,
	}
	createCmd.Flags().StringVar(&gatewayID, "gateway", "", "gateway or external network to allocate from")
	createCmd.Flags().StringVar(&networkID, "network", "", "allocate from the internet gateway of this network")
	createCmd.RunE = a.run(contracts.ServiceFloatingIPs, func(ctx context.Context, p contracts.Provider, args []string) error {
		if gatewayID == "" && networkID != "" {
			if err := requireService(p, contracts.ServiceGateways); err != nil {
				return err
			}
			gw, err := p.Networking().Gateways.GetOrCreate(ctx, networkID)
			if err != nil {
				return fmt.Errorf("failed to get the gateway of %s: %w", networkID, err)
			}
			gatewayID = gw.ID
		}
		fip, err := p.Networking().FloatingIPs.Create(ctx, gatewayID)
		if err != nil {
			return fmt.Errorf("failed to allocate floating IP: %w", err)
		}
		return renderOne(a, fip, floatingIPColumns)
	})

	fipCmd.AddCommand(
		listCommand(a, contracts.ServiceFloatingIPs, floatingIPColumns,
			func(p contracts.Provider) contracts.Reader[contracts.FloatingIP] { return p.Networking().FloatingIPs }),
		getCommand(a, contracts.ServiceFloatingIPs, floatingIPColumns,
			func(ctx context.Context, p contracts.Provider, id string) (*contracts.FloatingIP, error) {
				return p.Networking().FloatingIPs.Get(ctx, id)
			}),
		createCmd,
		deleteCommand(a, "floating IP", contracts.ServiceFloatingIPs,
			func(ctx context.Context, p contracts.Provider, id string) error {
				return p.Networking().FloatingIPs.Delete(ctx, id)
			}),
	)
	return fipCmd
}
