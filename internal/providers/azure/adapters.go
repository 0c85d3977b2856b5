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
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dns/armdns"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"
)

const pollFrequency = 5 * time.Second

// collect drains a pager
func collect[R, T any](ctx context.Context, pager *runtime.Pager[R], items func(R) []*T) ([]*T, error) {
	var all []*T
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, items(page)...)
	}
	return all, nil
}

// done waits for a long-running operation started by a Begin call
func done[R any](ctx context.Context, poller *runtime.Poller[R], err error) (R, error) {
	if err != nil {
		var zero R
		return zero, err
	}
	return poller.PollUntilDone(ctx, &runtime.PollUntilDoneOptions{Frequency: pollFrequency})
}

// armCollection adapts one SDK client to Collection
type armCollection[T any] struct {
	get    func(ctx context.Context, name string) (*T, error)
	list   func(ctx context.Context) ([]*T, error)
	put    func(ctx context.Context, name string, resource T) (*T, error)
	remove func(ctx context.Context, name string) error
}

func (c *armCollection[T]) Get(ctx context.Context, name string) (*T, error) { return c.get(ctx, name) }
func (c *armCollection[T]) List(ctx context.Context) ([]*T, error)          { return c.list(ctx) }
func (c *armCollection[T]) Delete(ctx context.Context, name string) error   { return c.remove(ctx, name) }

func (c *armCollection[T]) CreateOrUpdate(ctx context.Context, name string, resource T) (*T, error) {
	return c.put(ctx, name, resource)
}

// armChildCollection adapts one SDK client to ChildCollection
type armChildCollection[T any] struct {
	get    func(ctx context.Context, parent, name string) (*T, error)
	list   func(ctx context.Context, parent string) ([]*T, error)
	put    func(ctx context.Context, parent, name string, resource T) (*T, error)
	remove func(ctx context.Context, parent, name string) error
}

func (c *armChildCollection[T]) Get(ctx context.Context, parent, name string) (*T, error) {
	return c.get(ctx, parent, name)
}

func (c *armChildCollection[T]) List(ctx context.Context, parent string) ([]*T, error) {
	return c.list(ctx, parent)
}

func (c *armChildCollection[T]) CreateOrUpdate(ctx context.Context, parent, name string, resource T) (*T, error) {
	return c.put(ctx, parent, name, resource)
}

func (c *armChildCollection[T]) Delete(ctx context.Context, parent, name string) error {
	return c.remove(ctx, parent, name)
}

func resourceGroups(client *armresources.ResourceGroupsClient) Collection[armresources.ResourceGroup] {
	return &armCollection[armresources.ResourceGroup]{
		get: func(ctx context.Context, name string) (*armresources.ResourceGroup, error) {
			resp, err := client.Get(ctx, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.ResourceGroup, nil
		},
		list: func(ctx context.Context) ([]*armresources.ResourceGroup, error) {
			return collect(ctx, client.NewListPager(nil), func(p armresources.ResourceGroupsClientListResponse) []*armresources.ResourceGroup {
				return p.Value
			})
		},
		put: func(ctx context.Context, name string, rg armresources.ResourceGroup) (*armresources.ResourceGroup, error) {
			resp, err := client.CreateOrUpdate(ctx, name, rg, nil)
			if err != nil {
				return nil, err
			}
			return &resp.ResourceGroup, nil
		},
		remove: func(ctx context.Context, name string) error {
			poller, err := client.BeginDelete(ctx, name, nil)
			_, err = done(ctx, poller, err)
			return err
		},
	}
}

type locations struct {
	client       *armsubscriptions.Client
	subscription string
}

func (l *locations) List(ctx context.Context) ([]*armsubscriptions.Location, error) {
	return collect(ctx, l.client.NewListLocationsPager(l.subscription, nil), func(p armsubscriptions.ClientListLocationsResponse) []*armsubscriptions.Location {
		return p.Value
	})
}

type vmSizes struct {
	client *armcompute.VirtualMachineSizesClient
}

func (s *vmSizes) List(ctx context.Context, location string) ([]*armcompute.VirtualMachineSize, error) {
	return collect(ctx, s.client.NewListPager(location, nil), func(p armcompute.VirtualMachineSizesClientListResponse) []*armcompute.VirtualMachineSize {
		return p.Value
	})
}

type virtualMachines struct {
	client *armcompute.VirtualMachinesClient
	rg     string
}

func (v *virtualMachines) Get(ctx context.Context, name string) (*armcompute.VirtualMachine, error) {
	resp, err := v.client.Get(ctx, v.rg, name, &armcompute.VirtualMachinesClientGetOptions{
		Expand: to.Ptr(armcompute.InstanceViewTypesInstanceView),
	})
	if err != nil {
		return nil, err
	}
	return &resp.VirtualMachine, nil
}

func (v *virtualMachines) List(ctx context.Context) ([]*armcompute.VirtualMachine, error) {
	pager := v.client.NewListPager(v.rg, &armcompute.VirtualMachinesClientListOptions{
		Expand: to.Ptr(armcompute.ExpandTypeForListVMsInstanceView),
	})
	return collect(ctx, pager, func(p armcompute.VirtualMachinesClientListResponse) []*armcompute.VirtualMachine {
		return p.Value
	})
}

func (v *virtualMachines) CreateOrUpdate(ctx context.Context, name string, vm armcompute.VirtualMachine) (*armcompute.VirtualMachine, error) {
	poller, err := v.client.BeginCreateOrUpdate(ctx, v.rg, name, vm, nil)
	resp, err := done(ctx, poller, err)
	if err != nil {
		return nil, err
	}
	return &resp.VirtualMachine, nil
}

func (v *virtualMachines) Delete(ctx context.Context, name string) error {
	poller, err := v.client.BeginDelete(ctx, v.rg, name, nil)
	_, err = done(ctx, poller, err)
	return err
}

func (v *virtualMachines) Start(ctx context.Context, name string) error {
	poller, err := v.client.BeginStart(ctx, v.rg, name, nil)
	_, err = done(ctx, poller, err)
	return err
}

func (v *virtualMachines) Restart(ctx context.Context, name string) error {
	poller, err := v.client.BeginRestart(ctx, v.rg, name, nil)
	_, err = done(ctx, poller, err)
	return err
}

func (v *virtualMachines) Deallocate(ctx context.Context, name string) error {
	poller, err := v.client.BeginDeallocate(ctx, v.rg, name, nil)
	_, err = done(ctx, poller, err)
	return err
}

func (v *virtualMachines) Generalize(ctx context.Context, name string) error {
	_, err := v.client.Generalize(ctx, v.rg, name, nil)
	return err
}

func images(client *armcompute.ImagesClient, rg string) Collection[armcompute.Image] {
	return &armCollection[armcompute.Image]{
		get: func(ctx context.Context, name string) (*armcompute.Image, error) {
			resp, err := client.Get(ctx, rg, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.Image, nil
		},
		list: func(ctx context.Context) ([]*armcompute.Image, error) {
			return collect(ctx, client.NewListByResourceGroupPager(rg, nil), func(p armcompute.ImagesClientListByResourceGroupResponse) []*armcompute.Image {
				return p.Value
			})
		},
		put: func(ctx context.Context, name string, img armcompute.Image) (*armcompute.Image, error) {
			poller, err := client.BeginCreateOrUpdate(ctx, rg, name, img, nil)
			resp, err := done(ctx, poller, err)
			if err != nil {
				return nil, err
			}
			return &resp.Image, nil
		},
		remove: func(ctx context.Context, name string) error {
			poller, err := client.BeginDelete(ctx, rg, name, nil)
			_, err = done(ctx, poller, err)
			return err
		},
	}
}

func disks(client *armcompute.DisksClient, rg string) Collection[armcompute.Disk] {
	return &armCollection[armcompute.Disk]{
		get: func(ctx context.Context, name string) (*armcompute.Disk, error) {
			resp, err := client.Get(ctx, rg, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.Disk, nil
		},
		list: func(ctx context.Context) ([]*armcompute.Disk, error) {
			return collect(ctx, client.NewListByResourceGroupPager(rg, nil), func(p armcompute.DisksClientListByResourceGroupResponse) []*armcompute.Disk {
				return p.Value
			})
		},
		put: func(ctx context.Context, name string, disk armcompute.Disk) (*armcompute.Disk, error) {
			poller, err := client.BeginCreateOrUpdate(ctx, rg, name, disk, nil)
			resp, err := done(ctx, poller, err)
			if err != nil {
				return nil, err
			}
			return &resp.Disk, nil
		},
		remove: func(ctx context.Context, name string) error {
			poller, err := client.BeginDelete(ctx, rg, name, nil)
			_, err = done(ctx, poller, err)
			return err
		},
	}
}

func snapshots(client *armcompute.SnapshotsClient, rg string) Collection[armcompute.Snapshot] {
	return &armCollection[armcompute.Snapshot]{
		get: func(ctx context.Context, name string) (*armcompute.Snapshot, error) {
			resp, err := client.Get(ctx, rg, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.Snapshot, nil
		},
		list: func(ctx context.Context) ([]*armcompute.Snapshot, error) {
			return collect(ctx, client.NewListByResourceGroupPager(rg, nil), func(p armcompute.SnapshotsClientListByResourceGroupResponse) []*armcompute.Snapshot {
				return p.Value
			})
		},
		put: func(ctx context.Context, name string, snap armcompute.Snapshot) (*armcompute.Snapshot, error) {
			poller, err := client.BeginCreateOrUpdate(ctx, rg, name, snap, nil)
			resp, err := done(ctx, poller, err)
			if err != nil {
				return nil, err
			}
			return &resp.Snapshot, nil
		},
		remove: func(ctx context.Context, name string) error {
			poller, err := client.BeginDelete(ctx, rg, name, nil)
			_, err = done(ctx, poller, err)
			return err
		},
	}
}

func sshPublicKeys(client *armcompute.SSHPublicKeysClient, rg string) Collection[armcompute.SSHPublicKeyResource] {
	return &armCollection[armcompute.SSHPublicKeyResource]{
		get: func(ctx context.Context, name string) (*armcompute.SSHPublicKeyResource, error) {
			resp, err := client.Get(ctx, rg, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.SSHPublicKeyResource, nil
		},
		list: func(ctx context.Context) ([]*armcompute.SSHPublicKeyResource, error) {
			return collect(ctx, client.NewListByResourceGroupPager(rg, nil), func(p armcompute.SSHPublicKeysClientListByResourceGroupResponse) []*armcompute.SSHPublicKeyResource {
				return p.Value
			})
		},
		put: func(ctx context.Context, name string, key armcompute.SSHPublicKeyResource) (*armcompute.SSHPublicKeyResource, error) {
			resp, err := client.Create(ctx, rg, name, key, nil)
			if err != nil {
				return nil, err
			}
			return &resp.SSHPublicKeyResource, nil
		},
		remove: func(ctx context.Context, name string) error {
			_, err := client.Delete(ctx, rg, name, nil)
			return err
		},
	}
}

func virtualNetworks(client *armnetwork.VirtualNetworksClient, rg string) Collection[armnetwork.VirtualNetwork] {
	return &armCollection[armnetwork.VirtualNetwork]{
		get: func(ctx context.Context, name string) (*armnetwork.VirtualNetwork, error) {
			resp, err := client.Get(ctx, rg, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.VirtualNetwork, nil
		},
		list: func(ctx context.Context) ([]*armnetwork.VirtualNetwork, error) {
			return collect(ctx, client.NewListPager(rg, nil), func(p armnetwork.VirtualNetworksClientListResponse) []*armnetwork.VirtualNetwork {
				return p.Value
			})
		},
		put: func(ctx context.Context, name string, vnet armnetwork.VirtualNetwork) (*armnetwork.VirtualNetwork, error) {
			poller, err := client.BeginCreateOrUpdate(ctx, rg, name, vnet, nil)
			resp, err := done(ctx, poller, err)
			if err != nil {
				return nil, err
			}
			return &resp.VirtualNetwork, nil
		},
		remove: func(ctx context.Context, name string) error {
			poller, err := client.BeginDelete(ctx, rg, name, nil)
			_, err = done(ctx, poller, err)
			return err
		},
	}
}

func subnets(client *armnetwork.SubnetsClient, rg string) ChildCollection[armnetwork.Subnet] {
	return &armChildCollection[armnetwork.Subnet]{
		get: func(ctx context.Context, vnet, name string) (*armnetwork.Subnet, error) {
			resp, err := client.Get(ctx, rg, vnet, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.Subnet, nil
		},
		list: func(ctx context.Context, vnet string) ([]*armnetwork.Subnet, error) {
			return collect(ctx, client.NewListPager(rg, vnet, nil), func(p armnetwork.SubnetsClientListResponse) []*armnetwork.Subnet {
				return p.Value
			})
		},
		put: func(ctx context.Context, vnet, name string, subnet armnetwork.Subnet) (*armnetwork.Subnet, error) {
			poller, err := client.BeginCreateOrUpdate(ctx, rg, vnet, name, subnet, nil)
			resp, err := done(ctx, poller, err)
			if err != nil {
				return nil, err
			}
			return &resp.Subnet, nil
		},
		remove: func(ctx context.Context, vnet, name string) error {
			poller, err := client.BeginDelete(ctx, rg, vnet, name, nil)
			_, err = done(ctx, poller, err)
			return err
		},
	}
}

func interfaces(client *armnetwork.InterfacesClient, rg string) Collection[armnetwork.Interface] {
	return &armCollection[armnetwork.Interface]{
		get: func(ctx context.Context, name string) (*armnetwork.Interface, error) {
			resp, err := client.Get(ctx, rg, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.Interface, nil
		},
		list: func(ctx context.Context) ([]*armnetwork.Interface, error) {
			return collect(ctx, client.NewListPager(rg, nil), func(p armnetwork.InterfacesClientListResponse) []*armnetwork.Interface {
				return p.Value
			})
		},
		put: func(ctx context.Context, name string, nic armnetwork.Interface) (*armnetwork.Interface, error) {
			poller, err := client.BeginCreateOrUpdate(ctx, rg, name, nic, nil)
			resp, err := done(ctx, poller, err)
			if err != nil {
				return nil, err
			}
			return &resp.Interface, nil
		},
		remove: func(ctx context.Context, name string) error {
			poller, err := client.BeginDelete(ctx, rg, name, nil)
			_, err = done(ctx, poller, err)
			return err
		},
	}
}

func publicIPs(client *armnetwork.PublicIPAddressesClient, rg string) Collection[armnetwork.PublicIPAddress] {
	return &armCollection[armnetwork.PublicIPAddress]{
		get: func(ctx context.Context, name string) (*armnetwork.PublicIPAddress, error) {
			resp, err := client.Get(ctx, rg, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.PublicIPAddress, nil
		},
		list: func(ctx context.Context) ([]*armnetwork.PublicIPAddress, error) {
			return collect(ctx, client.NewListPager(rg, nil), func(p armnetwork.PublicIPAddressesClientListResponse) []*armnetwork.PublicIPAddress {
				return p.Value
			})
		},
		put: func(ctx context.Context, name string, ip armnetwork.PublicIPAddress) (*armnetwork.PublicIPAddress, error) {
			poller, err := client.BeginCreateOrUpdate(ctx, rg, name, ip, nil)
			resp, err := done(ctx, poller, err)
			if err != nil {
				return nil, err
			}
			return &resp.PublicIPAddress, nil
		},
		remove: func(ctx context.Context, name string) error {
			poller, err := client.BeginDelete(ctx, rg, name, nil)
			_, err = done(ctx, poller, err)
			return err
		},
	}
}

func securityGroups(client *armnetwork.SecurityGroupsClient, rg string) Collection[armnetwork.SecurityGroup] {
	return &armCollection[armnetwork.SecurityGroup]{
		get: func(ctx context.Context, name string) (*armnetwork.SecurityGroup, error) {
			resp, err := client.Get(ctx, rg, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.SecurityGroup, nil
		},
		list: func(ctx context.Context) ([]*armnetwork.SecurityGroup, error) {
			return collect(ctx, client.NewListPager(rg, nil), func(p armnetwork.SecurityGroupsClientListResponse) []*armnetwork.SecurityGroup {
				return p.Value
			})
		},
		put: func(ctx context.Context, name string, nsg armnetwork.SecurityGroup) (*armnetwork.SecurityGroup, error) {
			poller, err := client.BeginCreateOrUpdate(ctx, rg, name, nsg, nil)
			resp, err := done(ctx, poller, err)
			if err != nil {
				return nil, err
			}
			return &resp.SecurityGroup, nil
		},
		remove: func(ctx context.Context, name string) error {
			poller, err := client.BeginDelete(ctx, rg, name, nil)
			_, err = done(ctx, poller, err)
			return err
		},
	}
}

func securityRules(client *armnetwork.SecurityRulesClient, rg string) ChildCollection[armnetwork.SecurityRule] {
	return &armChildCollection[armnetwork.SecurityRule]{
		get: func(ctx context.Context, nsg, name string) (*armnetwork.SecurityRule, error) {
			resp, err := client.Get(ctx, rg, nsg, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.SecurityRule, nil
		},
		list: func(ctx context.Context, nsg string) ([]*armnetwork.SecurityRule, error) {
			return collect(ctx, client.NewListPager(rg, nsg, nil), func(p armnetwork.SecurityRulesClientListResponse) []*armnetwork.SecurityRule {
				return p.Value
			})
		},
		put: func(ctx context.Context, nsg, name string, rule armnetwork.SecurityRule) (*armnetwork.SecurityRule, error) {
			poller, err := client.BeginCreateOrUpdate(ctx, rg, nsg, name, rule, nil)
			resp, err := done(ctx, poller, err)
			if err != nil {
				return nil, err
			}
			return &resp.SecurityRule, nil
		},
		remove: func(ctx context.Context, nsg, name string) error {
			poller, err := client.BeginDelete(ctx, rg, nsg, name, nil)
			_, err = done(ctx, poller, err)
			return err
		},
	}
}

func routeTables(client *armnetwork.RouteTablesClient, rg string) Collection[armnetwork.RouteTable] {
	return &armCollection[armnetwork.RouteTable]{
		get: func(ctx context.Context, name string) (*armnetwork.RouteTable, error) {
			resp, err := client.Get(ctx, rg, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.RouteTable, nil
		},
		list: func(ctx context.Context) ([]*armnetwork.RouteTable, error) {
			return collect(ctx, client.NewListPager(rg, nil), func(p armnetwork.RouteTablesClientListResponse) []*armnetwork.RouteTable {
				return p.Value
			})
		},
		put: func(ctx context.Context, name string, table armnetwork.RouteTable) (*armnetwork.RouteTable, error) {
			poller, err := client.BeginCreateOrUpdate(ctx, rg, name, table, nil)
			resp, err := done(ctx, poller, err)
			if err != nil {
				return nil, err
			}
			return &resp.RouteTable, nil
		},
		remove: func(ctx context.Context, name string) error {
			poller, err := client.BeginDelete(ctx, rg, name, nil)
			_, err = done(ctx, poller, err)
			return err
		},
	}
}

func routes(client *armnetwork.RoutesClient, rg string) ChildCollection[armnetwork.Route] {
	return &armChildCollection[armnetwork.Route]{
		get: func(ctx context.Context, table, name string) (*armnetwork.Route, error) {
			resp, err := client.Get(ctx, rg, table, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.Route, nil
		},
		list: func(ctx context.Context, table string) ([]*armnetwork.Route, error) {
			return collect(ctx, client.NewListPager(rg, table, nil), func(p armnetwork.RoutesClientListResponse) []*armnetwork.Route {
				return p.Value
			})
		},
		put: func(ctx context.Context, table, name string, route armnetwork.Route) (*armnetwork.Route, error) {
			poller, err := client.BeginCreateOrUpdate(ctx, rg, table, name, route, nil)
			resp, err := done(ctx, poller, err)
			if err != nil {
				return nil, err
			}
			return &resp.Route, nil
		},
		remove: func(ctx context.Context, table, name string) error {
			poller, err := client.BeginDelete(ctx, rg, table, name, nil)
			_, err = done(ctx, poller, err)
			return err
		},
	}
}

func dnsZones(client *armdns.ZonesClient, rg string) Collection[armdns.Zone] {
	return &armCollection[armdns.Zone]{
		get: func(ctx context.Context, name string) (*armdns.Zone, error) {
			resp, err := client.Get(ctx, rg, name, nil)
			if err != nil {
				return nil, err
			}
			return &resp.Zone, nil
		},
		list: func(ctx context.Context) ([]*armdns.Zone, error) {
			return collect(ctx, client.NewListByResourceGroupPager(rg, nil), func(p armdns.ZonesClientListByResourceGroupResponse) []*armdns.Zone {
				return p.Value
			})
		},
		put: func(ctx context.Context, name string, zone armdns.Zone) (*armdns.Zone, error) {
			resp, err := client.CreateOrUpdate(ctx, rg, name, zone, nil)
			if err != nil {
				return nil, err
			}
			return &resp.Zone, nil
		},
		remove: func(ctx context.Context, name string) error {
			poller, err := client.BeginDelete(ctx, rg, name, nil)
			_, err = done(ctx, poller, err)
			return err
		},
	}
}

type recordSets struct {
	client *armdns.RecordSetsClient
	rg     string
}

func (r *recordSets) Get(ctx context.Context, zone string, recordType armdns.RecordType, name string) (*armdns.RecordSet, error) {
	resp, err := r.client.Get(ctx, r.rg, zone, name, recordType, nil)
	if err != nil {
		return nil, err
	}
	return &resp.RecordSet, nil
}

func (r *recordSets) List(ctx context.Context, zone string) ([]*armdns.RecordSet, error) {
	return collect(ctx, r.client.NewListAllByDNSZonePager(r.rg, zone, nil), func(p armdns.RecordSetsClientListAllByDNSZoneResponse) []*armdns.RecordSet {
		return p.Value
	})
}

func (r *recordSets) CreateOrUpdate(ctx context.Context, zone string, recordType armdns.RecordType, name string, rs armdns.RecordSet) (*armdns.RecordSet, error) {
	resp, err := r.client.CreateOrUpdate(ctx, r.rg, zone, name, recordType, rs, nil)
	if err != nil {
		return nil, err
	}
	return &resp.RecordSet, nil
}

func (r *recordSets) Delete(ctx context.Context, zone string, recordType armdns.RecordType, name string) error {
	_, err := r.client.Delete(ctx, r.rg, zone, name, recordType, nil)
	return err
}

type blobs struct {
	client *azblob.Client
}

func (b *blobs) ListContainers(ctx context.Context) ([]*service.ContainerItem, error) {
	return collect(ctx, b.client.NewListContainersPager(nil), func(p azblob.ListContainersResponse) []*service.ContainerItem {
		return p.ContainerItems
	})
}

func (b *blobs) GetContainer(ctx context.Context, name string) (*service.ContainerItem, error) {
	resp, err := b.client.ServiceClient().NewContainerClient(name).GetProperties(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &service.ContainerItem{
		Name:       to.Ptr(name),
		Properties: &service.ContainerProperties{LastModified: resp.LastModified},
	}, nil
}

func (b *blobs) CreateContainer(ctx context.Context, name string) error {
	_, err := b.client.CreateContainer(ctx, name, nil)
	return err
}

func (b *blobs) DeleteContainer(ctx context.Context, name string) error {
	_, err := b.client.DeleteContainer(ctx, name, nil)
	return err
}

func (b *blobs) ListBlobs(ctx context.Context, containerName, prefix string) ([]*container.BlobItem, error) {
	opts := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = to.Ptr(prefix)
	}
	return collect(ctx, b.client.NewListBlobsFlatPager(containerName, opts), func(p azblob.ListBlobsFlatResponse) []*container.BlobItem {
		if p.Segment == nil {
			return nil
		}
		return p.Segment.BlobItems
	})
}

func (b *blobs) GetBlob(ctx context.Context, containerName, key string) (*container.BlobItem, error) {
	resp, err := b.client.ServiceClient().NewContainerClient(containerName).NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &container.BlobItem{
		Name: to.Ptr(key),
		Properties: &container.BlobProperties{
			ContentLength: resp.ContentLength,
			ContentType:   resp.ContentType,
			LastModified:  resp.LastModified,
			CreationTime:  resp.CreationTime,
		},
	}, nil
}

func (b *blobs) Upload(ctx context.Context, containerName, key string, body io.Reader) error {
	_, err := b.client.UploadStream(ctx, containerName, key, body, nil)
	return err
}

func (b *blobs) Download(ctx context.Context, containerName, key string, w io.Writer) error {
	resp, err := b.client.DownloadStream(ctx, containerName, key, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

func (b *blobs) DeleteBlob(ctx context.Context, containerName, key string) error {
	_, err := b.client.DeleteBlob(ctx, containerName, key, nil)
	return err
}
