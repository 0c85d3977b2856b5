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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dns/armdns"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"
)

const (
	testSubscription = "sub-1"
	testGroup        = "cloudbridge"
)

func armID(resourceType, name string) string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/%s", testSubscription, testGroup, resourceType, name)
}

func armChildID(resourceType, parent, name string) string {
	i := strings.LastIndex(resourceType, "/")
	return armID(resourceType[:i], parent) + "/" + resourceType[i+1:] + "/" + name
}

// responseError builds the error the SDK returns for a failed request
func responseError(status int, code string) error {
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Scheme: "https", Host: "management.azure.com", Path: "/fake"}}
	return &azcore.ResponseError{
		ErrorCode:  code,
		StatusCode: status,
		RawResponse: &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(`{"error":{"code":"` + code + `"}}`)),
			Request:    req,
		},
	}
}

// clone deep-copies an SDK model through its JSON form
func clone[T any](v *T) *T {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		panic(err)
	}
	return out
}

// stamp sets the read-only id and name of an SDK model
func stamp[T any](v *T, id, name string) *T {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(b, &fields); err != nil {
		panic(err)
	}
	fields["id"], fields["name"] = id, name
	if b, err = json.Marshal(fields); err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		panic(err)
	}
	return out
}

// fakeCollection stores resources by case-insensitive name. render fills
// derived properties on every copy handed out; onPut adjusts what is stored.
type fakeCollection[T any] struct {
	mu     sync.Mutex
	idOf   func(name string) string
	items  map[string]*T
	order  []string
	render func(*T)
	onPut  func(name string, v *T) error
	puts   int
}

func newCollection[T any](resourceType string) *fakeCollection[T] {
	return &fakeCollection[T]{
		idOf:  func(name string) string { return armID(resourceType, name) },
		items: make(map[string]*T),
	}
}

func (c *fakeCollection[T]) out(v *T) *T {
	cp := clone(v)
	if c.render != nil {
		c.render(cp)
	}
	return cp
}

func (c *fakeCollection[T]) lookup(name string) (*T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[strings.ToLower(name)]
	return v, ok
}

func (c *fakeCollection[T]) Get(_ context.Context, name string) (*T, error) {
	v, ok := c.lookup(name)
	if !ok {
		return nil, responseError(http.StatusNotFound, "ResourceNotFound")
	}
	return c.out(v), nil
}

func (c *fakeCollection[T]) List(context.Context) ([]*T, error) {
	c.mu.Lock()
	stored := make([]*T, 0, len(c.order))
	for _, key := range c.order {
		stored = append(stored, c.items[key])
	}
	c.mu.Unlock()
	out := make([]*T, 0, len(stored))
	for _, v := range stored {
		out = append(out, c.out(v))
	}
	return out, nil
}

func (c *fakeCollection[T]) CreateOrUpdate(ctx context.Context, name string, resource T) (*T, error) {
	stored := stamp(&resource, c.idOf(name), name)
	if c.onPut != nil {
		if err := c.onPut(name, stored); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	key := strings.ToLower(name)
	if _, ok := c.items[key]; !ok {
		c.order = append(c.order, key)
	}
	c.items[key] = stored
	c.puts++
	c.mu.Unlock()
	return c.Get(ctx, name)
}

func (c *fakeCollection[T]) Delete(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := strings.ToLower(name)
	if _, ok := c.items[key]; !ok {
		return responseError(http.StatusNotFound, "ResourceNotFound")
	}
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (c *fakeCollection[T]) seed(name string, v T) {
	_, _ = c.CreateOrUpdate(context.Background(), name, v)
}

// fakeChildCollection stores nested resources under "parent/name"
type fakeChildCollection[T any] struct {
	*fakeCollection[T]
	resourceType string
}

func newChildCollection[T any](resourceType string) *fakeChildCollection[T] {
	return &fakeChildCollection[T]{fakeCollection: newCollection[T](resourceType), resourceType: resourceType}
}

func childKey(parent, name string) string { return parent + "/" + name }

func (c *fakeChildCollection[T]) Get(ctx context.Context, parent, name string) (*T, error) {
	return c.fakeCollection.Get(ctx, childKey(parent, name))
}

func (c *fakeChildCollection[T]) List(_ context.Context, parent string) ([]*T, error) {
	prefix := strings.ToLower(parent) + "/"
	c.mu.Lock()
	var stored []*T
	for _, key := range c.order {
		if strings.HasPrefix(key, prefix) {
			stored = append(stored, c.items[key])
		}
	}
	c.mu.Unlock()
	out := make([]*T, 0, len(stored))
	for _, v := range stored {
		out = append(out, c.out(v))
	}
	return out, nil
}

func (c *fakeChildCollection[T]) CreateOrUpdate(ctx context.Context, parent, name string, resource T) (*T, error) {
	stored := stamp(&resource, armChildID(c.resourceType, parent, name), name)
	key := childKey(parent, name)
	if c.onPut != nil {
		if err := c.onPut(key, stored); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	lower := strings.ToLower(key)
	if _, ok := c.items[lower]; !ok {
		c.order = append(c.order, lower)
	}
	c.items[lower] = stored
	c.puts++
	c.mu.Unlock()
	return c.fakeCollection.Get(ctx, key)
}

func (c *fakeChildCollection[T]) Delete(ctx context.Context, parent, name string) error {
	return c.fakeCollection.Delete(ctx, childKey(parent, name))
}

// fakeVMs adds the power operations and tracks power state per VM
type fakeVMs struct {
	*fakeCollection[armcompute.VirtualMachine]
	power       map[string]string
	generalized map[string]bool
	calls       []string
}

func (v *fakeVMs) act(op, name, state string) error {
	if _, ok := v.lookup(name); !ok {
		return responseError(http.StatusNotFound, "ResourceNotFound")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, op+":"+name)
	if state != "" {
		v.power[strings.ToLower(name)] = state
	}
	return nil
}

func (v *fakeVMs) Start(_ context.Context, name string) error { return v.act("start", name, "running") }
func (v *fakeVMs) Restart(_ context.Context, name string) error {
	return v.act("restart", name, "running")
}
func (v *fakeVMs) Deallocate(_ context.Context, name string) error {
	return v.act("deallocate", name, "deallocated")
}

func (v *fakeVMs) Generalize(_ context.Context, name string) error {
	if err := v.act("generalize", name, ""); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.power[strings.ToLower(name)] != "deallocated" {
		return responseError(http.StatusConflict, "OperationNotAllowed")
	}
	v.generalized[strings.ToLower(name)] = true
	return nil
}

type fakeLocations struct{ locations []*armsubscriptions.Location }

func (f *fakeLocations) List(context.Context) ([]*armsubscriptions.Location, error) {
	return f.locations, nil
}

type fakeVMSizes struct{ sizes []*armcompute.VirtualMachineSize }

func (f *fakeVMSizes) List(_ context.Context, location string) ([]*armcompute.VirtualMachineSize, error) {
	if location == "" {
		return nil, responseError(http.StatusBadRequest, "InvalidLocation")
	}
	return f.sizes, nil
}

// fakeRecordSets stores record sets by zone, type and relative name
type fakeRecordSets struct {
	mu    sync.Mutex
	sets  map[string]*armdns.RecordSet
	order []string
}

func recordKey(zone string, t armdns.RecordType, name string) string {
	return strings.ToLower(zone + "|" + string(t) + "|" + name)
}

func (f *fakeRecordSets) Get(_ context.Context, zone string, t armdns.RecordType, name string) (*armdns.RecordSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rs, ok := f.sets[recordKey(zone, t, name)]
	if !ok {
		return nil, responseError(http.StatusNotFound, "NotFound")
	}
	return clone(rs), nil
}

func (f *fakeRecordSets) List(_ context.Context, zone string) ([]*armdns.RecordSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*armdns.RecordSet
	for _, key := range f.order {
		if strings.HasPrefix(key, strings.ToLower(zone)+"|") {
			out = append(out, clone(f.sets[key]))
		}
	}
	return out, nil
}

func (f *fakeRecordSets) CreateOrUpdate(_ context.Context, zone string, t armdns.RecordType, name string, rs armdns.RecordSet) (*armdns.RecordSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := stamp(&rs, armID(typeDNSZones, zone)+"/"+string(t)+"/"+name, name)
	stored.Type = to.Ptr("Microsoft.Network/dnszones/" + string(t))
	key := recordKey(zone, t, name)
	if _, ok := f.sets[key]; !ok {
		f.order = append(f.order, key)
	}
	f.sets[key] = stored
	return clone(stored), nil
}

func (f *fakeRecordSets) Delete(_ context.Context, zone string, t armdns.RecordType, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recordKey(zone, t, name)
	if _, ok := f.sets[key]; !ok {
		return responseError(http.StatusNotFound, "NotFound")
	}
	delete(f.sets, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

type fakeBlob struct {
	data     []byte
	modified time.Time
}

// fakeBlobs is an in-memory storage account
type fakeBlobs struct {
	mu         sync.Mutex
	containers map[string]map[string]*fakeBlob
	created    map[string]time.Time
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{containers: make(map[string]map[string]*fakeBlob), created: make(map[string]time.Time)}
}

func (f *fakeBlobs) ListContainers(context.Context) ([]*service.ContainerItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.containers))
	for name := range f.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*service.ContainerItem, 0, len(names))
	for _, name := range names {
		out = append(out, f.item(name))
	}
	return out, nil
}

func (f *fakeBlobs) item(name string) *service.ContainerItem {
	created := f.created[name]
	return &service.ContainerItem{Name: to.Ptr(name), Properties: &service.ContainerProperties{LastModified: &created}}
}

func (f *fakeBlobs) GetContainer(_ context.Context, name string) (*service.ContainerItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[name]; !ok {
		return nil, responseError(http.StatusNotFound, "ContainerNotFound")
	}
	return f.item(name), nil
}

func (f *fakeBlobs) CreateContainer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[name]; ok {
		return responseError(http.StatusConflict, "ContainerAlreadyExists")
	}
	f.containers[name] = make(map[string]*fakeBlob)
	f.created[name] = time.Now().UTC()
	return nil
}

func (f *fakeBlobs) DeleteContainer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[name]; !ok {
		return responseError(http.StatusNotFound, "ContainerNotFound")
	}
	delete(f.containers, name)
	return nil
}

func (f *fakeBlobs) blobItem(key string, b *fakeBlob) *container.BlobItem {
	modified := b.modified
	return &container.BlobItem{
		Name: to.Ptr(key),
		Properties: &container.BlobProperties{
			ContentLength: to.Ptr(int64(len(b.data))),
			ContentType:   to.Ptr("application/octet-stream"),
			LastModified:  &modified,
			CreationTime:  &modified,
		},
	}
}

func (f *fakeBlobs) ListBlobs(_ context.Context, containerName, prefix string) ([]*container.BlobItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[containerName]
	if !ok {
		return nil, responseError(http.StatusNotFound, "ContainerNotFound")
	}
	keys := make([]string, 0, len(c))
	for key := range c {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := make([]*container.BlobItem, 0, len(keys))
	for _, key := range keys {
		out = append(out, f.blobItem(key, c[key]))
	}
	return out, nil
}

func (f *fakeBlobs) blob(containerName, key string) (*fakeBlob, error) {
	c, ok := f.containers[containerName]
	if !ok {
		return nil, responseError(http.StatusNotFound, "ContainerNotFound")
	}
	b, ok := c[key]
	if !ok {
		return nil, responseError(http.StatusNotFound, "BlobNotFound")
	}
	return b, nil
}

func (f *fakeBlobs) GetBlob(_ context.Context, containerName, key string) (*container.BlobItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.blob(containerName, key)
	if err != nil {
		return nil, err
	}
	return f.blobItem(key, b), nil
}

func (f *fakeBlobs) Upload(_ context.Context, containerName, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[containerName]
	if !ok {
		return responseError(http.StatusNotFound, "ContainerNotFound")
	}
	c[key] = &fakeBlob{data: data, modified: time.Now().UTC()}
	return nil
}

func (f *fakeBlobs) Download(_ context.Context, containerName, key string, w io.Writer) error {
	f.mu.Lock()
	b, err := f.blob(containerName, key)
	f.mu.Unlock()
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(b.data))
	return err
}

func (f *fakeBlobs) DeleteBlob(_ context.Context, containerName, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.blob(containerName, key); err != nil {
		return err
	}
	delete(f.containers[containerName], key)
	return nil
}

// fakeAzure wires the fakes together so derived properties, such as the
// subnets of a network or the VM of an interface, follow the stored state
type fakeAzure struct {
	groups     *fakeCollection[armresources.ResourceGroup]
	vms        *fakeVMs
	images     *fakeCollection[armcompute.Image]
	disks      *fakeCollection[armcompute.Disk]
	snapshots  *fakeCollection[armcompute.Snapshot]
	keys       *fakeCollection[armcompute.SSHPublicKeyResource]
	vnets      *fakeCollection[armnetwork.VirtualNetwork]
	subnets    *fakeChildCollection[armnetwork.Subnet]
	nics       *fakeCollection[armnetwork.Interface]
	pips       *fakeCollection[armnetwork.PublicIPAddress]
	nsgs       *fakeCollection[armnetwork.SecurityGroup]
	rules      *fakeChildCollection[armnetwork.SecurityRule]
	tables     *fakeCollection[armnetwork.RouteTable]
	routes     *fakeChildCollection[armnetwork.Route]
	zones      *fakeCollection[armdns.Zone]
	records    *fakeRecordSets
	blobs      *fakeBlobs
	locations  *fakeLocations
	sizes      *fakeVMSizes
	addressSeq int
}

func newFakeAzure() *fakeAzure {
	f := &fakeAzure{
		groups:    newCollection[armresources.ResourceGroup]("Microsoft.Resources/resourceGroups"),
		vms:       &fakeVMs{fakeCollection: newCollection[armcompute.VirtualMachine](typeVirtualMachines), power: map[string]string{}, generalized: map[string]bool{}},
		images:    newCollection[armcompute.Image](typeImages),
		disks:     newCollection[armcompute.Disk](typeDisks),
		snapshots: newCollection[armcompute.Snapshot](typeSnapshots),
		keys:      newCollection[armcompute.SSHPublicKeyResource]("Microsoft.Compute/sshPublicKeys"),
		vnets:     newCollection[armnetwork.VirtualNetwork](typeVirtualNetworks),
		subnets:   newChildCollection[armnetwork.Subnet](typeSubnets),
		nics:      newCollection[armnetwork.Interface](typeInterfaces),
		pips:      newCollection[armnetwork.PublicIPAddress](typePublicIPs),
		nsgs:      newCollection[armnetwork.SecurityGroup](typeSecurityGroups),
		rules:     newChildCollection[armnetwork.SecurityRule](typeSecurityRules),
		tables:    newCollection[armnetwork.RouteTable](typeRouteTables),
		routes:    newChildCollection[armnetwork.Route]("Microsoft.Network/routeTables/routes"),
		zones:     newCollection[armdns.Zone](typeDNSZones),
		records:   &fakeRecordSets{sets: map[string]*armdns.RecordSet{}},
		blobs:     newFakeBlobs(),
		locations: &fakeLocations{locations: []*armsubscriptions.Location{
			{
				Name:        to.Ptr("eastus"),
				DisplayName: to.Ptr("East US"),
				AvailabilityZoneMappings: []*armsubscriptions.AvailabilityZoneMappings{
					{LogicalZone: to.Ptr("1")}, {LogicalZone: to.Ptr("2")}, {LogicalZone: to.Ptr("3")},
				},
			},
			{Name: to.Ptr("westus"), DisplayName: to.Ptr("West US")},
		}},
		sizes: &fakeVMSizes{sizes: []*armcompute.VirtualMachineSize{
			{Name: to.Ptr("Standard_B1s"), NumberOfCores: to.Ptr[int32](1), MemoryInMB: to.Ptr[int32](1024), OSDiskSizeInMB: to.Ptr[int32](1047552), ResourceDiskSizeInMB: to.Ptr[int32](4096), MaxDataDiskCount: to.Ptr[int32](2)},
			{Name: to.Ptr("Standard_D2s_v3"), NumberOfCores: to.Ptr[int32](2), MemoryInMB: to.Ptr[int32](8192), OSDiskSizeInMB: to.Ptr[int32](1047552), ResourceDiskSizeInMB: to.Ptr[int32](16384), MaxDataDiskCount: to.Ptr[int32](4)},
		}},
	}
	f.wire()
	return f
}

func (f *fakeAzure) nextAddress(prefix string) string {
	f.addressSeq++
	return fmt.Sprintf("%s.%d", prefix, f.addressSeq)
}

func (f *fakeAzure) wire() {
	f.vms.onPut = func(name string, vm *armcompute.VirtualMachine) error {
		vm.Properties.ProvisioningState = to.Ptr("Succeeded")
		if sp := vm.Properties.StorageProfile; sp != nil && sp.OSDisk != nil {
			diskName := deref(sp.OSDisk.Name)
			if diskName == "" {
				diskName = name + osDiskSuffix
			}
			if sp.OSDisk.ManagedDisk == nil {
				sp.OSDisk.ManagedDisk = &armcompute.ManagedDiskParameters{}
			}
			sp.OSDisk.ManagedDisk.ID = to.Ptr(armID(typeDisks, diskName))
			if _, ok := f.disks.lookup(diskName); !ok {
				f.disks.seed(diskName, armcompute.Disk{
					Location:   vm.Location,
					Properties: &armcompute.DiskProperties{DiskSizeGB: to.Ptr[int32](30)},
				})
			}
		}
		f.vms.mu.Lock()
		if _, ok := f.vms.power[strings.ToLower(name)]; !ok {
			f.vms.power[strings.ToLower(name)] = "running"
		}
		f.vms.mu.Unlock()
		return nil
	}
	f.vms.render = func(vm *armcompute.VirtualMachine) {
		f.vms.mu.Lock()
		state := f.vms.power[strings.ToLower(deref(vm.Name))]
		f.vms.mu.Unlock()
		vm.Properties.InstanceView = &armcompute.VirtualMachineInstanceView{Statuses: []*armcompute.InstanceViewStatus{
			{Code: to.Ptr("ProvisioningState/succeeded")},
			{Code: to.Ptr(powerPrefix + state)},
		}}
	}

	f.disks.onPut = func(_ string, d *armcompute.Disk) error {
		if d.Properties == nil {
			d.Properties = &armcompute.DiskProperties{}
		}
		d.Properties.ProvisioningState = to.Ptr("Succeeded")
		if cd := d.Properties.CreationData; cd != nil && d.Properties.DiskSizeGB == nil {
			if snap, ok := f.snapshots.lookup(nameOf(deref(cd.SourceResourceID))); ok && snap.Properties != nil {
				d.Properties.DiskSizeGB = snap.Properties.DiskSizeGB
			}
		}
		return nil
	}
	f.disks.render = func(d *armcompute.Disk) {
		d.Properties.DiskState = to.Ptr(armcompute.DiskStateUnattached)
		vms, _ := f.vms.fakeCollection.List(context.Background())
		for _, vm := range vms {
			if vm.Properties.StorageProfile == nil {
				continue
			}
			for _, dd := range vm.Properties.StorageProfile.DataDisks {
				if dd.ManagedDisk != nil && sameID(deref(dd.ManagedDisk.ID), deref(d.ID)) {
					d.ManagedBy = vm.ID
					d.Properties.DiskState = to.Ptr(armcompute.DiskStateAttached)
				}
			}
		}
	}

	f.snapshots.onPut = func(_ string, s *armcompute.Snapshot) error {
		s.Properties.ProvisioningState = to.Ptr("Succeeded")
		if s.Properties.CreationData == nil {
			return nil
		}
		if src, ok := f.disks.lookup(nameOf(deref(s.Properties.CreationData.SourceResourceID))); ok && src.Properties != nil {
			s.Properties.DiskSizeGB = src.Properties.DiskSizeGB
		}
		return nil
	}

	f.images.onPut = func(_ string, img *armcompute.Image) error {
		img.Properties.ProvisioningState = to.Ptr("Succeeded")
		return nil
	}

	f.vnets.onPut = func(_ string, vnet *armnetwork.VirtualNetwork) error {
		vnet.Properties.ProvisioningState = to.Ptr(armnetwork.ProvisioningStateSucceeded)
		vnet.Properties.Subnets = nil
		return nil
	}
	f.vnets.render = func(vnet *armnetwork.VirtualNetwork) {
		vnet.Properties.Subnets, _ = f.subnets.List(context.Background(), deref(vnet.Name))
	}
	f.subnets.onPut = func(key string, sn *armnetwork.Subnet) error {
		vnetName, _, _ := strings.Cut(key, "/")
		vnet, ok := f.vnets.lookup(vnetName)
		if !ok {
			return responseError(http.StatusNotFound, "ResourceNotFound")
		}
		space := deref(vnet.Properties.AddressSpace.AddressPrefixes[0])
		if !strings.HasPrefix(deref(sn.Properties.AddressPrefix), strings.Join(strings.Split(space, ".")[:2], ".")) {
			return responseError(http.StatusBadRequest, "NetcfgSubnetRangeOutsideVnet")
		}
		sn.Properties.ProvisioningState = to.Ptr(armnetwork.ProvisioningStateSucceeded)
		return nil
	}

	f.nics.onPut = func(_ string, nic *armnetwork.Interface) error {
		for _, cfg := range nic.Properties.IPConfigurations {
			cfg.ID = to.Ptr(deref(nic.ID) + "/ipConfigurations/" + deref(cfg.Name))
			if cfg.Properties.PrivateIPAddress == nil {
				cfg.Properties.PrivateIPAddress = to.Ptr(f.nextAddress("10.0.0"))
			}
		}
		return nil
	}
	f.nics.render = func(nic *armnetwork.Interface) {
		vms, _ := f.vms.fakeCollection.List(context.Background())
		for _, vm := range vms {
			if vm.Properties.NetworkProfile == nil {
				continue
			}
			for _, ref := range vm.Properties.NetworkProfile.NetworkInterfaces {
				if sameID(deref(ref.ID), deref(nic.ID)) {
					nic.Properties.VirtualMachine = &armnetwork.SubResource{ID: vm.ID}
				}
			}
		}
	}

	f.pips.onPut = func(_ string, pip *armnetwork.PublicIPAddress) error {
		if pip.Properties.IPAddress == nil {
			pip.Properties.IPAddress = to.Ptr(f.nextAddress("20.1.1"))
		}
		return nil
	}
	f.pips.render = func(pip *armnetwork.PublicIPAddress) {
		nics, _ := f.nics.List(context.Background())
		for _, nic := range nics {
			for _, cfg := range nic.Properties.IPConfigurations {
				if ref := cfg.Properties.PublicIPAddress; ref != nil && sameID(deref(ref.ID), deref(pip.ID)) {
					pip.Properties.IPConfiguration = &armnetwork.IPConfiguration{ID: cfg.ID}
				}
			}
		}
	}

	f.nsgs.onPut = func(_ string, nsg *armnetwork.SecurityGroup) error {
		nsg.Properties.SecurityRules = nil
		return nil
	}
	f.nsgs.render = func(nsg *armnetwork.SecurityGroup) {
		nsg.Properties.SecurityRules, _ = f.rules.List(context.Background(), deref(nsg.Name))
	}

	f.tables.onPut = func(_ string, rt *armnetwork.RouteTable) error {
		rt.Properties.Routes, rt.Properties.Subnets = nil, nil
		return nil
	}
	f.tables.render = func(rt *armnetwork.RouteTable) {
		rt.Properties.Routes, _ = f.routes.List(context.Background(), deref(rt.Name))
		all, _ := f.subnets.fakeCollection.List(context.Background())
		for _, sn := range all {
			if sn.Properties.RouteTable != nil && sameID(deref(sn.Properties.RouteTable.ID), deref(rt.ID)) {
				rt.Properties.Subnets = append(rt.Properties.Subnets, &armnetwork.Subnet{ID: sn.ID})
			}
		}
	}
}

func (f *fakeAzure) clients() *Clients {
	return &Clients{
		ResourceGroups:  f.groups,
		Locations:       f.locations,
		VMSizes:         f.sizes,
		VirtualMachines: f.vms,
		Images:          f.images,
		Disks:           f.disks,
		Snapshots:       f.snapshots,
		SSHPublicKeys:   f.keys,
		VirtualNetworks: f.vnets,
		Subnets:         f.subnets,
		Interfaces:      f.nics,
		PublicIPs:       f.pips,
		SecurityGroups:  f.nsgs,
		SecurityRules:   f.rules,
		RouteTables:     f.tables,
		Routes:          f.routes,
		Zones:           f.zones,
		RecordSets:      f.records,
		Blobs:           f.blobs,
	}
}
