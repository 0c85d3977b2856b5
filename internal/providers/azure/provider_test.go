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
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const testImage = "Canonical:0001-com-ubuntu-server-jammy:22_04-lts:latest"

type testEnv struct {
	p   *Provider
	az  *fakeAzure
	ctx context.Context
}

func newTestProvider(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Providers.Azure.SubscriptionID = testSubscription
	cfg.Providers.Azure.StorageAccount = "cbtest"
	az := newFakeAzure()
	return &testEnv{p: NewWithClients(cfg, az.clients()), az: az, ctx: context.Background()}
}

func (e *testEnv) launch(t *testing.T, label string) *contracts.Instance {
	t.Helper()
	inst, err := e.p.Compute().Instances.Create(e.ctx, contracts.CreateInstanceRequest{
		Label:    label,
		ImageID:  testImage,
		VMTypeID: "Standard_B1s",
	})
	require.NoError(t, err)
	return inst
}

func TestAzureProvider_Basics(t *testing.T) {
	env := newTestProvider(t)

	assert.Equal(t, contracts.ProviderAzure, env.p.Type())
	assert.Equal(t, "eastus", env.p.Region())
	assert.False(t, env.p.HasService(contracts.ServiceGateways))
	assert.True(t, env.p.HasService(contracts.ServiceBuckets))
	assert.True(t, env.p.HasService(contracts.ServiceInstances))

	noBlobs := NewWithClients(config.DefaultConfig(), &Clients{})
	assert.False(t, noBlobs.HasService(contracts.ServiceBuckets))
}

func TestAzureProvider_AuthenticateCreatesResourceGroup(t *testing.T) {
	env := newTestProvider(t)

	require.NoError(t, env.p.Authenticate(env.ctx))
	group, err := env.az.groups.Get(env.ctx, testGroup)
	require.NoError(t, err)
	assert.Equal(t, "eastus", deref(group.Location))

	require.NoError(t, env.p.Authenticate(env.ctx))
	assert.Equal(t, 1, env.az.groups.puts)
}

func TestAzureVMTypes(t *testing.T) {
	env := newTestProvider(t)

	vt, err := env.p.Compute().VMTypes.Get(env.ctx, "standard_d2s_v3")
	require.NoError(t, err)
	assert.Equal(t, "D", vt.Family)
	assert.Equal(t, 2, vt.VCPUs)
	assert.InDelta(t, 8.0, vt.RAMGB, 0.001)
	assert.Equal(t, 16, vt.SizeEphemeralDisksGB)
	assert.Equal(t, "4", vt.Extra["maxDataDiskCount"])

	_, err = env.p.Compute().VMTypes.Get(env.ctx, "Standard_Z9")
	assert.True(t, contracts.IsNotFound(err))

	page, err := env.p.Compute().VMTypes.List(env.ctx, paging.ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.True(t, page.IsTruncated)
	assert.False(t, page.SupportsServerPaging)
}

func TestAzureRegions(t *testing.T) {
	env := newTestProvider(t)

	current, err := env.p.Compute().Regions.Current(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, "eastus", current.ID)
	require.Len(t, current.Zones, 3)
	assert.Equal(t, "1", current.Zones[0].Name)
	assert.Equal(t, "eastus", current.Zones[0].RegionName)

	west, err := env.p.Compute().Regions.Get(env.ctx, "westus")
	require.NoError(t, err)
	require.Len(t, west.Zones, 1)
	assert.Equal(t, "westus", west.Zones[0].Name)
}

func TestAzureInstances_CreateUsesDefaultSubnet(t *testing.T) {
	env := newTestProvider(t)

	inst := env.launch(t, "web")
	assert.True(t, strings.HasPrefix(inst.Name, "web-"))
	assert.Equal(t, "web", inst.Label)
	assert.Equal(t, contracts.InstanceStateRunning, inst.State)
	assert.Equal(t, "Standard_B1s", inst.VMTypeID)
	assert.Equal(t, testImage, inst.ImageID)
	require.Len(t, inst.PrivateIPs, 1)
	assert.Empty(t, inst.PublicIPs)

	vnets, err := env.az.vnets.List(env.ctx)
	require.NoError(t, err)
	require.Len(t, vnets, 1)
	assert.Equal(t, "true", deref(vnets[0].Tags[defaultNetworkTag]))
	assert.Equal(t, armChildID(typeSubnets, deref(vnets[0].Name), defaultSubnetName), inst.SubnetID)

	nic, err := env.az.nics.Get(env.ctx, inst.Name+nicSuffix)
	require.NoError(t, err)
	assert.Equal(t, inst.Name, deref(nic.Tags[instanceTag]))

	vm, err := env.az.vms.Get(env.ctx, inst.Name)
	require.NoError(t, err)
	keys := vm.Properties.OSProfile.LinuxConfiguration.SSH.PublicKeys
	require.Len(t, keys, 1)
	assert.Equal(t, "/home/cbuser/.ssh/authorized_keys", deref(keys[0].Path))

	// a second instance reuses the default network
	env.launch(t, "web")
	vnets, err = env.az.vnets.List(env.ctx)
	require.NoError(t, err)
	assert.Len(t, vnets, 1)
}

func TestAzureInstances_CreateValidatesRequest(t *testing.T) {
	env := newTestProvider(t)
	instances := env.p.Compute().Instances

	_, err := instances.Create(env.ctx, contracts.CreateInstanceRequest{Label: "Bad_Label", ImageID: testImage, VMTypeID: "Standard_B1s"})
	assert.Equal(t, contracts.ErrorTypeInvalidLabel, contracts.TypeOf(err))

	_, err = instances.Create(env.ctx, contracts.CreateInstanceRequest{Label: "web", ImageID: testImage})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))

	_, err = instances.Create(env.ctx, contracts.CreateInstanceRequest{
		Label: "web", ImageID: testImage, VMTypeID: "Standard_B1s", VMFirewallIDs: []string{"a", "b"},
	})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))

	lc := (&contracts.LaunchConfig{}).AddVolumeDevice(contracts.BlockDevice{SourceSnapshotID: "snap"})
	_, err = instances.Create(env.ctx, contracts.CreateInstanceRequest{
		Label: "web", ImageID: testImage, VMTypeID: "Standard_B1s", LaunchConfig: lc,
	})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))

	vms, err := env.az.vms.List(env.ctx)
	require.NoError(t, err)
	assert.Empty(t, vms)
}

func TestAzureInstances_CreateWithDataDisk(t *testing.T) {
	env := newTestProvider(t)

	lc := (&contracts.LaunchConfig{}).
		AddVolumeDevice(contracts.BlockDevice{IsRoot: true, SizeGB: 64}).
		AddVolumeDevice(contracts.BlockDevice{SizeGB: 10}).
		AddEphemeralDevice()
	inst, err := env.p.Compute().Instances.Create(env.ctx, contracts.CreateInstanceRequest{
		Label: "dbs", ImageID: testImage, VMTypeID: "Standard_B1s", LaunchConfig: lc,
	})
	require.NoError(t, err)

	vm, err := env.az.vms.Get(env.ctx, inst.Name)
	require.NoError(t, err)
	sp := vm.Properties.StorageProfile
	assert.Equal(t, int32(64), deref(sp.OSDisk.DiskSizeGB))
	require.Len(t, sp.DataDisks, 1)
	assert.Equal(t, armcompute.DiskCreateOptionTypesEmpty, deref(sp.DataDisks[0].CreateOption))
	assert.Equal(t, int32(10), deref(sp.DataDisks[0].DiskSizeGB))
}

func TestAzureInstances_DeleteRemovesInterfaceAndOSDisk(t *testing.T) {
	env := newTestProvider(t)
	inst := env.launch(t, "web")

	_, err := env.az.disks.Get(env.ctx, inst.Name+osDiskSuffix)
	require.NoError(t, err)

	require.NoError(t, env.p.Compute().Instances.Delete(env.ctx, inst.ID))

	_, err = env.az.vms.Get(env.ctx, inst.Name)
	assert.Error(t, err)
	_, err = env.az.nics.Get(env.ctx, inst.Name+nicSuffix)
	assert.Error(t, err)
	_, err = env.az.disks.Get(env.ctx, inst.Name+osDiskSuffix)
	assert.Error(t, err)

	// deleting twice is not an error
	require.NoError(t, env.p.Compute().Instances.Delete(env.ctx, inst.ID))
}

func TestAzureInstances_PowerOperations(t *testing.T) {
	env := newTestProvider(t)
	inst := env.launch(t, "web")
	instances := env.p.Compute().Instances

	require.NoError(t, instances.Stop(env.ctx, inst.ID))
	got, err := instances.Get(env.ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.InstanceStateStopped, got.State)

	require.NoError(t, instances.Start(env.ctx, inst.ID))
	require.NoError(t, instances.Reboot(env.ctx, inst.Name))
	got, err = instances.Get(env.ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.InstanceStateRunning, got.State)
	assert.Equal(t, []string{"deallocate:" + inst.Name, "start:" + inst.Name, "restart:" + inst.Name}, env.az.vms.calls)

	err = instances.Start(env.ctx, armID(typeVirtualMachines, "missing"))
	assert.True(t, contracts.IsNotFound(err))
}

func TestAzureInstances_ListAndFind(t *testing.T) {
	env := newTestProvider(t)
	for _, label := range []string{"web", "web", "dbs"} {
		env.launch(t, label)
	}

	page, err := env.p.Compute().Instances.List(env.ctx, paging.ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.IsTruncated)

	next, err := env.p.Compute().Instances.List(env.ctx, paging.ListOptions{Limit: 2, Marker: page.Marker})
	require.NoError(t, err)
	assert.Len(t, next.Items, 1)
	assert.False(t, next.IsTruncated)

	found, err := env.p.Compute().Instances.Find(env.ctx, paging.FindOptions{Label: "web"})
	require.NoError(t, err)
	assert.Len(t, found.Items, 2)
}

func TestAzureInstances_SetLabel(t *testing.T) {
	env := newTestProvider(t)
	inst := env.launch(t, "web")

	require.NoError(t, env.p.Compute().Instances.SetLabel(env.ctx, inst.ID, "frontend"))
	got, err := env.p.Compute().Instances.Get(env.ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "frontend", got.Label)

	err = env.p.Compute().Instances.SetLabel(env.ctx, inst.ID, "Not Valid")
	assert.Equal(t, contracts.ErrorTypeInvalidLabel, contracts.TypeOf(err))
}

func TestAzureInstances_FirewallAndFloatingIP(t *testing.T) {
	env := newTestProvider(t)
	inst := env.launch(t, "web")

	fw, err := env.p.Security().VMFirewalls.Create(env.ctx, contracts.CreateVMFirewallRequest{Label: "web-fw", Description: "web"})
	require.NoError(t, err)
	require.NoError(t, env.p.Compute().Instances.AddVMFirewall(env.ctx, inst.ID, fw.ID))

	got, err := env.p.Compute().Instances.Get(env.ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, got.VMFirewallIDs, 1)
	assert.True(t, sameID(fw.ID, got.VMFirewallIDs[0]))

	require.NoError(t, env.p.Compute().Instances.RemoveVMFirewall(env.ctx, inst.ID, fw.ID))
	got, err = env.p.Compute().Instances.Get(env.ctx, inst.ID)
	require.NoError(t, err)
	assert.Empty(t, got.VMFirewallIDs)

	fip, err := env.p.Networking().FloatingIPs.Create(env.ctx, "")
	require.NoError(t, err)
	assert.False(t, fip.InUse())
	require.NoError(t, env.p.Compute().Instances.AddFloatingIP(env.ctx, inst.ID, fip.ID))

	got, err = env.p.Compute().Instances.Get(env.ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{fip.PublicIP}, got.PublicIPs)

	fip, err = env.p.Networking().FloatingIPs.Get(env.ctx, fip.ID)
	require.NoError(t, err)
	assert.True(t, fip.InUse())
	assert.True(t, sameID(inst.ID, fip.InstanceID))
	assert.Equal(t, got.PrivateIPs[0], fip.PrivateIP)

	// a floating IP in use cannot move to another instance
	other := env.launch(t, "dbs")
	err = env.p.Compute().Instances.AddFloatingIP(env.ctx, other.ID, fip.ID)
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))

	require.NoError(t, env.p.Compute().Instances.RemoveFloatingIP(env.ctx, inst.ID, fip.ID))
	fip, err = env.p.Networking().FloatingIPs.Get(env.ctx, fip.ID)
	require.NoError(t, err)
	assert.False(t, fip.InUse())
}

func TestAzureInstances_CreateImage(t *testing.T) {
	env := newTestProvider(t)
	inst := env.launch(t, "web")

	img, err := env.p.Compute().Instances.CreateImage(env.ctx, inst.ID, "golden")
	require.NoError(t, err)
	assert.Equal(t, "golden", img.Label)
	assert.Equal(t, contracts.MachineImageStateAvailable, img.State)
	assert.True(t, env.az.vms.generalized[inst.Name])

	got, err := env.p.Compute().Images.Get(env.ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.Name, got.Name)

	// the image boots new instances by ID
	fromImage, err := env.p.Compute().Instances.Create(env.ctx, contracts.CreateInstanceRequest{
		Label: "clone", ImageID: img.ID, VMTypeID: "Standard_B1s",
	})
	require.NoError(t, err)
	assert.True(t, sameID(img.ID, fromImage.ImageID))

	require.NoError(t, env.p.Compute().Images.Delete(env.ctx, img.ID))
	_, err = env.p.Compute().Images.Get(env.ctx, img.ID)
	assert.True(t, contracts.IsNotFound(err))
}

func TestAzureVolumes_AttachDetach(t *testing.T) {
	env := newTestProvider(t)
	inst := env.launch(t, "web")
	volumes := env.p.Storage().Volumes

	vol, err := volumes.Create(env.ctx, contracts.CreateVolumeRequest{Label: "data", SizeGB: 20, Description: "scratch"})
	require.NoError(t, err)
	assert.Equal(t, 20, vol.SizeGB)
	assert.Equal(t, "scratch", vol.Description)
	assert.Equal(t, contracts.VolumeStateAvailable, vol.State)

	require.NoError(t, volumes.Attach(env.ctx, vol.ID, inst.ID, "lun3"))
	vol, err = volumes.Get(env.ctx, vol.ID)
	require.NoError(t, err)
	require.NotNil(t, vol.Attachment)
	assert.Equal(t, contracts.VolumeStateInUse, vol.State)
	assert.True(t, sameID(inst.ID, vol.Attachment.InstanceID))

	vm, err := env.az.vms.Get(env.ctx, inst.Name)
	require.NoError(t, err)
	require.Len(t, vm.Properties.StorageProfile.DataDisks, 1)
	assert.Equal(t, int32(3), deref(vm.Properties.StorageProfile.DataDisks[0].Lun))

	err = volumes.Attach(env.ctx, vol.ID, inst.ID, "")
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))

	require.NoError(t, volumes.Detach(env.ctx, vol.ID))
	vol, err = volumes.Get(env.ctx, vol.ID)
	require.NoError(t, err)
	assert.Nil(t, vol.Attachment)
	assert.Equal(t, contracts.VolumeStateAvailable, vol.State)

	// detaching a free volume is a no-op
	require.NoError(t, volumes.Detach(env.ctx, vol.ID))
}

func TestAzureVolumes_FreeLUN(t *testing.T) {
	lun, err := freeLUN([]*armcompute.DataDisk{{Lun: to.Ptr[int32](0)}, {Lun: to.Ptr[int32](2)}})
	require.NoError(t, err)
	assert.Equal(t, int32(1), lun)

	full := make([]*armcompute.DataDisk, 0, maxLUN+1)
	for i := int32(0); i <= maxLUN; i++ {
		full = append(full, &armcompute.DataDisk{Lun: to.Ptr(i)})
	}
	_, err = freeLUN(full)
	assert.Error(t, err)

	for device, want := range map[string]int32{"4": 4, "lun7": 7} {
		got, ok := parseLUN(device)
		assert.True(t, ok, device)
		assert.Equal(t, want, got, device)
	}
	_, ok := parseLUN("/dev/sdc")
	assert.False(t, ok)
}

func TestAzureVolumes_CreateRequiresSize(t *testing.T) {
	env := newTestProvider(t)

	_, err := env.p.Storage().Volumes.Create(env.ctx, contracts.CreateVolumeRequest{Label: "data"})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))
}

func TestAzureSnapshots_RoundTrip(t *testing.T) {
	env := newTestProvider(t)
	vol, err := env.p.Storage().Volumes.Create(env.ctx, contracts.CreateVolumeRequest{Label: "data", SizeGB: 8})
	require.NoError(t, err)

	snap, err := env.p.Storage().Volumes.CreateSnapshot(env.ctx, vol.ID, "nightly", "before upgrade")
	require.NoError(t, err)
	assert.Equal(t, "nightly", snap.Label)
	assert.Equal(t, "before upgrade", snap.Description)
	assert.True(t, sameID(vol.ID, snap.VolumeID))
	assert.Equal(t, 8, snap.SizeGB)
	assert.Equal(t, contracts.SnapshotStateAvailable, snap.State)

	restored, err := env.p.Storage().Snapshots.CreateVolume(env.ctx, snap.ID, 0, "")
	require.NoError(t, err)
	assert.True(t, sameID(snap.ID, restored.SourceSnapshotID))
	assert.Equal(t, 8, restored.SizeGB)
	assert.Equal(t, "nightly", restored.Label)

	found, err := env.p.Storage().Snapshots.Find(env.ctx, paging.FindOptions{Label: "nightly"})
	require.NoError(t, err)
	assert.Len(t, found.Items, 1)

	require.NoError(t, env.p.Storage().Snapshots.Delete(env.ctx, snap.ID))
	_, err = env.p.Storage().Snapshots.Get(env.ctx, snap.ID)
	assert.True(t, contracts.IsNotFound(err))
}

func TestAzureNetworks_SubnetsAndLabels(t *testing.T) {
	env := newTestProvider(t)
	networking := env.p.Networking()

	_, err := networking.Networks.Create(env.ctx, contracts.CreateNetworkRequest{Label: "app"})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))

	net, err := networking.Networks.Create(env.ctx, contracts.CreateNetworkRequest{Label: "app", CIDR: "10.1.0.0/16"})
	require.NoError(t, err)
	assert.Equal(t, "10.1.0.0/16", net.CIDR)
	assert.Equal(t, contracts.NetworkStateAvailable, net.State)

	sn, err := networking.Subnets.Create(env.ctx, contracts.CreateSubnetRequest{NetworkID: net.ID, Label: "front", CIDR: "10.1.1.0/24"})
	require.NoError(t, err)
	assert.Equal(t, "front", sn.Label)
	assert.Equal(t, net.ID, sn.NetworkID)

	_, err = networking.Subnets.Create(env.ctx, contracts.CreateSubnetRequest{NetworkID: net.ID, Label: "out", CIDR: "192.168.0.0/24"})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))

	subnets, err := networking.Networks.Subnets(env.ctx, net.ID)
	require.NoError(t, err)
	require.Len(t, subnets, 1)
	assert.Equal(t, sn.ID, subnets[0].ID)

	// subnet labels live in network tags and stay out of the network's own tags
	require.NoError(t, networking.Subnets.SetLabel(env.ctx, sn.ID, "edge"))
	sn, err = networking.Subnets.Get(env.ctx, sn.ID)
	require.NoError(t, err)
	assert.Equal(t, "edge", sn.Label)
	net, err = networking.Networks.Get(env.ctx, net.ID)
	require.NoError(t, err)
	assert.Equal(t, "app", net.Label)
	for key := range net.Tags {
		assert.False(t, strings.HasPrefix(key, subnetLabelPrefix), key)
	}

	require.NoError(t, networking.Subnets.Delete(env.ctx, sn.ID))
	_, err = networking.Subnets.Get(env.ctx, sn.ID)
	assert.True(t, contracts.IsNotFound(err))

	require.NoError(t, networking.Networks.Delete(env.ctx, net.ID))
	_, err = networking.Networks.Get(env.ctx, net.ID)
	assert.True(t, contracts.IsNotFound(err))
}

func TestAzureSubnets_GetOrCreateDefaultIsIdempotent(t *testing.T) {
	env := newTestProvider(t)

	first, err := env.p.Networking().Subnets.GetOrCreateDefault(env.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, common.DefaultSubnetCIDR(0), first.CIDR)

	second, err := env.p.Networking().Subnets.GetOrCreateDefault(env.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	vnets, err := env.az.vnets.List(env.ctx)
	require.NoError(t, err)
	assert.Len(t, vnets, 1)
}

func TestAzureRouters_SubnetsAndGateway(t *testing.T) {
	env := newTestProvider(t)
	networking := env.p.Networking()

	net, err := networking.Networks.Create(env.ctx, contracts.CreateNetworkRequest{Label: "app", CIDR: "10.1.0.0/16"})
	require.NoError(t, err)
	sn, err := networking.Subnets.Create(env.ctx, contracts.CreateSubnetRequest{NetworkID: net.ID, Label: "front", CIDR: "10.1.1.0/24"})
	require.NoError(t, err)

	router, err := networking.Routers.Create(env.ctx, contracts.CreateRouterRequest{Label: "edge", NetworkID: net.ID})
	require.NoError(t, err)
	assert.Equal(t, net.ID, router.NetworkID)
	assert.Equal(t, contracts.RouterStateDetached, router.State)

	require.NoError(t, networking.Routers.AttachSubnet(env.ctx, router.ID, sn.ID))
	router, err = networking.Routers.Get(env.ctx, router.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.RouterStateAttached, router.State)
	require.Len(t, router.SubnetIDs, 1)
	assert.True(t, sameID(sn.ID, router.SubnetIDs[0]))

	gw, err := networking.Gateways.GetOrCreate(env.ctx, net.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.GatewayStateAvailable, gw.State)
	assert.Equal(t, net.ID, gw.NetworkID)

	other, err := networking.Gateways.GetOrCreate(env.ctx, env.launchNetwork(t))
	require.NoError(t, err)
	err = networking.Routers.AttachGateway(env.ctx, router.ID, other.ID)
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))

	require.NoError(t, networking.Routers.AttachGateway(env.ctx, router.ID, gw.ID))
	router, err = networking.Routers.Get(env.ctx, router.ID)
	require.NoError(t, err)
	assert.Equal(t, gw.ID, router.GatewayID)

	require.NoError(t, networking.Routers.DetachGateway(env.ctx, router.ID, gw.ID))
	require.NoError(t, networking.Routers.DetachGateway(env.ctx, router.ID, gw.ID))
	router, err = networking.Routers.Get(env.ctx, router.ID)
	require.NoError(t, err)
	assert.Empty(t, router.GatewayID)

	require.NoError(t, networking.Routers.DetachSubnet(env.ctx, router.ID, sn.ID))
	router, err = networking.Routers.Get(env.ctx, router.ID)
	require.NoError(t, err)
	assert.Empty(t, router.SubnetIDs)

	// gateways have no resource of their own
	require.NoError(t, networking.Gateways.Delete(env.ctx, net.ID, gw.ID))
	require.NoError(t, networking.Routers.Delete(env.ctx, router.ID))
}

func (e *testEnv) launchNetwork(t *testing.T) string {
	t.Helper()
	net, err := e.p.Networking().Networks.Create(e.ctx, contracts.CreateNetworkRequest{Label: "other", CIDR: "10.9.0.0/16"})
	require.NoError(t, err)
	return net.ID
}

func TestAzureFloatingIPs(t *testing.T) {
	env := newTestProvider(t)
	fips := env.p.Networking().FloatingIPs

	_, err := fips.Create(env.ctx, "not-a-gateway")
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))

	fip, err := fips.Create(env.ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, fip.PublicIP)

	list, err := fips.List(env.ctx, paging.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, fip.ID, list.Items[0].ID)

	require.NoError(t, fips.Delete(env.ctx, fip.ID))
	require.NoError(t, fips.Delete(env.ctx, fip.ID))
	_, err = fips.Get(env.ctx, fip.ID)
	assert.True(t, contracts.IsNotFound(err))
}

func TestAzureKeyPairs(t *testing.T) {
	env := newTestProvider(t)
	keys := env.p.Security().KeyPairs

	kp, err := keys.Create(env.ctx, contracts.CreateKeyPairRequest{Name: "deploy"})
	require.NoError(t, err)
	assert.NotEmpty(t, kp.PrivateKey)
	assert.NotEmpty(t, kp.Fingerprint)
	assert.True(t, strings.HasPrefix(kp.PublicKey, "ssh-"))

	_, err = keys.Create(env.ctx, contracts.CreateKeyPairRequest{Name: "deploy"})
	assert.True(t, contracts.IsDuplicate(err))

	got, err := keys.Get(env.ctx, "deploy")
	require.NoError(t, err)
	assert.Empty(t, got.PrivateKey)
	assert.Equal(t, kp.Fingerprint, got.Fingerprint)

	// instances launched with the key carry its public half
	inst, err := env.p.Compute().Instances.Create(env.ctx, contracts.CreateInstanceRequest{
		Label: "web", ImageID: testImage, VMTypeID: "Standard_B1s", KeyPairName: "deploy",
	})
	require.NoError(t, err)
	assert.Equal(t, "deploy", inst.KeyPairID)
	vm, err := env.az.vms.Get(env.ctx, inst.Name)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, deref(vm.Properties.OSProfile.LinuxConfiguration.SSH.PublicKeys[0].KeyData))

	require.NoError(t, keys.Delete(env.ctx, "deploy"))
	require.NoError(t, keys.Delete(env.ctx, "deploy"))
}

func TestAzureFirewallRules(t *testing.T) {
	env := newTestProvider(t)
	firewalls := env.p.Security().VMFirewalls

	fw, err := firewalls.Create(env.ctx, contracts.CreateVMFirewallRequest{Label: "web", Description: "web tier"})
	require.NoError(t, err)
	assert.Equal(t, "web tier", fw.Description)

	ssh, err := firewalls.Rules().Create(env.ctx, fw.ID, contracts.CreateFirewallRuleRequest{FromPort: 22, ToPort: 22})
	require.NoError(t, err)
	assert.Equal(t, contracts.TrafficInbound, ssh.Direction)
	assert.Equal(t, contracts.ProtocolTCP, ssh.Protocol)
	assert.Equal(t, common.AnyIPv4, ssh.CIDR)

	_, err = firewalls.Rules().Create(env.ctx, fw.ID, contracts.CreateFirewallRuleRequest{Protocol: contracts.ProtocolTCP, FromPort: 22, ToPort: 22, CIDR: "0.0.0.0/0"})
	assert.True(t, contracts.IsDuplicate(err))

	_, err = firewalls.Rules().Create(env.ctx, fw.ID, contracts.CreateFirewallRuleRequest{FromPort: 80, ToPort: 80, SourceFirewallID: fw.ID})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))

	web, err := firewalls.Rules().Create(env.ctx, fw.ID, contracts.CreateFirewallRuleRequest{FromPort: 8000, ToPort: 8080, CIDR: "10.0.0.0/8"})
	require.NoError(t, err)
	assert.Equal(t, 8000, web.FromPort)
	assert.Equal(t, 8080, web.ToPort)

	out, err := firewalls.Rules().Create(env.ctx, fw.ID, contracts.CreateFirewallRuleRequest{Direction: contracts.TrafficOutbound, Protocol: contracts.ProtocolAll})
	require.NoError(t, err)
	assert.Equal(t, contracts.TrafficOutbound, out.Direction)

	rule, err := env.az.rules.Get(env.ctx, fw.Name, "cb-rule-110")
	require.NoError(t, err)
	assert.Equal(t, int32(110), deref(rule.Properties.Priority))
	_, err = env.az.rules.Get(env.ctx, fw.Name, "cb-rule-out-100")
	require.NoError(t, err)

	rules, err := firewalls.Rules().List(env.ctx, fw.ID, paging.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, rules.Items, 3)

	require.NoError(t, firewalls.Rules().Delete(env.ctx, fw.ID, ssh.ID))
	err = firewalls.Rules().Delete(env.ctx, armID(typeSecurityGroups, "other"), web.ID)
	assert.True(t, contracts.IsNotFound(err))

	fw, err = firewalls.Get(env.ctx, fw.ID)
	require.NoError(t, err)
	assert.Len(t, fw.Rules, 2)
}

func TestAzurePortRange(t *testing.T) {
	assert.Equal(t, "*", portRange(0, 0))
	assert.Equal(t, "*", portRange(1, 65535))
	assert.Equal(t, "22", portRange(22, 22))
	assert.Equal(t, "80-90", portRange(80, 90))

	from, until := parsePortRange("*")
	assert.Zero(t, from)
	assert.Zero(t, until)
	from, until = parsePortRange("80-90")
	assert.Equal(t, 80, from)
	assert.Equal(t, 90, until)
}

func TestAzureBuckets_Objects(t *testing.T) {
	env := newTestProvider(t)
	buckets := env.p.Storage().Buckets

	_, err := buckets.Create(env.ctx, "has.dots", "")
	assert.Equal(t, contracts.ErrorTypeInvalidName, contracts.TypeOf(err))

	b, err := buckets.Create(env.ctx, "artifacts", "westus")
	require.NoError(t, err)
	assert.Equal(t, "artifacts", b.Name)
	assert.Equal(t, "eastus", b.Location)

	_, err = buckets.Create(env.ctx, "artifacts", "")
	assert.True(t, contracts.IsDuplicate(err))

	objects := buckets.Objects()
	obj, err := objects.Upload(env.ctx, b.ID, "logs/app.log", strings.NewReader("hello azure"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), obj.Size)

	_, err = objects.Upload(env.ctx, b.ID, "data/one.bin", strings.NewReader("1"))
	require.NoError(t, err)

	logs, err := objects.List(env.ctx, b.ID, "logs/", paging.ListOptions{})
	require.NoError(t, err)
	require.Len(t, logs.Items, 1)
	assert.Equal(t, "logs/app.log", logs.Items[0].Name)

	var buf bytes.Buffer
	require.NoError(t, objects.Download(env.ctx, b.ID, "logs/app.log", &buf))
	assert.Equal(t, "hello azure", buf.String())

	err = objects.Download(env.ctx, b.ID, "missing", &buf)
	assert.True(t, contracts.IsNotFound(err))

	require.NoError(t, objects.Delete(env.ctx, b.ID, "logs/app.log"))
	_, err = objects.Get(env.ctx, b.ID, "logs/app.log")
	assert.True(t, contracts.IsNotFound(err))

	require.NoError(t, buckets.Delete(env.ctx, b.ID))
	require.NoError(t, buckets.Delete(env.ctx, b.ID))
}

func TestAzureBuckets_RequireStorageAccount(t *testing.T) {
	p := NewWithClients(config.DefaultConfig(), &Clients{})

	_, err := p.Storage().Buckets.List(context.Background(), paging.ListOptions{})
	assert.True(t, contracts.IsNotSupported(err))
}

func TestAzureDNS_ZonesAndRecords(t *testing.T) {
	env := newTestProvider(t)
	zones := env.p.DNS().Zones
	records := env.p.DNS().Records

	zone, err := zones.Create(env.ctx, contracts.CreateDNSZoneRequest{Name: "Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "example.com.", zone.Name)
	assert.Equal(t, "hostmaster@example.com", zone.AdminEmail)

	_, err = zones.Create(env.ctx, contracts.CreateDNSZoneRequest{Name: "example.com."})
	assert.True(t, contracts.IsDuplicate(err))

	found, err := zones.Find(env.ctx, paging.FindOptions{Name: "EXAMPLE.com"})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)

	www, err := records.Create(env.ctx, zone.ID, contracts.CreateDNSRecordRequest{Name: "www", Type: contracts.DNSRecordA, Data: []string{"10.0.0.1", "10.0.0.2"}})
	require.NoError(t, err)
	assert.Equal(t, "www.example.com.", www.Name)
	assert.Equal(t, common.RecordID("www.example.com.", contracts.DNSRecordA), www.ID)
	assert.Equal(t, common.DefaultRecordTTL, www.TTL)
	assert.ElementsMatch(t, []string{"10.0.0.1", "10.0.0.2"}, www.Data)

	_, err = records.Create(env.ctx, zone.ID, contracts.CreateDNSRecordRequest{Name: "www", Type: contracts.DNSRecordA, Data: []string{"10.0.0.3"}})
	assert.True(t, contracts.IsDuplicate(err))

	mx, err := records.Create(env.ctx, zone.Name, contracts.CreateDNSRecordRequest{Name: "example.com.", Type: contracts.DNSRecordMX, Data: []string{"10 mail.example.com."}, TTL: 600})
	require.NoError(t, err)
	assert.Equal(t, "example.com.", mx.Name)
	assert.Equal(t, []string{"10 mail.example.com."}, mx.Data)
	assert.Equal(t, 600, mx.TTL)

	_, err = records.Create(env.ctx, zone.ID, contracts.CreateDNSRecordRequest{Name: "alias", Type: contracts.DNSRecordCNAME, Data: []string{"a.example.com.", "b.example.com."}})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))

	_, err = records.Create(env.ctx, zone.ID, contracts.CreateDNSRecordRequest{Name: "spf", Type: contracts.DNSRecordSPF, Data: []string{"v=spf1 -all"}})
	assert.True(t, contracts.IsNotSupported(err))

	list, err := records.List(env.ctx, zone.ID, paging.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)

	require.NoError(t, records.Delete(env.ctx, zone.ID, www.ID))
	_, err = records.Get(env.ctx, zone.ID, www.ID)
	assert.True(t, contracts.IsNotFound(err))

	require.NoError(t, zones.Delete(env.ctx, zone.ID))
	_, err = zones.Get(env.ctx, zone.ID)
	assert.True(t, contracts.IsNotFound(err))
}
