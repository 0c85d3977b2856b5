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
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	defaultVMUser = "cbuser"
	// keyPairTag records the key pair an instance was launched with
	keyPairTag = "KeyPair"
	// instanceTag names the instance a network interface was created for
	instanceTag  = "Instance"
	nicSuffix    = "-nic"
	osDiskSuffix = "-osdisk"
	ipConfigName = "ipconfig1"
	powerPrefix  = "PowerState/"
)

type instanceService struct{ p *Provider }

// nicIndex holds the network interfaces and public addresses that
// instances refer to, keyed by lowercased ARM ID
type nicIndex struct {
	nics map[string]*armnetwork.Interface
	ips  map[string]*armnetwork.PublicIPAddress
}

func idKey(id string) string { return strings.ToLower(id) }

func newNICIndex() *nicIndex {
	return &nicIndex{
		nics: make(map[string]*armnetwork.Interface),
		ips:  make(map[string]*armnetwork.PublicIPAddress),
	}
}

// indexAll loads every interface and public address of the resource group
func (p *Provider) indexAll(ctx context.Context) (*nicIndex, error) {
	return common.Call(ctx, p.caller, contracts.ServiceInstances, "list_interfaces", "", func(ctx context.Context) (*nicIndex, error) {
		idx := newNICIndex()
		nics, err := p.clients.Interfaces.List(ctx)
		if err != nil {
			return nil, err
		}
		ips, err := p.clients.PublicIPs.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, nic := range nics {
			idx.nics[idKey(deref(nic.ID))] = nic
		}
		for _, ip := range ips {
			idx.ips[idKey(deref(ip.ID))] = ip
		}
		return idx, nil
	})
}

// indexOf loads the interfaces and public addresses of one VM
func (p *Provider) indexOf(ctx context.Context, vm *armcompute.VirtualMachine) (*nicIndex, error) {
	return common.Call(ctx, p.caller, contracts.ServiceInstances, "get_interfaces", deref(vm.Name), func(ctx context.Context) (*nicIndex, error) {
		idx := newNICIndex()
		for _, nicID := range nicIDs(vm) {
			nic, err := p.clients.Interfaces.Get(ctx, nameOf(nicID))
			if err != nil {
				return nil, err
			}
			idx.nics[idKey(nicID)] = nic
			for _, cfg := range ipConfigs(nic) {
				if cfg.Properties.PublicIPAddress == nil {
					continue
				}
				ipID := deref(cfg.Properties.PublicIPAddress.ID)
				ip, err := p.clients.PublicIPs.Get(ctx, nameOf(ipID))
				if err != nil {
					return nil, err
				}
				idx.ips[idKey(ipID)] = ip
			}
		}
		return idx, nil
	})
}

func nicIDs(vm *armcompute.VirtualMachine) []string {
	if vm.Properties == nil || vm.Properties.NetworkProfile == nil {
		return nil
	}
	var ids []string
	for _, ref := range vm.Properties.NetworkProfile.NetworkInterfaces {
		if id := deref(ref.ID); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// ipConfigs returns the IP configurations of a NIC that have properties
func ipConfigs(nic *armnetwork.Interface) []*armnetwork.InterfaceIPConfiguration {
	if nic.Properties == nil {
		return nil
	}
	var out []*armnetwork.InterfaceIPConfiguration
	for _, cfg := range nic.Properties.IPConfigurations {
		if cfg.Properties != nil {
			out = append(out, cfg)
		}
	}
	return out
}

// primaryIPConfig returns the primary IP configuration of a NIC
func primaryIPConfig(nic *armnetwork.Interface) *armnetwork.InterfaceIPConfiguration {
	cfgs := ipConfigs(nic)
	for _, cfg := range cfgs {
		if deref(cfg.Properties.Primary) {
			return cfg
		}
	}
	if len(cfgs) > 0 {
		return cfgs[0]
	}
	return nil
}

func instanceState(vm *armcompute.VirtualMachine) contracts.InstanceState {
	props := vm.Properties
	if props == nil {
		return contracts.InstanceStateUnknown
	}
	if props.InstanceView != nil {
		for _, status := range props.InstanceView.Statuses {
			if code := deref(status.Code); strings.HasPrefix(code, powerPrefix) {
				return powerStates.Lookup(strings.TrimPrefix(code, powerPrefix))
			}
		}
	}
	return vmProvisioningStates.Lookup(deref(props.ProvisioningState))
}

// imageRefString renders an image reference as an image ID or a
// publisher:offer:sku:version URN
func imageRefString(ref *armcompute.ImageReference) string {
	if id := deref(ref.ID); id != "" {
		return id
	}
	return strings.Join([]string{deref(ref.Publisher), deref(ref.Offer), deref(ref.SKU), deref(ref.Version)}, ":")
}

func (p *Provider) toInstance(vm *armcompute.VirtualMachine, idx *nicIndex) *contracts.Instance {
	inst := &contracts.Instance{
		Resource: resource(vm.ID, vm.Name, vm.Tags),
		State:    instanceState(vm),
		ZoneID:   deref(vm.Location),
	}
	if len(vm.Zones) > 0 {
		inst.ZoneID = deref(vm.Zones[0])
	}
	inst.KeyPairID = inst.Tags[keyPairTag]

	props := vm.Properties
	if props == nil {
		return inst
	}
	inst.CreateTime = timeOf(props.TimeCreated)
	if props.HardwareProfile != nil {
		inst.VMTypeID = string(deref(props.HardwareProfile.VMSize))
	}
	if props.StorageProfile != nil && props.StorageProfile.ImageReference != nil {
		inst.ImageID = imageRefString(props.StorageProfile.ImageReference)
	}
	for _, nicID := range nicIDs(vm) {
		nic := idx.nics[idKey(nicID)]
		if nic == nil || nic.Properties == nil {
			continue
		}
		if nsg := nic.Properties.NetworkSecurityGroup; nsg != nil && deref(nsg.ID) != "" {
			inst.VMFirewallIDs = append(inst.VMFirewallIDs, deref(nsg.ID))
		}
		for _, cfg := range ipConfigs(nic) {
			if ip := deref(cfg.Properties.PrivateIPAddress); ip != "" {
				inst.PrivateIPs = append(inst.PrivateIPs, ip)
			}
			if inst.SubnetID == "" && cfg.Properties.Subnet != nil {
				inst.SubnetID = deref(cfg.Properties.Subnet.ID)
			}
			if ref := cfg.Properties.PublicIPAddress; ref != nil {
				if ip := idx.ips[idKey(deref(ref.ID))]; ip != nil && ip.Properties != nil {
					if addr := deref(ip.Properties.IPAddress); addr != "" {
						inst.PublicIPs = append(inst.PublicIPs, addr)
					}
				}
			}
		}
	}
	return inst
}

func (s *instanceService) fetch(ctx context.Context, id string) (*armcompute.VirtualMachine, error) {
	name, err := s.p.ref(id, typeVirtualMachines)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceInstances, "get", name, func(ctx context.Context) (*armcompute.VirtualMachine, error) {
		return s.p.clients.VirtualMachines.Get(ctx, name)
	})
}

func (s *instanceService) Get(ctx context.Context, id string) (*contracts.Instance, error) {
	vm, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	idx, err := s.p.indexOf(ctx, vm)
	if err != nil {
		return nil, err
	}
	return s.p.toInstance(vm, idx), nil
}

// List pages client-side; ARM list calls cannot resume from a marker
func (s *instanceService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Instance], error) {
	vms, err := common.Call(ctx, s.p.caller, contracts.ServiceInstances, "list", "", func(ctx context.Context) ([]*armcompute.VirtualMachine, error) {
		return s.p.clients.VirtualMachines.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	idx, err := s.p.indexAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*contracts.Instance, 0, len(vms))
	for _, vm := range vms {
		out = append(out, s.p.toInstance(vm, idx))
	}
	return common.Page(out, opts), nil
}

func (s *instanceService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Instance], error) {
	return common.FindAll(ctx, s.List, opts)
}

// imageReference accepts a custom image ID or name and marketplace
// publisher:offer:sku:version URNs
func (p *Provider) imageReference(id string) (*armcompute.ImageReference, error) {
	if parts := strings.Split(id, ":"); len(parts) == 4 {
		return &armcompute.ImageReference{
			Publisher: to.Ptr(parts[0]),
			Offer:     to.Ptr(parts[1]),
			SKU:       to.Ptr(parts[2]),
			Version:   to.Ptr(parts[3]),
		}, nil
	}
	name, err := p.ref(id, typeImages)
	if err != nil {
		return nil, err
	}
	return &armcompute.ImageReference{ID: to.Ptr(p.resourceID(typeImages, name))}, nil
}

func (s *instanceService) Create(ctx context.Context, req contracts.CreateInstanceRequest) (*contracts.Instance, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	if req.VMTypeID == "" {
		return nil, contracts.NewInvalidValueError("a VM size is required", nil)
	}
	if len(req.VMFirewallIDs) > 1 {
		return nil, contracts.NewInvalidValueError("Azure network interfaces take a single VM firewall", nil)
	}
	image, err := s.p.imageReference(req.ImageID)
	if err != nil {
		return nil, err
	}
	osDisk, dataDisks, err := s.disks(name, req.LaunchConfig)
	if err != nil {
		return nil, err
	}
	publicKey, err := s.publicKey(ctx, req.KeyPairName)
	if err != nil {
		return nil, err
	}

	subnetID := req.SubnetID
	if subnetID == "" {
		sn, err := s.p.networking.Subnets.GetOrCreateDefault(ctx, req.Zone)
		if err != nil {
			return nil, err
		}
		subnetID = sn.ID
	}
	vnet, subnet, err := s.p.childRef(subnetID, typeSubnets)
	if err != nil {
		return nil, err
	}

	ipConfig := &armnetwork.InterfaceIPConfigurationPropertiesFormat{
		Subnet:                    &armnetwork.Subnet{ID: to.Ptr(s.p.childID(typeSubnets, vnet, subnet))},
		PrivateIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodDynamic),
		Primary:                   to.Ptr(true),
	}
	nic := armnetwork.Interface{
		Location: to.Ptr(s.p.region),
		Tags:     tagsOf("", map[string]string{instanceTag: name}),
		Properties: &armnetwork.InterfacePropertiesFormat{
			IPConfigurations: []*armnetwork.InterfaceIPConfiguration{{Name: to.Ptr(ipConfigName), Properties: ipConfig}},
		},
	}
	if len(req.VMFirewallIDs) == 1 {
		fw, err := s.p.ref(req.VMFirewallIDs[0], typeSecurityGroups)
		if err != nil {
			return nil, err
		}
		nic.Properties.NetworkSecurityGroup = &armnetwork.SecurityGroup{ID: to.Ptr(s.p.resourceID(typeSecurityGroups, fw))}
	}
	nicName := name + nicSuffix
	createdNIC, err := common.Call(ctx, s.p.caller, contracts.ServiceInstances, "create_interface", nicName, func(ctx context.Context) (*armnetwork.Interface, error) {
		return s.p.clients.Interfaces.CreateOrUpdate(ctx, nicName, nic)
	})
	if err != nil {
		return nil, err
	}

	osProfile := &armcompute.OSProfile{
		ComputerName:  to.Ptr(name),
		AdminUsername: to.Ptr(s.p.vmUser),
		LinuxConfiguration: &armcompute.LinuxConfiguration{
			DisablePasswordAuthentication: to.Ptr(true),
			SSH: &armcompute.SSHConfiguration{PublicKeys: []*armcompute.SSHPublicKey{{
				Path:    to.Ptr(fmt.Sprintf("/home/%s/.ssh/authorized_keys", s.p.vmUser)),
				KeyData: to.Ptr(publicKey),
			}}},
		},
	}
	if req.UserData != "" {
		osProfile.CustomData = to.Ptr(base64.StdEncoding.EncodeToString([]byte(req.UserData)))
	}
	vm := armcompute.VirtualMachine{
		Location: to.Ptr(s.p.region),
		Zones:    s.p.zoneOf(req.Zone),
		Tags:     tagsOf(req.Label, map[string]string{keyPairTag: req.KeyPairName}),
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: &armcompute.HardwareProfile{VMSize: to.Ptr(armcompute.VirtualMachineSizeTypes(req.VMTypeID))},
			StorageProfile: &armcompute.StorageProfile{
				ImageReference: image,
				OSDisk:         osDisk,
				DataDisks:      dataDisks,
			},
			OSProfile: osProfile,
			NetworkProfile: &armcompute.NetworkProfile{NetworkInterfaces: []*armcompute.NetworkInterfaceReference{{
				ID:         createdNIC.ID,
				Properties: &armcompute.NetworkInterfaceReferenceProperties{Primary: to.Ptr(true)},
			}}},
		},
	}
	created, err := common.Call(ctx, s.p.caller, contracts.ServiceInstances, "create", name, func(ctx context.Context) (*armcompute.VirtualMachine, error) {
		return s.p.clients.VirtualMachines.CreateOrUpdate(ctx, name, vm)
	})
	if err != nil {
		cleanupErr := s.p.do(ctx, contracts.ServiceInstances, "delete_interface", nicName, func(ctx context.Context) error {
			return s.p.clients.Interfaces.Delete(ctx, nicName)
		})
		if cleanupErr != nil {
			logging.FromContext(ctx).Error(cleanupErr, "Failed to remove network interface of failed instance", "interface", nicName)
		}
		return nil, err
	}
	return s.Get(ctx, deref(created.ID))
}

// disks translates a launch configuration into the OS disk and data disks
// of a VM. Ephemeral devices map to the resource disk every size carries.
func (s *instanceService) disks(name string, lc *contracts.LaunchConfig) (*armcompute.OSDisk, []*armcompute.DataDisk, error) {
	osDisk := &armcompute.OSDisk{
		Name:         to.Ptr(name + osDiskSuffix),
		CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesFromImage),
		ManagedDisk:  &armcompute.ManagedDiskParameters{StorageAccountType: to.Ptr(armcompute.StorageAccountTypesStandardLRS)},
		DeleteOption: to.Ptr(armcompute.DiskDeleteOptionTypesDelete),
	}
	if lc == nil {
		return osDisk, nil, nil
	}
	var data []*armcompute.DataDisk
	for _, dev := range lc.BlockDevices {
		lun := to.Ptr(int32(len(data)))
		switch {
		case dev.Ephemeral:
			continue
		case dev.IsRoot:
			if dev.SourceVolumeID != "" || dev.SourceSnapshotID != "" {
				return nil, nil, contracts.NewInvalidValueError("Azure instances boot from images only", nil)
			}
			if dev.SizeGB > 0 {
				osDisk.DiskSizeGB = to.Ptr(int32(dev.SizeGB))
			}
		case dev.SourceVolumeID != "":
			vol, err := s.p.ref(dev.SourceVolumeID, typeDisks)
			if err != nil {
				return nil, nil, err
			}
			data = append(data, &armcompute.DataDisk{
				Lun:          lun,
				Name:         to.Ptr(vol),
				CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesAttach),
				ManagedDisk:  &armcompute.ManagedDiskParameters{ID: to.Ptr(s.p.resourceID(typeDisks, vol))},
			})
		case dev.SourceSnapshotID != "" || dev.SourceImageID != "":
			return nil, nil, contracts.NewInvalidValueError("data disks are created empty or from existing volumes; restore snapshots into a volume first", nil)
		default:
			if dev.SizeGB <= 0 {
				return nil, nil, contracts.NewInvalidValueError("a new data disk needs a size", nil)
			}
			deleteOption := armcompute.DiskDeleteOptionTypesDetach
			if dev.DeleteOnTerminate {
				deleteOption = armcompute.DiskDeleteOptionTypesDelete
			}
			data = append(data, &armcompute.DataDisk{
				Lun:          lun,
				Name:         to.Ptr(fmt.Sprintf("%s-data-%d", name, *lun)),
				CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesEmpty),
				DiskSizeGB:   to.Ptr(int32(dev.SizeGB)),
				ManagedDisk:  &armcompute.ManagedDiskParameters{StorageAccountType: to.Ptr(armcompute.StorageAccountTypesStandardLRS)},
				DeleteOption: to.Ptr(deleteOption),
			})
		}
	}
	return osDisk, data, nil
}

// publicKey returns the key to inject. Azure Linux VMs need one, so a
// throwaway key is generated when no key pair is named.
func (s *instanceService) publicKey(ctx context.Context, keyPair string) (string, error) {
	if keyPair == "" {
		key, err := common.GenerateSSHKey()
		if err != nil {
			return "", err
		}
		return key.PublicKey, nil
	}
	kp, err := s.p.security.KeyPairs.Get(ctx, keyPair)
	if err != nil {
		return "", err
	}
	return kp.PublicKey, nil
}

// Delete removes the VM, then the interfaces and OS disk created with it
func (s *instanceService) Delete(ctx context.Context, id string) error {
	vm, err := s.fetch(ctx, id)
	if err != nil {
		return contracts.IgnoreNotFound(err)
	}
	name := deref(vm.Name)
	err = s.p.do(ctx, contracts.ServiceInstances, "delete", name, func(ctx context.Context) error {
		return s.p.clients.VirtualMachines.Delete(ctx, name)
	})
	if err := contracts.IgnoreNotFound(err); err != nil {
		return err
	}

	var errs []error
	for _, nicID := range nicIDs(vm) {
		nicName := nameOf(nicID)
		errs = append(errs, contracts.IgnoreNotFound(s.p.do(ctx, contracts.ServiceInstances, "delete_interface", nicName, func(ctx context.Context) error {
			return s.p.clients.Interfaces.Delete(ctx, nicName)
		})))
	}
	if vm.Properties == nil {
		return utilerrors.NewAggregate(errs)
	}
	if sp := vm.Properties.StorageProfile; sp != nil && sp.OSDisk != nil && sp.OSDisk.ManagedDisk != nil {
		diskName := nameOf(deref(sp.OSDisk.ManagedDisk.ID))
		if diskName != "" {
			errs = append(errs, contracts.IgnoreNotFound(s.p.do(ctx, contracts.ServiceInstances, "delete_os_disk", diskName, func(ctx context.Context) error {
				return s.p.clients.Disks.Delete(ctx, diskName)
			})))
		}
	}
	return utilerrors.NewAggregate(errs)
}

func (s *instanceService) power(ctx context.Context, operation, id string, call func(ctx context.Context, name string) error) error {
	name, err := s.p.ref(id, typeVirtualMachines)
	if err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceInstances, operation, name, func(ctx context.Context) error {
		return call(ctx, name)
	})
}

func (s *instanceService) Reboot(ctx context.Context, id string) error {
	return s.power(ctx, "reboot", id, s.p.clients.VirtualMachines.Restart)
}

func (s *instanceService) Start(ctx context.Context, id string) error {
	return s.power(ctx, "start", id, s.p.clients.VirtualMachines.Start)
}

// Stop deallocates the VM so that it stops accruing compute charges
func (s *instanceService) Stop(ctx context.Context, id string) error {
	return s.power(ctx, "stop", id, s.p.clients.VirtualMachines.Deallocate)
}

func (s *instanceService) SetLabel(ctx context.Context, id, label string) error {
	return setLabel(ctx, s.p, contracts.ServiceInstances, s.p.clients.VirtualMachines, id, typeVirtualMachines, label,
		func(vm *armcompute.VirtualMachine) *map[string]*string { return &vm.Tags })
}

// editInterface applies edit to the primary interface of a VM
func (s *instanceService) editInterface(ctx context.Context, operation, id string, edit func(nic *armnetwork.Interface, cfg *armnetwork.InterfaceIPConfiguration)) error {
	name, err := s.p.ref(id, typeVirtualMachines)
	if err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceInstances, operation, name, func(ctx context.Context) error {
		vm, err := s.p.clients.VirtualMachines.Get(ctx, name)
		if err != nil {
			return err
		}
		ids := nicIDs(vm)
		if len(ids) == 0 {
			return contracts.NewInvalidValueError(fmt.Sprintf("instance %s has no network interface", name), nil)
		}
		nicName := nameOf(ids[0])
		nic, err := s.p.clients.Interfaces.Get(ctx, nicName)
		if err != nil {
			return err
		}
		cfg := primaryIPConfig(nic)
		if cfg == nil {
			return contracts.NewInvalidValueError(fmt.Sprintf("interface %s has no IP configuration", nicName), nil)
		}
		if nic.Properties == nil {
			nic.Properties = &armnetwork.InterfacePropertiesFormat{}
		}
		edit(nic, cfg)
		_, err = s.p.clients.Interfaces.CreateOrUpdate(ctx, nicName, *nic)
		return err
	})
}

// AddVMFirewall sets the security group of the primary interface. An
// interface has at most one, so an existing one is replaced.
func (s *instanceService) AddVMFirewall(ctx context.Context, id, firewallID string) error {
	fw, err := s.p.security.VMFirewalls.Get(ctx, firewallID)
	if err != nil {
		return err
	}
	return s.editInterface(ctx, "add_firewall", id, func(nic *armnetwork.Interface, _ *armnetwork.InterfaceIPConfiguration) {
		nic.Properties.NetworkSecurityGroup = &armnetwork.SecurityGroup{ID: to.Ptr(fw.ID)}
	})
}

func (s *instanceService) RemoveVMFirewall(ctx context.Context, id, firewallID string) error {
	fw, err := s.p.ref(firewallID, typeSecurityGroups)
	if err != nil {
		return err
	}
	fwID := s.p.resourceID(typeSecurityGroups, fw)
	return s.editInterface(ctx, "remove_firewall", id, func(nic *armnetwork.Interface, _ *armnetwork.InterfaceIPConfiguration) {
		if nsg := nic.Properties.NetworkSecurityGroup; nsg != nil && sameID(deref(nsg.ID), fwID) {
			nic.Properties.NetworkSecurityGroup = nil
		}
	})
}

func (s *instanceService) AddFloatingIP(ctx context.Context, id, floatingIPID string) error {
	fip, err := s.p.networking.FloatingIPs.Get(ctx, floatingIPID)
	if err != nil {
		return err
	}
	if fip.InUse() {
		return contracts.NewInvalidValueError(fmt.Sprintf("floating IP %s is already associated", fip.PublicIP), nil)
	}
	return s.editInterface(ctx, "add_floating_ip", id, func(_ *armnetwork.Interface, cfg *armnetwork.InterfaceIPConfiguration) {
		cfg.Properties.PublicIPAddress = &armnetwork.PublicIPAddress{ID: to.Ptr(fip.ID)}
	})
}

func (s *instanceService) RemoveFloatingIP(ctx context.Context, id, floatingIPID string) error {
	name, err := s.p.ref(floatingIPID, typePublicIPs)
	if err != nil {
		return err
	}
	ipID := s.p.resourceID(typePublicIPs, name)
	return s.editInterface(ctx, "remove_floating_ip", id, func(_ *armnetwork.Interface, cfg *armnetwork.InterfaceIPConfiguration) {
		if ref := cfg.Properties.PublicIPAddress; ref != nil && sameID(deref(ref.ID), ipID) {
			cfg.Properties.PublicIPAddress = nil
		}
	})
}

// CreateImage deallocates and generalizes the VM, then captures it. The
// guest must have been deprovisioned for the image to boot cleanly.
func (s *instanceService) CreateImage(ctx context.Context, id, label string) (*contracts.MachineImage, error) {
	name, err := common.NameFromLabel(label)
	if err != nil {
		return nil, err
	}
	vm, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	vmName := deref(vm.Name)
	for _, step := range []struct {
		operation string
		call      func(ctx context.Context, name string) error
	}{
		{"deallocate", s.p.clients.VirtualMachines.Deallocate},
		{"generalize", s.p.clients.VirtualMachines.Generalize},
	} {
		call := step.call
		if err := s.p.do(ctx, contracts.ServiceInstances, step.operation, vmName, func(ctx context.Context) error {
			return call(ctx, vmName)
		}); err != nil {
			return nil, err
		}
	}
	img, err := common.Call(ctx, s.p.caller, contracts.ServiceImages, "create", name, func(ctx context.Context) (*armcompute.Image, error) {
		return s.p.clients.Images.CreateOrUpdate(ctx, name, armcompute.Image{
			Location: vm.Location,
			Tags:     tagsOf(label, nil),
			Properties: &armcompute.ImageProperties{
				SourceVirtualMachine: &armcompute.SubResource{ID: vm.ID},
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return toImage(img), nil
}

type vmTypeService struct{ p *Provider }

// sizeFamily extracts the series letters: Standard_D2s_v3 -> D
func sizeFamily(size string) string {
	if _, rest, ok := strings.Cut(size, "_"); ok {
		size = rest
	}
	end := strings.IndexFunc(size, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		return size
	}
	return size[:end]
}

func toVMType(size *armcompute.VirtualMachineSize) *contracts.VMType {
	name := deref(size.Name)
	t := &contracts.VMType{
		Resource:             contracts.Resource{ID: name, Name: name},
		Family:               sizeFamily(name),
		VCPUs:                int(deref(size.NumberOfCores)),
		RAMGB:                float64(deref(size.MemoryInMB)) / 1024,
		SizeRootDiskGB:       int(deref(size.OSDiskSizeInMB)) / 1024,
		SizeEphemeralDisksGB: int(deref(size.ResourceDiskSizeInMB)) / 1024,
		Extra:                map[string]string{"maxDataDiskCount": strconv.Itoa(int(deref(size.MaxDataDiskCount)))},
	}
	if t.SizeEphemeralDisksGB > 0 {
		t.NumEphemeralDisks = 1
	}
	return t
}

func (s *vmTypeService) all(ctx context.Context) ([]*contracts.VMType, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMTypes, "list", s.p.region, func(ctx context.Context) ([]*contracts.VMType, error) {
		sizes, err := s.p.clients.VMSizes.List(ctx, s.p.region)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.VMType, 0, len(sizes))
		for _, size := range sizes {
			out = append(out, toVMType(size))
		}
		return out, nil
	})
}

func (s *vmTypeService) Get(ctx context.Context, id string) (*contracts.VMType, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		if strings.EqualFold(t.ID, id) {
			return t, nil
		}
	}
	return nil, contracts.NotFoundf("VM size", id)
}

func (s *vmTypeService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.VMType], error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return common.Page(all, opts), nil
}

func (s *vmTypeService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.VMType], error) {
	return common.FindAll(ctx, s.List, opts)
}

type regionService struct{ p *Provider }

// toRegion lists the logical availability zones of a location; locations
// without zones get one zone named after the region
func toRegion(loc *armsubscriptions.Location) *contracts.Region {
	name := deref(loc.Name)
	r := &contracts.Region{Resource: contracts.Resource{ID: name, Name: name}}
	if display := deref(loc.DisplayName); display != "" {
		r.Tags = map[string]string{"displayName": display}
	}
	for _, m := range loc.AvailabilityZoneMappings {
		zone := deref(m.LogicalZone)
		r.Zones = append(r.Zones, contracts.PlacementZone{ID: zone, Name: zone, RegionName: name})
	}
	if len(r.Zones) == 0 {
		r.Zones = []contracts.PlacementZone{{ID: name, Name: name, RegionName: name}}
	}
	return r
}

func (s *regionService) all(ctx context.Context) ([]*contracts.Region, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRegions, "list", "", func(ctx context.Context) ([]*contracts.Region, error) {
		locs, err := s.p.clients.Locations.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.Region, 0, len(locs))
		for _, loc := range locs {
			out = append(out, toRegion(loc))
		}
		return out, nil
	})
}

func (s *regionService) Get(ctx context.Context, id string) (*contracts.Region, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if strings.EqualFold(r.ID, id) {
			return r, nil
		}
	}
	return nil, contracts.NotFoundf("region", id)
}

func (s *regionService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Region], error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return common.Page(all, opts), nil
}

func (s *regionService) Current(ctx context.Context) (*contracts.Region, error) {
	return s.Get(ctx, s.p.region)
}

// imageService manages the custom images of the resource group.
// Marketplace images are used by URN and are not listed.
type imageService struct{ p *Provider }

func popTag(res *contracts.Resource, key string) string {
	value := res.Tags[key]
	delete(res.Tags, key)
	if len(res.Tags) == 0 {
		res.Tags = nil
	}
	return value
}

func toImage(img *armcompute.Image) *contracts.MachineImage {
	m := &contracts.MachineImage{Resource: resource(img.ID, img.Name, img.Tags)}
	m.Description = popTag(&m.Resource, descriptionTag)
	if props := img.Properties; props != nil {
		m.State = imageStates.Lookup(deref(props.ProvisioningState))
		if sp := props.StorageProfile; sp != nil && sp.OSDisk != nil {
			m.MinDiskGB = int(deref(sp.OSDisk.DiskSizeGB))
		}
	}
	return m
}

func (s *imageService) Get(ctx context.Context, id string) (*contracts.MachineImage, error) {
	name, err := s.p.ref(id, typeImages)
	if err != nil {
		return nil, err
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceImages, "get", name, func(ctx context.Context) (*contracts.MachineImage, error) {
		img, err := s.p.clients.Images.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		return toImage(img), nil
	})
}

func (s *imageService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.MachineImage], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceImages, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.MachineImage], error) {
		imgs, err := s.p.clients.Images.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.MachineImage, 0, len(imgs))
		for _, img := range imgs {
			out = append(out, toImage(img))
		}
		return common.Page(out, opts), nil
	})
}

func (s *imageService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.MachineImage], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *imageService) Delete(ctx context.Context, id string) error {
	name, err := s.p.ref(id, typeImages)
	if err != nil {
		return err
	}
	err = s.p.do(ctx, contracts.ServiceImages, "delete", name, func(ctx context.Context) error {
		return s.p.clients.Images.Delete(ctx, name)
	})
	return contracts.IgnoreNotFound(err)
}

func (s *imageService) SetLabel(ctx context.Context, id, label string) error {
	return setLabel(ctx, s.p, contracts.ServiceImages, s.p.clients.Images, id, typeImages, label,
		func(img *armcompute.Image) *map[string]*string { return &img.Tags })
}
