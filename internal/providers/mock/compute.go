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
	"slices"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

type instanceService struct{ p *Provider }

func (s *instanceService) Get(ctx context.Context, id string) (*contracts.Instance, error) {
	var out *contracts.Instance
	err := s.p.do(ctx, contracts.ServiceInstances, "get", id, func() error {
		inst, ok := s.p.instances.get(id)
		if !ok {
			return contracts.NotFoundf("instance", id)
		}
		out = cloneOf(inst)
		return nil
	})
	return out, err
}

func (s *instanceService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Instance], error) {
	var out *paging.ResultList[*contracts.Instance]
	err := s.p.do(ctx, contracts.ServiceInstances, "list", "", func() error {
		out = common.Page(snapshotOf(s.p.instances.values()), opts)
		return nil
	})
	return out, err
}

func (s *instanceService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Instance], error) {
	var out *paging.ResultList[*contracts.Instance]
	err := s.p.do(ctx, contracts.ServiceInstances, "find", "", func() error {
		out = paging.Find(snapshotOf(s.p.instances.values()), opts)
		return nil
	})
	return out, err
}

func (s *instanceService) Create(ctx context.Context, req contracts.CreateInstanceRequest) (*contracts.Instance, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}

	var out *contracts.Instance
	err = s.p.do(ctx, contracts.ServiceInstances, "create", "", func() error {
		p := s.p
		if _, ok := p.images.get(req.ImageID); !ok {
			return contracts.NotFoundf("image", req.ImageID)
		}
		if _, ok := p.vmTypes.get(req.VMTypeID); !ok {
			return contracts.NotFoundf("vm type", req.VMTypeID)
		}
		zone := req.Zone
		if zone == "" {
			zone = p.zone
		}

		var subnet *contracts.Subnet
		if req.SubnetID != "" {
			sn, ok := p.subnets.get(req.SubnetID)
			if !ok {
				return contracts.NotFoundf("subnet", req.SubnetID)
			}
			subnet = sn
		} else {
			sn, err := p.defaultSubnet(zone)
			if err != nil {
				return err
			}
			subnet = sn
		}
		for _, fw := range req.VMFirewallIDs {
			if _, ok := p.firewalls.get(fw); !ok {
				return contracts.NotFoundf("vm firewall", fw)
			}
		}
		if req.KeyPairName != "" {
			if _, ok := p.keyPairs.get(req.KeyPairName); !ok {
				return contracts.NotFoundf("key pair", req.KeyPairName)
			}
		}
		if req.LaunchConfig != nil {
			for _, dev := range req.LaunchConfig.BlockDevices {
				if dev.SourceVolumeID != "" {
					if _, ok := p.volumes.get(dev.SourceVolumeID); !ok {
						return contracts.NotFoundf("volume", dev.SourceVolumeID)
					}
				}
			}
		}

		id := p.generateID("i")
		inst := &contracts.Instance{
			Resource:      contracts.Resource{ID: id, Name: name, Label: req.Label, CreateTime: p.now()},
			State:         contracts.InstanceStatePending,
			VMTypeID:      req.VMTypeID,
			ImageID:       req.ImageID,
			ZoneID:        zone,
			SubnetID:      subnet.ID,
			KeyPairID:     req.KeyPairName,
			VMFirewallIDs: slices.Clone(req.VMFirewallIDs),
			PrivateIPs:    []string{p.nextPrivateIP(subnet)},
		}
		p.instances.put(id, inst)
		p.schedule(func() {
			if inst.State == contracts.InstanceStatePending {
				inst.State = contracts.InstanceStateRunning
			}
		})
		out = cloneOf(inst)
		return nil
	})
	return out, err
}

func (s *instanceService) Delete(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "delete", id, func() error {
		p := s.p
		inst, ok := p.instances.get(id)
		if !ok {
			return nil
		}
		inst.State = contracts.InstanceStateDeleted
		p.instances.remove(id)
		for _, fip := range p.fips.values() {
			if fip.InstanceID == id {
				fip.InstanceID, fip.PrivateIP = "", ""
			}
		}
		for _, vol := range p.volumes.values() {
			if vol.Attachment != nil && vol.Attachment.InstanceID == id {
				vol.Attachment = nil
				vol.State = contracts.VolumeStateAvailable
			}
		}
		return nil
	})
}

// power moves an instance through a transitional state to its final one
func (s *instanceService) power(ctx context.Context, operation, id string, allowed []contracts.InstanceState, via, to contracts.InstanceState) error {
	return s.p.do(ctx, contracts.ServiceInstances, operation, id, func() error {
		inst, ok := s.p.instances.get(id)
		if !ok {
			return contracts.NotFoundf("instance", id)
		}
		if !slices.Contains(allowed, inst.State) {
			return contracts.NewInvalidValueError(fmt.Sprintf("cannot %s instance %s in state %s", operation, id, inst.State), nil)
		}
		inst.State = via
		s.p.schedule(func() {
			if inst.State == via {
				inst.State = to
			}
		})
		return nil
	})
}

func (s *instanceService) Reboot(ctx context.Context, id string) error {
	return s.power(ctx, "reboot", id, []contracts.InstanceState{contracts.InstanceStateRunning},
		contracts.InstanceStateRebooting, contracts.InstanceStateRunning)
}

func (s *instanceService) Start(ctx context.Context, id string) error {
	return s.power(ctx, "start", id, []contracts.InstanceState{contracts.InstanceStateStopped, contracts.InstanceStateRunning},
		contracts.InstanceStatePending, contracts.InstanceStateRunning)
}

func (s *instanceService) Stop(ctx context.Context, id string) error {
	return s.power(ctx, "stop", id, []contracts.InstanceState{contracts.InstanceStateRunning, contracts.InstanceStateStopped},
		contracts.InstanceStateConfiguring, contracts.InstanceStateStopped)
}

func (s *instanceService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceInstances, "set_label", id, func() error {
		inst, ok := s.p.instances.get(id)
		if !ok {
			return contracts.NotFoundf("instance", id)
		}
		inst.Label = label
		return nil
	})
}

func (s *instanceService) AddVMFirewall(ctx context.Context, id, firewallID string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "add_vm_firewall", id, func() error {
		inst, ok := s.p.instances.get(id)
		if !ok {
			return contracts.NotFoundf("instance", id)
		}
		if _, ok := s.p.firewalls.get(firewallID); !ok {
			return contracts.NotFoundf("vm firewall", firewallID)
		}
		if !slices.Contains(inst.VMFirewallIDs, firewallID) {
			inst.VMFirewallIDs = append(slices.Clone(inst.VMFirewallIDs), firewallID)
		}
		return nil
	})
}

func (s *instanceService) RemoveVMFirewall(ctx context.Context, id, firewallID string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "remove_vm_firewall", id, func() error {
		inst, ok := s.p.instances.get(id)
		if !ok {
			return contracts.NotFoundf("instance", id)
		}
		inst.VMFirewallIDs = slices.DeleteFunc(slices.Clone(inst.VMFirewallIDs), func(fw string) bool { return fw == firewallID })
		return nil
	})
}

func (s *instanceService) AddFloatingIP(ctx context.Context, id, floatingIPID string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "add_floating_ip", id, func() error {
		inst, ok := s.p.instances.get(id)
		if !ok {
			return contracts.NotFoundf("instance", id)
		}
		fip, ok := s.p.fips.get(floatingIPID)
		if !ok {
			return contracts.NotFoundf("floating ip", floatingIPID)
		}
		if fip.InstanceID == id {
			return nil
		}
		if fip.InUse() {
			return contracts.NewInvalidValueError(fmt.Sprintf("floating ip %s is associated with %s", fip.PublicIP, fip.InstanceID), nil)
		}
		fip.InstanceID = id
		if len(inst.PrivateIPs) > 0 {
			fip.PrivateIP = inst.PrivateIPs[0]
		}
		inst.PublicIPs = append(slices.Clone(inst.PublicIPs), fip.PublicIP)
		return nil
	})
}

func (s *instanceService) RemoveFloatingIP(ctx context.Context, id, floatingIPID string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "remove_floating_ip", id, func() error {
		inst, ok := s.p.instances.get(id)
		if !ok {
			return contracts.NotFoundf("instance", id)
		}
		fip, ok := s.p.fips.get(floatingIPID)
		if !ok {
			return contracts.NotFoundf("floating ip", floatingIPID)
		}
		if fip.InstanceID != id {
			return contracts.NewInvalidValueError(fmt.Sprintf("floating ip %s is not associated with %s", fip.PublicIP, id), nil)
		}
		fip.InstanceID, fip.PrivateIP = "", ""
		inst.PublicIPs = slices.DeleteFunc(slices.Clone(inst.PublicIPs), func(ip string) bool { return ip == fip.PublicIP })
		return nil
	})
}

func (s *instanceService) CreateImage(ctx context.Context, id, label string) (*contracts.MachineImage, error) {
	name, err := common.NameFromLabel(label)
	if err != nil {
		return nil, err
	}
	var out *contracts.MachineImage
	err = s.p.do(ctx, contracts.ServiceInstances, "create_image", id, func() error {
		p := s.p
		inst, ok := p.instances.get(id)
		if !ok {
			return contracts.NotFoundf("instance", id)
		}
		minDisk := 0
		if vt, ok := p.vmTypes.get(inst.VMTypeID); ok {
			minDisk = vt.SizeRootDiskGB
		}
		imgID := p.generateID("img")
		img := &contracts.MachineImage{
			Resource:    contracts.Resource{ID: imgID, Name: name, Label: label, CreateTime: p.now()},
			Description: "Image of " + inst.Name,
			State:       contracts.MachineImageStatePending,
			MinDiskGB:   minDisk,
			OwnerID:     "self",
		}
		p.images.put(imgID, img)
		p.schedule(func() { img.State = contracts.MachineImageStateAvailable })
		out = cloneOf(img)
		return nil
	})
	return out, err
}

type vmTypeService struct{ p *Provider }

func (s *vmTypeService) Get(ctx context.Context, id string) (*contracts.VMType, error) {
	var out *contracts.VMType
	err := s.p.do(ctx, contracts.ServiceVMTypes, "get", id, func() error {
		vt, ok := s.p.vmTypes.get(id)
		if !ok {
			return contracts.NotFoundf("vm type", id)
		}
		out = cloneOf(vt)
		return nil
	})
	return out, err
}

func (s *vmTypeService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.VMType], error) {
	var out *paging.ResultList[*contracts.VMType]
	err := s.p.do(ctx, contracts.ServiceVMTypes, "list", "", func() error {
		out = common.Page(snapshotOf(s.p.vmTypes.values()), opts)
		return nil
	})
	return out, err
}

func (s *vmTypeService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.VMType], error) {
	var out *paging.ResultList[*contracts.VMType]
	err := s.p.do(ctx, contracts.ServiceVMTypes, "find", "", func() error {
		out = paging.Find(snapshotOf(s.p.vmTypes.values()), opts)
		return nil
	})
	return out, err
}

type regionService struct{ p *Provider }

func (s *regionService) Get(ctx context.Context, id string) (*contracts.Region, error) {
	var out *contracts.Region
	err := s.p.do(ctx, contracts.ServiceRegions, "get", id, func() error {
		r, ok := s.p.regions.get(id)
		if !ok {
			return contracts.NotFoundf("region", id)
		}
		out = cloneOf(r)
		return nil
	})
	return out, err
}

func (s *regionService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Region], error) {
	var out *paging.ResultList[*contracts.Region]
	err := s.p.do(ctx, contracts.ServiceRegions, "list", "", func() error {
		out = common.Page(snapshotOf(s.p.regions.values()), opts)
		return nil
	})
	return out, err
}

func (s *regionService) Current(ctx context.Context) (*contracts.Region, error) {
	return s.Get(ctx, s.p.region)
}

type imageService struct{ p *Provider }

func (s *imageService) Get(ctx context.Context, id string) (*contracts.MachineImage, error) {
	var out *contracts.MachineImage
	err := s.p.do(ctx, contracts.ServiceImages, "get", id, func() error {
		img, ok := s.p.images.get(id)
		if !ok {
			return contracts.NotFoundf("image", id)
		}
		out = cloneOf(img)
		return nil
	})
	return out, err
}

func (s *imageService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.MachineImage], error) {
	var out *paging.ResultList[*contracts.MachineImage]
	err := s.p.do(ctx, contracts.ServiceImages, "list", "", func() error {
		out = common.Page(snapshotOf(s.p.images.values()), opts)
		return nil
	})
	return out, err
}

func (s *imageService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.MachineImage], error) {
	var out *paging.ResultList[*contracts.MachineImage]
	err := s.p.do(ctx, contracts.ServiceImages, "find", "", func() error {
		out = paging.Find(snapshotOf(s.p.images.values()), opts)
		return nil
	})
	return out, err
}

func (s *imageService) Delete(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceImages, "delete", id, func() error {
		s.p.images.remove(id)
		return nil
	})
}

func (s *imageService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceImages, "set_label", id, func() error {
		img, ok := s.p.images.get(id)
		if !ok {
			return contracts.NotFoundf("image", id)
		}
		img.Label = label
		return nil
	})
}
