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
	"sort"
	"strconv"
	"strings"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/availabilityzones"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/bootfromvolume"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/keypairs"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/secgroups"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/startstop"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/flavors"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	"github.com/gophercloud/gophercloud/openstack/identity/v3/regions"
	"github.com/gophercloud/gophercloud/openstack/imageservice/v2/images"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/layer3/floatingips"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/ports"
	"github.com/gophercloud/gophercloud/pagination"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// descriptionProperty is the Glance property conventionally holding an image description
const descriptionProperty = "description"

// server is a Nova server with its availability zone
type server struct {
	servers.Server
	availabilityzones.ServerAvailabilityZoneExt
}

func extractServers(page pagination.Page) ([]server, error) {
	var out []server
	err := servers.ExtractServersInto(page, &out)
	return out, err
}

type instanceService struct{ p *Provider }

// refID reads the id of a Nova image or flavor reference. Servers created
// from a volume have no image; microversion 2.47 replaced the flavor id
// with original_name.
func refID(ref map[string]interface{}) string {
	if id, ok := ref["id"].(string); ok {
		return id
	}
	if name, ok := ref["original_name"].(string); ok {
		return name
	}
	return ""
}

// addresses splits the Nova address map into public and private IPs
func addresses(addrs map[string]interface{}) (public, private []string) {
	networks := make([]string, 0, len(addrs))
	for name := range addrs {
		networks = append(networks, name)
	}
	sort.Strings(networks)
	for _, name := range networks {
		list, _ := addrs[name].([]interface{})
		for _, entry := range list {
			a, _ := entry.(map[string]interface{})
			ip, _ := a["addr"].(string)
			if ip == "" {
				continue
			}
			if kind, _ := a["OS-EXT-IPS:type"].(string); kind == "floating" {
				public = append(public, ip)
				continue
			}
			private = append(private, ip)
		}
	}
	return public, private
}

func toInstance(srv *server, attached []ports.Port) *contracts.Instance {
	label, tags := splitMetadata(srv.Metadata)
	inst := &contracts.Instance{
		Resource: contracts.Resource{
			ID:         srv.ID,
			Name:       srv.Name,
			Label:      label,
			CreateTime: srv.Created,
			Tags:       tags,
		},
		State:     instanceStates.Lookup(srv.Status),
		VMTypeID:  refID(srv.Flavor),
		ImageID:   refID(srv.Image),
		ZoneID:    srv.AvailabilityZone,
		KeyPairID: srv.KeyName,
	}
	inst.PublicIPs, inst.PrivateIPs = addresses(srv.Addresses)
	for _, port := range attached {
		if inst.SubnetID == "" && len(port.FixedIPs) > 0 {
			inst.SubnetID = port.FixedIPs[0].SubnetID
		}
		for _, sg := range port.SecurityGroups {
			if !slices.Contains(inst.VMFirewallIDs, sg) {
				inst.VMFirewallIDs = append(inst.VMFirewallIDs, sg)
			}
		}
	}
	return inst
}

// devicePorts lists Neutron ports keyed by the device they are bound to.
// An empty deviceID lists every port of the project.
func (p *Provider) devicePorts(deviceID string) (map[string][]ports.Port, error) {
	list, err := allPages(ports.List(p.clients.Network, ports.ListOpts{DeviceID: deviceID}), ports.ExtractPorts)
	if err != nil {
		return nil, err
	}
	byDevice := make(map[string][]ports.Port)
	for _, port := range list {
		if port.DeviceID != "" {
			byDevice[port.DeviceID] = append(byDevice[port.DeviceID], port)
		}
	}
	return byDevice, nil
}

func (s *instanceService) get(id string) (*contracts.Instance, error) {
	var srv server
	if err := servers.Get(s.p.clients.Compute, id).ExtractInto(&srv); err != nil {
		return nil, err
	}
	attached, err := s.p.devicePorts(id)
	if err != nil {
		return nil, err
	}
	return toInstance(&srv, attached[id]), nil
}

func (s *instanceService) Get(ctx context.Context, id string) (*contracts.Instance, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceInstances, "get", id, func(ctx context.Context) (*contracts.Instance, error) {
		return s.get(id)
	})
}

func (s *instanceService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Instance], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceInstances, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Instance], error) {
		page, err := firstPage(servers.List(s.p.clients.Compute, servers.ListOpts{
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), extractServers)
		if err != nil {
			return nil, err
		}
		attached, err := s.p.devicePorts("")
		if err != nil {
			return nil, err
		}
		return convertPage(page, opts, func(srv *server) *contracts.Instance {
			return toInstance(srv, attached[srv.ID])
		}), nil
	})
}

func (s *instanceService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Instance], error) {
	return common.FindAll(ctx, s.List, opts)
}

// blockDevices maps a LaunchConfig onto Nova block device mappings. When no
// device is marked as root the image boots from local disk at index 0.
func blockDevices(req contracts.CreateInstanceRequest) (devices []bootfromvolume.BlockDevice, rootVolume bool) {
	if req.LaunchConfig == nil || len(req.LaunchConfig.BlockDevices) == 0 {
		return nil, false
	}
	for _, dev := range req.LaunchConfig.BlockDevices {
		bd := bootfromvolume.BlockDevice{
			BootIndex:           -1,
			DeleteOnTermination: dev.DeleteOnTerminate,
			DestinationType:     bootfromvolume.DestinationVolume,
			VolumeSize:          dev.SizeGB,
		}
		if dev.IsRoot {
			bd.BootIndex = 0
			rootVolume = true
		}
		switch {
		case dev.Ephemeral:
			bd.SourceType = bootfromvolume.SourceBlank
			bd.DestinationType = bootfromvolume.DestinationLocal
			bd.DeleteOnTermination = true
		case dev.SourceVolumeID != "":
			bd.SourceType = bootfromvolume.SourceVolume
			bd.UUID = dev.SourceVolumeID
		case dev.SourceSnapshotID != "":
			bd.SourceType = bootfromvolume.SourceSnapshot
			bd.UUID = dev.SourceSnapshotID
		case dev.SourceImageID != "":
			bd.SourceType = bootfromvolume.SourceImage
			bd.UUID = dev.SourceImageID
		case dev.IsRoot:
			bd.SourceType = bootfromvolume.SourceImage
			bd.UUID = req.ImageID
		default:
			bd.SourceType = bootfromvolume.SourceBlank
		}
		devices = append(devices, bd)
	}
	if !rootVolume {
		devices = append([]bootfromvolume.BlockDevice{{
			BootIndex:           0,
			DeleteOnTermination: true,
			SourceType:          bootfromvolume.SourceImage,
			DestinationType:     bootfromvolume.DestinationLocal,
			UUID:                req.ImageID,
		}}, devices...)
	}
	return devices, rootVolume
}

func (s *instanceService) Create(ctx context.Context, req contracts.CreateInstanceRequest) (*contracts.Instance, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	if req.ImageID == "" || req.VMTypeID == "" {
		return nil, contracts.NewInvalidValueError("an image and a VM type are required", nil)
	}
	zone := req.Zone
	if zone == "" {
		zone = s.p.zone
	}

	var subnet *contracts.Subnet
	if req.SubnetID == "" {
		subnet, err = s.p.networking.Subnets.GetOrCreateDefault(ctx, zone)
	} else {
		subnet, err = s.p.networking.Subnets.Get(ctx, req.SubnetID)
	}
	if err != nil {
		return nil, err
	}

	devices, rootVolume := blockDevices(req)
	base := servers.CreateOpts{
		Name:             name,
		ImageRef:         req.ImageID,
		FlavorRef:        req.VMTypeID,
		SecurityGroups:   req.VMFirewallIDs,
		AvailabilityZone: zone,
		Networks:         []servers.Network{{UUID: subnet.NetworkID}},
		Metadata:         labelMetadata(req.Label),
	}
	if rootVolume {
		base.ImageRef = ""
	}
	if req.UserData != "" {
		base.UserData = []byte(req.UserData)
	}
	var opts servers.CreateOptsBuilder = base
	if req.KeyPairName != "" {
		opts = keypairs.CreateOptsExt{CreateOptsBuilder: opts, KeyName: req.KeyPairName}
	}
	if len(devices) > 0 {
		opts = bootfromvolume.CreateOptsExt{CreateOptsBuilder: opts, BlockDevice: devices}
	}

	return common.Call(ctx, s.p.caller, contracts.ServiceInstances, "create", name, func(ctx context.Context) (*contracts.Instance, error) {
		created, err := servers.Create(s.p.clients.Compute, opts).Extract()
		if err != nil {
			return nil, err
		}
		return s.get(created.ID)
	})
}

func (s *instanceService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceInstances, "delete", id, func(ctx context.Context) error {
		return servers.Delete(s.p.clients.Compute, id).ExtractErr()
	})
	return contracts.IgnoreNotFound(err)
}

func (s *instanceService) Reboot(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "reboot", id, func(ctx context.Context) error {
		return servers.Reboot(s.p.clients.Compute, id, servers.RebootOpts{Type: servers.SoftReboot}).ExtractErr()
	})
}

func (s *instanceService) Start(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "start", id, func(ctx context.Context) error {
		return startstop.Start(s.p.clients.Compute, id).ExtractErr()
	})
}

func (s *instanceService) Stop(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "stop", id, func(ctx context.Context) error {
		return startstop.Stop(s.p.clients.Compute, id).ExtractErr()
	})
}

// SetLabel writes the label metadata key; Nova merges it into the
// existing metadata and an empty value clears the label
func (s *instanceService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceInstances, "set_label", id, func(ctx context.Context) error {
		_, err := servers.UpdateMetadata(s.p.clients.Compute, id, servers.MetadataOpts{labelKey: label}).Extract()
		return err
	})
}

func (s *instanceService) AddVMFirewall(ctx context.Context, id, firewallID string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "add_firewall", id, func(ctx context.Context) error {
		return secgroups.AddServer(s.p.clients.Compute, id, firewallID).ExtractErr()
	})
}

func (s *instanceService) RemoveVMFirewall(ctx context.Context, id, firewallID string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "remove_firewall", id, func(ctx context.Context) error {
		return secgroups.RemoveServer(s.p.clients.Compute, id, firewallID).ExtractErr()
	})
}

// AddFloatingIP binds the address to the first port of the instance
func (s *instanceService) AddFloatingIP(ctx context.Context, id, floatingIPID string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "add_floating_ip", id, func(ctx context.Context) error {
		attached, err := s.p.devicePorts(id)
		if err != nil {
			return err
		}
		if len(attached[id]) == 0 {
			return contracts.NewInvalidValueError(fmt.Sprintf("instance %s has no network port", id), nil)
		}
		portID := attached[id][0].ID
		_, err = floatingips.Update(s.p.clients.Network, floatingIPID, floatingips.UpdateOpts{PortID: &portID}).Extract()
		return err
	})
}

func (s *instanceService) RemoveFloatingIP(ctx context.Context, id, floatingIPID string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "remove_floating_ip", id, func(ctx context.Context) error {
		fip, err := floatingips.Get(s.p.clients.Network, floatingIPID).Extract()
		if err != nil {
			return err
		}
		attached, err := s.p.devicePorts(id)
		if err != nil {
			return err
		}
		if !slices.ContainsFunc(attached[id], func(port ports.Port) bool { return port.ID == fip.PortID }) {
			return contracts.NewInvalidValueError(fmt.Sprintf("floating IP %s is not associated with instance %s", floatingIPID, id), nil)
		}
		detached := ""
		_, err = floatingips.Update(s.p.clients.Network, floatingIPID, floatingips.UpdateOpts{PortID: &detached}).Extract()
		return err
	})
}

func (s *instanceService) CreateImage(ctx context.Context, id, label string) (*contracts.MachineImage, error) {
	name, err := common.NameFromLabel(label)
	if err != nil {
		return nil, err
	}
	imageID, err := common.Call(ctx, s.p.caller, contracts.ServiceInstances, "create_image", id, func(ctx context.Context) (string, error) {
		return servers.CreateImage(s.p.clients.Compute, id, servers.CreateImageOpts{
			Name:     name,
			Metadata: labelMetadata(label),
		}).ExtractImageID()
	})
	if err != nil {
		return nil, err
	}
	return s.p.compute.Images.Get(ctx, imageID)
}

type vmTypeService struct{ p *Provider }

func toVMType(f *flavors.Flavor) *contracts.VMType {
	vt := &contracts.VMType{
		Resource:             contracts.Resource{ID: f.ID, Name: f.Name},
		VCPUs:                f.VCPUs,
		RAMGB:                float64(f.RAM) / 1024,
		SizeRootDiskGB:       f.Disk,
		SizeEphemeralDisksGB: f.Ephemeral,
		Extra: map[string]string{
			"swap_mb":   strconv.Itoa(f.Swap),
			"is_public": strconv.FormatBool(f.IsPublic),
		},
	}
	// m1.small -> m1
	if family, _, ok := strings.Cut(f.Name, "."); ok {
		vt.Family = family
	}
	if f.Ephemeral > 0 {
		vt.NumEphemeralDisks = 1
	}
	return vt
}

func (s *vmTypeService) Get(ctx context.Context, id string) (*contracts.VMType, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMTypes, "get", id, func(ctx context.Context) (*contracts.VMType, error) {
		f, err := flavors.Get(s.p.clients.Compute, id).Extract()
		if err != nil {
			return nil, err
		}
		return toVMType(f), nil
	})
}

func (s *vmTypeService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.VMType], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMTypes, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.VMType], error) {
		page, err := firstPage(flavors.ListDetail(s.p.clients.Compute, flavors.ListOpts{
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), flavors.ExtractFlavors)
		if err != nil {
			return nil, err
		}
		return convertPage(page, opts, toVMType), nil
	})
}

func (s *vmTypeService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.VMType], error) {
	return common.FindAll(ctx, s.List, opts)
}

type regionService struct{ p *Provider }

// zones lists the available compute zones of a region. Regions without a
// compute endpoint report no zones.
func (s *regionService) zones(regionID string) ([]contracts.PlacementZone, error) {
	client := s.p.clients.Compute
	if s.p.region != "" && regionID != s.p.region {
		c, err := openstack.NewComputeV2(s.p.clients.Provider, gophercloud.EndpointOpts{Region: regionID})
		if err != nil {
			return nil, nil
		}
		client = c
	}
	azs, err := singlePage(availabilityzones.List(client), availabilityzones.ExtractAvailabilityZones)
	if err != nil {
		return nil, err
	}
	zones := make([]contracts.PlacementZone, 0, len(azs))
	for _, az := range azs {
		if az.ZoneState.Available {
			zones = append(zones, contracts.PlacementZone{ID: az.ZoneName, Name: az.ZoneName, RegionName: regionID})
		}
	}
	return zones, nil
}

func (s *regionService) toRegion(r *regions.Region) (*contracts.Region, error) {
	zones, err := s.zones(r.ID)
	if err != nil {
		return nil, err
	}
	return &contracts.Region{
		Resource: contracts.Resource{ID: r.ID, Name: r.ID},
		Zones:    zones,
	}, nil
}

func (s *regionService) Get(ctx context.Context, id string) (*contracts.Region, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRegions, "get", id, func(ctx context.Context) (*contracts.Region, error) {
		r, err := regions.Get(s.p.clients.Identity, id).Extract()
		if err != nil {
			return nil, err
		}
		return s.toRegion(r)
	})
}

// List pages client-side; Keystone returns every region at once
func (s *regionService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Region], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRegions, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Region], error) {
		all, err := allPages(regions.List(s.p.clients.Identity, nil), regions.ExtractRegions)
		if err != nil {
			return nil, err
		}
		out := make([]*contracts.Region, 0, len(all))
		for i := range all {
			r, err := s.toRegion(&all[i])
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return common.Page(out, opts), nil
	})
}

// Current returns the configured region, or the first region Keystone
// reports when none is configured
func (s *regionService) Current(ctx context.Context) (*contracts.Region, error) {
	if s.p.region != "" {
		return s.Get(ctx, s.p.region)
	}
	list, err := s.List(ctx, paging.ListOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, contracts.NotFoundf("region", "")
	}
	return list.Items[0], nil
}

type imageService struct{ p *Provider }

func toImage(img *images.Image) *contracts.MachineImage {
	label, _ := img.Properties[labelKey].(string)
	description, _ := img.Properties[descriptionProperty].(string)
	var tags map[string]string
	for _, t := range img.Tags {
		if tags == nil {
			tags = make(map[string]string)
		}
		tags[t] = ""
	}
	return &contracts.MachineImage{
		Resource: contracts.Resource{
			ID:         img.ID,
			Name:       img.Name,
			Label:      label,
			CreateTime: img.CreatedAt,
			Tags:       tags,
		},
		Description: description,
		State:       imageStates.Lookup(string(img.Status)),
		MinDiskGB:   img.MinDiskGigabytes,
		OwnerID:     img.Owner,
	}
}

func (s *imageService) Get(ctx context.Context, id string) (*contracts.MachineImage, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceImages, "get", id, func(ctx context.Context) (*contracts.MachineImage, error) {
		img, err := images.Get(s.p.clients.Image, id).Extract()
		if err != nil {
			return nil, err
		}
		return toImage(img), nil
	})
}

func (s *imageService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.MachineImage], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceImages, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.MachineImage], error) {
		page, err := firstPage(images.List(s.p.clients.Image, images.ListOpts{
			Limit:  overfetch(opts),
			Marker: opts.Marker,
		}), images.ExtractImages)
		if err != nil {
			return nil, err
		}
		return convertPage(page, opts, toImage), nil
	})
}

func (s *imageService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.MachineImage], error) {
	return common.FindAll(ctx, s.List, opts)
}

func (s *imageService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceImages, "delete", id, func(ctx context.Context) error {
		return images.Delete(s.p.clients.Image, id).ExtractErr()
	})
	return contracts.IgnoreNotFound(err)
}

// SetLabel patches the label property. Glance rejects adding a property
// that exists and removing one that does not, so the op depends on the
// current image.
func (s *imageService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.p.do(ctx, contracts.ServiceImages, "set_label", id, func(ctx context.Context) error {
		img, err := images.Get(s.p.clients.Image, id).Extract()
		if err != nil {
			return err
		}
		_, exists := img.Properties[labelKey]
		var op images.UpdateOp
		switch {
		case label == "" && !exists:
			return nil
		case label == "":
			op = images.RemoveOp
		case exists:
			op = images.ReplaceOp
		default:
			op = images.AddOp
		}
		_, err = images.Update(s.p.clients.Image, id, images.UpdateOpts{
			images.UpdateImageProperty{Op: op, Name: labelKey, Value: label},
		}).Extract()
		return err
	})
}
