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
	"strings"

	compute "google.golang.org/api/compute/v1"

	"github.com/CloudVE/cloudbridge-sub001/internal/gcpurl"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	// instance metadata keys
	metaStartupScript = "startup-script"
	metaSourceImage   = "cloudbridge-image"
	metaKeyPair       = "cloudbridge-key-pair"

	externalNAT = "external-nat"
	oneToOneNAT = "ONE_TO_ONE_NAT"
)

// publicImageProjects are searched by Find in addition to the project's
// own images
var publicImageProjects = []string{
	"debian-cloud", "ubuntu-os-cloud", "centos-cloud", "rocky-linux-cloud", "cos-cloud",
}

type instanceService struct{ p *Provider }

func (p *Provider) toInstance(i *compute.Instance) *contracts.Instance {
	label, tags := splitLabels(i.Labels)
	md := metadataItems(i.Metadata)
	inst := &contracts.Instance{
		Resource: contracts.Resource{
			ID:         i.SelfLink,
			Name:       i.Name,
			Label:      label,
			CreateTime: parseTime(i.CreationTimestamp),
			Tags:       tags,
		},
		State:     instanceStates.Lookup(i.Status),
		VMTypeID:  i.MachineType,
		ImageID:   md[metaSourceImage],
		ZoneID:    lastSegment(i.Zone),
		KeyPairID: md[metaKeyPair],
	}
	if i.Tags != nil {
		for _, tag := range i.Tags.Items {
			inst.VMFirewallIDs = append(inst.VMFirewallIDs, p.firewallID(tag))
		}
	}
	for n, nic := range i.NetworkInterfaces {
		if n == 0 {
			inst.SubnetID = nic.Subnetwork
		}
		if nic.NetworkIP != "" {
			inst.PrivateIPs = append(inst.PrivateIPs, nic.NetworkIP)
		}
		for _, ac := range nic.AccessConfigs {
			if ac.NatIP != "" {
				inst.PublicIPs = append(inst.PublicIPs, ac.NatIP)
			}
		}
	}
	return inst
}

func (s *instanceService) fetch(ctx context.Context, id string) (*compute.Instance, error) {
	ref, err := s.p.ref(id, "instances")
	if err != nil {
		return nil, err
	}
	return s.p.clients.Compute.Instances.Get(ref.Project, ref.Zone, ref.Name).Context(ctx).Do()
}

func (s *instanceService) Get(ctx context.Context, id string) (*contracts.Instance, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceInstances, "get", id, func(ctx context.Context) (*contracts.Instance, error) {
		i, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.p.toInstance(i), nil
	})
}

func (s *instanceService) page(ctx context.Context, filter string) pageFunc[*contracts.Instance] {
	return func(maxResults int64, token string) ([]*contracts.Instance, string, error) {
		call := s.p.clients.Compute.Instances.List(s.p.project, s.p.zone).MaxResults(maxResults).PageToken(token)
		if filter != "" {
			call = call.Filter(filter)
		}
		out, err := call.Context(ctx).Do()
		if err != nil {
			return nil, "", err
		}
		var items []*contracts.Instance
		for _, i := range out.Items {
			items = append(items, s.p.toInstance(i))
		}
		return items, out.NextPageToken, nil
	}
}

// List returns the instances of the default zone
func (s *instanceService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Instance], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceInstances, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Instance], error) {
		return listPage(opts, s.page(ctx, ""))
	})
}

func labelFilter(label string) string {
	if label == "" {
		return ""
	}
	return fmt.Sprintf("labels.%s = %q", labelKey, label)
}

func (s *instanceService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Instance], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceInstances, "find", "", func(ctx context.Context) (*paging.ResultList[*contracts.Instance], error) {
		all, err := listAll(s.page(ctx, labelFilter(opts.Label)))
		if err != nil {
			return nil, err
		}
		return paging.Find(all, opts), nil
	})
}

func (s *instanceService) Create(ctx context.Context, req contracts.CreateInstanceRequest) (*contracts.Instance, error) {
	name, err := common.NameFromLabel(req.Label)
	if err != nil {
		return nil, err
	}
	zone := s.p.zoneOf(req.Zone)
	defaults := gcpurl.Defaults{Project: s.p.project, Zone: zone, Region: regionOfZone(zone)}

	machineType, err := gcpurl.ParseWithDefaults(req.VMTypeID, "machineTypes", defaults)
	if err != nil {
		return nil, err
	}
	image, err := gcpurl.ParseWithDefaults(req.ImageID, "images", defaults)
	if err != nil {
		return nil, err
	}
	subnetID := req.SubnetID
	if subnetID == "" {
		sn, err := s.p.networking.Subnets.GetOrCreateDefault(ctx, zone)
		if err != nil {
			return nil, err
		}
		subnetID = sn.ID
	}
	subnet, err := gcpurl.ParseWithDefaults(subnetID, "subnetworks", defaults)
	if err != nil {
		return nil, err
	}
	disks, err := s.attachedDisks(zone, image.String(), req.LaunchConfig, defaults)
	if err != nil {
		return nil, err
	}

	metadata := &compute.Metadata{}
	addItem := func(key, value string) {
		if value != "" {
			metadata.Items = append(metadata.Items, &compute.MetadataItems{Key: key, Value: &value})
		}
	}
	addItem(metaStartupScript, req.UserData)
	addItem(metaSourceImage, image.String())
	addItem(metaKeyPair, req.KeyPairName)

	instance := &compute.Instance{
		Name:        name,
		MachineType: machineType.String(),
		Disks:       disks,
		Metadata:    metadata,
		Labels:      withLabel(nil, req.Label),
		NetworkInterfaces: []*compute.NetworkInterface{{
			Subnetwork:    subnet.String(),
			AccessConfigs: []*compute.AccessConfig{{Name: externalNAT, Type: oneToOneNAT}},
		}},
	}
	for _, fw := range req.VMFirewallIDs {
		instance.Tags = appendTag(instance.Tags, gcpurl.Name(fw))
	}

	err = s.p.mutate(ctx, contracts.ServiceInstances, "create", name, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Instances.Insert(s.p.project, zone, instance).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	ref := gcpurl.ResourceURL{Project: s.p.project, Zone: zone, Collection: "instances", Name: name}
	return s.Get(ctx, ref.String())
}

func appendTag(tags *compute.Tags, tag string) *compute.Tags {
	if tags == nil {
		tags = &compute.Tags{}
	}
	if !slices.Contains(tags.Items, tag) {
		tags.Items = append(tags.Items, tag)
	}
	return tags
}

// attachedDisks builds the boot disk from the image and translates a
// LaunchConfig. Ephemeral devices become local SSD scratch disks.
func (s *instanceService) attachedDisks(zone, image string, lc *contracts.LaunchConfig, defaults gcpurl.Defaults) ([]*compute.AttachedDisk, error) {
	boot := &compute.AttachedDisk{
		Boot:             true,
		AutoDelete:       true,
		InitializeParams: &compute.AttachedDiskInitializeParams{SourceImage: image},
	}
	disks := []*compute.AttachedDisk{boot}
	if lc == nil {
		return disks, nil
	}

	for _, dev := range lc.BlockDevices {
		switch {
		case dev.IsRoot:
			if dev.SourceImageID != "" && gcpurl.Name(dev.SourceImageID) != gcpurl.Name(image) {
				return nil, contracts.NewInvalidValueError("the root disk must come from the launch image", nil)
			}
			boot.AutoDelete = dev.DeleteOnTerminate
			boot.InitializeParams.DiskSizeGb = int64(dev.SizeGB)
		case dev.Ephemeral:
			disks = append(disks, &compute.AttachedDisk{
				Type:       "SCRATCH",
				Interface:  "NVME",
				AutoDelete: true,
				InitializeParams: &compute.AttachedDiskInitializeParams{
					DiskType: fmt.Sprintf("zones/%s/diskTypes/local-ssd", zone),
				},
			})
		case dev.SourceVolumeID != "":
			vol, err := gcpurl.ParseWithDefaults(dev.SourceVolumeID, "disks", defaults)
			if err != nil {
				return nil, err
			}
			disks = append(disks, &compute.AttachedDisk{Source: vol.String(), AutoDelete: dev.DeleteOnTerminate})
		case dev.SourceSnapshotID != "":
			snap, err := gcpurl.ParseWithDefaults(dev.SourceSnapshotID, "snapshots", defaults)
			if err != nil {
				return nil, err
			}
			disks = append(disks, &compute.AttachedDisk{
				AutoDelete:       dev.DeleteOnTerminate,
				InitializeParams: &compute.AttachedDiskInitializeParams{SourceSnapshot: snap.String(), DiskSizeGb: int64(dev.SizeGB)},
			})
		case dev.SourceImageID != "":
			img, err := gcpurl.ParseWithDefaults(dev.SourceImageID, "images", defaults)
			if err != nil {
				return nil, err
			}
			disks = append(disks, &compute.AttachedDisk{
				AutoDelete:       dev.DeleteOnTerminate,
				InitializeParams: &compute.AttachedDiskInitializeParams{SourceImage: img.String(), DiskSizeGb: int64(dev.SizeGB)},
			})
		default:
			if dev.SizeGB <= 0 {
				return nil, contracts.NewInvalidValueError("a blank disk needs a size", nil)
			}
			disks = append(disks, &compute.AttachedDisk{
				AutoDelete:       dev.DeleteOnTerminate,
				InitializeParams: &compute.AttachedDiskInitializeParams{DiskSizeGb: int64(dev.SizeGB)},
			})
		}
	}
	return disks, nil
}

// instanceCall runs an operation-returning call on an instance
func (s *instanceService) instanceCall(ctx context.Context, operation, id string, call func(ctx context.Context, ref *gcpurl.ResourceURL) (*compute.Operation, error)) error {
	ref, err := s.p.ref(id, "instances")
	if err != nil {
		return err
	}
	return s.p.mutate(ctx, contracts.ServiceInstances, operation, id, func(ctx context.Context) (*compute.Operation, error) {
		return call(ctx, ref)
	})
}

func (s *instanceService) Delete(ctx context.Context, id string) error {
	err := s.instanceCall(ctx, "delete", id, func(ctx context.Context, ref *gcpurl.ResourceURL) (*compute.Operation, error) {
		return s.p.clients.Compute.Instances.Delete(ref.Project, ref.Zone, ref.Name).Context(ctx).Do()
	})
	return contracts.IgnoreNotFound(err)
}

func (s *instanceService) Reboot(ctx context.Context, id string) error {
	return s.instanceCall(ctx, "reboot", id, func(ctx context.Context, ref *gcpurl.ResourceURL) (*compute.Operation, error) {
		return s.p.clients.Compute.Instances.Reset(ref.Project, ref.Zone, ref.Name).Context(ctx).Do()
	})
}

func (s *instanceService) Start(ctx context.Context, id string) error {
	return s.instanceCall(ctx, "start", id, func(ctx context.Context, ref *gcpurl.ResourceURL) (*compute.Operation, error) {
		return s.p.clients.Compute.Instances.Start(ref.Project, ref.Zone, ref.Name).Context(ctx).Do()
	})
}

func (s *instanceService) Stop(ctx context.Context, id string) error {
	return s.instanceCall(ctx, "stop", id, func(ctx context.Context, ref *gcpurl.ResourceURL) (*compute.Operation, error) {
		return s.p.clients.Compute.Instances.Stop(ref.Project, ref.Zone, ref.Name).Context(ctx).Do()
	})
}

func (s *instanceService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	return s.instanceCall(ctx, "set_label", id, func(ctx context.Context, ref *gcpurl.ResourceURL) (*compute.Operation, error) {
		i, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.p.clients.Compute.Instances.SetLabels(ref.Project, ref.Zone, ref.Name, &compute.InstancesSetLabelsRequest{
			Labels:           withLabel(i.Labels, label),
			LabelFingerprint: i.LabelFingerprint,
		}).Context(ctx).Do()
	})
}

// setTags replaces the network tags of an instance with edit(current).
// VM firewalls apply to instances through these tags.
func (s *instanceService) setTags(ctx context.Context, operation, id string, edit func([]string) []string) error {
	return s.instanceCall(ctx, operation, id, func(ctx context.Context, ref *gcpurl.ResourceURL) (*compute.Operation, error) {
		i, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		tags := i.Tags
		if tags == nil {
			tags = &compute.Tags{}
		}
		items := edit(slices.Clone(tags.Items))
		if slices.Equal(items, tags.Items) {
			return nil, nil
		}
		return s.p.clients.Compute.Instances.SetTags(ref.Project, ref.Zone, ref.Name, &compute.Tags{
			Items:       items,
			Fingerprint: tags.Fingerprint,
		}).Context(ctx).Do()
	})
}

func (s *instanceService) AddVMFirewall(ctx context.Context, id, firewallID string) error {
	tag := gcpurl.Name(firewallID)
	return s.setTags(ctx, "add_vm_firewall", id, func(items []string) []string {
		if slices.Contains(items, tag) {
			return items
		}
		return append(items, tag)
	})
}

func (s *instanceService) RemoveVMFirewall(ctx context.Context, id, firewallID string) error {
	tag := gcpurl.Name(firewallID)
	return s.setTags(ctx, "remove_vm_firewall", id, func(items []string) []string {
		return slices.DeleteFunc(items, func(t string) bool { return t == tag })
	})
}

// AddFloatingIP replaces the ephemeral external address of the primary
// interface with the reserved address
func (s *instanceService) AddFloatingIP(ctx context.Context, id, floatingIPID string) error {
	fip, err := s.p.networking.FloatingIPs.Get(ctx, floatingIPID)
	if err != nil {
		return err
	}
	i, err := common.Call(ctx, s.p.caller, contracts.ServiceInstances, "get", id, func(ctx context.Context) (*compute.Instance, error) {
		return s.fetch(ctx, id)
	})
	if err != nil {
		return err
	}
	if len(i.NetworkInterfaces) == 0 {
		return contracts.NewInvalidValueError(fmt.Sprintf("instance %s has no network interface", i.Name), nil)
	}
	nic := i.NetworkInterfaces[0]
	for _, ac := range nic.AccessConfigs {
		if ac.NatIP == fip.PublicIP {
			return nil
		}
		err := s.instanceCall(ctx, "remove_access_config", id, func(ctx context.Context, ref *gcpurl.ResourceURL) (*compute.Operation, error) {
			return s.p.clients.Compute.Instances.DeleteAccessConfig(ref.Project, ref.Zone, ref.Name, ac.Name, nic.Name).Context(ctx).Do()
		})
		if err != nil {
			return err
		}
	}
	return s.instanceCall(ctx, "add_floating_ip", id, func(ctx context.Context, ref *gcpurl.ResourceURL) (*compute.Operation, error) {
		return s.p.clients.Compute.Instances.AddAccessConfig(ref.Project, ref.Zone, ref.Name, nic.Name, &compute.AccessConfig{
			Name:  externalNAT,
			Type:  oneToOneNAT,
			NatIP: fip.PublicIP,
		}).Context(ctx).Do()
	})
}

func (s *instanceService) RemoveFloatingIP(ctx context.Context, id, floatingIPID string) error {
	fip, err := s.p.networking.FloatingIPs.Get(ctx, floatingIPID)
	if err != nil {
		return err
	}
	return s.instanceCall(ctx, "remove_floating_ip", id, func(ctx context.Context, ref *gcpurl.ResourceURL) (*compute.Operation, error) {
		i, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, nic := range i.NetworkInterfaces {
			for _, ac := range nic.AccessConfigs {
				if ac.NatIP == fip.PublicIP {
					return s.p.clients.Compute.Instances.DeleteAccessConfig(ref.Project, ref.Zone, ref.Name, ac.Name, nic.Name).Context(ctx).Do()
				}
			}
		}
		return nil, contracts.NewInvalidValueError(fmt.Sprintf("floating ip %s is not associated with %s", fip.PublicIP, i.Name), nil)
	})
}

// CreateImage captures the boot disk of the instance
func (s *instanceService) CreateImage(ctx context.Context, id, label string) (*contracts.MachineImage, error) {
	name, err := common.NameFromLabel(label)
	if err != nil {
		return nil, err
	}
	err = s.p.mutate(ctx, contracts.ServiceInstances, "create_image", id, func(ctx context.Context) (*compute.Operation, error) {
		i, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		var source string
		for _, d := range i.Disks {
			if d.Boot {
				source = d.Source
			}
		}
		if source == "" {
			return nil, contracts.NewInvalidValueError(fmt.Sprintf("instance %s has no boot disk", i.Name), nil)
		}
		return s.p.clients.Compute.Images.Insert(s.p.project, &compute.Image{
			Name:       name,
			SourceDisk: source,
			Labels:     withLabel(nil, label),
		}).ForceCreate(true).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return s.p.compute.Images.Get(ctx, name)
}

type vmTypeService struct{ p *Provider }

func toVMType(mt *compute.MachineType) *contracts.VMType {
	family, _, _ := strings.Cut(mt.Name, "-")
	vt := &contracts.VMType{
		Resource: contracts.Resource{ID: mt.SelfLink, Name: mt.Name, CreateTime: parseTime(mt.CreationTimestamp)},
		Family:   family,
		VCPUs:    int(mt.GuestCpus),
		RAMGB:    float64(mt.MemoryMb) / 1024,
		Extra: map[string]string{
			"description":            mt.Description,
			"maximumPersistentDisks": fmt.Sprint(mt.MaximumPersistentDisks),
			"isSharedCpu":            fmt.Sprint(mt.IsSharedCpu),
		},
	}
	return vt
}

func (s *vmTypeService) Get(ctx context.Context, id string) (*contracts.VMType, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMTypes, "get", id, func(ctx context.Context) (*contracts.VMType, error) {
		ref, err := s.p.ref(id, "machineTypes")
		if err != nil {
			return nil, err
		}
		mt, err := s.p.clients.Compute.MachineTypes.Get(ref.Project, ref.Zone, ref.Name).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return toVMType(mt), nil
	})
}

func (s *vmTypeService) page(ctx context.Context) pageFunc[*contracts.VMType] {
	return func(maxResults int64, token string) ([]*contracts.VMType, string, error) {
		out, err := s.p.clients.Compute.MachineTypes.List(s.p.project, s.p.zone).MaxResults(maxResults).PageToken(token).Context(ctx).Do()
		if err != nil {
			return nil, "", err
		}
		var items []*contracts.VMType
		for _, mt := range out.Items {
			items = append(items, toVMType(mt))
		}
		return items, out.NextPageToken, nil
	}
}

func (s *vmTypeService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.VMType], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMTypes, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.VMType], error) {
		return listPage(opts, s.page(ctx))
	})
}

func (s *vmTypeService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.VMType], error) {
	return common.FindAll(ctx, s.List, opts)
}

type regionService struct{ p *Provider }

func toRegion(r *compute.Region) *contracts.Region {
	region := &contracts.Region{
		Resource: contracts.Resource{ID: r.SelfLink, Name: r.Name, CreateTime: parseTime(r.CreationTimestamp)},
	}
	for _, z := range r.Zones {
		region.Zones = append(region.Zones, contracts.PlacementZone{ID: z, Name: lastSegment(z), RegionName: r.Name})
	}
	return region
}

func (s *regionService) Get(ctx context.Context, id string) (*contracts.Region, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRegions, "get", id, func(ctx context.Context) (*contracts.Region, error) {
		r, err := s.p.clients.Compute.Regions.Get(s.p.project, gcpurl.Name(id)).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return toRegion(r), nil
	})
}

func (s *regionService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Region], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRegions, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Region], error) {
		return listPage(opts, func(maxResults int64, token string) ([]*contracts.Region, string, error) {
			out, err := s.p.clients.Compute.Regions.List(s.p.project).MaxResults(maxResults).PageToken(token).Context(ctx).Do()
			if err != nil {
				return nil, "", err
			}
			var items []*contracts.Region
			for _, r := range out.Items {
				items = append(items, toRegion(r))
			}
			return items, out.NextPageToken, nil
		})
	})
}

func (s *regionService) Current(ctx context.Context) (*contracts.Region, error) {
	return s.Get(ctx, s.p.region)
}

type imageService struct{ p *Provider }

func toImage(img *compute.Image) *contracts.MachineImage {
	label, tags := splitLabels(img.Labels)
	out := &contracts.MachineImage{
		Resource: contracts.Resource{
			ID:         img.SelfLink,
			Name:       img.Name,
			Label:      label,
			CreateTime: parseTime(img.CreationTimestamp),
			Tags:       tags,
		},
		Description: img.Description,
		State:       imageStates.Lookup(img.Status),
		MinDiskGB:   int(img.DiskSizeGb),
	}
	if ref, err := gcpurl.Parse(img.SelfLink); err == nil {
		out.OwnerID = ref.Project
	}
	return out
}

func (s *imageService) fetch(ctx context.Context, id string) (*compute.Image, error) {
	ref, err := s.p.ref(id, "images")
	if err != nil {
		return nil, err
	}
	return s.p.clients.Compute.Images.Get(ref.Project, ref.Name).Context(ctx).Do()
}

func (s *imageService) Get(ctx context.Context, id string) (*contracts.MachineImage, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceImages, "get", id, func(ctx context.Context) (*contracts.MachineImage, error) {
		img, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		return toImage(img), nil
	})
}

func (s *imageService) page(ctx context.Context, project string) pageFunc[*contracts.MachineImage] {
	return func(maxResults int64, token string) ([]*contracts.MachineImage, string, error) {
		out, err := s.p.clients.Compute.Images.List(project).MaxResults(maxResults).PageToken(token).Context(ctx).Do()
		if err != nil {
			return nil, "", err
		}
		var items []*contracts.MachineImage
		for _, img := range out.Items {
			if img.Deprecated != nil && img.Deprecated.State != "" && img.Deprecated.State != "ACTIVE" {
				continue
			}
			items = append(items, toImage(img))
		}
		return items, out.NextPageToken, nil
	}
}

// List returns the project's own images
func (s *imageService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.MachineImage], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceImages, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.MachineImage], error) {
		return listPage(opts, s.page(ctx, s.p.project))
	})
}

// Find also searches the public image projects
func (s *imageService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.MachineImage], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceImages, "find", "", func(ctx context.Context) (*paging.ResultList[*contracts.MachineImage], error) {
		var all []*contracts.MachineImage
		for _, project := range append([]string{s.p.project}, publicImageProjects...) {
			images, err := listAll(s.page(ctx, project))
			if err != nil {
				return nil, err
			}
			all = append(all, images...)
		}
		return paging.Find(all, opts), nil
	})
}

func (s *imageService) Delete(ctx context.Context, id string) error {
	ref, err := s.p.ref(id, "images")
	if err != nil {
		return err
	}
	err = s.p.mutate(ctx, contracts.ServiceImages, "delete", id, func(ctx context.Context) (*compute.Operation, error) {
		return s.p.clients.Compute.Images.Delete(ref.Project, ref.Name).Context(ctx).Do()
	})
	return contracts.IgnoreNotFound(err)
}

func (s *imageService) SetLabel(ctx context.Context, id, label string) error {
	if err := contracts.ValidateLabel(label); err != nil {
		return err
	}
	ref, err := s.p.ref(id, "images")
	if err != nil {
		return err
	}
	return s.p.mutate(ctx, contracts.ServiceImages, "set_label", id, func(ctx context.Context) (*compute.Operation, error) {
		img, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.p.clients.Compute.Images.SetLabels(ref.Project, ref.Name, &compute.GlobalSetLabelsRequest{
			Labels:           withLabel(img.Labels, label),
			LabelFingerprint: img.LabelFingerprint,
		}).Context(ctx).Do()
	})
}
