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
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// liveInstanceStates excludes terminated instances from listings
var liveInstanceStates = []string{"pending", "running", "shutting-down", "stopping", "stopped"}

type instanceService struct{ p *Provider }

func toInstance(i *ec2.Instance) *contracts.Instance {
	res := resource(aws.StringValue(i.InstanceId), i.Tags)
	res.CreateTime = aws.TimeValue(i.LaunchTime)
	inst := &contracts.Instance{
		Resource:  res,
		State:     contracts.InstanceStateUnknown,
		VMTypeID:  aws.StringValue(i.InstanceType),
		ImageID:   aws.StringValue(i.ImageId),
		SubnetID:  aws.StringValue(i.SubnetId),
		KeyPairID: aws.StringValue(i.KeyName),
	}
	if i.State != nil {
		inst.State = instanceStates.Lookup(aws.StringValue(i.State.Name))
	}
	if i.Placement != nil {
		inst.ZoneID = aws.StringValue(i.Placement.AvailabilityZone)
	}
	for _, sg := range i.SecurityGroups {
		inst.VMFirewallIDs = append(inst.VMFirewallIDs, aws.StringValue(sg.GroupId))
	}
	if ip := aws.StringValue(i.PublicIpAddress); ip != "" {
		inst.PublicIPs = []string{ip}
	}
	if ip := aws.StringValue(i.PrivateIpAddress); ip != "" {
		inst.PrivateIPs = []string{ip}
	}
	return inst
}

func (s *instanceService) describe(ctx context.Context, input *ec2.DescribeInstancesInput) ([]*contracts.Instance, *string, error) {
	out, err := s.p.clients.EC2.DescribeInstancesWithContext(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	var instances []*contracts.Instance
	for _, r := range out.Reservations {
		for _, i := range r.Instances {
			instances = append(instances, toInstance(i))
		}
	}
	return instances, out.NextToken, nil
}

func (s *instanceService) Get(ctx context.Context, id string) (*contracts.Instance, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceInstances, "get", id, func(ctx context.Context) (*contracts.Instance, error) {
		instances, _, err := s.describe(ctx, &ec2.DescribeInstancesInput{InstanceIds: aws.StringSlice([]string{id})})
		if err != nil {
			return nil, err
		}
		return firstOrNotFound(instances, "instance", id)
	})
}

func (s *instanceService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Instance], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceInstances, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Instance], error) {
		return listEC2(opts, ec2Paging, func(maxResults *int64, token *string) ([]*contracts.Instance, *string, error) {
			return s.describe(ctx, &ec2.DescribeInstancesInput{
				Filters:    []*ec2.Filter{filter("instance-state-name", liveInstanceStates...)},
				MaxResults: maxResults,
				NextToken:  token,
			})
		})
	})
}

// Find filters by label on the server through the Name tag
func (s *instanceService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.Instance], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceInstances, "find", "", func(ctx context.Context) (*paging.ResultList[*contracts.Instance], error) {
		filters := []*ec2.Filter{filter("instance-state-name", liveInstanceStates...)}
		if opts.Label != "" {
			filters = append(filters, filter("tag:"+labelTag, opts.Label))
		}
		all, err := fetchAll(ec2Paging, func(maxResults *int64, token *string) ([]*contracts.Instance, *string, error) {
			return s.describe(ctx, &ec2.DescribeInstancesInput{Filters: filters, MaxResults: maxResults, NextToken: token})
		})
		if err != nil {
			return nil, err
		}
		return paging.Find(all, opts), nil
	})
}

func (s *instanceService) Create(ctx context.Context, req contracts.CreateInstanceRequest) (*contracts.Instance, error) {
	if err := contracts.ValidateLabel(req.Label); err != nil {
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
	mappings, err := s.blockDeviceMappings(ctx, req)
	if err != nil {
		return nil, err
	}

	input := &ec2.RunInstancesInput{
		ImageId:             aws.String(req.ImageID),
		InstanceType:        aws.String(req.VMTypeID),
		MinCount:            aws.Int64(1),
		MaxCount:            aws.Int64(1),
		SubnetId:            aws.String(subnetID),
		BlockDeviceMappings: mappings,
		TagSpecifications:   tagSpec(ec2.ResourceTypeInstance, req.Label, nil),
	}
	if len(req.VMFirewallIDs) > 0 {
		input.SecurityGroupIds = aws.StringSlice(req.VMFirewallIDs)
	}
	if req.KeyPairName != "" {
		input.KeyName = aws.String(req.KeyPairName)
	}
	if req.UserData != "" {
		input.UserData = aws.String(base64.StdEncoding.EncodeToString([]byte(req.UserData)))
	}

	return common.Call(ctx, s.p.caller, contracts.ServiceInstances, "create", "", func(ctx context.Context) (*contracts.Instance, error) {
		res, err := s.p.clients.EC2.RunInstancesWithContext(ctx, input)
		if err != nil {
			return nil, err
		}
		if len(res.Instances) == 0 {
			return nil, contracts.NewProviderInternalError("RunInstances returned no instance", nil)
		}
		return toInstance(res.Instances[0]), nil
	})
}

// blockDeviceMappings translates a LaunchConfig. The root disk keeps the
// image's root device name; extra disks are named /dev/sdb onwards.
func (s *instanceService) blockDeviceMappings(ctx context.Context, req contracts.CreateInstanceRequest) ([]*ec2.BlockDeviceMapping, error) {
	if req.LaunchConfig == nil || len(req.LaunchConfig.BlockDevices) == 0 {
		return nil, nil
	}

	var mappings []*ec2.BlockDeviceMapping
	next, ephemeral := 'b', 0
	for _, dev := range req.LaunchConfig.BlockDevices {
		switch {
		case dev.IsRoot:
			if dev.SourceImageID != "" && dev.SourceImageID != req.ImageID {
				return nil, contracts.NewInvalidValueError("the root disk must come from the launch image", nil)
			}
			img, err := s.p.compute.Images.Get(ctx, req.ImageID)
			if err != nil {
				return nil, err
			}
			root := &ec2.EbsBlockDevice{DeleteOnTermination: aws.Bool(dev.DeleteOnTerminate)}
			if dev.SizeGB > 0 {
				root.VolumeSize = aws.Int64(int64(dev.SizeGB))
			}
			mappings = append(mappings, &ec2.BlockDeviceMapping{DeviceName: aws.String(img.Tags[rootDeviceTag]), Ebs: root})
			continue
		case dev.SourceVolumeID != "":
			return nil, contracts.NewNotSupportedError("EC2 cannot launch with an existing volume; attach it after launch")
		case dev.SourceImageID != "":
			return nil, contracts.NewNotSupportedError("EC2 only creates the root disk from an image")
		}

		if next > 'z' {
			return nil, contracts.NewInvalidValueError("too many block devices", nil)
		}
		m := &ec2.BlockDeviceMapping{DeviceName: aws.String(fmt.Sprintf("/dev/sd%c", next))}
		next++
		if dev.Ephemeral {
			m.VirtualName = aws.String(fmt.Sprintf("ephemeral%d", ephemeral))
			ephemeral++
		} else {
			ebs := &ec2.EbsBlockDevice{DeleteOnTermination: aws.Bool(dev.DeleteOnTerminate)}
			if dev.SizeGB > 0 {
				ebs.VolumeSize = aws.Int64(int64(dev.SizeGB))
			}
			if dev.SourceSnapshotID != "" {
				ebs.SnapshotId = aws.String(dev.SourceSnapshotID)
			}
			m.Ebs = ebs
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}

func (s *instanceService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceInstances, "delete", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.TerminateInstancesWithContext(ctx, &ec2.TerminateInstancesInput{InstanceIds: aws.StringSlice([]string{id})})
		return err
	})
	return contracts.IgnoreNotFound(err)
}

func (s *instanceService) Reboot(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "reboot", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.RebootInstancesWithContext(ctx, &ec2.RebootInstancesInput{InstanceIds: aws.StringSlice([]string{id})})
		return err
	})
}

func (s *instanceService) Start(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "start", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.StartInstancesWithContext(ctx, &ec2.StartInstancesInput{InstanceIds: aws.StringSlice([]string{id})})
		return err
	})
}

func (s *instanceService) Stop(ctx context.Context, id string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "stop", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.StopInstancesWithContext(ctx, &ec2.StopInstancesInput{InstanceIds: aws.StringSlice([]string{id})})
		return err
	})
}

func (s *instanceService) SetLabel(ctx context.Context, id, label string) error {
	return s.p.setLabel(ctx, contracts.ServiceInstances, id, label)
}

// setGroups replaces the security groups of an instance with edit(current)
func (s *instanceService) setGroups(ctx context.Context, operation, id string, edit func([]string) []string) error {
	inst, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	groups := edit(slices.Clone(inst.VMFirewallIDs))
	if slices.Equal(groups, inst.VMFirewallIDs) {
		return nil
	}
	if len(groups) == 0 {
		return contracts.NewInvalidValueError("an EC2 instance needs at least one security group", nil)
	}
	return s.p.do(ctx, contracts.ServiceInstances, operation, id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.ModifyInstanceAttributeWithContext(ctx, &ec2.ModifyInstanceAttributeInput{
			InstanceId: aws.String(id),
			Groups:     aws.StringSlice(groups),
		})
		return err
	})
}

func (s *instanceService) AddVMFirewall(ctx context.Context, id, firewallID string) error {
	return s.setGroups(ctx, "add_vm_firewall", id, func(groups []string) []string {
		if slices.Contains(groups, firewallID) {
			return groups
		}
		return append(groups, firewallID)
	})
}

func (s *instanceService) RemoveVMFirewall(ctx context.Context, id, firewallID string) error {
	return s.setGroups(ctx, "remove_vm_firewall", id, func(groups []string) []string {
		return slices.DeleteFunc(groups, func(g string) bool { return g == firewallID })
	})
}

func (s *instanceService) AddFloatingIP(ctx context.Context, id, floatingIPID string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "add_floating_ip", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.AssociateAddressWithContext(ctx, &ec2.AssociateAddressInput{
			AllocationId: aws.String(floatingIPID),
			InstanceId:   aws.String(id),
		})
		return err
	})
}

func (s *instanceService) RemoveFloatingIP(ctx context.Context, id, floatingIPID string) error {
	return s.p.do(ctx, contracts.ServiceInstances, "remove_floating_ip", id, func(ctx context.Context) error {
		out, err := s.p.clients.EC2.DescribeAddressesWithContext(ctx, &ec2.DescribeAddressesInput{
			AllocationIds: aws.StringSlice([]string{floatingIPID}),
		})
		if err != nil {
			return err
		}
		addr, err := firstOrNotFound(out.Addresses, "floating ip", floatingIPID)
		if err != nil {
			return err
		}
		if aws.StringValue(addr.InstanceId) != id || aws.StringValue(addr.AssociationId) == "" {
			return contracts.NewInvalidValueError(fmt.Sprintf("floating ip %s is not associated with %s", aws.StringValue(addr.PublicIp), id), nil)
		}
		_, err = s.p.clients.EC2.DisassociateAddressWithContext(ctx, &ec2.DisassociateAddressInput{AssociationId: addr.AssociationId})
		return err
	})
}

func (s *instanceService) CreateImage(ctx context.Context, id, label string) (*contracts.MachineImage, error) {
	name, err := common.NameFromLabel(label)
	if err != nil {
		return nil, err
	}
	imageID, err := common.Call(ctx, s.p.caller, contracts.ServiceInstances, "create_image", id, func(ctx context.Context) (string, error) {
		out, err := s.p.clients.EC2.CreateImageWithContext(ctx, &ec2.CreateImageInput{
			InstanceId:        aws.String(id),
			Name:              aws.String(name),
			TagSpecifications: tagSpec(ec2.ResourceTypeImage, label, nil),
		})
		if err != nil {
			return "", err
		}
		return aws.StringValue(out.ImageId), nil
	})
	if err != nil {
		return nil, err
	}
	return s.p.compute.Images.Get(ctx, imageID)
}

type vmTypeService struct{ p *Provider }

func toVMType(t *ec2.InstanceTypeInfo) *contracts.VMType {
	name := aws.StringValue(t.InstanceType)
	vt := &contracts.VMType{
		Resource: contracts.Resource{ID: name, Name: name},
		Family:   strings.SplitN(name, ".", 2)[0],
		Extra:    map[string]string{},
	}
	if t.VCpuInfo != nil {
		vt.VCPUs = int(aws.Int64Value(t.VCpuInfo.DefaultVCpus))
	}
	if t.MemoryInfo != nil {
		vt.RAMGB = float64(aws.Int64Value(t.MemoryInfo.SizeInMiB)) / 1024
	}
	if t.InstanceStorageInfo != nil {
		vt.SizeEphemeralDisksGB = int(aws.Int64Value(t.InstanceStorageInfo.TotalSizeInGB))
		for _, d := range t.InstanceStorageInfo.Disks {
			vt.NumEphemeralDisks += int(aws.Int64Value(d.Count))
		}
	}
	if t.ProcessorInfo != nil {
		vt.Extra["architectures"] = strings.Join(aws.StringValueSlice(t.ProcessorInfo.SupportedArchitectures), ",")
	}
	if t.CurrentGeneration != nil {
		vt.Extra["currentGeneration"] = fmt.Sprint(aws.BoolValue(t.CurrentGeneration))
	}
	return vt
}

func (s *vmTypeService) describe(ctx context.Context, input *ec2.DescribeInstanceTypesInput) ([]*contracts.VMType, *string, error) {
	out, err := s.p.clients.EC2.DescribeInstanceTypesWithContext(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	types := make([]*contracts.VMType, 0, len(out.InstanceTypes))
	for _, t := range out.InstanceTypes {
		types = append(types, toVMType(t))
	}
	return types, out.NextToken, nil
}

func (s *vmTypeService) Get(ctx context.Context, id string) (*contracts.VMType, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMTypes, "get", id, func(ctx context.Context) (*contracts.VMType, error) {
		types, _, err := s.describe(ctx, &ec2.DescribeInstanceTypesInput{InstanceTypes: aws.StringSlice([]string{id})})
		if err != nil {
			return nil, err
		}
		return firstOrNotFound(types, "vm type", id)
	})
}

func (s *vmTypeService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.VMType], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceVMTypes, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.VMType], error) {
		return listEC2(opts, instanceTypePaging, func(maxResults *int64, token *string) ([]*contracts.VMType, *string, error) {
			return s.describe(ctx, &ec2.DescribeInstanceTypesInput{MaxResults: maxResults, NextToken: token})
		})
	})
}

func (s *vmTypeService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.VMType], error) {
	return common.FindAll(ctx, s.List, opts)
}

type regionService struct{ p *Provider }

func (s *regionService) zones(ctx context.Context) ([]contracts.PlacementZone, error) {
	out, err := s.p.clients.EC2.DescribeAvailabilityZonesWithContext(ctx, &ec2.DescribeAvailabilityZonesInput{})
	if err != nil {
		return nil, err
	}
	zones := make([]contracts.PlacementZone, 0, len(out.AvailabilityZones))
	for _, z := range out.AvailabilityZones {
		zones = append(zones, contracts.PlacementZone{
			ID:         aws.StringValue(z.ZoneName),
			Name:       aws.StringValue(z.ZoneName),
			RegionName: aws.StringValue(z.RegionName),
		})
	}
	return zones, nil
}

// describe lists regions; zones are only visible for the configured region
// because DescribeAvailabilityZones is scoped to the client's endpoint
func (s *regionService) describe(ctx context.Context, names []string) ([]*contracts.Region, error) {
	input := &ec2.DescribeRegionsInput{}
	if len(names) > 0 {
		input.RegionNames = aws.StringSlice(names)
	}
	out, err := s.p.clients.EC2.DescribeRegionsWithContext(ctx, input)
	if err != nil {
		return nil, err
	}
	regions := make([]*contracts.Region, 0, len(out.Regions))
	for _, r := range out.Regions {
		name := aws.StringValue(r.RegionName)
		region := &contracts.Region{
			Resource: contracts.Resource{ID: name, Name: name, Tags: map[string]string{"endpoint": aws.StringValue(r.Endpoint)}},
		}
		if name == s.p.region {
			if region.Zones, err = s.zones(ctx); err != nil {
				return nil, err
			}
		}
		regions = append(regions, region)
	}
	return regions, nil
}

func (s *regionService) Get(ctx context.Context, id string) (*contracts.Region, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRegions, "get", id, func(ctx context.Context) (*contracts.Region, error) {
		regions, err := s.describe(ctx, []string{id})
		if err != nil {
			return nil, err
		}
		return firstOrNotFound(regions, "region", id)
	})
}

func (s *regionService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.Region], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceRegions, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.Region], error) {
		regions, err := s.describe(ctx, nil)
		if err != nil {
			return nil, err
		}
		return common.Page(regions, opts), nil
	})
}

func (s *regionService) Current(ctx context.Context) (*contracts.Region, error) {
	return s.Get(ctx, s.p.region)
}

// rootDeviceTag exposes an image's root device name among its tags
const rootDeviceTag = "rootDeviceName"

type imageService struct{ p *Provider }

func toImage(img *ec2.Image) *contracts.MachineImage {
	label, tags := splitTags(img.Tags)
	if tags == nil {
		tags = map[string]string{}
	}
	tags[rootDeviceTag] = aws.StringValue(img.RootDeviceName)
	mi := &contracts.MachineImage{
		Resource: contracts.Resource{
			ID:    aws.StringValue(img.ImageId),
			Name:  aws.StringValue(img.Name),
			Label: label,
			Tags:  tags,
		},
		Description: aws.StringValue(img.Description),
		State:       imageStates.Lookup(aws.StringValue(img.State)),
		OwnerID:     aws.StringValue(img.OwnerId),
	}
	if created, err := time.Parse(time.RFC3339, aws.StringValue(img.CreationDate)); err == nil {
		mi.CreateTime = created
	}
	for _, bdm := range img.BlockDeviceMappings {
		if aws.StringValue(bdm.DeviceName) == aws.StringValue(img.RootDeviceName) && bdm.Ebs != nil {
			mi.MinDiskGB = int(aws.Int64Value(bdm.Ebs.VolumeSize))
		}
	}
	return mi
}

func (s *imageService) describe(ctx context.Context, input *ec2.DescribeImagesInput) ([]*contracts.MachineImage, *string, error) {
	out, err := s.p.clients.EC2.DescribeImagesWithContext(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	images := make([]*contracts.MachineImage, 0, len(out.Images))
	for _, img := range out.Images {
		images = append(images, toImage(img))
	}
	return images, out.NextToken, nil
}

func (s *imageService) Get(ctx context.Context, id string) (*contracts.MachineImage, error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceImages, "get", id, func(ctx context.Context) (*contracts.MachineImage, error) {
		images, _, err := s.describe(ctx, &ec2.DescribeImagesInput{ImageIds: aws.StringSlice([]string{id})})
		if err != nil {
			return nil, err
		}
		return firstOrNotFound(images, "image", id)
	})
}

// List returns the images owned by the account; public catalogues are
// reachable through Get and Find by name
func (s *imageService) List(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.MachineImage], error) {
	return common.Call(ctx, s.p.caller, contracts.ServiceImages, "list", "", func(ctx context.Context) (*paging.ResultList[*contracts.MachineImage], error) {
		return listEC2(opts, ec2Paging, func(maxResults *int64, token *string) ([]*contracts.MachineImage, *string, error) {
			return s.describe(ctx, &ec2.DescribeImagesInput{
				Owners:     aws.StringSlice([]string{"self"}),
				MaxResults: maxResults,
				NextToken:  token,
			})
		})
	})
}

func (s *imageService) Find(ctx context.Context, opts paging.FindOptions) (*paging.ResultList[*contracts.MachineImage], error) {
	if opts.Name == "" {
		return common.FindAll(ctx, s.List, opts)
	}
	return common.Call(ctx, s.p.caller, contracts.ServiceImages, "find", "", func(ctx context.Context) (*paging.ResultList[*contracts.MachineImage], error) {
		images, _, err := s.describe(ctx, &ec2.DescribeImagesInput{Filters: []*ec2.Filter{filter("name", opts.Name)}})
		if err != nil {
			return nil, err
		}
		return paging.Find(images, opts), nil
	})
}

func (s *imageService) Delete(ctx context.Context, id string) error {
	err := s.p.do(ctx, contracts.ServiceImages, "delete", id, func(ctx context.Context) error {
		_, err := s.p.clients.EC2.DeregisterImageWithContext(ctx, &ec2.DeregisterImageInput{ImageId: aws.String(id)})
		return err
	})
	return contracts.IgnoreNotFound(err)
}

func (s *imageService) SetLabel(ctx context.Context, id, label string) error {
	return s.p.setLabel(ctx, contracts.ServiceImages, id, label)
}
