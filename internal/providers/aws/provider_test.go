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
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

type testEnv struct {
	p     *Provider
	ec2   *fakeEC2
	s3    *fakeS3
	route *fakeRoute53
}

func newTestProvider(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{ec2: &fakeEC2{}, s3: newFakeS3(), route: newFakeRoute53()}
	env.p = NewWithClients(config.DefaultConfig(), &Clients{
		EC2:      env.ec2,
		S3:       env.s3,
		Uploader: &fakeUploader{s3: env.s3},
		Route53:  env.route,
	})
	return env
}

func seedInstances(f *fakeEC2, n int, state string) {
	for i := 0; i < n; i++ {
		f.instances = append(f.instances, &ec2.Instance{
			InstanceId: aws.String(f.nextID("i")),
			State:      &ec2.InstanceState{Name: aws.String(state)},
			Tags:       []*ec2.Tag{{Key: aws.String(labelTag), Value: aws.String(fmt.Sprintf("web-%d", i))}},
		})
	}
}

func TestAWSProvider_Basics(t *testing.T) {
	env := newTestProvider(t)

	assert.Equal(t, contracts.ProviderAWS, env.p.Type())
	assert.Equal(t, "us-east-1", env.p.Region())
	assert.Equal(t, "us-east-1a", env.p.Zone())
	for _, svc := range contracts.AllServices {
		assert.True(t, env.p.HasService(svc), svc)
	}
}

func TestAWSInstances_ListUsesServerPaging(t *testing.T) {
	env := newTestProvider(t)
	seedInstances(env.ec2, 7, ec2.InstanceStateNameRunning)
	ctx := context.Background()

	first, err := env.p.Compute().Instances.List(ctx, paging.ListOptions{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, first.Items, 5)
	assert.True(t, first.SupportsServerPaging)
	assert.True(t, first.IsTruncated)
	assert.Equal(t, []int64{5}, env.ec2.instanceMaxPages)

	second, err := env.p.Compute().Instances.List(ctx, paging.ListOptions{Limit: 5, Marker: first.Marker})
	require.NoError(t, err)
	assert.Len(t, second.Items, 2)
	assert.False(t, second.IsTruncated)
	assert.Empty(t, second.Marker)
}

func TestAWSInstances_ListFallsBackToClientPaging(t *testing.T) {
	env := newTestProvider(t)
	seedInstances(env.ec2, 7, ec2.InstanceStateNameRunning)
	seedInstances(env.ec2, 1, ec2.InstanceStateNameTerminated)
	ctx := context.Background()

	// 3 is below the smallest MaxResults EC2 accepts
	page, err := env.p.Compute().Instances.List(ctx, paging.ListOptions{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.False(t, page.SupportsServerPaging)
	assert.Equal(t, 7, page.TotalResults)
	assert.Equal(t, page.Items[2].ID, page.Marker)
	assert.Equal(t, []int64{int64(ec2Paging.max)}, env.ec2.instanceMaxPages)

	all, err := paging.All[*contracts.Instance](ctx, env.p.Compute().Instances.List, 3)
	require.NoError(t, err)
	assert.Len(t, all, 7)
	for _, inst := range all {
		assert.Equal(t, contracts.InstanceStateRunning, inst.State)
	}
}

func TestAWSInstances_FindByLabel(t *testing.T) {
	env := newTestProvider(t)
	seedInstances(env.ec2, 4, ec2.InstanceStateNameRunning)

	found, err := env.p.Compute().Instances.Find(context.Background(), paging.FindOptions{Label: "web-2"})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "web-2", found.Items[0].Label)
}

func TestAWSInstances_GetMissing(t *testing.T) {
	env := newTestProvider(t)

	_, err := env.p.Compute().Instances.Get(context.Background(), "i-missing")
	assert.Equal(t, contracts.ErrorTypeNotFound, contracts.TypeOf(err))
}

func TestAWSInstances_CreateUsesDefaultVPCSubnet(t *testing.T) {
	env := newTestProvider(t)
	env.ec2.subnets = append(env.ec2.subnets, &ec2.Subnet{
		SubnetId:         aws.String("subnet-default"),
		VpcId:            aws.String("vpc-default"),
		AvailabilityZone: aws.String("us-east-1a"),
		DefaultForAz:     aws.Bool(true),
	})

	inst, err := env.p.Compute().Instances.Create(context.Background(), contracts.CreateInstanceRequest{
		Label:    "web",
		ImageID:  "ami-123",
		VMTypeID: "t3.micro",
		UserData: "#!/bin/sh\necho hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "web", inst.Label)
	assert.Equal(t, "subnet-default", inst.SubnetID)
	assert.Equal(t, contracts.InstanceStatePending, inst.State)

	require.Len(t, env.ec2.runInputs, 1)
	in := env.ec2.runInputs[0]
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("#!/bin/sh\necho hi")), aws.StringValue(in.UserData))
	assert.Empty(t, env.ec2.vpcs, "no network is created when a default VPC exists")
}

func TestAWSInstances_CreateBuildsDefaultNetworkOnce(t *testing.T) {
	env := newTestProvider(t)
	ctx := context.Background()
	req := contracts.CreateInstanceRequest{Label: "app", ImageID: "ami-123", VMTypeID: "t3.micro"}

	first, err := env.p.Compute().Instances.Create(ctx, req)
	require.NoError(t, err)
	second, err := env.p.Compute().Instances.Create(ctx, req)
	require.NoError(t, err)

	require.Len(t, env.ec2.vpcs, 1)
	require.Len(t, env.ec2.subnets, 1)
	assert.Equal(t, common.DefaultNetworkCIDR, aws.StringValue(env.ec2.vpcs[0].CidrBlock))
	assert.Equal(t, common.DefaultSubnetCIDR(0), aws.StringValue(env.ec2.subnets[0].CidrBlock))
	assert.Equal(t, first.SubnetID, second.SubnetID)
}

func TestAWSInstances_CreateRejectsUnsupportedDevices(t *testing.T) {
	env := newTestProvider(t)

	_, err := env.p.Compute().Instances.Create(context.Background(), contracts.CreateInstanceRequest{
		Label:    "app",
		ImageID:  "ami-123",
		VMTypeID: "t3.micro",
		SubnetID: "subnet-1",
		LaunchConfig: &contracts.LaunchConfig{BlockDevices: []contracts.BlockDevice{
			{SourceVolumeID: "vol-1"},
		}},
	})
	assert.Equal(t, contracts.ErrorTypeNotSupported, contracts.TypeOf(err))
	assert.Empty(t, env.ec2.runInputs)
}

func TestAWSInstances_CreateMapsExtraDisks(t *testing.T) {
	env := newTestProvider(t)

	_, err := env.p.Compute().Instances.Create(context.Background(), contracts.CreateInstanceRequest{
		Label:    "app",
		ImageID:  "ami-123",
		VMTypeID: "t3.micro",
		SubnetID: "subnet-1",
		LaunchConfig: &contracts.LaunchConfig{BlockDevices: []contracts.BlockDevice{
			{SizeGB: 20, DeleteOnTerminate: true},
			{Ephemeral: true},
			{SourceSnapshotID: "snap-1"},
		}},
	})
	require.NoError(t, err)

	mappings := env.ec2.runInputs[0].BlockDeviceMappings
	require.Len(t, mappings, 3)
	assert.Equal(t, "/dev/sdb", aws.StringValue(mappings[0].DeviceName))
	assert.Equal(t, int64(20), aws.Int64Value(mappings[0].Ebs.VolumeSize))
	assert.Equal(t, "ephemeral0", aws.StringValue(mappings[1].VirtualName))
	assert.Equal(t, "snap-1", aws.StringValue(mappings[2].Ebs.SnapshotId))
}

func TestAWSInstances_SetLabel(t *testing.T) {
	env := newTestProvider(t)
	ctx := context.Background()

	require.NoError(t, env.p.Compute().Instances.SetLabel(ctx, "i-1", "renamed"))
	require.Len(t, env.ec2.createdTags, 1)
	assert.Equal(t, "renamed", aws.StringValue(env.ec2.createdTags[0].Tags[0].Value))

	require.NoError(t, env.p.Compute().Instances.SetLabel(ctx, "i-1", ""))
	require.Len(t, env.ec2.deletedTags, 1)
	assert.Equal(t, labelTag, aws.StringValue(env.ec2.deletedTags[0].Tags[0].Key))

	err := env.p.Compute().Instances.SetLabel(ctx, "i-1", "Not A Label")
	assert.Equal(t, contracts.ErrorTypeInvalidLabel, contracts.TypeOf(err))
}

func TestAWSVMTypes_ListClampsToInstanceTypeBounds(t *testing.T) {
	env := newTestProvider(t)
	for i := 0; i < 3; i++ {
		env.ec2.instanceTypes = append(env.ec2.instanceTypes, &ec2.InstanceTypeInfo{
			InstanceType: aws.String(fmt.Sprintf("m5.%dxlarge", i+1)),
			VCpuInfo:     &ec2.VCpuInfo{DefaultVCpus: aws.Int64(int64(4 * (i + 1)))},
			MemoryInfo:   &ec2.MemoryInfo{SizeInMiB: aws.Int64(int64(16384 * (i + 1)))},
		})
	}

	// 500 exceeds the DescribeInstanceTypes maximum of 100
	types, err := env.p.Compute().VMTypes.List(context.Background(), paging.ListOptions{Limit: 500})
	require.NoError(t, err)
	require.Len(t, types.Items, 3)
	assert.Equal(t, []int64{int64(instanceTypePaging.max)}, env.ec2.typeMaxPages)
	assert.Equal(t, "m5", types.Items[0].Family)
	assert.Equal(t, 4, types.Items[0].VCPUs)
	assert.InDelta(t, 16.0, types.Items[0].RAMGB, 0.001)
}

func TestAWSFirewalls_Rules(t *testing.T) {
	env := newTestProvider(t)
	ctx := context.Background()
	firewalls := env.p.Security().VMFirewalls

	fw, err := firewalls.Create(ctx, contracts.CreateVMFirewallRequest{Label: "web", NetworkID: "vpc-1"})
	require.NoError(t, err)
	assert.Equal(t, "vpc-1", fw.NetworkID)
	assert.NotEmpty(t, fw.Description)

	rule, err := firewalls.Rules().Create(ctx, fw.ID, contracts.CreateFirewallRuleRequest{
		Direction: contracts.TrafficInbound,
		Protocol:  contracts.ProtocolTCP,
		FromPort:  22,
		ToPort:    22,
	})
	require.NoError(t, err)
	assert.Equal(t, common.AnyIPv4, rule.CIDR)
	assert.Equal(t, 22, rule.FromPort)

	_, err = firewalls.Rules().Create(ctx, fw.ID, contracts.CreateFirewallRuleRequest{
		Direction: contracts.TrafficInbound,
		Protocol:  contracts.ProtocolTCP,
		FromPort:  22,
		ToPort:    22,
		CIDR:      common.AnyIPv4,
	})
	assert.Equal(t, contracts.ErrorTypeDuplicate, contracts.TypeOf(err))

	icmp, err := firewalls.Rules().Create(ctx, fw.ID, contracts.CreateFirewallRuleRequest{
		Direction: contracts.TrafficInbound,
		Protocol:  contracts.ProtocolICMP,
		CIDR:      "10.0.0.0/8",
	})
	require.NoError(t, err)
	assert.Zero(t, icmp.FromPort)

	rules, err := firewalls.Rules().List(ctx, fw.ID, paging.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, rules.Items, 2)

	require.NoError(t, firewalls.Rules().Delete(ctx, fw.ID, rule.ID))
	require.NoError(t, firewalls.Rules().Delete(ctx, fw.ID, "sgr-unknown"))
	got, err := firewalls.Get(ctx, fw.ID)
	require.NoError(t, err)
	require.Len(t, got.Rules, 1)
	assert.Equal(t, icmp.ID, got.Rules[0].ID)
}

func TestAWSKeyPairs_Create(t *testing.T) {
	env := newTestProvider(t)
	ctx := context.Background()
	keyPairs := env.p.Security().KeyPairs

	generated, err := keyPairs.Create(ctx, contracts.CreateKeyPairRequest{Name: "deploy"})
	require.NoError(t, err)
	assert.Equal(t, "deploy", generated.ID)
	assert.Contains(t, generated.PrivateKey, "PRIVATE KEY")

	_, err = keyPairs.Create(ctx, contracts.CreateKeyPairRequest{Name: "deploy"})
	assert.Equal(t, contracts.ErrorTypeDuplicate, contracts.TypeOf(err))

	_, err = keyPairs.Create(ctx, contracts.CreateKeyPairRequest{Name: "imported", PublicKey: "not a key"})
	assert.Equal(t, contracts.ErrorTypeInvalidValue, contracts.TypeOf(err))

	key, err := common.GenerateSSHKey()
	require.NoError(t, err)
	imported, err := keyPairs.Create(ctx, contracts.CreateKeyPairRequest{Name: "imported", PublicKey: key.PublicKey})
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey, imported.PublicKey)
	assert.Empty(t, imported.PrivateKey)
}

func TestAWSBuckets_CreateSetsLocationConstraint(t *testing.T) {
	env := newTestProvider(t)
	ctx := context.Background()
	buckets := env.p.Storage().Buckets

	_, err := buckets.Create(ctx, "cb-east", "")
	require.NoError(t, err)
	_, err = buckets.Create(ctx, "cb-west", "us-west-2")
	require.NoError(t, err)

	require.Len(t, env.s3.createInputs, 2)
	assert.Nil(t, env.s3.createInputs[0].CreateBucketConfiguration)
	assert.Equal(t, "us-west-2", aws.StringValue(env.s3.createInputs[1].CreateBucketConfiguration.LocationConstraint))

	east, err := buckets.Get(ctx, "cb-east")
	require.NoError(t, err)
	assert.Equal(t, usEast1, east.Location)
	west, err := buckets.Get(ctx, "cb-west")
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", west.Location)

	_, err = buckets.Get(ctx, "cb-missing")
	assert.Equal(t, contracts.ErrorTypeNotFound, contracts.TypeOf(err))

	_, err = buckets.Create(ctx, "Bad_Name", "")
	assert.Equal(t, contracts.ErrorTypeInvalidName, contracts.TypeOf(err))
}

func TestAWSBuckets_CreateExistingIsDuplicate(t *testing.T) {
	env := newTestProvider(t)
	ctx := context.Background()
	buckets := env.p.Storage().Buckets

	_, err := buckets.Create(ctx, "cb-east", usEast1)
	require.NoError(t, err)
	_, err = buckets.Create(ctx, "cb-west", "us-west-2")
	require.NoError(t, err)

	_, err = buckets.Create(ctx, "cb-east", usEast1)
	assert.Equal(t, contracts.ErrorTypeDuplicate, contracts.TypeOf(err))
	assert.Len(t, env.s3.createInputs, 2, "an owned us-east-1 bucket is detected before CreateBucket")

	_, err = buckets.Create(ctx, "cb-west", "us-west-2")
	assert.Equal(t, contracts.ErrorTypeDuplicate, contracts.TypeOf(err))
}

func TestAWSObjects_UploadListDownload(t *testing.T) {
	env := newTestProvider(t)
	ctx := context.Background()
	buckets := env.p.Storage().Buckets
	_, err := buckets.Create(ctx, "cb-data", "")
	require.NoError(t, err)
	objects := buckets.Objects()

	for _, key := range []string{"logs/a.txt", "logs/b.txt", "logs/c.txt", "readme.md"} {
		obj, err := objects.Upload(ctx, "cb-data", key, strings.NewReader("content of "+key))
		require.NoError(t, err)
		assert.Equal(t, int64(len("content of "+key)), obj.Size)
	}

	page, err := objects.List(ctx, "cb-data", "logs/", paging.ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.IsTruncated)
	assert.True(t, page.SupportsServerPaging)

	rest, err := objects.List(ctx, "cb-data", "logs/", paging.ListOptions{Limit: 2, Marker: page.Marker})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Equal(t, "logs/c.txt", rest.Items[0].Name)
	assert.Equal(t, []int64{2, 2}, env.s3.listMaxKeys)

	var buf bytes.Buffer
	require.NoError(t, objects.Download(ctx, "cb-data", "readme.md", &buf))
	assert.Equal(t, "content of readme.md", buf.String())

	err = objects.Download(ctx, "cb-data", "missing", &buf)
	assert.Equal(t, contracts.ErrorTypeNotFound, contracts.TypeOf(err))
}

func TestAWSDNS_ZonesAndRecords(t *testing.T) {
	env := newTestProvider(t)
	ctx := context.Background()
	dns := env.p.DNS()

	zone, err := dns.Zones.Create(ctx, contracts.CreateDNSZoneRequest{
		Name:        "Example.COM",
		AdminEmail:  "admin@example.com",
		Description: "test zone",
	})
	require.NoError(t, err)
	assert.Equal(t, "example.com.", zone.Name)
	assert.Equal(t, "admin@example.com", zone.AdminEmail)
	assert.Equal(t, "test zone", zone.Description)
	assert.False(t, strings.HasPrefix(zone.ID, hostedZonePrefix))

	_, err = dns.Zones.Create(ctx, contracts.CreateDNSZoneRequest{Name: "example.com"})
	assert.Equal(t, contracts.ErrorTypeDuplicate, contracts.TypeOf(err))

	txt, err := dns.Records.Create(ctx, zone.ID, contracts.CreateDNSRecordRequest{
		Name: "www",
		Type: contracts.DNSRecordTXT,
		Data: []string{"v=spf1 -all"},
	})
	require.NoError(t, err)
	assert.Equal(t, "www.example.com.:TXT", txt.ID)
	assert.Equal(t, common.DefaultRecordTTL, txt.TTL)

	got, err := dns.Records.Get(ctx, zone.ID, txt.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"v=spf1 -all"}, got.Data, "TXT values are unquoted")

	_, err = dns.Records.Create(ctx, zone.ID, contracts.CreateDNSRecordRequest{
		Name: "www.example.com.",
		Type: contracts.DNSRecordTXT,
		Data: []string{"again"},
	})
	assert.Equal(t, contracts.ErrorTypeDuplicate, contracts.TypeOf(err))

	_, err = dns.Records.Get(ctx, zone.ID, "api.example.com.:A")
	assert.Equal(t, contracts.ErrorTypeNotFound, contracts.TypeOf(err))

	// apex NS and SOA plus the TXT record
	first, err := dns.Records.List(ctx, zone.ID, paging.ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	assert.Equal(t, txt.ID, first.Marker)
	second, err := dns.Records.List(ctx, zone.ID, paging.ListOptions{Limit: 2, Marker: first.Marker})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, txt.ID, second.Items[0].ID)

	require.NoError(t, dns.Zones.Delete(ctx, zone.ID))
	_, err = dns.Zones.Get(ctx, zone.ID)
	assert.Equal(t, contracts.ErrorTypeNotFound, contracts.TypeOf(err))
}

func TestZoneComment(t *testing.T) {
	tests := []struct {
		admin, description, comment string
	}{
		{"", "plain", "plain"},
		{"a@b.org", "", "admin_email=a@b.org"},
		{"a@b.org", "with words", "admin_email=a@b.org with words"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.comment, zoneComment(tt.admin, tt.description))
		admin, description := parseZoneComment(tt.comment)
		assert.Equal(t, tt.admin, admin)
		assert.Equal(t, tt.description, description)
	}
}
