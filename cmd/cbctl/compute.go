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
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
	"github.com/CloudVE/cloudbridge-sub001/internal/wait"
)

var instanceColumns = columns[contracts.Instance]{
	noun:   "instance",
	header: []string{"ID", "NAME", "LABEL", "STATE", "TYPE", "IMAGE", "ZONE", "PUBLIC IPS", "PRIVATE IPS"},
	row: func(i *contracts.Instance) []string {
		return []string{i.ID, i.Name, i.Label, string(i.State), i.VMTypeID, i.ImageID, i.ZoneID,
			joinOrNone(i.PublicIPs), joinOrNone(i.PrivateIPs)}
	},
}

var vmTypeColumns = columns[contracts.VMType]{
	noun:   "vm type",
	header: []string{"ID", "NAME", "FAMILY", "VCPUS", "RAM GB", "ROOT DISK GB"},
	row: func(t *contracts.VMType) []string {
		return []string{t.ID, t.Name, t.Family, itoa(t.VCPUs), fmt.Sprintf("%g", t.RAMGB), itoa(t.SizeRootDiskGB)}
	},
}

var regionColumns = columns[contracts.Region]{
	noun:   "region",
	header: []string{"ID", "NAME", "ZONES"},
	row: func(r *contracts.Region) []string {
		zones := make([]string, 0, len(r.Zones))
		for _, z := range r.Zones {
			zones = append(zones, z.Name)
		}
		return []string{r.ID, r.Name, joinOrNone(zones)}
	},
}

var imageColumns = columns[contracts.MachineImage]{
	noun:   "image",
	header: []string{"ID", "NAME", "LABEL", "STATE", "MIN DISK GB", "OWNER"},
	row: func(i *contracts.MachineImage) []string {
		return []string{i.ID, i.Name, i.Label, string(i.State), itoa(i.MinDiskGB), i.OwnerID}
	},
}

func instances(p contracts.Provider) contracts.Reader[contracts.Instance] {
	return p.Compute().Instances
}

func newInstanceCommand(a *app) *cobra.Command {
	instanceCmd := &cobra.Command{
		Use:     "instance",
		Aliases: []string{"instances", "vm"},
		Short:   "Manage virtual machine instances",
	}

	instanceCmd.AddCommand(
		listCommand(a, contracts.ServiceInstances, instanceColumns, instances),
		getCommand(a, contracts.ServiceInstances, instanceColumns,
			func(ctx context.Context, p contracts.Provider, id string) (*contracts.Instance, error) {
				return p.Compute().Instances.Get(ctx, id)
			}),
		newInstanceCreateCommand(a),
		deleteCommand(a, "instance", contracts.ServiceInstances,
			func(ctx context.Context, p contracts.Provider, id string) error {
				return p.Compute().Instances.Delete(ctx, id)
			}),
		powerCommand(a, "reboot", "an instance", contracts.InstanceStateRunning,
			func(ctx context.Context, svc contracts.InstanceService, id string) error { return svc.Reboot(ctx, id) }),
		powerCommand(a, "start", "a stopped instance", contracts.InstanceStateRunning,
			func(ctx context.Context, svc contracts.InstanceService, id string) error { return svc.Start(ctx, id) }),
		powerCommand(a, "stop", "a running instance", contracts.InstanceStateStopped,
			func(ctx context.Context, svc contracts.InstanceService, id string) error { return svc.Stop(ctx, id) }),
		newInstanceWaitCommand(a),
		newInstanceImageCommand(a),
	)
	return instanceCmd
}

func newInstanceCreateCommand(a *app) *cobra.Command {
	var (
		req          contracts.CreateInstanceRequest
		userDataFile string
		dataDiskGB   int
		waitReady    bool
	)
	cmd := &cobra.Command{
		Use:   "create LABEL",
		Short: "Launch an instance",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&req.ImageID, "image", "", "boot image ID")
	cmd.Flags().StringVar(&req.VMTypeID, "vm-type", "", "instance size")
	cmd.Flags().StringVar(&req.SubnetID, "subnet", "", "subnet ID (default: the provider default subnet)")
	cmd.Flags().StringVar(&req.Zone, "zone", "", "placement zone")
	cmd.Flags().StringVar(&req.KeyPairName, "key-pair", "", "key pair to inject")
	cmd.Flags().StringSliceVar(&req.VMFirewallIDs, "firewall", nil, "VM firewall IDs to attach")
	cmd.Flags().StringVar(&userDataFile, "user-data-file", "", "cloud-init user data file")
	cmd.Flags().IntVar(&dataDiskGB, "data-disk-size", 0, "add a data disk of this size in GB")
	cmd.Flags().BoolVar(&waitReady, "wait", false, "wait until the instance is running")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("vm-type")

	cmd.RunE = a.run(contracts.ServiceInstances, func(ctx context.Context, p contracts.Provider, args []string) error {
		req.Label = args[0]
		if userDataFile != "" {
			data, err := os.ReadFile(userDataFile)
			if err != nil {
				return fmt.Errorf("failed to read user data: %w", err)
			}
			req.UserData = string(data)
		}
		if dataDiskGB > 0 {
			req.LaunchConfig = (&contracts.LaunchConfig{}).AddVolumeDevice(contracts.BlockDevice{
				SizeGB:            dataDiskGB,
				DeleteOnTerminate: true,
			})
		}

		svc := p.Compute().Instances
		inst, err := svc.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create instance: %w", err)
		}
		if waitReady {
			if inst, err = wait.WaitForInstance(ctx, svc, inst.ID, contracts.InstanceStateRunning); err != nil {
				return err
			}
		}
		return renderOne(a, inst, instanceColumns)
	})
	return cmd
}

// powerCommand builds an instance power operation with an optional wait
// for the state it leads to. object completes the help line, as in
// "Stop a running instance".
func powerCommand(a *app, use, object string, target contracts.InstanceState, op func(ctx context.Context, svc contracts.InstanceService, id string) error) *cobra.Command {
	var waitDone bool
	cmd := &cobra.Command{
		Use:   use + " ID",
		Short: title(use) + " " + object,
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&waitDone, "wait", false, "wait until the instance is "+string(target))
	cmd.RunE = a.run(contracts.ServiceInstances, func(ctx context.Context, p contracts.Provider, args []string) error {
		svc := p.Compute().Instances
		if err := op(ctx, svc, args[0]); err != nil {
			return fmt.Errorf("failed to %s instance %s: %w", use, args[0], err)
		}
		if waitDone {
			if _, err := wait.WaitForInstance(ctx, svc, args[0], target); err != nil {
				return err
			}
		}
		fmt.Fprintf(a.out, "%s requested for instance %s\n", title(use), args[0])
		return nil
	})
	return cmd
}

func newInstanceWaitCommand(a *app) *cobra.Command {
	var (
		state    string
		timeout  time.Duration
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "wait ID",
		Short: "Wait for an instance to reach a state",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&state, "state", string(contracts.InstanceStateRunning), "state to wait for")
	cmd.Flags().DurationVar(&timeout, "wait-timeout", 0, "give up after this long (0 = library default)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (0 = library default)")
	cmd.RunE = a.run(contracts.ServiceInstances, func(ctx context.Context, p contracts.Provider, args []string) error {
		var opts []wait.Option
		if timeout > 0 {
			opts = append(opts, wait.WithTimeout(timeout))
		}
		if interval > 0 {
			opts = append(opts, wait.WithInterval(interval))
		}
		target := contracts.InstanceState(strings.ToLower(state))
		inst, err := wait.WaitForInstance(ctx, p.Compute().Instances, args[0], target, opts...)
		if err != nil {
			return err
		}
		return renderOne(a, inst, instanceColumns)
	})
	return cmd
}

func newInstanceImageCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "image ID LABEL",
		Short: "Capture an instance as a machine image",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(contracts.ServiceImages, func(ctx context.Context, p contracts.Provider, args []string) error {
			img, err := p.Compute().Instances.CreateImage(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to create image: %w", err)
			}
			return renderOne(a, img, imageColumns)
		}),
	}
}

func newVMTypeCommand(a *app) *cobra.Command {
	vmTypeCmd := &cobra.Command{
		Use:     "vmtype",
		Aliases: []string{"vmtypes", "flavor"},
		Short:   "List instance sizes",
	}
	vmTypeCmd.AddCommand(
		listCommand(a, contracts.ServiceVMTypes, vmTypeColumns,
			func(p contracts.Provider) contracts.Reader[contracts.VMType] { return p.Compute().VMTypes }),
		getCommand(a, contracts.ServiceVMTypes, vmTypeColumns,
			func(ctx context.Context, p contracts.Provider, id string) (*contracts.VMType, error) {
				return p.Compute().VMTypes.Get(ctx, id)
			}),
	)
	return vmTypeCmd
}

func newRegionCommand(a *app) *cobra.Command {
	regionCmd := &cobra.Command{
		Use:     "region",
		Aliases: []string{"regions"},
		Short:   "List regions and their zones",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List regions",
		Args:    cobra.NoArgs,
	}
	lf := addListFlags(listCmd, false)
	listCmd.RunE = a.run(contracts.ServiceRegions, func(ctx context.Context, p contracts.Provider, args []string) error {
		items, marker, err := fetch[contracts.Region](ctx, lf, p.Compute().Regions.List, nil)
		if err != nil {
			return fmt.Errorf("failed to list regions: %w", err)
		}
		return renderList(a, items, regionColumns, marker)
	})

	currentCmd := &cobra.Command{
		Use:   "current",
		Short: "Show the configured region",
		Args:  cobra.NoArgs,
		RunE: a.run(contracts.ServiceRegions, func(ctx context.Context, p contracts.Provider, args []string) error {
			region, err := p.Compute().Regions.Current(ctx)
			if err != nil {
				return err
			}
			return renderOne(a, region, regionColumns)
		}),
	}

	regionCmd.AddCommand(listCmd, currentCmd)
	return regionCmd
}

func newImageCommand(a *app) *cobra.Command {
	imageCmd := &cobra.Command{
		Use:     "image",
		Aliases: []string{"images"},
		Short:   "Manage machine images",
	}
	imageCmd.AddCommand(
		listCommand(a, contracts.ServiceImages, imageColumns,
			func(p contracts.Provider) contracts.Reader[contracts.MachineImage] { return p.Compute().Images }),
		getCommand(a, contracts.ServiceImages, imageColumns,
			func(ctx context.Context, p contracts.Provider, id string) (*contracts.MachineImage, error) {
				return p.Compute().Images.Get(ctx, id)
			}),
		deleteCommand(a, "image", contracts.ServiceImages,
			func(ctx context.Context, p contracts.Provider, id string) error {
				return p.Compute().Images.Delete(ctx, id)
			}),
	)
	return imageCmd
}
