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
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

var volumeColumns = columns[contracts.Volume]{
	noun:   "volume",
	header: []string{"ID", "NAME", "LABEL", "SIZE GB", "ZONE", "STATE", "ATTACHED TO"},
	row: func(v *contracts.Volume) []string {
		attached := ""
		if v.Attachment != nil {
			attached = v.Attachment.InstanceID
			if v.Attachment.Device != "" {
				attached += " (" + v.Attachment.Device + ")"
			}
		}
		return []string{v.ID, v.Name, v.Label, itoa(v.SizeGB), v.ZoneID, string(v.State), orNone(attached)}
	},
}

var snapshotColumns = columns[contracts.Snapshot]{
	noun:   "snapshot",
	header: []string{"ID", "NAME", "LABEL", "VOLUME", "SIZE GB", "STATE"},
	row: func(s *contracts.Snapshot) []string {
		return []string{s.ID, s.Name, s.Label, orNone(s.VolumeID), itoa(s.SizeGB), string(s.State)}
	},
}

var bucketColumns = columns[contracts.Bucket]{
	noun:   "bucket",
	header: []string{"NAME", "LOCATION", "AGE"},
	row: func(b *contracts.Bucket) []string {
		return []string{b.Name, orNone(b.Location), age(b.CreateTime)}
	},
}

var objectColumns = columns[contracts.BucketObject]{
	noun:   "object",
	header: []string{"KEY", "SIZE", "CONTENT TYPE", "LAST MODIFIED"},
	row: func(o *contracts.BucketObject) []string {
		modified := ""
		if !o.LastModified.IsZero() {
			modified = o.LastModified.Format("2006-01-02 15:04:05")
		}
		return []string{o.Name, strconv.FormatInt(o.Size, 10), o.ContentType, modified}
	},
}

func newVolumeCommand(a *app) *cobra.Command {
	volumeCmd := &cobra.Command{
		Use:     "volume",
		Aliases: []string{"volumes"},
		Short:   "Manage block storage volumes",
	}

	var req contracts.CreateVolumeRequest
	createCmd := &cobra.Command{
		Use:   "create LABEL",
		Short: "Create a volume",
		Args:  cobra.ExactArgs(1),
	}
	createCmd.Flags().IntVar(&req.SizeGB, "size", 0, "size in GB")
	createCmd.Flags().StringVar(&req.Zone, "zone", "", "placement zone")
	createCmd.Flags().StringVar(&req.SnapshotID, "snapshot", "", "restore from this snapshot")
	createCmd.Flags().StringVar(&req.Description, "description", "", "description")
	createCmd.RunE = a.run(contracts.ServiceVolumes, func(ctx context.Context, p contracts.Provider, args []string) error {
		req.Label = args[0]
		vol, err := p.Storage().Volumes.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create volume: %w", err)
		}
		return renderOne(a, vol, volumeColumns)
	})

	var device string
	attachCmd := &cobra.Command{
		Use:   "attach VOLUME INSTANCE",
		Short: "Attach a volume to an instance",
		Args:  cobra.ExactArgs(2),
	}
	attachCmd.Flags().StringVar(&device, "device", "", "device name (default: provider chosen)")
	attachCmd.RunE = a.run(contracts.ServiceVolumes, func(ctx context.Context, p contracts.Provider, args []string) error {
		if err := p.Storage().Volumes.Attach(ctx, args[0], args[1], device); err != nil {
			return fmt.Errorf("failed to attach volume %s: %w", args[0], err)
		}
		fmt.Fprintf(a.out, "Attached volume %s to instance %s\n", args[0], args[1])
		return nil
	})

	detachCmd := &cobra.Command{
		Use:   "detach VOLUME",
		Short: "Detach a volume from its instance",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(contracts.ServiceVolumes, func(ctx context.Context, p contracts.Provider, args []string) error {
			if err := p.Storage().Volumes.Detach(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to detach volume %s: %w", args[0], err)
			}
			fmt.Fprintf(a.out, "Detached volume %s\n", args[0])
			return nil
		}),
	}

	volumeCmd.AddCommand(
		listCommand(a, contracts.ServiceVolumes, volumeColumns,
			func(p contracts.Provider) contracts.Reader[contracts.Volume] { return p.Storage().Volumes }),
		getCommand(a, contracts.ServiceVolumes, volumeColumns,
			func(ctx context.Context, p contracts.Provider, id string) (*contracts.Volume, error) {
				return p.Storage().Volumes.Get(ctx, id)
			}),
		createCmd,
		deleteCommand(a, "volume", contracts.ServiceVolumes,
			func(ctx context.Context, p contracts.Provider, id string) error {
				return p.Storage().Volumes.Delete(ctx, id)
			}),
		attachCmd,
		detachCmd,
	)
	return volumeCmd
}

func newSnapshotCommand(a *app) *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"snapshots"},
		Short:   "Manage volume snapshots",
	}

	var req contracts.CreateSnapshotRequest
	createCmd := &cobra.Command{
		Use:   "create VOLUME LABEL",
		Short: "Snapshot a volume",
		Args:  cobra.ExactArgs(2),
	}
	createCmd.Flags().StringVar(&req.Description, "description", "", "description")
	createCmd.RunE = a.run(contracts.ServiceSnapshots, func(ctx context.Context, p contracts.Provider, args []string) error {
		req.VolumeID, req.Label = args[0], args[1]
		snap, err := p.Storage().Snapshots.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create snapshot: %w", err)
		}
		return renderOne(a, snap, snapshotColumns)
	})

	snapshotCmd.AddCommand(
		listCommand(a, contracts.ServiceSnapshots, snapshotColumns,
			func(p contracts.Provider) contracts.Reader[contracts.Snapshot] { return p.Storage().Snapshots }),
		getCommand(a, contracts.ServiceSnapshots, snapshotColumns,
			func(ctx context.Context, p contracts.Provider, id string) (*contracts.Snapshot, error) {
				return p.Storage().Snapshots.Get(ctx, id)
			}),
		createCmd,
		deleteCommand(a, "snapshot", contracts.ServiceSnapshots,
			func(ctx context.Context, p contracts.Provider, id string) error {
				return p.Storage().Snapshots.Delete(ctx, id)
			}),
	)
	return snapshotCmd
}

func newBucketCommand(a *app) *cobra.Command {
	bucketCmd := &cobra.Command{
		Use:     "bucket",
		Aliases: []string{"buckets"},
		Short:   "Manage object storage buckets",
	}

	var location string
	createCmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a bucket",
		Args:  cobra.ExactArgs(1),
	}
	createCmd.Flags().StringVar(&location, "location", "", "bucket location (default: provider region)")
	createCmd.RunE = a.run(contracts.ServiceBuckets, func(ctx context.Context, p contracts.Provider, args []string) error {
		bucket, err := p.Storage().Buckets.Create(ctx, args[0], location)
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return renderOne(a, bucket, bucketColumns)
	})

	bucketCmd.AddCommand(
		listCommand(a, contracts.ServiceBuckets, bucketColumns,
			func(p contracts.Provider) contracts.Reader[contracts.Bucket] { return p.Storage().Buckets }),
		createCmd,
		deleteCommand(a, "bucket", contracts.ServiceBuckets,
			func(ctx context.Context, p contracts.Provider, id string) error {
				return p.Storage().Buckets.Delete(ctx, id)
			}),
	)
	return bucketCmd
}

func newObjectCommand(a *app) *cobra.Command {
	objectCmd := &cobra.Command{
		Use:     "object",
		Aliases: []string{"objects"},
		Short:   "Manage the objects of a bucket",
	}

	var prefix string
	listCmd := &cobra.Command{
		Use:     "list BUCKET",
		Aliases: []string{"ls"},
		Short:   "List objects",
		Args:    cobra.ExactArgs(1),
	}
	listCmd.Flags().StringVar(&prefix, "prefix", "", "only keys with this prefix")
	lf := addListFlags(listCmd, false)
	listCmd.RunE = a.run(contracts.ServiceBuckets, func(ctx context.Context, p contracts.Provider, args []string) error {
		objects := p.Storage().Buckets.Objects()
		lister := func(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.BucketObject], error) {
			return objects.List(ctx, args[0], prefix, opts)
		}
		items, marker, err := fetch[contracts.BucketObject](ctx, lf, lister, nil)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		return renderList(a, items, objectColumns, marker)
	})

	putCmd := &cobra.Command{
		Use:   "put BUCKET KEY FILE",
		Short: "Upload a file (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(3),
		RunE: a.run(contracts.ServiceBuckets, func(ctx context.Context, p contracts.Provider, args []string) error {
			var body io.Reader = a.in
			if args[2] != "-" {
				f, err := os.Open(args[2])
				if err != nil {
					return err
				}
				defer f.Close()
				body = f
			}
			obj, err := p.Storage().Buckets.Objects().Upload(ctx, args[0], args[1], body)
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", args[1], err)
			}
			return renderOne(a, obj, objectColumns)
		}),
	}

	getCmd := &cobra.Command{
		Use:   "get BUCKET KEY [FILE]",
		Short: "Download an object to a file or stdout",
		Args:  cobra.RangeArgs(2, 3),
		RunE: a.run(contracts.ServiceBuckets, func(ctx context.Context, p contracts.Provider, args []string) error {
			w := a.out
			if len(args) == 3 && args[2] != "-" {
				f, err := os.Create(args[2])
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := p.Storage().Buckets.Objects().Download(ctx, args[0], args[1], w); err != nil {
				return fmt.Errorf("failed to download %s: %w", args[1], err)
			}
			return nil
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete BUCKET KEY",
		Short: "Delete an object",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(contracts.ServiceBuckets, func(ctx context.Context, p contracts.Provider, args []string) error {
			if !a.confirm(fmt.Sprintf("Delete object %s/%s?", args[0], args[1])) {
				fmt.Fprintln(a.errOut, "Aborted")
				return nil
			}
			if err := p.Storage().Buckets.Objects().Delete(ctx, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to delete %s: %w", args[1], err)
			}
			fmt.Fprintf(a.out, "Deleted object %s/%s\n", args[0], args[1])
			return nil
		}),
	}

	objectCmd.AddCommand(listCmd, putCmd, getCmd, deleteCmd)
	return objectCmd
}
