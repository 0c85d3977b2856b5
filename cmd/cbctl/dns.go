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
	"strings"

	"github.com/spf13/cobra"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

var zoneColumns = columns[contracts.DNSZone]{
	noun:   "zone",
	header: []string{"ID", "NAME", "ADMIN EMAIL", "DESCRIPTION"},
	row: func(z *contracts.DNSZone) []string {
		return []string{z.ID, z.Name, orNone(z.AdminEmail), z.Description}
	},
}

var recordColumns = columns[contracts.DNSRecord]{
	noun:   "record",
	header: []string{"ID", "NAME", "TYPE", "TTL", "DATA"},
	row: func(r *contracts.DNSRecord) []string {
		return []string{r.ID, r.Name, string(r.Type), itoa(r.TTL), strings.Join(r.Data, " ")}
	},
}

func newDNSCommand(a *app) *cobra.Command {
	dnsCmd := &cobra.Command{
		Use:   "dns",
		Short: "Manage DNS zones and records",
	}
	dnsCmd.AddCommand(newZoneCommand(a), newRecordCommand(a))
	return dnsCmd
}

func newZoneCommand(a *app) *cobra.Command {
	zoneCmd := &cobra.Command{
		Use:     "zone",
		Aliases: []string{"zones"},
		Short:   "Manage hosted zones",
	}

	var req contracts.CreateDNSZoneRequest
	createCmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a hosted zone",
		Args:  cobra.ExactArgs(1),
	}
	createCmd.Flags().StringVar(&req.AdminEmail, "admin-email", "", "zone administrator address")
	createCmd.Flags().StringVar(&req.Description, "description", "", "description")
	createCmd.RunE = a.run(contracts.ServiceDNSZones, func(ctx context.Context, p contracts.Provider, args []string) error {
		req.Name = args[0]
		zone, err := p.DNS().Zones.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create zone: %w", err)
		}
		return renderOne(a, zone, zoneColumns)
	})

	zoneCmd.AddCommand(
		listCommand(a, contracts.ServiceDNSZones, zoneColumns,
			func(p contracts.Provider) contracts.Reader[contracts.DNSZone] { return p.DNS().Zones }),
		getCommand(a, contracts.ServiceDNSZones, zoneColumns,
			func(ctx context.Context, p contracts.Provider, id string) (*contracts.DNSZone, error) {
				return p.DNS().Zones.Get(ctx, id)
			}),
		createCmd,
		deleteCommand(a, "zone", contracts.ServiceDNSZones,
			func(ctx context.Context, p contracts.Provider, id string) error {
				return p.DNS().Zones.Delete(ctx, id)
			}),
	)
	return zoneCmd
}

func newRecordCommand(a *app) *cobra.Command {
	recordCmd := &cobra.Command{
		Use:     "record",
		Aliases: []string{"records"},
		Short:   "Manage the records of a zone",
	}

	listCmd := &cobra.Command{
		Use:     "list ZONE",
		Aliases: []string{"ls"},
		Short:   "List records",
		Args:    cobra.ExactArgs(1),
	}
	lf := addListFlags(listCmd, false)
	listCmd.RunE = a.run(contracts.ServiceDNSRecords, func(ctx context.Context, p contracts.Provider, args []string) error {
		records := p.DNS().Records
		lister := func(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.DNSRecord], error) {
			return records.List(ctx, args[0], opts)
		}
		items, marker, err := fetch[contracts.DNSRecord](ctx, lf, lister, nil)
		if err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}
		return renderList(a, items, recordColumns, marker)
	})

	var (
		recordType string
		req        contracts.CreateDNSRecordRequest
	)
	createCmd := &cobra.Command{
		Use:   "create ZONE NAME",
		Short: "Create a record",
		Args:  cobra.ExactArgs(2),
	}
	createCmd.Flags().StringVar(&recordType, "type", string(contracts.DNSRecordA), "record type")
	createCmd.Flags().StringSliceVar(&req.Data, "data", nil, "record values")
	createCmd.Flags().IntVar(&req.TTL, "ttl", common.DefaultRecordTTL, "time-to-live in seconds")
	_ = createCmd.MarkFlagRequired("data")
	createCmd.RunE = a.run(contracts.ServiceDNSRecords, func(ctx context.Context, p contracts.Provider, args []string) error {
		req.Name = args[1]
		req.Type = contracts.DNSRecordType(strings.ToUpper(recordType))
		record, err := p.DNS().Records.Create(ctx, args[0], req)
		if err != nil {
			return fmt.Errorf("failed to create record: %w", err)
		}
		return renderOne(a, record, recordColumns)
	})

	deleteCmd := &cobra.Command{
		Use:   "delete ZONE RECORD",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(contracts.ServiceDNSRecords, func(ctx context.Context, p contracts.Provider, args []string) error {
			if !a.confirm(fmt.Sprintf("Delete record %s of zone %s?", args[1], args[0])) {
				fmt.Fprintln(a.errOut, "Aborted")
				return nil
			}
			if err := p.DNS().Records.Delete(ctx, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to delete record %s: %w", args[1], err)
			}
			fmt.Fprintf(a.out, "Deleted record %s\n", args[1])
			return nil
		}),
	}

	recordCmd.AddCommand(listCmd, createCmd, deleteCmd)
	return recordCmd
}
