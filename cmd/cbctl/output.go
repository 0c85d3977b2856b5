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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// Output formats
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// columns describes how a resource renders as a table
type columns[T any] struct {
	noun   string
	header []string
	row    func(*T) []string
}

// page is the JSON and YAML shape of a listing
type page[T any] struct {
	Items  []*T   `json:"items" yaml:"items"`
	Marker string `json:"marker,omitempty" yaml:"marker,omitempty"`
}

func (a *app) format() string {
	return a.v.GetString("output")
}

// encode writes v as JSON or YAML; it reports false for table output
func (a *app) encode(v any) (bool, error) {
	switch a.format() {
	case outputJSON:
		encoder := json.NewEncoder(a.out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(v); err != nil {
			return true, fmt.Errorf("failed to encode JSON: %w", err)
		}
		return true, nil
	case outputYAML:
		encoder := yaml.NewEncoder(a.out)
		defer encoder.Close()
		if err := encoder.Encode(v); err != nil {
			return true, fmt.Errorf("failed to encode YAML: %w", err)
		}
		return true, nil
	}
	return false, nil
}

func (a *app) table(header []string, rows [][]string) error {
	table := tablewriter.NewWriter(a.out)
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	table.Header(cells...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// renderList prints a page of resources. A non-empty marker is printed
// after the table so the next page can be requested with --marker.
func renderList[T any](a *app, items []*T, cols columns[T], marker string) error {
	if done, err := a.encode(page[T]{Items: items, Marker: marker}); done {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintf(a.out, "No %ss found\n", cols.noun)
	} else {
		rows := make([][]string, 0, len(items))
		for _, item := range items {
			rows = append(rows, cols.row(item))
		}
		if err := a.table(cols.header, rows); err != nil {
			return err
		}
	}
	if marker != "" {
		fmt.Fprintf(a.out, "Next marker: %s\n", marker)
	}
	return nil
}

func renderOne[T any](a *app, item *T, cols columns[T]) error {
	if done, err := a.encode(item); done {
		return err
	}
	return a.table(cols.header, [][]string{cols.row(item)})
}

// listFlags are the paging and filter flags of list commands
type listFlags struct {
	limit  int
	marker string
	all    bool
	name   string
	label  string
}

func addListFlags(cmd *cobra.Command, filters bool) *listFlags {
	lf := &listFlags{}
	cmd.Flags().IntVar(&lf.limit, "limit", 0, "page size (0 = provider default)")
	cmd.Flags().StringVar(&lf.marker, "marker", "", "marker returned by the previous page")
	cmd.Flags().BoolVar(&lf.all, "all", false, "list every page")
	if filters {
		cmd.Flags().StringVar(&lf.name, "name", "", "only resources with this name")
		cmd.Flags().StringVar(&lf.label, "label", "", "only resources with this label")
	}
	return lf
}

func (lf *listFlags) filtered() bool {
	return lf.name != "" || lf.label != ""
}

// fetch returns either one page or, with --all, every item
func fetch[T any](ctx context.Context, lf *listFlags, list paging.Lister[*T], find paging.Lister[*T]) ([]*T, string, error) {
	lister := list
	if lf.filtered() && find != nil {
		lister = find
	}
	if lf.all {
		items, err := paging.All(ctx, lister, lf.limit)
		return items, "", err
	}
	result, err := lister(ctx, paging.ListOptions{Limit: lf.limit, Marker: lf.marker})
	if err != nil {
		return nil, "", err
	}
	return result.Items, result.Marker, nil
}

// finder adapts a Find method to the Lister shape with the name and label
// filters bound
func finder[T any](lf *listFlags, find func(context.Context, paging.FindOptions) (*paging.ResultList[*T], error)) paging.Lister[*T] {
	return func(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*T], error) {
		return find(ctx, paging.FindOptions{Name: lf.name, Label: lf.label, ListOptions: opts})
	}
}

// title upper-cases the first letter of each word of an operation name
func title(s string) string {
	return cases.Title(language.English).String(s)
}

// requireService fails with a NotSupported error when the provider lacks a service
func requireService(p contracts.Provider, service contracts.ServiceType) error {
	if !p.HasService(service) {
		return contracts.NewNotSupportedError(fmt.Sprintf("%s does not support %s", p.Type(), service))
	}
	return nil
}

// confirm asks before destructive operations when stdin is a terminal
func (a *app) confirm(prompt string) bool {
	if a.v.GetBool("yes") || !a.isTerminal() {
		return true
	}
	fmt.Fprintf(a.errOut, "%s [y/N]: ", prompt)
	answer, _ := bufio.NewReader(a.in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// deleteCommand builds "delete ID" for a resource kind
func deleteCommand(a *app, noun string, service contracts.ServiceType, del func(ctx context.Context, p contracts.Provider, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.confirm(fmt.Sprintf("Delete %s %s?", noun, args[0])) {
				fmt.Fprintln(a.errOut, "Aborted")
				return nil
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			p, err := a.client(ctx)
			if err != nil {
				return err
			}
			if err := requireService(p, service); err != nil {
				return err
			}
			if err := del(ctx, p, args[0]); err != nil {
				return fmt.Errorf("failed to delete %s %s: %w", noun, args[0], err)
			}
			fmt.Fprintf(a.out, "Deleted %s %s\n", noun, args[0])
			return nil
		},
	}
}

// listCommand builds "list" for a top-level resource kind
func listCommand[T any](a *app, service contracts.ServiceType, cols columns[T], reader func(p contracts.Provider) contracts.Reader[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List " + cols.noun + "s",
		Args:    cobra.NoArgs,
	}
	lf := addListFlags(cmd, true)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, cancel := a.context(cmd)
		defer cancel()
		p, err := a.client(ctx)
		if err != nil {
			return err
		}
		if err := requireService(p, service); err != nil {
			return err
		}
		svc := reader(p)
		items, marker, err := fetch[T](ctx, lf, svc.List, finder[T](lf, svc.Find))
		if err != nil {
			return fmt.Errorf("failed to list %ss: %w", cols.noun, err)
		}
		return renderList(a, items, cols, marker)
	}
	return cmd
}

// getCommand builds "get ID" for a top-level resource kind
func getCommand[T any](a *app, service contracts.ServiceType, cols columns[T], get func(ctx context.Context, p contracts.Provider, id string) (*T, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a " + cols.noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			p, err := a.client(ctx)
			if err != nil {
				return err
			}
			if err := requireService(p, service); err != nil {
				return err
			}
			item, err := get(ctx, p, args[0])
			if err != nil {
				return fmt.Errorf("failed to get %s %s: %w", cols.noun, args[0], err)
			}
			return renderOne(a, item, cols)
		},
	}
}

// run wraps a command body with the timeout context and provider lookup
func (a *app) run(service contracts.ServiceType, fn func(ctx context.Context, p contracts.Provider, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := a.context(cmd)
		defer cancel()
		p, err := a.client(ctx)
		if err != nil {
			return err
		}
		if err := requireService(p, service); err != nil {
			return err
		}
		return fn(ctx, p, args)
	}
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}

func joinOrNone(values []string) string {
	return orNone(strings.Join(values, ","))
}

func age(t time.Time) string {
	if t.IsZero() {
		return "<unknown>"
	}
	return time.Since(t).Truncate(time.Second).String()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
