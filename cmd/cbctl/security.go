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

	"github.com/spf13/cobra"

	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

var keyPairColumns = columns[contracts.KeyPair]{
	noun:   "key pair",
	header: []string{"ID", "NAME", "FINGERPRINT"},
	row: func(k *contracts.KeyPair) []string {
		return []string{k.ID, k.Name, orNone(k.Fingerprint)}
	},
}

var firewallColumns = columns[contracts.VMFirewall]{
	noun:   "firewall",
	header: []string{"ID", "NAME", "LABEL", "NETWORK", "RULES", "DESCRIPTION"},
	row: func(f *contracts.VMFirewall) []string {
		return []string{f.ID, f.Name, f.Label, orNone(f.NetworkID), itoa(len(f.Rules)), f.Description}
	},
}

var ruleColumns = columns[contracts.FirewallRule]{
	noun:   "rule",
	header: []string{"ID", "DIRECTION", "PROTOCOL", "PORTS", "SOURCE"},
	row: func(r *contracts.FirewallRule) []string {
		ports := "any"
		if r.FromPort != 0 || r.ToPort != 0 {
			ports = itoa(r.FromPort)
			if r.ToPort != r.FromPort {
				ports += "-" + itoa(r.ToPort)
			}
		}
		source := r.CIDR
		if r.SourceFirewallID != "" {
			source = r.SourceFirewallID
		}
		return []string{r.ID, string(r.Direction), string(r.Protocol), ports, orNone(source)}
	},
}

func newKeyPairCommand(a *app) *cobra.Command {
	keyPairCmd := &cobra.Command{
		Use:     "keypair",
		Aliases: []string{"keypairs", "kp"},
		Short:   "Manage SSH key pairs",
	}

	var publicKeyFile string
	createCmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Import a public key or generate a new key pair",
		Long: `Import the public key in --public-key-file, or let the provider generate
a key pair. A generated private key is printed once and cannot be
retrieved later.`,
		Args: cobra.ExactArgs(1),
	}
	createCmd.Flags().StringVar(&publicKeyFile, "public-key-file", "", "public key to import")
	createCmd.RunE = a.run(contracts.ServiceKeyPairs, func(ctx context.Context, p contracts.Provider, args []string) error {
		req := contracts.CreateKeyPairRequest{Name: args[0]}
		if publicKeyFile != "" {
			data, err := os.ReadFile(publicKeyFile)
			if err != nil {
				return fmt.Errorf("failed to read public key: %w", err)
			}
			req.PublicKey = strings.TrimSpace(string(data))
		}
		kp, err := p.Security().KeyPairs.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create key pair: %w", err)
		}
		if err := renderOne(a, kp, keyPairColumns); err != nil {
			return err
		}
		if kp.PrivateKey != "" && a.format() == outputTable {
			fmt.Fprintln(a.out)
			fmt.Fprint(a.out, kp.PrivateKey)
			if !strings.HasSuffix(kp.PrivateKey, "\n") {
				fmt.Fprintln(a.out)
			}
		}
		return nil
	})

	keyPairCmd.AddCommand(
		listCommand(a, contracts.ServiceKeyPairs, keyPairColumns,
			func(p contracts.Provider) contracts.Reader[contracts.KeyPair] { return p.Security().KeyPairs }),
		getCommand(a, contracts.ServiceKeyPairs, keyPairColumns,
			func(ctx context.Context, p contracts.Provider, id string) (*contracts.KeyPair, error) {
				return p.Security().KeyPairs.Get(ctx, id)
			}),
		createCmd,
		deleteCommand(a, "key pair", contracts.ServiceKeyPairs,
			func(ctx context.Context, p contracts.Provider, id string) error {
				return p.Security().KeyPairs.Delete(ctx, id)
			}),
	)
	return keyPairCmd
}

func newFirewallCommand(a *app) *cobra.Command {
	firewallCmd := &cobra.Command{
		Use:     "firewall",
		Aliases: []string{"firewalls", "fw"},
		Short:   "Manage VM firewalls and their rules",
	}

	var req contracts.CreateVMFirewallRequest
	createCmd := &cobra.Command{
		Use:   "create NETWORK LABEL",
		Short: "Create a VM firewall",
		Args:  cobra.ExactArgs(2),
	}
	createCmd.Flags().StringVar(&req.Description, "description", "", "description")
	createCmd.RunE = a.run(contracts.ServiceVMFirewalls, func(ctx context.Context, p contracts.Provider, args []string) error {
		req.NetworkID, req.Label = args[0], args[1]
		fw, err := p.Security().VMFirewalls.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create firewall: %w", err)
		}
		return renderOne(a, fw, firewallColumns)
	})

	firewallCmd.AddCommand(
		listCommand(a, contracts.ServiceVMFirewalls, firewallColumns,
			func(p contracts.Provider) contracts.Reader[contracts.VMFirewall] { return p.Security().VMFirewalls }),
		getCommand(a, contracts.ServiceVMFirewalls, firewallColumns,
			func(ctx context.Context, p contracts.Provider, id string) (*contracts.VMFirewall, error) {
				return p.Security().VMFirewalls.Get(ctx, id)
			}),
		createCmd,
		deleteCommand(a, "firewall", contracts.ServiceVMFirewalls,
			func(ctx context.Context, p contracts.Provider, id string) error {
				return p.Security().VMFirewalls.Delete(ctx, id)
			}),
		newRulesCommand(a),
	)
	return firewallCmd
}

func newRulesCommand(a *app) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"rule"},
		Short:   "Manage the rules of a VM firewall",
	}

	listCmd := &cobra.Command{
		Use:     "list FIREWALL",
		Aliases: []string{"ls"},
		Short:   "List rules",
		Args:    cobra.ExactArgs(1),
	}
	lf := addListFlags(listCmd, false)
	listCmd.RunE = a.run(contracts.ServiceVMFirewalls, func(ctx context.Context, p contracts.Provider, args []string) error {
		rules := p.Security().VMFirewalls.Rules()
		items, marker, err := fetch[contracts.FirewallRule](ctx, lf, func(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.FirewallRule], error) {
			return rules.List(ctx, args[0], opts)
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}
		return renderList(a, items, ruleColumns, marker)
	})

	var (
		direction string
		protocol  string
		ruleReq   contracts.CreateFirewallRuleRequest
	)
	addCmd := &cobra.Command{
		Use:   "add FIREWALL",
		Short: "Add a rule",
		Args:  cobra.ExactArgs(1),
	}
	addCmd.Flags().StringVar(&direction, "direction", string(contracts.TrafficInbound), "inbound or outbound")
	addCmd.Flags().StringVar(&protocol, "protocol", string(contracts.ProtocolTCP), "tcp, udp, icmp or all")
	addCmd.Flags().IntVar(&ruleReq.FromPort, "from-port", 0, "first port of the range")
	addCmd.Flags().IntVar(&ruleReq.ToPort, "to-port", 0, "last port of the range (default: --from-port)")
	addCmd.Flags().StringVar(&ruleReq.CIDR, "cidr", "", "remote address block")
	addCmd.Flags().StringVar(&ruleReq.SourceFirewallID, "source-firewall", "", "remote firewall instead of a CIDR")
	addCmd.RunE = a.run(contracts.ServiceVMFirewalls, func(ctx context.Context, p contracts.Provider, args []string) error {
		ruleReq.Direction = contracts.TrafficDirection(strings.ToLower(direction))
		ruleReq.Protocol = contracts.Protocol(strings.ToLower(protocol))
		if ruleReq.ToPort == 0 {
			ruleReq.ToPort = ruleReq.FromPort
		}
		rule, err := p.Security().VMFirewalls.Rules().Create(ctx, args[0], ruleReq)
		if err != nil {
			return fmt.Errorf("failed to add rule: %w", err)
		}
		return renderOne(a, rule, ruleColumns)
	})

	deleteCmd := &cobra.Command{
		Use:   "delete FIREWALL RULE",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(contracts.ServiceVMFirewalls, func(ctx context.Context, p contracts.Provider, args []string) error {
			if !a.confirm(fmt.Sprintf("Delete rule %s of firewall %s?", args[1], args[0])) {
				fmt.Fprintln(a.errOut, "Aborted")
				return nil
			}
			if err := p.Security().VMFirewalls.Rules().Delete(ctx, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to delete rule %s: %w", args[1], err)
			}
			fmt.Fprintf(a.out, "Deleted rule %s\n", args[1])
			return nil
		}),
	}

	rulesCmd.AddCommand(listCmd, addCmd, deleteCmd)
	return rulesCmd
}
