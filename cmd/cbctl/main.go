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


// Command cbctl drives the cloudbridge providers from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/tracing"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
	"github.com/CloudVE/cloudbridge-sub001/internal/version"
	"github.com/CloudVE/cloudbridge-sub001/pkg/cloudbridge"
)

// connectFunc builds the provider a command talks to
type connectFunc func(ctx context.Context, providerType contracts.ProviderType, cfg *config.Config) (contracts.Provider, error)

// app carries the state shared by every command of one invocation
type app struct {
	v          *viper.Viper
	out        io.Writer
	errOut     io.Writer
	in         io.Reader
	isTerminal func() bool
	connect    connectFunc

	cfg      *config.Config
	provider contracts.Provider
	shutdown func()
}

func newApp() *app {
	return &app{
		v:          viper.New(),
		out:        os.Stdout,
		errOut:     os.Stderr,
		in:         os.Stdin,
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
		connect:    cloudbridge.NewProvider,
	}
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cbctl",
		Short: "Manage cloud resources through cloudbridge",
		Long: `cbctl drives AWS, Azure, GCP, OpenStack and the in-memory mock cloud
through a single command set.

Provider settings are read from the cloudbridge configuration file and the
environment; CLI defaults can be kept in $HOME/.cbctl/config.yml.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.shutdown != nil {
				a.shutdown()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("provider", "p", "", "cloud provider (aws, azure, gcp, openstack, mock)")
	flags.StringP("config", "c", "", "cloudbridge configuration file")
	flags.StringP("output", "o", "table", "output format (table, json, yaml)")
	flags.Duration("timeout", 5*time.Minute, "timeout for the whole command")
	flags.BoolP("yes", "y", false, "do not ask for confirmation")
	flags.BoolP("verbose", "v", false, "verbose logging")

	for _, name := range []string{"provider", "config", "output", "timeout", "yes", "verbose"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		newInstanceCommand(a),
		newVMTypeCommand(a),
		newRegionCommand(a),
		newImageCommand(a),
		newVolumeCommand(a),
		newSnapshotCommand(a),
		newBucketCommand(a),
		newObjectCommand(a),
		newNetworkCommand(a),
		newSubnetCommand(a),
		newRouterCommand(a),
		newFloatingIPCommand(a),
		newKeyPairCommand(a),
		newFirewallCommand(a),
		newDNSCommand(a),
		newInventoryCommand(a),
		newVersionCommand(a),
	)
	return rootCmd
}

// setup reads the CLI settings and the cloudbridge configuration, then
// starts logging and tracing
func (a *app) setup(cmd *cobra.Command, args []string) error {
	a.initViper()

	switch a.v.GetString("output") {
	case outputTable, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unknown output format %q", a.v.GetString("output"))
	}

	cfg, err := cloudbridge.LoadConfig(a.v.GetString("config"))
	if err != nil {
		return err
	}
	if a.v.GetBool("verbose") {
		cfg.Log.Level = "debug"
		cfg.Log.Format = "console"
	}
	if err := logging.Setup(&cfg.Log); err != nil {
		return err
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "cbctl"
	}
	cfg.Tracing.ServiceVersion = version.Version
	shutdown, err := tracing.Setup(cmd.Context(), &cfg.Tracing)
	if err != nil {
		return err
	}
	a.shutdown = shutdown
	a.cfg = cfg
	return nil
}

func (a *app) initViper() {
	if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(filepath.Join(home, ".cbctl"))
	}
	a.v.SetConfigName("config")
	a.v.SetConfigType("yml")
	a.v.SetEnvPrefix("CBCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	// a missing CLI config file is fine
	if err := a.v.ReadInConfig(); err == nil && a.v.GetBool("verbose") {
		fmt.Fprintln(a.errOut, "Using config file:", a.v.ConfigFileUsed())
	}
}

// client returns the provider selected with --provider, connecting on
// first use
func (a *app) client(ctx context.Context) (contracts.Provider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	name := a.v.GetString("provider")
	if name == "" {
		return nil, fmt.Errorf("no provider selected; use --provider or CBCTL_PROVIDER")
	}
	cfg := a.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	p, err := a.connect(ctx, contracts.ProviderType(name), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", name, err)
	}
	a.provider = p
	return p, nil
}

// context bounds a command by --timeout
func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithNewCorrelationID(ctx)
	if timeout := a.v.GetDuration("timeout"); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(newApp()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
