// Package cli defines the imagetest-ec2 commands. Each command loads the
// recorded state of an environment from the inventory file, runs one
// lifecycle operation and records the returned state, also on failure.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chainguard-dev/imagetest-ec2/internal/drivers"
	"github.com/chainguard-dev/imagetest-ec2/internal/drivers/ec2"
	"github.com/chainguard-dev/imagetest-ec2/internal/inventory"
	"github.com/chainguard-dev/imagetest-ec2/internal/log"
	"github.com/chainguard-dev/imagetest-ec2/internal/o11y"
	"github.com/chainguard-dev/imagetest-ec2/internal/platforms"
	"github.com/spf13/cobra"
)

const defaultStatePath = ".imagetest-ec2/state.json"

// inventories shares one inventory per state file across the commands of a
// process.
var inventories = inventory.NewInventories(inventory.NewFile)

// ProvisionerFactory builds the driver for a loaded configuration.
type ProvisionerFactory func(ctx context.Context, cfg ec2.Config) (drivers.Provisioner, error)

type options struct {
	configPath string
	statePath  string
	logDir     string
	debug      bool

	newProvisioner ProvisionerFactory
	shutdownLogs   func(context.Context) error
}

// Root returns the root command of the imagetest-ec2 CLI.
func Root() *cobra.Command {
	return newRoot(newEC2Provisioner)
}

func newRoot(factory ProvisionerFactory) *cobra.Command {
	o := &options{newProvisioner: factory}

	cmd := &cobra.Command{
		Use:           "imagetest-ec2",
		Short:         "Provision ephemeral EC2 test instances",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			handler, shutdown, err := o11y.SetupLogging(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to set up log export: %w", err)
			}
			o.shutdownLogs = shutdown
			cmd.SetContext(log.Setup(cmd.Context(), log.Options{
				Debug:   o.debug,
				Console: cmd.ErrOrStderr(),
				Sinks:   []slog.Handler{handler},
			}))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if o.shutdownLogs == nil {
				return nil
			}
			return o.shutdownLogs(context.WithoutCancel(cmd.Context()))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "Path to the driver configuration file")
	flags.StringVar(&o.statePath, "state", defaultStatePath, "Path to the inventory file recording environment state")
	flags.StringVar(&o.logDir, "log-dir", "", "Directory receiving one debug log file per environment")
	flags.BoolVar(&o.debug, "debug", false, "Log debug output to the console")

	cmd.AddCommand(newCreateCmd(o))
	cmd.AddCommand(newDestroyCmd(o))
	cmd.AddCommand(newStateCmd(o))

	return cmd
}

func newEC2Provisioner(ctx context.Context, cfg ec2.Config) (drivers.Provisioner, error) {
	client, err := ec2.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return ec2.New(cfg, client)
}

func (o *options) provisioner(ctx context.Context) (drivers.Provisioner, error) {
	if o.configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := ec2.LoadConfig(o.configPath, platforms.Default())
	if err != nil {
		return nil, err
	}
	return o.newProvisioner(ctx, *cfg)
}

func (o *options) inventory() (inventory.Inventory, error) {
	return inventories.Get(o.statePath)
}
