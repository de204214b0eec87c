package cli

import (
	"context"
	"errors"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/imagetest-ec2/internal/drivers"
	"github.com/chainguard-dev/imagetest-ec2/internal/inventory"
	"github.com/chainguard-dev/imagetest-ec2/internal/log"
	"github.com/chainguard-dev/imagetest-ec2/internal/o11y"
	"github.com/spf13/cobra"
)

// newCreateCmd returns the create command.
func newCreateCmd(o *options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the instance of an environment and wait until it is reachable",
		Long: `Create launches the instance of the named environment and blocks until it
is running with an address and accepts SSH connections.

An environment that already has a server recorded is left as is. When
creation fails part way, the server is still recorded so that destroy can
clean it up.

Example:
  imagetest-ec2 create -c ec2.yaml --name ubuntu`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := o.provisioner(cmd.Context())
			if err != nil {
				return err
			}
			inv, err := o.inventory()
			if err != nil {
				return err
			}
			return runLifecycle(cmd.Context(), o, inv, name, p.Create)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name of the environment (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

type lifecycleOp func(context.Context, drivers.State) (drivers.State, error)

// runLifecycle applies 'op' to the recorded state of 'name' and records the
// result, whether or not 'op' failed.
func runLifecycle(ctx context.Context, o *options, inv inventory.Inventory, name string, op lifecycleOp) error {
	ctx, done := log.SetupEnvironmentLogging(ctx, o.logDir, name)
	defer done()
	ctx = log.With(ctx, o11y.AttrName, name)

	state, err := inv.Get(ctx, name)
	if err != nil {
		return err
	}
	next, opErr := op(ctx, state)
	if next != state {
		if err := inv.Put(ctx, name, next); err != nil {
			clog.FromContext(ctx).Error("failed to record state", "error", err)
			return errors.Join(opErr, err)
		}
	}
	return opErr
}
