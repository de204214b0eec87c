package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// destroyConcurrency caps the environments torn down at once by --all.
const destroyConcurrency = 4

// newDestroyCmd returns the destroy command.
func newDestroyCmd(o *options) *cobra.Command {
	var (
		name string
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Terminate the instance of an environment",
		Long: `Destroy terminates the instance recorded for the named environment, cancels
its spot request if it has one, and forgets the environment.

An environment without a recorded server, or whose server no longer exists,
is not an error. With --all every recorded environment is destroyed.

Example:
  imagetest-ec2 destroy -c ec2.yaml --name ubuntu
  imagetest-ec2 destroy -c ec2.yaml --all`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all == (name != "") {
				return fmt.Errorf("exactly one of --name and --all is required")
			}
			ctx := cmd.Context()
			p, err := o.provisioner(ctx)
			if err != nil {
				return err
			}
			inv, err := o.inventory()
			if err != nil {
				return err
			}
			if !all {
				return runLifecycle(ctx, o, inv, name, p.Destroy)
			}

			envs, err := inv.List(ctx)
			if err != nil {
				return err
			}
			// A failed environment must not cancel the teardown of the others.
			var (
				g    errgroup.Group
				mu   sync.Mutex
				errs error
			)
			g.SetLimit(destroyConcurrency)
			for _, env := range slices.Sorted(maps.Keys(envs)) {
				g.Go(func() error {
					if err := runLifecycle(ctx, o, inv, env, p.Destroy); err != nil {
						mu.Lock()
						errs = errors.Join(errs, fmt.Errorf("destroying %s: %w", env, err))
						mu.Unlock()
					}
					return nil
				})
			}
			_ = g.Wait()
			return errs
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name of the environment")
	cmd.Flags().BoolVar(&all, "all", false, "Destroy every recorded environment")

	return cmd
}
