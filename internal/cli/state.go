package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// newStateCmd returns the state command.
func newStateCmd(o *options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the recorded state of environments as JSON",
		Long: `State prints the recorded state of the named environment, or of every
recorded environment keyed by name when --name is omitted.

Example:
  imagetest-ec2 state --name ubuntu`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := o.inventory()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if name != "" {
				state, err := inv.Get(cmd.Context(), name)
				if err != nil {
					return err
				}
				return enc.Encode(state)
			}
			envs, err := inv.List(cmd.Context())
			if err != nil {
				return err
			}
			return enc.Encode(envs)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name of the environment")

	return cmd
}
