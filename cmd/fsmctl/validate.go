package main

import (
	"fmt"

	"github.com/librescoot/relayfsm/machinefile"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a machine file for consistency",
		Long:  `Parses the file and reports a missing initial state, undeclared targets and empty names.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := machinefile.Load(args[0])
			if err != nil {
				return err
			}
			if err := f.Validate(); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d states, %d events\n", args[0], len(f.States), len(f.Events()))
			return nil
		},
	}
}
