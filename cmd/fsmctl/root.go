package main

import (
	"log/slog"

	"github.com/librescoot/relayfsm"
	"github.com/librescoot/relayfsm/internal/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fsmctl",
		Short:         "fsmctl drives relayfsm machines described in YAML or JSON",
		Long:          `fsmctl loads a machine file, checks it, replays events through it, or exposes it over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(newValidateCmd(), newRunCmd(), newServeCmd())
	return root
}

// commandLogger builds the logger selected by --log-level
func commandLogger(cmd *cobra.Command) (*slog.Logger, error) {
	name, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

func machineLogger(logger *slog.Logger) relayfsm.Logger {
	return relayfsm.NewSlogLogger(logger)
}
