package main

import (
	"fmt"

	"github.com/librescoot/relayfsm"
	"github.com/librescoot/relayfsm/machinefile"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run FILE EVENT...",
		Short: "Replay events through a machine",
		Long:  `Builds the machine in its initial state, posts each EVENT in order and prints every state entered and exited, every side effect, and the final state.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := commandLogger(cmd)
			if err != nil {
				return err
			}
			f, err := machinefile.Load(args[0])
			if err != nil {
				return err
			}
			m, err := f.Build(relayfsm.WithLogger(machineLogger(logger)))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sub, err := m.Observe(relayfsm.SyncRelay{}, func(o *relayfsm.Observer[machinefile.Name, machinefile.Name]) {
				o.OnEnter(relayfsm.AnyState, func(s machinefile.Name) { fmt.Fprintf(out, "enter %s\n", s) })
				o.OnExit(relayfsm.AnyState, func(s machinefile.Name) { fmt.Fprintf(out, "exit %s\n", s) })
				o.OnSideEffect(relayfsm.AnyEffect, func(e machinefile.Name) { fmt.Fprintf(out, "effect %s\n", e) })
			})
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			for _, event := range args[1:] {
				m.PostEvent(machinefile.Name(event))
			}
			fmt.Fprintf(out, "final %s\n", m.CurrentState())
			return nil
		},
	}
}
