package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd(env *ctlEnv) *cobra.Command {
	root := &cobra.Command{
		Use:   "trackctl",
		Short: "Operator tool for shipment tracking",
		Long: `trackctl runs a single reconciliation pass (for an external scheduler),
registers and inspects shipments, checks carrier credentials and follows
status-change notifications.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.load(cmd)
		},
	}
	root.SetOut(env.out)
	root.PersistentFlags().StringVar(&env.configPath, "config", os.Getenv("configPath"), "path to the yaml config")
	root.PersistentFlags().BoolVarP(&env.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		reconcileCmd(env),
		addCmd(env),
		showCmd(env),
		tokenCmd(env),
		watchCmd(env),
	)
	return root
}
