// Package cli wires the simulator into the iotsim command: the live
// dashboard, headless streaming, snapshot exports and the offline viewer.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the iotsim command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "iotsim",
		Short: "Simulated IoT telemetry dashboard",
		Long: `iotsim simulates periodic telemetry from virtual sensors (temperature,
motion) and renders the readings live as charts in the terminal.

Examples:
  iotsim run
  iotsim run --sensors motion --headless
  iotsim snapshot --duration 30s --export-dir ./exports
  iotsim view ./exports`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file (TOML or YAML; default $XDG_CONFIG_HOME/iotsim/config.toml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.PersistentFlags().String("log-file", "", "write diagnostics to this file")

	root.AddCommand(newRunCmd(), newSnapshotCmd(), newViewCmd(), newVersionCmd())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
