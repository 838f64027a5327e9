// Package cli implements the ignition command-line interface using Cobra.
// Each subcommand maps to an engine capability (serve, progress, check, etc.).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ignition",
	Short: "Ignition — player progression and eligibility engine",
	Long: `Ignition computes player progression from an append-only action history:
fuel-point levels, burn streaks, cooldown windows, and contest eligibility.

Run 'ignition serve' to start the HTTP API and the nightly streak reset.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
