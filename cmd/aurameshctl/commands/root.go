// Package commands implements the aurameshctl command tree.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the top-level cobra command for aurameshctl, mirroring the
// daemon's sibling CLI tree: a bare rootCmd with subcommands registered in
// init(), usage/error printing silenced so Execute controls it.
var rootCmd = &cobra.Command{
	Use:   "aurameshctl",
	Short: "Offline harness and inspector for the aura-mesh protocol",
	Long:  "aurameshctl runs in-process mesh simulations and decodes captured advertisement payloads, without requiring real BLE hardware.",

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(shellCmd())
	rootCmd.AddCommand(decodeCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
