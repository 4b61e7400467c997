package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeControlUnreachable indicates the control socket could not be dialed.
	ExitCodeControlUnreachable = 2
)

// rootCmd is the base command for gatewayfleetctl.
var rootCmd = &cobra.Command{
	Use:   "gatewayfleetctl",
	Short: "Operate a gatewayfleet thread-per-core reverse proxy",
	Long: `gatewayfleetctl drives a gatewayfleet instance: it starts the worker
fleet from a YAML config, and talks to a running instance's admin control
socket to inspect state, issue ad-hoc directives, and trigger reloads.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command, injected at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the CLI entry point, called from main.main.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gatewayfleetctl version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newConsoleCmd())
	rootCmd.AddCommand(newReloadCmd())
}
