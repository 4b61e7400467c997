package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gatewayfleet/internal/control"
)

// newVersionCmd creates the Cobra command for displaying the CLI and,
// if reachable, the running server's status.
func newVersionCmd() *cobra.Command {
	var socketPath string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the gatewayfleetctl version and running instance status",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gatewayfleetctl version %s\n", rootCmd.Version)

			client, err := control.Dial(socketPath)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nServer: (not running at %s)\n", socketPath)
				return
			}
			defer client.Close()

			statuses, err := client.Status()
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nServer: (unreachable: %s)\n", err)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nServer: running, %d workers\n", len(statuses))
		},
	}
	cmd.Flags().StringVar(&socketPath, "control-socket", defaultControlSocketPath(), "path to the admin control socket")
	return cmd
}
