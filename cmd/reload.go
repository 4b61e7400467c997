package cmd

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"gatewayfleet/internal/control"
)

// newReloadCmd creates the Cobra command that asks a running instance to
// re-read its config file immediately.
func newReloadCmd() *cobra.Command {
	var socketPath string
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Ask a running instance to re-read its config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReload(cmd, socketPath)
		},
	}
	cmd.Flags().StringVar(&socketPath, "control-socket", defaultControlSocketPath(), "path to the admin control socket")
	return cmd
}

func runReload(cmd *cobra.Command, socketPath string) error {
	client, err := control.Dial(socketPath)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", socketPath, err)
	}
	defer client.Close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " waiting for workers to apply the reloaded config..."
	s.Start()
	err = client.Reload()
	s.Stop()

	if err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "reload applied")
	return nil
}
