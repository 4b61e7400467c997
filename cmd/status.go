package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"gatewayfleet/internal/control"
)

// newStatusCmd creates the Cobra command that renders a running instance's
// per-worker, per-site status as a table.
func newStatusCmd() *cobra.Command {
	var socketPath string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the deploy state of every site on a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, socketPath)
		},
	}
	cmd.Flags().StringVar(&socketPath, "control-socket", defaultControlSocketPath(), "path to the admin control socket")
	return cmd
}

func runStatus(cmd *cobra.Command, socketPath string) error {
	client, err := control.Dial(socketPath)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", socketPath, err)
	}
	defer client.Close()

	workers, err := client.Status()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Worker", "Site", "State", "Health"})

	for _, w := range workers {
		if len(w.Sites) == 0 {
			t.AppendRow(table.Row{w.WorkerID, "-", "-", "idle"})
			continue
		}
		for _, site := range w.Sites {
			t.AppendRow(table.Row{w.WorkerID, site.Name, siteState(site), "ok"})
		}
	}

	t.Render()
	return nil
}

func siteState(site control.SiteStatus) string {
	switch {
	case site.Deployed && site.Staged:
		return "deployed+staged"
	case site.Deployed:
		return "deployed"
	case site.Staged:
		return "staged"
	default:
		return "empty"
	}
}
