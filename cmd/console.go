package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"gatewayfleet/internal/config"
	"gatewayfleet/internal/control"
)

// newConsoleCmd creates the Cobra command for the interactive control
// socket REPL.
func newConsoleCmd() *cobra.Command {
	var socketPath string
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive REPL for issuing directives against a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd, socketPath)
		},
	}
	cmd.Flags().StringVar(&socketPath, "control-socket", defaultControlSocketPath(), "path to the admin control socket")
	return cmd
}

func runConsole(cmd *cobra.Command, socketPath string) error {
	client, err := control.Dial(socketPath)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", socketPath, err)
	}
	defer client.Close()

	historyFile := filepath.Join(os.TempDir(), ".gatewayfleet_console_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gatewayfleet> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("creating readline instance: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(cmd.OutOrStdout(), "gatewayfleet console. Commands: status, remove <site>, stage <site> <kind> <json-fields>, deploy <site>, abort <site>, quit")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}

		runConsoleCommand(cmd, client, line)
	}
}

func runConsoleCommand(cmd *cobra.Command, client *control.Client, line string) {
	fields := strings.Fields(line)
	out := cmd.OutOrStdout()

	switch fields[0] {
	case "status":
		workers, err := client.Status()
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			return
		}
		for _, w := range workers {
			for _, s := range w.Sites {
				fmt.Fprintf(out, "worker %d  %s  deployed=%v staged=%v\n", w.WorkerID, s.Name, s.Deployed, s.Staged)
			}
		}

	case "remove":
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: remove <site>")
			return
		}
		resp, err := client.Send(control.Request{Op: control.OpRemoveService, Site: fields[1]})
		printResponse(out, resp, err)

	case "deploy":
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: deploy <site>")
			return
		}
		resp, err := client.Send(control.Request{Op: control.OpUpdateDeployedWithStaged, Site: fields[1]})
		printResponse(out, resp, err)

	case "abort":
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: abort <site>")
			return
		}
		resp, err := client.Send(control.Request{Op: control.OpAbortStaging, Site: fields[1]})
		printResponse(out, resp, err)

	case "stage":
		if len(fields) < 3 {
			fmt.Fprintln(out, `usage: stage <site> <kind> {"upstream":"host:port"}`)
			return
		}
		var svc config.ServiceConfig
		svc.Kind = fields[2]
		if len(fields) > 3 {
			if err := json.Unmarshal([]byte(strings.Join(fields[3:], " ")), &svc); err != nil {
				fmt.Fprintln(out, "error decoding service fields:", err)
				return
			}
			svc.Kind = fields[2]
		}
		resp, err := client.Send(control.Request{Op: control.OpStageService, Site: fields[1], Service: &svc})
		printResponse(out, resp, err)

	default:
		fmt.Fprintln(out, "unknown command:", fields[0])
	}
}

func printResponse(out io.Writer, resp control.Response, err error) {
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	if !resp.OK {
		fmt.Fprintln(out, "error:", resp.Error)
		return
	}
	fmt.Fprintln(out, "ok")
}
