package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"gatewayfleet/internal/config"
	"gatewayfleet/internal/control"
	"gatewayfleet/internal/fleet"
	"gatewayfleet/internal/reload"
	"gatewayfleet/pkg/logging"
)

// newServeCmd creates the Cobra command that runs the worker fleet.
func newServeCmd() *cobra.Command {
	var configPath, socketPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gatewayfleet worker fleet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, socketPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the FleetConfig YAML file (required)")
	cmd.Flags().StringVar(&socketPath, "control-socket", defaultControlSocketPath(), "path to bind the admin control socket")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runServe(parent context.Context, configPath, socketPath string) error {
	logging.Init(logging.LevelInfo, "text", os.Stderr)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := fleet.NewMetrics(registry)

	orch := fleet.NewFleetOrchestrator(ctx, fleet.RuntimeConfig{
		WorkerThreads: cfg.Runtime.WorkerThreads,
		CPUAffinity:   cfg.Runtime.CPUAffinity,
	}, metrics)
	defer orch.Shutdown()

	watcher := reload.NewWatcher(reload.WatcherConfig{Path: configPath}, orch)
	if _, err := watcher.LoadInitial(ctx); err != nil {
		return fmt.Errorf("deploying initial sites: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("starting config watcher: %w", err)
	}
	defer watcher.Stop()

	ctlServer, err := control.NewServer(socketPath, orch, watcher.Reload)
	if err != nil {
		return fmt.Errorf("starting control socket: %w", err)
	}
	defer ctlServer.Close()

	go func() {
		if err := ctlServer.Serve(ctx); err != nil {
			logging.Error("serve", err, "control socket server stopped")
		}
	}()

	logging.Info("serve", "gatewayfleet running with %d workers, control socket at %s", orch.WorkerCount(), socketPath)
	<-ctx.Done()
	logging.Info("serve", "shutdown signal received, draining workers")
	return nil
}
