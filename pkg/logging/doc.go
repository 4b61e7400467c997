// Package logging provides the structured logging used across gatewayfleet:
// a thin wrapper over log/slog that tags every entry with a subsystem name
// and renders text or JSON depending on the format passed to Init.
//
// # Usage
//
//	import "gatewayfleet/pkg/logging"
//
//	logging.Init(logging.LevelInfo, "text", os.Stderr)
//	logging.Info("orchestrator", "fleet started with %d workers", n)
//	logging.Error("worker[0]", err, "directive %s failed", kind)
//
// Subsystem names are free-form; by convention they name the component and,
// where useful, the instance: "worker[2]", "acceptloop[api.example.com]",
// "control".
package logging
