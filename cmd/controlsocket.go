package cmd

import (
	"os"
	"path/filepath"
)

// defaultControlSocketPath returns $XDG_RUNTIME_DIR/gatewayfleet.sock, or a
// temp-dir fallback when XDG_RUNTIME_DIR is unset (e.g. in containers
// without a systemd user session).
func defaultControlSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "gatewayfleet.sock")
	}
	return filepath.Join(os.TempDir(), "gatewayfleet.sock")
}
