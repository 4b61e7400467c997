//go:build !linux

package fleet

import "fmt"

// pinToCPU is a no-op outside Linux. golang.org/x/sys/unix only exposes
// SchedSetaffinity on Linux/BSD; rather than fabricate a binding for an
// unsupported platform, CPU affinity degrades to "not applied" and the
// caller logs that fact (see orchestrator.go).
func pinToCPU(cpu int) error {
	return fmt.Errorf("fleet: cpu affinity not supported on this platform")
}
