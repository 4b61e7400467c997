//go:build linux

package fleet

import "golang.org/x/sys/unix"

// pinToCPU pins the calling OS thread to cpu using sched_setaffinity. Go's
// goroutines aren't OS threads, so this only has the intended effect when
// the worker goroutine has locked itself to its OS thread; WorkerController
// callers are expected to call runtime.LockOSThread in the same goroutine
// before their Run loop starts processing directives, so the OS thread
// stays pinned for the worker's lifetime.
func pinToCPU(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
