package fleet

import "sync/atomic"

// ServiceSlot is the reference-counted, single-writer/many-reader cell
// holding the current Service for one site on one worker.
//
// Cloning a slot handle is cheap: ServiceSlot is itself a thin wrapper
// around a shared *atomic.Pointer, so copies observe the same cell. Go's
// garbage collector retires the old Service once the last holder of a
// snapshot drops it — there is no explicit refcount to manage.
//
// Readers (AcceptLoop, connection tasks) and the single writer (the site's
// WorkerController) may run as concurrent goroutines rather than
// cooperative single-threaded turns, so Replace/Snapshot use atomic
// load/store instead of a bare pointer write; this keeps snapshot reads
// wait-free even when the worker model is implemented with real OS-thread
// concurrency rather than single-threaded cooperative scheduling.
type ServiceSlot struct {
	cell *atomic.Pointer[Service]
}

// NewServiceSlot creates a slot already holding svc. svc must not be nil;
// a slot always holds a valid Service once constructed.
func NewServiceSlot(svc Service) ServiceSlot {
	cell := &atomic.Pointer[Service]{}
	cell.Store(&svc)
	return ServiceSlot{cell: cell}
}

// Snapshot returns the Service currently published in the slot. Connection
// tasks call this once, at accept time, and keep using the result for the
// lifetime of that connection even if the slot is later replaced.
func (s ServiceSlot) Snapshot() Service {
	return *s.cell.Load()
}

// Replace atomically publishes svc as the slot's new contents. There is at
// most one concurrent writer per slot (the owning site's WorkerController);
// Replace itself does not enforce that, it is a contract the controller
// upholds.
func (s ServiceSlot) Replace(svc Service) {
	s.cell.Store(&svc)
}
