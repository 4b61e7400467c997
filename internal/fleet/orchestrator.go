package fleet

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"gatewayfleet/pkg/logging"
)

// FleetOrchestrator owns a fixed set of workers, each with its own
// WorkerController and WorkerInbox, and fans a Directive out to one or all
// of them.
type FleetOrchestrator struct {
	cfg     RuntimeConfig
	metrics *Metrics

	workers     []*WorkerController
	inboxes     []*WorkerInbox
	workerGroup sync.WaitGroup

	// stageGroup deduplicates concurrent StageService calls for the same
	// site arriving from more than one caller at once:
	// the config watcher and the admin control plane can both race to
	// stage the same site, and only one Factory.MakeViaRef call should run.
	stageGroup singleflight.Group
}

// NewFleetOrchestrator builds and spawns cfg.WorkerThreads workers, each
// running its own WorkerController.Run in a goroutine. If cfg.CPUAffinity
// is set, worker i is pinned to CPU i mod runtime.NumCPU() (best-effort,
// platform-dependent — see affinity_linux.go/affinity_other.go).
func NewFleetOrchestrator(ctx context.Context, cfg RuntimeConfig, metrics *Metrics) *FleetOrchestrator {
	cfg = cfg.normalized()
	o := &FleetOrchestrator{
		cfg:     cfg,
		metrics: metrics,
		workers: make([]*WorkerController, cfg.WorkerThreads),
		inboxes: make([]*WorkerInbox, cfg.WorkerThreads),
	}

	for i := 0; i < cfg.WorkerThreads; i++ {
		inbox := NewWorkerInbox(cfg.InboxCapacity)
		worker := NewWorkerController(i, inbox, metrics)
		o.inboxes[i] = inbox
		o.workers[i] = worker

		o.workerGroup.Add(1)
		go func(id int, w *WorkerController) {
			defer o.workerGroup.Done()
			if cfg.CPUAffinity {
				// LockOSThread before pinning: affinity applies to the OS
				// thread, and without this the Go scheduler is free to move
				// this goroutine to a different thread on its next blocking
				// call, silently undoing the pin.
				runtime.LockOSThread()
				if err := pinToCPU(id % runtime.NumCPU()); err != nil {
					logging.Warn(fmt.Sprintf("worker[%d]", id), "cpu affinity not applied: %v", err)
				}
			}
			w.Run(ctx)
		}(i, worker)
	}

	logging.Info("orchestrator", "spawned %d workers (cpu_affinity=%v)", cfg.WorkerThreads, cfg.CPUAffinity)
	return o
}

// Config returns the normalized RuntimeConfig this orchestrator was built with.
func (o *FleetOrchestrator) Config() RuntimeConfig {
	return o.cfg
}

// WorkerCount reports how many workers this fleet runs.
func (o *FleetOrchestrator) WorkerCount() int {
	return len(o.workers)
}

// Shutdown closes every worker's inbox and waits for all controllers (and,
// transitively, their in-flight accept loops) to drain.
func (o *FleetOrchestrator) Shutdown() {
	for _, inbox := range o.inboxes {
		inbox.closeInbox()
	}
	o.workerGroup.Wait()
	logging.Info("orchestrator", "all workers drained")
}

// Dispatch sends d to every worker (cloning per-worker via the Cloneable
// opt-in protocol) and collects replies. Reply collection is parallelized
// across workers with errgroup, but this does not affect per-worker
// ordering: each worker's own inbox still receives and applies directives
// strictly in the order Dispatch calls were made against it.
func (o *FleetOrchestrator) Dispatch(ctx context.Context, d Directive) []error {
	errs := make([]error, len(o.workers))
	var g errgroup.Group
	for i := range o.workers {
		i := i
		g.Go(func() error {
			errs[i] = o.dispatchOne(ctx, i, d)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// DispatchOne sends d to exactly one worker, chosen by index, and waits
// for its reply. Used for directives the orchestrator targets at a single
// worker rather than fanning out (e.g. a control-plane request scoped to
// one worker for debugging).
func (o *FleetOrchestrator) DispatchOne(ctx context.Context, workerIdx int, d Directive) error {
	if workerIdx < 0 || workerIdx >= len(o.workers) {
		return fmt.Errorf("fleet: worker index %d out of range [0,%d)", workerIdx, len(o.workers))
	}
	return o.dispatchOne(ctx, workerIdx, d)
}

func (o *FleetOrchestrator) dispatchOne(ctx context.Context, idx int, d Directive) error {
	item := inboxItem{
		ctx:       ctx,
		directive: d.clone(),
		reply:     make(chan error, 1),
	}
	if err := o.inboxes[idx].enqueue(ctx, item); err != nil {
		return err
	}
	select {
	case err := <-item.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StageServiceDeduped dispatches a StageService directive fleet-wide,
// collapsing concurrent calls for the same site into one in-flight
// operation. Callers that don't need dedup (a one-shot
// CreateAndDeploy from config load, say) should call Dispatch directly.
func (o *FleetOrchestrator) StageServiceDeduped(ctx context.Context, site SiteName, f Factory) []error {
	v, err, _ := o.stageGroup.Do(string(site), func() (interface{}, error) {
		errs := o.Dispatch(ctx, StageServiceDirective(site, f))
		return errs, nil
	})
	if err != nil {
		return []error{err}
	}
	return v.([]error)
}

// Status queries every worker and returns one snapshot per worker, in
// worker-index order.
func (o *FleetOrchestrator) Status(ctx context.Context) ([]statusSnapshot, error) {
	snaps := make([]statusSnapshot, len(o.workers))
	var g errgroup.Group
	for i, w := range o.workers {
		i, w := i, w
		g.Go(func() error {
			snap, err := w.Status(ctx)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if o.metrics != nil {
		o.metrics.setSitesDeployed(countDeployedSites(snaps))
	}
	return snaps, nil
}

func countDeployedSites(snaps []statusSnapshot) int {
	seen := make(map[SiteName]bool)
	for _, snap := range snaps {
		for _, s := range snap.Sites {
			if s.Deployed {
				seen[s.Name] = true
			}
		}
	}
	return len(seen)
}
