package fleet

import (
	"context"
	"fmt"
	"sync"

	"gatewayfleet/pkg/logging"
)

// WorkerController is the single-threaded state machine that owns one
// worker's SiteTable and consumes its inbox until closed.
// Every method on WorkerController that mutates state is only ever called
// from the goroutine running Run; that goroutine is this worker's sole
// writer.
type WorkerController struct {
	id    int
	inbox *WorkerInbox
	sites SiteTable

	// statusReq carries status queries onto the controller's own goroutine
	// (see Status), so reads of the SiteTable map never race the
	// controller's add/delete of entries.
	statusReq chan chan statusSnapshot

	// acceptLoops tracks running accept-loop goroutines so Run can let
	// them drain on shutdown instead of returning out from under them.
	acceptLoops sync.WaitGroup

	metrics *Metrics
}

// NewWorkerController creates a controller for worker id, reading from inbox.
func NewWorkerController(id int, inbox *WorkerInbox, metrics *Metrics) *WorkerController {
	return &WorkerController{
		id:        id,
		inbox:     inbox,
		sites:     make(SiteTable),
		statusReq: make(chan chan statusSnapshot),
		metrics:   metrics,
	}
}

// Run drains the inbox until it is closed, applying each directive strictly
// in arrival order and replying exactly once per item. When the inbox is
// closed it stops every deployed site's accept loop and waits for them to
// return. A panic while applying a directive is not recovered, so it ends
// the whole process, not only this worker; there is no per-worker panic
// isolation and no send-failure signal for a dead worker.
func (w *WorkerController) Run(ctx context.Context) {
	subsystem := fmt.Sprintf("worker[%d]", w.id)
	for {
		select {
		case item, ok := <-w.inbox.ch:
			if !ok {
				logging.Info(subsystem, "inbox closed, draining in-flight accept loops")
				// Dropping the deployed halves on shutdown signals every
				// accept loop to stop, so the wait below can complete.
				for _, site := range w.sites {
					site.removeDeployed()
				}
				w.acceptLoops.Wait()
				logging.Info(subsystem, "stopped")
				return
			}
			err := w.apply(item.ctx, item.directive)
			if w.metrics != nil {
				w.metrics.observeDirective(item.directive.Kind, err)
			}
			select {
			case item.reply <- err:
			default:
				// FleetOrchestrator.dispatchOne buffers the reply channel for
				// exactly one send, so this send succeeds even when the
				// orchestrator has stopped waiting. This branch is reached
				// only for a reply channel without that free slot; it logs
				// the bookkeeping failure instead of blocking the worker.
				logging.Error(subsystem, fmt.Errorf("reply channel not ready"),
					"dropped reply for directive %s on site %s", item.directive.Kind, item.directive.Site)
			}

		case reqReply := <-w.statusReq:
			reqReply <- w.buildStatus()
		}
	}
}

// apply executes one directive against this worker's SiteTable. It returns
// the CoreError to reply with, or nil on success.
func (w *WorkerController) apply(ctx context.Context, d Directive) error {
	switch d.Kind {
	case KindStageService:
		return w.stageService(ctx, d.Site, d.Factory)
	case KindUpdateDeployedWithStaged:
		return w.updateDeployedWithStaged(ctx, d.Site)
	case KindDeployNewFromStaged:
		return w.deployNewFromStaged(ctx, d.Site, d.ListenerFactory)
	case KindCreateAndDeploy:
		return w.createAndDeploy(ctx, d.Site, d.Factory, d.ListenerFactory)
	case KindAbortStaging:
		return w.abortStaging(d.Site)
	case KindRemoveService:
		return w.removeService(d.Site)
	default:
		return fmt.Errorf("fleet: unknown directive kind %v", d.Kind)
	}
}

func (w *WorkerController) siteOrCreate(name SiteName) *SiteState {
	site, ok := w.sites[name]
	if !ok {
		site = newSiteState()
		w.sites[name] = site
	}
	return site
}

// stageService builds a new Service from the site's current deployed
// Service (or nil on first deploy) and stores it as staged.
func (w *WorkerController) stageService(ctx context.Context, name SiteName, f Factory) error {
	site := w.siteOrCreate(name)
	old := site.currentService()
	svc, err := f.MakeViaRef(ctx, old)
	if err != nil {
		return newBuildServiceError(name, err)
	}
	site.setStaged(svc)
	return nil
}

// updateDeployedWithStaged publishes the site's staged Service into its
// already-running accept loop, replacing what was deployed.
func (w *WorkerController) updateDeployedWithStaged(ctx context.Context, name SiteName) error {
	site, ok := w.sites[name]
	if !ok {
		return newSiteNotExistError(name)
	}
	if !site.hasDeployed() {
		return newPreviousHandlerNotExistError(name)
	}
	staged := site.takeStaged()
	if staged == nil {
		return newPreparationNotExistError(name)
	}
	site.publishToDeployedSlot(staged)
	return nil
}

// deployNewFromStaged binds a fresh listener and spawns a new accept loop
// for the site's staged Service. If the site is already deployed, the
// existing accept loop is stopped first: at most one accept loop may run
// per site at a time.
func (w *WorkerController) deployNewFromStaged(ctx context.Context, name SiteName, lf ListenerFactory) error {
	site, ok := w.sites[name]
	if !ok {
		return newSiteNotExistError(name)
	}
	staged := site.peekStaged()
	if staged == nil {
		return newPreparationNotExistError(name)
	}

	listener, err := lf.MakeListener(ctx)
	if err != nil {
		return newBuildListenerError(name, err)
	}

	site.removeDeployed() // no-op if nothing was deployed yet
	svc := site.takeStaged()
	deployed := site.createDeployed(svc)

	w.acceptLoops.Add(1)
	loop := NewAcceptLoop(name, listener, deployed.slot, deployed.stop, w.metrics)
	go func() {
		defer w.acceptLoops.Done()
		loop.Run(context.Background())
	}()
	return nil
}

// createAndDeploy is observationally equivalent to StageService followed
// by DeployNewFromStaged against a site with no prior deployment.
func (w *WorkerController) createAndDeploy(ctx context.Context, name SiteName, f Factory, lf ListenerFactory) error {
	if err := w.stageService(ctx, name, f); err != nil {
		return err
	}
	return w.deployNewFromStaged(ctx, name, lf)
}

// abortStaging discards a site's staged Service without publishing it.
func (w *WorkerController) abortStaging(name SiteName) error {
	site, ok := w.sites[name]
	if !ok {
		return newSiteNotExistError(name)
	}
	site.clearStaged()
	return nil
}

// removeService stops the site's accept loop and forgets the site
// entirely, including any staged Service.
func (w *WorkerController) removeService(name SiteName) error {
	site, ok := w.sites[name]
	if !ok {
		return newSiteNotExistError(name)
	}
	site.removeDeployed()
	delete(w.sites, name)
	return nil
}

// statusSnapshot is the read-only view the admin control plane renders.
type statusSnapshot struct {
	WorkerID int
	Sites    []SiteStatus
}

// SiteStatus describes one site's state for an admin status query.
type SiteStatus struct {
	Name     SiteName
	Deployed bool
	Staged   bool
}

// buildStatus walks the SiteTable. Only Run's own goroutine may call this
// directly, since the table itself (unlike SiteState's fields) isn't
// guarded by a mutex — map membership changes (create/remove) only ever
// happen on the controller goroutine.
func (w *WorkerController) buildStatus() statusSnapshot {
	snap := statusSnapshot{WorkerID: w.id}
	for name, site := range w.sites {
		snap.Sites = append(snap.Sites, SiteStatus{
			Name:     name,
			Deployed: site.hasDeployed(),
			Staged:   site.isStaged(),
		})
	}
	return snap
}

// Status returns a read-only snapshot of this worker's sites, safe to call
// from any goroutine while Run is active: the request is handled on the
// controller's own goroutine via statusReq, so the SiteTable is never read
// concurrently with the writes Run makes to it. If ctx is cancelled before
// Run answers (e.g. the worker has already stopped), Status returns an
// empty snapshot and ctx.Err().
func (w *WorkerController) Status(ctx context.Context) (statusSnapshot, error) {
	reply := make(chan statusSnapshot, 1)
	select {
	case w.statusReq <- reply:
	case <-ctx.Done():
		return statusSnapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return statusSnapshot{}, ctx.Err()
	}
}
