package fleet

import "sync"

// deployedSite is the live half of a SiteState: a slot the AcceptLoop and
// connection tasks read from, and the stop signal that owns that
// AcceptLoop's lifetime.
type deployedSite struct {
	slot ServiceSlot

	// stop is closed exactly once, by stopOnce, to tell the AcceptLoop to
	// return after its current accept call. Closing a channel is the
	// Go-native one-shot close signal.
	stop     chan struct{}
	stopOnce sync.Once
}

func newDeployedSite(svc Service) *deployedSite {
	return &deployedSite{
		slot: NewServiceSlot(svc),
		stop: make(chan struct{}),
	}
}

// signalStop closes the stop channel if it hasn't been closed already.
func (d *deployedSite) signalStop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// SiteState is the per-site record a WorkerController owns: an optional
// deployed (live, accepting) half and an optional staged (prepared, not yet
// published) Service.
//
// SiteState is mutated exclusively by the owning WorkerController, which
// processes its inbox on a single goroutine. Status queries are also
// answered on that goroutine (see WorkerController.Status); the mutex below
// makes each accessor safe to call from any goroutine regardless.
type SiteState struct {
	mu       sync.Mutex
	deployed *deployedSite
	staged   Service
}

// newSiteState creates an empty SiteState: no deployment, nothing staged.
func newSiteState() *SiteState {
	return &SiteState{}
}

// hasDeployed reports whether an accept loop is live for this site.
func (s *SiteState) hasDeployed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deployed != nil
}

// currentService returns the Service currently deployed, if any. It is
// used as the `old` argument to a Factory's MakeViaRef.
func (s *SiteState) currentService() Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deployed == nil {
		return nil
	}
	return s.deployed.slot.Snapshot()
}

// setStaged overwrites any previously staged Service. Repeated staging
// keeps only the latest.
func (s *SiteState) setStaged(svc Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = svc
}

// clearStaged drops the staged Service, if any, releasing its resources by
// dropping the last reference.
func (s *SiteState) clearStaged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = nil
}

// takeStaged removes and returns the staged Service, or nil if none is set.
func (s *SiteState) takeStaged() Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc := s.staged
	s.staged = nil
	return svc
}

// peekStaged returns the staged Service without consuming it.
func (s *SiteState) peekStaged() Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staged
}

// publishToDeployedSlot moves svc into the existing deployed slot,
// replacing whatever Service was there (UpdateDeployedWithStaged,
// The caller must already know s.deployed != nil.
func (s *SiteState) publishToDeployedSlot(svc Service) {
	s.mu.Lock()
	d := s.deployed
	s.mu.Unlock()
	d.slot.Replace(svc)
}

// createDeployed installs a brand-new deployed half; a publish with no
// prior deployment spawns a fresh accept loop instead of replacing one in
// place. It returns the
// deployedSite the caller should hand to a freshly spawned AcceptLoop.
func (s *SiteState) createDeployed(svc Service) *deployedSite {
	d := newDeployedSite(svc)
	s.mu.Lock()
	s.deployed = d
	s.mu.Unlock()
	return d
}

// removeDeployed clears the deployed half, if any, signalling its
// AcceptLoop to stop.
func (s *SiteState) removeDeployed() {
	s.mu.Lock()
	d := s.deployed
	s.deployed = nil
	s.mu.Unlock()
	if d != nil {
		d.signalStop()
	}
}

// snapshotDeployed returns the live deployed slot, or ok=false if nothing
// is deployed.
func (s *SiteState) snapshotDeployed() (slot ServiceSlot, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deployed == nil {
		return ServiceSlot{}, false
	}
	return s.deployed.slot, true
}

// isStaged reports whether a staged Service is present.
func (s *SiteState) isStaged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staged != nil
}

// SiteTable maps SiteName to SiteState. It is owned by exactly one
// WorkerController and never shared across workers.
type SiteTable map[SiteName]*SiteState
