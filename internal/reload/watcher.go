package reload

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"gatewayfleet/internal/config"
	"gatewayfleet/internal/fleet"
	"gatewayfleet/internal/fleetservices"
	"gatewayfleet/pkg/logging"
)

// DefaultDebounceInterval is the time to wait after the last detected
// change before reloading, to collapse an editor's replace-on-save (which
// fires a remove+create pair) into one reload.
const DefaultDebounceInterval = 500 * time.Millisecond

// Applier is the subset of *fleet.FleetOrchestrator the Watcher drives.
// Defined as an interface so tests can substitute a recording stub.
type Applier interface {
	Dispatch(ctx context.Context, d fleet.Directive) []error
	StageServiceDeduped(ctx context.Context, site fleet.SiteName, f fleet.Factory) []error
}

// WatcherConfig holds configuration for the config-file watcher.
type WatcherConfig struct {
	// Path is the config file to watch and reload.
	Path string

	// DebounceInterval overrides DefaultDebounceInterval when non-zero.
	DebounceInterval time.Duration

	// OnReloadError is called with any error from a reload the watcher
	// triggers itself after a file change (bad YAML, failed directive
	// dispatch). A direct Reload call returns its error instead. May be nil.
	OnReloadError func(error)
}

// Watcher watches a FleetConfig file and diffs every successful reload
// against the last-applied site set, turning the difference into
// directives dispatched against an Applier.
type Watcher struct {
	cfg     WatcherConfig
	applier Applier

	mu        sync.Mutex
	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	debounceMu    sync.Mutex
	debounceTimer *time.Timer

	lastSites map[fleet.SiteName]config.SiteConfig
}

// NewWatcher creates a Watcher. It does not start watching until Start is
// called.
func NewWatcher(cfg WatcherConfig, applier Applier) *Watcher {
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = DefaultDebounceInterval
	}
	return &Watcher{
		cfg:       cfg,
		applier:   applier,
		lastSites: make(map[fleet.SiteName]config.SiteConfig),
	}
}

// LoadInitial loads the config once and dispatches CreateAndDeploy for
// every site, establishing the baseline Start's later diffs compare
// against. Callers normally call this once before Start.
func (w *Watcher) LoadInitial(ctx context.Context) (config.FleetConfig, error) {
	cfg, err := config.Load(w.cfg.Path)
	if err != nil {
		return config.FleetConfig{}, err
	}
	for _, site := range cfg.Sites {
		if err := w.createSite(ctx, site); err != nil {
			return config.FleetConfig{}, err
		}
		w.lastSites[fleet.SiteName(site.Name)] = site
	}
	return cfg, nil
}

// Start begins watching the config file's directory for changes (editors
// replace-on-save, which shows up as the watched file being removed and
// recreated rather than written in place, so the directory is watched
// rather than the file itself).
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.stopCh = make(chan struct{})
	w.running = true
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.cfg.Path)); err != nil {
		fsw.Close()
		return err
	}

	w.mu.Lock()
	w.fsWatcher = fsw
	w.mu.Unlock()

	go w.processEvents(ctx, fsw.Events, fsw.Errors)
	logging.Info("reload", "watching %s for config changes", w.cfg.Path)
	return nil
}

func (w *Watcher) processEvents(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.cfg.Path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.triggerReloadDebounced(ctx)
		case err, ok := <-errs:
			if !ok {
				return
			}
			logging.Error("reload", err, "fsnotify error")
		}
	}
}

func (w *Watcher) triggerReloadDebounced(ctx context.Context) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.cfg.DebounceInterval, func() {
		if err := w.Reload(ctx); err != nil {
			logging.Warn("reload", "reload failed: %s", err)
			if w.cfg.OnReloadError != nil {
				w.cfg.OnReloadError(err)
			}
		}
	})
}

// Reload re-reads the config file, validates it, and dispatches whatever
// directives bring the fleet's deployed sites in line with it. It is safe
// to call directly (the `gatewayfleetctl reload` control-plane op does
// this), independent of the fsnotify path.
func (w *Watcher) Reload(ctx context.Context) error {
	cfg, err := config.Load(w.cfg.Path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	next := make(map[fleet.SiteName]config.SiteConfig, len(cfg.Sites))
	for _, site := range cfg.Sites {
		next[fleet.SiteName(site.Name)] = site
	}

	for name, site := range next {
		old, existed := w.lastSites[name]
		switch {
		case !existed:
			if err := w.createSite(ctx, site); err != nil {
				return err
			}
		case old.Listener != site.Listener:
			if err := w.removeSite(ctx, name); err != nil {
				return err
			}
			if err := w.createSite(ctx, site); err != nil {
				return err
			}
		case old.Service != site.Service:
			if err := w.restageSite(ctx, site); err != nil {
				return err
			}
		}
	}

	for name := range w.lastSites {
		if _, stillPresent := next[name]; !stillPresent {
			if err := w.removeSite(ctx, name); err != nil {
				return err
			}
		}
	}

	w.lastSites = next
	logging.Info("reload", "applied config with %d sites", len(next))
	return nil
}

func (w *Watcher) createSite(ctx context.Context, site config.SiteConfig) error {
	f, err := fleetservices.BuildServiceFactory(site.Service)
	if err != nil {
		return err
	}
	lf, err := fleetservices.BuildListenerFactory(site.Listener)
	if err != nil {
		return err
	}
	if errs := w.applier.Dispatch(ctx, fleet.CreateAndDeployDirective(fleet.SiteName(site.Name), f, lf)); firstErr(errs) != nil {
		return firstErr(errs)
	}
	return nil
}

func (w *Watcher) removeSite(ctx context.Context, name fleet.SiteName) error {
	if errs := w.applier.Dispatch(ctx, fleet.RemoveServiceDirective(name)); firstErr(errs) != nil {
		return firstErr(errs)
	}
	return nil
}

func (w *Watcher) restageSite(ctx context.Context, site config.SiteConfig) error {
	f, err := fleetservices.BuildServiceFactory(site.Service)
	if err != nil {
		return err
	}
	name := fleet.SiteName(site.Name)
	if errs := w.applier.StageServiceDeduped(ctx, name, f); firstErr(errs) != nil {
		return firstErr(errs)
	}
	if errs := w.applier.Dispatch(ctx, fleet.UpdateDeployedWithStagedDirective(name)); firstErr(errs) != nil {
		return firstErr(errs)
	}
	return nil
}

func firstErr(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("reload", "error closing fsnotify watcher: %s", err)
		}
		w.fsWatcher = nil
	}
	return nil
}
