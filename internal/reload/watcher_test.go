package reload

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewayfleet/internal/fleet"
)

type recordedCall struct {
	kind fleet.DirectiveKind
	site fleet.SiteName
}

type recordingApplier struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (a *recordingApplier) Dispatch(ctx context.Context, d fleet.Directive) []error {
	a.mu.Lock()
	a.calls = append(a.calls, recordedCall{kind: d.Kind, site: d.Site})
	a.mu.Unlock()
	return []error{nil}
}

func (a *recordingApplier) StageServiceDeduped(ctx context.Context, site fleet.SiteName, f fleet.Factory) []error {
	a.mu.Lock()
	a.calls = append(a.calls, recordedCall{kind: fleet.KindStageService, site: site})
	a.mu.Unlock()
	return []error{nil}
}

func (a *recordingApplier) snapshot() []recordedCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]recordedCall, len(a.calls))
	copy(out, a.calls)
	return out
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcher_LoadInitialDeploysEverySite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gatewayfleet.yaml")
	writeConfig(t, path, `
runtime:
  workerThreads: 1
sites:
  - name: a
    listener: {kind: tcp, address: "127.0.0.1:0"}
    service: {kind: echo, bufferBytes: 4096}
`)

	applier := &recordingApplier{}
	w := NewWatcher(WatcherConfig{Path: path}, applier)

	_, err := w.LoadInitial(context.Background())
	require.NoError(t, err)

	calls := applier.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, fleet.KindCreateAndDeploy, calls[0].kind)
	assert.Equal(t, fleet.SiteName("a"), calls[0].site)
}

func TestWatcher_ReloadDetectsNewSite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gatewayfleet.yaml")
	writeConfig(t, path, `
runtime:
  workerThreads: 1
sites:
  - name: a
    listener: {kind: tcp, address: "127.0.0.1:0"}
    service: {kind: echo}
`)

	applier := &recordingApplier{}
	w := NewWatcher(WatcherConfig{Path: path}, applier)
	_, err := w.LoadInitial(context.Background())
	require.NoError(t, err)

	writeConfig(t, path, `
runtime:
  workerThreads: 1
sites:
  - name: a
    listener: {kind: tcp, address: "127.0.0.1:0"}
    service: {kind: echo}
  - name: b
    listener: {kind: tcp, address: "127.0.0.1:0"}
    service: {kind: echo}
`)

	require.NoError(t, w.Reload(context.Background()))

	calls := applier.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, fleet.SiteName("b"), calls[1].site)
	assert.Equal(t, fleet.KindCreateAndDeploy, calls[1].kind)
}

func TestWatcher_ReloadDetectsRemovedSite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gatewayfleet.yaml")
	writeConfig(t, path, `
runtime:
  workerThreads: 1
sites:
  - name: a
    listener: {kind: tcp, address: "127.0.0.1:0"}
    service: {kind: echo}
  - name: b
    listener: {kind: tcp, address: "127.0.0.1:0"}
    service: {kind: echo}
`)

	applier := &recordingApplier{}
	w := NewWatcher(WatcherConfig{Path: path}, applier)
	_, err := w.LoadInitial(context.Background())
	require.NoError(t, err)

	writeConfig(t, path, `
runtime:
  workerThreads: 1
sites:
  - name: a
    listener: {kind: tcp, address: "127.0.0.1:0"}
    service: {kind: echo}
`)

	require.NoError(t, w.Reload(context.Background()))

	calls := applier.snapshot()
	require.Len(t, calls, 3)
	assert.Equal(t, fleet.KindRemoveService, calls[2].kind)
	assert.Equal(t, fleet.SiteName("b"), calls[2].site)
}

func TestWatcher_ReloadDetectsServiceParamChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gatewayfleet.yaml")
	writeConfig(t, path, `
runtime:
  workerThreads: 1
sites:
  - name: a
    listener: {kind: tcp, address: "127.0.0.1:0"}
    service: {kind: echo, bufferBytes: 4096}
`)

	applier := &recordingApplier{}
	w := NewWatcher(WatcherConfig{Path: path}, applier)
	_, err := w.LoadInitial(context.Background())
	require.NoError(t, err)

	writeConfig(t, path, `
runtime:
  workerThreads: 1
sites:
  - name: a
    listener: {kind: tcp, address: "127.0.0.1:0"}
    service: {kind: echo, bufferBytes: 8192}
`)

	require.NoError(t, w.Reload(context.Background()))

	calls := applier.snapshot()
	require.Len(t, calls, 3)
	assert.Equal(t, fleet.KindStageService, calls[1].kind)
	assert.Equal(t, fleet.KindUpdateDeployedWithStaged, calls[2].kind)
}

func TestWatcher_ReloadDetectsListenerAddressChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gatewayfleet.yaml")
	writeConfig(t, path, `
runtime:
  workerThreads: 1
sites:
  - name: a
    listener: {kind: tcp, address: "127.0.0.1:9000"}
    service: {kind: echo}
`)

	applier := &recordingApplier{}
	w := NewWatcher(WatcherConfig{Path: path}, applier)
	_, err := w.LoadInitial(context.Background())
	require.NoError(t, err)

	writeConfig(t, path, `
runtime:
  workerThreads: 1
sites:
  - name: a
    listener: {kind: tcp, address: "127.0.0.1:9001"}
    service: {kind: echo}
`)

	require.NoError(t, w.Reload(context.Background()))

	calls := applier.snapshot()
	require.Len(t, calls, 3)
	assert.Equal(t, fleet.KindRemoveService, calls[1].kind)
	assert.Equal(t, fleet.KindCreateAndDeploy, calls[2].kind)
}

func TestWatcher_StartWatchesDirectoryAndDebouncesReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gatewayfleet.yaml")
	writeConfig(t, path, `
runtime:
  workerThreads: 1
sites:
  - name: a
    listener: {kind: tcp, address: "127.0.0.1:0"}
    service: {kind: echo}
`)

	applier := &recordingApplier{}
	w := NewWatcher(WatcherConfig{Path: path, DebounceInterval: 20 * time.Millisecond}, applier)
	_, err := w.LoadInitial(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeConfig(t, path, `
runtime:
  workerThreads: 1
sites:
  - name: a
    listener: {kind: tcp, address: "127.0.0.1:0"}
    service: {kind: echo}
  - name: b
    listener: {kind: tcp, address: "127.0.0.1:0"}
    service: {kind: echo}
`)

	require.Eventually(t, func() bool {
		return len(applier.snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}
