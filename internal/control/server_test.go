package control

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewayfleet/internal/config"
	"gatewayfleet/internal/fleet"
)

func startTestServer(t *testing.T, orch *fleet.FleetOrchestrator, onReload func(context.Context) error) (*Server, string) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "control.sock")
	srv, err := NewServer(sockPath, orch, onReload)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan struct{})
	go func() {
		_ = srv.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		srv.Close()
		<-done
	})

	return srv, sockPath
}

func TestServer_CreateAndDeployThenStatus(t *testing.T) {
	ctx := context.Background()
	orch := fleet.NewFleetOrchestrator(ctx, fleet.RuntimeConfig{WorkerThreads: 2}, nil)
	t.Cleanup(orch.Shutdown)

	_, sockPath := startTestServer(t, orch, nil)

	client, err := Dial(sockPath)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Send(Request{
		Op:       OpCreateAndDeploy,
		Site:     "edge",
		Listener: &config.ListenerConfig{Kind: "tcp", Address: "127.0.0.1:0"},
		Service:  &config.ServiceConfig{Kind: "echo", BufferBytes: 4096},
	})
	require.NoError(t, err)
	assert.True(t, resp.OK, resp.Error)

	statuses, err := client.Status()
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	var found bool
	for _, ws := range statuses {
		for _, site := range ws.Sites {
			if site.Name == "edge" {
				found = true
				assert.True(t, site.Deployed)
			}
		}
	}
	assert.True(t, found, "edge site should be deployed on some worker")
}

func TestServer_StageThenAbortStaging(t *testing.T) {
	ctx := context.Background()
	orch := fleet.NewFleetOrchestrator(ctx, fleet.RuntimeConfig{WorkerThreads: 1}, nil)
	t.Cleanup(orch.Shutdown)

	_, sockPath := startTestServer(t, orch, nil)

	client, err := Dial(sockPath)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Send(Request{
		Op:      OpStageService,
		Site:    "edge",
		Service: &config.ServiceConfig{Kind: "echo", BufferBytes: 4096},
	})
	require.NoError(t, err)
	require.True(t, resp.OK, resp.Error)

	statuses, err := client.Status()
	require.NoError(t, err)
	require.True(t, statuses[0].Sites[0].Staged)

	resp, err = client.Send(Request{Op: OpAbortStaging, Site: "edge"})
	require.NoError(t, err)
	require.True(t, resp.OK, resp.Error)
	assert.NotEmpty(t, resp.RequestID)

	statuses, err = client.Status()
	require.NoError(t, err)
	assert.False(t, statuses[0].Sites[0].Staged)
}

func TestServer_UnknownOpReturnsError(t *testing.T) {
	ctx := context.Background()
	orch := fleet.NewFleetOrchestrator(ctx, fleet.RuntimeConfig{WorkerThreads: 1}, nil)
	t.Cleanup(orch.Shutdown)

	_, sockPath := startTestServer(t, orch, nil)

	client, err := Dial(sockPath)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Send(Request{Op: "bogus"})
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unknown op")
}

func TestServer_ReloadWithoutHookFails(t *testing.T) {
	ctx := context.Background()
	orch := fleet.NewFleetOrchestrator(ctx, fleet.RuntimeConfig{WorkerThreads: 1}, nil)
	t.Cleanup(orch.Shutdown)

	_, sockPath := startTestServer(t, orch, nil)

	client, err := Dial(sockPath)
	require.NoError(t, err)
	defer client.Close()

	err = client.Reload()
	require.Error(t, err)
}

func TestServer_ReloadInvokesHook(t *testing.T) {
	ctx := context.Background()
	orch := fleet.NewFleetOrchestrator(ctx, fleet.RuntimeConfig{WorkerThreads: 1}, nil)
	t.Cleanup(orch.Shutdown)

	called := make(chan struct{}, 1)
	_, sockPath := startTestServer(t, orch, func(context.Context) error {
		called <- struct{}{}
		return nil
	})

	client, err := Dial(sockPath)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Reload())

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("reload hook was not invoked")
	}
}
