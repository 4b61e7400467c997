package control

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"gatewayfleet/internal/fleet"
	"gatewayfleet/internal/fleetservices"
	"gatewayfleet/pkg/logging"
)

// Server is the admin control plane's Unix-domain-socket listener. It
// accepts newline-delimited JSON requests and dispatches them against an
// orchestrator, mirroring the fleet directive surface plus a read-only
// Status query.
type Server struct {
	orch     *fleet.FleetOrchestrator
	listener net.Listener
	onReload func(context.Context) error

	wg sync.WaitGroup
}

// NewServer binds a Unix domain socket at path, removing any stale socket
// file left behind by a prior, uncleanly-terminated process. onReload is
// called for the reload op (normally the running config watcher's
// Reload method); it may be nil, in which case reload requests fail.
func NewServer(path string, orch *fleet.FleetOrchestrator, onReload func(context.Context) error) (*Server, error) {
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("control: listen on %s: %w", path, err)
	}
	return &Server{orch: orch, listener: l, onReload: onReload}, nil
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed, handling each one on its own goroutine. It returns once every
// in-flight connection has finished.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			logging.Warn("control", "accept error: %s", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Close shuts down the listener, unblocking Serve's Accept loop.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			_ = enc.Encode(Response{OK: false, Error: fmt.Sprintf("invalid request: %s", err)})
			continue
		}
		resp := s.handleRequest(ctx, req)
		resp.RequestID = req.RequestID
		if !resp.OK {
			logging.Warn("control", "request %s (%s) failed: %s", req.RequestID, req.Op, resp.Error)
		}
		if err := enc.Encode(resp); err != nil {
			logging.Warn("control", "writing response: %s", err)
			return
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	switch req.Op {
	case OpStatus:
		return s.handleStatus(ctx)
	case OpCreateAndDeploy:
		return s.handleCreateAndDeploy(ctx, req)
	case OpStageService:
		return s.handleStageService(ctx, req)
	case OpUpdateDeployedWithStaged:
		return s.dispatch(ctx, fleet.UpdateDeployedWithStagedDirective(fleet.SiteName(req.Site)))
	case OpDeployNewFromStaged:
		return s.handleDeployNewFromStaged(ctx, req)
	case OpAbortStaging:
		return s.dispatch(ctx, fleet.AbortStagingDirective(fleet.SiteName(req.Site)))
	case OpRemoveService:
		return s.dispatch(ctx, fleet.RemoveServiceDirective(fleet.SiteName(req.Site)))
	case OpReload:
		return s.handleReload(ctx)
	default:
		return Response{OK: false, Error: fmt.Sprintf("unknown op %q", req.Op)}
	}
}

func (s *Server) handleCreateAndDeploy(ctx context.Context, req Request) Response {
	if req.Listener == nil || req.Service == nil {
		return Response{OK: false, Error: "create_and_deploy requires listener and service"}
	}
	lf, err := fleetservices.BuildListenerFactory(*req.Listener)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	f, err := fleetservices.BuildServiceFactory(*req.Service)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return s.dispatch(ctx, fleet.CreateAndDeployDirective(fleet.SiteName(req.Site), f, lf))
}

func (s *Server) handleStageService(ctx context.Context, req Request) Response {
	if req.Service == nil {
		return Response{OK: false, Error: "stage_service requires service"}
	}
	f, err := fleetservices.BuildServiceFactory(*req.Service)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	errs := s.orch.StageServiceDeduped(ctx, fleet.SiteName(req.Site), f)
	if err := firstErr(errs); err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true}
}

func (s *Server) handleDeployNewFromStaged(ctx context.Context, req Request) Response {
	if req.Listener == nil {
		return Response{OK: false, Error: "deploy_new_from_staged requires listener"}
	}
	lf, err := fleetservices.BuildListenerFactory(*req.Listener)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return s.dispatch(ctx, fleet.DeployNewFromStagedDirective(fleet.SiteName(req.Site), lf))
}

func (s *Server) dispatch(ctx context.Context, d fleet.Directive) Response {
	errs := s.orch.Dispatch(ctx, d)
	if err := firstErr(errs); err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true}
}

func (s *Server) handleStatus(ctx context.Context) Response {
	snaps, err := s.orch.Status(ctx)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	out := make([]WorkerStatus, len(snaps))
	for i, snap := range snaps {
		sites := make([]SiteStatus, len(snap.Sites))
		for j, site := range snap.Sites {
			sites[j] = SiteStatus{Name: string(site.Name), Deployed: site.Deployed, Staged: site.Staged}
		}
		out[i] = WorkerStatus{WorkerID: snap.WorkerID, Sites: sites}
	}
	return Response{OK: true, Status: out}
}

func (s *Server) handleReload(ctx context.Context) Response {
	if s.onReload == nil {
		return Response{OK: false, Error: "reload not supported by this server"}
	}
	if err := s.onReload(ctx); err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true}
}

func firstErr(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
