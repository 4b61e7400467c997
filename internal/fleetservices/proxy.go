package fleetservices

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"gatewayfleet/internal/fleet"
	"gatewayfleet/pkg/logging"
)

// upstreamPool is a small, fixed-capacity pool of dialed upstream
// connections, reused by a ProxyService across its lifetime. A
// ProxyFactory.MakeViaRef call against an `old` ProxyService inherits this
// pool's still-open connections instead of re-dialing them.
type upstreamPool struct {
	mu       sync.Mutex
	upstream string
	conns    []net.Conn
}

func newUpstreamPool(upstream string) *upstreamPool {
	return &upstreamPool{upstream: upstream}
}

func (p *upstreamPool) get(ctx context.Context) (net.Conn, error) {
	p.mu.Lock()
	if n := len(p.conns); n > 0 {
		c := p.conns[n-1]
		p.conns = p.conns[:n-1]
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	var d net.Dialer
	return d.DialContext(ctx, "tcp", p.upstream)
}

func (p *upstreamPool) put(c net.Conn, poolSize int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.conns) >= poolSize {
		_ = c.Close()
		return
	}
	p.conns = append(p.conns, c)
}

// drain closes every idle connection the pool is holding, for orderly
// shutdown when a site is removed or its service replaced outright.
func (p *upstreamPool) drain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		_ = c.Close()
	}
	p.conns = nil
}

// ProxyService relays a client connection to one TCP upstream, reusing
// pooled upstream connections when available.
type ProxyService struct {
	upstream string
	poolSize int
	pool     *upstreamPool
}

var _ fleet.Service = (*ProxyService)(nil)

// PreWarm dials up to n connections ahead of time, stopping at the first
// dial error, and hands each one to the pool; the pool keeps at most
// poolSize idle connections and closes the rest. warmed counts successful
// dials, including any the pool closed. Pooled connections let later calls
// to this site skip a fresh dial — this is what makes scenario 2's "carried its upstream pool
// forward" observable: connections warmed before a hot update are still
// sitting in the pool afterward, available to whichever ProxyService the
// orchestrator deploys next for the same upstream.
func (s *ProxyService) PreWarm(ctx context.Context, n int) (warmed int, err error) {
	for i := 0; i < n; i++ {
		c, dialErr := (&net.Dialer{}).DialContext(ctx, "tcp", s.upstream)
		if dialErr != nil {
			return warmed, dialErr
		}
		s.pool.put(c, s.poolSize)
		warmed++
	}
	return warmed, nil
}

// Call implements fleet.Service: it borrows an idle upstream connection
// from the pool if one is available (else dials fresh), relays bytes in
// both directions, and closes the upstream connection once the session
// ends. Once either direction finishes, Call closes both ends to unblock
// whichever copy is still running — full-duplex raw-byte relay has no
// general way to signal "done" to a peer short of closing the socket, so
// the upstream connection is not returned to the pool after a relay; the
// pool only ever serves connections that have never carried traffic.
func (s *ProxyService) Call(ctx context.Context, conn fleet.Conn) error {
	up, err := s.pool.get(ctx)
	if err != nil {
		return fmt.Errorf("fleetservices: dial upstream %s: %w", s.upstream, err)
	}
	defer up.Close()

	errs := make(chan error, 2)
	go func() {
		_, err := io.Copy(up, conn.Netconn)
		_ = conn.Netconn.Close()
		_ = up.Close()
		errs <- err
	}()
	go func() {
		_, err := io.Copy(conn.Netconn, up)
		_ = conn.Netconn.Close()
		_ = up.Close()
		errs <- err
	}()

	first := <-errs
	<-errs

	if first != nil && first != io.EOF {
		return first
	}
	return nil
}

// ProxyFactory builds ProxyService instances sharing one upstreamPool
// across restagings of the same site, as long as the upstream address
// hasn't changed. A changed PoolSize keeps the pool and caps later
// additions to it at the new size.
type ProxyFactory struct {
	Upstream string
	PoolSize int
}

var _ fleet.Factory = ProxyFactory{}

// NewProxyFactory returns a factory with a default pool size if poolSize
// is non-positive.
func NewProxyFactory(upstream string, poolSize int) ProxyFactory {
	if poolSize <= 0 {
		poolSize = 8
	}
	return ProxyFactory{Upstream: upstream, PoolSize: poolSize}
}

// MakeViaRef implements fleet.Factory. When old is a *ProxyService for the
// same upstream, its pool is carried forward unchanged; this is why
// MakeViaRef takes `old` rather than building from scratch every time.
// When the upstream address changed, the old pool is drained and a fresh
// one is built so no
// connection to the previous upstream lingers.
func (f ProxyFactory) MakeViaRef(_ context.Context, old fleet.Service) (fleet.Service, error) {
	if oldProxy, ok := old.(*ProxyService); ok {
		if oldProxy.upstream == f.Upstream {
			logging.Debug("proxy", "carrying forward pool for %s", f.Upstream)
			return &ProxyService{upstream: f.Upstream, poolSize: f.PoolSize, pool: oldProxy.pool}, nil
		}
		logging.Info("proxy", "upstream changed %s -> %s, draining old pool", oldProxy.upstream, f.Upstream)
		oldProxy.pool.drain()
	}
	return &ProxyService{upstream: f.Upstream, poolSize: f.PoolSize, pool: newUpstreamPool(f.Upstream)}, nil
}
