package fleet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"gatewayfleet/pkg/logging"
)

// AcceptLoop couples one Listener to one ServiceSlot, spawning a connection
// task per accepted connection until told to stop or the listener is
// exhausted.
type AcceptLoop struct {
	site     SiteName
	listener Listener
	slot     ServiceSlot
	stop     <-chan struct{}
	metrics  *Metrics

	// acceptErrorBackoff bounds how long Run sleeps after a transient
	// accept error before retrying, so a run of EMFILE/ENFILE errors
	// doesn't spin a hot loop.
	acceptErrorBackoff time.Duration
}

// NewAcceptLoop constructs an AcceptLoop. stop is closed by the owning
// SiteState's deployedSite to request termination.
func NewAcceptLoop(site SiteName, listener Listener, slot ServiceSlot, stop <-chan struct{}, metrics *Metrics) *AcceptLoop {
	return &AcceptLoop{
		site:               site,
		listener:           listener,
		slot:               slot,
		stop:               stop,
		metrics:            metrics,
		acceptErrorBackoff: 50 * time.Millisecond,
	}
}

// acceptResult carries one Accept() outcome from the background accept
// goroutine back to Run's select, so Run can race it against stop without
// blocking inside Listener.Accept (which has no context-aware variant).
type acceptResult struct {
	conn net.Conn
	err  error
}

// Run accepts connections until the stop signal fires or the listener is
// cleanly exhausted. On stop it closes the listener, which ends the
// Accept() call in flight, and returns only after that call has returned;
// a connection the call yields after stop is closed without being served.
func (l *AcceptLoop) Run(ctx context.Context) {
	subsystem := fmt.Sprintf("acceptloop[%s]", l.site)
	logging.Info(subsystem, "started")
	defer func() {
		_ = l.listener.Close()
		logging.Info(subsystem, "stopped")
	}()

	results := make(chan acceptResult)
	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		for {
			conn, err := l.listener.Accept()
			select {
			case results <- acceptResult{conn: conn, err: err}:
			case <-l.stop:
				if conn != nil {
					_ = conn.Close()
				}
				return
			}
			if err != nil && isListenerClosed(err) {
				return
			}
		}
	}()

	for {
		select {
		case <-l.stop:
			logging.Info(subsystem, "stop signal received")
			_ = l.listener.Close()
			<-acceptDone
			return

		case res := <-results:
			if res.err != nil {
				if isListenerClosed(res.err) {
					logging.Info(subsystem, "listener closed, exiting")
					return
				}
				logging.Warn(subsystem, "accept error: %v", res.err)
				time.Sleep(l.acceptErrorBackoff)
				continue
			}
			l.spawnConnection(subsystem, res.conn)
		}
	}
}

// isListenerClosed reports whether err indicates the listener itself was
// closed (a clean stream exhaustion) as opposed to a transient
// per-connection accept error.
func isListenerClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}

// spawnConnection takes a slot snapshot and runs the connection task
//. The snapshot is taken once, here, after accept —
// this is what guarantees "a connection spawned after an update observes
// only the new service".
func (l *AcceptLoop) spawnConnection(subsystem string, conn net.Conn) {
	svc := l.slot.Snapshot()
	if l.metrics != nil {
		l.metrics.observeAccept(l.site)
	}
	go func() {
		if l.metrics != nil {
			l.metrics.connectionStarted(l.site)
			defer l.metrics.connectionFinished(l.site)
		}
		err := svc.Call(context.Background(), Conn{Netconn: conn, Peer: conn.RemoteAddr()})
		if err != nil {
			logging.Warn(subsystem, "connection from %s failed: %v", conn.RemoteAddr(), err)
			return
		}
		logging.Debug(subsystem, "connection from %s completed", conn.RemoteAddr())
	}()
}
