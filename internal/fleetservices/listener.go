package fleetservices

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/coreos/go-systemd/v22/activation"

	"gatewayfleet/internal/fleet"
)

// netListener adapts the standard library's net.Listener to fleet.Listener;
// the two interfaces already agree, but this makes that fact explicit and
// gives a place to hang future instrumentation.
type netListener struct {
	net.Listener
}

var _ fleet.Listener = netListener{}

// TCPListenerFactory binds a TCP listener at Address.
type TCPListenerFactory struct {
	Address string
}

var _ fleet.ListenerFactory = TCPListenerFactory{}

// MakeListener implements fleet.ListenerFactory.
func (f TCPListenerFactory) MakeListener(ctx context.Context) (fleet.Listener, error) {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", f.Address)
	if err != nil {
		return nil, fmt.Errorf("fleetservices: bind tcp %s: %w", f.Address, err)
	}
	return netListener{l}, nil
}

// CloneListenerFactory implements fleet.CloneableListenerFactory. The
// factory itself holds no socket, just an address, so every worker can
// safely receive the same value.
func (f TCPListenerFactory) CloneListenerFactory() fleet.ListenerFactory {
	return f
}

// UnixListenerFactory binds a Unix domain socket listener at Path.
type UnixListenerFactory struct {
	Path string
}

var _ fleet.ListenerFactory = UnixListenerFactory{}

// MakeListener implements fleet.ListenerFactory. Matching the original's
// bind_unix, any stale socket file at Path is removed first.
func (f UnixListenerFactory) MakeListener(_ context.Context) (fleet.Listener, error) {
	_ = os.Remove(f.Path)
	l, err := net.Listen("unix", f.Path)
	if err != nil {
		return nil, fmt.Errorf("fleetservices: bind unix %s: %w", f.Path, err)
	}
	return netListener{l}, nil
}

// SystemdListenerFactory obtains an already-open listening socket from the
// systemd socket-activation protocol instead of binding one itself,
// this mirrors the pre-opened-socket pattern gateways use for
// zero-downtime restarts: a supervising systemd unit binds
// the socket and hands it to gatewayfleet on exec, so a restart never
// drops an in-flight accept queue.
type SystemdListenerFactory struct {
	// Name matches systemd's FDNAME (the socket unit's FileDescriptorName);
	// empty selects the first listener of some name that has one; when
	// several names are activated, which name is picked is not defined.
	Name string
}

var _ fleet.ListenerFactory = SystemdListenerFactory{}

// MakeListener implements fleet.ListenerFactory.
func (f SystemdListenerFactory) MakeListener(_ context.Context) (fleet.Listener, error) {
	listeners, err := activation.ListenersWithNames()
	if err != nil {
		return nil, fmt.Errorf("fleetservices: read systemd activation sockets: %w", err)
	}
	name := f.Name
	if name == "" {
		for n, ls := range listeners {
			if len(ls) > 0 {
				name = n
				break
			}
		}
	}
	ls, ok := listeners[name]
	if !ok || len(ls) == 0 {
		return nil, fmt.Errorf("fleetservices: no systemd-activated listener named %q", name)
	}
	return netListener{ls[0]}, nil
}
