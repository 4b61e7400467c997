package fleet

import (
	"context"
	"net"
)

// Conn pairs an accepted connection with its remote address, the payload a
// ListenerFactory's Service hands to an ingress Service.
type Conn struct {
	Netconn net.Conn
	Peer    net.Addr
}

// Service owns a single operation, callable concurrently by any number of
// connection tasks that hold a reference to it. A Service is never mutated
// in place after it is placed in a ServiceSlot; updates replace the
// reference the slot holds, never the Service itself.
type Service interface {
	// Call serves one accepted connection. The returned error is logged as
	// a warning by the AcceptLoop's connection task; it never reaches the
	// WorkerController.
	Call(ctx context.Context, conn Conn) error
}

// ServiceFunc adapts a plain function to a Service.
type ServiceFunc func(ctx context.Context, conn Conn) error

// Call implements Service.
func (f ServiceFunc) Call(ctx context.Context, conn Conn) error { return f(ctx, conn) }

// Factory produces a Service, optionally reusing state from an existing one
// of the same kind. The old argument is nil on first deploy
// and non-nil on every subsequent stage against a site that already has a
// deployed Service.
//
// Implementations SHOULD use old to carry forward expensive sub-state
// (connection pools, TLS session caches) rather than rebuild it; this is
// advisory for correctness but required for the two-phase deploy protocol
// to be worth more than CreateAndDeploy.
type Factory interface {
	MakeViaRef(ctx context.Context, old Service) (Service, error)
}

// FactoryFunc adapts a plain function to a Factory.
type FactoryFunc func(ctx context.Context, old Service) (Service, error)

// MakeViaRef implements Factory.
func (f FactoryFunc) MakeViaRef(ctx context.Context, old Service) (Service, error) {
	return f(ctx, old)
}

// Listener is the narrow interface a ListenerFactory's bound socket must
// satisfy: it yields accepted connections until it is closed. net.Listener
// already satisfies this shape; it is restated here so non-TCP listener
// factories (e.g. a systemd-activation or in-memory listener) need not
// depend on net.Listener's full surface.
type Listener interface {
	Accept() (net.Conn, error)
	Close() error
	Addr() net.Addr
}

// ListenerFactory builds the Listener an AcceptLoop binds to a site
//. Unlike Factory, it takes no old reference: rebinding a
// socket is not a state-carry operation, it is the act of creating a new
// accept loop.
type ListenerFactory interface {
	MakeListener(ctx context.Context) (Listener, error)
}

// ListenerFactoryFunc adapts a plain function to a ListenerFactory.
type ListenerFactoryFunc func(ctx context.Context) (Listener, error)

// MakeListener implements ListenerFactory.
func (f ListenerFactoryFunc) MakeListener(ctx context.Context) (Listener, error) { return f(ctx) }

// Layer is a composable Factory decorator: given an inner Factory it
// returns an outer Factory whose Service wraps the inner one. A tuple of
// layers composes right-to-left — Layers(l1, l2).Wrap(f) behaves as
// l1.Wrap(l2.Wrap(f)) — so the first layer listed is outermost on the call
// path.
type Layer interface {
	Wrap(inner Factory) Factory
}

// LayerFunc adapts a plain function to a Layer.
type LayerFunc func(inner Factory) Factory

// Wrap implements Layer.
func (f LayerFunc) Wrap(inner Factory) Factory { return f(inner) }

// Layers composes a sequence of layers right-to-left into a single Layer:
// Layers(L1, L2).Wrap(f) == L1.Wrap(L2.Wrap(f)).
func Layers(layers ...Layer) Layer {
	return LayerFunc(func(inner Factory) Factory {
		f := inner
		for i := len(layers) - 1; i >= 0; i-- {
			f = layers[i].Wrap(f)
		}
		return f
	})
}
