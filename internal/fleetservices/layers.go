package fleetservices

import (
	"context"
	"fmt"
	"time"

	"gatewayfleet/internal/fleet"
)

// delayService sleeps for delay before calling inner.
type delayService struct {
	delay time.Duration
	inner fleet.Service
}

func (s delayService) Call(ctx context.Context, conn fleet.Conn) error {
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.inner.Call(ctx, conn)
}

type delayFactory struct {
	delay time.Duration
	inner fleet.Factory
}

func (f delayFactory) MakeViaRef(ctx context.Context, old fleet.Service) (fleet.Service, error) {
	var oldInner fleet.Service
	if d, ok := old.(delayService); ok {
		oldInner = d.inner
	}
	inner, err := f.inner.MakeViaRef(ctx, oldInner)
	if err != nil {
		return nil, err
	}
	return delayService{delay: f.delay, inner: inner}, nil
}

// DelayLayer wraps an inner Factory so every call sleeps for delay first.
// Wrap returns a new Factory that defers to inner for the actual service
// construction.
func DelayLayer(delay time.Duration) fleet.Layer {
	return fleet.LayerFunc(func(inner fleet.Factory) fleet.Factory {
		return delayFactory{delay: delay, inner: inner}
	})
}

// timeoutService bounds inner.Call to a per-call deadline.
type timeoutService struct {
	timeout time.Duration
	inner   fleet.Service
}

func (s timeoutService) Call(ctx context.Context, conn fleet.Conn) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.inner.Call(ctx, conn) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("fleetservices: call exceeded %s: %w", s.timeout, ctx.Err())
	}
}

type timeoutFactory struct {
	timeout time.Duration
	inner   fleet.Factory
}

func (f timeoutFactory) MakeViaRef(ctx context.Context, old fleet.Service) (fleet.Service, error) {
	var oldInner fleet.Service
	if t, ok := old.(timeoutService); ok {
		oldInner = t.inner
	}
	inner, err := f.inner.MakeViaRef(ctx, oldInner)
	if err != nil {
		return nil, err
	}
	return timeoutService{timeout: f.timeout, inner: inner}, nil
}

// TimeoutLayer wraps an inner Factory so every call is bounded by timeout.
func TimeoutLayer(timeout time.Duration) fleet.Layer {
	return fleet.LayerFunc(func(inner fleet.Factory) fleet.Factory {
		return timeoutFactory{timeout: timeout, inner: inner}
	})
}

// routeService dispatches each connection to one of a fixed set of named
// inner services chosen by an exact match on the network name of the
// connection's peer address (conn.Peer.Network()), falling back when there
// is no peer or no match; a minimal router enough to exercise a Factory wrapping
// more than one inner Factory without pulling in an HTTP request model
// that's out of scope.
type routeService struct {
	routes  map[string]fleet.Service
	fallback fleet.Service
}

func (s routeService) Call(ctx context.Context, conn fleet.Conn) error {
	if conn.Peer != nil {
		if svc, ok := s.routes[conn.Peer.Network()]; ok {
			return svc.Call(ctx, conn)
		}
	}
	if s.fallback == nil {
		return fmt.Errorf("fleetservices: no route matched and no fallback configured")
	}
	return s.fallback.Call(ctx, conn)
}

// RouteFactory builds a routeService from a set of named inner Factories,
// keyed the same way routeService dispatches (by network name). Fallback
// may be nil, and the resulting service returns an error for unmatched
// connections when it is.
type RouteFactory struct {
	Routes   map[string]fleet.Factory
	Fallback fleet.Factory
}

var _ fleet.Factory = RouteFactory{}

// MakeViaRef implements fleet.Factory, rebuilding every named route and
// threading each route's own prior Service through MakeViaRef via old's
// inner map when old is itself a routeService.
func (f RouteFactory) MakeViaRef(ctx context.Context, old fleet.Service) (fleet.Service, error) {
	var oldRoute routeService
	if r, ok := old.(routeService); ok {
		oldRoute = r
	}

	built := make(map[string]fleet.Service, len(f.Routes))
	for name, factory := range f.Routes {
		svc, err := factory.MakeViaRef(ctx, oldRoute.routes[name])
		if err != nil {
			return nil, fmt.Errorf("fleetservices: build route %q: %w", name, err)
		}
		built[name] = svc
	}

	var fallback fleet.Service
	if f.Fallback != nil {
		svc, err := f.Fallback.MakeViaRef(ctx, oldRoute.fallback)
		if err != nil {
			return nil, fmt.Errorf("fleetservices: build fallback route: %w", err)
		}
		fallback = svc
	}

	return routeService{routes: built, fallback: fallback}, nil
}
