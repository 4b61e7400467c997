package fleetservices

import (
	"fmt"

	"gatewayfleet/internal/config"
	"gatewayfleet/internal/fleet"
)

// BuildListenerFactory translates a validated ListenerConfig into the
// concrete fleet.ListenerFactory it names. config has already rejected
// unknown kinds and missing required fields by the time this runs.
func BuildListenerFactory(lc config.ListenerConfig) (fleet.ListenerFactory, error) {
	switch lc.Kind {
	case "tcp":
		return TCPListenerFactory{Address: lc.Address}, nil
	case "unix":
		return UnixListenerFactory{Path: lc.Path}, nil
	case "systemd":
		return SystemdListenerFactory{Name: lc.SystemdName}, nil
	default:
		return nil, fmt.Errorf("fleetservices: unknown listener kind %q", lc.Kind)
	}
}

// BuildServiceFactory translates a validated ServiceConfig into the
// concrete fleet.Factory it names.
func BuildServiceFactory(sc config.ServiceConfig) (fleet.Factory, error) {
	switch sc.Kind {
	case "echo":
		return NewEchoFactory(sc.BufferBytes), nil
	case "tcpProxy":
		return NewProxyFactory(sc.Upstream, sc.PoolSize), nil
	default:
		return nil, fmt.Errorf("fleetservices: unknown service kind %q", sc.Kind)
	}
}
