package fleetservices

import (
	"net"

	"gatewayfleet/internal/fleet"
)

// connFor wraps a net.Conn as a fleet.Conn for tests that don't need a real
// dialed peer address.
func connFor(c net.Conn) fleet.Conn {
	return fleet.Conn{Netconn: c, Peer: c.RemoteAddr()}
}
