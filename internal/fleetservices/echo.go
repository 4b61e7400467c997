package fleetservices

import (
	"context"
	"io"

	"gatewayfleet/internal/fleet"
	"gatewayfleet/pkg/logging"
)

// EchoService copies everything it reads back to the same connection.
type EchoService struct {
	bufferBytes int
}

var _ fleet.Service = EchoService{}

// Call implements fleet.Service.
func (s EchoService) Call(ctx context.Context, conn fleet.Conn) error {
	buf := make([]byte, s.bufferBytes)
	n, err := io.CopyBuffer(conn.Netconn, conn.Netconn, buf)
	if err != nil {
		return err
	}
	logging.Debug("echo", "relayed %d bytes for %s", n, conn.Peer)
	return nil
}

// EchoFactory builds EchoService instances. It carries no per-connection
// state, so MakeViaRef ignores old entirely — restaging always yields an
// equivalent, independent EchoService.
type EchoFactory struct {
	BufferBytes int
}

var _ fleet.Factory = EchoFactory{}

// NewEchoFactory returns a factory with a sane default buffer size if
// bufferBytes is non-positive.
func NewEchoFactory(bufferBytes int) EchoFactory {
	if bufferBytes <= 0 {
		bufferBytes = 4096
	}
	return EchoFactory{BufferBytes: bufferBytes}
}

// MakeViaRef implements fleet.Factory.
func (f EchoFactory) MakeViaRef(_ context.Context, _ fleet.Service) (fleet.Service, error) {
	return EchoService{bufferBytes: f.BufferBytes}, nil
}
