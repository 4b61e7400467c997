package fleet

import (
	"context"
	"net"
)

// loopbackListenerFactory binds an ephemeral TCP port on localhost, used by
// AcceptLoop and scenario tests that need a real, acceptable listener
// without depending on internal/fleetservices (which imports this package).
type loopbackListenerFactory struct {
	err error
}

func (f loopbackListenerFactory) MakeListener(ctx context.Context) (Listener, error) {
	if f.err != nil {
		return nil, f.err
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	return l, nil
}

// echoOnceService accepts one read and writes it back verbatim, recording
// that it was called on done.
type echoOnceService struct {
	done chan<- string
}

func (s echoOnceService) Call(ctx context.Context, conn Conn) error {
	buf := make([]byte, 256)
	n, err := conn.Netconn.Read(buf)
	if err != nil {
		return err
	}
	if _, err := conn.Netconn.Write(buf[:n]); err != nil {
		return err
	}
	if s.done != nil {
		s.done <- string(buf[:n])
	}
	return conn.Netconn.Close()
}

type echoOnceFactory struct {
	done chan<- string
}

func (f echoOnceFactory) MakeViaRef(ctx context.Context, old Service) (Service, error) {
	return echoOnceService{done: f.done}, nil
}
