package fleetservices

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewayfleet/internal/fleet"
)

func TestEchoFactory_DefaultsBufferSize(t *testing.T) {
	f := NewEchoFactory(0)
	assert.Equal(t, 4096, f.BufferBytes)
}

func TestEchoService_RelaysBytesBack(t *testing.T) {
	f := NewEchoFactory(1024)
	svc, err := f.MakeViaRef(context.Background(), nil)
	require.NoError(t, err)

	client, server := net.Pipe()
	defer client.Close()

	done := make(chan error, 1)
	go func() {
		done <- svc.Call(context.Background(), fleet.Conn{Netconn: server})
	}()

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	client.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("echo service did not return after client closed")
	}
}
