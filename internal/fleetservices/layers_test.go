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

func TestDelayLayer_DelaysBeforeCallingInner(t *testing.T) {
	inner := fleet.FactoryFunc(func(ctx context.Context, old fleet.Service) (fleet.Service, error) {
		return fleet.ServiceFunc(func(ctx context.Context, conn fleet.Conn) error { return nil }), nil
	})
	wrapped := DelayLayer(30 * time.Millisecond).Wrap(inner)

	svc, err := wrapped.MakeViaRef(context.Background(), nil)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, svc.Call(context.Background(), fleet.Conn{}))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDelayLayer_CancelledContextReturnsEarly(t *testing.T) {
	inner := fleet.FactoryFunc(func(ctx context.Context, old fleet.Service) (fleet.Service, error) {
		return fleet.ServiceFunc(func(ctx context.Context, conn fleet.Conn) error { return nil }), nil
	})
	wrapped := DelayLayer(time.Hour).Wrap(inner)
	svc, err := wrapped.MakeViaRef(context.Background(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = svc.Call(ctx, fleet.Conn{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTimeoutLayer_FailsSlowCalls(t *testing.T) {
	inner := fleet.FactoryFunc(func(ctx context.Context, old fleet.Service) (fleet.Service, error) {
		return fleet.ServiceFunc(func(ctx context.Context, conn fleet.Conn) error {
			<-ctx.Done()
			return ctx.Err()
		}), nil
	})
	wrapped := TimeoutLayer(20 * time.Millisecond).Wrap(inner)
	svc, err := wrapped.MakeViaRef(context.Background(), nil)
	require.NoError(t, err)

	err = svc.Call(context.Background(), fleet.Conn{})
	assert.Error(t, err)
}

func TestTimeoutLayer_PassesThroughFastCalls(t *testing.T) {
	inner := fleet.FactoryFunc(func(ctx context.Context, old fleet.Service) (fleet.Service, error) {
		return fleet.ServiceFunc(func(ctx context.Context, conn fleet.Conn) error { return nil }), nil
	})
	wrapped := TimeoutLayer(time.Second).Wrap(inner)
	svc, err := wrapped.MakeViaRef(context.Background(), nil)
	require.NoError(t, err)

	assert.NoError(t, svc.Call(context.Background(), fleet.Conn{}))
}

func TestRouteFactory_DispatchesByNetwork(t *testing.T) {
	tcpCalled := false
	unixCalled := false

	f := RouteFactory{
		Routes: map[string]fleet.Factory{
			"tcp": fleet.FactoryFunc(func(ctx context.Context, old fleet.Service) (fleet.Service, error) {
				return fleet.ServiceFunc(func(ctx context.Context, conn fleet.Conn) error {
					tcpCalled = true
					return nil
				}), nil
			}),
			"unix": fleet.FactoryFunc(func(ctx context.Context, old fleet.Service) (fleet.Service, error) {
				return fleet.ServiceFunc(func(ctx context.Context, conn fleet.Conn) error {
					unixCalled = true
					return nil
				}), nil
			}),
		},
	}

	svc, err := f.MakeViaRef(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Call(context.Background(), fleet.Conn{Peer: fakeAddr{network: "tcp"}}))
	assert.True(t, tcpCalled)
	assert.False(t, unixCalled)
}

func TestRouteFactory_UnmatchedWithoutFallbackErrors(t *testing.T) {
	f := RouteFactory{Routes: map[string]fleet.Factory{}}
	svc, err := f.MakeViaRef(context.Background(), nil)
	require.NoError(t, err)

	err = svc.Call(context.Background(), fleet.Conn{Peer: fakeAddr{network: "tcp"}})
	assert.Error(t, err)
}

type fakeAddr struct {
	network string
}

func (a fakeAddr) Network() string { return a.network }
func (a fakeAddr) String() string  { return "fake:" + a.network }

var _ net.Addr = fakeAddr{}
