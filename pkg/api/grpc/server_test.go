package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startTestServer(t *testing.T) (*Server, chan error) {
	t.Helper()

	srv, err := NewServer(&Config{Port: 0, Logger: zap.NewNop()})
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- srv.Start() }()
	time.Sleep(50 * time.Millisecond)

	return srv, served
}

func TestShutdownDrainsAndStops(t *testing.T) {
	srv, served := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestShutdownExpiredContextForcesStop(t *testing.T) {
	srv, served := startTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	require.NoError(t, srv.Shutdown(ctx))
	require.Less(t, time.Since(start), time.Second)

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
