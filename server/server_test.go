package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return New(h, 0, time.Second, time.Second, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunServesUntilCancelled(t *testing.T) {
	srv := newTestServer()

	var order []string
	srv.OnShutdown("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	srv.OnShutdown("second", func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	resp, err := http.Get("http://" + srv.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestRunReportsShutdownErrors(t *testing.T) {
	srv := newTestServer()
	boom := errors.New("boom")
	srv.OnShutdown("broken", func(ctx context.Context) error { return boom })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := srv.Run(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestRunListenFailureReleasesAddrAndHooks(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	srv := New(http.NotFoundHandler(), port, time.Second, time.Second, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	closed := false
	srv.OnShutdown("store", func(context.Context) error {
		closed = true
		return nil
	})

	err = srv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf(":%d", port))
	assert.True(t, closed)

	addr := make(chan net.Addr, 1)
	go func() { addr <- srv.Addr() }()
	select {
	case a := <-addr:
		assert.Nil(t, a)
	case <-time.After(5 * time.Second):
		t.Fatal("Addr blocked after a failed listen")
	}
}
