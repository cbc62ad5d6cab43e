package server

import (
	"context"
	"testing"
	"time"
)

func TestServe_DrainsOnContextCancel(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, "127.0.0.1:0")
	}()

	// Give the listener a moment to come up before requesting shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down after cancel")
	}
}

func TestServe_ListenerFailureSurfaces(t *testing.T) {
	s := newTestServer(t)

	err := s.Serve(context.Background(), "256.256.256.256:0")
	if err == nil {
		t.Fatal("expected listen error for invalid address")
	}
}
