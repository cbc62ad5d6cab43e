package server

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// shutdownTimeout bounds the drain of in-flight requests once shutdown
// begins.
const shutdownTimeout = 10 * time.Second

// Serve runs the API on addr until ctx is cancelled, then drains
// in-flight requests before returning. A clean shutdown returns nil.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		// Listener failed before any shutdown was requested.
		return err
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
