package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/SkothaSec/project-mimir/internal/logger"
)

// ShutdownTimeout bounds how long in-flight requests get after cancellation.
const ShutdownTimeout = 10 * time.Second

// Run serves srv until ctx is cancelled, then shuts it down gracefully.
// It returns nil after a clean shutdown.
func Run(ctx context.Context, srv *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "listen on %s", srv.Addr)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Infof("Shutting down HTTP server on %s", srv.Addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
