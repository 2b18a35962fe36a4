package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"vapi/pkg/logging"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP server and the
// document store.
const shutdownTimeout = 10 * time.Second

// runServer starts the reconciler, the watcher and the HTTP server and blocks
// until ctx is cancelled, a signal arrives or the server fails.
//
// Signal Handling:
//   - SIGINT (Ctrl+C): Triggers graceful shutdown
//   - SIGTERM: Triggers graceful shutdown (common in container environments)
func runServer(ctx context.Context, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", services.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", services.Server.Addr(), err)
	}
	return serve(ctx, services, ln)
}

// serve runs everything on an existing listener. Shutdown happens in reverse
// start order: server, watcher, reconciler, then the stores.
func serve(ctx context.Context, services *Services, ln net.Listener) error {
	if err := services.Reconciler.Start(ctx); err != nil {
		ln.Close()
		return fmt.Errorf("failed to start reconciler: %w", err)
	}
	if services.Watcher != nil {
		if err := services.Watcher.Start(ctx); err != nil {
			logging.Warn("Bootstrap", "File watching disabled: %v", err)
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- services.Server.Serve(ln)
	}()

	logging.Info("Bootstrap", "Running. Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info("Bootstrap", "Shutting down")
	case runErr = <-serveErr:
		logging.Error("Bootstrap", runErr, "HTTP server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	if runErr == nil {
		if err := services.Server.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := <-serveErr; err != nil {
			errs = append(errs, err)
		}
	} else {
		errs = append(errs, runErr)
	}
	if services.Watcher != nil {
		if err := services.Watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := services.Reconciler.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := services.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	logging.Sync()
	return errors.Join(errs...)
}
