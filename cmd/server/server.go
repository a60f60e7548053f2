package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// shutdownTimeout bounds how long in-flight requests may run after a
// shutdown signal. Background tasks are not bounded by it; the runner
// drains its queue and fails unstarted work instead.
const shutdownTimeout = 30 * time.Second

// serve starts the task runner and the HTTP server, then blocks until the
// context is cancelled and everything is shut down.
func serve(ctx context.Context, app *application) error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("server listening", slog.Int("port", app.config.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		app.taskRunner.Stop()
		app.detachedRunner.Stop()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("HTTP shutdown did not finish cleanly", slog.String("error", err.Error()))
	}

	// Stop accepting new tasks, let running ones finish, fail queued ones.
	app.taskRunner.Stop()
	app.detachedRunner.Stop()

	app.logger.Info("shutdown complete")
	return nil
}
