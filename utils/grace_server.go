package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	drainTimeout      = 30 * time.Second
)

// GraceServer listens on addr and serves handler until SIGINT or SIGTERM.
// In-flight requests get drainTimeout to finish, then the hooks run in order.
func GraceServer(addr string, handler http.Handler, onShutdown ...func()) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return ServeListener(ctx, ln, handler, onShutdown...)
}

// ServeListener serves on ln until ctx is cancelled.
func ServeListener(ctx context.Context, ln net.Listener, handler http.Handler, onShutdown ...func()) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	Logger.Info("http server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		runHooks(onShutdown)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	Logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	runHooks(onShutdown)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	Logger.Info("http server stopped")
	return nil
}

func runHooks(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}
