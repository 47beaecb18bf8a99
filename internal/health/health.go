// Package health serves a liveness endpoint for systemd watchdogs and
// container healthchecks.
package health

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Probe reports nil when the service is healthy.
type Probe func() error

// Handler answers GET /health with 200 "OK" or 503 and the probe error.
func Handler(probe Probe) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := probe(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Serve listens on :port until ctx is cancelled. An empty port disables it.
func Serve(ctx context.Context, port string, probe Probe, logger *slog.Logger) error {
	if port == "" {
		return nil
	}

	server := &http.Server{
		Addr:              net.JoinHostPort("", port),
		Handler:           Handler(probe),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("Health server listening", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Health server failed", "error", err)
		return err
	}
	return nil
}
