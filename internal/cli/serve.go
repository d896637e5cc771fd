package cli

import (
	"context"
	"eats/internal/adapters/exports"
	"eats/internal/eatsml"
	"eats/internal/httpapi"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(withApp appRunner) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, addr)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: http.addr)")
	return cmd
}

type server struct {
	handler http.Handler
	worker  *exports.Worker
}

// newServer wires the API, the export worker and the metrics endpoint.
func (a *app) newServer() *server {
	cache := eatsml.NewInfrastructureCache(a.cfg.Cache.TTL)
	worker := exports.NewWorker(a.svc.Store(), a.blobs,
		exports.WithLogger(a.logger),
		exports.WithCodecOptions(a.codec...),
	)
	api := httpapi.New(a.svc, a.logger,
		httpapi.WithCache(cache),
		httpapi.WithExportJobs(worker, a.blobs),
		httpapi.WithCodecOptions(a.codec...),
	)

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	api.Register(r)
	return &server{handler: r, worker: worker}
}

func (a *app) serve(ctx context.Context, addr string) error {
	s := a.newServer()
	s.worker.Start()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		a.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	if err := s.worker.Stop(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}
