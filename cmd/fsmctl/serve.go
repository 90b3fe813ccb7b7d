package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/librescoot/relayfsm"
	"github.com/librescoot/relayfsm/httpapi"
	"github.com/librescoot/relayfsm/machinefile"
	"github.com/librescoot/relayfsm/metrics"
	"github.com/librescoot/relayfsm/registry/redisstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type serveConfig struct {
	redisAddr string
	metrics   bool
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve FILE",
		Short: "Expose a machine over HTTP",
		Long:  `Starts an HTTP server with GET /state, POST /events/{event} and GET /healthz. With --redis the state survives restarts; with --metrics Prometheus counters are served on /metrics.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := commandLogger(cmd)
			if err != nil {
				return err
			}
			addr, _ := cmd.Flags().GetString("addr")
			cfg := serveConfig{}
			cfg.redisAddr, _ = cmd.Flags().GetString("redis")
			cfg.metrics, _ = cmd.Flags().GetBool("metrics")

			f, err := machinefile.Load(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler, cleanup, err := buildServer(ctx, f, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			return listen(ctx, &http.Server{Addr: addr, Handler: handler}, logger)
		},
	}
	cmd.Flags().String("addr", ":8080", "Address to listen on")
	cmd.Flags().String("redis", "", "Redis address to persist the state to (disabled when empty)")
	cmd.Flags().Bool("metrics", false, "Serve Prometheus metrics on /metrics")
	return cmd
}

// buildServer wires the machine described by f to its HTTP handler
func buildServer(ctx context.Context, f *machinefile.File, cfg serveConfig, logger *slog.Logger) (http.Handler, func(), error) {
	if err := f.Validate(); err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	opts := []relayfsm.MachineOption{}
	initial := machinefile.Name(f.Initial)

	if cfg.redisAddr != "" {
		store := redisstore.New[machinefile.Name](cfg.redisAddr, "", 0, f.Name, redisstore.JSONCodec[machinefile.Name]{},
			redisstore.WithLogger(logger))
		restored, err := store.Load(ctx, initial)
		if err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to restore state: %w", err)
		}
		if _, ok := f.States[string(restored)]; !ok {
			logger.Warn("stored state is not declared, starting over", "state", restored)
			restored = initial
		}
		initial = restored
		opts = append(opts, relayfsm.WithRegistry[machinefile.Name](store))
		cleanup = func() { _ = store.Close() }
	}

	var machineLog relayfsm.Logger = machineLogger(logger)
	var registry *prometheus.Registry
	if cfg.metrics {
		collector := metrics.NewCollector(prometheus.Labels{"machine": f.Name})
		registry = prometheus.NewRegistry()
		registry.MustRegister(collector)
		machineLog = relayfsm.MultiLogger{machineLog, collector}
	}
	opts = append(opts, relayfsm.WithLogger(machineLog))

	m, err := f.BuildFrom(initial, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Info("machine ready", "name", f.Name, "state", m.CurrentState())

	r := chi.NewRouter()
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	r.Mount("/", httpapi.NewHandler(m, httpapi.WithLogger(logger), httpapi.WithEvents(f.Events()...)))
	return r, cleanup, nil
}

func listen(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown did not complete", "error", err)
			return srv.Close()
		}
		if err := <-serverErrors; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("server stopped")
		return nil
	}
}
