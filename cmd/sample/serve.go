package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bjaus/gate"
	"github.com/bjaus/gate/metrics"
	"github.com/bjaus/gate/oteltrace"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the sample HTTP server.

Environment variables:
  SAMPLE_ADDR             - Listen address (default: :8080)
  SAMPLE_LOG_LEVEL        - debug, info, warn, error (default: info)
  SAMPLE_LOG_FORMAT       - text or json (default: text)
  SAMPLE_REQUEST_TIMEOUT  - Per-request deadline (default: 10s)
  SAMPLE_MAX_BODY_BYTES   - Request body limit (default: 1MiB)
  SAMPLE_RATE_LIMIT       - Requests per second per client (default: 20)
  SAMPLE_RATE_BURST       - Burst size (default: 40)
  SAMPLE_ADMIN_TOKEN      - Bearer token for write routes`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	logger := cfg.logger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := newRouter(cfg, newUserStore(),
		gate.WithLogger(logger),
		gate.WithObserver(gate.LogObserver(logger), metrics.New(metrics.WithRegistry(reg))),
		gate.WithTracer(oteltrace.New(oteltrace.WithTracerName("sample"))),
	)
	r.Use(gate.RequestID())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", r)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server", "addr", cfg.Addr, "spec", "/openapi.json", "docs", "/docs")

	if err := serve(ctx, cfg.Addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info("server stopped")
	return nil
}

func serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
