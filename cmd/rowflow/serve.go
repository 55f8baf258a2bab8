package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/rowflow"
	httpadapter "github.com/aretw0/rowflow/pkg/adapters/http"
	"github.com/aretw0/rowflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes row validation as a JSON API over HTTP, with Prometheus metrics on
/metrics and the OpenAPI document on /openapi.yaml.

Rows posted with a row_id are tracked. Results are kept in memory unless
--store-dir is given or --redis-addr points at a Redis server, which also
serializes concurrent validations of the same row across replicas.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("store-dir", ".rowflow/results", "Keep tracked rows in this directory (default: in memory)")
	serveCmd.Flags().String("redis-addr", "", "Redis address for tracked rows (default: in memory)")
	serveCmd.Flags().Duration("result-ttl", 24*time.Hour, "Expiry of tracked results in Redis")
}

func runServe(cmd *cobra.Command, args []string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return err
	}

	val := newValidator(rowflow.WithLifecycleHooks(observability.Combine(metrics.Hooks(), observability.LogHooks(logger))))

	sessions, closeFn, err := newSessionManager(cmd.Flags().Changed("store-dir"))
	if err != nil {
		return err
	}
	defer closeFn()

	handler, err := httpadapter.NewHandler(val,
		httpadapter.WithSessions(sessions),
		httpadapter.WithLogger(logger),
		httpadapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting rowflow server", "address", srv.Addr, "redis", cfg.RedisAddr != "")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-cmd.Context().Done():
		logger.Info("Shutdown signal received")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("rowflow server stopped gracefully")
		return nil
	}
}
