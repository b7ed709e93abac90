package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/batchprot/bearer-auth/internal/server"
	"github.com/batchprot/bearer-auth/telemetry"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}

			zapLogger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = zapLogger.Sync() }()
			logger := telemetry.NewZapLogger(zapLogger.Sugar())

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics := telemetry.NewPrometheusMetrics(registry)

			auth, err := newAuthStack(cfg, logger, metrics)
			if err != nil {
				return err
			}

			srv, err := server.New(auth.validator,
				server.WithAPIPrefix(cfg.APIV1Str),
				server.WithLogger(logger),
				server.WithMetrics(metrics),
				server.WithTracer(telemetry.NewOpenTelemetryTracer(otel.Tracer(tracerName))),
				server.WithGatherer(registry),
				server.WithTokenExtractor(cfg.TokenExtractor()),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Warm the key cache; a failure here is retried on the first request.
			if _, err := auth.resolver.Refresh(ctx); err != nil {
				logger.Warn("could not prefetch the JWKS", "error", err, "url", auth.fetcher.URL())
			}

			logger.Info("starting",
				"project", cfg.ProjectName,
				"environment", cfg.Environment,
				"issuer", cfg.IssuerURL())
			return srv.Run(ctx, cfg.HTTPAddr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

// contextOrBackground is used where cobra may not have set a context.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
