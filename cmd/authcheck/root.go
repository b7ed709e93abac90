package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/batchprot/bearer-auth/config"
	"github.com/batchprot/bearer-auth/jwks"
	"github.com/batchprot/bearer-auth/telemetry"
	"github.com/batchprot/bearer-auth/validator"
)

const tracerName = "github.com/batchprot/bearer-auth"

type rootOptions struct {
	envFile     string
	authBaseURL string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "authcheck",
		Short:         "Bearer token authentication for the BatchProt API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "env file to load (ignored when missing)")
	root.PersistentFlags().StringVar(&opts.authBaseURL, "auth-base-url", "", "auth provider base URL (overrides AUTH_BASE_URL)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newVerifyCmd(opts))
	root.AddCommand(newJWKSCmd(opts))
	return root
}

// loadConfig loads the configuration and applies flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, err
	}
	if o.authBaseURL != "" {
		cfg.AuthBaseURL = o.authBaseURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(cfg.Level())
	return zcfg.Build()
}

// authStack is everything needed to verify tokens for cfg.
type authStack struct {
	fetcher   *jwks.Fetcher
	resolver  *jwks.Resolver
	validator *validator.Validator
}

func newAuthStack(cfg *config.Config, logger telemetry.Logger, metrics telemetry.Metrics) (*authStack, error) {
	jwksURL, err := cfg.JWKSURL()
	if err != nil {
		return nil, err
	}

	fetcher, err := jwks.NewFetcher(jwksURL,
		jwks.WithTTL(cfg.JWKSCacheTTL),
		jwks.WithFetcherLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("could not set up the JWKS fetcher: %w", err)
	}

	tracer := telemetry.NewOpenTelemetryTracer(otel.Tracer(tracerName))
	resolver, err := jwks.NewResolver(jwks.NewStore(), fetcher,
		jwks.WithFetchTimeout(cfg.JWKSFetchTimeout),
		jwks.WithResolverLogger(logger),
		jwks.WithResolverMetrics(metrics),
		jwks.WithResolverTracer(tracer),
	)
	if err != nil {
		return nil, fmt.Errorf("could not set up the key resolver: %w", err)
	}

	v, err := validator.New(
		validator.WithKeyResolver(resolver),
		validator.WithIssuer(cfg.IssuerURL()),
		validator.WithAlgorithm(cfg.Algorithm()),
		validator.WithAllowedClockSkew(cfg.JWTClockSkew),
	)
	if err != nil {
		return nil, fmt.Errorf("could not set up the token validator: %w", err)
	}

	return &authStack{fetcher: fetcher, resolver: resolver, validator: v}, nil
}
