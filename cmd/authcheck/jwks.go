package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/batchprot/bearer-auth/telemetry"
)

func newJWKSCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "jwks",
		Short: "Fetch the provider's key set and list its keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			zapLogger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = zapLogger.Sync() }()

			auth, err := newAuthStack(cfg, telemetry.NewZapLogger(zapLogger.Sugar()), telemetry.NoopMetrics{})
			if err != nil {
				return err
			}

			set, err := auth.resolver.Refresh(contextOrBackground(cmd))
			if err != nil {
				return fmt.Errorf("could not fetch %s: %w", auth.fetcher.URL(), err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KID\tKTY\tALG")
			for _, key := range set.Keys() {
				alg := key.Algorithm
				if alg == "" {
					alg = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", key.KeyID, key.KeyType, alg)
			}
			return w.Flush()
		},
	}
}
