package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/batchprot/bearer-auth/core"
	"github.com/batchprot/bearer-auth/telemetry"
	"github.com/batchprot/bearer-auth/validator"
)

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [token]",
		Short: "Verify a token and print its subject",
		Long: "Verify a token against the provider's key set and print the subject.\n" +
			"The token is read from standard input when it is not given or is \"-\".\n" +
			"On failure the internal failure code is printed instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readToken(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			zapLogger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = zapLogger.Sync() }()
			logger := telemetry.NewZapLogger(zapLogger.Sugar())

			auth, err := newAuthStack(cfg, logger, telemetry.NoopMetrics{})
			if err != nil {
				return err
			}
			c, err := core.New(
				core.WithValidator(auth.validator),
				core.WithLogger(logger),
			)
			if err != nil {
				return err
			}

			result, err := c.CheckToken(contextOrBackground(cmd), token)
			if err != nil {
				return fmt.Errorf("%w: %s", err, core.ErrorCode(err))
			}
			identity := result.(*validator.VerifiedIdentity)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), identity.Subject)
			return err
		},
	}
}

func readToken(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return strings.TrimSpace(args[0]), nil
	}
	b, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	if err != nil {
		return "", fmt.Errorf("could not read token: %w", err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", errors.New("no token given")
	}
	return token, nil
}
