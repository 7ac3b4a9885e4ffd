package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-news-reader/internal/app"
	"github.com/samvad-hq/samvad-news-reader/internal/logger"
)

func newServeCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reader HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger.InfoObj("reader starting", "config", env.cfg)

			reader, err := app.NewReader(ctx, env.cfg, env.log)
			if err != nil {
				logger.ErrorObj("failed to initialize reader", "error", err.Error())
				return err
			}
			if err := reader.Run(ctx); err != nil {
				return fmt.Errorf("reader run: %w", err)
			}
			return nil
		},
	}
}
