package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-news-reader/internal/config"
	"github.com/samvad-hq/samvad-news-reader/internal/logger"
)

// cliEnv is filled by the root command before any subcommand runs.
type cliEnv struct {
	cfg     *config.Config
	log     logger.Logger
	verbose bool
}

func newRootCmd() *cobra.Command {
	env := &cliEnv{log: logger.NopLogger{}}

	root := &cobra.Command{
		Use:           "reader",
		Short:         "Paged news reader backed by a NewsAPI compatible endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			env.cfg = cfg
			if env.verbose || cmd.Name() == "serve" {
				log, err := logger.Init(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				env.log = log
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Close()
		},
	}
	root.PersistentFlags().BoolVarP(&env.verbose, "verbose", "v", false, "write structured logs to stdout")

	root.AddCommand(
		newServeCmd(env),
		newSourcesCmd(env),
		newArticlesCmd(env),
	)
	return root
}
