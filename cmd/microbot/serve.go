package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/microbot/internal/app"
	"github.com/aatumaykin/microbot/internal/logger"
	"github.com/aatumaykin/microbot/internal/version"
)

func newServeCmd(load configLoader) *cobra.Command {
	var logLevel string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start MicroBot (main command)",
		Long: `Start MicroBot with the given configuration: Telegram long polling,
the schedule reconciler, the inbox drainer and the metrics endpoint.
SIGINT or SIGTERM stops everything gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}

			if errs := cfg.Validate(); len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", e)
				}
				return fmt.Errorf("configuration validation failed: %d errors", len(errs))
			}

			log, err := logger.New(logger.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: cfg.Logging.Output,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer log.Close()
			logger.SetDefault(log)

			log.Info(version.FormatStartupMessage(),
				logger.Field{Key: "data_dir", Value: cfg.App.DataDir},
				logger.Field{Key: "llm_provider", Value: cfg.LLM.Provider})

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := app.New(cfg, log).Run(ctx); err != nil {
				log.Error("application stopped with error", err)
				return err
			}
			log.Info("MicroBot stopped gracefully")
			return nil
		},
	}
	serveCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Override logging level (debug, info, warn, error)")
	return serveCmd
}
