package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/microbot/internal/config"
)

const defaultConfigPath = "./config.toml"

// newRootCmd builds the command tree. The --config flag is shared by all
// subcommands.
func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "microbot",
		Short: "MicroBot - small self-hosted chat assistant",
		Long: `MicroBot is a self-hosted assistant for low-end hardware. It talks to an
OpenAI-compatible model, runs a small set of tools and fires scheduled
directives, catching up on minutes it missed while offline.`,
		Version:       Version,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to configuration file")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("%w (use --config to point at config.toml)", err)
			}
			return nil, err
		}
		return cfg, nil
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(loadConfig))
	rootCmd.AddCommand(newServeCmd(loadConfig))
	rootCmd.AddCommand(newScheduleCmd(loadConfig))
	return rootCmd
}

// configLoader loads the configuration named by --config.
type configLoader func() (*config.Config, error)
