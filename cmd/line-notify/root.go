package main

import (
	"fmt"
	"os"

	"github.com/goog1e-app/line-notify/internal/config"
	"github.com/goog1e-app/line-notify/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

type commandContext struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func (c *commandContext) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) logger(cfg *config.Config) (zerolog.Logger, error) {
	logger, err := logging.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "line-notify",
		Short:         "Send LINE Notify messages and run the notify relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", defaultConfigPath(), "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(newSendCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return rootCmd
}

func defaultConfigPath() string {
	if path := os.Getenv("LINE_NOTIFY_CONFIG"); path != "" {
		return path
	}
	return "config.yaml"
}
