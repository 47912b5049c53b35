package main

import (
	"io"

	"github.com/aleister1102/secwatch/internal/config"
	"github.com/aleister1102/secwatch/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "secwatch",
		Short:        "Local security sidecar: watches a source tree, flags risky code and applies fixes",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML/JSON config file (default: $"+config.ConfigEnvVar+" or ./secwatch.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level (trace, debug, info, warn, error)")

	cmd.AddCommand(
		newWatchCommand(opts),
		newScanCommand(opts),
		newRulesCommand(opts),
		newHistoryCommand(opts),
	)
	return cmd
}

// loadConfig reads and validates the configuration for one-shot commands.
func (o *rootOptions) loadConfig(bootstrap zerolog.Logger) (*config.GlobalConfig, error) {
	cfg, err := config.LoadGlobalConfig(o.configPath, bootstrap)
	if err != nil {
		return nil, err
	}
	o.applyLogLevel(cfg)
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) applyLogLevel(cfg *config.GlobalConfig) {
	if o.logLevel != "" {
		cfg.LogConfig.LogLevel = o.logLevel
	}
}

// bootstrapLogger logs to out until the configured logger exists.
func (o *rootOptions) bootstrapLogger(out io.Writer) zerolog.Logger {
	cfg := config.NewDefaultLogConfig()
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	log, err := logger.New(cfg, out)
	if err != nil {
		return zerolog.New(out)
	}
	return log
}

// buildLogger creates the logger described by cfg, writing console output to out.
func buildLogger(cfg config.LogConfig, out io.Writer) (zerolog.Logger, error) {
	return logger.New(cfg, out)
}
