package main

import (
	"log/slog"
	"os"

	"github.com/alejandrodnm/curvewatch/config"
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
	logFormat  string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "curvewatch",
		Short: "Yield curve acquisition and analytics for US and Canada",
		Long: `curvewatch fetches US Treasury and Government of Canada yield curves from
FMP, FRED and the Bank of Canada, keeps a daily history in SQLite or Postgres
and computes spreads, butterflies, forwards, PCA and rolling statistics.

Examples:
  curvewatch curve --country both
  curvewatch backfill --months 12 --country both --dry-run
  curvewatch fill-gaps --days 30 --country us
  curvewatch analytics --country us --history-days 3650 --window 30
  curvewatch serve`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.verbose {
				cfg.Log.Level = "debug"
			}
			if opts.logFormat != "" {
				cfg.Log.Format = opts.logFormat
			}
			setupLogger(cfg.Log)
			opts.cfg = cfg
			slog.Debug("config loaded", "path", opts.configPath, "storage", cfg.Storage.Driver, "cache", cfg.Cache.Backend)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (YAML); empty uses defaults and environment")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "set log level to debug")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "format", "", "log format: text|json (overrides config)")

	cmd.AddCommand(
		newCurveCmd(opts),
		newBackfillCmd(opts),
		newFillGapsCmd(opts),
		newAnalyticsCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
