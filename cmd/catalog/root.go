package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sakif/item-catalog/internal/config"
)

// app carries what PersistentPreRunE prepares for the subcommands.
type app struct {
	envFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Item catalog web application",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().String("db", "", "SQLite database path (DB_PATH)")
	root.PersistentFlags().String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	root.PersistentFlags().String("log-format", "", "text or json (LOG_FORMAT)")

	root.AddCommand(newServeCmd(a), newMigrateCmd(a), newUserCmd(a))
	return root
}

// load builds the config and logger. Flags win over the environment.
func (a *app) load(cmd *cobra.Command) error {
	a.v = config.New(a.envFile)

	bindings := map[string]string{
		"db":         config.KeyDBPath,
		"log-level":  config.KeyLogLevel,
		"log-format": config.KeyLogFormat,
		"port":       config.KeyPort,
	}
	for flag, key := range bindings {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", flag, err)
			}
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.LogFormat {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
}
