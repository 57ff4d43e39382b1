package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/item-catalog/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}
			if err := ensureDir(a.cfg.DBPath); err != nil {
				return err
			}

			srv, err := server.New(a.cfg, a.logger)
			if err != nil {
				return err
			}
			// Start blocks until SIGINT/SIGTERM.
			return srv.Start()
		},
	}
	cmd.Flags().Int("port", 0, "listen port (PORT)")
	return cmd
}

// ensureDir creates the directory holding a file-backed database.
func ensureDir(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}
