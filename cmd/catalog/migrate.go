package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	sqliteRepo "github.com/sakif/item-catalog/internal/repository/sqlite"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ensureDir(a.cfg.DBPath); err != nil {
				return err
			}

			db, err := sqliteRepo.Open(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := db.Migrate()
			if err != nil {
				return err
			}

			a.logger.Info("migrations applied", slog.String("database", a.cfg.DBPath), slog.Uint64("version", uint64(version)))
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}
