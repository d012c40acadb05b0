package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"bizdesk/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			db, err := database.NewConnection(cfg.Database.DSN())
			if err != nil {
				return err
			}
			slog.Info("Connected to PostgreSQL", "host", cfg.Database.Host, "database", cfg.Database.Name)

			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			return nil
		},
	}
}
