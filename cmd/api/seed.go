package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"bizdesk/internal/database"
	"bizdesk/internal/lifecycle"
	"bizdesk/internal/repository"
	"bizdesk/internal/service"
)

var defaultCategories = map[string]string{
	"Computers":   "20",
	"Accessories": "35",
	"Networking":  "25",
	"Printers":    "20",
	"Software":    "15",
}

func seedCmd() *cobra.Command {
	var (
		categories   map[string]string
		noCategories bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the permission catalog, default roles and starter categories",
		Long: `Seed is idempotent. Roles and permissions are upserted; categories that
already exist are left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := database.NewConnection(cfg.Database.DSN())
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}

			txm := repository.NewTransactionManager(db)
			roles := service.NewRoleService(repository.NewRoleRepository(db), txm, nil)
			if err := roles.SeedDefaultRolesAndPermissions(ctx); err != nil {
				return fmt.Errorf("seed roles: %w", err)
			}
			slog.Info("Seeded roles and permissions")

			if noCategories {
				return nil
			}
			if len(categories) == 0 {
				categories = defaultCategories
			}
			categorySvc := service.NewCategoryService(repository.NewCategoryRepository(db), repository.NewAuditRepository(db), txm)

			names := make([]string, 0, len(categories))
			for name := range categories {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				_, err := categorySvc.Create(ctx, service.CategoryRequest{Name: name, MarkupPercent: categories[name]}, lifecycle.Actor{})
				switch {
				case errors.Is(err, service.ErrConflict):
					slog.Debug("Category exists, skipping", "name", name)
				case err != nil:
					return fmt.Errorf("seed category %q: %w", name, err)
				default:
					slog.Info("Seeded category", "name", name, "markup_percent", categories[name])
				}
			}
			return nil
		},
	}
	cmd.Flags().StringToStringVar(&categories, "category", nil, "category=markup percent to seed (repeatable; replaces the defaults)")
	cmd.Flags().BoolVar(&noCategories, "no-categories", false, "seed roles and permissions only")
	return cmd
}
