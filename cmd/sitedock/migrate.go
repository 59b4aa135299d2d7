package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sitedock/sitedock/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Create the sites and users tables and their indexes in the
configured backend. Useful when auto migration is disabled and schema
changes are applied as a deployment step.`,
	RunE: runMigrate,
}

var migrateDrop bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateDrop, "drop", false, "drop all managed tables instead of creating them")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}

	if migrateDrop {
		if err := database.Drop(ctx, cfg.Database); err != nil {
			return fmt.Errorf("drop tables: %w", err)
		}
		slog.Info("tables dropped", "type", cfg.Database.Type)
		return nil
	}

	if err := database.Migrate(ctx, cfg.Database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	slog.Info("migration complete", "type", cfg.Database.Type)
	return nil
}
