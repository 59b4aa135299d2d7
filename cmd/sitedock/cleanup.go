package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sitedock/sitedock"
	"github.com/sitedock/sitedock/archive"
	"github.com/sitedock/sitedock/database"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove orphaned site trees",
	Long: `Remove on-disk site trees that no database record refers to.

Orphans accumulate when a deployment is interrupted or a site record is
deleted while its files linger. This command removes:
  1. Identifier trees whose record has been deleted
  2. Name trees that no record claims
  3. Leftover deploy temp directories

Run this periodically to reclaim disk space.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}

	store, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	service, err := sitedock.NewSiteService(store.Sites, store.Users, archive.New(), sitedock.ServiceConfig{
		SitesPath: cfg.Storage.SitesPath,
	})
	if err != nil {
		return fmt.Errorf("create site service: %w", err)
	}

	slog.Info("starting cleanup", "path", cfg.Storage.SitesPath)

	removed, err := service.Prune(ctx)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}

	slog.Info("cleanup complete", "trees_removed", removed)
	return nil
}
