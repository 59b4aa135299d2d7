package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sitedock/sitedock/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "sitedock",
	Short:   "Static site hosting server with versioned deployments",
	Long: `Sitedock is a static site hosting server. Sites are uploaded as
tar.gz or zip archives and served under both a stable name URL and a
per-deployment identifier URL.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		setupLogging(cfg.Log.Level)
		cmd.SetContext(withConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, repeatable (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (env: SITEDOCK_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (env: SITEDOCK_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("sites-path", "", "base directory for deployed site trees (env: SITEDOCK_STORAGE_SITES_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
