package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitedock/sitedock"
	"github.com/sitedock/sitedock/archive"
	"github.com/sitedock/sitedock/auth"
	"github.com/sitedock/sitedock/database"
	sitehttp "github.com/sitedock/sitedock/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the Sitedock HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8350, "HTTP server port")
	serveCmd.Flags().String("base-url", "", "externally visible base URL used in site links")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}

	store, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()
	slog.Info("connected to database", "type", cfg.Database.Type)

	service, err := sitedock.NewSiteService(store.Sites, store.Users, archive.New(), sitedock.ServiceConfig{
		SitesPath: cfg.Storage.SitesPath,
	})
	if err != nil {
		return fmt.Errorf("create site service: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		return fmt.Errorf("create token service: %w", err)
	}
	authSvc := auth.NewService(store.Users, store.Sites, tokens)

	sitesRoot, err := os.OpenRoot(cfg.Storage.SitesPath)
	if err != nil {
		return fmt.Errorf("open sites root: %w", err)
	}
	defer func() { _ = sitesRoot.Close() }()

	handlerConfig := sitehttp.HandlerConfig{
		BaseURL:       cfg.Server.BaseURL,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		UploadTmpDir:  cfg.Storage.UploadTmpDir,
		AdminKey:      cfg.Auth.AdminKey,
		CORS:          cfg.CORS,
	}

	handler := sitehttp.NewHandler(&handlerConfig, service, authSvc, tokens, store.Users, sitesRoot)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "base_url", cfg.Server.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
