// Package database connects the configured persistence backend and returns
// the site and user repositories behind their interfaces. Backends are
// interchangeable: the same repository semantics are provided by SQLite and
// PostgreSQL implementations.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitedock/sitedock"
	"github.com/sitedock/sitedock/database/postgres"
	"github.com/sitedock/sitedock/database/sqlite"

	_ "modernc.org/sqlite" // SQLite driver
)

// Config holds the configuration for connecting to a storage backend.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn" validate:"required"`
	// AutoMigrate runs migrations on connect
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// Store bundles the repositories of one connected backend.
type Store struct {
	Sites sitedock.SiteRepo
	Users sitedock.UserRepo
}

// Connect establishes a connection to the configured backend, optionally
// runs migrations, validates the schema, and returns the repositories. The
// returned cleanup function closes the connection.
func Connect(ctx context.Context, cfg Config) (*Store, func(), error) {
	switch cfg.Type {
	case "sqlite":
		return connectSQLite(ctx, cfg)
	case "postgres":
		return connectPostgres(ctx, cfg)
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// Migrate applies the schema to the configured backend without starting any
// repositories. Used by the migrate command for explicit schema management.
func Migrate(ctx context.Context, cfg Config) error {
	return withConn(ctx, cfg, sqlite.Migrate, postgres.Migrate)
}

// Drop removes all managed tables from the configured backend.
func Drop(ctx context.Context, cfg Config) error {
	return withConn(ctx, cfg, sqlite.DropTables, postgres.DropTables)
}

func withConn(
	ctx context.Context,
	cfg Config,
	sqliteFn func(context.Context, *sql.DB) error,
	postgresFn func(context.Context, *pgxpool.Pool) error,
) error {
	switch cfg.Type {
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		defer func() { _ = db.Close() }()
		return sqliteFn(ctx, db)
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		return postgresFn(ctx, pool)
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

func connectSQLite(ctx context.Context, cfg Config) (*Store, func(), error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if cfg.AutoMigrate {
		if err = sqlite.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
	}

	if err = sqlite.ValidateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("validate sqlite schema: %w", err)
	}

	store := &Store{
		Sites: sqlite.NewSiteRepo(db),
		Users: sqlite.NewUserRepo(db),
	}
	cleanup := func() { _ = db.Close() }

	return store, cleanup, nil
}

func connectPostgres(ctx context.Context, cfg Config) (*Store, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if cfg.AutoMigrate {
		if err = postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	if err = postgres.ValidateSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("validate postgres schema: %w", err)
	}

	store := &Store{
		Sites: postgres.NewSiteRepo(pool),
		Users: postgres.NewUserRepo(pool),
	}

	return store, pool.Close, nil
}
