// Package postgres implements the site and user repositories using
// PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type tableMigration struct {
	TableName string
	Up        func(ctx context.Context, pool *pgxpool.Pool) error
	Down      func(ctx context.Context, pool *pgxpool.Pool) error
}

func getTableMigrations() []tableMigration {
	return []tableMigration{
		{TableName: "users", Up: createUsersTable, Down: dropTable("users")},
		{TableName: "sites", Up: createSitesTable, Down: dropTable("sites")},
	}
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, migration := range getTableMigrations() {
		if err := migration.Up(ctx, pool); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}
	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := getTableMigrations()
	for i := len(migrations) - 1; i >= 0; i-- {
		if err := migrations[i].Down(ctx, pool); err != nil {
			return fmt.Errorf("migrate down %s: %w", migrations[i].TableName, err)
		}
	}
	return nil
}

// ValidateSchema verifies that the expected tables exist.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, migration := range getTableMigrations() {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
			migration.TableName,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("validate schema: table %s: %w", migration.TableName, err)
		}
		if !exists {
			return fmt.Errorf("validate schema: table %s does not exist", migration.TableName)
		}
	}
	return nil
}

func createSitesTable(ctx context.Context, pool *pgxpool.Pool) error {
	createTableSQL := `
		CREATE TABLE IF NOT EXISTS sites (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			name TEXT NOT NULL,
			domain TEXT,
			description TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	// Owner index keyed (owner_id, created_at, id) so ListByOwner is an
	// index scan, not a sequential one.
	indexSQL := `CREATE INDEX IF NOT EXISTS idx_sites_owner ON sites (owner_id, created_at DESC, id DESC)`
	if _, err := pool.Exec(ctx, indexSQL); err != nil {
		return fmt.Errorf("create index owner: %w", err)
	}

	// Name index serves latest-by-name resolution.
	indexSQL = `CREATE INDEX IF NOT EXISTS idx_sites_name ON sites (name, created_at DESC, id DESC)`
	if _, err := pool.Exec(ctx, indexSQL); err != nil {
		return fmt.Errorf("create index name: %w", err)
	}

	return nil
}

func createUsersTable(ctx context.Context, pool *pgxpool.Pool) error {
	createTableSQL := `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func dropTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		_, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, tableName))
		return err
	}
}
