// Package sqlite implements the site and user repositories using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

type tableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
}

func getTableMigrations() []tableMigration {
	return []tableMigration{
		{TableName: "users", Up: createUsersTable, Down: dropTable("users")},
		{TableName: "sites", Up: createSitesTable, Down: dropTable("sites")},
	}
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for _, migration := range getTableMigrations() {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}
	return nil
}

func DropTables(ctx context.Context, db *sql.DB) error {
	migrations := getTableMigrations()
	for i := len(migrations) - 1; i >= 0; i-- {
		if err := migrations[i].Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migrations[i].TableName, err)
		}
	}
	return nil
}

// ValidateSchema verifies that the expected tables exist.
func ValidateSchema(ctx context.Context, db *sql.DB) error {
	for _, migration := range getTableMigrations() {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`,
			migration.TableName,
		).Scan(&name)
		if err != nil {
			return fmt.Errorf("validate schema: table %s: %w", migration.TableName, err)
		}
	}
	return nil
}

func createSitesTable(ctx context.Context, db *sql.DB) error {
	createTableSQL := `
		CREATE TABLE IF NOT EXISTS sites (
			id TEXT NOT NULL PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			domain TEXT,
			description TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	// Owner index keyed (owner_id, created_at, id) so a prefix scan yields an
	// owner's sites in creation order without a full table scan.
	indexSQL := `CREATE INDEX IF NOT EXISTS idx_sites_owner ON sites (owner_id, created_at, id)`
	if _, err := db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("create index owner: %w", err)
	}

	// Name index serves latest-by-name resolution.
	indexSQL = `CREATE INDEX IF NOT EXISTS idx_sites_name ON sites (name, created_at, id)`
	if _, err := db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("create index name: %w", err)
	}

	return nil
}

func createUsersTable(ctx context.Context, db *sql.DB) error {
	createTableSQL := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT NOT NULL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, tableName))
		return err
	}
}
