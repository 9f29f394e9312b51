package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/itemgate"
)

type tableMigration struct {
	tableName string
	up        func(tableName string) string
}

func getTableMigrations(tables itemgate.Tables) []tableMigration {
	return []tableMigration{
		{tableName: tables.Users, up: usersTableSQL},
		{tableName: tables.Credentials, up: credentialsTableSQL},
		{tableName: tables.Items, up: itemsTableSQL},
	}
}

// Migrate creates all tables. It is safe to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables itemgate.Tables) error {
	for _, m := range getTableMigrations(tables) {
		if _, err := pool.Exec(ctx, m.up(m.tableName)); err != nil {
			return fmt.Errorf("migrate up %s: %w", m.tableName, err)
		}
	}
	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool, tables itemgate.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		quoted := pgx.Identifier{migrations[i].tableName}.Sanitize()
		if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoted)); err != nil {
			return fmt.Errorf("migrate down %s: %w", migrations[i].tableName, err)
		}
	}

	return nil
}

func usersTableSQL(tableName string) string {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexEmail := pgx.Identifier{fmt.Sprintf("idx_%s_email_lower", tableName)}.Sanitize()

	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			uid TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (lower(email));
	`, quotedTable, indexEmail, quotedTable)
}

func credentialsTableSQL(tableName string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			uid TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, pgx.Identifier{tableName}.Sanitize())
}

func itemsTableSQL(tableName string) string {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexSeq := pgx.Identifier{fmt.Sprintf("idx_%s_seq", tableName)}.Sanitize()

	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			seq BIGINT GENERATED ALWAYS AS IDENTITY,
			data JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s ON %s (seq);
	`, quotedTable, indexSeq, quotedTable)
}
