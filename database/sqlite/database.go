package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/itemgate"

	_ "modernc.org/sqlite" // SQLite driver
)

// database provides SQLite database operations.
type database struct {
	db     *sql.DB
	tables itemgate.Tables
}

// Connect opens a SQLite database.
// Tables should be validated before calling Connect.
//
// The pool is limited to a single connection: SQLite serialises writers
// anyway, and ":memory:" databases exist per connection.
func Connect(ctx context.Context, dsn string, tables itemgate.Tables) (*database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &database{
		db:     db,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate runs database migrations to create required tables.
func (d *database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.db, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

func (d *database) Identities() itemgate.IdentityStore {
	return &identityRepo{db: d.db, tableName: d.tables.Users}
}

func (d *database) Credentials() itemgate.CredentialRepo {
	return &credentialRepo{db: d.db, tableName: d.tables.Credentials}
}

func (d *database) Items() itemgate.DocumentStore {
	return &itemRepo{db: d.db, tableName: d.tables.Items}
}

// Close closes the database connection.
func (d *database) Close() error {
	return d.db.Close()
}
