package database

import (
	"context"
	"fmt"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/database/postgres"
	"github.com/sagarc03/itemgate/database/sqlite"
)

// Config holds the configuration for connecting to a storage backend.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn" validate:"required"`
	// AutoMigrate creates missing tables on startup
	AutoMigrate bool `mapstructure:"auto_migrate"`
	// Tables holds the table names
	Tables itemgate.Tables `mapstructure:"tables"`
}

// Database is a connected backend exposing the gateway stores.
type Database interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Validate(ctx context.Context) error
	Identities() itemgate.IdentityStore
	Credentials() itemgate.CredentialRepo
	Items() itemgate.DocumentStore
	Close() error
}

// Connect validates the table names and opens the configured backend.
// It does not migrate or validate the schema; callers decide which to run.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	if err := cfg.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	switch cfg.Type {
	case "sqlite":
		db, err := sqlite.Connect(ctx, cfg.DSN, cfg.Tables)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.DSN, cfg.Tables)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("connect: unsupported database type: %q", cfg.Type)
	}
}

// Open connects, optionally migrates, and validates the schema. On any
// failure the connection is closed.
func Open(ctx context.Context, cfg Config) (Database, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: ping: %w", cfg.Type, err)
	}

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open %s: %w", cfg.Type, err)
		}
	}

	if err := db.Validate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", cfg.Type, err)
	}

	return db, nil
}
