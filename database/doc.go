// Package database connects the gateway to its storage backends.
//
// The package supports PostgreSQL and SQLite and handles connection
// management, migrations and schema validation for the users, credentials and
// items tables.
//
// # Supported Backends
//
//   - PostgreSQL: production backend using a pgx connection pool; items are
//     stored as JSONB and merged with the jsonb || operator
//   - SQLite: single-node backend using modernc.org/sqlite; items are stored as
//     JSON text and merged inside a transaction
//
// # Usage
//
//	db, err := database.Open(ctx, database.Config{
//	    Type:        "sqlite",
//	    DSN:         "itemgate.db",
//	    AutoMigrate: true,
//	    Tables:      itemgate.DefaultTables(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	identities := db.Identities()
//	items := db.Items()
package database
