package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/sagarc03/itemgate/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestDatabase_MigrateIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	assert.NoError(t, db.Migrate(ctx))
	assert.NoError(t, db.Validate(ctx))
}

func TestValidateSchema(t *testing.T) {
	t.Run("missing tables", func(t *testing.T) {
		ctx := context.Background()
		db, err := sqlite.Connect(ctx, ":memory:", testTables(t))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		assert.ErrorContains(t, db.Validate(ctx), "does not exist")
	})

	t.Run("incomplete schema", func(t *testing.T) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "itemgate.db")
		tables := testTables(t)

		raw, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		defer func() { _ = raw.Close() }()

		require.NoError(t, sqlite.Migrate(ctx, raw, tables))
		_, err = raw.ExecContext(ctx, `DROP TABLE "`+tables.Items+`"`)
		require.NoError(t, err)
		_, err = raw.ExecContext(ctx, `CREATE TABLE "`+tables.Items+`" (id TEXT NOT NULL PRIMARY KEY, data BLOB)`)
		require.NoError(t, err)

		err = sqlite.ValidateSchema(ctx, raw, tables)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing column created_at")
		assert.Contains(t, err.Error(), "data: expected text, got blob")
	})

	t.Run("drop tables", func(t *testing.T) {
		ctx := context.Background()
		tables := testTables(t)

		raw, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "itemgate.db"))
		require.NoError(t, err)
		defer func() { _ = raw.Close() }()

		require.NoError(t, sqlite.Migrate(ctx, raw, tables))
		require.NoError(t, sqlite.ValidateSchema(ctx, raw, tables))
		require.NoError(t, sqlite.DropTables(ctx, raw, tables))
		assert.Error(t, sqlite.ValidateSchema(ctx, raw, tables))
	})
}
