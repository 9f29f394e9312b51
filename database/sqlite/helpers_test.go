package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/database/sqlite"
	"github.com/stretchr/testify/require"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// testTables returns unique table names for test isolation
func testTables(t *testing.T) itemgate.Tables {
	t.Helper()
	suffix := getRandomString(t)
	return itemgate.Tables{
		Users:       "users_" + suffix,
		Credentials: "credentials_" + suffix,
		Items:       "items_" + suffix,
	}
}

type testDB interface {
	Migrate(ctx context.Context) error
	Validate(ctx context.Context) error
	Identities() itemgate.IdentityStore
	Credentials() itemgate.CredentialRepo
	Items() itemgate.DocumentStore
	Close() error
}

// setupTestDB connects to a migrated in-memory database
func setupTestDB(t *testing.T) testDB {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:", testTables(t))
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	return db
}
