package db

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// NewTestDB returns a migrated in-memory database that is closed when the
// test ends.
func NewTestDB(t testing.TB) *sqlx.DB {
	t.Helper()

	database, err := Open(":memory:")
	require.NoError(t, err, "opening test database")
	t.Cleanup(func() { database.Close() })

	require.NoError(t, Migrate(database), "migrating test database")
	return database
}
