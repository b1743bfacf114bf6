package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateIsIdempotent(t *testing.T) {
	database := NewTestDB(t)

	require.NoError(t, Migrate(database))
	require.NoError(t, Migrate(database))

	var tables []string
	err := database.Select(&tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"branches", "inventory_items", "inventory_movements", "packages",
		"revoked_tokens", "settings", "users",
	}, tables)
}

func TestStockCannotGoNegative(t *testing.T) {
	database := NewTestDB(t)

	_, err := database.Exec(`INSERT INTO inventory_items (sku, name, stock_on_hand) VALUES ('A1', 'Widget', 1)`)
	require.NoError(t, err)

	_, err = database.Exec(`UPDATE inventory_items SET stock_on_hand = stock_on_hand - 2 WHERE sku = 'A1'`)
	assert.Error(t, err, "CHECK constraint should reject negative stock")
}

func TestSkuIsUniqueIgnoringCase(t *testing.T) {
	database := NewTestDB(t)

	_, err := database.Exec(`INSERT INTO inventory_items (sku, name) VALUES ('abc', 'Widget')`)
	require.NoError(t, err)

	_, err = database.Exec(`INSERT INTO inventory_items (sku, name) VALUES ('ABC', 'Other')`)
	assert.Error(t, err)
}
