package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/posiljke/internal/db"
)

func TestCreateBranchReplacesDefault(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := CreateBranch(ctx, database, "Ljubljana", true)
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := CreateBranch(ctx, database, "Maribor", true)
	require.NoError(t, err)

	def, err := GetDefaultBranch(ctx, database)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, second.ID, def.ID)

	reloaded, err := GetBranch(ctx, database, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)
}

func TestGetDefaultBranchFallsBackToOldest(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	none, err := GetDefaultBranch(ctx, database)
	require.NoError(t, err)
	assert.Nil(t, none)

	first, err := CreateBranch(ctx, database, "Koper", false)
	require.NoError(t, err)
	_, err = CreateBranch(ctx, database, "Celje", false)
	require.NoError(t, err)

	def, err := GetDefaultBranch(ctx, database)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, first.ID, def.ID)
}

func TestBranchNamesAreUnique(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateBranch(ctx, database, "Kranj", false)
	require.NoError(t, err)

	_, err = CreateBranch(ctx, database, "kranj", false)
	assert.Error(t, err)

	_, err = CreateBranch(ctx, database, "  ", false)
	assert.Error(t, err)

	got, err := GetBranchByName(ctx, database, "KRANJ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Kranj", got.Name)
}

func TestSetDefaultAndDeleteBranch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a, err := CreateBranch(ctx, database, "A", true)
	require.NoError(t, err)
	b, err := CreateBranch(ctx, database, "B", false)
	require.NoError(t, err)

	require.NoError(t, SetDefaultBranch(ctx, database, b.ID))
	def, err := GetDefaultBranch(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, b.ID, def.ID)

	require.NoError(t, DeleteBranch(ctx, database, b.ID))
	branches, err := ListBranches(ctx, database)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, a.ID, branches[0].ID)

	assert.Error(t, SetDefaultBranch(ctx, database, b.ID))
}
