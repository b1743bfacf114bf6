package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/posiljke/internal/db"
)

func TestGetJWTSecretGeneratesOnce(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := GetJWTSecret(ctx, database)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := GetJWTSecret(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSetSettingDefaultKeepsExisting(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, ok, err := GetSetting(ctx, database, "greeting")
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := SetSettingDefault(ctx, database, "greeting", "zdravo")
	require.NoError(t, err)
	assert.Equal(t, "zdravo", v)

	v, err = SetSettingDefault(ctx, database, "greeting", "hello")
	require.NoError(t, err)
	assert.Equal(t, "zdravo", v)
}
