package shipment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveColumns(t *testing.T) {
	cm, err := ResolveColumns([]string{"Beneficiary Name", "Company", "Delivery address", "Products (SKU)", "Notes"})
	require.NoError(t, err)

	assert.Equal(t, 0, cm.Beneficiary)
	assert.Equal(t, -1, cm.Surname)
	assert.Equal(t, 1, cm.Company)
	assert.Equal(t, 2, cm.Address)
	assert.Equal(t, 3, cm.Products)
	assert.Equal(t, 4, cm.Notes)
}

func TestResolveColumnsIsCaseInsensitiveAndFirstMatchWins(t *testing.T) {
	cm, err := ResolveColumns([]string{"PRODUCTS", "beneficiary", "Surname", "product backup"})
	require.NoError(t, err)

	assert.Equal(t, 0, cm.Products)
	assert.Equal(t, 1, cm.Beneficiary)
	assert.Equal(t, 2, cm.Surname)
}

func TestResolveColumnsMissingProducts(t *testing.T) {
	_, err := ResolveColumns([]string{"Beneficiary", "Company"})

	var ce *ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestNormalizeTrimsAndPads(t *testing.T) {
	cm, err := ResolveColumns([]string{"Beneficiary", "Company", "Address", "Products", "Notes"})
	require.NoError(t, err)

	row, ok := Normalize(cm, 2, []string{"  Jon Doe ", "", " Main St 1", " A1; A1 ;B2 "})
	require.True(t, ok)

	assert.Equal(t, 2, row.RowNumber)
	assert.Equal(t, "Jon Doe", row.BeneficiaryName)
	assert.Equal(t, "", row.Company)
	assert.Equal(t, "Main St 1", row.Address)
	assert.Equal(t, "", row.Notes)
	assert.Equal(t, "", row.Surname)
	assert.Equal(t, []string{"A1", " A1 ", "B2"}, row.RawSkuTokens)
}

func TestNormalizeSkipsEmptyProducts(t *testing.T) {
	cm, err := ResolveColumns([]string{"Beneficiary", "Products"})
	require.NoError(t, err)

	_, ok := Normalize(cm, 2, []string{"Jon", "   "})
	assert.False(t, ok)

	_, ok = Normalize(cm, 3, []string{"Jon"})
	assert.False(t, ok)

	_, ok = Normalize(cm, 4, nil)
	assert.False(t, ok)
}

func TestNormalizeManual(t *testing.T) {
	row := NormalizeManual(Recipient{Beneficiary: " Ana ", Surname: "Novak ", Notes: " fragile"})

	assert.Equal(t, "Ana", row.BeneficiaryName)
	assert.Equal(t, "Novak", row.Surname)
	assert.Equal(t, "fragile", row.Notes)
	assert.Empty(t, row.RawSkuTokens)
}
