package shipment

import (
	"strings"

	"github.com/erazemk/posiljke/internal/model"
)

// HeaderRow is the spreadsheet line number of the header. Data rows are
// numbered from HeaderRow+1.
const HeaderRow = 1

// Header keywords, matched case-insensitively as substrings.
const (
	keyBeneficiary = "beneficiary"
	keySurname     = "surname"
	keyCompany     = "company"
	keyAddress     = "address"
	keyProducts    = "product"
	keyNotes       = "note"
)

// ColumnMap holds the column index of each known field, or -1 when the
// header has no such column.
type ColumnMap struct {
	Beneficiary int
	Surname     int
	Company     int
	Address     int
	Products    int
	Notes       int
}

// ResolveColumns maps header cells to fields. The first header containing a
// keyword wins. A header without a products column is a ConfigurationError.
func ResolveColumns(header []string) (ColumnMap, error) {
	cm := ColumnMap{-1, -1, -1, -1, -1, -1}
	targets := []struct {
		key string
		idx *int
	}{
		// Surname is checked first so a "Beneficiary surname" header is
		// not taken as the beneficiary column.
		{keySurname, &cm.Surname},
		{keyBeneficiary, &cm.Beneficiary},
		{keyCompany, &cm.Company},
		{keyAddress, &cm.Address},
		{keyProducts, &cm.Products},
		{keyNotes, &cm.Notes},
	}

	claimed := make(map[int]bool)
	for _, t := range targets {
		for i, cell := range header {
			if claimed[i] {
				continue
			}
			if strings.Contains(strings.ToLower(strings.TrimSpace(cell)), t.key) {
				*t.idx = i
				claimed[i] = true
				break
			}
		}
	}

	if cm.Products < 0 {
		return cm, &ConfigurationError{Msg: "header has no products column"}
	}
	return cm, nil
}

// Normalize builds an ImportRow from one data row. It reports false when the
// row has no products and must be skipped.
func Normalize(cm ColumnMap, rowNumber int, cells []string) (model.ImportRow, bool) {
	products := cell(cells, cm.Products)
	if products == "" {
		return model.ImportRow{}, false
	}

	return model.ImportRow{
		RowNumber:       rowNumber,
		BeneficiaryName: cell(cells, cm.Beneficiary),
		Surname:         cell(cells, cm.Surname),
		Company:         cell(cells, cm.Company),
		Address:         cell(cells, cm.Address),
		Notes:           cell(cells, cm.Notes),
		RawSkuTokens:    strings.Split(products, ";"),
	}, true
}

// Recipient is the addressee part of a manual package form.
type Recipient struct {
	Beneficiary string `json:"beneficiary"`
	Surname     string `json:"surname"`
	Company     string `json:"company"`
	Address     string `json:"address"`
	Notes       string `json:"notes"`
}

// NormalizeManual builds an ImportRow from form input. Manual rows carry no
// SKU tokens; their products arrive already resolved.
func NormalizeManual(r Recipient) model.ImportRow {
	return model.ImportRow{
		BeneficiaryName: strings.TrimSpace(r.Beneficiary),
		Surname:         strings.TrimSpace(r.Surname),
		Company:         strings.TrimSpace(r.Company),
		Address:         strings.TrimSpace(r.Address),
		Notes:           strings.TrimSpace(r.Notes),
	}
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}
