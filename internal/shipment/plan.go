package shipment

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/posiljke/internal/model"
)

// CodeLength is the number of characters in a package short code.
const CodeLength = 8

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeGenerator returns a new short tracking code.
type CodeGenerator func() (string, error)

// IDGenerator returns a new correlation id.
type IDGenerator func() string

// GenerateShortCode returns CodeLength random characters from A-Z and 0-9.
func GenerateShortCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating short code: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// Planner turns resolved rows into package plans.
type Planner struct {
	NewCode CodeGenerator
	NewID   IDGenerator
}

// NewPlanner returns a planner using random codes and UUID correlation ids.
func NewPlanner() *Planner {
	return &Planner{NewCode: GenerateShortCode, NewID: uuid.NewString}
}

// Plan builds the package plan for a row and its resolved items.
func (p *Planner) Plan(row model.ImportRow, items []model.ResolvedLineItem, destination *int64) (*model.PackagePlan, error) {
	code, err := p.NewCode()
	if err != nil {
		return nil, err
	}

	tempID := p.NewID()
	deltas := make([]model.StockDelta, len(items))
	for i, it := range items {
		deltas[i] = model.StockDelta{ItemID: it.ProductID, Delta: -it.Quantity, TempID: tempID}
	}

	return &model.PackagePlan{
		TempID:              tempID,
		ShortCode:           code,
		RowNumber:           row.RowNumber,
		Beneficiary:         row.BeneficiaryName,
		Surname:             row.Surname,
		Company:             row.Company,
		Address:             row.Address,
		ContentsNote:        ContentsNote(row, items),
		Notes:               row.Notes,
		LineItems:           items,
		Deltas:              deltas,
		Status:              model.PackageStatusCreated,
		CurrentLocation:     model.LocationOrigin,
		DestinationBranchID: destination,
	}, nil
}

// Recode gives every plan a fresh short code.
func (p *Planner) Recode(plans []*model.PackagePlan) error {
	for _, plan := range plans {
		code, err := p.NewCode()
		if err != nil {
			return err
		}
		plan.ShortCode = code
	}
	return nil
}

// ContentsNote summarises a package as up to three lines: recipient,
// address and items. Blank lines are left out.
func ContentsNote(row model.ImportRow, items []model.ResolvedLineItem) string {
	var lines []string

	name := joinNonEmpty(" ", row.BeneficiaryName, row.Surname)
	if recipient := joinNonEmpty(" | ", name, row.Company); recipient != "" {
		lines = append(lines, recipient)
	}
	if row.Address != "" {
		lines = append(lines, row.Address)
	}

	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", it.DisplayName, it.Quantity))
	}
	if len(parts) > 0 {
		lines = append(lines, strings.Join(parts, ", "))
	}

	return strings.Join(lines, "\n")
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
