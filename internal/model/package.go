package model

import "time"

// Package statuses.
const (
	PackageStatusCreated   = "created"
	PackageStatusInTransit = "in_transit"
	PackageStatusDelivered = "delivered"
	PackageStatusCancelled = "cancelled"
)

// LocationOrigin is where every new package starts.
const LocationOrigin = "origin"

// Package is a persisted, trackable shipment record.
type Package struct {
	ID                  int64     `json:"id" db:"id"`
	TempID              string    `json:"temp_id" db:"temp_id"`
	ShortCode           string    `json:"short_code" db:"short_code"`
	Beneficiary         string    `json:"beneficiary" db:"beneficiary"`
	Surname             string    `json:"surname,omitempty" db:"surname"`
	Company             string    `json:"company,omitempty" db:"company"`
	Address             string    `json:"address,omitempty" db:"address"`
	ContentsNote        string    `json:"contents_note" db:"contents_note"`
	Notes               string    `json:"notes,omitempty" db:"notes"`
	Status              string    `json:"status" db:"status"`
	CurrentLocation     string    `json:"current_location" db:"current_location"`
	DestinationBranchID *int64    `json:"destination_branch_id,omitempty" db:"destination_branch_id"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	CreatedBy           *int64    `json:"created_by,omitempty" db:"created_by"`
}

// ResolvedLineItem is one inventory item and quantity a package contains.
type ResolvedLineItem struct {
	ProductID   int64  `json:"product_id"`
	DisplayName string `json:"display_name"`
	Quantity    int    `json:"quantity"`
}

// StockDelta is a signed change to one item implied by a plan.
type StockDelta struct {
	ItemID int64  `json:"item_id"`
	Delta  int    `json:"delta"`
	TempID string `json:"temp_id"`
}

// PackagePlan is a package that has been planned but not yet persisted.
type PackagePlan struct {
	TempID              string             `json:"temp_id"`
	ShortCode           string             `json:"short_code"`
	RowNumber           int                `json:"row_number,omitempty"`
	Beneficiary         string             `json:"beneficiary"`
	Surname             string             `json:"surname,omitempty"`
	Company             string             `json:"company,omitempty"`
	Address             string             `json:"address,omitempty"`
	ContentsNote        string             `json:"contents_note"`
	Notes               string             `json:"notes,omitempty"`
	LineItems           []ResolvedLineItem `json:"line_items"`
	Deltas              []StockDelta       `json:"deltas"`
	Status              string             `json:"status"`
	CurrentLocation     string             `json:"current_location"`
	DestinationBranchID *int64             `json:"destination_branch_id,omitempty"`
}

// Package returns the row persisted for the plan, without plan-local fields.
func (p *PackagePlan) Package(createdBy *int64, createdAt time.Time) Package {
	return Package{
		TempID:              p.TempID,
		ShortCode:           p.ShortCode,
		Beneficiary:         p.Beneficiary,
		Surname:             p.Surname,
		Company:             p.Company,
		Address:             p.Address,
		ContentsNote:        p.ContentsNote,
		Notes:               p.Notes,
		Status:              p.Status,
		CurrentLocation:     p.CurrentLocation,
		DestinationBranchID: p.DestinationBranchID,
		CreatedAt:           createdAt,
		CreatedBy:           createdBy,
	}
}

// ImportRow is one normalized spreadsheet line or manual form submission.
// Absent fields are empty strings.
type ImportRow struct {
	RowNumber       int
	BeneficiaryName string
	Surname         string
	Company         string
	Address         string
	Notes           string
	RawSkuTokens    []string
}
