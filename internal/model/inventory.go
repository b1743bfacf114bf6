package model

import (
	"strings"
	"time"
)

// InventoryItem is a stocked product that packages draw from.
type InventoryItem struct {
	ID           int64     `json:"id" db:"id"`
	SKU          string    `json:"sku" db:"sku"`
	Name         string    `json:"name" db:"name"`
	Unit         string    `json:"unit" db:"unit"`
	StockOnHand  int       `json:"stock_on_hand" db:"stock_on_hand"`
	MinThreshold int       `json:"min_threshold" db:"min_threshold"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultUnit is used when an item is created without a unit.
const DefaultUnit = "pcs"

// LowStock reports whether the item is at or below its advisory threshold.
func (i *InventoryItem) LowStock() bool {
	return i.MinThreshold > 0 && i.StockOnHand <= i.MinThreshold
}

// NormalizeSKU returns the key SKUs are compared by.
func NormalizeSKU(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}

// Movement is an immutable ledger entry for a signed stock change.
type Movement struct {
	ID           int64     `json:"id" db:"id"`
	ItemID       int64     `json:"item_id" db:"item_id"`
	Delta        int       `json:"delta" db:"delta"`
	Reason       string    `json:"reason" db:"reason"`
	RefPackageID *int64    `json:"ref_package_id,omitempty" db:"ref_package_id"`
	UserID       *int64    `json:"user_id,omitempty" db:"user_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// Joined fields (not always populated).
	ItemSKU     string `json:"item_sku,omitempty" db:"item_sku"`
	PackageCode string `json:"package_code,omitempty" db:"package_code"`
}
