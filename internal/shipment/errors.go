package shipment

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoValidProducts is the row error for a row none of whose SKUs
	// matched inventory.
	ErrNoValidProducts = errors.New("no valid products found")
	// ErrUnauthenticated is returned when no user is attached to the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnknownProduct is returned for a product id that is missing or inactive.
	ErrUnknownProduct = errors.New("unknown product")
	// ErrInvalidQuantity is returned for a non-positive requested quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrNoItems is returned for a manual request without products.
	ErrNoItems = errors.New("no products selected")
)

// ConfigurationError aborts an import before any row is processed.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Msg }

// RowError is a failure confined to one spreadsheet row.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return e.Err.Error()
}

func (e *RowError) Unwrap() error { return e.Err }

// BatchPersistenceError means a batch's package insert failed and none of
// its rows were stored.
type BatchPersistenceError struct {
	FirstRow, LastRow int
	Size              int
	Err               error
}

func (e *BatchPersistenceError) Error() string {
	return fmt.Sprintf("batch of %d packages (rows %d-%d) not stored: %v", e.Size, e.FirstRow, e.LastRow, e.Err)
}

func (e *BatchPersistenceError) Unwrap() error { return e.Err }

// StockWarning means a line item's stock was not deducted. The package it
// belongs to was stored.
type StockWarning struct {
	PackageCode string
	Item        string
	Quantity    int
	Err         error
}

func (w *StockWarning) Error() string {
	return fmt.Sprintf("package %s: stock for %s x%d not deducted: %v", w.PackageCode, w.Item, w.Quantity, w.Err)
}

func (w *StockWarning) Unwrap() error { return w.Err }

// LedgerWriteWarning means stock was deducted but the movement entries for
// it were not recorded.
type LedgerWriteWarning struct {
	Movements int
	Err       error
}

func (w *LedgerWriteWarning) Error() string {
	return fmt.Sprintf("%d ledger entries not recorded: %v", w.Movements, w.Err)
}

func (w *LedgerWriteWarning) Unwrap() error { return w.Err }

// Shortage is one item a manual request asks more of than is in stock.
type Shortage struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name"`
	Needed    int    `json:"needed"`
	Available int    `json:"available"`
}

func (s Shortage) String() string {
	return fmt.Sprintf("%s: needed %d, available %d", s.Name, s.Needed, s.Available)
}

// InsufficientStockError rejects a manual request before anything is written.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		parts[i] = s.String()
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// StoreError wraps a data store failure that stopped an operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }
