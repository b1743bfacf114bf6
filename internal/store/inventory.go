package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/posiljke/internal/model"
)

const itemColumns = `id, sku, name, unit, stock_on_hand, min_threshold, active, created_at, updated_at`

// ReasonInitialStock is the ledger reason for an item's opening stock.
const ReasonInitialStock = "Initial stock"

// CreateInventoryItem creates an item. Opening stock is recorded as a movement
// in the same transaction.
func CreateInventoryItem(ctx context.Context, db *sqlx.DB, item model.InventoryItem, userID *int64) (*model.InventoryItem, error) {
	sku := strings.TrimSpace(item.SKU)
	if sku == "" || strings.TrimSpace(item.Name) == "" {
		return nil, fmt.Errorf("sku and name are required")
	}
	if item.StockOnHand < 0 {
		return nil, fmt.Errorf("stock must not be negative")
	}
	if item.Unit == "" {
		item.Unit = model.DefaultUnit
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_items (sku, name, unit, stock_on_hand, min_threshold, active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sku, strings.TrimSpace(item.Name), item.Unit, item.StockOnHand, item.MinThreshold, item.Active,
	)
	if isUniqueViolation(err, "") {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSKU, sku)
	}
	if err != nil {
		return nil, fmt.Errorf("creating inventory item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting inventory item id: %w", err)
	}

	if item.StockOnHand > 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO inventory_movements (item_id, delta, reason, user_id) VALUES (?, ?, ?, ?)`,
			id, item.StockOnHand, ReasonInitialStock, userID,
		)
		if err != nil {
			return nil, fmt.Errorf("recording initial stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing inventory item: %w", err)
	}

	return GetInventoryItem(ctx, db, id)
}

// GetInventoryItem returns an item by ID.
func GetInventoryItem(ctx context.Context, db *sqlx.DB, id int64) (*model.InventoryItem, error) {
	item := &model.InventoryItem{}
	err := db.GetContext(ctx, item, `SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting inventory item: %w", err)
	}
	return item, nil
}

// GetInventoryItemBySKU returns an item by SKU, ignoring case.
func GetInventoryItemBySKU(ctx context.Context, db *sqlx.DB, sku string) (*model.InventoryItem, error) {
	item := &model.InventoryItem{}
	err := db.GetContext(ctx, item,
		`SELECT `+itemColumns+` FROM inventory_items WHERE sku = ? COLLATE NOCASE`,
		strings.TrimSpace(sku),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting inventory item by sku: %w", err)
	}
	return item, nil
}

// ListInventoryItems returns all items, optionally only those at or below
// their low-stock threshold.
func ListInventoryItems(ctx context.Context, db *sqlx.DB, lowStockOnly bool) ([]model.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items`
	if lowStockOnly {
		query += ` WHERE active = 1 AND min_threshold > 0 AND stock_on_hand <= min_threshold`
	}
	query += ` ORDER BY name, sku`

	var items []model.InventoryItem
	if err := db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("listing inventory items: %w", err)
	}
	return items, nil
}

// ListActiveInventory returns every active item. It is the snapshot a
// package run resolves SKUs against.
func ListActiveInventory(ctx context.Context, db *sqlx.DB) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := db.SelectContext(ctx, &items,
		`SELECT `+itemColumns+` FROM inventory_items WHERE active = 1 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("loading inventory snapshot: %w", err)
	}
	return items, nil
}

// SetInventoryItemActive activates or deactivates an item.
func SetInventoryItemActive(ctx context.Context, db *sqlx.DB, id int64, active bool) error {
	_, err := db.ExecContext(ctx,
		`UPDATE inventory_items SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id,
	)
	if err != nil {
		return fmt.Errorf("updating inventory item: %w", err)
	}
	return nil
}

// DecrementStock atomically removes quantity from an item. The update only
// applies while enough stock remains, otherwise ErrInsufficientStock.
func DecrementStock(ctx context.Context, db sqlx.ExecerContext, itemID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	result, err := db.ExecContext(ctx,
		`UPDATE inventory_items
		 SET stock_on_hand = stock_on_hand - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND stock_on_hand >= ?`,
		quantity, itemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrementing stock: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrementing stock: %w", err)
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// AdjustStock applies a manual signed correction and records it as a
// movement in one transaction.
func AdjustStock(ctx context.Context, db *sqlx.DB, itemID int64, delta int, reason string, userID *int64) (*model.InventoryItem, error) {
	if delta == 0 {
		return nil, fmt.Errorf("delta must be non-zero")
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Manual adjustment"
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if delta < 0 {
		if err := DecrementStock(ctx, tx, itemID, -delta); err != nil {
			return nil, err
		}
	} else {
		result, err := tx.ExecContext(ctx,
			`UPDATE inventory_items
			 SET stock_on_hand = stock_on_hand + ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			delta, itemID,
		)
		if err != nil {
			return nil, fmt.Errorf("adjusting stock: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("inventory item %d: %w", itemID, ErrNotFound)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO inventory_movements (item_id, delta, reason, user_id) VALUES (?, ?, ?, ?)`,
		itemID, delta, reason, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("recording adjustment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing adjustment: %w", err)
	}

	return GetInventoryItem(ctx, db, itemID)
}
