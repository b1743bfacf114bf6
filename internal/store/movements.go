package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/posiljke/internal/model"
)

const insertMovementsQuery = `
INSERT INTO inventory_movements (item_id, delta, reason, ref_package_id, user_id, created_at)
VALUES (:item_id, :delta, :reason, :ref_package_id, :user_id, :created_at)`

// InsertMovements writes ledger entries in a single multi-row insert.
func InsertMovements(ctx context.Context, db *sqlx.DB, movements []model.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	if _, err := db.NamedExecContext(ctx, insertMovementsQuery, movements); err != nil {
		return fmt.Errorf("inserting movements: %w", err)
	}
	return nil
}

// ListMovements returns ledger entries, optionally filtered by item or package.
func ListMovements(ctx context.Context, db *sqlx.DB, itemID, packageID int64) ([]model.Movement, error) {
	query := `SELECT m.id, m.item_id, m.delta, m.reason, m.ref_package_id, m.user_id, m.created_at,
	                 i.sku AS item_sku, COALESCE(p.short_code, '') AS package_code
	          FROM inventory_movements m
	          JOIN inventory_items i ON i.id = m.item_id
	          LEFT JOIN packages p ON p.id = m.ref_package_id
	          WHERE 1=1`
	var args []any

	if itemID > 0 {
		query += ` AND m.item_id = ?`
		args = append(args, itemID)
	}
	if packageID > 0 {
		query += ` AND m.ref_package_id = ?`
		args = append(args, packageID)
	}

	query += ` ORDER BY m.id DESC`

	var movements []model.Movement
	if err := db.SelectContext(ctx, &movements, query, args...); err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	return movements, nil
}

// SumMovements returns the net ledger change recorded for an item.
func SumMovements(ctx context.Context, db *sqlx.DB, itemID int64) (int, error) {
	var sum int
	err := db.GetContext(ctx, &sum,
		`SELECT COALESCE(SUM(delta), 0) FROM inventory_movements WHERE item_id = ?`, itemID,
	)
	if err != nil {
		return 0, fmt.Errorf("summing movements: %w", err)
	}
	return sum, nil
}
