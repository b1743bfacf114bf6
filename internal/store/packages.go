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

const packageColumns = `id, temp_id, short_code, beneficiary, surname, company, address,
	contents_note, notes, status, current_location, destination_branch_id, created_at, created_by`

const insertPackagesQuery = `
INSERT INTO packages (
    temp_id, short_code, beneficiary, surname, company, address,
    contents_note, notes, status, current_location, destination_branch_id,
    created_at, created_by
) VALUES (
    :temp_id, :short_code, :beneficiary, :surname, :company, :address,
    :contents_note, :notes, :status, :current_location, :destination_branch_id,
    :created_at, :created_by
)
RETURNING id, temp_id`

// InsertedPackage pairs a store-assigned id with the correlation id the
// caller submitted.
type InsertedPackage struct {
	ID     int64  `db:"id"`
	TempID string `db:"temp_id"`
}

// maxInsertRows keeps one multi-row insert below SQLite's bound-variable
// limit (13 variables per row).
const maxInsertRows = 1000

// InsertPackages writes all packages in one transaction, using multi-row
// inserts of at most maxInsertRows rows. Either every row is stored or none
// is. Returned rows carry the submitted temp_id and are not guaranteed to be
// in submission order.
func InsertPackages(ctx context.Context, db *sqlx.DB, packages []model.Package) ([]InsertedPackage, error) {
	if len(packages) == 0 {
		return nil, nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := make([]InsertedPackage, 0, len(packages))
	for start := 0; start < len(packages); start += maxInsertRows {
		chunk := packages[start:min(start+maxInsertRows, len(packages))]
		if inserted, err = insertPackageRows(ctx, tx, chunk, inserted); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, packageInsertError(err)
	}
	return inserted, nil
}

func insertPackageRows(ctx context.Context, tx *sqlx.Tx, packages []model.Package, inserted []InsertedPackage) ([]InsertedPackage, error) {
	rows, err := sqlx.NamedQueryContext(ctx, tx, insertPackagesQuery, packages)
	if err != nil {
		return nil, packageInsertError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var ip InsertedPackage
		if err := rows.StructScan(&ip); err != nil {
			return nil, fmt.Errorf("scanning inserted package: %w", err)
		}
		inserted = append(inserted, ip)
	}
	if err := rows.Err(); err != nil {
		return nil, packageInsertError(err)
	}
	return inserted, nil
}

func packageInsertError(err error) error {
	if isUniqueViolation(err, "packages.short_code") {
		return fmt.Errorf("%w: %v", ErrDuplicateCode, err)
	}
	return fmt.Errorf("inserting packages: %w", err)
}

// GetPackage returns a package by ID.
func GetPackage(ctx context.Context, db *sqlx.DB, id int64) (*model.Package, error) {
	p := &model.Package{}
	err := db.GetContext(ctx, p, `SELECT `+packageColumns+` FROM packages WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting package: %w", err)
	}
	return p, nil
}

// GetPackageByCode returns a package by its short tracking code.
func GetPackageByCode(ctx context.Context, db *sqlx.DB, code string) (*model.Package, error) {
	p := &model.Package{}
	err := db.GetContext(ctx, p,
		`SELECT `+packageColumns+` FROM packages WHERE short_code = ?`,
		strings.ToUpper(strings.TrimSpace(code)),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting package by code: %w", err)
	}
	return p, nil
}

// ListPackages returns the newest packages first. A limit of zero or less
// returns every package.
func ListPackages(ctx context.Context, db *sqlx.DB, limit int) ([]model.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var packages []model.Package
	if err := db.SelectContext(ctx, &packages, query, args...); err != nil {
		return nil, fmt.Errorf("listing packages: %w", err)
	}
	return packages, nil
}

// CountPackages returns the number of stored packages.
func CountPackages(ctx context.Context, db *sqlx.DB) (int, error) {
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM packages`); err != nil {
		return 0, fmt.Errorf("counting packages: %w", err)
	}
	return n, nil
}
