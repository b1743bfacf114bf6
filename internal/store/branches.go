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

const branchColumns = `id, name, is_default, created_at, deleted_at`

// CreateBranch creates a destination branch. A default branch replaces the
// previous default.
func CreateBranch(ctx context.Context, db *sqlx.DB, name string, isDefault bool) (*model.Branch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("branch name is required")
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if isDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE branches SET is_default = 0 WHERE is_default = 1`); err != nil {
			return nil, fmt.Errorf("clearing default branch: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO branches (name, is_default) VALUES (?, ?)`, name, isDefault,
	)
	if isUniqueViolation(err, "") {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateBranch, name)
	}
	if err != nil {
		return nil, fmt.Errorf("creating branch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting branch id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing branch: %w", err)
	}

	return GetBranch(ctx, db, id)
}

// GetBranch returns a branch by ID.
func GetBranch(ctx context.Context, db *sqlx.DB, id int64) (*model.Branch, error) {
	return getBranch(ctx, db, `SELECT `+branchColumns+` FROM branches WHERE id = ?`, id)
}

// GetBranchByName returns an active branch by name, ignoring case.
func GetBranchByName(ctx context.Context, db *sqlx.DB, name string) (*model.Branch, error) {
	return getBranch(ctx, db,
		`SELECT `+branchColumns+` FROM branches
		 WHERE name = ? COLLATE NOCASE AND deleted_at IS NULL`,
		strings.TrimSpace(name),
	)
}

// GetDefaultBranch returns the branch marked as default, or the oldest active
// branch when none is marked.
func GetDefaultBranch(ctx context.Context, db *sqlx.DB) (*model.Branch, error) {
	return getBranch(ctx, db,
		`SELECT `+branchColumns+` FROM branches
		 WHERE deleted_at IS NULL
		 ORDER BY is_default DESC, id
		 LIMIT 1`,
	)
}

func getBranch(ctx context.Context, db *sqlx.DB, query string, args ...any) (*model.Branch, error) {
	b := &model.Branch{}
	err := db.GetContext(ctx, b, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting branch: %w", err)
	}
	return b, nil
}

// ListBranches returns all non-deleted branches.
func ListBranches(ctx context.Context, db *sqlx.DB) ([]model.Branch, error) {
	var branches []model.Branch
	err := db.SelectContext(ctx, &branches,
		`SELECT `+branchColumns+` FROM branches WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	return branches, nil
}

// SetDefaultBranch marks a branch as the default destination.
func SetDefaultBranch(ctx context.Context, db *sqlx.DB, id int64) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE branches SET is_default = 0 WHERE is_default = 1`); err != nil {
		return fmt.Errorf("clearing default branch: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE branches SET is_default = 1 WHERE id = ? AND deleted_at IS NULL`, id,
	)
	if err != nil {
		return fmt.Errorf("setting default branch: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("branch %d: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing default branch: %w", err)
	}
	return nil
}

// DeleteBranch soft-deletes a branch.
func DeleteBranch(ctx context.Context, db *sqlx.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE branches SET deleted_at = CURRENT_TIMESTAMP, is_default = 0
		 WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting branch: %w", err)
	}
	return nil
}
