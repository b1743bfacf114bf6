package store

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrInsufficientStock is returned when a conditional decrement would
	// take an item below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicateCode is returned when a package short code already exists.
	ErrDuplicateCode = errors.New("duplicate package short code")
	// ErrDuplicateSKU is returned when an item SKU already exists.
	ErrDuplicateSKU = errors.New("sku already exists")
	// ErrDuplicateBranch is returned when a branch name is already taken.
	ErrDuplicateBranch = errors.New("branch already exists")
	// ErrDuplicateUser is returned when a username is already taken.
	ErrDuplicateUser = errors.New("username already exists")
	// ErrNotFound is returned by updates that matched no row.
	ErrNotFound = errors.New("not found")
)

// isUniqueViolation reports whether err is a UNIQUE constraint failure. When
// column is non-empty the failing column must match too.
func isUniqueViolation(err error, column string) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return false
	}
	return column == "" || strings.Contains(se.Error(), column)
}
