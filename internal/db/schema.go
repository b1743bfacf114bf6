package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS branches (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    is_default INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_branches_name_active
    ON branches(name COLLATE NOCASE) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS inventory_items (
    id            INTEGER PRIMARY KEY,
    sku           TEXT NOT NULL,
    name          TEXT NOT NULL,
    unit          TEXT NOT NULL DEFAULT 'pcs',
    stock_on_hand INTEGER NOT NULL DEFAULT 0 CHECK (stock_on_hand >= 0),
    min_threshold INTEGER NOT NULL DEFAULT 0,
    active        INTEGER NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_items_sku
    ON inventory_items(sku COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS packages (
    id                    INTEGER PRIMARY KEY,
    temp_id               TEXT NOT NULL UNIQUE,
    short_code            TEXT NOT NULL,
    beneficiary           TEXT NOT NULL DEFAULT '',
    surname               TEXT NOT NULL DEFAULT '',
    company               TEXT NOT NULL DEFAULT '',
    address               TEXT NOT NULL DEFAULT '',
    contents_note         TEXT NOT NULL DEFAULT '',
    notes                 TEXT NOT NULL DEFAULT '',
    status                TEXT NOT NULL DEFAULT 'created' CHECK (status IN ('created', 'in_transit', 'delivered', 'cancelled')),
    current_location      TEXT NOT NULL DEFAULT 'origin',
    destination_branch_id INTEGER REFERENCES branches(id),
    created_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by            INTEGER REFERENCES users(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_packages_short_code
    ON packages(short_code);

CREATE TABLE IF NOT EXISTS inventory_movements (
    id             INTEGER PRIMARY KEY,
    item_id        INTEGER NOT NULL REFERENCES inventory_items(id),
    delta          INTEGER NOT NULL CHECK (delta <> 0),
    reason         TEXT NOT NULL,
    ref_package_id INTEGER REFERENCES packages(id),
    user_id        INTEGER REFERENCES users(id),
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_inventory_movements_item
    ON inventory_movements(item_id);

CREATE INDEX IF NOT EXISTS idx_inventory_movements_package
    ON inventory_movements(ref_package_id);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
