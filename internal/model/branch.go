package model

import "time"

// Branch is a destination that packages are shipped to.
type Branch struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	IsDefault bool       `json:"is_default" db:"is_default"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}
