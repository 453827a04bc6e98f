package models

import "time"

// Feature is an entry of the platform feature catalog.
type Feature struct {
	Base
	Key         string    `db:"key" json:"key" validate:"required"`
	Name        string    `db:"name" json:"name" validate:"required"`
	Description string    `db:"description" json:"description"`
	Enabled     bool      `db:"enabled" json:"enabled"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
