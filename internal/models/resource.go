package models

import "time"

// Resource is a shared learning material, visible publicly once approved.
type Resource struct {
	Base
	AdminID   *int64    `db:"admin_id" json:"admin_id,omitempty"`
	Title     string    `db:"title" json:"title" validate:"required"`
	URL       string    `db:"url" json:"url" validate:"required,url"`
	Approved  bool      `db:"approved" json:"approved"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
