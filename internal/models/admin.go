package models

import "time"

// Admin is a school administrator account; school-scoped records point at it.
type Admin struct {
	Base
	UserID     string    `db:"user_id" json:"user_id" validate:"required"`
	SchoolName string    `db:"school_name" json:"school_name" validate:"required"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
