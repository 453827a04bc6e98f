package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	Base
	UserID    string    `db:"user_id" json:"user_id" validate:"required"`
	AdminID   *int64    `db:"admin_id" json:"admin_id,omitempty"`
	FullName  string    `db:"full_name" json:"full_name" validate:"required"`
	Grade     string    `db:"grade" json:"grade"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Admin *Admin `db:"-" json:"admin,omitempty" include:"admin"`
}

// ParentStudent links a parent user account to one of their children.
type ParentStudent struct {
	Base
	ParentUserID string    `db:"parent_user_id" json:"parent_user_id" validate:"required"`
	StudentID    int64     `db:"student_id" json:"student_id" validate:"required"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`

	Student *Student `db:"-" json:"student,omitempty" include:"student"`
}
