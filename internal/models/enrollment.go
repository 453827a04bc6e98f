package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusWithdrawn EnrollmentStatus = "WITHDRAWN"
)

// Enrollment registers a student with a school administrator.
type Enrollment struct {
	Base
	AdminID     int64            `db:"admin_id" json:"admin_id" validate:"required"`
	StudentID   int64            `db:"student_id" json:"student_id" validate:"required"`
	Status      EnrollmentStatus `db:"status" json:"status" validate:"required,oneof=ACTIVE WITHDRAWN"`
	EnrolledAt  time.Time        `db:"enrolled_at" json:"enrolled_at"`
	WithdrawnAt *time.Time       `db:"withdrawn_at" json:"withdrawn_at,omitempty"`

	Admin   *Admin   `db:"-" json:"admin,omitempty" include:"admin"`
	Student *Student `db:"-" json:"student,omitempty" include:"student"`
}
