package models

import "time"

// Reward grants points to a student.
type Reward struct {
	Base
	StudentID int64     `db:"student_id" json:"student_id" validate:"required"`
	Title     string    `db:"title" json:"title" validate:"required"`
	Points    int       `db:"points" json:"points" validate:"gte=0"`
	AwardedAt time.Time `db:"awarded_at" json:"awarded_at"`

	Student *Student `db:"-" json:"student,omitempty" include:"student"`
}
