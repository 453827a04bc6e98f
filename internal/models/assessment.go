package models

import "time"

// Assessment records a scored evaluation of a student in a subject.
type Assessment struct {
	Base
	StudentID int64     `db:"student_id" json:"student_id" validate:"required"`
	SubjectID string    `db:"subject_id" json:"subject_id" validate:"required"`
	Title     string    `db:"title" json:"title" validate:"required"`
	Score     float64   `db:"score" json:"score" validate:"gte=0,lte=100"`
	TakenAt   time.Time `db:"taken_at" json:"taken_at"`

	Student *Student `db:"-" json:"student,omitempty" include:"student"`
}
