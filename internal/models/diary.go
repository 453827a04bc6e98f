package models

import "time"

// DiaryEntry is a student's journal entry with a self-reported mood.
type DiaryEntry struct {
	Base
	StudentID int64     `db:"student_id" json:"student_id" validate:"required"`
	Mood      string    `db:"mood" json:"mood"`
	Content   string    `db:"content" json:"content" validate:"required"`
	EntryDate time.Time `db:"entry_date" json:"entry_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Student *Student `db:"-" json:"student,omitempty" include:"student"`
}
