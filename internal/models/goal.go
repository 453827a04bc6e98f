package models

import "time"

// GoalStatus tracks the progress of a learning goal.
type GoalStatus string

const (
	GoalStatusOpen     GoalStatus = "OPEN"
	GoalStatusAchieved GoalStatus = "ACHIEVED"
	GoalStatusDropped  GoalStatus = "DROPPED"
)

// Goal is a learning objective set for a student.
type Goal struct {
	Base
	StudentID int64      `db:"student_id" json:"student_id" validate:"required"`
	Title     string     `db:"title" json:"title" validate:"required"`
	Status    GoalStatus `db:"status" json:"status" validate:"required,oneof=OPEN ACHIEVED DROPPED"`
	DueDate   *time.Time `db:"due_date" json:"due_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`

	Student *Student `db:"-" json:"student,omitempty" include:"student"`
}
