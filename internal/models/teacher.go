package models

import "time"

// TeacherKind distinguishes classroom teachers from tutors sharing the same roster.
type TeacherKind string

const (
	TeacherKindTeacher TeacherKind = "TEACHER"
	TeacherKindTutor   TeacherKind = "TUTOR"
)

// Teacher represents an instructor or tutor record.
type Teacher struct {
	Base
	UserID    string      `db:"user_id" json:"user_id" validate:"required"`
	AdminID   *int64      `db:"admin_id" json:"admin_id,omitempty"`
	FullName  string      `db:"full_name" json:"full_name" validate:"required"`
	Kind      TeacherKind `db:"kind" json:"kind" validate:"required,oneof=TEACHER TUTOR"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`

	Students []TeacherStudent `db:"-" json:"students,omitempty" include:"student_links"`
}

// TeacherStudent assigns a student to a teacher or tutor.
type TeacherStudent struct {
	Base
	TeacherID int64     `db:"teacher_id" json:"teacher_id" validate:"required"`
	StudentID int64     `db:"student_id" json:"student_id" validate:"required"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Teacher *Teacher `db:"-" json:"teacher,omitempty" include:"teacher"`
	Student *Student `db:"-" json:"student,omitempty" include:"student"`
}
