package models

import "time"

// Course is a catalogue entry optionally owned by a school and taught by a teacher.
type Course struct {
	Base
	AdminID   *int64    `db:"admin_id" json:"admin_id,omitempty"`
	TeacherID *int64    `db:"teacher_id" json:"teacher_id,omitempty"`
	Code      string    `db:"code" json:"code" validate:"required"`
	Title     string    `db:"title" json:"title" validate:"required"`
	Published bool      `db:"published" json:"published"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Teacher *Teacher `db:"-" json:"teacher,omitempty" include:"teacher"`
	Admin   *Admin   `db:"-" json:"admin,omitempty" include:"admin"`
}
