package models

// Entity names used by the catalog, the visibility policies and the sort registry.
const (
	EntityAdmin          = "admin"
	EntityTeacher        = "teacher"
	EntityStudent        = "student"
	EntityTeacherStudent = "teacher_student"
	EntityParentStudent  = "parent_student"
	EntityCourse         = "course"
	EntityEnrollment     = "enrollment"
	EntityAssessment     = "assessment"
	EntityGoal           = "goal"
	EntityDiaryEntry     = "diary_entry"
	EntityReward         = "reward"
	EntityResource       = "resource"
	EntityFeature        = "feature"
)

// Base carries the numeric identity shared by every persisted entity.
type Base struct {
	ID int64 `db:"id" json:"id"`
}

// GetID returns the entity identity.
func (b Base) GetID() int64 { return b.ID }

// SetID assigns the entity identity.
func (b *Base) SetID(id int64) { b.ID = id }

// Record is implemented by pointers to persisted entities.
type Record[E any] interface {
	*E
	GetID() int64
	SetID(id int64)
}
