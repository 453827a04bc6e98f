package repository

import (
	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
)

func toStudent(name string) query.Relation {
	return query.Relation{Name: name, LocalColumn: "student_id", Target: models.EntityStudent, TargetColumn: "id"}
}

func toAdmin() query.Relation {
	return query.Relation{Name: "admin", LocalColumn: "admin_id", Target: models.EntityAdmin, TargetColumn: "id"}
}

// NewCatalog describes the tables backing every entity of the API.
func NewCatalog() *query.Catalog {
	return query.MustCatalog(
		query.Schema{
			Entity: models.EntityAdmin, Table: "admins", Identity: "id",
			Columns: []string{"id", "user_id", "school_name", "created_at"},
			Text:    []string{"user_id", "school_name"},
			Unique:  [][]string{{"user_id"}},
		},
		query.Schema{
			Entity: models.EntityTeacher, Table: "teachers", Identity: "id",
			Columns: []string{"id", "user_id", "admin_id", "full_name", "kind", "created_at"},
			Text:    []string{"user_id", "full_name", "kind"},
			Relations: []query.Relation{
				toAdmin(),
				{Name: "student_links", LocalColumn: "id", Target: models.EntityTeacherStudent, TargetColumn: "teacher_id", Many: true},
			},
			Unique: [][]string{{"user_id"}},
		},
		query.Schema{
			Entity: models.EntityStudent, Table: "students", Identity: "id",
			Columns: []string{"id", "user_id", "admin_id", "full_name", "grade", "active", "created_at"},
			Text:    []string{"user_id", "full_name", "grade"},
			Relations: []query.Relation{
				toAdmin(),
				{Name: "teacher_links", LocalColumn: "id", Target: models.EntityTeacherStudent, TargetColumn: "student_id", Many: true},
				{Name: "parent_links", LocalColumn: "id", Target: models.EntityParentStudent, TargetColumn: "student_id", Many: true},
			},
			Unique: [][]string{{"user_id"}},
		},
		query.Schema{
			Entity: models.EntityTeacherStudent, Table: "teacher_students", Identity: "id",
			Columns: []string{"id", "teacher_id", "student_id", "created_at"},
			Relations: []query.Relation{
				{Name: "teacher", LocalColumn: "teacher_id", Target: models.EntityTeacher, TargetColumn: "id"},
				toStudent("student"),
			},
			Unique: [][]string{{"teacher_id", "student_id"}},
		},
		query.Schema{
			Entity: models.EntityParentStudent, Table: "parent_students", Identity: "id",
			Columns:   []string{"id", "parent_user_id", "student_id", "created_at"},
			Text:      []string{"parent_user_id"},
			Relations: []query.Relation{toStudent("student")},
			Unique:    [][]string{{"parent_user_id", "student_id"}},
		},
		query.Schema{
			Entity: models.EntityCourse, Table: "courses", Identity: "id",
			Columns: []string{"id", "admin_id", "teacher_id", "code", "title", "published", "created_at"},
			Text:    []string{"code", "title"},
			Relations: []query.Relation{
				toAdmin(),
				{Name: "teacher", LocalColumn: "teacher_id", Target: models.EntityTeacher, TargetColumn: "id"},
			},
			Unique: [][]string{{"code"}},
		},
		query.Schema{
			Entity: models.EntityEnrollment, Table: "enrollments", Identity: "id",
			Columns:   []string{"id", "admin_id", "student_id", "status", "enrolled_at", "withdrawn_at"},
			Text:      []string{"status"},
			Relations: []query.Relation{toAdmin(), toStudent("student")},
			Unique:    [][]string{{"admin_id", "student_id"}},
		},
		query.Schema{
			Entity: models.EntityAssessment, Table: "assessments", Identity: "id",
			Columns:   []string{"id", "student_id", "subject_id", "title", "score", "taken_at"},
			Text:      []string{"subject_id", "title"},
			Relations: []query.Relation{toStudent("student")},
		},
		query.Schema{
			Entity: models.EntityGoal, Table: "goals", Identity: "id",
			Columns:   []string{"id", "student_id", "title", "status", "due_date", "created_at"},
			Text:      []string{"title", "status"},
			Relations: []query.Relation{toStudent("student")},
		},
		query.Schema{
			Entity: models.EntityDiaryEntry, Table: "diary_entries", Identity: "id",
			Columns:   []string{"id", "student_id", "mood", "content", "entry_date", "created_at"},
			Text:      []string{"mood", "content"},
			Relations: []query.Relation{toStudent("student")},
			Unique:    [][]string{{"student_id", "entry_date"}},
		},
		query.Schema{
			Entity: models.EntityReward, Table: "rewards", Identity: "id",
			Columns:   []string{"id", "student_id", "title", "points", "awarded_at"},
			Text:      []string{"title"},
			Relations: []query.Relation{toStudent("student")},
		},
		query.Schema{
			Entity: models.EntityResource, Table: "resources", Identity: "id",
			Columns:   []string{"id", "admin_id", "title", "url", "approved", "created_at"},
			Text:      []string{"title", "url"},
			Relations: []query.Relation{toAdmin()},
		},
		query.Schema{
			Entity: models.EntityFeature, Table: "features", Identity: "id",
			Columns: []string{"id", "key", "name", "description", "enabled", "created_at"},
			Text:    []string{"key", "name", "description"},
			Unique:  [][]string{{"key"}},
		},
	)
}
