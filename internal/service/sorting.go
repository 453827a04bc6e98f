package service

import (
	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
)

// NewSortRegistry whitelists the sort names accepted by list endpoints.
// camelCase aliases mirror the JSON names older clients send.
func NewSortRegistry() *query.SortRegistry {
	return query.NewSortRegistry().
		Register(models.EntityAdmin, map[string]string{
			"id": "id", "school": "school_name", "schoolName": "school_name", "created": "created_at",
		}).
		Register(models.EntityTeacher, map[string]string{
			"id": "id", "name": "full_name", "fullName": "full_name", "kind": "kind", "created": "created_at",
		}).
		Register(models.EntityStudent, map[string]string{
			"id": "id", "name": "full_name", "fullName": "full_name", "grade": "grade", "created": "created_at",
		}).
		Register(models.EntityTeacherStudent, map[string]string{
			"id": "id", "teacher": "teacher_id", "student": "student_id",
		}).
		Register(models.EntityParentStudent, map[string]string{
			"id": "id", "parent": "parent_user_id", "student": "student_id",
		}).
		Register(models.EntityCourse, map[string]string{
			"id": "id", "code": "code", "title": "title", "created": "created_at",
		}).
		Register(models.EntityEnrollment, map[string]string{
			"id": "id", "status": "status", "enrolled": "enrolled_at", "enrolledAt": "enrolled_at",
		}).
		Register(models.EntityAssessment, map[string]string{
			"id": "id", "score": "score", "subject": "subject_id", "title": "title", "taken": "taken_at", "takenAt": "taken_at",
		}).
		Register(models.EntityGoal, map[string]string{
			"id": "id", "title": "title", "status": "status", "due": "due_date", "dueDate": "due_date",
		}).
		Register(models.EntityDiaryEntry, map[string]string{
			"id": "id", "date": "entry_date", "entryDate": "entry_date", "mood": "mood",
		}).
		Register(models.EntityReward, map[string]string{
			"id": "id", "points": "points", "title": "title", "awarded": "awarded_at", "awardedAt": "awarded_at",
		}).
		Register(models.EntityResource, map[string]string{
			"id": "id", "title": "title", "created": "created_at",
		}).
		Register(models.EntityFeature, map[string]string{
			"id": "id", "key": "key", "name": "name",
		})
}
