package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/edu-admin-api/internal/models"
)

func seedRows[E any](ctx context.Context, store *MemoryStore, entity string, items ...E) error {
	repo, err := NewMemoryRepository[E](store, entity)
	if err != nil {
		return err
	}
	for i := range items {
		if err := repo.Add(ctx, &items[i]); err != nil {
			return fmt.Errorf("seed %s: %w", entity, err)
		}
	}
	return nil
}

func ref(v int64) *int64 { return &v }

// SeedDemo fills an empty store with two schools for local development:
//
//	admin-1: teacher-1, tutor-1; students student-1, student-2, student-4 (inactive)
//	admin-2: teacher-2; student student-3
//
// teacher-1 teaches student-1 and student-2, tutor-1 tutors student-2,
// teacher-2 teaches student-3 and parent-1 is the parent of student-2.
func SeedDemo(ctx context.Context, store *MemoryStore) error {
	day := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	steps := []func() error{
		func() error {
			return seedRows(ctx, store, models.EntityAdmin,
				models.Admin{UserID: "admin-1", SchoolName: "North Ridge School"},
				models.Admin{UserID: "admin-2", SchoolName: "South Bay School"},
			)
		},
		func() error {
			return seedRows(ctx, store, models.EntityTeacher,
				models.Teacher{UserID: "teacher-1", AdminID: ref(1), FullName: "Tess Ng", Kind: models.TeacherKindTeacher},
				models.Teacher{UserID: "teacher-2", AdminID: ref(2), FullName: "Theo Park", Kind: models.TeacherKindTeacher},
				models.Teacher{UserID: "tutor-1", AdminID: ref(1), FullName: "Tara Diaz", Kind: models.TeacherKindTutor},
			)
		},
		func() error {
			return seedRows(ctx, store, models.EntityStudent,
				models.Student{UserID: "student-1", AdminID: ref(1), FullName: "Uma Reyes", Grade: "7", Active: true},
				models.Student{UserID: "student-2", AdminID: ref(1), FullName: "Ugo Brandt", Grade: "7", Active: true},
				models.Student{UserID: "student-3", AdminID: ref(2), FullName: "Ula Moss", Grade: "8", Active: true},
				models.Student{UserID: "student-4", AdminID: ref(1), FullName: "Uri Lane", Grade: "8", Active: false},
			)
		},
		func() error {
			return seedRows(ctx, store, models.EntityTeacherStudent,
				models.TeacherStudent{TeacherID: 1, StudentID: 1},
				models.TeacherStudent{TeacherID: 1, StudentID: 2},
				models.TeacherStudent{TeacherID: 2, StudentID: 3},
				models.TeacherStudent{TeacherID: 3, StudentID: 2},
			)
		},
		func() error {
			return seedRows(ctx, store, models.EntityParentStudent,
				models.ParentStudent{ParentUserID: "parent-1", StudentID: 2},
			)
		},
		func() error {
			return seedRows(ctx, store, models.EntityCourse,
				models.Course{AdminID: ref(1), TeacherID: ref(1), Code: "MATH-7", Title: "Mathematics 7", Published: true},
				models.Course{AdminID: ref(1), TeacherID: ref(1), Code: "ART-7", Title: "Visual Arts 7", Published: false},
				models.Course{AdminID: ref(2), TeacherID: ref(2), Code: "MATH-8", Title: "Mathematics 8", Published: true},
			)
		},
		func() error {
			return seedRows(ctx, store, models.EntityAssessment,
				models.Assessment{StudentID: 1, SubjectID: "MATH", Title: "Fractions", Score: 70, TakenAt: day},
				models.Assessment{StudentID: 1, SubjectID: "ART", Title: "Colour theory", Score: 90, TakenAt: day.AddDate(0, 0, 1)},
				models.Assessment{StudentID: 2, SubjectID: "MATH", Title: "Fractions", Score: 85, TakenAt: day},
				models.Assessment{StudentID: 3, SubjectID: "MATH", Title: "Algebra", Score: 95, TakenAt: day.AddDate(0, 0, 2)},
				models.Assessment{StudentID: 2, SubjectID: "MATH", Title: "Decimals", Score: 60, TakenAt: day.AddDate(0, 0, 7)},
			)
		},
		func() error {
			due := day.AddDate(0, 1, 0)
			return seedRows(ctx, store, models.EntityGoal,
				models.Goal{StudentID: 1, Title: "Read two books", Status: models.GoalStatusOpen, DueDate: &due},
				models.Goal{StudentID: 2, Title: "Times tables", Status: models.GoalStatusAchieved},
			)
		},
		func() error {
			return seedRows(ctx, store, models.EntityDiaryEntry,
				models.DiaryEntry{StudentID: 1, Mood: "happy", Content: "Finished the fractions quiz.", EntryDate: day},
				models.DiaryEntry{StudentID: 2, Mood: "tired", Content: "Long day of practice.", EntryDate: day},
			)
		},
		func() error {
			return seedRows(ctx, store, models.EntityReward,
				models.Reward{StudentID: 1, Title: "Reading star", Points: 10, AwardedAt: day},
				models.Reward{StudentID: 3, Title: "Algebra ace", Points: 25, AwardedAt: day},
			)
		},
		func() error {
			return seedRows(ctx, store, models.EntityResource,
				models.Resource{AdminID: ref(1), Title: "Fraction worksheets", URL: "https://example.org/fractions", Approved: true},
				models.Resource{AdminID: ref(2), Title: "Draft algebra notes", URL: "https://example.org/algebra", Approved: false},
			)
		},
		func() error {
			return seedRows(ctx, store, models.EntityFeature,
				models.Feature{Key: "diary", Name: "Diary", Description: "Daily student journal", Enabled: true},
				models.Feature{Key: "goals", Name: "Goals", Description: "Personal learning goals", Enabled: true},
				models.Feature{Key: "rewards", Name: "Rewards", Description: "Points and badges", Enabled: false},
			)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
