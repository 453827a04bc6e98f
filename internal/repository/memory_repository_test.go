package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
)

func ptr[T any](v T) *T { return &v }

func seed[E any](t *testing.T, add func(context.Context, *E) error, items ...*E) {
	t.Helper()
	for _, item := range items {
		require.NoError(t, add(context.Background(), item))
	}
}

type memFixture struct {
	store       *MemoryStore
	admins      *MemoryRepository[models.Admin]
	teachers    *MemoryRepository[models.Teacher]
	students    *MemoryRepository[models.Student]
	links       *MemoryRepository[models.TeacherStudent]
	enrollments *MemoryRepository[models.Enrollment]
	assessments *MemoryRepository[models.Assessment]
}

func newMemFixture(t *testing.T) *memFixture {
	t.Helper()
	store := NewMemoryStore(NewCatalog())
	f := &memFixture{store: store}
	var err error
	f.admins, err = NewMemoryRepository[models.Admin](store, models.EntityAdmin)
	require.NoError(t, err)
	f.teachers, err = NewMemoryRepository[models.Teacher](store, models.EntityTeacher)
	require.NoError(t, err)
	f.students, err = NewMemoryRepository[models.Student](store, models.EntityStudent)
	require.NoError(t, err)
	f.links, err = NewMemoryRepository[models.TeacherStudent](store, models.EntityTeacherStudent)
	require.NoError(t, err)
	f.enrollments, err = NewMemoryRepository[models.Enrollment](store, models.EntityEnrollment)
	require.NoError(t, err)
	f.assessments, err = NewMemoryRepository[models.Assessment](store, models.EntityAssessment)
	require.NoError(t, err)

	seed(t, f.admins.Add,
		&models.Admin{UserID: "a1", SchoolName: "North"},
		&models.Admin{UserID: "a2", SchoolName: "South"},
	)
	seed(t, f.teachers.Add,
		&models.Teacher{UserID: "t1", AdminID: ptr(int64(1)), FullName: "Tess", Kind: models.TeacherKindTeacher},
		&models.Teacher{UserID: "t2", AdminID: ptr(int64(1)), FullName: "Theo", Kind: models.TeacherKindTutor},
	)
	seed(t, f.students.Add,
		&models.Student{UserID: "u1", AdminID: ptr(int64(1)), FullName: "Uma"},
		&models.Student{UserID: "u2", AdminID: ptr(int64(1)), FullName: "Ugo"},
		&models.Student{UserID: "u3", FullName: "Ula"},
	)
	seed(t, f.links.Add,
		&models.TeacherStudent{TeacherID: 1, StudentID: 1},
		&models.TeacherStudent{TeacherID: 1, StudentID: 2},
		&models.TeacherStudent{TeacherID: 2, StudentID: 3},
	)
	taken := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	seed(t, f.assessments.Add,
		&models.Assessment{StudentID: 1, SubjectID: "MATH", Title: "Fractions", Score: 80, TakenAt: taken},
		&models.Assessment{StudentID: 1, SubjectID: "ART", Title: "Colour", Score: 70, TakenAt: taken},
		&models.Assessment{StudentID: 2, SubjectID: "MATH", Title: "Fractions", Score: 90, TakenAt: taken},
		&models.Assessment{StudentID: 3, SubjectID: "MATH", Title: "Fractions", Score: 60, TakenAt: taken},
		&models.Assessment{StudentID: 2, SubjectID: "ART", Title: "Shapes", Score: 80, TakenAt: taken},
	)
	return f
}

func assessmentIDs(items []models.Assessment) []int64 {
	out := make([]int64, len(items))
	for i, a := range items {
		out[i] = a.ID
	}
	return out
}

func TestMemoryCountMatchesGetMany(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	byTeacher := query.Path("student.teacher_links.teacher", query.Eq("user_id", "t1"))

	for _, p := range []query.Predicate{
		nil,
		query.False,
		query.Eq("subject_id", "MATH"),
		byTeacher,
		query.Combine(byTeacher, query.Eq("subject_id", "MATH")),
		query.AnyOf(query.Gt("score", 85), query.Contains("title", "shape")),
	} {
		items, err := f.assessments.GetMany(ctx, p, query.Ordering{})
		require.NoError(t, err)
		n, err := f.assessments.Count(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, len(items), n, "predicate %s", query.Describe(p))
	}

	items, err := f.assessments.GetMany(ctx, query.Combine(byTeacher, query.Eq("subject_id", "MATH")), query.Ordering{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, assessmentIDs(items))
}

func TestMemoryGetPaginatedWindows(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	order := query.Ordering{Field: "score", Descending: true}

	page, err := f.assessments.GetPaginated(ctx, 1, 2, nil, order)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, assessmentIDs(page.Items))
	assert.Equal(t, 5, page.TotalRecords)
	assert.Equal(t, 3, page.TotalPages())

	page, err = f.assessments.GetPaginated(ctx, 2, 2, nil, order)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 2}, assessmentIDs(page.Items))

	page, err = f.assessments.GetPaginated(ctx, 1, 10, nil, order)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)

	page, err = f.assessments.GetPaginated(ctx, 4, 2, nil, order)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 5, page.TotalRecords)

	_, err = f.assessments.GetPaginated(ctx, 0, 2, nil, order)
	assert.ErrorIs(t, err, ErrInvalidPagination)
	_, err = f.assessments.GetPaginated(ctx, 1, 0, nil, order)
	assert.ErrorIs(t, err, ErrInvalidPagination)
}

func TestMemoryOrderingIsStable(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	order := query.Ordering{Field: "title"}

	first, err := f.assessments.GetMany(ctx, nil, order)
	require.NoError(t, err)
	second, err := f.assessments.GetMany(ctx, nil, order)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 3, 4, 5}, assessmentIDs(first))
	assert.Equal(t, assessmentIDs(first), assessmentIDs(second))
}

func TestMemoryNullLinkNeverMatches(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	inSchool := query.Through("admin", query.Eq("user_id", "a1"))
	items, err := f.students.GetMany(ctx, inSchool, query.Ordering{})
	require.NoError(t, err)
	require.Len(t, items, 2)

	orphans, err := f.students.GetMany(ctx, query.Negate(query.Through("admin", nil)), query.Ordering{})
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "u3", orphans[0].UserID)

	nulls, err := f.students.Count(ctx, query.IsNull("admin_id"))
	require.NoError(t, err)
	assert.Equal(t, 1, nulls)
}

func TestMemoryIncludes(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	items, err := f.assessments.GetMany(ctx, query.Eq("subject_id", "MATH"), query.Ordering{}, WithInclude("student"))
	require.NoError(t, err)
	for _, a := range items {
		require.NotNil(t, a.Student)
		assert.Equal(t, a.StudentID, a.Student.ID)
	}

	teacher, err := f.teachers.GetOne(ctx, query.Eq("user_id", "t1"), WithInclude("student_links"))
	require.NoError(t, err)
	assert.Len(t, teacher.Students, 2)

	student, err := f.students.GetOne(ctx, query.Eq("user_id", "u3"), WithInclude("admin"))
	require.NoError(t, err)
	assert.Nil(t, student.Admin)

	_, err = f.assessments.GetMany(ctx, nil, query.Ordering{}, WithInclude("grades"))
	assert.ErrorIs(t, err, ErrUnknownInclude)
}

func TestMemoryGetOneNotFound(t *testing.T) {
	f := newMemFixture(t)
	_, err := f.assessments.GetOne(context.Background(), query.Eq("id", 99))
	assert.ErrorIs(t, err, sql.ErrNoRows)

	items, err := f.assessments.GetMany(context.Background(), query.Eq("id", 99), query.Ordering{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryRejectsInvalidPredicates(t *testing.T) {
	f := newMemFixture(t)
	_, err := f.assessments.GetMany(context.Background(), query.Eq("password", "x"), query.Ordering{})
	assert.ErrorIs(t, err, query.ErrInvalidPredicate)
}

func TestMemoryWrites(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	a, err := f.assessments.GetOne(ctx, query.Eq("id", 2))
	require.NoError(t, err)
	a.Score = 75
	require.NoError(t, f.assessments.Update(ctx, a))

	again, err := f.assessments.GetOne(ctx, query.Eq("id", 2))
	require.NoError(t, err)
	assert.Equal(t, 75.0, again.Score)

	assert.ErrorIs(t, f.assessments.Update(ctx, &models.Assessment{Base: models.Base{ID: 99}}), sql.ErrNoRows)

	require.NoError(t, f.assessments.Delete(ctx, again))
	assert.ErrorIs(t, f.assessments.Delete(ctx, again), sql.ErrNoRows)

	removed, err := f.assessments.DeleteWhere(ctx, query.Eq("subject_id", "MATH"))
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	n, err := f.assessments.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryReturnsCopies(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	a, err := f.assessments.GetOne(ctx, query.Eq("id", 1))
	require.NoError(t, err)
	a.Title = "changed"

	fresh, err := f.assessments.GetOne(ctx, query.Eq("id", 1))
	require.NoError(t, err)
	assert.Equal(t, "Fractions", fresh.Title)

	s, err := f.students.GetOne(ctx, query.Eq("id", 1))
	require.NoError(t, err)
	*s.AdminID = 2
	inSchool, err := f.students.Count(ctx, query.Eq("admin_id", int64(1)))
	require.NoError(t, err)
	assert.Equal(t, 2, inSchool)

	added := &models.Student{UserID: "u8", AdminID: ptr(int64(1)), FullName: "Una"}
	require.NoError(t, f.students.Add(ctx, added))
	*added.AdminID = 2
	inSchool, err = f.students.Count(ctx, query.Eq("admin_id", int64(1)))
	require.NoError(t, err)
	assert.Equal(t, 3, inSchool)

	withAdmin, err := f.assessments.GetMany(ctx, query.Eq("student_id", int64(1)), query.Ordering{}, WithInclude("student"))
	require.NoError(t, err)
	require.NotEmpty(t, withAdmin)
	*withAdmin[0].Student.AdminID = 2
	inSchool, err = f.students.Count(ctx, query.Eq("admin_id", int64(1)))
	require.NoError(t, err)
	assert.Equal(t, 3, inSchool)
}

func TestMemoryScopedWrites(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	schoolOne := query.Through("student", query.Through("admin", query.Eq("user_id", "a1")))

	err := f.assessments.AddScoped(ctx, &models.Assessment{StudentID: 3, SubjectID: "MATH", Title: "Planted", Score: 1}, schoolOne)
	assert.ErrorIs(t, err, ErrOutOfScope)
	n, err := f.assessments.Count(ctx, query.Eq("student_id", int64(3)))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	own := &models.Assessment{StudentID: 2, SubjectID: "MATH", Title: "Decimals", Score: 75}
	require.NoError(t, f.assessments.AddScoped(ctx, own, schoolOne))
	assert.Equal(t, int64(6), own.ID)

	moved := &models.Assessment{Base: models.Base{ID: 1}, StudentID: 3, SubjectID: "MATH", Title: "Fractions", Score: 80}
	assert.ErrorIs(t, f.assessments.UpdateScoped(ctx, moved, schoolOne), ErrOutOfScope)
	kept, err := f.assessments.GetOne(ctx, query.Eq("id", int64(1)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), kept.StudentID)

	foreign := &models.Assessment{Base: models.Base{ID: 4}, StudentID: 1, SubjectID: "MATH", Title: "Taken", Score: 60}
	assert.ErrorIs(t, f.assessments.UpdateScoped(ctx, foreign, schoolOne), sql.ErrNoRows)

	kept.Score = 99
	require.NoError(t, f.assessments.UpdateScoped(ctx, kept, schoolOne))
	n, err = f.assessments.Count(ctx, query.Eq("student_id", int64(3)))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryAddStampsAndAssignsIdentity(t *testing.T) {
	f := newMemFixture(t)
	s := &models.Student{UserID: "u9", FullName: "New"}
	require.NoError(t, f.students.Add(context.Background(), s))
	assert.Equal(t, int64(4), s.ID)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestMemoryUniqueKeys(t *testing.T) {
	f := newMemFixture(t)
	err := f.links.Add(context.Background(), &models.TeacherStudent{TeacherID: 1, StudentID: 1})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = f.students.Add(context.Background(), &models.Student{Base: models.Base{ID: 1}, UserID: "zz", FullName: "Dup"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryConcurrentAddsKeepOneRow(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.enrollments.Add(ctx, &models.Enrollment{AdminID: 2, StudentID: 3, Status: models.EnrollmentStatusActive})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, ErrDuplicate))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	n, err := f.enrollments.Count(ctx, query.AllOf(query.Eq("admin_id", 2), query.Eq("student_id", 3)))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryHonoursCancellation(t *testing.T) {
	f := newMemFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.assessments.GetMany(ctx, nil, query.Ordering{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, f.assessments.Add(ctx, &models.Assessment{}), context.Canceled)
}
