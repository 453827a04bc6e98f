package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-admin-api/internal/access"
	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
	"github.com/noah-isme/edu-admin-api/internal/repository"
	appErrors "github.com/noah-isme/edu-admin-api/pkg/errors"
)

var (
	superUser = access.Identity{UserID: "root", Role: models.RoleSuperUser}
	adminOne  = access.Identity{UserID: "a1", Role: models.RoleAdmin}
	teacherT1 = access.Identity{UserID: "t1", Role: models.RoleTeacher}
	parentP1  = access.Identity{UserID: "p1", Role: models.RoleParent}
	studentU1 = access.Identity{UserID: "u1", Role: models.RoleStudent}
)

type school struct {
	store       *repository.MemoryStore
	deps        EntityDeps
	admins      *repository.MemoryRepository[models.Admin]
	students    *repository.MemoryRepository[models.Student]
	assessments *repository.MemoryRepository[models.Assessment]
	enrollments *repository.MemoryRepository[models.Enrollment]
	features    *repository.MemoryRepository[models.Feature]
}

func mustRepo[E any](t *testing.T, store *repository.MemoryStore, entity string) *repository.MemoryRepository[E] {
	t.Helper()
	repo, err := repository.NewMemoryRepository[E](store, entity)
	require.NoError(t, err)
	return repo
}

func int64Ptr(v int64) *int64 { return &v }

// newSchool seeds two schools:
//
//	admin 1 (a1): teacher t1; students u1, u2, u4 (inactive)
//	admin 2 (a2): teacher t2; student u3
//
// t1 teaches u1 and u2, t2 teaches u3, p1 is the parent of u2.
func newSchool(t *testing.T) *school {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore(repository.NewCatalog())
	s := &school{
		store:       store,
		deps:        EntityDeps{Resolver: access.NewDefaultResolver(), Sorts: NewSortRegistry(), Metrics: NewMetricsService(), MaxPageSize: 50},
		admins:      mustRepo[models.Admin](t, store, models.EntityAdmin),
		students:    mustRepo[models.Student](t, store, models.EntityStudent),
		assessments: mustRepo[models.Assessment](t, store, models.EntityAssessment),
		enrollments: mustRepo[models.Enrollment](t, store, models.EntityEnrollment),
		features:    mustRepo[models.Feature](t, store, models.EntityFeature),
	}
	teachers := mustRepo[models.Teacher](t, store, models.EntityTeacher)
	links := mustRepo[models.TeacherStudent](t, store, models.EntityTeacherStudent)
	parents := mustRepo[models.ParentStudent](t, store, models.EntityParentStudent)

	require.NoError(t, s.admins.Add(ctx, &models.Admin{UserID: "a1", SchoolName: "North"}))
	require.NoError(t, s.admins.Add(ctx, &models.Admin{UserID: "a2", SchoolName: "South"}))
	require.NoError(t, teachers.Add(ctx, &models.Teacher{UserID: "t1", AdminID: int64Ptr(1), FullName: "Tess", Kind: models.TeacherKindTeacher}))
	require.NoError(t, teachers.Add(ctx, &models.Teacher{UserID: "t2", AdminID: int64Ptr(2), FullName: "Theo", Kind: models.TeacherKindTeacher}))
	require.NoError(t, s.students.Add(ctx, &models.Student{UserID: "u1", AdminID: int64Ptr(1), FullName: "Uma", Active: true}))
	require.NoError(t, s.students.Add(ctx, &models.Student{UserID: "u2", AdminID: int64Ptr(1), FullName: "Ugo", Active: true}))
	require.NoError(t, s.students.Add(ctx, &models.Student{UserID: "u3", AdminID: int64Ptr(2), FullName: "Ula", Active: true}))
	require.NoError(t, s.students.Add(ctx, &models.Student{UserID: "u4", AdminID: int64Ptr(1), FullName: "Uri", Active: false}))
	require.NoError(t, links.Add(ctx, &models.TeacherStudent{TeacherID: 1, StudentID: 1}))
	require.NoError(t, links.Add(ctx, &models.TeacherStudent{TeacherID: 1, StudentID: 2}))
	require.NoError(t, links.Add(ctx, &models.TeacherStudent{TeacherID: 2, StudentID: 3}))
	require.NoError(t, parents.Add(ctx, &models.ParentStudent{ParentUserID: "p1", StudentID: 2}))

	for _, a := range []models.Assessment{
		{StudentID: 1, SubjectID: "MATH", Title: "Fractions", Score: 70},
		{StudentID: 1, SubjectID: "ART", Title: "Colour", Score: 90},
		{StudentID: 2, SubjectID: "MATH", Title: "Fractions", Score: 85},
		{StudentID: 3, SubjectID: "MATH", Title: "Algebra", Score: 95},
		{StudentID: 2, SubjectID: "MATH", Title: "Decimals", Score: 60},
	} {
		a := a
		require.NoError(t, s.assessments.Add(ctx, &a))
	}
	require.NoError(t, s.features.Add(ctx, &models.Feature{Key: "diary", Name: "Diary", Enabled: true}))
	require.NoError(t, s.features.Add(ctx, &models.Feature{Key: "rewards", Name: "Rewards", Enabled: false}))
	return s
}

func (s *school) assessmentService() *EntityService[models.Assessment, *models.Assessment] {
	return NewEntityService[models.Assessment, *models.Assessment](models.EntityAssessment, s.assessments, s.deps)
}

func ids(items []models.Assessment) []int64 {
	out := []int64{}
	for _, a := range items {
		out = append(out, a.ID)
	}
	return out
}

func TestStudentListsOnlyOwnAssessments(t *testing.T) {
	svc := newSchool(t).assessmentService()

	page, err := svc.List(context.Background(), studentU1, ListRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(page.Items))
	assert.Equal(t, 2, page.TotalRecords)
	assert.Equal(t, 1, page.TotalPages())
}

func TestTeacherListsAssignedStudentsBySubject(t *testing.T) {
	svc := newSchool(t).assessmentService()
	req := ListRequest{
		Filter:   AssessmentFilter{SubjectID: "MATH"}.Predicate(),
		SortBy:   "Score",
		Desc:     true,
		Page:     1,
		PageSize: 2,
	}

	page, err := svc.List(context.Background(), teacherT1, req)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids(page.Items))
	assert.Equal(t, 3, page.TotalRecords)
	assert.Equal(t, 2, page.TotalPages())

	req.Page = 2
	page, err = svc.List(context.Background(), teacherT1, req)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids(page.Items))

	req.Page = 3
	page, err = svc.List(context.Background(), teacherT1, req)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 3, page.TotalRecords)
}

func TestScopesPerRole(t *testing.T) {
	svc := newSchool(t).assessmentService()
	ctx := context.Background()

	cases := []struct {
		name   string
		caller access.Identity
		want   []int64
	}{
		{"superuser", superUser, []int64{1, 2, 3, 4, 5}},
		{"admin", adminOne, []int64{1, 2, 3, 5}},
		{"parent", parentP1, []int64{3, 5}},
		{"anonymous", access.Anonymous(), []int64{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, err := svc.All(ctx, tc.caller, nil, "", false)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(items))
			n, err := svc.Count(ctx, tc.caller, nil)
			require.NoError(t, err)
			assert.Equal(t, len(tc.want), n)
		})
	}
}

func TestUnknownSortFallsBackToIdentity(t *testing.T) {
	svc := newSchool(t).assessmentService()
	ctx := context.Background()

	unknown, err := svc.List(ctx, superUser, ListRequest{SortBy: "password", Page: 1, PageSize: 10})
	require.NoError(t, err)
	byIdentity, err := svc.List(ctx, superUser, ListRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, ids(byIdentity.Items), ids(unknown.Items))
}

func TestListRejectsInvalidRequests(t *testing.T) {
	svc := newSchool(t).assessmentService()
	ctx := context.Background()

	cases := []struct {
		name string
		req  ListRequest
	}{
		{"zero page", ListRequest{Page: 0, PageSize: 10}},
		{"zero size", ListRequest{Page: 1, PageSize: 0}},
		{"size over limit", ListRequest{Page: 1, PageSize: 51}},
		{"unknown filter field", ListRequest{Page: 1, PageSize: 10, Filter: query.Eq("password", "x")}},
		{"unknown include", ListRequest{Page: 1, PageSize: 10, Include: []string{"teacher"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.List(ctx, superUser, tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrInvalidArgument), err.Error())
		})
	}
}

func TestGetHidesRowsOutsideScope(t *testing.T) {
	svc := newSchool(t).assessmentService()
	ctx := context.Background()

	got, err := svc.Get(ctx, studentU1, 1, "student")
	require.NoError(t, err)
	require.NotNil(t, got.Student)
	assert.Equal(t, "u1", got.Student.UserID)

	_, err = svc.Get(ctx, studentU1, 3)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = svc.Get(ctx, superUser, 99)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestWritesRespectScope(t *testing.T) {
	s := newSchool(t)
	svc := s.assessmentService()
	ctx := context.Background()

	created, err := svc.Create(ctx, adminOne, &models.Assessment{StudentID: 1, SubjectID: "BIO", Title: "Cells", Score: 77})
	require.NoError(t, err)
	assert.Equal(t, int64(6), created.ID)

	_, err = svc.Create(ctx, adminOne, &models.Assessment{StudentID: 1, SubjectID: "BIO", Score: 101})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Update(ctx, adminOne, 4, &models.Assessment{StudentID: 3, SubjectID: "MATH", Title: "Hijack", Score: 0})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	untouched, err := s.assessments.GetOne(ctx, query.Eq("id", int64(4)))
	require.NoError(t, err)
	assert.Equal(t, "Algebra", untouched.Title)

	_, err = svc.Create(ctx, adminOne, &models.Assessment{StudentID: 3, SubjectID: "MATH", Title: "Planted", Score: 10})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden), err)
	_, err = svc.Update(ctx, adminOne, 1, &models.Assessment{StudentID: 3, SubjectID: "MATH", Title: "Moved", Score: 70})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden), err)
	foreign, err := svc.Count(ctx, superUser, query.Eq("student_id", int64(3)))
	require.NoError(t, err)
	assert.Equal(t, 1, foreign)
	stayed, err := s.assessments.GetOne(ctx, query.Eq("id", int64(1)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stayed.StudentID)
	assert.Equal(t, "Fractions", stayed.Title)

	_, err = svc.Create(ctx, access.Anonymous(), &models.Assessment{StudentID: 1, SubjectID: "MATH", Title: "Anon", Score: 1})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden), err)

	updated, err := svc.Update(ctx, adminOne, 1, &models.Assessment{StudentID: 1, SubjectID: "MATH", Title: "Fractions II", Score: 72})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.ID)

	assert.True(t, errors.Is(svc.Delete(ctx, studentU1, 3), appErrors.ErrNotFound))
	require.NoError(t, svc.Delete(ctx, adminOne, 6))
	n, err := svc.Count(ctx, superUser, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCreateDuplicateMapsToConflict(t *testing.T) {
	s := newSchool(t)
	svc := NewEntityService[models.Feature, *models.Feature](models.EntityFeature, s.features, s.deps)

	_, err := svc.Create(context.Background(), superUser, &models.Feature{Key: "diary", Name: "Again"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.True(t, errors.Is(err, repository.ErrDuplicate))
}

type failingRepo[E any] struct {
	repository.Repository[E]
	err error
}

func (r failingRepo[E]) GetPaginated(context.Context, int, int, query.Predicate, query.Ordering, ...repository.Option) (*models.Page[E], error) {
	return nil, r.err
}

func TestStorageFailureIsWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewEntityService[models.Reward, *models.Reward](models.EntityReward, failingRepo[models.Reward]{err: boom}, EntityDeps{})

	_, err := svc.List(context.Background(), superUser, ListRequest{Page: 1, PageSize: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "failed to list reward", appErrors.FromError(err).Message)
}

func TestInconsistentPageIsInternal(t *testing.T) {
	svc := NewEntityService[models.Reward, *models.Reward](models.EntityReward, failingRepo[models.Reward]{err: models.ErrInvalidPage}, EntityDeps{})

	_, err := svc.List(context.Background(), superUser, ListRequest{Page: 1, PageSize: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.False(t, errors.Is(err, appErrors.ErrInvalidArgument))
}

func TestDeniedScopesAreCounted(t *testing.T) {
	s := newSchool(t)
	svc := s.assessmentService()

	_, err := svc.List(context.Background(), access.Anonymous(), ListRequest{Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.deps.Metrics.Snapshot().DeniedScopes)
}
