package access

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
	"github.com/noah-isme/edu-admin-api/internal/repository"
)

func TestSuperUserSeesEverything(t *testing.T) {
	r := NewDefaultResolver()
	for _, entity := range repository.NewCatalog().Entities() {
		assert.Nil(t, r.Resolve(entity, Identity{UserID: "root", Role: models.RoleSuperUser}), entity)
	}
	assert.Nil(t, r.Resolve("not_registered", Identity{Role: models.RoleSuperUser}))
}

func TestUnregisteredEntityIsDenied(t *testing.T) {
	r := NewDefaultResolver()
	assert.Equal(t, query.False, r.Resolve("payroll", Identity{UserID: "a1", Role: models.RoleAdmin}))
}

func TestAnonymousAndUnknownRoles(t *testing.T) {
	r := NewDefaultResolver()
	for _, id := range []Identity{Anonymous(), {}, {UserID: "x", Role: "JANITOR"}} {
		assert.Equal(t, query.False, r.Resolve(models.EntityAssessment, id))
		assert.Equal(t, query.False, r.Resolve(models.EntityFeature, id))
		assert.Equal(t, query.Eq("published", true), r.Resolve(models.EntityCourse, id))
		assert.Equal(t, query.Eq("approved", true), r.Resolve(models.EntityResource, id))
	}
}

func TestAuthenticatedWithoutUserIDIsDenied(t *testing.T) {
	r := NewDefaultResolver()
	assert.Equal(t, query.False, r.Resolve(models.EntityCourse, Identity{Role: models.RoleTeacher}))
	assert.Equal(t, query.False, r.Resolve(models.EntityStudent, Identity{Role: models.RoleStudent}))
}

func TestRoleWithoutRuleFallsBackToPublic(t *testing.T) {
	r := NewDefaultResolver()
	assert.Equal(t, query.Eq("published", true), r.Resolve(models.EntityCourse, Identity{UserID: "p1", Role: models.RoleParent}))
	assert.Equal(t, query.False, r.Resolve(models.EntityAdmin, Identity{UserID: "t1", Role: models.RoleTeacher}))
}

func TestFeatureCatalogScope(t *testing.T) {
	r := NewDefaultResolver()
	assert.Nil(t, r.Resolve(models.EntityFeature, Identity{UserID: "a1", Role: models.RoleAdmin}))
	assert.Equal(t, query.Eq("enabled", true), r.Resolve(models.EntityFeature, Identity{UserID: "s1", Role: models.RoleStudent}))
}

func TestStudentOwnedChains(t *testing.T) {
	r := NewDefaultResolver()
	assert.Equal(t,
		query.Through("student", query.Eq("user_id", "u1")),
		r.Resolve(models.EntityAssessment, Identity{UserID: "u1", Role: models.RoleStudent}))
	assert.Equal(t,
		query.Path("student.teacher_links.teacher", query.Eq("user_id", "t1")),
		r.Resolve(models.EntityGoal, Identity{UserID: "t1", Role: models.RoleTutor}))
	assert.Equal(t,
		query.Path("student.parent_links", query.Eq("parent_user_id", "p1")),
		r.Resolve(models.EntityDiaryEntry, Identity{UserID: "p1", Role: models.RoleParent}))
	assert.Equal(t,
		query.Through("admin", query.Eq("user_id", "a1")),
		r.Resolve(models.EntityEnrollment, Identity{UserID: "a1", Role: models.RoleAdmin}))
}

func TestPoliciesCoverCatalogAndValidate(t *testing.T) {
	r := NewDefaultResolver()
	catalog := repository.NewCatalog()
	require.NoError(t, r.Validate(catalog))

	entities := r.Entities()
	sort.Strings(entities)
	assert.Equal(t, catalog.Entities(), entities)
}

func TestNewResolverRejectsDuplicates(t *testing.T) {
	_, err := NewResolver(Policy{Entity: "a"}, Policy{Entity: "a"})
	assert.Error(t, err)
	_, err = NewResolver(Policy{})
	assert.Error(t, err)
}

func TestFromClaims(t *testing.T) {
	assert.Equal(t, Anonymous(), FromClaims(nil))
	id := FromClaims(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent})
	assert.Equal(t, Identity{UserID: "u1", Role: models.RoleStudent}, id)
	assert.True(t, id.Authenticated())
	assert.False(t, Anonymous().Authenticated())
}

type world struct {
	courses     *repository.MemoryRepository[models.Course]
	assessments *repository.MemoryRepository[models.Assessment]
	teachers    *repository.MemoryRepository[models.Teacher]
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore(repository.NewCatalog())
	admins, err := repository.NewMemoryRepository[models.Admin](store, models.EntityAdmin)
	require.NoError(t, err)
	teachers, err := repository.NewMemoryRepository[models.Teacher](store, models.EntityTeacher)
	require.NoError(t, err)
	students, err := repository.NewMemoryRepository[models.Student](store, models.EntityStudent)
	require.NoError(t, err)
	links, err := repository.NewMemoryRepository[models.TeacherStudent](store, models.EntityTeacherStudent)
	require.NoError(t, err)
	parents, err := repository.NewMemoryRepository[models.ParentStudent](store, models.EntityParentStudent)
	require.NoError(t, err)
	courses, err := repository.NewMemoryRepository[models.Course](store, models.EntityCourse)
	require.NoError(t, err)
	assessments, err := repository.NewMemoryRepository[models.Assessment](store, models.EntityAssessment)
	require.NoError(t, err)

	adminID := int64(1)
	teacherID := int64(1)
	require.NoError(t, admins.Add(ctx, &models.Admin{UserID: "a1", SchoolName: "North"}))
	require.NoError(t, teachers.Add(ctx, &models.Teacher{UserID: "t1", AdminID: &adminID, FullName: "Tess", Kind: models.TeacherKindTeacher}))
	require.NoError(t, teachers.Add(ctx, &models.Teacher{UserID: "tu1", FullName: "Tim", Kind: models.TeacherKindTutor}))
	for _, uid := range []string{"u1", "u2", "u3"} {
		require.NoError(t, students.Add(ctx, &models.Student{UserID: uid, AdminID: &adminID, FullName: uid}))
	}
	require.NoError(t, links.Add(ctx, &models.TeacherStudent{TeacherID: 1, StudentID: 1}))
	require.NoError(t, links.Add(ctx, &models.TeacherStudent{TeacherID: 2, StudentID: 3}))
	require.NoError(t, parents.Add(ctx, &models.ParentStudent{ParentUserID: "p1", StudentID: 2}))
	require.NoError(t, courses.Add(ctx, &models.Course{Code: "ALG", Title: "Algebra", TeacherID: &teacherID, Published: false}))
	require.NoError(t, courses.Add(ctx, &models.Course{Code: "ART", Title: "Art", Published: true}))
	require.NoError(t, courses.Add(ctx, &models.Course{Code: "BIO", Title: "Biology"}))
	for _, sid := range []int64{1, 2, 3} {
		require.NoError(t, assessments.Add(ctx, &models.Assessment{StudentID: sid, SubjectID: "MATH", Title: "Quiz"}))
	}
	return &world{courses: courses, assessments: assessments, teachers: teachers}
}

func visibleIDs[E any](t *testing.T, repo repository.Repository[E], pred query.Predicate, id func(E) int64) []int64 {
	t.Helper()
	items, err := repo.GetMany(context.Background(), pred, query.Ordering{})
	require.NoError(t, err)
	out := []int64{}
	for _, item := range items {
		out = append(out, id(item))
	}
	return out
}

func TestPoliciesAgainstStoredRows(t *testing.T) {
	w := newWorld(t)
	r := NewDefaultResolver()
	assessmentID := func(a models.Assessment) int64 { return a.ID }
	courseID := func(c models.Course) int64 { return c.ID }
	teacherID := func(tc models.Teacher) int64 { return tc.ID }

	cases := []struct {
		name string
		id   Identity
		want []int64
	}{
		{"teacher sees assigned students", Identity{UserID: "t1", Role: models.RoleTeacher}, []int64{1}},
		{"tutor sees assigned students", Identity{UserID: "tu1", Role: models.RoleTutor}, []int64{3}},
		{"parent sees children", Identity{UserID: "p1", Role: models.RoleParent}, []int64{2}},
		{"student sees self", Identity{UserID: "u3", Role: models.RoleStudent}, []int64{3}},
		{"admin sees school", Identity{UserID: "a1", Role: models.RoleAdmin}, []int64{1, 2, 3}},
		{"other admin sees nothing", Identity{UserID: "a9", Role: models.RoleAdmin}, []int64{}},
		{"anonymous sees nothing", Anonymous(), []int64{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pred := r.Resolve(models.EntityAssessment, tc.id)
			assert.Equal(t, tc.want, visibleIDs[models.Assessment](t, w.assessments, pred, assessmentID))
		})
	}

	// a course without a teacher is never reachable through the teacher chain
	assert.Equal(t, []int64{1}, visibleIDs[models.Course](t, w.courses, r.Resolve(models.EntityCourse, Identity{UserID: "t1", Role: models.RoleTeacher}), courseID))
	assert.Equal(t, []int64{}, visibleIDs[models.Course](t, w.courses, r.Resolve(models.EntityCourse, Identity{UserID: "tu1", Role: models.RoleTutor}), courseID))
	assert.Equal(t, []int64{2}, visibleIDs[models.Course](t, w.courses, r.Resolve(models.EntityCourse, Anonymous()), courseID))

	assert.Equal(t, []int64{2}, visibleIDs[models.Teacher](t, w.teachers, r.Resolve(models.EntityTeacher, Identity{UserID: "u3", Role: models.RoleStudent}), teacherID))
	assert.Equal(t, []int64{1}, visibleIDs[models.Teacher](t, w.teachers, r.Resolve(models.EntityTeacher, Identity{UserID: "a1", Role: models.RoleAdmin}), teacherID))
}
