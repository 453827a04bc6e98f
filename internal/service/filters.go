package service

import (
	"strings"
	"time"

	"github.com/noah-isme/edu-admin-api/internal/query"
)

// terms accumulates optional filter clauses.
type terms []query.Predicate

func (t *terms) add(p query.Predicate) {
	*t = append(*t, p)
}

func (t *terms) eq(field string, v any) {
	t.add(query.Eq(field, v))
}

func (t *terms) search(field, s string) {
	if s = strings.TrimSpace(s); s != "" {
		t.add(query.Contains(field, s))
	}
}

func (t terms) predicate() query.Predicate {
	return query.AllOf(t...)
}

// AdminFilter narrows admin lists.
type AdminFilter struct {
	Search string `form:"search"`
}

// Predicate implements Filter.
func (f AdminFilter) Predicate() query.Predicate {
	var t terms
	t.search("school_name", f.Search)
	return t.predicate()
}

// TeacherFilter narrows teacher lists.
type TeacherFilter struct {
	AdminID *int64 `form:"admin_id"`
	Kind    string `form:"kind"`
	Search  string `form:"search"`
}

// Predicate implements Filter.
func (f TeacherFilter) Predicate() query.Predicate {
	var t terms
	if f.AdminID != nil {
		t.eq("admin_id", *f.AdminID)
	}
	if f.Kind != "" {
		t.eq("kind", strings.ToUpper(f.Kind))
	}
	t.search("full_name", f.Search)
	return t.predicate()
}

// StudentFilter narrows student lists.
type StudentFilter struct {
	AdminID   *int64 `form:"admin_id"`
	TeacherID *int64 `form:"teacher_id"`
	Grade     string `form:"grade"`
	Active    *bool  `form:"active"`
	Search    string `form:"search"`
}

// Predicate implements Filter.
func (f StudentFilter) Predicate() query.Predicate {
	var t terms
	if f.AdminID != nil {
		t.eq("admin_id", *f.AdminID)
	}
	if f.TeacherID != nil {
		t.add(query.Through("teacher_links", query.Eq("teacher_id", *f.TeacherID)))
	}
	if f.Grade != "" {
		t.eq("grade", f.Grade)
	}
	if f.Active != nil {
		t.eq("active", *f.Active)
	}
	t.search("full_name", f.Search)
	return t.predicate()
}

// TeacherStudentFilter narrows teacher assignment lists.
type TeacherStudentFilter struct {
	TeacherID *int64 `form:"teacher_id"`
	StudentID *int64 `form:"student_id"`
}

// Predicate implements Filter.
func (f TeacherStudentFilter) Predicate() query.Predicate {
	var t terms
	if f.TeacherID != nil {
		t.eq("teacher_id", *f.TeacherID)
	}
	if f.StudentID != nil {
		t.eq("student_id", *f.StudentID)
	}
	return t.predicate()
}

// ParentStudentFilter narrows parent link lists.
type ParentStudentFilter struct {
	ParentUserID string `form:"parent_user_id"`
	StudentID    *int64 `form:"student_id"`
}

// Predicate implements Filter.
func (f ParentStudentFilter) Predicate() query.Predicate {
	var t terms
	if f.ParentUserID != "" {
		t.eq("parent_user_id", f.ParentUserID)
	}
	if f.StudentID != nil {
		t.eq("student_id", *f.StudentID)
	}
	return t.predicate()
}

// CourseFilter narrows course lists.
type CourseFilter struct {
	AdminID   *int64 `form:"admin_id"`
	TeacherID *int64 `form:"teacher_id"`
	Published *bool  `form:"published"`
	Search    string `form:"search"`
}

// Predicate implements Filter.
func (f CourseFilter) Predicate() query.Predicate {
	var t terms
	if f.AdminID != nil {
		t.eq("admin_id", *f.AdminID)
	}
	if f.TeacherID != nil {
		t.eq("teacher_id", *f.TeacherID)
	}
	if f.Published != nil {
		t.eq("published", *f.Published)
	}
	t.search("title", f.Search)
	return t.predicate()
}

// EnrollmentFilter narrows enrollment lists.
type EnrollmentFilter struct {
	AdminID   *int64 `form:"admin_id"`
	StudentID *int64 `form:"student_id"`
	Status    string `form:"status"`
}

// Predicate implements Filter.
func (f EnrollmentFilter) Predicate() query.Predicate {
	var t terms
	if f.AdminID != nil {
		t.eq("admin_id", *f.AdminID)
	}
	if f.StudentID != nil {
		t.eq("student_id", *f.StudentID)
	}
	if f.Status != "" {
		t.eq("status", strings.ToUpper(f.Status))
	}
	return t.predicate()
}

// AssessmentFilter narrows assessment lists and exports.
type AssessmentFilter struct {
	StudentID *int64     `form:"student_id"`
	SubjectID string     `form:"subject_id"`
	Search    string     `form:"search"`
	MinScore  *float64   `form:"min_score"`
	MaxScore  *float64   `form:"max_score"`
	TakenFrom *time.Time `form:"taken_from" time_format:"2006-01-02"`
	TakenTo   *time.Time `form:"taken_to" time_format:"2006-01-02"`
}

// Predicate implements Filter.
func (f AssessmentFilter) Predicate() query.Predicate {
	var t terms
	if f.StudentID != nil {
		t.eq("student_id", *f.StudentID)
	}
	if f.SubjectID != "" {
		t.eq("subject_id", f.SubjectID)
	}
	t.search("title", f.Search)
	if f.MinScore != nil {
		t.add(query.Gte("score", *f.MinScore))
	}
	if f.MaxScore != nil {
		t.add(query.Lte("score", *f.MaxScore))
	}
	if f.TakenFrom != nil {
		t.add(query.Gte("taken_at", *f.TakenFrom))
	}
	if f.TakenTo != nil {
		t.add(query.Lt("taken_at", f.TakenTo.AddDate(0, 0, 1)))
	}
	return t.predicate()
}

// GoalFilter narrows goal lists.
type GoalFilter struct {
	StudentID *int64     `form:"student_id"`
	Status    string     `form:"status"`
	DueBefore *time.Time `form:"due_before" time_format:"2006-01-02"`
	Search    string     `form:"search"`
}

// Predicate implements Filter.
func (f GoalFilter) Predicate() query.Predicate {
	var t terms
	if f.StudentID != nil {
		t.eq("student_id", *f.StudentID)
	}
	if f.Status != "" {
		t.eq("status", strings.ToUpper(f.Status))
	}
	if f.DueBefore != nil {
		t.add(query.Lt("due_date", *f.DueBefore))
	}
	t.search("title", f.Search)
	return t.predicate()
}

// DiaryEntryFilter narrows diary entry lists.
type DiaryEntryFilter struct {
	StudentID *int64     `form:"student_id"`
	Mood      string     `form:"mood"`
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
}

// Predicate implements Filter.
func (f DiaryEntryFilter) Predicate() query.Predicate {
	var t terms
	if f.StudentID != nil {
		t.eq("student_id", *f.StudentID)
	}
	if f.Mood != "" {
		t.eq("mood", f.Mood)
	}
	if f.From != nil {
		t.add(query.Gte("entry_date", *f.From))
	}
	if f.To != nil {
		t.add(query.Lte("entry_date", *f.To))
	}
	return t.predicate()
}

// RewardFilter narrows reward lists.
type RewardFilter struct {
	StudentID *int64 `form:"student_id"`
	MinPoints *int   `form:"min_points"`
}

// Predicate implements Filter.
func (f RewardFilter) Predicate() query.Predicate {
	var t terms
	if f.StudentID != nil {
		t.eq("student_id", *f.StudentID)
	}
	if f.MinPoints != nil {
		t.add(query.Gte("points", *f.MinPoints))
	}
	return t.predicate()
}

// ResourceFilter narrows resource lists.
type ResourceFilter struct {
	AdminID  *int64 `form:"admin_id"`
	Approved *bool  `form:"approved"`
	Search   string `form:"search"`
}

// Predicate implements Filter.
func (f ResourceFilter) Predicate() query.Predicate {
	var t terms
	if f.AdminID != nil {
		t.eq("admin_id", *f.AdminID)
	}
	if f.Approved != nil {
		t.eq("approved", *f.Approved)
	}
	t.search("title", f.Search)
	return t.predicate()
}

// FeatureFilter narrows feature lists.
type FeatureFilter struct {
	Enabled *bool  `form:"enabled"`
	Search  string `form:"search"`
}

// Predicate implements Filter.
func (f FeatureFilter) Predicate() query.Predicate {
	var t terms
	if f.Enabled != nil {
		t.eq("enabled", *f.Enabled)
	}
	t.search("name", f.Search)
	return t.predicate()
}
