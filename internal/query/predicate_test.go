package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapRow is a test row; keys prefixed with "@" hold related rows.
type mapRow map[string]any

func (r mapRow) Field(name string) (any, bool) {
	v, ok := r[name]
	return v, ok
}

type linkNavigator struct{}

func (linkNavigator) Related(row Row, relation string) ([]Row, error) {
	rows, _ := row.(mapRow)["@"+relation].([]Row)
	return rows, nil
}

func TestCombineNilIsIdentity(t *testing.T) {
	p := Eq("subject_id", "MATH")
	assert.Equal(t, p, Combine(nil, p))
	assert.Equal(t, p, Combine(p, nil))
	assert.Nil(t, Combine(nil, nil))
	assert.Equal(t, False, Combine(nil, False))
}

func TestCombineFalseAbsorbs(t *testing.T) {
	rows := []mapRow{
		{"subject_id": "MATH", "score": 90},
		{"subject_id": "ART", "score": 10},
		{"subject_id": nil, "score": nil},
	}
	for _, p := range []Predicate{nil, True, Eq("subject_id", "MATH"), Or{Terms: []Predicate{IsNull("score"), Gt("score", 5)}}} {
		combined := Combine(p, False)
		assert.Equal(t, False, combined)
		for _, row := range rows {
			ok, err := Evaluate(combined, row, nil)
			require.NoError(t, err)
			assert.False(t, ok)
		}
	}
}

func TestCombineFlattensAndIsAssociative(t *testing.T) {
	a, b, c := Eq("a", 1), Eq("b", 2), Eq("c", 3)
	left := Combine(Combine(a, b), c)
	right := Combine(a, Combine(b, c))
	assert.Equal(t, left, right)
	assert.Equal(t, And{Terms: []Predicate{a, b, c}}, left)
	assert.Equal(t, left, AllOf(a, b, c))
}

func TestCombineTrueIsNeutral(t *testing.T) {
	p := Eq("a", 1)
	assert.Equal(t, p, Combine(True, p))
	assert.Equal(t, p, Combine(p, True))
}

func TestCombineMatchesConjunction(t *testing.T) {
	vis := In("student_id", 1, 2)
	filter := Eq("subject_id", "MATH")
	combined := Combine(vis, filter)

	for _, row := range []mapRow{
		{"student_id": 1, "subject_id": "MATH"},
		{"student_id": 2, "subject_id": "ART"},
		{"student_id": 3, "subject_id": "MATH"},
		{"student_id": 3, "subject_id": "ART"},
	} {
		l, err := Evaluate(vis, row, nil)
		require.NoError(t, err)
		r, err := Evaluate(filter, row, nil)
		require.NoError(t, err)
		got, err := Evaluate(combined, row, nil)
		require.NoError(t, err)
		assert.Equal(t, l && r, got, "row %v", row)
	}
}

func TestCombineShortCircuitsLeftToRight(t *testing.T) {
	// the right side references an unknown field; it must not be reached
	combined := Combine(False, Eq("missing", 1))
	ok, err := Evaluate(combined, mapRow{}, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	and := And{Terms: []Predicate{Eq("a", 1), Eq("missing", 1)}}
	ok, err = Evaluate(and, mapRow{"a": 2}, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnyOfAndNegate(t *testing.T) {
	assert.Nil(t, AnyOf(Eq("a", 1), nil))
	assert.Equal(t, False, AnyOf())
	assert.Equal(t, Eq("a", 1), AnyOf(False, Eq("a", 1)))
	assert.Equal(t, Or{Terms: []Predicate{Eq("a", 1), Eq("b", 2), Eq("c", 3)}}, AnyOf(AnyOf(Eq("a", 1), Eq("b", 2)), Eq("c", 3)))

	assert.Equal(t, False, Negate(nil))
	assert.Equal(t, True, Negate(False))
	assert.Equal(t, Eq("a", 1), Negate(Negate(Eq("a", 1))))
}

func TestPathBuildsNestedRelations(t *testing.T) {
	p := Path("student.teacher_links.teacher", Eq("user_id", "u1"))
	assert.Equal(t, Through("student", Through("teacher_links", Through("teacher", Eq("user_id", "u1")))), p)
	assert.Equal(t, "student{teacher_links{teacher{user_id eq u1}}}", p.String())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "*", Describe(nil))
	assert.Equal(t, "FALSE", Describe(False))
	assert.Equal(t, "(a eq 1 AND NOT b is_null)", Describe(Combine(Eq("a", 1), Negate(IsNull("b")))))
}
