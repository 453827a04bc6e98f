// Package query holds the row-filter expression tree shared by every entity
// type, together with its in-process evaluator, its SQL translation and the
// sort-key registry.
//
// A nil Predicate means "no restriction". False means "match nothing". The two
// are different security outcomes and are never folded into each other.
//
// Strings compare byte-wise in the evaluator. OrderBySQL sorts the columns a
// Schema lists as Text with COLLATE "C" so both adapters order them alike;
// range comparisons on text in SQL still follow the column collation.
package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPredicate reports a predicate that does not fit the entity it is
// applied to: unknown field or relation, or a comparison against nil.
var ErrInvalidPredicate = errors.New("invalid predicate")

// Op is a comparison operator.
type Op string

// Supported comparison operators.
const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpIn       Op = "in"
	OpContains Op = "contains"
	OpIsNull   Op = "is_null"
	OpNotNull  Op = "not_null"
)

// Predicate is a node of a boolean row filter.
type Predicate interface {
	predicate()
	String() string
}

// And is the conjunction of its terms.
type And struct {
	Terms []Predicate
}

// Or is the disjunction of its terms.
type Or struct {
	Terms []Predicate
}

// Not negates its term.
type Not struct {
	Term Predicate
}

// Compare tests a scalar column of the current row.
type Compare struct {
	Field string
	Op    Op
	Value any
}

// Related holds when at least one row reached through Relation satisfies
// Where. A missing link (null foreign key, no child rows) never matches.
type Related struct {
	Relation string
	Where    Predicate
}

// Const is a constant truth value.
type Const bool

// Constant predicates.
var (
	True  Predicate = Const(true)
	False Predicate = Const(false)
)

func (And) predicate()     {}
func (Or) predicate()      {}
func (Not) predicate()     {}
func (Compare) predicate() {}
func (Related) predicate() {}
func (Const) predicate()   {}

func (p And) String() string { return joinTerms("AND", p.Terms) }
func (p Or) String() string  { return joinTerms("OR", p.Terms) }
func (p Not) String() string { return fmt.Sprintf("NOT %s", describe(p.Term)) }

func (p Compare) String() string {
	switch p.Op {
	case OpIsNull, OpNotNull:
		return fmt.Sprintf("%s %s", p.Field, p.Op)
	}
	return fmt.Sprintf("%s %s %v", p.Field, p.Op, p.Value)
}

func (p Related) String() string {
	return fmt.Sprintf("%s{%s}", p.Relation, describe(p.Where))
}

func (p Const) String() string {
	if p {
		return "TRUE"
	}
	return "FALSE"
}

func joinTerms(sep string, terms []Predicate) string {
	parts := make([]string, len(terms))
	for i, term := range terms {
		parts[i] = describe(term)
	}
	return "(" + strings.Join(parts, " "+sep+" ") + ")"
}

// describe renders a predicate, including the nil "no restriction" value.
func describe(p Predicate) string {
	if p == nil {
		return "*"
	}
	return p.String()
}

// Describe renders a predicate for logs and cache keys.
func Describe(p Predicate) string { return describe(p) }

// Combine returns the conjunction of left and right. A nil side is "no
// restriction" and yields the other side unchanged.
func Combine(left, right Predicate) Predicate {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	if isConst(left, false) || isConst(right, false) {
		return False
	}
	if isConst(left, true) {
		return right
	}
	if isConst(right, true) {
		return left
	}
	terms := make([]Predicate, 0, 2)
	terms = appendAnd(terms, left)
	terms = appendAnd(terms, right)
	return And{Terms: terms}
}

// AllOf folds Combine over the given predicates.
func AllOf(preds ...Predicate) Predicate {
	var out Predicate
	for _, p := range preds {
		out = Combine(out, p)
	}
	return out
}

// AnyOf returns the disjunction of the given predicates. A nil member makes
// the whole disjunction unrestricted; with no members nothing matches.
func AnyOf(preds ...Predicate) Predicate {
	terms := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p == nil || isConst(p, true) {
			return nil
		}
		if isConst(p, false) {
			continue
		}
		if or, ok := p.(Or); ok {
			terms = append(terms, or.Terms...)
			continue
		}
		terms = append(terms, p)
	}
	switch len(terms) {
	case 0:
		return False
	case 1:
		return terms[0]
	}
	return Or{Terms: terms}
}

// Negate returns NOT p. Negating "no restriction" matches nothing.
func Negate(p Predicate) Predicate {
	switch {
	case p == nil, isConst(p, true):
		return False
	case isConst(p, false):
		return True
	}
	if n, ok := p.(Not); ok {
		return n.Term
	}
	return Not{Term: p}
}

func appendAnd(terms []Predicate, p Predicate) []Predicate {
	if and, ok := p.(And); ok {
		return append(terms, and.Terms...)
	}
	return append(terms, p)
}

func isConst(p Predicate, v bool) bool {
	c, ok := p.(Const)
	return ok && bool(c) == v
}

// Eq matches rows whose field equals value.
func Eq(field string, value any) Predicate { return Compare{Field: field, Op: OpEq, Value: value} }

// Ne matches rows whose field differs from value.
func Ne(field string, value any) Predicate { return Compare{Field: field, Op: OpNe, Value: value} }

// Lt matches rows whose field is below value.
func Lt(field string, value any) Predicate { return Compare{Field: field, Op: OpLt, Value: value} }

// Lte matches rows whose field is at most value.
func Lte(field string, value any) Predicate { return Compare{Field: field, Op: OpLte, Value: value} }

// Gt matches rows whose field is above value.
func Gt(field string, value any) Predicate { return Compare{Field: field, Op: OpGt, Value: value} }

// Gte matches rows whose field is at least value.
func Gte(field string, value any) Predicate { return Compare{Field: field, Op: OpGte, Value: value} }

// In matches rows whose field equals one of values.
func In(field string, values ...any) Predicate {
	list := make([]any, len(values))
	copy(list, values)
	return Compare{Field: field, Op: OpIn, Value: list}
}

// Contains matches rows whose text field contains s, case-insensitively.
func Contains(field, s string) Predicate { return Compare{Field: field, Op: OpContains, Value: s} }

// IsNull matches rows whose field is null.
func IsNull(field string) Predicate { return Compare{Field: field, Op: OpIsNull} }

// NotNull matches rows whose field is set.
func NotNull(field string) Predicate { return Compare{Field: field, Op: OpNotNull} }

// Through walks relation and applies where to the related rows.
func Through(relation string, where Predicate) Predicate {
	return Related{Relation: relation, Where: where}
}

// Path walks a dotted relation chain, e.g. "student.teacher_links.teacher".
func Path(chain string, where Predicate) Predicate {
	names := strings.Split(chain, ".")
	out := where
	for i := len(names) - 1; i >= 0; i-- {
		out = Through(names[i], out)
	}
	return out
}
