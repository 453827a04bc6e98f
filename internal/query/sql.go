package query

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ToSQL translates p over entity into a WHERE clause whose columns are
// qualified with alias. Relations become correlated EXISTS subqueries so the
// whole predicate is pushed down as one clause. A nil predicate yields a nil
// clause.
func (c *Catalog) ToSQL(entity, alias string, p Predicate) (sq.Sqlizer, error) {
	if p == nil {
		return nil, nil
	}
	s, ok := c.schemas[entity]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity %q", ErrInvalidPredicate, entity)
	}
	t := &translator{catalog: c}
	return t.translate(s, alias, p)
}

type translator struct {
	catalog *Catalog
	depth   int
}

func (t *translator) translate(s *Schema, alias string, p Predicate) (sq.Sqlizer, error) {
	switch node := p.(type) {
	case Const:
		if node {
			return sq.Expr("1=1"), nil
		}
		return sq.Expr("1=0"), nil
	case And:
		parts, err := t.translateAll(s, alias, node.Terms)
		if err != nil {
			return nil, err
		}
		return sq.And(parts), nil
	case Or:
		parts, err := t.translateAll(s, alias, node.Terms)
		if err != nil {
			return nil, err
		}
		return sq.Or(parts), nil
	case Not:
		inner, err := t.translate(s, alias, node.Term)
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT (?)", inner), nil
	case Compare:
		if !s.HasColumn(node.Field) {
			return nil, fmt.Errorf("%w: %s has no field %q", ErrInvalidPredicate, s.Entity, node.Field)
		}
		if err := validateOperand(node); err != nil {
			return nil, err
		}
		return compareSQL(alias+"."+node.Field, node), nil
	case Related:
		return t.related(s, alias, node)
	}
	return nil, fmt.Errorf("%w: unsupported node %T", ErrInvalidPredicate, p)
}

func (t *translator) translateAll(s *Schema, alias string, terms []Predicate) ([]sq.Sqlizer, error) {
	parts := make([]sq.Sqlizer, 0, len(terms))
	for _, term := range terms {
		if term == nil {
			return nil, fmt.Errorf("%w: empty term", ErrInvalidPredicate)
		}
		part, err := t.translate(s, alias, term)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func (t *translator) related(s *Schema, alias string, node Related) (sq.Sqlizer, error) {
	r, ok := s.Relation(node.Relation)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no relation %q", ErrInvalidPredicate, s.Entity, node.Relation)
	}
	target := t.catalog.schemas[r.Target]
	t.depth++
	sub := fmt.Sprintf("r%d", t.depth)
	query := sq.Select("1").
		From(target.Table + " AS " + sub).
		Where(fmt.Sprintf("%s.%s = %s.%s", sub, r.TargetColumn, alias, r.LocalColumn))
	if node.Where != nil {
		inner, err := t.translate(target, sub, node.Where)
		if err != nil {
			return nil, err
		}
		query = query.Where(inner)
	}
	return sq.Expr("EXISTS (?)", query), nil
}

func compareSQL(column string, c Compare) sq.Sqlizer {
	value, _ := normalize(c.Value)
	switch c.Op {
	case OpNe:
		return sq.NotEq{column: value}
	case OpLt:
		return sq.Lt{column: value}
	case OpLte:
		return sq.LtOrEq{column: value}
	case OpGt:
		return sq.Gt{column: value}
	case OpGte:
		return sq.GtOrEq{column: value}
	case OpIn:
		list, _ := c.Value.([]any)
		values := make([]any, len(list))
		for i, v := range list {
			values[i], _ = normalize(v)
		}
		return sq.Eq{column: values}
	case OpContains:
		s, _ := c.Value.(string)
		return sq.ILike{column: "%" + likeEscaper.Replace(s) + "%"}
	case OpIsNull:
		return sq.Eq{column: nil}
	case OpNotNull:
		return sq.NotEq{column: nil}
	}
	return sq.Eq{column: value}
}

// OrderBySQL renders the ORDER BY terms for o, qualified with alias. The
// identity column is appended as a tie-break unless it is already the key.
func (c *Catalog) OrderBySQL(entity, alias string, o Ordering) ([]string, error) {
	s, ok := c.schemas[entity]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity %q", ErrInvalidPredicate, entity)
	}
	field := o.Field
	if field == "" {
		field = s.Identity
	}
	if !s.HasColumn(field) {
		return nil, fmt.Errorf("%w: %s has no sortable field %q", ErrInvalidPredicate, s.Entity, field)
	}
	dir := "ASC"
	if o.Descending {
		dir = "DESC"
	}
	collate := ""
	if s.IsText(field) {
		collate = ` COLLATE "C"`
	}
	terms := []string{fmt.Sprintf("%s.%s%s %s", alias, field, collate, dir)}
	if field != s.Identity {
		terms = append(terms, fmt.Sprintf("%s.%s ASC", alias, s.Identity))
	}
	return terms, nil
}
