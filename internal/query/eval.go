package query

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Row exposes the scalar columns of one entity instance by column name.
type Row interface {
	Field(name string) (any, bool)
}

// Navigator follows a named relation from a row to the related rows. A null
// foreign key yields no rows.
type Navigator interface {
	Related(row Row, relation string) ([]Row, error)
}

// truth is a SQL three-valued logic result.
type truth int8

const (
	unknown truth = iota
	yes
	no
)

func truthOf(b bool) truth {
	if b {
		return yes
	}
	return no
}

// Evaluate reports whether row satisfies p. Comparisons against null are
// unknown and unknown rows do not match, mirroring a SQL WHERE clause. A nil
// predicate matches every row.
func Evaluate(p Predicate, row Row, nav Navigator) (bool, error) {
	if p == nil {
		return true, nil
	}
	t, err := eval(p, row, nav)
	if err != nil {
		return false, err
	}
	return t == yes, nil
}

func eval(p Predicate, row Row, nav Navigator) (truth, error) {
	switch node := p.(type) {
	case nil:
		return yes, nil
	case Const:
		return truthOf(bool(node)), nil
	case And:
		out := yes
		for _, term := range node.Terms {
			t, err := eval(term, row, nav)
			if err != nil {
				return unknown, err
			}
			if t == no {
				return no, nil
			}
			if t == unknown {
				out = unknown
			}
		}
		return out, nil
	case Or:
		out := no
		for _, term := range node.Terms {
			t, err := eval(term, row, nav)
			if err != nil {
				return unknown, err
			}
			if t == yes {
				return yes, nil
			}
			if t == unknown {
				out = unknown
			}
		}
		return out, nil
	case Not:
		t, err := eval(node.Term, row, nav)
		if err != nil {
			return unknown, err
		}
		switch t {
		case yes:
			return no, nil
		case no:
			return yes, nil
		}
		return unknown, nil
	case Compare:
		return evalCompare(node, row)
	case Related:
		if nav == nil {
			return unknown, fmt.Errorf("%w: relation %q without navigator", ErrInvalidPredicate, node.Relation)
		}
		related, err := nav.Related(row, node.Relation)
		if err != nil {
			return unknown, err
		}
		for _, r := range related {
			t, err := eval(node.Where, r, nav)
			if err != nil {
				return unknown, err
			}
			if t == yes {
				return yes, nil
			}
		}
		return no, nil
	}
	return unknown, fmt.Errorf("%w: unsupported node %T", ErrInvalidPredicate, p)
}

func evalCompare(c Compare, row Row) (truth, error) {
	raw, ok := row.Field(c.Field)
	if !ok {
		return unknown, fmt.Errorf("%w: unknown field %q", ErrInvalidPredicate, c.Field)
	}
	value, isNull := normalize(raw)
	switch c.Op {
	case OpIsNull:
		return truthOf(isNull), nil
	case OpNotNull:
		return truthOf(!isNull), nil
	}
	if isNull {
		return unknown, nil
	}
	switch c.Op {
	case OpIn:
		list, _ := c.Value.([]any)
		out := no
		for _, candidate := range list {
			cv, null := normalize(candidate)
			if null {
				out = unknown
				continue
			}
			cmp, err := compareValues(value, cv)
			if err != nil {
				return unknown, err
			}
			if cmp == 0 {
				return yes, nil
			}
		}
		return out, nil
	case OpContains:
		s, ok := value.(string)
		if !ok {
			return unknown, fmt.Errorf("%w: contains on non-text field %q", ErrInvalidPredicate, c.Field)
		}
		needle, _ := c.Value.(string)
		return truthOf(strings.Contains(strings.ToLower(s), strings.ToLower(needle))), nil
	}

	operand, null := normalize(c.Value)
	if null {
		return unknown, nil
	}
	cmp, err := compareValues(value, operand)
	if err != nil {
		return unknown, fmt.Errorf("field %q: %w", c.Field, err)
	}
	switch c.Op {
	case OpEq:
		return truthOf(cmp == 0), nil
	case OpNe:
		return truthOf(cmp != 0), nil
	case OpLt:
		return truthOf(cmp < 0), nil
	case OpLte:
		return truthOf(cmp <= 0), nil
	case OpGt:
		return truthOf(cmp > 0), nil
	case OpGte:
		return truthOf(cmp >= 0), nil
	}
	return unknown, fmt.Errorf("%w: unsupported operator %q", ErrInvalidPredicate, c.Op)
}

// normalize dereferences pointers and folds named kinds onto int64, float64,
// string, bool and time.Time. The second result reports a null value.
func normalize(v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	if t, ok := v.(time.Time); ok {
		return t, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, true
		}
		rv = rv.Elem()
	}
	if t, ok := rv.Interface().(time.Time); ok {
		return t, false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), false
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), false
	case reflect.Float32, reflect.Float64:
		return rv.Float(), false
	case reflect.String:
		return rv.String(), false
	case reflect.Bool:
		return rv.Bool(), false
	}
	return rv.Interface(), false
}

// compareValues orders two normalized, non-null values.
func compareValues(a, b any) (int, error) {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, y), nil
		case float64:
			return cmpOrdered(float64(x), y), nil
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmpOrdered(x, y), nil
		case int64:
			return cmpOrdered(x, float64(y)), nil
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			}
			return 1, nil
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), nil
		}
	}
	return 0, fmt.Errorf("%w: cannot compare %T with %T", ErrInvalidPredicate, a, b)
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
