package query

import (
	"fmt"
	"reflect"
	"sort"
)

// Relation is a named traversal from one entity to another. The related rows
// are those whose TargetColumn equals the local row's LocalColumn.
type Relation struct {
	Name         string
	LocalColumn  string
	Target       string
	TargetColumn string
	Many         bool
}

// Schema describes how an entity is stored and which fields and relations a
// predicate may reference.
type Schema struct {
	Entity    string
	Table     string
	Identity  string
	Columns   []string
	Relations []Relation
	// Unique lists column sets that may not repeat across rows.
	Unique [][]string
	// Text lists the string-valued columns.
	Text []string
}

// HasColumn reports whether name is a column of the entity.
func (s *Schema) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// IsText reports whether name is a string-valued column.
func (s *Schema) IsText(name string) bool {
	for _, c := range s.Text {
		if c == name {
			return true
		}
	}
	return false
}

// Relation looks up a relation by name.
func (s *Schema) Relation(name string) (Relation, bool) {
	for _, r := range s.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

// Catalog is the immutable set of entity schemas known to the process.
type Catalog struct {
	schemas map[string]*Schema
}

// NewCatalog registers the schemas and checks every relation resolves.
func NewCatalog(schemas ...Schema) (*Catalog, error) {
	c := &Catalog{schemas: make(map[string]*Schema, len(schemas))}
	for i := range schemas {
		s := schemas[i]
		if s.Entity == "" || s.Table == "" || s.Identity == "" {
			return nil, fmt.Errorf("schema %q: entity, table and identity are required", s.Entity)
		}
		if _, dup := c.schemas[s.Entity]; dup {
			return nil, fmt.Errorf("schema %q registered twice", s.Entity)
		}
		if !s.HasColumn(s.Identity) {
			return nil, fmt.Errorf("schema %q: identity column %q not declared", s.Entity, s.Identity)
		}
		c.schemas[s.Entity] = &s
	}
	for _, s := range c.schemas {
		for _, r := range s.Relations {
			target, ok := c.schemas[r.Target]
			if !ok {
				return nil, fmt.Errorf("schema %q: relation %q targets unknown entity %q", s.Entity, r.Name, r.Target)
			}
			if !s.HasColumn(r.LocalColumn) || !target.HasColumn(r.TargetColumn) {
				return nil, fmt.Errorf("schema %q: relation %q joins undeclared columns", s.Entity, r.Name)
			}
		}
		for _, col := range s.Text {
			if !s.HasColumn(col) {
				return nil, fmt.Errorf("schema %q: text column %q not declared", s.Entity, col)
			}
		}
		for _, key := range s.Unique {
			for _, col := range key {
				if !s.HasColumn(col) {
					return nil, fmt.Errorf("schema %q: unique key column %q not declared", s.Entity, col)
				}
			}
		}
	}
	return c, nil
}

// MustCatalog is NewCatalog for static schema tables.
func MustCatalog(schemas ...Schema) *Catalog {
	c, err := NewCatalog(schemas...)
	if err != nil {
		panic(err)
	}
	return c
}

// Schema returns the schema registered for entity.
func (c *Catalog) Schema(entity string) (*Schema, bool) {
	s, ok := c.schemas[entity]
	return s, ok
}

// Entities lists the registered entity names in sorted order.
func (c *Catalog) Entities() []string {
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that p only references fields and relations of entity and
// that every comparison has a usable operand.
func (c *Catalog) Validate(entity string, p Predicate) error {
	s, ok := c.schemas[entity]
	if !ok {
		return fmt.Errorf("%w: unknown entity %q", ErrInvalidPredicate, entity)
	}
	return c.validate(s, p)
}

func (c *Catalog) validate(s *Schema, p Predicate) error {
	switch node := p.(type) {
	case nil, Const:
		return nil
	case And:
		return c.validateAll(s, node.Terms)
	case Or:
		return c.validateAll(s, node.Terms)
	case Not:
		if node.Term == nil {
			return fmt.Errorf("%w: NOT without operand", ErrInvalidPredicate)
		}
		return c.validate(s, node.Term)
	case Compare:
		if !s.HasColumn(node.Field) {
			return fmt.Errorf("%w: %s has no field %q", ErrInvalidPredicate, s.Entity, node.Field)
		}
		return validateOperand(node)
	case Related:
		r, ok := s.Relation(node.Relation)
		if !ok {
			return fmt.Errorf("%w: %s has no relation %q", ErrInvalidPredicate, s.Entity, node.Relation)
		}
		return c.validate(c.schemas[r.Target], node.Where)
	}
	return fmt.Errorf("%w: unsupported node %T", ErrInvalidPredicate, p)
}

func (c *Catalog) validateAll(s *Schema, terms []Predicate) error {
	for _, term := range terms {
		if term == nil {
			return fmt.Errorf("%w: empty term", ErrInvalidPredicate)
		}
		if err := c.validate(s, term); err != nil {
			return err
		}
	}
	return nil
}

func validateOperand(c Compare) error {
	switch c.Op {
	case OpIsNull, OpNotNull:
		return nil
	case OpIn:
		list, ok := c.Value.([]any)
		if !ok {
			return fmt.Errorf("%w: %s expects a list", ErrInvalidPredicate, c.Field)
		}
		for _, v := range list {
			if _, null := normalize(v); null {
				return fmt.Errorf("%w: %s list contains null", ErrInvalidPredicate, c.Field)
			}
		}
		return nil
	case OpContains:
		if _, ok := c.Value.(string); !ok {
			return fmt.Errorf("%w: %s contains expects text", ErrInvalidPredicate, c.Field)
		}
		return nil
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		v, null := normalize(c.Value)
		if null {
			return fmt.Errorf("%w: %s compared with null, use IsNull", ErrInvalidPredicate, c.Field)
		}
		if k := reflect.ValueOf(v).Kind(); k == reflect.Slice || k == reflect.Array || k == reflect.Map {
			return fmt.Errorf("%w: %s compared with a collection", ErrInvalidPredicate, c.Field)
		}
		return nil
	}
	return fmt.Errorf("%w: unsupported operator %q", ErrInvalidPredicate, c.Op)
}
