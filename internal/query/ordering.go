package query

import (
	"sort"
	"strings"
)

// Ordering is a resolved sort key. An empty Field orders by entity identity.
type Ordering struct {
	Field      string
	Descending bool
}

// SortRegistry maps user-facing sort names to columns, per entity. Lookups are
// case-insensitive; anything outside the whitelist falls back to identity.
type SortRegistry struct {
	fields map[string]map[string]string
}

// NewSortRegistry creates an empty registry.
func NewSortRegistry() *SortRegistry {
	return &SortRegistry{fields: make(map[string]map[string]string)}
}

// Register whitelists sort names for entity. Keys are sort names, values are
// columns.
func (r *SortRegistry) Register(entity string, fields map[string]string) *SortRegistry {
	table, ok := r.fields[entity]
	if !ok {
		table = make(map[string]string, len(fields))
		r.fields[entity] = table
	}
	for name, column := range fields {
		table[strings.ToLower(name)] = column
	}
	return r
}

// Resolve returns the ordering for a sort name. It never fails.
func (r *SortRegistry) Resolve(entity, field string, descending bool) Ordering {
	if column, ok := r.fields[entity][strings.ToLower(strings.TrimSpace(field))]; ok {
		return Ordering{Field: column, Descending: descending}
	}
	return Ordering{Descending: descending}
}

// Fields returns a copy of the whitelist for entity.
func (r *SortRegistry) Fields(entity string) map[string]string {
	out := make(map[string]string, len(r.fields[entity]))
	for name, column := range r.fields[entity] {
		out[name] = column
	}
	return out
}

// Compare orders two rows by o, treating nulls as larger than any value so
// they come last ascending and first descending. identity breaks ties.
func (o Ordering) Compare(a, b Row, identity string) (int, error) {
	field := o.Field
	if field == "" {
		field = identity
	}
	cmp, err := compareField(a, b, field)
	if err != nil {
		return 0, err
	}
	if o.Descending {
		cmp = -cmp
	}
	if cmp != 0 || field == identity {
		return cmp, nil
	}
	return compareField(a, b, identity)
}

func compareField(a, b Row, field string) (int, error) {
	av, _ := a.Field(field)
	bv, _ := b.Field(field)
	x, xNull := normalize(av)
	y, yNull := normalize(bv)
	switch {
	case xNull && yNull:
		return 0, nil
	case xNull:
		return 1, nil
	case yNull:
		return -1, nil
	}
	return compareValues(x, y)
}

// SortRows stable-sorts rows in place by o.
func SortRows[R Row](rows []R, o Ordering, identity string) error {
	var firstErr error
	sort.SliceStable(rows, func(i, j int) bool {
		cmp, err := o.Compare(rows[i], rows[j], identity)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return cmp < 0
	})
	return firstErr
}
