package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/noah-isme/edu-admin-api/internal/query"
)

// fetchFunc loads the rows of target whose column holds one of keys, as a
// slice of elem values.
type fetchFunc func(ctx context.Context, target *query.Schema, column string, keys []any, elem reflect.Type) (reflect.Value, error)

// loadIncludes fills the include fields of every element of items, a slice of
// entity structs, with one fetch per relation.
func loadIncludes(ctx context.Context, catalog *query.Catalog, s *query.Schema, items reflect.Value, names []string, fetch fetchFunc) error {
	if items.Len() == 0 {
		return nil
	}
	itemType := items.Type().Elem()
	for _, name := range names {
		rel, ok := s.Relation(name)
		if !ok {
			return fmt.Errorf("%w: %s has no relation %q", ErrUnknownInclude, s.Entity, name)
		}
		fieldIdx, ok := includeField(itemType, name)
		if !ok {
			return fmt.Errorf("%w: %s does not expose %q", ErrUnknownInclude, s.Entity, name)
		}
		fieldType := itemType.Field(fieldIdx).Type
		if (rel.Many && fieldType.Kind() != reflect.Slice) || (!rel.Many && fieldType.Kind() != reflect.Pointer) {
			return fmt.Errorf("%w: %s field for %q has the wrong shape", ErrUnknownInclude, s.Entity, name)
		}
		elem := fieldType.Elem()

		keys := make([]any, 0, items.Len())
		seen := make(map[any]struct{}, items.Len())
		for i := 0; i < items.Len(); i++ {
			f, ok := column(items.Index(i), rel.LocalColumn)
			if !ok {
				return fmt.Errorf("%s: column %q not mapped", s.Entity, rel.LocalColumn)
			}
			key, ok := keyOf(f)
			if !ok {
				continue
			}
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				keys = append(keys, key)
			}
		}
		if len(keys) == 0 {
			continue
		}

		target, _ := catalog.Schema(rel.Target)
		related, err := fetch(ctx, target, rel.TargetColumn, keys, elem)
		if err != nil {
			return fmt.Errorf("include %s.%s: %w", s.Entity, name, err)
		}
		groups := make(map[any][]reflect.Value, related.Len())
		for i := 0; i < related.Len(); i++ {
			row := related.Index(i)
			f, ok := column(row, rel.TargetColumn)
			if !ok {
				return fmt.Errorf("%s: column %q not mapped", target.Entity, rel.TargetColumn)
			}
			if key, ok := keyOf(f); ok {
				groups[key] = append(groups[key], row)
			}
		}

		for i := 0; i < items.Len(); i++ {
			item := items.Index(i)
			f, _ := column(item, rel.LocalColumn)
			key, ok := keyOf(f)
			if !ok {
				continue
			}
			matches := groups[key]
			field := item.Field(fieldIdx)
			if rel.Many {
				slice := reflect.MakeSlice(fieldType, 0, len(matches))
				for _, m := range matches {
					slice = reflect.Append(slice, m)
				}
				field.Set(slice)
				continue
			}
			if len(matches) > 0 {
				ptr := reflect.New(elem)
				ptr.Elem().Set(matches[0])
				field.Set(ptr)
			}
		}
	}
	return nil
}
