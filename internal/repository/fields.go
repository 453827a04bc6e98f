package repository

import (
	"fmt"
	"reflect"
	"time"

	"github.com/jmoiron/sqlx/reflectx"

	"github.com/noah-isme/edu-admin-api/internal/query"
)

var mapper = reflectx.NewMapper("db")

// record exposes a struct value as a query.Row keyed by db tags.
type record struct {
	entity string
	v      reflect.Value
}

func (r record) Field(name string) (any, bool) {
	f, ok := column(r.v, name)
	if !ok {
		return nil, false
	}
	return f.Interface(), true
}

func column(v reflect.Value, name string) (reflect.Value, bool) {
	fi := mapper.TypeMap(v.Type()).GetByPath(name)
	if fi == nil {
		return reflect.Value{}, false
	}
	return reflectx.FieldByIndexesReadOnly(v, fi.Index), true
}

func identityOf(v reflect.Value, s *query.Schema) (int64, error) {
	f, ok := column(v, s.Identity)
	if !ok {
		return 0, fmt.Errorf("%s: identity column %q not mapped", s.Entity, s.Identity)
	}
	return f.Int(), nil
}

func setIdentity(v reflect.Value, s *query.Schema, id int64) error {
	fi := mapper.TypeMap(v.Type()).GetByPath(s.Identity)
	if fi == nil {
		return fmt.Errorf("%s: identity column %q not mapped", s.Entity, s.Identity)
	}
	reflectx.FieldByIndexes(v, fi.Index).SetInt(id)
	return nil
}

// columnValues returns the mapped column values of v, skipping the identity.
func columnValues(v reflect.Value, s *query.Schema) (map[string]any, error) {
	out := make(map[string]any, len(s.Columns))
	for _, name := range s.Columns {
		if name == s.Identity {
			continue
		}
		f, ok := column(v, name)
		if !ok {
			return nil, fmt.Errorf("%s: column %q not mapped", s.Entity, name)
		}
		out[name] = f.Interface()
	}
	return out, nil
}

// stampCreated fills a zero created_at column with the current time.
func stampCreated(v reflect.Value) {
	fi := mapper.TypeMap(v.Type()).GetByPath("created_at")
	if fi == nil {
		return
	}
	f := reflectx.FieldByIndexes(v, fi.Index)
	if t, ok := f.Interface().(time.Time); ok && t.IsZero() {
		f.Set(reflect.ValueOf(time.Now().UTC()))
	}
}

// keyOf folds a column value into a comparable map key. Nulls report false.
func keyOf(v reflect.Value) (any, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), true
	case reflect.String:
		return v.String(), true
	case reflect.Bool:
		return v.Bool(), true
	}
	if t, ok := v.Interface().(time.Time); ok {
		return t.UnixNano(), true
	}
	return v.Interface(), v.Comparable()
}

// includeField finds the struct field tagged include:"<name>".
func includeField(t reflect.Type, name string) (int, bool) {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("include") == name {
			return i, true
		}
	}
	return 0, false
}

// clearIncludes zeroes every eager-loaded field of v.
func clearIncludes(v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("include") != "" {
			v.Field(i).Set(reflect.Zero(t.Field(i).Type))
		}
	}
}

// clonePointers replaces every non-nil pointer column of v with a fresh copy.
func clonePointers(v reflect.Value) {
	for _, fi := range mapper.TypeMap(v.Type()).Index {
		if fi.Field.Type.Kind() != reflect.Pointer || throughPointer(v.Type(), fi.Index) {
			continue
		}
		f := v.FieldByIndex(fi.Index)
		if f.IsNil() {
			continue
		}
		clone := reflect.New(f.Type().Elem())
		clone.Elem().Set(f.Elem())
		f.Set(clone)
	}
}

// throughPointer reports whether reaching index from t dereferences a pointer.
func throughPointer(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		t = t.Field(i).Type
		if t.Kind() == reflect.Pointer {
			return true
		}
	}
	return false
}
