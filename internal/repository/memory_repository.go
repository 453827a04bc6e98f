package repository

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
)

// MemoryStore is a process-local backing store shared by every
// MemoryRepository. Predicates may walk relations across its tables.
type MemoryStore struct {
	mu      sync.RWMutex
	catalog *query.Catalog
	tables  map[string]*memTable
}

type memTable struct {
	nextID int64
	rows   map[int64]reflect.Value
}

// NewMemoryStore creates an empty store over catalog.
func NewMemoryStore(catalog *query.Catalog) *MemoryStore {
	return &MemoryStore{catalog: catalog, tables: make(map[string]*memTable)}
}

// table returns the table of entity, creating it. Callers hold the write lock
// or accept a nil result under the read lock.
func (s *MemoryStore) table(entity string, create bool) *memTable {
	t, ok := s.tables[entity]
	if !ok && create {
		t = &memTable{rows: make(map[int64]reflect.Value)}
		s.tables[entity] = t
	}
	return t
}

// sortedRows returns the rows of entity in identity order.
func (s *MemoryStore) sortedRows(entity string) []record {
	t := s.table(entity, false)
	if t == nil {
		return nil
	}
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]record, len(ids))
	for i, id := range ids {
		out[i] = record{entity: entity, v: t.rows[id]}
	}
	return out
}

// Related implements query.Navigator. The store lock must be held.
func (s *MemoryStore) Related(row query.Row, relation string) ([]query.Row, error) {
	r, ok := row.(record)
	if !ok {
		return nil, fmt.Errorf("memory store cannot navigate %T", row)
	}
	schema, _ := s.catalog.Schema(r.entity)
	rel, ok := schema.Relation(relation)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no relation %q", query.ErrInvalidPredicate, r.entity, relation)
	}
	local, ok := column(r.v, rel.LocalColumn)
	if !ok {
		return nil, fmt.Errorf("%s: column %q not mapped", r.entity, rel.LocalColumn)
	}
	key, ok := keyOf(local)
	if !ok {
		return nil, nil
	}
	target, _ := s.catalog.Schema(rel.Target)
	t := s.table(rel.Target, false)
	if t == nil {
		return nil, nil
	}
	if rel.TargetColumn == target.Identity {
		id, _ := key.(int64)
		if v, ok := t.rows[id]; ok {
			return []query.Row{record{entity: rel.Target, v: v}}, nil
		}
		return nil, nil
	}
	var out []query.Row
	for _, rec := range s.sortedRows(rel.Target) {
		f, ok := column(rec.v, rel.TargetColumn)
		if !ok {
			return nil, fmt.Errorf("%s: column %q not mapped", rel.Target, rel.TargetColumn)
		}
		if k, ok := keyOf(f); ok && k == key {
			out = append(out, rec)
		}
	}
	return out, nil
}

// fetch serves eager loads from the store.
func (s *MemoryStore) fetch(ctx context.Context, target *query.Schema, col string, keys []any, elem reflect.Type) (reflect.Value, error) {
	if err := ctx.Err(); err != nil {
		return reflect.Value{}, err
	}
	wanted := make(map[any]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := reflect.MakeSlice(reflect.SliceOf(elem), 0, len(keys))
	for _, rec := range s.sortedRows(target.Entity) {
		if rec.v.Type() != elem {
			return reflect.Value{}, fmt.Errorf("%s rows are %s, not %s", target.Entity, rec.v.Type(), elem)
		}
		f, ok := column(rec.v, col)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%s: column %q not mapped", target.Entity, col)
		}
		if k, ok := keyOf(f); ok {
			if _, hit := wanted[k]; hit {
				out = reflect.Append(out, snapshot(rec.v))
			}
		}
	}
	return out, nil
}

// checkUnique reports ErrDuplicate when v repeats a unique key of another
// row. Null key parts never conflict. The write lock must be held.
func (s *MemoryStore) checkUnique(schema *query.Schema, t *memTable, id int64, v reflect.Value) error {
	for _, key := range schema.Unique {
		want := make([]any, len(key))
		complete := true
		for i, col := range key {
			f, _ := column(v, col)
			k, ok := keyOf(f)
			if !ok {
				complete = false
				break
			}
			want[i] = k
		}
		if !complete {
			continue
		}
		for otherID, other := range t.rows {
			if otherID == id {
				continue
			}
			same := true
			for i, col := range key {
				f, _ := column(other, col)
				k, ok := keyOf(f)
				if !ok || k != want[i] {
					same = false
					break
				}
			}
			if same {
				return fmt.Errorf("%w: %s %v", ErrDuplicate, schema.Entity, key)
			}
		}
	}
	return nil
}

// MemoryRepository implements Repository over a MemoryStore.
type MemoryRepository[E any] struct {
	store  *MemoryStore
	schema *query.Schema
}

// NewMemoryRepository binds entity of the store's catalog to E.
func NewMemoryRepository[E any](store *MemoryStore, entity string) (*MemoryRepository[E], error) {
	schema, ok := store.catalog.Schema(entity)
	if !ok {
		return nil, fmt.Errorf("memory repository: unknown entity %q", entity)
	}
	if t := reflect.TypeOf((*E)(nil)).Elem(); t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("memory repository: %s is not a struct", t)
	}
	return &MemoryRepository[E]{store: store, schema: schema}, nil
}

func (r *MemoryRepository[E]) selectRows(ctx context.Context, pred query.Predicate, order query.Ordering) ([]E, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.store.catalog.Validate(r.schema.Entity, pred); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var matched []record
	for _, rec := range r.store.sortedRows(r.schema.Entity) {
		ok, err := query.Evaluate(pred, rec, r.store)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", r.schema.Entity, err)
		}
		if ok {
			matched = append(matched, rec)
		}
	}
	if err := query.SortRows(matched, order, r.schema.Identity); err != nil {
		return nil, fmt.Errorf("order %s: %w", r.schema.Entity, err)
	}
	out := make([]E, len(matched))
	for i, rec := range matched {
		out[i] = snapshot(rec.v).Interface().(E)
	}
	return out, nil
}

func (r *MemoryRepository[E]) include(ctx context.Context, items []E, o Options) error {
	if len(o.Include) == 0 {
		return nil
	}
	return loadIncludes(ctx, r.store.catalog, r.schema, reflect.ValueOf(items), o.Include, r.store.fetch)
}

// GetOne returns the lowest-identity row matching pred.
func (r *MemoryRepository[E]) GetOne(ctx context.Context, pred query.Predicate, opts ...Option) (*E, error) {
	items, err := r.selectRows(ctx, pred, query.Ordering{})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, sql.ErrNoRows
	}
	items = items[:1]
	if err := r.include(ctx, items, collectOptions(opts)); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// GetMany returns every row matching pred in the given order.
func (r *MemoryRepository[E]) GetMany(ctx context.Context, pred query.Predicate, order query.Ordering, opts ...Option) ([]E, error) {
	items, err := r.selectRows(ctx, pred, order)
	if err != nil {
		return nil, err
	}
	if err := r.include(ctx, items, collectOptions(opts)); err != nil {
		return nil, err
	}
	return items, nil
}

// GetPaginated filters and orders before cutting the page window.
func (r *MemoryRepository[E]) GetPaginated(ctx context.Context, page, size int, pred query.Predicate, order query.Ordering, opts ...Option) (*models.Page[E], error) {
	offset, err := pageOffset(page, size)
	if err != nil {
		return nil, err
	}
	items, err := r.selectRows(ctx, pred, order)
	if err != nil {
		return nil, err
	}
	total := len(items)
	window := []E{}
	if offset < total {
		end := offset + size
		if end > total {
			end = total
		}
		window = items[offset:end]
	}
	if err := r.include(ctx, window, collectOptions(opts)); err != nil {
		return nil, err
	}
	return models.NewPage(window, total, page, size)
}

// Count returns the number of rows matching pred.
func (r *MemoryRepository[E]) Count(ctx context.Context, pred query.Predicate) (int, error) {
	items, err := r.selectRows(ctx, pred, query.Ordering{})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Exists reports whether any row matches pred.
func (r *MemoryRepository[E]) Exists(ctx context.Context, pred query.Predicate) (bool, error) {
	n, err := r.Count(ctx, pred)
	return n > 0, err
}

// Add stores a copy of entity and assigns its identity unless preset.
func (r *MemoryRepository[E]) Add(ctx context.Context, entity *E) error {
	return r.AddScoped(ctx, entity, nil)
}

// AddScoped stores entity and keeps it only if the stored row matches pred.
func (r *MemoryRepository[E]) AddScoped(ctx context.Context, entity *E, pred query.Predicate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.store.catalog.Validate(r.schema.Entity, pred); err != nil {
		return err
	}
	v := reflect.ValueOf(entity).Elem()
	stampCreated(v)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t := r.store.table(r.schema.Entity, true)
	id, err := identityOf(v, r.schema)
	if err != nil {
		return err
	}
	preset := id != 0
	if !preset {
		id = t.nextID + 1
	} else if _, taken := t.rows[id]; taken {
		return fmt.Errorf("%w: %s id %d", ErrDuplicate, r.schema.Entity, id)
	}
	if err := r.store.checkUnique(r.schema, t, id, v); err != nil {
		return err
	}
	if err := setIdentity(v, r.schema, id); err != nil {
		return err
	}
	t.rows[id] = snapshot(v)
	if err := r.requireMatch(id, t.rows[id], pred); err != nil {
		delete(t.rows, id)
		if !preset {
			_ = setIdentity(v, r.schema, 0)
		}
		return err
	}
	if id > t.nextID {
		t.nextID = id
	}
	return nil
}

// Update replaces the stored row with the same identity.
func (r *MemoryRepository[E]) Update(ctx context.Context, entity *E) error {
	return r.UpdateScoped(ctx, entity, nil)
}

// UpdateScoped replaces the stored row when both it and the new row match pred.
func (r *MemoryRepository[E]) UpdateScoped(ctx context.Context, entity *E, pred query.Predicate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.store.catalog.Validate(r.schema.Entity, pred); err != nil {
		return err
	}
	v := reflect.ValueOf(entity).Elem()
	id, err := identityOf(v, r.schema)
	if err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t := r.store.table(r.schema.Entity, true)
	current, ok := t.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	if pred != nil {
		visible, err := query.Evaluate(pred, record{entity: r.schema.Entity, v: current}, r.store)
		if err != nil {
			return fmt.Errorf("filter %s: %w", r.schema.Entity, err)
		}
		if !visible {
			return sql.ErrNoRows
		}
	}
	if err := r.store.checkUnique(r.schema, t, id, v); err != nil {
		return err
	}
	t.rows[id] = snapshot(v)
	if err := r.requireMatch(id, t.rows[id], pred); err != nil {
		t.rows[id] = current
		return err
	}
	return nil
}

// requireMatch evaluates pred against a stored row. The write lock must be held.
func (r *MemoryRepository[E]) requireMatch(id int64, row reflect.Value, pred query.Predicate) error {
	if pred == nil {
		return nil
	}
	ok, err := query.Evaluate(pred, record{entity: r.schema.Entity, v: row}, r.store)
	if err != nil {
		return fmt.Errorf("filter %s: %w", r.schema.Entity, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s %d", ErrOutOfScope, r.schema.Entity, id)
	}
	return nil
}

// Delete removes the row with the entity's identity.
func (r *MemoryRepository[E]) Delete(ctx context.Context, entity *E) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := identityOf(reflect.ValueOf(entity).Elem(), r.schema)
	if err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t := r.store.table(r.schema.Entity, true)
	if _, ok := t.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(t.rows, id)
	return nil
}

// DeleteWhere removes every row matching pred and returns how many went.
func (r *MemoryRepository[E]) DeleteWhere(ctx context.Context, pred query.Predicate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := r.store.catalog.Validate(r.schema.Entity, pred); err != nil {
		return 0, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var doomed []int64
	for _, rec := range r.store.sortedRows(r.schema.Entity) {
		ok, err := query.Evaluate(pred, rec, r.store)
		if err != nil {
			return 0, fmt.Errorf("filter %s: %w", r.schema.Entity, err)
		}
		if ok {
			id, _ := identityOf(rec.v, r.schema)
			doomed = append(doomed, id)
		}
	}
	t := r.store.table(r.schema.Entity, true)
	for _, id := range doomed {
		delete(t.rows, id)
	}
	return len(doomed), nil
}

// snapshot copies v without its eager-loaded fields. Pointer columns are
// cloned so stored rows never share memory with callers.
func snapshot(v reflect.Value) reflect.Value {
	out := reflect.New(v.Type()).Elem()
	out.Set(v)
	clearIncludes(out)
	clonePointers(out)
	return out
}
