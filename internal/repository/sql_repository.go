package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
)

const rootAlias = "t0"

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint breach.
const uniqueViolation = "23505"

// QueryObserver records the duration of a storage round-trip.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// dbtx is satisfied by both *sqlx.DB and *sqlx.Tx.
type dbtx interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// pageSnapshot makes the page and count queries see the same data.
var pageSnapshot = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// SQLRepository implements Repository on PostgreSQL through sqlx. Predicates
// and orderings are translated into a single statement per call.
type SQLRepository[E any] struct {
	db       *sqlx.DB
	q        dbtx
	catalog  *query.Catalog
	schema   *query.Schema
	observer QueryObserver
	builder  sq.StatementBuilderType
}

// NewSQLRepository binds entity of catalog to E.
func NewSQLRepository[E any](db *sqlx.DB, catalog *query.Catalog, entity string, observer QueryObserver) (*SQLRepository[E], error) {
	schema, ok := catalog.Schema(entity)
	if !ok {
		return nil, fmt.Errorf("sql repository: unknown entity %q", entity)
	}
	return &SQLRepository[E]{
		db:       db,
		q:        db,
		catalog:  catalog,
		schema:   schema,
		observer: observer,
		builder:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// inTx runs fn against a copy of r bound to one transaction. Calls already
// inside a transaction reuse it.
func (r *SQLRepository[E]) inTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *SQLRepository[E]) error) (err error) {
	if _, nested := r.q.(*sqlx.Tx); nested {
		return fn(r)
	}
	tx, err := r.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin %s transaction: %w", r.schema.Entity, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	bound := *r
	bound.q = tx
	if err = fn(&bound); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s transaction: %w", r.schema.Entity, err)
	}
	return nil
}

func (r *SQLRepository[E]) observe(op string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(r.schema.Entity+"."+op, time.Since(start))
	}
}

func (r *SQLRepository[E]) from() string {
	return r.schema.Table + " AS " + rootAlias
}

func (r *SQLRepository[E]) columns() []string {
	cols := make([]string, len(r.schema.Columns))
	for i, c := range r.schema.Columns {
		cols[i] = rootAlias + "." + c
	}
	return cols
}

func (r *SQLRepository[E]) where(b sq.SelectBuilder, pred query.Predicate) (sq.SelectBuilder, error) {
	clause, err := r.catalog.ToSQL(r.schema.Entity, rootAlias, pred)
	if err != nil {
		return b, err
	}
	if clause != nil {
		b = b.Where(clause)
	}
	return b, nil
}

func (r *SQLRepository[E]) selectQuery(pred query.Predicate, order query.Ordering) (sq.SelectBuilder, error) {
	b, err := r.where(r.builder.Select(r.columns()...).From(r.from()), pred)
	if err != nil {
		return b, err
	}
	terms, err := r.catalog.OrderBySQL(r.schema.Entity, rootAlias, order)
	if err != nil {
		return b, err
	}
	return b.OrderBy(terms...), nil
}

func (r *SQLRepository[E]) selectItems(ctx context.Context, op string, b sq.SelectBuilder) ([]E, error) {
	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", op, r.schema.Entity, err)
	}
	defer r.observe(op, time.Now())
	items := []E{}
	if err := r.q.SelectContext(ctx, &items, stmt, args...); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, r.schema.Entity, err)
	}
	return items, nil
}

func (r *SQLRepository[E]) include(ctx context.Context, items []E, o Options) error {
	if len(o.Include) == 0 {
		return nil
	}
	return loadIncludes(ctx, r.catalog, r.schema, reflect.ValueOf(items), o.Include, r.fetch)
}

func (r *SQLRepository[E]) fetch(ctx context.Context, target *query.Schema, col string, keys []any, elem reflect.Type) (reflect.Value, error) {
	cols := make([]string, len(target.Columns))
	for i, c := range target.Columns {
		cols[i] = rootAlias + "." + c
	}
	stmt, args, err := r.builder.Select(cols...).
		From(target.Table + " AS " + rootAlias).
		Where(sq.Eq{rootAlias + "." + col: keys}).
		OrderBy(rootAlias + "." + target.Identity + " ASC").
		ToSql()
	if err != nil {
		return reflect.Value{}, err
	}
	defer r.observe("include", time.Now())
	dest := reflect.New(reflect.SliceOf(elem))
	if err := r.q.SelectContext(ctx, dest.Interface(), stmt, args...); err != nil {
		return reflect.Value{}, err
	}
	return dest.Elem(), nil
}

// GetOne returns the lowest-identity row matching pred. WithTracking locks the
// row until the surrounding transaction ends; outside one the lock only lasts
// for the statement.
func (r *SQLRepository[E]) GetOne(ctx context.Context, pred query.Predicate, opts ...Option) (*E, error) {
	o := collectOptions(opts)
	b, err := r.selectQuery(pred, query.Ordering{})
	if err != nil {
		return nil, err
	}
	b = b.Limit(1)
	if o.Tracking {
		b = b.Suffix("FOR UPDATE")
	}
	items, err := r.selectItems(ctx, "get", b)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, sql.ErrNoRows
	}
	if err := r.include(ctx, items, o); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// GetMany returns every row matching pred in the given order.
func (r *SQLRepository[E]) GetMany(ctx context.Context, pred query.Predicate, order query.Ordering, opts ...Option) ([]E, error) {
	b, err := r.selectQuery(pred, order)
	if err != nil {
		return nil, err
	}
	items, err := r.selectItems(ctx, "list", b)
	if err != nil {
		return nil, err
	}
	if err := r.include(ctx, items, collectOptions(opts)); err != nil {
		return nil, err
	}
	return items, nil
}

// GetPaginated runs the windowed select and the count in one read-only
// repeatable-read transaction so both see the same rows.
func (r *SQLRepository[E]) GetPaginated(ctx context.Context, page, size int, pred query.Predicate, order query.Ordering, opts ...Option) (*models.Page[E], error) {
	offset, err := pageOffset(page, size)
	if err != nil {
		return nil, err
	}
	b, err := r.selectQuery(pred, order)
	if err != nil {
		return nil, err
	}
	b = b.Limit(uint64(size)).Offset(uint64(offset))

	var (
		items []E
		total int
	)
	err = r.inTx(ctx, pageSnapshot, func(tx *SQLRepository[E]) error {
		var err error
		if items, err = tx.selectItems(ctx, "page", b); err != nil {
			return err
		}
		if total, err = tx.Count(ctx, pred); err != nil {
			return err
		}
		return tx.include(ctx, items, collectOptions(opts))
	})
	if err != nil {
		return nil, err
	}
	return models.NewPage(items, total, page, size)
}

// Count returns the number of rows matching pred.
func (r *SQLRepository[E]) Count(ctx context.Context, pred query.Predicate) (int, error) {
	b, err := r.where(r.builder.Select("COUNT(*)").From(r.from()), pred)
	if err != nil {
		return 0, err
	}
	stmt, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count %s: %w", r.schema.Entity, err)
	}
	defer r.observe("count", time.Now())
	var total int
	if err := r.q.GetContext(ctx, &total, stmt, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.schema.Entity, err)
	}
	return total, nil
}

// Exists reports whether any row matches pred.
func (r *SQLRepository[E]) Exists(ctx context.Context, pred query.Predicate) (bool, error) {
	inner, err := r.where(sq.Select("1").From(r.from()), pred)
	if err != nil {
		return false, err
	}
	stmt, args, err := r.builder.Select().Column(sq.Expr("EXISTS (?)", inner)).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists %s: %w", r.schema.Entity, err)
	}
	defer r.observe("exists", time.Now())
	var exists bool
	if err := r.q.GetContext(ctx, &exists, stmt, args...); err != nil {
		return false, fmt.Errorf("exists %s: %w", r.schema.Entity, err)
	}
	return exists, nil
}

// Add inserts entity and stores the generated identity back into it. A preset
// identity is inserted as is.
func (r *SQLRepository[E]) Add(ctx context.Context, entity *E) error {
	v := reflect.ValueOf(entity).Elem()
	stampCreated(v)
	values, err := columnValues(v, r.schema)
	if err != nil {
		return err
	}
	if id, err := identityOf(v, r.schema); err != nil {
		return err
	} else if id != 0 {
		values[r.schema.Identity] = id
	}
	stmt, args, err := r.builder.Insert(r.schema.Table).
		SetMap(values).
		Suffix("RETURNING " + r.schema.Identity).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s: %w", r.schema.Entity, err)
	}
	defer r.observe("insert", time.Now())
	var id int64
	if err := r.q.QueryRowxContext(ctx, stmt, args...).Scan(&id); err != nil {
		return r.writeError("insert", err)
	}
	return setIdentity(v, r.schema, id)
}

// AddScoped inserts entity and commits only if the stored row matches pred.
func (r *SQLRepository[E]) AddScoped(ctx context.Context, entity *E, pred query.Predicate) error {
	if pred == nil {
		return r.Add(ctx, entity)
	}
	if err := r.catalog.Validate(r.schema.Entity, pred); err != nil {
		return err
	}
	return r.inTx(ctx, nil, func(tx *SQLRepository[E]) error {
		if err := tx.Add(ctx, entity); err != nil {
			return err
		}
		return tx.requireMatch(ctx, entity, pred)
	})
}

// UpdateScoped locks the row with the entity's identity, which must match
// pred, writes entity and commits only if the new row still matches pred.
func (r *SQLRepository[E]) UpdateScoped(ctx context.Context, entity *E, pred query.Predicate) error {
	if pred == nil {
		return r.Update(ctx, entity)
	}
	id, err := identityOf(reflect.ValueOf(entity).Elem(), r.schema)
	if err != nil {
		return err
	}
	return r.inTx(ctx, nil, func(tx *SQLRepository[E]) error {
		if _, err := tx.GetOne(ctx, query.Combine(pred, query.Eq(r.schema.Identity, id)), WithTracking()); err != nil {
			return err
		}
		if err := tx.Update(ctx, entity); err != nil {
			return err
		}
		return tx.requireMatch(ctx, entity, pred)
	})
}

func (r *SQLRepository[E]) requireMatch(ctx context.Context, entity *E, pred query.Predicate) error {
	id, err := identityOf(reflect.ValueOf(entity).Elem(), r.schema)
	if err != nil {
		return err
	}
	ok, err := r.Exists(ctx, query.Combine(pred, query.Eq(r.schema.Identity, id)))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s %d", ErrOutOfScope, r.schema.Entity, id)
	}
	return nil
}

// Update writes every column of entity by identity.
func (r *SQLRepository[E]) Update(ctx context.Context, entity *E) error {
	v := reflect.ValueOf(entity).Elem()
	id, err := identityOf(v, r.schema)
	if err != nil {
		return err
	}
	values, err := columnValues(v, r.schema)
	if err != nil {
		return err
	}
	stmt, args, err := r.builder.Update(r.schema.Table).
		SetMap(values).
		Where(sq.Eq{r.schema.Identity: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update %s: %w", r.schema.Entity, err)
	}
	return r.execOne(ctx, "update", stmt, args)
}

// Delete removes the row with the entity's identity.
func (r *SQLRepository[E]) Delete(ctx context.Context, entity *E) error {
	id, err := identityOf(reflect.ValueOf(entity).Elem(), r.schema)
	if err != nil {
		return err
	}
	stmt, args, err := r.builder.Delete(r.schema.Table).Where(sq.Eq{r.schema.Identity: id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", r.schema.Entity, err)
	}
	return r.execOne(ctx, "delete", stmt, args)
}

// DeleteWhere removes every row matching pred and returns how many went.
func (r *SQLRepository[E]) DeleteWhere(ctx context.Context, pred query.Predicate) (int, error) {
	b := r.builder.Delete(r.from())
	clause, err := r.catalog.ToSQL(r.schema.Entity, rootAlias, pred)
	if err != nil {
		return 0, err
	}
	if clause != nil {
		b = b.Where(clause)
	}
	stmt, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete %s: %w", r.schema.Entity, err)
	}
	defer r.observe("delete_where", time.Now())
	res, err := r.q.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, r.writeError("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", r.schema.Entity, err)
	}
	return int(n), nil
}

func (r *SQLRepository[E]) execOne(ctx context.Context, op, stmt string, args []any) error {
	defer r.observe(op, time.Now())
	res, err := r.q.ExecContext(ctx, stmt, args...)
	if err != nil {
		return r.writeError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, r.schema.Entity, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *SQLRepository[E]) writeError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s %s: %w", ErrDuplicate, op, r.schema.Entity, err)
	}
	return fmt.Errorf("%s %s: %w", op, r.schema.Entity, err)
}
