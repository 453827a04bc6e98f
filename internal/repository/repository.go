package repository

import (
	"context"
	"errors"

	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
)

var (
	// ErrInvalidPagination is returned when page number or size is below 1.
	ErrInvalidPagination = errors.New("page number and page size must be at least 1")
	// ErrDuplicate is returned when a write would repeat a unique key.
	ErrDuplicate = errors.New("duplicate record")
	// ErrUnknownInclude is returned for an eager-load name the entity does not declare.
	ErrUnknownInclude = errors.New("unknown include")
	// ErrOutOfScope is returned when a scoped write would leave its predicate.
	ErrOutOfScope = errors.New("row outside write scope")
)

// Options tune a read.
type Options struct {
	Include  []string
	Tracking bool
}

// Option configures a read.
type Option func(*Options)

// WithInclude eager-loads the named relations into fields tagged include:"<name>".
func WithInclude(relations ...string) Option {
	return func(o *Options) {
		for _, r := range relations {
			if r != "" {
				o.Include = append(o.Include, r)
			}
		}
	}
}

// WithTracking locks the matched rows for the surrounding transaction. The
// memory adapter serialises writes under its store lock and ignores it.
func WithTracking() Option {
	return func(o *Options) { o.Tracking = true }
}

func collectOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Repository is the storage contract shared by every entity type. A nil
// predicate selects every row. GetOne and Update report sql.ErrNoRows when
// nothing matches.
//
// AddScoped and UpdateScoped apply a write atomically and keep it only when
// the resulting row matches pred, reporting ErrOutOfScope otherwise.
// UpdateScoped also requires the current row to match pred and reports
// sql.ErrNoRows when it does not.
type Repository[E any] interface {
	GetOne(ctx context.Context, pred query.Predicate, opts ...Option) (*E, error)
	GetMany(ctx context.Context, pred query.Predicate, order query.Ordering, opts ...Option) ([]E, error)
	GetPaginated(ctx context.Context, page, size int, pred query.Predicate, order query.Ordering, opts ...Option) (*models.Page[E], error)
	Count(ctx context.Context, pred query.Predicate) (int, error)
	Exists(ctx context.Context, pred query.Predicate) (bool, error)
	Add(ctx context.Context, entity *E) error
	Update(ctx context.Context, entity *E) error
	AddScoped(ctx context.Context, entity *E, pred query.Predicate) error
	UpdateScoped(ctx context.Context, entity *E, pred query.Predicate) error
	Delete(ctx context.Context, entity *E) error
	DeleteWhere(ctx context.Context, pred query.Predicate) (int, error)
}

func pageOffset(page, size int) (int, error) {
	if page < 1 || size < 1 {
		return 0, ErrInvalidPagination
	}
	return (page - 1) * size, nil
}
