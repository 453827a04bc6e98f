package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-admin-api/internal/access"
	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
	"github.com/noah-isme/edu-admin-api/internal/repository"
	appErrors "github.com/noah-isme/edu-admin-api/pkg/errors"
)

const (
	identityColumn     = "id"
	defaultMaxPageSize = 100
)

// VisibilityResolver yields the rows of an entity a caller may see.
type VisibilityResolver interface {
	Resolve(entity string, id access.Identity) query.Predicate
}

// Filter is implemented by the per-entity list filters.
type Filter interface {
	Predicate() query.Predicate
}

// ListRequest describes one page of a scoped list query.
type ListRequest struct {
	Filter   query.Predicate
	SortBy   string
	Desc     bool
	Page     int
	PageSize int
	Include  []string
}

// EntityDeps groups the collaborators every entity service shares.
type EntityDeps struct {
	Resolver    VisibilityResolver
	Sorts       *query.SortRegistry
	Validator   *validator.Validate
	Metrics     *MetricsService
	Logger      *zap.Logger
	MaxPageSize int
}

// EntityService runs role-scoped reads and writes for one entity type.
type EntityService[E any, P models.Record[E]] struct {
	entity      string
	repo        repository.Repository[E]
	resolver    VisibilityResolver
	sorts       *query.SortRegistry
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	maxPageSize int
}

// NewEntityService constructs an EntityService.
func NewEntityService[E any, P models.Record[E]](entity string, repo repository.Repository[E], deps EntityDeps) *EntityService[E, P] {
	if deps.Resolver == nil {
		deps.Resolver = access.NewDefaultResolver()
	}
	if deps.Sorts == nil {
		deps.Sorts = query.NewSortRegistry()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.MaxPageSize <= 0 {
		deps.MaxPageSize = defaultMaxPageSize
	}
	return &EntityService[E, P]{
		entity:      entity,
		repo:        repo,
		resolver:    deps.Resolver,
		sorts:       deps.Sorts,
		validator:   deps.Validator,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		maxPageSize: deps.MaxPageSize,
	}
}

// Entity returns the entity name the service is bound to.
func (s *EntityService[E, P]) Entity() string {
	return s.entity
}

func (s *EntityService[E, P]) scope(caller access.Identity) query.Predicate {
	pred := s.resolver.Resolve(s.entity, caller)
	if pred == query.False {
		s.metrics.RecordDeniedScope(s.entity, caller.Role)
	}
	return pred
}

func (s *EntityService[E, P]) byID(caller access.Identity, id int64) query.Predicate {
	return query.Combine(s.scope(caller), query.Eq(identityColumn, id))
}

// List returns one page of the rows visible to caller that also match the
// request filter.
func (s *EntityService[E, P]) List(ctx context.Context, caller access.Identity, req ListRequest) (*models.Page[E], error) {
	if req.Page < 1 || req.PageSize < 1 {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "page and limit must be at least 1")
	}
	if req.PageSize > s.maxPageSize {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("limit must not exceed %d", s.maxPageSize))
	}
	pred := query.Combine(s.scope(caller), req.Filter)
	order := s.sorts.Resolve(s.entity, req.SortBy, req.Desc)
	s.metrics.ObservePageSize(s.entity, req.PageSize)

	page, err := s.repo.GetPaginated(ctx, req.Page, req.PageSize, pred, order, repository.WithInclude(req.Include...))
	if err != nil {
		return nil, storeError(s.entity, "list", err)
	}
	s.logger.Debug("entity page served",
		zap.String("entity", s.entity),
		zap.String("role", string(caller.Role)),
		zap.String("predicate", query.Describe(pred)),
		zap.Int("page", req.Page),
		zap.Int("total", page.TotalRecords),
	)
	return page, nil
}

// All returns every visible row matching filter in the requested order.
func (s *EntityService[E, P]) All(ctx context.Context, caller access.Identity, filter query.Predicate, sortBy string, desc bool, include ...string) ([]E, error) {
	pred := query.Combine(s.scope(caller), filter)
	items, err := s.repo.GetMany(ctx, pred, s.sorts.Resolve(s.entity, sortBy, desc), repository.WithInclude(include...))
	if err != nil {
		return nil, storeError(s.entity, "list", err)
	}
	return items, nil
}

// Count returns the number of visible rows matching filter.
func (s *EntityService[E, P]) Count(ctx context.Context, caller access.Identity, filter query.Predicate) (int, error) {
	n, err := s.repo.Count(ctx, query.Combine(s.scope(caller), filter))
	if err != nil {
		return 0, storeError(s.entity, "count", err)
	}
	return n, nil
}

// Get returns one visible row. Rows outside the caller's scope are reported
// as not found.
func (s *EntityService[E, P]) Get(ctx context.Context, caller access.Identity, id int64, include ...string) (*E, error) {
	item, err := s.repo.GetOne(ctx, s.byID(caller, id), repository.WithInclude(include...))
	if err != nil {
		return nil, storeError(s.entity, "load", err)
	}
	return item, nil
}

// Create validates and stores a new row. The stored row must fall inside the
// caller's scope.
func (s *EntityService[E, P]) Create(ctx context.Context, caller access.Identity, item *E) (*E, error) {
	if err := s.validate(item); err != nil {
		return nil, err
	}
	scope := s.scope(caller)
	if scope == query.False {
		return nil, outOfScope(s.entity)
	}
	P(item).SetID(0)
	if err := s.repo.AddScoped(ctx, item, scope); err != nil {
		return nil, storeError(s.entity, "create", err)
	}
	s.logger.Info("entity created",
		zap.String("entity", s.entity),
		zap.Int64("id", P(item).GetID()),
		zap.String("by", caller.UserID),
	)
	return item, nil
}

// Update replaces a row the caller can see. The replacement must stay inside
// the caller's scope.
func (s *EntityService[E, P]) Update(ctx context.Context, caller access.Identity, id int64, item *E) (*E, error) {
	if err := s.validate(item); err != nil {
		return nil, err
	}
	P(item).SetID(id)
	if err := s.repo.UpdateScoped(ctx, item, s.scope(caller)); err != nil {
		return nil, storeError(s.entity, "update", err)
	}
	s.logger.Info("entity updated", zap.String("entity", s.entity), zap.Int64("id", id), zap.String("by", caller.UserID))
	return item, nil
}

// Delete removes a row the caller can see.
func (s *EntityService[E, P]) Delete(ctx context.Context, caller access.Identity, id int64) error {
	current, err := s.repo.GetOne(ctx, s.byID(caller, id))
	if err != nil {
		return storeError(s.entity, "load", err)
	}
	if err := s.repo.Delete(ctx, current); err != nil {
		return storeError(s.entity, "delete", err)
	}
	s.logger.Info("entity deleted", zap.String("entity", s.entity), zap.Int64("id", id), zap.String("by", caller.UserID))
	return nil
}

func (s *EntityService[E, P]) validate(item *E) error {
	if item == nil {
		return appErrors.Clone(appErrors.ErrValidation, "missing "+label(s.entity)+" payload")
	}
	if err := s.validator.Struct(item); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+label(s.entity)+" payload")
	}
	return nil
}

func label(entity string) string {
	return strings.ReplaceAll(entity, "_", " ")
}

func notFound(entity string) error {
	return appErrors.Clone(appErrors.ErrNotFound, label(entity)+" not found")
}

func outOfScope(entity string) error {
	return appErrors.Clone(appErrors.ErrForbidden, label(entity)+" would fall outside your scope")
}

// storeError maps repository failures onto the API error taxonomy.
func storeError(entity, action string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return notFound(entity)
	case errors.Is(err, repository.ErrOutOfScope):
		return appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, label(entity)+" would fall outside your scope")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, label(entity)+" already exists")
	case errors.Is(err, query.ErrInvalidPredicate),
		errors.Is(err, repository.ErrUnknownInclude),
		errors.Is(err, repository.ErrInvalidPagination):
		return appErrors.Wrap(err, appErrors.ErrInvalidArgument.Code, appErrors.ErrInvalidArgument.Status, "invalid "+label(entity)+" query")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to "+action+" "+label(entity))
	}
}
