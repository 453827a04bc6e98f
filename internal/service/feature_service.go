package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-admin-api/internal/access"
	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
	"github.com/noah-isme/edu-admin-api/internal/repository"
)

const featureCatalogPrefix = "features:catalog:"

// FeatureService serves the feature catalog and keeps its cache coherent
// with writes.
type FeatureService struct {
	*EntityService[models.Feature, *models.Feature]
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewFeatureService constructs FeatureService.
func NewFeatureService(repo repository.Repository[models.Feature], cache *CacheService, ttl time.Duration, deps EntityDeps) *FeatureService {
	scoped := NewEntityService[models.Feature, *models.Feature](models.EntityFeature, repo, deps)
	return &FeatureService{EntityService: scoped, cache: cache, ttl: ttl, logger: scoped.logger}
}

// CatalogKey returns the cache key for the catalog seen through scope.
// Callers with the same scope share an entry.
func CatalogKey(scope query.Predicate) string {
	if scope == nil {
		return featureCatalogPrefix + "all"
	}
	return featureCatalogPrefix + uuid.NewSHA1(uuid.NameSpaceOID, []byte(query.Describe(scope))).String()
}

// Catalog returns the features visible to caller ordered by name and whether
// they came from the cache.
func (s *FeatureService) Catalog(ctx context.Context, caller access.Identity) ([]models.Feature, bool, error) {
	scope := s.scope(caller)
	if scope == query.False {
		return []models.Feature{}, false, nil
	}
	var features []models.Feature
	hit, err := s.cache.Remember(ctx, CatalogKey(scope), s.ttl, &features, func(ctx context.Context) error {
		items, err := s.repo.GetMany(ctx, scope, query.Ordering{Field: "name"})
		if err != nil {
			return storeError(s.entity, "list", err)
		}
		features = items
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	s.logger.Debug("feature catalog served", zap.Bool("cache_hit", hit), zap.Int("count", len(features)))
	if features == nil {
		features = []models.Feature{}
	}
	return features, hit, nil
}

// Create stores a feature and drops cached catalogs.
func (s *FeatureService) Create(ctx context.Context, caller access.Identity, item *models.Feature) (*models.Feature, error) {
	created, err := s.EntityService.Create(ctx, caller, item)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, featureCatalogPrefix+"*")
	return created, nil
}

// Update replaces a feature and drops cached catalogs.
func (s *FeatureService) Update(ctx context.Context, caller access.Identity, id int64, item *models.Feature) (*models.Feature, error) {
	updated, err := s.EntityService.Update(ctx, caller, id, item)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, featureCatalogPrefix+"*")
	return updated, nil
}

// Delete removes a feature and drops cached catalogs.
func (s *FeatureService) Delete(ctx context.Context, caller access.Identity, id int64) error {
	if err := s.EntityService.Delete(ctx, caller, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, featureCatalogPrefix+"*")
	return nil
}
