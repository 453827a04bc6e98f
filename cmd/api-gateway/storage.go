package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-admin-api/internal/query"
	"github.com/noah-isme/edu-admin-api/internal/repository"
	"github.com/noah-isme/edu-admin-api/pkg/config"
	"github.com/noah-isme/edu-admin-api/pkg/database"
)

// storage hands out repositories for the configured driver.
type storage struct {
	catalog  *query.Catalog
	db       *sqlx.DB
	memory   *repository.MemoryStore
	observer repository.QueryObserver
}

func openStorage(ctx context.Context, cfg *config.Config, catalog *query.Catalog, observer repository.QueryObserver, logr *zap.Logger) (*storage, error) {
	s := &storage{catalog: catalog, observer: observer}
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		s.memory = repository.NewMemoryStore(catalog)
		if cfg.Storage.SeedDemo {
			if err := repository.SeedDemo(ctx, s.memory); err != nil {
				return nil, fmt.Errorf("seed demo data: %w", err)
			}
			logr.Info("memory store seeded with demo data")
		}
	default:
		db, err := database.NewPostgres(ctx, cfg.Database, logr)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, db.DB); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		s.db = db
	}
	return s, nil
}

func (s *storage) ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

func (s *storage) close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func repoFor[E any](s *storage, entity string) (repository.Repository[E], error) {
	if s.memory != nil {
		repo, err := repository.NewMemoryRepository[E](s.memory, entity)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
	repo, err := repository.NewSQLRepository[E](s.db, s.catalog, entity, s.observer)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
