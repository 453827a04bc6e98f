package main

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-admin-api/internal/access"
	"github.com/noah-isme/edu-admin-api/internal/handler"
	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/repository"
	"github.com/noah-isme/edu-admin-api/internal/service"
	"github.com/noah-isme/edu-admin-api/pkg/cache"
	"github.com/noah-isme/edu-admin-api/pkg/config"
)

// services groups everything the router mounts.
type services struct {
	admins          *service.EntityService[models.Admin, *models.Admin]
	teachers        *service.EntityService[models.Teacher, *models.Teacher]
	students        *service.EntityService[models.Student, *models.Student]
	teacherStudents *service.EntityService[models.TeacherStudent, *models.TeacherStudent]
	parentStudents  *service.EntityService[models.ParentStudent, *models.ParentStudent]
	courses         *service.EntityService[models.Course, *models.Course]
	assessments     *service.EntityService[models.Assessment, *models.Assessment]
	goals           *service.EntityService[models.Goal, *models.Goal]
	diaryEntries    *service.EntityService[models.DiaryEntry, *models.DiaryEntry]
	rewards         *service.EntityService[models.Reward, *models.Reward]
	resources       *service.EntityService[models.Resource, *models.Resource]
	enrollments     *service.EnrollmentService
	features        *service.FeatureService
	exports         *service.ExportService
	tokens          *service.TokenService
}

type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *service.MetricsService
	storage  *storage
	redis    *redis.Client
	services services
}

type builder struct {
	storage *storage
	deps    service.EntityDeps
	err     error
}

func repoOf[E any](b *builder, entity string) repository.Repository[E] {
	if b.err != nil {
		return nil
	}
	repo, err := repoFor[E](b.storage, entity)
	if err != nil {
		b.err = fmt.Errorf("%s repository: %w", entity, err)
		return nil
	}
	return repo
}

func build[E any, P models.Record[E]](b *builder, entity string) *service.EntityService[E, P] {
	repo := repoOf[E](b, entity)
	if repo == nil {
		return nil
	}
	return service.NewEntityService[E, P](entity, repo, b.deps)
}

func newApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*app, error) {
	catalog := repository.NewCatalog()
	resolver := access.NewDefaultResolver()
	if err := resolver.Validate(catalog); err != nil {
		return nil, fmt.Errorf("visibility policies: %w", err)
	}

	metrics := service.NewMetricsService()
	store, err := openStorage(ctx, cfg, catalog, metrics, logr)
	if err != nil {
		return nil, err
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, cfg.Cache.Enabled)
	if err != nil {
		_ = store.close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, cfg.Cache.Prefix, logr),
		metrics,
		cfg.Cache.FeatureTTL,
		logr,
		cfg.Cache.Enabled && redisClient != nil,
	)

	validate := validator.New()
	b := &builder{storage: store, deps: service.EntityDeps{
		Resolver:    resolver,
		Sorts:       service.NewSortRegistry(),
		Validator:   validate,
		Metrics:     metrics,
		Logger:      logr,
		MaxPageSize: cfg.Pagination.MaxPageSize,
	}}

	var svc services
	svc.admins = build[models.Admin, *models.Admin](b, models.EntityAdmin)
	svc.teachers = build[models.Teacher, *models.Teacher](b, models.EntityTeacher)
	svc.students = build[models.Student, *models.Student](b, models.EntityStudent)
	svc.teacherStudents = build[models.TeacherStudent, *models.TeacherStudent](b, models.EntityTeacherStudent)
	svc.parentStudents = build[models.ParentStudent, *models.ParentStudent](b, models.EntityParentStudent)
	svc.courses = build[models.Course, *models.Course](b, models.EntityCourse)
	svc.assessments = build[models.Assessment, *models.Assessment](b, models.EntityAssessment)
	svc.goals = build[models.Goal, *models.Goal](b, models.EntityGoal)
	svc.diaryEntries = build[models.DiaryEntry, *models.DiaryEntry](b, models.EntityDiaryEntry)
	svc.rewards = build[models.Reward, *models.Reward](b, models.EntityReward)
	svc.resources = build[models.Resource, *models.Resource](b, models.EntityResource)
	if enrollments := repoOf[models.Enrollment](b, models.EntityEnrollment); enrollments != nil {
		svc.enrollments = service.NewEnrollmentService(enrollments, svc.students, svc.admins, b.deps)
	}
	if features := repoOf[models.Feature](b, models.EntityFeature); features != nil {
		svc.features = service.NewFeatureService(features, cacheSvc, cfg.Cache.FeatureTTL, b.deps)
	}
	if b.err != nil {
		_ = store.close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, b.err
	}
	svc.exports = service.NewExportService(svc.assessments, cfg.Exports.Enabled, cfg.Exports.MaxRows, logr, nil, nil)
	svc.tokens = service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Expiry:   cfg.JWT.Expiration,
	}, validate)

	return &app{cfg: cfg, logger: logr, metrics: metrics, storage: store, redis: redisClient, services: svc}, nil
}

func (a *app) readinessChecks() map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{"storage": a.storage.ping}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return checks
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if err := a.storage.close(); err != nil {
		a.logger.Warn("storage close failed", zap.Error(err))
	}
}
