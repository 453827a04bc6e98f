package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/edu-admin-api/internal/handler"
	"github.com/noah-isme/edu-admin-api/internal/middleware"
	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/service"
	"github.com/noah-isme/edu-admin-api/pkg/config"
	"github.com/noah-isme/edu-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/edu-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edu-admin-api/pkg/middleware/requestid"
)

type crudRoutes interface {
	RegisterRead(r gin.IRoutes)
	RegisterWrite(r gin.IRoutes)
}

func mount(api *gin.RouterGroup, path string, h crudRoutes, writers ...gin.HandlerFunc) {
	h.RegisterRead(api.Group(path))
	h.RegisterWrite(api.Group(path, writers...))
}

func (a *app) router() *gin.Engine {
	if a.cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(a.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(a.metrics, a.readinessChecks())
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if a.cfg.Docs.Enabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	svc := a.services
	size := a.cfg.Pagination.DefaultPageSize
	managers := middleware.RequireRoles(models.RoleSuperUser, models.RoleAdmin)

	api := r.Group(a.cfg.APIPrefix, middleware.OptionalAuth(svc.tokens))
	api.GET("/metrics/summary", managers, metricsHandler.Summary)
	if a.cfg.DevTokens.Enabled && a.cfg.Env != config.EnvProduction {
		api.POST("/auth/dev-token", handler.NewTokenHandler(svc.tokens, a.cfg.DevTokens.AllowSuperUser).Issue)
	}

	mount(api, "/admins", handler.NewEntityHandler[models.Admin, service.AdminFilter](svc.admins, size), middleware.RequireRoles(models.RoleSuperUser))
	mount(api, "/teachers", handler.NewEntityHandler[models.Teacher, service.TeacherFilter](svc.teachers, size), managers)
	mount(api, "/students", handler.NewEntityHandler[models.Student, service.StudentFilter](svc.students, size), managers)
	mount(api, "/teacher-students", handler.NewEntityHandler[models.TeacherStudent, service.TeacherStudentFilter](svc.teacherStudents, size), managers)
	mount(api, "/parent-students", handler.NewEntityHandler[models.ParentStudent, service.ParentStudentFilter](svc.parentStudents, size), managers)
	mount(api, "/courses", handler.NewEntityHandler[models.Course, service.CourseFilter](svc.courses, size), managers)
	mount(api, "/goals", handler.NewEntityHandler[models.Goal, service.GoalFilter](svc.goals, size), managers)
	mount(api, "/diary-entries", handler.NewEntityHandler[models.DiaryEntry, service.DiaryEntryFilter](svc.diaryEntries, size), managers)
	mount(api, "/rewards", handler.NewEntityHandler[models.Reward, service.RewardFilter](svc.rewards, size), managers)
	mount(api, "/resources", handler.NewEntityHandler[models.Resource, service.ResourceFilter](svc.resources, size), managers)

	api.GET("/assessments/export", handler.NewExportHandler(svc.exports).Assessments)
	mount(api, "/assessments", handler.NewEntityHandler[models.Assessment, service.AssessmentFilter](svc.assessments, size), managers)

	api.GET("/features/catalog", handler.NewFeatureHandler(svc.features).Catalog)
	mount(api, "/features", handler.NewEntityHandler[models.Feature, service.FeatureFilter](svc.features, size), managers)

	enrollments := handler.NewEntityHandler[models.Enrollment, service.EnrollmentFilter](svc.enrollments, size)
	enrollments.RegisterRead(api.Group("/enrollments"))
	workflow := handler.NewEnrollmentHandler(svc.enrollments)
	api.POST("/enrollments", managers, workflow.Enroll)
	api.POST("/enrollments/:id/withdraw", managers, workflow.Withdraw)
	api.DELETE("/enrollments/:id", managers, enrollments.Delete)

	return r
}
