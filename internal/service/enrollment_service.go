package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-admin-api/internal/access"
	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
	"github.com/noah-isme/edu-admin-api/internal/repository"
	appErrors "github.com/noah-isme/edu-admin-api/pkg/errors"
)

type scopedReader[E any] interface {
	Get(ctx context.Context, caller access.Identity, id int64, include ...string) (*E, error)
}

// EnrollStudentRequest describes an enrollment creation request.
type EnrollStudentRequest struct {
	AdminID   int64 `json:"admin_id" validate:"required,gt=0"`
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
}

// EnrollmentService orchestrates enrollment workflows on top of the scoped
// enrollment queries.
type EnrollmentService struct {
	*EntityService[models.Enrollment, *models.Enrollment]
	repo      repository.Repository[models.Enrollment]
	students  scopedReader[models.Student]
	admins    scopedReader[models.Admin]
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo repository.Repository[models.Enrollment], students scopedReader[models.Student], admins scopedReader[models.Admin], deps EntityDeps) *EnrollmentService {
	scoped := NewEntityService[models.Enrollment, *models.Enrollment](models.EntityEnrollment, repo, deps)
	return &EnrollmentService{
		EntityService: scoped,
		repo:          repo,
		students:      students,
		admins:        admins,
		validator:     scoped.validator,
		logger:        scoped.logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Enroll registers a visible, active student with a visible school admin.
// A withdrawn enrollment for the same pair is reactivated.
func (s *EnrollmentService) Enroll(ctx context.Context, caller access.Identity, req EnrollStudentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	student, err := s.students.Get(ctx, caller, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student inactive")
	}
	if _, err := s.admins.Get(ctx, caller, req.AdminID); err != nil {
		return nil, err
	}

	pair := query.AllOf(query.Eq("admin_id", req.AdminID), query.Eq("student_id", req.StudentID))
	existing, err := s.repo.GetOne(ctx, pair)
	switch {
	case err == nil && existing.Status == models.EnrollmentStatusActive:
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled")
	case err == nil:
		return s.reactivate(ctx, caller, existing)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}

	enrollment := &models.Enrollment{
		AdminID:    req.AdminID,
		StudentID:  req.StudentID,
		Status:     models.EnrollmentStatusActive,
		EnrolledAt: s.now(),
	}
	if err := s.repo.Add(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "student already enrolled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	s.logger.Info("student enrolled",
		zap.Int64("enrollment_id", enrollment.ID),
		zap.Int64("student_id", req.StudentID),
		zap.Int64("admin_id", req.AdminID),
		zap.String("by", caller.UserID),
	)
	return enrollment, nil
}

func (s *EnrollmentService) reactivate(ctx context.Context, caller access.Identity, enrollment *models.Enrollment) (*models.Enrollment, error) {
	enrollment.Status = models.EnrollmentStatusActive
	enrollment.EnrolledAt = s.now()
	enrollment.WithdrawnAt = nil
	if err := s.repo.Update(ctx, enrollment); err != nil {
		return nil, storeError(models.EntityEnrollment, "reactivate", err)
	}
	s.logger.Info("enrollment reactivated", zap.Int64("enrollment_id", enrollment.ID), zap.String("by", caller.UserID))
	return enrollment, nil
}

// Withdraw ends an active enrollment the caller can see.
func (s *EnrollmentService) Withdraw(ctx context.Context, caller access.Identity, id int64) (*models.Enrollment, error) {
	enrollment, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is not active")
	}
	now := s.now()
	enrollment.Status = models.EnrollmentStatusWithdrawn
	enrollment.WithdrawnAt = &now
	if err := s.repo.Update(ctx, enrollment); err != nil {
		return nil, storeError(models.EntityEnrollment, "withdraw", err)
	}
	s.logger.Info("enrollment withdrawn", zap.Int64("enrollment_id", id), zap.String("by", caller.UserID))
	return enrollment, nil
}
