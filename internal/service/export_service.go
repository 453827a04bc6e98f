package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edu-admin-api/internal/access"
	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
	appErrors "github.com/noah-isme/edu-admin-api/pkg/errors"
	"github.com/noah-isme/edu-admin-api/pkg/export"
)

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type assessmentLister interface {
	Count(ctx context.Context, caller access.Identity, filter query.Predicate) (int, error)
	All(ctx context.Context, caller access.Identity, filter query.Predicate, sortBy string, desc bool, include ...string) ([]models.Assessment, error)
}

// ExportRequest selects the rows and format of an export.
type ExportRequest struct {
	Filter query.Predicate
	SortBy string
	Desc   bool
	Format string
}

// ExportResult is a rendered export ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// ExportService renders the assessments a caller can see as CSV or PDF.
type ExportService struct {
	assessments assessmentLister
	csv         datasetRenderer
	pdf         datasetRenderer
	enabled     bool
	maxRows     int
	logger      *zap.Logger
	now         func() time.Time
}

// NewExportService constructs an ExportService. maxRows <= 0 disables the row cap.
func NewExportService(assessments assessmentLister, enabled bool, maxRows int, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		assessments: assessments,
		csv:         csv,
		pdf:         pdf,
		enabled:     enabled,
		maxRows:     maxRows,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *ExportService) tooManyRows() error {
	return appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("export exceeds %d rows; narrow the filter", s.maxRows))
}

var assessmentColumns = []export.Column{
	{Key: "id", Label: "ID"},
	{Key: "student_id", Label: "Student"},
	{Key: "subject_id", Label: "Subject"},
	{Key: "title", Label: "Title"},
	{Key: "score", Label: "Score"},
	{Key: "taken_at", Label: "Taken"},
}

// ExportAssessments renders the visible assessments matching req.
func (s *ExportService) ExportAssessments(ctx context.Context, caller access.Identity, req ExportRequest) (*ExportResult, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled")
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidArgument.Code, appErrors.ErrInvalidArgument.Status, "unsupported export format")
	}
	if s.maxRows > 0 {
		n, err := s.assessments.Count(ctx, caller, req.Filter)
		if err != nil {
			return nil, err
		}
		if n > s.maxRows {
			return nil, s.tooManyRows()
		}
	}
	items, err := s.assessments.All(ctx, caller, req.Filter, req.SortBy, req.Desc)
	if err != nil {
		return nil, err
	}
	if s.maxRows > 0 && len(items) > s.maxRows {
		return nil, s.tooManyRows()
	}

	generatedAt := s.now()
	data := export.Dataset{Title: "Assessments", Columns: assessmentColumns, GeneratedAt: generatedAt}
	for _, a := range items {
		data.Rows = append(data.Rows, map[string]string{
			"id":         strconv.FormatInt(a.ID, 10),
			"student_id": strconv.FormatInt(a.StudentID, 10),
			"subject_id": a.SubjectID,
			"title":      a.Title,
			"score":      strconv.FormatFloat(a.Score, 'f', -1, 64),
			"taken_at":   a.TakenAt.UTC().Format(time.RFC3339),
		})
	}

	var body []byte
	switch format {
	case export.FormatPDF:
		body, err = s.pdf.Render(data)
	default:
		body, err = s.csv.Render(data)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("assessments exported",
		zap.String("format", string(format)),
		zap.Int("rows", len(items)),
		zap.String("by", caller.UserID),
	)
	return &ExportResult{
		Filename:    fmt.Sprintf("assessments-%s.%s", generatedAt.Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Body:        body,
		Rows:        len(items),
	}, nil
}
