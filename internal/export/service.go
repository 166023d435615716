package export

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/countsheet-backend/internal/entries"
	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/countsheet-backend/pkg/errors"
	"github.com/angelmondragon/countsheet-backend/pkg/metrics"
	"github.com/google/uuid"
)

// Export kinds, also used as metric labels.
const (
	KindMismatchCSV  = "mismatch_csv"
	KindMissingPDF   = "missing_counts_pdf"
	KindAssignedPDF  = "assigned_pdf"
	KindWorkbookXLSX = "workbook_xlsx"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// File is a rendered download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type rowSource interface {
	Rows(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) ([]models.Entry, error)
}

// Service renders exports from a viewer's in-memory entries.
type Service struct {
	rows    rowSource
	metrics *metrics.CountMetrics
	now     func() time.Time
}

func NewService(rows rowSource, m *metrics.CountMetrics) (*Service, error) {
	if rows == nil {
		return nil, fmt.Errorf("row source required")
	}
	return &Service{rows: rows, metrics: m, now: time.Now}, nil
}

// Mismatch includes the User column for admins.
func (s *Service) Mismatch(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) (*File, error) {
	rows, err := s.rows.Rows(ctx, viewer, reportID)
	if err != nil {
		return nil, err
	}
	data, err := MismatchCSV(rows, viewer.IsAdmin())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render mismatch report")
	}
	return s.file(KindMismatchCSV, "Mismatch_Report_%d.csv", contentTypeCSV, data), nil
}

func (s *Service) MissingCounts(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) (*File, error) {
	rows, err := s.rows.Rows(ctx, viewer, reportID)
	if err != nil {
		return nil, err
	}
	data, err := MissingCountsPDF(rows, viewer.Username, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render missing counts")
	}
	return s.file(KindMissingPDF, "Counts_Needed_%d.pdf", contentTypePDF, data), nil
}

func (s *Service) Assigned(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) (*File, error) {
	rows, err := s.rows.Rows(ctx, viewer, reportID)
	if err != nil {
		return nil, err
	}
	data, err := AssignedRowsPDF(rows, viewer.Username, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render assigned rows")
	}
	return s.file(KindAssignedPDF, "Assigned_Rows_%d.pdf", contentTypePDF, data), nil
}

func (s *Service) Workbook(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) (*File, error) {
	if !viewer.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "workbook export is admin only")
	}
	rows, err := s.rows.Rows(ctx, viewer, reportID)
	if err != nil {
		return nil, err
	}
	data, err := Workbook(rows)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render workbook")
	}
	return s.file(KindWorkbookXLSX, "Count_Report_%d.xlsx", contentTypeXLSX, data), nil
}

func (s *Service) file(kind, nameFormat, contentType string, data []byte) *File {
	s.metrics.IncExport(kind)
	return &File{
		Name:        fmt.Sprintf(nameFormat, s.now().UnixMilli()),
		ContentType: contentType,
		Data:        data,
	}
}
