package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	appErrors "github.com/arthurnacious/school-manager-api/pkg/errors"
	"github.com/arthurnacious/school-manager-api/pkg/export"
)

// ExportFormat selects the rendered output type for a sheet.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

type sheetRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

// ExportService renders roster mark and attendance sheets as CSV or PDF.
type ExportService struct {
	rosters rosterRepository
	csv     sheetRenderer
	pdf     sheetRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(rosters rosterRepository, csv, pdf sheetRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{rosters: rosters, csv: csv, pdf: pdf, logger: logger}
}

// ExportResult carries rendered bytes with their content type and filename.
type ExportResult struct {
	Data        []byte
	ContentType string
	Filename    string
}

// MarkSheet renders the mark sheet for a roster.
func (s *ExportService) MarkSheet(ctx context.Context, rosterID string, format ExportFormat) (*ExportResult, error) {
	roster, err := s.rosters.FindByID(ctx, rosterID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "roster not found")
	}

	rows, err := s.rosters.MarkRows(ctx, rosterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}

	sheet := export.Sheet{
		Title:    "Mark Sheet",
		Subtitle: fmt.Sprintf("Roster %s", roster.ID),
		Columns:  []string{"Student", "Subject", "Score", "Remark"},
	}
	for _, row := range rows {
		sheet.Rows = append(sheet.Rows, []string{
			row.StudentName,
			row.SubjectName,
			strconv.FormatFloat(row.Score, 'f', 2, 64),
			row.Remark,
		})
	}

	return s.render(sheet, format, "marks-"+rosterID)
}

// AttendanceSheet renders the attendance sheet for a roster.
func (s *ExportService) AttendanceSheet(ctx context.Context, rosterID string, format ExportFormat) (*ExportResult, error) {
	roster, err := s.rosters.FindByID(ctx, rosterID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "roster not found")
	}

	rows, err := s.rosters.AttendanceRows(ctx, rosterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	sheet := export.Sheet{
		Title:    "Attendance Sheet",
		Subtitle: fmt.Sprintf("Roster %s", roster.ID),
		Columns:  []string{"Student", "Session", "Status"},
	}
	for _, row := range rows {
		sheet.Rows = append(sheet.Rows, []string{row.StudentName, row.SessionName, row.Status})
	}

	return s.render(sheet, format, "attendance-"+rosterID)
}

func (s *ExportService) render(sheet export.Sheet, format ExportFormat, basename string) (*ExportResult, error) {
	switch format {
	case FormatCSV, "":
		data, err := s.csv.Render(sheet)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Data: data, ContentType: "text/csv", Filename: basename + ".csv"}, nil
	case FormatPDF:
		data, err := s.pdf.Render(sheet)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Data: data, ContentType: "application/pdf", Filename: basename + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+string(format))
	}
}
