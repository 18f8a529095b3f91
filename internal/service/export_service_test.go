package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurnacious/school-manager-api/internal/models"
	appErrors "github.com/arthurnacious/school-manager-api/pkg/errors"
	"github.com/arthurnacious/school-manager-api/pkg/export"
)

func TestMarkSheetCSV(t *testing.T) {
	rosters := newMockRosterRepo()
	rosters.byID["r1"] = &models.LessonRoster{ID: "r1", CourseID: "c1"}
	rosters.markRows = []models.MarkRow{
		{StudentName: "Alice", SubjectName: "Theory", Score: 88.5, Remark: "distinction"},
		{StudentName: "Bob", SubjectName: "Theory", Score: 54, Remark: ""},
	}
	svc := NewExportService(rosters, export.NewCSVExporter(), export.NewPDFExporter("Test School"), nil)

	result, err := svc.MarkSheet(context.Background(), "r1", FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "marks-r1.csv", result.Filename)

	lines := strings.Split(strings.TrimSpace(string(result.Data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student,Subject,Score,Remark", lines[0])
	assert.Equal(t, "Alice,Theory,88.50,distinction", lines[1])
	assert.Equal(t, "Bob,Theory,54.00,", lines[2])
}

func TestAttendanceSheetPDF(t *testing.T) {
	rosters := newMockRosterRepo()
	rosters.byID["r1"] = &models.LessonRoster{ID: "r1", CourseID: "c1"}
	rosters.attendanceRows = []models.AttendanceRow{
		{StudentName: "Alice", SessionName: "Week 1", Status: "Present"},
	}
	svc := NewExportService(rosters, export.NewCSVExporter(), export.NewPDFExporter("Test School"), nil)

	result, err := svc.AttendanceSheet(context.Background(), "r1", FormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "attendance-r1.pdf", result.Filename)
	assert.True(t, strings.HasPrefix(string(result.Data), "%PDF"))
}

func TestExportUnknownRoster(t *testing.T) {
	svc := NewExportService(newMockRosterRepo(), export.NewCSVExporter(), export.NewPDFExporter(""), nil)

	_, err := svc.MarkSheet(context.Background(), "ghost", FormatCSV)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestExportUnsupportedFormat(t *testing.T) {
	rosters := newMockRosterRepo()
	rosters.byID["r1"] = &models.LessonRoster{ID: "r1", CourseID: "c1"}
	svc := NewExportService(rosters, export.NewCSVExporter(), export.NewPDFExporter(""), nil)

	_, err := svc.MarkSheet(context.Background(), "r1", "xlsx")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
