package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutech-api/internal/models"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
	"github.com/noah-isme/edutech-api/pkg/export"
)

type stubRunner struct {
	result *ReportResult
	err    error
	calls  int
}

func (s *stubRunner) Run(ctx context.Context, name models.ReportName, q ReportQuery) (*ReportResult, error) {
	s.calls++
	return s.result, s.err
}

type failingPDF struct{}

func (failingPDF) Render(data export.Dataset, title string) ([]byte, error) {
	return nil, errors.New("font missing")
}

func revenueResult() *ReportResult {
	return &ReportResult{
		Name:       models.ReportTopCoursesByRevenue,
		Rows:       []models.CourseRevenueRow{{CourseID: "c1", Title: "Go Fundamentals", Revenue: decimal.RequireFromString("300")}},
		ComputedAt: testNow,
	}
}

func TestExportServiceCSV(t *testing.T) {
	runner := &stubRunner{result: revenueResult()}
	svc := NewExportService(runner, nil, nil, nil)

	file, err := svc.Export(context.Background(), models.ReportTopCoursesByRevenue, ReportQuery{}, "")
	require.NoError(t, err)
	assert.Equal(t, "top-courses-by-revenue-2024-06-15.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "course_id,title,revenue", strings.TrimSpace(lines[0]))
	assert.Equal(t, "c1,Go Fundamentals,300.00", strings.TrimSpace(lines[1]))
}

func TestExportServicePDFUsesAsOfInFilename(t *testing.T) {
	runner := &stubRunner{result: revenueResult()}
	svc := NewExportService(runner, nil, nil, nil)
	q := ReportQuery{Filter: models.ReportFilter{AsOf: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)}}

	file, err := svc.Export(context.Background(), models.ReportTopCoursesByRevenue, q, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "top-courses-by-revenue-2024-01-02.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))
}

func TestExportServiceRejectsUnsupportedFormat(t *testing.T) {
	runner := &stubRunner{result: revenueResult()}
	svc := NewExportService(runner, nil, nil, nil)

	_, err := svc.Export(context.Background(), models.ReportDashboard, ReportQuery{}, "xlsx")
	requireAppError(t, err, appErrors.ErrUnsupportedFormat, "format")
	assert.Zero(t, runner.calls)
}

func TestExportServicePropagatesErrors(t *testing.T) {
	runner := &stubRunner{err: appErrors.OnField(appErrors.ErrValidation, "course_id", "course_id is required")}
	svc := NewExportService(runner, nil, nil, nil)

	_, err := svc.Export(context.Background(), models.ReportCourseReport, ReportQuery{}, "csv")
	requireAppError(t, err, appErrors.ErrValidation, "course_id")

	svc = NewExportService(&stubRunner{result: revenueResult()}, nil, nil, failingPDF{})
	_, err = svc.Export(context.Background(), models.ReportTopCoursesByRevenue, ReportQuery{}, "pdf")
	requireAppError(t, err, appErrors.ErrInternal, "")
}
