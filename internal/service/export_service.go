package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/edutech-api/internal/models"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
	"github.com/noah-isme/edutech-api/pkg/export"
)

// Supported export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type reportRunner interface {
	Run(ctx context.Context, name models.ReportName, q ReportQuery) (*ReportResult, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered report ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders reports as CSV or PDF.
type ExportService struct {
	reports reportRunner
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the default exporters.
func NewExportService(reports reportRunner, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{reports: reports, csv: csv, pdf: pdf, logger: logger}
}

// Export runs the report and renders its rows in the requested format.
func (s *ExportService) Export(ctx context.Context, name models.ReportName, q ReportQuery, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.OnField(appErrors.ErrUnsupportedFormat, "format", "format must be csv or pdf")
	}

	result, err := s.reports.Run(ctx, name, q)
	if err != nil {
		return nil, err
	}
	data, err := export.FromRows(result.Rows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prepare export")
	}

	asOf := q.Filter.AsOf
	if asOf.IsZero() {
		asOf = result.ComputedAt
	}
	file := &ExportFile{Filename: fmt.Sprintf("%s-%s.%s", name, asOf.Format(dateLayout), format)}
	switch format {
	case FormatPDF:
		file.ContentType = "application/pdf"
		file.Body, err = s.pdf.Render(data, string(name))
	default:
		file.ContentType = "text/csv"
		file.Body, err = s.csv.Render(data)
	}
	if err != nil {
		s.logger.Error("export render failed", zap.String("report", string(name)), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("report exported", zap.String("report", string(name)), zap.String("format", format), zap.Int("rows", len(data.Rows)))
	return file, nil
}
