package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/edutech-api/internal/middleware"
	"github.com/noah-isme/edutech-api/internal/models"
	"github.com/noah-isme/edutech-api/internal/service"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
	"github.com/noah-isme/edutech-api/pkg/response"
)

type reportRunner interface {
	Run(ctx context.Context, name models.ReportName, q service.ReportQuery) (*service.ReportResult, error)
}

type reportExporter interface {
	Export(ctx context.Context, name models.ReportName, q service.ReportQuery, format string) (*service.ExportFile, error)
}

// ReportHandler exposes the aggregate reports and their exports.
type ReportHandler struct {
	reports reportRunner
	exports reportExporter
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports reportRunner, exports reportExporter) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// Index godoc
// @Summary List available reports
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) Index(c *gin.Context) {
	response.OK(c, models.ReportNames)
}

// Get godoc
// @Summary Run a report
// @Tags Reports
// @Produce json
// @Param name path string true "Report name"
// @Param course_id query string false "Course filter"
// @Param student_id query string false "Student filter"
// @Param category_id query string false "Category filter"
// @Param title query string false "Case-insensitive course title fragment"
// @Param level query string false "Course level"
// @Param as_of query string false "Reference date YYYY-MM-DD"
// @Param threshold query number false "Completion ratio threshold"
// @Param min_average query number false "Minimum instructor rating"
// @Param limit query int false "Row limit"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{name} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	q, err := parseReportQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.reports.Run(c.Request.Context(), models.ReportName(c.Param("name")), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetReportMeta(c, result.CacheHit, result.Duration)
	response.JSON(c, http.StatusOK, result.Rows, nil, middleware.ResponseMeta(c))
}

// Export godoc
// @Summary Export a report as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param name path string true "Report name"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/{name}/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	q, err := parseReportQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Export(c.Request.Context(), models.ReportName(c.Param("name")), q, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

func parseReportQuery(c *gin.Context) (service.ReportQuery, error) {
	q := service.ReportQuery{Filter: models.ReportFilter{
		CourseID:   strings.TrimSpace(c.Query("course_id")),
		StudentID:  strings.TrimSpace(c.Query("student_id")),
		CategoryID: strings.TrimSpace(c.Query("category_id")),
		TitleLike:  strings.TrimSpace(c.Query("title")),
		Level:      models.CourseLevel(strings.ToLower(strings.TrimSpace(c.Query("level")))),
	}}

	if raw := strings.TrimSpace(c.Query("as_of")); raw != "" {
		asOf, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return q, appErrors.OnField(appErrors.ErrValidation, "as_of", "as_of must be a date in YYYY-MM-DD format")
		}
		q.Filter.AsOf = asOf
	}
	var err error
	if q.Threshold, err = decimalParam(c, "threshold"); err != nil {
		return q, err
	}
	if q.MinAverage, err = decimalParam(c, "min_average"); err != nil {
		return q, err
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, convErr := strconv.Atoi(raw)
		if convErr != nil || limit == 0 {
			return q, appErrors.OnField(appErrors.ErrValidation, "limit", "limit must be between 1 and 100")
		}
		q.Limit = limit
	}
	return q, nil
}

func decimalParam(c *gin.Context, name string) (decimal.NullDecimal, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, appErrors.OnField(appErrors.ErrValidation, name, name+" must be a number")
	}
	return decimal.NewNullDecimal(value), nil
}
