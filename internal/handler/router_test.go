package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutech-api/internal/models"
	"github.com/noah-isme/edutech-api/internal/repository/memory"
	"github.com/noah-isme/edutech-api/internal/service"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *apiError              `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	router *gin.Engine
	tokens *service.TokenService
}

func newTestServer(t *testing.T, authEnabled bool, checks map[string]Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	metrics := service.NewMetricsService()
	deps := service.Dependencies{Metrics: metrics}
	reports := service.NewReportService(store.Reports(), nil, metrics, nil, service.ReportServiceConfig{})
	tokens := service.NewTokenService("test-secret")
	if checks == nil {
		checks = map[string]Pinger{"store": store.Maintenance()}
	}

	h := Handlers{
		Students:    NewStudentHandler(service.NewStudentService(store.Students(), deps)),
		Instructors: NewInstructorHandler(service.NewInstructorService(store.Instructors(), deps)),
		Categories:  NewCategoryHandler(service.NewCategoryService(store.Categories(), deps)),
		Courses:     NewCourseHandler(service.NewCourseService(store.Courses(), deps)),
		Modules:     NewModuleHandler(service.NewModuleService(store.Modules(), deps)),
		Lessons:     NewLessonHandler(service.NewLessonService(store.Lessons(), deps)),
		Enrollments: NewEnrollmentHandler(service.NewEnrollmentService(store.Enrollments(), deps)),
		Progress:    NewProgressHandler(service.NewProgressService(store.Progress(), deps)),
		Ratings:     NewRatingHandler(service.NewRatingService(store.Ratings(), deps)),
		Reports:     NewReportHandler(reports, service.NewExportService(reports, nil, nil, nil)),
		Health:      NewHealthHandler(checks),
		Metrics:     NewMetricsHandler(metrics),
	}
	router := NewRouter(RouterConfig{APIPrefix: "/api/v1", AuthEnabled: authEnabled, Tokens: tokens, Metrics: metrics}, h)
	return &testServer{router: router, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestCategoryLifecycle(t *testing.T) {
	srv := newTestServer(t, false, nil)

	rec, env := srv.do(t, http.MethodPost, "/api/v1/categories", map[string]string{"id": "prog", "name": "Programming"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, string(env.Data), `"name":"Programming"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, env = srv.do(t, http.MethodPost, "/api/v1/categories", map[string]string{"name": "programming"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNIQUENESS_VIOLATION", env.Error.Code)
	assert.Equal(t, "name", env.Error.Field)

	rec, env = srv.do(t, http.MethodPost, "/api/v1/categories", `{"name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/categories/ghost", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "category not found", env.Error.Message)

	rec, _ = srv.do(t, http.MethodDelete, "/api/v1/categories/prog", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCourseReferencesAndDeleteConflicts(t *testing.T) {
	srv := newTestServer(t, false, nil)
	srv.do(t, http.MethodPost, "/api/v1/categories", map[string]string{"id": "prog", "name": "Programming"})
	srv.do(t, http.MethodPost, "/api/v1/instructors", map[string]string{"id": "rob", "name": "Rob", "email": "rob@example.com", "specialty": "Go"})

	course := map[string]interface{}{
		"id": "go", "title": "Go", "category_id": "nope", "instructor_id": "rob",
		"price": "49.90", "duration_hours": 8, "level": "beginner",
	}
	rec, env := srv.do(t, http.MethodPost, "/api/v1/courses", course)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "REFERENCE_NOT_FOUND", env.Error.Code)
	assert.Equal(t, "category_id", env.Error.Field)

	course["category_id"] = "prog"
	rec, _ = srv.do(t, http.MethodPost, "/api/v1/courses", course)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = srv.do(t, http.MethodDelete, "/api/v1/categories/prog", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DEPENDENCY_CONFLICT", env.Error.Code)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/courses?level=beginner&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 5, TotalCount: 1}, env.Pagination)

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/courses?level=expert", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/modules", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "course_id", env.Error.Field)
}

func TestWritesRequireAdminTokenWhenAuthEnabled(t *testing.T) {
	srv := newTestServer(t, true, nil)
	payload := map[string]string{"name": "Design"}

	rec, _ := srv.do(t, http.MethodPost, "/api/v1/categories", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	viewer, err := srv.tokens.Issue("v", models.RoleViewer, "", time.Hour)
	require.NoError(t, err)
	rec, _ = srv.do(t, http.MethodPost, "/api/v1/categories", payload, "Authorization", "Bearer "+viewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, err := srv.tokens.Issue("a", models.RoleAdmin, "", time.Hour)
	require.NoError(t, err)
	rec, _ = srv.do(t, http.MethodPost, "/api/v1/categories", payload, "Authorization", "Bearer "+admin)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/categories", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReportEndpoints(t *testing.T) {
	srv := newTestServer(t, false, nil)

	rec, env := srv.do(t, http.MethodGet, "/api/v1/reports/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_students":0,"total_courses":0,"active_enrollments":0,"total_revenue":"0"}`, string(env.Data))
	assert.Equal(t, false, env.Meta["cache_hit"])
	assert.Contains(t, env.Meta, "processing_time_ms")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	rec, env = srv.do(t, http.MethodGet, "/api/v1/reports/unknown", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/reports/inactive-students?as_of=15-06-2024", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "as_of", env.Error.Field)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/reports/top-courses-by-revenue?limit=many", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "limit", env.Error.Field)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/reports/low-completion-courses?threshold=abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "threshold", env.Error.Field)

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/reports/course-catalog/export?as_of=2024-06-15", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="course-catalog-2024-06-15.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "course_id,title,category_name,instructor_name,level,price\n", rec.Body.String())

	rec, env = srv.do(t, http.MethodGet, "/api/v1/reports/course-catalog/export?format=docx", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNSUPPORTED_FORMAT", env.Error.Code)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	require.NoError(t, json.Unmarshal(env.Data, &names))
	assert.Len(t, names, 17)
}

func TestHealthAndReadiness(t *testing.T) {
	srv := newTestServer(t, false, nil)
	rec, _ := srv.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"ok"`)

	down := newTestServer(t, false, map[string]Pinger{
		"store": pingFunc(func(context.Context) error { return nil }),
		"redis": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		"none":  nil,
	})
	rec, _ = down.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
	assert.NotContains(t, rec.Body.String(), `"none"`)

	rec, _ = srv.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
