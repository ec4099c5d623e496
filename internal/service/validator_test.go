package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

func TestValidateReportsJSONFieldNames(t *testing.T) {
	v := NewValidator()

	err := validate(v, CreateLessonRequest{ModuleID: "m1", Title: "Intro", Position: 1, DurationMinutes: 5, Type: "podcast"}, "lesson")
	requireAppError(t, err, appErrors.ErrValidation, "type")
	assert.Contains(t, err.Error(), "video, text, quiz")

	err = validate(v, CreateModuleRequest{CourseID: "\t", Title: "Basics", Position: 1}, "module")
	requireAppError(t, err, appErrors.ErrValidation, "course_id")

	err = validate(v, CreateModuleRequest{CourseID: "c1", Title: "Basics", Position: 0}, "module")
	requireAppError(t, err, appErrors.ErrValidation, "position")
	assert.Contains(t, err.Error(), "at least 1")

	assert.NoError(t, validate(v, CategoryRequest{Name: "Design"}, "category"))
}

func TestCheckMoney(t *testing.T) {
	assert.NoError(t, checkMoney("price", mustDecimal(t, "0")))
	assert.NoError(t, checkMoney("price", mustDecimal(t, "19.90")))
	requireAppError(t, checkMoney("price", mustDecimal(t, "19.999")), appErrors.ErrValidation, "price")
	requireAppError(t, checkMoney("price", mustDecimal(t, "-0.01")), appErrors.ErrValidation, "price")
}

func TestMetricsServiceSnapshotAndHandler(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/students", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/students", http.StatusOK, 40*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordMutation("course", "create")

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30.0, snap.AverageRequestDurationMs, 0.001)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(1), snap.Mutations)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `entity_mutations_total{entity="course",op="create"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordMutation("student", "delete")
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
