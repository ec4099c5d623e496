package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/edutech-api/internal/models"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

func requireAppError(t *testing.T, err error, kind *appErrors.Error, field string) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %T", err)
	assert.Equal(t, kind.Code, appErr.Code)
	if field != "" {
		assert.Equal(t, field, appErr.Field)
	}
}

func validStudent() StudentRequest {
	return StudentRequest{Name: " Ana Souza ", Email: "ana@example.com", BirthDate: "2000-02-29"}
}

func TestStudentServiceCreate(t *testing.T) {
	repo := newFakeStudentRepo()
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewStudentService(repo, testDeps(cache))

	student, err := svc.Create(context.Background(), validStudent())
	require.NoError(t, err)
	assert.Equal(t, "generated", student.ID)
	assert.Equal(t, "Ana Souza", student.Name)
	assert.Equal(t, time.Date(2000, time.February, 29, 0, 0, 0, 0, time.UTC), student.BirthDate)
	assert.Equal(t, []string{reportCachePattern}, cacheRepo.invalidated)
}

func TestStudentServiceValidation(t *testing.T) {
	svc := NewStudentService(newFakeStudentRepo(), testDeps(nil))
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*StudentRequest)
		field  string
	}{
		{"blank name", func(r *StudentRequest) { r.Name = "   " }, "name"},
		{"bad email", func(r *StudentRequest) { r.Email = "not-an-email" }, "email"},
		{"bad date", func(r *StudentRequest) { r.BirthDate = "29/02/2000" }, "birth_date"},
		{"future birth", func(r *StudentRequest) { r.BirthDate = "2024-06-16" }, "birth_date"},
		{"too old", func(r *StudentRequest) { r.BirthDate = "1899-12-31" }, "birth_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validStudent()
			tc.mutate(&req)
			_, err := svc.Create(ctx, req)
			requireAppError(t, err, appErrors.ErrValidation, tc.field)
		})
	}

	req := validStudent()
	req.BirthDate = "2024-06-15"
	_, err := svc.Create(ctx, req)
	assert.NoError(t, err, "today is a valid birth date")
}

func TestStudentServiceMapsRepositoryErrors(t *testing.T) {
	repo := newFakeStudentRepo(models.Student{ID: "s1", Name: "Ana", Email: "ana@example.com", RegisteredAt: testNow})
	svc := NewStudentService(repo, testDeps(nil))
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	requireAppError(t, err, appErrors.ErrNotFound, "")

	_, err = svc.Update(ctx, "missing", validStudent())
	requireAppError(t, err, appErrors.ErrNotFound, "")

	repo.createErr = appErrors.OnField(appErrors.ErrUniqueness, "email", "email already exists")
	_, err = svc.Create(ctx, validStudent())
	requireAppError(t, err, appErrors.ErrUniqueness, "email")

	repo.deleteErr = appErrors.OnField(appErrors.ErrDependencyConflict, "enrollment", "student has dependent enrollment records")
	requireAppError(t, svc.Delete(ctx, "s1"), appErrors.ErrDependencyConflict, "enrollment")

	repo.listErr = errors.New("connection reset")
	_, _, err = svc.List(ctx, models.StudentFilter{})
	requireAppError(t, err, appErrors.ErrInternal, "")
}

func TestStudentServiceUpdateKeepsRegistration(t *testing.T) {
	registered := testNow.Add(-48 * time.Hour)
	repo := newFakeStudentRepo(models.Student{ID: "s1", Name: "Ana", Email: "ana@example.com", RegisteredAt: registered})
	svc := NewStudentService(repo, testDeps(nil))

	req := validStudent()
	req.Email = "ana.souza@example.com"
	updated, err := svc.Update(context.Background(), "s1", req)
	require.NoError(t, err)
	assert.Equal(t, registered, updated.RegisteredAt)
	assert.Equal(t, "ana.souza@example.com", repo.students["s1"].Email)
}

func TestStudentServiceListPagination(t *testing.T) {
	repo := newFakeStudentRepo(models.Student{ID: "s1"}, models.Student{ID: "s2"})
	svc := NewStudentService(repo, testDeps(nil))

	_, page, err := svc.List(context.Background(), models.StudentFilter{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 2}, page)
}
