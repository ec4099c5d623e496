package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutech-api/internal/models"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

type stubTokens map[string]*models.JWTClaims

func (s stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type recordingObserver struct {
	paths    []string
	statuses []int
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.paths = append(r.paths, method+" "+path)
	r.statuses = append(r.statuses, status)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/courses", chain...)
	r.GET("/courses/:id", chain...)
	return r
}

func TestWriteGuard(t *testing.T) {
	tokens := stubTokens{
		"admin":  {UserID: "a", Role: models.RoleAdmin},
		"viewer": {UserID: "v", Role: models.RoleViewer},
	}
	router := newRouter(WriteGuard(true, tokens)...)

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer bogus", http.StatusUnauthorized},
		{"Bearer viewer", http.StatusForbidden},
		{"bearer admin", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/courses", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, tc.header)
	}

	assert.Nil(t, WriteGuard(false, tokens))
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &recordingObserver{}
	router := newRouter(Metrics(observer))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/courses/c-42", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, observer.paths, 1)
	assert.Equal(t, "GET /courses/:id", observer.paths[0])
	assert.Equal(t, []int{http.StatusNoContent}, observer.statuses)
}

func TestReportMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	assert.Nil(t, ResponseMeta(c))

	SetReportMeta(c, true, 1500*time.Microsecond)
	meta := ResponseMeta(c)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Equal(t, 1.5, meta["processing_time_ms"])
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}
