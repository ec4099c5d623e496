package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodiesEqualIgnoresMeta(t *testing.T) {
	a := []byte(`{"data":[{"revenue":"300.00","students":2}],"meta":{"cache_hit":false,"processing_time_ms":1.2}}`)
	b := []byte(`{"meta":{"cache_hit":true,"processing_time_ms":0.1},"data":[{"students":2.0,"revenue":"300.00"}]}`)
	assert.True(t, bodiesEqual(a, b))

	c := []byte(`{"data":[{"revenue":"310.00","students":2}]}`)
	assert.False(t, bodiesEqual(a, c))
	assert.False(t, bodiesEqual(a, []byte("not json")))
}

func TestDiscoverAndCompare(t *testing.T) {
	mux := func(rows string) http.Handler {
		m := http.NewServeMux()
		m.HandleFunc("/api/v1/reports", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":["dashboard","course-catalog"]}`))
		})
		m.HandleFunc("/api/v1/reports/dashboard", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"students":3},"meta":{"processing_time_ms":2}}`))
		})
		m.HandleFunc("/api/v1/reports/course-catalog", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(rows))
		})
		return m
	}
	a := httptest.NewServer(mux(`{"data":[{"id":"c1"}]}`))
	defer a.Close()
	b := httptest.NewServer(mux(`{"data":[]}`))
	defer b.Close()

	client := a.Client()
	targets, err := discoverTargets(client, a.URL, "/api/v1/")
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "/api/v1/reports/dashboard", targets[0].Path)
	assert.True(t, targets[0].Critical)

	dashboard := compareTarget(client, a.URL, b.URL, targets[0])
	require.NoError(t, dashboard.Error)
	assert.True(t, dashboard.StatusOK)
	assert.True(t, dashboard.BodyMatch)

	catalog := compareTarget(client, a.URL, b.URL, targets[1])
	require.NoError(t, catalog.Error)
	assert.False(t, catalog.BodyMatch)

	var out bytes.Buffer
	printReport(&out, []comparison{dashboard, catalog})
	assert.Contains(t, out.String(), "[OK] GET /api/v1/reports/dashboard")
	assert.Contains(t, out.String(), "[DIFF] GET /api/v1/reports/course-catalog")
}
