package e2etesting

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho() *echo.Echo {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.POST("/auth/login", ok)
	e.POST("/auth/refresh", ok)
	e.GET("/users/:id", ok)
	e.GET("/openapi.json", ok)
	return e
}

func TestCoverageTracker(t *testing.T) {
	e := newEcho()
	tracker := NewCoverageTracker("/openapi")
	tracker.RegisterRoutes(e)
	e.Use(tracker.TrackingMiddleware())

	for _, target := range []struct{ method, path string }{
		{http.MethodPost, "/auth/login"},
		{http.MethodPost, "/auth/login"},
		{http.MethodGet, "/users/7"},
		{http.MethodGet, "/openapi.json"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(target.method, target.path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	stats := tracker.Stats()
	assert.Equal(t, 3, stats.TotalRoutes)
	assert.Equal(t, 2, stats.CoveredRoutes)
	assert.InDelta(t, 66.7, stats.Coverage, 0.1)
	require.Len(t, stats.MissingRoutes, 1)
	assert.Equal(t, "/auth/refresh", stats.MissingRoutes[0].Path)

	assert.Equal(t, 2, tracker.HitCount(http.MethodPost, "/auth/login"))
	assert.Equal(t, 1, tracker.HitCount(http.MethodGet, "/users/:id"))

	var report strings.Builder
	tracker.PrintReportTo(&report)
	assert.Contains(t, report.String(), "2/3")
	assert.Contains(t, report.String(), "missing POST    /auth/refresh")
}

func TestCoverageTracker_Empty(t *testing.T) {
	stats := NewCoverageTracker().Stats()

	assert.Zero(t, stats.TotalRoutes)
	assert.Zero(t, stats.Coverage)
	assert.Empty(t, stats.MissingRoutes)
}
