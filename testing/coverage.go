package e2etesting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
)

type RouteInfo struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	HitCount int    `json:"hit_count,omitempty"`
}

type CoverageStats struct {
	TotalRoutes   int
	CoveredRoutes int
	MissingRoutes []RouteInfo
	Coverage      float64
}

// CoverageTracker counts requests per registered echo route so an end to
// end suite can assert that every endpoint was exercised.
type CoverageTracker struct {
	mu               sync.RWMutex
	registeredRoutes map[string]RouteInfo
	hitRoutes        map[string]int
	excludePrefixes  []string
}

func NewCoverageTracker(excludePrefixes ...string) *CoverageTracker {
	return &CoverageTracker{
		registeredRoutes: make(map[string]RouteInfo),
		hitRoutes:        make(map[string]int),
		excludePrefixes:  excludePrefixes,
	}
}

func routeKey(method, path string) string {
	return method + ":" + path
}

func (ct *CoverageTracker) excluded(path string) bool {
	for _, prefix := range ct.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (ct *CoverageTracker) RegisterRoutes(e *echo.Echo) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	for _, route := range e.Routes() {
		// echo registers its own catch-all handlers under these methods
		if route.Method == echo.RouteNotFound || ct.excluded(route.Path) {
			continue
		}
		ct.registeredRoutes[routeKey(route.Method, route.Path)] = RouteInfo{
			Method: route.Method,
			Path:   route.Path,
		}
	}
}

func (ct *CoverageTracker) TrackingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ct.RecordHit(c.Request().Method, c.Path())
			return next(c)
		}
	}
}

func (ct *CoverageTracker) RecordHit(method, path string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.hitRoutes[routeKey(method, path)]++
}

func (ct *CoverageTracker) HitCount(method, path string) int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.hitRoutes[routeKey(method, path)]
}

func (ct *CoverageTracker) Stats() CoverageStats {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	var missing []RouteInfo
	covered := 0
	for key, route := range ct.registeredRoutes {
		if ct.hitRoutes[key] > 0 {
			covered++
		} else {
			missing = append(missing, route)
		}
	}
	sortRoutes(missing)

	total := len(ct.registeredRoutes)
	var coverage float64
	if total > 0 {
		coverage = float64(covered) / float64(total) * 100
	}

	return CoverageStats{
		TotalRoutes:   total,
		CoveredRoutes: covered,
		MissingRoutes: missing,
		Coverage:      coverage,
	}
}

func (ct *CoverageTracker) CoveredRoutes() []RouteInfo {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	var covered []RouteInfo
	for key, route := range ct.registeredRoutes {
		if hits := ct.hitRoutes[key]; hits > 0 {
			route.HitCount = hits
			covered = append(covered, route)
		}
	}
	sortRoutes(covered)
	return covered
}

func (ct *CoverageTracker) PrintReportTo(w io.Writer) {
	stats := ct.Stats()

	fmt.Fprintf(w, "endpoint coverage: %d/%d (%.1f%%)\n", stats.CoveredRoutes, stats.TotalRoutes, stats.Coverage)
	for _, route := range ct.CoveredRoutes() {
		fmt.Fprintf(w, "  hit     %-7s %-30s %d\n", route.Method, route.Path, route.HitCount)
	}
	for _, route := range stats.MissingRoutes {
		fmt.Fprintf(w, "  missing %-7s %s\n", route.Method, route.Path)
	}
}

func sortRoutes(routes []RouteInfo) {
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
}
