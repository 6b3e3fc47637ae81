package ratelimit

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/chatauth/config"
)

func fixedKey(echo.Context) string { return "test-key" }

func call(e *echo.Echo, mw echo.MiddlewareFunc, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, mw(handler)(c)
}

func statusOf(err error) int {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return 0
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func unauthorized(echo.Context) error {
	return echo.NewHTTPError(http.StatusUnauthorized, "Wrong credentials")
}

func TestMiddleware(t *testing.T) {
	t.Run("blocks after rate is reached", func(t *testing.T) {
		mw := Middleware(&Config{Store: NewMemoryStore(0), Rate: 2, Period: time.Minute, KeyGenerator: fixedKey})
		e := echo.New()

		for i := 0; i < 2; i++ {
			if _, err := call(e, mw, ok); err != nil {
				t.Fatalf("request %d: unexpected error: %v", i, err)
			}
		}

		rec, err := call(e, mw, ok)
		if statusOf(err) != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %v", err)
		}
		if rec.Header().Get("X-RateLimit-Remaining") != "0" {
			t.Errorf("expected remaining 0, got %q", rec.Header().Get("X-RateLimit-Remaining"))
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header")
		}
	})

	t.Run("headers", func(t *testing.T) {
		mw := Middleware(&Config{Store: NewMemoryStore(0), Rate: 5, KeyGenerator: fixedKey})

		rec, err := call(echo.New(), mw, ok)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "5" {
			t.Errorf("expected limit 5, got %q", got)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != "4" {
			t.Errorf("expected remaining 4, got %q", got)
		}
		if rec.Header().Get("X-RateLimit-Reset") == "" {
			t.Error("expected reset header")
		}
	})

	t.Run("count failures ignores successful requests", func(t *testing.T) {
		mw := Middleware(&Config{Store: NewMemoryStore(0), Rate: 2, CountMode: config.CountFailures, KeyGenerator: fixedKey})
		e := echo.New()

		for i := 0; i < 5; i++ {
			if _, err := call(e, mw, ok); err != nil {
				t.Fatalf("request %d: unexpected error: %v", i, err)
			}
		}

		for i := 0; i < 2; i++ {
			if _, err := call(e, mw, unauthorized); statusOf(err) != http.StatusUnauthorized {
				t.Fatalf("failure %d: expected 401, got %v", i, err)
			}
		}

		if _, err := call(e, mw, ok); statusOf(err) != http.StatusTooManyRequests {
			t.Fatalf("expected 429 after two failures, got %v", err)
		}
	})

	t.Run("count success ignores failures", func(t *testing.T) {
		mw := Middleware(&Config{Store: NewMemoryStore(0), Rate: 1, CountMode: config.CountSuccess, KeyGenerator: fixedKey})
		e := echo.New()

		for i := 0; i < 3; i++ {
			call(e, mw, unauthorized)
		}
		if _, err := call(e, mw, ok); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := call(e, mw, ok); statusOf(err) != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %v", err)
		}
	})

	t.Run("plain errors count as failures", func(t *testing.T) {
		mw := Middleware(&Config{Store: NewMemoryStore(0), Rate: 1, CountMode: config.CountFailures, KeyGenerator: fixedKey})
		e := echo.New()

		call(e, mw, func(echo.Context) error { return errors.New("boom") })
		if _, err := call(e, mw, ok); statusOf(err) != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %v", err)
		}
	})

	t.Run("custom limit reached handler", func(t *testing.T) {
		mw := Middleware(&Config{
			Store:        NewMemoryStore(0),
			Rate:         1,
			KeyGenerator: fixedKey,
			OnLimitReached: func(c echo.Context) error {
				return c.String(http.StatusServiceUnavailable, "slow down")
			},
		})
		e := echo.New()

		call(e, mw, ok)
		rec, err := call(e, mw, ok)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}

func TestFromSettings(t *testing.T) {
	store := NewMemoryStore(0)
	cfg := FromSettings(config.RateLimitConfig{Rate: 3, Period: time.Second, CountMode: config.CountFailures}, store)

	if cfg.Store != store || cfg.Rate != 3 || cfg.Period != time.Second || cfg.CountMode != config.CountFailures {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestRouteKeyGenerator(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.Header.Set(echo.HeaderXRealIP, "192.168.1.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/auth/refresh")

	if got := RouteKeyGenerator(c); got != "rate_limit:/auth/refresh:192.168.1.1" {
		t.Errorf("unexpected key %q", got)
	}

	other := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/login", nil), httptest.NewRecorder())
	other.Request().Header.Set(echo.HeaderXRealIP, "192.168.1.1")
	if RouteKeyGenerator(other) == RouteKeyGenerator(c) {
		t.Error("expected routes to have distinct keys")
	}
}

func TestDefaultOnLimitReached(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if statusOf(DefaultOnLimitReached(c)) != http.StatusTooManyRequests {
		t.Error("expected 429")
	}
}
