package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/chatauth/api"
	"github.com/tech-arch1tect/chatauth/testutils"
)

func TestNew(t *testing.T) {
	cfg := testutils.GetTestConfig()
	server := New(cfg, nil)

	if server.echo == nil {
		t.Fatal("expected echo instance to be created")
	}
	if server.cfg != cfg {
		t.Error("expected config to be set")
	}
	if server.Addr() != "127.0.0.1:0" {
		t.Errorf("unexpected addr %q", server.Addr())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) api.Envelope[api.Empty] {
	t.Helper()
	var env api.Envelope[api.Empty]
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid envelope %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestErrorHandler(t *testing.T) {
	server := New(testutils.GetTestConfig(), nil)
	e := server.Echo()

	e.GET("/http-error", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusUnauthorized, "Wrong credentials")
	})
	e.GET("/plain-error", func(c echo.Context) error {
		return errors.New("sql: connection refused")
	})
	e.GET("/panic", func(c echo.Context) error {
		panic("boom")
	})

	t.Run("http error keeps its message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/http-error", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
		env := decode(t, rec)
		if env.Success || env.Message != "Wrong credentials" || env.Data != nil {
			t.Errorf("unexpected envelope %+v", env)
		}
	})

	t.Run("internal errors are not leaked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain-error", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if env := decode(t, rec); env.Message != api.MessageInternal {
			t.Errorf("expected generic message, got %q", env.Message)
		}
	})

	t.Run("panics are recovered", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
		if env := decode(t, rec); env.Success {
			t.Error("expected failure envelope")
		}
	})
}

func TestServer_ListenServeShutdown(t *testing.T) {
	server := New(testutils.GetTestConfig(), nil)
	server.Echo().GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	if err := server.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}

	served := make(chan error, 1)
	go func() { served <- server.Serve() }()

	resp, err := http.Get("http://" + server.ListenAddr() + "/ping")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	select {
	case err := <-served:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after shutdown")
	}
}
