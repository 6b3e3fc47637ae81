package ratelimit

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/chatauth/config"
)

type Config struct {
	Store          Store
	Rate           int
	Period         time.Duration
	CountMode      config.CountingMode
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context) error
}

// FromSettings builds a middleware config from the RATE_LIMIT_ section.
func FromSettings(settings config.RateLimitConfig, store Store) *Config {
	return &Config{
		Store:     store,
		Rate:      settings.Rate,
		Period:    settings.Period,
		CountMode: settings.CountMode,
	}
}

func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore(time.Minute)
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = RouteKeyGenerator
	}
	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}
	if cfg.CountMode == "" {
		cfg.CountMode = config.CountAll
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := cfg.KeyGenerator(c)
			resetTime := time.Now().Add(cfg.Period)

			count, existingReset, exists := cfg.Store.Get(key)
			if exists {
				resetTime = existingReset
			}

			header := c.Response().Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Rate))
			header.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if count >= cfg.Rate {
				header.Set("X-RateLimit-Remaining", "0")
				header.Set("Retry-After", strconv.Itoa(int(time.Until(resetTime).Seconds())+1))
				return cfg.OnLimitReached(c)
			}

			if cfg.CountMode == config.CountAll {
				count = cfg.Store.Increment(key, resetTime)
				header.Set("X-RateLimit-Remaining", strconv.Itoa(max(cfg.Rate-count, 0)))
				return next(c)
			}

			header.Set("X-RateLimit-Remaining", strconv.Itoa(max(cfg.Rate-count-1, 0)))

			err := next(c)

			if shouldCount(cfg.CountMode, responseStatus(c, err)) {
				cfg.Store.Increment(key, resetTime)
			}

			return err
		}
	}
}

// responseStatus is the status the client will see. Handler errors have not
// been written yet when the middleware regains control.
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

func shouldCount(mode config.CountingMode, status int) bool {
	switch mode {
	case config.CountFailures:
		return status >= http.StatusBadRequest
	case config.CountSuccess:
		return status < http.StatusBadRequest
	default:
		return true
	}
}

// RouteKeyGenerator keys on client IP and route so each limited endpoint has
// its own budget.
func RouteKeyGenerator(c echo.Context) string {
	realIP := c.RealIP()
	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}

	path := c.Path()
	if path == "" {
		path = c.Request().URL.Path
	}

	return "rate_limit:" + path + ":" + realIP
}

func DefaultOnLimitReached(c echo.Context) error {
	return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
}
