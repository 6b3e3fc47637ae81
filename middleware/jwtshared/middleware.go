// Package jwtshared loads the account behind a verified access token and
// shares it with downstream handlers.
package jwtshared

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/chatauth/middleware/jwt"
	"github.com/tech-arch1tect/chatauth/services/auth"
)

const CurrentUserKey = "currentUser"

type UserProvider interface {
	UserByID(ctx context.Context, id uint) (*auth.User, error)
}

// RequireUser must run after jwt.RequireAccessToken. A token whose user no
// longer exists is rejected with 401, a failed lookup with 500.
func RequireUser(provider UserProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := jwt.GetUserID(c)
			if userID == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}

			user, err := provider.UserByID(c.Request().Context(), userID)
			if errors.Is(err, auth.ErrStorageFailure) {
				return echo.NewHTTPError(http.StatusInternalServerError, "Unable to load user")
			}
			if err != nil || user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unknown user")
			}

			c.Set(CurrentUserKey, user)
			return next(c)
		}
	}
}

func GetCurrentUser(c echo.Context) *auth.User {
	user, _ := c.Get(CurrentUserKey).(*auth.User)
	return user
}
