package jwt

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/chatauth/services/jwt"
)

const (
	UserIDKey = "_jwt_user_id"
	ClaimsKey = "_jwt_claims"
)

type Verifier interface {
	Verify(token string, role jwt.Role) (*jwt.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(jti string) (bool, error)
}

// RequireAccessToken rejects the request with 401 unless it carries a valid,
// unrevoked access token. revocation may be nil.
func RequireAccessToken(verifier Verifier, revocation RevocationChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access token required")
			}

			claims, err := verifier.Verify(tokenString, jwt.RoleAccess)
			if err != nil {
				if errors.Is(err, jwt.ErrExpiredSignature) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Access token has expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid access token")
			}

			if revocation != nil {
				revoked, err := revocation.IsRevoked(claims.ID)
				if err != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "Unable to verify access token")
				}
				if revoked {
					return echo.NewHTTPError(http.StatusUnauthorized, "Access token has been revoked")
				}
			}

			c.Set(UserIDKey, claims.UserID)
			c.Set(ClaimsKey, claims)

			return next(c)
		}
	}
}

func GetUserID(c echo.Context) uint {
	if userID, ok := c.Get(UserIDKey).(uint); ok {
		return userID
	}
	return 0
}

func GetClaims(c echo.Context) *jwt.Claims {
	if claims, ok := c.Get(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}
