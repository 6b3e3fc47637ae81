package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/chatauth/api"
	jwtmiddleware "github.com/tech-arch1tect/chatauth/middleware/jwt"
	"github.com/tech-arch1tect/chatauth/services/auth"
	"github.com/tech-arch1tect/chatauth/services/logging"
	"github.com/tech-arch1tect/chatauth/services/refreshtoken"
	"github.com/tech-arch1tect/chatauth/services/revocation"
	"go.uber.org/zap"
)

type Handlers struct {
	auth       *auth.Service
	rotation   *refreshtoken.Service
	revocation *revocation.Service
	logger     *logging.Service
}

// New builds the route handlers. revocation may be nil, in which case logout
// only ends the refresh family.
func New(authSvc *auth.Service, rotation *refreshtoken.Service, revocationSvc *revocation.Service, logger *logging.Service) *Handlers {
	return &Handlers{
		auth:       authSvc,
		rotation:   rotation,
		revocation: revocationSvc,
		logger:     logger.Named("handlers"),
	}
}

func (h *Handlers) Signup(c echo.Context) error {
	var req api.Credentials
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, api.MessageInvalidBody)
	}

	user, err := h.auth.Signup(c.Request().Context(), req.Email, req.Password)
	switch {
	case err == nil:
		return success(c, api.MessageSignedUp, api.SignupResponse{ID: user.ID})
	case errors.Is(err, auth.ErrUserAlreadyExists):
		return fail(c, http.StatusBadRequest, api.MessageUserExists)
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidUsername):
		return fail(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("signup failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, api.MessageInternal)
	}
}

func (h *Handlers) Login(c echo.Context) error {
	var req api.Credentials
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, api.MessageInvalidBody)
	}

	device := auth.DeviceSummary(c.Request().UserAgent())
	pair, err := h.auth.Login(c.Request().Context(), req.Email, req.Password, device)
	switch {
	case err == nil:
		return success(c, api.MessageLoggedIn, tokenResponse(pair))
	case errors.Is(err, auth.ErrWrongCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, api.MessageWrongCredentials)
	default:
		h.logger.Error("login failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, api.MessageInternal)
	}
}

func (h *Handlers) Refresh(c echo.Context) error {
	var req api.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, api.MessageInvalidBody)
	}

	pair, err := h.rotation.Rotate(c.Request().Context(), req.RefreshToken)
	switch {
	case err == nil:
		return success(c, api.MessageRefreshed, tokenResponse(pair))
	case errors.Is(err, refreshtoken.ErrExpiredToken):
		return echo.NewHTTPError(http.StatusUnauthorized, api.MessageExpiredToken)
	case errors.Is(err, refreshtoken.ErrInvalidToken):
		return echo.NewHTTPError(http.StatusUnauthorized, api.MessageInvalidToken)
	default:
		h.logger.Error("refresh failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, api.MessageInternal)
	}
}

// Logout ends the presented refresh family and revokes the bearer access
// token. An already dead refresh token is not an error.
func (h *Handlers) Logout(c echo.Context) error {
	var req api.LogoutRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, api.MessageInvalidBody)
	}

	userID := jwtmiddleware.GetUserID(c)

	if req.RefreshToken != "" {
		err := h.rotation.Revoke(c.Request().Context(), req.RefreshToken, userID)
		switch {
		case err == nil, errors.Is(err, refreshtoken.ErrExpiredToken):
		case errors.Is(err, refreshtoken.ErrInvalidToken):
			h.logger.Debug("logout with unusable refresh token", zap.Uint("user_id", userID))
		default:
			h.logger.Error("logout failed", zap.Uint("user_id", userID), zap.Error(err))
			return fail(c, http.StatusInternalServerError, api.MessageInternal)
		}
	}

	if claims := jwtmiddleware.GetClaims(c); claims != nil && h.revocation != nil && claims.ExpiresAt != nil {
		if err := h.revocation.Revoke(claims.ID, claims.ExpiresAt.Time); err != nil {
			h.logger.Error("failed to revoke access token", zap.Uint("user_id", userID), zap.Error(err))
			return fail(c, http.StatusInternalServerError, api.MessageInternal)
		}
	}

	return success(c, api.MessageLoggedOut, api.Empty{})
}

func tokenResponse(pair *refreshtoken.TokenPair) api.TokenResponse {
	return api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}
}
