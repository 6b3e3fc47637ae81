package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/chatauth/api"
	jwtmiddleware "github.com/tech-arch1tect/chatauth/middleware/jwt"
	"github.com/tech-arch1tect/chatauth/middleware/jwtshared"
	"github.com/tech-arch1tect/chatauth/openapi"
)

const bearerScheme = "bearer"

type RouteDeps struct {
	Verifier   jwtmiddleware.Verifier
	Revocation jwtmiddleware.RevocationChecker
	// RateLimit guards the credential endpoints when non-nil.
	RateLimit echo.MiddlewareFunc
	Doc       *openapi.OpenAPI
}

// Register mounts every route on e and records it in deps.Doc.
func (h *Handlers) Register(e *echo.Echo, deps RouteDeps) {
	requireAccess := jwtmiddleware.RequireAccessToken(deps.Verifier, deps.Revocation)

	var limited []echo.MiddlewareFunc
	if deps.RateLimit != nil {
		limited = append(limited, deps.RateLimit)
	}

	authGroup := e.Group("/auth")
	authGroup.POST("/signup", h.Signup)
	authGroup.POST("/login", h.Login, limited...)
	authGroup.POST("/refresh", h.Refresh, limited...)
	authGroup.POST("/logout", h.Logout, requireAccess)

	e.GET("/users/me", h.Me, requireAccess, jwtshared.RequireUser(h.auth))

	if deps.Doc != nil {
		describe(deps.Doc)
		e.GET("/openapi.json", deps.Doc.JSONHandler())
		e.GET("/openapi.yaml", deps.Doc.YAMLHandler())
	}
}

func describe(doc *openapi.OpenAPI) {
	doc.Tag("auth", "Credential issue and rotation").
		Tag("users", "Authenticated user").
		BearerAuth(bearerScheme, "Access token from /auth/login or /auth/refresh")

	failure := api.Envelope[api.Empty]{}

	doc.Document(http.MethodPost, "/auth/signup").
		Summary("Create a user").
		Tags("auth").
		Body(api.Credentials{}, "Email and password").
		Response(http.StatusOK, api.Envelope[api.SignupResponse]{}, "User created").
		Response(http.StatusBadRequest, failure, "User exists or invalid input").
		Build()

	doc.Document(http.MethodPost, "/auth/login").
		Summary("Log in and start a token family").
		Tags("auth").
		Body(api.Credentials{}, "Email and password").
		Response(http.StatusOK, api.Envelope[api.TokenResponse]{}, "Token pair").
		Response(http.StatusUnauthorized, failure, "Wrong credentials").
		Response(http.StatusTooManyRequests, failure, "Rate limited").
		Build()

	doc.Document(http.MethodPost, "/auth/refresh").
		Summary("Rotate a refresh token").
		Tags("auth").
		Body(api.RefreshRequest{}, "Current refresh token").
		Response(http.StatusOK, api.Envelope[api.TokenResponse]{}, "New token pair").
		Response(http.StatusUnauthorized, failure, "Invalid, reused or expired refresh token").
		Response(http.StatusTooManyRequests, failure, "Rate limited").
		Build()

	doc.Document(http.MethodPost, "/auth/logout").
		Summary("End the session").
		Tags("auth").
		Security(bearerScheme).
		Body(api.LogoutRequest{}, "Refresh token of the family to end").
		Response(http.StatusOK, api.Envelope[api.Empty]{}, "Logged out").
		Response(http.StatusUnauthorized, failure, "Missing or invalid access token").
		Build()

	doc.Document(http.MethodGet, "/users/me").
		Summary("Current user").
		Tags("users").
		Security(bearerScheme).
		Response(http.StatusOK, api.Envelope[api.UserResponse]{}, "Current user").
		Response(http.StatusUnauthorized, failure, "Missing or invalid access token").
		Build()
}
