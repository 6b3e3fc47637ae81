// Package api holds the request and response bodies shared by the server
// handlers and the client.
package api

// Envelope wraps every JSON response body.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

type Credentials struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct horse battery"`
}

type SignupResponse struct {
	ID uint `json:"id"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in" doc:"access token lifetime in seconds"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Empty is the data type of responses that carry no payload.
type Empty struct{}

const (
	MessageSignedUp         = "User created successfully"
	MessageUserExists       = "User already exists"
	MessageLoggedIn         = "Logged in"
	MessageRefreshed        = "Refreshed"
	MessageLoggedOut        = "Logged out"
	MessageOK               = "OK"
	MessageWrongCredentials = "Wrong credentials"
	MessageInvalidToken     = "Invalid refresh token"
	MessageExpiredToken     = "Refresh token expired"
	MessageInvalidBody      = "Invalid request body"
	MessageInternal         = "Internal server error"
)
