package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNetworkFailure means the request never produced an HTTP response.
	ErrNetworkFailure = errors.New("network failure")
	// ErrRefreshExhausted means the session cannot be recovered and the user
	// must log in again.
	ErrRefreshExhausted = errors.New("refresh exhausted, login required")
)

// APIError is a non-success response from the server, carrying the
// envelope message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}
