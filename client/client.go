// Package client talks to the chatauth HTTP API and keeps the caller's
// session fresh.
package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/tech-arch1tect/chatauth/api"
	"github.com/tech-arch1tect/chatauth/client/session"
	"github.com/tech-arch1tect/chatauth/config"
	"github.com/tech-arch1tect/chatauth/services/logging"
	"go.uber.org/zap"
)

type Option func(*Client)

// WithReauthHook sets the callback run whenever the session is lost and
// the user has to log in again.
func WithReauthHook(fn func()) Option {
	return func(c *Client) {
		c.exec.onReauth = fn
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.exec.http = httpClient
	}
}

type Client struct {
	exec   *Executor
	cache  *session.Cache
	logger *logging.Service
}

func New(cfg *config.Config, cache *session.Cache, logger *logging.Service, opts ...Option) *Client {
	exec := NewExecutor(cfg.Client.BaseURL, &http.Client{Timeout: cfg.Client.Timeout}, cache, logger)
	if cfg.Client.MaxAttempts >= config.MinClientAttempts {
		exec.maxAttempts = cfg.Client.MaxAttempts
	}

	c := &Client{
		exec:   exec,
		cache:  cache,
		logger: logger.Named("client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Executor() *Executor {
	return c.exec
}

func (c *Client) Session() session.Session {
	return c.cache.Get()
}

func (c *Client) Signup(ctx context.Context, email, password string) (uint, error) {
	data, err := call[api.SignupResponse](ctx, c.exec, http.MethodPost, "/auth/signup",
		api.Credentials{Email: email, Password: password}, false)
	if err != nil {
		return 0, err
	}
	return data.ID, nil
}

// Login stores the returned pair in the session cache.
func (c *Client) Login(ctx context.Context, email, password string) error {
	data, err := call[api.TokenResponse](ctx, c.exec, http.MethodPost, "/auth/login",
		api.Credentials{Email: email, Password: password}, false)
	if err != nil {
		return err
	}

	c.cache.Set(session.Session{AccessToken: data.AccessToken, RefreshToken: data.RefreshToken})
	c.logger.Info("logged in", zap.String("email", email))
	return nil
}

// Logout tells the server to end the session and always clears the cache.
func (c *Client) Logout(ctx context.Context) error {
	current := c.cache.Get()
	defer c.cache.Clear()

	if !current.HasAccess() && !current.HasRefresh() {
		return nil
	}

	// built per attempt so a refresh during the call is the token revoked
	_, err := callWith[api.Empty](ctx, c.exec, http.MethodPost, "/auth/logout",
		func(s session.Session) any { return api.LogoutRequest{RefreshToken: s.RefreshToken} })
	if err != nil {
		c.logger.Warn("server logout failed", zap.Error(err))
	}
	return err
}

func (c *Client) Me(ctx context.Context) (*api.UserResponse, error) {
	return call[api.UserResponse](ctx, c.exec, http.MethodGet, "/users/me", nil, true)
}

// call sends one request and unwraps the envelope. Only authenticated calls
// go through the refresh loop; a 401 from login means wrong credentials.
func call[T any](ctx context.Context, exec *Executor, method, path string, body any, authenticated bool) (*T, error) {
	var (
		resp *Response
		err  error
	)
	if authenticated {
		resp, err = exec.Execute(ctx, method, path, body)
	} else {
		var payload []byte
		if payload, err = encodeBody(body); err == nil {
			resp, err = exec.send(ctx, method, path, payload, "")
		}
	}
	if err != nil {
		return nil, err
	}
	return unwrap[T](resp)
}

// callWith is an authenticated call whose body depends on the session.
func callWith[T any](ctx context.Context, exec *Executor, method, path string, build func(session.Session) any) (*T, error) {
	resp, err := exec.ExecuteWith(ctx, method, path, build)
	if err != nil {
		return nil, err
	}
	return unwrap[T](resp)
}

func unwrap[T any](resp *Response) (*T, error) {
	env, err := Decode[T](resp)
	if err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if env.Data == nil {
		return nil, errors.New("response carried no data")
	}
	return env.Data, nil
}
