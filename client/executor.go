package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/chatauth/api"
	"github.com/tech-arch1tect/chatauth/client/session"
	"github.com/tech-arch1tect/chatauth/services/logging"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	refreshPath        = "/auth/refresh"
)

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response envelope.
func Decode[T any](resp *Response) (*api.Envelope[T], error) {
	var env api.Envelope[T]
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &env, nil
}

// Executor sends requests with the cached bearer token and recovers from a
// 401 by rotating the refresh token and retrying, up to maxAttempts sends
// per call.
type Executor struct {
	baseURL     string
	http        *http.Client
	cache       *session.Cache
	maxAttempts int
	onReauth    func()
	logger      *logging.Service
}

func NewExecutor(baseURL string, httpClient *http.Client, cache *session.Cache, logger *logging.Service) *Executor {
	return &Executor{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        httpClient,
		cache:       cache,
		maxAttempts: DefaultMaxAttempts,
		logger:      logger.Named("executor"),
	}
}

// Execute performs an authenticated call. Any status other than 401 is
// returned as is; transport errors wrap ErrNetworkFailure and are not
// retried.
func (e *Executor) Execute(ctx context.Context, method, path string, body any) (*Response, error) {
	return e.ExecuteWith(ctx, method, path, func(session.Session) any { return body })
}

// ExecuteWith is Execute with a body built from the session each attempt
// is sent with, so a body naming the refresh token follows rotation.
func (e *Executor) ExecuteWith(ctx context.Context, method, path string, build func(session.Session) any) (*Response, error) {
	for attempt := 1; ; attempt++ {
		current := e.cache.Get()

		payload, err := encodeBody(build(current))
		if err != nil {
			return nil, err
		}

		resp, err := e.send(ctx, method, path, payload, current.AccessToken)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			return resp, nil
		}

		if attempt >= e.maxAttempts {
			return nil, e.exhausted(current, fmt.Sprintf("still unauthorized after %d attempts", attempt))
		}

		if !current.HasRefresh() {
			return nil, e.exhausted(current, "no refresh token")
		}

		e.logger.Debug("access token rejected, refreshing",
			zap.String("path", path),
			zap.Int("attempt", attempt))

		pair, err := e.refresh(ctx, current.RefreshToken)
		if err != nil {
			return nil, e.exhausted(current, err.Error())
		}
		e.cache.Set(session.Session{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
	}
}

// Go runs Execute on its own goroutine and hands the result to done. A nil
// done discards the result.
func (e *Executor) Go(ctx context.Context, method, path string, body any, done func(*Response, error)) {
	go func() {
		resp, err := e.Execute(ctx, method, path, body)
		if done != nil {
			done(resp, err)
		}
	}()
}

func (e *Executor) refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error) {
	payload, err := encodeBody(api.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	resp, err := e.send(ctx, http.MethodPost, refreshPath, payload, "")
	if err != nil {
		return nil, err
	}

	env, err := Decode[api.TokenResponse](resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if env.Data == nil || env.Data.AccessToken == "" || env.Data.RefreshToken == "" {
		return nil, fmt.Errorf("refresh response missing tokens")
	}
	return env.Data, nil
}

// exhausted ends the session used by the failing call: the cache is
// cleared and the hook runs, unless another call already stored a newer pair.
func (e *Executor) exhausted(used session.Session, reason string) error {
	if e.cache.ClearIf(used.RefreshToken) {
		e.logger.Info("session cannot be refreshed", zap.String("reason", reason))
		if e.onReauth != nil {
			e.onReauth()
		}
	} else {
		e.logger.Debug("session replaced while refreshing, keeping it", zap.String("reason", reason))
	}
	return fmt.Errorf("%w: %s", ErrRefreshExhausted, reason)
}

func (e *Executor) send(ctx context.Context, method, path string, payload []byte, accessToken string) (*Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	if accessToken != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+accessToken)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return payload, nil
}
