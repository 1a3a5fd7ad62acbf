// Package gateway is the HTTP client for the auth gateway REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/internal/errors"
)

// Auth gateway routes
const (
	RouteOTPGenerate = "/api/v1/auth/otp/generate"
	RouteOTPValidate = "/api/v1/auth/otp/validate"
	RouteRefresh     = "/api/v1/auth/refresh"
	RouteLogout      = "/api/v1/auth/logout"
	RouteSession     = "/api/v1/auth/session/"
)

const contentTypeJSON = "application/json"

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}

// Client calls the auth gateway. Requests are not retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient sets the base HTTP client used for every request.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a client for the gateway at baseURL (e.g., "https://auth.example.com").
func New(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// BaseURL returns the gateway base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GenerateOTP asks the gateway to send a one time code to the phone number.
func (c *Client) GenerateOTP(ctx context.Context, request authmodel.OTPRequest) (*authmodel.OTPResponse, error) {
	var resp authmodel.OTPResponse
	if err := c.do(ctx, c.httpClient, http.MethodPost, RouteOTPGenerate, "OTP generation", request, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateOTP exchanges a code for a token set.
func (c *Client) ValidateOTP(ctx context.Context, validation authmodel.OTPValidation) (*authmodel.TokenResponse, error) {
	var resp authmodel.TokenResponse
	if err := c.do(ctx, c.httpClient, http.MethodPost, RouteOTPValidate, "OTP validation", validation, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new token set. Any non-OK answer
// is reported as errors.ErrSessionExpired wrapping the *StatusError.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*authmodel.TokenResponse, error) {
	var resp authmodel.TokenResponse
	err := c.do(ctx, c.httpClient, http.MethodPost, RouteRefresh, "Token refresh", authmodel.RefreshRequest{RefreshToken: refreshToken}, &resp)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("%w: %w", errors.ErrSessionExpired, statusErr)
		}
		return nil, err
	}
	return &resp, nil
}

// Logout deactivates the backend session.
func (c *Client) Logout(ctx context.Context, accessToken string, request authmodel.LogoutRequest) error {
	return c.do(ctx, BearerClient(c.httpClient, accessToken), http.MethodPost, RouteLogout, "Logout", request, nil)
}

// GetSession fetches the backend view of a session.
func (c *Client) GetSession(ctx context.Context, accessToken, sessionID string) (*authmodel.SessionStatus, error) {
	var resp authmodel.SessionStatus
	path := RouteSession + url.PathEscape(sessionID)
	if err := c.do(ctx, BearerClient(c.httpClient, accessToken), http.MethodGet, path, "Session validation", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BearerClient wraps base so that every request carries the access token.
func BearerClient(base *http.Client, accessToken string) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	return &http.Client{
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   base.Transport,
		},
	}
}

func (c *Client) do(ctx context.Context, httpClient *http.Client, method, path, op string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ReadStatusError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	log.Debug().Str("path", path).Int("status", resp.StatusCode).Msg("gateway call")
	return nil
}

// ReadStatusError builds a StatusError from a non-2xx response, preferring the
// body's message field.
func ReadStatusError(op string, resp *http.Response) *StatusError {
	statusText := http.StatusText(resp.StatusCode)
	message := fmt.Sprintf("%s failed: %s", op, statusText)

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var errBody authmodel.ErrorResponse
	if err := json.Unmarshal(data, &errBody); err == nil && errBody.Message != "" {
		message = errBody.Message
	}

	return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: message}
}
