package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// Endpoints are the request paths, relative to the base URL.
type Endpoints struct {
	Token    string `yaml:"token"`
	Register string `yaml:"register"`
	Me       string `yaml:"me"`
}

// DefaultEndpoints returns the /api/v1/auth routes.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Token:    "/api/v1/auth/token",
		Register: "/api/v1/auth/register",
		Me:       "/api/v1/auth/users/me",
	}
}

// Token is a successful token endpoint response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Registration is the register endpoint request body.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// User is the current-user payload.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Role     string `json:"role"`
}

// Client calls the credential endpoints. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	endpoints Endpoints
	http      *http.Client
	log       logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithEndpoints overrides DefaultEndpoints.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) { c.endpoints = e }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New returns a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("authapi: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("authapi: unsupported base url scheme %q", u.Scheme)
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		base:      u,
		endpoints: DefaultEndpoints(),
		http:      NewHTTPClient(30 * time.Second),
		log:       discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewHTTPClient returns an http.Client tuned for short credential calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   2,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// RequestToken exchanges credentials for an access token.
func (c *Client) RequestToken(ctx context.Context, username, password string) (Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	body, err := c.do(ctx, http.MethodPost, c.endpoints.Token, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()), "")
	if err != nil {
		return Token{}, err
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if tok.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: missing access_token", ErrMalformedResponse)
	}
	return tok, nil
}

// Register creates an account. Any 2xx response is success.
func (c *Client) Register(ctx context.Context, r Registration) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("authapi: encode registration: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, c.endpoints.Register, "application/json", bytes.NewReader(payload), "")
	return err
}

// CurrentUser returns the account that token belongs to.
func (c *Client) CurrentUser(ctx context.Context, token string) (User, error) {
	body, err := c.do(ctx, http.MethodGet, c.endpoints.Me, "", nil, token)
	if err != nil {
		return User{}, err
	}
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return u, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, bearer string) ([]byte, error) {
	target := c.base.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("authapi: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	requestID := requestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)

	log := c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       target.Path,
		"request_id": requestID,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("auth request failed")
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	log = log.WithField("status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Info("auth request rejected")
		return nil, &ServerError{Status: resp.StatusCode, Detail: parseDetail(data)}
	}
	log.Debug("auth request ok")
	return data, nil
}

// IsServerError reports whether err came from a non-2xx response.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}
