package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/yndnr/fintrack-go/internal/telemetry/logger"
	"github.com/yndnr/fintrack-go/internal/telemetry/metric"
)

const (
	// DefaultBaseURL is the finance API root every path is appended to.
	DefaultBaseURL = "http://localhost:5000/api"
	// DefaultLoginPath is passed to the session-expired callback.
	DefaultLoginPath = "/login"
	// AuthPath handles both login and registration payloads.
	AuthPath = "/auth"

	contentTypeJSON = "application/json"
)

// SessionExpiredFunc is invoked once per request that receives a 401,
// after the token has been cleared. loginPath is the configured login
// boundary.
type SessionExpiredFunc func(ctx context.Context, loginPath string)

// Options configures a Client. Store is required.
type Options struct {
	BaseURL          string
	LoginPath        string
	Store            CredentialStore
	OnSessionExpired SessionExpiredFunc

	// HTTPClient defaults to a client without a timeout; deadlines come
	// from the caller's context.
	HTTPClient *http.Client
	Logger     logger.Logger
	Metrics    *metric.Registry
	UserAgent  string
}

// Client is the session-aware API client. It is safe for concurrent use.
type Client struct {
	baseURL   string
	loginPath string
	store     CredentialStore
	onExpired SessionExpiredFunc
	http      *http.Client
	logger    logger.Logger
	metrics   *metric.Registry
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	if opts.Store == nil {
		return nil, errors.New("connection: credential store is required")
	}
	base, err := normalizeBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}

	hc := &http.Client{}
	if opts.HTTPClient != nil {
		copied := *opts.HTTPClient
		hc = &copied
	}
	hc.Transport = newInstrumentedTransport(hc.Transport, log, opts.Metrics, opts.UserAgent)

	return &Client{
		baseURL:   base,
		loginPath: loginPath,
		store:     opts.Store,
		onExpired: opts.OnSessionExpired,
		http:      hc,
		logger:    log,
		metrics:   opts.Metrics,
	}, nil
}

// normalizeBaseURL accepts "host:port/api" as shorthand for http and
// strips trailing slashes so paths can be appended verbatim.
func normalizeBaseURL(raw string) (string, error) {
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("connection: invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("connection: unsupported scheme %q in base URL", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("connection: base URL %q has no host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoginPath returns the login boundary passed to the expiry callback.
func (c *Client) LoginPath() string {
	return c.loginPath
}

// AuthResult is the decoded body of a successful authentication.
type AuthResult map[string]any

// Token returns the issued session token, or "" if the body had none.
func (r AuthResult) Token() string {
	t, _ := r["token"].(string)
	return t
}

// Authenticate posts credentials to the auth endpoint. The body is
// decoded before the status is checked, so a malformed body fails with
// a decode error even on a rejected login. A non-2xx status fails with
// *AuthenticationError. The returned token is not stored.
func (c *Client) Authenticate(ctx context.Context, credentials any) (AuthResult, error) {
	payload, err := json.Marshal(credentials)
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+AuthPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read auth response: %w", err)
	}
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	obj, isObject := body.(map[string]any)

	if !successful(resp.StatusCode) {
		c.metrics.AuthFailed()
		msg := DefaultAuthMessage
		if isObject {
			if m, ok := obj["message"].(string); ok && m != "" {
				msg = m
			}
		}
		return nil, &AuthenticationError{Status: resp.StatusCode, Message: msg}
	}
	if !isObject {
		return nil, fmt.Errorf("decode auth response: expected a JSON object, got %T", body)
	}
	return AuthResult(obj), nil
}

// RequestOptions describes a protected request. The zero value is a GET
// without a body.
type RequestOptions struct {
	Method string
	// Body is JSON text serialized by the caller. Empty means no body.
	Body string
	// Header entries replace defaults of the same name.
	Header http.Header
}

// Request sends an authenticated request to base URL + path.
//
// Any status other than 401 is returned as the raw response, which the
// caller must close. A 401 clears the stored token, runs the
// session-expired callback and fails with *SessionExpiredError.
// Transport errors are returned as-is. Nothing is retried.
func (c *Client) Request(ctx context.Context, path string, opts *RequestOptions) (*http.Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	token, ok, err := c.store.Get(TokenKey)
	if err != nil {
		return nil, fmt.Errorf("read credential store: %w", err)
	}

	var body io.Reader
	if opts.Body != "" {
		body = strings.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	if ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, vs := range opts.Header {
		req.Header[textproto.CanonicalMIMEHeaderKey(k)] = append([]string(nil), vs...)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, c.expire(ctx, path)
	}
	return resp, nil
}

func (c *Client) expire(ctx context.Context, path string) error {
	c.metrics.SessionExpired()

	log := c.logger.WithContext(ctx)
	clearErr := c.store.Clear(TokenKey)
	if clearErr != nil {
		log.Warn("clear expired token", "error", clearErr)
	}
	log.Info("session expired", "path", path, "login_path", c.loginPath)

	if c.onExpired != nil {
		c.onExpired(ctx, c.loginPath)
	}
	return &SessionExpiredError{Path: path, LoginPath: c.loginPath, Err: clearErr}
}
