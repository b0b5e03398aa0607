package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/fabricstore/storefront/pkg/logger"
)

const (
	// DefaultBaseURL is used when no API URL is configured.
	DefaultBaseURL = "https://fabricadmin.onrender.com"

	apiPrefix        = "/api"
	defaultUserAgent = "storefront-go/1.0"

	maxResponseBytes = 8 << 20
	maxErrorBytes    = 64 << 10
)

// Client talks JSON to the storefront REST API.
// Zero value is not usable; use New.
type Client struct {
	base      *url.URL
	http      *http.Client
	timeout   time.Duration
	tokens    TokenSource
	limiter   *rate.Limiter
	logger    *slog.Logger
	userAgent string
}

// New creates a client for the API rooted at baseURL (see ResolveBaseURL).
func New(baseURL string, opts ...Option) (*Client, error) {
	resolved, err := ResolveBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(resolved)

	c := &Client{
		base:      base,
		http:      &http.Client{},
		timeout:   -1,
		logger:    logger.Discard(),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Work on a copy so a shared *http.Client is never mutated.
	hc := *c.http
	if hc.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	if c.timeout >= 0 {
		hc.Timeout = c.timeout
	}
	c.http = &hc

	return c, nil
}

// ResolveBaseURL turns a configured API URL into the API root: empty input
// falls back to DefaultBaseURL, trailing slashes are dropped, and "/api" is
// appended unless the path already ends with it.
func ResolveBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultBaseURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Join(ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidBaseURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: host is required", ErrInvalidBaseURL)
	}

	u.Path = strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(u.Path, apiPrefix) {
		u.Path += apiPrefix
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Jar exposes the cookie jar holding the cookie session.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, nil, out)
}

func (c *Client) GetQuery(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, in, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do performs one request. in is JSON-encoded when non-nil; out receives the
// decoded 2xx body when non-nil and the body is not empty.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	ctx, requestID := ensureRequestID(ctx)

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Join(ErrEncodeBody, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrRequestFailed, err)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "api request failed",
			logger.HTTPRequest(method, path, 0),
			logger.Error(err),
		)
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.DebugContext(ctx, "api request",
		logger.HTTPRequest(method, path, resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Join(ErrDecodeBody, err)
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// errorMessage pulls "message" (or "error") out of a JSON error payload.
func errorMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
