// Package apiclient talks to the CiensPay REST backend.
//
// Public calls (login, register) go straight to the backend. Authenticated calls go through
// AuthedDo, which attaches the session's bearer token and, on a 401, performs exactly one
// refresh and one retry of the original request.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/cienspay/cienspay-web/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// RefreshMode selects which refresh contract the backend speaks
type RefreshMode string

const (
	// RefreshModeCustom posts to /auth/refresh/ and accepts {access} or {data:{access}}
	RefreshModeCustom RefreshMode = "custom"
	// RefreshModeSimpleJWT posts to /token/refresh/ and accepts {access}
	RefreshModeSimpleJWT RefreshMode = "simplejwt"
)

const (
	defaultBaseURL = "http://localhost:8000/api"
	defaultTimeout = 10 * time.Second
)

// Config describes the backend
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RefreshMode RefreshMode
	// RefreshPath overrides the mode's default refresh path
	RefreshPath string
	// ProfilePath is /auth/profile/ unless an older backend exposes /auth/me/
	ProfilePath string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (its Timeout is kept as given)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSingleFlightRefresh makes concurrent refreshes of the same refresh token share one call.
// Required when the backend issues single-use refresh tokens.
func WithSingleFlightRefresh() Option {
	return func(c *Client) { c.singleFlight = true }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

type Client struct {
	baseURL      string
	http         *http.Client
	refreshMode  RefreshMode
	refreshPath  string
	profilePath  string
	timeout      time.Duration
	singleFlight bool
	refreshGroup singleflight.Group
	metrics      *metrics.Metrics
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "[apiclient New] base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		http:        &http.Client{Timeout: cfg.Timeout},
		refreshMode: cfg.RefreshMode,
		refreshPath: cfg.RefreshPath,
		profilePath: cfg.ProfilePath,
		timeout:     cfg.Timeout,
	}

	switch c.refreshMode {
	case "":
		c.refreshMode = RefreshModeCustom
	case RefreshModeCustom, RefreshModeSimpleJWT:
	default:
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "[apiclient New] unknown refresh mode %q", cfg.RefreshMode)
	}
	if c.refreshPath == "" {
		c.refreshPath = defaultRefreshPath(c.refreshMode)
	}
	if c.profilePath == "" {
		c.profilePath = PathProfile
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request is a replayable backend request. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func (c *Client) url(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// headersFor merges the caller's headers, defaults the JSON content type for
// non-GET requests and attaches the bearer token when there is one
func headersFor(req Request, access string) http.Header {
	h := http.Header{}
	for k, vs := range req.Header {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	if h.Get("Content-Type") == "" && req.method() != http.MethodGet {
		h.Set("Content-Type", "application/json")
	}
	if h.Get("Accept") == "" {
		h.Set("Accept", "application/json")
	}
	if access != "" {
		h.Set("Authorization", "Bearer "+access)
	}
	return h
}

// send issues one HTTP round trip. Transport failures wrap errors.ErrNetwork.
func (c *Client) send(ctx context.Context, req Request, header http.Header) (*http.Response, error) {
	logger := log.Ctx(ctx)
	method := req.method()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(req.Path, req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("[apiclient send] build %s %s: %w", method, req.Path, err)
	}
	httpReq.Header = header

	logger.Debug().Str("method", method).Str("path", req.Path).Msg("[API Request]")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.APIRequest(method, "error")
		logger.Warn().Err(err).Str("method", method).Str("path", req.Path).Msg("[API Request Error]")
		return nil, errors.Wrapf(errors.ErrNetwork, "[apiclient send] %s %s: %v", method, req.Path, err)
	}

	c.metrics.APIRequest(method, strconv.Itoa(resp.StatusCode))
	logger.Debug().Int("status", resp.StatusCode).Str("path", req.Path).Msg("[API Response]")
	if resp.StatusCode == http.StatusNotFound {
		logger.Warn().Str("path", req.Path).Msg("endpoint not found, check the backend URL")
	}
	return resp, nil
}

// Do issues an unauthenticated request
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	return c.send(ctx, req, headersFor(req, ""))
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
