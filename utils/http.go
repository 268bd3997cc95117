package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"doujin-resolver/internal/types"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// HTTPClient holds the transport and rate limiter shared by every storefront session
type HTTPClient struct {
	transport http.RoundTripper
	config    *types.Config
	logger    types.Logger
	limiter   *rate.Limiter
}

// Option customises an HTTPClient
type Option func(*HTTPClient)

// WithTransport replaces the default transport (used by tests to route hosts in-process)
func WithTransport(rt http.RoundTripper) Option {
	return func(h *HTTPClient) {
		h.transport = rt
	}
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(config *types.Config, logger types.Logger, opts ...Option) *HTTPClient {
	limit := rate.Inf
	if config.RequestDelay > 0 {
		limit = rate.Every(config.RequestDelay)
	}
	burst := config.MaxConcurrentRequests
	if burst < 1 {
		burst = 1
	}

	h := &HTTPClient{
		transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		config:  config,
		logger:  logger,
		limiter: rate.NewLimiter(limit, burst),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewSession returns a client with its own cookie jar. Each storefront gets its own
// session per item so anti-bot state never leaks between storefronts or items.
func (h *HTTPClient) NewSession() *Session {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		// cookiejar.New never fails with a non-nil options value
		panic(err)
	}
	return &Session{
		parent: h,
		jar:    jar,
		client: &http.Client{
			Timeout:   h.config.Timeout,
			Transport: h.transport,
			Jar:       jar,
		},
	}
}

// Close cleans up resources
func (h *HTTPClient) Close() {
	if t, ok := h.transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode  int
	URL         *url.URL // final URL after redirects
	ContentType string
	Body        []byte
}

// Text returns the body as a string without charset conversion
func (r *Response) Text() string {
	return string(r.Body)
}

// Session is a cookie-carrying client scoped to one storefront
type Session struct {
	parent *HTTPClient
	jar    http.CookieJar
	client *http.Client
}

// SetCookie stores a cookie for the given URL's domain
func (s *Session) SetCookie(u *url.URL, cookie *http.Cookie) {
	s.jar.SetCookies(u, []*http.Cookie{cookie})
}

// Get performs a single GET request. Non-2xx statuses and network failures are
// returned as *types.TransportError.
func (s *Session) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return s.do(ctx, req)
}

// PostForm submits form data as application/x-www-form-urlencoded
func (s *Session) PostForm(ctx context.Context, action string, data url.Values, referer string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	return s.do(ctx, req)
}

func (s *Session) do(ctx context.Context, req *http.Request) (*Response, error) {
	if err := s.parent.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req.Header.Set("User-Agent", s.parent.config.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}
	req.Header.Set("Accept-Language", "ja,en-US;q=0.7,en;q=0.3")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	rawURL := req.URL.String()
	s.parent.logger.Debugf("Making %s request to %s", req.Method, rawURL)

	resp, err := s.client.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			s.parent.logger.Warnf("Request to %s timed out", rawURL)
		}
		return nil, &types.TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.parent.logger.Warnf("Unexpected status code %d from %s", resp.StatusCode, rawURL)
		return nil, &types.TransportError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.TransportError{URL: rawURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	s.parent.logger.Debugf("Successfully retrieved %d bytes from %s", len(body), rawURL)
	return &Response{
		StatusCode:  resp.StatusCode,
		URL:         resp.Request.URL,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
