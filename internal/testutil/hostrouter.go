// Package testutil serves storefront hostnames from in-process handlers so tests can
// exercise real URLs, cookie domains and redirects without opening sockets.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// HostRouter is an http.RoundTripper that dispatches requests by hostname
type HostRouter struct {
	mu       sync.Mutex
	handlers map[string]http.Handler
	hits     map[string]int
}

// NewHostRouter creates an empty router
func NewHostRouter() *HostRouter {
	return &HostRouter{
		handlers: make(map[string]http.Handler),
		hits:     make(map[string]int),
	}
}

// Handle registers a handler for a hostname (without port)
func (r *HostRouter) Handle(host string, h http.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[host] = h
}

// HandleFunc registers a handler function for a hostname
func (r *HostRouter) HandleFunc(host string, fn func(http.ResponseWriter, *http.Request)) {
	r.Handle(host, http.HandlerFunc(fn))
}

// Hits returns how many requests reached a hostname
func (r *HostRouter) Hits(host string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[host]
}

// RoundTrip implements http.RoundTripper
func (r *HostRouter) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Hostname()

	r.mu.Lock()
	h, ok := r.handlers[host]
	r.hits[host]++
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no route for host %q", host)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

// HTML writes body as a UTF-8 HTML response
func HTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
