package serve

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/statichost/statichost/internal/config"
)

// Forwarder proxies requests for remote mounts to their upstreams. A single
// pooled transport is shared across all remote mounts; checkout/return of
// pooled connections is handled by net/http and is safe for concurrent use.
type Forwarder struct {
	transport *http.Transport
	logger    *slog.Logger
}

// NewForwarder builds a forwarder with connect and response-header timeouts
// so an unresponsive upstream surfaces as 502 instead of hanging the client.
func NewForwarder(cfg config.ProxyConfig, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: cfg.DialTimeout,
			}).DialContext,
			ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
			MaxIdleConns:          cfg.MaxIdleConns,
			MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:       cfg.IdleConnTimeout,
			ForceAttemptHTTP2:     true,
		},
		logger: logger,
	}
}

// forward rewrites the request for the upstream and streams the response
// back. The upstream body is copied as bytes arrive (negative FlushInterval),
// never buffered whole, so unbounded bodies such as event streams work.
// Status and headers pass through unchanged apart from hop-by-hop headers,
// which httputil.ReverseProxy strips on both legs.
func (f *Forwarder) forward(w http.ResponseWriter, r *http.Request, base *url.URL, remainder string) {
	proxy := &httputil.ReverseProxy{
		Director:      f.director(base, remainder, r),
		Transport:     f.transport,
		FlushInterval: -1,
		ErrorHandler:  f.errorHandler,
	}
	proxy.ServeHTTP(w, r)
}

// director rewrites the outgoing request: upstream scheme/host, base path
// joined with the remainder, original query preserved, method and body left
// untouched.
func (f *Forwarder) director(base *url.URL, remainder string, original *http.Request) func(*http.Request) {
	return func(req *http.Request) {
		req.URL.Scheme = base.Scheme
		req.URL.Host = base.Host
		req.Host = base.Host
		req.URL.Path = joinUpstreamPath(base.Path, remainder)
		req.URL.RawPath = ""

		if base.RawQuery != "" {
			if req.URL.RawQuery == "" {
				req.URL.RawQuery = base.RawQuery
			} else {
				req.URL.RawQuery = base.RawQuery + "&" + req.URL.RawQuery
			}
		}

		if clientIP, _, err := net.SplitHostPort(original.RemoteAddr); err == nil {
			req.Header.Set("X-Forwarded-For", clientIP)
		}
		if original.TLS != nil {
			req.Header.Set("X-Forwarded-Proto", "https")
		} else {
			req.Header.Set("X-Forwarded-Proto", "http")
		}
		req.Header.Set("X-Forwarded-Host", original.Host)
	}
}

// errorHandler runs only before upstream response headers have been written
// to the client; anything later aborts the connection inside ReverseProxy.
func (f *Forwarder) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// Client went away; nothing left to answer.
		return
	}
	f.logger.Warn("upstream unavailable",
		"path", r.URL.Path,
		"upstream", r.URL.Host,
		"error", err)
	status := statusFor(ErrUpstreamUnavailable)
	http.Error(w, http.StatusText(status), status)
}

// joinUpstreamPath appends the remainder to the upstream base path with a
// single slash between them. An empty remainder (exact prefix match) maps to
// the base path itself, e.g. mount /api/get -> https://host/get.
func joinUpstreamPath(basePath, remainder string) string {
	if remainder == "" {
		if basePath == "" {
			return "/"
		}
		return basePath
	}
	switch {
	case strings.HasSuffix(basePath, "/") && strings.HasPrefix(remainder, "/"):
		return basePath + remainder[1:]
	case !strings.HasSuffix(basePath, "/") && !strings.HasPrefix(remainder, "/"):
		return basePath + "/" + remainder
	}
	return basePath + remainder
}
