// Package middleware provides the http.Handler wrappers applied around the
// dispatcher: access logging, per-IP rate limiting and CORS.
package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// AccessLog logs one line per completed request.
type AccessLog struct {
	logger *slog.Logger
}

// NewAccessLog builds access-logging middleware on the given logger.
func NewAccessLog(logger *slog.Logger) *AccessLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessLog{logger: logger}
}

// Wrap returns a handler that logs after next completes.
func (a *AccessLog) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			// Aborted responses (http.ErrAbortHandler) still get a
			// log line before the panic continues to the server.
			a.logger.Info("request",
				"remote", clientIP(r),
				"method", r.Method,
				"uri", r.RequestURI,
				"status", rec.status,
				"bytes", rec.written,
				"duration", time.Since(start),
			)
		}()

		next.ServeHTTP(rec, r)
	})
}

// statusRecorder captures the status code and bytes written for the log line.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.written += int64(n)
	return n, err
}

// Flush keeps streaming responses streaming through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// clientIP extracts the client address, preferring forwarding headers set by
// an upstream load balancer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
