package middleware

import (
	"net/http"
	"strings"
)

// CORS sets cross-origin headers for allowed origins and short-circuits
// preflight requests.
type CORS struct {
	allowOrigins []string
	allowMethods string
	allowHeaders string
	allowAll     bool
}

// NewCORS builds CORS middleware. An origin of "*" allows everything.
func NewCORS(origins, methods, headers []string) *CORS {
	if len(methods) == 0 {
		methods = []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}
	}
	if len(headers) == 0 {
		headers = []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"}
	}
	c := &CORS{
		allowOrigins: origins,
		allowMethods: strings.Join(methods, ", "),
		allowHeaders: strings.Join(headers, ", "),
	}
	for _, o := range origins {
		if o == "*" {
			c.allowAll = true
			break
		}
	}
	return c
}

// Wrap returns a handler applying the CORS policy before next.
func (c *CORS) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (c.allowAll || c.allowed(origin)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", c.allowMethods)
			w.Header().Set("Access-Control-Allow-Headers", c.allowHeaders)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *CORS) allowed(origin string) bool {
	for _, o := range c.allowOrigins {
		if o == origin {
			return true
		}
	}
	return false
}
