package serve

import (
	"log/slog"
	"net/http"

	"github.com/statichost/statichost/internal/mount"
)

// Dispatcher routes each request to its mount point and renders failures as
// HTTP statuses. It holds only immutable state, so a single instance serves
// all request goroutines without synchronization.
type Dispatcher struct {
	table  *mount.Table
	fwd    *Forwarder
	logger *slog.Logger
}

// NewDispatcher wires a mount table and forwarder into an http.Handler.
func NewDispatcher(table *mount.Table, fwd *Forwarder, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{table: table, fwd: fwd, logger: logger}
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, ok := d.table.Match(r.URL.Path)
	if !ok {
		d.fail(w, r, ErrRouteNotFound)
		return
	}

	switch res.Mount.Kind {
	case mount.KindLocal:
		sw := &statusWriter{ResponseWriter: w}
		if err := d.serveLocal(sw, r, res.Mount, res.Remainder); err != nil {
			if sw.wroteHeader {
				// Headers are committed; the status cannot change.
				// Abort the connection so the client sees a broken
				// transfer instead of a truncated "success".
				d.logger.Error("response aborted mid-stream",
					"path", r.URL.Path, "status", sw.status, "error", err)
				panic(http.ErrAbortHandler)
			}
			d.fail(w, r, err)
		}
	case mount.KindRemote:
		d.fwd.forward(w, r, res.Mount.Remote.BaseURL, res.Remainder)
	}
}

// fail converts a per-request error into a minimal HTTP error response.
func (d *Dispatcher) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		d.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		d.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	http.Error(w, http.StatusText(status), status)
}

// statusWriter records whether response headers have been written, so the
// dispatcher knows when an error can no longer be turned into a status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(status int) {
	if !sw.wroteHeader {
		sw.status = status
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(status)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.status = http.StatusOK
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}
